package token

import (
	"fmt"
	"math"

	"washika-dao/models"
)

// CurrentVotes returns the latest checkpoint value of p as a delegatee
func (l *Ledger) CurrentVotes(p models.Principal) (uint64, error) {
	n, err := l.store.CheckpointCount(p)
	if err != nil || n == 0 {
		return 0, err
	}
	cp, err := l.store.Checkpoint(p, n-1)
	if err != nil {
		return 0, err
	}
	return cp.Votes, nil
}

// PriorVotes returns the voting power p held at the end of the given block:
// the value of the last checkpoint written at or before height.
func (l *Ledger) PriorVotes(p models.Principal, height uint64) (uint64, error) {
	n, err := l.store.CheckpointCount(p)
	if err != nil || n == 0 {
		return 0, err
	}

	// most lookups are for recent blocks
	last, err := l.store.Checkpoint(p, n-1)
	if err != nil {
		return 0, err
	}
	if last.FromBlock <= height {
		return last.Votes, nil
	}

	// lo ends as the number of checkpoints at or before height
	lo, hi := uint64(0), n-1
	for lo < hi {
		mid := lo + (hi-lo)/2
		cp, err := l.store.Checkpoint(p, mid)
		if err != nil {
			return 0, err
		}
		if cp.FromBlock <= height {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0, nil
	}
	cp, err := l.store.Checkpoint(p, lo-1)
	if err != nil {
		return 0, err
	}
	return cp.Votes, nil
}

// Checkpoints returns p's full voting-power history in block order
func (l *Ledger) Checkpoints(p models.Principal) ([]models.Checkpoint, error) {
	n, err := l.store.CheckpointCount(p)
	if err != nil {
		return nil, err
	}
	cps := make([]models.Checkpoint, 0, n)
	for i := uint64(0); i < n; i++ {
		cp, err := l.store.Checkpoint(p, i)
		if err != nil {
			return nil, err
		}
		cps = append(cps, cp)
	}
	return cps, nil
}

// moveDelegates shifts amount of voting power from src to dst. Either side may
// be NoDelegate, in which case that side has no checkpoint to update.
func (l *Ledger) moveDelegates(src, dst models.Principal, amount uint64) error {
	if src == dst || amount == 0 {
		return nil
	}
	if src != models.NoDelegate {
		old, err := l.CurrentVotes(src)
		if err != nil {
			return err
		}
		if old < amount {
			return fmt.Errorf("delegatee %s holds %d votes, cannot remove %d", src, old, amount)
		}
		if err := l.writeCheckpoint(src, old-amount); err != nil {
			return err
		}
	}
	if dst != models.NoDelegate {
		old, err := l.CurrentVotes(dst)
		if err != nil {
			return err
		}
		if old > math.MaxUint64-amount {
			return fmt.Errorf("%w: votes of %s overflow", models.ErrInvalidAmount, dst)
		}
		if err := l.writeCheckpoint(dst, old+amount); err != nil {
			return err
		}
	}
	return nil
}

// writeCheckpoint records votes for p at the current height. A second write in
// the same block overwrites the first.
func (l *Ledger) writeCheckpoint(p models.Principal, votes uint64) error {
	height, err := l.store.Height()
	if err != nil {
		return err
	}
	n, err := l.store.CheckpointCount(p)
	if err != nil {
		return err
	}
	if n > 0 {
		last, err := l.store.Checkpoint(p, n-1)
		if err != nil {
			return err
		}
		if last.FromBlock == height {
			return l.store.PutCheckpoint(p, n-1, models.Checkpoint{FromBlock: height, Votes: votes})
		}
	}
	if err := l.store.PutCheckpoint(p, n, models.Checkpoint{FromBlock: height, Votes: votes}); err != nil {
		return err
	}
	return l.store.SetCheckpointCount(p, n+1)
}
