package timelock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"washika-dao/logger"
	"washika-dao/models"
	"washika-dao/repository"
)

const (
	DefaultPrincipal   models.Principal = "washika-timelock"
	DefaultDelay       uint64           = 144
	DefaultGracePeriod uint64           = 2016
)

// Local keeps its queue in the ledger store, inside the caller's transaction
// (see repository.WithContext). Actions on registered targets run in-process;
// actions on any other target belong to external programs and are only logged.
type Local struct {
	principal models.Principal
	delay     uint64
	grace     uint64

	mux     sync.RWMutex
	targets map[string]ActionHandler
}

func NewLocal(principal models.Principal, delay, grace uint64) *Local {
	return &Local{
		principal: principal,
		delay:     delay,
		grace:     grace,
		targets:   make(map[string]ActionHandler),
	}
}

// Principal is the identity the timelock acts as when it performs actions
func (l *Local) Principal() models.Principal {
	return l.principal
}

func (l *Local) Delay() uint64 {
	return l.delay
}

func (l *Local) GracePeriod() uint64 {
	return l.grace
}

// Register routes actions whose target is target to h
func (l *Local) Register(target string, h ActionHandler) {
	l.mux.Lock()
	defer l.mux.Unlock()
	l.targets[target] = h
}

func (l *Local) handler(target string) (ActionHandler, bool) {
	l.mux.RLock()
	defer l.mux.RUnlock()
	h, ok := l.targets[target]
	return h, ok
}

func (l *Local) Queue(ctx context.Context, batch models.TimelockBatch) (uint64, error) {
	r, err := repository.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	now, err := r.Height()
	if err != nil {
		return 0, err
	}
	if now > math.MaxUint64-l.delay || batch.ETA < now+l.delay {
		return 0, models.ErrTimelockETA
	}
	queued, err := r.QueuedBatch(batch.ProposalID)
	if err != nil {
		return 0, err
	}
	if queued != nil {
		return 0, models.ErrTimelockDuplicate
	}
	if err := r.PutQueuedBatch(&batch); err != nil {
		return 0, err
	}
	logger.Logger.Info("Timelock queued batch",
		zap.Uint64("proposal_id", batch.ProposalID),
		zap.Uint64("eta", batch.ETA),
		zap.Int("actions", len(batch.Actions)))
	return batch.ETA, nil
}

func (l *Local) Execute(ctx context.Context, batch models.TimelockBatch) error {
	r, err := repository.FromContext(ctx)
	if err != nil {
		return err
	}
	queued, err := r.QueuedBatch(batch.ProposalID)
	if err != nil {
		return err
	}
	if queued == nil || queued.ETA != batch.ETA {
		return models.ErrProposalNotQueued
	}
	same, err := sameActions(queued.Actions, batch.Actions)
	if err != nil {
		return err
	}
	if !same {
		return models.ErrProposalNotQueued
	}
	now, err := r.Height()
	if err != nil {
		return err
	}
	if now < batch.ETA {
		return models.ErrTimelockNotReady
	}
	if now-batch.ETA > l.grace {
		return models.ErrTimelockExpired
	}
	if err := r.DeleteQueuedBatch(batch.ProposalID); err != nil {
		return err
	}

	for i, action := range batch.Actions {
		h, ok := l.handler(action.Target)
		if !ok {
			logger.Logger.Info("Timelock forwarded action to external program",
				zap.Uint64("proposal_id", batch.ProposalID),
				zap.String("target", action.Target),
				zap.String("signature", action.Signature),
				zap.Uint64("value", action.Value))
			continue
		}
		if err := h(ctx, l.principal, action); err != nil {
			return fmt.Errorf("action %d (%s %s): %w", i, action.Target, action.Signature, err)
		}
	}
	logger.Logger.Info("Timelock executed batch", zap.Uint64("proposal_id", batch.ProposalID))
	return nil
}

// Cancel drops a queued batch. Cancelling a batch that is not queued is a no-op.
func (l *Local) Cancel(ctx context.Context, batch models.TimelockBatch) error {
	r, err := repository.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := r.DeleteQueuedBatch(batch.ProposalID); err != nil {
		return err
	}
	logger.Logger.Info("Timelock canceled batch", zap.Uint64("proposal_id", batch.ProposalID))
	return nil
}

// sameActions compares action lists by their stored encoding
func sameActions(a, b []models.Action) (bool, error) {
	ea, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	eb, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ea, eb), nil
}
