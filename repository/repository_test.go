package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washika-dao/db"
	"washika-dao/models"
	"washika-dao/repository"
)

func newDB(t *testing.T) *db.LevelDB {
	t.Helper()
	ldb, err := db.NewMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ldb.Close() })
	return ldb
}

func TestDefaultsOnEmptyStore(t *testing.T) {
	ldb := newDB(t)
	err := repository.View(ldb, func(r repository.Repository) error {
		ok, err := r.Initialized()
		require.NoError(t, err)
		assert.False(t, ok)

		params, err := r.Params()
		require.NoError(t, err)
		assert.Equal(t, models.DefaultParams(), params)

		d, err := r.Delegate("alice")
		require.NoError(t, err)
		assert.Equal(t, models.NoDelegate, d)

		rcpt, err := r.Receipt(1, "alice")
		require.NoError(t, err)
		assert.False(t, rcpt.HasVoted)

		_, err = r.Proposal(1)
		assert.ErrorIs(t, err, models.ErrUnknownProposal)

		b, err := r.QueuedBatch(1)
		require.NoError(t, err)
		assert.Nil(t, b)
		return nil
	})
	require.NoError(t, err)
}

func TestProposalsIterateInIDOrder(t *testing.T) {
	ldb := newDB(t)
	ctx := context.Background()

	err := repository.Update(ctx, ldb, func(_ context.Context, r repository.Repository) error {
		// ids past 9 must still sort numerically
		for _, id := range []uint64{10, 2, 1} {
			if err := r.PutProposal(&models.Proposal{ID: id, Proposer: "alice"}); err != nil {
				return err
			}
		}
		if err := r.PutReceipt(1, "bob", models.Receipt{HasVoted: true, Votes: 5}); err != nil {
			return err
		}
		return r.SetProposalCount(10)
	})
	require.NoError(t, err)

	err = repository.View(ldb, func(r repository.Repository) error {
		proposals, err := r.Proposals()
		require.NoError(t, err)
		require.Len(t, proposals, 3)
		assert.Equal(t, uint64(1), proposals[0].ID)
		assert.Equal(t, uint64(2), proposals[1].ID)
		assert.Equal(t, uint64(10), proposals[2].ID)

		count, err := r.ProposalCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(10), count)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateRollsBackEveryWrite(t *testing.T) {
	ldb := newDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repository.Update(ctx, ldb, func(ctx context.Context, r repository.Repository) error {
		require.NoError(t, r.SetBalance("alice", 100))
		require.NoError(t, r.SetTotalSupply(100))
		// writes reached through the context join the same transaction
		inner, err := repository.FromContext(ctx)
		require.NoError(t, err)
		require.NoError(t, inner.PutQueuedBatch(&models.TimelockBatch{ProposalID: 1, ETA: 9}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = repository.View(ldb, func(r repository.Repository) error {
		bal, err := r.Balance("alice")
		require.NoError(t, err)
		assert.Zero(t, bal)
		supply, err := r.TotalSupply()
		require.NoError(t, err)
		assert.Zero(t, supply)
		b, err := r.QueuedBatch(1)
		require.NoError(t, err)
		assert.Nil(t, b)
		return nil
	})
	require.NoError(t, err)
}

func TestFromContextWithoutTransaction(t *testing.T) {
	_, err := repository.FromContext(context.Background())
	assert.ErrorIs(t, err, repository.ErrNoTransaction)
}

func TestHoldersAndDelegatees(t *testing.T) {
	ldb := newDB(t)
	ctx := context.Background()

	err := repository.Update(ctx, ldb, func(_ context.Context, r repository.Repository) error {
		require.NoError(t, r.SetBalance("bob", 5))
		require.NoError(t, r.SetBalance("alice", 7))
		require.NoError(t, r.SetBalance("carol", 3))
		// a zero balance removes the holder
		require.NoError(t, r.SetBalance("carol", 0))
		require.NoError(t, r.SetCheckpointCount("alice", 1))
		return r.PutCheckpoint("alice", 0, models.Checkpoint{FromBlock: 0, Votes: 12})
	})
	require.NoError(t, err)

	err = repository.View(ldb, func(r repository.Repository) error {
		holders, err := r.Holders()
		require.NoError(t, err)
		assert.Equal(t, []models.Principal{"alice", "bob"}, holders)

		delegatees, err := r.Delegatees()
		require.NoError(t, err)
		assert.Equal(t, []models.Principal{"alice"}, delegatees)
		return nil
	})
	require.NoError(t, err)
}
