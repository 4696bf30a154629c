// Package chain tracks the block height every ledger operation runs at.
// The height only moves forward and only when Mine is called.
package chain

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"washika-dao/db"
	"washika-dao/logger"
	"washika-dao/metrics"
	"washika-dao/models"
	"washika-dao/repository"
)

type Clock struct {
	db      *db.LevelDB
	metrics *metrics.Metrics
}

func NewClock(database *db.LevelDB, m *metrics.Metrics) *Clock {
	return &Clock{db: database, metrics: m}
}

// Height returns the current block height
func (c *Clock) Height() (height uint64, err error) {
	err = repository.View(c.db, func(r repository.Repository) error {
		height, err = r.Height()
		return err
	})
	return height, err
}

// Mine advances the chain by blocks and returns the new height
func (c *Clock) Mine(ctx context.Context, blocks uint64) (uint64, error) {
	var height uint64
	err := repository.Update(ctx, c.db, func(_ context.Context, r repository.Repository) error {
		current, err := r.Height()
		if err != nil {
			return err
		}
		if current > math.MaxUint64-blocks {
			return fmt.Errorf("%w: block height overflow", models.ErrInvalidAmount)
		}
		height = current + blocks
		return r.SetHeight(height)
	})
	c.metrics.ObserveOperation("mine", err)
	if err != nil {
		return 0, err
	}
	c.metrics.SetBlockHeight(height)
	logger.Logger.Debug("Mined blocks", zap.Uint64("blocks", blocks), zap.Uint64("height", height))
	return height, nil
}
