// Package timelock defines the collaborator that delays and then performs the
// actions of successful proposals, plus an in-process implementation.
package timelock

import (
	"context"

	"washika-dao/models"
)

// Timelock is called synchronously from inside a governance transaction. Any
// error aborts the whole governance operation.
type Timelock interface {
	// Delay is the minimum number of blocks between queue and execute
	Delay() uint64
	// GracePeriod is how many blocks after eta a batch stays executable
	GracePeriod() uint64
	Queue(ctx context.Context, batch models.TimelockBatch) (uint64, error)
	Execute(ctx context.Context, batch models.TimelockBatch) error
	Cancel(ctx context.Context, batch models.TimelockBatch) error
}

// ActionHandler performs one action on an in-process target. caller is the
// timelock's own principal.
type ActionHandler func(ctx context.Context, caller models.Principal, action models.Action) error
