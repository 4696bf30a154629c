package repository

import (
	"context"
	"errors"

	"washika-dao/db"
)

type ctxKey string

const repositoryContextKey ctxKey = "washika.repository"

// ErrNoTransaction is returned by collaborators called outside of Update
var ErrNoTransaction = errors.New("no transaction in context")

// WithContext attaches the transaction-bound repository to ctx so that
// synchronous collaborators (the timelock) write into the same transaction.
func WithContext(ctx context.Context, r Repository) context.Context {
	return context.WithValue(ctx, repositoryContextKey, r)
}

func FromContext(ctx context.Context) (Repository, error) {
	r, ok := ctx.Value(repositoryContextKey).(Repository)
	if !ok {
		return nil, ErrNoTransaction
	}
	return r, nil
}

// Update applies fn atomically: every write made through the repository, and
// through any collaborator reached via the returned context, commits together
// or not at all.
func Update(ctx context.Context, database *db.LevelDB, fn func(context.Context, Repository) error) error {
	return database.Update(func(kv db.KV) error {
		r := NewStateRepository(kv)
		return fn(WithContext(ctx, r), r)
	})
}

// View runs fn against committed state only
func View(database *db.LevelDB, fn func(Repository) error) error {
	return database.View(func(kv db.KV) error {
		return fn(NewStateRepository(kv))
	})
}
