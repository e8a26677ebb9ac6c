// Package state keeps one UserState per chat user between turns.
package state

import (
	"context"

	"github.com/procurebot/relay/internal/relay/model"
)

type Store interface {
	// Load returns the user's state, creating a fresh one when the user is
	// unseen. created reports the latter.
	Load(ctx context.Context, userID string) (st *model.UserState, created bool, err error)

	// Save persists the state under its UserID.
	Save(ctx context.Context, st *model.UserState) error

	// Len returns the number of tracked users.
	Len(ctx context.Context) (int, error)
}
