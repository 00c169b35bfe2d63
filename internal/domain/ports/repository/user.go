package repository

import (
	"context"
	"time"

	"course-ambassador-platform/internal/domain/model"
)

// UserRepository mutates balances with relative updates only; every Add method
// returns the post-operation balance of the affected column so ledger entries
// can snapshot it. Negative deltas are guarded in SQL and surface
// domain.ErrInsufficientBalance rather than driving a balance below zero.
type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	Save(ctx context.Context, tx Tx, u *model.User) error

	AddMeritPoints(ctx context.Context, tx Tx, id string, delta int64) (int64, error)
	AddFrozenPoints(ctx context.Context, tx Tx, id string, delta int64) (int64, error)
	AddAvailablePoints(ctx context.Context, tx Tx, id string, delta int64) (int64, error)
	// MoveFrozenToAvailable atomically shifts amount frozen->available,
	// failing with domain.ErrInsufficientFrozen if frozen < amount.
	// Returns the post-operation frozen and available balances.
	MoveFrozenToAvailable(ctx context.Context, tx Tx, id string, amount int64) (frozen int64, available int64, err error)

	// SetRank advances the rank monotonically; the update is conditional in
	// SQL, so a call carrying a rank at or below the stored one surfaces
	// domain.ErrRankNotHigher instead of overwriting a concurrent upgrade.
	SetRank(ctx context.Context, tx Tx, id string, rank model.Rank, startedAt time.Time) error
}
