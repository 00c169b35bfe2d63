package repository

import (
	"context"

	"course-ambassador-platform/internal/domain/model"
)

// TierConfigRepository reads per-rank reward parameters. Absence of a rank's
// config is a normal outcome (domain.ErrNotFound) that callers treat as
// "ineligible", never as a failure.
type TierConfigRepository interface {
	FindByRank(ctx context.Context, tx Tx, rank model.Rank) (*model.TierConfig, error)
	Save(ctx context.Context, tx Tx, cfg *model.TierConfig) error
}
