package repository

import (
	"context"

	"course-ambassador-platform/internal/domain/model"
)

// PointsLedgerRepository appends immutable point-movement rows and owns the
// reward markers that make reward distribution idempotent per (order, kind).
type PointsLedgerRepository interface {
	Insert(ctx context.Context, tx Tx, e *model.PointsEntry) error
	ListByUser(ctx context.Context, tx Tx, userID string, offset, limit int) ([]*model.PointsEntry, error)

	// InsertRewardMarker claims the (orderNo, kind) slot. A duplicate claim
	// returns domain.ErrAlreadyExists, turning a replayed trigger into a
	// detected no-op instead of a double credit.
	InsertRewardMarker(ctx context.Context, tx Tx, orderNo string, kind model.RewardKind) error
}

type UpgradeLogRepository interface {
	Insert(ctx context.Context, tx Tx, l *model.UpgradeLog) error
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.UpgradeLog, error)
}

type QuotaGrantRepository interface {
	Insert(ctx context.Context, tx Tx, g *model.QuotaGrant) error
	ListActiveByUser(ctx context.Context, tx Tx, userID string) ([]*model.QuotaGrant, error)
	// Consume decrements remaining quantity, guarded in SQL so it never
	// goes negative or past expiry (domain.ErrInvalidArgument otherwise).
	Consume(ctx context.Context, tx Tx, id string, qty int) error
	// ListExpiring returns active grants expiring within the window, for
	// reminder notifications.
	ListExpiring(ctx context.Context, tx Tx, withinDays int) ([]*model.QuotaGrant, error)
}

type EnrollmentRepository interface {
	Insert(ctx context.Context, tx Tx, e *model.Enrollment) error
}

// AgreementRepository is the interface boundary to the (out-of-core)
// agreement-signing collaborator.
type AgreementRepository interface {
	HasActive(ctx context.Context, tx Tx, userID, agreementType string) (bool, error)
}
