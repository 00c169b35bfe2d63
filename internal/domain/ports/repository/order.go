package repository

import (
	"context"
	"time"

	"course-ambassador-platform/internal/domain/model"
)

// OrderRepository owns the order lifecycle rows. Status transitions are
// conditional updates: UpdateStatusIfPending only wins while the row is still
// pending, so pending->paid and pending->cancelled can race and at most one
// commits; the loser observes false and must take no further action.
type OrderRepository interface {
	Insert(ctx context.Context, tx Tx, o *model.Order) error
	// FindByNo locks the row (FOR UPDATE) when called inside a transaction.
	FindByNo(ctx context.Context, tx Tx, orderNo string) (*model.Order, error)

	UpdateStatusIfPending(ctx context.Context, tx Tx, orderNo string, next model.OrderStatus, paidAt *time.Time) (bool, error)
	// MarkRefunded transitions paid->refunded only.
	MarkRefunded(ctx context.Context, tx Tx, orderNo string) (bool, error)

	AttachPrepayID(ctx context.Context, tx Tx, orderNo, prepayID string) error

	// CountPaidReferred counts historically paid orders of a category where
	// the given user is the referring ambassador.
	CountPaidReferred(ctx context.Context, tx Tx, ambassadorID string, category model.Category) (int, error)

	// CancelExpired bulk-cancels pending orders past their deadline with the
	// same conditional statement the lazy check uses.
	CancelExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}
