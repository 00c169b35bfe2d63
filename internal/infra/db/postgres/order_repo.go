package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `order_no, buyer_id, ambassador_id, category, amount, status, target_rank, prepay_id, created_at, expires_at, paid_at`

func (r *orderRepo) Insert(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	_, err := execSQL(ctx, r.pool, tx, q, o.OrderNo, o.BuyerID, o.AmbassadorID, o.Category, o.Amount, o.Status, o.TargetRank, o.PrepayID, o.CreatedAt, o.ExpiresAt, o.PaidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *orderRepo) FindByNo(ctx context.Context, tx repository.Tx, orderNo string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE order_no=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, orderNo)
	if err != nil {
		return nil, err
	}

	o := &model.Order{}
	if err := row.Scan(&o.OrderNo, &o.BuyerID, &o.AmbassadorID, &o.Category, &o.Amount, &o.Status, &o.TargetRank, &o.PrepayID, &o.CreatedAt, &o.ExpiresAt, &o.PaidAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}

// UpdateStatusIfPending atomically transitions a still-pending order. The
// pending->paid and pending->cancelled races resolve here: whichever commits
// first wins, the loser sees zero rows affected.
func (r *orderRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, orderNo string, next model.OrderStatus, paidAt *time.Time) (bool, error) {
	const q = `
UPDATE orders
   SET status = $2,
       paid_at = COALESCE($3, paid_at),
       updated_at = NOW()
 WHERE order_no = $1
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderNo, next, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) MarkRefunded(ctx context.Context, tx repository.Tx, orderNo string) (bool, error) {
	const q = `UPDATE orders SET status='refunded', updated_at=NOW() WHERE order_no=$1 AND status='paid';`
	cmd, err := execSQL(ctx, r.pool, tx, q, orderNo)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) AttachPrepayID(ctx context.Context, tx repository.Tx, orderNo, prepayID string) error {
	const q = `UPDATE orders SET prepay_id=$2, updated_at=NOW() WHERE order_no=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, orderNo, prepayID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *orderRepo) CountPaidReferred(ctx context.Context, tx repository.Tx, ambassadorID string, category model.Category) (int, error) {
	const q = `SELECT COUNT(*) FROM orders WHERE ambassador_id=$1 AND category=$2 AND status IN ('paid','refunded');`
	row, err := pickRow(ctx, r.pool, tx, q, ambassadorID, category)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *orderRepo) CancelExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}
	const q = `
UPDATE orders
   SET status = 'cancelled', updated_at = NOW()
 WHERE order_no IN (
       SELECT order_no FROM orders
        WHERE status = 'pending' AND expires_at < $1
        ORDER BY expires_at ASC
        LIMIT $2);`

	cmd, err := r.pool.Exec(ctx, q, now, limit)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}
