package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/repository"
)

var _ repository.PointsLedgerRepository = (*ledgerRepo)(nil)

type ledgerRepo struct{ pool *pgxpool.Pool }

func NewLedgerRepo(pool *pgxpool.Pool) *ledgerRepo {
	return &ledgerRepo{pool: pool}
}

const entryColumns = `id, user_id, direction, currency, amount, balance_after, source, order_no, reason, is_unfreeze, created_at`

func (r *ledgerRepo) Insert(ctx context.Context, tx repository.Tx, e *model.PointsEntry) error {
	const q = `
INSERT INTO points_ledger (` + entryColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.Direction, e.Currency, e.Amount, e.BalanceAfter, e.Source, e.OrderNo, e.Reason, e.IsUnfreeze, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *ledgerRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.PointsEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + entryColumns + ` FROM points_ledger WHERE user_id=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, offset, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PointsEntry
	for rows.Next() {
		e := new(model.PointsEntry)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Direction, &e.Currency, &e.Amount, &e.BalanceAfter, &e.Source, &e.OrderNo, &e.Reason, &e.IsUnfreeze, &e.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, nil
}

// InsertRewardMarker claims the (order_no, kind) slot; the unique constraint
// turns a duplicate reward invocation into domain.ErrAlreadyExists.
func (r *ledgerRepo) InsertRewardMarker(ctx context.Context, tx repository.Tx, orderNo string, kind model.RewardKind) error {
	const q = `INSERT INTO reward_markers (order_no, kind, created_at) VALUES ($1,$2,NOW()) ON CONFLICT (order_no, kind) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, orderNo, kind)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}
