package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/repository"
)

var _ repository.UpgradeLogRepository = (*upgradeLogRepo)(nil)

type upgradeLogRepo struct{ pool *pgxpool.Pool }

func NewUpgradeLogRepo(pool *pgxpool.Pool) *upgradeLogRepo {
	return &upgradeLogRepo{pool: pool}
}

func (r *upgradeLogRepo) Insert(ctx context.Context, tx repository.Tx, l *model.UpgradeLog) error {
	granted, err := json.Marshal(l.Granted)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO upgrade_logs (id, user_id, from_rank, to_rank, type, order_no, granted, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	_, err = execSQL(ctx, r.pool, tx, q, l.ID, l.UserID, l.FromRank, l.ToRank, l.Type, l.OrderNo, granted, l.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *upgradeLogRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.UpgradeLog, error) {
	const q = `SELECT id, user_id, from_rank, to_rank, type, order_no, granted, created_at FROM upgrade_logs WHERE user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.UpgradeLog
	for rows.Next() {
		l := new(model.UpgradeLog)
		var granted []byte
		if err := rows.Scan(&l.ID, &l.UserID, &l.FromRank, &l.ToRank, &l.Type, &l.OrderNo, &granted, &l.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		if err := json.Unmarshal(granted, &l.Granted); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, l)
	}
	return out, nil
}
