package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/repository"
)

var _ repository.QuotaGrantRepository = (*quotaRepo)(nil)

type quotaRepo struct{ pool *pgxpool.Pool }

func NewQuotaRepo(pool *pgxpool.Pool) *quotaRepo {
	return &quotaRepo{pool: pool}
}

const quotaColumns = `id, user_id, rank, category, total, remaining, expires_at, active, created_at`

func (r *quotaRepo) Insert(ctx context.Context, tx repository.Tx, g *model.QuotaGrant) error {
	const q = `INSERT INTO quota_grants (` + quotaColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`
	_, err := execSQL(ctx, r.pool, tx, q, g.ID, g.UserID, g.Rank, g.Category, g.Total, g.Remaining, g.ExpiresAt, g.Active, g.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *quotaRepo) scanGrants(rows pgx.Rows) ([]*model.QuotaGrant, error) {
	defer rows.Close()
	var out []*model.QuotaGrant
	for rows.Next() {
		g := new(model.QuotaGrant)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Rank, &g.Category, &g.Total, &g.Remaining, &g.ExpiresAt, &g.Active, &g.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *quotaRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.QuotaGrant, error) {
	const q = `SELECT ` + quotaColumns + ` FROM quota_grants WHERE user_id=$1 AND active AND expires_at > NOW() ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	return r.scanGrants(rows)
}

// Consume is guarded in SQL: remaining never goes negative and never moves
// past expiry or on an inactive grant.
func (r *quotaRepo) Consume(ctx context.Context, tx repository.Tx, id string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidArgument
	}
	const q = `
UPDATE quota_grants
   SET remaining = remaining - $2
 WHERE id = $1
   AND active
   AND expires_at > NOW()
   AND remaining >= $2;`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, qty)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}

func (r *quotaRepo) ListExpiring(ctx context.Context, tx repository.Tx, withinDays int) ([]*model.QuotaGrant, error) {
	const q = `SELECT ` + quotaColumns + ` FROM quota_grants WHERE active AND remaining > 0 AND expires_at > NOW() AND expires_at <= NOW() + ($1 * INTERVAL '1 day') ORDER BY expires_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, withinDays)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	return r.scanGrants(rows)
}
