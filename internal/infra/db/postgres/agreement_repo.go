package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/ports/repository"
)

var _ repository.AgreementRepository = (*agreementRepo)(nil)

// agreementRepo reads the agreement rows written by the (out-of-core)
// signing flow.
type agreementRepo struct{ pool *pgxpool.Pool }

func NewAgreementRepo(pool *pgxpool.Pool) *agreementRepo {
	return &agreementRepo{pool: pool}
}

func (r *agreementRepo) HasActive(ctx context.Context, tx repository.Tx, userID, agreementType string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM agreements WHERE user_id=$1 AND type=$2 AND signed AND active);`
	row, err := pickRow(ctx, r.pool, tx, q, userID, agreementType)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return ok, nil
}
