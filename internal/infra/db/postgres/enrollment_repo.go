package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/repository"
)

var _ repository.EnrollmentRepository = (*enrollmentRepo)(nil)

type enrollmentRepo struct{ pool *pgxpool.Pool }

func NewEnrollmentRepo(pool *pgxpool.Pool) *enrollmentRepo {
	return &enrollmentRepo{pool: pool}
}

func (r *enrollmentRepo) Insert(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	// A buyer re-purchasing a category they already hold is a no-op.
	const q = `
INSERT INTO enrollments (id, user_id, category, order_no, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id, category) DO NOTHING;`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.Category, e.OrderNo, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
