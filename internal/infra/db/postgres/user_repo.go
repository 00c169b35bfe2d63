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

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, name, phone, rank, rank_started_at, merit_points, frozen_points, available_points, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Phone, &u.Rank, &u.RankStartedAt, &u.MeritPoints, &u.FrozenPoints, &u.AvailablePoints, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, name, phone, rank, rank_started_at, merit_points, frozen_points, available_points, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  name=$2, phone=$3, updated_at=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Name, u.Phone, u.Rank, u.RankStartedAt, u.MeritPoints, u.FrozenPoints, u.AvailablePoints, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// Balance mutations are relative (x = x + delta), so interleaved reward
// grants for the same user never lose updates. Decrements carry a SQL guard
// keeping the balance non-negative; a guarded update matching no row means
// the balance was insufficient.

func (r *userRepo) addBalance(ctx context.Context, tx repository.Tx, id, column string, delta int64) (int64, error) {
	q := `UPDATE users SET ` + column + ` = ` + column + ` + $2, updated_at=NOW() WHERE id=$1 AND ` + column + ` + $2 >= 0 RETURNING ` + column + `;`
	row, err := pickRow(ctx, r.pool, tx, q, id, delta)
	if err != nil {
		return 0, err
	}
	var balance int64
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientBalance
		}
		return 0, domain.ErrReadDatabaseRow
	}
	return balance, nil
}

func (r *userRepo) AddMeritPoints(ctx context.Context, tx repository.Tx, id string, delta int64) (int64, error) {
	return r.addBalance(ctx, tx, id, "merit_points", delta)
}

func (r *userRepo) AddFrozenPoints(ctx context.Context, tx repository.Tx, id string, delta int64) (int64, error) {
	return r.addBalance(ctx, tx, id, "frozen_points", delta)
}

func (r *userRepo) AddAvailablePoints(ctx context.Context, tx repository.Tx, id string, delta int64) (int64, error) {
	return r.addBalance(ctx, tx, id, "available_points", delta)
}

func (r *userRepo) MoveFrozenToAvailable(ctx context.Context, tx repository.Tx, id string, amount int64) (int64, int64, error) {
	const q = `
UPDATE users
   SET frozen_points = frozen_points - $2,
       available_points = available_points + $2,
       updated_at = NOW()
 WHERE id = $1
   AND frozen_points >= $2
RETURNING frozen_points, available_points;`

	row, err := pickRow(ctx, r.pool, tx, q, id, amount)
	if err != nil {
		return 0, 0, err
	}
	var frozen, available int64
	if err := row.Scan(&frozen, &available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, domain.ErrInsufficientFrozen
		}
		return 0, 0, domain.ErrReadDatabaseRow
	}
	return frozen, available, nil
}

func (r *userRepo) SetRank(ctx context.Context, tx repository.Tx, id string, rank model.Rank, startedAt time.Time) error {
	// The rank < $2 guard makes the advance monotonic: a concurrent upgrade
	// that already raised the rank loses here, not at the caller's stale read.
	const q = `UPDATE users SET rank=$2, rank_started_at=$3, updated_at=NOW() WHERE id=$1 AND rank < $2;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, rank, startedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRankNotHigher
	}
	return nil
}
