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

var _ repository.TierConfigRepository = (*tierConfigRepo)(nil)

type tierConfigRepo struct{ pool *pgxpool.Pool }

func NewTierConfigRepo(pool *pgxpool.Pool) *tierConfigRepo {
	return &tierConfigRepo{pool: pool}
}

const tierColumns = `rank, name, merit_rate_basic_bp, merit_rate_advanced_bp, cash_rate_basic_bp, cash_rate_advanced_bp, frozen_points_grant, gift_quota_basic, gift_quota_advanced, unfreeze_per_referral, upgrade_cost, agreement_type, can_earn_reward, updated_at`

func (r *tierConfigRepo) FindByRank(ctx context.Context, tx repository.Tx, rank model.Rank) (*model.TierConfig, error) {
	q := `SELECT ` + tierColumns + ` FROM tier_configs WHERE rank=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, rank)
	if err != nil {
		return nil, err
	}
	cfg := &model.TierConfig{}
	if err := row.Scan(&cfg.Rank, &cfg.Name, &cfg.MeritRateBasicBP, &cfg.MeritRateAdvancedBP, &cfg.CashRateBasicBP, &cfg.CashRateAdvancedBP, &cfg.FrozenPointsGrant, &cfg.GiftQuotaBasic, &cfg.GiftQuotaAdvanced, &cfg.UnfreezePerReferral, &cfg.UpgradeCost, &cfg.AgreementType, &cfg.CanEarnReward, &cfg.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return cfg, nil
}

func (r *tierConfigRepo) Save(ctx context.Context, tx repository.Tx, cfg *model.TierConfig) error {
	const q = `
INSERT INTO tier_configs (` + tierColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
ON CONFLICT (rank) DO UPDATE SET
  name=$2, merit_rate_basic_bp=$3, merit_rate_advanced_bp=$4, cash_rate_basic_bp=$5, cash_rate_advanced_bp=$6,
  frozen_points_grant=$7, gift_quota_basic=$8, gift_quota_advanced=$9, unfreeze_per_referral=$10,
  upgrade_cost=$11, agreement_type=$12, can_earn_reward=$13, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q, cfg.Rank, cfg.Name, cfg.MeritRateBasicBP, cfg.MeritRateAdvancedBP, cfg.CashRateBasicBP, cfg.CashRateAdvancedBP, cfg.FrozenPointsGrant, cfg.GiftQuotaBasic, cfg.GiftQuotaAdvanced, cfg.UnfreezePerReferral, cfg.UpgradeCost, cfg.AgreementType, cfg.CanEarnReward)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
