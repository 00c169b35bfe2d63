// File: internal/usecase/reward_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/adapter"
	"course-ambassador-platform/internal/domain/ports/repository"
	"course-ambassador-platform/internal/infra/metrics"
)

// Compile-time check
var _ RewardUseCase = (*rewardUC)(nil)

// RewardOutcome reports what a referral-reward invocation did. Skipped and
// duplicate invocations are outcomes, not errors.
type RewardOutcome struct {
	Rewarded  bool
	Duplicate bool
	Reason    string
	Merit     int64
	Cash      int64
	Unfrozen  int64
}

// UpgradeOutcome summarizes a successful tier upgrade.
type UpgradeOutcome struct {
	Rank    model.Rank
	Name    string
	Granted model.GrantSummary
}

type RewardUseCase interface {
	// ProcessReferralReward applies the merit/cash effects of a paid
	// referred order to the referring ambassador, atomically.
	ProcessReferralReward(ctx context.Context, orderNo, ambassadorID string, orderAmount int64, category model.Category) (*RewardOutcome, error)

	// ProcessAmbassadorUpgrade advances the user to targetRank and applies
	// the tier's one-time grants, atomically. Missing config is fatal here:
	// the caller already passed eligibility.
	ProcessAmbassadorUpgrade(ctx context.Context, userID string, targetRank model.Rank, upgradeType model.UpgradeType, orderNo string) (*UpgradeOutcome, error)

	// AdjustPoints records a manual admin correction as an ordinary ledger
	// transaction; debits never drive a balance negative.
	AdjustPoints(ctx context.Context, userID string, currency model.PointsCurrency, delta int64, reason string) (*model.PointsEntry, error)
}

type rewardUC struct {
	users    repository.UserRepository
	tiers    repository.TierConfigRepository
	ledger   repository.PointsLedgerRepository
	quotas   repository.QuotaGrantRepository
	upgrades repository.UpgradeLogRepository
	tm       repository.TransactionManager
	notifier adapter.Notifier
	log      *zerolog.Logger
}

func NewRewardUseCase(
	users repository.UserRepository,
	tiers repository.TierConfigRepository,
	ledger repository.PointsLedgerRepository,
	quotas repository.QuotaGrantRepository,
	upgrades repository.UpgradeLogRepository,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *rewardUC {
	l := logger.With().Str("component", "RewardUC").Logger()
	return &rewardUC{
		users: users, tiers: tiers, ledger: ledger, quotas: quotas,
		upgrades: upgrades, tm: tm, notifier: notifier, log: &l,
	}
}

// errDuplicateReward aborts the transaction when the (order, kind) marker is
// already claimed; the caller maps it to a no-op outcome.
var errDuplicateReward = errors.New("reward already granted for this order")

func (u *rewardUC) ProcessReferralReward(ctx context.Context, orderNo, ambassadorID string, orderAmount int64, category model.Category) (*RewardOutcome, error) {
	user, err := u.users.FindByID(ctx, nil, ambassadorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncReward("skipped")
			return &RewardOutcome{Reason: "ambassador not found"}, nil
		}
		return nil, err
	}

	cfg, err := u.tiers.FindByRank(ctx, nil, user.Rank)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncReward("skipped")
			return &RewardOutcome{Reason: "no reward configured for tier"}, nil
		}
		return nil, err
	}
	if !cfg.CanEarnReward {
		metrics.IncReward("skipped")
		return &RewardOutcome{Reason: "tier cannot earn rewards"}, nil
	}

	merit := model.MeritReward(orderAmount, cfg, category)
	var cash model.CashResult

	out := &RewardOutcome{}
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Re-read under lock so the frozen-balance decision and the balance
		// snapshots are consistent with concurrent grants.
		locked, err := u.users.FindByID(ctx, tx, ambassadorID)
		if err != nil {
			return err
		}
		cash = model.CashReward(orderAmount, cfg, locked.FrozenPoints, category)

		if err := u.ledger.InsertRewardMarker(ctx, tx, orderNo, model.RewardKindReferral); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return errDuplicateReward
			}
			return err
		}

		now := time.Now()
		if merit.Amount > 0 {
			balance, err := u.users.AddMeritPoints(ctx, tx, ambassadorID, merit.Amount)
			if err != nil {
				return err
			}
			entry := &model.PointsEntry{
				ID:           uuid.NewString(),
				UserID:       ambassadorID,
				Direction:    model.DirectionCredit,
				Currency:     model.CurrencyMerit,
				Amount:       merit.Amount,
				BalanceAfter: balance,
				Source:       model.SourceReferral,
				OrderNo:      orderNo,
				Reason:       merit.Label,
				CreatedAt:    now,
			}
			if err := u.ledger.Insert(ctx, tx, entry); err != nil {
				return err
			}
			out.Merit = merit.Amount
		}

		switch {
		case cash.IsUnfreeze:
			_, available, err := u.users.MoveFrozenToAvailable(ctx, tx, ambassadorID, cash.UnfreezeAmount)
			if err != nil {
				return err
			}
			entry := &model.PointsEntry{
				ID:           uuid.NewString(),
				UserID:       ambassadorID,
				Direction:    model.DirectionCredit,
				Currency:     model.CurrencyCash,
				Amount:       cash.UnfreezeAmount,
				BalanceAfter: available,
				Source:       model.SourceReferral,
				OrderNo:      orderNo,
				Reason:       cash.Label,
				IsUnfreeze:   true,
				CreatedAt:    now,
			}
			if err := u.ledger.Insert(ctx, tx, entry); err != nil {
				return err
			}
			out.Unfrozen = cash.UnfreezeAmount
		case cash.CashAmount > 0:
			available, err := u.users.AddAvailablePoints(ctx, tx, ambassadorID, cash.CashAmount)
			if err != nil {
				return err
			}
			entry := &model.PointsEntry{
				ID:           uuid.NewString(),
				UserID:       ambassadorID,
				Direction:    model.DirectionCredit,
				Currency:     model.CurrencyCash,
				Amount:       cash.CashAmount,
				BalanceAfter: available,
				Source:       model.SourceReferral,
				OrderNo:      orderNo,
				Reason:       cash.Label,
				CreatedAt:    now,
			}
			if err := u.ledger.Insert(ctx, tx, entry); err != nil {
				return err
			}
			out.Cash = cash.CashAmount
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errDuplicateReward) {
			metrics.IncDuplicateReward()
			metrics.IncReward("duplicate")
			u.log.Warn().Str("order_no", orderNo).Msg("duplicate referral reward invocation")
			return &RewardOutcome{Duplicate: true, Reason: "reward already granted"}, nil
		}
		metrics.IncReward("failed")
		return nil, err
	}

	out.Rewarded = out.Merit > 0 || out.Cash > 0 || out.Unfrozen > 0
	if !out.Rewarded {
		metrics.IncReward("skipped")
		out.Reason = "no reward applicable"
		return out, nil
	}

	metrics.IncReward("granted")
	metrics.AddRewardPoints("merit", "credit", out.Merit)
	metrics.AddRewardPoints("cash", "credit", out.Cash)
	metrics.AddRewardPoints("cash", "unfreeze", out.Unfrozen)

	// Fire-and-forget: delivery failure never unwinds the ledger.
	if err := u.notifier.Notify(ctx, ambassadorID, referralMessage(out)); err != nil {
		u.log.Warn().Err(err).Str("user_id", ambassadorID).Msg("reward notification failed")
	}
	return out, nil
}

func referralMessage(o *RewardOutcome) string {
	switch {
	case o.Unfrozen > 0:
		return fmt.Sprintf("A referral unlocked %s cash points.", model.FormatPoints(o.Unfrozen))
	case o.Cash > 0:
		return fmt.Sprintf("A referral earned you %s cash points.", model.FormatPoints(o.Cash))
	default:
		return fmt.Sprintf("A referral earned you %s merit points.", model.FormatPoints(o.Merit))
	}
}

func (u *rewardUC) ProcessAmbassadorUpgrade(ctx context.Context, userID string, targetRank model.Rank, upgradeType model.UpgradeType, orderNo string) (*UpgradeOutcome, error) {
	user, err := u.users.FindByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	cfg, err := u.tiers.FindByRank(ctx, nil, targetRank)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTierNotConfigured
		}
		return nil, err
	}
	if targetRank <= user.Rank {
		return nil, domain.ErrRankNotHigher
	}

	now := time.Now()
	granted := model.GrantSummary{}
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if orderNo != "" {
			if err := u.ledger.InsertRewardMarker(ctx, tx, orderNo, model.RewardKindUpgrade); err != nil {
				if errors.Is(err, domain.ErrAlreadyExists) {
					return errDuplicateReward
				}
				return err
			}
		}

		if err := u.users.SetRank(ctx, tx, userID, targetRank, now); err != nil {
			return err
		}

		if cfg.FrozenPointsGrant > 0 {
			frozen, err := u.users.AddFrozenPoints(ctx, tx, userID, cfg.FrozenPointsGrant)
			if err != nil {
				return err
			}
			entry := &model.PointsEntry{
				ID:           uuid.NewString(),
				UserID:       userID,
				Direction:    model.DirectionCredit,
				Currency:     model.CurrencyCash,
				Amount:       cfg.FrozenPointsGrant,
				BalanceAfter: frozen,
				Source:       model.SourceUpgrade,
				OrderNo:      orderNo,
				Reason:       fmt.Sprintf("%s frozen points grant", cfg.Name),
				CreatedAt:    now,
			}
			if err := u.ledger.Insert(ctx, tx, entry); err != nil {
				return err
			}
			granted.FrozenPoints = cfg.FrozenPointsGrant
		}

		quotaExpiry := now.AddDate(1, 0, 0)
		for category, qty := range map[model.Category]int{
			model.CategoryBasic:    cfg.GiftQuotaBasic,
			model.CategoryAdvanced: cfg.GiftQuotaAdvanced,
		} {
			if qty <= 0 {
				continue
			}
			grant := &model.QuotaGrant{
				ID:        uuid.NewString(),
				UserID:    userID,
				Rank:      targetRank,
				Category:  category,
				Total:     qty,
				Remaining: qty,
				ExpiresAt: quotaExpiry,
				Active:    true,
				CreatedAt: now,
			}
			if err := u.quotas.Insert(ctx, tx, grant); err != nil {
				return err
			}
		}
		granted.QuotaBasic = cfg.GiftQuotaBasic
		granted.QuotaAdvanced = cfg.GiftQuotaAdvanced
		granted.QuotaExpiresAt = quotaExpiry

		logEntry := &model.UpgradeLog{
			ID:        uuid.NewString(),
			UserID:    userID,
			FromRank:  user.Rank,
			ToRank:    targetRank,
			Type:      upgradeType,
			OrderNo:   orderNo,
			Granted:   granted,
			CreatedAt: now,
		}
		return u.upgrades.Insert(ctx, tx, logEntry)
	})
	if err != nil {
		if errors.Is(err, errDuplicateReward) {
			metrics.IncDuplicateReward()
			u.log.Warn().Str("order_no", orderNo).Msg("duplicate upgrade invocation")
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	metrics.IncUpgrade(fmt.Sprintf("%d", targetRank))
	u.log.Info().Str("user_id", userID).Int("to_rank", int(targetRank)).Str("type", string(upgradeType)).Msg("ambassador upgraded")

	if err := u.notifier.Notify(ctx, userID, fmt.Sprintf("Congratulations, you are now a %s.", cfg.Name)); err != nil {
		u.log.Warn().Err(err).Str("user_id", userID).Msg("upgrade notification failed")
	}
	return &UpgradeOutcome{Rank: targetRank, Name: cfg.Name, Granted: granted}, nil
}

func (u *rewardUC) AdjustPoints(ctx context.Context, userID string, currency model.PointsCurrency, delta int64, reason string) (*model.PointsEntry, error) {
	if delta == 0 || reason == "" {
		return nil, domain.ErrInvalidArgument
	}
	direction := model.DirectionCredit
	if delta < 0 {
		direction = model.DirectionDebit
	}

	var entry *model.PointsEntry
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var (
			balance int64
			err     error
		)
		switch currency {
		case model.CurrencyMerit:
			balance, err = u.users.AddMeritPoints(ctx, tx, userID, delta)
		case model.CurrencyCash:
			balance, err = u.users.AddAvailablePoints(ctx, tx, userID, delta)
		default:
			return domain.ErrInvalidArgument
		}
		if err != nil {
			return err
		}

		amount := delta
		if amount < 0 {
			amount = -amount
		}
		entry = &model.PointsEntry{
			ID:           uuid.NewString(),
			UserID:       userID,
			Direction:    direction,
			Currency:     currency,
			Amount:       amount,
			BalanceAfter: balance,
			Source:       model.SourceManual,
			Reason:       reason,
			CreatedAt:    time.Now(),
		}
		return u.ledger.Insert(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("user_id", userID).Str("currency", string(currency)).Int64("delta", delta).Msg("manual points adjustment")
	return entry, nil
}
