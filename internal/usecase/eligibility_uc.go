// File: internal/usecase/eligibility_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ EligibilityUseCase = (*eligibilityUC)(nil)

type EligibilityUseCase interface {
	// Check evaluates whether a user may advance to targetRank. Ineligibility
	// is returned as structured conditions, never as an error.
	Check(ctx context.Context, userID string, targetRank model.Rank) (*model.Eligibility, error)
}

type eligibilityUC struct {
	users      repository.UserRepository
	tiers      repository.TierConfigRepository
	orders     repository.OrderRepository
	agreements repository.AgreementRepository
}

func NewEligibilityUseCase(users repository.UserRepository, tiers repository.TierConfigRepository, orders repository.OrderRepository, agreements repository.AgreementRepository) *eligibilityUC {
	return &eligibilityUC{users: users, tiers: tiers, orders: orders, agreements: agreements}
}

// ruleFn evaluates one prerequisite for one target rank.
type ruleFn func(ctx context.Context, uc *eligibilityUC, user *model.User, cfg *model.TierConfig) (model.Condition, error)

// upgradeRules is the exhaustive per-rank rule table. Ranks are a closed set;
// a target outside the table has no upgrade path and fails closed.
var upgradeRules = map[model.Rank][]ruleFn{
	model.RankCampus:  {ruleReferredBasicSale},
	model.RankSenior:  {ruleSignedAgreement},
	model.RankPartner: {ruleSignedAgreement, ruleUpgradePayment},
}

func failed(description string) *model.Eligibility {
	return &model.Eligibility{
		CanUpgrade: false,
		Conditions: []model.Condition{{Description: description, IsMet: false}},
	}
}

func (u *eligibilityUC) Check(ctx context.Context, userID string, targetRank model.Rank) (*model.Eligibility, error) {
	rules, ok := upgradeRules[targetRank]
	if !ok {
		return failed(fmt.Sprintf("no upgrade path to rank %d", targetRank)), nil
	}

	cfg, err := u.tiers.FindByRank(ctx, nil, targetRank)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return failed(fmt.Sprintf("tier %d is not open for upgrades", targetRank)), nil
		}
		return nil, err
	}

	user, err := u.users.FindByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return failed("account not found"), nil
		}
		return nil, err
	}

	// A user may only advance to a strictly greater rank.
	if user.Rank >= targetRank {
		return failed(fmt.Sprintf("already at %s or above", targetRank)), nil
	}

	out := &model.Eligibility{CanUpgrade: true, RequiredPayment: cfg.UpgradeCost}
	for _, rule := range rules {
		cond, err := rule(ctx, u, user, cfg)
		if err != nil {
			return nil, err
		}
		out.Conditions = append(out.Conditions, cond)
		if !cond.IsMet {
			out.CanUpgrade = false
		}
	}
	return out, nil
}

// ruleReferredBasicSale requires at least one historically paid basic-category
// order referred by the requesting user.
func ruleReferredBasicSale(ctx context.Context, uc *eligibilityUC, user *model.User, _ *model.TierConfig) (model.Condition, error) {
	n, err := uc.orders.CountPaidReferred(ctx, nil, user.ID, model.CategoryBasic)
	if err != nil {
		return model.Condition{}, err
	}
	return model.Condition{
		Description: "refer at least one paid basic-course order",
		IsMet:       n >= 1,
		ActionRef:   "order:share-referral",
	}, nil
}

// ruleSignedAgreement requires the active signed agreement of the tier's type.
func ruleSignedAgreement(ctx context.Context, uc *eligibilityUC, user *model.User, cfg *model.TierConfig) (model.Condition, error) {
	if cfg.AgreementType == "" {
		return model.Condition{Description: "no agreement required", IsMet: true}, nil
	}
	ok, err := uc.agreements.HasActive(ctx, nil, user.ID, cfg.AgreementType)
	if err != nil {
		return model.Condition{}, err
	}
	return model.Condition{
		Description: fmt.Sprintf("sign the %s agreement", cfg.AgreementType),
		IsMet:       ok,
		ActionRef:   "agreement:sign:" + cfg.AgreementType,
	}, nil
}

// ruleUpgradePayment surfaces the payment prerequisite of a paid tier.
// Payment completion is verified by the order/payment flow, not here, so the
// condition is always unmet when a cost is configured.
func ruleUpgradePayment(_ context.Context, _ *eligibilityUC, _ *model.User, cfg *model.TierConfig) (model.Condition, error) {
	if cfg.UpgradeCost <= 0 {
		return model.Condition{Description: "no upgrade payment required", IsMet: true}, nil
	}
	return model.Condition{
		Description: fmt.Sprintf("complete the upgrade payment of %s", model.FormatPoints(cfg.UpgradeCost)),
		IsMet:       false,
		ActionRef:   model.ActionRefUpgradePayment,
	}, nil
}
