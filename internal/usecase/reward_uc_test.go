// File: internal/usecase/reward_uc_test.go
package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
)

type rewardUCTestDeps struct {
	users    *memUserRepo
	tiers    *memTierRepo
	ledger   *memLedgerRepo
	quotas   *memQuotaRepo
	upgrades *memUpgradeLogRepo
	tm       *mockTxManager
	notifier *mockNotifier
}

func newRewardUCDeps() *rewardUCTestDeps {
	return &rewardUCTestDeps{
		users:    newMemUserRepo(),
		tiers:    newMemTierRepo(),
		ledger:   newMemLedgerRepo(),
		quotas:   newMemQuotaRepo(),
		upgrades: newMemUpgradeLogRepo(),
		tm:       &mockTxManager{},
		notifier: &mockNotifier{},
	}
}

func (d *rewardUCTestDeps) uc() RewardUseCase {
	return NewRewardUseCase(d.users, d.tiers, d.ledger, d.quotas, d.upgrades, d.tm, d.notifier, newTestLogger())
}

func campusTier() *model.TierConfig {
	return &model.TierConfig{
		Rank:                model.RankCampus,
		Name:                "Campus Ambassador",
		MeritRateBasicBP:    3000,
		MeritRateAdvancedBP: 3000,
		CashRateBasicBP:     500,
		CashRateAdvancedBP:  1000,
		FrozenPointsGrant:   20000,
		GiftQuotaBasic:      3,
		UnfreezePerReferral: 5000,
		CanEarnReward:       true,
		UpdatedAt:           time.Now(),
	}
}

func TestRewardUC_ProcessReferralReward(t *testing.T) {
	ctx := context.Background()

	t.Run("credits merit and unfreezes cash when frozen covers it", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.tiers.Save(ctx, nil, campusTier())
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankCampus, FrozenPoints: 20000})

		out, err := deps.uc().ProcessReferralReward(ctx, "ORD-1", "amb-1", 168800, model.CategoryBasic)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !out.Rewarded || out.Duplicate {
			t.Fatalf("expected rewarded outcome, got %+v", out)
		}
		if out.Merit != 50640 {
			t.Errorf("merit: want 50640, got %d", out.Merit)
		}
		if out.Unfrozen != 5000 || out.Cash != 0 {
			t.Errorf("cash effect: want unfreeze 5000, got unfrozen=%d cash=%d", out.Unfrozen, out.Cash)
		}

		u, _ := deps.users.FindByID(ctx, nil, "amb-1")
		if u.MeritPoints != 50640 {
			t.Errorf("merit balance: want 50640, got %d", u.MeritPoints)
		}
		if u.FrozenPoints != 15000 || u.AvailablePoints != 5000 {
			t.Errorf("balances: frozen=%d available=%d", u.FrozenPoints, u.AvailablePoints)
		}

		entries, _ := deps.ledger.ListByUser(ctx, nil, "amb-1", 0, 10)
		if len(entries) != 2 {
			t.Fatalf("want 2 ledger entries, got %d", len(entries))
		}
		if deps.notifier.count() != 1 {
			t.Errorf("want one notification, got %d", deps.notifier.count())
		}
	})

	t.Run("falls back to basic cash rate when frozen balance is short", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.tiers.Save(ctx, nil, campusTier())
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankCampus, FrozenPoints: 4999})

		out, err := deps.uc().ProcessReferralReward(ctx, "ORD-1", "amb-1", 100000, model.CategoryBasic)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if out.Unfrozen != 0 {
			t.Errorf("expected no unfreeze, got %d", out.Unfrozen)
		}
		if out.Cash != 5000 { // 1000.00 * 5%
			t.Errorf("cash: want 5000, got %d", out.Cash)
		}
	})

	t.Run("advanced category always credits directly", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.tiers.Save(ctx, nil, campusTier())
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankCampus, FrozenPoints: 100000})

		out, err := deps.uc().ProcessReferralReward(ctx, "ORD-1", "amb-1", 100000, model.CategoryAdvanced)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if out.Unfrozen != 0 || out.Cash != 10000 {
			t.Errorf("want direct 10000 cash, got unfrozen=%d cash=%d", out.Unfrozen, out.Cash)
		}
	})

	t.Run("second invocation for the same order is a duplicate no-op", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.tiers.Save(ctx, nil, campusTier())
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankCampus})
		uc := deps.uc()

		if _, err := uc.ProcessReferralReward(ctx, "ORD-1", "amb-1", 100000, model.CategoryBasic); err != nil {
			t.Fatalf("first invocation: %v", err)
		}
		out, err := uc.ProcessReferralReward(ctx, "ORD-1", "amb-1", 100000, model.CategoryBasic)
		if err != nil {
			t.Fatalf("second invocation: %v", err)
		}
		if !out.Duplicate || out.Rewarded {
			t.Fatalf("expected duplicate no-op, got %+v", out)
		}

		u, _ := deps.users.FindByID(ctx, nil, "amb-1")
		if u.MeritPoints != 30000 {
			t.Errorf("merit must be credited once: got %d", u.MeritPoints)
		}
	})

	t.Run("unknown ambassador is a skip, not an error", func(t *testing.T) {
		deps := newRewardUCDeps()
		out, err := deps.uc().ProcessReferralReward(ctx, "ORD-1", "ghost", 100000, model.CategoryBasic)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if out.Rewarded {
			t.Fatalf("expected skip, got %+v", out)
		}
	})

	t.Run("tier that cannot earn rewards is a skip", func(t *testing.T) {
		deps := newRewardUCDeps()
		cfg := campusTier()
		cfg.CanEarnReward = false
		deps.tiers.Save(ctx, nil, cfg)
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankCampus})

		out, err := deps.uc().ProcessReferralReward(ctx, "ORD-1", "amb-1", 100000, model.CategoryBasic)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if out.Rewarded {
			t.Fatalf("expected skip, got %+v", out)
		}
	})

	t.Run("ledger failure rolls the whole reward back", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.tiers.Save(ctx, nil, campusTier())
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankCampus})
		deps.ledger.insertErr = errors.New("disk full")

		if _, err := deps.uc().ProcessReferralReward(ctx, "ORD-1", "amb-1", 100000, model.CategoryBasic); err == nil {
			t.Fatal("expected an error, got nil")
		}
		// The mock tx manager cannot roll back the balance mutation, but the
		// error must propagate so a real transaction would.
		if deps.notifier.count() != 0 {
			t.Error("no notification may fire on a failed transaction")
		}
	})
}

func TestRewardUC_ProcessAmbassadorUpgrade(t *testing.T) {
	ctx := context.Background()

	seniorCfg := &model.TierConfig{
		Rank:              model.RankSenior,
		Name:              "Senior Ambassador",
		FrozenPointsGrant: 50000,
		GiftQuotaBasic:    5,
		GiftQuotaAdvanced: 2,
		CanEarnReward:     true,
	}

	t.Run("sets rank and applies one-time grants", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.tiers.Save(ctx, nil, seniorCfg)
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankCampus})

		out, err := deps.uc().ProcessAmbassadorUpgrade(ctx, "amb-1", model.RankSenior, model.UpgradeAgreement, "")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if out.Rank != model.RankSenior || out.Name != "Senior Ambassador" {
			t.Errorf("outcome mismatch: %+v", out)
		}
		if out.Granted.FrozenPoints != 50000 || out.Granted.QuotaBasic != 5 || out.Granted.QuotaAdvanced != 2 {
			t.Errorf("grants mismatch: %+v", out.Granted)
		}

		u, _ := deps.users.FindByID(ctx, nil, "amb-1")
		if u.Rank != model.RankSenior {
			t.Errorf("rank: want senior, got %v", u.Rank)
		}
		if u.FrozenPoints != 50000 {
			t.Errorf("frozen grant: want 50000, got %d", u.FrozenPoints)
		}

		grants, _ := deps.quotas.ListActiveByUser(ctx, nil, "amb-1")
		if len(grants) != 2 {
			t.Errorf("want 2 quota grants, got %d", len(grants))
		}
		logs, _ := deps.upgrades.ListByUser(ctx, nil, "amb-1")
		if len(logs) != 1 || logs[0].FromRank != model.RankCampus || logs[0].ToRank != model.RankSenior {
			t.Errorf("upgrade log mismatch: %+v", logs)
		}
	})

	t.Run("rejects a non-ascending target", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.tiers.Save(ctx, nil, seniorCfg)
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankSenior})

		_, err := deps.uc().ProcessAmbassadorUpgrade(ctx, "amb-1", model.RankSenior, model.UpgradeAgreement, "")
		if !errors.Is(err, domain.ErrRankNotHigher) {
			t.Fatalf("want ErrRankNotHigher, got %v", err)
		}
	})

	t.Run("missing tier config is fatal for an upgrade", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankCampus})

		_, err := deps.uc().ProcessAmbassadorUpgrade(ctx, "amb-1", model.RankSenior, model.UpgradeAgreement, "")
		if !errors.Is(err, domain.ErrTierNotConfigured) {
			t.Fatalf("want ErrTierNotConfigured, got %v", err)
		}
	})

	t.Run("concurrent free upgrades grant at most once", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.tiers.Save(ctx, nil, seniorCfg)
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankCampus})
		uc := deps.uc()

		// Agreement upgrades carry no order number, so no reward marker
		// dedupes them; the conditional rank update must decide the race.
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = uc.ProcessAmbassadorUpgrade(ctx, "amb-1", model.RankSenior, model.UpgradeAgreement, "")
			}(i)
		}
		wg.Wait()

		var won, lost int
		for _, err := range errs {
			switch {
			case err == nil:
				won++
			case errors.Is(err, domain.ErrRankNotHigher):
				lost++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if won != 1 || lost != 1 {
			t.Fatalf("want exactly one winner and one loser, got %d/%d", won, lost)
		}

		u, _ := deps.users.FindByID(ctx, nil, "amb-1")
		if u.FrozenPoints != 50000 {
			t.Errorf("frozen grant applied %d, want a single 50000 grant", u.FrozenPoints)
		}
		grants, _ := deps.quotas.ListActiveByUser(ctx, nil, "amb-1")
		if len(grants) != 2 {
			t.Errorf("want 2 quota grants, got %d", len(grants))
		}
		logs, _ := deps.upgrades.ListByUser(ctx, nil, "amb-1")
		if len(logs) != 1 {
			t.Errorf("want 1 upgrade log, got %d", len(logs))
		}
	})

	t.Run("quota grant failure aborts without an upgrade log", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.tiers.Save(ctx, nil, seniorCfg)
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankCampus})
		deps.quotas.insertErr = errors.New("constraint violation")

		_, err := deps.uc().ProcessAmbassadorUpgrade(ctx, "amb-1", model.RankSenior, model.UpgradeAgreement, "")
		if err == nil {
			t.Fatal("expected the quota failure to propagate")
		}
		// The log is the last write in the transaction; its absence shows
		// the abort happened before commit.
		logs, _ := deps.upgrades.ListByUser(ctx, nil, "amb-1")
		if len(logs) != 0 {
			t.Errorf("upgrade log written despite aborted transaction: %+v", logs)
		}
	})

	t.Run("replayed paid upgrade is rejected by the order marker", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.tiers.Save(ctx, nil, seniorCfg)
		deps.users.Save(ctx, nil, &model.User{ID: "amb-1", Rank: model.RankCampus})
		uc := deps.uc()

		if _, err := uc.ProcessAmbassadorUpgrade(ctx, "amb-1", model.RankSenior, model.UpgradePaid, "ORD-UP"); err != nil {
			t.Fatalf("first upgrade: %v", err)
		}
		// Simulate a replay racing a stale rank read.
		stale, _ := deps.users.FindByID(ctx, nil, "amb-1")
		stale.Rank = model.RankCampus
		deps.users.Save(ctx, nil, stale)
		_, err := uc.ProcessAmbassadorUpgrade(ctx, "amb-1", model.RankSenior, model.UpgradePaid, "ORD-UP")
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("want ErrAlreadyExists, got %v", err)
		}
	})
}

func TestRewardUC_AdjustPoints(t *testing.T) {
	ctx := context.Background()

	t.Run("credit and debit write matching ledger entries", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.users.Save(ctx, nil, &model.User{ID: "u1", AvailablePoints: 1000})
		uc := deps.uc()

		entry, err := uc.AdjustPoints(ctx, "u1", model.CurrencyCash, 500, "promo correction")
		if err != nil {
			t.Fatalf("credit: %v", err)
		}
		if entry.Direction != model.DirectionCredit || entry.Amount != 500 || entry.BalanceAfter != 1500 {
			t.Errorf("credit entry mismatch: %+v", entry)
		}

		entry, err = uc.AdjustPoints(ctx, "u1", model.CurrencyCash, -300, "clawback")
		if err != nil {
			t.Fatalf("debit: %v", err)
		}
		if entry.Direction != model.DirectionDebit || entry.Amount != 300 || entry.BalanceAfter != 1200 {
			t.Errorf("debit entry mismatch: %+v", entry)
		}
	})

	t.Run("debit past zero fails", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.users.Save(ctx, nil, &model.User{ID: "u1", AvailablePoints: 100})

		_, err := deps.uc().AdjustPoints(ctx, "u1", model.CurrencyCash, -500, "oops")
		if !errors.Is(err, domain.ErrInsufficientBalance) {
			t.Fatalf("want ErrInsufficientBalance, got %v", err)
		}
	})

	t.Run("zero delta or empty reason is invalid", func(t *testing.T) {
		deps := newRewardUCDeps()
		deps.users.Save(ctx, nil, &model.User{ID: "u1"})
		uc := deps.uc()

		if _, err := uc.AdjustPoints(ctx, "u1", model.CurrencyCash, 0, "r"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("zero delta: want ErrInvalidArgument, got %v", err)
		}
		if _, err := uc.AdjustPoints(ctx, "u1", model.CurrencyCash, 10, ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("empty reason: want ErrInvalidArgument, got %v", err)
		}
	})
}
