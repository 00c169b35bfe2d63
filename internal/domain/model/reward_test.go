// File: internal/domain/model/reward_test.go
package model

import "testing"

func testTier() *TierConfig {
	return &TierConfig{
		Rank:                RankCampus,
		MeritRateBasicBP:    3000,
		MeritRateAdvancedBP: 2000,
		CashRateBasicBP:     500,
		CashRateAdvancedBP:  1000,
		UnfreezePerReferral: 5000,
		CanEarnReward:       true,
	}
}

func TestMeritReward(t *testing.T) {
	cases := []struct {
		name     string
		amount   int64
		category Category
		mutate   func(*TierConfig)
		want     int64
	}{
		{name: "30 percent of 1688.00", amount: 168800, category: CategoryBasic, want: 50640},
		{name: "advanced uses its own rate", amount: 168800, category: CategoryAdvanced, want: 33760},
		{name: "rounds half up at the cent", amount: 15, category: CategoryBasic, want: 5}, // 4.5 -> 5
		{name: "zero order amount", amount: 0, category: CategoryBasic, want: 0},
		{name: "upgrade category earns nothing", amount: 168800, category: CategoryUpgrade, want: 0},
		{
			name: "tier barred from earning", amount: 168800, category: CategoryBasic,
			mutate: func(c *TierConfig) { c.CanEarnReward = false }, want: 0,
		},
		{
			name: "zero rate", amount: 168800, category: CategoryBasic,
			mutate: func(c *TierConfig) { c.MeritRateBasicBP = 0 }, want: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testTier()
			if tc.mutate != nil {
				tc.mutate(cfg)
			}
			got := MeritReward(tc.amount, cfg, tc.category)
			if got.Amount != tc.want {
				t.Fatalf("want %d, got %d", tc.want, got.Amount)
			}
		})
	}

	t.Run("nil config earns nothing", func(t *testing.T) {
		if got := MeritReward(168800, nil, CategoryBasic); got.Amount != 0 {
			t.Fatalf("want 0, got %d", got.Amount)
		}
	})
}

func TestCashReward(t *testing.T) {
	t.Run("basic with covering frozen balance unfreezes the fixed amount", func(t *testing.T) {
		got := CashReward(168800, testTier(), 5000, CategoryBasic)
		if !got.IsUnfreeze || got.UnfreezeAmount != 5000 || got.CashAmount != 0 {
			t.Fatalf("want unfreeze of 5000, got %+v", got)
		}
	})

	t.Run("basic with short frozen balance falls back to the rate", func(t *testing.T) {
		got := CashReward(168800, testTier(), 4999, CategoryBasic)
		if got.IsUnfreeze {
			t.Fatalf("must not unfreeze, got %+v", got)
		}
		if got.CashAmount != 8440 { // 1688.00 * 5%
			t.Fatalf("want 8440, got %d", got.CashAmount)
		}
	})

	t.Run("no unfreeze configured goes straight to the rate", func(t *testing.T) {
		cfg := testTier()
		cfg.UnfreezePerReferral = 0
		got := CashReward(168800, cfg, 1_000_000, CategoryBasic)
		if got.IsUnfreeze || got.CashAmount != 8440 {
			t.Fatalf("want direct 8440, got %+v", got)
		}
	})

	t.Run("advanced never unfreezes", func(t *testing.T) {
		got := CashReward(168800, testTier(), 1_000_000, CategoryAdvanced)
		if got.IsUnfreeze {
			t.Fatalf("advanced must credit directly, got %+v", got)
		}
		if got.CashAmount != 16880 { // 1688.00 * 10%
			t.Fatalf("want 16880, got %d", got.CashAmount)
		}
	})

	t.Run("upgrade category earns nothing", func(t *testing.T) {
		got := CashReward(168800, testTier(), 1_000_000, CategoryUpgrade)
		if got.CashAmount != 0 || got.UnfreezeAmount != 0 {
			t.Fatalf("want zero, got %+v", got)
		}
	})

	t.Run("at most one of cash and unfreeze is nonzero", func(t *testing.T) {
		for _, frozen := range []int64{0, 4999, 5000, 100000} {
			got := CashReward(168800, testTier(), frozen, CategoryBasic)
			if got.CashAmount != 0 && got.UnfreezeAmount != 0 {
				t.Fatalf("frozen=%d: both nonzero: %+v", frozen, got)
			}
		}
	})
}

func TestFormatPoints(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{50640, "506.40"},
		{168800, "1688.00"},
		{-1234, "-12.34"},
	}
	for _, tc := range cases {
		if got := FormatPoints(tc.in); got != tc.want {
			t.Errorf("FormatPoints(%d): want %q, got %q", tc.in, tc.want, got)
		}
	}
}
