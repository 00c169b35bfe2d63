package model

import "fmt"

// Reward calculators are pure: parameterized entirely by TierConfig, no
// hard-coded rates. Amounts are integer minor units, rates basis points;
// roundRate implements currency-style round-half-up at the cent.

func roundRate(amount, rateBP int64) int64 {
	return (amount*rateBP + 5_000) / 10_000
}

// FormatPoints renders minor units as a two-decimal display string.
func FormatPoints(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

type MeritResult struct {
	Amount int64
	RateBP int64
	Label  string
}

// MeritReward computes the merit-points credit for a referred order. Zero when
// the referring user's tier config is absent or the tier cannot earn rewards.
func MeritReward(orderAmount int64, cfg *TierConfig, category Category) MeritResult {
	if cfg == nil || !cfg.CanEarnReward {
		return MeritResult{}
	}
	rate := cfg.MeritRateBP(category)
	if rate <= 0 || orderAmount <= 0 {
		return MeritResult{}
	}
	return MeritResult{
		Amount: roundRate(orderAmount, rate),
		RateBP: rate,
		Label:  fmt.Sprintf("%s referral merit at %d.%02d%%", category, rate/100, rate%100),
	}
}

type CashResult struct {
	CashAmount     int64
	UnfreezeAmount int64
	IsUnfreeze     bool
	Label          string
}

// CashReward computes the cash-points effect of a referred order. For the
// advanced category the credit is always direct. For basic, unfreezing takes
// priority: a fixed amount moves frozen->available when the frozen balance
// covers it, and only otherwise does the configured basic rate apply. At most
// one of CashAmount/UnfreezeAmount is nonzero.
func CashReward(orderAmount int64, cfg *TierConfig, frozenBalance int64, category Category) CashResult {
	if cfg == nil || !cfg.CanEarnReward {
		return CashResult{}
	}
	if category == CategoryAdvanced {
		rate := cfg.CashRateAdvancedBP
		if rate <= 0 || orderAmount <= 0 {
			return CashResult{}
		}
		return CashResult{
			CashAmount: roundRate(orderAmount, rate),
			Label:      fmt.Sprintf("advanced referral cash at %d.%02d%%", rate/100, rate%100),
		}
	}
	if category != CategoryBasic {
		return CashResult{}
	}
	if cfg.UnfreezePerReferral > 0 && frozenBalance >= cfg.UnfreezePerReferral {
		return CashResult{
			UnfreezeAmount: cfg.UnfreezePerReferral,
			IsUnfreeze:     true,
			Label:          fmt.Sprintf("referral unfreeze %s", FormatPoints(cfg.UnfreezePerReferral)),
		}
	}
	rate := cfg.CashRateBasicBP
	if rate <= 0 || orderAmount <= 0 {
		return CashResult{}
	}
	return CashResult{
		CashAmount: roundRate(orderAmount, rate),
		Label:      fmt.Sprintf("basic referral cash at %d.%02d%%", rate/100, rate%100),
	}
}
