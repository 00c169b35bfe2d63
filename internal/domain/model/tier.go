package model

import "time"

// Rank is an ordered ambassador membership level. Zero means no tier.
// The set is closed: anything outside RankNone..RankPartner has no upgrade
// path and is rejected by the eligibility rules.
type Rank int

const (
	RankNone    Rank = 0
	RankCampus  Rank = 1
	RankSenior  Rank = 2
	RankPartner Rank = 3
)

var rankNames = map[Rank]string{
	RankNone:    "None",
	RankCampus:  "Campus Ambassador",
	RankSenior:  "Senior Ambassador",
	RankPartner: "Partner Ambassador",
}

func (r Rank) Valid() bool {
	_, ok := rankNames[r]
	return ok
}

func (r Rank) String() string {
	if n, ok := rankNames[r]; ok {
		return n
	}
	return "Unknown"
}

// Category is a product category. Orders additionally use CategoryUpgrade for
// paid tier upgrades; rewards are only ever computed for basic/advanced.
type Category string

const (
	CategoryBasic    Category = "basic"
	CategoryAdvanced Category = "advanced"
	CategoryUpgrade  Category = "upgrade"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryBasic, CategoryAdvanced, CategoryUpgrade:
		return true
	}
	return false
}

// TierConfig holds the per-rank reward parameters. All monetary values are
// integer minor units; all rates are basis points (3000 = 30%).
type TierConfig struct {
	Rank                Rank   `json:"rank"`
	Name                string `json:"name"`
	MeritRateBasicBP    int64  `json:"merit_rate_basic_bp"`
	MeritRateAdvancedBP int64  `json:"merit_rate_advanced_bp"`
	CashRateBasicBP     int64  `json:"cash_rate_basic_bp"`
	CashRateAdvancedBP  int64  `json:"cash_rate_advanced_bp"`
	// One-time grants awarded on reaching the tier.
	FrozenPointsGrant int64 `json:"frozen_points_grant"`
	GiftQuotaBasic    int   `json:"gift_quota_basic"`
	GiftQuotaAdvanced int   `json:"gift_quota_advanced"`
	// Fixed amount moved frozen->available per qualifying referral.
	UnfreezePerReferral int64 `json:"unfreeze_per_referral"`
	// Nonzero makes the tier a paid upgrade.
	UpgradeCost int64 `json:"upgrade_cost"`
	// Agreement type the tier requires, empty if none.
	AgreementType string    `json:"agreement_type"`
	CanEarnReward bool      `json:"can_earn_reward"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MeritRateBP returns the merit reward rate for a category.
func (c *TierConfig) MeritRateBP(category Category) int64 {
	switch category {
	case CategoryBasic:
		return c.MeritRateBasicBP
	case CategoryAdvanced:
		return c.MeritRateAdvancedBP
	}
	return 0
}

// CashRateBP returns the cash reward rate for a category.
func (c *TierConfig) CashRateBP(category Category) int64 {
	switch category {
	case CategoryBasic:
		return c.CashRateBasicBP
	case CategoryAdvanced:
		return c.CashRateAdvancedBP
	}
	return 0
}
