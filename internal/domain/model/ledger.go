package model

import "time"

type PointsDirection string

const (
	DirectionCredit PointsDirection = "credit"
	DirectionDebit  PointsDirection = "debit"
)

type PointsCurrency string

const (
	CurrencyMerit PointsCurrency = "merit"
	CurrencyCash  PointsCurrency = "cash"
)

type PointsSource string

const (
	SourceReferral PointsSource = "referral"
	SourceActivity PointsSource = "activity"
	SourceUpgrade  PointsSource = "upgrade"
	SourceManual   PointsSource = "manual"
)

// PointsEntry is an immutable ledger row. Corrections are new offsetting
// entries, never updates.
type PointsEntry struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Direction PointsDirection `json:"direction"`
	Currency  PointsCurrency  `json:"currency"`
	Amount    int64           `json:"amount"`
	// Balance of the affected currency immediately after the operation.
	BalanceAfter int64        `json:"balance_after"`
	Source       PointsSource `json:"source"`
	OrderNo      string       `json:"order_no,omitempty"`
	Reason       string       `json:"reason"`
	IsUnfreeze   bool         `json:"is_unfreeze"`
	CreatedAt    time.Time    `json:"created_at"`
}

// RewardKind distinguishes marker rows enforcing one reward per (order, kind).
type RewardKind string

const (
	RewardKindReferral RewardKind = "referral"
	RewardKindUpgrade  RewardKind = "upgrade"
)

type UpgradeType string

const (
	UpgradePaid      UpgradeType = "paid"
	UpgradeAgreement UpgradeType = "agreement"
)

// GrantSummary is the structured snapshot of everything a tier upgrade granted.
type GrantSummary struct {
	FrozenPoints   int64     `json:"frozen_points"`
	QuotaBasic     int       `json:"quota_basic"`
	QuotaAdvanced  int       `json:"quota_advanced"`
	QuotaExpiresAt time.Time `json:"quota_expires_at"`
}

// UpgradeLog is an immutable record of one successful tier upgrade.
type UpgradeLog struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	FromRank  Rank         `json:"from_rank"`
	ToRank    Rank         `json:"to_rank"`
	Type      UpgradeType  `json:"type"`
	OrderNo   string       `json:"order_no,omitempty"`
	Granted   GrantSummary `json:"granted"`
	CreatedAt time.Time    `json:"created_at"`
}

// QuotaGrant is a time-boxed allotment of redeemable slots in a category.
// Remaining is decremented elsewhere but never below zero or past expiry.
type QuotaGrant struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Rank      Rank      `json:"rank"`
	Category  Category  `json:"category"`
	Total     int       `json:"total"`
	Remaining int       `json:"remaining"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrollment materializes course access for a buyer once an order is paid.
type Enrollment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Category  Category  `json:"category"`
	OrderNo   string    `json:"order_no"`
	CreatedAt time.Time `json:"created_at"`
}
