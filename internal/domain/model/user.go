package model

import "time"

// User is the ledger-relevant slice of an account. Balances are integer minor
// units and are only mutated inside ledger transactions with relative SQL
// updates; the struct is a read snapshot, never written back wholesale.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Rank          Rank      `json:"rank"`
	RankStartedAt time.Time `json:"rank_started_at"`
	// Merit points: non-withdrawable, monotonic outside manual reversal.
	MeritPoints int64 `json:"merit_points"`
	// Cash points, split frozen/available. Available is withdrawable.
	FrozenPoints    int64     `json:"frozen_points"`
	AvailablePoints int64     `json:"available_points"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
