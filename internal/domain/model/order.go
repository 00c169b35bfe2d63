package model

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// OrderExpiryWindow is the fixed window after which a still-pending order is
// cancelled.
const OrderExpiryWindow = 30 * time.Minute

// Order is a purchase with an optional referring ambassador. Amount is in
// integer minor units.
type Order struct {
	OrderNo      string      `json:"order_no"`
	BuyerID      string      `json:"buyer_id"`
	AmbassadorID *string     `json:"ambassador_id,omitempty"`
	Category     Category    `json:"category"`
	Amount       int64       `json:"amount"`
	Status       OrderStatus `json:"status"`
	// Target rank for upgrade orders; RankNone otherwise.
	TargetRank Rank       `json:"target_rank,omitempty"`
	PrepayID   string     `json:"prepay_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

// Expired reports whether the order is pending past its expiry deadline.
func (o *Order) Expired(now time.Time) bool {
	return o.Status == OrderPending && now.After(o.ExpiresAt)
}

// Terminal reports whether the order has left the payment flow.
func (o *Order) Terminal() bool {
	return o.Status == OrderPaid || o.Status == OrderCancelled || o.Status == OrderRefunded
}

// GenerateOrderNo builds a human-decodable order number:
// prefix + second-resolution timestamp + 6 random digits.
func GenerateOrderNo(prefix string, now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		// crypto/rand failing means the process is in far worse trouble
		// than a weak suffix; fall back to the clock.
		n = big.NewInt(now.UnixNano() % 1_000_000)
	}
	return fmt.Sprintf("%s%s%06d", prefix, now.Format("20060102150405"), n.Int64())
}
