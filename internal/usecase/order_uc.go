// File: internal/usecase/order_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/repository"
	"course-ambassador-platform/internal/infra/metrics"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

// CreateOrderParams carries the buyer's intent. AmbassadorID is the optional
// referring ambassador; TargetRank is set only for upgrade orders.
type CreateOrderParams struct {
	BuyerID      string
	AmbassadorID *string
	Category     model.Category
	Amount       int64
	TargetRank   model.Rank
}

type OrderUseCase interface {
	// Create records a pending order with a fixed expiry deadline.
	Create(ctx context.Context, p CreateOrderParams) (*model.Order, error)

	// Get returns the order after a lazy expiry check, so readers never see
	// a stale "pending" on an order past its deadline.
	Get(ctx context.Context, orderNo string) (*model.Order, error)

	// CheckExpiry cancels the order if it is pending and past its deadline.
	// Returns the order's current status either way.
	CheckExpiry(ctx context.Context, orderNo string) (model.OrderStatus, error)

	// MarkPaid transitions pending->paid. A repeated call on an already-paid
	// order reports won=false with no error; any other terminal state is
	// domain.ErrOrderTerminal, and a notified amount that disagrees with the
	// order is domain.ErrAmountMismatch.
	MarkPaid(ctx context.Context, orderNo string, paidAmount int64, paidAt time.Time) (won bool, order *model.Order, err error)

	// SweepExpired bulk-cancels pending orders past their deadline.
	SweepExpired(ctx context.Context, limit int) (int64, error)
}

type orderUC struct {
	orders      repository.OrderRepository
	enrollments repository.EnrollmentRepository
	tiers       repository.TierConfigRepository
	tm          repository.TransactionManager
	prefix      string
	expiry      time.Duration
	log         *zerolog.Logger
	now         func() time.Time
}

func NewOrderUseCase(
	orders repository.OrderRepository,
	enrollments repository.EnrollmentRepository,
	tiers repository.TierConfigRepository,
	tm repository.TransactionManager,
	orderNoPrefix string,
	expiry time.Duration,
	logger *zerolog.Logger,
) *orderUC {
	if expiry <= 0 {
		expiry = model.OrderExpiryWindow
	}
	l := logger.With().Str("component", "OrderUC").Logger()
	return &orderUC{
		orders: orders, enrollments: enrollments, tiers: tiers, tm: tm,
		prefix: orderNoPrefix, expiry: expiry, log: &l, now: time.Now,
	}
}

func (u *orderUC) Create(ctx context.Context, p CreateOrderParams) (*model.Order, error) {
	if p.BuyerID == "" || p.Amount <= 0 || !p.Category.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if p.Category == model.CategoryUpgrade {
		if !p.TargetRank.Valid() || p.TargetRank == model.RankNone {
			return nil, domain.ErrInvalidArgument
		}
		// Upgrade orders are priced by the target tier, not the caller.
		cfg, err := u.tiers.FindByRank(ctx, nil, p.TargetRank)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrTierNotConfigured
			}
			return nil, err
		}
		p.Amount = cfg.UpgradeCost
	}
	if p.AmbassadorID != nil && *p.AmbassadorID == p.BuyerID {
		// Self-referral earns nothing; drop the link rather than reject.
		p.AmbassadorID = nil
	}

	now := u.now()
	order := &model.Order{
		OrderNo:      model.GenerateOrderNo(u.prefix, now),
		BuyerID:      p.BuyerID,
		AmbassadorID: p.AmbassadorID,
		Category:     p.Category,
		Amount:       p.Amount,
		Status:       model.OrderPending,
		TargetRank:   p.TargetRank,
		CreatedAt:    now,
		ExpiresAt:    now.Add(u.expiry),
	}
	if err := u.orders.Insert(ctx, nil, order); err != nil {
		return nil, err
	}
	metrics.IncOrder("created")
	u.log.Info().Str("order_no", order.OrderNo).Str("category", string(order.Category)).Int64("amount", order.Amount).Msg("order created")
	return order, nil
}

func (u *orderUC) Get(ctx context.Context, orderNo string) (*model.Order, error) {
	order, err := u.orders.FindByNo(ctx, nil, orderNo)
	if err != nil {
		return nil, err
	}
	if order.Expired(u.now()) {
		status, err := u.CheckExpiry(ctx, orderNo)
		if err != nil {
			return nil, err
		}
		order.Status = status
	}
	return order, nil
}

func (u *orderUC) CheckExpiry(ctx context.Context, orderNo string) (model.OrderStatus, error) {
	order, err := u.orders.FindByNo(ctx, nil, orderNo)
	if err != nil {
		return "", err
	}
	if !order.Expired(u.now()) {
		return order.Status, nil
	}
	won, err := u.orders.UpdateStatusIfPending(ctx, nil, orderNo, model.OrderCancelled, nil)
	if err != nil {
		return "", err
	}
	if !won {
		// A concurrent payment or sweep got there first; re-read.
		order, err = u.orders.FindByNo(ctx, nil, orderNo)
		if err != nil {
			return "", err
		}
		return order.Status, nil
	}
	metrics.IncOrder("cancelled")
	metrics.AddOrdersExpired(1)
	u.log.Info().Str("order_no", orderNo).Msg("pending order expired")
	return model.OrderCancelled, nil
}

func (u *orderUC) MarkPaid(ctx context.Context, orderNo string, paidAmount int64, paidAt time.Time) (bool, *model.Order, error) {
	var (
		won   bool
		order *model.Order
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		order, err = u.orders.FindByNo(ctx, tx, orderNo)
		if err != nil {
			return err
		}
		if order.Status == model.OrderPaid {
			// Replayed notification; the first delivery already won.
			return nil
		}
		if order.Status == model.OrderCancelled || order.Status == model.OrderRefunded {
			return domain.ErrOrderTerminal
		}
		if order.Amount != paidAmount {
			return domain.ErrAmountMismatch
		}
		// Money moved; a late notification still counts as paid even past
		// the expiry deadline, as long as nothing cancelled the row first.
		won, err = u.orders.UpdateStatusIfPending(ctx, tx, orderNo, model.OrderPaid, &paidAt)
		if err != nil {
			return err
		}
		if !won {
			return domain.ErrOrderTerminal
		}
		order.Status = model.OrderPaid
		order.PaidAt = &paidAt

		return u.enroll(ctx, tx, order, paidAt)
	})
	if err != nil {
		return false, nil, err
	}
	if won {
		metrics.IncOrder("paid")
		u.log.Info().Str("order_no", orderNo).Msg("order paid")
	}
	return won, order, nil
}

// enroll materializes course access for a paid course order. Advanced covers
// basic as well. Upgrade orders grant no course access here.
func (u *orderUC) enroll(ctx context.Context, tx repository.Tx, order *model.Order, paidAt time.Time) error {
	if order.Category == model.CategoryUpgrade {
		return nil
	}
	categories := []model.Category{order.Category}
	if order.Category == model.CategoryAdvanced {
		categories = append(categories, model.CategoryBasic)
	}
	for _, c := range categories {
		e := &model.Enrollment{
			ID:        uuid.NewString(),
			UserID:    order.BuyerID,
			Category:  c,
			OrderNo:   order.OrderNo,
			CreatedAt: paidAt,
		}
		if err := u.enrollments.Insert(ctx, tx, e); err != nil {
			return err
		}
	}
	return nil
}

func (u *orderUC) SweepExpired(ctx context.Context, limit int) (int64, error) {
	n, err := u.orders.CancelExpired(ctx, u.now(), limit)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddOrdersExpired(n)
		u.log.Info().Int64("count", n).Msg("expired orders swept")
	}
	return n, nil
}
