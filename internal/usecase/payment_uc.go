// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/adapter"
	"course-ambassador-platform/internal/domain/ports/repository"
	"course-ambassador-platform/internal/infra/metrics"
	rds "course-ambassador-platform/internal/infra/redis"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// callbackLockTTL bounds how long a crashed callback handler can hold the
// per-order lock.
const callbackLockTTL = 30 * time.Second

// CallbackResult tells the HTTP layer what to acknowledge to the gateway.
type CallbackResult struct {
	OrderNo   string
	Processed bool
	Reason    string
}

type PaymentUseCase interface {
	// InitiatePayment opens a gateway payment intent for a pending order
	// and returns the client-side invocation parameters. Expired orders are
	// cancelled lazily here and rejected with domain.ErrOrderExpired.
	InitiatePayment(ctx context.Context, orderNo, payerID string) (*adapter.InvokeParams, error)

	// HandleCallback verifies, decrypts, and applies an asynchronous
	// payment notification. Replays are acknowledged without re-applying
	// effects.
	HandleCallback(ctx context.Context, headers http.Header, body []byte) (*CallbackResult, error)

	// Refund reverses a paid order at the gateway and marks it refunded.
	// Points already granted for the order stay; corrections are manual.
	Refund(ctx context.Context, orderNo, reason string) (*adapter.RefundResult, error)
}

type paymentUC struct {
	orders      repository.OrderRepository
	users       repository.UserRepository
	gateway     adapter.PaymentGateway
	orderUC     OrderUseCase
	rewards     RewardUseCase
	eligibility EligibilityUseCase
	locker      rds.Locker
	log         *zerolog.Logger
	now         func() time.Time
}

func NewPaymentUseCase(
	orders repository.OrderRepository,
	users repository.UserRepository,
	gateway adapter.PaymentGateway,
	orderUC OrderUseCase,
	rewards RewardUseCase,
	eligibility EligibilityUseCase,
	locker rds.Locker,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		orders: orders, users: users, gateway: gateway, orderUC: orderUC,
		rewards: rewards, eligibility: eligibility, locker: locker, log: &l, now: time.Now,
	}
}

func (u *paymentUC) InitiatePayment(ctx context.Context, orderNo, payerID string) (*adapter.InvokeParams, error) {
	status, err := u.orderUC.CheckExpiry(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	order, err := u.orders.FindByNo(ctx, nil, orderNo)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != payerID {
		return nil, domain.ErrInvalidArgument
	}
	switch status {
	case model.OrderPending:
	case model.OrderCancelled:
		return nil, domain.ErrOrderExpired
	default:
		return nil, domain.ErrOrderTerminal
	}

	prepayID, err := u.gateway.CreatePayment(ctx, orderNo, payerID, paymentDescription(order), order.Amount)
	if err != nil {
		return nil, err
	}
	if err := u.orders.AttachPrepayID(ctx, nil, orderNo, prepayID); err != nil {
		return nil, err
	}
	return u.gateway.ClientParams(prepayID)
}

func paymentDescription(o *model.Order) string {
	switch o.Category {
	case model.CategoryBasic:
		return "Basic course"
	case model.CategoryAdvanced:
		return "Advanced course"
	case model.CategoryUpgrade:
		return "Ambassador tier upgrade"
	default:
		return "Course order"
	}
}

func (u *paymentUC) HandleCallback(ctx context.Context, headers http.Header, body []byte) (*CallbackResult, error) {
	if err := u.gateway.VerifyCallback(headers, body); err != nil {
		metrics.IncCallback("rejected")
		return nil, err
	}
	notice, err := u.gateway.DecryptCallback(body)
	if err != nil {
		metrics.IncCallback("rejected")
		return nil, err
	}
	if notice.TradeState != "SUCCESS" {
		metrics.IncCallback("ignored")
		u.log.Info().Str("order_no", notice.OutTradeNo).Str("trade_state", notice.TradeState).Msg("non-success callback ignored")
		return &CallbackResult{OrderNo: notice.OutTradeNo, Reason: "trade state " + notice.TradeState}, nil
	}

	// One callback per order at a time; the gateway retries, so a held lock
	// just defers the replay.
	token, err := u.locker.TryLock(ctx, "paycb:"+notice.OutTradeNo, callbackLockTTL)
	if err != nil {
		metrics.IncCallback("contended")
		return nil, err
	}
	defer func() {
		if err := u.locker.Unlock(context.Background(), "paycb:"+notice.OutTradeNo, token); err != nil {
			u.log.Warn().Err(err).Str("order_no", notice.OutTradeNo).Msg("callback lock release failed")
		}
	}()

	paidAt := u.now()
	if t, perr := time.Parse(time.RFC3339, notice.SuccessTime); perr == nil {
		paidAt = t
	}
	won, order, err := u.orderUC.MarkPaid(ctx, notice.OutTradeNo, notice.Amount.Total, paidAt)
	if err != nil {
		metrics.IncCallback("failed")
		return nil, err
	}
	if won {
		metrics.IncCallback("accepted")
	} else {
		metrics.IncCallback("replayed")
	}

	// Effects run on replays too: a failure below surfaces as a non-2xx and
	// the gateway retries the callback, so a crash between MarkPaid and the
	// reward is recovered here, with the reward markers preventing double
	// credits.
	if err := u.applyPaidEffects(ctx, order); err != nil {
		return nil, err
	}
	res := &CallbackResult{OrderNo: notice.OutTradeNo, Processed: won}
	if !won {
		res.Reason = "already paid"
	}
	return res, nil
}

func (u *paymentUC) applyPaidEffects(ctx context.Context, order *model.Order) error {
	switch order.Category {
	case model.CategoryUpgrade:
		return u.settleUpgrade(ctx, order)
	default:
		if order.AmbassadorID == nil {
			return nil
		}
		_, err := u.rewards.ProcessReferralReward(ctx, order.OrderNo, *order.AmbassadorID, order.Amount, order.Category)
		return err
	}
}

// settleUpgrade finishes a paid tier upgrade. Eligibility is re-checked at
// settlement time; the payment itself discharges the payment condition.
func (u *paymentUC) settleUpgrade(ctx context.Context, order *model.Order) error {
	user, err := u.users.FindByID(ctx, nil, order.BuyerID)
	if err != nil {
		return err
	}
	if user.Rank >= order.TargetRank {
		// Redelivered callback after the upgrade already settled.
		u.log.Debug().Str("order_no", order.OrderNo).Msg("upgrade already settled")
		return nil
	}

	elig, err := u.eligibility.Check(ctx, order.BuyerID, order.TargetRank)
	if err != nil {
		return err
	}
	if !elig.OnlyPaymentOutstanding() {
		// Conditions regressed between order creation and payment. The
		// upgrade does not apply; the money is reviewed manually.
		u.log.Error().Str("order_no", order.OrderNo).Str("user_id", order.BuyerID).Msg("paid upgrade no longer eligible, manual review required")
		return nil
	}
	_, err = u.rewards.ProcessAmbassadorUpgrade(ctx, order.BuyerID, order.TargetRank, model.UpgradePaid, order.OrderNo)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Replay after a partial earlier attempt; the upgrade took.
		return nil
	}
	return err
}

func (u *paymentUC) Refund(ctx context.Context, orderNo, reason string) (*adapter.RefundResult, error) {
	order, err := u.orders.FindByNo(ctx, nil, orderNo)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderPaid {
		return nil, domain.ErrOrderTerminal
	}

	res, err := u.gateway.Refund(ctx, orderNo, order.Amount, order.Amount, reason)
	if err != nil {
		return nil, err
	}
	ok, err := u.orders.MarkRefunded(ctx, nil, orderNo)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with a concurrent refund; the gateway deduplicates on
		// the out_refund_no, so report the accepted result.
		u.log.Warn().Str("order_no", orderNo).Msg("order already refunded")
	} else {
		metrics.IncOrder("refunded")
		u.log.Info().Str("order_no", orderNo).Str("refund_no", res.RefundNo).Msg("refund accepted")
	}
	return res, nil
}
