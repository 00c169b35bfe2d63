// File: internal/infra/api/server.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/repository"
	"course-ambassador-platform/internal/usecase"
)

// maxCallbackBody bounds gateway callback payloads.
const maxCallbackBody = 1 << 20

// Server wires the HTTP surface to the use cases.
type Server struct {
	orders      usecase.OrderUseCase
	payments    usecase.PaymentUseCase
	rewards     usecase.RewardUseCase
	eligibility usecase.EligibilityUseCase
	users       repository.UserRepository
	tiers       repository.TierConfigRepository
	ledger      repository.PointsLedgerRepository
	auth        *AuthManager
	log         *zerolog.Logger
}

func NewServer(
	orders usecase.OrderUseCase,
	payments usecase.PaymentUseCase,
	rewards usecase.RewardUseCase,
	eligibility usecase.EligibilityUseCase,
	users repository.UserRepository,
	tiers repository.TierConfigRepository,
	ledger repository.PointsLedgerRepository,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "HTTP").Logger()
	return &Server{
		orders: orders, payments: payments, rewards: rewards,
		eligibility: eligibility, users: users, tiers: tiers, ledger: ledger,
		auth: auth, log: &l,
	}
}

// Routes builds the router with middleware applied.
func (s *Server) Routes(base *zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{orderNo}", s.handleGetOrder)
		r.Post("/orders/{orderNo}/pay", s.handleInitiatePayment)

		r.Post("/payment/callback/wechat", s.handlePaymentCallback)

		r.Get("/ambassadors/{userID}", s.handleGetAmbassador)
		r.Get("/ambassadors/{userID}/eligibility", s.handleEligibility)
		r.Post("/ambassadors/{userID}/upgrade", s.handleUpgrade)
		r.Get("/ambassadors/{userID}/ledger", s.handleListLedger)

		r.Post("/admin/login", s.handleAdminLogin)
		r.Post("/admin/logout", s.handleAdminLogout)
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAdmin)
			r.Get("/admin/tiers/{rank}", s.handleGetTier)
			r.Put("/admin/tiers/{rank}", s.handleSaveTier)
			r.Post("/admin/points/adjust", s.handleAdjustPoints)
			r.Post("/admin/orders/{orderNo}/refund", s.handleRefund)
		})
	})

	return Chain(r,
		Recover(base),
		TraceID(base),
		RequestLog(base),
		Timeout(30*time.Second),
	)
}

// ---------------- JSON plumbing ----------------

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrOrderTerminal),
		errors.Is(err, domain.ErrRankNotHigher):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrOrderExpired):
		code = http.StatusGone
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrTierNotConfigured):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrLockUnavailable):
		code = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrGatewayUnavailable):
		code = http.StatusBadGateway
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxCallbackBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ---------------- orders ----------------

type createOrderRequest struct {
	BuyerID      string  `json:"buyer_id"`
	AmbassadorID *string `json:"ambassador_id,omitempty"`
	Category     string  `json:"category"`
	Amount       int64   `json:"amount"`
	TargetRank   int     `json:"target_rank,omitempty"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	order, err := s.orders.Create(r.Context(), usecase.CreateOrderParams{
		BuyerID:      req.BuyerID,
		AmbassadorID: req.AmbassadorID,
		Category:     model.Category(req.Category),
		Amount:       req.Amount,
		TargetRank:   model.Rank(req.TargetRank),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(r.Context(), chi.URLParam(r, "orderNo"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type initiatePaymentRequest struct {
	PayerID string `json:"payer_id"`
}

func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := decodeBody(r, &req); err != nil || req.PayerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payer_id required"})
		return
	}
	params, err := s.payments.InitiatePayment(r.Context(), chi.URLParam(r, "orderNo"), req.PayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

// handlePaymentCallback answers in the gateway's acknowledgement envelope:
// any non-SUCCESS code makes the gateway redeliver later.
func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "FAIL", "message": "unreadable body"})
		return
	}
	res, err := s.payments.HandleCallback(r.Context(), r.Header, body)
	if err != nil {
		s.log.Warn().Err(err).Msg("payment callback rejected")
		code := http.StatusInternalServerError
		if errors.Is(err, domain.ErrCallbackVerification) {
			code = http.StatusUnauthorized
		}
		writeJSON(w, code, map[string]string{"code": "FAIL", "message": err.Error()})
		return
	}
	s.log.Info().Str("order_no", res.OrderNo).Bool("processed", res.Processed).Msg("payment callback acknowledged")
	writeJSON(w, http.StatusOK, map[string]string{"code": "SUCCESS", "message": "ok"})
}

// ---------------- ambassadors ----------------

func (s *Server) handleGetAmbassador(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.FindByID(r.Context(), nil, chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	target, err := strconv.Atoi(r.URL.Query().Get("target_rank"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target_rank required"})
		return
	}
	elig, err := s.eligibility.Check(r.Context(), chi.URLParam(r, "userID"), model.Rank(target))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, elig)
}

type upgradeRequest struct {
	TargetRank int `json:"target_rank"`
}

// handleUpgrade performs a free (agreement-based) upgrade. Paid upgrades go
// through an upgrade order and settle on the payment callback.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	userID := chi.URLParam(r, "userID")
	target := model.Rank(req.TargetRank)

	elig, err := s.eligibility.Check(r.Context(), userID, target)
	if err != nil {
		writeError(w, err)
		return
	}
	if !elig.CanUpgrade {
		writeJSON(w, http.StatusConflict, elig)
		return
	}
	out, err := s.rewards.ProcessAmbassadorUpgrade(r.Context(), userID, target, model.UpgradeAgreement, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListLedger(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := s.ledger.ListByUser(r.Context(), nil, chi.URLParam(r, "userID"), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// ---------------- admin ----------------

type adminLoginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if !s.auth.CheckPassword(req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	if _, err := s.auth.Mint(w); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetTier(w http.ResponseWriter, r *http.Request) {
	rank, err := strconv.Atoi(chi.URLParam(r, "rank"))
	if err != nil || !model.Rank(rank).Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid rank"})
		return
	}
	cfg, err := s.tiers.FindByRank(r.Context(), nil, model.Rank(rank))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSaveTier(w http.ResponseWriter, r *http.Request) {
	rank, err := strconv.Atoi(chi.URLParam(r, "rank"))
	if err != nil || !model.Rank(rank).Valid() || model.Rank(rank) == model.RankNone {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid rank"})
		return
	}
	var cfg model.TierConfig
	if err := decodeBody(r, &cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	cfg.Rank = model.Rank(rank)
	cfg.UpdatedAt = time.Now()
	if err := s.tiers.Save(r.Context(), nil, &cfg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &cfg)
}

type adjustPointsRequest struct {
	UserID   string `json:"user_id"`
	Currency string `json:"currency"`
	Delta    int64  `json:"delta"`
	Reason   string `json:"reason"`
}

func (s *Server) handleAdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req adjustPointsRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	entry, err := s.rewards.AdjustPoints(r.Context(), req.UserID, model.PointsCurrency(req.Currency), req.Delta, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

type refundRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	res, err := s.payments.Refund(r.Context(), chi.URLParam(r, "orderNo"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"refund_no": res.RefundNo, "status": res.Status})
}
