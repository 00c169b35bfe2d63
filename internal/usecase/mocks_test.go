// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-ambassador-platform/internal/domain"
	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/adapter"
	"course-ambassador-platform/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type noTx struct{}

type mockTxManager struct {
	// beginErr makes every transaction fail before the body runs.
	beginErr error
}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.beginErr != nil {
		return m.beginErr
	}
	return fn(ctx, noTx{})
}

// memUserRepo is a small in-memory implementation used by unit tests.
type memUserRepo struct {
	mu    sync.RWMutex
	store map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) Save(ctx context.Context, _ repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memUserRepo) addBalance(id string, pick func(*model.User) *int64, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	col := pick(u)
	if *col+delta < 0 {
		return 0, domain.ErrInsufficientBalance
	}
	*col += delta
	return *col, nil
}

func (m *memUserRepo) AddMeritPoints(ctx context.Context, _ repository.Tx, id string, delta int64) (int64, error) {
	return m.addBalance(id, func(u *model.User) *int64 { return &u.MeritPoints }, delta)
}

func (m *memUserRepo) AddFrozenPoints(ctx context.Context, _ repository.Tx, id string, delta int64) (int64, error) {
	return m.addBalance(id, func(u *model.User) *int64 { return &u.FrozenPoints }, delta)
}

func (m *memUserRepo) AddAvailablePoints(ctx context.Context, _ repository.Tx, id string, delta int64) (int64, error) {
	return m.addBalance(id, func(u *model.User) *int64 { return &u.AvailablePoints }, delta)
}

func (m *memUserRepo) MoveFrozenToAvailable(ctx context.Context, _ repository.Tx, id string, amount int64) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return 0, 0, domain.ErrNotFound
	}
	if u.FrozenPoints < amount {
		return 0, 0, domain.ErrInsufficientFrozen
	}
	u.FrozenPoints -= amount
	u.AvailablePoints += amount
	return u.FrozenPoints, u.AvailablePoints, nil
}

func (m *memUserRepo) SetRank(ctx context.Context, _ repository.Tx, id string, rank model.Rank, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if u.Rank >= rank {
		return domain.ErrRankNotHigher
	}
	u.Rank = rank
	u.RankStartedAt = startedAt
	return nil
}

type memTierRepo struct {
	mu    sync.RWMutex
	store map[model.Rank]*model.TierConfig
}

func newMemTierRepo() *memTierRepo {
	return &memTierRepo{store: make(map[model.Rank]*model.TierConfig)}
}

func (m *memTierRepo) FindByRank(ctx context.Context, _ repository.Tx, rank model.Rank) (*model.TierConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.store[rank]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *cfg
	return &cp, nil
}

func (m *memTierRepo) Save(ctx context.Context, _ repository.Tx, cfg *model.TierConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cfg
	m.store[cfg.Rank] = &cp
	return nil
}

type memLedgerRepo struct {
	mu      sync.RWMutex
	entries []*model.PointsEntry
	markers map[string]struct{}

	insertErr error // simulate a ledger write failure mid-transaction
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{markers: make(map[string]struct{})}
}

func (m *memLedgerRepo) Insert(ctx context.Context, _ repository.Tx, e *model.PointsEntry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memLedgerRepo) ListByUser(ctx context.Context, _ repository.Tx, userID string, offset, limit int) ([]*model.PointsEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PointsEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memLedgerRepo) InsertRewardMarker(ctx context.Context, _ repository.Tx, orderNo string, kind model.RewardKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := orderNo + "/" + string(kind)
	if _, ok := m.markers[key]; ok {
		return domain.ErrAlreadyExists
	}
	m.markers[key] = struct{}{}
	return nil
}

type memQuotaRepo struct {
	mu     sync.RWMutex
	grants []*model.QuotaGrant

	insertErr error // simulate a quota write failure mid-transaction
}

func newMemQuotaRepo() *memQuotaRepo { return &memQuotaRepo{} }

func (m *memQuotaRepo) Insert(ctx context.Context, _ repository.Tx, g *model.QuotaGrant) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.grants = append(m.grants, &cp)
	return nil
}

func (m *memQuotaRepo) ListActiveByUser(ctx context.Context, _ repository.Tx, userID string) ([]*model.QuotaGrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.QuotaGrant
	for _, g := range m.grants {
		if g.UserID == userID && g.Active {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memQuotaRepo) Consume(ctx context.Context, _ repository.Tx, id string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.grants {
		if g.ID == id && g.Active && g.Remaining >= qty {
			g.Remaining -= qty
			return nil
		}
	}
	return domain.ErrInvalidArgument
}

func (m *memQuotaRepo) ListExpiring(ctx context.Context, _ repository.Tx, withinDays int) ([]*model.QuotaGrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	deadline := time.Now().AddDate(0, 0, withinDays)
	var out []*model.QuotaGrant
	for _, g := range m.grants {
		if g.Active && g.ExpiresAt.Before(deadline) {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memUpgradeLogRepo struct {
	mu   sync.RWMutex
	logs []*model.UpgradeLog
}

func newMemUpgradeLogRepo() *memUpgradeLogRepo { return &memUpgradeLogRepo{} }

func (m *memUpgradeLogRepo) Insert(ctx context.Context, _ repository.Tx, l *model.UpgradeLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.logs = append(m.logs, &cp)
	return nil
}

func (m *memUpgradeLogRepo) ListByUser(ctx context.Context, _ repository.Tx, userID string) ([]*model.UpgradeLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.UpgradeLog
	for _, l := range m.logs {
		if l.UserID == userID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memOrderRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{store: make(map[string]*model.Order)}
}

func (m *memOrderRepo) Insert(ctx context.Context, _ repository.Tx, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[o.OrderNo]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *o
	m.store[o.OrderNo] = &cp
	return nil
}

func (m *memOrderRepo) FindByNo(ctx context.Context, _ repository.Tx, orderNo string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.store[orderNo]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) UpdateStatusIfPending(ctx context.Context, _ repository.Tx, orderNo string, next model.OrderStatus, paidAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[orderNo]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != model.OrderPending {
		return false, nil
	}
	o.Status = next
	if paidAt != nil {
		t := *paidAt
		o.PaidAt = &t
	}
	return true, nil
}

func (m *memOrderRepo) MarkRefunded(ctx context.Context, _ repository.Tx, orderNo string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[orderNo]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != model.OrderPaid {
		return false, nil
	}
	o.Status = model.OrderRefunded
	return true, nil
}

func (m *memOrderRepo) AttachPrepayID(ctx context.Context, _ repository.Tx, orderNo, prepayID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[orderNo]
	if !ok {
		return domain.ErrNotFound
	}
	o.PrepayID = prepayID
	return nil
}

func (m *memOrderRepo) CountPaidReferred(ctx context.Context, _ repository.Tx, ambassadorID string, category model.Category) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cnt := 0
	for _, o := range m.store {
		if o.AmbassadorID != nil && *o.AmbassadorID == ambassadorID && o.Category == category &&
			(o.Status == model.OrderPaid || o.Status == model.OrderRefunded) {
			cnt++
		}
	}
	return cnt, nil
}

func (m *memOrderRepo) CancelExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.store {
		if int(n) >= limit {
			break
		}
		if o.Status == model.OrderPending && now.After(o.ExpiresAt) {
			o.Status = model.OrderCancelled
			n++
		}
	}
	return n, nil
}

type memEnrollmentRepo struct {
	mu   sync.RWMutex
	rows []*model.Enrollment
}

func newMemEnrollmentRepo() *memEnrollmentRepo { return &memEnrollmentRepo{} }

func (m *memEnrollmentRepo) Insert(ctx context.Context, _ repository.Tx, e *model.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == e.UserID && r.Category == e.Category {
			return nil // conflict is a silent no-op, like the SQL
		}
	}
	cp := *e
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memEnrollmentRepo) categories(userID string) []model.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Category
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r.Category)
		}
	}
	return out
}

type memAgreementRepo struct {
	mu     sync.RWMutex
	active map[string]map[string]bool // userID -> agreementType -> signed
}

func newMemAgreementRepo() *memAgreementRepo {
	return &memAgreementRepo{active: make(map[string]map[string]bool)}
}

func (m *memAgreementRepo) sign(userID, agreementType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[userID] == nil {
		m.active[userID] = make(map[string]bool)
	}
	m.active[userID][agreementType] = true
}

func (m *memAgreementRepo) HasActive(ctx context.Context, _ repository.Tx, userID, agreementType string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[userID][agreementType], nil
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (m *mockNotifier) Notify(ctx context.Context, userID, message string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, userID+": "+message)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

type mockGateway struct {
	createErr  error
	refundErr  error
	verifyErr  error
	decryptErr error

	notice *adapter.PaymentNotice

	createdOrders []string
	refunds       []string
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) CreatePayment(ctx context.Context, orderNo, payerID, description string, amount int64) (string, error) {
	if g.createErr != nil {
		return "", g.createErr
	}
	g.createdOrders = append(g.createdOrders, orderNo)
	return "prepay-" + orderNo, nil
}

func (g *mockGateway) ClientParams(prepayID string) (*adapter.InvokeParams, error) {
	return &adapter.InvokeParams{Package: "prepay_id=" + prepayID, SignType: "RSA"}, nil
}

func (g *mockGateway) VerifyCallback(headers http.Header, body []byte) error {
	return g.verifyErr
}

func (g *mockGateway) DecryptCallback(body []byte) (*adapter.PaymentNotice, error) {
	if g.decryptErr != nil {
		return nil, g.decryptErr
	}
	if g.notice == nil {
		return nil, fmt.Errorf("no notice configured")
	}
	return g.notice, nil
}

func (g *mockGateway) Refund(ctx context.Context, orderNo string, refundAmount, totalAmount int64, reason string) (*adapter.RefundResult, error) {
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, orderNo)
	return &adapter.RefundResult{RefundNo: orderNo + "R1", Status: "processing"}, nil
}

type mockLocker struct {
	mu      sync.Mutex
	held    map[string]bool
	lockErr error
}

func newMockLocker() *mockLocker { return &mockLocker{held: make(map[string]bool)} }

func (l *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.lockErr != nil {
		return "", l.lockErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return "", domain.ErrLockUnavailable
	}
	l.held[key] = true
	return "tok", nil
}

func (l *mockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
