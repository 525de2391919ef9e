package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/printer"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// error contains（HTTPErrorの実装詳細に依存しない）
func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMockはWithinTxの中で渡すreposを固定してユニットテストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
	points     *PointRepoMock
	coupons    *CouponRepoMock
	menu       *MenuRepoMock
}

func newTxReposMock() *TxReposMock {
	return &TxReposMock{
		orders:     &OrderRepoMock{},
		orderItems: &OrderItemRepoMock{},
		points:     &PointRepoMock{},
		coupons:    &CouponRepoMock{},
		menu:       &MenuRepoMock{},
	}
}

func (r *TxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *TxReposMock) Points() repo.PointRepository         { return r.points }
func (r *TxReposMock) Coupons() repo.CouponRepository       { return r.coupons }
func (r *TxReposMock) Menu() repo.MenuItemRepository        { return r.menu }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByOrderNo(ctx context.Context, orderNo string) (model.Order, error) {
	args := m.Called(ctx, orderNo)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) ListByPhone(ctx context.Context, phone string, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, phone, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) ListByStatuses(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error) {
	args := m.Called(ctx, statuses)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepoMock) NextOrderNo(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) Update(ctx context.Context, order model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateStatusIf(ctx context.Context, orderNo string, from, to model.OrderStatus) error {
	args := m.Called(ctx, orderNo, from, to)
	return args.Error(0)
}

func (m *OrderRepoMock) SetEstimatedMinutes(ctx context.Context, orderNo string, minutes int) error {
	args := m.Called(ctx, orderNo, minutes)
	return args.Error(0)
}

func (m *OrderRepoMock) SetRider(ctx context.Context, orderNo string, riderID int64) error {
	args := m.Called(ctx, orderNo, riderID)
	return args.Error(0)
}

func (m *OrderRepoMock) SetCancelReason(ctx context.Context, orderNo string, reason string) error {
	args := m.Called(ctx, orderNo, reason)
	return args.Error(0)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrderItemRepoMock) DeleteByOrderID(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type PointRepoMock struct{ mock.Mock }

func (m *PointRepoMock) Balance(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PointRepoMock) History(ctx context.Context, userID int64, page int, limit int) ([]model.PointHistory, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	items, _ := args.Get(0).([]model.PointHistory)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *PointRepoMock) Reserve(ctx context.Context, userID int64, amount int64, orderNo string) error {
	args := m.Called(ctx, userID, amount, orderNo)
	return args.Error(0)
}

func (m *PointRepoMock) Accrue(ctx context.Context, userID int64, amount int64, orderNo string) error {
	args := m.Called(ctx, userID, amount, orderNo)
	return args.Error(0)
}

func (m *PointRepoMock) Refund(ctx context.Context, userID int64, amount int64, orderNo string) error {
	args := m.Called(ctx, userID, amount, orderNo)
	return args.Error(0)
}

type CouponRepoMock struct{ mock.Mock }

func (m *CouponRepoMock) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	args := m.Called(ctx, code)
	cp, _ := args.Get(0).(model.Coupon)
	return cp, args.Error(1)
}

func (m *CouponRepoMock) FindByID(ctx context.Context, couponID int64) (model.Coupon, error) {
	args := m.Called(ctx, couponID)
	cp, _ := args.Get(0).(model.Coupon)
	return cp, args.Error(1)
}

func (m *CouponRepoMock) FindUnredeemedUsage(ctx context.Context, couponID, userID int64) (model.CouponUsage, error) {
	args := m.Called(ctx, couponID, userID)
	u, _ := args.Get(0).(model.CouponUsage)
	return u, args.Error(1)
}

func (m *CouponRepoMock) CreateUsage(ctx context.Context, couponID, userID int64) (model.CouponUsage, error) {
	args := m.Called(ctx, couponID, userID)
	u, _ := args.Get(0).(model.CouponUsage)
	return u, args.Error(1)
}

func (m *CouponRepoMock) Redeem(ctx context.Context, couponID, userID int64, orderNo string) error {
	args := m.Called(ctx, couponID, userID, orderNo)
	return args.Error(0)
}

func (m *CouponRepoMock) Release(ctx context.Context, couponID, userID int64, orderNo string) error {
	args := m.Called(ctx, couponID, userID, orderNo)
	return args.Error(0)
}

func (m *CouponRepoMock) ListUsagesByUserID(ctx context.Context, userID int64) ([]model.CouponUsage, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]model.CouponUsage)
	return items, args.Error(1)
}

type MenuRepoMock struct{ mock.Mock }

func (m *MenuRepoMock) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(model.MenuItem)
	return item, args.Error(1)
}

func (m *MenuRepoMock) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error) {
	args := m.Called(ctx, ids)
	byID, _ := args.Get(0).(map[int64]model.MenuItem)
	return byID, args.Error(1)
}

// =====================
// コラボレーターのモック
// =====================

type CatalogMock struct{ mock.Mock }

func (m *CatalogMock) IsOpen(ctx context.Context, now time.Time) (bool, string, error) {
	args := m.Called(ctx, now)
	return args.Bool(0), args.String(1), args.Error(2)
}

func (m *CatalogMock) Snapshot(ctx context.Context) (model.StoreConfig, error) {
	args := m.Called(ctx)
	cfg, _ := args.Get(0).(model.StoreConfig)
	return cfg, args.Error(1)
}

type BroadcasterMock struct {
	mu     sync.Mutex
	events []string
	data   []any
}

func (m *BroadcasterMock) Broadcast(event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.data = append(m.data, data)
}

func (m *BroadcasterMock) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

// 印刷はコミット後にgoroutineで飛ぶのでチャンネルで待てるようにする
type PrinterMock struct {
	mu      sync.Mutex
	tickets []printer.Ticket
	Printed chan struct{}
}

func newPrinterMock() *PrinterMock {
	return &PrinterMock{Printed: make(chan struct{}, 8)}
}

func (m *PrinterMock) Print(ctx context.Context, t printer.Ticket) bool {
	m.mu.Lock()
	m.tickets = append(m.tickets, t)
	m.mu.Unlock()
	m.Printed <- struct{}{}
	return true
}

func (m *PrinterMock) Tickets() []printer.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]printer.Ticket(nil), m.tickets...)
}

type PaymentMock struct {
	mu       sync.Mutex
	enabled  bool
	canceled []string
}

func (m *PaymentMock) Enabled() bool { return m.enabled }

func (m *PaymentMock) CancelAsync(orderNo string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canceled = append(m.canceled, orderNo)
}

func (m *PaymentMock) Canceled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.canceled...)
}
