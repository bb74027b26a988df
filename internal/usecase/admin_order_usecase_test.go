package usecase_test

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

type AdmTxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *AdmTxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type AdmTxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	tracking   repo.TrackingEventRepository
	inventory  repo.InventoryRepository

	// AdminOrderUsecase では使わないが TxRepos interface を満たすために保持
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	reviews   repo.ReviewRepository
}

func (r *AdmTxReposMock) Orders() repo.OrderRepository           { return r.orders }
func (r *AdmTxReposMock) OrderItems() repo.OrderItemRepository   { return r.orderItems }
func (r *AdmTxReposMock) Tracking() repo.TrackingEventRepository { return r.tracking }
func (r *AdmTxReposMock) Carts() repo.CartRepository             { return r.carts }
func (r *AdmTxReposMock) CartItems() repo.CartItemRepository     { return r.cartItems }
func (r *AdmTxReposMock) Inventory() repo.InventoryRepository    { return r.inventory }
func (r *AdmTxReposMock) Products() repo.ProductRepository       { return r.products }
func (r *AdmTxReposMock) Reviews() repo.ReviewRepository         { return r.reviews }

// =====================
// Repository mocks (Admin向け：衝突回避)
// =====================

type AdmOrderRepoMock struct{ mock.Mock }

func (m *AdmOrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *AdmOrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdmOrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdmOrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *AdmOrderRepoMock) SetDeliveredAt(ctx context.Context, orderID int64, at time.Time) error {
	args := m.Called(ctx, orderID, at)
	return args.Error(0)
}

func (m *AdmOrderRepoMock) SetPaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *AdmOrderRepoMock) HasDeliveredWithProduct(ctx context.Context, userID int64, productID int64) (bool, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdmOrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdmOrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type AdmOrderItemRepoMock struct{ mock.Mock }

func (m *AdmOrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdmOrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type AdmTrackingRepoMock struct{ mock.Mock }

func (m *AdmTrackingRepoMock) Append(ctx context.Context, ev model.TrackingEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *AdmTrackingRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.TrackingEvent, error) {
	panic("not used in AdminOrderUsecase tests")
}

type AdmInventoryRepoMock struct{ mock.Mock }

func (m *AdmInventoryRepoMock) SellStock(ctx context.Context, productID int64, qty int64) (bool, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdmInventoryRepoMock) RestoreStock(ctx context.Context, productID int64, qty int64) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *AdmInventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdmInventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	panic("not used in AdminOrderUsecase tests")
}

type AdmAuditRepoMock struct{ mock.Mock }

func (m *AdmAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AdmAuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	panic("not used in AdminOrderUsecase tests")
}

func newAdminOrderUsecaseForTest(tx *AdmTxManagerMock, audit *AdmAuditRepoMock, strict bool) *usecase.AdminOrderUsecase {
	return usecase.NewAdminOrderUsecase(tx, audit, fixedClock{now: testNow}, strict)
}

// =====================
// List tests
// =====================

func TestAdminOrderUsecase_List_InvalidPage(t *testing.T) {
	tx := new(AdmTxManagerMock)
	audit := new(AdmAuditRepoMock)

	uc := newAdminOrderUsecaseForTest(tx, audit, false)

	outs, err := uc.List(context.Background(), repo.AdminOrderListFilter{Page: 0, Limit: 20})
	assert.Equal(t, 0, len(outs))
	assertErrContains(t, err, "invalid page")
}

func TestAdminOrderUsecase_List_InvalidLimit(t *testing.T) {
	tx := new(AdmTxManagerMock)
	audit := new(AdmAuditRepoMock)

	uc := newAdminOrderUsecaseForTest(tx, audit, false)

	outs, err := uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 0})
	assert.Equal(t, 0, len(outs))
	assertErrContains(t, err, "invalid limit")
}

func TestAdminOrderUsecase_List_Success_CallsItemsPerOrder(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	audit := new(AdmAuditRepoMock)

	ordersRepo := new(AdmOrderRepoMock)
	itemsRepo := new(AdmOrderItemRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo, orderItems: itemsRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	f := repo.AdminOrderListFilter{Page: 1, Limit: 20}

	orders := []model.Order{
		{ID: 10, Status: model.OrderStatusProcessing},
		{ID: 11, Status: model.OrderStatusShipped},
	}

	ordersRepo.On("ListAdmin", mock.Anything, f).Return(orders, int64(2), nil)
	itemsRepo.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{}, nil)
	itemsRepo.On("ListByOrderID", mock.Anything, int64(11)).Return([]model.OrderItem{}, nil)

	uc := newAdminOrderUsecaseForTest(tx, audit, false)

	outs, err := uc.List(ctx, f)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(outs))

	tx.AssertExpectations(t)
	ordersRepo.AssertExpectations(t)
	itemsRepo.AssertExpectations(t)
}

// =====================
// AdvanceTracking tests
// =====================

func TestAdminOrderUsecase_AdvanceTracking_UnauthorizedActor(t *testing.T) {
	uc := newAdminOrderUsecaseForTest(new(AdmTxManagerMock), new(AdmAuditRepoMock), false)

	err := uc.AdvanceTracking(context.Background(), 0, 1, usecase.AdvanceTrackingInput{Status: "Shipped"})
	assertErrContains(t, err, "unauthorized")
}

func TestAdminOrderUsecase_AdvanceTracking_InvalidStatus(t *testing.T) {
	uc := newAdminOrderUsecaseForTest(new(AdmTxManagerMock), new(AdmAuditRepoMock), false)

	err := uc.AdvanceTracking(context.Background(), 1, 1, usecase.AdvanceTrackingInput{Status: "Exploded"})
	assertErrContains(t, err, "invalid status")
}

// Cancelled/Rejectedはこのエンドポイントでは設定できない
func TestAdminOrderUsecase_AdvanceTracking_TerminalStatusNotAccepted(t *testing.T) {
	uc := newAdminOrderUsecaseForTest(new(AdmTxManagerMock), new(AdmAuditRepoMock), false)

	err := uc.AdvanceTracking(context.Background(), 1, 1, usecase.AdvanceTrackingInput{Status: "Cancelled"})
	assertErrContains(t, err, "invalid status")

	err = uc.AdvanceTracking(context.Background(), 1, 1, usecase.AdvanceTrackingInput{Status: "Rejected"})
	assertErrContains(t, err, "invalid status")
}

func TestAdminOrderUsecase_AdvanceTracking_NotFound(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(99)).Return(model.Order{}, repo.ErrNotFound)

	uc := newAdminOrderUsecaseForTest(tx, new(AdmAuditRepoMock), false)

	err := uc.AdvanceTracking(ctx, 1, 99, usecase.AdvanceTrackingInput{Status: "Shipped"})
	assertErrContains(t, err, "not found")

	ordersRepo.AssertExpectations(t)
}

// キャンセル済みは不変
func TestAdminOrderUsecase_AdvanceTracking_FinalizedOrderIsImmutable(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)
	audit := new(AdmAuditRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	for _, st := range []model.OrderStatus{
		model.OrderStatusCancelled,
		model.OrderStatusRejected,
	} {
		ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
			ID:     1,
			Status: st,
		}, nil).Once()

		uc := newAdminOrderUsecaseForTest(tx, audit, false)

		err := uc.AdvanceTracking(ctx, 1, 1, usecase.AdvanceTrackingInput{Status: "Shipped"})
		assertErrContains(t, err, "order already finalized")
	}

	ordersRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_AdvanceTracking_SameStatus_NoOp(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)
	audit := new(AdmAuditRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:     1,
		Status: model.OrderStatusShipped,
	}, nil)

	uc := newAdminOrderUsecaseForTest(tx, audit, false)

	err := uc.AdvanceTracking(ctx, 1, 1, usecase.AdvanceTrackingInput{Status: "Shipped"})
	assert.NoError(t, err)

	ordersRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_AdvanceTracking_Success_AppendsTrackingAndAudit(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)
	trackingRepo := new(AdmTrackingRepoMock)
	audit := new(AdmAuditRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo, tracking: trackingRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:     1,
		Status: model.OrderStatusPacking,
	}, nil)
	ordersRepo.On("UpdateStatus", mock.Anything, int64(1), model.OrderStatusShipped).Return(nil)

	trackingRepo.On("Append", mock.Anything, mock.MatchedBy(func(ev model.TrackingEvent) bool {
		return ev.OrderID == 1 && ev.Status == model.OrderStatusShipped
	})).Return(nil)

	audit.On("Create", mock.Anything, mock.MatchedBy(func(log model.AuditLog) bool {
		return log.ActorUserID == 9 &&
			log.Action == model.AuditActionUpdateOrderStatus &&
			log.ResourceID == 1
	})).Return(nil)

	uc := newAdminOrderUsecaseForTest(tx, audit, false)

	err := uc.AdvanceTracking(ctx, 9, 1, usecase.AdvanceTrackingInput{Status: "Shipped"})
	assert.NoError(t, err)

	ordersRepo.AssertExpectations(t)
	trackingRepo.AssertExpectations(t)
	audit.AssertExpectations(t)
}

// デフォルトは後退も許す（運用上の柔軟性）
func TestAdminOrderUsecase_AdvanceTracking_BackwardAllowedWhenNotStrict(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)
	trackingRepo := new(AdmTrackingRepoMock)
	audit := new(AdmAuditRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo, tracking: trackingRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:     1,
		Status: model.OrderStatusShipped,
	}, nil)
	ordersRepo.On("UpdateStatus", mock.Anything, int64(1), model.OrderStatusPacking).Return(nil)
	trackingRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	uc := newAdminOrderUsecaseForTest(tx, audit, false)

	err := uc.AdvanceTracking(ctx, 9, 1, usecase.AdvanceTrackingInput{Status: "Packing"})
	assert.NoError(t, err)
}

// strictモードは前進のみ
func TestAdminOrderUsecase_AdvanceTracking_BackwardRejectedWhenStrict(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)
	audit := new(AdmAuditRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:     1,
		Status: model.OrderStatusShipped,
	}, nil)

	uc := newAdminOrderUsecaseForTest(tx, audit, true)

	err := uc.AdvanceTracking(ctx, 9, 1, usecase.AdvanceTrackingInput{Status: "Packing"})
	assertErrContains(t, err, "status must move forward")

	ordersRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

// 配達完了でdelivered_atが入り、代引きは入金完了になる
func TestAdminOrderUsecase_AdvanceTracking_DeliveredSetsTimestampAndCODCompletes(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)
	trackingRepo := new(AdmTrackingRepoMock)
	audit := new(AdmAuditRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo, tracking: trackingRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:            1,
		Status:        model.OrderStatusOutForDelivery,
		PaymentMethod: "COD",
	}, nil)
	ordersRepo.On("UpdateStatus", mock.Anything, int64(1), model.OrderStatusDelivered).Return(nil)
	ordersRepo.On("SetDeliveredAt", mock.Anything, int64(1), testNow).Return(nil)
	ordersRepo.On("SetPaymentStatus", mock.Anything, int64(1), model.PaymentStatusCompleted).Return(nil)
	trackingRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	uc := newAdminOrderUsecaseForTest(tx, audit, false)

	err := uc.AdvanceTracking(ctx, 9, 1, usecase.AdvanceTrackingInput{Status: "Delivered"})
	assert.NoError(t, err)

	ordersRepo.AssertExpectations(t)
}

// 非代引きの配達完了は支払い状態に触らない
func TestAdminOrderUsecase_AdvanceTracking_DeliveredNonCODKeepsPayment(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)
	trackingRepo := new(AdmTrackingRepoMock)
	audit := new(AdmAuditRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo, tracking: trackingRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:            1,
		Status:        model.OrderStatusOutForDelivery,
		PaymentMethod: "CARD",
	}, nil)
	ordersRepo.On("UpdateStatus", mock.Anything, int64(1), model.OrderStatusDelivered).Return(nil)
	ordersRepo.On("SetDeliveredAt", mock.Anything, int64(1), testNow).Return(nil)
	trackingRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	uc := newAdminOrderUsecaseForTest(tx, audit, false)

	err := uc.AdvanceTracking(ctx, 9, 1, usecase.AdvanceTrackingInput{Status: "Delivered"})
	assert.NoError(t, err)

	ordersRepo.AssertNotCalled(t, "SetPaymentStatus", mock.Anything, mock.Anything, mock.Anything)
}

// =====================
// Reject tests
// =====================

func TestAdminOrderUsecase_Reject_Success_RestoresStock(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)
	itemsRepo := new(AdmOrderItemRepoMock)
	trackingRepo := new(AdmTrackingRepoMock)
	invRepo := new(AdmInventoryRepoMock)
	audit := new(AdmAuditRepoMock)

	tx.Repos = &AdmTxReposMock{
		orders:     ordersRepo,
		orderItems: itemsRepo,
		tracking:   trackingRepo,
		inventory:  invRepo,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:     1,
		Status: model.OrderStatusProcessing,
	}, nil)

	itemsRepo.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{
		{ProductID: 101, Quantity: 3},
	}, nil)
	invRepo.On("RestoreStock", mock.Anything, int64(101), int64(3)).Return(nil)

	ordersRepo.On("UpdateStatus", mock.Anything, int64(1), model.OrderStatusRejected).Return(nil)
	trackingRepo.On("Append", mock.Anything, mock.MatchedBy(func(ev model.TrackingEvent) bool {
		return ev.Status == model.OrderStatusRejected
	})).Return(nil)
	audit.On("Create", mock.Anything, mock.MatchedBy(func(log model.AuditLog) bool {
		return log.Action == model.AuditActionRejectOrder
	})).Return(nil)

	uc := newAdminOrderUsecaseForTest(tx, audit, false)

	err := uc.Reject(ctx, 9, 1)
	assert.NoError(t, err)

	invRepo.AssertExpectations(t)
	ordersRepo.AssertExpectations(t)
	audit.AssertExpectations(t)
}

// キャンセル済み注文の拒否は失敗し在庫も動かさない
func TestAdminOrderUsecase_Reject_CancelledOrderFails(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)
	invRepo := new(AdmInventoryRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo, inventory: invRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:     1,
		Status: model.OrderStatusCancelled,
	}, nil)

	uc := newAdminOrderUsecaseForTest(tx, new(AdmAuditRepoMock), false)

	err := uc.Reject(ctx, 9, 1)
	assertErrContains(t, err, "already cancelled")

	invRepo.AssertNotCalled(t, "RestoreStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_Reject_DoubleRejectDoesNotRestoreTwice(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)
	invRepo := new(AdmInventoryRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo, inventory: invRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:     1,
		Status: model.OrderStatusRejected,
	}, nil)

	uc := newAdminOrderUsecaseForTest(tx, new(AdmAuditRepoMock), false)

	err := uc.Reject(ctx, 9, 1)
	assertErrContains(t, err, "already rejected")

	invRepo.AssertNotCalled(t, "RestoreStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_Reject_DeliveredOrderFails(t *testing.T) {
	ctx := context.Background()

	tx := new(AdmTxManagerMock)
	ordersRepo := new(AdmOrderRepoMock)

	tx.Repos = &AdmTxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Order{
		ID:     1,
		Status: model.OrderStatusDelivered,
	}, nil)

	uc := newAdminOrderUsecaseForTest(tx, new(AdmAuditRepoMock), false)

	err := uc.Reject(ctx, 9, 1)
	assertErrContains(t, err, "already delivered")
}
