package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Repository mocks (Product向け：衝突回避)
// =====================

type ProdProductRepoMock struct{ mock.Mock }

func (m *ProdProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ProdProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProdProductRepoMock) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	args := m.Called(ctx, slug)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProdProductRepoMock) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *ProdProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProdProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProdProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProdProductRepoMock) SetRating(ctx context.Context, productID int64, rating float64, numReviews int64) error {
	panic("not used in ProductUsecase tests")
}

type ProdInventoryRepoMock struct{ mock.Mock }

func (m *ProdInventoryRepoMock) SellStock(ctx context.Context, productID int64, qty int64) (bool, error) {
	panic("not used in ProductUsecase tests")
}

func (m *ProdInventoryRepoMock) RestoreStock(ctx context.Context, productID int64, qty int64) error {
	panic("not used in ProductUsecase tests")
}

func (m *ProdInventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	args := m.Called(ctx, productID, newStock)
	return args.Error(0)
}

func (m *ProdInventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

type ProdAuditRepoMock struct{ mock.Mock }

func (m *ProdAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *ProdAuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	panic("not used in ProductUsecase tests")
}

func newProductUsecaseForTest(p *ProdProductRepoMock, inv *ProdInventoryRepoMock, audit *ProdAuditRepoMock) *usecase.ProductUsecase {
	return usecase.NewProductUsecase(p, inv, audit, fixedClock{now: testNow})
}

// =====================
// Slugify tests
// =====================

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Wireless Mouse", "wireless-mouse"},
		{"  USB-C  Hub  (2024) ", "usb-c-hub-2024"},
		{"ThinkPad X1", "thinkpad-x1"},
		{"!!!", ""},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, usecase.Slugify(c.in), "in=%q", c.in)
	}
}

// =====================
// ListPublicProducts tests
// =====================

func TestProductUsecase_ListPublicProducts_InvalidSort(t *testing.T) {
	uc := newProductUsecaseForTest(new(ProdProductRepoMock), new(ProdInventoryRepoMock), new(ProdAuditRepoMock))

	_, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{
		Page: 1, Limit: 20, Sort: "cheapest",
	})
	assertErrContains(t, err, "invalid sort")
}

func TestProductUsecase_ListPublicProducts_MinAboveMax(t *testing.T) {
	uc := newProductUsecaseForTest(new(ProdProductRepoMock), new(ProdInventoryRepoMock), new(ProdAuditRepoMock))

	minP := int64(500)
	maxP := int64(100)
	_, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{
		Page: 1, Limit: 20, MinPrice: &minP, MaxPrice: &maxP,
	})
	assertErrContains(t, err, "min_price must be <= max_price")
}

func TestProductUsecase_ListPublicProducts_Success(t *testing.T) {
	prodRepo := new(ProdProductRepoMock)
	uc := newProductUsecaseForTest(prodRepo, new(ProdInventoryRepoMock), new(ProdAuditRepoMock))

	prodRepo.On("ListPublic", mock.Anything, mock.MatchedBy(func(q repo.ProductListQuery) bool {
		return q.Page == 1 && q.Limit == 20 && q.Sort == "price_asc"
	})).Return([]model.Product{{ID: 1}}, int64(1), nil)

	out, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{
		Page: 1, Limit: 20, Sort: "price_asc",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)

	prodRepo.AssertExpectations(t)
}

// 非公開商品は詳細でも見えない
func TestProductUsecase_GetProductDetail_InactiveHidden(t *testing.T) {
	prodRepo := new(ProdProductRepoMock)
	uc := newProductUsecaseForTest(prodRepo, new(ProdInventoryRepoMock), new(ProdAuditRepoMock))

	prodRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, IsActive: false}, nil)

	_, err := uc.GetProductDetail(context.Background(), 1)
	assertErrContains(t, err, "product not found")
}

// =====================
// AdminCreateProduct tests
// =====================

func TestProductUsecase_AdminCreateProduct_SlugConflictGetsSuffix(t *testing.T) {
	prodRepo := new(ProdProductRepoMock)
	uc := newProductUsecaseForTest(prodRepo, new(ProdInventoryRepoMock), new(ProdAuditRepoMock))

	prodRepo.On("SlugExists", mock.Anything, "wireless-mouse").Return(true, nil)
	prodRepo.On("SlugExists", mock.Anything, "wireless-mouse-2").Return(false, nil)

	prodRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.Product) bool {
		return p.Slug == "wireless-mouse-2" && p.Title == "Wireless Mouse"
	})).Return(model.Product{ID: 5, Slug: "wireless-mouse-2"}, nil)

	created, err := uc.AdminCreateProduct(context.Background(), 9, usecase.AdminProductInput{
		Title:     "Wireless Mouse",
		Category:  "accessories",
		Price:     decimal.NewFromInt(100),
		Stock:     10,
		Condition: "New",
		IsActive:  true,
	})
	assert.NoError(t, err)
	assert.Equal(t, "wireless-mouse-2", created.Slug)

	prodRepo.AssertExpectations(t)
}

func TestProductUsecase_AdminCreateProduct_InvalidDiscount(t *testing.T) {
	uc := newProductUsecaseForTest(new(ProdProductRepoMock), new(ProdInventoryRepoMock), new(ProdAuditRepoMock))

	_, err := uc.AdminCreateProduct(context.Background(), 9, usecase.AdminProductInput{
		Title:     "X",
		Category:  "c",
		Price:     decimal.NewFromInt(100),
		Discount:  101,
		Condition: "New",
	})
	assertErrContains(t, err, "discount must be 0-100")
}

// =====================
// AdminUpdateInventory tests
// =====================

func TestProductUsecase_AdminUpdateInventory_RecordsDeltaAndAudit(t *testing.T) {
	prodRepo := new(ProdProductRepoMock)
	invRepo := new(ProdInventoryRepoMock)
	audit := new(ProdAuditRepoMock)
	uc := newProductUsecaseForTest(prodRepo, invRepo, audit)

	prodRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Stock: 10}, nil)
	invRepo.On("SetStock", mock.Anything, int64(1), int64(25)).Return(nil)

	invRepo.On("CreateAdjustment", mock.Anything, mock.MatchedBy(func(adj model.InventoryAdjustment) bool {
		return adj.ProductID == 1 && adj.AdminUserID == 9 && adj.Delta == 15 && adj.Reason == "restock"
	})).Return(nil)

	audit.On("Create", mock.Anything, mock.MatchedBy(func(log model.AuditLog) bool {
		return log.ActorUserID == 9 &&
			log.Action == model.AuditActionUpdateStock &&
			log.ResourceID == 1
	})).Return(nil)

	err := uc.AdminUpdateInventory(context.Background(), 9, 1, 25, "restock")
	assert.NoError(t, err)

	invRepo.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestProductUsecase_AdminUpdateInventory_NegativeStock(t *testing.T) {
	uc := newProductUsecaseForTest(new(ProdProductRepoMock), new(ProdInventoryRepoMock), new(ProdAuditRepoMock))

	err := uc.AdminUpdateInventory(context.Background(), 9, 1, -1, "oops")
	assertErrContains(t, err, "stock must be >= 0")
}

func TestProductUsecase_AdminUpdateInventory_ReasonRequired(t *testing.T) {
	uc := newProductUsecaseForTest(new(ProdProductRepoMock), new(ProdInventoryRepoMock), new(ProdAuditRepoMock))

	err := uc.AdminUpdateInventory(context.Background(), 9, 1, 5, "  ")
	assertErrContains(t, err, "reason is required")
}
