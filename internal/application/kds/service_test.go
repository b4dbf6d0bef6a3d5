package kds

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/catalog"
	domain "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/order"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, mock.Anything)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

func (m *MockOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) FindCompletedByKdsStatus(ctx context.Context, status domain.KdsStatus, limit int) ([]*domain.Order, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

type MockCatalogProvider struct {
	mock.Mock
}

func (m *MockCatalogProvider) GetCatalog(ctx context.Context, channel string) (catalog.Catalog, error) {
	args := m.Called(ctx, channel)
	return args.Get(0).(catalog.Catalog), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) PostSale(ctx context.Context, sale Sale, requestID string) (string, error) {
	args := m.Called(ctx, sale, requestID)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) GetSaleStatus(ctx context.Context, orderTransactionID string) (string, error) {
	args := m.Called(ctx, orderTransactionID)
	return args.String(0), args.Error(1)
}

func testCatalog() catalog.Catalog {
	return catalog.Catalog{
		Items: []catalog.Item{
			{SKUCode: "SKU-A", Name: "Masala Dose", Price: 100, TaxTypeIDs: []string{"gst5"}, PriceIncludesTax: false, Active: true},
			{SKUCode: "SKU-B", Name: "Filter Coffee", Price: 50, TaxTypeIDs: []string{"gst18"}, PriceIncludesTax: true, Active: true},
		},
		TaxTypes: []catalog.TaxType{
			{ID: "gst5", Name: "GST 5%", Percentage: 5},
			{ID: "gst18", Name: "GST 18%", Percentage: 18},
		},
	}
}

func completedOrder(id string) *domain.Order {
	return &domain.Order{
		OrderID:    id,
		Channel:    "kiosk",
		Type:       domain.TypeDineIn,
		TicketCode: "KTR-7",
		Items: []domain.Line{
			{SKUCode: "SKU-A", Name: "Masala Dose", Quantity: 2, UnitPrice: 100},
			{SKUCode: "SKU-B", Name: "Filter Coffee", Quantity: 1, UnitPrice: 50},
		},
		TotalExcludeTax: 250,
		TotalIncludeTax: 260,
		PaymentStatus:   domain.PaymentCompleted,
		PaymentMethod:   domain.MethodQR,
		ProviderTxnID:   id,
		KdsStatus:       domain.KdsNotPosted,
	}
}

func newTestService(orders *MockOrderRepository, provider *MockCatalogProvider, gateway *MockGateway) *Service {
	return NewService(orders, provider, gateway, "BR-01", logger.NewNop())
}

func TestSync_PostsSaleAndMarksPosted(t *testing.T) {
	// Arrange
	orders := new(MockOrderRepository)
	provider := new(MockCatalogProvider)
	gateway := new(MockGateway)
	service := newTestService(orders, provider, gateway)

	ctx := context.Background()
	o := completedOrder("KTR-AAAA000011")
	provider.On("GetCatalog", ctx, "kiosk").Return(testCatalog(), nil)
	orders.On("Update", ctx, o).Return(nil)

	var posted Sale
	var requestID string
	gateway.On("PostSale", ctx, mock.AnythingOfType("kds.Sale"), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			posted = args.Get(1).(Sale)
			requestID = args.String(2)
		}).
		Return("INV-100", nil).Once()

	// Act
	err := service.Sync(ctx, o)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.KdsPosted, o.KdsStatus)
	assert.Equal(t, "INV-100", o.KdsInvoiceID)
	assert.Empty(t, o.KdsLastError)
	require.NotNil(t, o.KdsLastAttemptAt)

	assert.True(t, strings.HasPrefix(requestID, "kds_KTR-AAAA000011_"))

	assert.Equal(t, "BR-01", posted.BranchCode)
	assert.Equal(t, "Closed", posted.Status)
	assert.Equal(t, "KTR-AAAA000011", posted.SourceInfo.OrderTransactionID)
	assert.Equal(t, "KTR-7", posted.SourceInfo.InvoiceNumber)
	assert.InDelta(t, 250.0, posted.ItemTotalAmount, 0.001)
	assert.InDelta(t, 10.0, posted.TaxAmountExcluded, 0.001)
	assert.InDelta(t, 7.63, posted.TaxAmountIncluded, 0.001)
	assert.InDelta(t, 260.0, posted.BillAmount, 0.001)
	assert.InDelta(t, 260.0, posted.TotalAmount, 0.001)
	require.Len(t, posted.Payments, 1)
	assert.Equal(t, "QR", posted.Payments[0].Mode)
	assert.InDelta(t, 260.0, posted.Payments[0].Amount, 0.001)
	assert.Equal(t, "KTR-AAAA000011", posted.Payments[0].Reference)
}

func TestSync_AlreadyPostedShortCircuits(t *testing.T) {
	// Arrange
	orders := new(MockOrderRepository)
	provider := new(MockCatalogProvider)
	gateway := new(MockGateway)
	service := newTestService(orders, provider, gateway)

	o := completedOrder("KTR-AAAA000022")
	o.KdsStatus = domain.KdsPosted
	o.KdsInvoiceID = "INV-55"

	// Act
	err := service.Sync(context.Background(), o)

	// Assert
	require.NoError(t, err)
	provider.AssertNotCalled(t, "GetCatalog", mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "PostSale", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_SecondCallAfterSuccessDoesNotRepost(t *testing.T) {
	// Arrange
	orders := new(MockOrderRepository)
	provider := new(MockCatalogProvider)
	gateway := new(MockGateway)
	service := newTestService(orders, provider, gateway)

	ctx := context.Background()
	o := completedOrder("KTR-AAAA000033")
	provider.On("GetCatalog", ctx, "kiosk").Return(testCatalog(), nil)
	orders.On("Update", ctx, o).Return(nil)
	gateway.On("PostSale", ctx, mock.AnythingOfType("kds.Sale"), mock.AnythingOfType("string")).
		Return("INV-101", nil).Once()

	// Act: the retry paths call Sync freely after completion.
	require.NoError(t, service.Sync(ctx, o))
	require.NoError(t, service.Sync(ctx, o))

	// Assert
	gateway.AssertNumberOfCalls(t, "PostSale", 1)
	assert.Equal(t, "INV-101", o.KdsInvoiceID)
}

func TestSync_ConflictResolvesExistingSale(t *testing.T) {
	// Arrange
	orders := new(MockOrderRepository)
	provider := new(MockCatalogProvider)
	gateway := new(MockGateway)
	service := newTestService(orders, provider, gateway)

	ctx := context.Background()
	o := completedOrder("KTR-BBBB000011")
	provider.On("GetCatalog", ctx, "kiosk").Return(testCatalog(), nil)
	orders.On("Update", ctx, o).Return(nil)
	gateway.On("PostSale", ctx, mock.AnythingOfType("kds.Sale"), mock.AnythingOfType("string")).
		Return("", ErrConflict)
	gateway.On("GetSaleStatus", ctx, o.OrderID).Return("INV-42", nil)

	// Act
	err := service.Sync(ctx, o)

	// Assert: the conflict recovers, it does not fail the order.
	require.NoError(t, err)
	assert.Equal(t, domain.KdsPosted, o.KdsStatus)
	assert.Equal(t, "INV-42", o.KdsInvoiceID)
	assert.Empty(t, o.KdsLastError)
}

func TestSync_ConflictWithoutResolvableSaleFails(t *testing.T) {
	// Arrange
	orders := new(MockOrderRepository)
	provider := new(MockCatalogProvider)
	gateway := new(MockGateway)
	service := newTestService(orders, provider, gateway)

	ctx := context.Background()
	o := completedOrder("KTR-BBBB000022")
	provider.On("GetCatalog", ctx, "kiosk").Return(testCatalog(), nil)
	orders.On("Update", ctx, o).Return(nil)
	gateway.On("PostSale", ctx, mock.AnythingOfType("kds.Sale"), mock.AnythingOfType("string")).
		Return("", ErrConflict)
	gateway.On("GetSaleStatus", ctx, o.OrderID).Return("", nil)

	// Act
	err := service.Sync(ctx, o)

	// Assert
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, domain.KdsFailed, o.KdsStatus)
}

func TestSync_CatalogFailureMarksFailed(t *testing.T) {
	// Arrange
	orders := new(MockOrderRepository)
	provider := new(MockCatalogProvider)
	gateway := new(MockGateway)
	service := newTestService(orders, provider, gateway)

	ctx := context.Background()
	o := completedOrder("KTR-CCCC000011")
	provider.On("GetCatalog", ctx, "kiosk").Return(catalog.Catalog{}, catalog.ErrUnavailable)
	orders.On("Update", ctx, o).Return(nil)

	// Act
	err := service.Sync(ctx, o)

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
	assert.Equal(t, domain.KdsFailed, o.KdsStatus)
	assert.Contains(t, o.KdsLastError, "catalog error")
	gateway.AssertNotCalled(t, "PostSale", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_UnknownSKUMarksFailed(t *testing.T) {
	// Arrange
	orders := new(MockOrderRepository)
	provider := new(MockCatalogProvider)
	gateway := new(MockGateway)
	service := newTestService(orders, provider, gateway)

	ctx := context.Background()
	o := completedOrder("KTR-CCCC000022")
	o.Items = append(o.Items, domain.Line{SKUCode: "SKU-GONE", Name: "Delisted", Quantity: 1, UnitPrice: 10})
	provider.On("GetCatalog", ctx, "kiosk").Return(testCatalog(), nil)
	orders.On("Update", ctx, o).Return(nil)

	// Act
	err := service.Sync(ctx, o)

	// Assert
	require.Error(t, err)
	assert.Equal(t, domain.KdsFailed, o.KdsStatus)
	assert.Contains(t, o.KdsLastError, "SKU-GONE")
	gateway.AssertNotCalled(t, "PostSale", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_PostFailureMarksFailedThenRetrySucceeds(t *testing.T) {
	// Arrange
	orders := new(MockOrderRepository)
	provider := new(MockCatalogProvider)
	gateway := new(MockGateway)
	service := newTestService(orders, provider, gateway)

	ctx := context.Background()
	o := completedOrder("KTR-DDDD000011")
	provider.On("GetCatalog", ctx, "kiosk").Return(testCatalog(), nil)
	orders.On("Update", ctx, o).Return(nil)
	gateway.On("PostSale", ctx, mock.AnythingOfType("kds.Sale"), mock.AnythingOfType("string")).
		Return("", errors.New("upstream 503")).Once()
	gateway.On("PostSale", ctx, mock.AnythingOfType("kds.Sale"), mock.AnythingOfType("string")).
		Return("INV-77", nil).Once()

	// Act
	err := service.Sync(ctx, o)
	require.Error(t, err)
	assert.Equal(t, domain.KdsFailed, o.KdsStatus)
	assert.Contains(t, o.KdsLastError, "upstream 503")

	err = service.Sync(ctx, o)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.KdsPosted, o.KdsStatus)
	assert.Equal(t, "INV-77", o.KdsInvoiceID)
	assert.Empty(t, o.KdsLastError)
}
