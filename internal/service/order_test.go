package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/fulfillment/internal/models"
	"example.com/backstage/services/fulfillment/internal/repository"
)

// Mock repositories for testing
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, status *models.OrderStatus, limit, offset int) ([]*models.Order, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockOrderRepository) ListRecurring(ctx context.Context, limit int) ([]*models.Order, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.Order), args.Error(1)
}

type MockDispatchRepository struct {
	mock.Mock
}

func (m *MockDispatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispatch), args.Error(1)
}

func (m *MockDispatchRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Dispatch, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]*models.Dispatch), args.Error(1)
}

func (m *MockDispatchRepository) TotalForOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	args := m.Called(ctx, orderID)
	return args.Int(0), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

type MockPartyRepository struct {
	mock.Mock
}

func (m *MockPartyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Party), args.Error(1)
}

func validCreateOrderRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		OrderDate:       time.Now(),
		OrderedQuantity: 10,
		ProductID:       uuid.New(),
		PartyID:         uuid.New(),
		CompanyID:       uuid.New(),
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	number := generateOrderNumber(at)

	require.Regexp(t, `^ORD-202603-\d{6}$`, number)
}

func TestCreateOrderValidationFailure(t *testing.T) {
	service := &FulfillmentService{}

	_, err := service.CreateOrder(context.Background(), &CreateOrderRequest{}, nil)

	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.NotEmpty(t, validationErr.Violations)
}

func TestCreateOrderNonPositiveQuantity(t *testing.T) {
	service := &FulfillmentService{}

	req := validCreateOrderRequest()
	req.OrderedQuantity = -5

	_, err := service.CreateOrder(context.Background(), req, nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestCreateOrderRecurringMissingParameters(t *testing.T) {
	service := &FulfillmentService{}

	req := validCreateOrderRequest()
	req.IsRecurring = true

	_, err := service.CreateOrder(context.Background(), req, nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Violations, 2)
}

func TestCreateOrderRecurringTooManyDeliveries(t *testing.T) {
	service := &FulfillmentService{}

	req := validCreateOrderRequest()
	req.IsRecurring = true
	frequency := 7
	trucks := 5
	deliveries := 5
	req.FrequencyDays = &frequency
	req.TrucksPerDelivery = &trucks
	req.TotalDeliveries = &deliveries

	// 4 deliveries of 5 trucks already exceed the 10 ordered; the fifth
	// slot would have to be negative.
	_, err := service.CreateOrder(context.Background(), req, nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Violations[0], "TotalDeliveries")
}

func TestCheckOrderEditable(t *testing.T) {
	order := &models.Order{ID: uuid.New(), Status: models.OrderStatusPartial}
	require.NoError(t, checkOrderEditable(order))

	order.Status = models.OrderStatusCompleted

	err := checkOrderEditable(order)
	var lockedErr *OrderLockedError
	require.ErrorAs(t, err, &lockedErr)
	require.Equal(t, order.ID, lockedErr.OrderID)
}

func TestCheckQuantityFloor(t *testing.T) {
	orderID := uuid.New()

	require.NoError(t, checkQuantityFloor(orderID, 10, 4))
	require.NoError(t, checkQuantityFloor(orderID, 10, 10))

	err := checkQuantityFloor(orderID, 3, 5)

	var floorErr *QuantityBelowDispatchedError
	require.ErrorAs(t, err, &floorErr)
	require.Equal(t, orderID, floorErr.OrderID)
	require.Equal(t, 3, floorErr.Requested)
	require.Equal(t, 5, floorErr.Dispatched)
	require.Contains(t, err.Error(), "3 trucks")
	require.Contains(t, err.Error(), "5 already dispatched")
}

func TestCreateOrderProductNotFound(t *testing.T) {
	mockProducts := new(MockProductRepository)
	mockProducts.On("GetByID", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	service := &FulfillmentService{productRepo: mockProducts}

	_, err := service.CreateOrder(context.Background(), validCreateOrderRequest(), nil)

	var refErr *ReferenceNotFoundError
	require.ErrorAs(t, err, &refErr)
	require.Equal(t, "product", refErr.Reference)
	require.False(t, refErr.Inactive)
	mockProducts.AssertExpectations(t)
}

func TestCreateOrderInactiveProduct(t *testing.T) {
	mockProducts := new(MockProductRepository)
	mockProducts.On("GetByID", mock.Anything, mock.Anything).
		Return(&models.Product{ID: uuid.New(), IsActive: false}, nil)

	service := &FulfillmentService{productRepo: mockProducts}

	_, err := service.CreateOrder(context.Background(), validCreateOrderRequest(), nil)

	var refErr *ReferenceNotFoundError
	require.ErrorAs(t, err, &refErr)
	require.True(t, refErr.Inactive)
}

func TestCreateOrderPartyNotFound(t *testing.T) {
	mockProducts := new(MockProductRepository)
	mockProducts.On("GetByID", mock.Anything, mock.Anything).
		Return(&models.Product{ID: uuid.New(), IsActive: true}, nil)

	mockParties := new(MockPartyRepository)
	mockParties.On("GetByID", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	service := &FulfillmentService{productRepo: mockProducts, partyRepo: mockParties}

	_, err := service.CreateOrder(context.Background(), validCreateOrderRequest(), nil)

	var refErr *ReferenceNotFoundError
	require.ErrorAs(t, err, &refErr)
	require.Equal(t, "party", refErr.Reference)
}

func TestUpdateOrderNotFound(t *testing.T) {
	mockOrders := new(MockOrderRepository)
	mockOrders.On("GetByID", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	service := &FulfillmentService{orderRepo: mockOrders}

	_, err := service.UpdateOrder(context.Background(), uuid.New(), &UpdateOrderRequest{}, nil)

	var notFoundErr *NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	require.Equal(t, "order", notFoundErr.Entity)
}

func TestUpdateOrderCompletedIsLocked(t *testing.T) {
	orderID := uuid.New()
	mockOrders := new(MockOrderRepository)
	mockOrders.On("GetByID", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, Status: models.OrderStatusCompleted, OrderedQuantity: 10}, nil)

	service := &FulfillmentService{orderRepo: mockOrders}

	newQuantity := 20
	_, err := service.UpdateOrder(context.Background(), orderID, &UpdateOrderRequest{OrderedQuantity: &newQuantity}, nil)

	var lockedErr *OrderLockedError
	require.ErrorAs(t, err, &lockedErr)
	require.Equal(t, orderID, lockedErr.OrderID)
}
