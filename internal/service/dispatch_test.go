package service

import (
	"context"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/fulfillment/internal/models"
	"example.com/backstage/services/fulfillment/internal/repository"
)

func TestCheckDispatchCapacity(t *testing.T) {
	orderID := uuid.New()

	require.NoError(t, checkDispatchCapacity(orderID, 10, 0, 10))
	require.NoError(t, checkDispatchCapacity(orderID, 10, 7, 3))
	require.NoError(t, checkDispatchCapacity(orderID, 10, 10, 0))
}

func TestCheckDispatchCapacityExceeded(t *testing.T) {
	orderID := uuid.New()

	err := checkDispatchCapacity(orderID, 10, 8, 3)

	var overErr *OverDispatchError
	require.ErrorAs(t, err, &overErr)
	require.Equal(t, orderID, overErr.OrderID)
	require.Equal(t, 3, overErr.Requested)
	require.Equal(t, 10, overErr.Ordered)
	require.Equal(t, 8, overErr.Dispatched)
	require.Contains(t, err.Error(), "10 ordered")
	require.Contains(t, err.Error(), "8 already dispatched")
	require.Contains(t, err.Error(), "2 available")
}

func TestCreateDispatchOrderNotFound(t *testing.T) {
	mockOrders := new(MockOrderRepository)
	mockOrders.On("GetByID", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	service := &FulfillmentService{orderRepo: mockOrders}

	req := &CreateDispatchRequest{
		OrderID:      uuid.New(),
		DispatchDate: time.Now(),
		Quantity:     3,
	}
	_, err := service.CreateDispatch(context.Background(), req, nil)

	var notFoundErr *NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	require.Equal(t, "order", notFoundErr.Entity)
	mockOrders.AssertExpectations(t)
}

func TestCreateDispatchOverCapacity(t *testing.T) {
	orderID := uuid.New()

	mockOrders := new(MockOrderRepository)
	mockOrders.On("GetByID", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, OrderedQuantity: 10, Status: models.OrderStatusPartial}, nil)

	mockDispatches := new(MockDispatchRepository)
	mockDispatches.On("TotalForOrder", mock.Anything, orderID).Return(8, nil)

	service := &FulfillmentService{orderRepo: mockOrders, dispatchRepo: mockDispatches}

	req := &CreateDispatchRequest{
		OrderID:      orderID,
		DispatchDate: time.Now(),
		Quantity:     3,
	}
	_, err := service.CreateDispatch(context.Background(), req, nil)

	var overErr *OverDispatchError
	require.ErrorAs(t, err, &overErr)
	require.Equal(t, 3, overErr.Requested)
	mockOrders.AssertExpectations(t)
	mockDispatches.AssertExpectations(t)
}

func TestCreateDispatchInvalidQuantity(t *testing.T) {
	orderID := uuid.New()

	mockOrders := new(MockOrderRepository)
	mockOrders.On("GetByID", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, OrderedQuantity: 10}, nil)

	mockDispatches := new(MockDispatchRepository)
	mockDispatches.On("TotalForOrder", mock.Anything, orderID).Return(0, nil)

	service := &FulfillmentService{orderRepo: mockOrders, dispatchRepo: mockDispatches}

	req := &CreateDispatchRequest{
		OrderID:      orderID,
		DispatchDate: time.Now(),
		Quantity:     0,
	}
	_, err := service.CreateDispatch(context.Background(), req, nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestUpdateDispatchNotFound(t *testing.T) {
	mockDispatches := new(MockDispatchRepository)
	mockDispatches.On("GetByID", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	service := &FulfillmentService{dispatchRepo: mockDispatches}

	_, err := service.UpdateDispatch(context.Background(), uuid.New(), &UpdateDispatchRequest{}, nil)

	var notFoundErr *NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	require.Equal(t, "dispatch", notFoundErr.Entity)
}

func TestUpdateDispatchQuantityOverCapacity(t *testing.T) {
	orderID := uuid.New()
	dispatchID := uuid.New()

	mockDispatches := new(MockDispatchRepository)
	mockDispatches.On("GetByID", mock.Anything, dispatchID).
		Return(&models.Dispatch{ID: dispatchID, OrderID: orderID, Quantity: 4}, nil)
	mockDispatches.On("TotalForOrder", mock.Anything, orderID).Return(10, nil)

	mockOrders := new(MockOrderRepository)
	mockOrders.On("GetByID", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, OrderedQuantity: 10}, nil)

	service := &FulfillmentService{orderRepo: mockOrders, dispatchRepo: mockDispatches}

	// Other dispatches hold 6 of 10, so this one can grow to 4 at most.
	newQuantity := 5
	_, err := service.UpdateDispatch(context.Background(), dispatchID, &UpdateDispatchRequest{Quantity: &newQuantity}, nil)

	var overErr *OverDispatchError
	require.ErrorAs(t, err, &overErr)
	require.Equal(t, 5, overErr.Requested)
	require.Equal(t, 6, overErr.Dispatched)
}

func TestExtractDispatchDetails(t *testing.T) {
	orderID := uuid.New()
	message := &azservicebus.ReceivedMessage{
		Body: []byte(`{"order_id":"` + orderID.String() + `","quantity":4,"vehicle_number":"KBX 123A"}`),
	}

	payload, err := ExtractDispatchDetails(message)

	require.NoError(t, err)
	require.Equal(t, orderID, payload.OrderID)
	require.Equal(t, 4, payload.Quantity)
	require.Equal(t, "KBX 123A", *payload.VehicleNumber)
	require.False(t, payload.DispatchDate.IsZero())
}

func TestExtractDispatchDetailsMalformed(t *testing.T) {
	message := &azservicebus.ReceivedMessage{Body: []byte(`not json`)}

	_, err := ExtractDispatchDetails(message)

	require.Error(t, err)
}
