package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/fulfillment/internal/cache"
	"example.com/backstage/services/fulfillment/internal/models"
	"example.com/backstage/services/fulfillment/internal/repository"
)

// CreateDispatchRequest defines the request to record a dispatch
type CreateDispatchRequest struct {
	OrderID       uuid.UUID `json:"order_id" validate:"required"`
	DispatchDate  time.Time `json:"dispatch_date" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,gt=0"`
	VehicleNumber *string   `json:"vehicle_number"`
	Remarks       *string   `json:"remarks"`
}

// UpdateDispatchRequest defines the patch to apply to a dispatch. Nil
// fields are left unchanged.
type UpdateDispatchRequest struct {
	DispatchDate  *time.Time `json:"dispatch_date"`
	Quantity      *int       `json:"quantity" validate:"omitempty,gt=0"`
	VehicleNumber *string    `json:"vehicle_number"`
	Remarks       *string    `json:"remarks"`
}

// checkDispatchCapacity enforces the dispatch ceiling: the requested
// quantity must fit into what is still undispatched.
func checkDispatchCapacity(orderID uuid.UUID, ordered, dispatched, requested int) error {
	if requested > ordered-dispatched {
		return &OverDispatchError{
			OrderID:    orderID,
			Requested:  requested,
			Ordered:    ordered,
			Dispatched: dispatched,
		}
	}
	return nil
}

// CreateDispatch records a fulfillment event against an order. The dispatch
// insert, the order status recomputation, the schedule redistribution and
// the audit entry commit as one transaction; the capacity check is repeated
// under a row lock on the order so concurrent dispatches cannot race past it.
func (s *FulfillmentService) CreateDispatch(ctx context.Context, req *CreateDispatchRequest, actorID *uuid.UUID) (dispatch *models.Dispatch, err error) {
	txn := s.startTransaction("create-dispatch")
	defer s.endTransaction(txn)
	defer func() { s.countOutcome("create_dispatch", err) }()

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "order", ID: req.OrderID}
		}
		return nil, err
	}

	totalDispatched, err := s.dispatchRepo.TotalForOrder(ctx, req.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate dispatched quantity")
	}
	if err = checkDispatchCapacity(order.ID, order.OrderedQuantity, totalDispatched, req.Quantity); err != nil {
		s.noticeError(txn, err)
		return nil, err
	}

	if err = validateStruct(req); err != nil {
		return nil, err
	}

	dispatch = &models.Dispatch{
		ID:             uuid.New(),
		OrderID:        req.OrderID,
		DispatchDate:   req.DispatchDate,
		Quantity:       req.Quantity,
		VehicleNumber:  req.VehicleNumber,
		Remarks:        req.Remarks,
		DispatchedByID: actorID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := repository.LockOrder(tx, req.OrderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &NotFoundError{Entity: "order", ID: req.OrderID}
			}
			return err
		}

		// Re-check under the lock: another dispatch may have landed between
		// the first check and here.
		lockedTotal, err := repository.SumDispatched(tx, req.OrderID)
		if err != nil {
			return errors.Wrap(err, "failed to aggregate dispatched quantity")
		}
		if err := checkDispatchCapacity(locked.ID, locked.OrderedQuantity, lockedTotal, req.Quantity); err != nil {
			return err
		}

		if err := tx.Create(dispatch).Error; err != nil {
			return errors.Wrap(err, "failed to create dispatch")
		}
		if _, err := reconcileOrderTx(tx, locked); err != nil {
			return err
		}
		return writeAudit(tx, actorID, dispatchTable, dispatch.ID, models.AuditActionCreate, nil, dispatch)
	})
	if err != nil {
		s.noticeError(txn, err)
		return nil, err
	}

	s.afterDispatchMutation(ctx, "dispatch.created", dispatch)

	log.Info().
		Str("dispatch_id", dispatch.ID.String()).
		Str("order_id", dispatch.OrderID.String()).
		Int("quantity", dispatch.Quantity).
		Msg("Dispatch created")

	return dispatch, nil
}

// UpdateDispatch applies a patch to a dispatch and re-runs the order
// reconciliation under the same transaction.
func (s *FulfillmentService) UpdateDispatch(ctx context.Context, id uuid.UUID, req *UpdateDispatchRequest, actorID *uuid.UUID) (dispatch *models.Dispatch, err error) {
	txn := s.startTransaction("update-dispatch")
	defer s.endTransaction(txn)
	defer func() { s.countOutcome("update_dispatch", err) }()

	dispatch, err = s.dispatchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "dispatch", ID: id}
		}
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, dispatch.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "order", ID: dispatch.OrderID}
		}
		return nil, err
	}

	if req.Quantity != nil && *req.Quantity != dispatch.Quantity {
		totalDispatched, err := s.dispatchRepo.TotalForOrder(ctx, order.ID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to aggregate dispatched quantity")
		}
		othersDispatched := totalDispatched - dispatch.Quantity
		if err = checkDispatchCapacity(order.ID, order.OrderedQuantity, othersDispatched, *req.Quantity); err != nil {
			s.noticeError(txn, err)
			return nil, err
		}
	}

	if err = validateStruct(req); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := repository.LockOrder(tx, dispatch.OrderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &NotFoundError{Entity: "order", ID: dispatch.OrderID}
			}
			return err
		}

		prior := *dispatch
		quantityChanged := false
		if req.DispatchDate != nil {
			dispatch.DispatchDate = *req.DispatchDate
		}
		if req.Quantity != nil && *req.Quantity != dispatch.Quantity {
			lockedTotal, err := repository.SumDispatched(tx, locked.ID)
			if err != nil {
				return errors.Wrap(err, "failed to aggregate dispatched quantity")
			}
			if err := checkDispatchCapacity(locked.ID, locked.OrderedQuantity, lockedTotal-dispatch.Quantity, *req.Quantity); err != nil {
				return err
			}
			dispatch.Quantity = *req.Quantity
			quantityChanged = true
		}
		if req.VehicleNumber != nil {
			dispatch.VehicleNumber = req.VehicleNumber
		}
		if req.Remarks != nil {
			dispatch.Remarks = req.Remarks
		}

		if err := tx.Save(dispatch).Error; err != nil {
			return errors.Wrap(err, "failed to update dispatch")
		}
		if quantityChanged {
			if _, err := reconcileOrderTx(tx, locked); err != nil {
				return err
			}
		}
		return writeAudit(tx, actorID, dispatchTable, dispatch.ID, models.AuditActionUpdate, &prior, dispatch)
	})
	if err != nil {
		s.noticeError(txn, err)
		return nil, err
	}

	s.afterDispatchMutation(ctx, "dispatch.updated", dispatch)

	log.Info().
		Str("dispatch_id", dispatch.ID.String()).
		Str("order_id", dispatch.OrderID.String()).
		Msg("Dispatch updated")

	return dispatch, nil
}

// DeleteDispatch removes a dispatch and reconciles the owning order, which
// can move its status backwards and reopen scheduled deliveries.
func (s *FulfillmentService) DeleteDispatch(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (deleted bool, err error) {
	txn := s.startTransaction("delete-dispatch")
	defer s.endTransaction(txn)
	defer func() { s.countOutcome("delete_dispatch", err) }()

	dispatch, err := s.dispatchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, &NotFoundError{Entity: "dispatch", ID: id}
		}
		return false, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := writeAudit(tx, actorID, dispatchTable, dispatch.ID, models.AuditActionDelete, dispatch, nil); err != nil {
			return err
		}
		if err := tx.Delete(&models.Dispatch{}, "id = ?", id).Error; err != nil {
			return errors.Wrap(err, "failed to delete dispatch")
		}

		locked, err := repository.LockOrder(tx, dispatch.OrderID)
		if err != nil {
			// An orphaned dispatch can still be deleted; there is no order
			// left to reconcile.
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		_, err = reconcileOrderTx(tx, locked)
		return err
	})
	if err != nil {
		s.noticeError(txn, err)
		return false, err
	}

	s.invalidateOrderCache(ctx, dispatch.OrderID)
	s.publishEvent(ctx, "dispatch.deleted", dispatch)

	log.Info().
		Str("dispatch_id", id.String()).
		Str("order_id", dispatch.OrderID.String()).
		Msg("Dispatch deleted")

	return true, nil
}

// GetDispatch loads a single dispatch.
func (s *FulfillmentService) GetDispatch(ctx context.Context, id uuid.UUID) (*models.Dispatch, error) {
	dispatch, err := s.dispatchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "dispatch", ID: id}
		}
		return nil, err
	}
	return dispatch, nil
}

// ListDispatches lists an order's dispatches.
func (s *FulfillmentService) ListDispatches(ctx context.Context, orderID uuid.UUID) ([]*models.Dispatch, error) {
	if _, err := s.orderRepo.GetByID(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, err
	}
	return s.dispatchRepo.ListByOrder(ctx, orderID)
}

// GetScheduledDeliveries returns the full schedule of a recurring order in
// sequence order.
func (s *FulfillmentService) GetScheduledDeliveries(ctx context.Context, orderID uuid.UUID) ([]*models.ScheduledDelivery, error) {
	if s.cache != nil {
		var cached []*models.ScheduledDelivery
		if err := s.cache.Get(ctx, cache.ScheduleKey(orderID.String()), &cached); err == nil {
			return cached, nil
		}
	}

	if _, err := s.orderRepo.GetByID(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, err
	}

	deliveries, err := s.scheduleRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.ScheduleKey(orderID.String()), deliveries, 5*time.Minute); err != nil {
			log.Debug().Err(err).Str("order_id", orderID.String()).Msg("Failed to cache schedule")
		}
	}
	return deliveries, nil
}

// DispatchHistory returns the audit trail of a dispatch, oldest entry first.
func (s *FulfillmentService) DispatchHistory(ctx context.Context, id uuid.UUID) ([]*models.AuditLog, error) {
	return s.auditRepo.ListByRecord(ctx, dispatchTable, id)
}

// SearchDispatches runs a query against the dispatch search index.
func (s *FulfillmentService) SearchDispatches(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	if s.elasticClient == nil {
		return nil, errors.New("search is not configured")
	}
	return s.elasticClient.SearchDispatches(ctx, query)
}

// afterDispatchMutation runs the best-effort side effects of a committed
// dispatch write: cache invalidation, search indexing, event publication.
func (s *FulfillmentService) afterDispatchMutation(ctx context.Context, eventType string, dispatch *models.Dispatch) {
	s.invalidateOrderCache(ctx, dispatch.OrderID)

	if s.elasticClient != nil {
		order, err := s.orderRepo.GetByID(ctx, dispatch.OrderID)
		if err != nil {
			log.Warn().Err(err).Str("dispatch_id", dispatch.ID.String()).Msg("Failed to load order for indexing")
		} else if err := s.elasticClient.IndexDispatch(ctx, dispatch, order); err != nil {
			log.Warn().Err(err).Str("dispatch_id", dispatch.ID.String()).Msg("Failed to index dispatch")
		}
	}

	s.publishEvent(ctx, eventType, dispatch)
}

// DispatchPayload is the wire form of a field-recorded dispatch arriving on
// the service bus.
type DispatchPayload struct {
	OrderID       uuid.UUID  `json:"order_id"`
	DispatchDate  time.Time  `json:"dispatch_date"`
	Quantity      int        `json:"quantity"`
	VehicleNumber *string    `json:"vehicle_number"`
	Remarks       *string    `json:"remarks"`
	ActorID       *uuid.UUID `json:"actor_id"`
}

// ProcessDispatchMessage processes a dispatch message from the service bus
func (s *FulfillmentService) ProcessDispatchMessage(ctx context.Context, message *azservicebus.ReceivedMessage, txn *newrelic.Transaction) error {
	payload, err := ExtractDispatchDetails(message)
	if err != nil {
		return errors.Wrap(err, "failed to extract dispatch details")
	}

	req := &CreateDispatchRequest{
		OrderID:       payload.OrderID,
		DispatchDate:  payload.DispatchDate,
		Quantity:      payload.Quantity,
		VehicleNumber: payload.VehicleNumber,
		Remarks:       payload.Remarks,
	}

	dispatch, err := s.CreateDispatch(ctx, req, payload.ActorID)
	if err != nil {
		s.noticeError(txn, err)
		return errors.Wrap(err, "failed to create dispatch from message")
	}

	log.Info().
		Str("dispatch_id", dispatch.ID.String()).
		Str("order_id", dispatch.OrderID.String()).
		Msg("Dispatch message processed")
	return nil
}

// ExtractDispatchDetails extracts a dispatch payload from a message
func ExtractDispatchDetails(message *azservicebus.ReceivedMessage) (*DispatchPayload, error) {
	var payload DispatchPayload
	if err := json.Unmarshal(message.Body, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal dispatch payload")
	}
	if payload.DispatchDate.IsZero() {
		payload.DispatchDate = time.Now()
	}
	return &payload, nil
}
