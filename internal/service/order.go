package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/fulfillment/internal/cache"
	"example.com/backstage/services/fulfillment/internal/models"
	"example.com/backstage/services/fulfillment/internal/repository"
)

// CreateOrderRequest defines the request to create an order
type CreateOrderRequest struct {
	OrderDate       time.Time `json:"order_date" validate:"required"`
	OrderedQuantity int       `json:"ordered_quantity" validate:"required,gt=0"`
	Priority        string    `json:"priority" validate:"omitempty,oneof=normal urgent"`
	ProductID       uuid.UUID `json:"product_id" validate:"required"`
	PartyID         uuid.UUID `json:"party_id" validate:"required"`
	CompanyID       uuid.UUID `json:"company_id" validate:"required"`

	IsRecurring       bool `json:"is_recurring"`
	FrequencyDays     *int `json:"frequency_days" validate:"omitempty,gt=0"`
	TrucksPerDelivery *int `json:"trucks_per_delivery" validate:"omitempty,gt=0"`
	TotalDeliveries   *int `json:"total_deliveries" validate:"omitempty,gt=0"`
}

// UpdateOrderRequest defines the patch to apply to an order. Nil fields are
// left unchanged.
type UpdateOrderRequest struct {
	OrderDate       *time.Time `json:"order_date"`
	OrderedQuantity *int       `json:"ordered_quantity" validate:"omitempty,gt=0"`
	Priority        *string    `json:"priority" validate:"omitempty,oneof=normal urgent"`
	ProductID       *uuid.UUID `json:"product_id"`
	PartyID         *uuid.UUID `json:"party_id"`
}

// generateOrderNumber derives a year+month+time-based order number. The
// time component gives practical, not guaranteed, uniqueness.
func generateOrderNumber(t time.Time) string {
	return fmt.Sprintf("ORD-%s-%06d", t.Format("200601"), t.Unix()%1000000)
}

// checkOrderEditable refuses edits to completed orders.
func checkOrderEditable(order *models.Order) error {
	if order.Status == models.OrderStatusCompleted {
		return &OrderLockedError{OrderID: order.ID}
	}
	return nil
}

// checkQuantityFloor refuses an ordered-quantity reduction below what has
// already been dispatched.
func checkQuantityFloor(orderID uuid.UUID, requested, dispatched int) error {
	if requested < dispatched {
		return &QuantityBelowDispatchedError{
			OrderID:    orderID,
			Requested:  requested,
			Dispatched: dispatched,
		}
	}
	return nil
}

// CreateOrder validates the referenced master data, persists the order and,
// for recurring orders, generates its full scheduled-delivery set, all in
// one transaction.
func (s *FulfillmentService) CreateOrder(ctx context.Context, req *CreateOrderRequest, actorID *uuid.UUID) (order *models.Order, err error) {
	txn := s.startTransaction("create-order")
	defer s.endTransaction(txn)
	defer func() { s.countOutcome("create_order", err) }()

	if err = validateStruct(req); err != nil {
		return nil, err
	}
	if req.IsRecurring {
		var violations []string
		if req.FrequencyDays == nil {
			violations = append(violations, "FrequencyDays is required for recurring orders")
		}
		if req.TrucksPerDelivery == nil {
			violations = append(violations, "TrucksPerDelivery is required for recurring orders")
		}
		if len(violations) > 0 {
			return nil, &ValidationError{Violations: violations}
		}

		// A count that front-loads more trucks than were ordered would
		// drive the last slot's quantity negative.
		if req.TotalDeliveries != nil && (*req.TotalDeliveries-1)*(*req.TrucksPerDelivery) > req.OrderedQuantity {
			return nil, &ValidationError{Violations: []string{fmt.Sprintf(
				"TotalDeliveries of %d at %d trucks per delivery cannot sum to the %d ordered",
				*req.TotalDeliveries, *req.TrucksPerDelivery, req.OrderedQuantity,
			)}}
		}
	}

	if _, err = s.resolveProduct(ctx, req.ProductID); err != nil {
		s.noticeError(txn, err)
		return nil, err
	}
	if _, err = s.resolveParty(ctx, req.PartyID); err != nil {
		s.noticeError(txn, err)
		return nil, err
	}

	now := time.Now()
	priority := models.OrderPriority(req.Priority)
	if priority == "" {
		priority = models.OrderPriorityNormal
	}

	order = &models.Order{
		ID:              uuid.New(),
		OrderNumber:     generateOrderNumber(now),
		OrderDate:       req.OrderDate,
		OrderedQuantity: req.OrderedQuantity,
		Priority:        priority,
		Status:          models.OrderStatusPending,
		ProductID:       req.ProductID,
		PartyID:         req.PartyID,
		CompanyID:       req.CompanyID,
		CreatedByID:     actorID,
	}

	if req.IsRecurring {
		order.IsRecurring = true
		order.FrequencyDays = req.FrequencyDays
		order.TrucksPerDelivery = req.TrucksPerDelivery
		totalDeliveries := totalDeliveriesFor(req.OrderedQuantity, *req.TrucksPerDelivery)
		if req.TotalDeliveries != nil {
			totalDeliveries = *req.TotalDeliveries
		}
		order.TotalDeliveries = &totalDeliveries
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return errors.Wrap(err, "failed to create order")
		}

		if rec := order.Recurrence(); rec != nil {
			schedule := buildSchedule(order.ID, order.OrderDate, order.OrderedQuantity,
				rec.FrequencyDays, rec.TrucksPerDelivery, rec.TotalDeliveries)
			if len(schedule) > 0 {
				if err := tx.Create(&schedule).Error; err != nil {
					return errors.Wrap(err, "failed to create scheduled deliveries")
				}
			}
		}

		return writeAudit(tx, actorID, orderTable, order.ID, models.AuditActionCreate, nil, order)
	})
	if err != nil {
		s.noticeError(txn, err)
		return nil, err
	}

	s.invalidateOrderCache(ctx, order.ID)
	s.publishEvent(ctx, "order.created", order)

	log.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Int("ordered_quantity", order.OrderedQuantity).
		Bool("recurring", order.IsRecurring).
		Msg("Order created")

	return order, nil
}

// UpdateOrder applies a patch to a non-completed order and recomputes its
// status from the freshly aggregated dispatched total. Reducing the ordered
// quantity below that total is refused.
func (s *FulfillmentService) UpdateOrder(ctx context.Context, id uuid.UUID, req *UpdateOrderRequest, actorID *uuid.UUID) (order *models.Order, err error) {
	txn := s.startTransaction("update-order")
	defer s.endTransaction(txn)
	defer func() { s.countOutcome("update_order", err) }()

	order, err = s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "order", ID: id}
		}
		return nil, err
	}
	if err = checkOrderEditable(order); err != nil {
		return nil, err
	}

	if err = validateStruct(req); err != nil {
		return nil, err
	}
	if req.ProductID != nil {
		if _, err = s.resolveProduct(ctx, *req.ProductID); err != nil {
			s.noticeError(txn, err)
			return nil, err
		}
	}
	if req.PartyID != nil {
		if _, err = s.resolveParty(ctx, *req.PartyID); err != nil {
			s.noticeError(txn, err)
			return nil, err
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := repository.LockOrder(tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &NotFoundError{Entity: "order", ID: id}
			}
			return err
		}
		order = locked

		// A dispatch landing between the first read and the lock can have
		// completed the order in the meantime.
		if err := checkOrderEditable(locked); err != nil {
			return err
		}

		totalDispatched, err := repository.SumDispatched(tx, id)
		if err != nil {
			return errors.Wrap(err, "failed to aggregate dispatched quantity")
		}
		if req.OrderedQuantity != nil {
			if err := checkQuantityFloor(id, *req.OrderedQuantity, totalDispatched); err != nil {
				return err
			}
		}

		prior := *order
		quantityChanged := false
		if req.OrderDate != nil {
			order.OrderDate = *req.OrderDate
		}
		if req.OrderedQuantity != nil && *req.OrderedQuantity != order.OrderedQuantity {
			order.OrderedQuantity = *req.OrderedQuantity
			quantityChanged = true
		}
		if req.Priority != nil {
			order.Priority = models.OrderPriority(*req.Priority)
		}
		if req.ProductID != nil {
			order.ProductID = *req.ProductID
		}
		if req.PartyID != nil {
			order.PartyID = *req.PartyID
		}
		order.Status = statusFor(totalDispatched, order.OrderedQuantity)

		if err := tx.Save(order).Error; err != nil {
			return errors.Wrap(err, "failed to update order")
		}

		// A quantity change moves the undispatched remainder, so the
		// recurring schedule has to be redistributed to keep the pending
		// slots summing to it.
		if quantityChanged && order.IsRecurring {
			if err := redistributeInTx(tx, order, totalDispatched); err != nil {
				return err
			}
		}

		return writeAudit(tx, actorID, orderTable, order.ID, models.AuditActionUpdate, &prior, order)
	})
	if err != nil {
		s.noticeError(txn, err)
		return nil, err
	}

	s.invalidateOrderCache(ctx, order.ID)
	s.publishEvent(ctx, "order.updated", order)

	log.Info().
		Str("order_id", order.ID.String()).
		Str("status", string(order.Status)).
		Msg("Order updated")

	return order, nil
}

// DeleteOrder removes an order and its scheduled deliveries. Dispatches are
// left in place; the caller is expected to have dealt with them first.
func (s *FulfillmentService) DeleteOrder(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (deleted bool, err error) {
	txn := s.startTransaction("delete-order")
	defer s.endTransaction(txn)
	defer func() { s.countOutcome("delete_order", err) }()

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, &NotFoundError{Entity: "order", ID: id}
		}
		return false, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := writeAudit(tx, actorID, orderTable, order.ID, models.AuditActionDelete, order, nil); err != nil {
			return err
		}
		if order.IsRecurring {
			if err := tx.Where("order_id = ?", id).Delete(&models.ScheduledDelivery{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete scheduled deliveries")
			}
		}
		if err := tx.Delete(&models.Order{}, "id = ?", id).Error; err != nil {
			return errors.Wrap(err, "failed to delete order")
		}
		return nil
	})
	if err != nil {
		s.noticeError(txn, err)
		return false, err
	}

	s.invalidateOrderCache(ctx, order.ID)
	s.publishEvent(ctx, "order.deleted", order)

	log.Info().Str("order_id", id.String()).Msg("Order deleted")
	return true, nil
}

// GetOrder loads an order, serving repeat reads from cache.
func (s *FulfillmentService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.cache != nil {
		var cached models.Order
		if err := s.cache.Get(ctx, cache.OrderKey(id.String()), &cached); err == nil {
			return &cached, nil
		}
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "order", ID: id}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.OrderKey(id.String()), order, 5*time.Minute); err != nil {
			log.Debug().Err(err).Str("order_id", id.String()).Msg("Failed to cache order")
		}
	}
	return order, nil
}

// ListOrders lists orders, optionally filtered by status.
func (s *FulfillmentService) ListOrders(ctx context.Context, status *models.OrderStatus, limit, offset int) ([]*models.Order, error) {
	return s.orderRepo.List(ctx, status, limit, offset)
}

// OrderHistory returns the audit trail of an order, oldest entry first.
func (s *FulfillmentService) OrderHistory(ctx context.Context, id uuid.UUID) ([]*models.AuditLog, error) {
	return s.auditRepo.ListByRecord(ctx, orderTable, id)
}

func (s *FulfillmentService) resolveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ReferenceNotFoundError{Reference: "product", ID: id}
		}
		return nil, errors.Wrap(err, "failed to resolve product")
	}
	if !product.IsActive {
		return nil, &ReferenceNotFoundError{Reference: "product", ID: id, Inactive: true}
	}
	return product, nil
}

func (s *FulfillmentService) resolveParty(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	party, err := s.partyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ReferenceNotFoundError{Reference: "party", ID: id}
		}
		return nil, errors.Wrap(err, "failed to resolve party")
	}
	if !party.IsActive {
		return nil, &ReferenceNotFoundError{Reference: "party", ID: id, Inactive: true}
	}
	return party, nil
}
