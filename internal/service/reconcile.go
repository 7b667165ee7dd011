package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/fulfillment/internal/models"
	"example.com/backstage/services/fulfillment/internal/repository"
)

// reconcileOrderTx restores the order invariants inside tx: it re-aggregates
// the dispatched total from the dispatch table, recomputes the status and,
// for recurring orders, redistributes the pending schedule. All dispatch
// mutations funnel through this one place.
func reconcileOrderTx(tx *gorm.DB, order *models.Order) (int, error) {
	totalDispatched, err := repository.SumDispatched(tx, order.ID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to aggregate dispatched quantity")
	}

	status := statusFor(totalDispatched, order.OrderedQuantity)
	if status != order.Status {
		if err := tx.Model(order).Update("status", status).Error; err != nil {
			return 0, errors.Wrap(err, "failed to update order status")
		}
		order.Status = status
	}

	if order.IsRecurring {
		if err := redistributeInTx(tx, order, totalDispatched); err != nil {
			return 0, err
		}
	}

	return totalDispatched, nil
}

// redistributeInTx recomputes the pending schedule quantities against the
// given dispatched total and persists each changed row.
func redistributeInTx(tx *gorm.DB, order *models.Order, totalDispatched int) error {
	deliveries, err := repository.ListSchedule(tx, order.ID)
	if err != nil {
		return errors.Wrap(err, "failed to load scheduled deliveries")
	}
	if len(deliveries) == 0 {
		return nil
	}

	trucksPerDelivery := 0
	if order.TrucksPerDelivery != nil {
		trucksPerDelivery = *order.TrucksPerDelivery
	}

	for _, d := range redistributeSchedule(order.OrderedQuantity, totalDispatched, trucksPerDelivery, deliveries) {
		if err := tx.Save(d).Error; err != nil {
			return errors.Wrap(err, "failed to update scheduled delivery")
		}
	}
	return nil
}

// ReconcileOrder re-runs the invariant restoration for one order in its own
// transaction. Re-running it with no intervening dispatch change is a no-op.
func (s *FulfillmentService) ReconcileOrder(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := repository.LockOrder(tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &NotFoundError{Entity: "order", ID: id}
			}
			return err
		}
		_, err = reconcileOrderTx(tx, order)
		return err
	})
}

// ReconcileRecurringOrders sweeps every open recurring order and restores
// its schedule invariant. It is the fallback for drift the per-mutation
// reconciliation should already have prevented.
func (s *FulfillmentService) ReconcileRecurringOrders(ctx context.Context) error {
	txn := s.startTransaction("reconcile-recurring-orders")
	defer s.endTransaction(txn)

	orders, err := s.orderRepo.ListRecurring(ctx, 500)
	if err != nil {
		s.noticeError(txn, err)
		return errors.Wrap(err, "failed to list recurring orders")
	}

	log.Info().Int("count", len(orders)).Msg("Reconciling recurring orders")

	for _, order := range orders {
		if err := s.ReconcileOrder(ctx, order.ID); err != nil {
			log.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Msg("Failed to reconcile recurring order")
			s.noticeError(txn, err)
			continue
		}
		s.invalidateOrderCache(ctx, order.ID)
	}
	return nil
}
