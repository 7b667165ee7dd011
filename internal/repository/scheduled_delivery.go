package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/backstage/services/fulfillment/internal/models"
)

// ScheduledDeliveryRepository defines the persistence operations for
// scheduled deliveries
type ScheduledDeliveryRepository interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.ScheduledDelivery, error)
}

// scheduledDeliveryRepository implements ScheduledDeliveryRepository
type scheduledDeliveryRepository struct {
	db *gorm.DB
}

// NewScheduledDeliveryRepository creates a new scheduled delivery repository
func NewScheduledDeliveryRepository(db *gorm.DB) ScheduledDeliveryRepository {
	return &scheduledDeliveryRepository{db: db}
}

// ListByOrder lists an order's scheduled deliveries in sequence order
func (r *scheduledDeliveryRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.ScheduledDelivery, error) {
	return ListSchedule(r.db.WithContext(ctx), orderID)
}

// ListSchedule loads the full ordered-by-sequence schedule on the given
// handle, so redistribution inside a transaction sees a consistent set.
func ListSchedule(tx *gorm.DB, orderID uuid.UUID) ([]*models.ScheduledDelivery, error) {
	var deliveries []*models.ScheduledDelivery
	err := tx.
		Where("order_id = ?", orderID).
		Order("sequence_number").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}
