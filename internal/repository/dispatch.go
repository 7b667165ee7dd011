package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/backstage/services/fulfillment/internal/database"
	"example.com/backstage/services/fulfillment/internal/models"
)

// DispatchRepository defines the persistence operations for dispatches
type DispatchRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispatch, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Dispatch, error)
	TotalForOrder(ctx context.Context, orderID uuid.UUID) (int, error)
}

// dispatchRepository implements DispatchRepository
type dispatchRepository struct {
	db *gorm.DB
}

// NewDispatchRepository creates a new dispatch repository
func NewDispatchRepository(db *gorm.DB) DispatchRepository {
	return &dispatchRepository{db: db}
}

// GetByID gets a dispatch by ID
func (r *dispatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispatch, error) {
	var dispatch models.Dispatch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dispatch).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &dispatch, nil
}

// ListByOrder lists an order's dispatches in dispatch-date order
func (r *dispatchRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Dispatch, error) {
	var dispatches []*models.Dispatch
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("dispatch_date, created_at").
		Find(&dispatches).Error
	if err != nil {
		return nil, err
	}
	return dispatches, nil
}

// TotalForOrder aggregates the dispatched quantity for an order
func (r *dispatchRepository) TotalForOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	return SumDispatched(r.db.WithContext(ctx), orderID)
}

// SumDispatched aggregates the dispatched quantity for an order on the given
// handle. Run inside a transaction it reflects that transaction's own writes,
// which is what the reconciliation logic relies on.
func SumDispatched(tx *gorm.DB, orderID uuid.UUID) (int, error) {
	var total int
	err := tx.Model(&models.Dispatch{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
