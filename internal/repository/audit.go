package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/backstage/services/fulfillment/internal/models"
)

// AuditLogRepository provides read access to the append-only audit log.
// The fulfillment engine itself only writes entries (inside its own
// transactions); reads exist for the history endpoint.
type AuditLogRepository interface {
	ListByRecord(ctx context.Context, tableName string, recordID uuid.UUID) ([]*models.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// ListByRecord lists the audit trail of one record, oldest first
func (r *auditLogRepository) ListByRecord(ctx context.Context, tableName string, recordID uuid.UUID) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	err := r.db.WithContext(ctx).
		Where("table_name = ? AND record_id = ?", tableName, recordID).
		Order("created_at").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
