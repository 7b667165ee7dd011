package service

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/fulfillment/internal/models"
)

// Audited table names
const (
	orderTable    = "orders"
	dispatchTable = "dispatches"
)

// writeAudit appends a before/after snapshot for a mutation inside the same
// transaction as the mutation itself, so a failed audit write rolls the
// whole operation back. When no actor is known the entry is skipped; actor
// ids are threaded explicitly through every mutating call so that skip is a
// visible decision at the call site, not an accident of ambient state.
func writeAudit(tx *gorm.DB, actorID *uuid.UUID, tableName string, recordID uuid.UUID, action models.AuditAction, prior, next interface{}) error {
	if actorID == nil {
		return nil
	}

	priorJSON, err := marshalSnapshot(prior)
	if err != nil {
		return errors.Wrap(err, "failed to marshal prior snapshot")
	}
	nextJSON, err := marshalSnapshot(next)
	if err != nil {
		return errors.Wrap(err, "failed to marshal new snapshot")
	}

	entry := &models.AuditLog{
		ID:         uuid.New(),
		ActorID:    actorID,
		TableName:  tableName,
		RecordID:   recordID,
		Action:     action,
		PriorState: priorJSON,
		NewState:   nextJSON,
	}
	if err := tx.Create(entry).Error; err != nil {
		return errors.Wrap(err, "failed to write audit entry")
	}
	return nil
}

func marshalSnapshot(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
