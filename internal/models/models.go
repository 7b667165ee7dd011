package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// OrderStatus is the fulfillment state of an order. It is always recomputed
// from the dispatched total, never incremented in place.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusCompleted OrderStatus = "completed"
)

// OrderPriority marks how urgently an order should be fulfilled.
type OrderPriority string

const (
	OrderPriorityNormal OrderPriority = "normal"
	OrderPriorityUrgent OrderPriority = "urgent"
)

// DeliveryStatus is the state of a single scheduled delivery slot.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusCompleted DeliveryStatus = "completed"
)

// AuditAction identifies the kind of mutation an audit entry records.
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

// Company represents a company the system fulfills orders for
type Company struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
}

// Product represents a bulk material that can be ordered
type Product struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	Unit      string         `gorm:"not null;default:truck" json:"unit"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
}

// Party represents a customer party orders are fulfilled for
type Party struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	Address   *string        `json:"address"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
}

// User represents an actor recorded against mutations
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"not null;uniqueIndex" json:"email"`
}

// Order represents a bulk-material order measured in truck units. The
// dispatched total and remaining quantity are derived from the dispatch
// table, never stored here as a source of truth.
type Order struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	OrderNumber     string         `gorm:"not null;index" json:"order_number"`
	OrderDate       time.Time      `gorm:"not null" json:"order_date"`
	OrderedQuantity int            `gorm:"not null" json:"ordered_quantity"`
	Priority        OrderPriority  `gorm:"not null;default:normal" json:"priority"`
	Status          OrderStatus    `gorm:"not null;default:pending;index" json:"status"`
	ProductID       uuid.UUID      `gorm:"type:uuid;not null" json:"product_id"`
	PartyID         uuid.UUID      `gorm:"type:uuid;not null" json:"party_id"`
	CompanyID       uuid.UUID      `gorm:"type:uuid;not null" json:"company_id"`
	CreatedByID     *uuid.UUID     `gorm:"type:uuid" json:"created_by_id"`

	// Recurrence fields are only populated when IsRecurring is set; they
	// are required together.
	IsRecurring       bool `gorm:"not null;default:false" json:"is_recurring"`
	FrequencyDays     *int `json:"frequency_days,omitempty"`
	TrucksPerDelivery *int `json:"trucks_per_delivery,omitempty"`
	TotalDeliveries   *int `json:"total_deliveries,omitempty"`

	Product             Product             `gorm:"foreignKey:ProductID" json:"-"`
	Party               Party               `gorm:"foreignKey:PartyID" json:"-"`
	Company             Company             `gorm:"foreignKey:CompanyID" json:"-"`
	Dispatches          []Dispatch          `gorm:"foreignKey:OrderID" json:"-"`
	ScheduledDeliveries []ScheduledDelivery `gorm:"foreignKey:OrderID" json:"-"`
}

// Recurrence is the view of an order's recurrence settings.
type Recurrence struct {
	FrequencyDays     int
	TrucksPerDelivery int
	TotalDeliveries   int
}

// Recurrence returns the order's recurrence settings, or nil for one-shot
// orders or orders whose recurrence fields were never populated.
func (o *Order) Recurrence() *Recurrence {
	if !o.IsRecurring || o.FrequencyDays == nil || o.TrucksPerDelivery == nil {
		return nil
	}
	r := &Recurrence{
		FrequencyDays:     *o.FrequencyDays,
		TrucksPerDelivery: *o.TrucksPerDelivery,
	}
	if o.TotalDeliveries != nil {
		r.TotalDeliveries = *o.TotalDeliveries
	}
	return r
}

// Dispatch records one physical fulfillment event against an order.
type Dispatch struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrderID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"order_id"`
	DispatchDate   time.Time      `gorm:"not null" json:"dispatch_date"`
	Quantity       int            `gorm:"not null" json:"quantity"`
	VehicleNumber  *string        `json:"vehicle_number,omitempty"`
	Remarks        *string        `json:"remarks,omitempty"`
	DispatchedByID *uuid.UUID     `gorm:"type:uuid" json:"dispatched_by_id"`

	Order Order `gorm:"foreignKey:OrderID" json:"-"`
}

// ScheduledDelivery is one planned fulfillment slot of a recurring order.
// The full set is generated once at order creation; rows are only ever
// mutated in place afterwards.
type ScheduledDelivery struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrderID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"order_id"`
	SequenceNumber int            `gorm:"not null" json:"sequence_number"`
	ScheduledDate  time.Time      `gorm:"not null" json:"scheduled_date"`
	Quantity       int            `gorm:"not null" json:"quantity"`
	Status         DeliveryStatus `gorm:"not null;default:pending" json:"status"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	Notes          *string        `json:"notes,omitempty"`

	Order Order `gorm:"foreignKey:OrderID" json:"-"`
}

// AuditLog is an append-only before/after snapshot of a mutation. The
// engine writes these but never reads them back.
type AuditLog struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
	ActorID    *uuid.UUID  `gorm:"type:uuid;index" json:"actor_id"`
	TableName  string      `gorm:"not null;index:idx_audit_record" json:"table_name"`
	RecordID   uuid.UUID   `gorm:"type:uuid;not null;index:idx_audit_record" json:"record_id"`
	Action     AuditAction `gorm:"not null" json:"action"`
	PriorState []byte      `gorm:"type:jsonb" json:"prior_state,omitempty"`
	NewState   []byte      `gorm:"type:jsonb" json:"new_state,omitempty"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Company{},
		&Product{},
		&Party{},
		&User{},
		&Order{},
		&Dispatch{},
		&ScheduledDelivery{},
		&AuditLog{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
