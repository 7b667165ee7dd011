package service

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/fulfillment/internal/cache"
	"example.com/backstage/services/fulfillment/internal/messaging"
	"example.com/backstage/services/fulfillment/internal/metrics"
	"example.com/backstage/services/fulfillment/internal/repository"
	"example.com/backstage/services/fulfillment/internal/search"
	"example.com/backstage/services/fulfillment/internal/tracing"
)

// FulfillmentService owns the order-fulfillment invariants: dispatched
// quantity never exceeds ordered quantity, order status is a function of
// the dispatched total, and the pending schedule of a recurring order
// always sums to the undispatched remainder.
type FulfillmentService struct {
	db            *gorm.DB
	orderRepo     repository.OrderRepository
	dispatchRepo  repository.DispatchRepository
	scheduleRepo  repository.ScheduledDeliveryRepository
	productRepo   repository.ProductRepository
	partyRepo     repository.PartyRepository
	auditRepo     repository.AuditLogRepository
	cache         *cache.RedisCache
	elasticClient *search.ElasticClient
	bus           messaging.ServiceBusClient
	metrics       *metrics.Metrics
	tracer        tracing.Tracer
}

// NewFulfillmentService creates a new fulfillment service
func NewFulfillmentService(
	db *gorm.DB,
	redisCache *cache.RedisCache,
	elasticClient *search.ElasticClient,
	bus messaging.ServiceBusClient,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *FulfillmentService {
	return &FulfillmentService{
		db:            db,
		orderRepo:     repository.NewOrderRepository(db),
		dispatchRepo:  repository.NewDispatchRepository(db),
		scheduleRepo:  repository.NewScheduledDeliveryRepository(db),
		productRepo:   repository.NewProductRepository(db),
		partyRepo:     repository.NewPartyRepository(db),
		auditRepo:     repository.NewAuditLogRepository(db),
		cache:         redisCache,
		elasticClient: elasticClient,
		bus:           bus,
		metrics:       metricsCollector,
		tracer:        tracer,
	}
}

// startTransaction starts a tracer transaction when tracing is configured.
func (s *FulfillmentService) startTransaction(name string) *newrelic.Transaction {
	if s.tracer == nil {
		return nil
	}
	return s.tracer.StartTransaction(name)
}

func (s *FulfillmentService) endTransaction(txn *newrelic.Transaction) {
	if s.tracer != nil {
		s.tracer.EndTransaction(txn)
	}
}

func (s *FulfillmentService) noticeError(txn *newrelic.Transaction, err error) {
	if s.tracer != nil {
		s.tracer.RecordError(txn, err)
	}
}

// countOutcome records operation metrics for one service call.
func (s *FulfillmentService) countOutcome(operation string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementCounter(operation)
	if err != nil {
		s.metrics.RecordError(operation)
	} else {
		s.metrics.RecordSuccess(operation)
	}
}

// publishEvent sends a lifecycle event to the ERP queue. Events are a
// best-effort notification after commit, never part of the transaction.
func (s *FulfillmentService) publishEvent(ctx context.Context, eventType string, payload interface{}) {
	if s.bus == nil {
		return
	}
	event := map[string]interface{}{
		"event":   eventType,
		"payload": payload,
	}
	if err := s.bus.SendMessage(ctx, event); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("Failed to publish lifecycle event")
	}
}

// invalidateOrderCache drops the cached order and schedule after a mutation.
func (s *FulfillmentService) invalidateOrderCache(ctx context.Context, orderID interface{ String() string }) {
	if s.cache == nil {
		return
	}
	keys := []string{
		cache.OrderKey(orderID.String()),
		cache.ScheduleKey(orderID.String()),
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("Cache invalidation failed")
		}
	}
}
