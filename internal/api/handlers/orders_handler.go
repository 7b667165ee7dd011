package handlers

import (
	"net/http"
	"strconv"

	"example.com/backstage/services/fulfillment/internal/models"
	"example.com/backstage/services/fulfillment/internal/service"
	"example.com/backstage/services/fulfillment/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// OrdersHandler handles order-related HTTP requests
type OrdersHandler struct {
	fulfillmentService *service.FulfillmentService
	tracer             tracing.Tracer
}

// NewOrdersHandler creates a new orders handler
func NewOrdersHandler(fulfillmentService *service.FulfillmentService, tracer tracing.Tracer) *OrdersHandler {
	return &OrdersHandler{
		fulfillmentService: fulfillmentService,
		tracer:             tracer,
	}
}

// HandleCreateOrder creates a new order
func (h *OrdersHandler) HandleCreateOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-order")
	defer h.tracer.EndTransaction(txn)

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "ordered_quantity", req.OrderedQuantity)
	h.tracer.AddAttribute(txn, "is_recurring", req.IsRecurring)

	order, err := h.fulfillmentService.CreateOrder(c, &req, actorFrom(c))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create order")
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// HandleGetOrder returns a single order
func (h *OrdersHandler) HandleGetOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-get-order")
	defer h.tracer.EndTransaction(txn)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.fulfillmentService.GetOrder(c, id)
	if err != nil {
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// HandleListOrders returns orders, optionally filtered by status
func (h *OrdersHandler) HandleListOrders(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-orders")
	defer h.tracer.EndTransaction(txn)

	var status *models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		s := models.OrderStatus(raw)
		status = &s
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.fulfillmentService.ListOrders(c, status, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list orders")
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// HandleUpdateOrder applies a partial update to an order
func (h *OrdersHandler) HandleUpdateOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-update-order")
	defer h.tracer.EndTransaction(txn)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	order, err := h.fulfillmentService.UpdateOrder(c, id, &req, actorFrom(c))
	if err != nil {
		log.Error().Err(err).Str("order_id", id.String()).Msg("Failed to update order")
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// HandleDeleteOrder deletes an order along with its scheduled deliveries
func (h *OrdersHandler) HandleDeleteOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-delete-order")
	defer h.tracer.EndTransaction(txn)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.fulfillmentService.DeleteOrder(c, id, actorFrom(c))
	if err != nil {
		log.Error().Err(err).Str("order_id", id.String()).Msg("Failed to delete order")
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// HandleOrderHistory returns the audit trail for an order
func (h *OrdersHandler) HandleOrderHistory(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-order-history")
	defer h.tracer.EndTransaction(txn)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entries, err := h.fulfillmentService.OrderHistory(c, id)
	if err != nil {
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// HandleOrderDispatches returns all dispatches recorded against an order
func (h *OrdersHandler) HandleOrderDispatches(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-order-dispatches")
	defer h.tracer.EndTransaction(txn)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	dispatches, err := h.fulfillmentService.ListDispatches(c, id)
	if err != nil {
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dispatches": dispatches, "count": len(dispatches)})
}

// HandleOrderSchedule returns the scheduled deliveries for a recurring order
func (h *OrdersHandler) HandleOrderSchedule(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-order-schedule")
	defer h.tracer.EndTransaction(txn)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	deliveries, err := h.fulfillmentService.GetScheduledDeliveries(c, id)
	if err != nil {
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"scheduled_deliveries": deliveries, "count": len(deliveries)})
}

// HandleReconcileOrder recomputes an order's status and schedule
func (h *OrdersHandler) HandleReconcileOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-reconcile-order")
	defer h.tracer.EndTransaction(txn)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.fulfillmentService.ReconcileOrder(c, id); err != nil {
		log.Error().Err(err).Str("order_id", id.String()).Msg("Failed to reconcile order")
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reconciled": true})
}

// RegisterRoutes registers the handler's routes
func (h *OrdersHandler) RegisterRoutes(router *gin.Engine) {
	orders := router.Group("/orders")
	{
		orders.POST("", h.HandleCreateOrder)
		orders.GET("", h.HandleListOrders)
		orders.GET("/:id", h.HandleGetOrder)
		orders.PUT("/:id", h.HandleUpdateOrder)
		orders.DELETE("/:id", h.HandleDeleteOrder)
		orders.GET("/:id/history", h.HandleOrderHistory)
		orders.GET("/:id/dispatches", h.HandleOrderDispatches)
		orders.GET("/:id/schedule", h.HandleOrderSchedule)
		orders.POST("/:id/reconcile", h.HandleReconcileOrder)
	}
}
