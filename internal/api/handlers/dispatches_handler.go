package handlers

import (
	"net/http"

	"example.com/backstage/services/fulfillment/internal/service"
	"example.com/backstage/services/fulfillment/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// DispatchesHandler handles dispatch-related HTTP requests
type DispatchesHandler struct {
	fulfillmentService *service.FulfillmentService
	tracer             tracing.Tracer
}

// NewDispatchesHandler creates a new dispatches handler
func NewDispatchesHandler(fulfillmentService *service.FulfillmentService, tracer tracing.Tracer) *DispatchesHandler {
	return &DispatchesHandler{
		fulfillmentService: fulfillmentService,
		tracer:             tracer,
	}
}

// HandleCreateDispatch records a new dispatch against an order
func (h *DispatchesHandler) HandleCreateDispatch(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-dispatch")
	defer h.tracer.EndTransaction(txn)

	var req service.CreateDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "order_id", req.OrderID.String())
	h.tracer.AddAttribute(txn, "quantity", req.Quantity)

	dispatch, err := h.fulfillmentService.CreateDispatch(c, &req, actorFrom(c))
	if err != nil {
		log.Error().Err(err).Str("order_id", req.OrderID.String()).Msg("Failed to create dispatch")
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusCreated, dispatch)
}

// HandleGetDispatch returns a single dispatch
func (h *DispatchesHandler) HandleGetDispatch(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-get-dispatch")
	defer h.tracer.EndTransaction(txn)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	dispatch, err := h.fulfillmentService.GetDispatch(c, id)
	if err != nil {
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, dispatch)
}

// HandleUpdateDispatch applies a partial update to a dispatch
func (h *DispatchesHandler) HandleUpdateDispatch(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-update-dispatch")
	defer h.tracer.EndTransaction(txn)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	dispatch, err := h.fulfillmentService.UpdateDispatch(c, id, &req, actorFrom(c))
	if err != nil {
		log.Error().Err(err).Str("dispatch_id", id.String()).Msg("Failed to update dispatch")
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, dispatch)
}

// HandleDeleteDispatch deletes a dispatch and reconciles its order
func (h *DispatchesHandler) HandleDeleteDispatch(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-delete-dispatch")
	defer h.tracer.EndTransaction(txn)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.fulfillmentService.DeleteDispatch(c, id, actorFrom(c))
	if err != nil {
		log.Error().Err(err).Str("dispatch_id", id.String()).Msg("Failed to delete dispatch")
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// HandleDispatchHistory returns the audit trail for a dispatch
func (h *DispatchesHandler) HandleDispatchHistory(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-dispatch-history")
	defer h.tracer.EndTransaction(txn)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entries, err := h.fulfillmentService.DispatchHistory(c, id)
	if err != nil {
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// HandleSearchDispatches runs a search query against the dispatch index
func (h *DispatchesHandler) HandleSearchDispatches(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-search-dispatches")
	defer h.tracer.EndTransaction(txn)

	var query map[string]interface{}
	if err := c.ShouldBindJSON(&query); err != nil {
		log.Error().Err(err).Msg("Invalid search query")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	results, err := h.fulfillmentService.SearchDispatches(c, query)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search dispatches")
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// RegisterRoutes registers the handler's routes
func (h *DispatchesHandler) RegisterRoutes(router *gin.Engine) {
	dispatches := router.Group("/dispatches")
	{
		dispatches.POST("", h.HandleCreateDispatch)
		dispatches.POST("/search", h.HandleSearchDispatches)
		dispatches.GET("/:id", h.HandleGetDispatch)
		dispatches.PUT("/:id", h.HandleUpdateDispatch)
		dispatches.DELETE("/:id", h.HandleDeleteDispatch)
		dispatches.GET("/:id/history", h.HandleDispatchHistory)
	}
}
