package handlers

import (
	"net/http"

	"example.com/backstage/services/fulfillment/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// actorFrom extracts the acting user from the X-Actor-ID header. A missing
// or malformed header yields nil, which suppresses audit logging downstream.
func actorFrom(c *gin.Context) *uuid.UUID {
	raw := c.GetHeader("X-Actor-ID")
	if raw == "" {
		return nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}

	return &id
}

// statusForError maps service errors to HTTP status codes
func statusForError(err error) int {
	var (
		notFound        *service.NotFoundError
		refNotFound     *service.ReferenceNotFoundError
		validation      *service.ValidationError
		overDispatch    *service.OverDispatchError
		orderLocked     *service.OrderLockedError
		belowDispatched *service.QuantityBelowDispatchedError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &refNotFound):
		return http.StatusUnprocessableEntity
	case errors.As(err, &overDispatch), errors.As(err, &orderLocked), errors.As(err, &belowDispatched):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a service error as a JSON response
func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

// parseID parses a UUID path parameter, responding with 400 on failure
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}
