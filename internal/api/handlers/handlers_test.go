package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/fulfillment/internal/service"
)

func TestStatusForError(t *testing.T) {
	orderID := uuid.New()

	cases := []struct {
		err    error
		status int
	}{
		{&service.NotFoundError{Entity: "order", ID: orderID}, http.StatusNotFound},
		{&service.ValidationError{Violations: []string{"Quantity must be greater than 0"}}, http.StatusBadRequest},
		{&service.ReferenceNotFoundError{Reference: "product", ID: orderID}, http.StatusUnprocessableEntity},
		{&service.OverDispatchError{OrderID: orderID, Requested: 3, Ordered: 10, Dispatched: 8}, http.StatusConflict},
		{&service.OrderLockedError{OrderID: orderID}, http.StatusConflict},
		{&service.QuantityBelowDispatchedError{OrderID: orderID, Requested: 2, Dispatched: 5}, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		require.Equal(t, tc.status, statusForError(tc.err), tc.err.Error())
	}
}

func TestStatusForErrorWrapped(t *testing.T) {
	err := errors.Wrap(&service.NotFoundError{Entity: "dispatch", ID: uuid.New()}, "load failed")

	require.Equal(t, http.StatusNotFound, statusForError(err))
}

func TestActorFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	actorID := uuid.New()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/orders", nil)
	c.Request.Header.Set("X-Actor-ID", actorID.String())

	actor := actorFrom(c)
	require.NotNil(t, actor)
	require.Equal(t, actorID, *actor)
}

func TestActorFromMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/orders", nil)

	require.Nil(t, actorFrom(c))
}

func TestActorFromMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/orders", nil)
	c.Request.Header.Set("X-Actor-ID", "not-a-uuid")

	require.Nil(t, actorFrom(c))
}
