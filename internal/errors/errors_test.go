package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	assert.ErrorIs(t, &InsufficientStockError{ProductID: 1, Requested: 3, Available: 2}, ErrInsufficientStock)
	assert.ErrorIs(t, &ProductNotFoundError{ProductID: 7}, ErrProductNotFound)
	assert.ErrorIs(t, InvalidRequest("quantity must be positive"), ErrInvalidRequest)

	cause := errors.New("connection reset")
	err := Persistence("commit", cause)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.Same(t, err, Persistence("outer", err))
	assert.Nil(t, Persistence("noop", nil))
}

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"insufficient stock", &InsufficientStockError{ProductID: 1, Requested: 3, Available: 2}, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"wrapped insufficient stock", fmt.Errorf("purchase: %w", &InsufficientStockError{ProductID: 1}), http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"product not found", &ProductNotFoundError{ProductID: 9}, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"invalid request", InvalidRequest("bad quantity"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"unauthorized", fmt.Errorf("%w: role farmer", ErrUnauthorized), http.StatusForbidden, "UNAUTHORIZED"},
		{"persistence", Persistence("insert transaction", errors.New("duplicate key")), http.StatusInternalServerError, "PERSISTENCE_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestMapErrorToHTTP_DetailsAndLeaks(t *testing.T) {
	resp := MapErrorToHTTP(&InsufficientStockError{ProductID: 1, Requested: 3, Available: 2}).ToErrorResponse()
	require.NotNil(t, resp.Available)
	assert.Equal(t, 2, *resp.Available)
	assert.Equal(t, uint(1), resp.ProductID)

	resp = MapErrorToHTTP(Persistence("insert transaction", errors.New("Error 1062: Duplicate entry 'x' for key 'PRIMARY'"))).ToErrorResponse()
	assert.Equal(t, "internal server error", resp.Error)
	assert.NotContains(t, resp.Error, "Duplicate")
}
