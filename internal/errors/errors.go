package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRequest is returned when a request has a bad shape or quantity.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrProductNotFound is returned when a product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when a product has fewer units than requested.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrUnauthorized is returned when the caller's role does not allow the operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPersistence is returned when the store fails. Safe to retry.
	ErrPersistence = errors.New("persistence error")
)

// InvalidRequestError explains why a request was rejected.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return e.Reason
}

// Is makes InvalidRequestError match ErrInvalidRequest.
func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// InvalidRequest builds an InvalidRequestError.
func InvalidRequest(format string, args ...interface{}) error {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

// ProductNotFoundError carries the id of the missing product.
type ProductNotFoundError struct {
	ProductID uint
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// Is makes ProductNotFoundError match ErrProductNotFound.
func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// InsufficientStockError carries the requested and currently available quantity.
type InsufficientStockError struct {
	ProductID uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Is makes InsufficientStockError match ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// PersistenceError wraps a store failure. Op names the step that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes PersistenceError match ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Persistence wraps err as a PersistenceError unless it is nil or already one.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	ProductID uint   `json:"product_id,omitempty"`
	Available *int   `json:"available,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	ProductID  uint
	Available  *int
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:     e.Message,
		Code:      e.Code,
		ProductID: e.ProductID,
		Available: e.Available,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Store failures and unknown errors are reported generically.
func MapErrorToHTTP(err error) *HTTPError {
	var (
		stockErr    *InsufficientStockError
		notFoundErr *ProductNotFoundError
	)
	switch {
	case errors.As(err, &stockErr):
		httpErr := NewHTTPError(http.StatusConflict, err.Error(), "INSUFFICIENT_STOCK")
		httpErr.ProductID = stockErr.ProductID
		available := stockErr.Available
		httpErr.Available = &available
		return httpErr
	case errors.As(err, &notFoundErr):
		httpErr := NewHTTPError(http.StatusNotFound, err.Error(), "PRODUCT_NOT_FOUND")
		httpErr.ProductID = notFoundErr.ProductID
		return httpErr
	case errors.Is(err, ErrInsufficientStock):
		return NewHTTPError(http.StatusConflict, err.Error(), "INSUFFICIENT_STOCK")
	case errors.Is(err, ErrProductNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "PRODUCT_NOT_FOUND")
	case errors.Is(err, ErrInvalidRequest):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusForbidden, err.Error(), "UNAUTHORIZED")
	case errors.Is(err, ErrPersistence):
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "PERSISTENCE_ERROR")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
