package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"farmersmarket/internal/service"
)

// TransactionHandler serves transaction history.
type TransactionHandler struct {
	history service.HistoryService
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(history service.HistoryService) *TransactionHandler {
	return &TransactionHandler{history: history}
}

// ListTransactions godoc
// @Summary Transaction history
// @Description Customers see their purchases, farmers see sales of their products.
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.TransactionView
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /transactions [get]
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	views, err := h.history.List(c.Request().Context(), p)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, views)
}
