package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"farmersmarket/internal/errors"
	"farmersmarket/internal/service"
)

// PurchaseHandler handles purchase and checkout endpoints.
type PurchaseHandler struct {
	purchases service.PurchaseService
}

// NewPurchaseHandler creates a new purchase handler.
func NewPurchaseHandler(purchases service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases}
}

// PurchaseRequest represents a single product purchase. Numbers are decoded
// loosely so that fractional quantities can be rejected explicitly.
type PurchaseRequest struct {
	ProductID json.Number `json:"product_id" swaggertype:"integer"`
	Quantity  json.Number `json:"quantity" swaggertype:"integer"`
}

// CheckoutRequest represents a cart checkout.
type CheckoutRequest struct {
	Items []PurchaseRequest `json:"items"`
}

// CheckoutItemResponse is the outcome of one cart line.
type CheckoutItemResponse struct {
	ProductID   uint                    `json:"product_id"`
	Quantity    int                     `json:"quantity"`
	Status      string                  `json:"status"`
	Transaction *service.PurchaseResult `json:"transaction,omitempty"`
	Error       *errors.ErrorResponse   `json:"error,omitempty"`
}

// CheckoutResponse summarises a checkout.
type CheckoutResponse struct {
	Items     []CheckoutItemResponse `json:"items"`
	Purchased int                    `json:"purchased"`
	Failed    int                    `json:"failed"`
}

func parseInteger(field string, n json.Number, bitSize int) (int64, error) {
	if n == "" {
		return 0, errors.InvalidRequest("%s is required", field)
	}
	v, err := strconv.ParseInt(n.String(), 10, bitSize)
	if err != nil {
		return 0, errors.InvalidRequest("%s must be an integer, got %s", field, n)
	}
	return v, nil
}

// toItem converts the wire form. Range checks are left to the purchase service.
// On error the fields that did parse are still returned.
func (r PurchaseRequest) toItem() (service.PurchaseItem, error) {
	var item service.PurchaseItem
	productID, err := parseInteger("product_id", r.ProductID, 64)
	if err != nil {
		return item, err
	}
	if productID < 0 {
		return item, errors.InvalidRequest("product_id must be positive")
	}
	item.ProductID = uint(productID)
	quantity, err := parseInteger("quantity", r.Quantity, 32)
	if err != nil {
		return item, err
	}
	item.Quantity = int(quantity)
	return item, nil
}

// Purchase godoc
// @Summary Buy a product
// @Description Decrements stock and records a transaction atomically.
// @Tags purchases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PurchaseRequest true "Product and quantity"
// @Success 201 {object} service.PurchaseResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /purchases [post]
func (h *PurchaseHandler) Purchase(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	item, err := req.toItem()
	if err != nil {
		return errorResponse(err)
	}

	result, err := h.purchases.Purchase(c.Request().Context(), p, item.ProductID, item.Quantity)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, result)
}

// Checkout godoc
// @Summary Buy every item of a cart
// @Description Each line is purchased on its own; a failed or malformed line does not undo or block the others.
// @Tags purchases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CheckoutRequest true "Cart"
// @Success 200 {object} CheckoutResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /checkout [post]
func (h *PurchaseHandler) Checkout(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if len(req.Items) == 0 {
		return errorResponse(errors.InvalidRequest("cart is empty"))
	}

	// Lines that do not parse fail on their own; the rest are still bought.
	outcomes := make([]service.PurchaseOutcome, len(req.Items))
	var (
		items   []service.PurchaseItem
		indexes []int
	)
	for i, line := range req.Items {
		item, err := line.toItem()
		if err != nil {
			outcomes[i] = service.PurchaseOutcome{Item: item, Err: err}
			continue
		}
		items = append(items, item)
		indexes = append(indexes, i)
	}

	if len(items) > 0 {
		bought, err := h.purchases.PurchaseMany(c.Request().Context(), p, items)
		if err != nil {
			return errorResponse(err)
		}
		for j, o := range bought {
			outcomes[indexes[j]] = o
		}
	}

	resp := CheckoutResponse{Items: make([]CheckoutItemResponse, 0, len(outcomes))}
	for _, o := range outcomes {
		line := CheckoutItemResponse{ProductID: o.Item.ProductID, Quantity: o.Item.Quantity}
		if o.Err != nil {
			body := errors.MapErrorToHTTP(o.Err).ToErrorResponse()
			line.Status = "failed"
			line.Error = &body
			resp.Failed++
		} else {
			line.Status = "purchased"
			line.Transaction = o.Result
			resp.Purchased++
		}
		resp.Items = append(resp.Items, line)
	}
	return c.JSON(http.StatusOK, resp)
}
