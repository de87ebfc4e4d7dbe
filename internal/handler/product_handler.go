package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"farmersmarket/internal/repository"
	"farmersmarket/internal/service"
)

// ProductHandler handles catalog endpoints.
type ProductHandler struct {
	catalog service.CatalogService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(catalog service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// CreateProductRequest represents a new product listing.
type CreateProductRequest struct {
	ProductName   string          `json:"product_name" validate:"required,max=255"`
	Description   string          `json:"description"`
	Category      string          `json:"category" validate:"max=100"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	ImageURL      string          `json:"image_url" validate:"max=255"`
}

// UpdateProductRequest represents a partial product update.
type UpdateProductRequest struct {
	ProductName   *string          `json:"product_name" validate:"omitempty,max=255"`
	Description   *string          `json:"description"`
	Category      *string          `json:"category" validate:"omitempty,max=100"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity" validate:"omitempty,gte=0"`
	ImageURL      *string          `json:"image_url" validate:"omitempty,max=255"`
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid product id")
	}
	return uint(id), nil
}

// ListProducts godoc
// @Summary Browse products in stock
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category, or all"
// @Param search query string false "Matches name, description or category"
// @Success 200 {array} model.Product
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /products [get]
func (h *ProductHandler) ListProducts(c echo.Context) error {
	products, err := h.catalog.ListProducts(c.Request().Context(), repository.ProductFilter{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
	})
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, products)
}

// GetProduct godoc
// @Summary Get product by id
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} model.Product
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id} [get]
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	product, err := h.catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, product)
}

// CreateProduct godoc
// @Summary List a new product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProductRequest true "Product data"
// @Success 201 {object} model.Product
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /products [post]
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req CreateProductRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.CreateProduct(c.Request().Context(), p, service.ProductInput{
		Name:          req.ProductName,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct godoc
// @Summary Update an owned product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param request body UpdateProductRequest true "Fields to change"
// @Success 200 {object} model.Product
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id} [put]
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req UpdateProductRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.UpdateProduct(c.Request().Context(), p, id, service.ProductPatch{
		Name:          req.ProductName,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct godoc
// @Summary Delete an owned product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} map[string]bool
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteProduct(c.Request().Context(), p, id); err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
