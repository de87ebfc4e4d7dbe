package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"farmersmarket/internal/auth"
	"farmersmarket/internal/handler"
	"farmersmarket/internal/logger"
	"farmersmarket/internal/model"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Auth        *handler.AuthHandler
	User        *handler.UserHandler
	Product     *handler.ProductHandler
	Purchase    *handler.PurchaseHandler
	Transaction *handler.TransactionHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	log *zap.Logger,
	jwtService *auth.JWTService,
	tokens auth.TokenStoreInterface,
	h Handlers,
) {
	e.Use(middleware.RequestID())
	e.Use(logger.RequestLogger(log))
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/logout", h.Auth.Logout)

	// Secured routes (require JWT authentication)
	secured := api.Group("", auth.JWTMiddleware(jwtService, tokens))

	secured.GET("/me", h.User.Me)
	secured.GET("/me/activity", h.User.Activity)

	// Catalog
	secured.GET("/products", h.Product.ListProducts)
	secured.GET("/products/:id", h.Product.GetProduct)

	farmers := auth.RequireRole(model.RoleFarmer)
	secured.POST("/products", h.Product.CreateProduct, farmers)
	secured.PUT("/products/:id", h.Product.UpdateProduct, farmers)
	secured.DELETE("/products/:id", h.Product.DeleteProduct, farmers)

	// Purchases
	customers := auth.RequireRole(model.RoleCustomer)
	secured.POST("/purchases", h.Purchase.Purchase, customers)
	secured.POST("/checkout", h.Purchase.Checkout, customers)

	// History
	// History access is decided by the role itself in the history service.
	secured.GET("/transactions", h.Transaction.ListTransactions)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
