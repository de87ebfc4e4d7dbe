package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"farmersmarket/internal/auth"
	"farmersmarket/internal/errors"
	"farmersmarket/internal/model"
	"farmersmarket/internal/repository"
	"farmersmarket/internal/service"
)

type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	return e
}

// newContext builds a request context authenticated as the given principal.
// A zero principal leaves the request unauthenticated.
func newContext(e *echo.Echo, method, target, body string, p auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p.UserID != 0 {
		c.Set(auth.ContextKey, &auth.Claims{
			UserID:   p.UserID,
			Username: p.Username,
			Role:     p.Role,
			Type:     auth.TokenTypeAccess,
		})
	}
	return c, rec
}

// statusOf returns the status a handler produced, whether written or returned as an error.
func statusOf(err error, rec *httptest.ResponseRecorder) int {
	if err == nil {
		return rec.Code
	}
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return http.StatusInternalServerError
}

var (
	theCustomer = auth.Principal{UserID: 3, Username: "carol", Role: model.RoleCustomer}
	theFarmer   = auth.Principal{UserID: 2, Username: "fred", Role: model.RoleFarmer}
)

// MockPurchaseService is a mock implementation of PurchaseService.
type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) Purchase(ctx context.Context, buyer auth.Principal, productID uint, quantity int) (*service.PurchaseResult, error) {
	args := m.Called(ctx, buyer, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PurchaseResult), args.Error(1)
}

func (m *MockPurchaseService) PurchaseMany(ctx context.Context, buyer auth.Principal, items []service.PurchaseItem) ([]service.PurchaseOutcome, error) {
	args := m.Called(ctx, buyer, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.PurchaseOutcome), args.Error(1)
}

// MockCatalogService is a mock implementation of CatalogService.
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, farmer auth.Principal, input service.ProductInput) (*model.Product, error) {
	args := m.Called(ctx, farmer, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, farmer auth.Principal, id uint, patch service.ProductPatch) (*model.Product, error) {
	args := m.Called(ctx, farmer, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, farmer auth.Principal, id uint) error {
	args := m.Called(ctx, farmer, id)
	return args.Error(0)
}

// MockHistoryService is a mock implementation of HistoryService.
type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) List(ctx context.Context, caller auth.Principal) ([]service.TransactionView, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.TransactionView), args.Error(1)
}

// MockAuthService is a mock implementation of AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password, role string) (*model.User, error) {
	args := m.Called(ctx, username, email, password, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (string, string, *model.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(2) == nil {
		return args.String(0), args.String(1), nil, args.Error(3)
	}
	return args.String(0), args.String(1), args.Get(2).(*model.User), args.Error(3)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string, access *auth.Claims) error {
	args := m.Called(ctx, refreshToken, access)
	return args.Error(0)
}

// responseCode extracts the error code carried by an echo HTTP error.
func responseCode(t *testing.T, err error) string {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	resp, ok := he.Message.(errors.ErrorResponse)
	require.True(t, ok, "expected ErrorResponse, got %T", he.Message)
	return resp.Code
}

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) RecentActivity(ctx context.Context, id uint, limit int) ([]model.ActionLog, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActionLog), args.Error(1)
}
