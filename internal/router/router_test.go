package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"farmersmarket/internal/audit"
	"farmersmarket/internal/auth"
	"farmersmarket/internal/cache"
	"farmersmarket/internal/events"
	"farmersmarket/internal/handler"
	"farmersmarket/internal/model"
	"farmersmarket/internal/repository"
	"farmersmarket/internal/service"
	"farmersmarket/internal/testutil"
)

type apiClient struct {
	t   *testing.T
	e   *echo.Echo
	jwt *auth.JWTService
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()

	gormDB := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	cacheClient := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cacheClient.Close() })

	log := zap.NewNop()
	store := repository.NewStore(gormDB)
	jwtService := auth.NewJWTService("router-test-secret")
	tokenStore := auth.NewTokenStore(cacheClient)
	auditStore := audit.NewSQLSink(store.ActionLogs())
	recorder := audit.NewWriter(auditStore, log, audit.WithBatchSize(1))
	t.Cleanup(recorder.Close)
	publisher := events.Noop{}

	e := echo.New()
	Register(e, log, jwtService, tokenStore, Handlers{
		Auth: handler.NewAuthHandler(
			service.NewAuthService(store.Users(), jwtService, tokenStore, recorder, log), jwtService),
		User: handler.NewUserHandler(service.NewUserService(store.Users(), cacheClient, auditStore)),
		Product: handler.NewProductHandler(
			service.NewCatalogService(store.Products(), cacheClient, time.Minute, recorder, publisher, log)),
		Purchase: handler.NewPurchaseHandler(
			service.NewPurchaseService(store, recorder, publisher, cacheClient, log, 5*time.Second)),
		Transaction: handler.NewTransactionHandler(service.NewHistoryService(store.Transactions())),
	})
	return &apiClient{t: t, e: e, jwt: jwtService}
}

func (a *apiClient) do(method, path, token, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *apiClient) signUp(username, role string) (access, refresh string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/register", "",
		`{"username":"`+username+`","password":"secret1","role":"`+role+`"}`)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/auth/login", "",
		`{"username":"`+username+`","password":"secret1"}`)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handler.AuthResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken, resp.RefreshToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHealthz(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	api := newAPI(t)

	for _, path := range []string{"/api/products", "/api/me", "/api/transactions"} {
		rec := api.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := api.do(http.MethodGet, "/api/products", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, refresh := api.signUp("carol", "customer")
	rec = api.do(http.MethodGet, "/api/products", refresh, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "refresh tokens are not access tokens")
}

func TestHistoryRefusesRolesWithoutHistory(t *testing.T) {
	api := newAPI(t)
	token, err := api.jwt.GenerateAccessToken(auth.Principal{UserID: 99, Username: "root", Role: model.RoleAdmin})
	require.NoError(t, err)

	rec := api.do(http.MethodGet, "/api/transactions", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestMarketplaceFlow(t *testing.T) {
	api := newAPI(t)
	farmerToken, _ := api.signUp("fred", "farmer")
	customerToken, _ := api.signUp("carol", "customer")

	// Only farmers list products.
	productBody := `{"product_name":"Carrots","category":"Vegetables","price":"10.00","stock_quantity":5}`
	rec := api.do(http.MethodPost, "/api/products", customerToken, productBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/api/products", farmerToken, productBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product struct {
		ID            uint `json:"product_id"`
		StockQuantity int  `json:"stock_quantity"`
	}
	decode(t, rec, &product)
	require.NotZero(t, product.ID)
	productID := jsonUint(product.ID)

	// Only customers buy.
	rec = api.do(http.MethodPost, "/api/purchases", farmerToken, `{"product_id":`+productID+`,"quantity":1}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/api/purchases", customerToken, `{"product_id":`+productID+`,"quantity":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result service.PurchaseResult
	decode(t, rec, &result)
	assert.Equal(t, 3, result.Quantity)
	assert.True(t, result.TotalPrice.Equal(decimal.NewFromInt(30)), result.TotalPrice.String())

	rec = api.do(http.MethodPost, "/api/purchases", customerToken, `{"product_id":`+productID+`,"quantity":3}`)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	var stockErr struct {
		Code      string `json:"code"`
		Available *int   `json:"available"`
	}
	decode(t, rec, &stockErr)
	assert.Equal(t, "INSUFFICIENT_STOCK", stockErr.Code)
	require.NotNil(t, stockErr.Available)
	assert.Equal(t, 2, *stockErr.Available)

	rec = api.do(http.MethodPost, "/api/purchases", customerToken, `{"product_id":`+productID+`,"quantity":1.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The catalog reflects the decrement.
	rec = api.do(http.MethodGet, "/api/products/"+productID, customerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &product)
	assert.Equal(t, 2, product.StockQuantity)

	// Both sides see the sale.
	for _, token := range []string{customerToken, farmerToken} {
		rec = api.do(http.MethodGet, "/api/transactions", token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var views []service.TransactionView
		decode(t, rec, &views)
		require.Len(t, views, 1)
		assert.Equal(t, result.TransactionID, views[0].TransactionID)
	}
}

func TestCheckoutReportsEachLine(t *testing.T) {
	api := newAPI(t)
	farmerToken, _ := api.signUp("fred", "farmer")
	customerToken, _ := api.signUp("carol", "customer")

	rec := api.do(http.MethodPost, "/api/products", farmerToken,
		`{"product_name":"Eggs","category":"Dairy","price":"0.50","stock_quantity":12}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product struct {
		ID uint `json:"product_id"`
	}
	decode(t, rec, &product)
	id := jsonUint(product.ID)

	rec = api.do(http.MethodPost, "/api/checkout", customerToken,
		`{"items":[{"product_id":`+id+`,"quantity":10},{"product_id":`+id+`,"quantity":5},{"product_id":999,"quantity":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handler.CheckoutResponse
	decode(t, rec, &resp)
	assert.Equal(t, 1, resp.Purchased)
	assert.Equal(t, 2, resp.Failed)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "purchased", resp.Items[0].Status)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Items[1].Error.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", resp.Items[2].Error.Code)
}

func TestCheckoutBuysValidLinesBesideUnparsableOnes(t *testing.T) {
	api := newAPI(t)
	farmerToken, _ := api.signUp("fred", "farmer")
	customerToken, _ := api.signUp("carol", "customer")

	rec := api.do(http.MethodPost, "/api/products", farmerToken,
		`{"product_name":"Kale","category":"Vegetable","price":"2.00","stock_quantity":4}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product struct {
		ID uint `json:"product_id"`
	}
	decode(t, rec, &product)
	id := jsonUint(product.ID)

	rec = api.do(http.MethodPost, "/api/checkout", customerToken,
		`{"items":[{"product_id":`+id+`,"quantity":2.5},{"product_id":`+id+`,"quantity":3}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handler.CheckoutResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "INVALID_REQUEST", resp.Items[0].Error.Code)
	assert.Equal(t, "purchased", resp.Items[1].Status)

	rec = api.do(http.MethodGet, "/api/products/"+id, customerToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var after struct {
		Stock int `json:"stock_quantity"`
	}
	decode(t, rec, &after)
	assert.Equal(t, 1, after.Stock)
}

func TestActivityListsOwnActions(t *testing.T) {
	api := newAPI(t)
	access, _ := api.signUp("carol", "customer")
	other, _ := api.signUp("dave", "customer")

	require.Eventually(t, func() bool {
		rec := api.do(http.MethodGet, "/api/me/activity", access, "")
		if rec.Code != http.StatusOK {
			return false
		}
		var logs []struct {
			Action string `json:"action"`
		}
		if json.Unmarshal(rec.Body.Bytes(), &logs) != nil {
			return false
		}
		actions := make([]string, 0, len(logs))
		for _, l := range logs {
			actions = append(actions, l.Action)
		}
		return assert.ObjectsAreEqual([]string{audit.ActionLogin, audit.ActionRegister}, actions)
	}, 2*time.Second, 20*time.Millisecond)

	rec := api.do(http.MethodGet, "/api/me/activity?limit=1", other, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"user_id":1,`)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	api := newAPI(t)
	access, refresh := api.signUp("carol", "customer")

	rec := api.do(http.MethodGet, "/api/me", access, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/logout", access, `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/me", access, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func jsonUint(v uint) string {
	b, _ := json.Marshal(v)
	return string(b)
}
