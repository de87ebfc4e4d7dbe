package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"farmersmarket/internal/auth"
	apperrors "farmersmarket/internal/errors"
	"farmersmarket/internal/model"
	"farmersmarket/internal/service"
)

func TestTransactionHandler_ListTransactions(t *testing.T) {
	svc := new(MockHistoryService)
	svc.On("List", mock.Anything, theCustomer).Return([]service.TransactionView{{
		TransactionID: 4,
		Date:          time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		TotalAmount:   decimal.RequireFromString("30"),
		Items: []service.TransactionItemView{{
			ProductID:    1,
			ProductName:  "Carrots",
			Quantity:     3,
			PricePerUnit: decimal.RequireFromString("10"),
		}},
	}}, nil)
	h := NewTransactionHandler(svc)

	c, rec := newContext(newEcho(), http.MethodGet, "/api/transactions", "", theCustomer)
	require.NoError(t, h.ListTransactions(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got []service.TransactionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Carrots", got[0].Items[0].ProductName)
	svc.AssertExpectations(t)
}

func TestTransactionHandler_ListTransactionsForbidden(t *testing.T) {
	admin := auth.Principal{UserID: 9, Username: "root", Role: model.RoleAdmin}
	svc := new(MockHistoryService)
	svc.On("List", mock.Anything, admin).Return(nil, fmt.Errorf("%w: role admin has no history", apperrors.ErrUnauthorized))
	h := NewTransactionHandler(svc)

	c, rec := newContext(newEcho(), http.MethodGet, "/api/transactions", "", admin)
	assert.Equal(t, http.StatusForbidden, statusOf(h.ListTransactions(c), rec))
}

func TestUserHandler_Me(t *testing.T) {
	svc := new(MockUserService)
	svc.On("GetUser", mock.Anything, theFarmer.UserID).Return(&model.User{ID: 2, Username: "fred", Role: model.RoleFarmer}, nil)
	h := NewUserHandler(svc)

	c, rec := newContext(newEcho(), http.MethodGet, "/api/me", "", theFarmer)
	require.NoError(t, h.Me(c))
	assert.Contains(t, rec.Body.String(), `"username":"fred"`)

	missing := new(MockUserService)
	missing.On("GetUser", mock.Anything, theFarmer.UserID).Return(nil, service.ErrUserNotFound)
	c, rec = newContext(newEcho(), http.MethodGet, "/api/me", "", theFarmer)
	assert.Equal(t, http.StatusNotFound, statusOf(NewUserHandler(missing).Me(c), rec))

	c, rec = newContext(newEcho(), http.MethodGet, "/api/me", "", auth.Principal{})
	assert.Equal(t, http.StatusUnauthorized, statusOf(h.Me(c), rec))
}

func TestUserHandler_Activity(t *testing.T) {
	svc := new(MockUserService)
	svc.On("RecentActivity", mock.Anything, theCustomer.UserID, 0).
		Return([]model.ActionLog{{ID: 1, UserID: 3, Action: "login"}}, nil)
	svc.On("RecentActivity", mock.Anything, theCustomer.UserID, 5).Return([]model.ActionLog{}, nil)
	h := NewUserHandler(svc)

	c, rec := newContext(newEcho(), http.MethodGet, "/api/me/activity", "", theCustomer)
	require.NoError(t, h.Activity(c))
	assert.Contains(t, rec.Body.String(), `"action":"login"`)

	c, rec = newContext(newEcho(), http.MethodGet, "/api/me/activity?limit=5", "", theCustomer)
	require.NoError(t, h.Activity(c))
	assert.JSONEq(t, `[]`, rec.Body.String())

	c, rec = newContext(newEcho(), http.MethodGet, "/api/me/activity?limit=abc", "", theCustomer)
	assert.Equal(t, http.StatusBadRequest, statusOf(h.Activity(c), rec))
	svc.AssertExpectations(t)
}
