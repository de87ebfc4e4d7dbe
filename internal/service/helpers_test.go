package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/stretchr/testify/mock"

	"farmersmarket/internal/auth"
	"farmersmarket/internal/events"
	"farmersmarket/internal/model"
	"farmersmarket/internal/repository"
)

type recordedAction struct {
	UserID  uint
	Action  string
	Details string
}

// recordingRecorder keeps audit entries in memory.
type recordingRecorder struct {
	mu      sync.Mutex
	entries []recordedAction
}

func (r *recordingRecorder) Record(_ context.Context, userID uint, action, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedAction{UserID: userID, Action: action, Details: details})
}

func (r *recordingRecorder) actions() []recordedAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedAction(nil), r.entries...)
}

// recordingPublisher keeps events in memory.
type recordingPublisher struct {
	mu        sync.Mutex
	purchases []events.PurchaseCompleted
	stock     []events.StockUpdated
}

func (p *recordingPublisher) PurchaseCompleted(_ context.Context, e events.PurchaseCompleted) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purchases = append(p.purchases, e)
}

func (p *recordingPublisher) StockUpdated(_ context.Context, e events.StockUpdated) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stock = append(p.stock, e)
}

func (p *recordingPublisher) Close() error { return nil }

func customer(id uint) auth.Principal {
	return auth.Principal{UserID: id, Username: "customer", Role: model.RoleCustomer}
}

func farmer(id uint) auth.Principal {
	return auth.Principal{UserID: id, Username: "farmer", Role: model.RoleFarmer}
}

// MockStore is a mock implementation of repository.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Users() repository.UserRepository {
	return m.Called().Get(0).(repository.UserRepository)
}

func (m *MockStore) Products() repository.ProductRepository {
	return m.Called().Get(0).(repository.ProductRepository)
}

func (m *MockStore) Inventory() repository.InventoryLedger {
	return m.Called().Get(0).(repository.InventoryLedger)
}

func (m *MockStore) Transactions() repository.TransactionRepository {
	return m.Called().Get(0).(repository.TransactionRepository)
}

func (m *MockStore) ActionLogs() repository.ActionLogRepository {
	return m.Called().Get(0).(repository.ActionLogRepository)
}

func (m *MockStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
