package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories behind one database handle. The Store passed to a
// WithTransaction callback is bound to that transaction; everything done through it
// commits or rolls back together.
type Store interface {
	Users() UserRepository
	Products() ProductRepository
	Inventory() InventoryLedger
	Transactions() TransactionRepository
	ActionLogs() ActionLogRepository
	// WithTransaction runs fn in a database transaction. The transaction is rolled back
	// when fn returns an error or panics, or when ctx is cancelled; otherwise it is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository {
	return NewUserRepository(s.db)
}

func (s *gormStore) Products() ProductRepository {
	return NewProductRepository(s.db)
}

func (s *gormStore) Inventory() InventoryLedger {
	return NewInventoryLedger(s.db)
}

func (s *gormStore) Transactions() TransactionRepository {
	return NewTransactionRepository(s.db)
}

func (s *gormStore) ActionLogs() ActionLogRepository {
	return NewActionLogRepository(s.db)
}

// WithTransaction executes a function within a database transaction.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx})
	})
}
