package repository

import (
	"context"

	"gorm.io/gorm"

	"farmersmarket/internal/model"
)

// TransactionRepository defines transaction persistence operations.
type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error
	CreateItem(ctx context.Context, item *model.TransactionItem) error
	ListByBuyer(ctx context.Context, buyerID uint) ([]model.Transaction, error)
	ListByFarmer(ctx context.Context, farmerID uint) ([]model.Transaction, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create inserts a transaction row. Items are inserted separately with CreateItem.
func (r *transactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	return r.db.WithContext(ctx).Omit("Items", "Buyer").Create(txn).Error
}

// CreateItem inserts a transaction item row.
func (r *transactionRepository) CreateItem(ctx context.Context, item *model.TransactionItem) error {
	return r.db.WithContext(ctx).Omit("Product").Create(item).Error
}

// ListByBuyer returns the buyer's transactions, newest first, with items and products.
func (r *transactionRepository) ListByBuyer(ctx context.Context, buyerID uint) ([]model.Transaction, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("buyer_id = ?", buyerID))
}

// ListByFarmer returns transactions that sold the farmer's products, newest first.
func (r *transactionRepository) ListByFarmer(ctx context.Context, farmerID uint) ([]model.Transaction, error) {
	sold := r.db.WithContext(ctx).Model(&model.TransactionItem{}).
		Select("transaction_items.transaction_id").
		Joins("JOIN products ON products.id = transaction_items.product_id").
		Where("products.farmer_id = ?", farmerID)
	return r.list(ctx, r.db.WithContext(ctx).Where("id IN (?)", sold))
}

func (r *transactionRepository) list(ctx context.Context, q *gorm.DB) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Preload("Items.Product", func(db *gorm.DB) *gorm.DB {
		// Deleted products still belong in history.
		return db.Unscoped()
	}).Order("transaction_date DESC, id DESC").Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
