package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "farmersmarket/internal/errors"
	"farmersmarket/internal/model"
)

// InventoryLedger owns the stock quantity of products.
type InventoryLedger interface {
	// GetAvailable returns the current stock of a product.
	GetAvailable(ctx context.Context, productID uint) (int, error)
	// TryDecrement removes amount units from stock if at least amount are available.
	// It returns a *errors.InsufficientStockError or *errors.ProductNotFoundError otherwise.
	TryDecrement(ctx context.Context, productID uint, amount int) error
}

type inventoryLedger struct {
	db *gorm.DB
}

// NewInventoryLedger creates a ledger over the products table.
func NewInventoryLedger(db *gorm.DB) InventoryLedger {
	return &inventoryLedger{db: db}
}

// GetAvailable reads stock_quantity straight from the products table.
func (l *inventoryLedger) GetAvailable(ctx context.Context, productID uint) (int, error) {
	var product model.Product
	err := l.db.WithContext(ctx).Select("id", "stock_quantity").
		Where("id = ?", productID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, &apperrors.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return 0, apperrors.Persistence("read stock", err)
	}
	return product.StockQuantity, nil
}

// TryDecrement issues a single guarded UPDATE. The guard and the write are one statement,
// so two concurrent callers can never both pass the check on the same units.
func (l *inventoryLedger) TryDecrement(ctx context.Context, productID uint, amount int) error {
	if amount <= 0 {
		return apperrors.InvalidRequest("decrement amount must be positive, got %d", amount)
	}

	res := l.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, amount).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", amount))
	if res.Error != nil {
		return apperrors.Persistence("decrement stock", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Nothing matched: classify for the caller. This read happens after the failed write,
	// inside the same transaction, and never decides whether the decrement happens.
	available, err := l.GetAvailable(ctx, productID)
	if err != nil {
		return err
	}
	return &apperrors.InsufficientStockError{
		ProductID: productID,
		Requested: amount,
		Available: available,
	}
}
