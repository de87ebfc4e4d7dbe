package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"farmersmarket/internal/audit"
	"farmersmarket/internal/auth"
	"farmersmarket/internal/cache"
	apperrors "farmersmarket/internal/errors"
	"farmersmarket/internal/events"
	"farmersmarket/internal/model"
	"farmersmarket/internal/repository"
)

// DefaultPurchaseTimeout bounds a purchase when no timeout is configured.
const DefaultPurchaseTimeout = 10 * time.Second

// PurchaseResult describes a committed purchase.
type PurchaseResult struct {
	TransactionID uint            `json:"transaction_id"`
	Timestamp     time.Time       `json:"timestamp"`
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

// PurchaseItem is one line of a cart.
type PurchaseItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// PurchaseOutcome is the result of one cart line. Exactly one of Result and Err is set.
type PurchaseOutcome struct {
	Item   PurchaseItem
	Result *PurchaseResult
	Err    error
}

// PurchaseService buys products on behalf of customers.
type PurchaseService interface {
	// Purchase decrements stock and records the transaction atomically.
	Purchase(ctx context.Context, buyer auth.Principal, productID uint, quantity int) (*PurchaseResult, error)
	// PurchaseMany purchases each line independently, in order. A failed line does
	// not undo the lines before it.
	PurchaseMany(ctx context.Context, buyer auth.Principal, items []PurchaseItem) ([]PurchaseOutcome, error)
}

type purchaseService struct {
	store     repository.Store
	recorder  audit.Recorder
	publisher events.Publisher
	cache     *cache.Client
	log       *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewPurchaseService creates a purchase service. Audit, events and cache are
// best-effort collaborators used only after a purchase commits.
func NewPurchaseService(
	store repository.Store,
	recorder audit.Recorder,
	publisher events.Publisher,
	cache *cache.Client,
	log *zap.Logger,
	timeout time.Duration,
) PurchaseService {
	if timeout <= 0 {
		timeout = DefaultPurchaseTimeout
	}
	return &purchaseService{
		store:     store,
		recorder:  recorder,
		publisher: publisher,
		cache:     cache,
		log:       log,
		timeout:   timeout,
		now:       time.Now,
	}
}

func authorizePurchase(buyer auth.Principal) error {
	if !buyer.Role.CanPurchase() {
		return fmt.Errorf("%w: role %q cannot purchase products", apperrors.ErrUnauthorized, buyer.Role)
	}
	return nil
}

func validatePurchase(productID uint, quantity int) error {
	if productID == 0 {
		return apperrors.InvalidRequest("product_id is required")
	}
	if quantity <= 0 {
		return apperrors.InvalidRequest("quantity must be a positive integer, got %d", quantity)
	}
	return nil
}

// Purchase runs lookup, decrement, transaction insert and item insert in one
// database transaction. Nothing is written unless all four succeed.
func (s *purchaseService) Purchase(ctx context.Context, buyer auth.Principal, productID uint, quantity int) (*PurchaseResult, error) {
	if err := validatePurchase(productID, quantity); err != nil {
		return nil, err
	}
	if err := authorizePurchase(buyer); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result *PurchaseResult
	err := s.store.WithTransaction(txCtx, func(ctx context.Context, tx repository.Store) error {
		product, err := tx.Products().FindByID(ctx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperrors.ProductNotFoundError{ProductID: productID}
		}
		if err != nil {
			return apperrors.Persistence("find product", err)
		}

		if err := tx.Inventory().TryDecrement(ctx, productID, quantity); err != nil {
			return err
		}

		total := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
		txn := &model.Transaction{
			BuyerID:         buyer.UserID,
			TransactionDate: s.now(),
			TotalAmount:     total,
		}
		if err := tx.Transactions().Create(ctx, txn); err != nil {
			return apperrors.Persistence("insert transaction", err)
		}

		item := &model.TransactionItem{
			TransactionID: txn.ID,
			ProductID:     productID,
			Quantity:      quantity,
			PricePerUnit:  product.Price,
		}
		if err := tx.Transactions().CreateItem(ctx, item); err != nil {
			return apperrors.Persistence("insert transaction item", err)
		}

		result = &PurchaseResult{
			TransactionID: txn.ID,
			Timestamp:     txn.TransactionDate,
			ProductID:     productID,
			ProductName:   product.Name,
			Quantity:      quantity,
			PricePerUnit:  product.Price,
			TotalPrice:    total,
		}
		return nil
	})
	if err != nil {
		err = classifyPurchaseError(err)
		s.log.Info("purchase rejected",
			zap.Uint("buyer_id", buyer.UserID),
			zap.Uint("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Error(err))
		return nil, err
	}

	s.afterCommit(ctx, buyer, result)
	return result, nil
}

// classifyPurchaseError keeps domain errors and reports everything else, commit
// failures and timeouts included, as a persistence failure.
func classifyPurchaseError(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrInvalidRequest),
		errors.Is(err, apperrors.ErrProductNotFound),
		errors.Is(err, apperrors.ErrInsufficientStock),
		errors.Is(err, apperrors.ErrUnauthorized),
		errors.Is(err, apperrors.ErrPersistence):
		return err
	default:
		return apperrors.Persistence("commit purchase", err)
	}
}

// afterCommit runs the side effects of a committed purchase. None of them can fail it.
func (s *purchaseService) afterCommit(ctx context.Context, buyer auth.Principal, result *PurchaseResult) {
	ctx = context.WithoutCancel(ctx)

	s.log.Info("purchase completed",
		zap.Uint("buyer_id", buyer.UserID),
		zap.Uint("product_id", result.ProductID),
		zap.Uint("transaction_id", result.TransactionID),
		zap.Int("quantity", result.Quantity))

	s.recorder.Record(ctx, buyer.UserID, audit.ActionPurchase,
		fmt.Sprintf("Bought %d of product ID: %d", result.Quantity, result.ProductID))

	_ = s.cache.Delete(ctx, productCacheKey(result.ProductID))

	s.publisher.PurchaseCompleted(ctx, events.PurchaseCompleted{
		TransactionID: result.TransactionID,
		BuyerID:       buyer.UserID,
		ProductID:     result.ProductID,
		Quantity:      result.Quantity,
		PricePerUnit:  result.PricePerUnit,
		TotalPrice:    result.TotalPrice,
		OccurredAt:    result.Timestamp,
	})
	s.publisher.StockUpdated(ctx, events.StockUpdated{
		ProductID:  result.ProductID,
		Delta:      -result.Quantity,
		OccurredAt: result.Timestamp,
	})
}

// PurchaseMany validates the cart as a whole, then purchases each line.
func (s *purchaseService) PurchaseMany(ctx context.Context, buyer auth.Principal, items []PurchaseItem) ([]PurchaseOutcome, error) {
	if len(items) == 0 {
		return nil, apperrors.InvalidRequest("cart is empty")
	}
	if err := authorizePurchase(buyer); err != nil {
		return nil, err
	}

	outcomes := make([]PurchaseOutcome, 0, len(items))
	for _, item := range items {
		result, err := s.Purchase(ctx, buyer, item.ProductID, item.Quantity)
		outcomes = append(outcomes, PurchaseOutcome{Item: item, Result: result, Err: err})
	}
	return outcomes, nil
}
