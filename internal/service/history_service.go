package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"farmersmarket/internal/auth"
	apperrors "farmersmarket/internal/errors"
	"farmersmarket/internal/model"
	"farmersmarket/internal/repository"
)

// TransactionView is one transaction as shown in a history listing.
type TransactionView struct {
	TransactionID uint                  `json:"transaction_id"`
	Date          time.Time             `json:"date"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	Items         []TransactionItemView `json:"items"`
}

// TransactionItemView is one line of a TransactionView.
type TransactionItemView struct {
	ProductID    uint            `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	ImageURL     string          `json:"image_url"`
	Category     string          `json:"category"`
}

// HistoryService lists past transactions.
type HistoryService interface {
	// List returns a customer's purchases or a farmer's sales, newest first.
	List(ctx context.Context, caller auth.Principal) ([]TransactionView, error)
}

type historyService struct {
	transactions repository.TransactionRepository
}

// NewHistoryService creates a history service.
func NewHistoryService(transactions repository.TransactionRepository) HistoryService {
	return &historyService{transactions: transactions}
}

func (s *historyService) List(ctx context.Context, caller auth.Principal) ([]TransactionView, error) {
	var (
		txns []model.Transaction
		err  error
	)
	if !caller.Role.CanViewHistory() {
		return nil, fmt.Errorf("%w: role %q has no transaction history", apperrors.ErrUnauthorized, caller.Role)
	}
	if caller.Role.CanManageProducts() {
		txns, err = s.transactions.ListByFarmer(ctx, caller.UserID)
	} else {
		txns, err = s.transactions.ListByBuyer(ctx, caller.UserID)
	}
	if err != nil {
		return nil, apperrors.Persistence("list transactions", err)
	}

	views := make([]TransactionView, 0, len(txns))
	for _, txn := range txns {
		view := TransactionView{
			TransactionID: txn.ID,
			Date:          txn.TransactionDate,
			TotalAmount:   txn.TotalAmount,
			Items:         make([]TransactionItemView, 0, len(txn.Items)),
		}
		for _, item := range txn.Items {
			view.Items = append(view.Items, TransactionItemView{
				ProductID:    item.ProductID,
				ProductName:  item.Product.Name,
				Quantity:     item.Quantity,
				PricePerUnit: item.PricePerUnit,
				ImageURL:     item.Product.ImageURL,
				Category:     item.Product.Category,
			})
		}
		views = append(views, view)
	}
	return views, nil
}
