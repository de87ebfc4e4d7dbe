package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one checkout event of one buyer for one product. Rows are never updated.
type Transaction struct {
	ID              uint            `json:"transaction_id" gorm:"primaryKey"`
	BuyerID         uint            `json:"buyer_id" gorm:"not null;index"`
	TransactionDate time.Time       `json:"date" gorm:"not null;index"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null"`

	// Relations
	Buyer User              `json:"-" gorm:"foreignKey:BuyerID"`
	Items []TransactionItem `json:"items,omitempty" gorm:"foreignKey:TransactionID"`
}

// TransactionItem holds the line detail of a transaction. PricePerUnit is the product
// price at the moment of sale, so later price edits don't change history.
type TransactionItem struct {
	ID            uint            `json:"item_id" gorm:"primaryKey"`
	TransactionID uint            `json:"transaction_id" gorm:"not null;index"`
	ProductID     uint            `json:"product_id" gorm:"not null;index"`
	Quantity      int             `json:"quantity" gorm:"not null"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit" gorm:"type:decimal(10,2);not null"`

	// Relations
	Product Product `json:"-" gorm:"foreignKey:ProductID"`
}
