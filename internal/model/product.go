package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is an item listed by a farmer. StockQuantity never drops below zero.
type Product struct {
	ID            uint            `json:"product_id" gorm:"primaryKey"`
	FarmerID      uint            `json:"farmer_id" gorm:"not null;index"`
	Name          string          `json:"product_name" gorm:"size:255;not null"`
	Description   string          `json:"description" gorm:"type:text"`
	Category      string          `json:"category" gorm:"size:100;index"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null;default:0"`
	StockQuantity int             `json:"stock_quantity" gorm:"not null;default:0;check:stock_quantity >= 0"`
	ImageURL      string          `json:"image_url" gorm:"size:255"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `json:"-" gorm:"index"`

	// Relations
	Farmer User `json:"-" gorm:"foreignKey:FarmerID"`
}
