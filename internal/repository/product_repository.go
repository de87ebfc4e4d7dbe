package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"farmersmarket/internal/model"
)

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category string
	Search   string
}

// ProductRepository defines product persistence operations.
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByIDAndFarmer(ctx context.Context, id, farmerID uint) (*model.Product, error)
	ListAvailable(ctx context.Context, filter ProductFilter) ([]model.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create creates a new product.
func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update writes only the given columns, so a concurrent stock decrement is never
// overwritten by a stale read of the row.
func (r *productRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete soft-deletes a product so historical transaction items still resolve it.
func (r *productRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a product by ID.
func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDAndFarmer finds a product owned by the given farmer.
func (r *productRepository) FindByIDAndFarmer(ctx context.Context, id, farmerID uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Where("id = ? AND farmer_id = ?", id, farmerID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListAvailable lists products with stock left, optionally by category and search term.
func (r *productRepository) ListAvailable(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	q := r.db.WithContext(ctx).Where("stock_quantity > 0")
	if c := strings.TrimSpace(filter.Category); c != "" && c != "all" {
		q = q.Where("category = ?", c)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		term := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?)", term, term, term)
	}

	var products []model.Product
	if err := q.Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
