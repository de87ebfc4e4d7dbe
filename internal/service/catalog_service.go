package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// DefaultProductImage is used when a product is listed without an image.
const DefaultProductImage = "/uploads/default-product.jpg"

const defaultCatalogCacheTTL = 5 * time.Minute

func productCacheKey(id uint) string {
	return fmt.Sprintf("product:%d", id)
}

// ProductInput holds the fields of a new product.
type ProductInput struct {
	Name          string
	Description   string
	Category      string
	Price         decimal.Decimal
	StockQuantity int
	ImageURL      string
}

// ProductPatch holds the fields to change on a product. Nil fields are left alone.
type ProductPatch struct {
	Name          *string
	Description   *string
	Category      *string
	Price         *decimal.Decimal
	StockQuantity *int
	ImageURL      *string
}

// CatalogService is the read path for browsing and the write path for farmers.
type CatalogService interface {
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
	CreateProduct(ctx context.Context, farmer auth.Principal, input ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, farmer auth.Principal, id uint, patch ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, farmer auth.Principal, id uint) error
}

type catalogService struct {
	products  repository.ProductRepository
	cache     *cache.Client
	ttl       time.Duration
	recorder  audit.Recorder
	publisher events.Publisher
	log       *zap.Logger
}

// NewCatalogService creates a catalog service. Product lookups are cached for ttl.
func NewCatalogService(
	products repository.ProductRepository,
	cache *cache.Client,
	ttl time.Duration,
	recorder audit.Recorder,
	publisher events.Publisher,
	log *zap.Logger,
) CatalogService {
	if ttl <= 0 {
		ttl = defaultCatalogCacheTTL
	}
	return &catalogService{
		products:  products,
		cache:     cache,
		ttl:       ttl,
		recorder:  recorder,
		publisher: publisher,
		log:       log,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	products, err := s.products.ListAvailable(ctx, filter)
	if err != nil {
		return nil, apperrors.Persistence("list products", err)
	}
	return products, nil
}

// GetProduct returns a product, possibly from cache. Its stock figure is for display only.
func (s *catalogService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	var cached model.Product
	if s.cache.GetJSON(ctx, productCacheKey(id), &cached) {
		return &cached, nil
	}

	product, err := s.products.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, apperrors.Persistence("find product", err)
	}

	_ = s.cache.SetJSON(ctx, productCacheKey(id), product, s.ttl)
	return product, nil
}

func authorizeFarmer(farmer auth.Principal) error {
	if !farmer.Role.CanManageProducts() {
		return fmt.Errorf("%w: role %q cannot manage products", apperrors.ErrUnauthorized, farmer.Role)
	}
	return nil
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.InvalidRequest("product_name is required")
	}
	if input.Price.IsNegative() {
		return apperrors.InvalidRequest("price must not be negative")
	}
	if input.StockQuantity < 0 {
		return apperrors.InvalidRequest("stock_quantity must not be negative")
	}
	return nil
}

func (s *catalogService) CreateProduct(ctx context.Context, farmer auth.Principal, input ProductInput) (*model.Product, error) {
	if err := authorizeFarmer(farmer); err != nil {
		return nil, err
	}
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	if input.ImageURL == "" {
		input.ImageURL = DefaultProductImage
	}

	product := &model.Product{
		FarmerID:      farmer.UserID,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Category:      input.Category,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		ImageURL:      input.ImageURL,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, apperrors.Persistence("create product", err)
	}

	s.recorder.Record(ctx, farmer.UserID, audit.ActionAddProduct, "Added product: "+product.Name)
	if product.StockQuantity > 0 {
		s.publisher.StockUpdated(ctx, events.StockUpdated{
			ProductID:  product.ID,
			Delta:      product.StockQuantity,
			OccurredAt: product.CreatedAt,
		})
	}
	return product, nil
}

// ownedProduct loads a product of the farmer. Products of other farmers read as missing.
func (s *catalogService) ownedProduct(ctx context.Context, farmer auth.Principal, id uint) (*model.Product, error) {
	if err := authorizeFarmer(farmer); err != nil {
		return nil, err
	}
	product, err := s.products.FindByIDAndFarmer(ctx, id, farmer.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, apperrors.Persistence("find product", err)
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, farmer auth.Principal, id uint, patch ProductPatch) (*model.Product, error) {
	product, err := s.ownedProduct(ctx, farmer, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.InvalidRequest("product_name must not be empty")
		}
		fields["name"] = name
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Category != nil {
		fields["category"] = *patch.Category
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, apperrors.InvalidRequest("price must not be negative")
		}
		fields["price"] = *patch.Price
	}
	if patch.StockQuantity != nil {
		if *patch.StockQuantity < 0 {
			return nil, apperrors.InvalidRequest("stock_quantity must not be negative")
		}
		fields["stock_quantity"] = *patch.StockQuantity
	}
	if patch.ImageURL != nil {
		fields["image_url"] = *patch.ImageURL
	}
	if len(fields) == 0 {
		return product, nil
	}

	if err := s.products.Update(ctx, id, fields); err != nil {
		return nil, apperrors.Persistence("update product", err)
	}
	_ = s.cache.Delete(ctx, productCacheKey(id))
	s.recorder.Record(ctx, farmer.UserID, audit.ActionUpdateProduct, fmt.Sprintf("Updated product ID: %d", id))

	updated, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("reload product", err)
	}
	if delta := updated.StockQuantity - product.StockQuantity; patch.StockQuantity != nil && delta != 0 {
		s.publisher.StockUpdated(ctx, events.StockUpdated{
			ProductID:  id,
			Delta:      delta,
			OccurredAt: updated.UpdatedAt,
		})
	}
	return updated, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, farmer auth.Principal, id uint) error {
	if _, err := s.ownedProduct(ctx, farmer, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperrors.ProductNotFoundError{ProductID: id}
		}
		return apperrors.Persistence("delete product", err)
	}
	_ = s.cache.Delete(ctx, productCacheKey(id))
	s.recorder.Record(ctx, farmer.UserID, audit.ActionDeleteProduct, fmt.Sprintf("Deleted product ID: %d", id))
	s.log.Info("product deleted", zap.Uint("product_id", id), zap.Uint("farmer_id", farmer.UserID))
	return nil
}
