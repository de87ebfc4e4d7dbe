// Package testutil provides helpers shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"farmersmarket/internal/db"
	"farmersmarket/internal/model"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
// The pool holds a single connection, so concurrent transactions run one after
// another. Tests on it check outcomes, not how statements interleave.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB, false, zap.NewNop()))
	return gormDB
}

// CreateUser inserts a user with the given role.
func CreateUser(t testing.TB, gormDB *gorm.DB, username string, role model.Role) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, gormDB.Create(user).Error)
	return user
}

// CreateProduct inserts a product owned by farmerID.
func CreateProduct(t testing.TB, gormDB *gorm.DB, farmerID uint, name, price string, stock int) *model.Product {
	t.Helper()
	product := &model.Product{
		FarmerID:      farmerID,
		Name:          name,
		Category:      "Vegetables",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	require.NoError(t, gormDB.Create(product).Error)
	return product
}

// Stock reads the current stock of a product, ignoring soft deletes.
func Stock(t testing.TB, gormDB *gorm.DB, productID uint) int {
	t.Helper()
	var product model.Product
	require.NoError(t, gormDB.Unscoped().First(&product, productID).Error)
	return product.StockQuantity
}

// Count returns the number of rows of the given model.
func Count(t testing.TB, gormDB *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gormDB.Model(m).Count(&n).Error)
	return n
}
