package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmersmarket/internal/model"
	"farmersmarket/internal/testutil"
)

func TestStore_WithTransactionRollsBackOnError(t *testing.T) {
	gormDB := testutil.NewDB(t)
	farmer := testutil.CreateUser(t, gormDB, "farmer", model.RoleFarmer)
	customer := testutil.CreateUser(t, gormDB, "customer", model.RoleCustomer)
	product := testutil.CreateProduct(t, gormDB, farmer.ID, "Carrots", "10.00", 5)
	store := NewStore(gormDB)
	boom := errors.New("boom")

	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx Store) error {
		require.NoError(t, tx.Inventory().TryDecrement(ctx, product.ID, 2))
		require.NoError(t, tx.Transactions().Create(ctx, &model.Transaction{
			BuyerID:         customer.ID,
			TransactionDate: time.Now(),
			TotalAmount:     decimal.NewFromInt(20),
		}))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, testutil.Stock(t, gormDB, product.ID))
	assert.Zero(t, testutil.Count(t, gormDB, &model.Transaction{}))
}

func TestStore_WithTransactionRollsBackOnPanic(t *testing.T) {
	gormDB := testutil.NewDB(t)
	farmer := testutil.CreateUser(t, gormDB, "farmer", model.RoleFarmer)
	product := testutil.CreateProduct(t, gormDB, farmer.ID, "Carrots", "10.00", 5)
	store := NewStore(gormDB)

	assert.Panics(t, func() {
		_ = store.WithTransaction(context.Background(), func(ctx context.Context, tx Store) error {
			require.NoError(t, tx.Inventory().TryDecrement(ctx, product.ID, 2))
			panic("handler bug")
		})
	})
	assert.Equal(t, 5, testutil.Stock(t, gormDB, product.ID))
}

func TestStore_WithTransactionCommits(t *testing.T) {
	gormDB := testutil.NewDB(t)
	farmer := testutil.CreateUser(t, gormDB, "farmer", model.RoleFarmer)
	product := testutil.CreateProduct(t, gormDB, farmer.ID, "Carrots", "10.00", 5)
	store := NewStore(gormDB)

	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx Store) error {
		return tx.Inventory().TryDecrement(ctx, product.ID, 2)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, testutil.Stock(t, gormDB, product.ID))
}
