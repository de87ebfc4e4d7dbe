package main

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"farmersmarket/internal/config"
	"farmersmarket/internal/db"
	"farmersmarket/internal/logger"
	"farmersmarket/internal/model"
	"farmersmarket/internal/repository"
	"farmersmarket/internal/service"
)

const demoPassword = "password123"

type seedProduct struct {
	Name        string
	Description string
	Category    string
	Price       string
	Stock       int
}

var demoProducts = []seedProduct{
	{"Heirloom Tomatoes", "Vine-ripened, mixed varieties", "Vegetables", "4.50", 40},
	{"Carrots", "Bunch of six, tops on", "Vegetables", "2.25", 60},
	{"Honeycrisp Apples", "Per pound", "Fruits", "3.10", 80},
	{"Free-range Eggs", "One dozen", "Dairy", "5.00", 24},
	{"Wildflower Honey", "12 oz jar", "Pantry", "9.75", 15},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(gormDB, cfg.ResetDB, zlog); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}

	users, products, err := seed(context.Background(), repository.NewStore(gormDB))
	if err != nil {
		zlog.Fatal("seed failed", zap.Error(err))
	}
	if users == 0 {
		zlog.Info("database already has users, nothing seeded")
		return
	}
	zlog.Info("seed completed",
		zap.Int("users", users),
		zap.Int("products", products),
		zap.String("password", demoPassword),
	)
}

// seed creates a demo customer, a demo farmer and the farmer's products. It does
// nothing when any user exists.
func seed(ctx context.Context, store repository.Store) (users int, products int, err error) {
	count, err := store.Users().Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return 0, 0, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return 0, 0, fmt.Errorf("hash password: %w", err)
	}

	err = store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		customer := &model.User{Username: "customer", Email: "customer@example.com", PasswordHash: string(hash), Role: model.RoleCustomer}
		farmer := &model.User{Username: "farmer", Email: "farmer@example.com", PasswordHash: string(hash), Role: model.RoleFarmer}
		for _, u := range []*model.User{customer, farmer} {
			if err := tx.Users().Create(ctx, u); err != nil {
				return fmt.Errorf("create user %s: %w", u.Username, err)
			}
			users++
		}

		for _, p := range demoProducts {
			product := &model.Product{
				FarmerID:      farmer.ID,
				Name:          p.Name,
				Description:   p.Description,
				Category:      p.Category,
				Price:         decimal.RequireFromString(p.Price),
				StockQuantity: p.Stock,
				ImageURL:      service.DefaultProductImage,
			}
			if err := tx.Products().Create(ctx, product); err != nil {
				return fmt.Errorf("create product %s: %w", p.Name, err)
			}
			products++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return users, products, nil
}
