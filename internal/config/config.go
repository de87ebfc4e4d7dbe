package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration loaded from environment variables
// and, optionally, a YAML file named by CONFIG_FILE.
type Config struct {
	ServerPort  string
	SwaggerHost string

	DBDriver    string
	MySQLDSN    string
	DatabaseDSN string
	ResetDB     bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret string

	LogLevel    string
	LogEncoding string

	PurchaseTimeout time.Duration
	CatalogCacheTTL time.Duration

	AuditSink       string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	KafkaBrokers []string
}

var defaults = map[string]interface{}{
	"SERVER_PORT":       "8080",
	"DB_DRIVER":         "mysql",
	"MYSQL_DSN":         "user:password@tcp(localhost:3306)/farmers_market?charset=utf8mb4&parseTime=True&loc=Local",
	"DATABASE_DSN":      "host=localhost user=postgres password=postgres dbname=farmers_market port=5432 sslmode=disable",
	"RESET_DB":          false,
	"REDIS_ADDR":        "localhost:6379",
	"REDIS_DB":          0,
	"JWT_SECRET":        "change-me",
	"LOG_LEVEL":         "info",
	"LOG_ENCODING":      "json",
	"PURCHASE_TIMEOUT":  "10s",
	"CATALOG_CACHE_TTL": "5m",
	"AUDIT_SINK":        "sql",
	"MONGO_DATABASE":    "farmers_market",
	"MONGO_COLLECTION":  "action_logs",
}

// Load builds Config from environment with sensible defaults.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		ServerPort:      v.GetString("SERVER_PORT"),
		SwaggerHost:     v.GetString("SWAGGER_HOST"),
		DBDriver:        strings.ToLower(v.GetString("DB_DRIVER")),
		MySQLDSN:        v.GetString("MYSQL_DSN"),
		DatabaseDSN:     v.GetString("DATABASE_DSN"),
		ResetDB:         v.GetBool("RESET_DB"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisDB:         v.GetInt("REDIS_DB"),
		RedisPass:       v.GetString("REDIS_PASSWORD"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogEncoding:     v.GetString("LOG_ENCODING"),
		PurchaseTimeout: v.GetDuration("PURCHASE_TIMEOUT"),
		CatalogCacheTTL: v.GetDuration("CATALOG_CACHE_TTL"),
		AuditSink:       strings.ToLower(v.GetString("AUDIT_SINK")),
		MongoURI:        v.GetString("MONGO_URI"),
		MongoDatabase:   v.GetString("MONGO_DATABASE"),
		MongoCollection: v.GetString("MONGO_COLLECTION"),
		KafkaBrokers:    splitList(v.GetString("KAFKA_BROKERS")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DatabaseDSN
	}
	return c.MySQLDSN
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.AuditSink {
	case "sql":
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("AUDIT_SINK=mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("unsupported AUDIT_SINK %q", c.AuditSink)
	}
	if c.PurchaseTimeout <= 0 {
		return fmt.Errorf("PURCHASE_TIMEOUT must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
