package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"

	CatalogHTTP   = "http"
	CatalogSQLite = "sqlite"
)

type Config struct {
	HTTPPort string
	CartKey  string
	LogLevel string

	StorageBackend string
	RedisAddr      string
	RedisPassword  string
	RedisTTL       time.Duration
	MongoURI       string
	MongoDBName    string

	CatalogSource         string
	CatalogURL            string
	CatalogDBPath         string
	CatalogMigrationsPath string
	CatalogTimeout        time.Duration
	CatalogSyncInterval   time.Duration

	ReconcileInterval time.Duration

	KafkaBrokers     []string
	OrderEventsTopic string
	KafkaGroupID     string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file, then builds the config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		CartKey:  getEnv("CART_KEY", "default"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "cartdb"),

		CatalogSource:         strings.ToLower(getEnv("CATALOG_SOURCE", CatalogHTTP)),
		CatalogURL:            getEnv("CATALOG_URL", "http://localhost:8081"),
		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "./catalog.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "internal/catalog/migrations"),

		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "")),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order-created"),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "cart-engine"),

		RequestTimeout: 30 * time.Second,
	}

	var err error
	if cfg.RedisTTL, err = getSeconds("REDIS_TTL_SECONDS", 0); err != nil {
		return nil, err
	}
	if cfg.CatalogTimeout, err = getSeconds("CATALOG_TIMEOUT_SECONDS", 5); err != nil {
		return nil, err
	}
	if cfg.CatalogSyncInterval, err = getSeconds("CATALOG_SYNC_INTERVAL_SECONDS", 300); err != nil {
		return nil, err
	}
	if cfg.ReconcileInterval, err = getSeconds("RECONCILE_INTERVAL_SECONDS", 0); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getSeconds("SHUTDOWN_TIMEOUT_SECONDS", 10); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case StorageMemory, StorageRedis, StorageMongo:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.CatalogSource {
	case CatalogHTTP, CatalogSQLite:
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.CatalogSource)
	}
	if strings.TrimSpace(c.CartKey) == "" {
		return errors.New("CART_KEY must not be blank")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getSeconds(key string, defaultValue int) (time.Duration, error) {
	raw := getEnv(key, strconv.Itoa(defaultValue))
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
	}
	return time.Duration(n) * time.Second, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
