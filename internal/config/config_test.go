package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "default", cfg.CartKey)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, CatalogHTTP, cfg.CatalogSource)
	assert.Equal(t, time.Duration(0), cfg.RedisTTL)
	assert.Equal(t, time.Duration(0), cfg.ReconcileInterval)
	assert.Equal(t, 5*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CatalogSyncInterval)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CART_KEY", "shopper-7")
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("REDIS_TTL_SECONDS", "3600")
	t.Setenv("CATALOG_SOURCE", "sqlite")
	t.Setenv("RECONCILE_INTERVAL_SECONDS", "30")
	t.Setenv("CATALOG_SYNC_INTERVAL_SECONDS", "0")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "shopper-7", cfg.CartKey)
	assert.Equal(t, StorageRedis, cfg.StorageBackend)
	assert.Equal(t, time.Hour, cfg.RedisTTL)
	assert.Equal(t, CatalogSQLite, cfg.CatalogSource)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, time.Duration(0), cfg.CatalogSyncInterval)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"STORAGE_BACKEND":            "postgres",
		"CATALOG_SOURCE":             "grpc",
		"REDIS_TTL_SECONDS":          "-1",
		"RECONCILE_INTERVAL_SECONDS": "soon",
		"CART_KEY":                   "   ",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
