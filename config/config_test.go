package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "SOURCE_KIND", "SHEET_ORDERS", "FETCH_TIMEOUT_SECONDS", "CACHE_BACKEND",
		"KAFKA_ENABLED", "CORS_ALLOWED_ORIGINS", "RECENCY_THRESHOLD_DAYS", "EFFECTIVENESS_THRESHOLD", "TOP_N", "VENDOR_TOP_N"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "sheet", cfg.Source.Kind)
	assert.Equal(t, "pedido", cfg.Source.OrdersSheet)
	assert.Equal(t, 30*time.Second, cfg.Source.FetchTimeout)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 90, cfg.Business.RecencyThresholdDays)
	assert.InDelta(t, 0.80, cfg.Business.EffectivenessThreshold, 1e-9)
	assert.Equal(t, 5, cfg.Business.TopN)
	assert.Equal(t, 10, cfg.Business.VendorTopN)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SOURCE_KIND", "postgres")
	t.Setenv("SOURCE_ID", "crm")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_TTL_SECONDS", "600")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RECENCY_THRESHOLD_DAYS", "120")
	t.Setenv("EFFECTIVENESS_THRESHOLD", "0.7")
	t.Setenv("TRACING_ENABLED", "not-a-bool")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.Source.Kind)
	assert.Equal(t, "crm", cfg.Source.ID)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 120, cfg.Business.RecencyThresholdDays)
	assert.InDelta(t, 0.7, cfg.Business.EffectivenessThreshold, 1e-9)
	assert.False(t, cfg.Observ.TracingEnabled)
}
