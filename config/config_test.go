package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "file://migrations", cfg.DB.MigrationsPath)
	assert.Equal(t, 24, cfg.JWT.ExpiresIn)
	assert.Equal(t, time.Hour, cfg.Loans.OverdueInterval)
	assert.Equal(t, 75.0, cfg.Loans.GoldLTVPercent)
	assert.False(t, cfg.SMTP.Enabled)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_NAME", "loans_test")
	t.Setenv("LOANS_LATE_FEE_PERCENT", "3.5")
	t.Setenv("LOANS_OVERDUE_INTERVAL", "15m")
	t.Setenv("OTEL_ENDPOINT", "collector:4318")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "loans_test", cfg.DB.DBName)
	assert.Equal(t, 3.5, cfg.Loans.LateFeePercent)
	assert.Equal(t, 15*time.Minute, cfg.Loans.OverdueInterval)
	assert.Equal(t, "collector:4318", cfg.OTEL.Endpoint)
}

func TestNewConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "port out of range", key: "SERVER_PORT", value: "70000"},
		{name: "negative late fee", key: "LOANS_LATE_FEE_PERCENT", value: "-1"},
		{name: "zero jwt lifetime", key: "JWT_EXPIRES_IN", value: "0"},
		{name: "unknown db driver", key: "DB_DRIVER", value: "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}
