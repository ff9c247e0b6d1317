package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:        defaultAddr,
		DatabaseURL: "postgres://localhost/taxproof",
		Currency:    "eur",
		Tax: TaxConfig{
			Rates:        map[string]string{"standard": "19", "reduced": "7"},
			DefaultClass: "standard",
		},
		Nonce: NonceConfig{Secret: "secret"},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no rates", mutate: func(c *Config) { c.Tax.Rates = nil }},
		{
			name:    "missing database url",
			mutate:  func(c *Config) { c.DatabaseURL = "" },
			wantErr: "database URL is required",
		},
		{
			name:    "missing nonce secret",
			mutate:  func(c *Config) { c.Nonce.Secret = "" },
			wantErr: "nonce secret is required",
		},
		{
			name:    "bad rate",
			mutate:  func(c *Config) { c.Tax.Rates["reduced"] = "seven" },
			wantErr: "tax",
		},
		{
			name:    "default class without rate",
			mutate:  func(c *Config) { c.Tax.DefaultClass = "zero" },
			wantErr: `default tax class "zero" has no rate`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigShopCurrency(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, int32(2), cfg.ShopCurrency().Precision)

	cfg.Currency = "JPY"
	assert.Equal(t, int32(0), cfg.ShopCurrency().Precision)
}

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9090")

	cfg := Config{Addr: defaultAddr}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)

	cfg = Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/db"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/db", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}
