package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/taxproof-coupons/internal/domain/money"
	"github.com/xenking/taxproof-coupons/internal/domain/tax"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (TAXPROOF_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (TAXPROOF_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (TAXPROOF_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Currency     string `default:"eur" usage:"Shop currency, ISO 4217 code"`
	Tax          TaxConfig
	Nonce        NonceConfig
	CouponCache  CouponCacheConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// TaxConfig describes the shop's tax classes.
type TaxConfig struct {
	Rates            map[string]string `usage:"Tax rate in percent per tax class, e.g. standard:19,reduced:7"`
	DefaultClass     string            `default:"standard" usage:"Tax class of products without one" flag:"tax-default-class"`
	PricesIncludeTax bool              `default:"false" usage:"Catalog prices are entered including tax" flag:"prices-include-tax"`
}

// NonceConfig controls the tokens protecting admin form saves.
type NonceConfig struct {
	Secret   string        `usage:"HMAC secret for form tokens (TAXPROOF_NONCE_SECRET)" flag:"nonce-secret"`
	Lifetime time.Duration `default:"24h" usage:"Form token lifetime" flag:"nonce-lifetime"`
}

// CouponCacheConfig controls the in-memory coupon rule cache.
type CouponCacheConfig struct {
	TTL time.Duration `default:"30s" usage:"Coupon cache TTL, 0 disables the cache" flag:"coupon-cache-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "TAXPROOF",
		Files:     []string{"config.yaml", "/etc/taxproof/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set TAXPROOF_DATABASE_URL or DATABASE_URL")
	}
	if c.Nonce.Secret == "" {
		return errors.New("nonce secret is required: set TAXPROOF_NONCE_SECRET")
	}
	if _, err := tax.NewTable(c.TaxTable()); err != nil {
		return errors.Wrap(err, "tax")
	}
	return nil
}

// ShopCurrency returns the configured currency with its precision.
func (c *Config) ShopCurrency() money.Currency {
	return money.NewCurrency(c.Currency)
}

// TaxTable returns the tax.Config for the configured classes. Without any
// configured rate every class is untaxed.
func (c *Config) TaxTable() tax.Config {
	rates := c.Tax.Rates
	if len(rates) == 0 {
		rates = map[string]string{c.Tax.DefaultClass: "0"}
	}
	return tax.Config{
		Rates:            rates,
		DefaultClass:     c.Tax.DefaultClass,
		PricesIncludeTax: c.Tax.PricesIncludeTax,
		Currency:         c.ShopCurrency(),
	}
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's TAXPROOF_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
