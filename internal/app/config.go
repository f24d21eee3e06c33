package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/foodcourt/internal/domain/order"
	"github.com/xenking/foodcourt/internal/domain/pricing"
)

// Config holds the complete application configuration, loadable from
// environment variables (FOODCOURT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (FOODCOURT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for menu images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (FOODCOURT_API_KEY_PEPPER)" flag:"api-key-pepper"`
	AMQPURL      string `default:"" usage:"RabbitMQ URL for order events; empty disables publishing" flag:"amqp-url"`
	StatusPolicy string `default:"permissive" usage:"Order status transition policy: permissive or forward" flag:"status-policy"`
	Pricing      PricingConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PricingConfig holds checkout charges. Rates are decimal strings so no
// precision is lost while parsing.
type PricingConfig struct {
	TaxRate        string        `default:"0.08" usage:"Tax rate applied to the subtotal" flag:"tax-rate"`
	DeliveryFee    string        `default:"3.99" usage:"Flat delivery fee" flag:"delivery-fee"`
	DeliveryWindow time.Duration `default:"40m"  usage:"Estimated delivery time after ordering" flag:"delivery-window"`
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	RPS   float64 `default:"5"   usage:"Sustained requests per second per client"`
	Burst int     `default:"100" usage:"Maximum burst per client"`
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
		EnvPrefix: "FOODCOURT",
		Files:     []string{"config.yaml", "/etc/foodcourt/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set FOODCOURT_DATABASE_URL or DATABASE_URL")
	}
	if c.APIKeyPepper == "" {
		return errors.New("API key pepper is required: set FOODCOURT_API_KEY_PEPPER")
	}
	if _, err := c.Pricing.Rates(); err != nil {
		return err
	}
	if _, err := order.PolicyByName(c.StatusPolicy); err != nil {
		return errors.Wrap(err, "status policy")
	}
	return nil
}

// Rates parses the configured tax rate and delivery fee.
func (p PricingConfig) Rates() (pricing.Rates, error) {
	tax, err := decimal.NewFromString(p.TaxRate)
	if err != nil {
		return pricing.Rates{}, errors.Wrapf(err, "parse tax rate %q", p.TaxRate)
	}
	fee, err := decimal.NewFromString(p.DeliveryFee)
	if err != nil {
		return pricing.Rates{}, errors.Wrapf(err, "parse delivery fee %q", p.DeliveryFee)
	}
	if tax.IsNegative() || fee.IsNegative() {
		return pricing.Rates{}, errors.New("tax rate and delivery fee must not be negative")
	}
	return pricing.Rates{TaxRate: tax, DeliveryFee: fee}, nil
}

// OrderConfig builds the checkout parameters of the order service.
func (c *Config) OrderConfig() (order.Config, error) {
	rates, err := c.Pricing.Rates()
	if err != nil {
		return order.Config{}, err
	}
	policy, err := order.PolicyByName(c.StatusPolicy)
	if err != nil {
		return order.Config{}, errors.Wrap(err, "status policy")
	}
	return order.Config{
		Rates:          rates,
		DeliveryWindow: c.Pricing.DeliveryWindow,
		Policy:         policy,
	}, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's FOODCOURT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
