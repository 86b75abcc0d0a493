package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultEnvFile            = ".env"
	defaultPort               = "8080"
	defaultReadTimeout        = 15 * time.Second
	defaultWriteTimeout       = 30 * time.Second
	defaultIdleTimeout        = 120 * time.Second
	defaultGatewayProvider    = "simulator"
	defaultGatewayTimeout     = 10 * time.Second
	defaultApprovalRate       = 0.90
	defaultRefundApprovalRate = 0.95
	defaultTaxRate            = "0.13"
	defaultTipPercentage      = "15"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Gateway GatewayConfig
	Pricing PricingConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig selects the order store backend. An empty DatabaseURL keeps
// everything in memory.
type StoreConfig struct {
	DatabaseURL string
}

// GatewayConfig controls the payment gateway wiring.
type GatewayConfig struct {
	Provider           string
	Timeout            time.Duration
	ApprovalRate       float64
	RefundApprovalRate float64
	SimulatorLatency   time.Duration
	StripeAPIKey       string
}

// PricingConfig carries the defaults applied when a draft omits its rates.
type PricingConfig struct {
	TaxRate       decimal.Decimal
	TipPercentage decimal.Decimal
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Store: StoreConfig{
			DatabaseURL: stringWithDefault(lookup, "API_DATABASE_URL", ""),
		},
		Gateway: GatewayConfig{
			Provider:           strings.ToLower(stringWithDefault(lookup, "API_GATEWAY_PROVIDER", defaultGatewayProvider)),
			Timeout:            durationWithDefault(lookup, "API_GATEWAY_TIMEOUT", defaultGatewayTimeout),
			ApprovalRate:       floatWithDefault(lookup, "API_GATEWAY_APPROVAL_RATE", defaultApprovalRate),
			RefundApprovalRate: floatWithDefault(lookup, "API_GATEWAY_REFUND_APPROVAL_RATE", defaultRefundApprovalRate),
			SimulatorLatency:   durationWithDefault(lookup, "API_GATEWAY_SIMULATOR_LATENCY", 0),
			StripeAPIKey:       stringWithDefault(lookup, "API_GATEWAY_STRIPE_API_KEY", ""),
		},
		Pricing: PricingConfig{
			TaxRate:       decimalWithDefault(lookup, "API_PRICING_TAX_RATE", defaultTaxRate),
			TipPercentage: decimalWithDefault(lookup, "API_PRICING_TIP_PERCENTAGE", defaultTipPercentage),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	switch cfg.Gateway.Provider {
	case "simulator":
	case "stripe":
		if cfg.Gateway.StripeAPIKey == "" {
			missing = append(missing, "Gateway.StripeAPIKey")
		}
	default:
		missing = append(missing, "Gateway.Provider")
	}
	if cfg.Gateway.Timeout <= 0 {
		missing = append(missing, "Gateway.Timeout")
	}
	if cfg.Gateway.ApprovalRate < 0 || cfg.Gateway.ApprovalRate > 1 {
		missing = append(missing, "Gateway.ApprovalRate")
	}
	if cfg.Gateway.RefundApprovalRate < 0 || cfg.Gateway.RefundApprovalRate > 1 {
		missing = append(missing, "Gateway.RefundApprovalRate")
	}
	if cfg.Gateway.SimulatorLatency < 0 {
		missing = append(missing, "Gateway.SimulatorLatency")
	}
	if cfg.Pricing.TaxRate.IsNegative() || cfg.Pricing.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		missing = append(missing, "Pricing.TaxRate")
	}
	if cfg.Pricing.TipPercentage.IsNegative() || cfg.Pricing.TipPercentage.GreaterThan(decimal.NewFromInt(100)) {
		missing = append(missing, "Pricing.TipPercentage")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func decimalWithDefault(lookup func(string) (string, bool), key, fallback string) decimal.Decimal {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	return decimal.RequireFromString(fallback)
}
