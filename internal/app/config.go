package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Catalog backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the Catalog Store configuration, loadable from environment
// variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr           string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	Backend        string        `default:"file" usage:"Catalog backend: file or postgres"`
	ProductsFile   string        `default:"db/seed/products.json" usage:"Products JSON file for the file backend" flag:"products-file"`
	DatabaseURL    string        `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	MaxConns       int32         `default:"0" usage:"Maximum PostgreSQL connections (0 for the pgx default)" flag:"max-conns"`
	ImageBaseURL   string        `default:"" usage:"Base URL for relative product images" flag:"image-base-url"`
	AddressLatency time.Duration `default:"300ms" usage:"Simulated address lookup latency" flag:"address-latency"`
	Prefilter      PrefilterConfig
	RateLimit      RateLimitConfig
	CORS           CORSConfig
	Graceful       GracefulConfig
}

// PrefilterConfig controls the bloom filter in front of the catalog backend.
type PrefilterConfig struct {
	Enabled           bool          `default:"false" usage:"Answer unknown product ids from a bloom filter"`
	Refresh           time.Duration `default:"1m" usage:"Bloom filter rebuild interval"`
	FalsePositiveRate float64       `default:"0.001" usage:"Bloom filter false positive rate" flag:"prefilter-fpr"`
}

// RateLimitConfig controls the per-client stock update limiter.
type RateLimitConfig struct {
	Max     int           `default:"60" usage:"Max limited requests per window (0 disables)"`
	Window  time.Duration `default:"1m" usage:"Rate limit window duration"`
	Methods []string      `default:"PUT" usage:"HTTP methods subject to rate limiting"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
	MaxAge  int      `default:"86400" usage:"Preflight cache duration in seconds" flag:"cors-max-age"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and flags, then applies platform defaults and validates it.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected backend is fully configured.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.ProductsFile == "" {
			return errors.New("products file is required for the file backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if c.Prefilter.Enabled && c.Prefilter.Refresh <= 0 {
		return errors.New("prefilter refresh interval must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) such as DATABASE_URL and PORT onto the configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
