package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/storage/s3"
)

const (
	defaultAddr           = "0.0.0.0:8080"
	defaultStorefrontAddr = "0.0.0.0:3000"
)

// Config is the catalog API configuration, loadable from environment
// variables (STORE_ prefix), flags or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Upload      UploadConfig
	S3          s3.Config
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// UploadConfig controls image uploads.
type UploadConfig struct {
	Prefix   string `default:"product-images" usage:"Key prefix uploaded images are stored under"`
	MaxBytes int64  `default:"10485760" usage:"Maximum upload request size in bytes" flag:"upload-max-bytes"`
	TempDir  string `usage:"Directory uploads are spooled to; system temp dir when empty" flag:"upload-temp-dir"`
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

// StorefrontConfig is the catalog page server configuration.
type StorefrontConfig struct {
	Addr           string        `default:"0.0.0.0:3000" usage:"Storefront listen address"`
	Title          string        `default:"Our Products" usage:"Page title"`
	CatalogURL     string        `default:"http://localhost:8080/api" usage:"Catalog API base URL" flag:"catalog-url"`
	WhatsAppNumber string        `usage:"WhatsApp number orders are sent to, international format" flag:"whatsapp-number"`
	CacheMaxAge    time.Duration `default:"0s" usage:"How long a loaded catalog is reused; 0 keeps it until refresh" flag:"cache-max-age"`
	FetchTimeout   time.Duration `default:"5s" usage:"Catalog API request timeout" flag:"fetch-timeout"`
	Graceful       GracefulConfig
}

// LoadConfig loads the catalog API configuration.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := load(&cfg); err != nil {
		return nil, err
	}
	cfg.Addr = platformAddr(cfg.Addr, defaultAddr)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Upload.MaxBytes <= 0 {
		return nil, errors.New("upload max bytes must be positive")
	}
	return &cfg, nil
}

// LoadStorefrontConfig loads the catalog page server configuration.
func LoadStorefrontConfig() (*StorefrontConfig, error) {
	var cfg StorefrontConfig
	if err := load(&cfg); err != nil {
		return nil, err
	}
	cfg.Addr = platformAddr(cfg.Addr, defaultStorefrontAddr)

	if cfg.CatalogURL == "" {
		return nil, errors.New("catalog URL is required: set STORE_CATALOG_URL")
	}
	if cfg.WhatsAppNumber == "" {
		return nil, errors.New("WhatsApp number is required: set STORE_WHATSAPP_NUMBER")
	}
	return &cfg, nil
}

func load(dst any) error {
	loader := aconfig.LoaderFor(dst, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return errors.Wrap(err, "load config")
	}
	return nil
}

// platformAddr honours the PORT variable set by hosting platforms (Railway,
// Render, Fly) unless the address was configured explicitly.
func platformAddr(addr, def string) string {
	if port := os.Getenv("PORT"); port != "" && addr == def {
		return "0.0.0.0:" + port
	}
	return addr
}
