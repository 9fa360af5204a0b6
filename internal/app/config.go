package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// Config holds the complete application configuration, loadable from
// environment variables (DEALSCOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr string `default:"0.0.0.0:8080" usage:"API server listen address"`

	Deals      DealsConfig
	Storefront StorefrontConfig
	Catalog    CatalogConfig
	Resolver   ResolverConfig
	Pricing    PricingConfig
	Cache      CacheConfig
	Runs       RunsConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
	Graceful   GracefulConfig
}

// DealsConfig points at the deals aggregator.
type DealsConfig struct {
	URL     string        `usage:"Deals aggregator base URL (DEALSCOUT_DEALS_URL)" flag:"deals-url"`
	Key     string        `usage:"Deals aggregator API key (DEALSCOUT_DEALS_KEY)" flag:"deals-key"`
	Country string        `default:"" usage:"Default pricing region, e.g. us or de"`
	Timeout time.Duration `default:"30s" usage:"Aggregator request timeout"`
}

// StorefrontConfig points at the storefront serving the app catalog and
// public wishlists.
type StorefrontConfig struct {
	URL     string        `usage:"Storefront base URL (DEALSCOUT_STOREFRONT_URL)" flag:"storefront-url"`
	Timeout time.Duration `default:"2m" usage:"Storefront request timeout; the full catalog download is slow"`
}

// CatalogConfig controls where the title catalog comes from.
type CatalogConfig struct {
	Source string        `default:"url" usage:"Catalog source: url (storefront) or file (local snapshot)"`
	Path   string        `usage:"Snapshot path for the file source, .json or .json.gz" flag:"catalog-path"`
	TTL    time.Duration `default:"24h" usage:"Cached catalog snapshot lifetime"`
}

// ResolverConfig selects how titles are mapped to catalog ids.
type ResolverConfig struct {
	Strategy string `default:"local" usage:"Title resolution strategy: local or remote"`
}

// PricingConfig paces the bulk pricing requests.
type PricingConfig struct {
	ChunkSize int           `default:"100" usage:"Max ids per pricing request" flag:"chunk-size"`
	Interval  time.Duration `default:"60s" usage:"Pause between pricing requests"`
}

// CacheConfig selects the payload cache backend.
type CacheConfig struct {
	Backend string `default:"memory" usage:"Cache backend: memory or redis"`
	Redis   RedisCacheConfig
}

// RedisCacheConfig holds Redis connection settings for the redis backend.
type RedisCacheConfig struct {
	Addr      string `default:"127.0.0.1:6379" usage:"Redis address"`
	Password  string `default:"" usage:"Redis password"`
	DB        int    `default:"0" usage:"Redis database number"`
	KeyPrefix string `default:"dealscout" usage:"Prefix for all cache keys" flag:"redis-key-prefix"`
}

// RunsConfig controls run retention.
type RunsConfig struct {
	TTL time.Duration `default:"6h" usage:"How long runs stay queryable after creation" flag:"run-ttl"`
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

// LoadConfig loads configuration from a local .env file (best effort),
// environment variables, and YAML config files, then validates it.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "DEALSCOUT",
		Files:     []string{"config.yaml", "/etc/dealscout/config.yaml"},
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
	if c.Deals.URL == "" {
		return errors.New("deals aggregator URL is required: set DEALSCOUT_DEALS_URL")
	}
	if c.Deals.Key == "" {
		return errors.New("deals aggregator API key is required: set DEALSCOUT_DEALS_KEY")
	}
	if c.Storefront.URL == "" {
		return errors.New("storefront URL is required: set DEALSCOUT_STOREFRONT_URL")
	}

	switch c.Catalog.Source {
	case "url":
	case "file":
		if c.Catalog.Path == "" {
			return errors.New("catalog path is required for the file source: set DEALSCOUT_CATALOG_PATH")
		}
	default:
		return errors.Errorf("unknown catalog source %q: want url or file", c.Catalog.Source)
	}

	switch c.Resolver.Strategy {
	case "local", "remote":
	default:
		return errors.Errorf("unknown resolver strategy %q: want local or remote", c.Resolver.Strategy)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return errors.Errorf("unknown cache backend %q: want memory or redis", c.Cache.Backend)
	}

	if c.Pricing.ChunkSize < 1 || c.Pricing.ChunkSize > 100 {
		return errors.Errorf("chunk size %d out of range: the aggregator accepts 1-100 ids per request", c.Pricing.ChunkSize)
	}

	return nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like PORT and REDIS_URL
// onto the DEALSCOUT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
	if u := os.Getenv("REDIS_URL"); u != "" && c.Cache.Redis.Addr == "127.0.0.1:6379" {
		if opts, err := redis.ParseURL(u); err == nil {
			c.Cache.Redis.Addr = opts.Addr
			c.Cache.Redis.Password = opts.Password
			c.Cache.Redis.DB = opts.DB
		}
	}
}
