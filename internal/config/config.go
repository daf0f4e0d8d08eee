package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Fetch    FetchConfig
	Browser  BrowserConfig
	Crawl    CrawlConfig
	Output   OutputConfig
	Summary  SummaryConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// FetchConfig selects and parameterizes the page-fetch backend.
type FetchConfig struct {
	// Backend is "browser" or "renderapi".
	Backend        string
	RenderEndpoint string
	RenderAPIKey   string
	Country        string
	Cookie         string
	RequestTimeout time.Duration
	UserAgents     []string
	Proxies        []string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type CrawlConfig struct {
	Limit                int
	MaxSuppliers         int
	MaxProductsPerSeller int
	ConcurrentLimit      int
	AbortOnAntibot       bool
	MaxRetries           int
	RetryBase            time.Duration
	RateLimitMin         time.Duration
	RateLimitMax         time.Duration
	ProductWaitMs        int
	SellerWaitMs         int
}

type OutputConfig struct {
	Dir            string
	WriteCSV       bool
	DownloadImages bool
	MaxImages      int
}

type SummaryConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	Timeout      time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	// Type is "memory" or "redis".
	Type      string
	RedisAddr string
	RedisDB   int
	TTL       time.Duration
	Size      int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 10*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Fetch: FetchConfig{
			Backend:        getEnvOrDefault("FETCH_BACKEND", "browser"),
			RenderEndpoint: getEnvOrDefault("RENDER_API_ENDPOINT", "https://api.scrapfly.io/scrape"),
			RenderAPIKey:   getEnvOrDefault("RENDER_API_KEY", ""),
			Country:        getEnvOrDefault("FETCH_COUNTRY", "us"),
			Cookie:         getEnvOrDefault("FETCH_COOKIE", ""),
			RequestTimeout: getDurationOrDefault("FETCH_REQUEST_TIMEOUT", 90*time.Second),
			UserAgents:     getStringSliceOrDefault("FETCH_USER_AGENTS", nil),
			Proxies:        getStringSliceOrDefault("FETCH_PROXIES", []string{}),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 60*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/New_York"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
		},
		Crawl: CrawlConfig{
			Limit:                getIntOrDefault("CRAWL_LIMIT", 30),
			MaxSuppliers:         getIntOrDefault("CRAWL_MAX_SUPPLIERS", 10),
			MaxProductsPerSeller: getIntOrDefault("CRAWL_MAX_PRODUCTS_PER_SELLER", 5),
			ConcurrentLimit:      getIntOrDefault("CRAWL_CONCURRENT_LIMIT", 3),
			AbortOnAntibot:       getBoolOrDefault("CRAWL_ABORT_ON_ANTIBOT", false),
			MaxRetries:           getIntOrDefault("CRAWL_MAX_RETRIES", 3),
			RetryBase:            getDurationOrDefault("CRAWL_RETRY_BASE", time.Second),
			RateLimitMin:         getDurationOrDefault("CRAWL_RATE_LIMIT_MIN", time.Second),
			RateLimitMax:         getDurationOrDefault("CRAWL_RATE_LIMIT_MAX", 3*time.Second),
			ProductWaitMs:        getIntOrDefault("CRAWL_PRODUCT_WAIT_MS", 2000),
			SellerWaitMs:         getIntOrDefault("CRAWL_SELLER_WAIT_MS", 2000),
		},
		Output: OutputConfig{
			Dir:            getEnvOrDefault("OUTPUT_DIR", "output"),
			WriteCSV:       getBoolOrDefault("OUTPUT_WRITE_CSV", true),
			DownloadImages: getBoolOrDefault("OUTPUT_DOWNLOAD_IMAGES", false),
			MaxImages:      getIntOrDefault("OUTPUT_MAX_IMAGES", 10),
		},
		Summary: SummaryConfig{
			GeminiAPIKey: getEnvOrDefault("GEMINI_API_KEY", ""),
			GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
			Timeout:      getDurationOrDefault("SUMMARY_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "aliexpress_scraper"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Cache: CacheConfig{
			Type:      getEnvOrDefault("CACHE_TYPE", "memory"),
			RedisAddr: getEnvOrDefault("CACHE_REDIS_ADDR", "localhost:6379"),
			RedisDB:   getIntOrDefault("CACHE_REDIS_DB", 0),
			TTL:       getDurationOrDefault("CACHE_TTL", 30*time.Minute),
			Size:      getIntOrDefault("CACHE_SIZE", 128),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Fetch.Backend {
	case "browser", "renderapi":
	default:
		return fmt.Errorf("FETCH_BACKEND must be \"browser\" or \"renderapi\", got %q", c.Fetch.Backend)
	}

	if c.Fetch.Backend == "renderapi" && c.Fetch.RenderAPIKey == "" {
		return fmt.Errorf("RENDER_API_KEY is required when FETCH_BACKEND=renderapi")
	}

	if c.Crawl.ConcurrentLimit < 1 {
		return fmt.Errorf("CRAWL_CONCURRENT_LIMIT must be at least 1")
	}

	if c.Crawl.RateLimitMin > c.Crawl.RateLimitMax {
		return fmt.Errorf("CRAWL_RATE_LIMIT_MIN cannot be greater than CRAWL_RATE_LIMIT_MAX")
	}

	if c.Crawl.MaxSuppliers < 1 {
		return fmt.Errorf("CRAWL_MAX_SUPPLIERS must be at least 1")
	}

	switch c.Cache.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("CACHE_TYPE must be \"memory\" or \"redis\", got %q", c.Cache.Type)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
