package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig
	Monitor     MonitorConfig
	Browser     BrowserConfig
	Fetch       FetchConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Telegram    TelegramConfig
	Diagnostics DiagnosticsConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitPerSec float64
}

type MonitorConfig struct {
	// TargetURL is the listing page to watch; TargetJSONURL, when set,
	// switches the run to the plain JSON fetch path.
	TargetURL     string
	TargetJSONURL string
	Schedule      string
	DelayMin      time.Duration
	DelayMax      time.Duration
	MaxRetries    int
	PageTimeout   time.Duration
	// NameFilters restricts notifications to products whose title
	// contains one of these keywords. Empty disables filtering.
	NameFilters []string
	OutputDir   string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	UserAgents     []string
}

type FetchConfig struct {
	Retries int
	Backoff time.Duration
	Timeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Enabled  bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// AlertTTL bounds how long an availability alert suppresses
	// duplicates for the same product URL.
	AlertTTL time.Duration
}

type TelegramConfig struct {
	BotToken string
	ChatIDs  []string
}

type DiagnosticsConfig struct {
	Enabled bool
	Dir     string
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
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RateLimitPerSec: getFloatOrDefault("SERVER_RATE_LIMIT", 1),
		},
		Monitor: MonitorConfig{
			TargetURL:     os.Getenv("SCRAPING_URL"),
			TargetJSONURL: os.Getenv("SCRAPING_JSON_URL"),
			Schedule:      os.Getenv("MONITOR_SCHEDULE"),
			DelayMin:      getDurationOrDefault("MONITOR_DELAY_MIN", 800*time.Millisecond),
			DelayMax:      getDurationOrDefault("MONITOR_DELAY_MAX", 1800*time.Millisecond),
			MaxRetries:    getIntOrDefault("MONITOR_MAX_RETRIES", 5),
			PageTimeout:   getDurationOrDefault("MONITOR_PAGE_TIMEOUT", 30*time.Second),
			NameFilters:   getStringSliceOrDefault("PRODUCT_NAME_FILTERS", []string{"TCG", "Trading"}),
			OutputDir:     getEnvOrDefault("MONITOR_OUTPUT_DIR", "."),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Singapore"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-SG"),
			ProxyServer:    os.Getenv("BROWSER_PROXY"),
			UserAgents:     getStringSliceOrDefault("BROWSER_USER_AGENTS", defaultUserAgents()),
		},
		Fetch: FetchConfig{
			Retries: getIntOrDefault("FETCH_RETRIES", 3),
			Backoff: getDurationOrDefault("FETCH_BACKOFF", time.Second),
			Timeout: getDurationOrDefault("FETCH_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "stocksentry"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntOrDefault("REDIS_DB", 0),
			AlertTTL: getDurationOrDefault("ALERT_DEDUP_TTL", 6*time.Hour),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatIDs:  getStringSliceOrDefault("TELEGRAM_CHAT_IDS", nil),
		},
		Diagnostics: DiagnosticsConfig{
			Enabled: getBoolOrDefault("SCREENSHOTS_ENABLED", false),
			Dir:     getEnvOrDefault("SCREENSHOTS_DIR", "screenshots"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Monitor.TargetURL == "" && c.Monitor.TargetJSONURL == "" {
		return fmt.Errorf("SCRAPING_URL or SCRAPING_JSON_URL must be set")
	}

	if c.Monitor.DelayMin > c.Monitor.DelayMax {
		return fmt.Errorf("MONITOR_DELAY_MIN cannot be greater than MONITOR_DELAY_MAX")
	}

	if c.Monitor.MaxRetries < 0 {
		return fmt.Errorf("MONITOR_MAX_RETRIES cannot be negative")
	}

	if c.Telegram.BotToken != "" && len(c.Telegram.ChatIDs) == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_IDS must be set when TELEGRAM_BOT_TOKEN is provided")
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

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
	if value, ok := os.LookupEnv(key); ok {
		if strings.TrimSpace(value) == "" {
			return nil
		}
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	}
}
