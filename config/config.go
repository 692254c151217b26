package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

// Config is built once at startup and handed to every service by value.
type Config struct {
	AppName  string
	HTTPPort int
	LogLevel string

	DatabaseDriver string
	DatabaseURL    string
	SqlitePath     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL string
	EventsQueue string

	GeneratorURL     string
	GeneratorKey     string
	GeneratorModel   string
	GeneratorTimeout time.Duration

	PaymentAPIURL        string
	PaymentAPIKey        string
	PaymentWebhookSecret string
	PaymentTimeout       time.Duration
	productIDs           map[string]string

	PrometheusPort int

	GenerateRateLimit  int
	GenerateRateWindow time.Duration
	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration
}

// Load reads the process environment. Call godotenv.Load first when a .env file is used.
func Load() (Config, error) {
	cfg := Config{
		AppName:  getEnv("APP_NAME", "gamified-study"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseDriver: strings.ToLower(getEnv("DB_DRIVER", DriverSqlite)),
		DatabaseURL:    postgresDSN(),
		SqlitePath:     getEnv("DB_DATABASE", "gamified_study.db"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
		EventsQueue: getEnv("EVENTS_QUEUE", "study.events"),

		GeneratorURL:   strings.TrimRight(getEnv("LLM_PROXY_URL", "https://llm-proxy.densematrix.ai"), "/"),
		GeneratorKey:   os.Getenv("LLM_PROXY_KEY"),
		GeneratorModel: getEnv("LLM_MODEL", "claude-sonnet-4-20250514"),

		PaymentAPIURL:        strings.TrimRight(getEnv("CREEM_API_URL", "https://api.creem.io"), "/"),
		PaymentAPIKey:        os.Getenv("CREEM_API_KEY"),
		PaymentWebhookSecret: os.Getenv("CREEM_WEBHOOK_SECRET"),
	}

	var err error
	if cfg.HTTPPort, err = getInt("HTTP_PORT", 8000); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.PrometheusPort, err = getInt("PROMETHEUS_PORT", 2112); err != nil {
		return Config{}, err
	}
	if cfg.GenerateRateLimit, err = getInt("GENERATE_RATE_LIMIT", 30); err != nil {
		return Config{}, err
	}
	if cfg.CheckoutRateLimit, err = getInt("CHECKOUT_RATE_LIMIT", 10); err != nil {
		return Config{}, err
	}
	if cfg.GeneratorTimeout, err = getDuration("LLM_TIMEOUT", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PaymentTimeout, err = getDuration("CREEM_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.GenerateRateWindow, err = getDuration("GENERATE_RATE_WINDOW", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.CheckoutRateWindow, err = getDuration("CHECKOUT_RATE_WINDOW", 15*time.Minute); err != nil {
		return Config{}, err
	}

	if cfg.productIDs, err = parseProductIDs(getEnv("CREEM_PRODUCT_IDS", "{}")); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseDriver != DriverPostgres && cfg.DatabaseDriver != DriverSqlite {
		return Config{}, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.DatabaseDriver)
	}

	return cfg, nil
}

// WithProductIDs returns a copy of cfg using the given sku → provider product id mapping.
func (c Config) WithProductIDs(ids map[string]string) Config {
	c.productIDs = make(map[string]string, len(ids))
	for sku, id := range ids {
		c.productIDs[sku] = id
	}
	return c
}

// ProductID resolves a catalog sku to the payment provider's product id.
func (c Config) ProductID(sku string) (string, bool) {
	id, ok := c.productIDs[sku]
	return id, ok && id != ""
}

func (c Config) PaymentConfigured() bool {
	return c.PaymentAPIKey != ""
}

func parseProductIDs(raw string) (map[string]string, error) {
	ids := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return ids, nil
	}
	if err := sonic.UnmarshalString(raw, &ids); err != nil {
		return nil, fmt.Errorf("config: CREEM_PRODUCT_IDS must be a JSON object: %w", err)
	}
	return ids, nil
}

func postgresDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "gamified_study"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
		getEnv("DB_TIMEZONE", "UTC"),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
