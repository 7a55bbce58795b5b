package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	API       APIConfig
	Session   SessionConfig
	Redis     RedisConfig
	Chat      ChatConfig
	Policy    PolicyConfig
	Receipt   ReceiptConfig
	Storage   StorageConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	MockAPI   MockAPIConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// APIConfig holds the marketplace backend settings
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig selects where the session is persisted
type SessionConfig struct {
	Backend   string // file, redis, memory
	Path      string // file backend only
	KeyPrefix string // redis backend only
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ChatConfig holds chat watching settings
type ChatConfig struct {
	PollInterval time.Duration
	Stream       bool // prefer server-sent events over polling
}

// PolicyConfig holds the deployment-specific lifecycle rules
type PolicyConfig struct {
	MinPaymentAmount          decimal.Decimal
	MaxPaymentAmount          decimal.Decimal
	SupervisorConfirmsPending bool
}

// DomainPolicy converts the configuration into the state machine policy
func (p PolicyConfig) DomainPolicy() order.Policy {
	return order.Policy{
		MinPaymentAmount:          p.MinPaymentAmount,
		MaxPaymentAmount:          p.MaxPaymentAmount,
		SupervisorConfirmsPending: p.SupervisorConfirmsPending,
	}
}

// ReceiptConfig holds receipt rendering settings
type ReceiptConfig struct {
	CompanyName   string
	Currency      string
	ChromePath    string        // empty = auto-detect
	RenderTimeout time.Duration // per PDF
	Archive       bool          // upload rendered receipts to object storage
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
}

// MockAPIConfig holds settings of the reference backend
type MockAPIConfig struct {
	Port      string
	JWTSecret string
	TokenTTL  time.Duration
	Seed      bool
}

// Load loads configuration from a TOML file and environment variables.
// An empty configFile searches ./config.toml and $HOME/.orderflow/config.toml.
// Priority (highest to lowest):
// 1. Environment variables with ORDERFLOW_ prefix (e.g., ORDERFLOW_API_BASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.orderflow")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ORDERFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans whose default is true cannot be told apart from "unset" after
	// the fact, so they are registered up front.
	v.SetDefault("policy.supervisor_confirms_pending", true)
	v.SetDefault("chat.stream", true)
	v.SetDefault("mockapi.seed", true)

	minAmount, err := parseAmount(v.GetString("policy.min_payment_amount"))
	if err != nil {
		return nil, fmt.Errorf("policy.min_payment_amount: %w", err)
	}
	maxAmount, err := parseAmount(v.GetString("policy.max_payment_amount"))
	if err != nil {
		return nil, fmt.Errorf("policy.max_payment_amount: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		API: APIConfig{
			BaseURL: v.GetString("api.base_url"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Session: SessionConfig{
			Backend:   v.GetString("session.backend"),
			Path:      v.GetString("session.path"),
			KeyPrefix: v.GetString("session.key_prefix"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Chat: ChatConfig{
			PollInterval: v.GetDuration("chat.poll_interval"),
			Stream:       v.GetBool("chat.stream"),
		},
		Policy: PolicyConfig{
			MinPaymentAmount:          minAmount,
			MaxPaymentAmount:          maxAmount,
			SupervisorConfirmsPending: v.GetBool("policy.supervisor_confirms_pending"),
		},
		Receipt: ReceiptConfig{
			CompanyName:   v.GetString("receipt.company_name"),
			Currency:      v.GetString("receipt.currency"),
			ChromePath:    v.GetString("receipt.chrome_path"),
			RenderTimeout: v.GetDuration("receipt.render_timeout"),
			Archive:       v.GetBool("receipt.archive"),
		},
		Storage: StorageConfig{
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			KeyPrefix:       v.GetString("storage.key_prefix"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
		MockAPI: MockAPIConfig{
			Port:      v.GetString("mockapi.port"),
			JWTSecret: v.GetString("mockapi.jwt_secret"),
			TokenTTL:  v.GetDuration("mockapi.token_ttl"),
			Seed:      v.GetBool("mockapi.seed"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "orderflow"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8080"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 10 * time.Second
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "file"
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = ".orderflow-session.json"
	}
	if cfg.Session.KeyPrefix == "" {
		cfg.Session.KeyPrefix = "orderflow:session:"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Chat.PollInterval == 0 {
		cfg.Chat.PollInterval = 5 * time.Second
	}
	if cfg.Policy.MaxPaymentAmount.IsZero() {
		cfg.Policy.MaxPaymentAmount = order.DefaultMaxPaymentAmount
	}
	if cfg.Receipt.CompanyName == "" {
		cfg.Receipt.CompanyName = "Artisan Marketplace"
	}
	if cfg.Receipt.Currency == "" {
		cfg.Receipt.Currency = "ETB"
	}
	if cfg.Receipt.RenderTimeout == 0 {
		cfg.Receipt.RenderTimeout = 30 * time.Second
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "receipts/"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.MockAPI.Port == "" {
		cfg.MockAPI.Port = "8080"
	}
	if cfg.MockAPI.TokenTTL == 0 {
		cfg.MockAPI.TokenTTL = 24 * time.Hour
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout cannot be negative")
	}

	switch c.Session.Backend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("session.backend must be one of file, redis, memory, got %q", c.Session.Backend)
	}

	if c.Chat.PollInterval < time.Second {
		return fmt.Errorf("chat.poll_interval must be at least 1s, got %s", c.Chat.PollInterval)
	}

	if c.Policy.MinPaymentAmount.IsNegative() {
		return fmt.Errorf("policy.min_payment_amount cannot be negative")
	}
	if c.Policy.MinPaymentAmount.GreaterThan(c.Policy.MaxPaymentAmount) {
		return fmt.Errorf("policy.min_payment_amount (%s) cannot exceed policy.max_payment_amount (%s)",
			c.Policy.MinPaymentAmount, c.Policy.MaxPaymentAmount)
	}

	if c.Receipt.Archive && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when receipt.archive is enabled")
	}

	if c.App.Env == "production" {
		if strings.HasPrefix(c.API.BaseURL, "http://") {
			return fmt.Errorf("api.base_url must use https in production")
		}
		if c.Session.Backend == "memory" {
			return fmt.Errorf("session.backend cannot be 'memory' in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}
