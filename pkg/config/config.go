package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Stripe       StripeConfig
	Commission   CommissionConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Commission.parsePercent(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SETTLEMENT_APP_ENV" required:"true"`
	Port         string `envconfig:"SETTLEMENT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SETTLEMENT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SETTLEMENT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SETTLEMENT_LOG_FORMAT" default:"json"`

	// CORSOrigins falls back to localhost origins when empty.
	CORSOrigins []string `envconfig:"SETTLEMENT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SETTLEMENT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SETTLEMENT_DB_DSN"`
	Driver string `envconfig:"SETTLEMENT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SETTLEMENT_DB_HOST"`
	Port     int    `envconfig:"SETTLEMENT_DB_PORT" default:"5432"`
	User     string `envconfig:"SETTLEMENT_DB_USER"`
	Password string `envconfig:"SETTLEMENT_DB_PASSWORD"`
	Name     string `envconfig:"SETTLEMENT_DB_NAME"`
	SSLMode  string `envconfig:"SETTLEMENT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SETTLEMENT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SETTLEMENT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SETTLEMENT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SETTLEMENT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SETTLEMENT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SETTLEMENT_REDIS_ADDR"`
	Password     string        `envconfig:"SETTLEMENT_REDIS_PASSWORD"`
	DB           int           `envconfig:"SETTLEMENT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SETTLEMENT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SETTLEMENT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SETTLEMENT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SETTLEMENT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SETTLEMENT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SETTLEMENT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SETTLEMENT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SETTLEMENT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SETTLEMENT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SETTLEMENT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"SETTLEMENT_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SETTLEMENT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	SettlementTopic string `envconfig:"SETTLEMENT_PUBSUB_SETTLEMENT_TOPIC" default:"settlement-events"`
	SellerTopic     string `envconfig:"SETTLEMENT_PUBSUB_SELLER_TOPIC" default:"seller-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SETTLEMENT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SETTLEMENT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SETTLEMENT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey         string        `envconfig:"SETTLEMENT_STRIPE_API_KEY"`
	PublishableKey string        `envconfig:"SETTLEMENT_STRIPE_PUBLISHABLE_KEY"`
	Secret         string        `envconfig:"SETTLEMENT_STRIPE_WEBHOOK_SECRET"`
	Env            string        `envconfig:"SETTLEMENT_STRIPE_ENV" default:"test"`
	Currency       string        `envconfig:"SETTLEMENT_STRIPE_CURRENCY" default:"usd"`
	RefreshURL     string        `envconfig:"SETTLEMENT_STRIPE_ONBOARDING_REFRESH_URL"`
	ReturnURL      string        `envconfig:"SETTLEMENT_STRIPE_ONBOARDING_RETURN_URL"`
	RequestTimeout time.Duration `envconfig:"SETTLEMENT_STRIPE_REQUEST_TIMEOUT" default:"30s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// IsConfigured reports whether both halves of the key pair are present.
func (s StripeConfig) IsConfigured() bool {
	return strings.TrimSpace(s.APIKey) != "" && strings.TrimSpace(s.PublishableKey) != ""
}

type CommissionConfig struct {
	PlatformRatePercent    string `envconfig:"SETTLEMENT_COMMISSION_RATE_PERCENT" default:"10"`
	RatePolicy             string `envconfig:"SETTLEMENT_COMMISSION_RATE_POLICY" default:"platform_default"`
	RequireListingApproval bool   `envconfig:"SETTLEMENT_REQUIRE_LISTING_APPROVAL" default:"true"`
	PlatformSellerID       int64  `envconfig:"SETTLEMENT_PLATFORM_SELLER_ID" default:"0"`
	ReverseOnFailure       bool   `envconfig:"SETTLEMENT_REVERSE_ON_FAILURE" default:"false"`
}

// DefaultRate converts the configured percentage into a fraction clamped to [0,1].
func (c CommissionConfig) DefaultRate() decimal.Decimal {
	pct, err := c.parsePercent()
	if err != nil {
		return decimal.RequireFromString(FallbackCommissionRate)
	}
	return pct.Div(decimal.NewFromInt(100))
}

func (c CommissionConfig) parsePercent() (decimal.Decimal, error) {
	raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(c.PlatformRatePercent), "%"))
	if raw == "" {
		return decimal.RequireFromString(FallbackCommissionRate).Mul(decimal.NewFromInt(100)), nil
	}
	pct, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", EnvCommissionRatePercent, c.PlatformRatePercent, err)
	}
	hundred := decimal.NewFromInt(100)
	if pct.LessThan(decimal.Zero) {
		pct = decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct, nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SETTLEMENT_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"SETTLEMENT_CRON_LOCK_TTL" default:"55m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range componentDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

// RateLimitConfig bounds the public and seller-facing routes per window.
type RateLimitConfig struct {
	Window      time.Duration `envconfig:"SETTLEMENT_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit     int           `envconfig:"SETTLEMENT_RATE_LIMIT_IP" default:"60"`
	SellerLimit int           `envconfig:"SETTLEMENT_RATE_LIMIT_SELLER" default:"30"`
}
