package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "STAGEPASS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	SMTP         SMTPConfig
	Checkout     CheckoutConfig
	Eventing     EventingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STAGEPASS_APP_ENV" required:"true"`
	Port         string `envconfig:"STAGEPASS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STAGEPASS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STAGEPASS_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"STAGEPASS_PUBLIC_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN             string        `envconfig:"STAGEPASS_DB_DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"STAGEPASS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STAGEPASS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STAGEPASS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STAGEPASS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STAGEPASS_REDIS_URL"`
	Address      string        `envconfig:"STAGEPASS_REDIS_ADDR"`
	Password     string        `envconfig:"STAGEPASS_REDIS_PASSWORD"`
	DB           int           `envconfig:"STAGEPASS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STAGEPASS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STAGEPASS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STAGEPASS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STAGEPASS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STAGEPASS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STAGEPASS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STAGEPASS_JWT_ISSUER" default:"stagepass"`
	ExpirationMinutes int    `envconfig:"STAGEPASS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"STAGEPASS_STRIPE_API_KEY"`
	Secret     string `envconfig:"STAGEPASS_STRIPE_SECRET"`
	Env        string `envconfig:"STAGEPASS_STRIPE_ENV" default:"test"`
	Currency   string `envconfig:"STAGEPASS_STRIPE_CURRENCY" default:"jpy"`
	SuccessURL string `envconfig:"STAGEPASS_STRIPE_SUCCESS_URL"`
	CancelURL  string `envconfig:"STAGEPASS_STRIPE_CANCEL_URL"`
}

// Environment reports the configured Stripe environment.
func (s StripeConfig) Environment() string {
	return s.Env
}

type SMTPConfig struct {
	Host     string `envconfig:"STAGEPASS_SMTP_HOST"`
	Port     int    `envconfig:"STAGEPASS_SMTP_PORT" default:"587"`
	Username string `envconfig:"STAGEPASS_SMTP_USERNAME"`
	Password string `envconfig:"STAGEPASS_SMTP_PASSWORD"`
	From     string `envconfig:"STAGEPASS_SMTP_FROM"`
}

// Enabled reports whether outbound confirmation mail is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type CheckoutConfig struct {
	MaxTicketsPerOrder int           `envconfig:"STAGEPASS_CHECKOUT_MAX_TICKETS" default:"10"`
	ProviderTimeout    time.Duration `envconfig:"STAGEPASS_CHECKOUT_PROVIDER_TIMEOUT" default:"15s"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"STAGEPASS_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STAGEPASS_AUTO_MIGRATE" default:"false"`
}
