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
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Pricing      PricingConfig
	Shipping     ShippingConfig
	Escrow       EscrowConfig
	Cache        CacheConfig
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
	if err := cfg.Shipping.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"AROOBA_APP_ENV" required:"true"`
	Port         string   `envconfig:"AROOBA_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"AROOBA_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"AROOBA_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"AROOBA_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AROOBA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AROOBA_DB_DSN"`
	Driver string `envconfig:"AROOBA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AROOBA_DB_HOST"`
	LegacyPort     int    `envconfig:"AROOBA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AROOBA_DB_USER"`
	LegacyPassword string `envconfig:"AROOBA_DB_PASSWORD"`
	LegacyName     string `envconfig:"AROOBA_DB_NAME"`
	LegacySSLMode  string `envconfig:"AROOBA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AROOBA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AROOBA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AROOBA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AROOBA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	TxMaxRetries    int           `envconfig:"AROOBA_DB_TX_MAX_RETRIES" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AROOBA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AROOBA_REDIS_ADDR"`
	Password     string        `envconfig:"AROOBA_REDIS_PASSWORD"`
	DB           int           `envconfig:"AROOBA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AROOBA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AROOBA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AROOBA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AROOBA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AROOBA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AROOBA_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"AROOBA_EVENTING_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"AROOBA_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"AROOBA_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"AROOBA_PUBSUB_DOMAIN_TOPIC" default:"arooba-domain-events"`
	DomainSubscription string `envconfig:"AROOBA_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"AROOBA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"AROOBA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"AROOBA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"AROOBA_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"AROOBA_CRON_INTERVAL" default:"15m"`
	LockTTL        time.Duration `envconfig:"AROOBA_CRON_LOCK_TTL" default:"10m"`
	EscrowEvery    time.Duration `envconfig:"AROOBA_CRON_ESCROW_EVERY" default:"1h"`
	RetentionEvery time.Duration `envconfig:"AROOBA_CRON_OUTBOX_RETENTION_EVERY" default:"24h"`
}

// PricingConfig holds the uplift constants applied by the pricing calculator.
type PricingConfig struct {
	CooperativeFeeRate decimal.Decimal `envconfig:"AROOBA_PRICING_COOPERATIVE_FEE_RATE" default:"0.05"`
	MinimumUplift      decimal.Decimal `envconfig:"AROOBA_PRICING_MINIMUM_UPLIFT" default:"15"`
	LowPriceThreshold  decimal.Decimal `envconfig:"AROOBA_PRICING_LOW_PRICE_THRESHOLD" default:"100"`
	LowPriceMarkup     decimal.Decimal `envconfig:"AROOBA_PRICING_LOW_PRICE_MARKUP" default:"20"`
	LogisticsSurcharge decimal.Decimal `envconfig:"AROOBA_PRICING_LOGISTICS_SURCHARGE" default:"10"`
	VATRate            decimal.Decimal `envconfig:"AROOBA_PRICING_VAT_RATE" default:"0.14"`
	DeviationThreshold decimal.Decimal `envconfig:"AROOBA_PRICING_DEVIATION_THRESHOLD" default:"0.20"`
}

type ShippingConfig struct {
	VolumetricDivisor decimal.Decimal `envconfig:"AROOBA_SHIPPING_VOLUMETRIC_DIVISOR" default:"5000"`
	IncludedWeightKg  decimal.Decimal `envconfig:"AROOBA_SHIPPING_INCLUDED_WEIGHT_KG" default:"1"`
	PlatformSubsidy   decimal.Decimal `envconfig:"AROOBA_SHIPPING_PLATFORM_SUBSIDY" default:"0"`
}

func (s ShippingConfig) validate() error {
	if !s.VolumetricDivisor.IsPositive() {
		return fmt.Errorf("%s must be positive", EnvShippingVolumetricDivisor)
	}
	if s.PlatformSubsidy.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvShippingPlatformSubsidy)
	}
	return nil
}

type EscrowConfig struct {
	HoldDays int `envconfig:"AROOBA_ESCROW_HOLD_DAYS" default:"14"`
}

// HoldPeriod is the delivery-to-release delay used for escrow reporting.
func (e EscrowConfig) HoldPeriod() time.Duration {
	if e.HoldDays <= 0 {
		return 0
	}
	return time.Duration(e.HoldDays) * 24 * time.Hour
}

type RateLimitConfig struct {
	OrderWindow  time.Duration `envconfig:"AROOBA_RATE_LIMIT_ORDER_WINDOW" default:"1m"`
	OrderIPLimit int           `envconfig:"AROOBA_RATE_LIMIT_ORDER_IP_LIMIT" default:"30"`
}

type CacheConfig struct {
	RateTableTTL time.Duration `envconfig:"AROOBA_CACHE_RATE_TABLE_TTL" default:"5m"`
	CleanupEvery time.Duration `envconfig:"AROOBA_CACHE_CLEANUP_INTERVAL" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
