package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Cart         CartConfig
	Pricing      PricingConfig
	Currency     CurrencyConfig
	FeatureFlags FeatureFlagsConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BLUEWUD_APP_ENV" required:"true"`
	Port         string `envconfig:"BLUEWUD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BLUEWUD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLUEWUD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BLUEWUD_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BLUEWUD_DB_DSN"`
	Driver string `envconfig:"BLUEWUD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BLUEWUD_DB_HOST"`
	LegacyPort     int    `envconfig:"BLUEWUD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BLUEWUD_DB_USER"`
	LegacyPassword string `envconfig:"BLUEWUD_DB_PASSWORD"`
	LegacyName     string `envconfig:"BLUEWUD_DB_NAME"`
	LegacySSLMode  string `envconfig:"BLUEWUD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BLUEWUD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLUEWUD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLUEWUD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLUEWUD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BLUEWUD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BLUEWUD_REDIS_ADDR"`
	Password     string        `envconfig:"BLUEWUD_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLUEWUD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLUEWUD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BLUEWUD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BLUEWUD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLUEWUD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLUEWUD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BLUEWUD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BLUEWUD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BLUEWUD_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CartConfig holds cart retention policy.
type CartConfig struct {
	GuestTTL time.Duration `envconfig:"BLUEWUD_CART_GUEST_TTL" default:"720h"`
}

// PricingConfig defines the base-currency shipping tiers. Thresholds and
// rates are expressed in base-currency cents.
type PricingConfig struct {
	FreeShippingThresholdCents int64 `envconfig:"BLUEWUD_PRICING_FREE_SHIPPING_THRESHOLD_CENTS" default:"150000"`
	FlatShippingCents          int64 `envconfig:"BLUEWUD_PRICING_FLAT_SHIPPING_CENTS" default:"10000"`
	ExpressUpgradeCents        int64 `envconfig:"BLUEWUD_PRICING_EXPRESS_UPGRADE_CENTS" default:"25000"`
}

// CurrencyConfig carries the display conversion rate table relative to the
// base currency (INR). Rates are decimal strings to avoid float env parsing.
type CurrencyConfig struct {
	USDRate string `envconfig:"BLUEWUD_CURRENCY_USD_RATE" default:"0.012"`
	EURRate string `envconfig:"BLUEWUD_CURRENCY_EUR_RATE" default:"0.011"`
	GBPRate string `envconfig:"BLUEWUD_CURRENCY_GBP_RATE" default:"0.0095"`
	AEDRate string `envconfig:"BLUEWUD_CURRENCY_AED_RATE" default:"0.044"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BLUEWUD_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BLUEWUD_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"BLUEWUD_CRON_LOCK_TTL" default:"25h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"BLUEWUD_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"BLUEWUD_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BLUEWUD_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BLUEWUD_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BLUEWUD_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
