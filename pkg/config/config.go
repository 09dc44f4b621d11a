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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Payments     PaymentsConfig
	Square       SquareConfig
	Sendgrid     SendgridConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STEPSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"STEPSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STEPSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STEPSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STEPSHOP_DB_DSN"`
	Driver string `envconfig:"STEPSHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STEPSHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"STEPSHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STEPSHOP_DB_USER"`
	LegacyPassword string `envconfig:"STEPSHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"STEPSHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"STEPSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STEPSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STEPSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STEPSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STEPSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STEPSHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STEPSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"STEPSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"STEPSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STEPSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STEPSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STEPSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STEPSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STEPSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STEPSHOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STEPSHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STEPSHOP_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PaymentsConfig selects the gateway implementation the payment workflow uses.
type PaymentsConfig struct {
	Provider string `envconfig:"STEPSHOP_PAYMENTS_PROVIDER" default:"fake"`
}

func (p PaymentsConfig) validate() error {
	switch p.NormalizedProvider() {
	case PaymentProviderFake, PaymentProviderSquare:
		return nil
	default:
		return fmt.Errorf("payments provider must be %q or %q", PaymentProviderFake, PaymentProviderSquare)
	}
}

// NormalizedProvider returns the lowercased provider name.
func (p PaymentsConfig) NormalizedProvider() string {
	provider := strings.TrimSpace(strings.ToLower(p.Provider))
	if provider == "" {
		return PaymentProviderFake
	}
	return provider
}

type SquareConfig struct {
	AccessToken string `envconfig:"STEPSHOP_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"STEPSHOP_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"STEPSHOP_SQUARE_LOCATION_ID"`
	Currency    string `envconfig:"STEPSHOP_SQUARE_CURRENCY" default:"USD"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type SendgridConfig struct {
	APIKey      string `envconfig:"STEPSHOP_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"STEPSHOP_SENDGRID_FROM_EMAIL"`
}

// RateLimitConfig throttles authenticated API traffic per user. A zero
// limit or window disables the limiter.
type RateLimitConfig struct {
	RequestLimit int           `envconfig:"STEPSHOP_RATE_LIMIT_REQUESTS" default:"120"`
	Window       time.Duration `envconfig:"STEPSHOP_RATE_LIMIT_WINDOW" default:"1m"`
}

// Enabled reports whether the limiter should run.
func (r RateLimitConfig) Enabled() bool {
	return r.RequestLimit > 0 && r.Window > 0
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STEPSHOP_AUTO_MIGRATE" default:"false"`
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
