package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Sale         SaleConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs error
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = multierr.Append(errs, fmt.Errorf("%s must be %q or %q", EnvDBDriver, DriverPostgres, DriverSQLite))
	}
	if c.Sale.LowBalanceThreshold < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative", EnvLowBalanceThreshold))
	}
	if c.Sale.MultibuyWindow <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvMultibuyWindow))
	}
	if c.Sale.MaxQuantity <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvMaxQuantity))
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"STREG_APP_ENV" required:"true"`
	Port         string `envconfig:"STREG_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STREG_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STREG_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STREG_LOG_WARN_STACK" default:"false"`

	// CORSOrigins lists the terminal frontends allowed to call the API.
	CORSOrigins []string `envconfig:"STREG_CORS_ORIGINS" default:"http://localhost:8000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STREG_DB_DSN"`
	Driver string `envconfig:"STREG_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STREG_DB_HOST"`
	LegacyPort     int    `envconfig:"STREG_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STREG_DB_USER"`
	LegacyPassword string `envconfig:"STREG_DB_PASSWORD"`
	LegacyName     string `envconfig:"STREG_DB_NAME"`
	LegacySSLMode  string `envconfig:"STREG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STREG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STREG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STREG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STREG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional; with neither URL nor address set the alias cache and
// idempotency replay are disabled.
type RedisConfig struct {
	URL          string        `envconfig:"STREG_REDIS_URL"`
	Address      string        `envconfig:"STREG_REDIS_ADDR"`
	Password     string        `envconfig:"STREG_REDIS_PASSWORD"`
	DB           int           `envconfig:"STREG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STREG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STREG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STREG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STREG_REDIS_READ_TIMEOUT" default:"2s"`
	WriteTimeout time.Duration `envconfig:"STREG_REDIS_WRITE_TIMEOUT" default:"2s"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STREG_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STREG_AUTO_MIGRATE" default:"false"`
}

type SaleConfig struct {
	LowBalanceThreshold int64         `envconfig:"STREG_LOW_BALANCE_THRESHOLD" default:"5000"`
	MultibuyWindow      time.Duration `envconfig:"STREG_MULTIBUY_WINDOW" default:"60s"`
	CoffeeMasterWindow  time.Duration `envconfig:"STREG_COFFEE_MASTER_WINDOW" default:"168h"`
	MaxQuantity         int           `envconfig:"STREG_MAX_QUANTITY" default:"1000"`
	AliasCacheTTL       time.Duration `envconfig:"STREG_ALIAS_CACHE_TTL" default:"5m"`
	IdempotencyTTL      time.Duration `envconfig:"STREG_IDEMPOTENCY_TTL" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Driver == DriverSQLite {
		db.DSN = DefaultSQLiteDSN
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
