package config

const (
	EnvPrefix = "STREG"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DefaultSQLiteDSN = "file:stregsystem.db?_busy_timeout=5000&_txlock=immediate"

	EnvAppEnv   = "STREG_APP_ENV"
	EnvPort     = "STREG_APP_PORT"
	EnvLogLevel = "STREG_LOG_LEVEL"

	EnvDBDSN    = "STREG_DB_DSN"
	EnvDBDriver = "STREG_DB_DRIVER"
	EnvDBHost   = "STREG_DB_HOST"
	EnvDBPort   = "STREG_DB_PORT"
	EnvDBUser   = "STREG_DB_USER"
	EnvDBName   = "STREG_DB_NAME"

	EnvRedisURL  = "STREG_REDIS_URL"
	EnvUseSQLite = "STREG_USE_SQLITE"

	EnvLowBalanceThreshold = "STREG_LOW_BALANCE_THRESHOLD"
	EnvMultibuyWindow      = "STREG_MULTIBUY_WINDOW"
	EnvMaxQuantity         = "STREG_MAX_QUANTITY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
