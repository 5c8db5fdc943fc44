package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "BLUEWUD"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "BLUEWUD_APP_ENV"
	EnvAppPort  = "BLUEWUD_APP_PORT"
	EnvDBDSN    = "BLUEWUD_DB_DSN"
	EnvDBHost   = "BLUEWUD_DB_HOST"
	EnvDBUser   = "BLUEWUD_DB_USER"
	EnvDBName   = "BLUEWUD_DB_NAME"
	EnvRedisURL = "BLUEWUD_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
