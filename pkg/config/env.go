package config

const (
	EnvPrefix = "SHOPFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv   = "SHOPFRONT_APP_ENV"
	EnvPort     = "SHOPFRONT_APP_PORT"
	EnvLogLevel = "SHOPFRONT_LOG_LEVEL"

	EnvDBDSN  = "SHOPFRONT_DB_DSN"
	EnvDBHost = "SHOPFRONT_DB_HOST"
	EnvDBUser = "SHOPFRONT_DB_USER"
	EnvDBName = "SHOPFRONT_DB_NAME"

	EnvUseSQLite  = "SHOPFRONT_USE_SQLITE"
	EnvSQLitePath = "SHOPFRONT_SQLITE_PATH"

	EnvRedisURL = "SHOPFRONT_REDIS_URL"

	EnvJWTSecret               = "SHOPFRONT_JWT_SECRET"
	EnvJWTIssuer               = "SHOPFRONT_JWT_ISSUER"
	EnvJWTExpMins              = "SHOPFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "SHOPFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvCatalogWriteRole        = "SHOPFRONT_CATALOG_WRITE_ROLE"
	EnvPubSubOrdersTopic       = "SHOPFRONT_PUBSUB_ORDERS_TOPIC"
	EnvOutboxPublishPollMillis = "SHOPFRONT_OUTBOX_PUBLISH_POLL_MS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
