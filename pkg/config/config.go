package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/shopfront-backend/pkg/enums"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Policy        PolicyConfig
	Idempotency   IdempotencyConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Policy.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"SHOPFRONT_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	out := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOPFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPFRONT_DB_DSN"`
	Driver string `envconfig:"SHOPFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPFRONT_DB_USER"`
	LegacyPassword string `envconfig:"SHOPFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPFRONT_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"SHOPFRONT_SQLITE_PATH" default:"shopfront.db"`

	MaxOpenConns    int           `envconfig:"SHOPFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SHOPFRONT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SHOPFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SHOPFRONT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SHOPFRONT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SHOPFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SHOPFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SHOPFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SHOPFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SHOPFRONT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SHOPFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SHOPFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SHOPFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SHOPFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SHOPFRONT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SHOPFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	// Coupon validation is public, so it is throttled per client IP.
	CouponValidateWindow  time.Duration `envconfig:"SHOPFRONT_AUTH_RATE_LIMIT_COUPON_VALIDATE_WINDOW" default:"1m"`
	CouponValidateIPLimit int           `envconfig:"SHOPFRONT_AUTH_RATE_LIMIT_COUPON_VALIDATE_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOPFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOPFRONT_AUTO_MIGRATE" default:"false"`
}

// PolicyConfig holds the authorization knobs for globally visible resources.
type PolicyConfig struct {
	// CatalogWriteRole is required to mutate categories, products and coupons.
	// Empty means any authenticated user.
	CatalogWriteRole string `envconfig:"SHOPFRONT_CATALOG_WRITE_ROLE" default:"admin"`
}

func (p *PolicyConfig) normalize() error {
	if strings.TrimSpace(p.CatalogWriteRole) == "" {
		p.CatalogWriteRole = ""
		return nil
	}
	role, err := enums.ParseRole(p.CatalogWriteRole)
	if err != nil {
		return fmt.Errorf("%s: %w", EnvCatalogWriteRole, err)
	}
	p.CatalogWriteRole = role.String()
	return nil
}

type IdempotencyConfig struct {
	CheckoutTTL time.Duration `envconfig:"SHOPFRONT_IDEMPOTENCY_CHECKOUT_TTL" default:"168h"`
	DefaultTTL  time.Duration `envconfig:"SHOPFRONT_IDEMPOTENCY_DEFAULT_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SHOPFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SHOPFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SHOPFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"SHOPFRONT_PUBSUB_ORDERS_TOPIC" default:"shopfront-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SHOPFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SHOPFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SHOPFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval converts the configured poll milliseconds into a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"SHOPFRONT_CRON_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"SHOPFRONT_CRON_LOCK_TTL" default:"10m"`
	OutboxRetention time.Duration `envconfig:"SHOPFRONT_CRON_OUTBOX_RETENTION" default:"720h"`
	MetricsPort     string        `envconfig:"SHOPFRONT_CRON_METRICS_PORT" default:"9091"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = db.SQLitePath
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
