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
	FeatureFlags FeatureFlagsConfig
	Razorpay     RazorpayConfig
	Outbox       OutboxConfig
	Broadcast    BroadcastConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DOUBTDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"DOUBTDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DOUBTDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DOUBTDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DOUBTDESK_DB_DSN"`
	Driver string `envconfig:"DOUBTDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DOUBTDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"DOUBTDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DOUBTDESK_DB_USER"`
	LegacyPassword string `envconfig:"DOUBTDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"DOUBTDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"DOUBTDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DOUBTDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DOUBTDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DOUBTDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DOUBTDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DOUBTDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DOUBTDESK_REDIS_ADDR"`
	Password     string        `envconfig:"DOUBTDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"DOUBTDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DOUBTDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DOUBTDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DOUBTDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DOUBTDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DOUBTDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DOUBTDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DOUBTDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DOUBTDESK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DOUBTDESK_AUTO_MIGRATE" default:"false"`
}

type RazorpayConfig struct {
	KeyID     string        `envconfig:"DOUBTDESK_RAZORPAY_KEY_ID" required:"true"`
	KeySecret string        `envconfig:"DOUBTDESK_RAZORPAY_KEY_SECRET" required:"true"`
	BaseURL   string        `envconfig:"DOUBTDESK_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout   time.Duration `envconfig:"DOUBTDESK_RAZORPAY_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DOUBTDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DOUBTDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DOUBTDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type RateLimitConfig struct {
	WebhookPerMinute int64 `envconfig:"DOUBTDESK_RATE_LIMIT_WEBHOOK_PER_MINUTE" default:"120"`
}

type BroadcastConfig struct {
	Channel      string        `envconfig:"DOUBTDESK_BROADCAST_CHANNEL" default:"dd-balance-events"`
	WriteTimeout time.Duration `envconfig:"DOUBTDESK_BROADCAST_WRITE_TIMEOUT" default:"5s"`
	PingInterval time.Duration `envconfig:"DOUBTDESK_BROADCAST_PING_INTERVAL" default:"30s"`
	SendBuffer   int           `envconfig:"DOUBTDESK_BROADCAST_SEND_BUFFER" default:"16"`
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
