package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Outbox       OutboxConfig
	Cron         CronConfig
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
	Env          string `envconfig:"RENTLOOP_APP_ENV" required:"true"`
	Port         string `envconfig:"RENTLOOP_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RENTLOOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RENTLOOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RENTLOOP_SERVICE_KIND" default:"dispatcher"`
}

type DBConfig struct {
	DSN    string `envconfig:"RENTLOOP_DB_DSN"`
	Driver string `envconfig:"RENTLOOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RENTLOOP_DB_HOST"`
	LegacyPort     int    `envconfig:"RENTLOOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RENTLOOP_DB_USER"`
	LegacyPassword string `envconfig:"RENTLOOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"RENTLOOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"RENTLOOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RENTLOOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTLOOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTLOOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTLOOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a postgres DSN from the legacy host/port variables
// when RENTLOOP_DB_DSN is not set directly.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("database DSN or host/user/name settings are required")
	}
	userInfo := url.User(d.LegacyUser)
	if d.LegacyPassword != "" {
		userInfo = url.UserPassword(d.LegacyUser, d.LegacyPassword)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:     d.LegacyName,
		RawQuery: url.Values{"sslmode": []string{d.LegacySSLMode}}.Encode(),
	}
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTLOOP_REDIS_URL"`
	Address      string        `envconfig:"RENTLOOP_REDIS_ADDR"`
	Password     string        `envconfig:"RENTLOOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTLOOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTLOOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTLOOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTLOOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTLOOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTLOOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RENTLOOP_AUTO_MIGRATE" default:"false"`
}

// OutboxConfig holds every dispatcher knob. Zero values fall back to the
// defaults applied in internal/dispatcher.
type OutboxConfig struct {
	PollInterval      time.Duration `envconfig:"RENTLOOP_OUTBOX_POLL_INTERVAL" default:"5s"`
	BatchSize         int           `envconfig:"RENTLOOP_OUTBOX_BATCH_SIZE" default:"50"`
	ProcessingTimeout time.Duration `envconfig:"RENTLOOP_OUTBOX_PROCESSING_TIMEOUT" default:"60s"`
	MaxRetries        int           `envconfig:"RENTLOOP_OUTBOX_MAX_RETRIES" default:"5"`
	BackoffBase       time.Duration `envconfig:"RENTLOOP_OUTBOX_BACKOFF_BASE" default:"10s"`
	BackoffCap        time.Duration `envconfig:"RENTLOOP_OUTBOX_BACKOFF_CAP" default:"10m"`
	RetentionDays     int           `envconfig:"RENTLOOP_OUTBOX_RETENTION_DAYS" default:"7"`
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"RENTLOOP_CRON_INTERVAL" default:"24h"`
	LockKey                   string        `envconfig:"RENTLOOP_CRON_LOCK_KEY" default:"rl:cron:worker"`
	LockTTL                   time.Duration `envconfig:"RENTLOOP_CRON_LOCK_TTL" default:"25h"`
	NotificationRetentionDays int           `envconfig:"RENTLOOP_NOTIFICATION_RETENTION_DAYS" default:"30"`
}
