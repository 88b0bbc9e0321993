package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "scentwatch"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Telegram TelegramConfig
	Scrape   ScrapeConfig
	Notify   NotifyConfig
	Ops      OpsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SCENTWATCH_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"SCENTWATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SCENTWATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver string `envconfig:"SCENTWATCH_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"SCENTWATCH_DB_DSN" default:"scentwatch.sqlite3"`

	AutoMigrate bool `envconfig:"SCENTWATCH_DB_AUTO_MIGRATE" default:"true"`

	MaxOpenConns    int           `envconfig:"SCENTWATCH_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"SCENTWATCH_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"SCENTWATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SCENTWATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) validate() error {
	switch db.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver %q", db.Driver)
	}
	if db.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	return nil
}

// RedisConfig is optional; without a URL the scheduler falls back to an
// in-process run lock.
type RedisConfig struct {
	URL          string        `envconfig:"SCENTWATCH_REDIS_URL"`
	PoolSize     int           `envconfig:"SCENTWATCH_REDIS_POOL_SIZE" default:"5"`
	MinIdleConns int           `envconfig:"SCENTWATCH_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"SCENTWATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SCENTWATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SCENTWATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

type TelegramConfig struct {
	Token       string        `envconfig:"SCENTWATCH_TELEGRAM_TOKEN" required:"true"`
	AdminChatID int64         `envconfig:"SCENTWATCH_TELEGRAM_ADMIN_CHAT_ID"`
	PollTimeout time.Duration `envconfig:"SCENTWATCH_TELEGRAM_POLL_TIMEOUT" default:"30s"`
}

type ScrapeConfig struct {
	ListingURL string        `envconfig:"SCENTWATCH_SCRAPE_LISTING_URL" default:"https://www.montagneparfums.com/fragrance"`
	Interval   time.Duration `envconfig:"SCENTWATCH_SCRAPE_INTERVAL" default:"10m"`
	Timeout    time.Duration `envconfig:"SCENTWATCH_SCRAPE_TIMEOUT" default:"30s"`
	UserAgent  string        `envconfig:"SCENTWATCH_SCRAPE_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/106.0.0.0 Safari/537.36"`
}

type NotifyConfig struct {
	BatchSize      int           `envconfig:"SCENTWATCH_NOTIFY_BATCH_SIZE" default:"50"`
	MaxAttempts    int           `envconfig:"SCENTWATCH_NOTIFY_MAX_ATTEMPTS" default:"3"`
	BatchPause     time.Duration `envconfig:"SCENTWATCH_NOTIFY_BATCH_PAUSE" default:"1s"`
	PriorityWindow time.Duration `envconfig:"SCENTWATCH_NOTIFY_PRIORITY_WINDOW" default:"5m"`
	AdminCooldown  time.Duration `envconfig:"SCENTWATCH_NOTIFY_ADMIN_COOLDOWN" default:"1m"`
}

type OpsConfig struct {
	Addr string `envconfig:"SCENTWATCH_OPS_ADDR" default:":9090"`
}
