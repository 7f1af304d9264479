package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Merchant  MerchantConfig  `mapstructure:"merchant"`
	AES       AESConfig       `mapstructure:"aes"`
	Email     EmailConfig     `mapstructure:"email"`
	Bank      BankConfig      `mapstructure:"bank"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// StorageConfig selects the record store implementation.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig configures merchant access tokens.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// AdminConfig configures admin sessions and lockout.
type AdminConfig struct {
	AccessSecret     string        `mapstructure:"access_secret"`
	RefreshSecret    string        `mapstructure:"refresh_secret"`
	AccessTTL        time.Duration `mapstructure:"access_ttl"`
	RefreshTTL       time.Duration `mapstructure:"refresh_ttl"`
	LockoutThreshold int           `mapstructure:"lockout_threshold"`
	LockoutWindow    time.Duration `mapstructure:"lockout_window"`
	LoginRatePerSec  float64       `mapstructure:"login_rate_per_sec"`
	LoginBurst       int           `mapstructure:"login_burst"`
}

type MerchantConfig struct {
	VerificationTokenTTL time.Duration `mapstructure:"verification_token_ttl"`
	TokenSecret          string        `mapstructure:"token_secret"` // HMAC key for stored verification token digests
	DefaultAPIQuota      int64         `mapstructure:"default_api_quota"`
	QuotaPeriod          time.Duration `mapstructure:"quota_period"`
	BcryptCost           int           `mapstructure:"bcrypt_cost"`
	StatsCacheTTL        time.Duration `mapstructure:"stats_cache_ttl"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type EmailConfig struct {
	Driver       string `mapstructure:"driver"` // log, smtp
	From         string `mapstructure:"from"`
	BaseURL      string `mapstructure:"base_url"`
	Support      string `mapstructure:"support"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
}

type BankConfig struct {
	Driver    string `mapstructure:"driver"` // mock, stripe
	StripeKey string `mapstructure:"stripe_key"`
	Country   string `mapstructure:"country"`
}

type SchedulerConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	QuotaResetInterval time.Duration `mapstructure:"quota_reset_interval"`
	TokenPurgeInterval time.Duration `mapstructure:"token_purge_interval"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded into the process
// environment first. Environment variables override file values.
// Prefix: MS_. Nested keys use underscore: MS_DATABASE_HOST, MS_ADMIN_ACCESS_SECRET, etc.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: MS_DATABASE_HOST -> database.host
	v.SetEnvPrefix("MS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "merchants")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("storage.driver", "postgres")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "2s")
	v.SetDefault("redis.write_timeout", "2s")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "merchant-service")

	v.SetDefault("admin.access_secret", "")
	v.SetDefault("admin.refresh_secret", "")
	v.SetDefault("admin.access_ttl", "2h")
	v.SetDefault("admin.refresh_ttl", "168h")
	v.SetDefault("admin.lockout_threshold", 5)
	v.SetDefault("admin.lockout_window", "15m")
	v.SetDefault("admin.login_rate_per_sec", 1.0)
	v.SetDefault("admin.login_burst", 5)

	v.SetDefault("merchant.verification_token_ttl", "24h")
	v.SetDefault("merchant.token_secret", "")
	v.SetDefault("merchant.default_api_quota", 1000)
	v.SetDefault("merchant.quota_period", "24h")
	v.SetDefault("merchant.bcrypt_cost", 10)
	v.SetDefault("merchant.stats_cache_ttl", "60s")

	v.SetDefault("aes.key", "")

	v.SetDefault("email.driver", "log")
	v.SetDefault("email.from", "no-reply@merchant-service.local")
	v.SetDefault("email.base_url", "http://localhost:3000")
	v.SetDefault("email.support", "support@merchant-service.local")
	v.SetDefault("email.smtp_host", "localhost")
	v.SetDefault("email.smtp_port", 587)

	v.SetDefault("bank.driver", "mock")
	v.SetDefault("bank.country", "US")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.quota_reset_interval", "24h")
	v.SetDefault("scheduler.token_purge_interval", "1h")
	v.SetDefault("scheduler.lock_ttl", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("metrics.enabled", true)
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	var problems []string
	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required")
	}
	if c.Admin.AccessSecret == "" || c.Admin.RefreshSecret == "" {
		problems = append(problems, "admin.access_secret and admin.refresh_secret are required")
	}
	if c.Admin.AccessSecret != "" && c.Admin.AccessSecret == c.Admin.RefreshSecret {
		problems = append(problems, "admin access and refresh secrets must differ")
	}
	if c.Merchant.TokenSecret == "" {
		problems = append(problems, "merchant.token_secret is required")
	}
	if len(c.AES.Key) != 64 {
		problems = append(problems, "aes.key must be 64 hex characters")
	}
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.driver %q", c.Storage.Driver))
	}
	switch c.Email.Driver {
	case "log", "smtp":
	default:
		problems = append(problems, fmt.Sprintf("unknown email.driver %q", c.Email.Driver))
	}
	switch c.Bank.Driver {
	case "mock":
	case "stripe":
		if c.Bank.StripeKey == "" {
			problems = append(problems, "bank.stripe_key is required for the stripe driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown bank.driver %q", c.Bank.Driver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
