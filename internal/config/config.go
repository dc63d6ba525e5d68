// Package config loads the identity service configuration from the
// environment.
package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/config"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/database"
)

// Config holds all identity service configuration.
type Config struct {
	Env            string   `env:"APP_ENV" envDefault:"development"`
	HTTPPort       int      `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:""`

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Password PasswordConfig
	Lockout  LockoutConfig
}

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"identity"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"identity"`
	DBName   string `env:"POSTGRES_DB" envDefault:"identity"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	MaxConns        int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" envDefault:"30m"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// KafkaConfig holds the event stream settings. An empty broker list disables
// publishing.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:""`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret        string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	AccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	RefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"720h"`
}

// PasswordConfig holds credential hashing settings.
type PasswordConfig struct {
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`
}

// LockoutConfig holds the login throttling policy.
type LockoutConfig struct {
	MaxFailures int           `env:"LOCKOUT_MAX_FAILURES" envDefault:"5"`
	Window      time.Duration `env:"LOCKOUT_WINDOW" envDefault:"15m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects settings that are only acceptable in development.
func (c *Config) validate() error {
	if c.Env != "development" && c.JWT.Secret == "dev-secret-change-me" {
		return fmt.Errorf("JWT_SECRET must be set outside development")
	}
	if c.JWT.AccessExpiry <= 0 || c.JWT.RefreshExpiry <= 0 {
		return fmt.Errorf("token expiries must be positive")
	}
	if c.Lockout.MaxFailures <= 0 {
		return fmt.Errorf("LOCKOUT_MAX_FAILURES must be positive")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// PostgresPoolConfig converts the settings into the shared database config.
func (c *Config) PostgresPoolConfig() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.Postgres.Host,
		Port:            c.Postgres.Port,
		User:            c.Postgres.User,
		Password:        c.Postgres.Password,
		DBName:          c.Postgres.DBName,
		SSLMode:         c.Postgres.SSLMode,
		MaxConns:        c.Postgres.MaxConns,
		MinConns:        c.Postgres.MinConns,
		MaxConnLifetime: c.Postgres.MaxConnLifetime,
		MaxConnIdleTime: c.Postgres.MaxConnIdleTime,
	}
}

// RedisClientConfig converts the settings into the shared database config.
func (c *Config) RedisClientConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.Redis.Host,
		Port:     c.Redis.Port,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}
