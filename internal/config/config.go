package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"checkout/internal/esewa"
)

// Supported values for DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the process-wide configuration. It is built once at startup and
// passed by value to the components that need it.
type Config struct {
	AppPort       string
	DBDriver      string
	DatabaseDSN   string
	RabbitMQURL   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	ClientAppURL  string
	VerifyLockTTL time.Duration
	Esewa         esewa.Config
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "checkout.db")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("CLIENT_APP_URL", "http://localhost:5173")
	v.SetDefault("VERIFY_LOCK_TTL", "30s")
	v.SetDefault("ESEWA_BASE_URL", "https://rc-epay.esewa.com.np/api/epay")
	v.SetDefault("ESEWA_PRODUCT_CODE", "EPAYTEST")
	v.SetDefault("ESEWA_SECRET_KEY", "8gBm/:&EnhH.1/q")
	v.SetDefault("ESEWA_STATUS_URL", "")
	v.SetDefault("ESEWA_STATUS_TIMEOUT", "10s")
}

// Load reads an optional .env file, then the environment, and returns the
// resulting Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppPort:       v.GetString("APP_PORT"),
		DBDriver:      strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:   v.GetString("DATABASE_DSN"),
		RabbitMQURL:   v.GetString("RABBITMQ_URL"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		ClientAppURL:  strings.TrimRight(v.GetString("CLIENT_APP_URL"), "/"),
		VerifyLockTTL: v.GetDuration("VERIFY_LOCK_TTL"),
		Esewa: esewa.Config{
			BaseURL:       strings.TrimRight(v.GetString("ESEWA_BASE_URL"), "/"),
			ProductCode:   v.GetString("ESEWA_PRODUCT_CODE"),
			SecretKey:     v.GetString("ESEWA_SECRET_KEY"),
			StatusURL:     v.GetString("ESEWA_STATUS_URL"),
			StatusTimeout: v.GetDuration("ESEWA_STATUS_TIMEOUT"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that would make the service unusable.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDriver != DriverMemory && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for driver %s", c.DBDriver)
	}
	if c.ClientAppURL == "" {
		return fmt.Errorf("CLIENT_APP_URL is required")
	}
	if c.VerifyLockTTL <= 0 {
		return fmt.Errorf("VERIFY_LOCK_TTL must be positive")
	}
	if err := c.Esewa.Validate(); err != nil {
		return fmt.Errorf("esewa config: %w", err)
	}
	return nil
}
