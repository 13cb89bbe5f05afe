package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Prefix is the environment prefix. Every variable may also be given
// without it, e.g. DATABASE_URL instead of STATEMON_DATABASE_URL.
const Prefix = "STATEMON"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port     string `envconfig:"PORT" default:"7676"`
	GRPCPort string `envconfig:"GRPC_PORT" default:"50051"`

	StoreDriver     string        `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	AcquireTimeout  time.Duration `envconfig:"ACQUIRE_TIMEOUT" default:"5s"`
	QueryTimeout    time.Duration `envconfig:"QUERY_TIMEOUT" default:"10s"`
	Workers         int           `envconfig:"WORKERS" default:"16"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"30s"`

	MQTTEnabled  bool   `envconfig:"MQTT_ENABLED" default:"false"`
	MQTTBroker   string `envconfig:"MQTT_BROKER" default:"tcp://localhost:1883"`
	MQTTClientID string `envconfig:"MQTT_CLIENT_ID" default:"statemon"`
	MQTTUsername string `envconfig:"MQTT_USERNAME"`
	MQTTPassword string `envconfig:"MQTT_PASSWORD"`
	MQTTTopic    string `envconfig:"MQTT_TOPIC" default:"statemon/sensors/+/data"`
	MQTTQoS      uint8  `envconfig:"MQTT_QOS" default:"1"`

	TLSCert string `envconfig:"TLS_CERT"` // path to this service's certificate
	TLSKey  string `envconfig:"TLS_KEY"`  // path to this service's private key
	TLSCA   string `envconfig:"TLS_CA"`   // path to the CA certificate

	SimulateSensorID int           `envconfig:"SIMULATE_SENSOR_ID" default:"0"`
	RecordInterval   time.Duration `envconfig:"RECORD_INTERVAL" default:"5m"`

	HealthInterval time.Duration `envconfig:"HEALTH_INTERVAL" default:"10s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if c.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.MaxOpenConns)
	}
	if c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS must be between 0 and %d, got %d", c.MaxOpenConns, c.MaxIdleConns)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("ACQUIRE_TIMEOUT must be positive, got %s", c.AcquireTimeout)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("QUERY_TIMEOUT must not be negative, got %s", c.QueryTimeout)
	}
	if c.HealthInterval <= 0 {
		return fmt.Errorf("HEALTH_INTERVAL must be positive, got %s", c.HealthInterval)
	}
	if c.SimulateSensorID > 0 && c.RecordInterval <= 0 {
		return fmt.Errorf("RECORD_INTERVAL must be positive, got %s", c.RecordInterval)
	}
	if c.MQTTQoS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.MQTTQoS)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("TLS_CERT and TLS_KEY must be set together")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// TLSEnabled reports whether the servers should listen with TLS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != ""
}

// CacheEnabled reports whether readings are cached in Redis.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}
