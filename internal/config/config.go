// Package config provides configuration structures and validation for the
// transactional core. It covers the HTTP server, PostgreSQL, the optional
// alert bus and key-management transit service, envelope encryption key
// material, and the risk/compliance engine parameters.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field represents
// a major subsystem and is validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	AlertBus    AlertBusConfig
	Crypto      CryptoConfig
	Risk        RiskConfig
	Compliance  ComplianceConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// AlertBusConfig contains the optional external alert bus settings.
// An empty Brokers string disables publishing entirely.
type AlertBusConfig struct {
	Brokers           string
	Topic             string
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

// Enabled reports whether an external alert bus is configured
func (c *AlertBusConfig) Enabled() bool {
	return c.Brokers != ""
}

// CryptoConfig contains envelope encryption settings. The RSA key pair is
// mandatory: without it the service must refuse to start rather than fall
// back to storing plaintext. The transit service is optional.
type CryptoConfig struct {
	PublicKeyPath  string // PEM-encoded RSA public key (wraps content keys)
	PrivateKeyPath string // PEM-encoded RSA private key (unwraps content keys)

	TransitAddress string // Base URL of the key-management transit service
	TransitToken   string
	TransitKeyName string
	TransitTimeout time.Duration
}

// TransitEnabled reports whether an external key-wrap service is configured
func (c *CryptoConfig) TransitEnabled() bool {
	return c.TransitAddress != ""
}

// RiskConfig contains risk evaluator and anomaly detector parameters
type RiskConfig struct {
	TransactionWindow int     // Most-recent-N transactions examined per evaluation
	WindowDays        int     // Descriptive window tag persisted on snapshots
	AnomalyTrees      int     // Ensemble size for the isolation forest
	AnomalySubsample  int     // Per-tree subsample cap
	AnomalyThreshold  float64 // Score at or above which a transaction is flagged

	// SuppressThresholdAlerts disables alert raising during risk evaluation.
	// Set in ephemeral/test environments to keep runs deterministic.
	SuppressThresholdAlerts bool
}

// ComplianceConfig contains the mock KYC/AML screening parameters
type ComplianceConfig struct {
	AMLAmountThreshold float64  // Amounts at or above this fail the AML screen
	HighRiskKeywords   []string // Case-insensitive memo substrings that fail AML
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate alert bus config (only when enabled)
	if c.AlertBus.Enabled() {
		if c.AlertBus.Topic == "" {
			validationErrors = append(validationErrors, "ALERT_BUS_TOPIC is required when ALERT_BUS_BROKERS is set")
		}
		if c.AlertBus.WriteTimeout <= 0 {
			validationErrors = append(validationErrors, "ALERT_BUS_WRITE_TIMEOUT must be greater than 0")
		}
	}

	// Validate crypto config. Missing key material is a fatal
	// misconfiguration detected here, never per-request.
	if c.Crypto.PublicKeyPath == "" {
		validationErrors = append(validationErrors, "CRYPTO_PUBLIC_KEY_PATH is required")
	}
	if c.Crypto.PrivateKeyPath == "" {
		validationErrors = append(validationErrors, "CRYPTO_PRIVATE_KEY_PATH is required")
	}
	if c.Crypto.TransitEnabled() {
		if c.Crypto.TransitKeyName == "" {
			validationErrors = append(validationErrors, "CRYPTO_TRANSIT_KEY_NAME is required when CRYPTO_TRANSIT_ADDRESS is set")
		}
		if c.Crypto.TransitTimeout <= 0 {
			validationErrors = append(validationErrors, "CRYPTO_TRANSIT_TIMEOUT must be greater than 0")
		}
	}

	// Validate risk config
	if c.Risk.TransactionWindow <= 0 {
		validationErrors = append(validationErrors, "RISK_TRANSACTION_WINDOW must be greater than 0")
	}
	if c.Risk.WindowDays <= 0 {
		validationErrors = append(validationErrors, "RISK_WINDOW_DAYS must be greater than 0")
	}
	if c.Risk.AnomalyTrees <= 0 {
		validationErrors = append(validationErrors, "RISK_ANOMALY_TREES must be greater than 0")
	}
	if c.Risk.AnomalySubsample <= 1 {
		validationErrors = append(validationErrors, "RISK_ANOMALY_SUBSAMPLE must be greater than 1")
	}
	if c.Risk.AnomalyThreshold <= 0 || c.Risk.AnomalyThreshold > 1 {
		validationErrors = append(validationErrors, "RISK_ANOMALY_THRESHOLD must be in (0, 1]")
	}

	// Validate compliance config
	if c.Compliance.AMLAmountThreshold <= 0 {
		validationErrors = append(validationErrors, "COMPLIANCE_AML_AMOUNT_THRESHOLD must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
