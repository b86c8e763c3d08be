// Package config provides supervisor configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds agent-supervisor configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL. COMMSEnabled=false runs
	// the supervisor HTTP-only (subject-addressed responders then fail as
	// unreachable).
	COMMSURL     string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName    string `envconfig:"SERVICE_NAME" default:"agent-supervisor"`
	COMMSEnabled bool   `envconfig:"COMMS_ENABLED" default:"true"`

	// Subjects (empty = package defaults)
	SupervisorSubject    string `envconfig:"SUPERVISOR_SUBJECT"`
	ClassifySubject      string `envconfig:"CLASSIFY_SUBJECT"`
	ExchangeEventSubject string `envconfig:"EXCHANGE_EVENT_SUBJECT"`

	// UseCommsClassifier routes intent classification to the COMMS classify
	// subject instead of the built-in keyword classifier.
	UseCommsClassifier bool          `envconfig:"USE_COMMS_CLASSIFIER" default:"false"`
	ClassifyTimeout    time.Duration `envconfig:"CLASSIFY_TIMEOUT" default:"10s"`

	// Dispatch
	ResponderTimeout time.Duration `envconfig:"RESPONDER_TIMEOUT" default:"30s"`
	RetryDelay       time.Duration `envconfig:"RETRY_DELAY" default:"500ms"`

	// Responder registry
	RespondersFile     string `envconfig:"RESPONDERS_FILE"`
	ProtocolConstraint string `envconfig:"PROTOCOL_CONSTRAINT" default:"^1.0"`

	// Database (optional; when set, responders are read from Postgres)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP endpoint (SUPERVISOR_HTTP_ADDR preferred, e.g. "0.0.0.0:8000")
	HTTPAddr           string        `envconfig:"SUPERVISOR_HTTP_ADDR"`
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8000"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateForServe checks required config when running the supervisor.
func (c *Config) ValidateForServe() error {
	if c.ResponderTimeout <= 0 {
		return fmt.Errorf("%s - RESPONDER_TIMEOUT must be positive", logPrefix)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("%s - RETRY_DELAY must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if c.UseCommsClassifier && !c.COMMSEnabled {
		return fmt.Errorf("%s - USE_COMMS_CLASSIFIER requires COMMS_ENABLED", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands
// (migrate, seed, clear).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
