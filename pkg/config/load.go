package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file on top of NewDefault and
// validates it. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of NewDefault and applies defaults to fields the
// document zeroed. Unknown keys are rejected. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefault()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration and applies environment
// variable overrides named COVENANT_SECTION_FIELD (for example
// COVENANT_SERVER_LISTEN_ADDRESS). Environment variables always take
// precedence over the file. An empty path starts from NewDefault.
//
// The loading sequence is:
// 1. Load YAML from file (or defaults)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefault()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// envOverride binds one environment variable to one field.
type envOverride struct {
	key string
	set func(cfg *Config, val string) error
}

func str(field func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		*field(cfg) = val
		return nil
	}
}

func dur(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		*field(cfg) = d
		return nil
	}
}

func boolean(field func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		*field(cfg) = b
		return nil
	}
}

func integer(field func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		i, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		*field(cfg) = i
		return nil
	}
}

func float(field func(*Config) *float64) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		*field(cfg) = f
		return nil
	}
}

var envOverrides = []envOverride{
	// Server
	{"SERVER_LISTEN_ADDRESS", str(func(c *Config) *string { return &c.Server.ListenAddress })},
	{"SERVER_READ_TIMEOUT", dur(func(c *Config) *time.Duration { return &c.Server.ReadTimeout })},
	{"SERVER_WRITE_TIMEOUT", dur(func(c *Config) *time.Duration { return &c.Server.WriteTimeout })},
	{"SERVER_REQUEST_TIMEOUT", dur(func(c *Config) *time.Duration { return &c.Server.RequestTimeout })},
	{"SERVER_SHUTDOWN_TIMEOUT", dur(func(c *Config) *time.Duration { return &c.Server.ShutdownTimeout })},
	{"SERVER_RATE_LIMIT_ENABLED", boolean(func(c *Config) *bool { return &c.Server.RateLimit.Enabled })},
	{"SERVER_RATE_LIMIT_REQUESTS_PER_SECOND", float(func(c *Config) *float64 { return &c.Server.RateLimit.RequestsPerSecond })},
	{"SERVER_RATE_LIMIT_BURST", integer(func(c *Config) *int { return &c.Server.RateLimit.Burst })},
	{"SERVER_TLS_ENABLED", boolean(func(c *Config) *bool { return &c.Server.TLS.Enabled })},
	{"SERVER_TLS_CERT_FILE", str(func(c *Config) *string { return &c.Server.TLS.CertFile })},
	{"SERVER_TLS_KEY_FILE", str(func(c *Config) *string { return &c.Server.TLS.KeyFile })},

	// Evaluator
	{"EVALUATOR_BATCH_CONCURRENCY", integer(func(c *Config) *int { return &c.Evaluator.BatchConcurrency })},
	{"EVALUATOR_MAX_BATCH_SIZE", integer(func(c *Config) *int { return &c.Evaluator.MaxBatchSize })},

	// Evidence
	{"EVIDENCE_ENABLED", boolean(func(c *Config) *bool { return &c.Evidence.Enabled })},
	{"EVIDENCE_BACKEND", str(func(c *Config) *string { return &c.Evidence.Backend })},
	{"EVIDENCE_SQLITE_PATH", str(func(c *Config) *string { return &c.Evidence.SQLite.Path })},
	{"EVIDENCE_POSTGRES_HOST", str(func(c *Config) *string { return &c.Evidence.Postgres.Host })},
	{"EVIDENCE_POSTGRES_PORT", integer(func(c *Config) *int { return &c.Evidence.Postgres.Port })},
	{"EVIDENCE_POSTGRES_DATABASE", str(func(c *Config) *string { return &c.Evidence.Postgres.Database })},
	{"EVIDENCE_POSTGRES_USER", str(func(c *Config) *string { return &c.Evidence.Postgres.User })},
	{"EVIDENCE_POSTGRES_PASSWORD", str(func(c *Config) *string { return &c.Evidence.Postgres.Password })},
	{"EVIDENCE_POSTGRES_SSL_MODE", str(func(c *Config) *string { return &c.Evidence.Postgres.SSLMode })},
	{"EVIDENCE_RETENTION_DAYS", integer(func(c *Config) *int { return &c.Evidence.Retention.Days })},
	{"EVIDENCE_RETENTION_PRUNE_SCHEDULE", str(func(c *Config) *string { return &c.Evidence.Retention.PruneSchedule })},

	// Intake
	{"INTAKE_ENABLED", boolean(func(c *Config) *bool { return &c.Intake.Enabled })},
	{"INTAKE_DIRECTORY", str(func(c *Config) *string { return &c.Intake.Directory })},
	{"INTAKE_OUTBOX_DIRECTORY", str(func(c *Config) *string { return &c.Intake.OutboxDirectory })},
	{"INTAKE_PROCESSED_DIRECTORY", str(func(c *Config) *string { return &c.Intake.ProcessedDirectory })},

	// Telemetry
	{"TELEMETRY_LOGGING_LEVEL", str(func(c *Config) *string { return &c.Telemetry.Logging.Level })},
	{"TELEMETRY_LOGGING_FORMAT", str(func(c *Config) *string { return &c.Telemetry.Logging.Format })},
	{"TELEMETRY_METRICS_ENABLED", boolean(func(c *Config) *bool { return &c.Telemetry.Metrics.Enabled })},
	{"TELEMETRY_METRICS_PATH", str(func(c *Config) *string { return &c.Telemetry.Metrics.Path })},
	{"TELEMETRY_TRACING_ENABLED", boolean(func(c *Config) *bool { return &c.Telemetry.Tracing.Enabled })},
	{"TELEMETRY_TRACING_ENDPOINT", str(func(c *Config) *string { return &c.Telemetry.Tracing.Endpoint })},
	{"TELEMETRY_TRACING_SAMPLE_RATIO", float(func(c *Config) *float64 { return &c.Telemetry.Tracing.SampleRatio })},
}

// applyEnvOverrides applies COVENANT_* variables. A malformed value is an
// error naming the variable.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	var errs []FieldError
	for _, o := range envOverrides {
		key := DefaultEnvPrefix + o.key
		val, ok := lookup(key)
		if !ok || val == "" {
			continue
		}
		if err := o.set(cfg, val); err != nil {
			errs = append(errs, FieldError{
				Field:   key,
				Message: fmt.Sprintf("invalid value %q: %v", val, err),
			})
		}
	}
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// EnvKeys lists every supported environment variable.
func EnvKeys() []string {
	keys := make([]string, len(envOverrides))
	for i, o := range envOverrides {
		keys[i] = DefaultEnvPrefix + o.key
	}
	return keys
}
