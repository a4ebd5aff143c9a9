package config

import (
	"fmt"
	"net"
	"regexp"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All field errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateEvaluator(&cfg.Evaluator)...)
	errs = append(errs, validateEvidence(&cfg.Evidence)...)
	errs = append(errs, validateIntake(&cfg.Intake)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}

	positive := map[string]bool{
		"server.read_timeout":     cfg.ReadTimeout > 0,
		"server.write_timeout":    cfg.WriteTimeout > 0,
		"server.idle_timeout":     cfg.IdleTimeout > 0,
		"server.shutdown_timeout": cfg.ShutdownTimeout > 0,
		"server.request_timeout":  cfg.RequestTimeout > 0,
		"server.max_header_bytes": cfg.MaxHeaderBytes > 0,
		"server.max_body_bytes":   cfg.MaxBodyBytes > 0,
	}
	for _, field := range sortedKeys(positive) {
		if !positive[field] {
			errs = append(errs, FieldError{Field: field, Message: "must be positive"})
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, FieldError{
				Field:   "server.rate_limit.requests_per_second",
				Message: "must be positive when rate limiting is enabled",
			})
		}
		if cfg.RateLimit.Burst <= 0 {
			errs = append(errs, FieldError{
				Field:   "server.rate_limit.burst",
				Message: "must be positive when rate limiting is enabled",
			})
		}
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "cert file is required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "key file is required when TLS is enabled"})
		}
	}

	return errs
}

func validateEvaluator(cfg *EvaluatorConfig) []FieldError {
	var errs []FieldError
	if cfg.BatchConcurrency <= 0 {
		errs = append(errs, FieldError{Field: "evaluator.batch_concurrency", Message: "must be positive"})
	}
	if cfg.MaxBatchSize <= 0 {
		errs = append(errs, FieldError{Field: "evaluator.max_batch_size", Message: "must be positive"})
	}
	return errs
}

var validBackends = map[string]bool{
	"memory":      true,
	"sqlite":      true,
	"sqlite-pure": true,
	"postgres":    true,
}

var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

func validateEvidence(cfg *EvidenceConfig) []FieldError {
	var errs []FieldError

	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "evidence.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', 'sqlite-pure', or 'postgres'", cfg.Backend),
		})
	}

	switch cfg.Backend {
	case "sqlite", "sqlite-pure":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "evidence.sqlite.path", Message: "path is required for SQLite backends"})
		}
		if cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{Field: "evidence.sqlite.max_idle_conns", Message: "must not exceed max_open_conns"})
		}
	case "postgres":
		if cfg.Postgres.Host == "" {
			errs = append(errs, FieldError{Field: "evidence.postgres.host", Message: "host is required for the postgres backend"})
		}
		if cfg.Postgres.Database == "" {
			errs = append(errs, FieldError{Field: "evidence.postgres.database", Message: "database is required for the postgres backend"})
		}
		if cfg.Postgres.User == "" {
			errs = append(errs, FieldError{Field: "evidence.postgres.user", Message: "user is required for the postgres backend"})
		}
		if cfg.Postgres.Port <= 0 || cfg.Postgres.Port > 65535 {
			errs = append(errs, FieldError{Field: "evidence.postgres.port", Message: fmt.Sprintf("invalid port %d", cfg.Postgres.Port)})
		}
		if !validSSLModes[cfg.Postgres.SSLMode] {
			errs = append(errs, FieldError{Field: "evidence.postgres.ssl_mode", Message: fmt.Sprintf("invalid ssl mode %q", cfg.Postgres.SSLMode)})
		}
	}

	if cfg.Recorder.AsyncBuffer <= 0 {
		errs = append(errs, FieldError{Field: "evidence.recorder.async_buffer", Message: "must be positive"})
	}
	if cfg.Recorder.WriteTimeout <= 0 {
		errs = append(errs, FieldError{Field: "evidence.recorder.write_timeout", Message: "must be positive"})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "evidence.retention.days", Message: "must be >= 0"})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "evidence.retention.max_records", Message: "must be >= 0"})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "evidence.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Retention.PruneSchedule, err),
			})
		}
	}
	if cfg.Retention.ArchiveBeforeDelete && cfg.Retention.ArchivePath == "" {
		errs = append(errs, FieldError{Field: "evidence.retention.archive_path", Message: "archive path is required when archiving is enabled"})
	}

	return errs
}

func validateIntake(cfg *IntakeConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	if cfg.Directory == "" {
		errs = append(errs, FieldError{Field: "intake.directory", Message: "directory is required when intake is enabled"})
	}
	if cfg.OutboxDirectory == "" {
		errs = append(errs, FieldError{Field: "intake.outbox_directory", Message: "outbox directory is required when intake is enabled"})
	}
	if cfg.Directory != "" && (cfg.Directory == cfg.OutboxDirectory || cfg.Directory == cfg.ProcessedDirectory) {
		errs = append(errs, FieldError{Field: "intake.directory", Message: "must differ from the outbox and processed directories"})
	}
	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("intake.extensions[%d]", i),
				Message: fmt.Sprintf("extension %q must start with '.'", ext),
			})
		}
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	paths := map[string]string{
		"telemetry.health.liveness_path":  cfg.Health.LivenessPath,
		"telemetry.health.readiness_path": cfg.Health.ReadinessPath,
		"telemetry.health.version_path":   cfg.Health.VersionPath,
	}
	for _, field := range sortedKeys(paths) {
		if !strings.HasPrefix(paths[field], "/") {
			errs = append(errs, FieldError{Field: field, Message: "path must start with /"})
		}
	}

	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
