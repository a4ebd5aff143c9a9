package config

import "time"

// Config is the root configuration structure for covenant.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, body limits and rate limiting.
	Server ServerConfig `yaml:"server"`

	// Evaluator contains batch evaluation limits. Decision thresholds and
	// cost tables are fixed and not configurable.
	Evaluator EvaluatorConfig `yaml:"evaluator"`

	// Evidence contains configuration for the evidence trail including
	// backend selection, recorder, retention and export settings.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Intake contains configuration for the file-drop directory watcher.
	Intake IntakeConfig `yaml:"intake"`

	// Telemetry contains configuration for observability including logging,
	// metrics, tracing and health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds the handling of a single request.
	// Default: 10s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// RateLimit configures the global token bucket.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// TLS configures HTTPS serving.
	TLS TLSConfig `yaml:"tls"`
}

// RateLimitConfig contains HTTP rate limiting configuration.
type RateLimitConfig struct {
	// Enabled controls whether requests are rate limited.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained request rate.
	// Default: 100
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the token bucket size.
	// Default: 200
	Burst int `yaml:"burst"`
}

// TLSConfig contains TLS configuration.
type TLSConfig struct {
	// Enabled controls whether TLS is enabled.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the TLS certificate file.
	// Required when Enabled is true.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the TLS private key file.
	// Required when Enabled is true.
	KeyFile string `yaml:"key_file"`
}

// EvaluatorConfig contains batch evaluation configuration.
type EvaluatorConfig struct {
	// BatchConcurrency caps concurrent evaluations within one batch.
	// Default: 8
	BatchConcurrency int `yaml:"batch_concurrency"`

	// MaxBatchSize is the largest accepted batch.
	// Default: 1000
	MaxBatchSize int `yaml:"max_batch_size"`
}

// EvidenceConfig selects where evaluation records go and how long they
// stay there.
type EvidenceConfig struct {
	Enabled bool   `yaml:"enabled"` // default true
	Backend string `yaml:"backend"` // memory, sqlite, sqlite-pure or postgres; default sqlite

	// SQLite is shared by the sqlite and sqlite-pure backends.
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`

	Recorder  RecorderConfig  `yaml:"recorder"`
	Retention RetentionConfig `yaml:"retention"`
	Query     QueryConfig     `yaml:"query"`
	Export    ExportConfig    `yaml:"export"`
}

// SQLiteConfig describes the evidence database file.
type SQLiteConfig struct {
	Path         string        `yaml:"path"` // default data/evidence.db
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	WALMode      bool          `yaml:"wal_mode"`     // default true
	BusyTimeout  time.Duration `yaml:"busy_timeout"` // default 5s
}

// PostgresConfig describes the evidence database server. Password is
// usually supplied through COVENANT_EVIDENCE_POSTGRES_PASSWORD.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"` // default 5432
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// SSLMode is passed to the server as sslmode; default "require".
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"` // pool size, default 10
}

// RecorderConfig tunes the asynchronous evidence writer.
type RecorderConfig struct {
	// AsyncBuffer is how many records may wait for the writer. When it is
	// full, evaluations wait up to WriteTimeout and then drop the record.
	AsyncBuffer  int           `yaml:"async_buffer"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxFieldLength truncates request values stored as received.
	MaxFieldLength int `yaml:"max_field_length"`
}

// RetentionConfig bounds evidence by age and by count.
type RetentionConfig struct {
	// Days keeps records evaluated within the last N days; 0 keeps them
	// forever.
	Days int `yaml:"days"`

	// PruneSchedule is a five-field cron expression such as "0 3 * * *".
	// Empty means pruning only runs from "covenant evidence prune".
	PruneSchedule string `yaml:"prune_schedule"`

	ArchiveBeforeDelete bool   `yaml:"archive_before_delete"`
	ArchivePath         string `yaml:"archive_path"`

	// MaxRecords keeps only the newest N records; 0 is unlimited.
	MaxRecords int64 `yaml:"max_records"`
}

// QueryConfig bounds evidence reads from the CLI and HTTP.
type QueryConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ExportConfig sets exporter defaults.
type ExportConfig struct {
	JSONPretty       bool `yaml:"json_pretty"`
	CSVIncludeHeader bool `yaml:"csv_include_header"`
}

// IntakeConfig contains directory watcher configuration.
type IntakeConfig struct {
	// Enabled starts the watcher alongside the server.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Directory is the watched inbox.
	// Default: "data/inbox"
	Directory string `yaml:"directory"`

	// OutboxDirectory receives <name>.result.json files.
	// Default: "data/outbox"
	OutboxDirectory string `yaml:"outbox_directory"`

	// ProcessedDirectory receives consumed inputs. Empty leaves inputs in
	// place.
	ProcessedDirectory string `yaml:"processed_directory"`

	// Debounce delays processing until a file has been quiet this long.
	// Default: 200ms
	Debounce time.Duration `yaml:"debounce"`

	// Extensions lists accepted file extensions.
	// Default: [".json", ".yaml", ".yml"]
	Extensions []string `yaml:"extensions"`
}

// TelemetryConfig groups logging, metrics, tracing and health settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`  // debug, info, warn or error
	Format    string `yaml:"format"` // json or text
	AddSource bool   `yaml:"add_source"`

	// RedactPII masks emails, bearer tokens and API keys in log output,
	// plus anything matched by RedactPatterns.
	RedactPII      bool            `yaml:"redact_pii"`
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern is one extra redaction rule.
type RedactPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"` // Go regexp syntax
	Replacement string `yaml:"replacement"`
}

// MetricsConfig configures the Prometheus collector and its endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`

	// Histogram buckets in seconds. Evaluations take microseconds, HTTP
	// requests milliseconds, hence two sets.
	EvaluationDurationBuckets []float64 `yaml:"evaluation_duration_buckets"`
	RequestDurationBuckets    []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig configures OpenTelemetry export over OTLP gRPC. When
// Enabled is false a noop tracer is used.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Sampler     string  `yaml:"sampler"`      // always, never or ratio
	SampleRatio float64 `yaml:"sample_ratio"` // used by the ratio sampler
	Endpoint    string  `yaml:"endpoint"`     // e.g. localhost:4317
	ServiceName string  `yaml:"service_name"`
	Insecure    bool    `yaml:"insecure"`

	// Timeout bounds each span export.
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig places the probe endpoints.
type HealthConfig struct {
	LivenessPath  string `yaml:"liveness_path"`
	ReadinessPath string `yaml:"readiness_path"`
	VersionPath   string `yaml:"version_path"`

	// CheckTimeout bounds each readiness check.
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
