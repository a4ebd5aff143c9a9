package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress     = "127.0.0.1:8080"
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultMaxHeaderBytes    = 1048576 // 1MB
	DefaultMaxBodyBytes      = int64(1048576)
	DefaultRateLimitRPS      = 100.0
	DefaultRateLimitBurst    = 200
	DefaultBatchConcurrency  = 8
	DefaultMaxBatchSize      = 1000
	DefaultIntakeDirectory   = "data/inbox"
	DefaultIntakeOutbox      = "data/outbox"
	DefaultIntakeDebounce    = 200 * time.Millisecond
	DefaultEnvPrefix         = "COVENANT_"
	DefaultConfigurationFile = "covenant.yaml"

	// Evidence defaults
	DefaultEvidenceEnabled              = true
	DefaultEvidenceBackend              = "sqlite"
	DefaultEvidenceSQLitePath           = "data/evidence.db"
	DefaultEvidenceSQLiteMaxOpenConns   = 10
	DefaultEvidenceSQLiteMaxIdleConns   = 5
	DefaultEvidenceSQLiteWALMode        = true
	DefaultEvidenceSQLiteBusyTimeout    = 5 * time.Second
	DefaultEvidenceRecorderAsyncBuffer  = 1000
	DefaultEvidenceRecorderWriteTimeout = 5 * time.Second
	DefaultEvidenceRecorderMaxFieldLen  = 256
	DefaultEvidenceRetentionDays        = 90
	DefaultEvidenceRetentionSchedule    = "0 3 * * *"
	DefaultEvidenceRetentionArchivePath = "data/archives/"
	DefaultEvidenceQueryTimeout         = 30 * time.Second
	DefaultEvidenceExportJSONPretty     = true
	DefaultEvidenceExportCSVHeader      = true
	DefaultPostgresPort                 = 5432
	DefaultPostgresSSLMode              = "require"
	DefaultPostgresMaxConns             = int32(10)

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedactPII   = true
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "covenant"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingServiceName = "covenant"
	DefaultTracingInsecure    = true
	DefaultTracingTimeout     = 10 * time.Second
	DefaultHealthLivenessPath = "/health"
	DefaultHealthReadiness    = "/ready"
	DefaultHealthVersionPath  = "/version"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// Default histogram buckets.
var (
	DefaultEvaluationDurationBuckets = []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01}
	DefaultRequestDurationBuckets    = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0}
	DefaultIntakeExtensions          = []string{".json", ".yaml", ".yml"}
)

// NewDefault returns a configuration with every default applied, including
// boolean defaults. Files are decoded on top of it so that an explicit false
// survives.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Evidence.Enabled = DefaultEvidenceEnabled
	cfg.Evidence.SQLite.WALMode = DefaultEvidenceSQLiteWALMode
	cfg.Evidence.Export.JSONPretty = DefaultEvidenceExportJSONPretty
	cfg.Evidence.Export.CSVIncludeHeader = DefaultEvidenceExportCSVHeader
	cfg.Evidence.Retention.Days = DefaultEvidenceRetentionDays
	cfg.Evidence.Retention.PruneSchedule = DefaultEvidenceRetentionSchedule
	cfg.Telemetry.Logging.RedactPII = DefaultLoggingRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued non-boolean fields. Zero retention days,
// an empty prune schedule and zero max records are meaningful and kept.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)

	if cfg.Evaluator.BatchConcurrency == 0 {
		cfg.Evaluator.BatchConcurrency = DefaultBatchConcurrency
	}
	if cfg.Evaluator.MaxBatchSize == 0 {
		cfg.Evaluator.MaxBatchSize = DefaultMaxBatchSize
	}

	applyEvidenceDefaults(&cfg.Evidence)

	if cfg.Intake.Directory == "" {
		cfg.Intake.Directory = DefaultIntakeDirectory
	}
	if cfg.Intake.OutboxDirectory == "" {
		cfg.Intake.OutboxDirectory = DefaultIntakeOutbox
	}
	if cfg.Intake.Debounce == 0 {
		cfg.Intake.Debounce = DefaultIntakeDebounce
	}
	if len(cfg.Intake.Extensions) == 0 {
		cfg.Intake.Extensions = append([]string(nil), DefaultIntakeExtensions...)
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.RateLimit.RequestsPerSecond == 0 {
		s.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if s.RateLimit.Burst == 0 {
		s.RateLimit.Burst = DefaultRateLimitBurst
	}
}

func applyEvidenceDefaults(e *EvidenceConfig) {
	if e.Backend == "" {
		e.Backend = DefaultEvidenceBackend
	}
	if e.SQLite.Path == "" {
		e.SQLite.Path = DefaultEvidenceSQLitePath
	}
	if e.SQLite.MaxOpenConns == 0 {
		e.SQLite.MaxOpenConns = DefaultEvidenceSQLiteMaxOpenConns
	}
	if e.SQLite.MaxIdleConns == 0 {
		e.SQLite.MaxIdleConns = DefaultEvidenceSQLiteMaxIdleConns
	}
	if e.SQLite.BusyTimeout == 0 {
		e.SQLite.BusyTimeout = DefaultEvidenceSQLiteBusyTimeout
	}
	if e.Postgres.Port == 0 {
		e.Postgres.Port = DefaultPostgresPort
	}
	if e.Postgres.SSLMode == "" {
		e.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if e.Postgres.MaxConns == 0 {
		e.Postgres.MaxConns = DefaultPostgresMaxConns
	}
	if e.Recorder.AsyncBuffer == 0 {
		e.Recorder.AsyncBuffer = DefaultEvidenceRecorderAsyncBuffer
	}
	if e.Recorder.WriteTimeout == 0 {
		e.Recorder.WriteTimeout = DefaultEvidenceRecorderWriteTimeout
	}
	if e.Recorder.MaxFieldLength == 0 {
		e.Recorder.MaxFieldLength = DefaultEvidenceRecorderMaxFieldLen
	}
	if e.Retention.ArchivePath == "" {
		e.Retention.ArchivePath = DefaultEvidenceRetentionArchivePath
	}
	if e.Query.Timeout == 0 {
		e.Query.Timeout = DefaultEvidenceQueryTimeout
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(t.Metrics.EvaluationDurationBuckets) == 0 {
		t.Metrics.EvaluationDurationBuckets = append([]float64(nil), DefaultEvaluationDurationBuckets...)
	}
	if len(t.Metrics.RequestDurationBuckets) == 0 {
		t.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 && t.Tracing.Sampler == "ratio" {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultHealthLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultHealthReadiness
	}
	if t.Health.VersionPath == "" {
		t.Health.VersionPath = DefaultHealthVersionPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
