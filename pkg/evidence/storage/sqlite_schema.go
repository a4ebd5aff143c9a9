package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the evidence tables for SQLite. Instants are stored as Unix
// nanoseconds so range filters compare integers on every driver.
const Schema = `
CREATE TABLE IF NOT EXISTS evidence (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',

    evaluated_at INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL,
    evaluation_us INTEGER NOT NULL DEFAULT 0,

    -- Request as received
    consent_state TEXT NOT NULL DEFAULT '',
    intended_use TEXT NOT NULL DEFAULT '',
    sensitivity_level TEXT NOT NULL DEFAULT '',
    transfer INTEGER,
    aggregation INTEGER,
    request_timestamp TEXT NOT NULL DEFAULT '',
    request_hash TEXT NOT NULL,

    -- Sealed result
    decision TEXT NOT NULL,
    terminal INTEGER NOT NULL,
    reason TEXT,
    detail TEXT,
    consent_cost INTEGER,
    audit_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_evaluated_at ON evidence(evaluated_at);
CREATE INDEX IF NOT EXISTS idx_evidence_decision ON evidence(decision);
CREATE INDEX IF NOT EXISTS idx_evidence_reason ON evidence(reason);
CREATE INDEX IF NOT EXISTS idx_evidence_audit_hash ON evidence(audit_hash);
CREATE INDEX IF NOT EXISTS idx_evidence_request_id ON evidence(request_id);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
