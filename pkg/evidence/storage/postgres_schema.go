package storage

// PostgresSchema creates the evidence tables for PostgreSQL. Column layout
// matches Schema so that both dialects share the same statements.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS evidence (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',

    evaluated_at BIGINT NOT NULL,
    recorded_at BIGINT NOT NULL,
    evaluation_us BIGINT NOT NULL DEFAULT 0,

    consent_state TEXT NOT NULL DEFAULT '',
    intended_use TEXT NOT NULL DEFAULT '',
    sensitivity_level TEXT NOT NULL DEFAULT '',
    transfer BOOLEAN,
    aggregation BOOLEAN,
    request_timestamp TEXT NOT NULL DEFAULT '',
    request_hash TEXT NOT NULL,

    decision TEXT NOT NULL,
    terminal BOOLEAN NOT NULL,
    reason TEXT,
    detail TEXT,
    consent_cost BIGINT,
    audit_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_evidence_evaluated_at ON evidence(evaluated_at);
CREATE INDEX IF NOT EXISTS idx_evidence_decision ON evidence(decision);
CREATE INDEX IF NOT EXISTS idx_evidence_reason ON evidence(reason);
CREATE INDEX IF NOT EXISTS idx_evidence_audit_hash ON evidence(audit_hash);
CREATE INDEX IF NOT EXISTS idx_evidence_request_id ON evidence(request_id);
`

const postgresInsertSchemaVersion = `
INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT (version) DO NOTHING
`
