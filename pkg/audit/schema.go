package audit

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Timestamps are stored as Unix nanoseconds so both drivers read them back
// identically.
const schema = `
CREATE TABLE IF NOT EXISTS compositions (
    id TEXT PRIMARY KEY,
    reload_id TEXT,
    outcome TEXT NOT NULL,
    generation INTEGER NOT NULL DEFAULT 0,
    fingerprint TEXT,
    diagnostics TEXT NOT NULL,
    diagnostic_count INTEGER NOT NULL DEFAULT 0,
    layers TEXT NOT NULL,
    rules INTEGER NOT NULL DEFAULT 0,
    duration_ns INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_compositions_created_at ON compositions(created_at);
CREATE INDEX IF NOT EXISTS idx_compositions_outcome ON compositions(outcome);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

const (
	insertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`
	getSchemaVersion    = `SELECT MAX(version) FROM schema_version`

	insertRecord = `
		INSERT INTO compositions (
			id, reload_id, outcome, generation, fingerprint,
			diagnostics, diagnostic_count, layers, rules, duration_ns, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectColumns = `
		SELECT id, reload_id, outcome, generation, fingerprint,
			diagnostics, layers, rules, duration_ns, created_at
		FROM compositions`

	pruneRecords = `DELETE FROM compositions WHERE created_at < ?`
	countRecords = `SELECT COUNT(*) FROM compositions`
)
