package todo

// SchemaDDL defines the SQLite schema for the digiman task database.
// Tables: todos, sync_history, processed_sources.
// Execute against a SQLite database with: db.Exec(SchemaDDL)
const SchemaDDL = `
-- Core items: suggestions awaiting triage and timeline-scheduled todos
CREATE TABLE IF NOT EXISTS todos (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    source_type TEXT NOT NULL,
    source_id TEXT,
    source_context TEXT,
    source_url TEXT,
    timeline_type TEXT NOT NULL DEFAULT 'backlog',
    due_date TEXT,
    due_week TEXT,
    due_month TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    is_suggestion INTEGER NOT NULL DEFAULT 0,
    extraction_confidence REAL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    completed_at TEXT
);

-- One row per orchestrator invocation; completed_at stays NULL while in flight
CREATE TABLE IF NOT EXISTS sync_history (
    id INTEGER PRIMARY KEY,
    sync_type TEXT NOT NULL,
    started_at TEXT NOT NULL,
    completed_at TEXT,
    items_processed INTEGER NOT NULL DEFAULT 0,
    items_extracted INTEGER NOT NULL DEFAULT 0,
    errors TEXT
);

-- Dedup ledger: write-once per (source_type, source_id) pair
CREATE TABLE IF NOT EXISTS processed_sources (
    id INTEGER PRIMARY KEY,
    source_type TEXT NOT NULL,
    source_id TEXT NOT NULL,
    processed_at TEXT NOT NULL,
    UNIQUE(source_type, source_id)
);

CREATE INDEX IF NOT EXISTS idx_todos_status ON todos(status);
CREATE INDEX IF NOT EXISTS idx_todos_due_date ON todos(due_date);
CREATE INDEX IF NOT EXISTS idx_todos_timeline_type ON todos(timeline_type);
CREATE INDEX IF NOT EXISTS idx_processed_sources_lookup ON processed_sources(source_type, source_id);
`

// MigrateExtractionConfidence adds the extraction_confidence column to
// databases created before confidence tracking landed.
const MigrateExtractionConfidence = `
ALTER TABLE todos ADD COLUMN extraction_confidence REAL;
`
