package store

// schemaSQL defines the SQLite schema of an export database. Every row
// belongs to one export run, so a database can hold several snapshots.
// Tables:
//   - runs: one row per export with the index fingerprint and counts
//   - symbols: classes and interfaces
//   - methods: method metadata
//   - edges: forward call edges with their kind
//   - callers: the reverse index, including interface links
//   - factory_methods: resolved factory return types
//   - skipped_files: files left out of the index
const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    files INTEGER NOT NULL,
    skipped INTEGER NOT NULL,
    nodes INTEGER NOT NULL,
    edges INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    fqn TEXT NOT NULL,
    kind TEXT NOT NULL,
    file TEXT NOT NULL,
    line INTEGER NOT NULL,
    PRIMARY KEY (run_id, fqn)
);

CREATE TABLE IF NOT EXISTS methods (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    key TEXT NOT NULL,
    class TEXT NOT NULL,
    name TEXT NOT NULL,
    visibility TEXT NOT NULL,
    is_static INTEGER NOT NULL DEFAULT 0,
    file TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    is_interface INTEGER NOT NULL DEFAULT 0,
    description TEXT NOT NULL DEFAULT '',
    is_api INTEGER NOT NULL DEFAULT 0,
    is_deprecated INTEGER NOT NULL DEFAULT 0,
    doc_inherited INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, key)
);

CREATE TABLE IF NOT EXISTS edges (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    caller TEXT NOT NULL,
    callee TEXT NOT NULL,
    kind TEXT NOT NULL,
    PRIMARY KEY (run_id, caller, callee)
);

CREATE TABLE IF NOT EXISTS callers (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    callee TEXT NOT NULL,
    caller TEXT NOT NULL,
    PRIMARY KEY (run_id, callee, caller)
);

CREATE TABLE IF NOT EXISTS factory_methods (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    key TEXT NOT NULL,
    return_type TEXT NOT NULL,
    source TEXT NOT NULL,
    PRIMARY KEY (run_id, key)
);

CREATE TABLE IF NOT EXISTS skipped_files (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    path TEXT NOT NULL,
    error TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edges_callee ON edges(run_id, callee);
CREATE INDEX IF NOT EXISTS idx_methods_class ON methods(run_id, class);
`

// initSchema creates the database tables and indexes if they don't exist.
func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}
