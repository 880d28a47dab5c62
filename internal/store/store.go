// Package store exports a built impact index into a SQLite database so the
// symbol table, call graph and reverse index can be inspected with SQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hargabyte/phpimpact/internal/analysis"
	"github.com/hargabyte/phpimpact/internal/naming"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("export run not found")

// Store is an export database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the database at path and initialises the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create export directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open export db: %w", err)
	}

	// One connection keeps per-connection pragmas in effect.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// DB returns the underlying database connection for advanced operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Run is one export.
type Run struct {
	ID          string
	CreatedAt   time.Time
	Fingerprint string
	Files       int
	Skipped     int
	Nodes       int
	Edges       int
}

// Export writes idx as a new run in one transaction and returns the run
// id.
func (s *Store) Export(ctx context.Context, idx *analysis.Index) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin export: %w", err)
	}
	defer tx.Rollback()

	counts := idx.Counts()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, fingerprint, files, skipped, nodes, edges) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), FormatFingerprint(idx.Fingerprint()),
		counts.Files, counts.Skipped, counts.Nodes, counts.Edges)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if err := insertAll(ctx, tx, `INSERT INTO symbols (run_id, fqn, kind, file, line) VALUES (?, ?, ?, ?, ?)`,
		func(emit func(args ...any) error) error {
			for _, sym := range idx.Table.Symbols() {
				if err := emit(runID, string(sym.FQN), string(sym.Kind), sym.File, sym.Line); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
		return "", fmt.Errorf("insert symbols: %w", err)
	}

	if err := insertAll(ctx, tx, `INSERT INTO methods (run_id, key, class, name, visibility, is_static, file, start_line, end_line, is_interface, description, is_api, is_deprecated, doc_inherited) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		func(emit func(args ...any) error) error {
			for _, m := range idx.Table.Methods() {
				if err := emit(runID, string(m.Key), string(m.Class), m.Name, string(m.Visibility), m.Static,
					m.File, m.StartLine, m.EndLine, m.IsInterface, m.Description, m.IsAPIMethod, m.IsDeprecated, m.DocInherited); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
		return "", fmt.Errorf("insert methods: %w", err)
	}

	if err := insertAll(ctx, tx, `INSERT INTO edges (run_id, caller, callee, kind) VALUES (?, ?, ?, ?)`,
		func(emit func(args ...any) error) error {
			for _, e := range idx.Graph.Edges() {
				if err := emit(runID, string(e.From), string(e.To), string(e.Kind)); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
		return "", fmt.Errorf("insert edges: %w", err)
	}

	if err := insertAll(ctx, tx, `INSERT INTO callers (run_id, callee, caller) VALUES (?, ?, ?)`,
		func(emit func(args ...any) error) error {
			var werr error
			idx.Graph.WalkReverse(func(callee naming.Key, callers []naming.Key) {
				for _, c := range callers {
					if werr != nil {
						return
					}
					werr = emit(runID, string(callee), string(c))
				}
			})
			return werr
		}); err != nil {
		return "", fmt.Errorf("insert callers: %w", err)
	}

	if err := insertAll(ctx, tx, `INSERT INTO factory_methods (run_id, key, return_type, source) VALUES (?, ?, ?, ?)`,
		func(emit func(args ...any) error) error {
			for _, e := range idx.Factories.Entries() {
				if err := emit(runID, string(e.Key), string(e.ReturnType), string(e.Source)); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
		return "", fmt.Errorf("insert factory methods: %w", err)
	}

	if err := insertAll(ctx, tx, `INSERT INTO skipped_files (run_id, path, error) VALUES (?, ?, ?)`,
		func(emit func(args ...any) error) error {
			for _, sf := range idx.Skipped {
				if err := emit(runID, sf.Path, sf.Error); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
		return "", fmt.Errorf("insert skipped files: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit export: %w", err)
	}
	return runID, nil
}

// insertAll prepares query once and lets rows emit its arguments.
func insertAll(ctx context.Context, tx *sql.Tx, query string, rows func(emit func(args ...any) error) error) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return rows(func(args ...any) error {
		_, err := stmt.ExecContext(ctx, args...)
		return err
	})
}

// FormatFingerprint renders an index fingerprint as fixed width hex.
func FormatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// Runs lists the exports, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, fingerprint, files, skipped, nodes, edges FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			created string
		)
		if err := rows.Scan(&r.ID, &created, &r.Fingerprint, &r.Files, &r.Skipped, &r.Nodes, &r.Edges); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Callers returns the recorded predecessors of key in a run, sorted.
func (s *Store) Callers(ctx context.Context, runID string, key naming.Key) ([]naming.Key, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT caller FROM callers WHERE run_id = ? AND callee = ? ORDER BY caller`, runID, string(key))
	if err != nil {
		return nil, fmt.Errorf("query callers: %w", err)
	}
	defer rows.Close()

	out := []naming.Key{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan caller: %w", err)
		}
		out = append(out, naming.Key(c))
	}
	return out, rows.Err()
}

// Count returns the number of rows of table belonging to a run.
func (s *Store) Count(ctx context.Context, runID, table string) (int, error) {
	switch table {
	case "symbols", "methods", "edges", "callers", "factory_methods", "skipped_files":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE run_id = ?", runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Delete removes a run and all its rows.
func (s *Store) Delete(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func (s *Store) checkRun(ctx context.Context, runID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return fmt.Errorf("lookup run: %w", err)
	}
	return nil
}
