// # internal/engine/project/store.go
package project

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"treescope/internal/ast"
	"treescope/internal/shared/observability"
)

const sqliteDriverName = "sqlite"

// SymbolRecord is one persisted declaration row.
type SymbolRecord struct {
	File          string
	Language      string
	Name          string
	QualifiedName string
	Kind          string
	StartLine     int
	EndLine       int
	Docstring     string
}

// SymbolStore persists the extracted declarations of a project to SQLite
// so other tools can query them without re-parsing. Writes replace whole
// files; partial updates never happen.
type SymbolStore struct {
	db         *sql.DB
	projectKey string
}

func OpenSymbolStore(path, projectKey string) (*SymbolStore, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("symbol store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("symbol store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create symbol store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite symbol store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite symbol store %q: %w", cleanPath, err)
	}

	if err := migrateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	key := strings.TrimSpace(projectKey)
	if key == "" {
		key = "default"
	}
	return &SymbolStore{db: db, projectKey: key}, nil
}

func (s *SymbolStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrateSchema creates or migrates the symbols table to schema v1.
func migrateSchema(db *sql.DB) error {
	var version int
	_ = db.QueryRow(`PRAGMA user_version`).Scan(&version)

	if version == 0 {
		_, err := db.Exec(`
CREATE TABLE symbols (
  project_key TEXT NOT NULL,
  file_path TEXT NOT NULL,
  language TEXT NOT NULL DEFAULT '',
  symbol_name TEXT NOT NULL,
  qualified_name TEXT NOT NULL DEFAULT '',
  kind TEXT NOT NULL DEFAULT '',
  start_line INTEGER NOT NULL DEFAULT 0,
  end_line INTEGER NOT NULL DEFAULT 0,
  docstring TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (project_key, file_path, qualified_name, start_line)
);
CREATE INDEX idx_symbols_project_name ON symbols(project_key, symbol_name);
CREATE INDEX IF NOT EXISTS idx_symbols_project_file ON symbols(project_key, file_path);

PRAGMA user_version = 1;
`)
		if err != nil {
			return fmt.Errorf("create v1 schema: %w", err)
		}
		return nil
	}
	if version != 1 {
		return fmt.Errorf("unsupported symbol store schema version %d", version)
	}
	return nil
}

// ReplaceFile swaps all rows for one file with the declarations currently
// under root.
func (s *SymbolStore) ReplaceFile(path, language string, root *ast.Node) error {
	if s == nil || s.db == nil {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin symbol upsert tx: %w", err)
	}
	if err := deletePath(tx, s.projectKey, path); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insertRows(tx, s.projectKey, recordsForFile(path, language, root)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit symbol upsert tx: %w", err)
	}
	observability.StoreWritesTotal.Inc()
	return nil
}

func (s *SymbolStore) DeleteFile(path string) error {
	if s == nil || s.db == nil {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin symbol delete tx: %w", err)
	}
	if err := deletePath(tx, s.projectKey, path); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit symbol delete tx: %w", err)
	}
	observability.StoreWritesTotal.Inc()
	return nil
}

// PruneToPaths drops rows for files no longer present in the project.
func (s *SymbolStore) PruneToPaths(paths []string) error {
	if s == nil || s.db == nil {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin symbol prune tx: %w", err)
	}
	if len(paths) == 0 {
		if _, err := tx.Exec(`DELETE FROM symbols WHERE project_key = ?`, s.projectKey); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear symbols for empty path set: %w", err)
		}
	} else {
		if err := loadTempPaths(tx, s.projectKey, paths); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`DELETE FROM symbols WHERE project_key = ? AND file_path NOT IN (SELECT file_path FROM current_paths WHERE project_key = ?)`, s.projectKey, s.projectKey); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete stale symbol rows: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit symbol prune tx: %w", err)
	}
	observability.StoreWritesTotal.Inc()
	return nil
}

// Lookup returns every persisted declaration with the given bare name.
func (s *SymbolStore) Lookup(name string) ([]SymbolRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	rows, err := s.db.Query(`SELECT
  file_path, language, symbol_name, qualified_name, kind, start_line, end_line, docstring
FROM symbols
WHERE project_key = ? AND symbol_name = ?
ORDER BY file_path, start_line`, s.projectKey, name)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var out []SymbolRecord
	for rows.Next() {
		var rec SymbolRecord
		if err := rows.Scan(
			&rec.File,
			&rec.Language,
			&rec.Name,
			&rec.QualifiedName,
			&rec.Kind,
			&rec.StartLine,
			&rec.EndLine,
			&rec.Docstring,
		); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func deletePath(tx *sql.Tx, projectKey, path string) error {
	if _, err := tx.Exec(`DELETE FROM symbols WHERE project_key = ? AND file_path = ?`, projectKey, path); err != nil {
		return fmt.Errorf("delete symbol rows for path %q: %w", path, err)
	}
	return nil
}

func loadTempPaths(tx *sql.Tx, projectKey string, paths []string) error {
	if _, err := tx.Exec(`CREATE TEMP TABLE IF NOT EXISTS current_paths (
  project_key TEXT NOT NULL,
  file_path TEXT NOT NULL,
  PRIMARY KEY (project_key, file_path)
)`); err != nil {
		return fmt.Errorf("create temp paths table: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM current_paths WHERE project_key = ?`, projectKey); err != nil {
		return fmt.Errorf("clear temp paths table: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO current_paths (project_key, file_path) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare temp path insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range paths {
		if _, err := stmt.Exec(projectKey, p); err != nil {
			return fmt.Errorf("insert temp path: %w", err)
		}
	}
	return nil
}

func recordsForFile(path, language string, root *ast.Node) []SymbolRecord {
	if root == nil {
		return nil
	}
	// Rows can collide on (qualified name, start line) when a file declares
	// the same name twice at the same spot; last one wins, matching the
	// in-memory index.
	dedup := make(map[string]SymbolRecord)
	order := make([]string, 0, 16)
	root.Walk(func(n *ast.Node) bool {
		if n == root {
			return true
		}
		switch n.Type {
		case ast.NodeComment, ast.NodeDocstring, ast.NodeUnknown:
			return true
		}
		key := fmt.Sprintf("%s:%d", n.QualifiedName, n.Range.Start.Line)
		if _, ok := dedup[key]; !ok {
			order = append(order, key)
		}
		dedup[key] = SymbolRecord{
			File:          path,
			Language:      language,
			Name:          n.Name,
			QualifiedName: n.QualifiedName,
			Kind:          n.Type.String(),
			StartLine:     int(n.Range.Start.Line),
			EndLine:       int(n.Range.End.Line),
			Docstring:     n.Docstring,
		}
		return true
	})
	rows := make([]SymbolRecord, 0, len(order))
	for _, key := range order {
		rows = append(rows, dedup[key])
	}
	return rows
}

func insertRows(tx *sql.Tx, projectKey string, rows []SymbolRecord) error {
	stmt, err := tx.Prepare(`
INSERT OR REPLACE INTO symbols (
  project_key,
  file_path,
  language,
  symbol_name,
  qualified_name,
  kind,
  start_line,
  end_line,
  docstring
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare symbol insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(
			projectKey,
			row.File,
			row.Language,
			row.Name,
			row.QualifiedName,
			row.Kind,
			row.StartLine,
			row.EndLine,
			row.Docstring,
		); err != nil {
			return fmt.Errorf("insert symbol row (%s:%s): %w", row.File, row.Name, err)
		}
	}
	return nil
}
