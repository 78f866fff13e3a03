// Package index implements the Structural Index: a single-file embedded
// relational store of files, symbols, call edges, and import references.
// It is the single writer of that store; every write is one short
// transaction, so a crash mid-write leaves the previous contents intact.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/sergiogswv/sentinel/internal/model"
	"github.com/sergiogswv/sentinel/internal/parser"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path TEXT PRIMARY KEY,
	last_indexed_at INTEGER NOT NULL,
	content_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path TEXT NOT NULL,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	line_start INTEGER NOT NULL,
	line_end INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_symbols_file_path ON symbols(file_path);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE TABLE IF NOT EXISTS call_graph (
	caller_file TEXT NOT NULL,
	caller_symbol TEXT NOT NULL,
	callee_symbol TEXT NOT NULL,
	line INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_call_graph_callee ON call_graph(callee_symbol);
CREATE INDEX IF NOT EXISTS idx_call_graph_caller_file ON call_graph(caller_file);

CREATE TABLE IF NOT EXISTS import_usage (
	file_path TEXT NOT NULL,
	imported_name TEXT NOT NULL,
	source_module TEXT NOT NULL,
	line INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_import_usage_name ON import_usage(imported_name);
`

// Index is the single-writer handle to the structural store. Writes are
// serialized through writeMu so concurrent writers line up at the Go level
// instead of churning on SQLITE_BUSY; the pool is capped at one connection,
// so reads share it with writes and run one at a time.
type Index struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Open creates (if needed) and opens the index database at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one connection keeps writer/reader ordering simple.

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// WriteFile performs the incremental re-index of one file: delete all rows
// for filePath across the three satellite tables, insert fresh rows from
// result, upsert the files row, all inside one transaction.
func (idx *Index) WriteFile(ctx context.Context, rec model.FileRecord, result *parser.Result) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_path = ?`, rec.Path); err != nil {
		return fmt.Errorf("delete symbols: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM call_graph WHERE caller_file = ?`, rec.Path); err != nil {
		return fmt.Errorf("delete call_graph: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM import_usage WHERE file_path = ?`, rec.Path); err != nil {
		return fmt.Errorf("delete import_usage: %w", err)
	}

	for _, s := range result.Symbols {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO symbols (file_path, name, kind, line_start, line_end) VALUES (?, ?, ?, ?, ?)`,
			s.FilePath, s.Name, string(s.Kind), s.LineStart, s.LineEnd); err != nil {
			return fmt.Errorf("insert symbol %s: %w", s.Name, err)
		}
	}
	for _, c := range result.Calls {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO call_graph (caller_file, caller_symbol, callee_symbol, line) VALUES (?, ?, ?, ?)`,
			c.CallerFile, c.CallerSymbol, c.CalleeSymbol, c.Line); err != nil {
			return fmt.Errorf("insert call edge: %w", err)
		}
	}
	for _, imp := range result.Imports {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO import_usage (file_path, imported_name, source_module, line) VALUES (?, ?, ?, ?)`,
			imp.FilePath, imp.ImportedName, imp.SourceModule, imp.Line); err != nil {
			return fmt.Errorf("insert import: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files (path, last_indexed_at, content_hash) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET last_indexed_at = excluded.last_indexed_at, content_hash = excluded.content_hash`,
		rec.Path, rec.LastIndexedAt.Unix(), rec.ContentHash); err != nil {
		return fmt.Errorf("upsert files: %w", err)
	}

	return tx.Commit()
}

// CallersOf returns the number of call_graph rows whose callee_symbol is
// name and whose caller_file differs from excludingFile.
func (idx *Index) CallersOf(ctx context.Context, name, excludingFile string) (int, error) {
	var count int
	err := idx.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM call_graph WHERE callee_symbol = ? AND caller_file != ?`,
		name, excludingFile).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("callers_of: %w", err)
	}
	return count, nil
}

// GetDeadCode returns the function and method symbols declared in file (or,
// if file == "", every indexed file) that have zero callers anywhere in the
// index.
func (idx *Index) GetDeadCode(ctx context.Context, file string) ([]model.Symbol, error) {
	query := `
		SELECT s.id, s.file_path, s.name, s.kind, s.line_start, s.line_end
		FROM symbols s
		WHERE (s.kind = 'function' OR s.kind = 'method')
		  AND NOT EXISTS (SELECT 1 FROM call_graph c WHERE c.callee_symbol = s.name)`
	args := []any{}
	if file != "" {
		query += ` AND s.file_path = ?`
		args = append(args, file)
	}

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get_dead_code: %w", err)
	}
	defer rows.Close()

	var out []model.Symbol
	for rows.Next() {
		var s model.Symbol
		var kind string
		if err := rows.Scan(&s.ID, &s.FilePath, &s.Name, &kind, &s.LineStart, &s.LineEnd); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		s.Kind = model.SymbolKind(kind)
		out = append(out, s)
	}
	return out, rows.Err()
}

// IndexedFileCount returns the number of distinct files the index has rows
// for, used by staleness detection.
func (idx *Index) IndexedFileCount(ctx context.Context) (int, error) {
	var count int
	if err := idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&count); err != nil {
		return 0, fmt.Errorf("indexed_file_count: %w", err)
	}
	return count, nil
}

// IsStale compares the indexed file count against diskFileCount using the
// tolerance max(5, disk/10).
func IsStale(indexed, disk int) bool {
	tolerance := disk / 10
	if tolerance < 5 {
		tolerance = 5
	}
	diff := disk - indexed
	if diff < 0 {
		diff = -diff
	}
	return diff > tolerance
}

// Truncate clears the three satellite tables and the files table, used by
// `index --rebuild` before a full re-parse.
func (idx *Index) Truncate(ctx context.Context) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"symbols", "call_graph", "import_usage", "files"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Symbols returns up to limit symbols across the whole project, used by the
// Reviewer agent's structural context block.
func (idx *Index) Symbols(ctx context.Context, limit int) ([]model.Symbol, error) {
	rows, err := idx.db.QueryContext(ctx,
		`SELECT id, file_path, name, kind, line_start, line_end FROM symbols LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	defer rows.Close()

	var out []model.Symbol
	for rows.Next() {
		var s model.Symbol
		var kind string
		if err := rows.Scan(&s.ID, &s.FilePath, &s.Name, &kind, &s.LineStart, &s.LineEnd); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		s.Kind = model.SymbolKind(kind)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CallEdges returns up to limit call_graph rows, used by the Reviewer
// agent's structural context block.
func (idx *Index) CallEdges(ctx context.Context, limit int) ([]model.CallEdge, error) {
	rows, err := idx.db.QueryContext(ctx,
		`SELECT caller_file, caller_symbol, callee_symbol, line FROM call_graph LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("call_edges: %w", err)
	}
	defer rows.Close()

	var out []model.CallEdge
	for rows.Next() {
		var c model.CallEdge
		if err := rows.Scan(&c.CallerFile, &c.CallerSymbol, &c.CalleeSymbol, &c.Line); err != nil {
			return nil, fmt.Errorf("scan call edge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ImportEdges returns up to limit import_usage rows, used by the Reviewer
// agent's structural context block.
func (idx *Index) ImportEdges(ctx context.Context, limit int) ([]model.ImportReference, error) {
	rows, err := idx.db.QueryContext(ctx,
		`SELECT file_path, imported_name, source_module, line FROM import_usage LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("import_edges: %w", err)
	}
	defer rows.Close()

	var out []model.ImportReference
	for rows.Next() {
		var r model.ImportReference
		if err := rows.Scan(&r.FilePath, &r.ImportedName, &r.SourceModule, &r.Line); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
