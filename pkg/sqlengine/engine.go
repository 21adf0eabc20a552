// Package sqlengine wraps the embedded SQL engine (in-memory SQLite)
// behind a dataset registry, a dialect rewriter for common non-native
// SQL, and pre-execution validation.
package sqlengine

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

// Result is one executed query's row set.
type Result struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// Engine owns one in-memory database. Each session gets its own Engine;
// registered datasets live for the Engine's lifetime.
type Engine struct {
	db     *sql.DB
	logger *zap.Logger

	mu     sync.RWMutex
	tables map[string][]string // table name -> column names
	views  map[string]bool
}

// New opens a fresh in-memory engine and ensures the compatibility
// macros are registered with the driver.
func New(logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registerMacros()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open embedded engine: %w", err)
	}
	// A single connection keeps every registered table visible; the
	// in-memory database is per-connection otherwise.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping embedded engine: %w", err)
	}
	return &Engine{
		db:     db,
		logger: logger.Named("sqlengine"),
		tables: map[string][]string{},
		views:  map[string]bool{},
	}, nil
}

// RegisterDataset creates a table for the dataset and bulk-loads its
// rows. Re-registering a name replaces the table.
func (e *Engine) RegisterDataset(ctx context.Context, ds *dataset.Dataset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(ds.Name))); err != nil {
		return fmt.Errorf("drop existing table %s: %w", ds.Name, err)
	}

	colDefs := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		colDefs[i] = fmt.Sprintf("%s %s", quoteIdent(col), sqliteType(ds.Schema[col]))
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(ds.Name), strings.Join(colDefs, ", "))
	if _, err := e.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", ds.Name, err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ds.Columns)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s VALUES (%s)", quoteIdent(ds.Name), placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range ds.Rows {
		args := make([]any, len(ds.Columns))
		for i := range ds.Columns {
			if i < len(row) {
				args[i] = toSQLValue(row[i], ds.Schema[ds.Columns[i]])
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", ds.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}

	e.tables[ds.Name] = append([]string(nil), ds.Columns...)
	e.logger.Debug("dataset registered",
		zap.String("table", ds.Name),
		zap.Int("rows", len(ds.Rows)),
		zap.Int("columns", len(ds.Columns)))
	return nil
}

// RegisterView creates a named view over already registered tables,
// used by the directory connector for its combined UNION ALL view.
func (e *Engine) RegisterView(ctx context.Context, name, selectSQL string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.db.ExecContext(ctx, fmt.Sprintf(
		"CREATE VIEW IF NOT EXISTS %s AS %s", quoteIdent(name), selectSQL)); err != nil {
		return fmt.Errorf("create view %s: %w", name, err)
	}
	e.views[name] = true
	return nil
}

// Tables lists registered tables and views, sorted.
func (e *Engine) Tables() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.tables)+len(e.views))
	for name := range e.tables {
		out = append(out, name)
	}
	for name := range e.views {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// TableColumns returns the column names of a registered table.
func (e *Engine) TableColumns(name string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tables[name]
}

// Query rewrites the SQL to the embedded dialect, validates it, and
// executes it. Unknown table references return a typed
// apperrors.TableNotFoundError naming the available tables.
func (e *Engine) Query(ctx context.Context, sqlText string) (*Result, error) {
	rewritten := RewriteDialect(sqlText)

	validated := ValidateAndNormalize(rewritten)
	if validated.Err != nil {
		return nil, apperrors.Wrap(apperrors.KindSQLSyntax, "query rejected", validated.Err)
	}

	if err := e.checkTables(validated.SQL); err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, validated.SQL)
	if err != nil {
		return nil, classifyExecError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rowMap := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyExecError(err)
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

// checkTables validates every FROM/JOIN reference against the registry.
func (e *Engine) checkTables(sqlText string) error {
	refs := ExtractTableRefs(sqlText)
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ref := range refs {
		if _, ok := e.tables[ref]; ok {
			continue
		}
		if e.views[ref] {
			continue
		}
		available := make([]string, 0, len(e.tables))
		for name := range e.tables {
			available = append(available, name)
		}
		for name := range e.views {
			available = append(available, name)
		}
		sort.Strings(available)
		return &apperrors.TableNotFoundError{Name: ref, Available: available}
	}
	return nil
}

// Close releases the engine's connection.
func (e *Engine) Close() error {
	return e.db.Close()
}

// classifyExecError maps driver errors onto the recovery taxonomy.
func classifyExecError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"):
		return apperrors.Wrap(apperrors.KindTableNotFound, "unknown table", err)
	case strings.Contains(msg, "no such column"):
		return apperrors.Wrap(apperrors.KindColumnNotFound, "unknown column", err)
	case strings.Contains(msg, "syntax error"):
		return apperrors.Wrap(apperrors.KindSQLSyntax, "invalid SQL", err)
	case strings.Contains(msg, "datatype mismatch"):
		return apperrors.Wrap(apperrors.KindTypeMismatch, "datatype mismatch", err)
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "interrupted"):
		return apperrors.Wrap(apperrors.KindTimeout, "query cancelled", err)
	}
	return apperrors.Wrap(apperrors.KindGeneric, "query failed", err)
}

func sqliteType(t dataset.ColumnType) string {
	switch t {
	case dataset.TypeInteger, dataset.TypeBoolean:
		return "INTEGER"
	case dataset.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// toSQLValue converts profiled cell values into driver values. Temporal
// values are stored as ISO text so strftime and the date macros work.
func toSQLValue(v any, t dataset.ColumnType) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		if t == dataset.TypeDate {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
