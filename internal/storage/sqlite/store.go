package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/dyike/StockSync/internal/storage"
	pkgsqlite "github.com/dyike/StockSync/pkg/sqlite"
)

// Store is a storage.Store backed by a local SQLite file.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var _ storage.Store = (*Store)(nil)

func Open(dbPath string) (*Store, error) {
	db, err := pkgsqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS stocks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_code TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL DEFAULT '',
    purchased_amount INTEGER NOT NULL DEFAULT 0,
    purchased_status TEXT NOT NULL DEFAULT '',
    request_date TEXT NOT NULL DEFAULT '',
    company_name TEXT NOT NULL DEFAULT '',
    open REAL NOT NULL DEFAULT 0,
    high REAL NOT NULL DEFAULT 0,
    low REAL NOT NULL DEFAULT 0,
    close REAL NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS performance_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_code TEXT NOT NULL UNIQUE,
    date_time TEXT NOT NULL DEFAULT '',
    five_days REAL NOT NULL DEFAULT 0,
    one_month REAL NOT NULL DEFAULT 0,
    three_months REAL NOT NULL DEFAULT 0,
    year_to_date REAL NOT NULL DEFAULT 0,
    one_year REAL NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS competitors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    percent_change REAL NOT NULL DEFAULT 0,
    market_cap_value REAL NOT NULL DEFAULT 0,
    market_cap_currency TEXT NOT NULL DEFAULT 'USD',
    peer_of TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_competitors_peer_of ON competitors(peer_of);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) Select(ctx context.Context, table string, filter storage.Filter, columns ...string) ([]storage.Row, error) {
	if len(columns) == 0 {
		columns = storage.Tables[table]
	}
	filterCols := storage.SortedKeys(filter)
	if err := storage.CheckColumns(table, append(append([]string{}, columns...), filterCols...)...); err != nil {
		return nil, err
	}

	where, args := whereClause(filter, filterCols)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id", quoteList(columns), quote(table), where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	var out []storage.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make(storage.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, table string, row storage.Row, conflictKey string) error {
	cols := storage.SortedKeys(row)
	if err := storage.CheckColumns(table, append(append([]string{}, cols...), conflictKey)...); err != nil {
		return err
	}
	if _, ok := row[conflictKey]; !ok {
		return fmt.Errorf("upsert into %s: row has no %s", table, conflictKey)
	}

	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		if c == conflictKey {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s=excluded.%s", quote(c), quote(c)))
	}
	sets = append(sets, "updated_at=CURRENT_TIMESTAMP")

	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES (%s)
ON CONFLICT(%s) DO UPDATE SET
    %s
`, quote(table), quoteList(cols), placeholders(len(cols)), quote(conflictKey), strings.Join(sets, ",\n    "))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, query, values(row, cols)...); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, table string, patch storage.Row, filter storage.Filter) error {
	cols := storage.SortedKeys(patch)
	filterCols := storage.SortedKeys(filter)
	if err := storage.CheckColumns(table, append(append([]string{}, cols...), filterCols...)...); err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, quote(c)+" = ?")
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	where, whereArgs := whereClause(filter, filterCols)

	query := fmt.Sprintf("UPDATE %s SET %s%s", quote(table), strings.Join(sets, ", "), where)
	args := append(values(patch, cols), whereArgs...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, table string, row storage.Row) error {
	cols := storage.SortedKeys(row)
	if err := storage.CheckColumns(table, cols...); err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(table), quoteList(cols), placeholders(len(cols)))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, query, values(row, cols)...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("insert %s: %w: %v", table, storage.ErrDuplicateKey, err)
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func whereClause(filter storage.Filter, cols []string) (string, []any) {
	if len(cols) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		conds = append(conds, quote(c)+" = ?")
		args = append(args, filter[c])
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func values(row storage.Row, cols []string) []any {
	out := make([]any, 0, len(cols))
	for _, c := range cols {
		out = append(out, row[c])
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// quote wraps an identifier that has already been checked against the schema.
func quote(ident string) string {
	return `"` + ident + `"`
}

func quoteList(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = quote(id)
	}
	return strings.Join(quoted, ", ")
}
