package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps tables in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][]Row
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]Row)}
}

func (m *MemoryStore) Select(ctx context.Context, table string, filter Filter, columns ...string) ([]Row, error) {
	if err := CheckColumns(table, joinColumns(columns, SortedKeys(filter))...); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Row
	for _, row := range m.tables[table] {
		if !matches(row, filter) {
			continue
		}
		out = append(out, project(row, columns))
	}
	return out, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, table string, row Row, conflictKey string) error {
	if err := CheckColumns(table, joinColumns(SortedKeys(row), []string{conflictKey})...); err != nil {
		return err
	}
	key, ok := row[conflictKey]
	if !ok {
		return fmt.Errorf("upsert into %s: row has no %s", table, conflictKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[table]
	for i, existing := range rows {
		if existing[conflictKey] == key {
			merged := copyRow(existing)
			for k, v := range row {
				merged[k] = v
			}
			rows[i] = merged
			return nil
		}
	}
	m.tables[table] = append(rows, copyRow(row))
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, table string, patch Row, filter Filter) error {
	if err := CheckColumns(table, joinColumns(SortedKeys(patch), SortedKeys(filter))...); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[table]
	for i, row := range rows {
		if !matches(row, filter) {
			continue
		}
		updated := copyRow(row)
		for k, v := range patch {
			updated[k] = v
		}
		rows[i] = updated
	}
	return nil
}

func (m *MemoryStore) Insert(ctx context.Context, table string, row Row) error {
	if err := CheckColumns(table, SortedKeys(row)...); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if code, ok := row[KeyCompanyCode]; ok {
		for _, existing := range m.tables[table] {
			if existing[KeyCompanyCode] == code {
				return fmt.Errorf("%w: %s.%s=%v", ErrDuplicateKey, table, KeyCompanyCode, code)
			}
		}
	}
	m.tables[table] = append(m.tables[table], copyRow(row))
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func matches(row Row, filter Filter) bool {
	for k, v := range filter {
		if row[k] != v {
			return false
		}
	}
	return true
}

func project(row Row, columns []string) Row {
	if len(columns) == 0 {
		return copyRow(row)
	}
	out := make(Row, len(columns))
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
