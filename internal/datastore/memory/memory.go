// Package memory is an in-process datastore.Client. Tables declare their
// columns up front and unknown tables or columns fail the way Postgres does,
// which lets the schema probing code run unchanged against it.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/dogfinder/internal/datastore"
)

// Table declares one table. Defaults fill absent columns on insert.
type Table struct {
	Name     string
	Columns  []string
	Defaults datastore.Row
}

type table struct {
	def     Table
	columns map[string]bool
	rows    []datastore.Row
	nextID  int64
}

type Option func(*Store)

// WithClock replaces time.Now for created_at defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	mu       sync.RWMutex
	tables   map[string]*table
	failures map[string]error
	onSelect func(*datastore.Query) error
	log      []string
	now      func() time.Time
	lastTime time.Time
}

var _ datastore.Client = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{
		tables:   make(map[string]*table),
		failures: make(map[string]error),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema is the dogfinder database layout.
func Schema() []Table {
	return []Table{
		{Name: "dogs", Columns: []string{"id", "name", "breed", "age", "gender", "description", "status", "image_url", "created_at"},
			Defaults: datastore.Row{"status": "Available"}},
		{Name: "adoptions", Columns: []string{"id", "dog_id", "applicant_name", "applicant_age", "applicant_gender", "contact", "status", "created_at"},
			Defaults: datastore.Row{"status": "Pending"}},
		{Name: "notifications", Columns: []string{"id", "adoption_id", "recipient", "message", "type", "status", "created_at"},
			Defaults: datastore.Row{"status": "unread"}},
		{Name: "users", Columns: []string{"id", "email", "name", "role", "created_at"}},
	}
}

// NewWithSchema returns a store holding the tables of Schema.
func NewWithSchema(opts ...Option) *Store {
	s := New(opts...)
	for _, t := range Schema() {
		s.CreateTable(t)
	}
	return s
}

// CreateTable adds or replaces a table. An "id" column gets integer ids assigned.
func (s *Store) CreateTable(def Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cols := make(map[string]bool, len(def.Columns))
	for _, c := range def.Columns {
		cols[c] = true
	}
	s.tables[def.Name] = &table{def: def, columns: cols, nextID: 1}
}

// DropTable removes a table so later operations on it fail as missing.
func (s *Store) DropTable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, name)
}

// Fail makes every op ("select", "insert", "update", "delete") on table return err
// until Clear is called.
func (s *Store) Fail(op, table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op+":"+table] = err
}

// OnSelect installs a hook run before every select; a non-nil error is returned as the result.
func (s *Store) OnSelect(fn func(*datastore.Query) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSelect = fn
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]error)
	s.onSelect = nil
}

// Log returns the operations run so far, selects rendered by Query.String.
func (s *Store) Log() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.log...)
}

func (s *Store) ResetLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
}

// Seed inserts rows, failing loudly. For tests and demos.
func (s *Store) Seed(tableName string, rows ...datastore.Row) {
	if _, err := s.Insert(context.Background(), tableName, rows...); err != nil {
		panic(fmt.Sprintf("memory: seed %s: %v", tableName, err))
	}
	s.ResetLog()
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Select(ctx context.Context, q *datastore.Query) ([]datastore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.log = append(s.log, q.String())
	hook := s.onSelect
	s.mu.Unlock()

	if hook != nil {
		if err := hook(q); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.lookup("select", q.Table)
	if err != nil {
		return nil, err
	}
	cols := q.ColumnList()
	for _, c := range cols {
		if err := t.checkColumn(c); err != nil {
			return nil, err
		}
	}
	for _, o := range q.Orders {
		if err := t.checkColumn(o.Column); err != nil {
			return nil, err
		}
	}
	matched, err := t.match(q.Filters)
	if err != nil {
		return nil, err
	}

	for i := len(q.Orders) - 1; i >= 0; i-- {
		o := q.Orders[i]
		sort.SliceStable(matched, func(a, b int) bool {
			c := compare(matched[a][o.Column], matched[b][o.Column])
			if o.Ascending {
				return c < 0
			}
			return c > 0
		})
	}
	if q.RowLimit > 0 && len(matched) > q.RowLimit {
		matched = matched[:q.RowLimit]
	}

	out := make([]datastore.Row, len(matched))
	for i, r := range matched {
		out[i] = project(r, cols)
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, tableName string, rows ...datastore.Row) ([]datastore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, "insert "+tableName)

	t, err := s.lookup("insert", tableName)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		for c := range r {
			if !t.columns[c] {
				return nil, schemaCacheError(c, tableName)
			}
		}
	}

	out := make([]datastore.Row, 0, len(rows))
	for _, r := range rows {
		stored := make(datastore.Row, len(t.columns))
		for c := range t.columns {
			stored[c] = nil
		}
		for c, v := range t.def.Defaults {
			stored[c] = v
		}
		for c, v := range r {
			stored[c] = v
		}
		if t.columns["id"] {
			if id, ok := toInt(stored["id"]); ok {
				if id >= t.nextID {
					t.nextID = id + 1
				}
				stored["id"] = id
			} else {
				stored["id"] = t.nextID
				t.nextID++
			}
		}
		if t.columns["created_at"] && stored["created_at"] == nil {
			stored["created_at"] = s.tick()
		}
		t.rows = append(t.rows, stored)
		out = append(out, copyRow(stored))
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, tableName string, values datastore.Row, filters ...datastore.Filter) ([]datastore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, "update "+tableName+filterSuffix(filters))

	t, err := s.lookup("update", tableName)
	if err != nil {
		return nil, err
	}
	for c := range values {
		if !t.columns[c] {
			return nil, schemaCacheError(c, tableName)
		}
	}
	matched, err := t.match(filters)
	if err != nil {
		return nil, err
	}
	out := make([]datastore.Row, 0, len(matched))
	for _, r := range matched {
		for c, v := range values {
			r[c] = v
		}
		out = append(out, copyRow(r))
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, tableName string, filters ...datastore.Filter) ([]datastore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, "delete "+tableName+filterSuffix(filters))

	t, err := s.lookup("delete", tableName)
	if err != nil {
		return nil, err
	}
	for _, f := range filters {
		if err := t.checkColumn(f.Column); err != nil {
			return nil, err
		}
	}
	var kept, out []datastore.Row
	for _, r := range t.rows {
		if matchesAll(r, filters) {
			out = append(out, copyRow(r))
			continue
		}
		kept = append(kept, r)
	}
	t.rows = kept
	return out, nil
}

func (s *Store) lookup(op, name string) (*table, error) {
	if err, ok := s.failures[op+":"+name]; ok {
		return nil, err
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, &datastore.Error{
			Status:  404,
			Code:    datastore.CodeUndefinedTable,
			Message: fmt.Sprintf("relation \"public.%s\" does not exist", name),
		}
	}
	return t, nil
}

func (s *Store) tick() time.Time {
	now := s.now().UTC()
	if !now.After(s.lastTime) {
		now = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = now
	return now
}

func (t *table) checkColumn(c string) error {
	if t.columns[c] {
		return nil
	}
	return &datastore.Error{
		Status:  400,
		Code:    datastore.CodeUndefinedColumn,
		Message: fmt.Sprintf("column %s.%s does not exist", t.def.Name, c),
	}
}

// match returns the stored rows (not copies) satisfying every filter.
func (t *table) match(filters []datastore.Filter) ([]datastore.Row, error) {
	for _, f := range filters {
		if err := t.checkColumn(f.Column); err != nil {
			return nil, err
		}
	}
	var out []datastore.Row
	for _, r := range t.rows {
		if matchesAll(r, filters) {
			out = append(out, r)
		}
	}
	return out, nil
}

func matchesAll(r datastore.Row, filters []datastore.Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case datastore.OpIn:
			found := false
			for _, v := range f.Values {
				if equal(r[f.Column], v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if !equal(r[f.Column], f.Value) {
				return false
			}
		}
	}
	return true
}

func schemaCacheError(column, tableName string) error {
	return &datastore.Error{
		Status:  400,
		Code:    datastore.CodeSchemaCacheCol,
		Message: fmt.Sprintf("Could not find the '%s' column of '%s' in the schema cache", column, tableName),
	}
}

func filterSuffix(filters []datastore.Filter) string {
	if len(filters) == 0 {
		return ""
	}
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.String()
	}
	return " " + strings.Join(parts, " ")
}

func project(r datastore.Row, cols []string) datastore.Row {
	if cols == nil {
		return copyRow(r)
	}
	out := make(datastore.Row, len(cols))
	for _, c := range cols {
		out[c] = r[c]
	}
	return out
}

func copyRow(r datastore.Row) datastore.Row {
	out := make(datastore.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// equal treats a nil operand as IS NULL. Other values compare by text so 5, int64(5) and "5" agree.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}
