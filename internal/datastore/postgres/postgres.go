// Package postgres reaches the data service's database directly, for
// deployments that run next to it and hold a connection string.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/dogfinder/internal/datastore"
)

type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func NewDB(cfg Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

// Client implements datastore.Client with plain SQL.
type Client struct {
	db     *sqlx.DB
	schema string
}

var _ datastore.Client = (*Client)(nil)

// New wraps db. An empty schema means "public".
func New(db *sqlx.DB, schema string) *Client {
	if schema == "" {
		schema = "public"
	}
	return &Client{db: db, schema: schema}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Select(ctx context.Context, q *datastore.Query) ([]datastore.Row, error) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	if cols := q.ColumnList(); cols == nil {
		b.WriteString("*")
	} else {
		b.WriteString(quoteAll(cols))
	}
	b.WriteString(" FROM ")
	b.WriteString(c.table(q.Table))
	args = where(&b, q.Filters, args)

	if len(q.Orders) > 0 {
		parts := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			parts[i] = pq.QuoteIdentifier(o.Column) + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if q.RowLimit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.RowLimit))
	}

	return c.query(ctx, b.String(), args)
}

func (c *Client) Insert(ctx context.Context, table string, rows ...datastore.Row) ([]datastore.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	keys := columnsOf(rows)
	if len(keys) == 0 {
		var out []datastore.Row
		for range rows {
			r, err := c.query(ctx, "INSERT INTO "+c.table(table)+" DEFAULT VALUES RETURNING *", nil)
			if err != nil {
				return nil, err
			}
			out = append(out, r...)
		}
		return out, nil
	}

	var b strings.Builder
	var args []any
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", c.table(table), quoteAll(keys))
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, k := range keys {
			if j > 0 {
				b.WriteString(", ")
			}
			v, ok := r[k]
			if !ok {
				b.WriteString("DEFAULT")
				continue
			}
			args = append(args, v)
			b.WriteString("$" + strconv.Itoa(len(args)))
		}
		b.WriteString(")")
	}
	b.WriteString(" RETURNING *")

	return c.query(ctx, b.String(), args)
}

func (c *Client) Update(ctx context.Context, table string, values datastore.Row, filters ...datastore.Filter) ([]datastore.Row, error) {
	if len(values) == 0 {
		return nil, errors.New("update without values")
	}
	var b strings.Builder
	var args []any

	fmt.Fprintf(&b, "UPDATE %s SET ", c.table(table))
	for i, k := range sortedKeys(values) {
		if i > 0 {
			b.WriteString(", ")
		}
		args = append(args, values[k])
		fmt.Fprintf(&b, "%s = $%d", pq.QuoteIdentifier(k), len(args))
	}
	args = where(&b, filters, args)
	b.WriteString(" RETURNING *")

	return c.query(ctx, b.String(), args)
}

func (c *Client) Delete(ctx context.Context, table string, filters ...datastore.Filter) ([]datastore.Row, error) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(c.table(table))
	args := where(&b, filters, nil)
	b.WriteString(" RETURNING *")

	return c.query(ctx, b.String(), args)
}

func (c *Client) query(ctx context.Context, query string, args []any) ([]datastore.Row, error) {
	rows, err := c.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []datastore.Row
	for rows.Next() {
		m := make(map[string]any)
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for k, v := range m {
			if raw, ok := v.([]byte); ok {
				m[k] = string(raw)
			}
		}
		out = append(out, datastore.Row(m))
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (c *Client) table(name string) string {
	return pq.QuoteIdentifier(c.schema) + "." + pq.QuoteIdentifier(name)
}

func where(b *strings.Builder, filters []datastore.Filter, args []any) []any {
	for i, f := range filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		col := pq.QuoteIdentifier(f.Column)
		switch {
		case f.Op == datastore.OpIn && len(f.Values) == 0:
			b.WriteString("FALSE")
		case f.Op == datastore.OpIn:
			marks := make([]string, len(f.Values))
			for j, v := range f.Values {
				args = append(args, v)
				marks[j] = "$" + strconv.Itoa(len(args))
			}
			fmt.Fprintf(b, "%s IN (%s)", col, strings.Join(marks, ", "))
		case f.Value == nil:
			fmt.Fprintf(b, "%s IS NULL", col)
		default:
			args = append(args, f.Value)
			fmt.Fprintf(b, "%s = $%d", col, len(args))
		}
	}
	return args
}

func quoteAll(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

func columnsOf(rows []datastore.Row) []string {
	union := datastore.Row{}
	for _, r := range rows {
		for k := range r {
			union[k] = nil
		}
	}
	return sortedKeys(union)
}

func sortedKeys(r datastore.Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	status := http.StatusBadRequest
	switch pqErr.Code {
	case datastore.CodeUndefinedTable:
		status = http.StatusNotFound
	case datastore.CodeInsufficientPriv:
		status = http.StatusForbidden
	}
	if pqErr.Code.Class() == "08" || pqErr.Code.Class() == "53" || pqErr.Code.Class() == "57" {
		status = http.StatusServiceUnavailable
	}
	return &datastore.Error{
		Status:  status,
		Code:    string(pqErr.Code),
		Message: pqErr.Message,
		Details: pqErr.Detail,
		Hint:    pqErr.Hint,
	}
}
