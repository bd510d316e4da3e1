// Package datastore is the client side of the hosted relational data service:
// table scoped select/insert/update/delete with equality and membership
// filters, ordering and limits, plus the service's auth endpoints.
package datastore

import (
	"context"
	"fmt"
	"strings"
)

// Row is one record as returned by the data service, before conversion to a model type.
type Row map[string]any

// Op is a filter operator.
type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"
)

// Filter restricts the rows an operation touches.
type Filter struct {
	Column string
	Op     Op
	Value  any
	// Values holds the operands of an OpIn filter.
	Values []any
}

// Order sorts a select by one column.
type Order struct {
	Column    string
	Ascending bool
}

// Query is a select against one table. Build it with From.
type Query struct {
	Table    string
	Columns  string
	Filters  []Filter
	Orders   []Order
	RowLimit int // zero means no cap
}

// From starts a select of every column of table.
func From(table string) *Query {
	return &Query{Table: table, Columns: "*"}
}

// Select restricts the returned columns, e.g. "id,name,image_url".
func (q *Query) Select(columns string) *Query {
	if strings.TrimSpace(columns) == "" {
		columns = "*"
	}
	q.Columns = columns
	return q
}

func (q *Query) Eq(column string, value any) *Query {
	q.Filters = append(q.Filters, Eq(column, value))
	return q
}

func (q *Query) In(column string, values ...any) *Query {
	q.Filters = append(q.Filters, In(column, values...))
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	q.Orders = append(q.Orders, Order{Column: column, Ascending: ascending})
	return q
}

func (q *Query) Limit(n int) *Query {
	q.RowLimit = n
	return q
}

// ColumnList splits Columns; nil means every column.
func (q *Query) ColumnList() []string {
	if q.Columns == "" || q.Columns == "*" {
		return nil
	}
	parts := strings.Split(q.Columns, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (q *Query) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "select %s from %s", q.Columns, q.Table)
	for _, f := range q.Filters {
		b.WriteString(" ")
		b.WriteString(f.String())
	}
	for _, o := range q.Orders {
		dir := "desc"
		if o.Ascending {
			dir = "asc"
		}
		fmt.Fprintf(&b, " order %s.%s", o.Column, dir)
	}
	if q.RowLimit > 0 {
		fmt.Fprintf(&b, " limit %d", q.RowLimit)
	}
	return b.String()
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func In(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpIn, Values: values}
}

func (f Filter) String() string {
	if f.Op == OpIn {
		parts := make([]string, len(f.Values))
		for i, v := range f.Values {
			parts[i] = fmt.Sprint(v)
		}
		return fmt.Sprintf("%s=in.(%s)", f.Column, strings.Join(parts, ","))
	}
	return fmt.Sprintf("%s=%s.%v", f.Column, f.Op, f.Value)
}

// Client is the data service connection. Mutations return the affected rows.
type Client interface {
	Select(ctx context.Context, q *Query) ([]Row, error)
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	Update(ctx context.Context, table string, values Row, filters ...Filter) ([]Row, error)
	Delete(ctx context.Context, table string, filters ...Filter) ([]Row, error)
	Ping(ctx context.Context) error
}

// AuthUser is the signed-in identity behind an access token.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Authenticator resolves and ends sessions at the data service.
type Authenticator interface {
	GetUser(ctx context.Context, accessToken string) (*AuthUser, error)
	SignOut(ctx context.Context, accessToken string) error
}

type tokenKey struct{}

// WithAccessToken makes the data service evaluate row level security as the token's user.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// AccessToken returns the token set by WithAccessToken.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
