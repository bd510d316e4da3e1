// Package rest talks to the hosted data service over its PostgREST and GoTrue
// HTTP endpoints, authenticating with the project's public anon key.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/pkg/httpclient"
)

type Config struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

// Client implements datastore.Client and datastore.Authenticator.
type Client struct {
	http    *httpclient.Client
	anonKey string
}

var (
	_ datastore.Client        = (*Client)(nil)
	_ datastore.Authenticator = (*Client)(nil)
)

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("datastore url is required")
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("datastore anon key is required")
	}
	hc, err := httpclient.NewWithBaseURL(cfg.URL, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	return &Client{http: hc, anonKey: cfg.AnonKey}, nil
}

func (c *Client) Select(ctx context.Context, q *datastore.Query) ([]datastore.Row, error) {
	params := url.Values{}
	params.Set("select", strings.ReplaceAll(q.Columns, " ", ""))
	addFilters(params, q.Filters)
	if len(q.Orders) > 0 {
		parts := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := "desc"
			if o.Ascending {
				dir = "asc"
			}
			parts[i] = o.Column + "." + dir
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.RowLimit > 0 {
		params.Set("limit", strconv.Itoa(q.RowLimit))
	}
	return c.rows(ctx, http.MethodGet, q.Table, params, nil, false)
}

func (c *Client) Insert(ctx context.Context, table string, rows ...datastore.Row) ([]datastore.Row, error) {
	params := url.Values{}
	var body any = rows
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		body = rows[0]
	default:
		params.Set("columns", strings.Join(sortedKeys(rows), ","))
	}
	return c.rows(ctx, http.MethodPost, table, params, body, true)
}

func (c *Client) Update(ctx context.Context, table string, values datastore.Row, filters ...datastore.Filter) ([]datastore.Row, error) {
	params := url.Values{}
	addFilters(params, filters)
	return c.rows(ctx, http.MethodPatch, table, params, values, true)
}

func (c *Client) Delete(ctx context.Context, table string, filters ...datastore.Filter) ([]datastore.Row, error) {
	params := url.Values{}
	addFilters(params, filters)
	return c.rows(ctx, http.MethodDelete, table, params, nil, true)
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.http.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		Path:    "/rest/v1/",
		Headers: c.headers(ctx, ""),
	})
	return mapError(err)
}

// GetUser resolves the user behind accessToken via GoTrue.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*datastore.AuthUser, error) {
	var user datastore.AuthUser
	err := c.http.DoJSON(ctx, http.MethodGet, "/auth/v1/user", c.headers(ctx, accessToken), nil, &user)
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.http.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/auth/v1/logout",
		Headers: c.headers(ctx, accessToken),
	})
	return mapError(err)
}

func (c *Client) rows(ctx context.Context, method, table string, params url.Values, body any, mutation bool) ([]datastore.Row, error) {
	headers := c.headers(ctx, "")
	if mutation {
		headers["Prefer"] = "return=representation"
	}
	raw, err := c.http.Do(ctx, httpclient.Request{
		Method:  method,
		Path:    "/rest/v1/" + url.PathEscape(table),
		Query:   params.Encode(),
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, mapError(err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var out []datastore.Row
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", table, err)
	}
	return out, nil
}

func (c *Client) headers(ctx context.Context, token string) map[string]string {
	if token == "" {
		token = datastore.AccessToken(ctx)
	}
	if token == "" {
		token = c.anonKey
	}
	return map[string]string{
		"apikey":        c.anonKey,
		"Authorization": "Bearer " + token,
	}
}

func addFilters(params url.Values, filters []datastore.Filter) {
	for _, f := range filters {
		switch f.Op {
		case datastore.OpIn:
			parts := make([]string, len(f.Values))
			for i, v := range f.Values {
				parts[i] = literal(v)
			}
			params.Add(f.Column, "in.("+strings.Join(parts, ",")+")")
		default:
			if f.Value == nil {
				params.Add(f.Column, "is.null")
				continue
			}
			params.Add(f.Column, string(f.Op)+"."+fmt.Sprint(f.Value))
		}
	}
}

// literal renders an in.() operand; strings are quoted so commas and parentheses survive.
func literal(v any) string {
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	dsErr := &datastore.Error{Status: httpErr.StatusCode}
	var body struct {
		Code             string `json:"code"`
		Message          string `json:"message"`
		Details          string `json:"details"`
		Hint             string `json:"hint"`
		Msg              string `json:"msg"`
		ErrorCode        string `json:"error_code"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal([]byte(httpErr.Body), &body) == nil {
		dsErr.Code = firstNonEmpty(body.Code, body.ErrorCode)
		dsErr.Message = firstNonEmpty(body.Message, body.Msg, body.ErrorDescription)
		dsErr.Details = body.Details
		dsErr.Hint = body.Hint
	}
	if dsErr.Message == "" {
		dsErr.Message = firstNonEmpty(httpErr.Body, http.StatusText(httpErr.StatusCode))
	}
	return dsErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// sortedKeys is the union of row keys; PostgREST fills missing ones with defaults.
func sortedKeys(rows []datastore.Row) []string {
	seen := map[string]bool{}
	var keys []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
