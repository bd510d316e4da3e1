package datastore

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Error is a failure reported by the data service, in PostgREST's shape.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

const (
	CodeUndefinedColumn  = "42703"
	CodeUndefinedTable   = "42P01"
	CodeInsufficientPriv = "42501"
	CodeSchemaCacheCol   = "PGRST204"
	CodeSchemaCacheTable = "PGRST205"
	CodeJWTExpired       = "PGRST301"
)

// ErrNoRows is returned by single row lookups that match nothing.
var ErrNoRows = errors.New("datastore: no rows")

var missingColumnRe = regexp.MustCompile(`(?i)column "?((?:[a-z0-9_]+\.)?([a-z0-9_]+))"? does not exist`)

// MissingColumn reports whether err says a column does not exist, and which one.
// A qualified name such as adoptions.email yields "email".
func MissingColumn(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	m := missingColumnRe.FindStringSubmatch(err.Error())
	if m == nil {
		return "", false
	}
	if m[2] != "" {
		return m[2], true
	}
	return m[1], true
}

// IsMissingTable reports whether err says the table is absent.
func IsMissingTable(err error) bool {
	var dsErr *Error
	if !errors.As(err, &dsErr) {
		return false
	}
	switch dsErr.Code {
	case CodeUndefinedTable, CodeSchemaCacheTable:
		return true
	}
	msg := strings.ToLower(dsErr.Message)
	return strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "could not find the table")
}

// IsPermissionDenied reports a row level security or auth rejection.
func IsPermissionDenied(err error) bool {
	var dsErr *Error
	if !errors.As(err, &dsErr) {
		return false
	}
	if dsErr.Status == http.StatusUnauthorized || dsErr.Status == http.StatusForbidden {
		return true
	}
	switch dsErr.Code {
	case CodeInsufficientPriv, CodeJWTExpired:
		return true
	}
	return strings.Contains(strings.ToLower(dsErr.Message), "permission denied")
}

// IsSchemaProblem reports errors that usually mean a schema cache or RLS misconfiguration.
func IsSchemaProblem(err error) bool {
	var dsErr *Error
	if !errors.As(err, &dsErr) {
		return false
	}
	return dsErr.Code == CodeSchemaCacheCol || strings.Contains(strings.ToLower(dsErr.Details), "schema")
}
