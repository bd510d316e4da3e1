package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Rows come from three drivers: JSON decoding yields float64 and strings,
// database/sql yields int64 and time.Time. These helpers accept either.

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func asInt64Ptr(v any) *int64 {
	if i, ok := asInt64(v); ok {
		return &i
	}
	return nil
}

func asIntPtr(v any) *int {
	if i, ok := asInt64(v); ok {
		n := int(i)
		return &n
	}
	return nil
}

// asString renders any non-nil scalar; nil becomes "".
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func asStringPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}

func asTimePtr(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

// Deref returns *p or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return *v
		}
	}
	return ""
}
