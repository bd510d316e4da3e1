package notification

import (
	"context"
	"errors"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/model"
	"github.com/jwalitptl/dogfinder/internal/repository"
	"github.com/jwalitptl/dogfinder/pkg/metrics"
)

// DefaultCandidateColumns are the adoption columns that may hold the applicant's address.
var DefaultCandidateColumns = []string{"email", "contact", "applicant_email", "applicant_name"}

// FallbackResult is what the adoption fallback found. Column is "" for the
// unfiltered last resort.
type FallbackResult struct {
	Adoptions []model.Adoption
	Column    string
}

// Fallback finds a viewer's adoption applications without knowing the
// deployment's schema, probing candidate columns one at a time.
type Fallback struct {
	adoptions repository.AdoptionRepository
	columns   []string
	limit     int
	metrics   *metrics.Metrics
}

func NewFallback(adoptions repository.AdoptionRepository, columns []string, limit int, m *metrics.Metrics) *Fallback {
	if len(columns) == 0 {
		columns = DefaultCandidateColumns
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Fallback{adoptions: adoptions, columns: columns, limit: limit, metrics: m}
}

// Query probes each candidate column with recipient, in order. A probe that
// fails because that very column does not exist moves on; any other error
// ends the search. The first probe returning rows wins. With no recipient, or
// no candidate matching, it finishes with an unfiltered query.
func (f *Fallback) Query(ctx context.Context, recipient string) (FallbackResult, error) {
	if recipient != "" {
		for _, col := range f.columns {
			rows, err := f.adoptions.ListByColumn(ctx, col, recipient, f.limit)
			if err != nil {
				if missing, ok := datastore.MissingColumn(err); ok && missing == col {
					f.probe(col, "missing")
					continue
				}
				f.probe(col, "error")
				return FallbackResult{Column: col}, err
			}
			if len(rows) > 0 {
				f.probe(col, "rows")
				return FallbackResult{Adoptions: rows, Column: col}, nil
			}
			f.probe(col, "empty")
		}
	}

	rows, err := f.adoptions.ListRecent(ctx, f.limit)
	if err != nil {
		f.probe("", "error")
		return FallbackResult{}, err
	}
	if len(rows) > 0 {
		f.probe("", "rows")
	} else {
		f.probe("", "empty")
	}
	return FallbackResult{Adoptions: rows}, nil
}

func (f *Fallback) probe(column, outcome string) {
	if column == "" {
		column = "unfiltered"
	}
	f.metrics.FallbackProbes.WithLabelValues(column, outcome).Inc()
}

// IsExpectedAbsence reports errors that mean a table or column simply is not there.
func IsExpectedAbsence(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := datastore.MissingColumn(err); ok {
		return true
	}
	return datastore.IsMissingTable(err) || errors.Is(err, repository.ErrNotFound)
}
