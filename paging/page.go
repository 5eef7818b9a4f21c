// Package paging turns cursor-paginated remote listings into one lazy,
// forward-only sequence.
package paging

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sapslaj/rrsets/pkg/metrics"
)

// Cursor is an opaque continuation token issued by a Fetcher. Only its
// presence is inspected; NoCursor marks its absence.
type Cursor string

const NoCursor Cursor = ""

// Page is one chunk of a listing. A Page without Next is the last one.
type Page[R any] struct {
	Items []R
	Next  Cursor
}

// Terminal reports whether no further page follows.
func (p Page[R]) Terminal() bool {
	return p.Next == NoCursor
}

// Fetcher performs one remote call. It is called with NoCursor for the first
// page and with the previous page's Next afterwards. Items within a page must
// keep server order.
type Fetcher[R any] func(ctx context.Context, cursor Cursor) (Page[R], error)

// ErrNotFound is the error bindings wrap when the remote side says the listed
// resource does not exist.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

var metricFetches = metrics.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: "paging",
		Name:      "fetches_total",
		Help:      "Page fetches by result.",
	},
	[]string{"result"},
)

// EmptyOnNotFound wraps fetch so that errors matched by notFound become the
// empty terminal page. A nil notFound uses IsNotFound. Only the errors
// notFound accepts are swallowed; everything else is returned as is.
func EmptyOnNotFound[R any](fetch Fetcher[R], notFound func(error) bool) Fetcher[R] {
	if notFound == nil {
		notFound = IsNotFound
	}
	return func(ctx context.Context, cursor Cursor) (Page[R], error) {
		page, err := fetch(ctx, cursor)
		if err != nil {
			if notFound(err) {
				metricFetches.WithLabelValues("not_found").Inc()
				return Page[R]{}, nil
			}
			metricFetches.WithLabelValues("error").Inc()
			return Page[R]{}, err
		}
		metricFetches.WithLabelValues("ok").Inc()
		return page, nil
	}
}

// SinglePage is a Fetcher for listings that are never paginated.
func SinglePage[R any](items ...R) Fetcher[R] {
	return func(context.Context, Cursor) (Page[R], error) {
		return Page[R]{Items: items}, nil
	}
}
