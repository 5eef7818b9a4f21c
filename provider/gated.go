package provider

import (
	"context"

	"github.com/sapslaj/rrsets/credentials"
	"github.com/sapslaj/rrsets/paging"
)

// GatedFetcher returns a Fetcher that asks gate for credentials when the
// first page is requested and hands them to build. The remaining pages of
// the same listing reuse them; a new listing asks again.
func GatedFetcher[R any](gate *credentials.Gate, build func(creds credentials.Credentials) paging.Fetcher[R]) paging.Fetcher[R] {
	var fetch paging.Fetcher[R]
	return func(ctx context.Context, cursor paging.Cursor) (paging.Page[R], error) {
		if fetch == nil {
			creds, err := gate.Current(ctx)
			if err != nil {
				return paging.Page[R]{}, err
			}
			fetch = build(creds)
		}
		return fetch(ctx, cursor)
	}
}
