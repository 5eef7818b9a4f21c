package paging

import "context"

// Iterator chains Fetcher calls across cursors into a flat sequence. No fetch
// happens until the first call to Next, and at most one page is held at a
// time. An Iterator is single-pass and must not be advanced concurrently;
// start over with a new Iterator.
type Iterator[R any] struct {
	ctx     context.Context
	fetch   Fetcher[R]
	items   []R
	pos     int
	next    Cursor
	started bool
	done    bool
	current R
	err     error
	pages   int
}

// NewIterator returns an Iterator over every page fetch yields. ctx is passed
// to each fetch.
func NewIterator[R any](ctx context.Context, fetch Fetcher[R]) *Iterator[R] {
	return &Iterator[R]{ctx: ctx, fetch: fetch}
}

// Next advances to the next item, fetching another page when the current one
// is exhausted and a cursor is pending. It returns false at the end of the
// listing or on error; check Err afterwards.
func (it *Iterator[R]) Next() bool {
	if it.done {
		return false
	}
	for it.pos >= len(it.items) {
		if it.started && it.next == NoCursor {
			it.finish(nil)
			return false
		}
		if err := it.ctx.Err(); err != nil {
			it.finish(err)
			return false
		}
		page, err := it.fetch(it.ctx, it.next)
		it.started = true
		if err != nil {
			it.finish(err)
			return false
		}
		it.pages++
		it.items = page.Items
		it.pos = 0
		it.next = page.Next
	}
	it.current = it.items[it.pos]
	it.pos++
	return true
}

func (it *Iterator[R]) finish(err error) {
	var zero R
	it.done = true
	it.err = err
	it.items = nil
	it.current = zero
}

// Value returns the item Next moved to.
func (it *Iterator[R]) Value() R {
	return it.current
}

// Err returns the error that stopped iteration, if any.
func (it *Iterator[R]) Err() error {
	return it.err
}

// Pages returns how many pages have been fetched so far.
func (it *Iterator[R]) Pages() int {
	return it.pages
}
