// Package grouping merges a clustered stream of vendor records into resource
// record sets.
package grouping

import (
	"context"
	"fmt"

	"github.com/sapslaj/rrsets/model"
	"github.com/sapslaj/rrsets/paging"
)

// Normalizer maps one vendor record onto the model. Key must be consistent
// with what Apply writes into the builder.
type Normalizer[R any] interface {
	Key(raw R) model.Key
	// Apply adds raw to b. On the first record of a group b is empty and
	// Apply is expected to set name, type, qualifier, TTL and profile.
	Apply(b *model.Builder, raw R)
}

// NormalizerFuncs adapts a pair of functions to Normalizer.
type NormalizerFuncs[R any] struct {
	KeyFunc   func(raw R) model.Key
	ApplyFunc func(b *model.Builder, raw R)
}

func (n NormalizerFuncs[R]) Key(raw R) model.Key {
	return n.KeyFunc(raw)
}

func (n NormalizerFuncs[R]) Apply(b *model.Builder, raw R) {
	n.ApplyFunc(b, raw)
}

// Iterator emits one ResourceRecordSet per run of consecutive records that
// share a key. Upstream must deliver records clustered by key; this is a
// linear merge, not a sort. Only one set is held in flight.
type Iterator[R any] struct {
	upstream   paging.Seq[R]
	normalizer Normalizer[R]
	pending    *model.Builder
	pendingKey model.Key
	current    model.ResourceRecordSet
	err        error
	done       bool
}

// New returns an Iterator pulling raw records from upstream.
func New[R any](upstream paging.Seq[R], normalizer Normalizer[R]) *Iterator[R] {
	return &Iterator[R]{upstream: upstream, normalizer: normalizer}
}

// Group is shorthand for grouping the pages of fetch.
func Group[R any](ctx context.Context, fetch paging.Fetcher[R], normalizer Normalizer[R]) *Iterator[R] {
	return New[R](paging.NewIterator(ctx, fetch), normalizer)
}

// Next advances to the next complete set.
func (it *Iterator[R]) Next() bool {
	if it.done {
		return false
	}
	for it.upstream.Next() {
		raw := it.upstream.Value()
		key := it.normalizer.Key(raw)
		if it.pending != nil && key == it.pendingKey {
			it.normalizer.Apply(it.pending, raw)
			continue
		}
		emit := it.pending
		it.pending = model.NewBuilder()
		it.pendingKey = key
		it.normalizer.Apply(it.pending, raw)
		if emit != nil {
			return it.emit(emit)
		}
	}
	if err := it.upstream.Err(); err != nil {
		it.stop(err)
		return false
	}
	if it.pending != nil {
		emit := it.pending
		it.pending = nil
		if !it.emit(emit) {
			return false
		}
		it.done = true
		return true
	}
	it.stop(nil)
	return false
}

func (it *Iterator[R]) emit(b *model.Builder) bool {
	rrset, err := b.Build()
	if err != nil {
		it.stop(fmt.Errorf("could not build record set %s: %w", b.Key(), err))
		return false
	}
	it.current = rrset
	return true
}

func (it *Iterator[R]) stop(err error) {
	it.done = true
	it.err = err
	it.pending = nil
	it.current = model.ResourceRecordSet{}
}

// Value returns the set Next moved to.
func (it *Iterator[R]) Value() model.ResourceRecordSet {
	return it.current
}

// Err returns the upstream or build error that stopped iteration.
func (it *Iterator[R]) Err() error {
	return it.err
}
