package paging

// Seq is a pull-based sequence: call Next until it returns false, read each
// element with Value, then check Err.
type Seq[T any] interface {
	Next() bool
	Value() T
	Err() error
}

type sliceSeq[T any] struct {
	items []T
	pos   int
}

// FromSlice returns a Seq over items.
func FromSlice[T any](items []T) Seq[T] {
	return &sliceSeq[T]{items: items, pos: -1}
}

func (s *sliceSeq[T]) Next() bool {
	if s.pos+1 >= len(s.items) {
		s.pos = len(s.items)
		return false
	}
	s.pos++
	return true
}

func (s *sliceSeq[T]) Value() T {
	if s.pos < 0 || s.pos >= len(s.items) {
		var zero T
		return zero
	}
	return s.items[s.pos]
}

func (s *sliceSeq[T]) Err() error { return nil }

type filterSeq[T any] struct {
	Seq[T]
	keep func(T) bool
}

// Filter returns a Seq of the elements of seq for which keep is true. It
// pulls from seq lazily.
func Filter[T any](seq Seq[T], keep func(T) bool) Seq[T] {
	return &filterSeq[T]{Seq: seq, keep: keep}
}

func (f *filterSeq[T]) Next() bool {
	for f.Seq.Next() {
		if f.keep(f.Seq.Value()) {
			return true
		}
	}
	return false
}

type errSeq[T any] struct{ err error }

// Failed returns an empty Seq whose Err is err.
func Failed[T any](err error) Seq[T] {
	return errSeq[T]{err: err}
}

func (errSeq[T]) Next() bool   { return false }
func (errSeq[T]) Value() T     { var zero T; return zero }
func (s errSeq[T]) Err() error { return s.err }

// Collect drains seq into a slice. Elements read before an error are
// returned along with it.
func Collect[T any](seq Seq[T]) ([]T, error) {
	items := make([]T, 0)
	for seq.Next() {
		items = append(items, seq.Value())
	}
	return items, seq.Err()
}

// First returns the first element of seq, or false when seq is empty.
func First[T any](seq Seq[T]) (T, bool, error) {
	if seq.Next() {
		return seq.Value(), true, nil
	}
	var zero T
	return zero, false, seq.Err()
}
