// Package seq provides generic operators over fallible lazy sequences.
//
// A fallible sequence is an iter.Seq2[T, error]: each step yields either a
// value with a nil error, or a zero value with the error that ended the
// sequence. Every operator here is lazy, passes errors through unchanged and
// stops pulling from its input as soon as its consumer stops.
//
// Terminal operators ([Collect], [First], [Count], [Any], [ForEach]) pull
// from the sequence and return the first error they see.
package seq

import (
	"iter"
	"slices"
)

// FromSlice yields the elements of s with nil errors.
func FromSlice[T any](s []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, v := range s {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Values lifts an infallible sequence.
func Values[T any](s iter.Seq[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v := range s {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Fail yields a single error.
func Fail[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// Filter keeps the elements for which keep returns true.
func Filter[T any](s iter.Seq2[T, error], keep func(T) bool) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v, err := range s {
			if err != nil {
				if !yield(v, err) {
					return
				}
				continue
			}
			if keep(v) && !yield(v, nil) {
				return
			}
		}
	}
}

// Where keeps the elements for which pred returns true. A predicate error
// is yielded and ends the sequence.
func Where[T any](s iter.Seq2[T, error], pred func(T) (bool, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v, err := range s {
			if err != nil {
				if !yield(v, err) {
					return
				}
				continue
			}
			ok, err := pred(v)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if ok && !yield(v, nil) {
				return
			}
		}
	}
}

// Map converts every element with f.
func Map[T, U any](s iter.Seq2[T, error], f func(T) U) iter.Seq2[U, error] {
	return func(yield func(U, error) bool) {
		for v, err := range s {
			if err != nil {
				var zero U
				if !yield(zero, err) {
					return
				}
				continue
			}
			if !yield(f(v), nil) {
				return
			}
		}
	}
}

// FlatMap expands every element into a sequence and yields their elements in
// order. Inner sequences are created only when reached.
func FlatMap[T, U any](s iter.Seq2[T, error], f func(T) iter.Seq2[U, error]) iter.Seq2[U, error] {
	return func(yield func(U, error) bool) {
		for v, err := range s {
			if err != nil {
				var zero U
				if !yield(zero, err) {
					return
				}
				continue
			}
			for u, err := range f(v) {
				if !yield(u, err) {
					return
				}
			}
		}
	}
}

// Concat yields the elements of each sequence in turn.
func Concat[T any](seqs ...iter.Seq2[T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, s := range seqs {
			for v, err := range s {
				if !yield(v, err) {
					return
				}
			}
		}
	}
}

// DistinctBy yields each element whose key has not been seen before. The set
// of seen keys lives only for one range over the result.
func DistinctBy[T any, K comparable](s iter.Seq2[T, error], key func(T) K) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		seen := make(map[K]struct{})
		for v, err := range s {
			if err != nil {
				if !yield(v, err) {
					return
				}
				continue
			}
			k := key(v)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Take yields at most n elements. Errors count toward n.
func Take[T any](s iter.Seq2[T, error], n int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if n <= 0 {
			return
		}
		i := 0
		for v, err := range s {
			if !yield(v, err) {
				return
			}
			i++
			if i >= n {
				return
			}
		}
	}
}

// Collect pulls every element into a slice.
func Collect[T any](s iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range s {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// First returns the first element. ok is false when the sequence is empty.
func First[T any](s iter.Seq2[T, error]) (v T, ok bool, err error) {
	for v, err := range s {
		if err != nil {
			var zero T
			return zero, false, err
		}
		return v, true, nil
	}
	return v, false, nil
}

// Count pulls every element and returns how many there were.
func Count[T any](s iter.Seq2[T, error]) (int, error) {
	n := 0
	for _, err := range s {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Any reports whether some element satisfies pred, stopping at the first one.
func Any[T any](s iter.Seq2[T, error], pred func(T) bool) (bool, error) {
	for v, err := range s {
		if err != nil {
			return false, err
		}
		if pred(v) {
			return true, nil
		}
	}
	return false, nil
}

// ForEach calls f for every element and stops at the first error from
// either the sequence or f.
func ForEach[T any](s iter.Seq2[T, error], f func(T) error) error {
	for v, err := range s {
		if err != nil {
			return err
		}
		if err := f(v); err != nil {
			return err
		}
	}
	return nil
}

// Sorted collects the sequence and sorts it with cmp.
func Sorted[T any](s iter.Seq2[T, error], cmp func(a, b T) int) ([]T, error) {
	out, err := Collect(s)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, cmp)
	return out, nil
}
