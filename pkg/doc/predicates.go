package doc

import (
	"context"
	"reflect"
)

// Modifiable returns a predicate reporting whether a node can be edited.
// Use it with seq.Where; a source error ends the sequence with that error.
func Modifiable[N Node](ctx context.Context) func(N) (bool, error) {
	return func(n N) (bool, error) { return n.Base().IsModifiable(ctx) }
}

// ReservedForWrite returns a predicate reporting whether the current user
// holds the write reservation of a node.
func ReservedForWrite[N Node](ctx context.Context) func(N) (bool, error) {
	return func(n N) (bool, error) { return n.Base().IsReservedForWrite(ctx) }
}

// Editable combines [Modifiable] and [ReservedForWrite] with a single flags query.
func Editable[N Node](ctx context.Context) func(N) (bool, error) {
	return func(n N) (bool, error) {
		f, err := n.Base().Flags(ctx)
		return f.Modifiable && f.ReservedForWrite, err
	}
}

// PropertyEquals returns a predicate matching nodes whose property name is
// set and equal to value.
func PropertyEquals[N Node](ctx context.Context, name string, value any) func(N) (bool, error) {
	return func(n N) (bool, error) {
		v, ok, err := n.Base().Property(ctx, name)
		if err != nil || !ok {
			return false, err
		}
		return reflect.DeepEqual(v, value), nil
	}
}

// IsKind returns a predicate matching nodes of the given kind.
func IsKind[N Node](kind Kind) func(N) bool {
	return func(n N) bool { return n.Base().Kind() == kind }
}
