package doc

import (
	"context"
	"iter"
	"slices"
	"testing"

	errs "github.com/matzehuels/docwalk/pkg/errors"
)

// fakeSource is an in-test Source that counts every query it answers.
type fakeSource struct {
	kinds       map[ID]Kind
	edges       map[ID][]ID
	descriptors map[ID][]DescriptorRecord
	flags       map[ID]Flags
	props       map[ID]map[string]any
	attrs       map[ID]map[string]map[string]any
	closed      map[ID]bool

	adjacentCalls   int
	descriptorCalls int
	flagCalls       int
	lastRelation    Relation
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		kinds:       map[ID]Kind{},
		edges:       map[ID][]ID{},
		descriptors: map[ID][]DescriptorRecord{},
		flags:       map[ID]Flags{},
		props:       map[ID]map[string]any{},
		attrs:       map[ID]map[string]map[string]any{},
		closed:      map[ID]bool{},
	}
}

func (s *fakeSource) add(id ID, kind Kind, refs ...ID) *fakeSource {
	s.kinds[id] = kind
	s.edges[id] = refs
	return s
}

func (s *fakeSource) doc(id ID) Document {
	return NewDocument(s, Ref{ID: id, Kind: s.kinds[id]})
}

func (s *fakeSource) ref(id ID) Ref { return Ref{ID: id, Kind: s.kinds[id]} }

func (s *fakeSource) unavailable(id ID) error {
	return errs.Unavailable(nil, "document %q is closed", id)
}

func (s *fakeSource) Adjacent(_ context.Context, id ID, rel Relation) iter.Seq2[Ref, error] {
	return func(yield func(Ref, error) bool) {
		s.adjacentCalls++
		s.lastRelation = rel
		if s.closed[id] {
			yield(Ref{}, s.unavailable(id))
			return
		}
		var out []ID
		switch rel {
		case RelReferenced:
			out = s.edges[id]
		case RelReferencing:
			for _, from := range sortedIDs(s.edges) {
				if slices.Contains(s.edges[from], id) {
					out = append(out, from)
				}
			}
		case RelAllReferenced:
			out = s.closure(id)
		}
		for _, to := range out {
			if !yield(s.ref(to), nil) {
				return
			}
		}
	}
}

// closure walks the forward edges breadth first, excluding the start.
func (s *fakeSource) closure(start ID) []ID {
	seen := map[ID]bool{start: true}
	var out []ID
	queue := []ID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range s.edges[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

func (s *fakeSource) Descriptors(_ context.Context, id ID) iter.Seq2[DescriptorRecord, error] {
	return func(yield func(DescriptorRecord, error) bool) {
		s.descriptorCalls++
		if s.closed[id] {
			yield(DescriptorRecord{}, s.unavailable(id))
			return
		}
		for _, rec := range s.descriptors[id] {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (s *fakeSource) Flags(_ context.Context, id ID) (Flags, error) {
	s.flagCalls++
	if s.closed[id] {
		return Flags{}, s.unavailable(id)
	}
	return s.flags[id], nil
}

func (s *fakeSource) Property(_ context.Context, id ID, name string) (any, bool, error) {
	if s.closed[id] {
		return nil, false, s.unavailable(id)
	}
	v, ok := s.props[id][name]
	return v, ok, nil
}

func (s *fakeSource) SetProperty(_ context.Context, id ID, name string, value any) error {
	if s.closed[id] {
		return s.unavailable(id)
	}
	if s.props[id] == nil {
		s.props[id] = map[string]any{}
	}
	s.props[id][name] = value
	return nil
}

func (s *fakeSource) Attribute(_ context.Context, id ID, set, name string) (any, bool, error) {
	if s.closed[id] {
		return nil, false, s.unavailable(id)
	}
	v, ok := s.attrs[id][set][name]
	return v, ok, nil
}

func (s *fakeSource) SetAttribute(_ context.Context, id ID, set, name string, value any) error {
	if s.closed[id] {
		return s.unavailable(id)
	}
	if s.attrs[id] == nil {
		s.attrs[id] = map[string]map[string]any{}
	}
	if s.attrs[id][set] == nil {
		s.attrs[id][set] = map[string]any{}
	}
	s.attrs[id][set][name] = value
	return nil
}

func sortedIDs[V any](m map[ID]V) []ID {
	ids := make([]ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// sampleGraph builds the assembly used across the tests:
//
//	A -> P1, Sub, F
//	Sub -> P2, D1
//	D1 -> Sub
//	F is a foreign model
func sampleGraph() *fakeSource {
	return newFakeSource().
		add("A", KindAssembly, "P1", "Sub", "F").
		add("Sub", KindAssembly, "P2", "D1").
		add("P1", KindPart).
		add("P2", KindPart).
		add("D1", KindDrawing, "Sub").
		add("F", KindForeignModel)
}

// collectIDs pulls a sequence and returns the IDs in order.
func collectIDs[N Node](t *testing.T, s iter.Seq2[N, error]) []ID {
	t.Helper()
	var ids []ID
	for n, err := range s {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids = append(ids, n.Base().ID())
	}
	return ids
}

// firstErr pulls a sequence until the first error.
func firstErr[T any](s iter.Seq2[T, error]) error {
	for _, err := range s {
		if err != nil {
			return err
		}
	}
	return nil
}
