package doc

import (
	"context"
	"iter"
	"slices"
	"testing"

	"github.com/matzehuels/docwalk/pkg/seq"
)

// Properties that hold for any input sequence, checked over the mixed-kind
// list and the sample assembly closure.

func propertyInputs() map[string]func() iter.Seq2[Document, error] {
	return map[string]func() iter.Seq2[Document, error]{
		"mixed": func() iter.Seq2[Document, error] { return seq.FromSlice(mixed()) },
		"closure": func() iter.Seq2[Document, error] {
			return TransitiveReferences(context.Background(), sampleGraph().doc("A"))
		},
	}
}

func TestOnlyIsIdempotent(t *testing.T) {
	tests := []struct {
		name        string
		once, twice func(*testing.T, iter.Seq2[Document, error]) []ID
	}{
		{
			"assemblies",
			func(t *testing.T, s iter.Seq2[Document, error]) []ID { return collectIDs(t, OnlyAssemblies(s)) },
			func(t *testing.T, s iter.Seq2[Document, error]) []ID { return collectIDs(t, OnlyAssemblies(OnlyAssemblies(s))) },
		},
		{
			"parts",
			func(t *testing.T, s iter.Seq2[Document, error]) []ID { return collectIDs(t, OnlyParts(s)) },
			func(t *testing.T, s iter.Seq2[Document, error]) []ID { return collectIDs(t, OnlyParts(OnlyParts(s))) },
		},
		{
			"drawings",
			func(t *testing.T, s iter.Seq2[Document, error]) []ID { return collectIDs(t, OnlyDrawings(s)) },
			func(t *testing.T, s iter.Seq2[Document, error]) []ID { return collectIDs(t, OnlyDrawings(OnlyDrawings(s))) },
		},
		{
			"presentations",
			func(t *testing.T, s iter.Seq2[Document, error]) []ID { return collectIDs(t, OnlyPresentations(s)) },
			func(t *testing.T, s iter.Seq2[Document, error]) []ID {
				return collectIDs(t, OnlyPresentations(OnlyPresentations(s)))
			},
		},
	}
	for input, in := range propertyInputs() {
		for _, tt := range tests {
			t.Run(input+"/"+tt.name, func(t *testing.T) {
				once, twice := tt.once(t, in()), tt.twice(t, in())
				if !slices.Equal(once, twice) {
					t.Errorf("once = %v, twice = %v", once, twice)
				}
			})
		}
	}
}

func TestExcludeOfOnlyIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		run  func(*testing.T, iter.Seq2[Document, error]) []ID
	}{
		{"assemblies", func(t *testing.T, s iter.Seq2[Document, error]) []ID { return collectIDs(t, ExcludeAssemblies(OnlyAssemblies(s))) }},
		{"parts", func(t *testing.T, s iter.Seq2[Document, error]) []ID { return collectIDs(t, ExcludeParts(OnlyParts(s))) }},
		{"drawings", func(t *testing.T, s iter.Seq2[Document, error]) []ID { return collectIDs(t, ExcludeDrawings(OnlyDrawings(s))) }},
		{"presentations", func(t *testing.T, s iter.Seq2[Document, error]) []ID {
			return collectIDs(t, ExcludePresentations(OnlyPresentations(s)))
		}},
	}
	for input, in := range propertyInputs() {
		for _, tt := range tests {
			t.Run(input+"/"+tt.name, func(t *testing.T) {
				if got := tt.run(t, in()); len(got) != 0 {
					t.Errorf("got %v, want nothing", got)
				}
			})
		}
	}
}

func TestExcludeNonNativePartitions(t *testing.T) {
	for input, in := range propertyInputs() {
		t.Run(input, func(t *testing.T) {
			all := collectIDs(t, in())
			native := collectIDs(t, ExcludeNonNative(in()))
			nonNative := collectIDs(t, KeepKinds(in(), NonNative))

			for _, id := range native {
				if slices.Contains(nonNative, id) {
					t.Errorf("%s is in both halves", id)
				}
			}
			union := append(slices.Clone(native), nonNative...)
			slices.Sort(union)
			want := slices.Clone(all)
			slices.Sort(want)
			if !slices.Equal(union, want) {
				t.Errorf("native %v + non-native %v != input %v", native, nonNative, all)
			}
		})
	}
}

func TestDirectReferencesAreInClosure(t *testing.T) {
	ctx := context.Background()
	src := sampleGraph()
	for _, id := range []ID{"A", "Sub", "P1", "P2", "D1"} {
		t.Run(string(id), func(t *testing.T) {
			c, ok := AsConcrete(src.doc(id))
			if !ok {
				t.Fatalf("%s is not concrete", id)
			}
			direct := collectIDs(t, DirectReferences(ctx, c))
			closure := collectIDs(t, TransitiveReferences(ctx, c))
			for _, d := range direct {
				if !slices.Contains(closure, d) {
					t.Errorf("direct reference %s missing from closure %v", d, closure)
				}
			}
		})
	}
}

func TestLeafHasNoReferences(t *testing.T) {
	ctx := context.Background()
	src := sampleGraph()
	p1, ok := AsPart(src.doc("P1"))
	if !ok {
		t.Fatal("P1 should narrow to a part")
	}

	tests := []struct {
		name string
		s    iter.Seq2[Document, error]
	}{
		{"direct", DirectReferences(ctx, p1)},
		{"transitive", TransitiveReferences(ctx, p1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := collectIDs(t, tt.s); len(got) != 0 {
				t.Errorf("got %v, want nothing", got)
			}
		})
	}
}

func TestFirstPullQueriesOnce(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		build func(src *fakeSource) iter.Seq2[Document, error]
	}{
		{"direct", func(src *fakeSource) iter.Seq2[Document, error] {
			asm, _ := AsAssembly(src.doc("A"))
			return DirectReferences(ctx, asm)
		}},
		{"transitive", func(src *fakeSource) iter.Seq2[Document, error] {
			return TransitiveReferences(ctx, src.doc("A"))
		}},
		{"referencing", func(src *fakeSource) iter.Seq2[Document, error] {
			sub, _ := AsAssembly(src.doc("Sub"))
			return ReferencingDocuments(ctx, sub)
		}},
		{"filtered closure", func(src *fakeSource) iter.Seq2[Document, error] {
			return ExcludeNonNative(TransitiveReferences(ctx, src.doc("A")))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := sampleGraph()
			next, stop := iter.Pull2(tt.build(src))
			defer stop()

			if src.adjacentCalls != 0 {
				t.Fatalf("queries before first pull = %d", src.adjacentCalls)
			}
			if _, err, ok := next(); !ok || err != nil {
				t.Fatalf("first pull: ok=%v err=%v", ok, err)
			}
			if src.adjacentCalls != 1 {
				t.Errorf("queries after first pull = %d, want 1", src.adjacentCalls)
			}
			for {
				if _, _, ok := next(); !ok {
					break
				}
			}
			if src.adjacentCalls != 1 {
				t.Errorf("queries after draining = %d, want 1", src.adjacentCalls)
			}
		})
	}
}
