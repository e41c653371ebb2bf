package doc

import "iter"

// Only keeps the nodes that as accepts and yields them re-typed. as must
// check the kind tag before converting, like [AsPart] does, so narrowing
// never produces a view of the wrong variant.
//
// Errors in nodes are passed on unchanged.
func Only[N Node, T any](nodes iter.Seq2[N, error], as func(Document) (T, bool)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for n, err := range nodes {
			if err != nil {
				var zero T
				if !yield(zero, err) {
					return
				}
				continue
			}
			t, ok := as(n.Base())
			if !ok {
				continue
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

// OnlyAssemblies keeps assembly documents.
func OnlyAssemblies[N Node](nodes iter.Seq2[N, error]) iter.Seq2[Assembly, error] {
	return Only(nodes, AsAssembly)
}

// OnlyParts keeps part documents.
func OnlyParts[N Node](nodes iter.Seq2[N, error]) iter.Seq2[Part, error] {
	return Only(nodes, AsPart)
}

// OnlyDrawings keeps drawing documents.
func OnlyDrawings[N Node](nodes iter.Seq2[N, error]) iter.Seq2[Drawing, error] {
	return Only(nodes, AsDrawing)
}

// OnlyPresentations keeps presentation documents.
func OnlyPresentations[N Node](nodes iter.Seq2[N, error]) iter.Seq2[Presentation, error] {
	return Only(nodes, AsPresentation)
}

// Exclude drops nodes of the given kind and keeps the element type.
// Nodes with a corrupted kind tag are kept.
func Exclude[N Node](nodes iter.Seq2[N, error], kind Kind) iter.Seq2[N, error] {
	return keepIf(nodes, func(k Kind) bool { return k != kind })
}

// ExcludeAssemblies drops assembly documents.
func ExcludeAssemblies[N Node](nodes iter.Seq2[N, error]) iter.Seq2[N, error] {
	return Exclude(nodes, KindAssembly)
}

// ExcludeParts drops part documents.
func ExcludeParts[N Node](nodes iter.Seq2[N, error]) iter.Seq2[N, error] {
	return Exclude(nodes, KindPart)
}

// ExcludeDrawings drops drawing documents.
func ExcludeDrawings[N Node](nodes iter.Seq2[N, error]) iter.Seq2[N, error] {
	return Exclude(nodes, KindDrawing)
}

// ExcludePresentations drops presentation documents.
func ExcludePresentations[N Node](nodes iter.Seq2[N, error]) iter.Seq2[N, error] {
	return Exclude(nodes, KindPresentation)
}

// ExcludeKinds drops every node whose kind is in set, in one pass.
func ExcludeKinds[N Node](nodes iter.Seq2[N, error], set KindSet) iter.Seq2[N, error] {
	return keepIf(nodes, func(k Kind) bool { return !set.Has(k) })
}

// KeepKinds keeps only the nodes whose kind is in set.
func KeepKinds[N Node](nodes iter.Seq2[N, error], set KindSet) iter.Seq2[N, error] {
	return keepIf(nodes, set.Has)
}

// ExcludeNonNative drops foreign models, geometry-exchange files and
// documents of unknown kind, keeping the four native kinds.
func ExcludeNonNative[N Node](nodes iter.Seq2[N, error]) iter.Seq2[N, error] {
	return ExcludeKinds(nodes, NonNative)
}

func keepIf[N Node](nodes iter.Seq2[N, error], keep func(Kind) bool) iter.Seq2[N, error] {
	return func(yield func(N, error) bool) {
		for n, err := range nodes {
			if err != nil {
				if !yield(n, err) {
					return
				}
				continue
			}
			if !keep(n.Base().Kind()) {
				continue
			}
			if !yield(n, nil) {
				return
			}
		}
	}
}
