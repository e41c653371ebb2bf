package doc

import (
	"context"
	"iter"
)

// DirectReferences yields the documents n points at one hop away.
//
// For the concrete variants the meaning depends on the kind (the components
// of an assembly, the models placed on a drawing) and is answered by the data
// source. For the base [Document] the result is the full closure, the same as
// [TransitiveReferences]; narrow first with [AsConcrete] or an Only filter to
// get the one-hop view.
func DirectReferences[N Node](ctx context.Context, n N) iter.Seq2[Document, error] {
	return adjacent(ctx, n.Base(), n.directRelation())
}

// TransitiveReferences yields every document reachable from n by following
// forward references. The closure comes from the data source in whatever order
// it reports; the core adds no graph walk of its own.
func TransitiveReferences[N Node](ctx context.Context, n N) iter.Seq2[Document, error] {
	return adjacent(ctx, n.Base(), RelAllReferenced)
}

// ReferencingDocuments yields the documents that point at n one hop away.
// Only concrete variants can be asked; narrow a [Document] first.
func ReferencingDocuments[N ConcreteNode](ctx context.Context, n N) iter.Seq2[Document, error] {
	return adjacent(ctx, n.Base(), RelReferencing)
}

// ReferenceDescriptors yields the raw forward edge records of n so callers can
// look at the missing and suppressed flags before resolving anything.
func ReferenceDescriptors[N Node](ctx context.Context, n N) iter.Seq2[*Descriptor, error] {
	d := n.Base()
	return func(yield func(*Descriptor, error) bool) {
		if d.src == nil {
			yield(nil, detached(d))
			return
		}
		for rec, err := range d.src.Descriptors(ctx, d.ref.ID) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(NewDescriptor(d.src, rec), nil) {
				return
			}
		}
	}
}

// adjacent queries the source when the sequence is first pulled and again on
// every later range over it.
func adjacent(ctx context.Context, d Document, rel Relation) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		if d.src == nil {
			yield(Document{}, detached(d))
			return
		}
		for ref, err := range d.src.Adjacent(ctx, d.ref.ID, rel) {
			if err != nil {
				yield(Document{}, err)
				return
			}
			if !yield(NewDocument(d.src, ref), nil) {
				return
			}
		}
	}
}
