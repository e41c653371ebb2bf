package doc

import (
	"context"
	"iter"

	errs "github.com/matzehuels/docwalk/pkg/errors"
)

// FromSelection turns a host selection into documents.
//
// Entries are visited in selection order and handed to resolve; entries that
// resolve to no document are skipped. A selection with zero entries is almost
// always a mistake upstream, so instead of silently yielding nothing the
// sequence yields a single EMPTY_INPUT error. Like everything else, that
// check runs on the first pull, not when FromSelection is called.
//
// The sequence can be ranged over again if sel can.
func FromSelection[E any](ctx context.Context, src Source, sel Selection[E], resolve Resolver[E]) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		if sel == nil || sel.Len() == 0 {
			yield(Document{}, errs.EmptyInput("the selection set is empty"))
			return
		}
		for entry := range sel.All() {
			ref, ok := resolve(ctx, entry)
			if !ok {
				continue
			}
			if !yield(NewDocument(src, ref), nil) {
				return
			}
		}
	}
}

// FromDescriptors unwraps descriptors into the documents they reference.
//
// Nil descriptors and descriptors that did not resolve are skipped. The
// missing and suppressed flags are not consulted here; filter on
// [NotMissing] and [NotSuppressed] beforehand when they matter.
// Errors in ds are passed on unchanged.
func FromDescriptors(ds iter.Seq2[*Descriptor, error]) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		for d, err := range ds {
			if err != nil {
				if !yield(Document{}, err) {
					return
				}
				continue
			}
			doc, ok := d.Resolved()
			if !ok {
				continue
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}
