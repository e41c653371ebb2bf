package memory

import (
	"context"
	"iter"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
)

var (
	_ doc.Source  = (*Graph)(nil)
	_ doc.Catalog = (*Graph)(nil)
)

// Adjacent implements [doc.Source].
func (g *Graph) Adjacent(ctx context.Context, id doc.ID, rel doc.Relation) iter.Seq2[doc.Ref, error] {
	return func(yield func(doc.Ref, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(doc.Ref{}, errs.Unavailable(err, "query of %q cancelled", id))
			return
		}
		switch rel {
		case doc.RelReferenced, doc.RelReferencing:
			refs, err := g.oneHop(id, rel)
			if err != nil {
				yield(doc.Ref{}, err)
				return
			}
			for _, r := range refs {
				if !yield(r, nil) {
					return
				}
			}
		case doc.RelAllReferenced:
			g.closure(ctx, id, yield)
		default:
			yield(doc.Ref{}, errs.New(errs.ErrCodeUnsupported, "unsupported relation %v", rel))
		}
	}
}

// oneHop snapshots a one-hop relation under the read lock.
func (g *Graph) oneHop(id doc.ID, rel doc.Relation) ([]doc.Ref, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.checkLocked(id); err != nil {
		return nil, err
	}
	if rel == doc.RelReferencing {
		var out []doc.Ref
		for _, from := range g.incoming[id] {
			out = append(out, g.refLocked(from))
		}
		return out, nil
	}
	return g.referencedLocked(id), nil
}

// closure streams the forward closure of start breadth first. Each
// expansion step takes the read lock on its own.
func (g *Graph) closure(ctx context.Context, start doc.ID, yield func(doc.Ref, error) bool) {
	g.mu.RLock()
	err := g.checkLocked(start)
	g.mu.RUnlock()
	if err != nil {
		yield(doc.Ref{}, err)
		return
	}

	seen := map[doc.ID]bool{start: true}
	queue := []doc.ID{start}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			yield(doc.Ref{}, errs.Unavailable(err, "closure of %q cancelled", start))
			return
		}
		cur := queue[0]
		queue = queue[1:]

		var next []doc.Ref
		g.mu.RLock()
		for _, r := range g.refs[cur] {
			if !r.active() || seen[r.To] {
				continue
			}
			seen[r.To] = true
			next = append(next, g.refLocked(r.To))
		}
		g.mu.RUnlock()

		for _, ref := range next {
			if !yield(ref, nil) {
				return
			}
			queue = append(queue, ref.ID)
		}
	}
}

// Descriptors implements [doc.Source].
func (g *Graph) Descriptors(ctx context.Context, id doc.ID) iter.Seq2[doc.DescriptorRecord, error] {
	return func(yield func(doc.DescriptorRecord, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(doc.DescriptorRecord{}, errs.Unavailable(err, "query of %q cancelled", id))
			return
		}
		g.mu.RLock()
		err := g.checkLocked(id)
		var recs []doc.DescriptorRecord
		if err == nil {
			recs = g.descriptorsLocked(id)
		}
		g.mu.RUnlock()

		if err != nil {
			yield(doc.DescriptorRecord{}, err)
			return
		}
		for _, rec := range recs {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Flags implements [doc.Source].
func (g *Graph) Flags(_ context.Context, id doc.ID) (doc.Flags, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.checkLocked(id); err != nil {
		return doc.Flags{}, err
	}
	return g.docs[id].Flags, nil
}

// Property implements [doc.Source].
func (g *Graph) Property(_ context.Context, id doc.ID, name string) (any, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.checkLocked(id); err != nil {
		return nil, false, err
	}
	v, ok := g.docs[id].Properties[name]
	return v, ok, nil
}

// SetProperty implements [doc.Source].
func (g *Graph) SetProperty(_ context.Context, id doc.ID, name string, value any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkLocked(id); err != nil {
		return err
	}
	g.docs[id].Properties[name] = value
	return nil
}

// Attribute implements [doc.Source].
func (g *Graph) Attribute(_ context.Context, id doc.ID, set, name string) (any, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.checkLocked(id); err != nil {
		return nil, false, err
	}
	v, ok := g.docs[id].Attributes[set][name]
	return v, ok, nil
}

// SetAttribute implements [doc.Source].
func (g *Graph) SetAttribute(_ context.Context, id doc.ID, set, name string, value any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkLocked(id); err != nil {
		return err
	}
	d := g.docs[id]
	if d.Attributes[set] == nil {
		d.Attributes[set] = make(map[string]any)
	}
	d.Attributes[set][name] = value
	return nil
}

// Lookup implements [doc.Catalog]. Closed documents can still be looked up.
func (g *Graph) Lookup(_ context.Context, id doc.ID) (doc.Ref, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.docs[id]; !ok {
		return doc.Ref{}, errs.New(errs.ErrCodeNotFound, "document %q not found", id)
	}
	return g.refLocked(id), nil
}

// Documents implements [doc.Catalog], yielding documents in ID order.
func (g *Graph) Documents(ctx context.Context) iter.Seq2[doc.Ref, error] {
	return func(yield func(doc.Ref, error) bool) {
		for _, id := range g.IDs() {
			if err := ctx.Err(); err != nil {
				yield(doc.Ref{}, errs.Unavailable(err, "listing cancelled"))
				return
			}
			g.mu.RLock()
			d, ok := g.docs[id]
			var ref doc.Ref
			if ok {
				ref = doc.Ref{ID: d.ID, Kind: d.Kind}
			}
			g.mu.RUnlock()
			if ok && !yield(ref, nil) {
				return
			}
		}
	}
}

// Resolve maps a selection entry to its document. The entry is matched
// against occurrence names first and document IDs second. It has the
// signature of a [doc.Resolver].
func (g *Graph) Resolve(_ context.Context, entry string) (doc.Ref, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if id, ok := g.occurrences[entry]; ok {
		return g.refLocked(id), true
	}
	if _, ok := g.docs[doc.ID(entry)]; ok {
		return g.refLocked(doc.ID(entry)), true
	}
	return doc.Ref{}, false
}

// Close releases nothing; it lets a Graph stand in wherever a closable
// backend is expected.
func (g *Graph) Close() error { return nil }

func (g *Graph) checkLocked(id doc.ID) error {
	if _, ok := g.docs[id]; !ok {
		return errs.Unavailable(nil, "document %q is not in the session", id)
	}
	if g.closed[id] {
		return errs.Unavailable(nil, "document %q is closed", id)
	}
	return nil
}

func (g *Graph) refLocked(id doc.ID) doc.Ref {
	d := g.docs[id]
	return doc.Ref{ID: d.ID, Kind: d.Kind}
}
