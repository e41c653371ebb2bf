package memory

import (
	"github.com/matzehuels/docwalk/pkg/doc"
)

// Entry is everything a backend needs to answer queries about one document
// without walking the graph: the document itself and its adjacency views
// precomputed. Entries ignore the closed state of the document they describe
// and report it in Closed instead.
type Entry struct {
	Document    Document
	Closed      bool
	Occurrences []string
	Referenced  []doc.Ref
	Referencing []doc.Ref
	Closure     []doc.Ref
	Descriptors []doc.DescriptorRecord
}

// IsClosed reports whether [Graph.CloseDocument] was called for id.
func (g *Graph) IsClosed(id doc.ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closed[id]
}

// Entry returns the precomputed entry of id.
func (g *Graph) Entry(id doc.ID) (Entry, bool) {
	d, ok := g.Document(id)
	if !ok {
		return Entry{}, false
	}
	e := Entry{
		Document:    d,
		Closed:      g.IsClosed(id),
		Occurrences: g.Occurrences(id),
		Closure:     g.closureRefs(id),
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	e.Referenced = g.referencedLocked(id)
	for _, from := range g.incoming[id] {
		e.Referencing = append(e.Referencing, g.refLocked(from))
	}
	e.Descriptors = g.descriptorsLocked(id)
	return e, true
}

// Entries returns the entries of every document in ID order.
func (g *Graph) Entries() []Entry {
	ids := g.IDs()
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := g.Entry(id); ok {
			out = append(out, e)
		}
	}
	return out
}

// closureRefs collects the forward closure of start without checking
// whether start is closed.
func (g *Graph) closureRefs(start doc.ID) []doc.Ref {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []doc.Ref
	seen := map[doc.ID]bool{start: true}
	queue := []doc.ID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, r := range g.refs[cur] {
			if !r.active() || seen[r.To] {
				continue
			}
			seen[r.To] = true
			out = append(out, g.refLocked(r.To))
			queue = append(queue, r.To)
		}
	}
	return out
}

func (g *Graph) referencedLocked(id doc.ID) []doc.Ref {
	var out []doc.Ref
	seen := make(map[doc.ID]bool)
	for _, r := range g.refs[id] {
		if !r.active() || seen[r.To] {
			continue
		}
		seen[r.To] = true
		out = append(out, g.refLocked(r.To))
	}
	return out
}

func (g *Graph) descriptorsLocked(id doc.ID) []doc.DescriptorRecord {
	var recs []doc.DescriptorRecord
	for _, r := range g.refs[id] {
		rec := doc.DescriptorRecord{FullName: r.FullName, Missing: r.Missing, Suppressed: r.Suppressed}
		if !r.Missing && r.To != "" {
			ref := g.refLocked(r.To)
			rec.Target = &ref
		}
		recs = append(recs, rec)
	}
	return recs
}
