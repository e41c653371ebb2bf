// Package memory implements an in-memory document graph that serves as a
// [doc.Source] and [doc.Catalog].
//
// A [Graph] is what a host application would hold in its session: documents
// with their kinds, capability flags, properties and attribute sets, and the
// ordered forward references between them. It is the reference backend for
// the traversal core and the staging area the Redis and Mongo loaders read
// from.
//
// Adjacency follows the host model:
//
//   - referenced: targets of the active forward references (not missing, not
//     suppressed), each target once, in reference order
//   - referencing: documents with an active reference to this one, in the
//     order they were added
//   - all-referenced: the forward closure, breadth first, excluding the start
//
// Descriptors expose every reference record, including missing and
// suppressed ones.
//
// A Graph is safe for concurrent use. Sequences take the read lock per step
// and never hold it while the consumer runs, so a consumer may write
// properties while ranging.
package memory

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"github.com/tidwall/btree"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
)

// Document is one document held by a [Graph].
type Document struct {
	ID         doc.ID
	Kind       doc.Kind
	Path       string
	Flags      doc.Flags
	Properties map[string]any
	Attributes map[string]map[string]any
}

// Reference is a forward edge record. To is empty when the target could not
// be found; such references must be flagged Missing.
type Reference struct {
	From       doc.ID
	To         doc.ID
	FullName   string
	Missing    bool
	Suppressed bool
}

// active reports whether the reference participates in adjacency queries.
func (r Reference) active() bool { return !r.Missing && !r.Suppressed && r.To != "" }

// Graph is an in-memory document graph.
//
// The zero value is not usable; call [New].
type Graph struct {
	mu          sync.RWMutex
	docs        map[doc.ID]*Document
	index       *btree.BTreeG[doc.ID]
	refs        map[doc.ID][]Reference
	incoming    map[doc.ID][]doc.ID
	occurrences map[string]doc.ID
	closed      map[doc.ID]bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		docs:        make(map[doc.ID]*Document),
		index:       btree.NewBTreeG(func(a, b doc.ID) bool { return a < b }),
		refs:        make(map[doc.ID][]Reference),
		incoming:    make(map[doc.ID][]doc.ID),
		occurrences: make(map[string]doc.ID),
		closed:      make(map[doc.ID]bool),
	}
}

// AddDocument adds a document. The ID must be valid and unused and the kind
// must be one of the declared kinds.
func (g *Graph) AddDocument(d Document) error {
	if err := errs.ValidateDocumentID(string(d.ID)); err != nil {
		return err
	}
	if !d.Kind.Valid() {
		return errs.New(errs.ErrCodeInvalidKind, "document %q has corrupted kind %d", d.ID, uint8(d.Kind))
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.docs[d.ID]; exists {
		return errs.New(errs.ErrCodeInvalidInput, "duplicate document ID %q", d.ID)
	}
	d.Properties = cloneMap(d.Properties)
	attrs := make(map[string]map[string]any, len(d.Attributes))
	for set, m := range d.Attributes {
		attrs[set] = cloneMap(m)
	}
	d.Attributes = attrs
	g.docs[d.ID] = &d
	g.index.Set(d.ID)
	return nil
}

// AddReference appends a forward reference record. From must exist. To must
// exist unless the reference is flagged Missing; a missing reference keeps
// no target.
func (g *Graph) AddReference(r Reference) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.docs[r.From]; !ok {
		return errs.New(errs.ErrCodeNotFound, "reference from unknown document %q", r.From)
	}
	if r.Missing {
		r.To = ""
	} else if _, ok := g.docs[r.To]; !ok {
		return errs.New(errs.ErrCodeNotFound, "reference %q -> %q: unknown target", r.From, r.To)
	}
	g.refs[r.From] = append(g.refs[r.From], r)
	if r.active() && !slices.Contains(g.incoming[r.To], r.From) {
		g.incoming[r.To] = append(g.incoming[r.To], r.From)
	}
	return nil
}

// AddOccurrence registers a selection entry name owned by document id.
func (g *Graph) AddOccurrence(name string, id doc.ID) error {
	if name == "" {
		return errs.New(errs.ErrCodeInvalidInput, "occurrence name must not be empty")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.docs[id]; !ok {
		return errs.New(errs.ErrCodeNotFound, "occurrence %q of unknown document %q", name, id)
	}
	g.occurrences[name] = id
	return nil
}

// CloseDocument marks a document closed. Every query about it fails with
// UNAVAILABLE_SOURCE until it is reopened. References to it from other
// documents still resolve.
func (g *Graph) CloseDocument(id doc.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed[id] = true
}

// OpenDocument reverses [Graph.CloseDocument].
func (g *Graph) OpenDocument(id doc.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.closed, id)
}

// Len returns the number of documents.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.docs)
}

// IDs returns every document ID in ascending order.
func (g *Graph) IDs() []doc.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.index.Items()
}

// Document returns a copy of the document with the given ID.
func (g *Graph) Document(id doc.ID) (Document, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	d, ok := g.docs[id]
	if !ok {
		return Document{}, false
	}
	out := *d
	out.Properties = cloneMap(d.Properties)
	out.Attributes = make(map[string]map[string]any, len(d.Attributes))
	for set, m := range d.Attributes {
		out.Attributes[set] = cloneMap(m)
	}
	return out, true
}

// References returns a copy of the reference records of id in order.
func (g *Graph) References(id doc.ID) []Reference {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.refs[id])
}

// Occurrences returns the occurrence names owned by id, sorted.
func (g *Graph) Occurrences(id doc.ID) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var names []string
	for name, owner := range g.occurrences {
		if owner == id {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Roots returns the documents no active reference points at, in ID order.
func (g *Graph) Roots() []doc.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var roots []doc.ID
	g.index.Scan(func(id doc.ID) bool {
		if len(g.incoming[id]) == 0 {
			roots = append(roots, id)
		}
		return true
	})
	return roots
}

// EdgeCount returns the number of reference records, active or not.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, rs := range g.refs {
		n += len(rs)
	}
	return n
}

// KindCounts returns how many documents there are of each kind.
func (g *Graph) KindCounts() map[doc.Kind]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	counts := make(map[doc.Kind]int)
	for _, d := range g.docs {
		counts[d.Kind]++
	}
	return counts
}

// SortedKinds returns the keys of counts in declaration order.
func SortedKinds(counts map[doc.Kind]int) []doc.Kind {
	return slices.SortedFunc(maps.Keys(counts), cmp.Compare[doc.Kind])
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}
