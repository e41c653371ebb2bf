package doc

import (
	"context"
	"iter"
	"slices"
)

// ID is the stable identity of a document. Two views with the same ID refer
// to the same underlying document and are equal for deduplication.
type ID string

// Ref is what a data source reports for a document: its identity and its kind.
type Ref struct {
	ID   ID
	Kind Kind
}

// Relation selects one of the adjacency views a data source exposes. The
// direction and depth of a traversal are data, so a single [Source.Adjacent]
// call serves every kind; what "referenced" means for a given kind is decided
// by the source.
type Relation uint8

const (
	// RelReferenced is the one-hop forward view (components of an assembly,
	// models shown on a drawing, derived bases of a part).
	RelReferenced Relation = iota
	// RelReferencing is the one-hop backward view: documents pointing at this one.
	RelReferencing
	// RelAllReferenced is the full forward closure.
	RelAllReferenced
)

// String returns a short name for the relation.
func (r Relation) String() string {
	switch r {
	case RelReferenced:
		return "referenced"
	case RelReferencing:
		return "referencing"
	case RelAllReferenced:
		return "all-referenced"
	default:
		return "relation(?)"
	}
}

// Flags are the capability flags every document carries regardless of kind.
type Flags struct {
	Modifiable       bool // the document can be edited in the current session
	ReservedForWrite bool // the current user holds the write reservation
}

// DescriptorRecord is a raw forward edge as reported by a data source.
// Target is nil when the source could not resolve the edge.
type DescriptorRecord struct {
	Target     *Ref
	FullName   string
	Missing    bool
	Suppressed bool
}

// Source is the boundary to the host application that owns the document
// graph. The traversal core only ever talks to a Source; it keeps no state of
// its own between calls.
//
// Implementations report failures to answer a query for a well-formed
// document (closed document, lost connection) as errors carrying the
// UNAVAILABLE_SOURCE code. The core passes those errors on unchanged.
//
// Adjacent and Descriptors return lazy sequences; implementations should do
// their I/O when the sequence is ranged over, not when it is created.
type Source interface {
	// Adjacent yields the documents related to id by rel, in source order.
	Adjacent(ctx context.Context, id ID, rel Relation) iter.Seq2[Ref, error]

	// Descriptors yields the raw forward edge records of id, in source order.
	Descriptors(ctx context.Context, id ID) iter.Seq2[DescriptorRecord, error]

	// Flags returns the capability flags of id.
	Flags(ctx context.Context, id ID) (Flags, error)

	// Property reads a document property. ok is false when it is not set.
	Property(ctx context.Context, id ID, name string) (value any, ok bool, err error)

	// SetProperty writes a document property.
	SetProperty(ctx context.Context, id ID, name string, value any) error

	// Attribute reads an attribute from a named attribute set.
	Attribute(ctx context.Context, id ID, set, name string) (value any, ok bool, err error)

	// SetAttribute writes an attribute into a named attribute set, creating the set if needed.
	SetAttribute(ctx context.Context, id ID, set, name string, value any) error
}

// Catalog gives host layers a way to find documents by identity. The
// traversal operators never use it; it exists so a CLI or API can pick the
// starting document of a traversal.
type Catalog interface {
	// Lookup reports the document with the given ID, or a NOT_FOUND error.
	Lookup(ctx context.Context, id ID) (Ref, error)

	// Documents yields every document the host knows, in a stable order.
	Documents(ctx context.Context) iter.Seq2[Ref, error]
}

// Selection is a host collection of opaque entries (selected occurrences,
// browser nodes, sketch entities). Len must be cheap; All yields the entries
// in selection order.
type Selection[E any] interface {
	Len() int
	All() iter.Seq[E]
}

// Resolver maps one selection entry to the document that owns it. It reports
// false for entries that do not belong to any document.
type Resolver[E any] func(ctx context.Context, entry E) (Ref, bool)

// Entries adapts a slice to [Selection].
type Entries[E any] []E

// Len returns the number of entries.
func (e Entries[E]) Len() int { return len(e) }

// All yields the entries in order.
func (e Entries[E]) All() iter.Seq[E] { return slices.Values(e) }
