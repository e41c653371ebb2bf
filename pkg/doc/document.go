package doc

import (
	"context"
	"fmt"

	errs "github.com/matzehuels/docwalk/pkg/errors"
)

// Node is implemented by every document view: the base [Document] and the
// concrete [Assembly], [Part], [Drawing] and [Presentation] variants.
// The traversal operators accept any Node.
type Node interface {
	// Base returns the untyped view of the node.
	Base() Document

	// directRelation is the relation DirectReferences follows for this variant.
	directRelation() Relation
}

// ConcreteNode is implemented by the four concrete variants only. Operations
// that are undefined for the base variant, such as [ReferencingDocuments],
// require a ConcreteNode, so calling them on a plain [Document] fails to
// compile instead of failing at run time.
type ConcreteNode interface {
	Node
	isConcrete()
}

// Document is the base view of one document in the graph. It is a small
// value (identity, kind and the source it came from) and is cheap to copy.
// Views are produced fresh by every traversal; compare them by [Document.ID].
//
// Capability, property and attribute accessors are pass-through queries to
// the data source. The traversal engine itself never calls the setters.
type Document struct {
	ref Ref
	src Source
}

// NewDocument wraps a reference reported by src into a document view.
func NewDocument(src Source, ref Ref) Document {
	return Document{ref: ref, src: src}
}

// ID returns the document identity.
func (d Document) ID() ID { return d.ref.ID }

// Kind returns the kind tag read when the view was created.
func (d Document) Kind() Kind { return d.ref.Kind }

// Ref returns the identity and kind as reported by the source.
func (d Document) Ref() Ref { return d.ref }

// Base returns d itself.
func (d Document) Base() Document { return d }

// directRelation for the base variant is the full closure. The untyped
// "referenced documents" accessor of the host model has always answered
// with every document reachable from d, and callers rely on that.
func (d Document) directRelation() Relation { return RelAllReferenced }

// String renders the document as "kind:id".
func (d Document) String() string { return fmt.Sprintf("%s:%s", d.ref.Kind, d.ref.ID) }

// Flags returns both capability flags in one query.
func (d Document) Flags(ctx context.Context) (Flags, error) {
	if d.src == nil {
		return Flags{}, detached(d)
	}
	return d.src.Flags(ctx, d.ref.ID)
}

// IsModifiable reports whether the document can be edited.
func (d Document) IsModifiable(ctx context.Context) (bool, error) {
	f, err := d.Flags(ctx)
	return f.Modifiable, err
}

// IsReservedForWrite reports whether the current user holds the write reservation.
func (d Document) IsReservedForWrite(ctx context.Context) (bool, error) {
	f, err := d.Flags(ctx)
	return f.ReservedForWrite, err
}

// Property reads a document property.
func (d Document) Property(ctx context.Context, name string) (any, bool, error) {
	if d.src == nil {
		return nil, false, detached(d)
	}
	return d.src.Property(ctx, d.ref.ID, name)
}

// SetProperty writes a document property.
func (d Document) SetProperty(ctx context.Context, name string, value any) error {
	if d.src == nil {
		return detached(d)
	}
	return d.src.SetProperty(ctx, d.ref.ID, name, value)
}

// Attribute reads an attribute from the named attribute set.
func (d Document) Attribute(ctx context.Context, set, name string) (any, bool, error) {
	if d.src == nil {
		return nil, false, detached(d)
	}
	return d.src.Attribute(ctx, d.ref.ID, set, name)
}

// SetAttribute writes an attribute into the named attribute set.
func (d Document) SetAttribute(ctx context.Context, set, name string, value any) error {
	if d.src == nil {
		return detached(d)
	}
	return d.src.SetAttribute(ctx, d.ref.ID, set, name, value)
}

// detached is returned for zero-value views that were never produced by a source.
func detached(d Document) error {
	return errs.Unavailable(nil, "document %q is not attached to a source", d.ref.ID)
}

// concrete carries what the four native variants share.
type concrete struct {
	Document
}

func (concrete) directRelation() Relation { return RelReferenced }

func (concrete) isConcrete() {}

// Assembly is a document of kind [KindAssembly].
type Assembly struct{ concrete }

// Part is a document of kind [KindPart].
type Part struct{ concrete }

// Drawing is a document of kind [KindDrawing].
type Drawing struct{ concrete }

// Presentation is a document of kind [KindPresentation].
type Presentation struct{ concrete }

// AsAssembly narrows d after checking its kind tag.
func AsAssembly(d Document) (Assembly, bool) {
	if d.ref.Kind != KindAssembly {
		return Assembly{}, false
	}
	return Assembly{concrete{d}}, true
}

// AsPart narrows d after checking its kind tag.
func AsPart(d Document) (Part, bool) {
	if d.ref.Kind != KindPart {
		return Part{}, false
	}
	return Part{concrete{d}}, true
}

// AsDrawing narrows d after checking its kind tag.
func AsDrawing(d Document) (Drawing, bool) {
	if d.ref.Kind != KindDrawing {
		return Drawing{}, false
	}
	return Drawing{concrete{d}}, true
}

// AsPresentation narrows d after checking its kind tag.
func AsPresentation(d Document) (Presentation, bool) {
	if d.ref.Kind != KindPresentation {
		return Presentation{}, false
	}
	return Presentation{concrete{d}}, true
}

// AsConcrete narrows d to whichever concrete variant its kind names.
// It reports false for the non-native kinds and for corrupted tags.
func AsConcrete(d Document) (ConcreteNode, bool) {
	switch d.ref.Kind {
	case KindAssembly:
		return Assembly{concrete{d}}, true
	case KindPart:
		return Part{concrete{d}}, true
	case KindDrawing:
		return Drawing{concrete{d}}, true
	case KindPresentation:
		return Presentation{concrete{d}}, true
	default:
		return nil, false
	}
}
