package doc

// Descriptor is an unresolved forward edge: the record a document keeps for
// each file it points at, before anyone follows the pointer. Inspect
// [Descriptor.Missing] and [Descriptor.Suppressed] first, then turn the
// survivors into documents with [FromDescriptors].
type Descriptor struct {
	target     *Document
	fullName   string
	missing    bool
	suppressed bool
}

// NewDescriptor wraps a raw record reported by src. A record flagged missing
// never resolves, even if the source filled in a target.
func NewDescriptor(src Source, rec DescriptorRecord) *Descriptor {
	d := &Descriptor{
		fullName:   rec.FullName,
		missing:    rec.Missing,
		suppressed: rec.Suppressed,
	}
	if rec.Target != nil && !rec.Missing {
		doc := NewDocument(src, *rec.Target)
		d.target = &doc
	}
	return d
}

// Resolved returns the referenced document, or false when the edge could not
// be resolved.
func (d *Descriptor) Resolved() (Document, bool) {
	if d == nil || d.target == nil {
		return Document{}, false
	}
	return *d.target, true
}

// Missing reports whether the referenced file could not be found.
func (d *Descriptor) Missing() bool { return d != nil && d.missing }

// Suppressed reports whether the reference is suppressed in its parent.
func (d *Descriptor) Suppressed() bool { return d != nil && d.suppressed }

// FullName is the stored path of the referenced file, available even when
// the reference is missing.
func (d *Descriptor) FullName() string {
	if d == nil {
		return ""
	}
	return d.fullName
}

// NotMissing is a filter predicate keeping descriptors whose file was found.
func NotMissing(d *Descriptor) bool { return d != nil && !d.missing }

// NotSuppressed is a filter predicate keeping active references.
func NotSuppressed(d *Descriptor) bool { return d != nil && !d.suppressed }

// Resolvable is a filter predicate keeping descriptors that resolve to a document.
func Resolvable(d *Descriptor) bool {
	_, ok := d.Resolved()
	return ok
}
