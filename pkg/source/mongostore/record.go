package mongostore

import (
	"strings"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/source/memory"
)

// Record is the stored form of one document: the document itself plus every
// adjacency view, precomputed.
type Record struct {
	ID          string                    `bson:"_id"`
	Kind        string                    `bson:"kind"`
	Path        string                    `bson:"path,omitempty"`
	Modifiable  bool                      `bson:"modifiable"`
	Reserved    bool                      `bson:"reserved"`
	Closed      bool                      `bson:"closed"`
	Properties  map[string]any            `bson:"properties,omitempty"`
	Attributes  map[string]map[string]any `bson:"attributes,omitempty"`
	Occurrences []string                  `bson:"occurrences,omitempty"`
	Referenced  []RefRecord               `bson:"referenced,omitempty"`
	Referencing []RefRecord               `bson:"referencing,omitempty"`
	Closure     []RefRecord               `bson:"closure,omitempty"`
	Descriptors []DescriptorRecord        `bson:"descriptors,omitempty"`
}

// RefRecord is a stored document reference.
type RefRecord struct {
	ID   string `bson:"id"`
	Kind string `bson:"kind"`
}

// DescriptorRecord is a stored forward edge.
type DescriptorRecord struct {
	Target     *RefRecord `bson:"target,omitempty"`
	FullName   string     `bson:"full_name,omitempty"`
	Missing    bool       `bson:"missing,omitempty"`
	Suppressed bool       `bson:"suppressed,omitempty"`
}

// Field names of the adjacency arrays, keyed by relation.
var relationFields = map[doc.Relation]string{
	doc.RelReferenced:    "referenced",
	doc.RelReferencing:   "referencing",
	doc.RelAllReferenced: "closure",
}

// NewRecord converts a precomputed graph entry.
func NewRecord(e memory.Entry) (Record, error) {
	d := e.Document
	for name := range d.Properties {
		if err := validateField(name); err != nil {
			return Record{}, err
		}
	}
	for set, attrs := range d.Attributes {
		if err := validateField(set); err != nil {
			return Record{}, err
		}
		for name := range attrs {
			if err := validateField(name); err != nil {
				return Record{}, err
			}
		}
	}

	r := Record{
		ID:          string(d.ID),
		Kind:        d.Kind.String(),
		Path:        d.Path,
		Modifiable:  d.Flags.Modifiable,
		Reserved:    d.Flags.ReservedForWrite,
		Closed:      e.Closed,
		Occurrences: e.Occurrences,
		Referenced:  refRecords(e.Referenced),
		Referencing: refRecords(e.Referencing),
		Closure:     refRecords(e.Closure),
	}
	if len(d.Properties) > 0 {
		r.Properties = d.Properties
	}
	if len(d.Attributes) > 0 {
		r.Attributes = d.Attributes
	}
	for _, rec := range e.Descriptors {
		out := DescriptorRecord{FullName: rec.FullName, Missing: rec.Missing, Suppressed: rec.Suppressed}
		if rec.Target != nil {
			t := newRefRecord(*rec.Target)
			out.Target = &t
		}
		r.Descriptors = append(r.Descriptors, out)
	}
	return r, nil
}

// Ref returns the reference the record describes.
func (r Record) Ref() (doc.Ref, error) {
	return RefRecord{ID: r.ID, Kind: r.Kind}.Ref()
}

// Flags returns the capability flags of the record.
func (r Record) Flags() doc.Flags {
	return doc.Flags{Modifiable: r.Modifiable, ReservedForWrite: r.Reserved}
}

// Ref parses the stored kind.
func (r RefRecord) Ref() (doc.Ref, error) {
	k, err := doc.ParseKind(r.Kind)
	if err != nil {
		return doc.Ref{}, err
	}
	return doc.Ref{ID: doc.ID(r.ID), Kind: k}, nil
}

// Descriptor converts a stored edge back.
func (d DescriptorRecord) Descriptor() (doc.DescriptorRecord, error) {
	out := doc.DescriptorRecord{FullName: d.FullName, Missing: d.Missing, Suppressed: d.Suppressed}
	if d.Target != nil {
		ref, err := d.Target.Ref()
		if err != nil {
			return doc.DescriptorRecord{}, err
		}
		out.Target = &ref
	}
	return out, nil
}

func newRefRecord(r doc.Ref) RefRecord {
	return RefRecord{ID: string(r.ID), Kind: r.Kind.String()}
}

func refRecords(refs []doc.Ref) []RefRecord {
	if len(refs) == 0 {
		return nil
	}
	out := make([]RefRecord, len(refs))
	for i, r := range refs {
		out[i] = newRefRecord(r)
	}
	return out
}

// validateField rejects names MongoDB would read as a path or an operator.
func validateField(name string) error {
	switch {
	case name == "":
		return errs.New(errs.ErrCodeInvalidInput, "empty field name")
	case strings.Contains(name, "."):
		return errs.New(errs.ErrCodeInvalidInput, "field name %q contains '.'", name)
	case strings.HasPrefix(name, "$"):
		return errs.New(errs.ErrCodeInvalidInput, "field name %q starts with '$'", name)
	}
	return nil
}
