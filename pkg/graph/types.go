package graph

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/source/memory"
)

// idNamespace seeds the IDs derived from document paths.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/matzehuels/docwalk"))

// =============================================================================
// Manifest - Document Graph Serialization
// =============================================================================

// Manifest is the serialization format for a document graph.
type Manifest struct {
	Name      string     `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty"`
	Documents []Document `json:"documents" toml:"documents" yaml:"documents"`
}

// Document is one document entry of a manifest.
type Document struct {
	ID          string                    `json:"id,omitempty" toml:"id,omitempty" yaml:"id,omitempty"`
	Kind        string                    `json:"kind,omitempty" toml:"kind,omitempty" yaml:"kind,omitempty"`
	Path        string                    `json:"path,omitempty" toml:"path,omitempty" yaml:"path,omitempty"`
	Modifiable  bool                      `json:"modifiable,omitempty" toml:"modifiable,omitempty" yaml:"modifiable,omitempty"`
	Reserved    bool                      `json:"reserved,omitempty" toml:"reserved,omitempty" yaml:"reserved,omitempty"` // reserved for write by the current user
	Closed      bool                      `json:"closed,omitempty" toml:"closed,omitempty" yaml:"closed,omitempty"`
	Properties  map[string]any            `json:"properties,omitempty" toml:"properties,omitempty" yaml:"properties,omitempty"`
	Attributes  map[string]map[string]any `json:"attributes,omitempty" toml:"attributes,omitempty" yaml:"attributes,omitempty"`
	Occurrences []string                  `json:"occurrences,omitempty" toml:"occurrences,omitempty" yaml:"occurrences,omitempty"`
	References  []Reference               `json:"references,omitempty" toml:"references,omitempty" yaml:"references,omitempty"`
}

// Reference is a forward reference of a manifest document.
type Reference struct {
	Target     string `json:"target" toml:"target" yaml:"target"`
	FullName   string `json:"full_name,omitempty" toml:"full_name,omitempty" yaml:"full_name,omitempty"`
	Missing    bool   `json:"missing,omitempty" toml:"missing,omitempty" yaml:"missing,omitempty"`
	Suppressed bool   `json:"suppressed,omitempty" toml:"suppressed,omitempty" yaml:"suppressed,omitempty"`
}

// DocumentID returns the explicit ID, or the ID derived from the path.
func (d *Document) DocumentID() string {
	if d.ID != "" {
		return d.ID
	}
	if d.Path == "" {
		return ""
	}
	return uuid.NewSHA1(idNamespace, []byte(d.Path)).String()
}

// DocumentKind parses the kind, inferring it from the path when empty.
func (d *Document) DocumentKind() (doc.Kind, error) {
	if d.Kind != "" {
		return doc.ParseKind(d.Kind)
	}
	if ext := strings.ToLower(filepath.Ext(d.Path)); ext != "" {
		if k, err := doc.ParseKind(ext); err == nil {
			return k, nil
		}
	}
	return doc.KindUnknown, nil
}

// =============================================================================
// Manifest ↔ memory.Graph Conversion
// =============================================================================

// ToMemory builds an in-memory graph from a manifest.
// Documents are added first, then references, so forward references to
// documents later in the file resolve.
func ToMemory(m Manifest) (*memory.Graph, error) {
	g := memory.New()
	byPath := make(map[string]doc.ID)
	ids := make([]doc.ID, len(m.Documents))

	for i := range m.Documents {
		md := &m.Documents[i]
		id := md.DocumentID()
		if id == "" {
			return nil, errs.New(errs.ErrCodeInvalidManifest, "document %d has neither id nor path", i+1)
		}
		if md.Path != "" {
			if err := errs.ValidatePath(md.Path); err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "document %q", id)
			}
		}
		kind, err := md.DocumentKind()
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "document %q", id)
		}
		err = g.AddDocument(memory.Document{
			ID:         doc.ID(id),
			Kind:       kind,
			Path:       md.Path,
			Flags:      doc.Flags{Modifiable: md.Modifiable, ReservedForWrite: md.Reserved},
			Properties: md.Properties,
			Attributes: md.Attributes,
		})
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "add document %q", id)
		}
		ids[i] = doc.ID(id)
		if md.Path != "" {
			if _, dup := byPath[md.Path]; !dup {
				byPath[md.Path] = doc.ID(id)
			}
		}
	}

	for i := range m.Documents {
		md := &m.Documents[i]
		from := ids[i]
		for _, r := range md.References {
			if err := g.AddReference(resolveReference(g, byPath, from, r)); err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "reference %q -> %q", from, r.Target)
			}
		}
		for _, name := range md.Occurrences {
			if err := g.AddOccurrence(name, from); err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "occurrence %q", name)
			}
		}
		if md.Closed {
			g.CloseDocument(from)
		}
	}
	return g, nil
}

// resolveReference matches a target against IDs first and paths second.
// Unmatched targets become missing references.
func resolveReference(g *memory.Graph, byPath map[string]doc.ID, from doc.ID, r Reference) memory.Reference {
	out := memory.Reference{
		From:       from,
		FullName:   r.FullName,
		Missing:    r.Missing,
		Suppressed: r.Suppressed,
	}
	if _, ok := g.Document(doc.ID(r.Target)); ok {
		out.To = doc.ID(r.Target)
	} else if id, ok := byPath[r.Target]; ok {
		out.To = id
	} else {
		out.Missing = true
	}
	if out.FullName == "" {
		out.FullName = r.Target
		if d, ok := g.Document(out.To); ok && d.Path != "" {
			out.FullName = d.Path
		}
	}
	return out
}

// FromMemory exports a graph as a manifest. Documents are sorted by ID.
// Closed state is not exported.
func FromMemory(g *memory.Graph) Manifest {
	var m Manifest
	for _, id := range g.IDs() {
		d, _ := g.Document(id)
		md := Document{
			ID:          string(d.ID),
			Kind:        d.Kind.String(),
			Path:        d.Path,
			Modifiable:  d.Flags.Modifiable,
			Reserved:    d.Flags.ReservedForWrite,
			Properties:  nilIfEmpty(d.Properties),
			Occurrences: g.Occurrences(id),
		}
		if len(d.Attributes) > 0 {
			md.Attributes = d.Attributes
		}
		for _, r := range g.References(id) {
			ref := Reference{Target: string(r.To), FullName: r.FullName, Missing: r.Missing, Suppressed: r.Suppressed}
			if r.Missing {
				ref.Target = r.FullName
			}
			md.References = append(md.References, ref)
		}
		m.Documents = append(m.Documents, md)
	}
	return m
}

func nilIfEmpty(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}
