package doc

import (
	"fmt"
	"strings"

	errs "github.com/matzehuels/docwalk/pkg/errors"
)

// Kind tags a document with its category. The set is closed: every value a
// data source reports must be one of the constants below. Any other value is
// treated as a corrupted tag (see [Kind.Valid]) and never matches a narrowing
// filter.
//
// The kind of a [Document] is read once when the data source reports it and
// never changes afterwards.
type Kind uint8

const (
	// KindUnknown is a document the host could not classify.
	KindUnknown Kind = iota
	// KindAssembly is an assembly document; its direct references are its components.
	KindAssembly
	// KindPart is a part document.
	KindPart
	// KindDrawing is a 2D drawing document referencing the models it documents.
	KindDrawing
	// KindPresentation is an exploded-view presentation of an assembly.
	KindPresentation
	// KindForeignModel is a model imported from another CAD system.
	KindForeignModel
	// KindGeometryExchange is a neutral geometry-exchange file (SAT, STEP and similar).
	KindGeometryExchange

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:          "unknown",
	KindAssembly:         "assembly",
	KindPart:             "part",
	KindDrawing:          "drawing",
	KindPresentation:     "presentation",
	KindForeignModel:     "foreign-model",
	KindGeometryExchange: "geometry-exchange",
}

// kindAliases maps alternate spellings (including common file extensions) to kinds.
var kindAliases = map[string]Kind{
	"iam":      KindAssembly,
	"ipt":      KindPart,
	"idw":      KindDrawing,
	"dwg":      KindDrawing,
	"ipn":      KindPresentation,
	"foreign":  KindForeignModel,
	"sat":      KindGeometryExchange,
	"step":     KindGeometryExchange,
	"stp":      KindGeometryExchange,
	"exchange": KindGeometryExchange,
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool { return k < kindCount }

// IsNative reports whether k is one of the four kinds that have a concrete
// document variant (assembly, part, drawing, presentation).
func (k Kind) IsNative() bool { return Native.Has(k) }

// String returns the canonical lower-case name of the kind.
// Corrupted tags render as "kind(N)".
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, errs.New(errs.ErrCodeInvalidKind, "cannot marshal corrupted kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using [ParseKind].
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a kind name. Matching is case-insensitive and accepts the
// canonical names, underscores in place of dashes, and the usual file
// extensions ("iam", "ipt", "idw", "ipn", "sat").
func ParseKind(name string) (Kind, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "_", "-")
	for k, n := range kindNames {
		if n == s {
			return Kind(k), nil
		}
	}
	if k, ok := kindAliases[strings.TrimPrefix(s, ".")]; ok {
		return k, nil
	}
	return KindUnknown, errs.New(errs.ErrCodeInvalidKind, "unknown document kind %q", name)
}

// KindSet is a set of kinds stored as a bitmask, so membership is a single
// test regardless of how many kinds are in the set.
type KindSet uint32

const (
	// Native holds the kinds that have a concrete document variant.
	Native KindSet = 1<<KindAssembly | 1<<KindPart | 1<<KindDrawing | 1<<KindPresentation

	// NonNative is the default set removed by [ExcludeNonNative]. Hosts that
	// know of further non-native categories pass their own set to [ExcludeKinds].
	NonNative KindSet = 1<<KindForeignModel | 1<<KindGeometryExchange | 1<<KindUnknown
)

// NewKindSet returns a set holding the given kinds. Corrupted kinds are ignored.
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

// ParseKindSet parses a list of kind names into a set.
func ParseKindSet(names []string) (KindSet, error) {
	var s KindSet
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return 0, err
		}
		s = s.With(k)
	}
	return s, nil
}

// Has reports whether k is in the set. Corrupted kinds are never members.
func (s KindSet) Has(k Kind) bool {
	return k.Valid() && s&(1<<k) != 0
}

// With returns a copy of the set with k added.
func (s KindSet) With(k Kind) KindSet {
	if !k.Valid() {
		return s
	}
	return s | 1<<k
}

// Without returns a copy of the set with k removed.
func (s KindSet) Without(k Kind) KindSet {
	if !k.Valid() {
		return s
	}
	return s &^ (1 << k)
}

// Kinds returns the members in declaration order.
func (s KindSet) Kinds() []Kind {
	var out []Kind
	for k := Kind(0); k < kindCount; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// String renders the set as a comma-separated list of kind names.
func (s KindSet) String() string {
	kinds := s.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}
