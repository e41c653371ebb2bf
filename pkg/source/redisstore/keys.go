package redisstore

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "docwalk"

// Keys builds the Redis key layout under one prefix:
//
//	{p}:docs                  sorted set of document IDs (all scores 0, lexicographic)
//	{p}:doc:{id}              hash: kind, path, modifiable, reserved, closed
//	{p}:props:{id}            hash: property name -> JSON value
//	{p}:attrs:{id}:{set}      hash: attribute name -> JSON value
//	{p}:adj:{rel}:{id}        list of "kind:id" entries, one per adjacency view
//	{p}:desc:{id}             list of JSON descriptor records
//	{p}:occ                   hash: occurrence name -> document ID
type Keys struct {
	Prefix string
}

// Docs is the key of the document index.
func (k Keys) Docs() string { return k.Prefix + ":docs" }

// Doc is the key of the document hash.
func (k Keys) Doc(id doc.ID) string { return k.Prefix + ":doc:" + string(id) }

// Props is the key of the property hash.
func (k Keys) Props(id doc.ID) string { return k.Prefix + ":props:" + string(id) }

// Attrs is the key of one attribute set hash.
func (k Keys) Attrs(id doc.ID, set string) string {
	return k.Prefix + ":attrs:" + string(id) + ":" + set
}

// Adjacent is the key of one adjacency list.
func (k Keys) Adjacent(id doc.ID, rel doc.Relation) string {
	return k.Prefix + ":adj:" + rel.String() + ":" + string(id)
}

// Descriptors is the key of the descriptor list.
func (k Keys) Descriptors(id doc.ID) string { return k.Prefix + ":desc:" + string(id) }

// Occurrences is the key of the occurrence hash.
func (k Keys) Occurrences() string { return k.Prefix + ":occ" }

// Pattern matches every key under the prefix.
func (k Keys) Pattern() string { return k.Prefix + ":*" }

// =============================================================================
// Value Encoding
// =============================================================================

// Document hash fields.
const (
	fieldKind       = "kind"
	fieldPath       = "path"
	fieldModifiable = "modifiable"
	fieldReserved   = "reserved"
	fieldClosed     = "closed"
)

// EncodeRef renders a reference as "kind:id". Kind names never contain a
// colon, so IDs may.
func EncodeRef(r doc.Ref) string { return r.Kind.String() + ":" + string(r.ID) }

// DecodeRef parses an entry written by [EncodeRef].
func DecodeRef(s string) (doc.Ref, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return doc.Ref{}, errs.New(errs.ErrCodeInternal, "malformed reference entry %q", s)
	}
	k, err := doc.ParseKind(kind)
	if err != nil {
		return doc.Ref{}, err
	}
	return doc.Ref{ID: doc.ID(id), Kind: k}, nil
}

// descriptorRecord is the JSON form of a descriptor list entry.
type descriptorRecord struct {
	Target     string `json:"target,omitempty"`
	FullName   string `json:"full_name,omitempty"`
	Missing    bool   `json:"missing,omitempty"`
	Suppressed bool   `json:"suppressed,omitempty"`
}

// EncodeDescriptor renders a descriptor record as JSON.
func EncodeDescriptor(rec doc.DescriptorRecord) (string, error) {
	out := descriptorRecord{FullName: rec.FullName, Missing: rec.Missing, Suppressed: rec.Suppressed}
	if rec.Target != nil {
		out.Target = EncodeRef(*rec.Target)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeDescriptor parses an entry written by [EncodeDescriptor].
func DecodeDescriptor(s string) (doc.DescriptorRecord, error) {
	var in descriptorRecord
	if err := json.Unmarshal([]byte(s), &in); err != nil {
		return doc.DescriptorRecord{}, errs.Wrap(errs.ErrCodeInternal, err, "malformed descriptor entry")
	}
	rec := doc.DescriptorRecord{FullName: in.FullName, Missing: in.Missing, Suppressed: in.Suppressed}
	if in.Target != "" {
		ref, err := DecodeRef(in.Target)
		if err != nil {
			return doc.DescriptorRecord{}, err
		}
		rec.Target = &ref
	}
	return rec, nil
}

// EncodeValue renders a property or attribute value as JSON.
func EncodeValue(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidInput, err, "value %v cannot be stored", v)
	}
	return string(data), nil
}

// DecodeValue parses a value written by [EncodeValue]. Numbers come back as float64.
func DecodeValue(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "malformed stored value")
	}
	return v, nil
}

// decodeDocHash turns a document hash into its kind and flags.
func decodeDocHash(id doc.ID, h map[string]string) (doc.Ref, doc.Flags, bool, error) {
	k, err := doc.ParseKind(h[fieldKind])
	if err != nil {
		return doc.Ref{}, doc.Flags{}, false, err
	}
	flags := doc.Flags{
		Modifiable:       parseBool(h[fieldModifiable]),
		ReservedForWrite: parseBool(h[fieldReserved]),
	}
	return doc.Ref{ID: id, Kind: k}, flags, parseBool(h[fieldClosed]), nil
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
