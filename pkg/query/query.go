// Package query runs declarative document queries over a backend.
//
// A query names a starting point (one root document or a selection of
// occurrence names), a relation to follow and a chain of filters. The
// [Runner] composes the traversal operators of package doc and seq from
// those options, so the same query gives the same answer from the CLI, the
// HTTP API and tests.
//
// # Usage
//
//	runner := query.NewRunner(backend, logger)
//	res, err := runner.Run(ctx, query.Options{
//	    Root:       "gearbox",
//	    Transitive: true,
//	    Only:       "part",
//	    Modifiable: true,
//	})
//
// Stream returns the same results lazily:
//
//	items, err := runner.Stream(ctx, opts)
//	for item, err := range items { ... }
//
// # Presets
//
// [Presets] holds named option sets for common questions, such as every
// editable part below an assembly. Set Options.Preset to apply one; explicit
// options are kept and the preset adds to them. An explicit relation or kind
// that differs from the preset's is rejected.
package query

import (
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
)

// Relations a query can follow.
const (
	// RelationReferences follows forward references (the default with a root).
	RelationReferences = "references"
	// RelationReferencing follows backward references one hop.
	RelationReferencing = "referencing"
	// RelationDescriptors lists the raw reference records.
	RelationDescriptors = "descriptors"
	// RelationSelf yields the starting documents (the default with a selection).
	RelationSelf = "self"
)

// ValidRelations is the set of supported relations.
var ValidRelations = map[string]bool{
	RelationReferences:  true,
	RelationReferencing: true,
	RelationDescriptors: true,
	RelationSelf:        true,
}

// Options describes one query. It supports JSON for API requests.
type Options struct {
	// Start: exactly one of Root and Selection.
	Root      string   `json:"root,omitempty"`
	Selection []string `json:"selection,omitempty"`

	// Relation and its depth.
	Relation   string `json:"relation,omitempty"`
	Transitive bool   `json:"transitive,omitempty"`

	// Kind filters.
	Only       string   `json:"only,omitempty"`
	Exclude    []string `json:"exclude,omitempty"`
	NativeOnly bool     `json:"native_only,omitempty"`

	// NonNative lists the kinds NativeOnly removes. Empty means
	// unknown, foreign-model and geometry-exchange.
	NonNative []string `json:"non_native,omitempty"`

	// Flag filters.
	Modifiable bool `json:"modifiable,omitempty"`
	Reserved   bool `json:"reserved,omitempty"`

	// Descriptor filters.
	SkipMissing    bool `json:"skip_missing,omitempty"`
	SkipSuppressed bool `json:"skip_suppressed,omitempty"`
	MissingOnly    bool `json:"missing_only,omitempty"`

	Distinct bool   `json:"distinct,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Preset   string `json:"preset,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	only      doc.Kind
	hasOnly   bool
	exclude   doc.KindSet
	nonNative doc.KindSet
	validated bool
}

// ValidateAndSetDefaults checks the options, applies the preset and fills in
// defaults. Calling it again has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Preset != "" {
		apply, ok := Presets[o.Preset]
		if !ok {
			return errs.New(errs.ErrCodeInvalidInput, "unknown preset %q (must be one of: %s)",
				o.Preset, strings.Join(PresetNames(), ", "))
		}
		if err := apply(o); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "preset %q", o.Preset)
		}
	}

	o.Root = strings.TrimSpace(o.Root)
	hasRoot := o.Root != ""
	switch {
	case hasRoot && len(o.Selection) > 0:
		return errs.New(errs.ErrCodeInvalidInput, "root and selection are mutually exclusive")
	case !hasRoot && o.Selection == nil:
		return errs.New(errs.ErrCodeInvalidInput, "root or selection is required")
	}
	if hasRoot {
		if err := errs.ValidateDocumentID(o.Root); err != nil {
			return err
		}
	}

	if o.Relation == "" {
		o.Relation = RelationReferences
		if !hasRoot {
			o.Relation = RelationSelf
		}
	}
	if err := ValidateRelation(o.Relation); err != nil {
		return err
	}
	if o.Relation == RelationDescriptors && (o.Only != "" || len(o.Exclude) > 0 || o.NativeOnly || o.Modifiable || o.Reserved) {
		return errs.New(errs.ErrCodeInvalidInput, "kind and flag filters do not apply to descriptors")
	}
	if o.Relation != RelationDescriptors && (o.SkipMissing || o.SkipSuppressed || o.MissingOnly) {
		return errs.New(errs.ErrCodeInvalidInput, "skip_missing, skip_suppressed and missing_only only apply to descriptors")
	}
	if o.SkipMissing && o.MissingOnly {
		return errs.New(errs.ErrCodeInvalidInput, "skip_missing and missing_only are mutually exclusive")
	}
	if o.Transitive && o.Relation != RelationReferences {
		return errs.New(errs.ErrCodeInvalidInput, "transitive only applies to references")
	}
	if o.Limit < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "limit must not be negative")
	}

	if o.Only != "" {
		k, err := doc.ParseKind(o.Only)
		if err != nil {
			return err
		}
		o.only, o.hasOnly = k, true
	}
	exclude, err := doc.ParseKindSet(o.Exclude)
	if err != nil {
		return err
	}
	o.exclude = exclude
	o.nonNative = doc.NonNative
	if len(o.NonNative) > 0 {
		if o.nonNative, err = doc.ParseKindSet(o.NonNative); err != nil {
			return err
		}
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ValidateRelation checks that a relation name is supported.
func ValidateRelation(rel string) error {
	if !ValidRelations[rel] {
		return errs.New(errs.ErrCodeInvalidInput, "invalid relation: %q (must be one of: references, referencing, descriptors, self)", rel)
	}
	return nil
}

// Start describes the starting point for logs and hooks.
func (o *Options) Start() string {
	if o.Root != "" {
		return o.Root
	}
	return "selection(" + strings.Join(o.Selection, ",") + ")"
}

// =============================================================================
// Presets
// =============================================================================

// Presets are named option sets. Each adds its settings to the options it
// is applied to and fails when an explicit option contradicts it.
var Presets = map[string]func(*Options) error{
	// Every part below the root that the current user can edit right now.
	"editable-parts": func(o *Options) error {
		o.Transitive = true
		o.NativeOnly = true
		o.Modifiable = true
		o.Reserved = true
		return presetScope(o, RelationReferences, "part")
	},
	// The modifiable parts behind a selection, each once.
	"selected-modifiable-parts": func(o *Options) error {
		o.Modifiable = true
		o.Distinct = true
		return presetScope(o, RelationSelf, "part")
	},
	// Everything the root needs on disk, without foreign files.
	"native-closure": func(o *Options) error {
		o.Transitive = true
		o.NativeOnly = true
		o.Distinct = true
		return presetScope(o, RelationReferences, "")
	},
	// References that cannot be loaded.
	"broken-references": func(o *Options) error {
		o.SkipSuppressed = true
		o.MissingOnly = true
		return presetScope(o, RelationDescriptors, "")
	},
}

// presetScope sets the relation and kind a preset answers. An empty value
// leaves the option alone.
func presetScope(o *Options, relation, only string) error {
	if err := presetString("relation", &o.Relation, relation); err != nil {
		return err
	}
	return presetString("only", &o.Only, only)
}

func presetString(name string, field *string, value string) error {
	switch {
	case value == "":
	case *field == "":
		*field = value
	case !strings.EqualFold(strings.TrimSpace(*field), value):
		return errs.New(errs.ErrCodeInvalidInput, "%s %q conflicts with the preset's %q", name, *field, value)
	}
	return nil
}

// PresetNames returns the preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
