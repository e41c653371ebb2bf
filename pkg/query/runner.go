package query

import (
	"context"
	"iter"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/observability"
	"github.com/matzehuels/docwalk/pkg/seq"
)

// Backend is what a query needs from a document graph.
type Backend interface {
	doc.Source
	doc.Catalog
	Resolve(ctx context.Context, entry string) (doc.Ref, bool)
}

// Item is one query result: a document, or a reference record when the
// relation is descriptors.
type Item struct {
	ID         doc.ID `json:"id,omitempty"`
	Kind       string `json:"kind,omitempty"`
	FullName   string `json:"full_name,omitempty"`
	Missing    bool   `json:"missing,omitempty"`
	Suppressed bool   `json:"suppressed,omitempty"`
}

func documentItem(d doc.Document) Item {
	return Item{ID: d.ID(), Kind: d.Kind().String()}
}

func descriptorItem(d *doc.Descriptor) Item {
	it := Item{FullName: d.FullName(), Missing: d.Missing(), Suppressed: d.Suppressed()}
	if target, ok := d.Resolved(); ok {
		it.ID = target.ID()
		it.Kind = target.Kind().String()
	}
	return it
}

// Result contains the outputs of a query run.
type Result struct {
	Items []Item
	Stats Stats
}

// Stats contains query execution statistics.
type Stats struct {
	Count    int
	Duration time.Duration
}

// Runner runs queries against one backend.
//
// The Runner holds no per-query state. Multiple goroutines can safely use
// the same Runner with different options.
type Runner struct {
	Backend Backend
	Logger  *log.Logger
}

// NewRunner creates a runner. If logger is nil, log.Default is used.
func NewRunner(b Backend, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Backend: b, Logger: logger}
}

// Run executes the query and collects its results.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	items, err := r.Stream(ctx, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	observability.Query().OnQueryStart(ctx, opts.Relation, opts.Start())
	collected, err := seq.Collect(items)
	elapsed := time.Since(start)
	observability.Query().OnQueryComplete(ctx, opts.Relation, len(collected), elapsed, err)
	if err != nil {
		opts.Logger.Error("query failed", "start", opts.Start(), "relation", opts.Relation, "err", err)
		return nil, err
	}

	opts.Logger.Info("query complete",
		"start", opts.Start(),
		"relation", opts.Relation,
		"results", len(collected),
		"duration", elapsed)
	return &Result{Items: collected, Stats: Stats{Count: len(collected), Duration: elapsed}}, nil
}

// Stream validates opts and returns the query results as a lazy sequence.
// Nothing is read from the backend until the sequence is ranged over.
func (r *Runner) Stream(ctx context.Context, opts Options) (iter.Seq2[Item, error], error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	starts := r.starts(ctx, &opts)
	var items iter.Seq2[Item, error]
	if opts.Relation == RelationDescriptors {
		items = r.descriptors(ctx, &opts, starts)
	} else {
		items = seq.Map(r.documents(ctx, &opts, starts), documentItem)
	}
	if opts.Limit > 0 {
		items = seq.Take(items, opts.Limit)
	}
	return items, nil
}

// starts yields the documents a query begins from.
func (r *Runner) starts(ctx context.Context, opts *Options) iter.Seq2[doc.Document, error] {
	if opts.Root == "" {
		logger := opts.Logger
		resolve := func(ctx context.Context, entry string) (doc.Ref, bool) {
			ref, ok := r.Backend.Resolve(ctx, entry)
			if !ok {
				logger.Debug("selection entry not resolved", "entry", entry)
			}
			return ref, ok
		}
		return doc.FromSelection[string](ctx, r.Backend, doc.Entries[string](opts.Selection), resolve)
	}

	root := doc.ID(opts.Root)
	return func(yield func(doc.Document, error) bool) {
		ref, err := r.Backend.Lookup(ctx, root)
		if err != nil {
			yield(doc.Document{}, err)
			return
		}
		yield(doc.NewDocument(r.Backend, ref), nil)
	}
}

// documents applies the relation and the document filters.
func (r *Runner) documents(ctx context.Context, opts *Options, starts iter.Seq2[doc.Document, error]) iter.Seq2[doc.Document, error] {
	docs := starts
	switch opts.Relation {
	case RelationReferences:
		docs = seq.FlatMap(starts, func(d doc.Document) iter.Seq2[doc.Document, error] {
			if opts.Transitive {
				return doc.TransitiveReferences(ctx, d)
			}
			if c, ok := doc.AsConcrete(d); ok {
				return doc.DirectReferences(ctx, c)
			}
			return doc.DirectReferences(ctx, d)
		})
	case RelationReferencing:
		docs = seq.FlatMap(starts, func(d doc.Document) iter.Seq2[doc.Document, error] {
			c, ok := doc.AsConcrete(d)
			if !ok {
				return seq.Fail[doc.Document](errs.New(errs.ErrCodeInvalidKind,
					"referencing documents of %s: only assemblies, parts, drawings and presentations can be asked", d))
			}
			return doc.ReferencingDocuments(ctx, c)
		})
	}

	if opts.NativeOnly {
		docs = doc.ExcludeKinds(docs, opts.nonNative)
	}
	if opts.exclude != 0 {
		docs = doc.ExcludeKinds(docs, opts.exclude)
	}
	if opts.hasOnly {
		docs = narrow(docs, opts.only)
	}
	switch {
	case opts.Modifiable && opts.Reserved:
		docs = seq.Where(docs, doc.Editable[doc.Document](ctx))
	case opts.Modifiable:
		docs = seq.Where(docs, doc.Modifiable[doc.Document](ctx))
	case opts.Reserved:
		docs = seq.Where(docs, doc.ReservedForWrite[doc.Document](ctx))
	}
	if opts.Distinct {
		docs = seq.DistinctBy(docs, doc.Document.ID)
	}
	return docs
}

// narrow keeps documents of one kind, going through the typed narrowing
// filter for the concrete kinds.
func narrow(docs iter.Seq2[doc.Document, error], k doc.Kind) iter.Seq2[doc.Document, error] {
	switch k {
	case doc.KindAssembly:
		return seq.Map(doc.OnlyAssemblies(docs), doc.Assembly.Base)
	case doc.KindPart:
		return seq.Map(doc.OnlyParts(docs), doc.Part.Base)
	case doc.KindDrawing:
		return seq.Map(doc.OnlyDrawings(docs), doc.Drawing.Base)
	case doc.KindPresentation:
		return seq.Map(doc.OnlyPresentations(docs), doc.Presentation.Base)
	default:
		return doc.KeepKinds(docs, doc.NewKindSet(k))
	}
}

func (r *Runner) descriptors(ctx context.Context, opts *Options, starts iter.Seq2[doc.Document, error]) iter.Seq2[Item, error] {
	descs := seq.FlatMap(starts, func(d doc.Document) iter.Seq2[*doc.Descriptor, error] {
		return doc.ReferenceDescriptors(ctx, d)
	})
	if opts.SkipMissing {
		descs = seq.Filter(descs, func(d *doc.Descriptor) bool {
			if d.Missing() {
				opts.Logger.Debug("skipping missing reference", "full_name", d.FullName())
				return false
			}
			return true
		})
	}
	if opts.MissingOnly {
		descs = seq.Filter(descs, (*doc.Descriptor).Missing)
	}
	if opts.SkipSuppressed {
		descs = seq.Filter(descs, doc.NotSuppressed)
	}
	items := seq.Map(descs, descriptorItem)
	if opts.Distinct {
		items = seq.DistinctBy(items, func(it Item) Item { return it })
	}
	return items
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
