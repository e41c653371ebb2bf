package source

import (
	"context"
	"iter"
	"time"

	"github.com/matzehuels/docwalk/pkg/doc"
	"github.com/matzehuels/docwalk/pkg/observability"
)

// Instrument wraps b so that every query reports to the hooks registered
// with [observability.SetSourceHooks]. name labels the events.
//
// Sequence queries report once the consumer stops ranging, with the number
// of elements it pulled; the duration covers the whole range.
func Instrument(name string, b Backend) Backend {
	return &instrumented{Backend: b, name: name}
}

type instrumented struct {
	Backend
	name string
}

func (s *instrumented) Adjacent(ctx context.Context, id doc.ID, rel doc.Relation) iter.Seq2[doc.Ref, error] {
	return observe(ctx, s.name, "adjacent:"+rel.String(), s.Backend.Adjacent(ctx, id, rel))
}

func (s *instrumented) Descriptors(ctx context.Context, id doc.ID) iter.Seq2[doc.DescriptorRecord, error] {
	return observe(ctx, s.name, "descriptors", s.Backend.Descriptors(ctx, id))
}

func (s *instrumented) Documents(ctx context.Context) iter.Seq2[doc.Ref, error] {
	return observe(ctx, s.name, "documents", s.Backend.Documents(ctx))
}

func (s *instrumented) Flags(ctx context.Context, id doc.ID) (doc.Flags, error) {
	start := time.Now()
	f, err := s.Backend.Flags(ctx, id)
	s.report(ctx, "flags", start, err)
	return f, err
}

func (s *instrumented) Property(ctx context.Context, id doc.ID, name string) (any, bool, error) {
	start := time.Now()
	v, ok, err := s.Backend.Property(ctx, id, name)
	s.report(ctx, "property", start, err)
	return v, ok, err
}

func (s *instrumented) SetProperty(ctx context.Context, id doc.ID, name string, value any) error {
	start := time.Now()
	err := s.Backend.SetProperty(ctx, id, name, value)
	s.report(ctx, "set-property", start, err)
	return err
}

func (s *instrumented) Attribute(ctx context.Context, id doc.ID, set, name string) (any, bool, error) {
	start := time.Now()
	v, ok, err := s.Backend.Attribute(ctx, id, set, name)
	s.report(ctx, "attribute", start, err)
	return v, ok, err
}

func (s *instrumented) SetAttribute(ctx context.Context, id doc.ID, set, name string, value any) error {
	start := time.Now()
	err := s.Backend.SetAttribute(ctx, id, set, name, value)
	s.report(ctx, "set-attribute", start, err)
	return err
}

func (s *instrumented) Lookup(ctx context.Context, id doc.ID) (doc.Ref, error) {
	start := time.Now()
	ref, err := s.Backend.Lookup(ctx, id)
	s.report(ctx, "lookup", start, err)
	return ref, err
}

func (s *instrumented) report(ctx context.Context, op string, start time.Time, err error) {
	if err != nil {
		observability.Source().OnSourceError(ctx, s.name, op, err)
		return
	}
	observability.Source().OnSourceQuery(ctx, s.name, op, 1, time.Since(start))
}

func observe[T any](ctx context.Context, backend, op string, seq iter.Seq2[T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		start := time.Now()
		n := 0
		for v, err := range seq {
			if err != nil {
				observability.Source().OnSourceError(ctx, backend, op, err)
				yield(v, err)
				return
			}
			n++
			if !yield(v, nil) {
				break
			}
		}
		observability.Source().OnSourceQuery(ctx, backend, op, n, time.Since(start))
	}
}
