package redisstore

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/source/memory"
)

// testGraph holds two assemblies over five parts:
//
//	asm  -> p1 p2 p3 p4 p5
//	full -> p1 p2 p3 p4, plus a missing reference to gone.ipt
//
// p5 is closed and asm owns the occurrence "asm:1".
func testGraph(t *testing.T) *memory.Graph {
	t.Helper()
	g := memory.New()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	parts := []doc.ID{"p1", "p2", "p3", "p4", "p5"}
	must(g.AddDocument(memory.Document{ID: "asm", Kind: doc.KindAssembly}))
	must(g.AddDocument(memory.Document{ID: "full", Kind: doc.KindAssembly}))
	for _, id := range parts {
		must(g.AddDocument(memory.Document{ID: id, Kind: doc.KindPart, Flags: doc.Flags{Modifiable: true}}))
		must(g.AddReference(memory.Reference{From: "asm", To: id, FullName: string(id) + ".ipt"}))
		if id != "p5" {
			must(g.AddReference(memory.Reference{From: "full", To: id, FullName: string(id) + ".ipt"}))
		}
	}
	must(g.AddReference(memory.Reference{From: "full", FullName: "gone.ipt", Missing: true}))
	must(g.AddOccurrence("asm:1", "asm"))
	g.CloseDocument("p5")
	return g
}

// newTestStore loads testGraph into a fresh miniredis and pages with the
// given size.
func newTestStore(t *testing.T, pageSize int64, opts redis.Options) (*Store, *miniredis.Miniredis, *memory.Graph) {
	t.Helper()
	mr := miniredis.RunT(t)
	opts.Addr = mr.Addr()
	rdb := redis.NewClient(&opts)
	t.Cleanup(func() { rdb.Close() })

	s := New(rdb, "")
	s.pageSize = pageSize
	g := testGraph(t)
	n, err := s.Load(context.Background(), g)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != g.Len() {
		t.Fatalf("Load wrote %d documents, want %d", n, g.Len())
	}
	return s, mr, g
}

func collectRefs(t *testing.T, s iter.Seq2[doc.Ref, error]) []doc.Ref {
	t.Helper()
	var out []doc.Ref
	for r, err := range s {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, r)
	}
	return out
}

func TestAdjacentMatchesGraph(t *testing.T) {
	ctx := context.Background()
	rels := []doc.Relation{doc.RelReferenced, doc.RelReferencing, doc.RelAllReferenced}

	for _, size := range []int64{1, 2, 4, 5, 256} {
		s, _, g := newTestStore(t, size, redis.Options{})
		for _, id := range []doc.ID{"asm", "full", "p1", "p4"} {
			for _, rel := range rels {
				got := collectRefs(t, s.Adjacent(ctx, id, rel))
				want := collectRefs(t, g.Adjacent(ctx, id, rel))
				if !slices.Equal(got, want) {
					t.Errorf("page %d: Adjacent(%s, %s) = %v, want %v", size, id, rel, got, want)
				}
			}
		}
	}
}

func TestPagingRoundTrips(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		pageSize int64
		id       doc.ID
		take     int
		want     int
		commands int
	}{
		// One HGETALL for the open check, then one LRANGE per page.
		{"partial last page", 2, "asm", -1, 5, 4},
		{"exactly full last page", 2, "full", -1, 4, 4},
		{"single full page", 4, "full", -1, 4, 3},
		{"one page fits all", 256, "asm", -1, 5, 2},
		{"early stop", 2, "asm", 1, 1, 2},
		{"stop at page boundary", 2, "asm", 2, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mr, _ := newTestStore(t, tt.pageSize, redis.Options{})
			before := mr.CommandCount()

			var got int
			for _, err := range s.Adjacent(ctx, tt.id, doc.RelReferenced) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				got++
				if got == tt.take {
					break
				}
			}
			if got != tt.want {
				t.Errorf("got %d references, want %d", got, tt.want)
			}
			if n := mr.CommandCount() - before; n != tt.commands {
				t.Errorf("round trips = %d, want %d", n, tt.commands)
			}
		})
	}
}

func TestDescriptorsPage(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, 2, redis.Options{})

	var names []string
	var missing int
	for rec, err := range s.Descriptors(ctx, "full") {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		names = append(names, rec.FullName)
		if rec.Missing {
			missing++
			if rec.Target != nil {
				t.Errorf("missing record has target %v", *rec.Target)
			}
		}
	}
	want := []string{"p1.ipt", "p2.ipt", "p3.ipt", "p4.ipt", "gone.ipt"}
	if !slices.Equal(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if missing != 1 {
		t.Errorf("missing = %d, want 1", missing)
	}
}

func TestUnavailableDocuments(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, 2, redis.Options{})

	tests := []struct {
		name string
		id   doc.ID
	}{
		{"closed", "p5"},
		{"not stored", "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, err := range s.Adjacent(ctx, tt.id, doc.RelReferenced) {
				if !errs.IsUnavailable(err) {
					t.Errorf("Adjacent err = %v, want unavailable", err)
				}
			}
			for _, err := range s.Descriptors(ctx, tt.id) {
				if !errs.IsUnavailable(err) {
					t.Errorf("Descriptors err = %v, want unavailable", err)
				}
			}
			if _, err := s.Flags(ctx, tt.id); !errs.IsUnavailable(err) {
				t.Errorf("Flags err = %v, want unavailable", err)
			}
			if _, _, err := s.Property(ctx, tt.id, "material"); !errs.IsUnavailable(err) {
				t.Errorf("Property err = %v, want unavailable", err)
			}
		})
	}

	// A closed document is still listed and still a reference target.
	if _, err := s.Lookup(ctx, "p5"); err != nil {
		t.Errorf("Lookup(p5) = %v", err)
	}
	if _, err := s.Lookup(ctx, "nope"); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("Lookup(nope) err = %v, want not found", err)
	}
}

func TestServerDown(t *testing.T) {
	ctx := context.Background()
	s, mr, _ := newTestStore(t, 2, redis.Options{MaxRetries: -1})
	mr.Close()

	for _, err := range s.Adjacent(ctx, "asm", doc.RelReferenced) {
		if !errs.IsUnavailable(err) {
			t.Errorf("Adjacent err = %v, want unavailable", err)
		}
	}
	for _, err := range s.Documents(ctx) {
		if !errs.IsUnavailable(err) {
			t.Errorf("Documents err = %v, want unavailable", err)
		}
	}
}

func TestDocumentsPage(t *testing.T) {
	ctx := context.Background()
	want := []doc.ID{"asm", "full", "p1", "p2", "p3", "p4", "p5"}

	// 7 documents: partial pages, an exactly full last page, and one page.
	for _, size := range []int64{1, 2, 3, 7, 256} {
		s, _, _ := newTestStore(t, size, redis.Options{})
		var got []doc.ID
		for _, r := range collectRefs(t, s.Documents(ctx)) {
			got = append(got, r.ID)
		}
		if !slices.Equal(got, want) {
			t.Errorf("page %d: Documents = %v, want %v", size, got, want)
		}
	}
}

func TestPropertyRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, 2, redis.Options{})

	if _, ok, err := s.Property(ctx, "p1", "material"); err != nil || ok {
		t.Fatalf("Property before write = %v, %v", ok, err)
	}
	if err := s.SetProperty(ctx, "p1", "material", "steel"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	v, ok, err := s.Property(ctx, "p1", "material")
	if err != nil || !ok || v != "steel" {
		t.Errorf("Property = %v, %v, %v; want steel", v, ok, err)
	}
	flags, err := s.Flags(ctx, "p1")
	if err != nil || !flags.Modifiable {
		t.Errorf("Flags = %+v, %v; want modifiable", flags, err)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, 2, redis.Options{})
	var buf bytes.Buffer
	s.SetLogger(log.New(&buf))

	tests := []struct {
		entry  string
		want   doc.Ref
		wantOK bool
	}{
		{"asm:1", doc.Ref{ID: "asm", Kind: doc.KindAssembly}, true},
		{"p3", doc.Ref{ID: "p3", Kind: doc.KindPart}, true},
		{"p5", doc.Ref{ID: "p5", Kind: doc.KindPart}, true},
		{"nope", doc.Ref{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			got, ok := s.Resolve(ctx, tt.entry)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Resolve(%q) = %v, %v; want %v, %v", tt.entry, got, ok, tt.want, tt.wantOK)
			}
		})
	}
	if buf.Len() != 0 {
		t.Errorf("unmapped entries logged: %s", buf.String())
	}
}

func TestResolveLogsReadFailures(t *testing.T) {
	ctx := context.Background()
	s, mr, _ := newTestStore(t, 2, redis.Options{MaxRetries: -1})
	var buf bytes.Buffer
	s.SetLogger(log.New(&buf))
	mr.Close()

	if _, ok := s.Resolve(ctx, "asm:1"); ok {
		t.Fatal("Resolve succeeded with the server down")
	}
	out := buf.String()
	if !strings.Contains(out, "could not resolve selection entry") || !strings.Contains(out, "asm:1") {
		t.Errorf("log = %q, want the failed entry", out)
	}

	// Without a logger the failure is still reported as unmapped.
	s.SetLogger(nil)
	if _, ok := s.Resolve(ctx, "asm:1"); ok {
		t.Error("Resolve succeeded with the server down")
	}
}
