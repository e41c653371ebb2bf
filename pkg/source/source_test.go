package source

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/graph"
	"github.com/matzehuels/docwalk/pkg/observability"
	"github.com/matzehuels/docwalk/pkg/seq"
)

const gearbox = "../graph/testdata/gearbox.toml"

func TestKind(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"redis://localhost:6379/0", KindRedis},
		{"rediss://cache.internal:6380", KindRedis},
		{"mongodb://localhost:27017", KindMongo},
		{"mongodb+srv://cluster.example.net", KindMongo},
		{"gearbox.toml", KindManifest},
		{"/srv/graphs/plant.yaml", KindManifest},
	}
	for _, tt := range tests {
		if got := Kind(tt.location); got != tt.want {
			t.Errorf("Kind(%q) = %q, want %q", tt.location, got, tt.want)
		}
	}
}

func TestOpenManifest(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, gearbox, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	ref, err := b.Lookup(ctx, "shaft-asm")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ref.Kind != doc.KindAssembly {
		t.Errorf("shaft-asm kind = %v", ref.Kind)
	}
	if ref, ok := b.Resolve(ctx, "Shaft:1"); !ok || ref.ID != "shaft" {
		t.Errorf("Resolve(Shaft:1) = %v, %v", ref, ok)
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		location string
		code     errs.Code
	}{
		{"", errs.ErrCodeInvalidInput},
		{"  ", errs.ErrCodeInvalidInput},
		{"testdata/absent.toml", errs.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		b, err := Open(ctx, tt.location, Options{})
		if !errs.Is(err, tt.code) {
			t.Errorf("Open(%q) error = %v, want %s", tt.location, err, tt.code)
		}
		if b != nil {
			t.Errorf("Open(%q) returned a backend with an error", tt.location)
		}
	}
}

func TestOpenLoaderRejectsManifest(t *testing.T) {
	l, err := OpenLoader(context.Background(), gearbox, Options{})
	if !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("OpenLoader error = %v, want UNSUPPORTED", err)
	}
	if l != nil {
		t.Error("OpenLoader returned a loader with an error")
	}
}

func TestOpenLoaderSetsLogger(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	var buf bytes.Buffer

	l, err := OpenLoader(ctx, "redis://"+mr.Addr(), Options{Logger: log.New(&buf)})
	if err != nil {
		t.Fatalf("OpenLoader: %v", err)
	}
	defer l.Close()

	g, err := graph.ReadFile(gearbox)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if _, err := l.Load(ctx, g); err != nil {
		t.Fatalf("Load: %v", err)
	}
	id := g.IDs()[0]
	if ref, ok := l.Resolve(ctx, string(id)); !ok || ref.ID != id {
		t.Fatalf("Resolve(%s) = %v, %v", id, ref, ok)
	}

	mr.Close()
	if _, ok := l.Resolve(ctx, string(id)); ok {
		t.Fatal("Resolve succeeded with the server down")
	}
	if !strings.Contains(buf.String(), "could not resolve selection entry") {
		t.Errorf("log = %q, want the resolve failure", buf.String())
	}
}

type event struct {
	op    string
	count int
	err   bool
}

type recordingHooks struct {
	mu     sync.Mutex
	events []event
}

func (h *recordingHooks) OnSourceQuery(_ context.Context, backend, op string, count int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event{op: backend + "/" + op, count: count})
}

func (h *recordingHooks) OnSourceError(_ context.Context, backend, op string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event{op: backend + "/" + op, err: true})
}

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	hooks := &recordingHooks{}
	observability.SetSourceHooks(hooks)
	defer observability.Reset()

	b, err := Open(ctx, gearbox, Options{})
	if err != nil {
		t.Fatal(err)
	}
	src := Instrument("memory", b)

	refs, err := seq.Collect(src.Adjacent(ctx, "gearbox", doc.RelAllReferenced))
	if err != nil {
		t.Fatalf("closure: %v", err)
	}
	if len(refs) != 5 {
		t.Errorf("closure has %d documents, want 5", len(refs))
	}

	if _, _, err := seq.First(src.Adjacent(ctx, "gearbox", doc.RelReferenced)); err != nil {
		t.Fatalf("first: %v", err)
	}

	if _, err := src.Flags(ctx, "gearbox"); err != nil {
		t.Fatalf("Flags: %v", err)
	}
	if _, err := src.Flags(ctx, "gearbox-drawing"); !errs.IsUnavailable(err) {
		t.Fatalf("Flags(closed) error = %v", err)
	}
	if _, err := seq.Collect(src.Descriptors(ctx, "gearbox-drawing")); !errs.IsUnavailable(err) {
		t.Fatalf("Descriptors(closed) error = %v", err)
	}

	want := []event{
		{op: "memory/adjacent:all-referenced", count: 5},
		{op: "memory/adjacent:referenced", count: 1},
		{op: "memory/flags", count: 1},
		{op: "memory/flags", err: true},
		{op: "memory/descriptors", err: true},
	}
	if len(hooks.events) != len(want) {
		t.Fatalf("events = %+v, want %+v", hooks.events, want)
	}
	for i := range want {
		if hooks.events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, hooks.events[i], want[i])
		}
	}
}

func TestInstrumentStaysLazy(t *testing.T) {
	ctx := context.Background()
	hooks := &recordingHooks{}
	observability.SetSourceHooks(hooks)
	defer observability.Reset()

	b, err := Open(ctx, gearbox, Options{})
	if err != nil {
		t.Fatal(err)
	}
	src := Instrument("memory", b)
	_ = src.Adjacent(ctx, "gearbox", doc.RelAllReferenced)
	if len(hooks.events) != 0 {
		t.Errorf("building a sequence reported %d events", len(hooks.events))
	}
}
