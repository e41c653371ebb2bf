package query

import (
	"context"
	"io"
	"iter"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/observability"
	"github.com/matzehuels/docwalk/pkg/source/memory"
)

// plant builds:
//
//	top      -> bracket, sub, plate, Gone.ipt (missing), bolt (suppressed)
//	sub      -> bolt, bracket
//	top.idw  -> top
func plant(t *testing.T) *memory.Graph {
	t.Helper()
	g := memory.New()
	for _, d := range []memory.Document{
		{ID: "top", Kind: doc.KindAssembly, Flags: doc.Flags{Modifiable: true}},
		{ID: "bracket", Kind: doc.KindPart, Flags: doc.Flags{Modifiable: true, ReservedForWrite: true}},
		{ID: "sub", Kind: doc.KindAssembly},
		{ID: "bolt", Kind: doc.KindPart, Flags: doc.Flags{Modifiable: true}},
		{ID: "plate", Kind: doc.KindGeometryExchange},
		{ID: "top.idw", Kind: doc.KindDrawing},
	} {
		if err := g.AddDocument(d); err != nil {
			t.Fatal(err)
		}
	}
	for _, r := range []memory.Reference{
		{From: "top", To: "bracket", FullName: "Bracket.ipt"},
		{From: "top", To: "sub", FullName: "Sub.iam"},
		{From: "top", To: "plate", FullName: "Plate.stp"},
		{From: "top", FullName: "Gone.ipt", Missing: true},
		{From: "top", To: "bolt", FullName: "Bolt.ipt", Suppressed: true},
		{From: "sub", To: "bolt", FullName: "Bolt.ipt"},
		{From: "sub", To: "bracket", FullName: "Bracket.ipt"},
		{From: "top.idw", To: "top", FullName: "Top.iam"},
	} {
		if err := g.AddReference(r); err != nil {
			t.Fatal(err)
		}
	}
	for name, id := range map[string]doc.ID{"Bracket:1": "bracket", "Bracket:2": "bracket", "Bolt:1": "bolt", "Sub:1": "sub"} {
		if err := g.AddOccurrence(name, id); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func quiet() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = string(it.ID)
	}
	return out
}

func TestRunDocuments(t *testing.T) {
	r := NewRunner(plant(t), quiet())
	ctx := context.Background()

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"direct", Options{Root: "top"}, []string{"bracket", "sub", "plate"}},
		{"transitive", Options{Root: "top", Transitive: true}, []string{"bracket", "sub", "plate", "bolt"}},
		{"native only", Options{Root: "top", Transitive: true, NativeOnly: true}, []string{"bracket", "sub", "bolt"}},
		{"custom non-native", Options{Root: "top", Transitive: true, NativeOnly: true, NonNative: []string{"assembly"}}, []string{"bracket", "plate", "bolt"}},
		{"only parts", Options{Root: "top", Transitive: true, Only: "part"}, []string{"bracket", "bolt"}},
		{"only exchange", Options{Root: "top", Transitive: true, Only: "geometry-exchange"}, []string{"plate"}},
		{"exclude", Options{Root: "top", Transitive: true, Exclude: []string{"assembly", "sat"}}, []string{"bracket", "bolt"}},
		{"modifiable", Options{Root: "top", Transitive: true, Modifiable: true}, []string{"bracket", "bolt"}},
		{"reserved", Options{Root: "top", Transitive: true, Reserved: true}, []string{"bracket"}},
		{"limit", Options{Root: "top", Transitive: true, Limit: 2}, []string{"bracket", "sub"}},
		{"referencing", Options{Root: "bracket", Relation: RelationReferencing}, []string{"top", "sub"}},
		{"self", Options{Root: "sub", Relation: RelationSelf}, []string{"sub"}},
		{"drawing direct", Options{Root: "top.idw"}, []string{"top"}},
		{"preset editable-parts", Options{Root: "top", Preset: "editable-parts"}, []string{"bracket"}},
		{"preset native-closure", Options{Root: "top.idw", Preset: "native-closure"}, []string{"top", "bracket", "sub", "bolt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Run(ctx, tt.opts)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := ids(res.Items); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if res.Stats.Count != len(tt.want) {
				t.Errorf("Stats.Count = %d", res.Stats.Count)
			}
		})
	}
}

func TestRunSelection(t *testing.T) {
	r := NewRunner(plant(t), quiet())
	ctx := context.Background()
	sel := []string{"Bracket:1", "Sub:1", "Bracket:2", "nope", "Bolt:1"}

	res, err := r.Run(ctx, Options{Selection: sel, Only: "part"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ids(res.Items), []string{"bracket", "bracket", "bolt"}; !reflect.DeepEqual(got, want) {
		t.Errorf("parts = %v, want %v", got, want)
	}

	res, err = r.Run(ctx, Options{Selection: sel, Preset: "selected-modifiable-parts"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ids(res.Items), []string{"bracket", "bolt"}; !reflect.DeepEqual(got, want) {
		t.Errorf("preset = %v, want %v", got, want)
	}

	res, err = r.Run(ctx, Options{Selection: []string{"Sub:1"}, Relation: RelationReferences})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ids(res.Items), []string{"bolt", "bracket"}; !reflect.DeepEqual(got, want) {
		t.Errorf("references of selection = %v, want %v", got, want)
	}
}

func TestRunDescriptors(t *testing.T) {
	r := NewRunner(plant(t), quiet())
	ctx := context.Background()

	res, err := r.Run(ctx, Options{Root: "top", Relation: RelationDescriptors})
	if err != nil {
		t.Fatal(err)
	}
	want := []Item{
		{ID: "bracket", Kind: "part", FullName: "Bracket.ipt"},
		{ID: "sub", Kind: "assembly", FullName: "Sub.iam"},
		{ID: "plate", Kind: "geometry-exchange", FullName: "Plate.stp"},
		{FullName: "Gone.ipt", Missing: true},
		{ID: "bolt", Kind: "part", FullName: "Bolt.ipt", Suppressed: true},
	}
	if !reflect.DeepEqual(res.Items, want) {
		t.Errorf("descriptors = %+v", res.Items)
	}

	res, err = r.Run(ctx, Options{Root: "top", Relation: RelationDescriptors, SkipMissing: true, SkipSuppressed: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 3 {
		t.Errorf("filtered descriptors = %+v", res.Items)
	}

	res, err = r.Run(ctx, Options{Root: "top", Preset: "broken-references"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Items, []Item{{FullName: "Gone.ipt", Missing: true}}) {
		t.Errorf("broken references = %+v", res.Items)
	}
}

func TestRunErrors(t *testing.T) {
	g := plant(t)
	g.CloseDocument("sub")
	r := NewRunner(g, quiet())
	ctx := context.Background()

	tests := []struct {
		name string
		opts Options
		code errs.Code
	}{
		{"unknown root", Options{Root: "nope"}, errs.ErrCodeNotFound},
		{"empty selection", Options{Selection: []string{}}, errs.ErrCodeEmptyInput},
		{"referencing non-native", Options{Root: "plate", Relation: RelationReferencing}, errs.ErrCodeInvalidKind},
		{"closed document", Options{Root: "sub"}, errs.ErrCodeUnavailableSource},
		{"closed below root", Options{Root: "top", Relation: RelationDescriptors}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Run(ctx, tt.opts)
			if tt.code == "" {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if !errs.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		ok   bool
	}{
		{"root", Options{Root: "top"}, true},
		{"selection", Options{Selection: []string{"a"}}, true},
		{"empty selection is checked on pull", Options{Selection: []string{}}, true},
		{"no start", Options{}, false},
		{"blank root", Options{Root: "  "}, false},
		{"both starts", Options{Root: "top", Selection: []string{"a"}}, false},
		{"bad relation", Options{Root: "top", Relation: "siblings"}, false},
		{"bad kind", Options{Root: "top", Only: "widget"}, false},
		{"bad exclude", Options{Root: "top", Exclude: []string{"widget"}}, false},
		{"bad non-native", Options{Root: "top", NativeOnly: true, NonNative: []string{"widget"}}, false},
		{"negative limit", Options{Root: "top", Limit: -1}, false},
		{"transitive referencing", Options{Root: "top", Relation: RelationReferencing, Transitive: true}, false},
		{"kind filter on descriptors", Options{Root: "top", Relation: RelationDescriptors, Only: "part"}, false},
		{"skip on documents", Options{Root: "top", SkipMissing: true}, false},
		{"skip and missing only", Options{Root: "top", Relation: RelationDescriptors, SkipMissing: true, MissingOnly: true}, false},
		{"unknown preset", Options{Root: "top", Preset: "everything"}, false},
		{"preset with its own kind", Options{Root: "top", Preset: "editable-parts", Only: "part"}, true},
		{"preset with another kind", Options{Root: "top", Preset: "editable-parts", Only: "assembly"}, false},
		{"preset with another relation", Options{Root: "top", Preset: "broken-references", Relation: RelationReferences}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err == nil) != tt.ok {
				t.Fatalf("error = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && errs.GetCode(err) == "" {
				t.Errorf("error %v carries no code", err)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	o := Options{Root: "top"}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Relation != RelationReferences || o.Logger == nil {
		t.Errorf("root defaults: relation %q logger %v", o.Relation, o.Logger)
	}
	if o.nonNative != doc.NonNative {
		t.Errorf("nonNative = %v", o.nonNative)
	}

	o = Options{Selection: []string{"a"}}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Relation != RelationSelf {
		t.Errorf("selection relation = %q", o.Relation)
	}
	if o.Start() != "selection(a)" {
		t.Errorf("Start = %q", o.Start())
	}
}

func TestPresetNames(t *testing.T) {
	want := []string{"broken-references", "editable-parts", "native-closure", "selected-modifiable-parts"}
	if got := PresetNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("PresetNames = %v", got)
	}
	for _, name := range want {
		o := Options{Root: "top", Preset: name}
		if name == "selected-modifiable-parts" {
			o = Options{Selection: []string{"a"}, Preset: name}
		}
		if err := o.ValidateAndSetDefaults(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestPresetKeepsExplicitOptions(t *testing.T) {
	o := Options{Root: "top", Preset: "native-closure", Only: "assembly", Exclude: []string{"drawing"}, Limit: 3}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Only != "assembly" || len(o.Exclude) != 1 || o.Limit != 3 {
		t.Errorf("explicit options changed: only %q exclude %v limit %d", o.Only, o.Exclude, o.Limit)
	}
	if !o.Transitive || !o.NativeOnly || !o.Distinct || o.Relation != RelationReferences {
		t.Errorf("preset not applied: %+v", o)
	}

	tests := []struct {
		name string
		opts Options
	}{
		{"kind", Options{Root: "top", Preset: "editable-parts", Only: "drawing"}},
		{"relation", Options{Root: "top", Preset: "editable-parts", Relation: RelationReferencing}},
		{"selection relation", Options{Selection: []string{"a"}, Preset: "selected-modifiable-parts", Relation: RelationReferences}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Fatalf("error = %v, want INVALID_INPUT", err)
			}
			if !strings.Contains(err.Error(), "conflicts") {
				t.Errorf("error = %v, want a conflict message", err)
			}
		})
	}
}

// counting records how many adjacency queries reach the graph.
type counting struct {
	*memory.Graph
	mu    sync.Mutex
	calls int
}

func (c *counting) Adjacent(ctx context.Context, id doc.ID, rel doc.Relation) iter.Seq2[doc.Ref, error] {
	inner := c.Graph.Adjacent(ctx, id, rel)
	return func(yield func(doc.Ref, error) bool) {
		c.mu.Lock()
		c.calls++
		c.mu.Unlock()
		inner(yield)
	}
}

func TestStreamIsLazy(t *testing.T) {
	src := &counting{Graph: plant(t)}
	r := NewRunner(src, quiet())

	items, err := r.Stream(context.Background(), Options{Root: "top", Transitive: true})
	if err != nil {
		t.Fatal(err)
	}
	if src.calls != 0 {
		t.Fatalf("Stream queried the source %d times before ranging", src.calls)
	}

	for item, err := range items {
		if err != nil {
			t.Fatal(err)
		}
		if item.ID != "bracket" {
			t.Errorf("first item = %v", item)
		}
		break
	}
	if src.calls != 1 {
		t.Errorf("calls after one item = %d, want 1", src.calls)
	}

	n := 0
	for _, err := range items {
		if err != nil {
			t.Fatal(err)
		}
		n++
	}
	if n != 4 || src.calls != 2 {
		t.Errorf("second range: %d items, %d calls", n, src.calls)
	}
}

type queryEvents struct {
	mu      sync.Mutex
	started []string
	counts  []int
	failed  int
}

func (q *queryEvents) OnQueryStart(_ context.Context, relation, root string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.started = append(q.started, relation+" "+root)
}

func (q *queryEvents) OnQueryComplete(_ context.Context, _ string, count int, _ time.Duration, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.counts = append(q.counts, count)
	if err != nil {
		q.failed++
	}
}

func TestRunHooks(t *testing.T) {
	events := &queryEvents{}
	observability.SetQueryHooks(events)
	defer observability.Reset()

	r := NewRunner(plant(t), quiet())
	ctx := context.Background()
	if _, err := r.Run(ctx, Options{Root: "top"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Run(ctx, Options{Root: "nope"}); err == nil {
		t.Fatal("expected an error")
	}

	if want := []string{"references top", "references nope"}; !reflect.DeepEqual(events.started, want) {
		t.Errorf("started = %v", events.started)
	}
	if want := []int{3, 0}; !reflect.DeepEqual(events.counts, want) {
		t.Errorf("counts = %v", events.counts)
	}
	if events.failed != 1 {
		t.Errorf("failed = %d", events.failed)
	}
}
