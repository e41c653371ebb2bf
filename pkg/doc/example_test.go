package doc_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/docwalk/pkg/doc"
	"github.com/matzehuels/docwalk/pkg/seq"
	"github.com/matzehuels/docwalk/pkg/source/memory"
)

// gearbox builds a small assembly:
//
//	gearbox -> housing, shaft-asm, motor (foreign)
//	shaft-asm -> shaft, bearing, housing
func gearbox() *memory.Graph {
	g := memory.New()
	for _, d := range []memory.Document{
		{ID: "gearbox", Kind: doc.KindAssembly},
		{ID: "shaft-asm", Kind: doc.KindAssembly},
		{ID: "housing", Kind: doc.KindPart, Flags: doc.Flags{Modifiable: true, ReservedForWrite: true}},
		{ID: "shaft", Kind: doc.KindPart, Flags: doc.Flags{Modifiable: true}},
		{ID: "bearing", Kind: doc.KindPart},
		{ID: "motor", Kind: doc.KindForeignModel},
	} {
		_ = g.AddDocument(d)
	}
	for _, r := range []memory.Reference{
		{From: "gearbox", To: "housing"},
		{From: "gearbox", To: "shaft-asm"},
		{From: "gearbox", To: "motor"},
		{From: "shaft-asm", To: "shaft"},
		{From: "shaft-asm", To: "bearing"},
		{From: "shaft-asm", To: "housing"},
	} {
		_ = g.AddReference(r)
	}
	_ = g.AddOccurrence("Shaft:1", "shaft")
	_ = g.AddOccurrence("Housing:1", "housing")
	return g
}

func Example() {
	ctx := context.Background()
	g := gearbox()
	root, _ := g.Lookup(ctx, "gearbox")
	asm, _ := doc.AsAssembly(doc.NewDocument(g, root))

	parts := doc.OnlyParts(doc.ExcludeNonNative(doc.TransitiveReferences(ctx, asm)))
	for p, err := range parts {
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println(p)
	}
	// Output:
	// part:housing
	// part:shaft
	// part:bearing
}

func ExampleDirectReferences() {
	ctx := context.Background()
	g := gearbox()
	root, _ := g.Lookup(ctx, "gearbox")
	base := doc.NewDocument(g, root)
	asm, _ := doc.AsAssembly(base)

	direct, _ := seq.Count(doc.DirectReferences(ctx, asm))
	closure, _ := seq.Count(doc.DirectReferences(ctx, base))
	fmt.Println("assembly view:", direct)
	fmt.Println("base view:", closure)
	// Output:
	// assembly view: 3
	// base view: 5
}

func ExampleFromSelection() {
	ctx := context.Background()
	g := gearbox()
	sel := doc.Entries[string]{"Shaft:1", "Sketch2", "Housing:1"}

	docs := doc.FromSelection[string](ctx, g, sel, g.Resolve)
	modifiable := seq.Where(doc.OnlyParts(docs), doc.Modifiable[doc.Part](ctx))
	n, _ := seq.Count(seq.DistinctBy(modifiable, doc.Part.ID))
	fmt.Println("modifiable parts selected:", n)

	_, err := seq.Collect(doc.FromSelection[string](ctx, g, doc.Entries[string]{}, g.Resolve))
	fmt.Println(err)
	// Output:
	// modifiable parts selected: 2
	// EMPTY_INPUT: the selection set is empty
}

func ExampleReferencingDocuments() {
	ctx := context.Background()
	g := gearbox()
	ref, _ := g.Lookup(ctx, "housing")
	part, _ := doc.AsPart(doc.NewDocument(g, ref))

	for d, err := range doc.OnlyAssemblies(doc.ReferencingDocuments(ctx, part)) {
		if err != nil {
			return
		}
		fmt.Println(d.ID())
	}
	// Output:
	// gearbox
	// shaft-asm
}

func ExampleEditable() {
	ctx := context.Background()
	g := gearbox()
	root, _ := g.Lookup(ctx, "gearbox")

	editable := seq.Where(
		doc.OnlyParts(doc.ExcludeNonNative(doc.TransitiveReferences(ctx, doc.NewDocument(g, root)))),
		doc.Editable[doc.Part](ctx),
	)
	first, ok, _ := seq.First(editable)
	fmt.Println(first.ID(), ok)
	// Output:
	// housing true
}
