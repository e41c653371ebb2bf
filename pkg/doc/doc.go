// Package doc is the traversal core of docwalk: a lazy, composable view over a
// graph of CAD documents joined by reference edges.
//
// # Overview
//
// A document graph holds assemblies, parts, drawings, presentations and a few
// non-native kinds (foreign models, geometry-exchange files, unknown files).
// An assembly references its components, a drawing references the models it
// documents, and so on. The graph itself lives in a host application; this
// package only talks to it through the [Source] interface.
//
// Everything here returns an iter.Seq2[T, error]. Nothing is queried until
// the caller pulls the first element, and stopping a range loop early stops
// the traversal. Three kinds of building blocks compose into pipelines:
//
//   - Source adapters turn host collections into documents: [FromSelection],
//     [FromDescriptors].
//   - Type filters narrow or exclude by kind: [OnlyParts], [ExcludeDrawings],
//     [ExcludeNonNative], [ExcludeKinds] and friends.
//   - Traversal operators expand one document: [DirectReferences],
//     [TransitiveReferences], [ReferencingDocuments], [ReferenceDescriptors].
//
// Generic operators such as filter, distinct, first and count come from
// package seq.
//
// # Variants
//
// [Document] is the base view. [Assembly], [Part], [Drawing] and
// [Presentation] are concrete variants produced only by checked narrowing
// ([AsPart], [OnlyParts], ...). Operations that make no sense on the base
// view, like [ReferencingDocuments], are constrained to [ConcreteNode] and
// reject a plain Document at compile time.
//
// Two behaviors of the host model are kept on purpose:
//
//   - DirectReferences of a base Document returns the full closure.
//   - ReferencingDocuments is not available on the base Document.
//
// # Errors
//
// [FromSelection] on an empty selection yields an EMPTY_INPUT error. Errors a
// [Source] reports (UNAVAILABLE_SOURCE for closed or unreachable documents)
// flow through every adapter, filter and operator unchanged. Unresolved
// descriptors, unmapped selection entries and unmatched kinds are skipped,
// never reported.
//
// # Example
//
// Count the modifiable parts below an assembly, each part once:
//
//	parts := seq.DistinctBy(doc.OnlyParts(doc.TransitiveReferences(ctx, asm)), doc.Part.ID)
//	n, err := seq.Count(seq.Where(parts, doc.Modifiable[doc.Part](ctx)))
package doc
