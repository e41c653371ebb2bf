// Package render turns the reference structure around a document into a
// drawable graph.
//
// [Build] walks the reference descriptors breadth first from a root
// document and records every document it reaches as a [Node] and every
// forward reference as an [Edge]. Missing and suppressed references can be
// kept so a drawing shows what the host could not load. Documents the source
// cannot answer for (closed ones, typically) become leaves marked Closed.
//
// The [nodelink] subpackage draws the result with Graphviz:
//
//	g, err := render.Build(ctx, root, render.Options{ShowMissing: true})
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [nodelink]: github.com/matzehuels/docwalk/pkg/render/nodelink
package render
