// Package nodelink draws reference graphs as node-link diagrams.
//
// # Usage
//
// Build a graph with [render.Build], convert it to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: false})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Shapes
//
// Each document kind gets its own Graphviz shape: assemblies are 3D boxes,
// parts plain boxes, drawings notes, presentations tabs, foreign models
// components and geometry-exchange files cylinders. The root has a heavier
// outline.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; no Graphviz installation is needed.
package nodelink
