package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the kind and depth to node labels.
	// When false, only the document ID is shown.
	Detailed bool
}

var kindShapes = map[doc.Kind]string{
	doc.KindAssembly:         "box3d",
	doc.KindPart:             "box",
	doc.KindDrawing:          "note",
	doc.KindPresentation:     "tab",
	doc.KindForeignModel:     "component",
	doc.KindGeometryExchange: "cylinder",
}

// ToDOT converts a reference graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Node shapes follow the document kind. Missing references are drawn with
// dashed outlines, closed documents with grey fill and suppressed
// references as dotted arrows.
func ToDOT(g *render.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		label := fmtLabel(n, opts.Detailed)
		attrs := fmtAttrs(n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Key, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if e.Suppressed {
			fmt.Fprintf(&buf, "  %q -> %q [style=dotted];\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n render.Node, detailed bool) string {
	if !detailed {
		return n.Label
	}
	if n.Missing {
		return n.Label + "\nmissing"
	}

	parts := []string{n.Ref.Kind.String(), fmt.Sprintf("depth: %d", n.Depth)}
	if n.Closed {
		parts = append(parts, "closed")
	}
	if n.Excluded > 0 {
		parts = append(parts, fmt.Sprintf("excluded: %d", n.Excluded))
	}
	return n.Label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n render.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.Missing:
		return append(attrs, "style=\"rounded,dashed\"", "fontcolor=grey40", "color=grey40")
	case n.Closed:
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	if shape, ok := kindShapes[n.Ref.Kind]; ok && shape != "box" {
		attrs = append(attrs, "shape="+shape)
	}
	if n.Root {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
