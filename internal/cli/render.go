package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/docwalk/pkg/cache"
	"github.com/matzehuels/docwalk/pkg/doc"
	"github.com/matzehuels/docwalk/pkg/render"
	"github.com/matzehuels/docwalk/pkg/render/nodelink"
)

const (
	renderDOT = "dot"
	renderSVG = "svg"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string   // output file path; "-" writes to stdout
	format     string   // dot or svg
	depth      int      // levels below the root to draw (0 = all)
	exclude    []string // kinds left out of the drawing
	missing    bool     // draw references to files that were not found
	suppressed bool     // draw suppressed references as dotted edges
	detailed   bool     // show kind, depth and state in node labels
	noCache    bool     // render even when a cached SVG exists
}

// renderCommand draws the reference graph below a document.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: renderSVG}

	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "Draw the reference graph below a document",
		Example: `  docwalk render gearbox -o gearbox.svg --missing --suppressed
  docwalk render gearbox -f dot -o - | dot -Tpng > gearbox.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != renderDOT && opts.format != renderSVG {
				return fmt.Errorf("invalid format: %s (must be dot or svg)", opts.format)
			}
			return c.runRender(cmd, doc.ID(args[0]), &opts)
		},
		ValidArgsFunction: c.completeDocuments,
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default <document>.<format>, - for stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg (default), dot")
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", 0, "levels below the document to draw (0 = all)")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "kinds to leave out (comma-separated)")
	cmd.Flags().BoolVar(&opts.missing, "missing", false, "draw references to files that were not found")
	cmd.Flags().BoolVar(&opts.suppressed, "suppressed", false, "draw suppressed references")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show kind, depth and state in labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "skip the rendered SVG cache")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, id doc.ID, opts *renderOpts) error {
	exclude, err := doc.ParseKindSet(opts.exclude)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer c.closeBackend(b)

	ref, err := b.Lookup(ctx, id)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	g, err := render.Build(ctx, doc.NewDocument(b, ref), render.Options{
		MaxDepth:       opts.depth,
		Exclude:        exclude,
		ShowMissing:    opts.missing,
		ShowSuppressed: opts.suppressed,
	})
	if err != nil {
		return err
	}
	prog.done("Built reference graph", "nodes", len(g.Nodes), "edges", len(g.Edges))

	data, err := renderGraph(ctx, c.svgCache(opts.noCache), g, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.output == "-" {
		_, err := out.Write(data)
		return err
	}
	path := opts.output
	if path == "" {
		path = sanitizeFilename(string(id)) + "." + opts.format
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	printSuccess(out, "Rendered %s", pluralize(len(g.Nodes), "document"))
	printFile(out, path)
	return nil
}

func renderGraph(ctx context.Context, svgCache cache.Cache, g *render.Graph, opts *renderOpts) ([]byte, error) {
	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: opts.detailed})
	if opts.format == renderDOT {
		return []byte(dot), nil
	}
	return nodelink.RenderSVGCached(ctx, svgCache, dot)
}

// sanitizeFilename turns a document ID into a safe file base name.
func sanitizeFilename(id string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, filepath.Base(id))
	if name == "" || name == "." || name == ".." {
		return "graph"
	}
	return name
}
