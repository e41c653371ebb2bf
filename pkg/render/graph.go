package render

import (
	"context"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
)

// Node is one box in a reference drawing.
type Node struct {
	Key      string // unique within the graph; the document ID, or "missing:" + path
	Ref      doc.Ref
	Label    string
	Depth    int
	Root     bool
	Missing  bool // the referenced file was not found; Ref is zero
	Closed   bool // the source could not answer for the document
	Excluded int  // references dropped by Options.Exclude
}

// Edge is one forward reference between two nodes.
type Edge struct {
	From, To   string
	Suppressed bool
}

// Graph is the reference structure reachable from one root.
type Graph struct {
	Root  string
	Nodes []Node
	Edges []Edge
}

// Node returns the node with the given key.
func (g *Graph) Node(key string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Key == key {
			return n, true
		}
	}
	return Node{}, false
}

// Options configures [Build].
type Options struct {
	// MaxDepth stops expansion below this many hops from the root. Zero
	// means no limit.
	MaxDepth int

	// Exclude drops referenced documents of these kinds.
	Exclude doc.KindSet

	// ShowMissing adds a placeholder node for each missing reference.
	ShowMissing bool

	// ShowSuppressed keeps suppressed references as edges.
	ShowSuppressed bool
}

// Build walks the references of root breadth first. A source error on the
// root fails the build; errors on documents below it mark them Closed.
func Build(ctx context.Context, root doc.Document, opts Options) (*Graph, error) {
	if opts.MaxDepth < 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "max depth must not be negative")
	}
	g := &Graph{Root: string(root.ID())}
	index := map[string]int{}
	add := func(n Node) {
		if _, ok := index[n.Key]; ok {
			return
		}
		index[n.Key] = len(g.Nodes)
		g.Nodes = append(g.Nodes, n)
	}
	edges := map[Edge]bool{}
	link := func(e Edge) {
		if !edges[e] {
			edges[e] = true
			g.Edges = append(g.Edges, e)
		}
	}

	add(Node{Key: g.Root, Ref: root.Ref(), Label: label(root), Root: true})
	type item struct {
		d     doc.Document
		depth int
	}
	queue := []item{{root, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if opts.MaxDepth > 0 && cur.depth >= opts.MaxDepth {
			continue
		}
		from := string(cur.d.ID())

		for desc, err := range doc.ReferenceDescriptors(ctx, cur.d) {
			if err != nil {
				if cur.depth == 0 {
					return nil, err
				}
				g.Nodes[index[from]].Closed = true
				break
			}
			if desc.Suppressed() && !opts.ShowSuppressed {
				continue
			}
			target, ok := desc.Resolved()
			if !ok {
				if opts.ShowMissing && desc.Missing() {
					key := "missing:" + desc.FullName()
					add(Node{Key: key, Label: desc.FullName(), Depth: cur.depth + 1, Missing: true})
					link(Edge{From: from, To: key, Suppressed: desc.Suppressed()})
				}
				continue
			}
			if opts.Exclude.Has(target.Kind()) {
				g.Nodes[index[from]].Excluded++
				continue
			}
			to := string(target.ID())
			if _, seen := index[to]; !seen {
				add(Node{Key: to, Ref: target.Ref(), Label: label(target), Depth: cur.depth + 1})
				queue = append(queue, item{target, cur.depth + 1})
			}
			link(Edge{From: from, To: to, Suppressed: desc.Suppressed()})
		}
	}
	return g, nil
}

func label(d doc.Document) string { return string(d.ID()) }
