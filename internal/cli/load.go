package cli

import (
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/graph"
	"github.com/matzehuels/docwalk/pkg/source"
)

// loadCommand copies a manifest into a Redis or MongoDB backend.
func (c *CLI) loadCommand() *cobra.Command {
	var into string

	cmd := &cobra.Command{
		Use:   "load <manifest>",
		Short: "Load a manifest into Redis or MongoDB",
		Long: `Load a manifest into Redis or MongoDB, replacing what the target holds.

The target defaults to the configured source when that is a redis:// or
mongodb:// URL.`,
		Example: `  docwalk load plant.toml --into redis://localhost:6379/0
  docwalk load plant.yaml --into mongodb://localhost:27017`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := into
			if target == "" {
				target = c.sourceLocation()
			}
			return c.runLoad(cmd, args[0], target)
		},
	}
	cmd.Flags().StringVar(&into, "into", "", "target redis:// or mongodb:// URL")
	return cmd
}

func (c *CLI) runLoad(cmd *cobra.Command, manifest, target string) error {
	if source.Kind(target) == source.KindManifest {
		return errs.New(errs.ErrCodeInvalidInput, "load needs a redis:// or mongodb:// target, got %q", target)
	}
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	printInfo(out, "Reading %s", manifest)
	g, err := graph.ReadFile(manifest)
	if err != nil {
		return err
	}
	c.Logger.Debug("manifest read", "documents", g.Len(), "references", g.EdgeCount())

	l, err := source.OpenLoader(ctx, target, c.sourceOptions())
	if err != nil {
		return err
	}
	defer c.closeBackend(l)

	spinner := newSpinner(ctx, cmd.ErrOrStderr(), "Loading "+pluralize(g.Len(), "document")+"...")
	spinner.Start()
	prog := newProgress(c.Logger)
	n, err := l.Load(ctx, g)
	if err != nil {
		spinner.StopWithError("Load failed")
		return err
	}
	spinner.Stop()
	prog.done("Loaded documents", "documents", n, "target", source.Kind(target))

	printSuccess(out, "Loaded %s into %s", pluralize(n, "document"), source.Kind(target))
	if roots := g.Roots(); len(roots) > 0 {
		printNextStep(out, "Query it", "docwalk refs "+string(roots[0])+" --source "+target)
	}
	return nil
}
