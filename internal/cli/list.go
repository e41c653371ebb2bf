package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/docwalk/pkg/doc"
	"github.com/matzehuels/docwalk/pkg/query"
	"github.com/matzehuels/docwalk/pkg/seq"
)

// listCommand lists the documents known to the source.
func (c *CLI) listCommand() *cobra.Command {
	var (
		kinds  []string
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the documents in the source",
		Example: `  docwalk list --kind assembly,drawing`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			set, err := doc.ParseKindSet(kinds)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			b, err := c.openBackend(ctx)
			if err != nil {
				return err
			}
			defer c.closeBackend(b)

			start := time.Now()
			refs := b.Documents(ctx)
			if set != 0 {
				refs = seq.Filter(refs, func(r doc.Ref) bool { return set.Has(r.Kind) })
			}
			if limit > 0 {
				refs = seq.Take(refs, limit)
			}
			items, err := seq.Collect(seq.Map(refs, func(r doc.Ref) query.Item {
				return query.Item{ID: r.ID, Kind: r.Kind.String()}
			}))
			if err != nil {
				return err
			}

			res := &query.Result{Items: items, Stats: query.Stats{Count: len(items), Duration: time.Since(start)}}
			return printResult(cmd.OutOrStdout(), res, false, format)
		},
	}
	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil, "keep these kinds (comma-separated)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after N documents (0 = all)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, json, ids")
	return cmd
}
