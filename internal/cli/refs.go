package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/docwalk/pkg/query"
)

// Output formats for query results.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatIDs   = "ids"
)

// queryFlags holds the flags shared by the query commands.
type queryFlags struct {
	only       string
	exclude    []string
	native     bool
	modifiable bool
	reserved   bool
	distinct   bool
	limit      int
	preset     string
	format     string
}

func (f *queryFlags) register(cmd *cobra.Command, documents bool) {
	if documents {
		cmd.Flags().StringVar(&f.only, "only", "", "keep one kind: assembly, part, drawing, presentation, ...")
		cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "drop kinds (comma-separated)")
		cmd.Flags().BoolVar(&f.native, "native", false, "drop non-native documents (foreign models, exchange files)")
		cmd.Flags().BoolVar(&f.modifiable, "modifiable", false, "keep documents that can be edited")
		cmd.Flags().BoolVar(&f.reserved, "reserved", false, "keep documents reserved for write by the current user")
	}
	cmd.Flags().StringVar(&f.preset, "preset", "", "named query: "+strings.Join(query.PresetNames(), ", "))
	cmd.Flags().BoolVar(&f.distinct, "distinct", false, "report each result once")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "stop after N results (0 = all)")
	cmd.Flags().StringVarP(&f.format, "format", "f", formatTable, "output format: table, json, ids")
	registerQueryCompletions(cmd)
}

func (f *queryFlags) options() query.Options {
	return query.Options{
		Only:       f.only,
		Exclude:    f.exclude,
		NativeOnly: f.native,
		Modifiable: f.modifiable,
		Reserved:   f.reserved,
		Distinct:   f.distinct,
		Limit:      f.limit,
		Preset:     f.preset,
	}
}

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatIDs:
		return nil
	}
	return fmt.Errorf("invalid format: %s (must be table, json or ids)", format)
}

// refsCommand lists the documents a document references.
func (c *CLI) refsCommand() *cobra.Command {
	var (
		flags      queryFlags
		transitive bool
	)
	cmd := &cobra.Command{
		Use:   "refs <document>",
		Short: "List the documents a document references",
		Long: `List the documents a document references.

For assemblies, parts, drawings and presentations the direct references are
the documents one hop away. Use --transitive for the full closure.`,
		Example: `  docwalk refs gearbox --transitive --only part --modifiable
  docwalk refs gearbox --preset editable-parts -f ids`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options()
			opts.Root = args[0]
			opts.Relation = query.RelationReferences
			opts.Transitive = transitive
			return c.runQuery(cmd, opts, flags.format)
		},
		ValidArgsFunction: c.completeDocuments,
	}
	flags.register(cmd, true)
	cmd.Flags().BoolVarP(&transitive, "transitive", "t", false, "follow references all the way down")
	return cmd
}

// referencingCommand lists the documents that reference a document.
func (c *CLI) referencingCommand() *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "referencing <document>",
		Short: "List the documents that reference a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options()
			opts.Root = args[0]
			opts.Relation = query.RelationReferencing
			return c.runQuery(cmd, opts, flags.format)
		},
		ValidArgsFunction: c.completeDocuments,
	}
	flags.register(cmd, true)
	return cmd
}

// descriptorsCommand lists the raw reference records of a document.
func (c *CLI) descriptorsCommand() *cobra.Command {
	var (
		flags                                   queryFlags
		skipMissing, skipSuppressed, missingOnly bool
	)
	cmd := &cobra.Command{
		Use:     "descriptors <document>",
		Aliases: []string{"desc"},
		Short:   "List the reference records of a document, including broken ones",
		Example: `  docwalk descriptors gearbox --missing-only --skip-suppressed`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options()
			opts.Root = args[0]
			opts.Relation = query.RelationDescriptors
			opts.SkipMissing = skipMissing
			opts.SkipSuppressed = skipSuppressed
			opts.MissingOnly = missingOnly
			return c.runQuery(cmd, opts, flags.format)
		},
		ValidArgsFunction: c.completeDocuments,
	}
	flags.register(cmd, false)
	cmd.Flags().BoolVar(&skipMissing, "skip-missing", false, "drop references to files that were not found")
	cmd.Flags().BoolVar(&skipSuppressed, "skip-suppressed", false, "drop suppressed references")
	cmd.Flags().BoolVar(&missingOnly, "missing-only", false, "keep only references to files that were not found")
	return cmd
}

// selectCommand resolves selection entries to their documents.
func (c *CLI) selectCommand() *cobra.Command {
	var (
		flags    queryFlags
		relation string
	)
	cmd := &cobra.Command{
		Use:   "select <entry>...",
		Short: "Resolve selected occurrences to their documents",
		Long: `Resolve selection entries (occurrence names or document IDs) to the
documents that own them. Entries that belong to no document are skipped;
an empty selection is an error.`,
		Example: `  docwalk select Housing:1 Shaft:1 --only part --modifiable --distinct`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options()
			opts.Selection = append([]string{}, args...)
			opts.Relation = relation
			return c.runQuery(cmd, opts, flags.format)
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVarP(&relation, "relation", "r", "", "relation to follow from the selection: self (default), references, referencing")
	return cmd
}

// runQuery opens the source, runs opts and prints the results.
func (c *CLI) runQuery(cmd *cobra.Command, opts query.Options, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if len(opts.NonNative) == 0 {
		opts.NonNative = c.config.NonNative
	}
	opts.Logger = c.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer c.closeBackend(b)

	res, err := query.NewRunner(b, c.Logger).Run(ctx, opts)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res, opts.Relation == query.RelationDescriptors, format)
}

func printResult(w io.Writer, res *query.Result, descriptors bool, format string) error {
	switch format {
	case formatJSON:
		items := res.Items
		if items == nil {
			items = []query.Item{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case formatIDs:
		for _, it := range res.Items {
			name := string(it.ID)
			if name == "" {
				name = it.FullName
			}
			fmt.Fprintln(w, name)
		}
		return nil
	}

	if len(res.Items) == 0 {
		printWarning(w, "no results")
		return nil
	}
	if descriptors {
		fmt.Fprintln(w, descriptorTable(res.Items))
	} else {
		fmt.Fprintln(w, documentTable(res.Items))
	}
	printStats(w, res.Stats.Count, res.Stats.Duration)
	return nil
}
