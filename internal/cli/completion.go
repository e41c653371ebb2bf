package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/docwalk/pkg/doc"
	"github.com/matzehuels/docwalk/pkg/query"
)

// maxDocumentCompletions caps how many document IDs one completion lists.
const maxDocumentCompletions = 200

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for docwalk.

Besides commands and flags, the scripts complete:

  - document IDs for refs, referencing, descriptors, render and browse,
    read from the configured source (--source or ` + envSource + `)
  - kind names for --only and --exclude
  - preset names for --preset
  - output formats for --format

Load them in the current shell:

  bash:        source <(docwalk completion bash)
  zsh:         source <(docwalk completion zsh)
  fish:        docwalk completion fish | source
  powershell:  docwalk completion powershell | Out-String | Invoke-Expression

To load them in every session, write the script where your shell looks for
completions, for example:

  docwalk completion bash > /etc/bash_completion.d/docwalk
  docwalk completion zsh > "${fpath[1]}/_docwalk"
  docwalk completion fish > ~/.config/fish/completions/docwalk.fish
`,
		Example:               `  docwalk completion zsh > "${fpath[1]}/_docwalk"`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// kindCompletions lists the canonical kind names.
func kindCompletions() []string {
	var names []string
	for k := doc.Kind(0); k.Valid(); k++ {
		names = append(names, k.String())
	}
	return names
}

// registerQueryCompletions completes the value flags shared by the query
// commands. Flags the command does not have are skipped.
func registerQueryCompletions(cmd *cobra.Command) {
	values := map[string][]string{
		"only":    kindCompletions(),
		"exclude": kindCompletions(),
		"preset":  query.PresetNames(),
		"format":  {formatTable, formatJSON, formatIDs},
	}
	for flag, vals := range values {
		if cmd.Flags().Lookup(flag) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(flag, cobra.FixedCompletions(vals, cobra.ShellCompDirectiveNoFileComp))
	}
}

// completeDocuments completes the first argument with the IDs of the
// documents in the configured source. The pre-run hook does not run during
// completion, so the config is loaded here.
func (c *CLI) completeDocuments(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if cfg, err := loadConfig(c.configFile); err == nil {
		c.config = cfg
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := c.openBackend(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer c.closeBackend(b)

	var ids []string
	for ref, err := range b.Documents(ctx) {
		if err != nil {
			break
		}
		if id := string(ref.ID); strings.HasPrefix(id, toComplete) {
			ids = append(ids, id)
			if len(ids) == maxDocumentCompletions {
				break
			}
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
