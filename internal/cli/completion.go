package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command.
func (c *CLI) completionCommand() *cobra.Command {
	generators := map[string]func(root *cobra.Command, w io.Writer) error{
		"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
		"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
		"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
		"powershell": func(root *cobra.Command, w io.Writer) error {
			return root.GenPowerShellCompletionWithDesc(w)
		},
	}

	return &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Print a shell completion script",
		Long: `Print a completion script for the given shell to stdout.

  bash        source <(azdiagram completion bash)
  zsh         azdiagram completion zsh > "${fpath[1]}/_azdiagram"
  fish        azdiagram completion fish > ~/.config/fish/completions/azdiagram.fish
  powershell  azdiagram completion powershell | Out-String | Invoke-Expression

--source, --view and --format complete from fixed values; nothing is
queried from Azure while completing.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return generators[args[0]](cmd.Root(), cmd.OutOrStdout())
		},
	}
}
