package cli

import (
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// completionScripts maps a shell name to the cobra generator for it.
var completionScripts = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       (*cobra.Command).GenBashCompletion,
	"zsh":        (*cobra.Command).GenZshCompletion,
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": (*cobra.Command).GenPowerShellCompletionWithDesc,
}

func (c *CLI) completionCommand() *cobra.Command {
	shells := make([]string, 0, len(completionScripts))
	for s := range completionScripts {
		shells = append(shells, s)
	}
	slices.Sort(shells)

	return &cobra.Command{
		Use:   "completion [" + strings.Join(shells, "|") + "]",
		Short: "Print a shell completion script",
		Long: `Print a shell completion script for ` + appName + `.

  source <(` + appName + ` completion bash)
  ` + appName + ` completion zsh > "${fpath[1]}/_` + appName + `"
  ` + appName + ` completion fish > ~/.config/fish/completions/` + appName + `.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		// No config file needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionScripts[args[0]](cmd.Root(), cmd.OutOrStdout())
		},
	}
}
