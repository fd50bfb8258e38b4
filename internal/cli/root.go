package cli

import (
	"github.com/spf13/cobra"

	"github.com/loreboard/loreboard/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Before any subcommand runs, the root command applies --verbose, loads the
// config file (--config, or the first one found) and attaches the logger to
// the command context.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:   appName,
		Short: "Loreboard lays out story entities as cards on a board",
		Long: `Loreboard arranges typed story entities (characters, locations, items,
organizations) as cards on a 2D board, connects related cards with labeled
lines and lets you drag cards around.

The first layout of a board is a force simulation; entities added later are
placed in free space without moving anything else.`,
		Version:       buildinfo.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
			if err := c.loadConfig(configPath); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: search $LOREBOARD_CONFIG, ./loreboard.toml, ~/.config/loreboard)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.placeCommand())
	root.AddCommand(c.boardCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
