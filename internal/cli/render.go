package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/pipeline"
	"github.com/loreboard/loreboard/pkg/scene"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
		opts       pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "render [scene.json|entities]",
		Short: "Render a board to SVG, PNG or DOT",
		Long: `Render a board to SVG, PNG or DOT.

The input is either a scene file written by 'layout' or 'place', which is
rendered exactly as saved, or an entity file, which is laid out first (using
the layout cache) and then rendered.

PNG output pins every card at its board position in a Graphviz neato graph.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := parseFormats(formatsStr)
			if err != nil {
				return err
			}
			opts = c.withConfig(cmd, opts)
			opts.Formats = formats
			return c.runRender(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, dot, json (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().Float64Var(&opts.Zoom, "zoom", 0, "zoom factor (0.5 to 2.0)")
	cmd.Flags().StringVar(&opts.Highlight, "highlight", "", "entity id to highlight")
	cmd.Flags().BoolVar(&opts.NoLabels, "no-labels", false, "omit connector labels")
	layoutFlags(cmd, &opts)

	return cmd
}

// runRender renders a saved scene, or lays out and renders an entity file.
func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	sp := startSpinner(ctx, "Rendering board...")

	var (
		artifacts map[string][]byte
		cards     int
		relations int
		cacheHit  bool
	)
	if isScenePath(input) {
		s, err := scene.ReadFile(input)
		if err != nil {
			sp.fail("Render failed")
			return fmt.Errorf("load scene %s: %w", input, err)
		}
		if opts.Zoom > 0 {
			s.Zoom = opts.Zoom
		}
		artifacts, err = runner.Render(ctx, s, opts)
		if err != nil {
			sp.fail("Render failed")
			return fmt.Errorf("render: %w", err)
		}
		cards, relations = len(s.Positions), len(s.Connectors)
	} else {
		opts.File = input
		result, err := runner.Execute(ctx, opts)
		if err != nil {
			sp.fail("Render failed")
			return err
		}
		artifacts = result.Artifacts
		cards, relations = len(result.Entities), len(entity.Edges(result.Entities))
		cacheHit = result.CacheInfo.LayoutHit
	}
	sp.stop()

	paths, err := writeArtifacts(artifacts, input, output)
	if err != nil {
		return err
	}

	printSuccess("Rendered %d format(s)", len(paths))
	for _, p := range paths {
		printFile(p)
	}
	printStats(cards, relations, cacheHit)
	return nil
}
