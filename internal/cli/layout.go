package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/pipeline"
	"github.com/loreboard/loreboard/pkg/scene"
)

// layoutCommand creates the layout command for computing an initial board
// layout.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		opts    pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "layout [entities.json|yaml|toml]",
		Short: "Compute the initial board layout of an entity file",
		Long: `Compute the initial board layout of an entity file.

The layout command loads entities, runs the force simulation and writes a
scene file (<input>.scene.json) holding every card position and connector.
Scene files can be rendered with 'render' and extended with 'place'.

Results are cached by entity graph, viewport and card metrics, so laying out
the same world twice returns the same board instantly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts = c.withConfig(cmd, opts)
			opts.File = args[0]
			return c.runLayout(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.scene.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even if a cached layout exists")
	layoutFlags(cmd, &opts)

	return cmd
}

// runLayout loads the entities, computes the layout, and writes the scene.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	entities, err := runner.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.File, err)
	}

	done := timed(c.Logger)
	sp := startSpinner(ctx, fmt.Sprintf("Laying out %d entities...", len(entities)))

	positions, cacheHit, err := runner.LayoutWithCacheInfo(ctx, entities, opts)
	if err != nil {
		sp.fail("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	sp.stop()
	done(fmt.Sprintf("Laid out %d cards", len(positions)), "cached", cacheHit)

	if ctx.Err() != nil {
		return ctx.Err()
	}

	s := scene.New(entities, positions, opts.Metrics(), opts.Viewport().OrDefault(), 1)
	outputPath := artifactPath(output, opts.File, "json", true)
	if err := scene.WriteFile(s, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(entities), len(entity.Edges(entities)), cacheHit)
	printNewline()
	printNextStep("Render", appName+" render "+outputPath)

	return nil
}
