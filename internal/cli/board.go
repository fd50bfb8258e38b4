package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loreboard/loreboard/pkg/board"
	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/pipeline"
	"github.com/loreboard/loreboard/pkg/source"
)

// boardCommand creates the interactive terminal board command.
func (c *CLI) boardCommand() *cobra.Command {
	var (
		watch   bool
		noCache bool
		opts    pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "board [entities.json|yaml|toml]",
		Short: "Open an interactive board in the terminal",
		Long: `Open an interactive board in the terminal.

Cards are laid out for the terminal size and can be dragged with the mouse.
Keys: +/- zoom, 0 reset zoom, r lay out again, arrows or hjkl pan, q quit.
Click a card to show its attributes.

With --watch, edits to the entity file are merged into the open board: new
entities are placed in free space and removed ones disappear. Cards you
moved stay where you put them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts = c.withConfig(cmd, opts)
			opts.File = args[0]
			return c.runBoard(cmd.Context(), opts, watch, noCache)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the entity file when it changes")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	layoutFlags(cmd, &opts)

	return cmd
}

// runBoard runs the terminal board until the user quits.
func (c *CLI) runBoard(ctx context.Context, opts pipeline.Options, watch, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	entities, err := runner.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.File, err)
	}

	// Log output would corrupt the alternate screen.
	c.SetLogLevel(log.WarnLevel)

	b := board.New(
		board.WithMetrics(opts.Metrics()),
		board.WithSeed(opts.Seed),
		board.WithLayouter(runner.Layouter(opts)),
		board.WithLogger(c.Logger),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewBoardModel(ctx, filepath.Base(opts.File), b, entities)
	defer model.Close()
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	if watch {
		w := source.NewWatcher(opts.File, func(es []entity.Entity) {
			p.Send(entitiesMsg(es))
		}).WithLogger(c.Logger)
		g.Go(func() error { return ignoreCanceled(w.Watch(gctx)) })
	}
	return g.Wait()
}
