package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/pipeline"
	"github.com/loreboard/loreboard/pkg/server"
	"github.com/loreboard/loreboard/pkg/source"
)

// serveOpts holds the flags of the serve command.
type serveOpts struct {
	addr       string
	sessionTTL time.Duration
	entities   string
	mongoURI   string
	watch      bool
	noCache    bool
}

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		so   serveOpts
		opts pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve boards over HTTP",
		Long: `Serve boards over HTTP.

Clients create boards from an entity list, drag cards by posting pointer
events, and follow changes over a websocket at /boards/{id}/ws.

Boards created without an entity list load the shared entity source: an
entity file (--entities) or a MongoDB collection (--mongo-uri or the
[source] config section). With --watch, changes to the source are merged
into every open board.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts = c.withConfig(cmd, opts)
			if !cmd.Flags().Changed("addr") {
				so.addr = c.Config.Server.Addr
			}
			if !cmd.Flags().Changed("session-ttl") {
				so.sessionTTL = c.Config.Server.SessionTTL
			}
			if !cmd.Flags().Changed("mongo-uri") {
				so.mongoURI = c.Config.Source.MongoURI
			}
			return c.runServe(cmd.Context(), so, opts)
		},
	}

	cmd.Flags().StringVar(&so.addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().DurationVar(&so.sessionTTL, "session-ttl", 0, "idle time before a board is discarded (default 24h)")
	cmd.Flags().StringVar(&so.entities, "entities", "", "entity file shared by boards created without entities")
	cmd.Flags().StringVar(&so.mongoURI, "mongo-uri", "", "MongoDB URI of the shared entity collection")
	cmd.Flags().BoolVarP(&so.watch, "watch", "w", false, "merge source changes into open boards")
	cmd.Flags().BoolVar(&so.noCache, "no-cache", false, "disable caching")
	layoutFlags(cmd, &opts)

	return cmd
}

// runServe runs the API, and the source watcher if requested, until ctx is
// cancelled.
func (c *CLI) runServe(ctx context.Context, so serveOpts, opts pipeline.Options) error {
	if so.entities != "" && so.mongoURI != "" {
		return fmt.Errorf("--entities and --mongo-uri are mutually exclusive")
	}
	if so.watch && so.entities == "" && so.mongoURI == "" {
		return fmt.Errorf("--watch needs an entity source (--entities or --mongo-uri)")
	}

	runner, err := c.newRunner(ctx, so.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var (
		src   source.Source
		mongo *source.MongoSource
	)
	switch {
	case so.entities != "":
		src = source.NewFileSource(so.entities)
	case so.mongoURI != "":
		mongo, err = source.NewMongoSource(ctx, source.MongoConfig{
			URI:        so.mongoURI,
			Database:   c.Config.Source.Database,
			Collection: c.Config.Source.Collection,
		})
		if err != nil {
			return err
		}
		defer mongo.Close(context.Background())
		src = mongo
	}

	srv := server.New(server.Config{
		Addr:       so.addr,
		SessionTTL: so.sessionTTL,
		Layout:     opts,
		Runner:     runner,
		Source:     src,
		Logger:     c.Logger,
	})

	printSuccess("Serving boards")
	printKeyValue("address", so.addr)
	if src != nil {
		printKeyValue("source", sourceName(so))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })

	if so.watch {
		logger := loggerFromContext(ctx).With("source", sourceName(so))
		refresh := func(entities []entity.Entity) {
			if err := srv.SyncAll(gctx, entities); err != nil {
				logger.Warn("source refresh rejected", "err", err)
			}
		}
		switch {
		case mongo != nil:
			g.Go(func() error {
				err := mongo.Changes(gctx, func() {
					entities, err := mongo.Entities(gctx)
					if err != nil {
						logger.Warn("reload entities failed", "err", err)
						return
					}
					refresh(entities)
				})
				return ignoreCanceled(err)
			})
		default:
			w := source.NewWatcher(so.entities, refresh).WithLogger(logger)
			g.Go(func() error { return ignoreCanceled(w.Watch(gctx)) })
		}
	}

	return g.Wait()
}

func sourceName(so serveOpts) string {
	if so.entities != "" {
		return so.entities
	}
	return "mongodb"
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
