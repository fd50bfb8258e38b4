// Package server exposes boards over HTTP.
//
// Each board lives in an in-memory session identified by a UUID. Clients
// create a board from an entity list, refresh that list as their
// collaborator changes, forward pointer events to drive dragging, and
// follow every change over a websocket.
//
// # Routes
//
//	GET    /health
//	GET    /version
//	POST   /boards                      create a board (initial layout)
//	GET    /boards/{id}                 scene snapshot
//	DELETE /boards/{id}
//	PUT    /boards/{id}/entities        refresh the entity list
//	POST   /boards/{id}/entities        add one created entity
//	POST   /boards/{id}/relayout        discard positions and lay out again
//	POST   /boards/{id}/pointer         pointer down, move or up
//	PUT    /boards/{id}/zoom            set, step or reset the zoom
//	PUT    /boards/{id}/viewport        record the measured container size
//	PUT    /boards/{id}/mount           record where the board is mounted
//	GET    /boards/{id}/svg             rendered SVG
//	GET    /boards/{id}/png             rendered PNG
//	GET    /boards/{id}/ws              change stream
//
// Errors use the body shape of [httputil.WriteError].
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/loreboard/loreboard/pkg/board"
	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/httputil"
	"github.com/loreboard/loreboard/pkg/pipeline"
	"github.com/loreboard/loreboard/pkg/session"
	"github.com/loreboard/loreboard/pkg/source"
)

// Defaults.
const (
	DefaultAddr            = ":8080"
	DefaultJanitorInterval = time.Minute
	shutdownTimeout        = 10 * time.Second
)

// Config configures a Server.
type Config struct {
	Addr       string
	SessionTTL time.Duration

	// Layout holds the card metrics and simulation settings of new boards.
	Layout pipeline.Options

	// Runner serves initial layouts through its cache. Nil disables caching.
	Runner *pipeline.Runner

	// Source, if set, supplies the entities of boards created without an
	// explicit entity list.
	Source source.Source

	Logger *log.Logger
}

// Server is the HTTP API.
type Server struct {
	cfg      Config
	sessions *session.Store
	runner   *pipeline.Runner
	logger   *log.Logger
	router   chi.Router
}

// New creates a server. Call [Server.Run] to listen, or use
// [Server.Handler] directly.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	cfg.Layout.SetLayoutDefaults()

	runner := cfg.Runner
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}

	s := &Server{
		cfg:      cfg,
		sessions: session.NewStore(cfg.SessionTTL),
		runner:   runner,
		logger:   cfg.Logger,
	}
	s.sessions.OnEvict(func(sess *session.Session) {
		s.logger.Debug("board closed", "id", sess.ID)
	})
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httputil.CORS)
	r.Use(httputil.Hooks)
	r.Use(httputil.Logger(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/boards", func(r chi.Router) {
		r.Post("/", s.handleCreateBoard)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.withSession(s.handleGetBoard))
			r.Delete("/", s.handleDeleteBoard)
			r.Put("/entities", s.withSession(s.handleSyncEntities))
			r.Post("/entities", s.withSession(s.handleAddEntity))
			r.Post("/relayout", s.withSession(s.handleRelayout))
			r.Post("/pointer", s.withSession(s.handlePointer))
			r.Put("/zoom", s.withSession(s.handleZoom))
			r.Put("/viewport", s.withSession(s.handleViewport))
			r.Put("/mount", s.withSession(s.handleMount))
			r.Get("/svg", s.withSession(s.handleSVG))
			r.Get("/png", s.withSession(s.handlePNG))
			r.Get("/ws", s.withSession(s.handleWS))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, errNotFound(r.URL.Path))
	})
	return r
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler { return s.router }

// Sessions returns the session store.
func (s *Server) Sessions() *session.Store { return s.sessions }

// SyncAll refreshes the entity list of every live board, as when the
// shared collaborator changed. Boards keep their positions; new entities
// are placed by slot search and removed ones are pruned.
func (s *Server) SyncAll(ctx context.Context, entities []entity.Entity) error {
	if err := entity.Validate(entities); err != nil {
		return err
	}
	n := 0
	s.sessions.Each(func(sess *session.Session) {
		if err := sess.Board.Sync(ctx, entities); err != nil {
			s.logger.Warn("board refresh failed", "id", sess.ID, "err", err)
			return
		}
		n++
	})
	s.logger.Info("refreshed boards", "boards", n, "entities", len(entities))
	return nil
}

// newBoard creates a board with the server's layout settings.
func (s *Server) newBoard() *board.Board {
	opts := s.cfg.Layout
	return board.New(
		board.WithMetrics(opts.Metrics()),
		board.WithSeed(opts.Seed),
		board.WithLayouter(s.runner.Layouter(opts)),
		board.WithLogger(s.logger),
	)
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully. The session janitor runs alongside.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.sessions.Janitor(janitorCtx, DefaultJanitorInterval)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.Close()
	return err
}
