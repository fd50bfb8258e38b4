package server

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loreboard/loreboard/pkg/buildinfo"
	"github.com/loreboard/loreboard/pkg/drag"
	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/errors"
	"github.com/loreboard/loreboard/pkg/geometry"
	"github.com/loreboard/loreboard/pkg/httputil"
	"github.com/loreboard/loreboard/pkg/layout"
	"github.com/loreboard/loreboard/pkg/render"
	"github.com/loreboard/loreboard/pkg/scene"
	"github.com/loreboard/loreboard/pkg/session"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves the {id} URL parameter to a live session.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, err := s.sessions.Get(id)
		if err != nil {
			msg := "board %s not found"
			if stderrors.Is(err, session.ErrExpired) {
				msg = "board %s expired"
			}
			httputil.WriteError(w, errors.Wrap(errors.ErrCodeBoardNotFound, err, msg, id))
			return
		}
		h(w, r, sess)
	}
}

func errNotFound(path string) error {
	return errors.New(errors.ErrCodeNotFound, "no route for %s", path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"boards": s.sessions.Len(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, buildinfo.Get())
}

// =============================================================================
// Boards
// =============================================================================

type createBoardRequest struct {
	Entities []entity.Entity `json:"entities"`
	Viewport layout.Viewport `json:"viewport"`
}

type boardResponse struct {
	ID      string      `json:"id"`
	Version uint64      `json:"version"`
	Scene   scene.Scene `json:"scene"`
}

func newBoardResponse(sess *session.Session) boardResponse {
	return boardResponse{
		ID:      sess.ID,
		Version: sess.Board.Version(),
		Scene:   sess.Board.Snapshot(),
	}
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var req createBoardRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := errors.ValidateViewport(req.Viewport.Width, req.Viewport.Height); err != nil {
		httputil.WriteError(w, err)
		return
	}

	entities := req.Entities
	if entities == nil && s.cfg.Source != nil {
		loaded, err := s.cfg.Source.Entities(r.Context())
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		entities = loaded
	}
	if err := validateIDs(entities); err != nil {
		httputil.WriteError(w, err)
		return
	}

	b := s.newBoard()
	b.SetViewport(req.Viewport)
	if err := b.Sync(r.Context(), entities); err != nil {
		httputil.WriteError(w, err)
		return
	}

	sess := session.New(b, s.logger)
	s.sessions.Add(sess)
	s.logger.Info("board created", "id", sess.ID, "entities", len(entities))

	httputil.WriteJSON(w, http.StatusCreated, newBoardResponse(sess))
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	httputil.WriteJSON(w, http.StatusOK, newBoardResponse(sess))
}

func (s *Server) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.Delete(id) {
		httputil.WriteError(w, errors.New(errors.ErrCodeBoardNotFound, "board %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Entities
// =============================================================================

type syncRequest struct {
	Entities []entity.Entity `json:"entities"`
}

func (s *Server) handleSyncEntities(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req syncRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := validateIDs(req.Entities); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := sess.Board.Sync(r.Context(), req.Entities); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newBoardResponse(sess))
}

type addEntityResponse struct {
	ID       string         `json:"id"`
	Position geometry.Point `json:"position"`
	Version  uint64         `json:"version"`
}

func (s *Server) handleAddEntity(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var e entity.Entity
	if err := httputil.DecodeJSON(r, &e); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := errors.ValidateEntityID(e.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := sess.Board.AddEntity(r.Context(), e)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, addEntityResponse{
		ID:       e.ID,
		Position: p,
		Version:  sess.Board.Version(),
	})
}

func (s *Server) handleRelayout(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Board.Relayout(context.WithoutCancel(r.Context()))
	httputil.WriteJSON(w, http.StatusOK, newBoardResponse(sess))
}

func validateIDs(entities []entity.Entity) error {
	for _, e := range entities {
		if err := errors.ValidateEntityID(e.ID); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Pointer, zoom and view
// =============================================================================

type pointerRequest struct {
	Type      drag.EventType `json:"type"`
	EntityID  string         `json:"entity_id,omitempty"`
	PointerID int            `json:"pointer_id"`
	ClientX   float64        `json:"client_x"`
	ClientY   float64        `json:"client_y"`
	MovementX float64        `json:"movement_x"`
	MovementY float64        `json:"movement_y"`
}

func (p pointerRequest) event() (drag.Event, error) {
	switch p.Type {
	case drag.PointerDown, drag.PointerMove, drag.PointerUp:
	default:
		return drag.Event{}, errors.New(errors.ErrCodeInvalidInput, "pointer type must be down, move or up, got %q", p.Type)
	}
	return drag.Event{
		Type:      p.Type,
		PointerID: p.PointerID,
		EntityID:  p.EntityID,
		Client:    geometry.Point{X: p.ClientX, Y: p.ClientY},
		Movement:  geometry.Point{X: p.MovementX, Y: p.MovementY},
	}, nil
}

type pointerResponse struct {
	State    string          `json:"state"`
	EntityID string          `json:"entity_id,omitempty"`
	Position *geometry.Point `json:"position,omitempty"`
	Moved    bool            `json:"moved"`
	Click    bool            `json:"click"`
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req pointerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	ev, err := req.event()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sess.Pointer.Emit(ev)
	httputil.WriteJSON(w, http.StatusOK, pointerState(sess, req.EntityID, ev.Type == drag.PointerUp))
}

func pointerState(sess *session.Session, lastID string, released bool) pointerResponse {
	state, id := sess.Drag.State()
	resp := pointerResponse{State: state.String(), EntityID: id, Moved: sess.Drag.Moved()}
	if id == "" {
		id = lastID
	}
	if p, ok := sess.Board.Position(id); ok && id != "" {
		resp.Position = &p
	}
	if released {
		resp.Click = sess.Drag.ConsumeClick()
	}
	return resp
}

type zoomRequest struct {
	Zoom   *float64 `json:"zoom,omitempty"`
	Action string   `json:"action,omitempty"`
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req zoomRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	var z float64
	switch {
	case req.Zoom != nil && req.Action == "":
		z = sess.Board.SetZoom(*req.Zoom)
	case req.Zoom == nil && req.Action == "in":
		z = sess.Board.ZoomIn()
	case req.Zoom == nil && req.Action == "out":
		z = sess.Board.ZoomOut()
	case req.Zoom == nil && req.Action == "reset":
		z = sess.Board.ResetZoom()
	default:
		httputil.WriteError(w, errors.New(errors.ErrCodeInvalidInput, "zoom request needs either zoom or action (in, out, reset)"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]float64{"zoom": z})
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var vp layout.Viewport
	if err := httputil.DecodeJSON(r, &vp); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := errors.ValidateViewport(vp.Width, vp.Height); err != nil {
		httputil.WriteError(w, err)
		return
	}
	sess.Board.SetViewport(vp)
	httputil.WriteJSON(w, http.StatusOK, sess.Board.Viewport())
}

type mountRequest struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Mounted *bool   `json:"mounted,omitempty"`
}

func (s *Server) handleMount(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req mountRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Mounted != nil && !*req.Mounted {
		sess.Surface.Unmount()
	} else {
		sess.Surface.Set(geometry.Point{X: req.X, Y: req.Y})
	}
	origin, ok := sess.Surface.Origin()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"mounted": ok, "origin": origin})
}

// =============================================================================
// Rendering
// =============================================================================

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var opts []render.SVGOption
	q := r.URL.Query()
	if q.Get("zoom") == "true" {
		opts = append(opts, render.WithZoom())
	}
	if q.Get("labels") == "false" {
		opts = append(opts, render.WithoutLabels())
	}
	if state, id := sess.Drag.State(); state == drag.Dragging {
		opts = append(opts, render.WithHighlight(id))
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(render.RenderSVG(sess.Board.Snapshot(), opts...))
}

func (s *Server) handlePNG(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	png, err := render.RenderPNG(r.Context(), sess.Board.Snapshot())
	if err != nil {
		httputil.WriteError(w, errors.Wrap(errors.ErrCodeInternal, err, "render png"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
