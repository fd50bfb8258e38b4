package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/loreboard/loreboard/pkg/board"
	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/errors"
	"github.com/loreboard/loreboard/pkg/geometry"
	"github.com/loreboard/loreboard/pkg/httputil"
	"github.com/loreboard/loreboard/pkg/layout"
	"github.com/loreboard/loreboard/pkg/session"
)

var world = []entity.Entity{
	{ID: "aria", Name: "Aria", Kind: entity.KindCharacter, Relations: entity.Relations{entity.RelationWields: {"blade"}}},
	{ID: "blade", Name: "Dawn Blade", Kind: entity.KindItem},
	{ID: "keep", Name: "Stormkeep", Kind: entity.KindLocation},
}

type staticSource []entity.Entity

func (s staticSource) Entities(context.Context) ([]entity.Entity, error) { return s, nil }

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s := New(cfg)
	t.Cleanup(s.Sessions().Close)
	return s
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func createBoard(t *testing.T, s *Server, entities []entity.Entity) boardResponse {
	t.Helper()
	rec := do(t, s.Handler(), http.MethodPost, "/boards", createBoardRequest{Entities: entities})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[boardResponse](t, rec)
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec); got["status"] != "ok" {
		t.Errorf("health = %v", got)
	}

	rec = do(t, s.Handler(), http.MethodGet, "/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("version status = %d", rec.Code)
	}
}

func TestCreateBoard(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)

	if resp.ID == "" {
		t.Fatal("empty board id")
	}
	if len(resp.Scene.Positions) != len(world) {
		t.Errorf("positions = %d, want %d", len(resp.Scene.Positions), len(world))
	}
	if len(resp.Scene.Connectors) != 1 || resp.Scene.Connectors[0].ID != "aria:WIELDS:blade" {
		t.Errorf("connectors = %+v", resp.Scene.Connectors)
	}
	if resp.Scene.Viewport != layout.DefaultViewport {
		t.Errorf("viewport = %+v, want default", resp.Scene.Viewport)
	}
	if s.Sessions().Len() != 1 {
		t.Errorf("sessions = %d, want 1", s.Sessions().Len())
	}

	rec := do(t, s.Handler(), http.MethodGet, "/boards/"+resp.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decode[boardResponse](t, rec)
	for id, p := range resp.Scene.Positions {
		if got.Scene.Positions[id] != p {
			t.Errorf("position of %s changed between create and get: %v -> %v", id, p, got.Scene.Positions[id])
		}
	}
}

func TestCreateBoardFromSource(t *testing.T) {
	s := newTestServer(t, Config{Source: staticSource(world)})
	rec := do(t, s.Handler(), http.MethodPost, "/boards", map[string]any{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decode[boardResponse](t, rec); len(got.Scene.Entities) != len(world) {
		t.Errorf("entities = %d, want %d", len(got.Scene.Entities), len(world))
	}
}

func TestCreateBoardErrors(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		name     string
		body     any
		wantCode errors.Code
	}{
		{"DuplicateID", createBoardRequest{Entities: []entity.Entity{{ID: "a"}, {ID: "a"}}}, errors.ErrCodeInvalidEntity},
		{"ColonInID", createBoardRequest{Entities: []entity.Entity{{ID: "a:b"}}}, errors.ErrCodeInvalidEntity},
		{"NegativeViewport", createBoardRequest{Viewport: layout.Viewport{Width: -1, Height: 600}}, errors.ErrCodeInvalidViewport},
		{"UnknownField", map[string]any{"nodes": []string{"a"}}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/boards", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if got := decode[httputil.ErrorBody](t, rec); got.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", got.Error.Code, tt.wantCode)
			}
		})
	}
	if s.Sessions().Len() != 0 {
		t.Errorf("failed creates left %d sessions", s.Sessions().Len())
	}
}

func TestUnknownBoard(t *testing.T) {
	s := newTestServer(t, Config{})

	for _, path := range []string{"/boards/missing", "/boards/missing/svg"} {
		rec := do(t, s.Handler(), http.MethodGet, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
		}
		if got := decode[httputil.ErrorBody](t, rec); got.Error.Code != errors.ErrCodeBoardNotFound {
			t.Errorf("%s: code = %s", path, got.Error.Code)
		}
	}

	rec := do(t, s.Handler(), http.MethodGet, "/nowhere", nil)
	if got := decode[httputil.ErrorBody](t, rec); rec.Code != http.StatusNotFound || got.Error.Code != errors.ErrCodeNotFound {
		t.Errorf("unknown route: %d %s", rec.Code, got.Error.Code)
	}
}

func TestDeleteBoard(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)

	if rec := do(t, s.Handler(), http.MethodDelete, "/boards/"+resp.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(t, s.Handler(), http.MethodDelete, "/boards/"+resp.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
	if rec := do(t, s.Handler(), http.MethodGet, "/boards/"+resp.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestSyncEntitiesKeepsPositions(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)

	next := append([]entity.Entity{}, world[:2]...)
	next = append(next, entity.Entity{ID: "oracle", Kind: entity.KindCharacter})
	rec := do(t, s.Handler(), http.MethodPut, "/boards/"+resp.ID+"/entities", syncRequest{Entities: next})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[boardResponse](t, rec)

	for _, id := range []string{"aria", "blade"} {
		if got.Scene.Positions[id] != resp.Scene.Positions[id] {
			t.Errorf("%s moved on refresh: %v -> %v", id, resp.Scene.Positions[id], got.Scene.Positions[id])
		}
	}
	if _, ok := got.Scene.Positions["keep"]; ok {
		t.Error("removed entity keep still has a position")
	}
	if _, ok := got.Scene.Positions["oracle"]; !ok {
		t.Error("new entity oracle was not placed")
	}
	if got.Version <= resp.Version {
		t.Errorf("version = %d, want > %d", got.Version, resp.Version)
	}
}

func TestAddEntity(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)

	rec := do(t, s.Handler(), http.MethodPost, "/boards/"+resp.ID+"/entities", entity.Entity{ID: "tower", Kind: entity.KindLocation})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[addEntityResponse](t, rec)
	if got.ID != "tower" {
		t.Errorf("id = %q", got.ID)
	}

	sess, err := s.Sessions().Get(resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := sess.Board.Position("tower"); !ok || p != got.Position {
		t.Errorf("board position = %v, %v; response %v", p, ok, got.Position)
	}

	rec = do(t, s.Handler(), http.MethodPost, "/boards/"+resp.ID+"/entities", entity.Entity{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty id status = %d, want 400", rec.Code)
	}
}

func TestRelayout(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)

	rec := do(t, s.Handler(), http.MethodPost, "/boards/"+resp.ID+"/relayout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[boardResponse](t, rec)
	if len(got.Scene.Positions) != len(world) {
		t.Errorf("positions = %d, want %d", len(got.Scene.Positions), len(world))
	}
	if got.Version <= resp.Version {
		t.Errorf("version = %d, want > %d", got.Version, resp.Version)
	}
}

func TestPointerDrag(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)
	sess, err := s.Sessions().Get(resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	path := "/boards/" + resp.ID + "/pointer"

	start := resp.Scene.Positions["aria"]
	grab := start.Add(geometry.Point{X: 10, Y: 10})

	rec := do(t, s.Handler(), http.MethodPost, path, pointerRequest{Type: "down", EntityID: "aria", PointerID: 1, ClientX: grab.X, ClientY: grab.Y})
	if got := decode[pointerResponse](t, rec); got.State != "dragging" || got.EntityID != "aria" {
		t.Fatalf("after down: %+v", got)
	}

	delta := geometry.Point{X: -30, Y: -20}
	want := sess.Board.Bounds().Clamp(start.Add(delta))
	to := grab.Add(delta)
	rec = do(t, s.Handler(), http.MethodPost, path, pointerRequest{Type: "move", PointerID: 1, ClientX: to.X, ClientY: to.Y, MovementX: delta.X, MovementY: delta.Y})
	got := decode[pointerResponse](t, rec)
	if !got.Moved || got.Position == nil || *got.Position != want {
		t.Fatalf("after move: %+v, want position %v", got, want)
	}

	rec = do(t, s.Handler(), http.MethodPost, path, pointerRequest{Type: "up", PointerID: 1})
	got = decode[pointerResponse](t, rec)
	if got.State != "idle" || got.Click {
		t.Errorf("after up: %+v", got)
	}
	if p, _ := sess.Board.Position("aria"); p != want {
		t.Errorf("final position = %v, want %v", p, want)
	}
}

func TestPointerClick(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)
	path := "/boards/" + resp.ID + "/pointer"

	p := resp.Scene.Positions["blade"]
	do(t, s.Handler(), http.MethodPost, path, pointerRequest{Type: "down", EntityID: "blade", PointerID: 2, ClientX: p.X, ClientY: p.Y})
	rec := do(t, s.Handler(), http.MethodPost, path, pointerRequest{Type: "up", PointerID: 2})
	if got := decode[pointerResponse](t, rec); !got.Click {
		t.Errorf("down then up without movement should be a click: %+v", got)
	}

	rec = do(t, s.Handler(), http.MethodPost, path, pointerRequest{Type: "hover"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown pointer type status = %d, want 400", rec.Code)
	}
}

func TestZoom(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)
	path := "/boards/" + resp.ID + "/zoom"

	z := func(v float64) *float64 { return &v }
	tests := []struct {
		name string
		body zoomRequest
		want float64
	}{
		{"In", zoomRequest{Action: "in"}, 1.1},
		{"Set", zoomRequest{Zoom: z(1.7)}, 1.7},
		{"ClampHigh", zoomRequest{Zoom: z(9)}, board.MaxZoom},
		{"Out", zoomRequest{Action: "out"}, 1.9},
		{"ClampLow", zoomRequest{Zoom: z(0.1)}, board.MinZoom},
		{"Reset", zoomRequest{Action: "reset"}, board.DefaultZoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPut, path, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if got := decode[map[string]float64](t, rec)["zoom"]; got != tt.want {
				t.Errorf("zoom = %v, want %v", got, tt.want)
			}
		})
	}

	for _, body := range []zoomRequest{{}, {Action: "spin"}, {Zoom: z(1), Action: "in"}} {
		if rec := do(t, s.Handler(), http.MethodPut, path, body); rec.Code != http.StatusBadRequest {
			t.Errorf("%+v: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestViewportAndMount(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)
	base := "/boards/" + resp.ID

	rec := do(t, s.Handler(), http.MethodPut, base+"/viewport", layout.Viewport{Width: 1600, Height: 900})
	if got := decode[layout.Viewport](t, rec); got != (layout.Viewport{Width: 1600, Height: 900}) {
		t.Errorf("viewport = %+v", got)
	}
	rec = do(t, s.Handler(), http.MethodPut, base+"/viewport", layout.Viewport{})
	if got := decode[layout.Viewport](t, rec); got != layout.DefaultViewport {
		t.Errorf("unmeasured viewport = %+v, want default", got)
	}
	rec = do(t, s.Handler(), http.MethodPut, base+"/viewport", layout.Viewport{Width: -5})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative viewport status = %d", rec.Code)
	}

	rec = do(t, s.Handler(), http.MethodPut, base+"/mount", mountRequest{X: 20, Y: 64})
	if got := decode[map[string]any](t, rec); got["mounted"] != true {
		t.Errorf("mount = %v", got)
	}

	// Pointer events on an unmounted board are ignored.
	no := false
	do(t, s.Handler(), http.MethodPut, base+"/mount", mountRequest{Mounted: &no})
	p := resp.Scene.Positions["aria"]
	rec = do(t, s.Handler(), http.MethodPost, base+"/pointer", pointerRequest{Type: "down", EntityID: "aria", PointerID: 1, ClientX: p.X, ClientY: p.Y})
	if got := decode[pointerResponse](t, rec); got.State != "idle" {
		t.Errorf("down on unmounted board: %+v", got)
	}
}

func TestSVG(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)

	rec := do(t, s.Handler(), http.MethodGet, "/boards/"+resp.ID+"/svg?labels=false", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `id="card-aria"`) {
		t.Error("svg is missing the aria card")
	}
	if strings.Contains(body, "connector-label") {
		t.Error("labels=false still drew connector labels")
	}
}

func TestPNG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz rendering is slow")
	}
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)

	rec := do(t, s.Handler(), http.MethodGet, "/boards/"+resp.ID+"/png", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("response is not a PNG")
	}
}

func TestExpiredBoard(t *testing.T) {
	s := newTestServer(t, Config{SessionTTL: time.Nanosecond})
	resp := createBoard(t, s, world)
	time.Sleep(time.Millisecond)

	rec := do(t, s.Handler(), http.MethodGet, "/boards/"+resp.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWebsocketStream(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/boards/" + resp.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg StreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageSnapshot || msg.Scene == nil || len(msg.Scene.Positions) != len(world) {
		t.Fatalf("first message = %+v", msg)
	}

	// A zoom over HTTP reaches the stream.
	do(t, s.Handler(), http.MethodPut, "/boards/"+resp.ID+"/zoom", zoomRequest{Action: "in"})
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageChange || msg.Change == nil || msg.Change.Kind != board.ChangeZoom || msg.Change.Zoom != 1.1 {
		t.Fatalf("zoom message = %+v", msg)
	}

	// Pointer events sent over the socket drag cards.
	reset := 1.0
	do(t, s.Handler(), http.MethodPut, "/boards/"+resp.ID+"/zoom", zoomRequest{Zoom: &reset})
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}

	p := resp.Scene.Positions["keep"]
	for _, req := range []pointerRequest{
		{Type: "down", EntityID: "keep", PointerID: 1, ClientX: p.X + 5, ClientY: p.Y + 5},
		{Type: "move", PointerID: 1, ClientX: p.X, ClientY: p.Y, MovementX: -5, MovementY: -5},
		{Type: "up", PointerID: 1},
	} {
		if err := conn.WriteJSON(req); err != nil {
			t.Fatal(err)
		}
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Change == nil || msg.Change.Kind != board.ChangeMoved {
		t.Fatalf("drag message = %+v", msg)
	}
	if _, ok := msg.Positions["keep"]; !ok {
		t.Errorf("moved message has no position for keep: %+v", msg.Positions)
	}

	// Deleting the board ends the stream.
	do(t, s.Handler(), http.MethodDelete, "/boards/"+resp.ID, nil)
	for {
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
				t.Errorf("stream ended with %v, want going away", err)
			}
			break
		}
	}
}

func TestSessionsEvictedOnDelete(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := createBoard(t, s, world)
	sess, err := s.Sessions().Get(resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	s.Sessions().Delete(resp.ID)

	select {
	case <-sess.Done():
	default:
		t.Error("deleted session was not closed")
	}
	if _, err := s.Sessions().Get(resp.ID); err != session.ErrNotFound {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
}

func TestSyncAll(t *testing.T) {
	s := newTestServer(t, Config{})
	first := createBoard(t, s, world)
	second := createBoard(t, s, world[:1])

	next := append([]entity.Entity{}, world[:2]...)
	next = append(next, entity.Entity{ID: "oracle"})
	if err := s.SyncAll(context.Background(), next); err != nil {
		t.Fatal(err)
	}

	for _, resp := range []boardResponse{first, second} {
		sess, err := s.Sessions().Get(resp.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got := len(sess.Board.Entities()); got != len(next) {
			t.Errorf("board %s has %d entities, want %d", resp.ID, got, len(next))
		}
		if p, ok := sess.Board.Position("aria"); !ok || p != resp.Scene.Positions["aria"] {
			t.Errorf("board %s moved aria: %v -> %v", resp.ID, resp.Scene.Positions["aria"], p)
		}
		if sess.Board.Has("keep") {
			t.Errorf("board %s kept a removed entity", resp.ID)
		}
	}

	if err := s.SyncAll(context.Background(), []entity.Entity{{ID: "x"}, {ID: "x"}}); !errors.Is(err, errors.ErrCodeInvalidEntity) {
		t.Errorf("SyncAll() with duplicates = %v, want INVALID_ENTITY", err)
	}
}
