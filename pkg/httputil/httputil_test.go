package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/loreboard/loreboard/pkg/errors"
	"github.com/loreboard/loreboard/pkg/observability"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   errors.Code
		wantMsg    string
	}{
		{"NotFound", errors.New(errors.ErrCodeBoardNotFound, "board %s not found", "x"), 404, errors.ErrCodeBoardNotFound, "board x not found"},
		{"Invalid", errors.New(errors.ErrCodeInvalidViewport, "bad viewport"), 400, errors.ErrCodeInvalidViewport, "bad viewport"},
		{"Plain", fmt.Errorf("disk on fire"), 500, errors.ErrCodeInternal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var body ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error.Code != tt.wantCode || body.Error.Message != tt.wantMsg {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Zoom float64 `json:"zoom"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"Valid", `{"zoom": 1.5}`, false},
		{"Empty", ``, true},
		{"Malformed", `{"zoom":`, true},
		{"UnknownField", `{"zoom": 1, "scale": 2}`, true},
		{"Trailing", `{"zoom": 1} {"zoom": 2}`, true},
		{"TooLarge", `{"zoom": 1, "pad": "` + strings.Repeat("x", MaxBodySize) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(r, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("code = %q, want INVALID_INPUT", errors.GetCode(err))
			}
			if !tt.wantErr && p.Zoom != 1.5 {
				t.Errorf("Zoom = %v", p.Zoom)
			}
		})
	}
}

type recordingHooks struct {
	observability.NoopHTTPHooks
	mu       sync.Mutex
	requests []string
	statuses []int
}

func (h *recordingHooks) OnRequest(_ context.Context, method, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, method+" "+path)
}

func (h *recordingHooks) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

func TestHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	h := Hooks(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boards/1", nil))

	if len(hooks.requests) != 1 || hooks.requests[0] != "GET /boards/1" {
		t.Errorf("requests = %v", hooks.requests)
	}
	if len(hooks.statuses) != 1 || hooks.statuses[0] != http.StatusTeapot {
		t.Errorf("statuses = %v", hooks.statuses)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
		_, _ = io.WriteString(w, "ok")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	out := buf.String()
	if !strings.Contains(out, "path=/ok") || !strings.Contains(out, "status=200") {
		t.Errorf("missing request log:\n%s", out)
	}
	if !strings.Contains(out, "request failed") || !strings.Contains(out, "status=500") {
		t.Errorf("missing error log:\n%s", out)
	}
}

func TestCORS(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/boards", nil))
	if rec.Code != http.StatusNoContent || called {
		t.Errorf("preflight: status %d, handler called %v", rec.Code, called)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing Allow-Origin header")
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boards", nil))
	if !called {
		t.Error("GET should reach the handler")
	}
}
