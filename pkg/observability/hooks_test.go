package observability

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"
)

// recorder logs every drag and placement event it sees.
type recorder struct {
	NoopLayoutHooks
	NoopDragHooks

	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) OnPlacement(_ context.Context, id string, _ int, fallback bool) {
	if fallback {
		r.add("fallback " + id)
		return
	}
	r.add("place " + id)
}

func (r *recorder) OnDragStart(id string) { r.add("start " + id) }

func (r *recorder) OnDragEnd(id string, moved bool, _ time.Duration) {
	if moved {
		r.add("drag " + id)
		return
	}
	r.add("click " + id)
}

func TestDefaultsAreNoop(t *testing.T) {
	Reset()
	ctx := context.Background()

	checks := []struct {
		name string
		ok   bool
	}{
		{"Layout", Layout() == LayoutHooks(NoopLayoutHooks{})},
		{"Drag", Drag() == DragHooks(NoopDragHooks{})},
		{"Cache", Cache() == CacheHooks(NoopCacheHooks{})},
		{"HTTP", HTTP() == HTTPHooks(NoopHTTPHooks{})},
	}
	for _, c := range checks {
		if !c.ok {
			t.Errorf("%s() is not the no-op default", c.name)
		}
	}

	// No-ops accept every call.
	Layout().OnLayoutComplete(ctx, 12, time.Second, true)
	Drag().OnDragAbandoned("aria")
	Cache().OnCacheSet(ctx, "layout", 1024)
	HTTP().OnResponse(ctx, "GET", "/boards/x", 200, time.Millisecond)
}

func TestRecordingHooks(t *testing.T) {
	defer Reset()
	rec := &recorder{}
	SetLayoutHooks(rec)
	SetDragHooks(rec)

	ctx := context.Background()
	Layout().OnPlacement(ctx, "keep", 1, false)
	Layout().OnPlacement(ctx, "oath", 200, true)
	Drag().OnDragStart("aria")
	Drag().OnDragEnd("aria", true, time.Millisecond)
	Drag().OnDragStart("blade")
	Drag().OnDragEnd("blade", false, time.Millisecond)

	want := []string{"place keep", "fallback oath", "start aria", "drag aria", "start blade", "click blade"}
	if !slices.Equal(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestSetNilIgnored(t *testing.T) {
	defer Reset()
	rec := &recorder{}
	SetDragHooks(rec)
	SetDragHooks(nil)
	if Drag() != DragHooks(rec) {
		t.Error("SetDragHooks(nil) replaced the installed hooks")
	}

	Reset()
	if Drag() != DragHooks(NoopDragHooks{}) {
		t.Error("Reset() did not restore the no-op hooks")
	}
}

func TestConcurrentAccess(t *testing.T) {
	defer Reset()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				SetCacheHooks(NoopCacheHooks{})
				return
			}
			Cache().OnCacheHit(context.Background(), "layout")
		}()
	}
	wg.Wait()
}
