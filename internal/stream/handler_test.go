package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	leaddomain "leadpulse/backend/internal/lead/domain"
)

func TestHandler_MissingTenant(t *testing.T) {
	h := NewHandler(NewRegistry(&fakeReader{}, time.Minute, time.Minute))

	r := httptest.NewRequest("GET", "/api/stream", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandler_HeadProbe(t *testing.T) {
	h := NewHandler(NewRegistry(&fakeReader{}, time.Minute, time.Minute))

	r := httptest.NewRequest("HEAD", "/api/stream?tenant=t1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != 200 {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}
	if w.Body.Len() != 0 {
		t.Errorf("HEAD body = %q, want empty", w.Body.String())
	}
}

func TestHandler_StreamsFrames(t *testing.T) {
	reader := &fakeReader{}
	reg := NewRegistry(reader, 5*time.Millisecond, time.Minute)
	defer reg.CloseAll()
	h := NewHandler(reg)

	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest("GET", "/api/stream?tenant=t1", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(w, r)
	}()

	// Let the connection comment, ready event, and a change flow.
	time.Sleep(30 * time.Millisecond)
	reader.set(&leaddomain.Summary{
		ID: "ev-1", TenantKey: "t1", CampaignKey: "c1",
		Source: leaddomain.SourceMeta, ReceivedAt: time.Now().UTC(),
	})
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after context cancellation")
	}

	body := w.Body.String()
	if !strings.Contains(body, ": connected") {
		t.Errorf("body missing connection comment:\n%s", body)
	}
	if !strings.Contains(body, "event: ready") {
		t.Errorf("body missing ready event:\n%s", body)
	}
	if !strings.Contains(body, "event: lead_created") || !strings.Contains(body, `"id":"ev-1"`) {
		t.Errorf("body missing lead_created frame:\n%s", body)
	}
	if got := w.Header().Get("X-Accel-Buffering"); got != "no" {
		t.Errorf("X-Accel-Buffering = %q, want %q", got, "no")
	}
}
