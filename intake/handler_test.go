package intake

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eventpipe/internal"
)

type stubPublisher struct {
	topics []string
	envs   []internal.Envelope
	err    error
}

func (p *stubPublisher) Publish(ctx context.Context, topic string, env internal.Envelope) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.envs = append(p.envs, env)
	return nil
}

func (p *stubPublisher) PublishForDrivers(ctx context.Context, topic string, env internal.Envelope, drivers []string) error {
	return p.Publish(ctx, topic, env)
}

func (p *stubPublisher) Close() error { return nil }

func newTestHandler(pub internal.Publisher, maxBody int64) *Handler {
	cfg := internal.IntakeConfig{Enabled: true, Path: "/events", Source: "http", Topic: "events.raw"}
	return NewHandler(cfg, pub, maxBody, nil)
}

// TestHandlerPublishesEnvelope tests that a valid event is wrapped and published.
func TestHandlerPublishesEnvelope(t *testing.T) {
	pub := &stubPublisher{}
	h := newTestHandler(pub, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"level": 7}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(pub.envs) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.envs))
	}
	if pub.topics[0] != "events.raw" {
		t.Fatalf("expected topic events.raw, got %q", pub.topics[0])
	}
	env := pub.envs[0]
	if env.Source != "http" {
		t.Fatalf("expected source http, got %q", env.Source)
	}
	if !strings.Contains(string(env.Payload), `"level"`) {
		t.Fatalf("expected payload to carry the event, got %s", env.Payload)
	}
	if !strings.Contains(string(env.Payload), "eventpipe") {
		t.Fatalf("expected source stamp in payload, got %s", env.Payload)
	}
}

// TestHandlerSourceHeaderOverride tests the X-Event-Source header.
func TestHandlerSourceHeaderOverride(t *testing.T) {
	pub := &stubPublisher{}
	h := newTestHandler(pub, 0)

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{}`))
	req.Header.Set("X-Event-Source", "syslog")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if pub.envs[0].Source != "syslog" {
		t.Fatalf("expected source syslog, got %q", pub.envs[0].Source)
	}
}

// TestHandlerRejectsMalformedBody tests the 400 path.
func TestHandlerRejectsMalformedBody(t *testing.T) {
	pub := &stubPublisher{}
	h := newTestHandler(pub, 0)

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(pub.envs) != 0 {
		t.Fatalf("expected no publish for malformed body")
	}
}

// TestHandlerRejectsNonPost tests the method guard.
func TestHandlerRejectsNonPost(t *testing.T) {
	h := newTestHandler(&stubPublisher{}, 0)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

// TestHandlerBodyLimit tests that an oversized body is rejected.
func TestHandlerBodyLimit(t *testing.T) {
	pub := &stubPublisher{}
	h := newTestHandler(pub, 8)

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"field": "a long value"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if len(pub.envs) != 0 {
		t.Fatalf("expected no publish for oversized body")
	}
}
