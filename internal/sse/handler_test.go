package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mjc-gh/esper/internal/auth"
	"github.com/mjc-gh/esper/internal/broker"
	"github.com/mjc-gh/esper/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func newTestHandler() *Handler {
	m := metrics.New(prometheus.NewRegistry())
	b := broker.New(m, zerolog.Nop())
	g := auth.NewGate("", "")
	return New(b, g, m, zerolog.Nop())
}

func TestUnknownRouteIs404(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/nonsense", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec.Body.String() != notFoundBody {
		t.Fatalf("expected body %q, got %q", notFoundBody, rec.Body.String())
	}
	if rec.Header().Get("Content-Length") != "13" {
		t.Fatalf("expected Content-Length 13, got %q", rec.Header().Get("Content-Length"))
	}
}

func TestInvalidTopicIs404(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/subscribe/short", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for too-short topic, got %d", rec.Code)
	}
}

func TestStatsUnauthorizedIs404(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	b := broker.New(m, zerolog.Nop())
	g := auth.NewGate("secret", "")
	h := New(b, g, m, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when stats requires a token, got %d", rec.Code)
	}
}

func TestStatsReturnsJSONWhenUnauthenticated(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if body != `{"clients":0,"topics":0}` {
		t.Fatalf("unexpected stats body: %q", body)
	}
	if rec.Header().Get("Content-Length") != "24" {
		t.Fatalf("expected Content-Length to match actual body length, got %q", rec.Header().Get("Content-Length"))
	}
}

func TestPublishToTopicWithNoSubscribersIsNoop(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/publish/abcdef123", strings.NewReader("hello"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPublishBodyTruncatedAt4KiB(t *testing.T) {
	h := newTestHandler()
	oversized := strings.Repeat("a", maxBodyBytes+1000)
	req := httptest.NewRequest(http.MethodPost, "/publish/abcdef123", strings.NewReader(oversized))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 even for an oversized body (truncate, don't reject), got %d", rec.Code)
	}
}

// TestSubscribeReceivesPublishedMessage exercises the full round trip: a
// subscribe connection streaming SSE frames while a concurrent publish
// lands on the same topic.
func TestSubscribeReceivesPublishedMessage(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	b := broker.New(m, zerolog.Nop())
	g := auth.NewGate("", "")
	h := New(b, g, m, zerolog.Nop())

	server := httptest.NewServer(h)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/subscribe/abcdef123", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribe request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	// Give the subscribe handler a moment to register before publishing.
	time.Sleep(50 * time.Millisecond)

	pubResp, err := http.Post(server.URL+"/publish/abcdef123", "text/plain", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("publish request failed: %v", err)
	}
	pubResp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("reading SSE stream: %v", err)
	}
	if line != "hello world\n" {
		t.Fatalf("expected first line %q, got %q", "hello world\n", line)
	}
}
