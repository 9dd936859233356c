// Package sse implements the HTTP-facing connection state machine
// (route classification, publish ingestion, subscribe streaming) on top
// of net/http. net/http already gives each accepted connection its own
// goroutine and abstracts the Length/Chunked request-body distinction
// behind io.Reader, so the state machine's "read/write/wait/end" action
// set collapses into ordinary blocking goroutine control flow: a
// subscribe connection's goroutine just blocks on a channel instead of
// returning `wait` to an engine loop.
package sse

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/mjc-gh/esper/internal/auth"
	"github.com/mjc-gh/esper/internal/broker"
	"github.com/mjc-gh/esper/internal/identifiers"
	"github.com/mjc-gh/esper/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	subscribePrefix = "/subscribe/"
	publishPrefix   = "/publish/"

	// maxBodyBytes caps a publish body at 4 KiB. Larger bodies are
	// truncated, not rejected.
	maxBodyBytes = 4096

	notFoundBody = "404 Not Found"
)

// Handler dispatches every accepted connection to the route table in
// spec.md §4.D: GET /stats, GET /subscribe/<id>, POST /publish/<id>,
// else 404.
type Handler struct {
	broker  *broker.Broker
	gate    *auth.Gate
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New constructs a Handler over the shared Broker and Access Gate. Every
// worker executor serves the same Handler instance (spec.md §4.E).
func New(b *broker.Broker, g *auth.Gate, m *metrics.Metrics, log zerolog.Logger) *Handler {
	return &Handler{broker: b, gate: g, metrics: m, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncConnection()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/stats":
		h.handleStats(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, subscribePrefix):
		h.handleSubscribe(w, r)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, publishPrefix):
		h.handlePublish(w, r)
	default:
		writeNotFound(w)
	}
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if !h.gate.AuthorizedForStats(token) {
		h.metrics.IncAuthRejection("stats")
		writeNotFound(w)
		return
	}

	body, err := h.broker.StatsJSON()
	if err != nil {
		h.log.Warn().Err(err).Msg("sse: stats serialization failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	topic, ok := identifiers.ValidateTopic(len(publishPrefix), r.URL.Path)
	if !ok {
		writeNotFound(w)
		return
	}

	token := r.URL.Query().Get("token")
	if !h.gate.AuthorizedForPublish(topic, token) {
		h.metrics.IncAuthRejection("publish")
		writeNotFound(w)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		// Transport error mid-read: terminate without a response body,
		// matching the state machine's `end` action.
		return
	}

	h.broker.Publish(topic, payload)
	w.WriteHeader(http.StatusOK)
}

// channelWaker is the wake handle a Subscribe connection hands to the
// Broker: a buffered, non-blocking signal channel. Signal must never
// block, so the channel holds at most one pending wake — coalescing
// multiple publishes between reads, since the reader always drains the
// full queue on wake.
type channelWaker struct {
	ch chan struct{}
}

func newChannelWaker() channelWaker {
	return channelWaker{ch: make(chan struct{}, 1)}
}

func (w channelWaker) Signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic, ok := identifiers.ValidateTopic(len(subscribePrefix), r.URL.Path)
	if !ok {
		writeNotFound(w)
		return
	}

	token := r.URL.Query().Get("token")
	if !h.gate.AuthorizedForSubscribe(topic, token) {
		h.metrics.IncAuthRejection("subscribe")
		writeNotFound(w)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeNotFound(w)
		return
	}

	client := identifiers.NewClient()
	waker := newChannelWaker()
	h.broker.Subscribe(client, topic, waker)
	defer h.broker.Unsubscribe(client, topic)

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-waker.ch:
			for _, msg := range h.broker.MessagesFor(client) {
				if _, err := w.Write(msg.Bytes()); err != nil {
					return
				}
			}
			flusher.Flush()
		}
	}
}

func writeNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Length", strconv.Itoa(len(notFoundBody)))
	w.WriteHeader(http.StatusNotFound)
	io.WriteString(w, notFoundBody)
}
