// Package live pushes refresh signals to connected browsers over websockets.
// A signal carries no content; the browser re-fetches the mounted region.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/state"
)

const writeTimeout = 5 * time.Second

var (
	connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mentor_live_connections",
		Help: "Open live refresh websockets",
	})
	signalsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mentor_live_signals_total",
		Help: "Refresh signals written to browsers",
	})
	heldSignals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mentor_live_held_signals_total",
		Help: "Refresh signals dropped while the hub was held",
	})
)

// Subscriber is the part of the state manager the hub listens to.
type Subscriber interface {
	Subscribe(l state.Listener) (unsubscribe func())
}

type client struct {
	// pending holds at most one signal; bursts of changes coalesce.
	pending chan struct{}
}

// Hub fans change notifications out to every open connection.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	held    int
	done    chan struct{}
	wg      sync.WaitGroup

	originPatterns []string
}

// Option configures a Hub.
type Option func(*Hub)

// WithOriginPatterns allows cross-origin websocket connections from the
// given host patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.originPatterns = patterns }
}

// New creates a hub with no connections.
func New(opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Attach notifies the hub after every state write. The returned function
// detaches it.
func (h *Hub) Attach(s Subscriber) (detach func()) {
	return s.Subscribe(func(model.Snapshot) { h.Notify() })
}

// Notify signals every connection without blocking. Nothing is sent while
// the hub is held.
func (h *Hub) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.held > 0 {
		heldSignals.Inc()
		return
	}
	for c := range h.clients {
		select {
		case c.pending <- struct{}{}:
		default:
		}
	}
}

// Hold drops signals until release is called. It wraps writes whose page
// the browser keeps in place, such as a draft saved while typing.
func (h *Hub) Hold() (release func()) {
	h.mu.Lock()
	h.held++
	h.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			h.held--
			h.mu.Unlock()
		})
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register() (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &client{pending: make(chan struct{}, 1)}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	connections.Inc()
	return c, true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	connections.Dec()
	h.wg.Done()
}

// ServeHTTP upgrades the request and writes a "refresh" text message for
// every coalesced change until the browser goes away or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		slog.Warn("failed to accept websocket", "error", err)
		return
	}
	c, ok := h.register()
	if !ok {
		_ = ws.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.unregister(c)

	// The browser never sends anything; CloseRead handles control frames
	// and cancels ctx when the connection drops.
	ctx := ws.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			_ = ws.CloseNow()
			return
		case <-h.done:
			_ = ws.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-c.pending:
			if err := h.write(ctx, ws); err != nil {
				slog.Debug("live write failed", "error", err)
				_ = ws.CloseNow()
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, ws *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := ws.Write(ctx, websocket.MessageText, []byte("refresh")); err != nil {
		return err
	}
	signalsSent.Inc()
	return nil
}

// Close disconnects every browser and waits for the connection handlers to
// return. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
	h.mu.Unlock()
	h.wg.Wait()
}
