// Package telemetry serves the robot's current navigation estimate over a
// small JSON HTTP endpoint and a push websocket feed. It is a read-only
// ambient ops surface, not the graphical visualisation this core otherwise
// leaves out: a dashboard can plot the JSON itself; this package never
// renders anything.
package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	atomic_float "navcore/atomicfloat"
	"navcore/bus"
)

const (
	pushInterval   = 200 * time.Millisecond
	writeWait      = time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Snapshot is the JSON shape served by both the HTTP and websocket endpoints.
type Snapshot struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Theta      float64 `json:"theta"`
	UpdatedAt  int64   `json:"updated_at_ms"`
	QueueDepth int     `json:"queue_depth"`
}

// Feed tracks the latest NavigationEstimate across the scheduler goroutine
// (which writes it) and arbitrary HTTP goroutines (which read it), using the
// same lock-free atomic float primitive the rest of the core relies on for
// cross-goroutine pose state. Each field is stored and read atomically on its
// own; the fields are not published as one unit, so a Snapshot taken while an
// estimate is being stored can combine fields of two consecutive estimates.
type Feed struct {
	x, y, theta *atomic_float.AtomicFloat64
	updatedAt   *atomic_float.AtomicFloat64
}

// NewFeed returns a Feed that subscribes to hub's NavigationEstimate stream.
func NewFeed(hub *bus.Hub) *Feed {
	f := &Feed{
		x:         atomic_float.NewAtomicFloat64(0),
		y:         atomic_float.NewAtomicFloat64(0),
		theta:     atomic_float.NewAtomicFloat64(0),
		updatedAt: atomic_float.NewAtomicFloat64(0),
	}
	hub.AddConsumer(f)
	return f
}

// Consumed satisfies bus.Consumer.
func (f *Feed) Consumed() []bus.MessageID {
	return []bus.MessageID{bus.NavigationEstimateID}
}

// Receive satisfies bus.Consumer.
func (f *Feed) Receive(msg bus.Message) {
	nav, ok := msg.(bus.NavigationEstimate)
	if !ok {
		return
	}
	f.x.AtomicSet(nav.X)
	f.y.AtomicSet(nav.Y)
	f.theta.AtomicSet(nav.Theta)
	f.updatedAt.AtomicSet(float64(nav.TimestampMs()))
}

// Snapshot returns the most recently observed pose, with queueDepth reported
// alongside it as the scheduler's current task count.
func (f *Feed) Snapshot(queueDepth int) Snapshot {
	return Snapshot{
		X:          f.x.AtomicRead(),
		Y:          f.y.AtomicRead(),
		Theta:      f.theta.AtomicRead(),
		UpdatedAt:  int64(f.updatedAt.AtomicRead()),
		QueueDepth: queueDepth,
	}
}

// QueueDepthGauge carries the scheduler's task count across the goroutine
// boundary: the scheduler goroutine is the only writer (it must call Set from
// within a task, where reading its own queue length is safe), and arbitrary
// telemetry goroutines are readers.
type QueueDepthGauge struct {
	depth int64
}

// NewQueueDepthGauge returns a zeroed gauge.
func NewQueueDepthGauge() *QueueDepthGauge { return &QueueDepthGauge{} }

// Set stores the current queue depth. Call only from the scheduler goroutine.
func (g *QueueDepthGauge) Set(n int) { atomic.StoreInt64(&g.depth, int64(n)) }

// Get returns the most recently set queue depth.
func (g *QueueDepthGauge) Get() int { return int(atomic.LoadInt64(&g.depth)) }

// Server serves Feed's snapshots, plus the scheduler's current queue depth,
// over HTTP and websocket.
type Server struct {
	addr       string
	feed       *Feed
	queueDepth func() int
}

// NewServer returns a telemetry Server bound to addr, not yet listening.
// queueDepth is polled on every response to report scheduler load alongside
// the latest pose.
func NewServer(addr string, feed *Feed, queueDepth func() int) *Server {
	return &Server{addr: addr, feed: feed, queueDepth: queueDepth}
}

func (s *Server) snapshot() Snapshot {
	depth := 0
	if s.queueDepth != nil {
		depth = s.queueDepth()
	}
	return s.feed.Snapshot(depth)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
// Mirrors the rest of the core's preference for an errgroup-coordinated
// goroutine pair over a bare go statement plus a WaitGroup.
func (s *Server) Serve(ctx context.Context) error {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.serveSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.serveWebsocket)

	httpServer := &http.Server{Addr: s.addr, Handler: router}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (s *Server) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// serveWebsocket pushes the current snapshot to the client on pushInterval
// until the connection closes or the request's context is cancelled.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("telemetry: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for range channerics.NewTicker(r.Context().Done(), pushInterval) {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(s.snapshot()); err != nil {
			return
		}
	}
}
