// Package observer streams simulation frames to websocket clients
package observer

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/lixenwraith/hvz/engine"
	"github.com/lixenwraith/hvz/parameter"
	"github.com/lixenwraith/hvz/status"
)

// FrameType tags every message sent on /ws
const FrameType = "FRAME"

// Frame is one published tick
type Frame struct {
	Type        string              `json:"type"`
	RunID       string              `json:"run_id,omitempty"`
	Snapshot    engine.Snapshot     `json:"snapshot"`
	Conversions []engine.Conversion `json:"conversions,omitempty"`
	Metrics     map[string]any      `json:"metrics,omitempty"`
}

const writeTimeout = 5 * time.Second

// Server fans frames out to websocket observers
// Publish never blocks the simulation; a client whose buffer is full is dropped
type Server struct {
	log      *log.Logger
	registry *status.Registry
	runID    string

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	buffer   int

	mu      sync.RWMutex
	latest  []byte
	clients map[uint64]chan []byte
	closed  bool

	clientGauge *atomic.Int64
}

// NewServer creates a hub; registry may be nil
func NewServer(logger *log.Logger, registry *status.Registry, runID string) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		log:      logger,
		registry: registry,
		runID:    runID,
		buffer:   parameter.ObserverClientBuffer,
		clients:  make(map[uint64]chan []byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if registry != nil {
		s.clientGauge = registry.Ints.Get(status.KeyObserverClients)
	}
	return s
}

// Publish encodes one frame and queues it for every client
func (s *Server) Publish(snap engine.Snapshot, report engine.StepReport) error {
	f := Frame{
		Type:        FrameType,
		RunID:       s.runID,
		Snapshot:    snap,
		Conversions: report.Conversions,
	}
	if s.registry != nil {
		f.Metrics = s.registry.Export()
	}
	b, err := json.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "encode frame")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.latest = b
	for id, ch := range s.clients {
		select {
		case ch <- b:
		default:
			s.log.Warn("observer too slow, dropping", "client", id)
			s.dropLocked(id)
		}
	}
	return nil
}

// Clients returns the number of connected observers
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close disconnects every client and rejects new ones
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id := range s.clients {
		s.dropLocked(id)
	}
}

func (s *Server) register() (uint64, chan []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, nil, false
	}

	id := s.nextID.Add(1)
	ch := make(chan []byte, s.buffer)
	if s.latest != nil {
		ch <- s.latest
	}
	s.clients[id] = ch
	s.gauge()
	return id, ch, true
}

func (s *Server) unregister(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(id)
}

func (s *Server) dropLocked(id uint64) {
	ch, ok := s.clients[id]
	if !ok {
		return
	}
	delete(s.clients, id)
	close(ch)
	s.gauge()
}

func (s *Server) gauge() {
	if s.clientGauge != nil {
		s.clientGauge.Store(int64(len(s.clients)))
	}
}

// Handler routes /snapshot and /ws
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.SnapshotHandler())
	mux.HandleFunc("/ws", s.WSHandler())
	return mux
}

// SnapshotHandler returns the most recent frame as JSON
func (s *Server) SnapshotHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		s.mu.RLock()
		b := s.latest
		s.mu.RUnlock()
		if b == nil {
			http.Error(rw, "no frame published yet", http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write(b)
	}
}

// WSHandler streams frames until the client leaves or is dropped
func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, frames, ok := s.register()
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			return
		}
		defer s.unregister(id)
		s.log.Debug("observer joined", "client", id, "remote", r.RemoteAddr)

		// Reader only detects disconnects; observers send nothing meaningful
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				s.log.Debug("observer left", "client", id)
				return
			case b, ok := <-frames:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "dropped"), time.Now().Add(time.Second))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

// ListenAndServe serves Handler on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "observer listen")
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "observer shutdown")
	}
	return nil
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
