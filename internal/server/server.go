package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/jpalmerr/nodeboard/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// wsWriteTimeout bounds a single WebSocket frame write.
	wsWriteTimeout = 5 * time.Second

	// toggleThemeMessage is the text frame a WebSocket client sends to flip the theme.
	toggleThemeMessage = "toggle-theme"

	// toggleBurst and toggleEvery bound theme toggles across all clients.
	toggleBurst = 5
	toggleEvery = 200 * time.Millisecond
)

// Page is the rendered dashboard document.
type Page interface {
	HTML() (string, error)
}

// ThemeToggler flips the dashboard theme and returns the new theme name.
type ThemeToggler func() string

// Server handles HTTP requests for the dashboard and API.
//
// Routes:
//   - GET /: the dashboard page with the latest status rendered in place
//   - GET /fragment: the latest status fragment alone
//   - GET /api/status: the current snapshot as JSON
//   - GET /api/sse: Server-Sent Events stream of snapshots
//   - GET /ws: WebSocket stream of snapshots; accepts "toggle-theme" frames
//   - POST /api/theme: toggles the theme
//   - GET /metrics: Prometheus exposition, when a handler is configured
//   - GET /healthz: liveness probe
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	page       Page
	toggle     ThemeToggler
	metrics    http.Handler
	port       int
	httpServer *http.Server
	upgrader   websocket.Upgrader
	toggles    *rate.Limiter
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: Store holding the current snapshot
//   - page: The dashboard document served at "/"
//   - toggle: Theme toggle invoked by POST /api/theme and WebSocket clients
//   - metrics: Handler mounted at /metrics (may be nil)
//   - port: TCP port to listen on
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, page Page, toggle ThemeToggler, metrics http.Handler, port int, logger *slog.Logger) *Server {
	return &Server{
		store:   st,
		page:    page,
		toggle:  toggle,
		metrics: metrics,
		port:    port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		toggles: rate.NewLimiter(rate.Every(toggleEvery), toggleBurst),
		logger:  logger,
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/fragment", s.handleFragment)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/api/theme", s.handleTheme)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE and WebSocket handlers
		// end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the dashboard page as it currently stands.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	content, err := s.page.HTML()
	if err != nil {
		s.logger.Error("failed to render dashboard", "error", err)
		http.Error(w, "Dashboard not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err = w.Write([]byte(content)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleFragment returns the last rendered status fragment.
func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write([]byte(s.store.Get().Fragment)); err != nil {
		s.logger.Error("failed to write fragment response", "error", err)
	}
}

// handleStatus returns the current snapshot as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.Get())
}

// handleTheme toggles the theme and reports the new one.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.toggle == nil {
		http.Error(w, "Theme toggle not available", http.StatusNotImplemented)
		return
	}
	if !s.toggles.Allow() {
		http.Error(w, "Too many theme toggles", http.StatusTooManyRequests)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"theme": s.toggle()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode json response", "error", err)
	}
}

// handleSSE streams snapshots via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe before reading the current snapshot so nothing is missed
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	if data, err := json.Marshal(s.store.Get()); err == nil {
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}

// handleWebSocket streams snapshots over a WebSocket connection.
//
// A writer goroutine owns all writes to the connection; the handler itself
// reads client frames until the connection drops.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		s.writeSnapshots(ctx, conn, ch)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if strings.TrimSpace(string(msg)) != toggleThemeMessage || s.toggle == nil {
			continue
		}
		if !s.toggles.Allow() {
			s.logger.Debug("theme toggle throttled", "remote", r.RemoteAddr)
			continue
		}
		s.toggle()
	}

	cancel()
	<-writerDone
	s.logger.Debug("websocket client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) writeSnapshots(ctx context.Context, conn *websocket.Conn, ch <-chan store.Snapshot) {
	write := func(snap store.Snapshot) error {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return err
		}
		return conn.WriteJSON(snap)
	}

	if err := write(s.store.Get()); err != nil {
		return
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := write(snap); err != nil {
				return
			}
		case <-ctx.Done():
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), deadline)
			return
		}
	}
}
