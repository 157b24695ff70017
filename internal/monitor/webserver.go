// Package monitor serves live counting status over HTTP and renders plots of
// the occupancy signal.
package monitor

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/lanecount/internal/counting"
	"github.com/banshee-data/lanecount/internal/db"
	"github.com/banshee-data/lanecount/internal/httputil"
	"github.com/banshee-data/lanecount/internal/monitoring"
	"github.com/banshee-data/lanecount/internal/version"
)

//go:embed status.html
var statusHTML embed.FS

var statusTmpl = template.Must(template.ParseFS(statusHTML, "status.html"))

const defaultHistorySize = 300

// WebServer exposes health, status and debug chart endpoints for a running
// counting session. It is a frame sink: every processed frame is pushed in
// through HandleFrame.
type WebServer struct {
	address string
	db      *db.DB
	server  *http.Server
	started time.Time

	mu          sync.RWMutex
	latest      *counting.FrameResult
	history     []counting.FrameResult
	historySize int
	frames      int
}

// Config contains configuration options for the web server
type Config struct {
	Address string
	// DB enables /api/sessions and the admin debug routes when non-nil.
	DB *db.DB
	// HistorySize bounds the number of recent frames kept for charts and
	// averages. Defaults to 300.
	HistorySize int
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config Config) *WebServer {
	ws := &WebServer{
		address:     config.Address,
		db:          config.DB,
		historySize: config.HistorySize,
		started:     time.Now(),
	}
	if ws.historySize <= 0 {
		ws.historySize = defaultHistorySize
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// Handler returns the server's route multiplexer.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// HandleFrame records the latest frame result.
func (ws *WebServer) HandleFrame(ctx context.Context, res counting.FrameResult) error {
	res.Signal = append(counting.Signal(nil), res.Signal...)
	res.Peaks = append(counting.PeakSet(nil), res.Peaks...)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.frames++
	ws.latest = &res
	ws.history = append(ws.history, res)
	if over := len(ws.history) - ws.historySize; over > 0 {
		ws.history = append(ws.history[:0], ws.history[over:]...)
	}
	return nil
}

// Start begins the HTTP server in a goroutine and shuts it down when ctx is
// cancelled. It returns early with an error if the listener fails.
func (ws *WebServer) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}

	monitoring.Logf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatusPage)
	mux.HandleFunc("/api/status", ws.handleStatus)
	mux.HandleFunc("/api/sessions", ws.handleSessions)
	mux.HandleFunc("/api/sessions/frames", ws.handleSessionFrames)
	mux.HandleFunc("/debug/occupancy", ws.handleOccupancyChart)
	mux.HandleFunc("/debug/counts", ws.handleCountsChart)

	if ws.db != nil {
		if err := ws.db.AttachAdminRoutes(mux); err != nil {
			monitoring.Logf("admin routes disabled: %v", err)
		}
	}

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "lanecount", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

// StatusResponse is the body of /api/status.
type StatusResponse struct {
	Version      string                `json:"version"`
	Uptime       string                `json:"uptime"`
	FramesSeen   int                   `json:"frames_seen"`
	WindowFrames int                   `json:"window_frames"`
	MeanPeaks    float64               `json:"mean_peaks_per_frame"`
	MeanAdded    float64               `json:"mean_add_num"`
	Latest       *counting.FrameResult `json:"latest,omitempty"`
}

func (ws *WebServer) status() StatusResponse {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	resp := StatusResponse{
		Version:      version.Version,
		Uptime:       time.Since(ws.started).Round(time.Second).String(),
		FramesSeen:   ws.frames,
		WindowFrames: len(ws.history),
		Latest:       ws.latest,
	}
	if len(ws.history) > 0 {
		peaks := make([]float64, len(ws.history))
		added := make([]float64, len(ws.history))
		for i, res := range ws.history {
			peaks[i] = float64(len(res.Peaks))
			added[i] = float64(res.Added)
		}
		resp.MeanPeaks = stat.Mean(peaks, nil)
		resp.MeanAdded = stat.Mean(added, nil)
	}
	return resp
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, ws.status())
}

func (ws *WebServer) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	data := struct {
		HTTPAddress string
		Version     string
		Status      StatusResponse
		HasDB       bool
	}{
		HTTPAddress: ws.address,
		Version:     version.String(),
		Status:      ws.status(),
		HasDB:       ws.db != nil,
	}
	if err := statusTmpl.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
	}
}

// handleSessions returns recent counting sessions.
// Query params:
//
//	limit (optional, default 20)
func (ws *WebServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.db == nil {
		httputil.ServiceUnavailable(w, "no database configured")
		return
	}
	sessions, err := ws.db.Sessions(httputil.QueryLimit(r, 20, 1000))
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}
	httputil.WriteJSONOK(w, sessions)
}

// handleSessionFrames returns the stored frames of one session.
// Query params:
//
//	session_id (required)
//	limit (optional, default 500)
func (ws *WebServer) handleSessionFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.db == nil {
		httputil.ServiceUnavailable(w, "no database configured")
		return
	}
	id := r.URL.Query().Get("session_id")
	if id == "" {
		httputil.BadRequest(w, "missing 'session_id' parameter")
		return
	}
	frames, err := ws.db.FrameCounts(id, httputil.QueryLimit(r, 500, 100000))
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list frames: %v", err))
		return
	}
	httputil.WriteJSONOK(w, frames)
}
