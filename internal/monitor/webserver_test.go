package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/lanecount/internal/counting"
	"github.com/banshee-data/lanecount/internal/db"
	"github.com/banshee-data/lanecount/internal/testutil"
)

func frame(index, total, added int, peaks ...int) counting.FrameResult {
	sig := make(counting.Signal, 300)
	for _, p := range peaks {
		sig[p] = 1
	}
	return counting.FrameResult{
		SessionID: "session-1",
		Index:     index,
		Signal:    sig,
		Peaks:     counting.PeakSet(peaks),
		Added:     added,
		Total:     total,
	}
}

func serve(ws *WebServer, method, target string) *httptest.ResponseRecorder {
	rr := testutil.NewTestRecorder()
	ws.Handler().ServeHTTP(rr, testutil.NewTestRequest(method, target))
	return rr
}

func TestNewWebServerDefaults(t *testing.T) {
	ws := NewWebServer(Config{Address: ":0"})
	if ws.historySize != defaultHistorySize {
		t.Errorf("historySize = %d, want %d", ws.historySize, defaultHistorySize)
	}
	if ws.db != nil {
		t.Error("db should be nil")
	}
}

func TestHealth(t *testing.T) {
	ws := NewWebServer(Config{Address: ":0"})
	rr := serve(ws, http.MethodGet, "/health")
	testutil.AssertStatusCode(t, rr.Code, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"status": "ok"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestStatusAggregatesHistory(t *testing.T) {
	ws := NewWebServer(Config{Address: ":0", HistorySize: 2})
	ctx := context.Background()
	ws.HandleFrame(ctx, frame(1, 2, 2, 40, 200))
	ws.HandleFrame(ctx, frame(2, 2, 0, 45, 205))
	ws.HandleFrame(ctx, frame(3, 3, 1, 10, 120, 250))

	rr := serve(ws, http.MethodGet, "/api/status")
	testutil.AssertStatusCode(t, rr.Code, http.StatusOK)

	var got StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FramesSeen != 3 || got.WindowFrames != 2 {
		t.Errorf("frames_seen = %d window = %d, want 3 2", got.FramesSeen, got.WindowFrames)
	}
	if got.MeanPeaks != 2.5 {
		t.Errorf("mean_peaks_per_frame = %v, want 2.5", got.MeanPeaks)
	}
	if got.MeanAdded != 0.5 {
		t.Errorf("mean_add_num = %v, want 0.5", got.MeanAdded)
	}
	if got.Latest == nil || got.Latest.Index != 3 || got.Latest.Total != 3 {
		t.Errorf("latest = %+v", got.Latest)
	}
}

func TestStatusMethodNotAllowed(t *testing.T) {
	ws := NewWebServer(Config{Address: ":0"})
	rr := serve(ws, http.MethodPost, "/api/status")
	testutil.AssertStatusCode(t, rr.Code, http.StatusMethodNotAllowed)
}

func TestHandleFrameCopiesSlices(t *testing.T) {
	ws := NewWebServer(Config{Address: ":0"})
	res := frame(1, 1, 1, 60)
	ws.HandleFrame(context.Background(), res)
	res.Peaks[0] = 99
	res.Signal[60] = 0

	latest := ws.status().Latest
	if latest.Peaks[0] != 60 || latest.Signal[60] != 1 {
		t.Error("stored frame aliases caller slices")
	}
}

func TestStatusPage(t *testing.T) {
	ws := NewWebServer(Config{Address: ":0"})
	ws.HandleFrame(context.Background(), frame(7, 4, 1, 120))

	rr := serve(ws, http.MethodGet, "/")
	testutil.AssertStatusCode(t, rr.Code, http.StatusOK)
	body := rr.Body.String()
	if !strings.Contains(body, "session-1") || !strings.Contains(body, "Running count") {
		t.Errorf("status page missing frame details")
	}

	rr = serve(ws, http.MethodGet, "/nope")
	testutil.AssertStatusCode(t, rr.Code, http.StatusNotFound)
}

func TestCharts(t *testing.T) {
	ws := NewWebServer(Config{Address: ":0"})

	rr := serve(ws, http.MethodGet, "/debug/occupancy")
	testutil.AssertStatusCode(t, rr.Code, http.StatusNotFound)

	ws.HandleFrame(context.Background(), frame(1, 2, 2, 40, 200))
	ws.HandleFrame(context.Background(), frame(2, 2, 0, 45, 205))

	for _, path := range []string{"/debug/occupancy", "/debug/counts"} {
		rr := serve(ws, http.MethodGet, path)
		testutil.AssertStatusCode(t, rr.Code, http.StatusOK)
		if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s content type = %q", path, ct)
		}
		if !strings.Contains(rr.Body.String(), "echarts") {
			t.Errorf("%s did not render an echarts page", path)
		}
	}
}

func TestSessionsWithoutDB(t *testing.T) {
	ws := NewWebServer(Config{Address: ":0"})
	rr := serve(ws, http.MethodGet, "/api/sessions")
	testutil.AssertStatusCode(t, rr.Code, http.StatusServiceUnavailable)
}

func TestSessionsWithDB(t *testing.T) {
	database, err := db.NewDB(filepath.Join(t.TempDir(), "counts.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer database.Close()

	s, err := counting.NewSession(counting.DefaultParams(), 320, 240)
	if err != nil {
		t.Fatal(err)
	}
	rec := db.NewRecorder(database, nil)
	if err := rec.StartSession(s, "masks"); err != nil {
		t.Fatal(err)
	}
	if err := rec.HandleFrame(context.Background(), counting.FrameResult{SessionID: s.ID(), Index: 1, Peaks: counting.PeakSet{60}, Added: 1, Total: 1}); err != nil {
		t.Fatal(err)
	}

	ws := NewWebServer(Config{Address: ":0", DB: database})

	rr := serve(ws, http.MethodGet, "/api/sessions?limit=5")
	testutil.AssertStatusCode(t, rr.Code, http.StatusOK)
	var sessions []db.SessionRecord
	if err := json.NewDecoder(rr.Body).Decode(&sessions); err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != s.ID() {
		t.Errorf("sessions = %+v", sessions)
	}

	rr = serve(ws, http.MethodGet, "/api/sessions/frames")
	testutil.AssertStatusCode(t, rr.Code, http.StatusBadRequest)

	rr = serve(ws, http.MethodGet, "/api/sessions/frames?session_id="+s.ID())
	testutil.AssertStatusCode(t, rr.Code, http.StatusOK)
	var frames []db.FrameCountRecord
	if err := json.NewDecoder(rr.Body).Decode(&frames); err != nil {
		t.Fatal(err)
	}
	if len(frames) != 1 || frames[0].RunningCount != 1 {
		t.Errorf("frames = %+v", frames)
	}
}

func TestStartShutsDownOnCancel(t *testing.T) {
	ws := NewWebServer(Config{Address: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ws.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
