package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/lanecount/internal/counting"
	"github.com/banshee-data/lanecount/internal/timeutil"
)

// Recorder persists counting sessions and their per-frame results. It is a
// frame sink for the pipeline runner.
type Recorder struct {
	db    *DB
	clock timeutil.Clock

	// SkipEmpty drops frames that have no peaks and add nothing.
	SkipEmpty bool
}

// NewRecorder returns a Recorder writing to db. A nil clock uses wall time.
func NewRecorder(db *DB, clock timeutil.Clock) *Recorder {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Recorder{db: db, clock: clock}
}

// StartSession stores the session row. It must be called before the first
// frame of the session reaches HandleFrame.
func (r *Recorder) StartSession(s *counting.Session, source string) error {
	cfg, err := json.Marshal(s.Params())
	if err != nil {
		return fmt.Errorf("failed to encode session params: %w", err)
	}
	g := s.Geometry()
	return r.db.InsertSession(SessionRecord{
		SessionID:   s.ID(),
		Source:      source,
		StartedUnix: unixSeconds(r.clock.Now()),
		ConfigJSON:  string(cfg),
		FrameWidth:  g.FrameWidth,
		FrameHeight: g.FrameHeight,
	})
}

// HandleFrame stores one frame result.
func (r *Recorder) HandleFrame(ctx context.Context, res counting.FrameResult) error {
	if r.SkipEmpty && len(res.Peaks) == 0 && res.Added == 0 {
		return nil
	}
	return r.db.InsertFrameCount(FrameCountRecord{
		SessionID:    res.SessionID,
		FrameIndex:   res.Index,
		Peaks:        res.Peaks,
		AddNum:       res.Added,
		RunningCount: res.Total,
		Degenerate:   res.Degenerate,
		RecordedUnix: unixSeconds(r.clock.Now()),
	})
}

// EndSession stores the final tallies of a session.
func (r *Recorder) EndSession(sum counting.Summary) error {
	ended := unixSeconds(r.clock.Now())
	return r.db.FinishSession(SessionRecord{
		SessionID:  sum.SessionID,
		EndedUnix:  &ended,
		Frames:     sum.Frames,
		Rejected:   sum.Rejected,
		Degenerate: sum.Degenerate,
		Peaks:      sum.Peaks,
		Total:      sum.Total,
	})
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
