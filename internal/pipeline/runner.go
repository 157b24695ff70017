package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/lanecount/internal/counting"
)

// Runner feeds frames from a source through a counting session and fans the
// results out to sinks. Frames are processed strictly one after another.
type Runner struct {
	source  FrameSource
	session *counting.Session
	sinks   []FrameSink
}

// NewRunner returns a runner. Nil sinks are ignored.
func NewRunner(source FrameSource, session *counting.Session, sinks ...FrameSink) *Runner {
	r := &Runner{source: source, session: session}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// NewSessionFromSource sizes a session from the source's frame dimensions.
func NewSessionFromSource(source FrameSource, p counting.Params) (*counting.Session, error) {
	w, h, err := source.FrameSize()
	if err != nil {
		return nil, fmt.Errorf("frame size: %w", err)
	}
	return counting.NewSession(p, w, h)
}

// Run processes frames until the source is exhausted or ctx is cancelled.
// Cancellation is only observed between frames. An exhausted source is a
// clean finish and returns nil; cancellation returns ctx.Err(). The summary
// is valid in every case.
func (r *Runner) Run(ctx context.Context) (counting.Summary, error) {
	diagf("session %s: run started", r.session.ID())
	for {
		if err := ctx.Err(); err != nil {
			diagf("session %s: stopped after %d frames, total=%d", r.session.ID(), r.session.Summary().Frames, r.session.Total())
			return r.session.Summary(), err
		}

		frame, err := r.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			sum := r.session.Summary()
			diagf("session %s: input exhausted after %d frames, total=%d", sum.SessionID, sum.Frames, sum.Total)
			return sum, nil
		}
		if errors.Is(err, ErrSkipFrame) {
			opsf("skipping frame: %v", err)
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.session.Summary(), ctxErr
			}
			return r.session.Summary(), fmt.Errorf("read frame: %w", err)
		}

		r.step(ctx, frame)
	}
}

// step runs one frame through the session and sinks.
func (r *Runner) step(ctx context.Context, frame Frame) {
	start := time.Now()
	res, err := r.session.ProcessMask(frame.Index, frame.Mask)
	if err != nil {
		opsf("frame %d: %v", frame.Index, err)
		return
	}
	for _, sink := range r.sinks {
		if err := sink.HandleFrame(ctx, res); err != nil {
			opsf("frame %d: sink %T: %v", frame.Index, sink, err)
		}
	}
	tracef("frame %d processed in %s (peaks=%d add_num=%d total=%d)",
		frame.Index, time.Since(start), len(res.Peaks), res.Added, res.Total)
}
