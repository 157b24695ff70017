package pipeline

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/banshee-data/lanecount/internal/counting"
)

// ErrSkipFrame marks a source error that only affects the current frame
// (for example an undecodable image). The runner logs it and asks for the
// next frame.
var ErrSkipFrame = errors.New("skip frame")

// Frame is one foreground mask delivered by the vision pipeline.
type Frame struct {
	// Index is the 1-based position of the frame in the stream.
	Index int
	// Mask is the full-frame binary foreground mask; motion is non-zero.
	Mask *image.Gray
	// Timestamp is the capture or decode time of the frame.
	Timestamp time.Time
}

// FrameSource yields foreground masks one at a time. Next returns io.EOF when
// the stream is exhausted.
type FrameSource interface {
	// FrameSize reports the width and height of every mask Next will return.
	FrameSize() (width, height int, err error)
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// FrameSink consumes per-frame counting results (rendering, persistence,
// displays). Errors are logged by the runner and never stop the session.
type FrameSink interface {
	HandleFrame(ctx context.Context, res counting.FrameResult) error
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(ctx context.Context, res counting.FrameResult) error

// HandleFrame calls f.
func (f FrameSinkFunc) HandleFrame(ctx context.Context, res counting.FrameResult) error {
	return f(ctx, res)
}
