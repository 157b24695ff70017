// Package display drives a roadside count board over a serial line.
//
// Each reported frame is written as one ASCII line:
//
//	<frame_index>,<add_num>,<running_count>\r\n
package display

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/banshee-data/lanecount/internal/counting"
)

// Open opens the serial port at path with the given options.
func Open(path string, opts PortOptions) (serial.Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open display port %s: %w", path, err)
	}
	return port, nil
}

// Sink writes count lines to w. By default only the first frame and frames
// that add vehicles are written.
type Sink struct {
	mu sync.Mutex
	w  io.Writer

	// EveryFrame writes a line for every frame.
	EveryFrame bool
}

// NewSink returns a Sink writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// HandleFrame writes the count line for res when it should be reported.
func (s *Sink) HandleFrame(ctx context.Context, res counting.FrameResult) error {
	if !s.EveryFrame && res.Added == 0 && res.Index != 1 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "%d,%d,%d\r\n", res.Index, res.Added, res.Total); err != nil {
		return fmt.Errorf("display write: %w", err)
	}
	return nil
}
