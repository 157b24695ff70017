package counting

import (
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"
)

// FrameResult is what one processed frame exposes to renderers and
// reporters.
type FrameResult struct {
	SessionID  string  `json:"session_id"`
	Index      int     `json:"frame_index"`
	Signal     Signal  `json:"signal"`
	Peaks      PeakSet `json:"peaks"`
	Added      int     `json:"add_num"`
	Total      int     `json:"running_count"`
	Degenerate bool    `json:"degenerate"`
}

// Summary describes a session so far.
type Summary struct {
	SessionID  string `json:"session_id"`
	Frames     int    `json:"frames"`
	Rejected   int    `json:"rejected"`
	Degenerate int    `json:"degenerate"`
	Peaks      int    `json:"peaks"`
	Total      int    `json:"running_count"`
}

// PeaksPerFrame is the mean number of peaks over processed frames.
func (s Summary) PeaksPerFrame() float64 {
	if s.Frames == 0 {
		return 0
	}
	return float64(s.Peaks) / float64(s.Frames)
}

// Session owns the cross-frame counting state for one video: the previous
// frame's peaks and the running count. Frames must be fed sequentially from
// a single goroutine.
type Session struct {
	id       string
	params   Params
	geom     Geometry
	proj     *Projector
	peakOpts PeakParams

	previous PeakSet
	total    int

	frames     int
	rejected   int
	degenerate int
	peaks      int
}

// NewSession validates p against the frame size and returns a session in
// its initial state (no previous peaks, count zero).
func NewSession(p Params, frameWidth, frameHeight int) (*Session, error) {
	geom, err := NewGeometry(p, frameWidth, frameHeight)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:       uuid.NewString(),
		params:   p,
		geom:     geom,
		proj:     NewProjector(p),
		peakOpts: p.peakParams(),
	}
	diagf("session %s: frame=%dx%d band=%v lane=%d space=%d T_s=%.2f T_HDist=%d T_VDist=%d",
		s.id, frameWidth, frameHeight, geom.Band, p.LaneWidth, p.Spacing, p.Threshold, p.MinSeparation, p.MinShift)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Params returns the parameters the session was built with.
func (s *Session) Params() Params { return s.params }

// Geometry returns the detection band geometry.
func (s *Session) Geometry() Geometry { return s.geom }

// Total returns the running vehicle count.
func (s *Session) Total() int { return s.total }

// Previous returns a copy of the peaks of the last processed frame.
func (s *Session) Previous() PeakSet {
	return append(PeakSet(nil), s.previous...)
}

// Summary returns the session counters.
func (s *Session) Summary() Summary {
	return Summary{
		SessionID:  s.id,
		Frames:     s.frames,
		Rejected:   s.rejected,
		Degenerate: s.degenerate,
		Peaks:      s.peaks,
		Total:      s.total,
	}
}

// Reset returns the session to its initial state under a new ID.
func (s *Session) Reset() {
	s.id = uuid.NewString()
	s.previous = nil
	s.total = 0
	s.frames, s.rejected, s.degenerate, s.peaks = 0, 0, 0, 0
	diagf("session reset as %s", s.id)
}

// ProcessMask crops the detection band out of a full-frame mask and
// processes it.
func (s *Session) ProcessMask(index int, full *image.Gray) (FrameResult, error) {
	band, err := s.geom.CropBand(full)
	if err != nil {
		return s.reject(index, err)
	}
	return s.ProcessFrame(index, band)
}

// ProcessFrame runs projection, peak detection, deduplication and
// accumulation for one band mask. index starts at 1; frame 1 counts every
// peak as new. On error the frame contributes nothing and the previous
// peaks and running count are unchanged.
func (s *Session) ProcessFrame(index int, band *image.Gray) (FrameResult, error) {
	if index < 1 {
		return s.reject(index, fmt.Errorf("%w: frame index %d", ErrFrameRejected, index))
	}
	if band != nil && band.Bounds().Dx() != s.geom.Band.Dx() {
		return s.reject(index, fmt.Errorf("%w: band width %d, expected %d", ErrFrameRejected, band.Bounds().Dx(), s.geom.Band.Dx()))
	}
	sig, degenerate, err := s.proj.Project(band)
	if err != nil {
		return s.reject(index, err)
	}
	if degenerate {
		s.degenerate++
		diagf("frame %d: flat occupancy signal, no peaks", index)
	}

	current := DetectPeaks(sig, s.peakOpts)
	added := CountNew(current, s.previous, s.params.MinShift, index == 1)

	s.total += added
	s.previous = current
	s.frames++
	s.peaks += len(current)

	tracef("frame %d: peaks=%v add_num=%d total=%d", index, current, added, s.total)

	return FrameResult{
		SessionID:  s.id,
		Index:      index,
		Signal:     sig,
		Peaks:      current,
		Added:      added,
		Total:      s.total,
		Degenerate: degenerate,
	}, nil
}

func (s *Session) reject(index int, err error) (FrameResult, error) {
	s.rejected++
	if !errors.Is(err, ErrFrameRejected) {
		err = fmt.Errorf("%w: %w", ErrFrameRejected, err)
	}
	opsf("frame %d rejected: %v", index, err)
	return FrameResult{}, fmt.Errorf("frame %d: %w", index, err)
}
