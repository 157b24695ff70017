package counting

import (
	"fmt"
	"image"
)

// Params holds the numeric constants that drive counting.
type Params struct {
	// LaneWidth is the template width W in pixels.
	LaneWidth int `json:"lane_width"`
	// BandWidth is the detection band height L in pixels.
	BandWidth int `json:"band_width"`
	// BandBottomOffset is the gap in pixels between the bottom edge of the
	// detection band and the bottom of the frame.
	BandBottomOffset int `json:"band_bottom_offset"`
	// Threshold is the confidence threshold T_s a normalised signal value
	// must exceed to be a peak.
	Threshold float64 `json:"confidence_threshold"`
	// Spacing is the neighbour distance used by the local-maximum test.
	Spacing int `json:"peak_spacing"`
	// MinSeparation is T_HDist: accepted peaks in one frame are more than
	// this many indices apart.
	MinSeparation int `json:"min_peak_separation"`
	// MinShift is T_VDist: a peak further than this from every peak of the
	// previous frame is a new vehicle.
	MinShift int `json:"min_frame_shift"`
}

// DefaultParams returns the parameters used when no tuning file is given.
func DefaultParams() Params {
	return Params{
		LaneWidth:        50,
		BandWidth:        100,
		BandBottomOffset: 24,
		Threshold:        0.5,
		Spacing:          2,
		MinSeparation:    100,
		MinShift:         30,
	}
}

// Validate checks the frame-independent constraints on p.
func (p Params) Validate() error {
	if p.LaneWidth <= 0 {
		return fmt.Errorf("%w: lane_width must be positive, got %d", ErrInvalidConfig, p.LaneWidth)
	}
	if p.BandWidth <= 0 {
		return fmt.Errorf("%w: band_width must be positive, got %d", ErrInvalidConfig, p.BandWidth)
	}
	if p.BandBottomOffset < 0 {
		return fmt.Errorf("%w: band_bottom_offset must be non-negative, got %d", ErrInvalidConfig, p.BandBottomOffset)
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return fmt.Errorf("%w: confidence_threshold must be between 0 and 1, got %f", ErrInvalidConfig, p.Threshold)
	}
	if p.Spacing <= 0 {
		return fmt.Errorf("%w: peak_spacing must be positive, got %d", ErrInvalidConfig, p.Spacing)
	}
	if p.MinSeparation < 0 {
		return fmt.Errorf("%w: min_peak_separation must be non-negative, got %d", ErrInvalidConfig, p.MinSeparation)
	}
	if p.MinShift < 0 {
		return fmt.Errorf("%w: min_frame_shift must be non-negative, got %d", ErrInvalidConfig, p.MinShift)
	}
	return nil
}

func (p Params) peakParams() PeakParams {
	return PeakParams{
		Threshold:     p.Threshold,
		Spacing:       p.Spacing,
		MinSeparation: p.MinSeparation,
	}
}

// Geometry is the detection band of a session, fixed at construction.
type Geometry struct {
	FrameWidth  int
	FrameHeight int
	// Band is the detection band rectangle in frame coordinates.
	Band image.Rectangle
}

// NewGeometry places the detection band for frames of the given size and
// checks that a sliding window of p.LaneWidth fits inside it.
func NewGeometry(p Params, frameWidth, frameHeight int) (Geometry, error) {
	if err := p.Validate(); err != nil {
		return Geometry{}, err
	}
	if frameWidth <= p.LaneWidth {
		return Geometry{}, fmt.Errorf("%w: frame width %d must exceed lane_width %d", ErrInvalidConfig, frameWidth, p.LaneWidth)
	}
	bottom := frameHeight - p.BandBottomOffset
	top := bottom - p.BandWidth
	if top < 0 {
		return Geometry{}, fmt.Errorf("%w: frame height %d cannot hold band_width %d at offset %d",
			ErrInvalidConfig, frameHeight, p.BandWidth, p.BandBottomOffset)
	}
	if signalLen := frameWidth - p.LaneWidth; p.Spacing >= signalLen {
		return Geometry{}, fmt.Errorf("%w: peak_spacing %d leaves no candidates in a signal of length %d",
			ErrInvalidConfig, p.Spacing, signalLen)
	}
	return Geometry{
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
		Band:        image.Rect(0, top, frameWidth, bottom),
	}, nil
}

// SignalLen is the occupancy signal length produced for this geometry.
func (g Geometry) SignalLen(laneWidth int) int {
	return g.Band.Dx() - laneWidth
}

// CropBand returns the detection band of a full-frame mask. The result
// shares pixels with full; neither is modified.
func (g Geometry) CropBand(full *image.Gray) (*image.Gray, error) {
	if full == nil {
		return nil, fmt.Errorf("%w: nil mask", ErrFrameRejected)
	}
	b := full.Bounds()
	if b.Dx() != g.FrameWidth || b.Dy() != g.FrameHeight {
		return nil, fmt.Errorf("%w: mask is %dx%d, session expects %dx%d",
			ErrFrameRejected, b.Dx(), b.Dy(), g.FrameWidth, g.FrameHeight)
	}
	band := g.Band.Add(b.Min)
	return full.SubImage(band).(*image.Gray), nil
}
