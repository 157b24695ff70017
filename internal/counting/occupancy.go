package counting

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"
)

// Signal is the per-frame occupancy signal: one value per horizontal offset
// of the lane template, normalised to [0, 1].
type Signal []float64

// Projector correlates a band mask with a uniform LaneWidth x BandWidth
// template. It keeps a column-sum scratch buffer between frames and is not
// safe for concurrent use.
type Projector struct {
	laneWidth int
	bandWidth int
	cols      []int64
}

// NewProjector returns a projector for the lane width and band width in p.
func NewProjector(p Params) *Projector {
	return &Projector{laneWidth: p.LaneWidth, bandWidth: p.BandWidth}
}

// Project returns the min-max normalised sliding-window sum of mask, one
// value for each offset c in [0, width-LaneWidth). When every raw sum is
// equal the signal is all zeros and degenerate is true. The mask is not
// modified.
func (p *Projector) Project(mask *image.Gray) (sig Signal, degenerate bool, err error) {
	if mask == nil {
		return nil, false, fmt.Errorf("%w: nil mask", ErrFrameRejected)
	}
	b := mask.Bounds()
	width, height := b.Dx(), b.Dy()
	if height != p.bandWidth {
		return nil, false, fmt.Errorf("%w: mask height %d, band width %d", ErrFrameRejected, height, p.bandWidth)
	}
	if width < p.laneWidth {
		return nil, false, fmt.Errorf("%w: width %d, lane width %d", ErrMaskTooNarrow, width, p.laneWidth)
	}

	if cap(p.cols) < width {
		p.cols = make([]int64, width)
	}
	cols := p.cols[:width]
	for x := range cols {
		cols[x] = 0
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := mask.PixOffset(b.Min.X, y)
		row := mask.Pix[off : off+width]
		for x, v := range row {
			cols[x] += int64(v)
		}
	}

	n := width - p.laneWidth
	sig = make(Signal, n)
	if n == 0 {
		return sig, false, nil
	}

	var window int64
	for x := 0; x < p.laneWidth; x++ {
		window += cols[x]
	}
	sig[0] = float64(window)
	for c := 1; c < n; c++ {
		window += cols[c+p.laneWidth-1] - cols[c-1]
		sig[c] = float64(window)
	}

	lo, hi := floats.Min(sig), floats.Max(sig)
	if hi == lo {
		for i := range sig {
			sig[i] = 0
		}
		return sig, true, nil
	}
	floats.AddConst(-lo, sig)
	floats.Scale(1/(hi-lo), sig)
	return sig, false, nil
}
