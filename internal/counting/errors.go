package counting

import "errors"

var (
	// ErrInvalidConfig reports parameters or band geometry for which no
	// valid sliding window exists. It is fatal and raised before the first
	// frame is processed.
	ErrInvalidConfig = errors.New("invalid counting configuration")

	// ErrMaskTooNarrow is returned by the projector when the mask is
	// narrower than the lane width.
	ErrMaskTooNarrow = errors.New("mask narrower than lane width")

	// ErrFrameRejected marks a single frame whose mask or index could not be
	// processed. The session state is left untouched and counting continues.
	ErrFrameRejected = errors.New("frame rejected")
)
