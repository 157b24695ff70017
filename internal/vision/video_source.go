//go:build withcv

package vision

import (
	"context"
	"fmt"
	"image"
	"io"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/banshee-data/lanecount/internal/pipeline"
)

// VideoOptions tunes background subtraction and mask clean-up.
type VideoOptions struct {
	// History is the MOG2 background model length in frames.
	History int
	// VarThreshold is the MOG2 squared Mahalanobis distance threshold.
	VarThreshold float64
	// DilateKernel is the side of the cross and ellipse structuring elements.
	DilateKernel int
}

// VideoSource decodes a video file, URL or camera and turns each frame into
// a foreground mask: MOG2 subtraction, binarisation, then dilation with a
// cross followed by an ellipse. Structuring elements are built once.
type VideoSource struct {
	capture *gocv.VideoCapture
	mog     gocv.BackgroundSubtractorMOG2
	cross   gocv.Mat
	disk    gocv.Mat

	frame gocv.Mat
	fg    gocv.Mat

	width, height int
	index         int
}

// NewVideoSource opens input, which is either a camera index such as "0" or a
// file path / stream URL.
func NewVideoSource(input string, opts VideoOptions) (*VideoSource, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if id, convErr := strconv.Atoi(input); convErr == nil {
		capture, err = gocv.VideoCaptureDevice(id)
	} else {
		capture, err = gocv.VideoCaptureFile(input)
	}
	if err != nil {
		return nil, fmt.Errorf("open video %q: %w", input, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open video %q: capture not opened", input)
	}

	if opts.History <= 0 {
		opts.History = 500
	}
	if opts.VarThreshold <= 0 {
		opts.VarThreshold = 16
	}
	if opts.DilateKernel <= 0 {
		opts.DilateKernel = 5
	}
	k := image.Pt(opts.DilateKernel, opts.DilateKernel)

	return &VideoSource{
		capture: capture,
		mog:     gocv.NewBackgroundSubtractorMOG2WithParams(opts.History, opts.VarThreshold, false),
		cross:   gocv.GetStructuringElement(gocv.MorphCross, k),
		disk:    gocv.GetStructuringElement(gocv.MorphEllipse, k),
		frame:   gocv.NewMat(),
		fg:      gocv.NewMat(),
		width:   int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(capture.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// FrameSize reports the capture dimensions.
func (v *VideoSource) FrameSize() (int, int, error) {
	if v.width <= 0 || v.height <= 0 {
		return 0, 0, fmt.Errorf("capture reports invalid frame size %dx%d", v.width, v.height)
	}
	return v.width, v.height, nil
}

// Next decodes one frame and returns its foreground mask. A failed read or
// an empty frame ends the stream with io.EOF.
func (v *VideoSource) Next(ctx context.Context) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}
	if ok := v.capture.Read(&v.frame); !ok || v.frame.Empty() {
		return pipeline.Frame{}, io.EOF
	}
	v.index++

	v.mog.Apply(v.frame, &v.fg)
	gocv.Threshold(v.fg, &v.fg, 0, 255, gocv.ThresholdBinary)
	gocv.Dilate(v.fg, &v.fg, v.cross)
	gocv.Dilate(v.fg, &v.fg, v.disk)

	mask, err := matToGray(v.fg)
	if err != nil {
		return pipeline.Frame{}, fmt.Errorf("%w: frame %d: %v", pipeline.ErrSkipFrame, v.index, err)
	}
	return pipeline.Frame{Index: v.index, Mask: mask, Timestamp: time.Now()}, nil
}

// Close frees the OpenCV resources. It has to be done manually because gocv
// allocates through cgo.
func (v *VideoSource) Close() error {
	v.fg.Close()
	v.frame.Close()
	v.disk.Close()
	v.cross.Close()
	v.mog.Close()
	return v.capture.Close()
}

func matToGray(m gocv.Mat) (*image.Gray, error) {
	if m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("unexpected mask type %v", m.Type())
	}
	w, h := m.Cols(), m.Rows()
	pix := m.ToBytes()
	if len(pix) != w*h {
		return nil, fmt.Errorf("mask has %d bytes, want %d", len(pix), w*h)
	}
	return &image.Gray{Pix: pix, Stride: w, Rect: image.Rect(0, 0, w, h)}, nil
}
