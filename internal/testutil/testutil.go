// Package testutil provides shared test utilities and fixtures.
//
// The mask builders produce binary foreground masks shaped the way the
// background subtractor delivers them: 0 for background, 255 for motion.
package testutil

import (
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Foreground is the pixel value used for motion in generated masks.
const Foreground = 255

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// Blob is a rectangular patch of motion spanning columns [X0, X1) and rows
// [Y0, Y1).
type Blob struct {
	X0, X1 int
	Y0, Y1 int
}

// NewMask returns an all-background mask of the given size.
func NewMask(width, height int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, width, height))
}

// FillBlobs sets every pixel covered by blobs to Foreground. Blobs are
// clipped to the mask bounds.
func FillBlobs(m *image.Gray, blobs ...Blob) *image.Gray {
	b := m.Bounds()
	for _, bl := range blobs {
		r := image.Rect(bl.X0, bl.Y0, bl.X1, bl.Y1).Intersect(b)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				m.Pix[m.PixOffset(x, y)] = Foreground
			}
		}
	}
	return m
}

// BandMask returns a band-sized mask (width x height) with full-height
// vertical blobs covering each [x0, x1) column span.
func BandMask(width, height int, spans ...[2]int) *image.Gray {
	m := NewMask(width, height)
	for _, s := range spans {
		FillBlobs(m, Blob{X0: s[0], X1: s[1], Y0: 0, Y1: height})
	}
	return m
}

// FrameMask returns a full-frame mask with full-height blobs drawn only
// inside band.
func FrameMask(width, height int, band image.Rectangle, spans ...[2]int) *image.Gray {
	m := NewMask(width, height)
	for _, s := range spans {
		FillBlobs(m, Blob{X0: s[0], X1: s[1], Y0: band.Min.Y, Y1: band.Max.Y})
	}
	return m
}
