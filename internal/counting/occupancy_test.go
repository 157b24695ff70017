package counting

import (
	"bytes"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/banshee-data/lanecount/internal/testutil"
)

func TestProject_SlidingWindowNormalised(t *testing.T) {
	p := NewProjector(Params{LaneWidth: 3, BandWidth: 2})
	mask := testutil.BandMask(10, 2, [2]int{4, 6})

	sig, degenerate, err := p.Project(mask)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if degenerate {
		t.Fatal("signal unexpectedly degenerate")
	}
	want := []float64{0, 0, 0.5, 1, 1, 0.5, 0}
	if len(sig) != len(want) {
		t.Fatalf("len(sig) = %d, want %d", len(sig), len(want))
	}
	for i := range want {
		if math.Abs(sig[i]-want[i]) > 1e-12 {
			t.Errorf("sig[%d] = %f, want %f", i, sig[i], want[i])
		}
	}
}

func TestProject_DegenerateSignalIsZero(t *testing.T) {
	p := NewProjector(Params{LaneWidth: 4, BandWidth: 3})

	tests := []struct {
		name string
		mask *image.Gray
	}{
		{"empty mask", testutil.NewMask(20, 3)},
		{"full mask", testutil.BandMask(20, 3, [2]int{0, 20})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, degenerate, err := p.Project(tt.mask)
			if err != nil {
				t.Fatalf("Project: %v", err)
			}
			if !degenerate {
				t.Error("expected degenerate signal")
			}
			if len(sig) != 16 {
				t.Fatalf("len(sig) = %d, want 16", len(sig))
			}
			for i, v := range sig {
				if v != 0 {
					t.Fatalf("sig[%d] = %f, want 0", i, v)
				}
			}
		})
	}
}

func TestProject_Geometry(t *testing.T) {
	p := NewProjector(Params{LaneWidth: 5, BandWidth: 4})

	sig, _, err := p.Project(testutil.NewMask(5, 4))
	if err != nil {
		t.Fatalf("mask as wide as lane: %v", err)
	}
	if len(sig) != 0 {
		t.Errorf("len(sig) = %d, want 0", len(sig))
	}

	if _, _, err := p.Project(testutil.NewMask(4, 4)); !errors.Is(err, ErrMaskTooNarrow) {
		t.Errorf("narrow mask err = %v, want ErrMaskTooNarrow", err)
	}
	if _, _, err := p.Project(testutil.NewMask(20, 3)); !errors.Is(err, ErrFrameRejected) {
		t.Errorf("short mask err = %v, want ErrFrameRejected", err)
	}
	if _, _, err := p.Project(nil); !errors.Is(err, ErrFrameRejected) {
		t.Errorf("nil mask err = %v, want ErrFrameRejected", err)
	}
}

func TestProject_DoesNotMutateMask(t *testing.T) {
	p := NewProjector(Params{LaneWidth: 3, BandWidth: 2})
	mask := testutil.BandMask(12, 2, [2]int{1, 3}, [2]int{7, 9})
	before := bytes.Clone(mask.Pix)

	if _, _, err := p.Project(mask); err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !bytes.Equal(before, mask.Pix) {
		t.Error("Project modified the input mask")
	}
}

func TestProject_SubImageBand(t *testing.T) {
	params := Params{LaneWidth: 3, BandWidth: 2, BandBottomOffset: 1, Spacing: 1}
	geom, err := NewGeometry(params, 10, 6)
	if err != nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	full := testutil.FrameMask(10, 6, geom.Band, [2]int{4, 6})
	// motion outside the band must not contribute
	testutil.FillBlobs(full, testutil.Blob{X0: 0, X1: 2, Y0: 0, Y1: 2})

	band, err := geom.CropBand(full)
	if err != nil {
		t.Fatalf("CropBand: %v", err)
	}
	sig, _, err := NewProjector(params).Project(band)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	want := []float64{0, 0, 0.5, 1, 1, 0.5, 0}
	for i := range want {
		if math.Abs(sig[i]-want[i]) > 1e-12 {
			t.Errorf("sig[%d] = %f, want %f", i, sig[i], want[i])
		}
	}
}

func TestProject_ReusesScratchAcrossWidths(t *testing.T) {
	p := NewProjector(Params{LaneWidth: 2, BandWidth: 1})
	if _, _, err := p.Project(testutil.BandMask(30, 1, [2]int{3, 5})); err != nil {
		t.Fatalf("wide: %v", err)
	}
	sig, _, err := p.Project(testutil.BandMask(6, 1, [2]int{0, 1}))
	if err != nil {
		t.Fatalf("narrow: %v", err)
	}
	want := []float64{1, 0, 0, 0}
	for i := range want {
		if sig[i] != want[i] {
			t.Errorf("sig[%d] = %f, want %f", i, sig[i], want[i])
		}
	}
}
