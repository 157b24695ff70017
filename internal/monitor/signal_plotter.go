package monitor

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lanecount/internal/counting"
)

// SignalPlotter accumulates frame results during a run and writes PNG plots
// of the count over time and of the busiest frame's occupancy signal.
type SignalPlotter struct {
	mu        sync.Mutex
	outputDir string

	totals plotter.XYs
	added  plotter.XYs

	// busiest is the frame with the most peaks; later frames win ties.
	busiest *counting.FrameResult
}

// NewSignalPlotter creates a plotter that writes into outputDir.
func NewSignalPlotter(outputDir string) *SignalPlotter {
	return &SignalPlotter{outputDir: outputDir}
}

// HandleFrame records one frame result.
func (sp *SignalPlotter) HandleFrame(ctx context.Context, res counting.FrameResult) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	x := float64(res.Index)
	sp.totals = append(sp.totals, plotter.XY{X: x, Y: float64(res.Total)})
	sp.added = append(sp.added, plotter.XY{X: x, Y: float64(res.Added)})

	if !res.Degenerate && (sp.busiest == nil || len(res.Peaks) >= len(sp.busiest.Peaks)) {
		cp := res
		cp.Signal = append(counting.Signal(nil), res.Signal...)
		cp.Peaks = append(counting.PeakSet(nil), res.Peaks...)
		sp.busiest = &cp
	}
	return nil
}

// GeneratePlots writes the plots and returns the files created. Nothing is
// written when no frames were recorded.
func (sp *SignalPlotter) GeneratePlots() ([]string, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if len(sp.totals) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(sp.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}

	var files []string
	countFile := filepath.Join(sp.outputDir, "running_count.png")
	if err := sp.plotCounts(countFile); err != nil {
		return files, err
	}
	files = append(files, countFile)

	if sp.busiest != nil && len(sp.busiest.Signal) > 0 {
		sigFile := filepath.Join(sp.outputDir, fmt.Sprintf("occupancy_frame_%06d.png", sp.busiest.Index))
		if err := sp.plotSignal(sigFile, *sp.busiest); err != nil {
			return files, err
		}
		files = append(files, sigFile)
	}
	return files, nil
}

func (sp *SignalPlotter) plotCounts(file string) error {
	p := plot.New()
	p.Title.Text = "Running vehicle count"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Vehicles"

	totalLine, err := plotter.NewLine(sp.totals)
	if err != nil {
		return err
	}
	totalLine.Color = color.RGBA{R: 33, G: 150, B: 243, A: 255}
	totalLine.Width = vg.Points(1.5)
	p.Add(totalLine)
	p.Legend.Add("running_count", totalLine)

	addLine, err := plotter.NewLine(sp.added)
	if err != nil {
		return err
	}
	addLine.Color = color.RGBA{R: 255, G: 82, B: 82, A: 255}
	addLine.Width = vg.Points(1)
	p.Add(addLine)
	p.Legend.Add("add_num", addLine)

	return p.Save(14*vg.Inch, 6*vg.Inch, file)
}

func (sp *SignalPlotter) plotSignal(file string, res counting.FrameResult) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Frame %d - Occupancy signal (%d peaks)", res.Index, len(res.Peaks))
	p.X.Label.Text = "Window start (px)"
	p.Y.Label.Text = "Normalised occupancy"
	p.Y.Min = 0
	p.Y.Max = 1.05

	pts := make(plotter.XYs, len(res.Signal))
	for i, v := range res.Signal {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("occupancy", line)

	if len(res.Peaks) > 0 {
		peakPts := make(plotter.XYs, len(res.Peaks))
		for i, idx := range res.Peaks {
			peakPts[i] = plotter.XY{X: float64(idx), Y: res.Signal[idx]}
		}
		scatter, err := plotter.NewScatter(peakPts)
		if err != nil {
			return err
		}
		scatter.Color = color.RGBA{R: 255, G: 82, B: 82, A: 255}
		scatter.Radius = vg.Points(4)
		p.Add(scatter)
		p.Legend.Add("peaks", scatter)
	}

	return p.Save(14*vg.Inch, 6*vg.Inch, file)
}
