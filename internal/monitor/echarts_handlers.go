package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/lanecount/internal/counting"
	"github.com/banshee-data/lanecount/internal/httputil"
)

// echartsAssetsPrefix is where the rendered pages load echarts from.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleOccupancyChart renders the occupancy signal of the latest frame as a
// bar chart, with the accepted peaks overlaid as a second series.
func (ws *WebServer) handleOccupancyChart(w http.ResponseWriter, r *http.Request) {
	ws.mu.RLock()
	var latest counting.FrameResult
	if ws.latest != nil {
		latest = *ws.latest
	}
	has := ws.latest != nil
	ws.mu.RUnlock()

	if !has {
		httputil.NotFound(w, "no frames processed yet")
		return
	}

	peakAt := make(map[int]bool, len(latest.Peaks))
	for _, p := range latest.Peaks {
		peakAt[p] = true
	}

	x := make([]string, len(latest.Signal))
	occ := make([]opts.BarData, len(latest.Signal))
	peaks := make([]opts.BarData, len(latest.Signal))
	for i, v := range latest.Signal {
		x[i] = strconv.Itoa(i)
		occ[i] = opts.BarData{Value: v}
		if peakAt[i] {
			peaks[i] = opts.BarData{Value: v}
		} else {
			peaks[i] = opts.BarData{Value: "-"}
		}
	}

	subtitle := fmt.Sprintf("frame=%d peaks=%v add=%d total=%d", latest.Index, []int(latest.Peaks), latest.Added, latest.Total)
	if latest.Degenerate {
		subtitle += " (flat signal)"
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Lane occupancy", Width: "100%", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Occupancy signal", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "window start (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "normalised occupancy"}),
	)
	bar.SetXAxis(x).
		AddSeries("occupancy", occ, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"})).
		AddSeries("peaks", peaks, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))

	ws.renderPage(w, bar)
}

// handleCountsChart renders the running count and per-frame additions over
// the recent frame window.
func (ws *WebServer) handleCountsChart(w http.ResponseWriter, r *http.Request) {
	ws.mu.RLock()
	history := append([]counting.FrameResult(nil), ws.history...)
	ws.mu.RUnlock()

	x := make([]string, len(history))
	totals := make([]opts.LineData, len(history))
	added := make([]opts.LineData, len(history))
	for i, res := range history {
		x[i] = strconv.Itoa(res.Index)
		totals[i] = opts.LineData{Value: res.Total}
		added[i] = opts.LineData{Value: res.Added}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Vehicle count", Width: "100%", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Running count", Subtitle: fmt.Sprintf("last %d frames", len(history))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
	)
	line.SetXAxis(x).
		AddSeries("running_count", totals).
		AddSeries("add_num", added)

	ws.renderPage(w, line)
}

func (ws *WebServer) renderPage(w http.ResponseWriter, chart components.Charter) {
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(chart)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}
