package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/zeroth-me/particletrack/internal/track"
)

// WriteHTMLReport renders a single-file interactive run report: an
// α-versus-length scatter of every fitted track and a motion-class bar
// chart, plus the aggregate numbers in the page titles.
func WriteHTMLReport(path string, stats *track.RunStatistics, analyses []*track.TrackAnalysis) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Anomalous exponent by track length",
			Subtitle: fmt.Sprintf("%d tracks, %d detections, %d failed fits", stats.TrackCount, stats.DetectionCount, stats.FailedFits),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "track length"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "alpha"}),
	)

	points := make([]opts.ScatterData, 0, len(analyses))
	for _, a := range analyses {
		if a.Err != nil {
			continue
		}
		points = append(points, opts.ScatterData{
			Value: []interface{}{a.Length, a.Fit.Alpha},
		})
	}
	scatter.AddSeries("tracks", points)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Motion regime distribution",
			Subtitle: fmt.Sprintf("mean α %.3f, mean D %.4g", stats.AlphaMean, stats.DMean),
		}),
	)
	classes := []track.MotionClass{track.MotionConfined, track.MotionDiffusive, track.MotionDirected}
	labels := make([]string, len(classes))
	values := make([]opts.BarData, len(classes))
	for i, c := range classes {
		labels[i] = string(c)
		values[i] = opts.BarData{Value: stats.ClassCounts[c]}
	}
	bar.SetXAxis(labels).AddSeries("tracks", values)

	page := components.NewPage()
	page.AddCharts(scatter, bar)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
