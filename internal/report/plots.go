// Package report renders headless plots and HTML summaries of a
// tracking run: per-track MSD curves with their fitted diffusion model,
// distribution histograms, and a single-file run report.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/zeroth-me/particletrack/internal/track"
)

var (
	msdColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	fitColor = color.RGBA{R: 220, G: 80, B: 60, A: 255}
)

// PlotMSDFit writes a PNG of one track's MSD curve and its fitted
// power-law model.
func PlotMSDFit(path string, analysis *track.TrackAnalysis) error {
	if analysis == nil || analysis.Series == nil || analysis.Fit == nil {
		return fmt.Errorf("plot msd fit: analysis has no fit")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Track %d  α=%.3f  D=%.4g", analysis.TrackID, analysis.Fit.Alpha, analysis.Fit.DiffusionCoefficient)
	p.X.Label.Text = "lag time (ms)"
	p.Y.Label.Text = "MSD"

	msdPts := make(plotter.XYs, len(analysis.Series.MSD))
	fitPts := make(plotter.XYs, len(analysis.Fit.Fitted))
	for i := range analysis.Series.MSD {
		msdPts[i].X = analysis.Fit.Times[i]
		msdPts[i].Y = analysis.Series.MSD[i]
		fitPts[i].X = analysis.Fit.Times[i]
		fitPts[i].Y = analysis.Fit.Fitted[i]
	}

	msdLine, err := plotter.NewLine(msdPts)
	if err != nil {
		return fmt.Errorf("build msd line: %w", err)
	}
	msdLine.Color = msdColor

	fitLine, err := plotter.NewLine(fitPts)
	if err != nil {
		return fmt.Errorf("build fit line: %w", err)
	}
	fitLine.Color = fitColor
	fitLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(msdLine, fitLine)
	p.Legend.Add("msd", msdLine)
	p.Legend.Add("fit", fitLine)
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save msd plot: %w", err)
	}
	return nil
}

// PlotHistogram writes a PNG bar chart of binned data, binned through
// the pipeline's shared histogram routine so the plot matches the
// statistics exactly.
func PlotHistogram(path, title string, data []float64, binsize float64) error {
	counts, edges, err := track.Histogram(data, binsize)
	if err != nil {
		return fmt.Errorf("bin %s: %w", title, err)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "count"

	bars, err := plotter.NewBarChart(plotter.Values(counts), vg.Points(18))
	if err != nil {
		return fmt.Errorf("build bar chart: %w", err)
	}
	bars.Color = msdColor
	bars.LineStyle.Width = 0
	p.Add(bars)

	labels := make([]string, len(counts))
	for i := range labels {
		labels[i] = fmt.Sprintf("%.3g", edges[i])
	}
	p.NominalX(labels...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save histogram plot: %w", err)
	}
	return nil
}

// WriteRunPlots renders the standard plot set for a run into dir:
// one MSD/fit plot per successfully fitted track plus length and α
// distribution histograms.
func WriteRunPlots(dir string, analyses []*track.TrackAnalysis) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}

	var lengths, alphas []float64
	for _, a := range analyses {
		lengths = append(lengths, float64(a.Length))
		if a.Err != nil {
			continue
		}
		alphas = append(alphas, a.Fit.Alpha)
		name := filepath.Join(dir, fmt.Sprintf("track_%04d_msd.png", a.TrackID))
		if err := PlotMSDFit(name, a); err != nil {
			return err
		}
	}

	if len(lengths) > 0 {
		if err := PlotHistogram(filepath.Join(dir, "track_lengths.png"), "Track lengths", lengths, 5); err != nil {
			return err
		}
	}
	if len(alphas) > 0 {
		if err := PlotHistogram(filepath.Join(dir, "alpha_distribution.png"), "Anomalous exponent", alphas, 0.1); err != nil {
			return err
		}
	}
	return nil
}
