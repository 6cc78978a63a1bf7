// Command trackanalyse runs the detection → linking → MSD pipeline over
// an image stack on disk and writes the tracks table, fit results, and
// optional plots/report. Frames and label masks are directories of
// per-frame images (TIFF or PNG), paired by sorted filename.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/png"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	_ "golang.org/x/image/tiff"

	"github.com/zeroth-me/particletrack/internal/report"
	"github.com/zeroth-me/particletrack/internal/track"
	"github.com/zeroth-me/particletrack/internal/trackdb"
)

// Config holds the analysis parameters gathered from flags.
type Config struct {
	FramesDir string
	MasksDir  string
	OutputDir string
	DBPath    string

	SearchRange  float64
	Memory       int
	AdaptiveStop float64
	Delta        float64
	MSDLimit     int
	MaxFuncEvals int

	MinArea float64
	MaxArea float64

	Plots bool
	Notes string
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.FramesDir, "frames", "", "directory of per-frame intensity images (required)")
	flag.StringVar(&cfg.MasksDir, "masks", "", "directory of per-frame label masks (required)")
	flag.StringVar(&cfg.OutputDir, "out", "trackanalyse-out", "output directory")
	flag.StringVar(&cfg.DBPath, "db", "", "optional sqlite run store path")
	flag.Float64Var(&cfg.SearchRange, "search-range", 2, "max per-frame displacement for linking")
	flag.IntVar(&cfg.Memory, "memory", 0, "frames a particle may vanish and still relink")
	flag.Float64Var(&cfg.AdaptiveStop, "adaptive-stop", 0.95, "adaptive search radius floor, as a fraction of search-range")
	flag.Float64Var(&cfg.Delta, "delta", 3.8, "time per frame (ms)")
	flag.IntVar(&cfg.MSDLimit, "msd-limit", 25, "max MSD lag")
	flag.IntVar(&cfg.MaxFuncEvals, "maxfev", 1000000, "fit objective evaluation cap")
	flag.Float64Var(&cfg.MinArea, "min-area", 0, "drop detections smaller than this area")
	flag.Float64Var(&cfg.MaxArea, "max-area", 0, "drop detections larger than this area (0 = no limit)")
	flag.BoolVar(&cfg.Plots, "plots", false, "write MSD/fit plots and an HTML report")
	flag.StringVar(&cfg.Notes, "notes", "", "free-form note stored with the run")
	flag.Parse()

	if cfg.FramesDir == "" || cfg.MasksDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("trackanalyse: %v", err)
	}
}

func run(ctx context.Context, cfg Config) error {
	images, err := loadImageStack(cfg.FramesDir)
	if err != nil {
		return fmt.Errorf("load frames: %w", err)
	}
	masks, err := loadMaskStack(cfg.MasksDir)
	if err != nil {
		return fmt.Errorf("load masks: %w", err)
	}
	log.Printf("loaded %d frames (%dx%d)", images.Shape[0], images.Shape[1], images.Shape[2])

	progress := func(done, total int) {
		if done == total || done%25 == 0 {
			log.Printf("measured frame %d/%d", done, total)
		}
	}
	table, err := track.MeasureStack(ctx, images, masks, progress)
	if err != nil {
		return fmt.Errorf("measure stack: %w", err)
	}
	log.Printf("measured %d detections", len(table.Rows))

	accepted := applyAreaFilter(table, cfg.MinArea, cfg.MaxArea)
	if len(accepted.Rows) < len(table.Rows) {
		log.Printf("area filter kept %d/%d detections", len(accepted.Rows), len(table.Rows))
	}

	linkCfg := track.LinkerConfig{
		SearchRange:  cfg.SearchRange,
		Memory:       cfg.Memory,
		AdaptiveStop: cfg.AdaptiveStop,
	}
	tracks, err := track.Link(accepted, linkCfg)
	if err != nil {
		return fmt.Errorf("link detections: %w", err)
	}
	log.Printf("linked into %d tracks", len(tracks.TrackIDs()))

	analysisCfg := track.AnalysisConfig{
		MSDLimit: cfg.MSDLimit,
		Fit:      track.FitConfig{Delta: cfg.Delta, MaxFuncEvals: cfg.MaxFuncEvals},
	}
	analyses, err := track.FitTracks(ctx, tracks, analysisCfg, nil)
	if err != nil {
		return fmt.Errorf("fit tracks: %w", err)
	}

	stats := track.ComputeRunStatistics(tracks, analyses)
	log.Printf("fits: %d ok, %d failed; mean alpha %.3f",
		stats.TrackCount-stats.FailedFits, stats.FailedFits, stats.AlphaMean)

	if err := writeOutputs(cfg, tracks, analyses, stats); err != nil {
		return err
	}
	return nil
}

func writeOutputs(cfg Config, tracks *track.Tracks, analyses []*track.TrackAnalysis, stats *track.RunStatistics) error {
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	csvPath := filepath.Join(cfg.OutputDir, "tracks.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", csvPath, err)
	}
	if err := track.WriteCSV(f, tracks); err != nil {
		f.Close()
		return fmt.Errorf("write tracks csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("wrote %s", csvPath)

	statsPath := filepath.Join(cfg.OutputDir, "run_stats.json")
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	if err := os.WriteFile(statsPath, data, 0644); err != nil {
		return fmt.Errorf("write run stats: %w", err)
	}

	if cfg.DBPath != "" {
		db, err := trackdb.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		runID, err := db.InsertRun(trackdb.RunParams{
			SearchRange:  cfg.SearchRange,
			Memory:       cfg.Memory,
			AdaptiveStop: cfg.AdaptiveStop,
			Delta:        cfg.Delta,
			MSDLimit:     cfg.MSDLimit,
			Notes:        cfg.Notes,
		})
		if err != nil {
			return err
		}
		if err := db.SaveResults(runID, tracks, analyses); err != nil {
			return err
		}
		log.Printf("stored run %s in %s", runID, cfg.DBPath)
	}

	if cfg.Plots {
		plotDir := filepath.Join(cfg.OutputDir, "plots")
		if err := report.WriteRunPlots(plotDir, analyses); err != nil {
			return err
		}
		htmlPath := filepath.Join(cfg.OutputDir, "report.html")
		if err := report.WriteHTMLReport(htmlPath, stats, analyses); err != nil {
			return err
		}
		log.Printf("wrote plots to %s", plotDir)
	}
	return nil
}

// applyAreaFilter marks detections outside [minArea, maxArea] as not
// visible and returns the accepted rows. maxArea 0 means unbounded.
func applyAreaFilter(table *track.Table, minArea, maxArea float64) *track.Table {
	if minArea <= 0 && maxArea <= 0 {
		return table
	}
	for i := range table.Rows {
		a := table.Rows[i].Area
		if a < minArea || (maxArea > 0 && a > maxArea) {
			table.Rows[i].Visible = false
		}
	}
	return table.FilterVisible()
}

// listFrameFiles returns the directory's image files sorted by name, so
// zero-padded frame numbering defines the time order.
func listFrameFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".tif", ".tiff", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	return files, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// loadImageStack decodes a frame directory into a [T, H, W] intensity
// stack using 16-bit luminance.
func loadImageStack(dir string) (*track.Array, error) {
	files, err := listFrameFiles(dir)
	if err != nil {
		return nil, err
	}

	var stack *track.Array
	for i, path := range files {
		img, err := decodeImage(path)
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		if stack == nil {
			stack = track.NewArray(len(files), b.Dy(), b.Dx())
		} else if b.Dy() != stack.Shape[1] || b.Dx() != stack.Shape[2] {
			return nil, fmt.Errorf("%s: frame size %dx%d differs from first frame %dx%d",
				path, b.Dy(), b.Dx(), stack.Shape[1], stack.Shape[2])
		}
		frame := stack.Frame(i)
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				frame.Set(y, x, float64(r+g+bb)/3)
			}
		}
	}
	return stack, nil
}

// loadMaskStack decodes a mask directory into a [T, H, W] label stack.
// Any nonzero pixel is foreground; exact label values are irrelevant
// because measurement relabels connected components anyway.
func loadMaskStack(dir string) (*track.IntArray, error) {
	files, err := listFrameFiles(dir)
	if err != nil {
		return nil, err
	}

	var stack *track.IntArray
	for i, path := range files {
		img, err := decodeImage(path)
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		if stack == nil {
			stack = track.NewIntArray(len(files), b.Dy(), b.Dx())
		} else if b.Dy() != stack.Shape[1] || b.Dx() != stack.Shape[2] {
			return nil, fmt.Errorf("%s: mask size %dx%d differs from first mask %dx%d",
				path, b.Dy(), b.Dx(), stack.Shape[1], stack.Shape[2])
		}
		frame := stack.Frame(i)
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				if r+g+bb > 0 {
					frame.Set(y, x, 1)
				}
			}
		}
	}
	return stack, nil
}
