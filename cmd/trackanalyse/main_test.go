package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroth-me/particletrack/internal/track"
)

func writeTestPNG(t *testing.T, path string, set [][2]int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for _, p := range set {
		img.SetGray(p[1], p[0], color.Gray{Y: 200})
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestListFrameFiles_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "frame_002.png"), nil)
	writeTestPNG(t, filepath.Join(dir, "frame_001.png"), nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	files, err := listFrameFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "frame_001.png", filepath.Base(files[0]))
	assert.Equal(t, "frame_002.png", filepath.Base(files[1]))
}

func TestListFrameFiles_Empty(t *testing.T) {
	_, err := listFrameFiles(t.TempDir())
	require.Error(t, err)
}

func TestLoadMaskStack(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "m0.png"), [][2]int{{2, 2}, {2, 3}})
	writeTestPNG(t, filepath.Join(dir, "m1.png"), [][2]int{{5, 5}})

	stack, err := loadMaskStack(dir)
	require.NoError(t, err)
	require.Equal(t, []int{2, 8, 8}, stack.Shape)

	assert.Equal(t, 1, stack.Frame(0).At(2, 2))
	assert.Equal(t, 1, stack.Frame(0).At(2, 3))
	assert.Equal(t, 0, stack.Frame(0).At(5, 5))
	assert.Equal(t, 1, stack.Frame(1).At(5, 5))
}

func TestLoadImageStack_SizeMismatch(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "a.png"), nil)

	big := image.NewGray(image.Rect(0, 0, 16, 16))
	f, err := os.Create(filepath.Join(dir, "b.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, big))
	require.NoError(t, f.Close())

	_, err = loadImageStack(dir)
	require.Error(t, err)
}

func TestApplyAreaFilter(t *testing.T) {
	table := &track.Table{Dims: track.Dims2D, Rows: []track.Detection{
		{Frame: 0, Area: 1, Visible: true},
		{Frame: 0, Area: 10, Visible: true},
		{Frame: 0, Area: 100, Visible: true},
	}}

	filtered := applyAreaFilter(table, 5, 50)
	require.Len(t, filtered.Rows, 1)
	assert.Equal(t, 10.0, filtered.Rows[0].Area)

	unfiltered := applyAreaFilter(&track.Table{Rows: table.Rows}, 0, 0)
	assert.Len(t, unfiltered.Rows, len(table.Rows))
}
