package series

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"rtmask/internal/geometry"
	"rtmask/internal/synth"
)

func generateStack(t *testing.T, dir string, slices int, spacing float64) []synth.GeneratedFile {
	t.Helper()
	files, err := synth.GenerateSeries(synth.Options{
		OutputDir:    dir,
		Slices:       slices,
		Rows:         8,
		Columns:      10,
		PixelSpacing: [2]float64{0.8, 0.8},
		SliceSpacing: spacing,
		Origin:       [3]float64{-100, -100, -100},
		Orientation:  [6]float64{1, 0, 0, 0, 1, 0},
		Quiet:        true,
	})
	if err != nil {
		t.Fatalf("generating fixture stack: %v", err)
	}
	return files
}

func TestLoadSeries(t *testing.T) {
	dir := t.TempDir()
	files := generateStack(t, dir, 4, 2.5)

	s, err := LoadSeries(dir)
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if len(s.Slices) != 4 {
		t.Fatalf("expected 4 slices, got %d", len(s.Slices))
	}
	for i, sl := range s.Slices {
		if sl.SOPInstanceUID != files[i].SOPInstanceUID {
			t.Fatalf("slice %d: got UID %s, want %s", i, sl.SOPInstanceUID, files[i].SOPInstanceUID)
		}
		if sl.Rows != 8 || sl.Columns != 10 {
			t.Fatalf("slice %d: got %dx%d grid", i, sl.Rows, sl.Columns)
		}
		if math.Abs(sl.PixelSpacing[0]-0.8) > 1e-9 || math.Abs(sl.PixelSpacing[1]-0.8) > 1e-9 {
			t.Fatalf("slice %d: pixel spacing %v", i, sl.PixelSpacing)
		}
	}
}

func TestLoadSeriesSkipsNonDICOMFiles(t *testing.T) {
	dir := t.TempDir()
	generateStack(t, dir, 2, 1)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSeries(dir)
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if len(s.Slices) != 2 {
		t.Fatalf("expected 2 slices, got %d", len(s.Slices))
	}
}

func TestLoadSeriesEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readme.md"), []byte("empty"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadSeries(dir)
	if !errors.Is(err, ErrNoImagesFound) {
		t.Fatalf("expected ErrNoImagesFound, got %v", err)
	}
}

func TestSortByPosition(t *testing.T) {
	s := &Series{Slices: []Slice{
		{SOPInstanceUID: "c", Position: [3]float64{0, 0, 20}, Orientation: [6]float64{1, 0, 0, 0, 1, 0}},
		{SOPInstanceUID: "a", Position: [3]float64{0, 0, -10}, Orientation: [6]float64{1, 0, 0, 0, 1, 0}},
		{SOPInstanceUID: "b", Position: [3]float64{0, 0, 5}, Orientation: [6]float64{1, 0, 0, 0, 1, 0}},
	}}
	if err := s.SortByPosition(); err != nil {
		t.Fatalf("SortByPosition: %v", err)
	}
	got := []string{s.Slices[0].SOPInstanceUID, s.Slices[1].SOPInstanceUID, s.Slices[2].SOPInstanceUID}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestReferenceSpacing(t *testing.T) {
	dir := t.TempDir()
	generateStack(t, dir, 5, 3)

	s, err := LoadSeries(dir)
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	ref, err := s.Reference()
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}
	if math.Abs(ref.SliceSpacing-3) > 1e-6 {
		t.Fatalf("slice spacing %g, want 3", ref.SliceSpacing)
	}
	if math.Abs(ref.Origin[2]+100) > 1e-6 {
		t.Fatalf("origin %v, want z = -100", ref.Origin)
	}
}

func TestReferenceSingleSliceSentinelSpacing(t *testing.T) {
	s := &Series{Slices: []Slice{{
		SOPInstanceUID: "only",
		Rows:           4, Columns: 4,
		PixelSpacing: [2]float64{1, 1},
		Position:     [3]float64{0, 0, 42},
		Orientation:  [6]float64{1, 0, 0, 0, 1, 0},
	}}}
	ref, err := s.Reference()
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}
	if ref.SliceSpacing != 1 {
		t.Fatalf("single-slice spacing %g, want sentinel 1", ref.SliceSpacing)
	}
}

func TestReferenceInconsistentSeries(t *testing.T) {
	s := &Series{Slices: []Slice{
		{SOPInstanceUID: "a", Rows: 4, Columns: 4, Orientation: [6]float64{1, 0, 0, 0, 1, 0}},
		{SOPInstanceUID: "b", Rows: 8, Columns: 4, Orientation: [6]float64{1, 0, 0, 0, 1, 0}},
	}}
	_, err := s.Reference()
	if !errors.Is(err, ErrInconsistentSeries) {
		t.Fatalf("expected ErrInconsistentSeries, got %v", err)
	}
}

func TestReferenceBadOrientation(t *testing.T) {
	s := &Series{Slices: []Slice{{
		SOPInstanceUID: "a",
		Orientation:    [6]float64{1, 0, 0, 1, 0, 0},
	}}}
	_, err := s.Reference()
	if !errors.Is(err, geometry.ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestSliceIndex(t *testing.T) {
	s := &Series{Slices: []Slice{{SOPInstanceUID: "x"}, {SOPInstanceUID: "y"}}}
	if got := s.SliceIndex("y"); got != 1 {
		t.Fatalf("SliceIndex(y) = %d, want 1", got)
	}
	if got := s.SliceIndex("missing"); got != -1 {
		t.Fatalf("SliceIndex(missing) = %d, want -1", got)
	}
}
