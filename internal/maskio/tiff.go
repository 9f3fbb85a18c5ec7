// Package maskio persists mask volumes as stacks of grayscale TIFF files,
// one file per slice, for inspection and interchange with image tooling.
package maskio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/tiff"

	"rtmask/internal/mask"
)

// ErrNoSlicesFound means the directory held no TIFF files to read back.
var ErrNoSlicesFound = errors.New("no TIFF slices found")

// WriteStack writes one slice_NNN.tiff per slice, foreground as white.
func WriteStack(dir string, m *mask.Mask) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for s := 0; s < m.Slices; s++ {
		img := image.NewGray(image.Rect(0, 0, m.Columns, m.Rows))
		for r := 0; r < m.Rows; r++ {
			for c := 0; c < m.Columns; c++ {
				if m.At(c, r, s) {
					img.SetGray(c, r, color.Gray{Y: 255})
				}
			}
		}
		if err := writeSlice(filepath.Join(dir, fmt.Sprintf("slice_%03d.tiff", s)), img); err != nil {
			return err
		}
	}
	return nil
}

func writeSlice(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := tiff.Encode(f, img, nil); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ReadStack reads every .tif/.tiff file in the directory in lexical order
// and rebuilds the mask volume. Any nonzero pixel counts as foreground.
func ReadStack(dir string) (*mask.Mask, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".tif", ".tiff":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoSlicesFound)
	}
	sort.Strings(paths)

	var m *mask.Mask
	for i, path := range paths {
		img, err := readSlice(path)
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		if m == nil {
			m = mask.New(b.Dx(), b.Dy(), len(paths))
		} else if b.Dx() != m.Columns || b.Dy() != m.Rows {
			return nil, fmt.Errorf("%s: slice is %dx%d, stack is %dx%d",
				path, b.Dx(), b.Dy(), m.Columns, m.Rows)
		}
		for r := 0; r < m.Rows; r++ {
			for c := 0; c < m.Columns; c++ {
				if y, _, _, _ := img.At(b.Min.X+c, b.Min.Y+r).RGBA(); y > 0 {
					m.Set(c, r, i, true)
				}
			}
		}
	}
	return m, nil
}

func readSlice(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
