package series

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// LoadSeries walks a directory, parses every DICOM image file found, and
// returns the sorted slice stack. Files that do not parse as DICOM or carry
// no pixel data (such as an RTSTRUCT stored alongside the images) are
// skipped silently; files that are images but miss geometry attributes
// fail the load.
func LoadSeries(path string) (*Series, error) {
	s := &Series{}
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ds, err := dicom.ParseFile(p, nil)
		if err != nil {
			return nil
		}
		if _, err := ds.FindElementByTag(tag.PixelData); err != nil {
			return nil
		}
		sl, err := sliceFromDataset(ds)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		s.Slices = append(s.Slices, sl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	if len(s.Slices) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoImagesFound)
	}
	if err := s.SortByPosition(); err != nil {
		return nil, err
	}
	return s, nil
}

func sliceFromDataset(ds dicom.Dataset) (Slice, error) {
	var sl Slice
	var err error

	if sl.SOPInstanceUID, err = firstString(ds, tag.SOPInstanceUID); err != nil {
		return sl, err
	}
	if sl.SOPClassUID, err = firstString(ds, tag.SOPClassUID); err != nil {
		return sl, err
	}
	sl.FrameOfReferenceUID, _ = firstString(ds, tag.FrameOfReferenceUID)
	if sl.Rows, err = firstInt(ds, tag.Rows); err != nil {
		return sl, err
	}
	if sl.Columns, err = firstInt(ds, tag.Columns); err != nil {
		return sl, err
	}

	spacing, err := floats(ds, tag.PixelSpacing, 2)
	if err != nil {
		return sl, err
	}
	copy(sl.PixelSpacing[:], spacing)

	position, err := floats(ds, tag.ImagePositionPatient, 3)
	if err != nil {
		return sl, err
	}
	copy(sl.Position[:], position)

	orientation, err := floats(ds, tag.ImageOrientationPatient, 6)
	if err != nil {
		return sl, err
	}
	copy(sl.Orientation[:], orientation)

	return sl, nil
}

func firstString(ds dicom.Dataset, t tag.Tag) (string, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return "", fmt.Errorf("tag %v: %w", t, err)
	}
	vals, ok := el.Value.GetValue().([]string)
	if !ok || len(vals) == 0 {
		return "", fmt.Errorf("tag %v: empty string value", t)
	}
	return vals[0], nil
}

func firstInt(ds dicom.Dataset, t tag.Tag) (int, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, fmt.Errorf("tag %v: %w", t, err)
	}
	vals, ok := el.Value.GetValue().([]int)
	if !ok || len(vals) == 0 {
		return 0, fmt.Errorf("tag %v: empty integer value", t)
	}
	return vals[0], nil
}

func floats(ds dicom.Dataset, t tag.Tag, want int) ([]float64, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, fmt.Errorf("tag %v: %w", t, err)
	}
	vals, ok := el.Value.GetValue().([]string)
	if !ok {
		return nil, fmt.Errorf("tag %v: unexpected value type %T", t, el.Value.GetValue())
	}
	if len(vals) != want {
		return nil, fmt.Errorf("tag %v: got %d values, want %d", t, len(vals), want)
	}
	out := make([]float64, want)
	for i, v := range vals {
		if out[i], err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("tag %v: parsing %q: %w", t, v, err)
		}
	}
	return out, nil
}
