// Package rtstruct reads and writes the minimal slice of a DICOM RT
// Structure Set needed to persist region-of-interest contours: named ROIs,
// their closed planar contours, and the image slices they reference.
package rtstruct

import (
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"rtmask/internal/roi"
	"rtmask/internal/series"
)

const rtStructureSetStorage = "1.2.840.10008.5.1.4.1.1.481.3"

// ROI is one named structure and its contours across the series.
type ROI struct {
	Number   int
	Name     string
	Contours []roi.Contour
}

// StructureSet holds the ROIs of one RTSTRUCT file.
type StructureSet struct {
	Label string
	ROIs  []ROI
}

// ROIByName returns the first ROI with the given name.
func (s *StructureSet) ROIByName(name string) (ROI, bool) {
	for _, r := range s.ROIs {
		if r.Name == name {
			return r, true
		}
	}
	return ROI{}, false
}

// Build assembles an RTSTRUCT dataset for the given ROIs against the series
// the contours reference. The SOPInstanceUID derives from the label and the
// first slice, so rebuilding the same structure set is reproducible.
func Build(s *series.Series, label string, rois []ROI) (dicom.Dataset, error) {
	if len(s.Slices) == 0 {
		return dicom.Dataset{}, series.ErrNoImagesFound
	}
	first := s.Slices[0]
	sopUID := deterministicUID(label + "_" + first.SOPInstanceUID)

	var structureSetItems [][]*dicom.Element
	var roiContourItems [][]*dicom.Element
	for i, r := range rois {
		number := r.Number
		if number == 0 {
			number = i + 1
		}
		roiItem := []*dicom.Element{
			mustNewElement(tag.ROINumber, []string{strconv.Itoa(number)}),
		}
		// Older or anonymized series may omit the frame of reference; an
		// empty UID string is invalid, so the element is left out entirely.
		if first.FrameOfReferenceUID != "" {
			roiItem = append(roiItem,
				mustNewElement(tag.ReferencedFrameOfReferenceUID, []string{first.FrameOfReferenceUID}))
		}
		roiItem = append(roiItem,
			mustNewElement(tag.ROIName, []string{r.Name}),
			mustNewElement(tag.ROIGenerationAlgorithm, []string{"AUTOMATIC"}),
		)
		structureSetItems = append(structureSetItems, roiItem)

		var contourItems [][]*dicom.Element
		for _, c := range r.Contours {
			sl := s.SliceIndex(c.ReferencedSOPInstanceUID)
			if sl < 0 {
				return dicom.Dataset{}, fmt.Errorf("%s: %w", c.ReferencedSOPInstanceUID, roi.ErrUnknownSlice)
			}
			data := make([]string, len(c.Data))
			for j, v := range c.Data {
				data[j] = fmt.Sprintf("%.6f", v)
			}
			contourItems = append(contourItems, []*dicom.Element{
				mustNewElement(tag.ContourImageSequence, [][]*dicom.Element{{
					mustNewElement(tag.ReferencedSOPClassUID, []string{s.Slices[sl].SOPClassUID}),
					mustNewElement(tag.ReferencedSOPInstanceUID, []string{c.ReferencedSOPInstanceUID}),
				}}),
				mustNewElement(tag.ContourGeometricType, []string{"CLOSED_PLANAR"}),
				mustNewElement(tag.NumberOfContourPoints, []string{strconv.Itoa(len(c.Data) / 3)}),
				mustNewElement(tag.ContourData, data),
			})
		}
		roiContourItems = append(roiContourItems, []*dicom.Element{
			mustNewElement(tag.ROIDisplayColor, []string{"255", "0", "0"}),
			mustNewElement(tag.ReferencedROINumber, []string{strconv.Itoa(number)}),
			mustNewElement(tag.ContourSequence, contourItems),
		})
	}

	elements := []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.SOPClassUID, []string{rtStructureSetStorage}),
		mustNewElement(tag.SOPInstanceUID, []string{sopUID}),
		mustNewElement(tag.Modality, []string{"RTSTRUCT"}),
		mustNewElement(tag.StructureSetLabel, []string{label}),
		mustNewElement(tag.StructureSetROISequence, structureSetItems),
		mustNewElement(tag.ROIContourSequence, roiContourItems),
	}
	return dicom.Dataset{Elements: elements}, nil
}

// Write builds and writes an RTSTRUCT file in one step.
func Write(path string, s *series.Series, label string, rois []ROI) error {
	ds, err := Build(s, label, rois)
	if err != nil {
		return err
	}
	return writeDatasetToFile(path, ds)
}

// Read parses an RTSTRUCT file into its structure set.
func Read(path string) (*StructureSet, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return FromDataset(ds)
}

// FromDataset extracts the structure set from a parsed dataset.
func FromDataset(ds dicom.Dataset) (*StructureSet, error) {
	set := &StructureSet{}
	if el, err := ds.FindElementByTag(tag.StructureSetLabel); err == nil {
		if vals, ok := el.Value.GetValue().([]string); ok && len(vals) > 0 {
			set.Label = vals[0]
		}
	}

	names := make(map[int]string)
	if el, err := ds.FindElementByTag(tag.StructureSetROISequence); err == nil {
		for _, item := range sequenceItems(el) {
			number, ok := itemInt(item, tag.ROINumber)
			if !ok {
				continue
			}
			names[number] = itemString(item, tag.ROIName)
		}
	}

	el, err := ds.FindElementByTag(tag.ROIContourSequence)
	if err != nil {
		return nil, fmt.Errorf("no ROI contours: %w", err)
	}
	for _, item := range sequenceItems(el) {
		number, _ := itemInt(item, tag.ReferencedROINumber)
		r := ROI{Number: number, Name: names[number]}

		if seq := findInItem(item, tag.ContourSequence); seq != nil {
			for _, contourItem := range sequenceItems(seq) {
				c, err := contourFromItem(contourItem)
				if err != nil {
					return nil, fmt.Errorf("ROI %q: %w", r.Name, err)
				}
				r.Contours = append(r.Contours, c)
			}
		}
		set.ROIs = append(set.ROIs, r)
	}
	return set, nil
}

func contourFromItem(item []*dicom.Element) (roi.Contour, error) {
	var c roi.Contour
	if seq := findInItem(item, tag.ContourImageSequence); seq != nil {
		if images := sequenceItems(seq); len(images) > 0 {
			c.ReferencedSOPInstanceUID = itemString(images[0], tag.ReferencedSOPInstanceUID)
		}
	}

	raw := itemStrings(item, tag.ContourData)
	if len(raw) == 0 || len(raw)%3 != 0 {
		return c, roi.ErrEmptyContour
	}
	c.Data = make([]float64, len(raw))
	for i, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c, fmt.Errorf("contour data %q: %w", v, err)
		}
		c.Data[i] = f
	}
	return c, nil
}

func deterministicUID(name string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return fmt.Sprintf("2.25.%d", h.Sum64())
}
