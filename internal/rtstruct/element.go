package rtstruct

import (
	"fmt"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

func writeDatasetToFile(filename string, ds dicom.Dataset, opts ...dicom.WriteOption) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return dicom.Write(f, ds, opts...)
}

// sequenceItems unwraps a sequence element into its per-item element lists.
func sequenceItems(el *dicom.Element) [][]*dicom.Element {
	items, ok := el.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		return nil
	}
	out := make([][]*dicom.Element, 0, len(items))
	for _, item := range items {
		if elements, ok := item.GetValue().([]*dicom.Element); ok {
			out = append(out, elements)
		}
	}
	return out
}

func findInItem(elements []*dicom.Element, t tag.Tag) *dicom.Element {
	for _, el := range elements {
		if el.Tag == t {
			return el
		}
	}
	return nil
}

func itemString(elements []*dicom.Element, t tag.Tag) string {
	el := findInItem(elements, t)
	if el == nil {
		return ""
	}
	if vals, ok := el.Value.GetValue().([]string); ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func itemStrings(elements []*dicom.Element, t tag.Tag) []string {
	el := findInItem(elements, t)
	if el == nil {
		return nil
	}
	vals, _ := el.Value.GetValue().([]string)
	return vals
}

// itemInt reads an integer value that decoders surface either as []int or,
// for IS strings, as []string.
func itemInt(elements []*dicom.Element, t tag.Tag) (int, bool) {
	el := findInItem(elements, t)
	if el == nil {
		return 0, false
	}
	switch vals := el.Value.GetValue().(type) {
	case []int:
		if len(vals) > 0 {
			return vals[0], true
		}
	case []string:
		if len(vals) > 0 {
			var n int
			if _, err := fmt.Sscanf(vals[0], "%d", &n); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
