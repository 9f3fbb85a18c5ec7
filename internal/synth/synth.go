// Package synth writes small synthetic DICOM image stacks with fully
// controlled geometry. It backs the CLI's synth mode and the fixture setup
// of the on-disk tests.
package synth

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const mrImageStorage = "1.2.840.10008.5.1.4.1.1.4"

// Options controls the generated stack. Zero values fall back to a small
// axial MR-like series.
type Options struct {
	OutputDir    string
	Slices       int
	Rows         int
	Columns      int
	PixelSpacing [2]float64 // (row, column) in mm
	SliceSpacing float64
	Origin       [3]float64 // position of the first slice
	Orientation  [6]float64
	Workers      int // 0 = number of CPUs
	Quiet        bool
}

func (o *Options) applyDefaults() {
	if o.Slices == 0 {
		o.Slices = 3
	}
	if o.Rows == 0 {
		o.Rows = 16
	}
	if o.Columns == 0 {
		o.Columns = 16
	}
	if o.PixelSpacing == ([2]float64{}) {
		o.PixelSpacing = [2]float64{1, 1}
	}
	if o.SliceSpacing == 0 {
		o.SliceSpacing = 1
	}
	if o.Orientation == ([6]float64{}) {
		o.Orientation = [6]float64{1, 0, 0, 0, 1, 0}
	}
}

// GeneratedFile describes one written slice.
type GeneratedFile struct {
	Path           string
	SOPInstanceUID string
	Position       [3]float64
}

type sliceTask struct {
	index int
	path  string
	ds    dicom.Dataset
}

// GenerateSeries writes opts.Slices image files into opts.OutputDir.
// Identifiers derive from the output directory name, so regenerating into
// the same directory reproduces the same UIDs.
func GenerateSeries(opts Options) ([]GeneratedFile, error) {
	opts.applyDefaults()
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	studyUID := deterministicUID(opts.OutputDir + "_study")
	seriesUID := deterministicUID(opts.OutputDir + "_series")
	frameUID := deterministicUID(opts.OutputDir + "_frame")

	files := make([]GeneratedFile, opts.Slices)
	tasks := make([]sliceTask, opts.Slices)
	for i := 0; i < opts.Slices; i++ {
		sopUID := deterministicUID(fmt.Sprintf("%s_instance_%d", opts.OutputDir, i+1))
		position := opts.Origin
		for axis := 0; axis < 3; axis++ {
			position[axis] += float64(i) * opts.SliceSpacing * normalAxis(opts.Orientation, axis)
		}
		path := filepath.Join(opts.OutputDir, fmt.Sprintf("IMG%04d.dcm", i+1))

		tasks[i] = sliceTask{
			index: i,
			path:  path,
			ds:    sliceDataset(opts, i, studyUID, seriesUID, frameUID, sopUID, position),
		}
		files[i] = GeneratedFile{Path: path, SOPInstanceUID: sopUID, Position: position}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	taskChan := make(chan sliceTask, len(tasks))
	resultChan := make(chan error, len(tasks))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				resultChan <- writeDatasetToFile(task.path, task.ds)
			}
		}()
	}
	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var firstErr error
	for err := range resultChan {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	if !opts.Quiet {
		fmt.Printf("%d image files created in %s\n", opts.Slices, opts.OutputDir)
	}
	return files, nil
}

func sliceDataset(opts Options, index int, studyUID, seriesUID, frameUID, sopUID string, position [3]float64) dicom.Dataset {
	orientation := make([]string, 6)
	for i, v := range opts.Orientation {
		orientation[i] = fmt.Sprintf("%.6f", v)
	}

	pixelsPerFrame := opts.Rows * opts.Columns
	nativeFrame := frame.NewNativeFrame[uint16](16, opts.Rows, opts.Columns, pixelsPerFrame, 1)
	for y := 0; y < opts.Rows; y++ {
		for x := 0; x < opts.Columns; x++ {
			// Deterministic gradient that differs per slice.
			nativeFrame.RawData[y*opts.Columns+x] = uint16((y*opts.Columns + x + index*31) % 4096)
		}
	}
	pixelDataInfo := dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nativeFrame,
			},
		},
	}

	elements := []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.PatientName, []string{"SYNTH^PHANTOM"}),
		mustNewElement(tag.PatientID, []string{"SYNTH001"}),
		mustNewElement(tag.StudyInstanceUID, []string{studyUID}),
		mustNewElement(tag.SeriesInstanceUID, []string{seriesUID}),
		mustNewElement(tag.FrameOfReferenceUID, []string{frameUID}),
		mustNewElement(tag.Modality, []string{"MR"}),
		mustNewElement(tag.SOPClassUID, []string{mrImageStorage}),
		mustNewElement(tag.SOPInstanceUID, []string{sopUID}),
		mustNewElement(tag.InstanceNumber, []string{fmt.Sprintf("%d", index+1)}),
		mustNewElement(tag.Rows, []int{opts.Rows}),
		mustNewElement(tag.Columns, []int{opts.Columns}),
		mustNewElement(tag.PixelSpacing, []string{
			fmt.Sprintf("%.6f", opts.PixelSpacing[0]),
			fmt.Sprintf("%.6f", opts.PixelSpacing[1]),
		}),
		mustNewElement(tag.SliceThickness, []string{fmt.Sprintf("%.6f", opts.SliceSpacing)}),
		mustNewElement(tag.SpacingBetweenSlices, []string{fmt.Sprintf("%.6f", opts.SliceSpacing)}),
		mustNewElement(tag.ImagePositionPatient, []string{
			fmt.Sprintf("%.6f", position[0]),
			fmt.Sprintf("%.6f", position[1]),
			fmt.Sprintf("%.6f", position[2]),
		}),
		mustNewElement(tag.ImageOrientationPatient, orientation),
		mustNewElement(tag.BitsAllocated, []int{16}),
		mustNewElement(tag.BitsStored, []int{12}),
		mustNewElement(tag.HighBit, []int{11}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustNewElement(tag.PixelData, pixelDataInfo),
	}
	return dicom.Dataset{Elements: elements}
}

// normalAxis returns one component of the cross product of the orientation's
// row and column directions.
func normalAxis(o [6]float64, axis int) float64 {
	row := [3]float64{o[0], o[1], o[2]}
	col := [3]float64{o[3], o[4], o[5]}
	switch axis {
	case 0:
		return row[1]*col[2] - row[2]*col[1]
	case 1:
		return row[2]*col[0] - row[0]*col[2]
	default:
		return row[0]*col[1] - row[1]*col[0]
	}
}

func deterministicUID(name string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return fmt.Sprintf("2.25.%d", h.Sum64())
}

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
