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

// File describes one written DICOM file.
type File struct {
	Path           string
	StudyUID       string
	SeriesUID      string
	SOPInstanceUID string
	InstanceNumber int
	Z              float64
}

// sliceTask holds everything needed to write one slice.
type sliceTask struct {
	index     int
	path      string
	label     string
	pixelSeed uint64
	metadata  []*dicom.Element
	file      File
}

// Generate writes one series as described by opts and returns the files in
// slice order. Slices are written by a pool of workers.
func Generate(opts Options) ([]File, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	profile := profileFor(opts.Modality)
	studyUID := opts.StudyUID
	if studyUID == "" {
		studyUID = DeterministicUID(fmt.Sprintf("%d_%s_study", opts.Seed, opts.OutputDir))
	}
	seriesUID := opts.SeriesUID
	if seriesUID == "" {
		seriesUID = DeterministicUID(fmt.Sprintf("%d_%s_%s_series", opts.Seed, opts.OutputDir, opts.Modality))
	}

	tasks := make([]sliceTask, opts.Slices)
	for i := range tasks {
		instance := i + 1
		z := -100.0 + float64(i)*opts.SliceSpacing
		sopUID := DeterministicUID(fmt.Sprintf("%s_instance_%d", seriesUID, instance))

		name := fmt.Sprintf("IMG%04d", instance)
		if !opts.Extensionless {
			name += ".dcm"
		}

		h := fnv.New64a()
		_, _ = fmt.Fprintf(h, "%d_pixel_%d", opts.Seed, i)

		tasks[i] = sliceTask{
			index:     i,
			path:      filepath.Join(opts.OutputDir, name),
			label:     fmt.Sprintf("%s %d/%d", opts.Modality, instance, opts.Slices),
			pixelSeed: h.Sum64(),
			metadata:  sliceMetadata(opts, profile, studyUID, seriesUID, sopUID, instance, z),
			file: File{
				StudyUID:       studyUID,
				SeriesUID:      seriesUID,
				SOPInstanceUID: sopUID,
				InstanceNumber: instance,
				Z:              z,
			},
		}
		tasks[i].file.Path = tasks[i].path
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}
	opts.Log.Debug().Int("workers", workers).Int("slices", len(tasks)).Str("dir", opts.OutputDir).Msg("writing series")

	taskChan := make(chan sliceTask, len(tasks))
	errChan := make(chan error, len(tasks))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				if err := writeSlice(task, opts, profile); err != nil {
					errChan <- fmt.Errorf("write slice %d: %w", task.index+1, err)
				}
			}
		}()
	}
	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)
	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}

	files := make([]File, len(tasks))
	for i, task := range tasks {
		files[i] = task.file
	}
	opts.Log.Info().Int("files", len(files)).Str("modality", string(opts.Modality)).Str("dir", opts.OutputDir).Msg("series written")
	return files, nil
}

func sliceMetadata(opts Options, p modalityProfile, studyUID, seriesUID, sopUID string, instance int, z float64) []*dicom.Element {
	patientName := opts.PatientName
	if patientName == "" {
		patientName = PatientName(opts.Seed)
	}
	elems := []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.SOPClassUID, []string{p.sopClassUID}),
		mustNewElement(tag.SOPInstanceUID, []string{sopUID}),
		mustNewElement(tag.PatientID, []string{opts.PatientID}),
		mustNewElement(tag.PatientName, []string{patientName}),
		mustNewElement(tag.StudyInstanceUID, []string{studyUID}),
		mustNewElement(tag.StudyDate, []string{opts.StudyDate}),
		mustNewElement(tag.AccessionNumber, []string{fmt.Sprintf("ACC%08d", opts.Seed%100000000)}),
		mustNewElement(tag.SeriesInstanceUID, []string{seriesUID}),
		mustNewElement(tag.SeriesNumber, []string{"1"}),
		mustNewElement(tag.SeriesDescription, []string{fmt.Sprintf("Synthetic %s", opts.Modality)}),
		mustNewElement(tag.Modality, []string{string(opts.Modality)}),
		mustNewElement(tag.BodyPartExamined, []string{"CHEST"}),
	}
	if !opts.OmitInstanceNumber {
		elems = append(elems, mustNewElement(tag.InstanceNumber, []string{fmt.Sprintf("%d", instance)}))
	}
	if opts.Modality == SR {
		return applyTags(elems, opts.Tags)
	}

	if opts.PixelSpacing > 0 {
		elems = append(elems, mustNewElement(tag.PixelSpacing, []string{
			fmt.Sprintf("%.6f", opts.PixelSpacing),
			fmt.Sprintf("%.6f", opts.PixelSpacing),
		}))
	}
	if opts.SliceSpacing > 0 {
		elems = append(elems, mustNewElement(tag.SliceThickness, []string{fmt.Sprintf("%.6f", opts.SliceSpacing)}))
	}
	if !opts.OmitPosition {
		elems = append(elems,
			mustNewElement(tag.ImagePositionPatient, []string{"-100.000000", "-100.000000", fmt.Sprintf("%.6f", z)}),
			mustNewElement(tag.ImageOrientationPatient, []string{"1", "0", "0", "0", "1", "0"}),
		)
	}
	if p.rescale != nil {
		elems = append(elems,
			mustNewElement(tag.RescaleIntercept, []string{fmt.Sprintf("%g", p.rescale[0])}),
			mustNewElement(tag.RescaleSlope, []string{fmt.Sprintf("%g", p.rescale[1])}),
		)
	}
	px := p.pixels
	elems = append(elems,
		mustNewElement(tag.WindowCenter, []string{fmt.Sprintf("%.1f", p.window[0])}),
		mustNewElement(tag.WindowWidth, []string{fmt.Sprintf("%.1f", p.window[1])}),
		mustNewElement(tag.Rows, []int{opts.Size}),
		mustNewElement(tag.Columns, []int{opts.Size}),
		mustNewElement(tag.BitsAllocated, []int{px.BitsAllocated}),
		mustNewElement(tag.BitsStored, []int{px.BitsStored}),
		mustNewElement(tag.HighBit, []int{px.HighBit}),
		mustNewElement(tag.PixelRepresentation, []int{px.PixelRepresentation}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
	)
	return applyTags(elems, opts.Tags)
}

func writeSlice(task sliceTask, opts Options, p modalityProfile) error {
	elements := make([]*dicom.Element, len(task.metadata), len(task.metadata)+1)
	copy(elements, task.metadata)

	if opts.Modality != SR {
		size := opts.Size
		nativeFrame := frame.NewNativeFrame[uint16](16, size, size, size*size, 1)
		fillFrame(nativeFrame, size, p.pixels, task.pixelSeed, opts.Flat)
		if opts.Overlay && !opts.Flat {
			drawLabel(nativeFrame, size, p.pixels, task.label)
		}
		elements = append(elements, mustNewElement(tag.PixelData, dicom.PixelDataInfo{
			Frames: []*frame.Frame{{Encapsulated: false, NativeData: nativeFrame}},
		}))
	}

	f, err := os.Create(task.path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return dicom.Write(f, dicom.Dataset{Elements: elements})
}

func mustNewElement(t tag.Tag, value any) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}
