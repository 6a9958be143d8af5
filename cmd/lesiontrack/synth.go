package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrsinham/lesiontrack/internal/dicom/synth"
)

func synthCmd(a *app) *cobra.Command {
	opts := synth.DefaultOptions("")
	var (
		modality string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a deterministic synthetic DICOM series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := synth.ParseModality(modality)
			if err != nil {
				return err
			}
			opts.Modality = m
			for _, raw := range tags {
				tv, err := synth.ParseTagValue(raw)
				if err != nil {
					return err
				}
				opts.Tags = append(opts.Tags, tv)
			}
			opts.Log = a.log

			files, err := synth.Generate(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Wrote %d %s slices to %s\n", len(files), m, opts.OutputDir)
			if len(files) > 0 {
				fmt.Fprintf(a.stdout, "  StudyInstanceUID:  %s\n", files[0].StudyUID)
				fmt.Fprintf(a.stdout, "  SeriesInstanceUID: %s\n", files[0].SeriesUID)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.OutputDir, "out", "", "output directory")
	f.StringVar(&modality, "modality", string(opts.Modality), "modality (CT, MR, SR)")
	f.IntVar(&opts.Slices, "slices", opts.Slices, "number of slices")
	f.IntVar(&opts.Size, "size", opts.Size, "square matrix size in pixels")
	f.Float64Var(&opts.PixelSpacing, "spacing", opts.PixelSpacing, "pixel spacing in mm, 0 omits the tag")
	f.Float64Var(&opts.SliceSpacing, "slice-spacing", opts.SliceSpacing, "slice spacing in mm")
	f.Uint64Var(&opts.Seed, "seed", opts.Seed, "seed for UIDs and pixel texture")
	f.StringVar(&opts.PatientID, "patient-id", opts.PatientID, "PatientID")
	f.StringVar(&opts.PatientName, "patient-name", "", "PatientName (default: derived from seed)")
	f.StringVar(&opts.StudyDate, "study-date", opts.StudyDate, "StudyDate (YYYYMMDD)")
	f.StringVar(&opts.StudyUID, "study-uid", "", "StudyInstanceUID (default: derived from seed)")
	f.StringVar(&opts.SeriesUID, "series-uid", "", "SeriesInstanceUID (default: derived from seed)")
	f.StringArrayVar(&tags, "tag", nil, "header override Keyword=Value, repeatable")
	f.BoolVar(&opts.OmitInstanceNumber, "no-instance-number", false, "omit InstanceNumber")
	f.BoolVar(&opts.OmitPosition, "no-position", false, "omit ImagePositionPatient")
	f.BoolVar(&opts.Flat, "flat", false, "constant pixel values")
	f.BoolVar(&opts.Extensionless, "extensionless", false, "write files without the .dcm extension")
	f.BoolVar(&opts.Overlay, "overlay", false, "burn the slice label into the pixels")
	f.IntVar(&opts.Workers, "workers", 0, "parallel writers (default: number of CPUs)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
