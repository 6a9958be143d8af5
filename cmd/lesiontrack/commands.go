package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrsinham/lesiontrack/internal/analysis"
	"github.com/mrsinham/lesiontrack/internal/lesion"
	"github.com/mrsinham/lesiontrack/internal/report"
	"github.com/mrsinham/lesiontrack/internal/timeline"
	"github.com/mrsinham/lesiontrack/internal/vision"
)

func analyzeCmd(a *app) *cobra.Command {
	var (
		dicomPath  string
		caseID     string
		out        string
		noValidate bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Structural analysis of a DICOM file or series folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.analyzer().Analyze(dicomPath, caseID)
			if err != nil {
				return err
			}
			doc, err := a.document(a.engine().FromDicom(res), !noValidate)
			if err != nil {
				return err
			}
			return a.writeJSON(out, doc)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dicomPath, "dicom", "", "DICOM file or series folder")
	f.StringVar(&caseID, "case-id", "", "case identifier (default: file stem or folder name)")
	f.StringVar(&out, "out", "", "output file (default: stdout)")
	f.BoolVar(&noValidate, "no-validate", false, "skip output schema validation")
	_ = cmd.MarkFlagRequired("dicom")
	return cmd
}

func compareCmd(a *app) *cobra.Command {
	var (
		timelinePath string
		caseID       string
		out          string
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the first and last measured exams of a timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exams, err := timeline.Load(timelinePath)
			if err != nil {
				return err
			}
			if caseID == "" {
				caseID = caseIDFromTimeline(timelinePath)
			}
			doc, err := a.document(a.engine().AnalyzeTimeline(caseID, exams), true)
			if err != nil {
				return err
			}
			return a.writeJSON(out, doc)
		},
	}
	f := cmd.Flags()
	f.StringVar(&timelinePath, "timeline", "", "timeline file (.json, .yaml)")
	f.StringVar(&caseID, "case-id", "", "case identifier (default: timeline file stem)")
	f.StringVar(&out, "out", "", "output file (default: stdout)")
	_ = cmd.MarkFlagRequired("timeline")
	return cmd
}

// caseIDFromTimeline turns "patient_01_timeline.json" into "patient_01".
func caseIDFromTimeline(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimSuffix(stem, "_timeline")
}

func measureCmd(a *app) *cobra.Command {
	var (
		paths       []string
		studyIDs    []string
		annotations string
		out         string
		caseID      string
		compare     bool
	)
	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Convert pixel annotations into millimetre measurements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			anns, err := vision.LoadAnnotations(annotations)
			if err != nil {
				return err
			}
			b := vision.NewBuilder(vision.WithLogger(a.log))
			res, err := b.Measure(cmd.Context(), vision.Sources{Paths: paths, StudyIDs: studyIDs}, anns)
			if err != nil {
				return err
			}
			if !compare {
				return a.writeJSON(out, res)
			}
			doc, err := a.document(a.engine().AnalyzeStudies(measureCaseID(caseID, paths, studyIDs), res), true)
			if err != nil {
				return err
			}
			return a.writeJSON(out, doc)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&paths, "dicom", nil, "DICOM files or folders, repeatable")
	f.StringSliceVar(&studyIDs, "study", nil, "remote study ids, repeatable")
	f.StringVar(&annotations, "annotations", "", "annotation JSON file")
	f.StringVar(&out, "out", "", "output file (default: stdout)")
	f.StringVar(&caseID, "case-id", "", "case identifier for --compare")
	f.BoolVar(&compare, "compare", false, "compare the first and last measured studies")
	_ = cmd.MarkFlagRequired("annotations")
	return cmd
}

// measureCaseID defaults the case id to the first local source's base name,
// then to the first remote study id.
func measureCaseID(caseID string, paths, studyIDs []string) string {
	switch {
	case caseID != "":
		return caseID
	case len(paths) > 0:
		return filepath.Base(filepath.Clean(paths[0]))
	case len(studyIDs) > 0:
		return studyIDs[0]
	}
	return "measure"
}

func reportCmd(a *app) *cobra.Command {
	var (
		analysisPath string
		timelinePath string
		out          string
		markdown     string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Assemble the report context of an analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := report.ReadDocument(analysisPath)
			if err != nil {
				return err
			}
			var exams []analysis.Exam
			if timelinePath != "" {
				if exams, err = timeline.Load(timelinePath); err != nil {
					return err
				}
			}
			rc := report.Assemble(exams, doc, a.now())
			if markdown != "" {
				if err := a.writeMarkdown(markdown, rc); err != nil {
					return err
				}
			}
			return a.writeJSON(out, rc)
		},
	}
	f := cmd.Flags()
	f.StringVar(&analysisPath, "analysis", "", "analysis JSON file")
	f.StringVar(&timelinePath, "timeline", "", "timeline file for the narrative sections")
	f.StringVar(&out, "out", "", "context output file (default: stdout)")
	f.StringVar(&markdown, "markdown", "", "also render a Markdown report to this file")
	_ = cmd.MarkFlagRequired("analysis")
	return cmd
}

func sizesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sizes TEXT...",
		Short: "Print the lesion sizes parsed from free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, text := range args {
				sizes := lesion.ParseSizesString(text)
				if sizes == nil {
					sizes = []float64{}
				}
				data, err := json.Marshal(sizes)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(a.stdout, string(data)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
