package main

import (
	"bytes"
	"context"

	"github.com/spf13/cobra"

	"github.com/mrsinham/lesiontrack/internal/analysis"
	"github.com/mrsinham/lesiontrack/internal/casefile"
	"github.com/mrsinham/lesiontrack/internal/report"
	"github.com/mrsinham/lesiontrack/internal/timeline"
	"github.com/mrsinham/lesiontrack/internal/vision"
)

// Output file names of a case run.
const (
	analysisFile = "analysis.json"
	timelineFile = "timeline.json"
	contextFile  = "context.json"
	reportFile   = "report.md"
)

// runSummary is printed on stdout once a case run completes.
type runSummary struct {
	CaseID        string   `json:"case_id"`
	OverallStatus string   `json:"overall_status"`
	Outputs       []string `json:"outputs"`
}

func runCmd(a *app) *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline described by a case manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := casefile.Load(manifest)
			if err != nil {
				return err
			}
			sum, err := a.runCase(cmd.Context(), c)
			if err != nil {
				return err
			}
			return a.writeJSON("", sum)
		},
	}
	cmd.Flags().StringVar(&manifest, "case", "", "case manifest (YAML)")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

// runCase analyses the DICOM input, compares measurements or the timeline
// when given, and writes the analysis and report context of the case.
func (a *app) runCase(ctx context.Context, c *casefile.Case) (*runSummary, error) {
	log := a.log.With().Str("case_id", c.CaseID).Logger()
	log.Info().Str("dicom", c.Dicom).Msg("case run started")

	res, err := a.analyzer().Analyze(c.Dicom, c.CaseID)
	if err != nil {
		return nil, err
	}
	caseID := res.CaseID

	var exams []analysis.Exam
	if c.Timeline != "" {
		if exams, err = timeline.Load(c.Timeline); err != nil {
			return nil, err
		}
	}

	var ca *analysis.CaseAnalysis
	switch {
	case c.Annotations != "":
		anns, err := vision.LoadAnnotations(c.Annotations)
		if err != nil {
			return nil, err
		}
		out, err := vision.NewBuilder(vision.WithLogger(a.log)).
			Measure(ctx, vision.Sources{Paths: append([]string{c.Dicom}, c.Studies...)}, anns)
		if err != nil {
			return nil, err
		}
		ca = a.engine().AnalyzeStudies(caseID, out).WithImaging(res)
	case c.Timeline != "":
		ca = a.engine().AnalyzeTimeline(caseID, exams).WithImaging(res)
	default:
		ca = a.engine().FromDicom(res)
	}

	doc, err := a.document(ca, true)
	if err != nil {
		return nil, err
	}

	sum := &runSummary{CaseID: caseID, OverallStatus: string(ca.OverallStatus)}
	write := func(name string, v any) error {
		path := c.Output(name)
		if err := a.writeJSON(path, v); err != nil {
			return err
		}
		sum.Outputs = append(sum.Outputs, path)
		return nil
	}

	if err := write(analysisFile, doc); err != nil {
		return nil, err
	}
	if c.Timeline != "" {
		if err := write(timelineFile, exams); err != nil {
			return nil, err
		}
	}

	if c.Enrich || c.Validate {
		if !a.cfg.LLM.Enabled {
			log.Info().Msg("narrative steps requested but llm.enabled is false, skipping")
		} else {
			enr := a.enricher(ctx)
			if c.Enrich {
				doc = enr.Enrich(ctx, doc)
			}
			if c.Validate {
				doc = enr.Validate(ctx, doc)
			}
			if err := a.writeJSON(c.Output(analysisFile), doc); err != nil {
				return nil, err
			}
		}
	}

	rc := report.Assemble(exams, doc, a.now())
	if err := write(contextFile, rc); err != nil {
		return nil, err
	}
	if err := a.writeMarkdown(c.Output(reportFile), rc); err != nil {
		return nil, err
	}
	sum.Outputs = append(sum.Outputs, c.Output(reportFile))

	log.Info().
		Str("status", sum.OverallStatus).
		Int("outputs", len(sum.Outputs)).
		Msg("case run completed")
	return sum, nil
}

func (a *app) writeMarkdown(path string, rc *report.Context) error {
	var buf bytes.Buffer
	if err := report.RenderMarkdown(&buf, rc); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}
