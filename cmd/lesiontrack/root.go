package main

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrsinham/lesiontrack/internal/analysis"
	"github.com/mrsinham/lesiontrack/internal/config"
	"github.com/mrsinham/lesiontrack/internal/dicom"
	"github.com/mrsinham/lesiontrack/internal/logging"
	"github.com/mrsinham/lesiontrack/internal/narrative"
	"github.com/mrsinham/lesiontrack/internal/report"
	"github.com/mrsinham/lesiontrack/internal/schema"
)

// app holds the state shared by every subcommand once the root pre-run has
// loaded the configuration.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log zerolog.Logger
	now func() time.Time
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, log: zerolog.Nop(), now: time.Now}

	root := &cobra.Command{
		Use:           "lesiontrack",
		Short:         "Oncology follow-up analysis from DICOM series and lesion timelines",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format (console or json)")

	root.AddCommand(
		analyzeCmd(a),
		compareCmd(a),
		measureCmd(a),
		reportCmd(a),
		runCmd(a),
		synthCmd(a),
		sizesCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.Log, a.stderr)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) engine() *analysis.Engine {
	return analysis.NewEngine(a.cfg.AnalysisThresholds(), a.log)
}

func (a *app) analyzer() *dicom.Analyzer {
	return dicom.NewAnalyzer(
		dicom.WithLogger(a.log),
		dicom.WithMaxSampleSlices(a.cfg.Analyzer.MaxSampleSlices),
	)
}

// document converts an analysis to its wire form, stamps the pipeline
// version and checks it against the output schema when enabled.
func (a *app) document(ca *analysis.CaseAnalysis, validate bool) (analysis.Document, error) {
	doc, err := ca.Document()
	if err != nil {
		return nil, err
	}
	doc["pipeline_version"] = report.PipelineVersion
	if validate && a.cfg.Schema.Validate {
		if err := schema.Validate(doc); err != nil {
			a.log.Error().Err(err).Str("case_id", ca.CaseID).Msg("analysis failed schema validation")
			return nil, err
		}
	}
	return doc, nil
}

// enricher returns the narrative enricher. Without llm.enabled, or when the
// chat backend cannot be built, it falls back to the no-op backend.
func (a *app) enricher(ctx context.Context) *narrative.Enricher {
	llm := a.cfg.LLM
	if !llm.Enabled {
		return narrative.NewEnricher(narrative.Noop{}, a.log)
	}
	b, err := narrative.NewChatBackend(ctx, narrative.ChatConfig{
		BaseURL: llm.BaseURL,
		APIKey:  llm.APIKey,
		Model:   llm.Model,
		RPM:     llm.RPM,
		Burst:   llm.Burst,
		Timeout: llm.Timeout,
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("narrative backend unavailable, enrichment disabled")
		return narrative.NewEnricher(narrative.Noop{}, a.log)
	}
	return narrative.NewEnricher(b, a.log)
}
