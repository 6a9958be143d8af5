// Package config loads lesiontrack settings from defaults, an optional YAML
// file and LESIONTRACK_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrsinham/lesiontrack/internal/analysis"
	"github.com/mrsinham/lesiontrack/internal/dicom"
)

// EnvPrefix prefixes every environment override, e.g. LESIONTRACK_LOG_LEVEL.
const EnvPrefix = "LESIONTRACK"

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Analyzer   AnalyzerConfig   `mapstructure:"analyzer"`
	Schema     SchemaConfig     `mapstructure:"schema"`
	LLM        LLMConfig        `mapstructure:"llm"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ThresholdsConfig struct {
	ProgressionPct   float64 `mapstructure:"progression_pct"`
	ProgressionAbsMM float64 `mapstructure:"progression_abs_mm"`
	ResponsePct      float64 `mapstructure:"response_pct"`
}

type AnalyzerConfig struct {
	MaxSampleSlices int `mapstructure:"max_sample_slices"`
}

type SchemaConfig struct {
	Validate bool `mapstructure:"validate"`
}

type LLMConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	RPM     int           `mapstructure:"rpm"`
	Burst   int           `mapstructure:"burst"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", FormatConsole)

	v.SetDefault("thresholds.progression_pct", analysis.DefaultProgressionPct)
	v.SetDefault("thresholds.progression_abs_mm", analysis.DefaultProgressionAbsMM)
	v.SetDefault("thresholds.response_pct", analysis.DefaultResponsePct)

	v.SetDefault("analyzer.max_sample_slices", dicom.DefaultMaxSampleSlices)
	v.SetDefault("schema.validate", true)

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.rpm", 30)
	v.SetDefault("llm.burst", 1)
	v.SetDefault("llm.timeout", 30*time.Second)
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment apply. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.AnalysisThresholds().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("thresholds: %w", err))
	}
	if c.Analyzer.MaxSampleSlices < 1 {
		errs = append(errs, fmt.Errorf("analyzer.max_sample_slices must be >= 1, got %d", c.Analyzer.MaxSampleSlices))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil || c.Log.Level == "" {
		errs = append(errs, fmt.Errorf("log.level %q is not a valid level", c.Log.Level))
	}
	if c.Log.Format != FormatConsole && c.Log.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("log.format must be %q or %q, got %q", FormatConsole, FormatJSON, c.Log.Format))
	}
	if c.LLM.RPM < 1 {
		errs = append(errs, fmt.Errorf("llm.rpm must be >= 1, got %d", c.LLM.RPM))
	}
	return errors.Join(errs...)
}

// AnalysisThresholds returns the classification thresholds.
func (c *Config) AnalysisThresholds() analysis.Thresholds {
	return analysis.Thresholds{
		ProgressionPct:   c.Thresholds.ProgressionPct,
		ProgressionAbsMM: c.Thresholds.ProgressionAbsMM,
		ResponsePct:      c.Thresholds.ResponsePct,
	}
}
