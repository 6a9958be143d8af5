package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"
)

// MaxAnomalyFlags bounds the flags accepted in an Assessment.
const MaxAnomalyFlags = 10

const sectionsSystemPrompt = `You are a radiology assistant. From the DICOM metadata and pixel statistics provided, write factual technical content only.
You cannot make a clinical diagnosis from pixel statistics. Be precise, concise and conservative.
Answer with a single JSON object and nothing else:
{"study_technique": "modality, body part, slice thickness, pixel spacing, date; 2 to 4 sentences",
 "preliminary_findings": "objective observations from pixel statistics and data quality; state that morphology needs radiologist review; 3 to 5 sentences",
 "conclusions": "technical summary of image quality and acquisition adequacy, no diagnosis; 2 to 3 sentences"}`

const assessSystemPrompt = `You are a technical medical data validation agent. From the JSON of an imaging analysis:
1. check data consistency (intensity range against modality, dimensions, spacings);
2. detect quality anomalies (missing data, out of range values);
3. score confidence based only on data consistency;
4. never diagnose and never invent data absent from the JSON.
Reference ranges for CT: min > -1100 HU, max < 4000 HU, pixel spacing 0.1 to 2.5 mm, slice thickness 0.5 to 10 mm, at least 64x64 px, data_consistency_score >= 0.5.
Answer with a single JSON object and nothing else:
{"confidence_score": 0.0-1.0, "clinical_consistency_score": 0.0-1.0, "anomaly_flags": ["snake_case_code", ...], "validation_notes": "one sentence or omitted"}`

// generator is the part of an eino chat model the backend uses.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// ChatConfig configures a ChatBackend.
type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// RPM is the number of model calls allowed per minute.
	RPM     int
	Burst   int
	Timeout time.Duration
}

// ChatBackend asks an OpenAI-compatible chat model for strict JSON answers.
type ChatBackend struct {
	gen     generator
	model   string
	limiter *rate.Limiter
	timeout time.Duration
}

// NewChatBackend connects to the chat model described by cfg.
func NewChatBackend(ctx context.Context, cfg ChatConfig) (*ChatBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key is not set")
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return newChatBackend(cm, cfg), nil
}

func newChatBackend(gen generator, cfg ChatConfig) *ChatBackend {
	rpm := max(cfg.RPM, 1)
	burst := max(cfg.Burst, 1)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatBackend{
		gen:     gen,
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		timeout: timeout,
	}
}

// Name returns the model name.
func (b *ChatBackend) Name() string {
	return b.model
}

// Sections asks the model for the three narrative sections.
func (b *ChatBackend) Sections(ctx context.Context, facts Facts) (*Sections, error) {
	var s Sections
	if err := b.ask(ctx, sectionsSystemPrompt, "Available DICOM data:\n", facts, &s); err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.StudyTechnique) == "" ||
		strings.TrimSpace(s.PreliminaryFindings) == "" ||
		strings.TrimSpace(s.Conclusions) == "" {
		return nil, fmt.Errorf("%w: missing section", ErrMalformed)
	}
	return &s, nil
}

// Assess asks the model for a consistency review.
func (b *ChatBackend) Assess(ctx context.Context, facts Facts) (*Assessment, error) {
	var raw struct {
		ConfidenceScore          *float64  `json:"confidence_score"`
		ClinicalConsistencyScore *float64  `json:"clinical_consistency_score"`
		AnomalyFlags             *[]string `json:"anomaly_flags"`
		ValidationNotes          string    `json:"validation_notes"`
	}
	if err := b.ask(ctx, assessSystemPrompt, "Analysis data to validate:\n", facts, &raw); err != nil {
		return nil, err
	}
	if raw.ConfidenceScore == nil || raw.ClinicalConsistencyScore == nil || raw.AnomalyFlags == nil {
		return nil, fmt.Errorf("%w: missing required field", ErrMalformed)
	}
	for _, s := range []float64{*raw.ConfidenceScore, *raw.ClinicalConsistencyScore} {
		if s < 0 || s > 1 {
			return nil, fmt.Errorf("%w: score %v out of [0, 1]", ErrMalformed, s)
		}
	}
	if len(*raw.AnomalyFlags) > MaxAnomalyFlags {
		return nil, fmt.Errorf("%w: %d anomaly flags", ErrMalformed, len(*raw.AnomalyFlags))
	}

	a := &Assessment{
		ConfidenceScore:          *raw.ConfidenceScore,
		ClinicalConsistencyScore: *raw.ClinicalConsistencyScore,
		AnomalyFlags:             *raw.AnomalyFlags,
	}
	if notes := strings.TrimSpace(raw.ValidationNotes); notes != "" {
		a.ValidationNotes = &notes
	}
	return a, nil
}

func (b *ChatBackend) ask(ctx context.Context, system, intro string, facts Facts, out any) error {
	payload, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	messages := []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: intro + string(payload)},
	}
	resp, err := b.gen.Generate(ctx, messages)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("%w: empty response", ErrMalformed)
	}

	dec := json.NewDecoder(strings.NewReader(stripFences(resp.Content)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// stripFences removes a surrounding Markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
