package repair

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// generator sends one prompt and returns the reply text.
type generator interface {
	Generate(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (string, error)
}

// genaiGenerator calls the Gemini API through the genai SDK.
type genaiGenerator struct {
	client *genai.Client
}

func (g genaiGenerator) Generate(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Text(), nil
}

// GeminiOption configures a GeminiRepairer.
type GeminiOption func(*GeminiRepairer)

// WithModel sets the model name.
func WithModel(model string) GeminiOption {
	return func(r *GeminiRepairer) {
		if model != "" {
			r.model = model
		}
	}
}

// WithTimeout bounds each repair call.
func WithTimeout(d time.Duration) GeminiOption {
	return func(r *GeminiRepairer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) GeminiOption {
	return func(r *GeminiRepairer) {
		if l != nil {
			r.logger = l
		}
	}
}

// withGenerator replaces the API client.
func withGenerator(g generator) GeminiOption {
	return func(r *GeminiRepairer) {
		r.gen = g
	}
}

// GeminiRepairer repairs markup with a Gemini model.
type GeminiRepairer struct {
	gen     generator
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGemini creates a repairer authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiRepairer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	r := newGemini(opts...)
	if r.gen == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("creating Gemini client: %w", err)
		}
		r.gen = genaiGenerator{client: client}
	}
	return r, nil
}

func newGemini(opts ...GeminiOption) *GeminiRepairer {
	r := &GeminiRepairer{
		model:   DefaultModel,
		timeout: 30 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Model returns the configured model name.
func (r *GeminiRepairer) Model() string {
	return r.model
}

// generationConfig keeps replies short and deterministic.
func generationConfig() *genai.GenerateContentConfig {
	threshold := genai.HarmBlockThresholdBlockMediumAndAbove
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.1),
		TopK:            genai.Ptr[float32](1),
		TopP:            genai.Ptr[float32](1),
		MaxOutputTokens: 2048,
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: threshold},
			{Category: genai.HarmCategoryHateSpeech, Threshold: threshold},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: threshold},
			{Category: genai.HarmCategoryDangerousContent, Threshold: threshold},
		},
	}
}

// Repair sends markup to the model and returns the corrected markup.
// Errors are *Error values with a user-facing message.
func (r *GeminiRepairer) Repair(ctx context.Context, markup, priorError string) (*Result, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, Classify(ErrEmptyMarkup)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	reply, err := r.gen.Generate(ctx, r.model, BuildPrompt(markup, priorError), generationConfig())
	if err != nil {
		r.logger.Warn("repair request failed",
			zap.String("model", r.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, Classify(err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, Classify(ErrEmptyResponse)
	}

	result, err := ParseResponse(reply)
	if err != nil {
		r.logger.Debug("unparseable repair reply", zap.Int("bytes", len(reply)))
		return nil, Classify(err)
	}

	r.logger.Debug("repair succeeded",
		zap.String("model", r.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(result.FixedText)))
	return result, nil
}

// ValidateKey sends a trivial prompt and reports whether the API accepted
// the key.
func (r *GeminiRepairer) ValidateKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.gen.Generate(ctx, r.model, "Hello", nil); err != nil {
		return Classify(err)
	}
	return nil
}
