// Package experiment is the core of the harness: it builds prompts that
// embed the dataset in a chosen encoding, issues them to the model
// endpoint, and packages comparable results across encodings.
package experiment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/format"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/llm"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/metrics"
	"github.com/mosaictheory-jt/unstructured-analytics/pkg/logger"
)

// SystemPrompt is the fixed instruction sent with every experiment,
// identical across encodings so results stay comparable.
const SystemPrompt = `You are a data analyst assistant. Answer the question based solely on the provided data.
Be precise and concise. If you need to perform calculations, show your reasoning briefly.
Give a direct answer first, then explain if needed.`

// DefaultThinkingBudget is the reasoning budget attached when thinking is
// requested on a model that supports it.
const DefaultThinkingBudget = 4096

// Generator is the model endpoint dependency of the runner.
type Generator interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error)
	GenerateStream(ctx context.Context, req llm.GenerateRequest) (<-chan llm.StreamChunk, error)
}

// Params describe one experiment run.
type Params struct {
	Question        string
	Encoding        format.Encoding
	Model           string
	Temperature     float32
	ThinkingEnabled bool
}

// Result is the immutable record of one (question, encoding, model) run.
type Result struct {
	ID           string          `json:"id"`
	Question     string          `json:"question"`
	Encoding     format.Encoding `json:"data_format"`
	Answer       string          `json:"answer"`
	LatencyMS    float64         `json:"latency_ms"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	Model        string          `json:"model"`
	SystemPrompt string          `json:"system_prompt"`
	UserPrompt   string          `json:"user_prompt"`
}

type Runner struct {
	selector       *format.Selector
	generator      Generator
	thinkingBudget int
}

func NewRunner(selector *format.Selector, generator Generator, thinkingBudget int) *Runner {
	if thinkingBudget <= 0 {
		thinkingBudget = DefaultThinkingBudget
	}
	return &Runner{
		selector:       selector,
		generator:      generator,
		thinkingBudget: thinkingBudget,
	}
}

// Run executes one experiment synchronously. Endpoint failures propagate;
// an endpoint response with no extractable text is reported as a valid
// result with an empty answer, never raised.
func (r *Runner) Run(ctx context.Context, p Params) (*Result, error) {
	runID := uuid.New().String()

	dataSection, err := r.selector.DataSection(p.Encoding)
	if err != nil {
		return nil, err
	}
	userPrompt := buildUserPrompt(dataSection, p.Question)

	logger.Info("running experiment",
		zap.String("run_id", runID),
		zap.String("data_format", string(p.Encoding)),
		zap.String("model", p.Model),
		zap.String("question", truncate(p.Question, 50)),
	)

	start := time.Now()
	resp, err := r.generator.Generate(ctx, llm.GenerateRequest{
		Model:          p.Model,
		SystemPrompt:   SystemPrompt,
		UserPrompt:     userPrompt,
		Temperature:    p.Temperature,
		ThinkingBudget: r.budgetFor(p),
	})
	latencyMS := float64(time.Since(start)) / float64(time.Millisecond)

	if err != nil {
		metrics.ExperimentTotal.WithLabelValues(string(p.Encoding), "error").Inc()
		return nil, err
	}

	answer := extractAnswer(resp)
	if answer == "" {
		logger.Warn("empty response",
			zap.String("run_id", runID),
			zap.String("data_format", string(p.Encoding)),
		)
	}

	metrics.ExperimentTotal.WithLabelValues(string(p.Encoding), "ok").Inc()
	metrics.ExperimentDuration.WithLabelValues(string(p.Encoding)).Observe(latencyMS / 1000)
	metrics.TokensUsed.WithLabelValues(p.Model, "input").Add(float64(resp.Usage.InputTokens))
	metrics.TokensUsed.WithLabelValues(p.Model, "output").Add(float64(resp.Usage.OutputTokens))

	return &Result{
		ID:           runID,
		Question:     p.Question,
		Encoding:     p.Encoding,
		Answer:       answer,
		LatencyMS:    latencyMS,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Model:        p.Model,
		SystemPrompt: SystemPrompt,
		UserPrompt:   userPrompt,
	}, nil
}

func (r *Runner) budgetFor(p Params) int {
	// Reasoning is only available on 2.5-generation models.
	if p.ThinkingEnabled && strings.Contains(p.Model, "2.5") {
		return r.thinkingBudget
	}
	return 0
}

func buildUserPrompt(dataSection, question string) string {
	var b strings.Builder
	b.WriteString(dataSection)
	b.WriteString("\n\n---\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nPlease provide your answer:")
	return b.String()
}

// Answer extraction tries a fixed sequence of strategies against the
// variable response shape; the first one that yields text wins.
type extractStrategy func(*llm.GenerateResponse) (string, bool)

var extractStrategies = []extractStrategy{
	extractAggregateText,
	extractParts,
}

func extractAnswer(resp *llm.GenerateResponse) string {
	for _, strategy := range extractStrategies {
		if text, ok := strategy(resp); ok {
			return text
		}
	}
	return ""
}

func extractAggregateText(resp *llm.GenerateResponse) (string, bool) {
	return resp.Text, resp.Text != ""
}

// extractParts concatenates every non-empty answer fragment, skipping
// internal reasoning content.
func extractParts(resp *llm.GenerateResponse) (string, bool) {
	var b strings.Builder
	for _, part := range resp.Parts {
		if part.Thought || part.Text == "" {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String(), b.Len() > 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
