package experiment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/format"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/llm"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/metrics"
	"github.com/mosaictheory-jt/unstructured-analytics/pkg/logger"
)

type EventType string

const (
	EventPrompt   EventType = "prompt"
	EventThinking EventType = "thinking"
	EventChunk    EventType = "chunk"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one element of a streamed experiment: a prompt event, then any
// number of thinking and chunk events, then exactly one complete or error
// event.
type Event struct {
	Type       EventType       `json:"type"`
	DataFormat format.Encoding `json:"data_format"`

	// prompt
	SystemPrompt string `json:"system_prompt,omitempty"`
	UserPrompt   string `json:"user_prompt,omitempty"`
	PromptLength int    `json:"prompt_length,omitempty"`

	// thinking / chunk
	Text string `json:"text,omitempty"`

	// complete
	Answer       string  `json:"answer,omitempty"`
	LatencyMS    float64 `json:"latency_ms,omitempty"`
	TTFTMS       float64 `json:"ttft_ms,omitempty"`
	InputTokens  int     `json:"input_tokens,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty"`
	Model        string  `json:"model,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}

// RunStream executes one experiment with incremental delivery. The stream
// always terminates with a single complete or error event and the channel
// is always closed; transport failures never propagate to the consumer as
// anything but the terminal error event.
func (r *Runner) RunStream(ctx context.Context, p Params) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		dataSection, err := r.selector.DataSection(p.Encoding)
		if err != nil {
			out <- Event{Type: EventError, DataFormat: p.Encoding, Error: err.Error()}
			return
		}
		userPrompt := buildUserPrompt(dataSection, p.Question)

		logger.Info("running streaming experiment",
			zap.String("data_format", string(p.Encoding)),
			zap.String("model", p.Model),
			zap.Float32("temperature", p.Temperature),
			zap.Bool("thinking", p.ThinkingEnabled),
		)

		out <- Event{
			Type:         EventPrompt,
			DataFormat:   p.Encoding,
			SystemPrompt: SystemPrompt,
			UserPrompt:   userPrompt,
			PromptLength: len(userPrompt),
		}

		start := time.Now()

		chunks, err := r.generator.GenerateStream(ctx, llm.GenerateRequest{
			Model:          p.Model,
			SystemPrompt:   SystemPrompt,
			UserPrompt:     userPrompt,
			Temperature:    p.Temperature,
			ThinkingBudget: r.budgetFor(p),
		})
		if err != nil {
			metrics.ExperimentTotal.WithLabelValues(string(p.Encoding), "error").Inc()
			out <- Event{Type: EventError, DataFormat: p.Encoding, Error: err.Error()}
			return
		}

		var (
			fullAnswer   string
			firstToken   time.Time
			inputTokens  int
			outputTokens int
		)

		for chunk := range chunks {
			if chunk.Err != nil {
				logger.Error("streaming failed",
					zap.String("data_format", string(p.Encoding)),
					zap.Error(chunk.Err),
				)
				metrics.ExperimentTotal.WithLabelValues(string(p.Encoding), "error").Inc()
				out <- Event{Type: EventError, DataFormat: p.Encoding, Error: chunk.Err.Error()}
				return
			}

			if chunk.Thinking != "" {
				out <- Event{Type: EventThinking, DataFormat: p.Encoding, Text: chunk.Thinking}
			}
			if chunk.Text != "" {
				if firstToken.IsZero() {
					firstToken = time.Now()
				}
				fullAnswer += chunk.Text
				out <- Event{Type: EventChunk, DataFormat: p.Encoding, Text: chunk.Text}
			}
			if chunk.Usage != nil {
				inputTokens = chunk.Usage.InputTokens
				outputTokens = chunk.Usage.OutputTokens
			}
		}

		if fullAnswer == "" {
			logger.Warn("empty streamed response, no text in any chunk",
				zap.String("data_format", string(p.Encoding)),
			)
		}

		latencyMS := float64(time.Since(start)) / float64(time.Millisecond)
		ttftMS := latencyMS
		if !firstToken.IsZero() {
			ttftMS = float64(firstToken.Sub(start)) / float64(time.Millisecond)
		}

		metrics.ExperimentTotal.WithLabelValues(string(p.Encoding), "ok").Inc()
		metrics.ExperimentDuration.WithLabelValues(string(p.Encoding)).Observe(latencyMS / 1000)
		metrics.TokensUsed.WithLabelValues(p.Model, "input").Add(float64(inputTokens))
		metrics.TokensUsed.WithLabelValues(p.Model, "output").Add(float64(outputTokens))

		out <- Event{
			Type:         EventComplete,
			DataFormat:   p.Encoding,
			Answer:       fullAnswer,
			LatencyMS:    latencyMS,
			TTFTMS:       ttftMS,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			Model:        p.Model,
		}
	}()

	return out
}
