package experiment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/format"
	"github.com/mosaictheory-jt/unstructured-analytics/pkg/logger"
)

// Comparison holds one question's results across every encoding. A
// comparison is only surfaced as success when every encoding produced a
// result.
type Comparison struct {
	Question       string                      `json:"question"`
	ExpectedAnswer string                      `json:"expected_answer,omitempty"`
	Results        map[format.Encoding]*Result `json:"results"`
}

// ParallelOutcome is one encoding's result or error from the parallel
// path. Exactly one field is set.
type ParallelOutcome struct {
	Result *Result
	Err    string
}

// parallelEncodings are the encodings dispatched by CompareAllParallel.
// The two JSON encodings are deliberately excluded from the parallel path.
var parallelEncodings = []format.Encoding{
	format.RawCSV,
	format.CSVWithMetadata,
	format.EnglishSentences,
}

// CompareAll runs the question once per encoding, sequentially and in
// enumeration order. Any single failure aborts the comparison.
func (r *Runner) CompareAll(ctx context.Context, question, expectedAnswer, model string) (*Comparison, error) {
	results := make(map[format.Encoding]*Result, len(format.All()))

	for _, enc := range format.All() {
		result, err := r.Run(ctx, Params{
			Question:    question,
			Encoding:    enc,
			Model:       model,
			Temperature: 1.0,
		})
		if err != nil {
			return nil, fmt.Errorf("experiment failed for %s: %w", enc, err)
		}
		results[enc] = result
	}

	return &Comparison{
		Question:       question,
		ExpectedAnswer: expectedAnswer,
		Results:        results,
	}, nil
}

// CompareAllParallel runs the three non-JSON encodings concurrently with
// one worker per encoding. A worker's failure is recorded as that
// encoding's outcome and never aborts the others; the returned map always
// has exactly one entry per dispatched encoding.
func (r *Runner) CompareAllParallel(ctx context.Context, question, model string, temperature float32, thinkingEnabled bool) map[format.Encoding]ParallelOutcome {
	type keyed struct {
		enc     format.Encoding
		outcome ParallelOutcome
	}

	done := make(chan keyed, len(parallelEncodings))
	var wg sync.WaitGroup

	for _, enc := range parallelEncodings {
		wg.Add(1)
		go func(enc format.Encoding) {
			defer wg.Done()

			result, err := r.Run(ctx, Params{
				Question:        question,
				Encoding:        enc,
				Model:           model,
				Temperature:     temperature,
				ThinkingEnabled: thinkingEnabled,
			})
			if err != nil {
				logger.Error("parallel experiment failed",
					zap.String("data_format", string(enc)),
					zap.Error(err),
				)
				done <- keyed{enc: enc, outcome: ParallelOutcome{Err: err.Error()}}
				return
			}
			done <- keyed{enc: enc, outcome: ParallelOutcome{Result: result}}
		}(enc)
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	outcomes := make(map[format.Encoding]ParallelOutcome, len(parallelEncodings))
	for k := range done {
		outcomes[k.enc] = k.outcome
	}
	return outcomes
}

// RunBattery applies CompareAll to every catalogue question in order,
// sequentially. A nil question list means the built-in catalogue.
func (r *Runner) RunBattery(ctx context.Context, model string, questions []Question) ([]*Comparison, error) {
	if questions == nil {
		questions = Catalogue()
	}

	results := make([]*Comparison, 0, len(questions))
	for i, q := range questions {
		logger.Info("processing question",
			zap.Int("index", i+1),
			zap.Int("total", len(questions)),
			zap.String("question", truncate(q.Question, 50)),
		)

		comparison, err := r.CompareAll(ctx, q.Question, q.Expected, model)
		if err != nil {
			return nil, err
		}
		results = append(results, comparison)
	}

	return results, nil
}

// FormatReport renders battery results as a markdown report: one numbered
// section per question with a per-encoding result table.
func FormatReport(results []*Comparison) string {
	lines := []string{"# Experiment Results\n"}

	for i, comparison := range results {
		lines = append(lines, fmt.Sprintf("\n## Question %d: %s\n", i+1, comparison.Question))

		if comparison.ExpectedAnswer != "" {
			lines = append(lines, fmt.Sprintf("**Expected:** %s\n", comparison.ExpectedAnswer))
		}

		lines = append(lines,
			"\n| Format | Answer | Latency | Tokens (in/out) |",
			"|--------|--------|---------|-----------------|",
		)

		for _, enc := range format.All() {
			result, ok := comparison.Results[enc]
			if !ok {
				continue
			}
			answerShort := strings.ReplaceAll(truncateRunes(result.Answer, 100), "\n", " ")
			lines = append(lines, fmt.Sprintf("| %s | %s | %.0fms | %d/%d |",
				enc, answerShort, result.LatencyMS, result.InputTokens, result.OutputTokens))
		}

		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
