package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/experiment"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/format"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/metrics"
)

const defaultModel = "gemini-2.5-flash"

// availableModels mirrors the model picker in the UI.
var availableModels = []fiber.Map{
	{"id": "gemini-2.5-flash", "name": "Gemini 2.5 Flash", "description": "Fast and efficient"},
	{"id": "gemini-2.5-pro", "name": "Gemini 2.5 Pro", "description": "Most capable"},
	{"id": "gemini-2.0-flash", "name": "Gemini 2.0 Flash", "description": "Previous gen fast"},
	{"id": "gemini-1.5-flash", "name": "Gemini 1.5 Flash", "description": "Stable fast model"},
	{"id": "gemini-1.5-pro", "name": "Gemini 1.5 Pro", "description": "Stable pro model"},
}

type ExperimentHandler struct {
	runner *experiment.Runner
}

func NewExperimentHandler(runner *experiment.Runner) *ExperimentHandler {
	return &ExperimentHandler{runner: runner}
}

type questionRequest struct {
	Question        string  `json:"question"`
	Model           string  `json:"model"`
	Temperature     float32 `json:"temperature"`
	ThinkingEnabled bool    `json:"thinking_enabled"`
}

type singleExperimentRequest struct {
	Question        string  `json:"question"`
	DataFormat      string  `json:"data_format"`
	Model           string  `json:"model"`
	Temperature     float32 `json:"temperature"`
	ThinkingEnabled bool    `json:"thinking_enabled"`
}

func (r *questionRequest) applyDefaults() {
	if r.Model == "" {
		r.Model = defaultModel
	}
	if r.Temperature == 0 {
		r.Temperature = 1.0
	}
}

func (r *singleExperimentRequest) applyDefaults() {
	if r.Model == "" {
		r.Model = defaultModel
	}
	if r.Temperature == 0 {
		r.Temperature = 1.0
	}
}

// GetQuestions returns the built-in research question catalogue.
func (h *ExperimentHandler) GetQuestions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"questions": experiment.Catalogue()})
}

// GetModels returns the selectable model list.
func (h *ExperimentHandler) GetModels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"models": availableModels})
}

// RunSingle runs one experiment with one encoding.
func (h *ExperimentHandler) RunSingle(c *fiber.Ctx) error {
	var req singleExperimentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Question == "" {
		return badRequest(c, "Question is required")
	}
	req.applyDefaults()

	enc, err := format.Parse(req.DataFormat)
	if err != nil {
		if errors.Is(err, format.ErrUnsupportedEncoding) {
			return badRequest(c, "Invalid data format: "+req.DataFormat)
		}
		return internalError(c, "Failed to parse data format", err)
	}

	result, err := h.runner.Run(c.Context(), experiment.Params{
		Question:        req.Question,
		Encoding:        enc,
		Model:           req.Model,
		Temperature:     req.Temperature,
		ThinkingEnabled: req.ThinkingEnabled,
	})
	if err != nil {
		return internalError(c, "Failed to run experiment", err)
	}

	return c.JSON(fiber.Map{
		"question":      result.Question,
		"data_format":   result.Encoding,
		"answer":        result.Answer,
		"latency_ms":    result.LatencyMS,
		"input_tokens":  result.InputTokens,
		"output_tokens": result.OutputTokens,
		"model":         result.Model,
	})
}

// RunComparison runs the question across all five encodings sequentially.
func (h *ExperimentHandler) RunComparison(c *fiber.Ctx) error {
	var req questionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Question == "" {
		return badRequest(c, "Question is required")
	}
	req.applyDefaults()

	comparison, err := h.runner.CompareAll(c.Context(), req.Question, "", req.Model)
	if err != nil {
		return internalError(c, "Failed to run comparison", err)
	}
	metrics.ComparisonTotal.WithLabelValues("sequential").Inc()

	results := make(fiber.Map, len(comparison.Results))
	for enc, result := range comparison.Results {
		results[string(enc)] = fiber.Map{
			"answer":        result.Answer,
			"latency_ms":    result.LatencyMS,
			"input_tokens":  result.InputTokens,
			"output_tokens": result.OutputTokens,
		}
	}

	return c.JSON(fiber.Map{
		"question":        comparison.Question,
		"expected_answer": nil,
		"results":         results,
	})
}

// RunParallel runs the three non-JSON encodings concurrently; a failed
// encoding is reported inline without blocking its siblings.
func (h *ExperimentHandler) RunParallel(c *fiber.Ctx) error {
	var req questionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Question == "" {
		return badRequest(c, "Question is required")
	}
	req.applyDefaults()

	outcomes := h.runner.CompareAllParallel(c.Context(), req.Question, req.Model, req.Temperature, req.ThinkingEnabled)
	metrics.ComparisonTotal.WithLabelValues("parallel").Inc()

	results := make(fiber.Map, len(outcomes))
	for enc, outcome := range outcomes {
		if outcome.Err != "" {
			results[string(enc)] = fiber.Map{"error": outcome.Err}
			continue
		}
		result := outcome.Result
		results[string(enc)] = fiber.Map{
			"data_format":   result.Encoding,
			"answer":        result.Answer,
			"latency_ms":    result.LatencyMS,
			"input_tokens":  result.InputTokens,
			"output_tokens": result.OutputTokens,
			"model":         result.Model,
			"system_prompt": result.SystemPrompt,
			"user_prompt":   result.UserPrompt,
		}
	}

	return c.JSON(fiber.Map{
		"question": req.Question,
		"model":    req.Model,
		"results":  results,
	})
}
