// Package llm wraps the model endpoint behind a small request/response
// surface with synchronous and streaming generation. The transport is an
// OpenAI-compatible chat completion API; reasoning ("thinking") content
// arrives on a separate channel from answer text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mosaictheory-jt/unstructured-analytics/pkg/logger"
	"github.com/mosaictheory-jt/unstructured-analytics/pkg/retry"
)

// ErrTimeout reports that a model call exceeded the per-call deadline. A
// hung endpoint surfaces as this error instead of blocking forever.
var ErrTimeout = errors.New("model endpoint call timed out")

type Config struct {
	BaseURL    string
	APIKey     string
	TimeoutSec int
}

type Client struct {
	client      *openai.Client
	timeout     time.Duration
	retryConfig retry.Config
}

type GenerateRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	// ThinkingBudget > 0 requests internal reasoning from models that
	// support it, bounded to roughly that many tokens.
	ThinkingBudget int
}

// Part is one content fragment of a response, tagged as answer text or
// internal reasoning.
type Part struct {
	Text    string
	Thought bool
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

type GenerateResponse struct {
	// Text is the aggregated answer, when the endpoint provides one.
	Text  string
	Parts []Part
	Usage Usage
}

// StreamChunk is one incremental piece of a streamed response. Exactly one
// of Text, Thinking, or Err is meaningful per chunk; Usage rides along on
// the final chunk when the endpoint reports it.
type StreamChunk struct {
	Text     string
	Thinking string
	Usage    *Usage
	Err      error
}

func NewClient(cfg Config) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	logger.Info("LLM client initialized",
		zap.String("base_url", clientConfig.BaseURL),
		zap.Duration("timeout", timeout),
	)

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		timeout:     timeout,
		retryConfig: retry.DefaultConfig(),
	}
}

// Generate issues one synchronous completion request. Transport failures
// are retried with backoff, then propagate to the caller; a deadline hit
// surfaces as ErrTimeout.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatReq := c.buildChatRequest(req)

	resp, err := retry.DoWithResult(ctx, c.retryConfig, func() (openai.ChatCompletionResponse, error) {
		return c.client.CreateChatCompletion(ctx, chatReq)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: model %s", ErrTimeout, req.Model)
		}
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	out := &GenerateResponse{
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, choice := range resp.Choices {
		if choice.Message.ReasoningContent != "" {
			out.Parts = append(out.Parts, Part{Text: choice.Message.ReasoningContent, Thought: true})
		}
		if choice.Message.Content != "" {
			out.Parts = append(out.Parts, Part{Text: choice.Message.Content, Thought: false})
			out.Text += choice.Message.Content
		}
	}

	logger.Debug("completion generated",
		zap.String("model", req.Model),
		zap.Int("input_tokens", out.Usage.InputTokens),
		zap.Int("output_tokens", out.Usage.OutputTokens),
	)

	return out, nil
}

// GenerateStream issues one streaming completion request. The returned
// channel delivers fragments as they arrive and is always closed; a
// transport failure mid-stream is delivered as a final chunk with Err set
// rather than being raised.
func (c *Client) GenerateStream(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error) {
	chatReq := c.buildChatRequest(req)
	chatReq.Stream = true
	chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("streaming request failed: %w", err)
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				out <- StreamChunk{Err: err}
				return
			}

			chunk := StreamChunk{}
			for _, choice := range resp.Choices {
				chunk.Thinking += choice.Delta.ReasoningContent
				chunk.Text += choice.Delta.Content
			}
			if resp.Usage != nil {
				chunk.Usage = &Usage{
					InputTokens:  resp.Usage.PromptTokens,
					OutputTokens: resp.Usage.CompletionTokens,
				}
			}
			if chunk.Text == "" && chunk.Thinking == "" && chunk.Usage == nil {
				continue
			}

			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (c *Client) buildChatRequest(req GenerateRequest) openai.ChatCompletionRequest {
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.UserPrompt,
			},
		},
		Temperature: req.Temperature,
	}
	if req.ThinkingBudget > 0 {
		chatReq.ReasoningEffort = effortForBudget(req.ThinkingBudget)
	}
	return chatReq
}

// effortForBudget maps a token-denominated thinking budget onto the
// endpoint's coarse reasoning effort levels.
func effortForBudget(budget int) string {
	switch {
	case budget <= 1024:
		return "low"
	case budget <= 8192:
		return "medium"
	default:
		return "high"
	}
}
