package experiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/format"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/llm"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/prose"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/store"
)

// fakeGenerator implements Generator with canned responses and records
// every request it receives.
type fakeGenerator struct {
	mu       sync.Mutex
	requests []llm.GenerateRequest

	generate  func(req llm.GenerateRequest) (*llm.GenerateResponse, error)
	chunks    []llm.StreamChunk
	streamErr error
}

func (f *fakeGenerator) record(req llm.GenerateRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func (f *fakeGenerator) recorded() []llm.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.GenerateRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.record(req)
	if f.generate != nil {
		return f.generate(req)
	}
	return &llm.GenerateResponse{
		Text:  "42",
		Usage: llm.Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

func (f *fakeGenerator) GenerateStream(_ context.Context, req llm.GenerateRequest) (<-chan llm.StreamChunk, error) {
	f.record(req)
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		for _, c := range f.chunks {
			out <- c
		}
	}()
	return out, nil
}

func testRunner(t *testing.T, gen Generator) *Runner {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"customers.csv": "customer_id,first_name,last_name,email,city,state,country,customer_segment,join_date\n" +
			"CUST001,Ada,Lovelace,ada@example.com,London,LDN,UK,VIP,2023-01-01\n",
		"suppliers.csv": "supplier_id,supplier_name,country,lead_time_days,reliability_rating,contact_email\n" +
			"SUP001,Acme Supply,USA,5,4.8,sales@acme.example\n",
		"products.csv": "product_id,product_name,category,subcategory,brand,unit_price,cost_price,supplier_id\n" +
			"P001,Widget Deluxe,Gadgets,Widgets,Acme,20.00,10.00,SUP001\n",
		"orders.csv": "order_id,customer_id,order_date,shipping_method,shipping_address_city,payment_method,order_status,discount_applied\n" +
			"ORD001,CUST001,2024-01-15,Express,London,Credit Card,Delivered,0.00\n",
		"order_items.csv": "order_item_id,order_id,product_id,quantity,unit_price_at_sale,total_price\n" +
			"OI001,ORD001,P001,3,20.00,60.00\n",
		"schema_metadata.json": `{"tables":{}}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	st := store.New(store.Config{Dir: dir})
	selector := format.NewSelector(st, prose.NewRenderer(st))
	return NewRunner(selector, gen, 0)
}

func TestRunBuildsPrompt(t *testing.T) {
	gen := &fakeGenerator{}
	runner := testRunner(t, gen)

	_, err := runner.Run(context.Background(), Params{
		Question: "How many customers are there?",
		Encoding: format.RawCSV,
		Model:    "gemini-2.5-flash",
	})
	require.NoError(t, err)

	reqs := gen.recorded()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, SystemPrompt, req.SystemPrompt)
	assert.True(t, strings.HasPrefix(req.UserPrompt, "Here is the data in CSV format:\n\n"))
	assert.Contains(t, req.UserPrompt, "\n\n---\n\nQuestion: How many customers are there?")
	assert.True(t, strings.HasSuffix(req.UserPrompt, "\n\nPlease provide your answer:"))
}

func TestRunResultFields(t *testing.T) {
	gen := &fakeGenerator{}
	runner := testRunner(t, gen)

	result, err := runner.Run(context.Background(), Params{
		Question: "Q",
		Encoding: format.EnglishSentences,
		Model:    "gemini-2.5-flash",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "Q", result.Question)
	assert.Equal(t, format.EnglishSentences, result.Encoding)
	assert.Equal(t, "42", result.Answer)
	assert.Equal(t, 10, result.InputTokens)
	assert.Equal(t, 5, result.OutputTokens)
	assert.Equal(t, "gemini-2.5-flash", result.Model)
	assert.Equal(t, SystemPrompt, result.SystemPrompt)
	assert.GreaterOrEqual(t, result.LatencyMS, 0.0)
}

func TestRunThinkingBudget(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		model   string
		budget  int
		want    int
	}{
		{"enabled on 2.5 model", true, "gemini-2.5-flash", 0, DefaultThinkingBudget},
		{"disabled on 2.5 model", false, "gemini-2.5-flash", 0, 0},
		{"enabled on older model", true, "gemini-2.0-flash", 0, 0},
		{"custom budget", true, "gemini-2.5-pro", 1024, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			runner := testRunner(t, gen)
			if tt.budget > 0 {
				runner = NewRunner(runner.selector, gen, tt.budget)
			}

			_, err := runner.Run(context.Background(), Params{
				Question:        "Q",
				Encoding:        format.RawCSV,
				Model:           tt.model,
				ThinkingEnabled: tt.enabled,
			})
			require.NoError(t, err)

			reqs := gen.recorded()
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.want, reqs[0].ThinkingBudget)
		})
	}
}

func TestRunEmptyAnswerTolerated(t *testing.T) {
	gen := &fakeGenerator{
		generate: func(llm.GenerateRequest) (*llm.GenerateResponse, error) {
			return &llm.GenerateResponse{}, nil
		},
	}
	runner := testRunner(t, gen)

	result, err := runner.Run(context.Background(), Params{
		Question: "Q",
		Encoding: format.RawCSV,
		Model:    "gemini-2.5-flash",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Answer)
}

func TestRunEndpointFailure(t *testing.T) {
	boom := errors.New("endpoint down")
	gen := &fakeGenerator{
		generate: func(llm.GenerateRequest) (*llm.GenerateResponse, error) {
			return nil, boom
		},
	}
	runner := testRunner(t, gen)

	result, err := runner.Run(context.Background(), Params{
		Question: "Q",
		Encoding: format.RawCSV,
		Model:    "gemini-2.5-flash",
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, result)
}

func TestRunUnsupportedEncoding(t *testing.T) {
	gen := &fakeGenerator{}
	runner := testRunner(t, gen)

	_, err := runner.Run(context.Background(), Params{
		Question: "Q",
		Encoding: format.Encoding("parquet"),
		Model:    "gemini-2.5-flash",
	})
	assert.ErrorIs(t, err, format.ErrUnsupportedEncoding)
	assert.Empty(t, gen.recorded(), "generator must not be called")
}

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name string
		resp *llm.GenerateResponse
		want string
	}{
		{
			"aggregate text wins",
			&llm.GenerateResponse{Text: "direct", Parts: []llm.Part{{Text: "ignored"}}},
			"direct",
		},
		{
			"parts fallback skips thoughts",
			&llm.GenerateResponse{Parts: []llm.Part{
				{Text: "internal reasoning", Thought: true},
				{Text: "first "},
				{Text: ""},
				{Text: "second"},
			}},
			"first second",
		},
		{
			"all thoughts yield empty",
			&llm.GenerateResponse{Parts: []llm.Part{{Text: "hmm", Thought: true}}},
			"",
		},
		{
			"nothing at all",
			&llm.GenerateResponse{},
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractAnswer(tt.resp))
		})
	}
}
