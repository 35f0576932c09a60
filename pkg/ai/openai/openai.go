// Package openai implements ai.GraphAIClient against OpenAI-compatible
// APIs, with separate endpoints for embeddings and chat.
package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/OFFIS-RIT/alavista/pkg/ai"
)

// Client implements ai.GraphAIClient. Embeddings and chat may target
// different OpenAI-compatible endpoints.
type Client struct {
	embeddingModel  string
	completionModel string
	extractionModel string
	embeddingDim    int
	timeoutMin      int

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	chat       *openai.Client
	embeddings *openai.Client
}

// ClientParams configures a new Client. Empty EmbeddingURL/ChatURL use the
// OpenAI default endpoint.
type ClientParams struct {
	EmbeddingModel  string
	CompletionModel string
	ExtractionModel string

	// EmbeddingDim truncates or zero-pads embeddings to a fixed size.
	// Defaults to 1536.
	EmbeddingDim int
	// TimeoutMin bounds a single request, in minutes. Defaults to 5.
	TimeoutMin int

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	MaxConcurrentRequests int64
}

func NewClient(params ClientParams) *Client {
	dim := params.EmbeddingDim
	if dim <= 0 {
		dim = 1536
	}
	timeoutMin := params.TimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = 5
	}
	concurrent := params.MaxConcurrentRequests
	if concurrent <= 0 {
		concurrent = 4
	}
	return &Client{
		embeddingModel:  params.EmbeddingModel,
		completionModel: params.CompletionModel,
		extractionModel: params.ExtractionModel,
		embeddingDim:    dim,
		timeoutMin:      timeoutMin,
		reqLock:         semaphore.NewWeighted(concurrent),
		chat:            newAPIClient(params.ChatURL, params.ChatKey),
		embeddings:      newAPIClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newAPIClient(baseURL, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(options...)
	return &client
}

// ResetMetrics clears all accumulated token and timing metrics.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.ModelMetrics{}
	c.metricsLock.Unlock()
}

// GetMetrics returns the accumulated token usage and timing metrics since
// the last reset.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *Client) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}
