// Package ollama implements ai.GraphAIClient against a locally hosted
// Ollama server.
package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"

	"github.com/OFFIS-RIT/alavista/pkg/ai"
)

// Client implements ai.GraphAIClient using Ollama models for embeddings,
// completions, and structured extraction.
type Client struct {
	embeddingModel  string
	completionModel string
	extractionModel string
	embeddingDim    int
	timeoutMin      int

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	api *api.Client
}

// ClientParams configures a new Client.
type ClientParams struct {
	EmbeddingModel  string
	CompletionModel string
	ExtractionModel string

	// EmbeddingDim truncates or zero-pads returned embeddings to a fixed
	// dimensionality. Defaults to 1024.
	EmbeddingDim int
	// TimeoutMin bounds a single request, in minutes. Defaults to 5.
	TimeoutMin int

	BaseURL string
	APIKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient connects to the Ollama server at BaseURL (or the default when
// empty).
func NewClient(params ClientParams) (*Client, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := http.DefaultClient
	if params.APIKey != "" {
		httpClient = &http.Client{
			Transport: &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.APIKey,
				},
				rt: http.DefaultTransport,
			},
		}
	}

	dim := params.EmbeddingDim
	if dim <= 0 {
		dim = 1024
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
		api:             api.NewClient(u, httpClient),
	}, nil
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
