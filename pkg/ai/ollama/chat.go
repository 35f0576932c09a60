package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/OFFIS-RIT/alavista/pkg/ai"
)

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *Client) GenerateCompletion(ctx context.Context, system, prompt string) (string, error) {
	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	final, err := c.chat(rCtx, c.completionModel, system, prompt, nil, 0.3)
	if err != nil {
		return "", err
	}
	return final.Message.Content, nil
}

// GenerateCompletionWithFormat enforces the JSON schema derived from out
// and unmarshals the (repaired, if needed) response into out.
func (c *Client) GenerateCompletionWithFormat(ctx context.Context, name, system, prompt string, out any) error {
	if out == nil {
		return errors.New("out must be a non-nil pointer")
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("out must be a non-nil pointer")
	}

	schema, err := ai.SchemaFor(out)
	if err != nil {
		return err
	}
	formatBytes, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return err
	}
	defer c.reqLock.Release(1)

	final, err := c.chat(rCtx, c.extractionModel, system, prompt, json.RawMessage(formatBytes), 0.1)
	if err != nil {
		return err
	}
	return ai.DecodeModelJSON(final.Message.Content, out)
}

func (c *Client) chat(ctx context.Context, model, system, prompt string, format json.RawMessage, temperature float64) (api.ChatResponse, error) {
	var messages []api.Message
	if system != "" {
		messages = append(messages, api.Message{Role: "system", Content: system})
	}
	messages = append(messages, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Format:   format,
		Options:  map[string]any{"temperature": temperature},
	}

	var final api.ChatResponse
	err := c.api.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	})
	if err != nil {
		return api.ChatResponse{}, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})
	return final, nil
}
