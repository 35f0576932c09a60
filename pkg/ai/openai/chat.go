package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/OFFIS-RIT/alavista/pkg/ai"
)

// GenerateCompletion sends a single-turn prompt and returns assistant
// text.
func (c *Client) GenerateCompletion(ctx context.Context, system, prompt string) (string, error) {
	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var msgs []openai.ChatCompletionMessageParamUnion
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	start := time.Now()
	response, err := c.chat.Chat.Completions.New(rCtx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.completionModel),
		Messages:    msgs,
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   time.Since(start).Milliseconds(),
	})

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from model")
	}
	return response.Choices[0].Message.Content, nil
}

// GenerateCompletionWithFormat constrains the model to the JSON schema
// derived from out and unmarshals the response into out.
func (c *Client) GenerateCompletionWithFormat(ctx context.Context, name, system, prompt string, out any) error {
	schema, err := ai.SchemaFor(out)
	if err != nil {
		return err
	}
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   name,
		Schema: schema,
		Strict: openai.Bool(true),
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return err
	}
	defer c.reqLock.Release(1)

	var msgs []openai.ChatCompletionMessageParamUnion
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	start := time.Now()
	response, err := c.chat.Chat.Completions.New(rCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.extractionModel),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Messages:    msgs,
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		return err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   time.Since(start).Milliseconds(),
	})

	if len(response.Choices) == 0 {
		return fmt.Errorf("no choices in response from model")
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return fmt.Errorf("empty response from model (finish_reason: %s)", response.Choices[0].FinishReason)
	}
	return ai.DecodeModelJSON(message, out)
}
