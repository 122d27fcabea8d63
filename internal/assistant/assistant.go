// Package assistant rewrites reminder text through an OpenAI-compatible
// chat model. It is strictly optional garnish: any failure, timeout or
// missing configuration falls back to the plain text unchanged.
package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/gpt-4o-mini"

	requestTimeout = 10 * time.Second
)

const systemPrompt = `You rewrite medicine reminder messages to be short, friendly and encouraging.
Keep every fact from the input (medicine name, dosage, time, stock warnings).
Reply with the rewritten message only, no preamble, at most two sentences.`

type Client struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

func New(apiKey, baseURL, model string, log zerolog.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    log.With().Str("component", "assistant").Logger(),
	}
}

// Phrase returns a reworded version of body, or body itself when the model
// is unreachable or returns nothing usable.
func (c *Client) Phrase(ctx context.Context, body string) string {
	if c == nil {
		return body
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: body},
		},
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("assistant request failed, using plain text")
		return body
	}
	if len(resp.Choices) == 0 {
		return body
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return body
	}
	return out
}
