// Package openai implementa ports.SignalOracle sobre la API de chat
// completions. El caller extrae el JSON del texto crudo.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Vasooook/binance-ai-trading-bot/internal/platform/retry"
)

const (
	maxAttempts   = 3
	baseRetryWait = 1 * time.Second
)

// Client envuelve el cliente de la API del oráculo.
type Client struct {
	api *openai.Client
}

// NewClient crea un Client con la API key dada.
func NewClient(apiKey string) *Client {
	return &Client{api: openai.NewClient(apiKey)}
}

// Complete envía el prompt al modelo indicado y devuelve el texto crudo de
// la respuesta. Los errores de servidor (5xx) se reintentan con backoff
// lineal; el resto son permanentes.
func (c *Client) Complete(ctx context.Context, prompt, model string) (string, error) {
	var content string

	err := retry.Do(ctx, maxAttempts, retry.Linear(baseRetryWait), func() error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			if retryable(err) {
				return err
			}
			return retry.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return retry.Permanent(errors.New("empty choices"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("openai.Complete (%s): %w", model, err)
	}
	return content, nil
}

// retryable reconoce los fallos transitorios de la API (500/502/503/504 y 429).
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	// errores de red sin respuesta HTTP: reintentar
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return false
}
