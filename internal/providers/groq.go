package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kickoffai/predictions-api/internal/logic"
)

const defaultTemperature = 0.2

type GroqConfig struct {
	ClientConfig
	Key   string
	Model string
	// Temperature defaults to 0.2 when zero.
	Temperature float64
	MaxTokens   int
}

// Groq completes prompts through an OpenAI-compatible chat completions API.
type Groq struct {
	c           *client
	key         string
	model       string
	temperature float64
	maxTokens   int
}

var _ logic.TextModel = (*Groq)(nil)

func NewGroq(cfg GroqConfig) *Groq {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.Key)
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	return &Groq{
		c:           newClient("groq", cfg.ClientConfig, header, nil),
		key:         cfg.Key,
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the reply text.
func (g *Groq) Complete(ctx context.Context, prompt string) (string, error) {
	if g.key == "" {
		return "", logic.ErrProviderUnavailable
	}
	req := chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	var resp chatResponse
	if err := g.c.postJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("groq completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("groq completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
