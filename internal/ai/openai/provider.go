// Package openai implements the OpenAI chat-completions adapter.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/evinsight/internal/ai/transport"
	"github.com/kiranshivaraju/evinsight/internal/config"
	"github.com/kiranshivaraju/evinsight/pkg/models"
)

const name = "openai"

// Provider implements models.Adapter using OpenAI chat completions.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

// NewProvider creates an OpenAI adapter. A nil client gets a default one.
func NewProvider(cfg config.OpenAIConfig, client *http.Client) *Provider {
	if client == nil {
		client = transport.NewClient(2 * time.Minute)
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return name }

// Invoke performs a single chat-completions call.
func (p *Provider) Invoke(ctx context.Context, req models.NormalizedRequest) (out models.RawProviderOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = models.Failure(name, models.ErrorKindUnknown, fmt.Errorf("panic: %v", r))
		}
	}()

	payload := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	}

	body, err := transport.PostJSON(ctx, p.client, strings.TrimRight(p.cfg.BaseURL, "/")+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}, payload)
	if err != nil {
		return models.Failure(name, transport.Classify(err), err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Failure(name, models.ErrorKindMalformedResponse, fmt.Errorf("decoding response: %w", err))
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return models.Failure(name, models.ErrorKindMalformedResponse, transport.ErrEmptyCompletion)
	}
	return models.Success(name, resp.Choices[0].Message.Content)
}

// --- OpenAI wire types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

var _ models.Adapter = (*Provider)(nil)
