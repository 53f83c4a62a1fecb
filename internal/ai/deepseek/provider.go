// Package deepseek implements the DeepSeek chat-completions adapter.
package deepseek

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

const name = "deepseek"

// Provider implements models.Adapter using the DeepSeek API.
type Provider struct {
	cfg    config.DeepSeekConfig
	client *http.Client
}

func NewProvider(cfg config.DeepSeekConfig, client *http.Client) *Provider {
	if client == nil {
		client = transport.NewClient(2 * time.Minute)
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return name }

// apiKey prefers the primary key and falls back to the backup key.
func (p *Provider) apiKey() string {
	if p.cfg.APIKey != "" {
		return p.cfg.APIKey
	}
	return p.cfg.BackupAPIKey
}

func (p *Provider) Invoke(ctx context.Context, req models.NormalizedRequest) (out models.RawProviderOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = models.Failure(name, models.ErrorKindUnknown, fmt.Errorf("panic: %v", r))
		}
	}()

	payload := completionRequest{
		Model: p.cfg.Model,
		Messages: []message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Stream:      false,
	}

	body, err := transport.PostJSON(ctx, p.client, strings.TrimRight(p.cfg.BaseURL, "/")+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + p.apiKey()}, payload)
	if err != nil {
		return models.Failure(name, transport.Classify(err), err)
	}

	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Failure(name, models.ErrorKindMalformedResponse, fmt.Errorf("decoding response: %w", err))
	}
	if resp.Error != nil {
		return models.Failure(name, models.ErrorKindUnknown, fmt.Errorf("deepseek error %s: %s", resp.Error.Type, resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return models.Failure(name, models.ErrorKindMalformedResponse, transport.ErrEmptyCompletion)
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return models.Failure(name, models.ErrorKindMalformedResponse, transport.ErrEmptyCompletion)
	}
	return models.Success(name, text)
}

// --- DeepSeek wire types ---

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role             string `json:"role"`
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

var _ models.Adapter = (*Provider)(nil)
