// Package gemini implements the Google Gemini generateContent adapter.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kiranshivaraju/evinsight/internal/ai/transport"
	"github.com/kiranshivaraju/evinsight/internal/config"
	"github.com/kiranshivaraju/evinsight/pkg/models"
)

const name = "gemini"

// Provider implements models.Adapter using the Gemini REST API. The credential is
// sent as the "key" query parameter.
type Provider struct {
	cfg    config.GeminiConfig
	client *http.Client
}

func NewProvider(cfg config.GeminiConfig, client *http.Client) *Provider {
	if client == nil {
		client = transport.NewClient(2 * time.Minute)
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return name }

func (p *Provider) Invoke(ctx context.Context, req models.NormalizedRequest) (out models.RawProviderOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = models.Failure(name, models.ErrorKindUnknown, fmt.Errorf("panic: %v", r))
		}
	}()

	temp := p.cfg.Temperature
	payload := apiRequest{
		Contents: []apiContent{{
			Role: "user",
			Parts: []apiPart{
				{Text: req.SystemPrompt},
				{Text: req.Prompt},
			},
		}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: p.cfg.MaxTokens,
			Temperature:     &temp,
		},
	}

	body, err := transport.PostJSON(ctx, p.client, p.endpoint(), nil, payload)
	if err != nil {
		return models.Failure(name, classify(err), err)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Failure(name, models.ErrorKindMalformedResponse, fmt.Errorf("decoding response: %w", err))
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return models.Failure(name, models.ErrorKindMalformedResponse,
				fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
		}
		return models.Failure(name, models.ErrorKindMalformedResponse, transport.ErrEmptyCompletion)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return models.Failure(name, models.ErrorKindMalformedResponse, transport.ErrEmptyCompletion)
	}
	return models.Success(name, sb.String())
}

func (p *Provider) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), url.PathEscape(p.cfg.Model), url.QueryEscape(p.cfg.APIKey))
}

// classify refines transport classification: Gemini answers an invalid key with 400.
func classify(err error) models.ErrorKind {
	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest &&
		strings.Contains(statusErr.Body, "API_KEY_INVALID") {
		return models.ErrorKindAuthFailure
	}
	return transport.Classify(err)
}

// --- Gemini wire types ---

type apiRequest struct {
	Contents         []apiContent     `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type apiContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type apiResponse struct {
	Candidates []struct {
		Content      apiContent `json:"content"`
		FinishReason string     `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

var _ models.Adapter = (*Provider)(nil)
