package ai

import (
	"fmt"
	"net/http"

	"github.com/kiranshivaraju/evinsight/internal/ai/deepseek"
	"github.com/kiranshivaraju/evinsight/internal/ai/gemini"
	"github.com/kiranshivaraju/evinsight/internal/ai/openai"
	"github.com/kiranshivaraju/evinsight/internal/config"
	"github.com/kiranshivaraju/evinsight/pkg/models"
)

// NewAdapter constructs the adapter for one provider name.
func NewAdapter(name string, cfg config.AIConfig, client *http.Client) (models.Adapter, error) {
	switch name {
	case ProviderOpenAI:
		return openai.NewProvider(cfg.OpenAI, client), nil
	case ProviderDeepSeek:
		return deepseek.NewProvider(cfg.DeepSeek, client), nil
	case ProviderGemini:
		return gemini.NewProvider(cfg.Gemini, client), nil
	default:
		return nil, fmt.Errorf("%w %q: must be one of openai, deepseek, gemini", ErrUnknownProvider, name)
	}
}

// NewAdapters builds adapters for every available provider in set.
// Called once at server startup.
func NewAdapters(set *ProviderSet, cfg config.AIConfig, client *http.Client) (map[string]models.Adapter, error) {
	adapters := make(map[string]models.Adapter)
	for _, d := range set.ListAvailable() {
		a, err := NewAdapter(d.Name, cfg, client)
		if err != nil {
			return nil, err
		}
		adapters[d.Name] = a
	}
	return adapters, nil
}
