package ai

import (
	"sort"

	"github.com/kiranshivaraju/evinsight/internal/config"
	"github.com/kiranshivaraju/evinsight/pkg/models"
)

// Provider identifiers in fixed priority order.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
)

// ProviderSet is the immutable, priority-ordered set of provider descriptors.
// It is built once at startup and safe for concurrent reads.
type ProviderSet struct {
	descriptors []models.ProviderDescriptor
}

// NewProviderSet derives descriptors from configuration. A provider is configured
// when its primary credential is non-empty; DeepSeek also accepts its backup key.
func NewProviderSet(cfg config.AIConfig) *ProviderSet {
	return NewProviderSetFromDescriptors([]models.ProviderDescriptor{
		{
			Name:            ProviderOpenAI,
			PriorityRank:    0,
			IsConfigured:    cfg.OpenAI.APIKey != "",
			ModelID:         cfg.OpenAI.Model,
			MaxOutputTokens: cfg.OpenAI.MaxTokens,
			Temperature:     cfg.OpenAI.Temperature,
		},
		{
			Name:            ProviderDeepSeek,
			PriorityRank:    1,
			IsConfigured:    cfg.DeepSeek.APIKey != "" || cfg.DeepSeek.BackupAPIKey != "",
			ModelID:         cfg.DeepSeek.Model,
			MaxOutputTokens: cfg.DeepSeek.MaxTokens,
			Temperature:     cfg.DeepSeek.Temperature,
		},
		{
			Name:            ProviderGemini,
			PriorityRank:    2,
			IsConfigured:    cfg.Gemini.APIKey != "",
			ModelID:         cfg.Gemini.Model,
			MaxOutputTokens: cfg.Gemini.MaxTokens,
			Temperature:     cfg.Gemini.Temperature,
		},
	})
}

// NewProviderSetFromDescriptors copies descs and orders them by PriorityRank.
func NewProviderSetFromDescriptors(descs []models.ProviderDescriptor) *ProviderSet {
	out := make([]models.ProviderDescriptor, len(descs))
	copy(out, descs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PriorityRank < out[j].PriorityRank })
	return &ProviderSet{descriptors: out}
}

// ListAvailable returns the configured providers in priority order.
func (s *ProviderSet) ListAvailable() []models.ProviderDescriptor {
	out := make([]models.ProviderDescriptor, 0, len(s.descriptors))
	for _, d := range s.descriptors {
		if d.IsConfigured {
			out = append(out, d)
		}
	}
	return out
}

// All returns every descriptor, configured or not, in priority order.
func (s *ProviderSet) All() []models.ProviderDescriptor {
	out := make([]models.ProviderDescriptor, len(s.descriptors))
	copy(out, s.descriptors)
	return out
}
