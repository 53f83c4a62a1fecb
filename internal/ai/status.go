package ai

import (
	"github.com/kiranshivaraju/evinsight/internal/config"
	"github.com/kiranshivaraju/evinsight/pkg/models"
)

// StatusReporter summarizes provider availability and credential presence. It makes
// no network calls and keeps no credentials, only whether they are set.
type StatusReporter struct {
	providers *ProviderSet
	checks    map[string]map[string]bool
}

func NewStatusReporter(providers *ProviderSet, cfg *config.Config) *StatusReporter {
	return &StatusReporter{
		providers: providers,
		checks: map[string]map[string]bool{
			ProviderOpenAI: {
				"api_key_valid":      cfg.AI.OpenAI.APIKey != "",
				"assistant_id_valid": cfg.AI.OpenAI.AssistantID != "",
			},
			ProviderDeepSeek: {
				"api_key_valid":        cfg.AI.DeepSeek.APIKey != "",
				"backup_api_key_valid": cfg.AI.DeepSeek.BackupAPIKey != "",
			},
			ProviderGemini: {
				"api_key_valid": cfg.AI.Gemini.APIKey != "",
			},
			"database": {
				"url_configured": cfg.Database.URL != "",
			},
		},
	}
}

// Report returns a fresh snapshot; callers may mutate it freely.
func (r *StatusReporter) Report() models.ProviderStatus {
	available := []string{}
	priority := []string{}
	for _, d := range r.providers.All() {
		priority = append(priority, d.Name)
		if d.IsConfigured {
			available = append(available, d.Name)
		}
	}

	checks := make(map[string]map[string]bool, len(r.checks))
	for service, m := range r.checks {
		cp := make(map[string]bool, len(m))
		for k, v := range m {
			cp[k] = v
		}
		checks[service] = cp
	}

	return models.ProviderStatus{
		AvailableProviders:  available,
		ProviderPriority:    priority,
		ConfigurationChecks: checks,
	}
}
