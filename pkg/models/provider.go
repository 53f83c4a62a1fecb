package models

// ProviderDescriptor describes one configured provider. Descriptors are built once at
// startup and never mutated; credentials are deliberately not part of the value.
type ProviderDescriptor struct {
	Name            string  `json:"name"`
	PriorityRank    int     `json:"priority_rank"`
	IsConfigured    bool    `json:"is_configured"`
	ModelID         string  `json:"model_id"`
	MaxOutputTokens int     `json:"max_output_tokens"`
	Temperature     float64 `json:"temperature"`
}

// ProviderStatus is the availability and configuration snapshot served to health checks.
type ProviderStatus struct {
	AvailableProviders  []string                   `json:"available_providers"`
	ProviderPriority    []string                   `json:"provider_priority"`
	ConfigurationChecks map[string]map[string]bool `json:"configuration_checks"`
}
