package domain

import "testing"

func TestAISettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings *AISettings
		want     bool
	}{
		{"nil", nil, false},
		{"no provider", &AISettings{APIKey: "k"}, false},
		{"gemini with key", &AISettings{Provider: AIProviderGemini, APIKey: "k"}, true},
		{"gemini without key", &AISettings{Provider: AIProviderGemini}, false},
		{"openai with key", &AISettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"vertex with project", &AISettings{Provider: AIProviderVertex, ProjectID: "p", Region: "us-central1"}, true},
		{"vertex without region", &AISettings{Provider: AIProviderVertex, ProjectID: "p"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAISettings_MarkdownSettings(t *testing.T) {
	same := &AISettings{Provider: AIProviderGemini, APIKey: "k", Model: "gemini-1.5-pro"}
	if got := same.MarkdownSettings(); got != same {
		t.Errorf("expected the same settings when no markdown provider is set")
	}

	split := &AISettings{
		Provider:         AIProviderOpenAI,
		APIKey:           "sk",
		Model:            "gpt-4o-mini",
		MarkdownProvider: AIProviderGemini,
		MarkdownAPIKey:   "gk",
	}
	md := split.MarkdownSettings()
	if md.Provider != AIProviderGemini || md.APIKey != "gk" || md.Model != "" {
		t.Errorf("unexpected markdown settings: %+v", md)
	}
	if split.Provider != AIProviderOpenAI {
		t.Errorf("original settings must not change")
	}
}
