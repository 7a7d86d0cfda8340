package domain

// AIProvider identifies the generative model provider
type AIProvider string

const (
	AIProviderGemini AIProvider = "gemini"
	AIProviderVertex AIProvider = "vertex"
	AIProviderOpenAI AIProvider = "openai"
)

// AISettings configures the extraction and summarization capabilities
type AISettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize
	BaseURL  string     `json:"base_url,omitempty"`

	// ProjectID and Region address Vertex AI
	ProjectID string `json:"project_id,omitempty"`
	Region    string `json:"region,omitempty"`

	// MarkdownProvider handles markdown extraction when Provider cannot read PDFs.
	// Empty means the same as Provider.
	MarkdownProvider AIProvider `json:"markdown_provider,omitempty"`
	MarkdownAPIKey   string     `json:"-"`
}

// MarkdownSettings returns the settings used for markdown extraction
func (s *AISettings) MarkdownSettings() *AISettings {
	if s == nil || s.MarkdownProvider == "" || s.MarkdownProvider == s.Provider {
		return s
	}
	md := *s
	md.Provider = s.MarkdownProvider
	md.APIKey = s.MarkdownAPIKey
	md.Model = ""
	md.BaseURL = ""
	return &md
}

// IsConfigured returns true if enough is set to reach a provider
func (s *AISettings) IsConfigured() bool {
	if s == nil || s.Provider == "" {
		return false
	}
	switch s.Provider {
	case AIProviderVertex:
		return s.ProjectID != "" && s.Region != ""
	default:
		return s.APIKey != ""
	}
}
