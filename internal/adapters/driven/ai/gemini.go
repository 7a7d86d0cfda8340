package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Ensure Gemini implements both capabilities
var (
	_ driven.Extractor  = (*Gemini)(nil)
	_ driven.Summarizer = (*Gemini)(nil)
)

const defaultGeminiModel = "gemini-2.5-flash-lite"

// Gemini calls the Gemini API for markdown extraction and summarization
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a Gemini client authenticated with an API key
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required", domain.ErrInvalidInput)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	return &Gemini{client: cl, modelName: modelName}, nil
}

// Close releases the underlying client
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Extract sends the PDF as an inline blob and asks for Markdown
func (g *Gemini) Extract(ctx context.Context, pdf []byte, mode domain.ExtractionMode) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	resp, err := m.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: pdf},
		genai.Text(markdownExtractionPrompt),
	)
	if err != nil {
		return "", extractionFailure("gemini generate", err)
	}
	return geminiText(resp), nil
}

// Summarize condenses text, answering in Markdown when mode is markdown
func (g *Gemini) Summarize(ctx context.Context, text string, mode domain.ExtractionMode) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	resp, err := m.GenerateContent(ctx, genai.Text(summaryPrompt(text, mode)))
	if err != nil {
		return "", summarizationFailure("gemini generate", err)
	}
	return geminiText(resp), nil
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
