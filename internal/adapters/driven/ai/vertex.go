package ai

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

var (
	_ driven.Extractor  = (*Vertex)(nil)
	_ driven.Summarizer = (*Vertex)(nil)
)

const defaultVertexModel = "gemini-2.5-flash-lite"

// Vertex calls Gemini models through Vertex AI with application default credentials
type Vertex struct {
	client    *genai.Client
	modelName string
}

// NewVertex creates a Vertex AI client for projectID in region
func NewVertex(ctx context.Context, projectID, region, modelName string) (*Vertex, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("%w: Vertex AI needs a project and region", domain.ErrInvalidInput)
	}
	cl, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	if modelName == "" {
		modelName = defaultVertexModel
	}
	return &Vertex{client: cl, modelName: modelName}, nil
}

// Close releases the underlying client
func (v *Vertex) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

func (v *Vertex) model() *genai.GenerativeModel {
	m := v.client.GenerativeModel(v.modelName)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	return m
}

// Extract sends the PDF inline and asks for Markdown
func (v *Vertex) Extract(ctx context.Context, pdf []byte, mode domain.ExtractionMode) (string, error) {
	resp, err := v.model().GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: pdf},
		genai.Text(markdownExtractionPrompt),
	)
	if err != nil {
		return "", extractionFailure("vertex generate", err)
	}
	return vertexText(resp), nil
}

// Summarize condenses text
func (v *Vertex) Summarize(ctx context.Context, text string, mode domain.ExtractionMode) (string, error) {
	resp, err := v.model().GenerateContent(ctx, genai.Text(summaryPrompt(text, mode)))
	if err != nil {
		return "", summarizationFailure("vertex generate", err)
	}
	return vertexText(resp), nil
}

func vertexText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
