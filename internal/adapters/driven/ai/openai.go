package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Ensure OpenAISummarizer implements Summarizer
var _ driven.Summarizer = (*OpenAISummarizer)(nil)

// OpenAISummarizer implements Summarizer using OpenAI's chat completions API.
// Any OpenAI-compatible endpoint works through baseURL.
type OpenAISummarizer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAISummarizer creates a new OpenAI summarizer
func NewOpenAISummarizer(apiKey, model, baseURL string) (*OpenAISummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidInput)
	}

	if model == "" {
		model = "gpt-4o-mini"
	}

	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAISummarizer{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request body for the chat completions API
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatResponse is the response from the chat completions API
type chatResponse struct {
	Choices []struct {
		Index   int         `json:"index"`
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Summarize asks the model for a summary of text
func (o *OpenAISummarizer) Summarize(ctx context.Context, text string, mode domain.ExtractionMode) (string, error) {
	reqBody := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "user", Content: summaryPrompt(text, mode)},
		},
	}

	resp, err := o.doRequest(ctx, reqBody)
	if err != nil {
		return "", summarizationFailure("openai chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Close releases idle connections
func (o *OpenAISummarizer) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// doRequest makes a request to the chat completions API
func (o *OpenAISummarizer) doRequest(ctx context.Context, reqBody chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatResponse
	parseErr := json.Unmarshal(respBody, &chatResp)

	if resp.StatusCode != http.StatusOK {
		statusErr := &httpStatusError{Code: resp.StatusCode}
		if parseErr == nil && chatResp.Error != nil {
			statusErr.Message = chatResp.Error.Message
		}
		return nil, statusErr
	}
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse response: %w", parseErr)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s (type: %s, code: %s)",
			chatResp.Error.Message, chatResp.Error.Type, chatResp.Error.Code)
	}

	return &chatResp, nil
}
