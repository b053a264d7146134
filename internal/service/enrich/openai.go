package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com"

// OpenAIProvider derives company profiles via the chat completions API.
type OpenAIProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIProvider creates an OpenAI enrichment provider.
func NewOpenAIProvider(apiKey, model string, timeout time.Duration) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("enrich: OPENAI_API_KEY is required")
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Enabled reports true: this provider performs real enrichment.
func (p *OpenAIProvider) Enabled() bool { return true }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
	Temperature    float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

const systemPrompt = "You are a company research assistant. Given a query and web search " +
	"snippets, respond with a JSON object with exactly three fields: " +
	"company_name, industry, summary. Keep the summary under three sentences."

// Enrich asks the model for a JSON profile with the three named fields.
func (p *OpenAIProvider) Enrich(ctx context.Context, query string, snippets []string) (Profile, error) {
	user := fmt.Sprintf("Query: %s\n\nSnippets:\n%s", query, strings.Join(snippets, "\n---\n"))

	reqBody, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
		ResponseFormat: map[string]any{"type": "json_object"},
		Temperature:    0,
	})
	if err != nil {
		return Profile{}, fmt.Errorf("enrich: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return Profile{}, fmt.Errorf("enrich: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("enrich: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Profile{}, fmt.Errorf("enrich: read response: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Profile{}, fmt.Errorf("enrich: unmarshal response: %w", err)
	}
	if result.Error != nil {
		return Profile{}, fmt.Errorf("enrich: openai error: %s: %s", result.Error.Type, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("enrich: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if len(result.Choices) == 0 {
		return Profile{}, fmt.Errorf("enrich: empty completion")
	}

	var profile Profile
	if err := json.Unmarshal([]byte(result.Choices[0].Message.Content), &profile); err != nil {
		return Profile{}, fmt.Errorf("enrich: parse profile: %w", err)
	}
	if profile.CompanyName == "" {
		profile.CompanyName = query
	}
	return profile, nil
}
