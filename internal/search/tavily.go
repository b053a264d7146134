// Package search provides the Tavily web-search client used by the
// research agent.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kestrel-data/kestrel/internal/model"
)

const defaultBaseURL = "https://api.tavily.com"

// Client calls the Tavily search API.
type Client struct {
	apiKey     string
	baseURL    string
	depth      string
	httpClient *http.Client
}

// New creates a Tavily client. The API key is required; a missing key is a
// configuration error surfaced at construction, not at first call.
func New(apiKey, depth string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("search: TAVILY_API_KEY is required")
	}
	if depth == "" {
		depth = "advanced"
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		depth:   depth,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

type searchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchResponse struct {
	Query        string         `json:"query"`
	ResponseTime float64        `json:"response_time"`
	Results      []searchResult `json:"results"`
}

// Search runs one query and returns up to maxResults sources.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]model.Source, error) {
	reqBody, err := json.Marshal(searchRequest{
		APIKey:      c.apiKey,
		Query:       query,
		SearchDepth: c.depth,
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("search: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("search: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search: status %d: %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	sources := make([]model.Source, 0, len(result.Results))
	for _, r := range result.Results {
		sources = append(sources, model.Source{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return sources, nil
}
