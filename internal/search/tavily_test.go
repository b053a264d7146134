package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New("test-key", "advanced", 5*time.Second)
	require.NoError(t, err)
	c.baseURL = server.URL
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("", "advanced", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TAVILY_API_KEY")
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.APIKey != "test-key" {
			t.Errorf("unexpected api key: %q", req.APIKey)
		}
		if req.SearchDepth != "advanced" {
			t.Errorf("unexpected search depth: %q", req.SearchDepth)
		}
		if req.MaxResults != 2 {
			t.Errorf("unexpected max results: %d", req.MaxResults)
		}
		_ = json.NewEncoder(w).Encode(searchResponse{
			Query: req.Query,
			Results: []searchResult{
				{Title: "Nvidia Corp", URL: "https://nvidia.com", Content: "GPU maker", Score: 0.98},
				{Title: "Nvidia - Wikipedia", URL: "https://en.wikipedia.org/wiki/Nvidia", Content: "History", Score: 0.91},
			},
		})
	})

	sources, err := c.Search(context.Background(), "Nvidia", 2)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "Nvidia Corp", sources[0].Title)
	assert.Equal(t, "https://nvidia.com", sources[0].URL)
	assert.InDelta(t, 0.98, sources[0].Score, 1e-9)
}

func TestSearchEmptyResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(searchResponse{Query: "x"})
	})

	sources, err := c.Search(context.Background(), "x", 5)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestSearchErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	})

	_, err := c.Search(context.Background(), "Nvidia", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "invalid api key")
}
