package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "warehouse-chat/internal/common/http"
	"warehouse-chat/internal/common/logger"
)

var (
	ErrNotConfigured   = errors.New("WEB_SEARCH_NOT_CONFIGURED")
	ErrWebSearchFailed = errors.New("WEB_SEARCH_FAILED")
)

// SearchResult is one ranked hit from the search provider.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchResponse carries the provider's direct answer plus ranked hits.
type SearchResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer"`
	Results []SearchResult `json:"results"`
}

// Client talks to a Tavily-compatible search API. It enriches general
// questions with current web information; when no API key is configured it
// reports unavailable and the caller skips enrichment.
type Client struct {
	baseURL string
	apiKey  string
	client  *commonhttp.Client
	logger  logger.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  commonhttp.NewClient(timeout),
		logger:  log,
	}
}

func (c *Client) IsAvailable() bool {
	return c != nil && c.apiKey != ""
}

// Search runs a basic-depth search and returns the provider's answer plus
// formatted results.
func (c *Client) Search(ctx context.Context, query string, maxResults int) (*SearchResponse, error) {
	if !c.IsAvailable() {
		return nil, ErrNotConfigured
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	payload := map[string]interface{}{
		"api_key":             c.apiKey,
		"query":               query,
		"search_depth":        "basic",
		"max_results":         maxResults,
		"include_answer":      true,
		"include_raw_content": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebSearchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebSearchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrWebSearchFailed, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var decoded struct {
		Answer  string         `json:"answer"`
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebSearchFailed, err)
	}

	c.logger.Debug("Web search completed", map[string]interface{}{
		"query":   query,
		"results": len(decoded.Results),
	})

	return &SearchResponse{
		Query:   query,
		Answer:  decoded.Answer,
		Results: decoded.Results,
	}, nil
}

// ContextForLLM formats search results as a context block for the
// completion prompt. Only the top three results are included and each
// content snippet is truncated to 300 characters.
func ContextForLLM(results *SearchResponse) string {
	if results == nil || len(results.Results) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Web Search Results for: %s\n\n", results.Query)

	if results.Answer != "" {
		fmt.Fprintf(&b, "Summary: %s\n\n", results.Answer)
	}

	b.WriteString("Detailed Sources:\n")
	top := results.Results
	if len(top) > 3 {
		top = top[:3]
	}
	for i, result := range top {
		content := result.Content
		if len(content) > 300 {
			content = content[:300]
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, result.Title)
		fmt.Fprintf(&b, "   URL: %s\n", result.URL)
		fmt.Fprintf(&b, "   Content: %s...\n\n", content)
	}

	return b.String()
}
