package images

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Service looks up a single illustrative image for a keyword query against
// the Google Custom Search API. Lookup failures are swallowed and logged;
// callers always get a URL or an empty string.
type Service struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	CX         string
}

func NewService(baseURL, apiKey, cx string) *Service {
	return &Service{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		BaseURL:    baseURL,
		APIKey:     apiKey,
		CX:         cx,
	}
}

type searchResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

// Search returns the first image result for query, or "" when the lookup
// fails or comes back empty.
func (s *Service) Search(ctx context.Context, query string) string {
	if query == "" {
		return ""
	}

	params := url.Values{}
	params.Set("key", s.APIKey)
	params.Set("cx", s.CX)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", "1")
	params.Set("safe", "active")

	req, err := http.NewRequestWithContext(ctx, "GET", s.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		log.Printf("Image search request build failed: %v", err)
		return ""
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		log.Printf("Image search request failed: %v", err)
		return ""
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Image search read failed: %v", err)
		return ""
	}
	if resp.StatusCode != 200 {
		log.Printf("Image search error (status %d): %s", resp.StatusCode, string(body))
		return ""
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("Image search parse failed: %v", err)
		return ""
	}
	if len(parsed.Items) == 0 {
		return ""
	}
	return parsed.Items[0].Link
}
