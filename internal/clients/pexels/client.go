package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/utils"
)

// Client searches the Pexels photo API for a stock image matching a query.
type Client interface {
	SearchImage(ctx context.Context, query string) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(utils.GetEnv("PEXELS_API_KEY", "", nil))
	if apiKey == "" {
		return nil, fmt.Errorf("missing PEXELS_API_KEY")
	}
	baseURL := utils.GetEnv("PEXELS_BASE_URL", "https://api.pexels.com", log)
	return &client{
		log:        log.With("client", "PexelsClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type searchResponse struct {
	Photos []struct {
		Src struct {
			Large    string `json:"large"`
			Original string `json:"original"`
		} `json:"src"`
	} `json:"photos"`
}

// SearchImage performs a single bounded attempt; the fallback resolver owns
// failure handling, so no retries happen here.
func (c *client) SearchImage(ctx context.Context, query string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/search?query=%s&per_page=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("pexels search: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("pexels search: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("pexels search: http %d: %s", resp.StatusCode, string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("pexels search: decode: %w", err)
	}
	if len(parsed.Photos) == 0 {
		return "", fmt.Errorf("pexels search: no results for %q", query)
	}
	if parsed.Photos[0].Src.Large != "" {
		return parsed.Photos[0].Src.Large, nil
	}
	return parsed.Photos[0].Src.Original, nil
}
