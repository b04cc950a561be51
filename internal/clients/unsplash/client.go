package unsplash

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

// Client searches the Unsplash photo API for a stock image matching a query.
type Client interface {
	SearchImage(ctx context.Context, query string) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	accessKey  string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	accessKey := strings.TrimSpace(utils.GetEnv("UNSPLASH_ACCESS_KEY", "", nil))
	if accessKey == "" {
		return nil, fmt.Errorf("missing UNSPLASH_ACCESS_KEY")
	}
	baseURL := utils.GetEnv("UNSPLASH_BASE_URL", "https://api.unsplash.com", log)
	return &client{
		log:        log.With("client", "UnsplashClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		accessKey:  accessKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
			Full    string `json:"full"`
		} `json:"urls"`
	} `json:"results"`
}

func (c *client) SearchImage(ctx context.Context, query string) (string, error) {
	endpoint := fmt.Sprintf("%s/search/photos?query=%s&per_page=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("unsplash search: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("unsplash search: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unsplash search: http %d: %s", resp.StatusCode, string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("unsplash search: decode: %w", err)
	}
	if len(parsed.Results) == 0 {
		return "", fmt.Errorf("unsplash search: no results for %q", query)
	}
	if parsed.Results[0].URLs.Regular != "" {
		return parsed.Results[0].URLs.Regular, nil
	}
	return parsed.Results[0].URLs.Full, nil
}
