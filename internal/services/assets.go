package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quicklyapp/quickly-backend/internal/clients/gcp"
	"github.com/quicklyapp/quickly-backend/internal/logger"
)

// ErrPersistFailed is returned when an asset could not be written to durable
// storage. Callers with a source URL fall back to it; others drop the asset.
var ErrPersistFailed = errors.New("asset persist failed")

const (
	downloadTimeout = 10 * time.Second
	maxAssetBytes   = 32 << 20
)

// AssetService persists resolved asset payloads to object storage under
// deterministic keys and returns durable public URLs.
type AssetService interface {
	// PersistBytes uploads raw bytes under the given key.
	PersistBytes(ctx context.Context, data []byte, mime, key string) (string, error)
	// PersistURL downloads the source (one retry) and uploads it under
	// keyBase plus an extension derived from the response content type.
	PersistURL(ctx context.Context, sourceURL, keyBase string) (string, error)
}

type assetService struct {
	log        *logger.Logger
	bucket     gcp.BucketService
	httpClient *http.Client
}

func NewAssetService(log *logger.Logger, bucket gcp.BucketService) (AssetService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if bucket == nil {
		return nil, fmt.Errorf("bucket service required")
	}
	return &assetService{
		log:        log.With("service", "AssetService"),
		bucket:     bucket,
		httpClient: &http.Client{Timeout: downloadTimeout},
	}, nil
}

// AssetKey derives a stable storage key base from a resolution context.
// Identical contexts always map to the same key, so repeated resolutions
// de-duplicate in the bucket.
func AssetKey(prefix, context string) string {
	sum := sha256.Sum256([]byte(context))
	return fmt.Sprintf("%s/%s", prefix, hex.EncodeToString(sum[:])[:12])
}

func (s *assetService) PersistBytes(ctx context.Context, data []byte, mime, key string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload for %q", ErrPersistFailed, key)
	}
	if err := s.bucket.Upload(ctx, key, mime, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: upload %q: %v", ErrPersistFailed, key, err)
	}
	return s.bucket.GetPublicURL(key), nil
}

func (s *assetService) PersistURL(ctx context.Context, sourceURL, keyBase string) (string, error) {
	data, contentType, err := s.download(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("%w: download %q: %v", ErrPersistFailed, sourceURL, err)
	}
	key := keyBase + extForContentType(contentType)
	if err := s.bucket.Upload(ctx, key, contentType, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: upload %q: %v", ErrPersistFailed, key, err)
	}
	return s.bucket.GetPublicURL(key), nil
}

// download fetches the source with a bounded timeout and a single retry.
func (s *assetService) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		data, contentType, err := s.downloadOnce(ctx, sourceURL)
		if err == nil {
			return data, contentType, nil
		}
		lastErr = err
		s.log.Warn("Asset download failed", "url", sourceURL, "attempt", attempt+1, "error", err)
	}
	return nil, "", lastErr
}

func (s *assetService) downloadOnce(ctx context.Context, sourceURL string) ([]byte, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty body")
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

func extForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "mpeg") && strings.HasPrefix(contentType, "audio"):
		return ".mp3"
	default:
		return ".jpg"
	}
}
