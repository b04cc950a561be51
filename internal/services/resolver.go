package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quicklyapp/quickly-backend/internal/logger"
)

// ErrAllProvidersFailed is returned when every provider in a chain failed or
// produced an empty result.
var ErrAllProvidersFailed = errors.New("all providers failed")

// RawAsset is a resolved-but-unpersisted asset payload. Exactly one of
// SourceURL or Bytes is expected to be set.
type RawAsset struct {
	Kind      string // "image" | "audio"
	Provider  string
	SourceURL string
	Bytes     []byte
	Mime      string
}

func (a *RawAsset) empty() bool {
	return a == nil || (a.SourceURL == "" && len(a.Bytes) == 0)
}

// AssetProvider is one concrete external service implementing a capability.
// Implementations make a single bounded attempt; the resolver owns fallback.
type AssetProvider interface {
	Name() string
	Resolve(ctx context.Context, query string) (*RawAsset, error)
}

// FallbackResolver walks an ordered provider chain until one succeeds.
// Provider order is fixed at construction and identical across calls. A
// provider failure is logged and swallowed; it is never retried within the
// same resolution.
type FallbackResolver struct {
	log            *logger.Logger
	capability     string
	providers      []AssetProvider
	attemptTimeout time.Duration
}

func NewFallbackResolver(log *logger.Logger, capability string, attemptTimeout time.Duration, providers ...AssetProvider) *FallbackResolver {
	if attemptTimeout <= 0 {
		attemptTimeout = 30 * time.Second
	}
	return &FallbackResolver{
		log:            log.With("resolver", capability),
		capability:     capability,
		providers:      providers,
		attemptTimeout: attemptTimeout,
	}
}

func (r *FallbackResolver) Resolve(ctx context.Context, query string) (*RawAsset, error) {
	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		asset, err := p.Resolve(attemptCtx, query)
		cancel()
		if err != nil {
			r.log.Warn("Provider failed, advancing to next",
				"provider", p.Name(),
				"query", query,
				"error", err,
			)
			continue
		}
		if asset.empty() {
			r.log.Warn("Provider returned empty result, advancing to next",
				"provider", p.Name(),
				"query", query,
			)
			continue
		}
		asset.Provider = p.Name()
		return asset, nil
	}
	return nil, fmt.Errorf("%s resolution for %q: %w", r.capability, query, ErrAllProvidersFailed)
}
