package services

import (
	"context"

	"github.com/quicklyapp/quickly-backend/internal/clients/gcptts"
	"github.com/quicklyapp/quickly-backend/internal/clients/openai"
	"github.com/quicklyapp/quickly-backend/internal/clients/pexels"
	"github.com/quicklyapp/quickly-backend/internal/clients/unsplash"
)

// Adapters wrapping the concrete clients into the AssetProvider contract so
// chains can be assembled in any order at wiring time.

type pexelsImageProvider struct{ c pexels.Client }

func NewPexelsImageProvider(c pexels.Client) AssetProvider { return &pexelsImageProvider{c: c} }

func (p *pexelsImageProvider) Name() string { return "pexels" }

func (p *pexelsImageProvider) Resolve(ctx context.Context, query string) (*RawAsset, error) {
	url, err := p.c.SearchImage(ctx, query)
	if err != nil {
		return nil, err
	}
	return &RawAsset{Kind: "image", SourceURL: url}, nil
}

type unsplashImageProvider struct{ c unsplash.Client }

func NewUnsplashImageProvider(c unsplash.Client) AssetProvider { return &unsplashImageProvider{c: c} }

func (p *unsplashImageProvider) Name() string { return "unsplash" }

func (p *unsplashImageProvider) Resolve(ctx context.Context, query string) (*RawAsset, error) {
	url, err := p.c.SearchImage(ctx, query)
	if err != nil {
		return nil, err
	}
	return &RawAsset{Kind: "image", SourceURL: url}, nil
}

type openaiImageProvider struct{ c openai.Client }

// NewOpenAIImageProvider generates an illustration when no stock photo could
// be found; it sits last in the image chain.
func NewOpenAIImageProvider(c openai.Client) AssetProvider { return &openaiImageProvider{c: c} }

func (p *openaiImageProvider) Name() string { return "openai_image" }

func (p *openaiImageProvider) Resolve(ctx context.Context, prompt string) (*RawAsset, error) {
	raw, err := p.c.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &RawAsset{Kind: "image", Bytes: raw, Mime: "image/png"}, nil
}

type openaiSpeechProvider struct{ c openai.Client }

func NewOpenAISpeechProvider(c openai.Client) AssetProvider { return &openaiSpeechProvider{c: c} }

func (p *openaiSpeechProvider) Name() string { return "openai_tts" }

func (p *openaiSpeechProvider) Resolve(ctx context.Context, text string) (*RawAsset, error) {
	raw, err := p.c.SynthesizeSpeech(ctx, text)
	if err != nil {
		return nil, err
	}
	return &RawAsset{Kind: "audio", Bytes: raw, Mime: "audio/mpeg"}, nil
}

type gcpSpeechProvider struct{ c gcptts.Client }

func NewGcpSpeechProvider(c gcptts.Client) AssetProvider { return &gcpSpeechProvider{c: c} }

func (p *gcpSpeechProvider) Name() string { return "gcp_tts" }

func (p *gcpSpeechProvider) Resolve(ctx context.Context, text string) (*RawAsset, error) {
	raw, err := p.c.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	return &RawAsset{Kind: "audio", Bytes: raw, Mime: "audio/mpeg"}, nil
}
