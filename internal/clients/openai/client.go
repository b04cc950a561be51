package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/utils"
)

// Client is the OpenAI surface the pipeline needs: free-form text generation,
// prompt-to-image generation, and speech synthesis.
type Client interface {
	GenerateText(ctx context.Context, prompt string, maxTokens int64, temperature float64) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
}

type client struct {
	log *logger.Logger
	api oa.Client

	model       string
	imageModel  string
	speechModel string
	voice       string
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(utils.GetEnv("OPENAI_API_KEY", "", nil))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(utils.GetEnv("OPENAI_BASE_URL", "", nil)); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	maxRetries := utils.GetEnvAsInt("OPENAI_MAX_RETRIES", 2, log)
	opts = append(opts, option.WithMaxRetries(maxRetries))

	return &client{
		log:         log.With("client", "OpenAIClient"),
		api:         oa.NewClient(opts...),
		model:       utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log),
		imageModel:  utils.GetEnv("OPENAI_IMAGE_MODEL", "dall-e-3", log),
		speechModel: utils.GetEnv("OPENAI_SPEECH_MODEL", "tts-1", log),
		voice:       utils.GetEnv("OPENAI_TTS_VOICE", "alloy", log),
	}, nil
}

func (c *client) GenerateText(ctx context.Context, prompt string, maxTokens int64, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := c.api.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.UserMessage(prompt),
		},
		MaxTokens:   oa.Int(maxTokens),
		Temperature: oa.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := c.api.Images.Generate(ctx, oa.ImageGenerateParams{
		Prompt:         prompt,
		Model:          oa.ImageModel(c.imageModel),
		N:              oa.Int(1),
		Size:           oa.ImageGenerateParamsSize1024x1024,
		ResponseFormat: oa.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image generation: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("openai image generation: empty response")
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai image generation: decode b64: %w", err)
	}
	return raw, nil
}

func (c *client) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := c.api.Audio.Speech.New(ctx, oa.AudioSpeechNewParams{
		Model:          oa.SpeechModel(c.speechModel),
		Voice:          oa.AudioSpeechNewParamsVoice(c.voice),
		Input:          text,
		ResponseFormat: oa.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech synthesis: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai speech synthesis: read body: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("openai speech synthesis: empty audio stream")
	}
	return raw, nil
}
