package gcptts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/utils"
)

// Client synthesizes short narration clips through Google Cloud Text-to-Speech.
type Client interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Close() error
}

type client struct {
	log          *logger.Logger
	ttsClient    *texttospeech.Client
	languageCode string
	voiceName    string
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	serviceLog := log.With("client", "GcpTTSClient")

	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	ctx := context.Background()
	var c *texttospeech.Client
	var err error
	if creds != "" {
		c, err = texttospeech.NewClient(ctx, option.WithCredentialsFile(creds))
	} else {
		c, err = texttospeech.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("texttospeech client: %w", err)
	}

	return &client{
		log:          serviceLog,
		ttsClient:    c,
		languageCode: utils.GetEnv("GCP_TTS_LANGUAGE", "en-US", log),
		voiceName:    utils.GetEnv("GCP_TTS_VOICE", "en-US-Neural2-D", log),
	}, nil
}

func (c *client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := c.ttsClient.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: c.languageCode,
			Name:         c.voiceName,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("texttospeech synthesize: %w", err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, errors.New("texttospeech synthesize: empty audio content")
	}
	return resp.AudioContent, nil
}

func (c *client) Close() error {
	if c == nil || c.ttsClient == nil {
		return nil
	}
	return c.ttsClient.Close()
}
