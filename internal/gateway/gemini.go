package gateway

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig selects Gemini models and the default voice.
type GeminiConfig struct {
	TextModel   string
	ImageModel  string
	SpeechModel string
	Voice       string
	BaseURL     string
}

// DefaultGeminiConfig returns the models the app was tuned against.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		TextModel:   "gemini-2.5-flash",
		ImageModel:  "gemini-2.5-flash-image",
		SpeechModel: "gemini-2.5-flash-preview-tts",
		Voice:       "Kore",
	}
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini is a Backend over the Gemini API.
type Gemini struct {
	models contentGenerator
	config GeminiConfig
}

// NewGemini creates a Gemini API client for key.
func NewGemini(ctx context.Context, key string, config GeminiConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiWith(client.Models, config), nil
}

func newGeminiWith(models contentGenerator, config GeminiConfig) *Gemini {
	def := DefaultGeminiConfig()
	if config.TextModel == "" {
		config.TextModel = def.TextModel
	}
	if config.ImageModel == "" {
		config.ImageModel = def.ImageModel
	}
	if config.SpeechModel == "" {
		config.SpeechModel = def.SpeechModel
	}
	if config.Voice == "" {
		config.Voice = def.Voice
	}
	return &Gemini{models: models, config: config}
}

func (g *Gemini) Name() string { return ProviderGemini }

func (g *Gemini) DefaultVoice() string { return g.config.Voice }

func (g *Gemini) Model(c Capability) string {
	switch c {
	case CapabilityImage:
		return g.config.ImageModel
	case CapabilitySpeech:
		return g.config.SpeechModel
	default:
		return g.config.TextModel
	}
}

func (g *Gemini) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.config.TextModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.config.TextModel, err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *Gemini) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	resp, err := g.models.GenerateContent(ctx, g.config.ImageModel, genai.Text(prompt), nil)
	if err != nil {
		return nil, "", fmt.Errorf("gemini %s: %w", g.config.ImageModel, err)
	}
	blob := firstInlineData(resp)
	if blob == nil {
		return nil, "", ErrEmptyResponse
	}
	mime := blob.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return blob.Data, mime, nil
}

func (g *Gemini) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = g.config.Voice
	}
	resp, err := g.models.GenerateContent(ctx, g.config.SpeechModel, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", g.config.SpeechModel, err)
	}
	blob := firstInlineData(resp)
	if blob == nil {
		return nil, ErrEmptyResponse
	}
	return blob.Data, nil
}

// firstInlineData returns the first inline payload of the first candidate.
func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return nil
	}
	for _, part := range content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData
		}
	}
	return nil
}
