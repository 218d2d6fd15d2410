package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// OpenAIConfig selects OpenAI models and image/speech settings.
type OpenAIConfig struct {
	TextModel    string
	ImageModel   string
	ImageSize    string
	ImageQuality string
	ImageStyle   string
	SpeechModel  string
	Voice        string
	Speed        float64
	Instruction  string
	BaseURL      string
}

// DefaultOpenAIConfig returns the default OpenAI models.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		TextModel:    openai.GPT4oMini,
		ImageModel:   openai.CreateImageModelDallE3,
		ImageSize:    openai.CreateImageSize1024x1024,
		ImageQuality: openai.CreateImageQualityStandard,
		ImageStyle:   openai.CreateImageStyleVivid,
		SpeechModel:  string(openai.TTSModelGPT4oMini),
		Voice:        "nova",
		Speed:        1.0,
		Instruction:  "Speak clearly and at a relaxed pace for a language learner, with native pronunciation.",
	}
}

// OpenAI is a Backend over the OpenAI API.
type OpenAI struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAI creates an OpenAI client for key.
func NewOpenAI(key string, config OpenAIConfig) *OpenAI {
	def := DefaultOpenAIConfig()
	if config.TextModel == "" {
		config.TextModel = def.TextModel
	}
	if config.ImageModel == "" {
		config.ImageModel = def.ImageModel
	}
	if config.ImageSize == "" {
		config.ImageSize = def.ImageSize
	}
	if config.SpeechModel == "" {
		config.SpeechModel = def.SpeechModel
	}
	if config.Voice == "" {
		config.Voice = def.Voice
	}
	if config.Speed == 0 {
		config.Speed = def.Speed
	}

	cc := openai.DefaultConfig(key)
	if config.BaseURL != "" {
		cc.BaseURL = config.BaseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cc), config: config}
}

func (o *OpenAI) Name() string { return ProviderOpenAI }

func (o *OpenAI) DefaultVoice() string { return o.config.Voice }

func (o *OpenAI) Model(c Capability) string {
	switch c {
	case CapabilityImage:
		return o.config.ImageModel
	case CapabilitySpeech:
		return o.config.SpeechModel
	default:
		return o.config.TextModel
	}
}

// GenerateJSON uses JSON mode; the schema is sent along as instructions.
func (o *OpenAI) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	system := "Respond with a single JSON object only."
	if schema != nil {
		if s, err := json.Marshal(schema); err == nil {
			system += " It must match this schema: " + string(s)
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.config.TextModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai %s: %w", o.config.TextModel, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (o *OpenAI) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.config.ImageModel,
		N:              1,
		Size:           o.config.ImageSize,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	}
	if o.config.ImageModel == openai.CreateImageModelDallE3 {
		req.Quality = o.config.ImageQuality
		req.Style = o.config.ImageStyle
	}

	resp, err := o.client.CreateImage(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("openai %s: %w", o.config.ImageModel, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, "", ErrEmptyResponse
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, "", fmt.Errorf("%w: image payload: %v", ErrMalformedResponse, err)
	}
	return data, "image/png", nil
}

// Synthesize requests raw PCM, which OpenAI delivers as 24 kHz 16-bit mono.
func (o *OpenAI) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = o.config.Voice
	}
	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.config.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(strings.ToLower(voice)),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          o.config.Speed,
	}
	if o.config.Instruction != "" && o.config.SpeechModel == string(openai.TTSModelGPT4oMini) {
		req.Instructions = o.config.Instruction
	}

	resp, err := o.client.CreateSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai %s: %w", o.config.SpeechModel, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech response: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyResponse
	}
	return data, nil
}
