package gateway

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"codeberg.org/snonux/poplingo/internal/credential"
)

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Capability is one class of backend call, each routed and guarded separately.
type Capability string

const (
	CapabilityText   Capability = "text"
	CapabilityImage  Capability = "image"
	CapabilitySpeech Capability = "speech"
)

// Backend is a generative AI service.
type Backend interface {
	Name() string
	// GenerateJSON returns the raw model text for a prompt that asks for
	// JSON shaped like schema.
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
	// GenerateImage returns image bytes and their MIME type.
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
	// Synthesize returns 16-bit little-endian mono PCM.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	// Model reports the model used for a capability.
	Model(c Capability) string
	// DefaultVoice is used when the caller passes no voice.
	DefaultVoice() string
}

// Connector builds a backend for a provider with a freshly resolved key.
type Connector interface {
	Connect(ctx context.Context, provider string) (Backend, error)
}

// KeyConnector resolves credentials at call time so a key connected
// mid-session is picked up on the next call.
type KeyConnector struct {
	GeminiKeys credential.Chain
	OpenAIKeys credential.Chain
	Gemini     GeminiConfig
	OpenAI     OpenAIConfig
}

// Connect implements Connector.
func (c *KeyConnector) Connect(ctx context.Context, provider string) (Backend, error) {
	switch provider {
	case ProviderGemini, "":
		key := c.GeminiKeys.Key()
		if key == "" {
			return nil, ErrMissingCredential
		}
		return NewGemini(ctx, key, c.Gemini)
	case ProviderOpenAI:
		key := c.OpenAIKeys.Key()
		if key == "" {
			return nil, ErrMissingCredential
		}
		return NewOpenAI(key, c.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", provider)
	}
}

// ValidProvider reports whether name is a supported provider.
func ValidProvider(name string) bool {
	return name == ProviderGemini || name == ProviderOpenAI
}
