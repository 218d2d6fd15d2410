package cli

import (
	"time"

	"codeberg.org/snonux/poplingo/internal/audio"
	"codeberg.org/snonux/poplingo/internal/gateway"
)

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile    string
	DBPath     string
	Ephemeral  bool
	NativeLang string
	TargetLang string
	Verbose    bool

	// Single word mode
	Save  bool
	Speak bool

	// Batch and export
	BatchFile    string
	GenerateAnki bool
	AnkiCSV      bool
	DeckName     string
	AnkiOutput   string
	ListModels   bool
	Archive      bool

	// Provider routing
	TextProvider   string
	ImageProvider  string
	SpeechProvider string
	Voice          string

	// Gemini models
	GeminiModel      string
	GeminiImageModel string
	GeminiTTSModel   string

	// OpenAI models
	OpenAIModel      string
	OpenAIImageModel string
	OpenAITTSModel   string

	// Speech and resilience
	SampleRate      int
	Timeout         time.Duration
	CacheDir        string
	NoCache         bool
	ClearCache      bool
	BreakerFailures uint
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	gem := gateway.DefaultGeminiConfig()
	oa := gateway.DefaultOpenAIConfig()
	gw := gateway.DefaultConfig()

	return &Flags{
		DeckName:         "PopLingo Vocabulary",
		TextProvider:     gw.TextProvider,
		ImageProvider:    gw.ImageProvider,
		SpeechProvider:   gw.SpeechProvider,
		GeminiModel:      gem.TextModel,
		GeminiImageModel: gem.ImageModel,
		GeminiTTSModel:   gem.SpeechModel,
		OpenAIModel:      oa.TextModel,
		OpenAIImageModel: oa.ImageModel,
		OpenAITTSModel:   oa.SpeechModel,
		SampleRate:       audio.DefaultSampleRate,
		Timeout:          gw.Timeout,
		BreakerFailures:  uint(gw.BreakerFailures),
	}
}
