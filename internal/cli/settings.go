package cli

import (
	"github.com/spf13/viper"

	"codeberg.org/snonux/poplingo/internal/gateway"
	"codeberg.org/snonux/poplingo/internal/store"
)

// Settings is the merged result of flags, config file and environment.
type Settings struct {
	StorePath string
	DeckName  string
	Gateway   gateway.Config
	Gemini    gateway.GeminiConfig
	OpenAI    gateway.OpenAIConfig
}

// LoadSettings reads the effective configuration from viper. Flags bound in
// setupFlags take precedence over the config file; unset values keep the
// package defaults.
func LoadSettings(flags *Flags) Settings {
	gw := gateway.DefaultConfig()
	gem := gateway.DefaultGeminiConfig()
	oa := gateway.DefaultOpenAIConfig()

	gw.TextProvider = stringOr("ai.text_provider", gw.TextProvider)
	gw.ImageProvider = stringOr("ai.image_provider", gw.ImageProvider)
	gw.SpeechProvider = stringOr("ai.speech_provider", gw.SpeechProvider)
	if viper.IsSet("ai.timeout") {
		gw.Timeout = viper.GetDuration("ai.timeout")
	}
	if rate := viper.GetInt("audio.sample_rate"); rate > 0 {
		gw.SampleRate = rate
	}
	gw.CacheDir = viper.GetString("audio.cache_dir")
	gw.EnableCache = viper.GetBool("audio.enable_cache") && gw.CacheDir != ""
	if flags != nil && flags.NoCache {
		gw.EnableCache = false
	}
	if n := viper.GetUint32("breaker.failures"); n > 0 {
		gw.BreakerFailures = n
	}

	gem.TextModel = stringOr("gemini.model", gem.TextModel)
	gem.ImageModel = stringOr("gemini.image_model", gem.ImageModel)
	gem.SpeechModel = stringOr("gemini.tts_model", gem.SpeechModel)
	gem.Voice = stringOr("gemini.voice", gem.Voice)

	oa.TextModel = stringOr("openai.model", oa.TextModel)
	oa.ImageModel = stringOr("openai.image_model", oa.ImageModel)
	oa.SpeechModel = stringOr("openai.tts_model", oa.SpeechModel)
	oa.Voice = stringOr("openai.voice", oa.Voice)
	// --voice names a voice of whichever provider speaks
	if flags != nil && flags.Voice != "" && gw.SpeechProvider == gateway.ProviderOpenAI {
		oa.Voice = flags.Voice
		gem.Voice = gateway.DefaultGeminiConfig().Voice
	}

	return Settings{
		StorePath: stringOr("store.path", store.DefaultPath()),
		DeckName:  stringOr("anki.deck_name", "PopLingo Vocabulary"),
		Gateway:   gw,
		Gemini:    gem,
		OpenAI:    oa,
	}
}

func stringOr(key, fallback string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}
