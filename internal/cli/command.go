package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/poplingo/internal"
	"codeberg.org/snonux/poplingo/internal/store"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "poplingo [word]",
		Short: "AI-powered vocabulary notebook",
		Long: `poplingo looks up words and phrases in the language you are learning.

Every lookup returns a definition in your native language, example
sentences, a usage note and a small illustration. Save results to your
notebook, study them as flashcards, have them read aloud or turn them
into a short story.

Examples:
  poplingo                          # Start the interactive shell (default)
  poplingo gato --save              # Look up "gato" and save it
  poplingo --target fr bonjour      # Look up a French word
  poplingo --batch words.txt        # Look up and save many words
  poplingo --anki --deck-name Food  # Export the notebook to Anki`,
		Args:    cobra.MaximumNArgs(1),
		Version: internal.Version,
	}

	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	home, _ := os.UserHomeDir()
	defaultCacheDir := filepath.Join(home, ".cache", "poplingo", "speech")

	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.poplingo.yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")

	// Local flags
	cmd.Flags().StringVar(&flags.DBPath, "db", store.DefaultPath(), "Notebook database path")
	cmd.Flags().BoolVar(&flags.Ephemeral, "ephemeral", false, "Keep the notebook in memory only")
	cmd.Flags().StringVar(&flags.NativeLang, "native", "", "Native language code (default: saved preference)")
	cmd.Flags().StringVar(&flags.TargetLang, "target", "", "Target language code (default: saved preference)")
	cmd.Flags().BoolVarP(&flags.Save, "save", "s", false, "Save the looked up word to the notebook")
	cmd.Flags().BoolVar(&flags.Speak, "speak", false, "Read the looked up word aloud")
	cmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Process words from file (one per line)")
	cmd.Flags().BoolVar(&flags.GenerateAnki, "anki", false, "Export the notebook to Anki (APKG format by default, use --anki-csv for CSV)")
	cmd.Flags().BoolVar(&flags.AnkiCSV, "anki-csv", false, "Export CSV instead of APKG when using --anki")
	cmd.Flags().StringVar(&flags.DeckName, "deck-name", flags.DeckName, "Deck name for APKG export")
	cmd.Flags().StringVar(&flags.AnkiOutput, "anki-output", "", "Output path for the Anki export (default: next to the database)")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List available Gemini models for the current API key")
	cmd.Flags().BoolVar(&flags.Archive, "archive", false, "Archive the notebook database and start fresh")

	// Provider flags
	cmd.Flags().StringVar(&flags.TextProvider, "text-provider", flags.TextProvider, "Provider for lookups and stories: gemini or openai")
	cmd.Flags().StringVar(&flags.ImageProvider, "image-provider", flags.ImageProvider, "Provider for illustrations: gemini or openai")
	cmd.Flags().StringVar(&flags.SpeechProvider, "speech-provider", flags.SpeechProvider, "Provider for speech: gemini or openai")
	cmd.Flags().StringVar(&flags.Voice, "voice", "", "Voice name (default: provider default, e.g. Kore or nova)")

	// Model flags
	cmd.Flags().StringVar(&flags.GeminiModel, "gemini-model", flags.GeminiModel, "Gemini text model")
	cmd.Flags().StringVar(&flags.GeminiImageModel, "gemini-image-model", flags.GeminiImageModel, "Gemini image model")
	cmd.Flags().StringVar(&flags.GeminiTTSModel, "gemini-tts-model", flags.GeminiTTSModel, "Gemini speech model")
	cmd.Flags().StringVar(&flags.OpenAIModel, "openai-model", flags.OpenAIModel, "OpenAI chat model")
	cmd.Flags().StringVar(&flags.OpenAIImageModel, "openai-image-model", flags.OpenAIImageModel, "OpenAI image model: dall-e-2 or dall-e-3")
	cmd.Flags().StringVar(&flags.OpenAITTSModel, "openai-tts-model", flags.OpenAITTSModel, "OpenAI TTS model: tts-1, tts-1-hd, gpt-4o-mini-tts")

	// Speech and resilience flags
	cmd.Flags().IntVar(&flags.SampleRate, "sample-rate", flags.SampleRate, "Sample rate of synthesized speech in Hz")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", flags.Timeout, "Timeout per AI call (0 disables)")
	cmd.Flags().StringVar(&flags.CacheDir, "cache-dir", defaultCacheDir, "Directory for cached speech")
	cmd.Flags().BoolVar(&flags.NoCache, "no-cache", false, "Disable the speech cache")
	cmd.Flags().BoolVar(&flags.ClearCache, "clear-cache", false, "Delete all cached speech")
	cmd.Flags().UintVar(&flags.BreakerFailures, "breaker-failures", flags.BreakerFailures, "Consecutive failures before an AI capability is paused")

	bindFlagsToViper(cmd)
}

// flagKeys maps viper keys to flag names.
var flagKeys = map[string]string{
	"ai.text_provider":   "text-provider",
	"ai.image_provider":  "image-provider",
	"ai.speech_provider": "speech-provider",
	"ai.timeout":         "timeout",
	"gemini.model":       "gemini-model",
	"gemini.image_model": "gemini-image-model",
	"gemini.tts_model":   "gemini-tts-model",
	"gemini.voice":       "voice",
	"openai.model":       "openai-model",
	"openai.image_model": "openai-image-model",
	"openai.tts_model":   "openai-tts-model",
	"audio.sample_rate":  "sample-rate",
	"audio.cache_dir":    "cache-dir",
	"store.path":         "db",
	"breaker.failures":   "breaker-failures",
	"anki.deck_name":     "deck-name",
}

func bindFlagsToViper(cmd *cobra.Command) {
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			viper.BindPFlag(key, f)
		}
	}
	viper.SetDefault("audio.enable_cache", true)
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".poplingo" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".poplingo")
	}

	// POPLINGO_AI_TEXT_PROVIDER overrides ai.text_provider
	viper.SetEnvPrefix("POPLINGO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
