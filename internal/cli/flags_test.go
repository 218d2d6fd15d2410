package cli

import (
	"reflect"
	"testing"
	"time"
)

func TestNewFlags(t *testing.T) {
	flags := NewFlags()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"DeckName", flags.DeckName, "PopLingo Vocabulary"},
		{"TextProvider", flags.TextProvider, "gemini"},
		{"ImageProvider", flags.ImageProvider, "gemini"},
		{"SpeechProvider", flags.SpeechProvider, "gemini"},
		{"GeminiModel", flags.GeminiModel, "gemini-2.5-flash"},
		{"GeminiImageModel", flags.GeminiImageModel, "gemini-2.5-flash-image"},
		{"GeminiTTSModel", flags.GeminiTTSModel, "gemini-2.5-flash-preview-tts"},
		{"OpenAIModel", flags.OpenAIModel, "gpt-4o-mini"},
		{"OpenAIImageModel", flags.OpenAIImageModel, "dall-e-3"},
		{"OpenAITTSModel", flags.OpenAITTSModel, "gpt-4o-mini-tts"},
		{"SampleRate", flags.SampleRate, 24000},
		{"Timeout", flags.Timeout, 60 * time.Second},
		{"BreakerFailures", flags.BreakerFailures, uint(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.expected) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	boolTests := []struct {
		name  string
		value bool
	}{
		{"Ephemeral", flags.Ephemeral},
		{"Save", flags.Save},
		{"Speak", flags.Speak},
		{"GenerateAnki", flags.GenerateAnki},
		{"AnkiCSV", flags.AnkiCSV},
		{"ListModels", flags.ListModels},
		{"Archive", flags.Archive},
		{"NoCache", flags.NoCache},
		{"ClearCache", flags.ClearCache},
		{"Verbose", flags.Verbose},
	}

	for _, tt := range boolTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value {
				t.Errorf("%s = %v, want false", tt.name, tt.value)
			}
		})
	}

	stringTests := []struct {
		name  string
		value string
	}{
		{"CfgFile", flags.CfgFile},
		{"BatchFile", flags.BatchFile},
		{"NativeLang", flags.NativeLang},
		{"TargetLang", flags.TargetLang},
		{"Voice", flags.Voice},
		{"AnkiOutput", flags.AnkiOutput},
	}

	for _, tt := range stringTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Errorf("%s = %q, want empty", tt.name, tt.value)
			}
		})
	}
}
