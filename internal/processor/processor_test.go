package processor

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/poplingo/internal/cli"
	"codeberg.org/snonux/poplingo/internal/gateway"
	"codeberg.org/snonux/poplingo/internal/session"
	"codeberg.org/snonux/poplingo/internal/store"
	"codeberg.org/snonux/poplingo/internal/testutil"
)

type fixture struct {
	proc    *Processor
	backend *testutil.MockBackend
	player  *testutil.MockPlayer
	kv      *store.Memory
	out     *bytes.Buffer
}

func newFixture(t *testing.T, flags *cli.Flags, input string) *fixture {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "test-key")

	f := &fixture{
		backend: testutil.NewMockBackend(),
		player:  &testutil.MockPlayer{},
		kv:      store.NewMemory(),
		out:     &bytes.Buffer{},
	}
	settings := cli.Settings{
		StorePath: filepath.Join(t.TempDir(), "poplingo.db"),
		DeckName:  "Test Deck",
		Gateway:   gateway.DefaultConfig(),
		Gemini:    gateway.DefaultGeminiConfig(),
		OpenAI:    gateway.DefaultOpenAIConfig(),
	}

	proc, err := newProcessor(context.Background(), flags, settings, testutil.QuietLogger(), deps{
		kv:        f.kv,
		connector: &testutil.MockConnector{Backend: f.backend},
		player:    f.player,
		in:        strings.NewReader(input),
		out:       f.out,
	})
	if err != nil {
		t.Fatalf("newProcessor failed: %v", err)
	}
	t.Cleanup(func() { proc.Close() })
	f.proc = proc
	return f
}

func TestNewProcessorRejectsUnknownProvider(t *testing.T) {
	settings := cli.Settings{Gateway: gateway.DefaultConfig()}
	settings.Gateway.ImageProvider = "midjourney"

	_, err := newProcessor(context.Background(), cli.NewFlags(), settings, testutil.QuietLogger(), deps{
		kv:  store.NewMemory(),
		in:  strings.NewReader(""),
		out: &bytes.Buffer{},
	})
	if err == nil || !strings.Contains(err.Error(), "midjourney") {
		t.Errorf("expected unknown provider error, got %v", err)
	}
}

func TestProcessSingleWord(t *testing.T) {
	flags := cli.NewFlags()
	flags.Save = true
	flags.Speak = true
	f := newFixture(t, flags, "")

	if err := f.proc.ProcessSingleWord(context.Background(), "gato"); err != nil {
		t.Fatalf("ProcessSingleWord failed: %v", err)
	}

	testutil.AssertContains(t, f.out.String(),
		"Looking up: gato",
		"meaning of gato",
		"gato example",
		"Saved 'gato' to your notebook.",
	)

	nb, err := store.New(f.kv).LoadNotebook()
	if err != nil {
		t.Fatalf("LoadNotebook failed: %v", err)
	}
	if len(nb) != 1 || nb[0].Term != "gato" {
		t.Fatalf("unexpected notebook: %+v", nb)
	}
	if !nb[0].HasImage() {
		t.Error("saved entry should carry the illustration")
	}

	if len(f.player.Played) != 1 {
		t.Errorf("expected one playback, got %d", len(f.player.Played))
	}
	if f.backend.CallCount("speech:gato") != 1 {
		t.Errorf("expected speech synthesis for gato, calls: %v", f.backend.Calls)
	}
}

func TestProcessSingleWordWithoutSave(t *testing.T) {
	f := newFixture(t, cli.NewFlags(), "")

	if err := f.proc.ProcessSingleWord(context.Background(), "perro"); err != nil {
		t.Fatalf("ProcessSingleWord failed: %v", err)
	}
	if n := len(f.proc.Session().Snapshot().Notebook); n != 0 {
		t.Errorf("notebook should stay empty without --save, has %d", n)
	}
	if len(f.player.Played) != 0 {
		t.Error("nothing should be played without --speak")
	}
}

func TestProcessSingleWordMissingKey(t *testing.T) {
	f := newFixture(t, cli.NewFlags(), "")
	f.backend.Errors[gateway.CapabilityText] = gateway.ErrMissingCredential

	err := f.proc.ProcessSingleWord(context.Background(), "gato")
	if !errors.Is(err, gateway.ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY or OPENAI_API_KEY") {
		t.Errorf("error should tell how to set a key: %v", err)
	}
	if !f.proc.Session().Snapshot().NeedsAPIKey {
		t.Error("session should ask for a key")
	}
}

func newRoutedProcessor(t *testing.T, text, image, speech, input string) (*Processor, *store.Memory, *bytes.Buffer) {
	t.Helper()
	settings := cli.Settings{Gateway: gateway.DefaultConfig()}
	settings.Gateway.TextProvider = text
	settings.Gateway.ImageProvider = image
	settings.Gateway.SpeechProvider = speech

	kv := store.NewMemory()
	out := &bytes.Buffer{}
	proc, err := newProcessor(context.Background(), cli.NewFlags(), settings, testutil.QuietLogger(), deps{
		kv:        kv,
		connector: &testutil.MockConnector{Backend: testutil.NewMockBackend()},
		player:    &testutil.MockPlayer{},
		in:        strings.NewReader(input),
		out:       out,
	})
	if err != nil {
		t.Fatalf("newProcessor failed: %v", err)
	}
	t.Cleanup(func() { proc.Close() })
	return proc, kv, out
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(name, "")
	}
}

func TestOpenAIOnlyConfiguration(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-real")

	proc, _, _ := newRoutedProcessor(t, "openai", "openai", "openai", "")

	st := proc.Session().Snapshot()
	if st.NeedsAPIKey {
		t.Errorf("OpenAI key is set, session should not ask for a key (screen %s)", st.Screen())
	}
}

func TestMixedProvidersAskForMissingKey(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	proc, kv, out := newRoutedProcessor(t, "openai", "gemini", "gemini", "sk-typed\n")

	if !proc.Session().Snapshot().NeedsAPIKey {
		t.Fatal("text is routed to OpenAI without a key, session should ask for one")
	}
	if err := proc.Session().ConnectAPIKey(context.Background()); err != nil {
		t.Fatalf("ConnectAPIKey failed: %v", err)
	}
	if proc.Session().Snapshot().NeedsAPIKey {
		t.Error("session should leave the connect-key screen once the OpenAI key is saved")
	}
	testutil.AssertContains(t, out.String(), "Paste your OpenAI API key: ", "OpenAI API key saved.")
	if strings.Contains(out.String(), "Gemini API key") {
		t.Errorf("Gemini key is present and should not be asked for:\n%s", out.String())
	}
	if v, _, _ := kv.Load("poplingo_openai_api_key"); v != "sk-typed" {
		t.Errorf("stored OpenAI key = %q, want sk-typed", v)
	}
	if v, _, _ := kv.Load(store.KeyAPIKey); v != "" {
		t.Errorf("Gemini key slot should stay empty, got %q", v)
	}
}

func TestProcessSingleWordBackendFailure(t *testing.T) {
	f := newFixture(t, cli.NewFlags(), "")
	f.backend.FailTerm = "boom"

	err := f.proc.ProcessSingleWord(context.Background(), "boom")
	if err == nil {
		t.Fatal("expected lookup error")
	}
	testutil.AssertContains(t, f.out.String(), session.MsgLookupFailed)
}

func TestProcessBatch(t *testing.T) {
	flags := cli.NewFlags()
	flags.BatchFile = testutil.WriteBatchFile(t, "uno", "# comment", "dos", "UNO", "boom")
	f := newFixture(t, flags, "")
	f.backend.FailTerm = "boom"

	if err := f.proc.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	testutil.AssertContains(t, f.out.String(),
		"Processing 1/3: uno",
		"Processed: 2",
		"Errors: 1",
	)
	if n := len(f.proc.Session().Snapshot().Notebook); n != 2 {
		t.Errorf("expected 2 saved words, got %d", n)
	}
}

func TestProcessBatchEmptyFile(t *testing.T) {
	flags := cli.NewFlags()
	flags.BatchFile = testutil.WriteBatchFile(t, "# nothing here")
	f := newFixture(t, flags, "")

	if err := f.proc.ProcessBatch(context.Background()); err == nil {
		t.Error("expected error for a batch file without words")
	}
}

func TestGenerateAnkiFile(t *testing.T) {
	tests := []struct {
		name string
		csv  bool
		file string
	}{
		{"apkg", false, "deck.apkg"},
		{"csv", true, "deck.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := cli.NewFlags()
			flags.BatchFile = testutil.WriteBatchFile(t, "uno", "dos")
			flags.AnkiCSV = tt.csv
			flags.AnkiOutput = filepath.Join(t.TempDir(), "export", tt.file)
			f := newFixture(t, flags, "")

			if err := f.proc.ProcessBatch(context.Background()); err != nil {
				t.Fatalf("ProcessBatch failed: %v", err)
			}

			path, err := f.proc.GenerateAnkiFile()
			if err != nil {
				t.Fatalf("GenerateAnkiFile failed: %v", err)
			}
			if path != flags.AnkiOutput {
				t.Errorf("path = %s, want %s", path, flags.AnkiOutput)
			}
			testutil.AssertFileExists(t, path)
			testutil.AssertContains(t, f.out.String(), "Generated 2 cards (2 with images, 2 with examples)")

			media := filepath.Join(filepath.Dir(path), "media")
			if tt.csv {
				testutil.AssertFileExists(t, media)
			} else {
				testutil.AssertFileNotExists(t, media)
			}
		})
	}
}

func TestGenerateAnkiFileEmptyNotebook(t *testing.T) {
	f := newFixture(t, cli.NewFlags(), "")

	if _, err := f.proc.GenerateAnkiFile(); err == nil {
		t.Error("expected error for an empty notebook")
	}
}

func TestAnkiOutputPathDefault(t *testing.T) {
	f := newFixture(t, cli.NewFlags(), "")
	f.proc.settings.DeckName = "Food & Drinks"

	want := filepath.Join(filepath.Dir(f.proc.settings.StorePath), "Food___Drinks.apkg")
	if got := f.proc.ankiOutputPath(); got != want {
		t.Errorf("ankiOutputPath() = %s, want %s", got, want)
	}

	f.proc.flags.AnkiCSV = true
	want = filepath.Join(filepath.Dir(f.proc.settings.StorePath), "poplingo_anki.csv")
	if got := f.proc.ankiOutputPath(); got != want {
		t.Errorf("ankiOutputPath() = %s, want %s", got, want)
	}
}

func TestLanguageFlags(t *testing.T) {
	flags := cli.NewFlags()
	flags.TargetLang = "fr"
	f := newFixture(t, flags, "")

	st := f.proc.Session().Snapshot()
	if st.TargetLang != "fr" || st.NativeLang != "en" {
		t.Errorf("languages = %s/%s, want en/fr", st.NativeLang, st.TargetLang)
	}
	if st.Onboarding {
		t.Error("languages given on the command line should skip onboarding")
	}

	prefs, err := store.New(f.kv).LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if prefs.TargetLang != "fr" {
		t.Errorf("stored target = %s", prefs.TargetLang)
	}
}

func TestLanguageFlagsInvalid(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	flags := cli.NewFlags()
	flags.NativeLang = "xx"

	_, err := newProcessor(context.Background(), flags, cli.Settings{Gateway: gateway.DefaultConfig()}, testutil.QuietLogger(), deps{
		kv:  store.NewMemory(),
		in:  strings.NewReader(""),
		out: &bytes.Buffer{},
	})
	if !errors.Is(err, session.ErrUnknownLanguage) {
		t.Errorf("expected ErrUnknownLanguage, got %v", err)
	}
}

func TestRunShell(t *testing.T) {
	flags := cli.NewFlags()
	flags.TargetLang = "es"
	f := newFixture(t, flags, "hola\nsave\nquit\n")

	if err := f.proc.RunShell(context.Background()); err != nil {
		t.Fatalf("RunShell failed: %v", err)
	}
	testutil.AssertContains(t, f.out.String(), "meaning of hola", "Saved 'hola'")
}

func TestClearSpeechCache(t *testing.T) {
	f := newFixture(t, cli.NewFlags(), "")
	cacheDir := filepath.Join(t.TempDir(), "speech")
	f.proc.settings.Gateway.CacheDir = cacheDir
	f.proc.gateway = gateway.New(f.proc.settings.Gateway, &testutil.MockConnector{Backend: f.backend}, f.player, testutil.QuietLogger())
	cached := filepath.Join(cacheDir, "cached.pcm")
	testutil.CreateTestFile(t, cached, []byte("pcm"))

	if err := f.proc.ClearSpeechCache(); err != nil {
		t.Fatalf("ClearSpeechCache failed: %v", err)
	}
	testutil.AssertFileNotExists(t, cached)
	testutil.AssertContains(t, f.out.String(), "Speech cache cleared: "+cacheDir)
}

func TestListModelsWithoutKey(t *testing.T) {
	f := newFixture(t, cli.NewFlags(), "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	if err := f.proc.ListModels(context.Background()); err == nil {
		t.Error("expected error without an API key")
	}
}
