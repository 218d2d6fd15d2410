package processor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"codeberg.org/snonux/poplingo/internal"
	"codeberg.org/snonux/poplingo/internal/anki"
	"codeberg.org/snonux/poplingo/internal/audio"
	"codeberg.org/snonux/poplingo/internal/batch"
	"codeberg.org/snonux/poplingo/internal/cli"
	"codeberg.org/snonux/poplingo/internal/credential"
	"codeberg.org/snonux/poplingo/internal/gateway"
	"codeberg.org/snonux/poplingo/internal/models"
	"codeberg.org/snonux/poplingo/internal/session"
	"codeberg.org/snonux/poplingo/internal/shell"
	"codeberg.org/snonux/poplingo/internal/store"
)

// Processor handles the main word processing logic
type Processor struct {
	flags    *cli.Flags
	settings cli.Settings
	log      *slog.Logger
	in       *bufio.Reader
	out      io.Writer

	store      *store.Store
	geminiKeys credential.Chain
	gateway    *gateway.Gateway
	session    *session.Session
}

// deps are the pieces tests replace.
type deps struct {
	kv        store.KV
	connector gateway.Connector
	player    audio.Player
	in        io.Reader
	out       io.Writer
}

// NewProcessor opens the notebook and builds a session from flags and
// configuration.
func NewProcessor(ctx context.Context, flags *cli.Flags, log *slog.Logger) (*Processor, error) {
	settings := cli.LoadSettings(flags)

	if log == nil {
		log = slog.Default()
	}

	var kv store.KV
	if flags.Ephemeral {
		kv = store.NewMemory()
	} else {
		db, err := store.OpenSQLite(settings.StorePath)
		if err != nil {
			return nil, err
		}
		log.Debug("opened store", slog.String("path", db.Path()))
		kv = db
	}

	return newProcessor(ctx, flags, settings, log, deps{
		kv:     kv,
		player: audio.NewCommandPlayer(),
		in:     os.Stdin,
		out:    os.Stdout,
	})
}

func newProcessor(ctx context.Context, flags *cli.Flags, settings cli.Settings, log *slog.Logger, d deps) (*Processor, error) {
	if log == nil {
		log = slog.Default()
	}
	for _, p := range []string{settings.Gateway.TextProvider, settings.Gateway.ImageProvider, settings.Gateway.SpeechProvider} {
		if !gateway.ValidProvider(p) {
			d.kv.Close()
			return nil, fmt.Errorf("unknown AI provider %q (want %s or %s)", p, gateway.ProviderGemini, gateway.ProviderOpenAI)
		}
	}

	st := store.New(d.kv)
	geminiKeys := credential.GeminiChain(st)
	openAIKeys := credential.OpenAIChain(st)

	connector := d.connector
	if connector == nil {
		connector = &gateway.KeyConnector{
			GeminiKeys: geminiKeys,
			OpenAIKeys: openAIKeys,
			Gemini:     settings.Gemini,
			OpenAI:     settings.OpenAI,
		}
	}
	gw := gateway.New(settings.Gateway, connector, d.player, log)

	reader := bufio.NewReader(d.in)
	required := requiredKeys(settings.Gateway, map[string]credential.Chain{
		gateway.ProviderGemini: geminiKeys,
		gateway.ProviderOpenAI: openAIKeys,
	})
	host := credential.NewPromptHost(required, st, d.in, d.out)
	host.SetReader(reader)

	sess, err := session.New(ctx, session.Options{
		Store:    st,
		Gateway:  gw,
		KeyHost:  host,
		Notifier: shell.NoticePrinter(d.out),
		Logger:   log,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	p := &Processor{
		flags:      flags,
		settings:   settings,
		log:        log,
		in:         reader,
		out:        d.out,
		store:      st,
		geminiKeys: geminiKeys,
		gateway:    gw,
		session:    sess,
	}
	if err := p.applyLanguageFlags(); err != nil {
		st.Close()
		return nil, err
	}
	return p, nil
}

var providerLabels = map[string]string{
	gateway.ProviderGemini: "Gemini",
	gateway.ProviderOpenAI: "OpenAI",
}

// requiredKeys lists each provider routed to by any capability, once, in
// text, image, speech order.
func requiredKeys(cfg gateway.Config, chains map[string]credential.Chain) []credential.Requirement {
	var reqs []credential.Requirement
	seen := make(map[string]bool)
	for _, p := range []string{cfg.TextProvider, cfg.ImageProvider, cfg.SpeechProvider} {
		if p == "" {
			p = gateway.ProviderGemini
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		reqs = append(reqs, credential.Requirement{Provider: p, Label: providerLabels[p], Chain: chains[p]})
	}
	return reqs
}

// applyLanguageFlags overrides the saved language pair. Passing languages on
// the command line counts as having onboarded.
func (p *Processor) applyLanguageFlags() error {
	if p.flags.NativeLang == "" && p.flags.TargetLang == "" {
		return nil
	}
	st := p.session.Snapshot()
	native, target := st.NativeLang, st.TargetLang
	if p.flags.NativeLang != "" {
		native = p.flags.NativeLang
	}
	if p.flags.TargetLang != "" {
		target = p.flags.TargetLang
	}
	if err := p.session.SetLanguages(native, target); err != nil {
		return err
	}
	if st.Onboarding {
		p.session.CompleteOnboarding()
	}
	return nil
}

// Session exposes the underlying session.
func (p *Processor) Session() *session.Session {
	return p.session
}

// Close releases the notebook database.
func (p *Processor) Close() error {
	return p.store.Close()
}

func (p *Processor) missingKeyError(err error) error {
	return fmt.Errorf("%w: set GEMINI_API_KEY or OPENAI_API_KEY for the configured providers, or run poplingo without arguments to connect a key", err)
}

// ProcessSingleWord looks up one word and optionally saves and speaks it.
func (p *Processor) ProcessSingleWord(ctx context.Context, word string) error {
	fmt.Fprintf(p.out, "\nLooking up: %s\n", word)

	if err := p.session.Search(ctx, word); err != nil {
		if gateway.IsMissingCredential(err) {
			return p.missingKeyError(err)
		}
		return fmt.Errorf("lookup of '%s' failed: %w", word, err)
	}

	st := p.session.Snapshot()
	if st.Current == nil {
		return fmt.Errorf("nothing to look up in %q", word)
	}
	shell.PrintEntry(p.out, *st.Current)

	if p.flags.Save {
		if p.session.SaveCurrentResult() {
			fmt.Fprintf(p.out, "\nSaved '%s' to your notebook.\n", st.Current.Term)
		} else {
			fmt.Fprintf(p.out, "\n'%s' is already in your notebook.\n", st.Current.Term)
		}
	}

	if p.flags.Speak {
		if err := p.session.Speak(ctx, st.Current.Term, p.flags.Voice); err != nil {
			p.log.Warn("could not speak", slog.Any("error", err))
		}
	}
	return nil
}

// ProcessBatch looks up and saves every word listed in the batch file.
func (p *Processor) ProcessBatch(ctx context.Context) error {
	terms, err := batch.ReadBatchFile(p.flags.BatchFile)
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		return fmt.Errorf("no words found in %s", p.flags.BatchFile)
	}

	_, err = batch.Process(ctx, p.session, terms, p.out)
	if gateway.IsMissingCredential(err) {
		return p.missingKeyError(err)
	}
	return err
}

// GenerateAnkiFile exports the notebook and returns the output path.
func (p *Processor) GenerateAnkiFile() (string, error) {
	nb := p.session.Snapshot().Notebook
	if len(nb) == 0 {
		return "", errors.New("notebook is empty, nothing to export")
	}

	outputPath := p.ankiOutputPath()
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	opts := &anki.GeneratorOptions{
		OutputPath:     outputPath,
		IncludeHeaders: true,
	}
	if p.flags.AnkiCSV {
		opts.MediaFolder = filepath.Join(filepath.Dir(outputPath), "media")
	}
	gen := anki.NewGenerator(opts)
	gen.AddEntries(nb)

	if p.flags.AnkiCSV {
		if err := gen.GenerateCSV(); err != nil {
			return "", fmt.Errorf("failed to generate CSV: %w", err)
		}
	} else {
		if err := gen.GenerateAPKG(outputPath, p.settings.DeckName); err != nil {
			return "", fmt.Errorf("failed to generate APKG: %w", err)
		}
	}

	total, withImages, withExamples := gen.Stats()
	fmt.Fprintf(p.out, "  Generated %d cards (%d with images, %d with examples)\n",
		total, withImages, withExamples)
	return outputPath, nil
}

func (p *Processor) ankiOutputPath() string {
	if p.flags.AnkiOutput != "" {
		return p.flags.AnkiOutput
	}

	dir := "."
	if !p.flags.Ephemeral {
		dir = filepath.Dir(p.settings.StorePath)
	}
	if p.flags.AnkiCSV {
		return filepath.Join(dir, "poplingo_anki.csv")
	}
	return filepath.Join(dir, fmt.Sprintf("%s.apkg", internal.SanitizeFilename(p.settings.DeckName)))
}

// RunShell starts the interactive shell.
func (p *Processor) RunShell(ctx context.Context) error {
	return shell.New(p.session, p.in, p.out, p.flags.Voice).Run(ctx)
}

// ClearSpeechCache deletes every cached speech file.
func (p *Processor) ClearSpeechCache() error {
	if err := p.gateway.ClearCache(); err != nil {
		return fmt.Errorf("failed to clear speech cache: %w", err)
	}
	fmt.Fprintf(p.out, "Speech cache cleared: %s\n", p.settings.Gateway.CacheDir)
	return nil
}

// ListModels prints the Gemini models available to the resolved key.
func (p *Processor) ListModels(ctx context.Context) error {
	lister, err := models.NewLister(ctx, p.geminiKeys.Key())
	if err != nil {
		return err
	}
	return lister.ListAvailableModels(ctx, p.out)
}
