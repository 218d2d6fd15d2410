// Package session owns the learner's state and coordinates the AI gateway
// and the persisted store for every user action.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"codeberg.org/snonux/poplingo/internal/credential"
	"codeberg.org/snonux/poplingo/internal/gateway"
	"codeberg.org/snonux/poplingo/internal/lang"
	"codeberg.org/snonux/poplingo/internal/notebook"
	"codeberg.org/snonux/poplingo/internal/store"
)

var (
	// ErrBusy is returned when the same kind of operation is still running.
	ErrBusy = errors.New("operation already in progress")

	// ErrNotEnoughWords is returned when a story is requested too early.
	ErrNotEnoughWords = errors.New("not enough words in notebook")

	// ErrUnknownLanguage is returned for codes outside the language table.
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrNoKeyHost is returned when no key-selection mechanism is wired.
	ErrNoKeyHost = errors.New("no API key host configured")

	// ErrKeyNotConnected is returned when the key dialog closed without a key.
	ErrKeyNotConnected = errors.New("API key still not available")
)

// MinStoryWords is the notebook size a story needs.
const MinStoryWords = 2

// Gateway is the AI surface the session uses.
type Gateway interface {
	LookupWord(ctx context.Context, term, nativeName, targetName string) (gateway.Definition, error)
	GenerateVisualization(ctx context.Context, term string) gateway.ImageResult
	SpeakText(ctx context.Context, text, voice string) gateway.SpeechResult
	GenerateStory(ctx context.Context, terms []string, nativeName string) (notebook.Story, error)
}

// Store is the persistence surface the session mirrors into.
type Store interface {
	LoadNotebook() ([]notebook.Entry, error)
	SaveNotebook([]notebook.Entry) error
	LoadPreferences() (store.Preferences, error)
	SavePreferences(store.Preferences) error
	Onboarded() (bool, error)
	SetOnboarded() error
}

// Options wires a session.
type Options struct {
	Store    Store
	Gateway  Gateway
	KeyHost  credential.Host
	Notifier Notifier
	Logger   *slog.Logger

	Now   func() time.Time
	NewID func() string
}

// Session is safe for concurrent use. The mutex is never held across
// gateway calls.
type Session struct {
	mu    sync.Mutex
	state State

	store    Store
	gateway  Gateway
	keyHost  credential.Host
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

// New loads persisted state and checks for a usable API key.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Store == nil || opts.Gateway == nil {
		return nil, errors.New("session needs a store and a gateway")
	}
	s := &Session{
		store:    opts.Store,
		gateway:  opts.Gateway,
		keyHost:  opts.KeyHost,
		notifier: opts.Notifier,
		log:      opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if s.notifier == nil {
		s.notifier = NotifierFunc(func(Notice) {})
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = notebook.NewID
	}

	prefs, err := s.store.LoadPreferences()
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	onboarded, err := s.store.Onboarded()
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding flag: %w", err)
	}
	entries, err := s.store.LoadNotebook()
	switch {
	case errors.Is(err, store.ErrCorruptNotebook):
		s.log.Warn("stored notebook is unreadable, starting with an empty one", slog.Any("error", err))
		entries = nil
	case err != nil:
		return nil, fmt.Errorf("failed to load notebook: %w", err)
	}

	s.state = State{
		Mode:       ModeSearch,
		NativeLang: prefs.NativeLang,
		TargetLang: prefs.TargetLang,
		Onboarding: !onboarded,
		Notebook:   notebook.Notebook(entries),
	}
	s.state.NeedsAPIKey = !s.hasKey(ctx)

	s.log.Debug("session started",
		slog.Int("entries", len(entries)),
		slog.String("native", prefs.NativeLang),
		slog.String("target", prefs.TargetLang),
		slog.Bool("needs_api_key", s.state.NeedsAPIKey))
	return s, nil
}

func (s *Session) hasKey(ctx context.Context) bool {
	if s.keyHost == nil {
		return true
	}
	ok, err := s.keyHost.HasSelectedKey(ctx)
	if err != nil {
		s.log.Warn("could not check for an API key", slog.Any("error", err))
		return false
	}
	return ok
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Contains reports whether term is already in the notebook.
func (s *Session) Contains(term string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Notebook.Contains(term)
}

func (s *Session) notify(kind NoticeKind, msg string) {
	s.notifier.Notify(Notice{Kind: kind, Message: msg})
}

// persistNotebook mirrors the notebook. Caller holds s.mu.
func (s *Session) persistNotebook() {
	if err := s.store.SaveNotebook(s.state.Notebook); err != nil {
		s.log.Error("failed to persist notebook", slog.Any("error", err))
	}
}

// Search looks query up and illustrates it in parallel. Whitespace-only
// queries are ignored. On lookup failure the previous result is restored and
// exactly one notice is sent; the returned error is informational.
func (s *Session) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		return ErrBusy
	}
	previous := s.state.Current
	s.state.Loading = true
	s.state.Current = nil
	s.state.Mode = ModeSearch
	native, target := s.state.NativeLang, s.state.TargetLang
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state.Loading = false
		s.mu.Unlock()
	}()

	var (
		def gateway.Definition
		img gateway.ImageResult
	)
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("lookup of %q panicked: %v", query, r)
			}
		}()
		d, err := s.gateway.LookupWord(egctx, query, lang.NativeName(native), lang.TargetName(target))
		if err != nil {
			return err
		}
		def = d
		return nil
	})
	eg.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				img = gateway.ImageResult{Err: fmt.Errorf("visualization of %q panicked: %v", query, r)}
			}
		}()
		img = s.gateway.GenerateVisualization(egctx, query)
		return nil
	})

	if err := eg.Wait(); err != nil {
		missing := gateway.IsMissingCredential(err)
		s.mu.Lock()
		s.state.Current = previous
		if missing {
			s.state.NeedsAPIKey = true
		}
		s.mu.Unlock()

		if missing {
			s.notify(NoticeMissingCredential, MsgMissingCredential)
		} else {
			s.notify(NoticeError, MsgLookupFailed)
		}
		return err
	}

	if img.Err != nil {
		s.log.Debug("continuing without illustration", slog.String("term", query), slog.Any("error", img.Err))
	}

	entry := s.buildEntry(query, native, target, def, img)

	s.mu.Lock()
	s.state.Current = &entry
	s.mu.Unlock()
	return nil
}

func (s *Session) buildEntry(term, native, target string, def gateway.Definition, img gateway.ImageResult) notebook.Entry {
	e := notebook.Entry{
		ID:          s.newID(),
		Term:        term,
		Definition:  def.Definition,
		Examples:    def.Examples,
		UsageNote:   def.UsageNote,
		ImageBase64: img.Base64(),
		TargetLang:  target,
		NativeLang:  native,
		Timestamp:   s.now().UnixMilli(),
	}
	if e.Definition == "" {
		e.Definition = FallbackDefinition
	}
	if e.Examples == nil {
		e.Examples = []notebook.Example{}
	}
	if e.UsageNote == "" {
		e.UsageNote = FallbackUsageNote
	}
	return e
}

// SaveCurrentResult adds the current result to the notebook unless it is
// already there. It reports whether the notebook changed.
func (s *Session) SaveCurrentResult() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Current == nil {
		return false
	}
	nb, added := s.state.Notebook.Add(s.state.Current.Clone())
	if !added {
		return false
	}
	s.state.Notebook = nb
	s.clampStudyIndex()
	s.persistNotebook()
	return true
}

// RemoveFromNotebook drops an entry by id. Unknown ids are a no-op.
func (s *Session) RemoveFromNotebook(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, removed := s.state.Notebook.Remove(id)
	if !removed {
		return false
	}
	s.state.Notebook = nb
	s.clampStudyIndex()
	s.persistNotebook()
	return true
}

// clampStudyIndex keeps the cursor inside the notebook. Caller holds s.mu.
func (s *Session) clampStudyIndex() {
	last := len(s.state.Notebook) - 1
	if s.state.StudyIndex > last {
		s.state.StudyIndex = last
	}
	if s.state.StudyIndex < 0 {
		s.state.StudyIndex = 0
	}
}

// StudyNavigate moves the study cursor one card in the sign of direction,
// clamped at both ends.
func (s *Session) StudyNavigate(direction int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case direction > 0:
		s.state.StudyIndex++
	case direction < 0:
		s.state.StudyIndex--
	}
	s.clampStudyIndex()
	return s.state.StudyIndex
}

// SetMode switches the main view.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Mode = m
	if m == ModeStudy {
		s.clampStudyIndex()
	}
}

// GenerateStory writes a story from the newest notebook terms.
func (s *Session) GenerateStory(ctx context.Context) error {
	s.mu.Lock()
	if len(s.state.Notebook) < MinStoryWords {
		s.mu.Unlock()
		s.notify(NoticePrecondition, MsgNeedTwoWords)
		return ErrNotEnoughWords
	}
	if s.state.GeneratingStory {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state.GeneratingStory = true
	terms := s.state.Notebook.Terms(gateway.MaxStoryTerms)
	native := lang.NativeName(s.state.NativeLang)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state.GeneratingStory = false
		s.mu.Unlock()
	}()

	story, err := s.gateway.GenerateStory(ctx, terms, native)
	if err != nil {
		if gateway.IsMissingCredential(err) {
			s.mu.Lock()
			s.state.NeedsAPIKey = true
			s.mu.Unlock()
			s.notify(NoticeMissingCredential, MsgMissingCredential)
		} else {
			s.notify(NoticeError, MsgStoryFailed)
		}
		return err
	}

	s.mu.Lock()
	s.state.Story = &story
	s.mu.Unlock()
	return nil
}

// Speak reads text aloud. Synthesis or playback problems are logged and
// otherwise ignored.
func (s *Session) Speak(ctx context.Context, text, voice string) error {
	s.mu.Lock()
	if s.state.Speaking {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state.Speaking = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state.Speaking = false
		s.mu.Unlock()
	}()

	res := s.gateway.SpeakText(ctx, text, voice)
	if res.Err != nil {
		s.log.Debug("speech skipped", slog.String("text", text), slog.Any("error", res.Err))
	}
	return nil
}

// ChangeLanguages reopens onboarding so the learner can pick a new pair.
func (s *Session) ChangeLanguages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Onboarding = true
}

// SetLanguages persists a new language pair.
func (s *Session) SetLanguages(native, target string) error {
	native = strings.ToLower(strings.TrimSpace(native))
	target = strings.ToLower(strings.TrimSpace(target))
	if !lang.Valid(native) {
		return fmt.Errorf("%w: %s", ErrUnknownLanguage, native)
	}
	if !lang.Valid(target) {
		return fmt.Errorf("%w: %s", ErrUnknownLanguage, target)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.NativeLang = native
	s.state.TargetLang = target
	if err := s.store.SavePreferences(store.Preferences{NativeLang: native, TargetLang: target}); err != nil {
		s.log.Error("failed to persist languages", slog.Any("error", err))
	}
	return nil
}

// CompleteOnboarding records that onboarding is done and shows the main screen.
func (s *Session) CompleteOnboarding() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Onboarding = false
	if err := s.store.SetOnboarded(); err != nil {
		s.log.Error("failed to persist onboarding flag", slog.Any("error", err))
	}
}

// ConnectAPIKey opens the host key dialog and re-checks for a key after it
// closes. The connect-key screen is only left once a key is really there.
func (s *Session) ConnectAPIKey(ctx context.Context) error {
	if s.keyHost == nil {
		return ErrNoKeyHost
	}

	if err := s.keyHost.OpenSelectKey(ctx); err != nil {
		s.log.Warn("API key selection failed", slog.Any("error", err))
		s.notify(NoticeError, fmt.Sprintf("Could not connect an API key: %v", err))
		return err
	}

	ok, err := s.keyHost.HasSelectedKey(ctx)
	if err != nil || !ok {
		if err != nil {
			s.log.Warn("could not verify API key", slog.Any("error", err))
		}
		s.mu.Lock()
		s.state.NeedsAPIKey = true
		s.mu.Unlock()
		s.notify(NoticeMissingCredential, MsgKeyNotConnected)
		return ErrKeyNotConnected
	}

	s.mu.Lock()
	s.state.NeedsAPIKey = false
	s.mu.Unlock()
	return nil
}
