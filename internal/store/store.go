package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"codeberg.org/snonux/poplingo/internal/lang"
	"codeberg.org/snonux/poplingo/internal/notebook"
)

// Keys under which state is persisted.
const (
	KeyNotebook  = "poplingo_notebook"
	KeyNative    = "poplingo_native"
	KeyTarget    = "poplingo_target"
	KeyOnboarded = "poplingo_onboarded"
	KeyAPIKey    = "poplingo_api_key"
)

// ErrCorruptNotebook is returned when the stored notebook cannot be decoded.
var ErrCorruptNotebook = errors.New("stored notebook is malformed")

// Preferences are the learner's language pair.
type Preferences struct {
	NativeLang string
	TargetLang string
}

// DefaultPreferences returns the en/es pair.
func DefaultPreferences() Preferences {
	return Preferences{NativeLang: lang.DefaultNative, TargetLang: lang.DefaultTarget}
}

// Store maps the session's state onto KV keys.
type Store struct {
	kv KV
}

// New wraps a KV.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Close closes the underlying KV.
func (s *Store) Close() error {
	return s.kv.Close()
}

// LoadNotebook returns the stored entries, or nil when nothing was saved yet.
func (s *Store) LoadNotebook() ([]notebook.Entry, error) {
	raw, ok, err := s.kv.Load(KeyNotebook)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var entries []notebook.Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptNotebook, err)
	}
	return entries, nil
}

// SaveNotebook overwrites the whole stored notebook.
func (s *Store) SaveNotebook(entries []notebook.Entry) error {
	if entries == nil {
		entries = []notebook.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode notebook: %w", err)
	}
	return s.kv.Save(KeyNotebook, string(data))
}

// LoadPreferences returns stored language codes, defaulting each missing one.
func (s *Store) LoadPreferences() (Preferences, error) {
	prefs := DefaultPreferences()

	native, ok, err := s.kv.Load(KeyNative)
	if err != nil {
		return prefs, err
	}
	if ok && native != "" {
		prefs.NativeLang = native
	}

	target, ok, err := s.kv.Load(KeyTarget)
	if err != nil {
		return prefs, err
	}
	if ok && target != "" {
		prefs.TargetLang = target
	}

	return prefs, nil
}

// SavePreferences persists both language codes.
func (s *Store) SavePreferences(p Preferences) error {
	if err := s.kv.Save(KeyNative, p.NativeLang); err != nil {
		return err
	}
	return s.kv.Save(KeyTarget, p.TargetLang)
}

// Onboarded reports whether the onboarding flow was completed before.
func (s *Store) Onboarded() (bool, error) {
	v, ok, err := s.kv.Load(KeyOnboarded)
	if err != nil {
		return false, err
	}
	return ok && v == "true", nil
}

// SetOnboarded records onboarding completion.
func (s *Store) SetOnboarded() error {
	return s.kv.Save(KeyOnboarded, "true")
}

// apiKeyName maps a provider to its store key. Gemini keeps the bare key.
func apiKeyName(provider string) string {
	if provider == "" || provider == "gemini" {
		return KeyAPIKey
	}
	return "poplingo_" + provider + "_api_key"
}

// APIKey returns the key saved for provider through the connect-key flow.
func (s *Store) APIKey(provider string) (string, error) {
	v, _, err := s.kv.Load(apiKeyName(provider))
	return v, err
}

// SaveAPIKey stores a key entered for provider through the connect-key flow.
func (s *Store) SaveAPIKey(provider, key string) error {
	return s.kv.Save(apiKeyName(provider), key)
}
