// Package credential resolves AI backend keys from an ordered list of
// sources and drives the interactive connect-key flow.
package credential

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Provider is one place a key may come from.
type Provider interface {
	Name() string
	Lookup() (string, bool)
}

// Env reads a key from an environment variable.
type Env string

func (e Env) Name() string { return "env:" + string(e) }

func (e Env) Lookup() (string, bool) {
	v := strings.TrimSpace(os.Getenv(string(e)))
	return v, v != ""
}

// Config reads a key from the viper configuration.
type Config string

func (c Config) Name() string { return "config:" + string(c) }

func (c Config) Lookup() (string, bool) {
	v := strings.TrimSpace(viper.GetString(string(c)))
	return v, v != ""
}

// KeyStore is the subset of the persisted store holding saved keys.
type KeyStore interface {
	APIKey(provider string) (string, error)
}

// Stored reads a key previously saved by the connect-key flow.
type Stored struct {
	Store    KeyStore
	Provider string
}

func (s Stored) Name() string { return "store:" + s.Provider }

func (s Stored) Lookup() (string, bool) {
	if s.Store == nil {
		return "", false
	}
	v, err := s.Store.APIKey(s.Provider)
	if err != nil {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Func adapts a function into a Provider.
type Func struct {
	Label string
	Fn    func() (string, bool)
}

func (f Func) Name() string           { return f.Label }
func (f Func) Lookup() (string, bool) { return f.Fn() }

// Chain tries providers in order; the first non-empty key wins.
type Chain []Provider

// Resolve returns the first key found and the name of its source.
func (c Chain) Resolve() (key, source string, ok bool) {
	for _, p := range c {
		if v, found := p.Lookup(); found {
			return v, p.Name(), true
		}
	}
	return "", "", false
}

// Key returns just the resolved key, empty when none.
func (c Chain) Key() string {
	k, _, _ := c.Resolve()
	return k
}

// Sources lists provider names in lookup order.
func (c Chain) Sources() []string {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name()
	}
	return names
}

// GeminiChain is the lookup order for the Gemini key.
func GeminiChain(ks KeyStore) Chain {
	return Chain{
		Env("API_KEY"),
		Env("GEMINI_API_KEY"),
		Env("GOOGLE_API_KEY"),
		Config("gemini.api_key"),
		Stored{Store: ks, Provider: "gemini"},
	}
}

// OpenAIChain is the lookup order for the OpenAI key.
func OpenAIChain(ks KeyStore) Chain {
	return Chain{
		Env("OPENAI_API_KEY"),
		Config("openai.api_key"),
		Stored{Store: ks, Provider: "openai"},
	}
}
