package credential

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKeys struct {
	keys map[string]string
	err  error
}

func newMemKeys(pairs ...string) *memKeys {
	m := &memKeys{keys: map[string]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.keys[pairs[i]] = pairs[i+1]
	}
	return m
}

func (m *memKeys) APIKey(provider string) (string, error) { return m.keys[provider], m.err }

func (m *memKeys) SaveAPIKey(provider, k string) error {
	if m.err != nil {
		return m.err
	}
	m.keys[provider] = k
	return nil
}

func requireGemini(ks *memKeys) []Requirement {
	return []Requirement{{Provider: "gemini", Label: "Gemini", Chain: GeminiChain(ks)}}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(name, "")
	}
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestGeminiChainOrder(t *testing.T) {
	clearEnv(t)
	ks := newMemKeys("gemini", "from-store", "openai", "wrong-provider")
	chain := GeminiChain(ks)

	assert.Equal(t, []string{
		"env:API_KEY", "env:GEMINI_API_KEY", "env:GOOGLE_API_KEY", "config:gemini.api_key", "store:gemini",
	}, chain.Sources())

	key, src, ok := chain.Resolve()
	require.True(t, ok)
	assert.Equal(t, "from-store", key)
	assert.Equal(t, "store:gemini", src)

	viper.Set("gemini.api_key", "from-config")
	key, src, _ = chain.Resolve()
	assert.Equal(t, "from-config", key)
	assert.Equal(t, "config:gemini.api_key", src)

	t.Setenv("GOOGLE_API_KEY", "google")
	assert.Equal(t, "google", chain.Key())

	t.Setenv("GEMINI_API_KEY", "gemini")
	assert.Equal(t, "gemini", chain.Key())

	t.Setenv("API_KEY", "  primary  ")
	key, src, _ = chain.Resolve()
	assert.Equal(t, "primary", key)
	assert.Equal(t, "env:API_KEY", src)
}

func TestChainEmpty(t *testing.T) {
	clearEnv(t)
	_, _, ok := GeminiChain(newMemKeys()).Resolve()
	assert.False(t, ok)

	_, _, ok = GeminiChain(nil).Resolve()
	assert.False(t, ok)
}

func TestStoredIgnoresErrors(t *testing.T) {
	ks := newMemKeys("gemini", "x")
	ks.err = errors.New("boom")
	_, ok := Stored{Store: ks, Provider: "gemini"}.Lookup()
	assert.False(t, ok)
}

func TestOpenAIChain(t *testing.T) {
	clearEnv(t)
	ks := newMemKeys("gemini", "g-key")
	chain := OpenAIChain(ks)
	assert.Equal(t, []string{"env:OPENAI_API_KEY", "config:openai.api_key", "store:openai"}, chain.Sources())
	assert.Empty(t, chain.Key())

	ks.keys["openai"] = "stored"
	assert.Equal(t, "stored", chain.Key())

	viper.Set("openai.api_key", "cfg")
	assert.Equal(t, "cfg", chain.Key())

	t.Setenv("OPENAI_API_KEY", "env")
	assert.Equal(t, "env", chain.Key())
}

func TestPromptHostSavesKey(t *testing.T) {
	clearEnv(t)
	ks := newMemKeys()
	var out bytes.Buffer
	host := NewPromptHost(requireGemini(ks), ks, strings.NewReader("  abc123 \n"), &out)
	ctx := context.Background()

	ok, err := host.HasSelectedKey(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, host.OpenSelectKey(ctx))
	assert.Equal(t, "abc123", ks.keys["gemini"])
	assert.Contains(t, out.String(), "Paste your Gemini API key: ")
	assert.Contains(t, out.String(), "Gemini API key saved.")

	ok, err = host.HasSelectedKey(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPromptHostEmptyInput(t *testing.T) {
	clearEnv(t)
	ks := newMemKeys()
	host := NewPromptHost(requireGemini(ks), ks, strings.NewReader("\n"), &bytes.Buffer{})

	err := host.OpenSelectKey(context.Background())
	assert.ErrorIs(t, err, ErrNoKeyEntered)
	assert.Empty(t, ks.keys)
}

func TestPromptHostCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	host := NewPromptHost(nil, newMemKeys(), strings.NewReader("k\n"), &bytes.Buffer{})
	assert.ErrorIs(t, host.OpenSelectKey(ctx), context.Canceled)
}

func TestPromptHostOnlyOpenAIRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-real")
	ks := newMemKeys()
	host := NewPromptHost([]Requirement{{Provider: "openai", Label: "OpenAI", Chain: OpenAIChain(ks)}}, ks, strings.NewReader(""), &bytes.Buffer{})

	ok, err := host.HasSelectedKey(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPromptHostRequiresEveryProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	ks := newMemKeys()
	var out bytes.Buffer
	host := NewPromptHost([]Requirement{
		{Provider: "gemini", Label: "Gemini", Chain: GeminiChain(ks)},
		{Provider: "openai", Label: "OpenAI", Chain: OpenAIChain(ks)},
	}, ks, strings.NewReader("sk-typed\n"), &out)
	ctx := context.Background()

	ok, err := host.HasSelectedKey(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, host.Missing(), 1)
	assert.Equal(t, "openai", host.Missing()[0].Provider)

	require.NoError(t, host.OpenSelectKey(ctx))
	assert.Contains(t, out.String(), "Paste your OpenAI API key: ")
	assert.NotContains(t, out.String(), "Gemini API key")
	assert.Equal(t, "sk-typed", ks.keys["openai"])
	assert.Empty(t, ks.keys["gemini"])

	ok, err = host.HasSelectedKey(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
