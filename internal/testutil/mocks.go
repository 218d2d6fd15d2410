package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"codeberg.org/snonux/poplingo/internal/gateway"
	"codeberg.org/snonux/poplingo/internal/notebook"
)

// MockBackend is a scripted gateway.Backend. Lookups echo the term back
// from the prompt so callers can tell results apart.
type MockBackend struct {
	mu sync.Mutex

	Story    notebook.Story
	Image    []byte
	PCM      []byte
	Errors   map[gateway.Capability]error
	FailTerm string
	Calls    []string
}

// NewMockBackend returns a backend that answers every call successfully.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Story:  notebook.Story{Title: "A Small Story", Story: "Once upon a time."},
		Image:  []byte("\x89PNG\r\n\x1a\nmock"),
		PCM:    []byte{0x00, 0x00, 0xff, 0x7f},
		Errors: make(map[gateway.Capability]error),
	}
}

func (m *MockBackend) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CallCount counts recorded calls with the given prefix.
func (m *MockBackend) CallCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (m *MockBackend) err(c gateway.Capability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Errors[c]
}

// Name implements gateway.Backend.
func (m *MockBackend) Name() string { return "mock" }

// GenerateJSON implements gateway.Backend.
func (m *MockBackend) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	if schema != nil && schema.Properties["story"] != nil {
		m.record("story")
		if err := m.err(gateway.CapabilityText); err != nil {
			return "", err
		}
		b, err := json.Marshal(m.Story)
		return string(b), err
	}

	term := termFromPrompt(prompt)
	m.record("lookup:" + term)
	if err := m.err(gateway.CapabilityText); err != nil {
		return "", err
	}
	if m.FailTerm != "" && term == m.FailTerm {
		return "", errors.New("mock lookup failure")
	}
	return fmt.Sprintf("```json\n{\"definition\":%q,\"examples\":[{\"text\":%q,\"translation\":%q}],\"usageNote\":\"mock usage\"}\n```",
		"meaning of "+term, term+" example", "translated "+term), nil
}

// GenerateImage implements gateway.Backend.
func (m *MockBackend) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	m.record("image")
	if err := m.err(gateway.CapabilityImage); err != nil {
		return nil, "", err
	}
	return m.Image, "image/png", nil
}

// Synthesize implements gateway.Backend.
func (m *MockBackend) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	m.record("speech:" + text)
	if err := m.err(gateway.CapabilitySpeech); err != nil {
		return nil, err
	}
	return m.PCM, nil
}

// Model implements gateway.Backend.
func (m *MockBackend) Model(c gateway.Capability) string { return "mock-" + string(c) }

// DefaultVoice implements gateway.Backend.
func (m *MockBackend) DefaultVoice() string { return "mock-voice" }

// termFromPrompt pulls the looked up text out of a lookup prompt.
func termFromPrompt(prompt string) string {
	const marker = "Define the following text: "
	i := strings.Index(prompt, marker)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(marker):]
	if j := strings.IndexAny(rest, "\n"); j >= 0 {
		rest = rest[:j]
	}
	return strings.Trim(strings.TrimSpace(rest), `"'.`)
}

// MockConnector hands out one backend, or a connect error.
type MockConnector struct {
	Backend gateway.Backend
	Err     error
}

// Connect implements gateway.Connector.
func (c *MockConnector) Connect(ctx context.Context, provider string) (gateway.Backend, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Backend, nil
}

// MockPlayer records played files.
type MockPlayer struct {
	mu     sync.Mutex
	Played []string
}

// Play implements audio.Player.
func (p *MockPlayer) Play(ctx context.Context, wavPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Played = append(p.Played, wavPath)
	return nil
}
