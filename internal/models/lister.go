package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"google.golang.org/genai"
)

// ErrNoAPIKey is returned when no Gemini key could be resolved.
var ErrNoAPIKey = errors.New("Gemini API key not found. Set GEMINI_API_KEY environment variable or configure in .poplingo.yaml")

type modelSource interface {
	All(ctx context.Context) iter.Seq2[*genai.Model, error]
}

// Lister handles listing available Gemini models
type Lister struct {
	source modelSource
}

// NewLister creates a lister backed by the Gemini API.
func NewLister(ctx context.Context, apiKey string) (*Lister, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Lister{source: client.Models}, nil
}

// Catalog holds model names per category, sorted.
type Catalog struct {
	Text   []string
	Image  []string
	Speech []string
}

// Categorize sorts a model into at most one category. Models that cannot
// generate content (embeddings, AQA) are ignored.
func Categorize(m *genai.Model) (string, bool) {
	if m == nil {
		return "", false
	}
	name := strings.TrimPrefix(m.Name, "models/")
	lower := strings.ToLower(name)

	generates := len(m.SupportedActions) == 0
	for _, action := range m.SupportedActions {
		if action == "generateContent" || action == "predict" {
			generates = true
		}
	}
	if !generates || strings.Contains(lower, "embedding") {
		return "", false
	}

	switch {
	case strings.Contains(lower, "tts") || strings.Contains(lower, "audio"):
		return "speech", true
	case strings.Contains(lower, "image") || strings.HasPrefix(lower, "imagen"):
		return "image", true
	case strings.HasPrefix(lower, "gemini") || strings.HasPrefix(lower, "gemma"):
		return "text", true
	}
	return "", false
}

// Fetch collects the catalog.
func (l *Lister) Fetch(ctx context.Context) (Catalog, error) {
	var cat Catalog
	for m, err := range l.source.All(ctx) {
		if err != nil {
			return Catalog{}, fmt.Errorf("failed to list models: %w", err)
		}
		kind, ok := Categorize(m)
		if !ok {
			continue
		}
		name := strings.TrimPrefix(m.Name, "models/")
		switch kind {
		case "speech":
			cat.Speech = append(cat.Speech, name)
		case "image":
			cat.Image = append(cat.Image, name)
		default:
			cat.Text = append(cat.Text, name)
		}
	}
	slices.Sort(cat.Text)
	slices.Sort(cat.Image)
	slices.Sort(cat.Speech)
	return cat, nil
}

// ListAvailableModels prints the catalog to w.
func (l *Lister) ListAvailableModels(ctx context.Context, w io.Writer) error {
	cat, err := l.Fetch(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Available Gemini Models:")
	printGroup(w, "Text Models (lookups and stories)", "text", cat.Text)
	printGroup(w, "Image Generation Models", "image", cat.Image)
	printGroup(w, "Text-to-Speech (TTS) Models", "TTS", cat.Speech)
	return nil
}

func printGroup(w io.Writer, title, noun string, names []string) {
	fmt.Fprintf(w, "\n%s:\n", title)
	if len(names) == 0 {
		fmt.Fprintf(w, "  No %s models found\n", noun)
		return
	}
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}
