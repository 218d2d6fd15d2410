package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"codeberg.org/snonux/poplingo/internal/notebook"
)

// Definition is what a lookup returns. Fields the model omitted are empty.
type Definition struct {
	Definition string
	Examples   []notebook.Example
	UsageNote  string
}

type lookupPayload struct {
	Definition string             `json:"definition"`
	Examples   []notebook.Example `json:"examples"`
	UsageNote  string             `json:"usageNote"`
}

var lookupSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"definition": {Type: genai.TypeString},
		"examples": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"text":        {Type: genai.TypeString},
					"translation": {Type: genai.TypeString},
				},
			},
		},
		"usageNote": {Type: genai.TypeString},
	},
	Required: []string{"definition", "examples", "usageNote"},
}

func lookupPrompt(term, nativeName, targetName string) string {
	return fmt.Sprintf(`Define the following text: "%s".
Source Language: %s.
Target Language (for definitions/translations): %s.

Provide a JSON response with:
1. "definition": A clear, natural definition in %s.
2. "examples": An array of 2 objects, each having "text" (in %s) and "translation" (in %s).
3. "usageNote": A fun, casual and lively explanation of cultural nuance, tone or easily confused words, written like a friend explaining it to another friend. Be concise. No greetings.`,
		term, targetName, nativeName, nativeName, targetName, nativeName)
}

// LookupWord asks the text backend to define term for a speaker of
// nativeName learning targetName.
func (g *Gateway) LookupWord(ctx context.Context, term, nativeName, targetName string) (Definition, error) {
	term = strings.TrimSpace(term)
	prompt := lookupPrompt(term, nativeName, targetName)

	def, err := execute(ctx, g, CapabilityText, func(ctx context.Context, b Backend) (Definition, error) {
		raw, err := b.GenerateJSON(ctx, prompt, lookupSchema)
		if err != nil {
			return Definition{}, err
		}
		var p lookupPayload
		if err := decodeJSON(raw, &p); err != nil {
			g.log.Debug("undecodable lookup response", slog.String("term", term), slog.String("raw", raw))
			return Definition{}, err
		}
		return Definition{
			Definition: strings.TrimSpace(p.Definition),
			Examples:   cleanExamples(p.Examples),
			UsageNote:  strings.TrimSpace(p.UsageNote),
		}, nil
	})
	if err != nil {
		lerr := &LookupError{Term: term, Kind: Classify(err), Err: err}
		g.log.Error("lookup failed", slog.String("term", term), slog.String("kind", lerr.Kind.String()), slog.Any("error", err))
		return Definition{}, lerr
	}
	return def, nil
}

func cleanExamples(in []notebook.Example) []notebook.Example {
	out := make([]notebook.Example, 0, len(in))
	for _, ex := range in {
		ex.Text = strings.TrimSpace(ex.Text)
		ex.Translation = strings.TrimSpace(ex.Translation)
		if ex.Text == "" {
			continue
		}
		out = append(out, ex)
	}
	return out
}
