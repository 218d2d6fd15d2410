package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"codeberg.org/snonux/poplingo/internal/notebook"
)

// MaxStoryTerms is how many notebook terms a story is built from.
const MaxStoryTerms = 5

var storySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title": {Type: genai.TypeString},
		"story": {Type: genai.TypeString},
	},
}

func storyPrompt(terms []string, nativeName string) string {
	return fmt.Sprintf(`Write a short, funny and memorable story (max 150 words) that incorporates the following words: %s.
The story should be in the user's native language: %s.
Bold the keywords from the list in the story.
Also provide a fun title.
Respond as JSON with "title" and "story".`,
		strings.Join(terms, ", "), nativeName)
}

// GenerateStory writes a short story that uses up to MaxStoryTerms terms.
func (g *Gateway) GenerateStory(ctx context.Context, terms []string, nativeName string) (notebook.Story, error) {
	if len(terms) > MaxStoryTerms {
		terms = terms[:MaxStoryTerms]
	}
	prompt := storyPrompt(terms, nativeName)

	story, err := execute(ctx, g, CapabilityText, func(ctx context.Context, b Backend) (notebook.Story, error) {
		raw, err := b.GenerateJSON(ctx, prompt, storySchema)
		if err != nil {
			return notebook.Story{}, err
		}
		var s notebook.Story
		if err := decodeJSON(raw, &s); err != nil {
			return notebook.Story{}, err
		}
		if strings.TrimSpace(s.Story) == "" {
			return notebook.Story{}, fmt.Errorf("%w: no story text", ErrEmptyResponse)
		}
		return s, nil
	})
	if err != nil {
		serr := &StoryError{Kind: Classify(err), Err: err}
		g.log.Error("story generation failed", slog.Int("terms", len(terms)), slog.String("kind", serr.Kind.String()), slog.Any("error", err))
		return notebook.Story{}, serr
	}
	return story, nil
}
