package anki

import (
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/poplingo/internal"
	"codeberg.org/snonux/poplingo/internal/notebook"
)

// Card is one notebook entry prepared for export.
type Card struct {
	ID         string
	Term       string
	Definition string
	Examples   []notebook.Example
	UsageNote  string
	TargetLang string
	NativeLang string

	ImageData []byte
	ImageExt  string // including the dot, e.g. ".png"
}

// CardFromEntry converts a notebook entry. A broken illustration is dropped
// rather than failing the export.
func CardFromEntry(e notebook.Entry) Card {
	card := Card{
		ID:         e.ID,
		Term:       e.Term,
		Definition: e.Definition,
		Examples:   e.Examples,
		UsageNote:  e.UsageNote,
		TargetLang: e.TargetLang,
		NativeLang: e.NativeLang,
	}
	if e.HasImage() {
		if data, err := base64.StdEncoding.DecodeString(e.ImageBase64); err == nil && len(data) > 0 {
			card.ImageData = data
			card.ImageExt = imageExt(data)
		}
	}
	return card
}

// MediaName is the file name the card's image is exported under.
func (c Card) MediaName() string {
	if len(c.ImageData) == 0 {
		return ""
	}
	id := c.ID
	if id == "" {
		id = c.Term
	}
	return fmt.Sprintf("poplingo_%s%s", internal.SanitizeFilename(id), c.ImageExt)
}

// ExamplesHTML renders the example sentences as one field.
func (c Card) ExamplesHTML() string {
	parts := make([]string, 0, len(c.Examples))
	for _, ex := range c.Examples {
		line := html.EscapeString(ex.Text)
		if ex.Translation != "" {
			line += fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(ex.Translation))
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "<br>")
}

func imageExt(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// GeneratorOptions configures the CSV export
type GeneratorOptions struct {
	OutputPath     string // Output CSV file path
	MediaFolder    string // Where images are written; empty skips them
	IncludeHeaders bool
}

// DefaultGeneratorOptions returns sensible defaults
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		OutputPath:     "poplingo_anki.csv",
		MediaFolder:    "",
		IncludeHeaders: true,
	}
}

// Generator creates Anki-compatible import files
type Generator struct {
	options *GeneratorOptions
	cards   []Card
}

// NewGenerator creates a new Anki generator
func NewGenerator(options *GeneratorOptions) *Generator {
	if options == nil {
		options = DefaultGeneratorOptions()
	}
	return &Generator{
		options: options,
		cards:   make([]Card, 0),
	}
}

// AddCard adds a card to the collection
func (g *Generator) AddCard(card Card) {
	g.cards = append(g.cards, card)
}

// AddEntries adds every notebook entry, oldest first so the deck follows
// the order words were learned in.
func (g *Generator) AddEntries(nb notebook.Notebook) {
	for i := len(nb) - 1; i >= 0; i-- {
		g.AddCard(CardFromEntry(nb[i]))
	}
}

// Cards returns the collected cards.
func (g *Generator) Cards() []Card {
	return g.cards
}

// GenerateCSV creates a CSV file for Anki import
func (g *Generator) GenerateCSV() error {
	if g.options.MediaFolder != "" {
		if err := os.MkdirAll(g.options.MediaFolder, 0755); err != nil {
			return fmt.Errorf("failed to create media folder: %w", err)
		}
	}

	file, err := os.Create(g.options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if g.options.IncludeHeaders {
		headers := []string{"Term", "Definition", "Examples", "Usage", "Image"}
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for _, card := range g.cards {
		imageField, err := g.writeImage(card)
		if err != nil {
			return err
		}
		record := []string{
			card.Term,
			card.Definition,
			card.ExamplesHTML(),
			card.UsageNote,
			imageField,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write card: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func (g *Generator) writeImage(card Card) (string, error) {
	name := card.MediaName()
	if name == "" || g.options.MediaFolder == "" {
		return "", nil
	}
	if err := os.WriteFile(filepath.Join(g.options.MediaFolder, name), card.ImageData, 0644); err != nil {
		return "", fmt.Errorf("failed to write image for %q: %w", card.Term, err)
	}
	return fmt.Sprintf(`<img src="%s">`, name), nil
}

// GenerateAPKG creates a proper .apkg file for Anki import
func (g *Generator) GenerateAPKG(outputPath, deckName string) error {
	apkgGen := NewAPKGGenerator(deckName)
	for _, card := range g.cards {
		apkgGen.AddCard(card)
	}
	return apkgGen.GenerateAPKG(outputPath)
}

// Stats returns statistics about the card collection
func (g *Generator) Stats() (totalCards, withImages, withExamples int) {
	totalCards = len(g.cards)
	for _, card := range g.cards {
		if len(card.ImageData) > 0 {
			withImages++
		}
		if len(card.Examples) > 0 {
			withExamples++
		}
	}
	return
}
