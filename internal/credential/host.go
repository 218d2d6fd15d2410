package credential

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Host is the key-selection mechanism the session delegates to.
type Host interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	OpenSelectKey(ctx context.Context) error
}

// KeySaver persists a key entered by the user.
type KeySaver interface {
	SaveAPIKey(provider, key string) error
}

// ErrNoKeyEntered is returned when the prompt is closed without input.
var ErrNoKeyEntered = errors.New("no API key entered")

// Requirement is a provider whose key must resolve before AI calls can work.
type Requirement struct {
	Provider string
	Label    string
	Chain    Chain
}

// PromptHost asks for missing keys on a terminal and saves them.
type PromptHost struct {
	Required []Requirement
	Saver    KeySaver
	In       io.Reader
	Out      io.Writer

	reader *bufio.Reader
}

// NewPromptHost builds a terminal key host.
func NewPromptHost(required []Requirement, saver KeySaver, in io.Reader, out io.Writer) *PromptHost {
	return &PromptHost{Required: required, Saver: saver, In: in, Out: out}
}

// Missing lists the requirements whose chain yields no key, in order.
func (h *PromptHost) Missing() []Requirement {
	var missing []Requirement
	for _, r := range h.Required {
		if _, _, ok := r.Chain.Resolve(); !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// HasSelectedKey reports whether every required provider has a key.
func (h *PromptHost) HasSelectedKey(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return len(h.Missing()) == 0, nil
}

// OpenSelectKey prompts for each missing key in turn and saves it under
// its provider.
func (h *PromptHost) OpenSelectKey(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.reader == nil {
		h.reader = bufio.NewReader(h.In)
	}

	for _, r := range h.Missing() {
		fmt.Fprintf(h.Out, "Paste your %s API key: ", r.label())
		line, err := h.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read %s API key: %w", r.label(), err)
		}

		key := strings.TrimSpace(line)
		if key == "" {
			return ErrNoKeyEntered
		}
		if err := h.Saver.SaveAPIKey(r.Provider, key); err != nil {
			return fmt.Errorf("failed to save %s API key: %w", r.label(), err)
		}
		fmt.Fprintf(h.Out, "%s API key saved.\n", r.label())
	}
	return nil
}

func (r Requirement) label() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Provider
}

// SetReader shares a buffered reader with the caller so no input is lost
// between the prompt and the caller's own line reading.
func (h *PromptHost) SetReader(r *bufio.Reader) {
	h.reader = r
}
