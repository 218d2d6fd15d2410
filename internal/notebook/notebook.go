// Package notebook defines the dictionary entries a learner collects and the
// ordered, duplicate-free notebook that holds them.
package notebook

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Example is one sentence in the target language with its translation.
type Example struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// Entry is a single dictionary lookup result. Entries are never edited
// after creation.
type Entry struct {
	ID          string    `json:"id"`
	Term        string    `json:"term"`
	Definition  string    `json:"definition"`
	Examples    []Example `json:"examples"`
	UsageNote   string    `json:"usageNote"`
	ImageBase64 string    `json:"imageBase64,omitempty"`
	TargetLang  string    `json:"targetLang"`
	NativeLang  string    `json:"nativeLang"`
	Timestamp   int64     `json:"timestamp"`
}

// HasImage reports whether the entry carries an illustration.
func (e Entry) HasImage() bool {
	return e.ImageBase64 != ""
}

// CreatedAt converts the millisecond timestamp.
func (e Entry) CreatedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Story is a short generated text built from notebook terms.
type Story struct {
	Title string `json:"title"`
	Story string `json:"story"`
}

// NewID returns a fresh entry identifier.
func NewID() string {
	return uuid.NewString()
}

// Notebook is ordered most-recent-first. Methods never mutate the receiver.
type Notebook []Entry

// Add prepends e unless an entry with the same id is already present.
func (n Notebook) Add(e Entry) (Notebook, bool) {
	if n.Has(e.ID) {
		return n, false
	}
	out := make(Notebook, 0, len(n)+1)
	out = append(out, e)
	out = append(out, n...)
	return out, true
}

// Remove drops the entry with the given id. Absent ids are a no-op.
func (n Notebook) Remove(id string) (Notebook, bool) {
	out := make(Notebook, 0, len(n))
	removed := false
	for _, e := range n {
		if e.ID == id {
			removed = true
			continue
		}
		out = append(out, e)
	}
	if !removed {
		return n, false
	}
	return out, true
}

// Has reports whether an entry with id exists.
func (n Notebook) Has(id string) bool {
	for _, e := range n {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Contains reports whether a term was already saved, ignoring case and
// surrounding whitespace.
func (n Notebook) Contains(term string) bool {
	term = strings.TrimSpace(term)
	for _, e := range n {
		if strings.EqualFold(strings.TrimSpace(e.Term), term) {
			return true
		}
	}
	return false
}

// Terms returns up to limit terms in notebook order. A limit <= 0 means all.
func (n Notebook) Terms(limit int) []string {
	if limit <= 0 || limit > len(n) {
		limit = len(n)
	}
	terms := make([]string, 0, limit)
	for _, e := range n[:limit] {
		terms = append(terms, e.Term)
	}
	return terms
}

// Find returns the entry with the given id.
func (n Notebook) Find(id string) (Entry, bool) {
	for _, e := range n {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Clone returns an independent copy, including example slices.
func (n Notebook) Clone() Notebook {
	if n == nil {
		return nil
	}
	out := make(Notebook, len(n))
	for i, e := range n {
		out[i] = e.Clone()
	}
	return out
}

// Clone copies the entry including its examples.
func (e Entry) Clone() Entry {
	if e.Examples != nil {
		ex := make([]Example, len(e.Examples))
		copy(ex, e.Examples)
		e.Examples = ex
	}
	return e
}
