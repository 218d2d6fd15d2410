package session

import (
	"fmt"
	"strings"

	"codeberg.org/snonux/poplingo/internal/notebook"
)

// Mode is the main view the learner is in.
type Mode int

const (
	ModeSearch Mode = iota
	ModeNotebook
	ModeStudy
)

func (m Mode) String() string {
	switch m {
	case ModeNotebook:
		return "notebook"
	case ModeStudy:
		return "study"
	default:
		return "search"
	}
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "search":
		return ModeSearch, nil
	case "notebook", "book":
		return ModeNotebook, nil
	case "study", "cards":
		return ModeStudy, nil
	}
	return ModeSearch, fmt.Errorf("unknown mode %q (want search, notebook or study)", s)
}

// Screen is derived from state and decides what the learner sees.
type Screen int

const (
	ScreenMain Screen = iota
	ScreenConnectKey
	ScreenOnboarding
)

func (s Screen) String() string {
	switch s {
	case ScreenConnectKey:
		return "connect-key"
	case ScreenOnboarding:
		return "onboarding"
	default:
		return "main"
	}
}

// State is the complete session state. Snapshot hands out deep copies.
type State struct {
	Mode        Mode
	NeedsAPIKey bool
	Onboarding  bool
	NativeLang  string
	TargetLang  string

	Loading         bool
	GeneratingStory bool
	Speaking        bool

	Current    *notebook.Entry
	Notebook   notebook.Notebook
	Story      *notebook.Story
	StudyIndex int
}

// Screen derives the visible screen. The credential gate wins over onboarding.
func (s State) Screen() Screen {
	switch {
	case s.NeedsAPIKey:
		return ScreenConnectKey
	case s.Onboarding:
		return ScreenOnboarding
	default:
		return ScreenMain
	}
}

// StudyCard returns the flashcard under the study cursor.
func (s State) StudyCard() (notebook.Entry, bool) {
	if s.StudyIndex < 0 || s.StudyIndex >= len(s.Notebook) {
		return notebook.Entry{}, false
	}
	return s.Notebook[s.StudyIndex], true
}

// IsSaved reports whether the current result is already in the notebook.
func (s State) IsSaved() bool {
	return s.Current != nil && s.Notebook.Has(s.Current.ID)
}

func (s State) clone() State {
	out := s
	if s.Current != nil {
		c := s.Current.Clone()
		out.Current = &c
	}
	if s.Story != nil {
		st := *s.Story
		out.Story = &st
	}
	out.Notebook = s.Notebook.Clone()
	return out
}

// NoticeKind classifies user-facing notices.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeMissingCredential
	NoticeError
	NoticePrecondition
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeMissingCredential:
		return "missing-credential"
	case NoticeError:
		return "error"
	case NoticePrecondition:
		return "precondition"
	default:
		return "info"
	}
}

// Notice is a message for the learner.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Notifier receives notices.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// User-facing messages.
const (
	MsgMissingCredential = "API key missing or invalid. Please connect your API key."
	MsgLookupFailed      = "Oops! Couldn't look that up. Please try again."
	MsgStoryFailed       = "Couldn't write a story right now. Please try again."
	MsgNeedTwoWords      = "Add at least 2 words to your notebook first!"
	MsgKeyNotConnected   = "Still no API key found. Please connect a key to continue."
)

// Fallbacks for fields the lookup left empty.
const (
	FallbackDefinition = "Definition unavailable"
	FallbackUsageNote  = "No usage notes available."
)
