package shell

import (
	"fmt"
	"io"
	"strings"

	"codeberg.org/snonux/poplingo/internal"
	"codeberg.org/snonux/poplingo/internal/lang"
	"codeberg.org/snonux/poplingo/internal/notebook"
	"codeberg.org/snonux/poplingo/internal/session"
)

// NoticePrinter prints session notices as they happen.
func NoticePrinter(w io.Writer) session.Notifier {
	return session.NotifierFunc(func(n session.Notice) {
		switch n.Kind {
		case session.NoticeInfo:
			fmt.Fprintf(w, "  %s\n", n.Message)
		default:
			fmt.Fprintf(w, "! %s\n", n.Message)
		}
	})
}

// PrintEntry renders a dictionary result.
func PrintEntry(w io.Writer, e notebook.Entry) {
	fmt.Fprintf(w, "\n%s  (%s)\n", e.Term, lang.Label(e.TargetLang))
	fmt.Fprintf(w, "  %s\n", e.Definition)
	if len(e.Examples) > 0 {
		fmt.Fprintln(w, "\n  Examples:")
		for _, ex := range e.Examples {
			fmt.Fprintf(w, "    • %s\n", ex.Text)
			if ex.Translation != "" {
				fmt.Fprintf(w, "      %s\n", ex.Translation)
			}
		}
	}
	if e.UsageNote != "" {
		fmt.Fprintf(w, "\n  Usage: %s\n", e.UsageNote)
	}
	if e.HasImage() {
		fmt.Fprintln(w, "  [illustration attached]")
	}
}

// PrintNotebook lists entries numbered from 1, newest first.
func PrintNotebook(w io.Writer, nb notebook.Notebook) {
	if len(nb) == 0 {
		fmt.Fprintln(w, "Your notebook is empty. Look up a word and type 'save'.")
		return
	}
	fmt.Fprintf(w, "Notebook (%d words):\n", len(nb))
	for i, e := range nb {
		fmt.Fprintf(w, "%3d. %-20s %s  [%s]\n", i+1, e.Term, firstLine(e.Definition, 50), e.CreatedAt().Format("2006-01-02"))
	}
}

// PrintCard shows one flashcard, front only unless flipped.
func PrintCard(w io.Writer, e notebook.Entry, index, total int, flipped bool) {
	fmt.Fprintf(w, "\nCard %d/%d\n", index+1, total)
	fmt.Fprintf(w, "  %s\n", e.Term)
	if !flipped {
		fmt.Fprintln(w, "  (type 'flip' to reveal)")
		return
	}
	fmt.Fprintf(w, "  → %s\n", e.Definition)
	for _, ex := range e.Examples {
		fmt.Fprintf(w, "    • %s\n", ex.Text)
	}
}

// PrintStory renders a generated story.
func PrintStory(w io.Writer, st notebook.Story) {
	fmt.Fprintf(w, "\n%s\n%s\n\n%s\n", st.Title, strings.Repeat("=", len([]rune(st.Title))), st.Story)
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return internal.Truncate(s, max)
}

func printLanguages(w io.Writer) {
	for _, l := range lang.All() {
		fmt.Fprintf(w, "  %-3s %s %s\n", l.Code, l.Flag, l.Name)
	}
}

const helpText = `Commands:
  <word or phrase>    look up (in search mode)
  search <text>       look up text, also words that are commands
                      (e.g. "s next" looks up "next")
  save                save the current result to the notebook
  notebook            list saved words
  rm <number|id>      remove a word from the notebook
  study               study saved words as flashcards
  next, prev, flip    move through or reveal flashcards
  story               write a short story from your newest words
  speak [text]        read text, or the current word, aloud
  mode <name>         switch to search, notebook or study
  langs               change languages
  key                 connect an API key
  help                show this help
  quit                leave poplingo`
