// Package shell is the interactive terminal front end. It renders the
// session state and turns typed commands into session actions.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"codeberg.org/snonux/poplingo/internal/lang"
	"codeberg.org/snonux/poplingo/internal/session"
)

// Shell runs a read-eval-print loop over a session.
type Shell struct {
	sess  *session.Session
	in    *bufio.Reader
	out   io.Writer
	voice string

	flipped bool
}

// New creates a shell. in should be shared with any key prompt reading
// the same terminal.
func New(sess *session.Session, in *bufio.Reader, out io.Writer, voice string) *Shell {
	return &Shell{sess: sess, in: in, out: out, voice: voice}
}

// Run loops until quit, end of input or ctx is done.
func (sh *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(sh.out, "Welcome to PopLingo! Type 'help' for commands.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var (
			quit bool
			err  error
		)
		switch sh.sess.Snapshot().Screen() {
		case session.ScreenConnectKey:
			quit, err = sh.connectKey(ctx)
		case session.ScreenOnboarding:
			quit, err = sh.onboard()
		default:
			quit, err = sh.prompt(ctx)
		}
		if errors.Is(err, io.EOF) || quit {
			fmt.Fprintln(sh.out, "\nHasta luego!")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (sh *Shell) readLine(prompt string) (string, error) {
	fmt.Fprint(sh.out, prompt)
	line, err := sh.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (sh *Shell) connectKey(ctx context.Context) (bool, error) {
	fmt.Fprintln(sh.out, "\nPopLingo needs a Gemini API key to look up words.")
	fmt.Fprintln(sh.out, "Set GEMINI_API_KEY, or press Enter to paste a key now.")
	line, err := sh.readLine("[Enter to connect, 'quit' to leave] ")
	if err != nil {
		return false, err
	}
	if isQuit(line) {
		return true, nil
	}
	// failures are reported as notices; the screen stays until a key exists
	_ = sh.sess.ConnectAPIKey(ctx)
	return false, nil
}

func (sh *Shell) onboard() (bool, error) {
	st := sh.sess.Snapshot()
	fmt.Fprintln(sh.out, "\nLanguages:")
	printLanguages(sh.out)

	native, err := sh.readLine(fmt.Sprintf("Your native language [%s]: ", st.NativeLang))
	if err != nil {
		return false, err
	}
	if isQuit(native) {
		return true, nil
	}
	target, err := sh.readLine(fmt.Sprintf("I want to learn [%s]: ", st.TargetLang))
	if err != nil {
		return false, err
	}
	if isQuit(target) {
		return true, nil
	}

	if native == "" {
		native = st.NativeLang
	}
	if target == "" {
		target = st.TargetLang
	}
	if err := sh.sess.SetLanguages(native, target); err != nil {
		fmt.Fprintf(sh.out, "! %v\n", err)
		return false, nil
	}
	sh.sess.CompleteOnboarding()
	fmt.Fprintf(sh.out, "Learning %s from %s. Type a word to look it up.\n",
		lang.Label(target), lang.Label(native))
	return false, nil
}

func (sh *Shell) prompt(ctx context.Context) (bool, error) {
	st := sh.sess.Snapshot()
	line, err := sh.readLine(fmt.Sprintf("\n[%s %s] > ", st.Mode, st.TargetLang))
	if err != nil {
		return false, err
	}
	if line == "" {
		return false, nil
	}
	if isQuit(line) {
		return true, nil
	}
	return false, sh.execute(ctx, line)
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

// execute runs one command. Only I/O failures are returned; everything else
// is printed.
func (sh *Shell) execute(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "help", "?":
		fmt.Fprintln(sh.out, helpText)
	case "search", "s":
		sh.search(ctx, arg)
	case "save":
		sh.save()
	case "notebook", "book", "ls":
		sh.sess.SetMode(session.ModeNotebook)
		PrintNotebook(sh.out, sh.sess.Snapshot().Notebook)
	case "rm", "remove":
		sh.remove(arg)
	case "study":
		sh.sess.SetMode(session.ModeStudy)
		sh.flipped = false
		sh.showCard()
	case "next", "n":
		sh.navigate(1)
	case "prev", "p":
		sh.navigate(-1)
	case "flip", "f":
		sh.flipped = !sh.flipped
		sh.showCard()
	case "story":
		sh.story(ctx)
	case "speak", "say":
		sh.speak(ctx, arg)
	case "mode":
		m, err := session.ParseMode(arg)
		if err != nil {
			fmt.Fprintf(sh.out, "! %v\n", err)
			return nil
		}
		sh.sess.SetMode(m)
	case "langs", "languages":
		sh.sess.ChangeLanguages()
	case "key":
		_ = sh.sess.ConnectAPIKey(ctx)
	default:
		if sh.sess.Snapshot().Mode == session.ModeSearch {
			sh.search(ctx, line)
			return nil
		}
		fmt.Fprintf(sh.out, "Unknown command %q. Type 'help' for commands.\n", cmd)
	}
	return nil
}

func (sh *Shell) search(ctx context.Context, query string) {
	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(sh.out, "Type a word or phrase to look up.")
		return
	}
	fmt.Fprintf(sh.out, "Looking up %q...\n", query)
	// failures were already shown as a notice
	if err := sh.sess.Search(ctx, query); err != nil {
		return
	}

	st := sh.sess.Snapshot()
	if st.Current == nil {
		return
	}
	PrintEntry(sh.out, *st.Current)
	if st.IsSaved() {
		fmt.Fprintln(sh.out, "  (in your notebook)")
	} else {
		fmt.Fprintln(sh.out, "\nType 'save' to add it to your notebook.")
	}
}

func (sh *Shell) save() {
	st := sh.sess.Snapshot()
	if st.Current == nil {
		fmt.Fprintln(sh.out, "Nothing to save yet. Look up a word first.")
		return
	}
	if sh.sess.SaveCurrentResult() {
		fmt.Fprintf(sh.out, "Saved '%s' to your notebook.\n", st.Current.Term)
		return
	}
	fmt.Fprintf(sh.out, "'%s' is already in your notebook.\n", st.Current.Term)
}

func (sh *Shell) remove(arg string) {
	nb := sh.sess.Snapshot().Notebook
	e, ok := nb.Find(arg)
	if !ok {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(nb) {
			fmt.Fprintf(sh.out, "Usage: rm <number between 1 and %d | id>\n", len(nb))
			return
		}
		e = nb[n-1]
	}
	if sh.sess.RemoveFromNotebook(e.ID) {
		fmt.Fprintf(sh.out, "Removed '%s'.\n", e.Term)
	}
}

func (sh *Shell) navigate(direction int) {
	sh.sess.SetMode(session.ModeStudy)
	sh.sess.StudyNavigate(direction)
	sh.flipped = false
	sh.showCard()
}

func (sh *Shell) showCard() {
	st := sh.sess.Snapshot()
	card, ok := st.StudyCard()
	if !ok {
		fmt.Fprintln(sh.out, "No flashcards yet. Save some words first.")
		return
	}
	PrintCard(sh.out, card, st.StudyIndex, len(st.Notebook), sh.flipped)
}

func (sh *Shell) story(ctx context.Context) {
	fmt.Fprintln(sh.out, "Writing a story...")
	if err := sh.sess.GenerateStory(ctx); err != nil {
		return
	}
	if st := sh.sess.Snapshot(); st.Story != nil {
		PrintStory(sh.out, *st.Story)
	}
}

func (sh *Shell) speak(ctx context.Context, text string) {
	if text == "" {
		st := sh.sess.Snapshot()
		switch {
		case st.Mode == session.ModeStudy:
			if card, ok := st.StudyCard(); ok {
				text = card.Term
			}
		case st.Current != nil:
			text = st.Current.Term
		}
	}
	if text == "" {
		fmt.Fprintln(sh.out, "Usage: speak <text>")
		return
	}
	if err := sh.sess.Speak(ctx, text, sh.voice); err != nil {
		fmt.Fprintf(sh.out, "! %v\n", err)
	}
}
