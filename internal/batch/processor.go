package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"codeberg.org/snonux/poplingo/internal/gateway"
)

// ReadBatchFile reads terms from a file, one per line.
// Blank lines and lines starting with '#' are ignored, and repeated terms
// (case-insensitive) are only returned once.
func ReadBatchFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	defer f.Close()
	return ReadTerms(f)
}

// ReadTerms parses terms from r using the batch file rules.
func ReadTerms(r io.Reader) ([]string, error) {
	var terms []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return terms, nil
}

// Session is what batch processing needs from a learning session.
type Session interface {
	Contains(term string) bool
	Search(ctx context.Context, query string) error
	SaveCurrentResult() bool
}

// Summary counts the outcome of a batch run.
type Summary struct {
	Total     int
	Processed int
	Skipped   int
	Errors    int
}

// Process looks up and saves every term not yet in the notebook. A missing
// API key aborts the run since every further lookup would fail too.
func Process(ctx context.Context, s Session, terms []string, out io.Writer) (Summary, error) {
	sum := Summary{Total: len(terms)}

	for i, term := range terms {
		if err := ctx.Err(); err != nil {
			printSummary(out, sum)
			return sum, err
		}

		fmt.Fprintf(out, "\nProcessing %d/%d: %s\n", i+1, len(terms), term)

		if s.Contains(term) {
			fmt.Fprintf(out, "  ✓ Skipping '%s' - already in notebook\n", term)
			sum.Skipped++
			continue
		}

		if err := s.Search(ctx, term); err != nil {
			if gateway.IsMissingCredential(err) {
				sum.Errors++
				printSummary(out, sum)
				return sum, err
			}
			fmt.Fprintf(out, "  ✗ Error looking up '%s': %v\n", term, err)
			sum.Errors++
			continue
		}

		if s.SaveCurrentResult() {
			fmt.Fprintf(out, "  + Saved '%s'\n", term)
		}
		sum.Processed++
	}

	printSummary(out, sum)
	return sum, nil
}

func printSummary(out io.Writer, sum Summary) {
	fmt.Fprintf(out, "\n=== Batch Processing Summary ===\n")
	fmt.Fprintf(out, "Total words: %d\n", sum.Total)
	fmt.Fprintf(out, "Processed: %d\n", sum.Processed)
	fmt.Fprintf(out, "Skipped (already saved): %d\n", sum.Skipped)
	if sum.Errors > 0 {
		fmt.Fprintf(out, "Errors: %d\n", sum.Errors)
	}
	fmt.Fprintf(out, "================================\n")
}
