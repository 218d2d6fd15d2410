package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
)

var (
	// ErrMissingCredential is returned when no API key can be resolved.
	ErrMissingCredential = errors.New("no API key available")

	// ErrEmptyResponse is returned when the backend answers with nothing usable.
	ErrEmptyResponse = errors.New("empty response from backend")

	// ErrMalformedResponse is returned when the backend JSON cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response from backend")
)

// Kind classifies a gateway failure.
type Kind int

const (
	KindBackend Kind = iota
	KindMissingCredential
	KindMalformed
	KindEmpty
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing credential"
	case KindMalformed:
		return "malformed response"
	case KindEmpty:
		return "empty response"
	case KindUnavailable:
		return "backend unavailable"
	default:
		return "backend error"
	}
}

// Classify maps an error onto a Kind.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return KindUnavailable
	case errors.Is(err, ErrEmptyResponse):
		return KindEmpty
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformed
	default:
		return KindBackend
	}
}

// LookupError is returned by LookupWord.
type LookupError struct {
	Term string
	Kind Kind
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup of %q failed (%s): %v", e.Term, e.Kind, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// StoryError is returned by GenerateStory.
type StoryError struct {
	Kind Kind
	Err  error
}

func (e *StoryError) Error() string {
	return fmt.Sprintf("story generation failed (%s): %v", e.Kind, e.Err)
}

func (e *StoryError) Unwrap() error { return e.Err }

// IsMissingCredential reports whether err stems from an absent API key.
func IsMissingCredential(err error) bool {
	return errors.Is(err, ErrMissingCredential)
}

// countsAsFailure decides whether err should move a circuit breaker towards
// the open state.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingCredential) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
