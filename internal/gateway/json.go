package gateway

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fenceOpenJSON = regexp.MustCompile("^```json\\s*")
	fenceOpen     = regexp.MustCompile("^```\\s*")
	fenceClose    = regexp.MustCompile("\\s*```$")
)

// StripFences removes markdown code fences some models wrap JSON in.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpenJSON.ReplaceAllString(s, "")
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return s
}

// decodeJSON strips fences, validates and decodes raw model text into v.
func decodeJSON(raw string, v any) error {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return ErrEmptyResponse
	}
	if !json.Valid([]byte(cleaned)) {
		return fmt.Errorf("%w: not valid JSON", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
