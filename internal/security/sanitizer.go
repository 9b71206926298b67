// Package security cleans user-generated text before it is stored.
//
// Comments, tweets, video titles and descriptions and playlist text are plain text. Any markup a
// client sends is stripped with a bluemonday strict policy so nothing renders as HTML downstream.
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer turns untrusted input into plain text.
type Sanitizer interface {
	Sanitize(raw string) string
}

// TextSanitizer strips every tag and attribute. It is safe for concurrent use.
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer builds a sanitizer around bluemonday's strict policy.
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize removes markup from raw and trims surrounding whitespace. Entities are decoded back to
// text unless decoding would reintroduce markup, in which case the escaped form is kept.
func (s *TextSanitizer) Sanitize(raw string) string {
	escaped := s.policy.Sanitize(raw)
	plain := html.UnescapeString(escaped)
	if html.UnescapeString(s.policy.Sanitize(plain)) != plain {
		return strings.TrimSpace(escaped)
	}
	return strings.TrimSpace(plain)
}

// Passthrough returns input untouched. Useful in tests.
type Passthrough struct{}

// Sanitize implements Sanitizer.
func (Passthrough) Sanitize(raw string) string { return raw }
