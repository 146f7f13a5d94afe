// Package analogy holds the input model and prompt template for analogy generation.
package analogy

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/analogist/internal/domain"
)

// Concepts is a validated pair of concepts to compare.
type Concepts struct {
	first  string
	second string
}

// NewConcepts trims and validates both concepts.
// maxLen limits each concept in runes; 0 disables the check.
func NewConcepts(first, second string, maxLen int) (Concepts, error) {
	first = strings.TrimSpace(first)
	second = strings.TrimSpace(second)
	if first == "" || second == "" {
		return Concepts{}, domain.NewInvalidInput("Both concepts are required")
	}
	if maxLen > 0 && (utf8.RuneCountInString(first) > maxLen || utf8.RuneCountInString(second) > maxLen) {
		return Concepts{}, domain.NewInvalidInput("Concepts must be at most %d characters", maxLen)
	}
	return Concepts{first: first, second: second}, nil
}

// First returns the first concept.
func (c Concepts) First() string { return c.first }

// Second returns the second concept.
func (c Concepts) Second() string { return c.second }
