package analogy

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/analogist/internal/domain"
)

func TestNewConcepts_Trims(t *testing.T) {
	c, err := NewConcepts("  river ", "\tmemory\n", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.First() != "river" || c.Second() != "memory" {
		t.Errorf("got %q/%q", c.First(), c.Second())
	}
}

func TestNewConcepts_Invalid(t *testing.T) {
	tests := []struct {
		name          string
		first, second string
		maxLen        int
	}{
		{"empty first", "", "memory", 0},
		{"empty second", "river", "", 0},
		{"whitespace only", "river", "   ", 0},
		{"too long", "river", strings.Repeat("é", 11), 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConcepts(tc.first, tc.second, tc.maxLen)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestNewConcepts_MaxLenCountsRunes(t *testing.T) {
	if _, err := NewConcepts(strings.Repeat("é", 10), "x", 10); err != nil {
		t.Fatalf("10 runes should fit a limit of 10: %v", err)
	}
}

func TestPrompt_Deterministic(t *testing.T) {
	c, _ := NewConcepts("river", "memory", 0)
	p1, p2 := c.Prompt(), c.Prompt()
	if p1 != p2 {
		t.Fatal("prompt must be deterministic")
	}
	if !strings.Contains(p1, "Concept 1: river\nConcept 2: memory") {
		t.Errorf("prompt does not embed concepts:\n%s", p1)
	}
	if !strings.Contains(p1, "Focus 80% of the text") {
		t.Error("percent sign must survive formatting")
	}
	if strings.Contains(p1, "%!") {
		t.Error("prompt contains a formatting error")
	}
}
