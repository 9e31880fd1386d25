package ingest

import (
	"strings"
	"testing"

	"eventhub/pkg/models"
)

func TestShorten(t *testing.T) {
	if got := Shorten("  hello  ", 10); got != "hello" {
		t.Errorf("expected trimmed string, got %q", got)
	}
	if got := Shorten("abcdef", 3); got != "abc" {
		t.Errorf("expected cap at 3 runes, got %q", got)
	}
	// Rune-safe: must not cut a multi-byte character in half.
	if got := Shorten("ääää", 2); got != "ää" {
		t.Errorf("expected 2 runes, got %q", got)
	}
}

func TestNormalizeSeedsSummaryFromDescription(t *testing.T) {
	long := strings.Repeat("x", 500)
	p := &models.EventPayload{Title: "Fest", Description: long}
	Normalize(p)

	if len(p.Summary) != summarySeedLen {
		t.Errorf("expected summary of %d runes, got %d", summarySeedLen, len(p.Summary))
	}
}

func TestNormalizeSummaryFallsBackToPriceText(t *testing.T) {
	p := &models.EventPayload{Title: "Fest", PriceText: "Eintritt frei"}
	Normalize(p)

	if p.Summary != "Eintritt frei" {
		t.Errorf("expected price text as summary, got %q", p.Summary)
	}
}

func TestNormalizeCapsTitle(t *testing.T) {
	p := &models.EventPayload{Title: strings.Repeat("t", 300)}
	Normalize(p)

	if len(p.Title) != maxTitleLen {
		t.Errorf("expected title capped at %d, got %d", maxTitleLen, len(p.Title))
	}
}

func TestNormalizeDropsBlankCategories(t *testing.T) {
	p := &models.EventPayload{
		Title:      "Fest",
		Categories: []string{" Theater ", "", "  "},
	}
	Normalize(p)

	if len(p.Categories) != 1 || p.Categories[0] != "Theater" {
		t.Errorf("expected [Theater], got %v", p.Categories)
	}
}
