package crawler

import (
	"testing"
	"time"
)

func TestExternalIDFromURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://example.org/events/stadtfest-2026/", "stadtfest-2026"},
		{"https://example.org/events/stadtfest-2026", "stadtfest-2026"},
		{"https://example.org/e/42?tab=info", "42"},
		{"plain-id", "plain-id"},
	}
	for _, tc := range cases {
		if got := externalIDFromURL(tc.in); got != tc.want {
			t.Errorf("externalIDFromURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseTimeRange(t *testing.T) {
	start, end := parseTimeRange("10:00 - 17:30 Uhr")
	if start == nil || start[0] != 10 || start[1] != 0 {
		t.Errorf("got start %v", start)
	}
	if end == nil || end[0] != 17 || end[1] != 30 {
		t.Errorf("got end %v", end)
	}

	start, end = parseTimeRange("ab 19:00 Uhr")
	if start == nil || start[0] != 19 {
		t.Errorf("got start %v", start)
	}
	if end != nil {
		t.Errorf("expected no end, got %v", end)
	}

	start, end = parseTimeRange("ganztägig")
	if start != nil || end != nil {
		t.Errorf("expected nil, got %v / %v", start, end)
	}
}

func TestParseGermanDate(t *testing.T) {
	if d := parseGermanDate("12.09.2026"); d == nil || !d.Equal(time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("long form: got %v", d)
	}
	if d := parseGermanDate("12.09.26"); d == nil || d.Year() != 2026 {
		t.Errorf("short form: got %v", d)
	}
	if d := parseGermanDate("September 12"); d != nil {
		t.Errorf("expected nil, got %v", d)
	}
}

func TestParseISODate(t *testing.T) {
	cases := []string{
		"2026-09-12T14:00:00+02:00",
		"2026-09-12T14:00:00",
		"2026-09-12 14:00:00",
		"2026-09-12",
	}
	for _, in := range cases {
		if d := parseISODate(in); d == nil {
			t.Errorf("parseISODate(%q) = nil", in)
		}
	}
	if d := parseISODate(""); d != nil {
		t.Errorf("expected nil for empty input, got %v", d)
	}
}

func TestURLSet(t *testing.T) {
	s := newURLSet()
	if !s.Add("a") {
		t.Error("first add should be new")
	}
	if s.Add("a") {
		t.Error("second add should report seen")
	}
	if !s.Add("b") {
		t.Error("distinct url should be new")
	}
}

func TestAbsURL(t *testing.T) {
	got := absURL("https://example.org/list/", "/events/42")
	if got != "https://example.org/events/42" {
		t.Errorf("got %q", got)
	}
	got = absURL("https://example.org/list/", "https://other.org/x")
	if got != "https://other.org/x" {
		t.Errorf("got %q", got)
	}
}

func TestBySlugCoversAllSources(t *testing.T) {
	m := BySlug(nil)
	for _, slug := range []string{"aachen-family", "gruenmetropole", "rur-eifel"} {
		if _, ok := m[slug]; !ok {
			t.Errorf("missing source %q", slug)
		}
	}
	if len(m) != 3 {
		t.Errorf("expected 3 sources, got %d", len(m))
	}
}
