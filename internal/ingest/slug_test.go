package ingest

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Öffentlich", "offentlich"},
		{"offentlich", "offentlich"},
		{"Fest & Markt", "fest-markt"},
		{"Straßenfest", "strassenfest"},
		{"  Musik / Tanz  ", "musik-tanz"},
		{"Veranstaltungskalender", "veranstaltungskalender"},
		{"Café-Führung", "cafe-fuhrung"},
		{"", "kategorie"},
		{"---", "kategorie"},
	}

	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugifyDiacriticVariantsCollide(t *testing.T) {
	// Both spellings must resolve to one identity.
	if Slugify("Öffentlich") != Slugify("offentlich") {
		t.Errorf("expected diacritic variants to share a slug, got %q and %q",
			Slugify("Öffentlich"), Slugify("offentlich"))
	}
}
