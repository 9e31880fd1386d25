package models

import "time"

// EventPayload is the normalized, in-memory form of one event produced by a
// source extractor before persistence.
//
// Every external source is mapped into this structure first; the merge engine
// writes to the database from this representation. It carries no identity of
// its own beyond (SourceSlug, ExternalID).
type EventPayload struct {
	SourceSlug string `json:"source_slug"`
	SourceName string `json:"source_name"`
	SourceType string `json:"source_type,omitempty"` // defaults to "crawler" when persisted
	ExternalID string `json:"external_id"`           // source-local ID, e.g. last URL segment

	Title       string `json:"title"`
	Description string `json:"description"`
	Summary     string `json:"summary,omitempty"`
	SourceURL   string `json:"source_url"`
	ImageURL    string `json:"image_url,omitempty"`

	DtStart *time.Time `json:"dt_start,omitempty"`
	DtEnd   *time.Time `json:"dt_end,omitempty"`

	LocationName    string `json:"location_name,omitempty"`
	LocationAddress string `json:"location_address,omitempty"`
	LocationCity    string `json:"location_city,omitempty"`

	// Filled by the enrichment stage when geocoding succeeds.
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`

	Categories []string `json:"categories,omitempty"`
	PriceText  string   `json:"price_text,omitempty"`

	// Tri-state flags: nil means the source said nothing.
	IsFree    *bool `json:"is_free,omitempty"`
	IsOutdoor *bool `json:"is_outdoor,omitempty"`
}

// HasLocation reports whether the payload carries any location information
// worth persisting or geocoding.
func (p *EventPayload) HasLocation() bool {
	return p.LocationName != "" || p.LocationAddress != "" || p.LocationCity != ""
}

// LocationQuery builds the free-text query handed to the geocoding resolver.
func (p *EventPayload) LocationQuery() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.LocationName, p.LocationAddress, p.LocationCity} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, s := range parts[1:] {
		out += ", " + s
	}
	return out
}
