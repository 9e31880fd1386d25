package models

import "time"

// Offer statuses.
const (
	OfferStatusDraft     = "draft"
	OfferStatusPublished = "published"
	OfferStatusArchived  = "archived"
)

// Offer source types.
const (
	SourceTypeManual  = "manual"
	SourceTypeCrawler = "crawler"
	SourceTypeOCR     = "ocr"
)

// Offer is the durable, canonical event record. ExternalID is the global
// identity "{source_slug}:{source_local_id}"; there is exactly one Offer per
// external ID no matter how often the pipeline runs.
type Offer struct {
	ID          string `json:"id"`
	ExternalID  string `json:"external_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Summary     string `json:"summary,omitempty"`

	Source     string `json:"source"`
	SourceName string `json:"source_name,omitempty"`
	SourceType string `json:"source_type"`
	SourceURL  string `json:"source_url,omitempty"`

	DtStart *time.Time `json:"dt_start,omitempty"`
	DtEnd   *time.Time `json:"dt_end,omitempty"`

	Image     string `json:"image,omitempty"`
	IsFree    bool   `json:"is_free"`
	IsOutdoor bool   `json:"is_outdoor"`

	Status     string    `json:"status"`
	LocationID *int64    `json:"location_id,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Categories []string  `json:"categories,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Location is a deduplicated venue. Fingerprint is the sha256 of the
// lowercased "name|address|city" tuple; at most one row exists per
// fingerprint, and fields are only ever filled in when currently null.
type Location struct {
	ID          int64    `json:"id"`
	Fingerprint string   `json:"fingerprint"`
	Name        string   `json:"name,omitempty"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

// Category is deduplicated by slug; the display name plays no part in
// identity.
type Category struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}
