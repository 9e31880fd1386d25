package ingest

import (
	"strings"

	"eventhub/pkg/models"
)

// Field length caps shared by every source. They mirror the column widths of
// the offers table and are applied uniformly, no matter which extractor
// produced the row.
const (
	maxTitleLen     = 200
	maxSummaryLen   = 400
	maxPriceTextLen = 400
	summarySeedLen  = 380
)

// Shorten trims s and caps it at n runes.
func Shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Normalize applies the shared shaping rules to a payload in place: trimming,
// length caps and the summary fallback chain (explicit summary, then a
// description prefix, then the price text).
func Normalize(p *models.EventPayload) {
	p.ExternalID = strings.TrimSpace(p.ExternalID)
	p.Title = Shorten(p.Title, maxTitleLen)
	p.Description = strings.TrimSpace(p.Description)
	p.SourceURL = strings.TrimSpace(p.SourceURL)
	p.ImageURL = strings.TrimSpace(p.ImageURL)
	p.PriceText = Shorten(p.PriceText, maxPriceTextLen)

	p.LocationName = strings.TrimSpace(p.LocationName)
	p.LocationAddress = strings.TrimSpace(p.LocationAddress)
	p.LocationCity = strings.TrimSpace(p.LocationCity)

	if p.Summary == "" && p.Description != "" {
		p.Summary = Shorten(p.Description, summarySeedLen)
	}
	p.Summary = Shorten(p.Summary, maxSummaryLen)
	if p.Summary == "" && p.PriceText != "" {
		p.Summary = Shorten(p.PriceText, maxSummaryLen)
	}

	labels := p.Categories[:0]
	for _, c := range p.Categories {
		if c = strings.TrimSpace(c); c != "" {
			labels = append(labels, c)
		}
	}
	p.Categories = labels
}
