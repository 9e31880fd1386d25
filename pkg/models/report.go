package models

import "time"

// RunReport summarizes one orchestrator execution for a single source slug.
// It is created at the end of a run, written once and never mutated.
type RunReport struct {
	Slug         string    `json:"slug"`
	Found        int       `json:"found"`
	Processed    int       `json:"processed"`
	Inserted     int       `json:"inserted"`
	Updated      int       `json:"updated"`
	Skipped      int       `json:"skipped"`
	Errors       int       `json:"errors"`
	ErrorSamples []string  `json:"error_samples"` // first few error messages, capped
	Timestamp    time.Time `json:"timestamp"`
}

// BatchReport aggregates the per-slug reports of one batch run.
type BatchReport struct {
	Slug           string      `json:"slug"` // always "batch"
	TotalFound     int         `json:"total_found"`
	TotalProcessed int         `json:"total_processed"`
	Inserted       int         `json:"inserted"`
	Updated        int         `json:"updated"`
	Skipped        int         `json:"skipped"`
	Errors         int         `json:"errors"`
	BySlug         []RunReport `json:"by_slug"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Add folds one per-slug report into the batch totals.
func (b *BatchReport) Add(r RunReport) {
	b.BySlug = append(b.BySlug, r)
	b.TotalFound += r.Found
	b.TotalProcessed += r.Processed
	b.Inserted += r.Inserted
	b.Updated += r.Updated
	b.Skipped += r.Skipped
	b.Errors += r.Errors
}
