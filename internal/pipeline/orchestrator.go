package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"eventhub/internal/crawler"
	"eventhub/internal/geo"
	"eventhub/internal/ingest"
	"eventhub/pkg/models"
)

// Broadcaster pushes finished reports to live subscribers. Optional.
type Broadcaster interface {
	BroadcastJSON(v any)
}

const maxErrorSamples = 3

// Orchestrator runs the ingestion pipeline for one source slug: fetch the
// listing, extract details, normalize, enrich with coordinates, upsert.
// The five stages run strictly in order; parallelism lives one level up, in
// the task runner, across slugs.
type Orchestrator struct {
	Sources map[string]crawler.Source
	Engine  *ingest.Engine
	Geo     *geo.Resolver
	Reports *ReportStore
	Hub     Broadcaster
}

func New(sources map[string]crawler.Source, engine *ingest.Engine, resolver *geo.Resolver, reports *ReportStore, hub Broadcaster) *Orchestrator {
	return &Orchestrator{
		Sources: sources,
		Engine:  engine,
		Geo:     resolver,
		Reports: reports,
		Hub:     hub,
	}
}

// Slugs returns the registered source slugs.
func (o *Orchestrator) Slugs() []string {
	out := make([]string, 0, len(o.Sources))
	for slug := range o.Sources {
		out = append(out, slug)
	}
	return out
}

// RunSlug executes the whole pipeline for one slug. A positive limit caps how
// many detail pages are processed; the report still counts everything found.
// An unknown slug is a fatal error; a failed listing fetch is transient.
// Per-record failures are counted and sampled, never propagated.
func (o *Orchestrator) RunSlug(ctx context.Context, slug string, limit int) (*models.RunReport, error) {
	src, ok := o.Sources[slug]
	if !ok {
		return nil, fmt.Errorf("unknown source slug %q", slug)
	}

	log.Printf("[pipeline] %s: start (limit=%d)", slug, limit)

	report := &models.RunReport{Slug: slug, ErrorSamples: []string{}}

	// Stage 1: fetch the listing.
	candidates, err := src.Listing(ctx)
	if err != nil {
		return nil, Retryable(fmt.Errorf("%s: fetch listing: %w", slug, err))
	}
	report.Found = len(candidates)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	report.Processed = len(candidates)
	log.Printf("[pipeline] %s: listing found=%d to_process=%d", slug, report.Found, report.Processed)

	// Stage 2: extract detail pages. A page that fails to fetch or parse is
	// skipped, not fatal.
	rows := make([]*models.EventPayload, 0, len(candidates))
	for _, c := range candidates {
		p, err := src.Detail(ctx, c)
		if err != nil {
			o.recordError(report, fmt.Sprintf("extract %s: %v", c.URL, err))
			continue
		}
		rows = append(rows, p)
	}

	// Stage 3: normalize, uniform across sources.
	for _, p := range rows {
		ingest.Normalize(p)
	}

	// Stage 4: enrich with coordinates. Failures leave the row unenriched.
	for _, p := range rows {
		if p.Lat != nil || !p.HasLocation() {
			continue
		}
		if res := o.Geo.Resolve(ctx, p.LocationQuery()); res != nil {
			p.Lat, p.Lon = &res.Lat, &res.Lon
		}
	}

	// Stage 5: upsert.
	for _, p := range rows {
		result, err := o.Engine.Upsert(ctx, p)
		if err != nil {
			o.recordError(report, fmt.Sprintf("upsert %s:%s: %v", p.SourceSlug, p.ExternalID, err))
			continue
		}
		switch result {
		case ingest.ResultCreated:
			report.Inserted++
		case ingest.ResultUpdated:
			report.Updated++
		case ingest.ResultSkipped:
			report.Skipped++
		}
	}

	report.Timestamp = time.Now().UTC()
	o.publish(slug, report)

	log.Printf("[pipeline] %s: done inserted=%d updated=%d skipped=%d errors=%d",
		slug, report.Inserted, report.Updated, report.Skipped, report.Errors)
	return report, nil
}

// RunBatch runs the pipeline per slug, turning a whole-slug failure into a
// single error entry instead of aborting the batch, and writes one aggregate
// report on top of the per-slug ones.
func (o *Orchestrator) RunBatch(ctx context.Context, slugs []string, limit int) (*models.BatchReport, error) {
	batch := &models.BatchReport{Slug: "batch", BySlug: []models.RunReport{}}

	for _, slug := range slugs {
		rep, err := o.RunSlug(ctx, slug, limit)
		if err != nil {
			log.Printf("[pipeline] %s: run failed: %v", slug, err)
			batch.Errors++
			batch.BySlug = append(batch.BySlug, models.RunReport{
				Slug:         slug,
				Errors:       1,
				ErrorSamples: []string{err.Error()},
				Timestamp:    time.Now().UTC(),
			})
			continue
		}
		batch.Add(*rep)
	}

	batch.Timestamp = time.Now().UTC()
	o.publish("batch", batch)
	return batch, nil
}

func (o *Orchestrator) recordError(report *models.RunReport, msg string) {
	report.Errors++
	if len(report.ErrorSamples) < maxErrorSamples {
		report.ErrorSamples = append(report.ErrorSamples, msg)
	}
	log.Printf("[pipeline] %s", msg)
}

// publish writes the report to durable storage and pushes it to the feed.
// Neither failure mode aborts a finished run.
func (o *Orchestrator) publish(key string, report any) {
	if o.Reports != nil {
		if path, err := o.Reports.Write(key, report); err != nil {
			log.Printf("[pipeline] %s: write report: %v", key, err)
		} else {
			log.Printf("[pipeline] %s: report written -> %s", key, path)
		}
	}
	if o.Hub != nil {
		o.Hub.BroadcastJSON(report)
	}
}
