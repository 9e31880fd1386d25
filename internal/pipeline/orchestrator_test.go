package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"eventhub/internal/crawler"
	"eventhub/internal/geo"
	"eventhub/internal/ingest"
	"eventhub/pkg/database"
	"eventhub/pkg/models"
)

// fakeSource serves canned candidates and payloads so pipeline behavior can be
// tested without HTTP.
type fakeSource struct {
	slug       string
	candidates []crawler.Candidate
	payloads   map[string]*models.EventPayload

	listingErr error
	detailErr  map[string]error

	listingCalls int
}

func (f *fakeSource) Slug() string { return f.slug }
func (f *fakeSource) Name() string { return "fake " + f.slug }

func (f *fakeSource) Listing(ctx context.Context) ([]crawler.Candidate, error) {
	f.listingCalls++
	if f.listingErr != nil {
		return nil, f.listingErr
	}
	return f.candidates, nil
}

func (f *fakeSource) Detail(ctx context.Context, c crawler.Candidate) (*models.EventPayload, error) {
	if err, ok := f.detailErr[c.URL]; ok {
		return nil, err
	}
	p, ok := f.payloads[c.URL]
	if !ok {
		return nil, fmt.Errorf("no payload for %s", c.URL)
	}
	clone := *p
	return &clone, nil
}

func fakePayload(slug, id string) *models.EventPayload {
	return &models.EventPayload{
		SourceSlug:      slug,
		SourceName:      "fake " + slug,
		ExternalID:      id,
		Title:           "Event " + id,
		Description:     "Beschreibung von Event " + id,
		SourceURL:       "https://example.org/" + id,
		LocationName:    "Marktplatz",
		LocationAddress: "Markt 1",
		LocationCity:    "Aachen",
	}
}

func newFakeSource(slug string, ids ...string) *fakeSource {
	f := &fakeSource{
		slug:     slug,
		payloads: make(map[string]*models.EventPayload),
	}
	for _, id := range ids {
		url := "https://example.org/" + id
		f.candidates = append(f.candidates, crawler.Candidate{URL: url})
		f.payloads[url] = fakePayload(slug, id)
	}
	return f
}

func newTestOrchestrator(t *testing.T, sources ...crawler.Source) *Orchestrator {
	t.Helper()
	db := database.NewTestDB(t)
	bySlug := make(map[string]crawler.Source)
	for _, s := range sources {
		bySlug[s.Slug()] = s
	}
	return New(
		bySlug,
		ingest.NewEngine(db),
		geo.New(geo.Config{Enabled: false}),
		NewReportStore(t.TempDir()),
		nil,
	)
}

func TestRunSlugInsertsThenUpdates(t *testing.T) {
	src := newFakeSource("fake-a", "1", "2")
	orch := newTestOrchestrator(t, src)
	ctx := context.Background()

	rep, err := orch.RunSlug(ctx, "fake-a", 0)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if rep.Found != 2 || rep.Processed != 2 || rep.Inserted != 2 || rep.Updated != 0 {
		t.Errorf("first run: %+v", rep)
	}

	rep, err = orch.RunSlug(ctx, "fake-a", 0)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if rep.Inserted != 0 || rep.Updated != 2 {
		t.Errorf("second run should only update: %+v", rep)
	}
}

func TestRunSlugLimit(t *testing.T) {
	src := newFakeSource("fake-a", "1", "2", "3")
	orch := newTestOrchestrator(t, src)

	rep, err := orch.RunSlug(context.Background(), "fake-a", 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Found != 3 {
		t.Errorf("found should count the full listing: %d", rep.Found)
	}
	if rep.Processed != 1 || rep.Inserted != 1 {
		t.Errorf("limit not applied: %+v", rep)
	}
}

func TestRunSlugUnknownIsFatal(t *testing.T) {
	orch := newTestOrchestrator(t)

	_, err := orch.RunSlug(context.Background(), "nope", 0)
	if err == nil {
		t.Fatal("expected an error")
	}
	if IsRetryable(err) {
		t.Error("unknown slug must not be retryable")
	}
}

func TestRunSlugListingFailureIsRetryable(t *testing.T) {
	src := newFakeSource("fake-a")
	src.listingErr = errors.New("connection refused")
	orch := newTestOrchestrator(t, src)

	_, err := orch.RunSlug(context.Background(), "fake-a", 0)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsRetryable(err) {
		t.Error("listing failure should be retryable")
	}
}

func TestRunSlugDetailErrorIsCountedNotFatal(t *testing.T) {
	src := newFakeSource("fake-a", "1", "2")
	src.detailErr = map[string]error{
		"https://example.org/2": errors.New("status 500"),
	}
	orch := newTestOrchestrator(t, src)

	rep, err := orch.RunSlug(context.Background(), "fake-a", 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Inserted != 1 || rep.Errors != 1 {
		t.Errorf("got %+v", rep)
	}
	if len(rep.ErrorSamples) != 1 || !strings.Contains(rep.ErrorSamples[0], "status 500") {
		t.Errorf("error samples: %v", rep.ErrorSamples)
	}
}

func TestRunSlugWritesReport(t *testing.T) {
	src := newFakeSource("fake-a", "1")
	orch := newTestOrchestrator(t, src)

	if _, err := orch.RunSlug(context.Background(), "fake-a", 0); err != nil {
		t.Fatalf("run: %v", err)
	}

	names, err := orch.Reports.List()
	if err != nil {
		t.Fatalf("listing reports: %v", err)
	}
	if len(names) != 1 || !strings.HasPrefix(names[0], "fake-a-") {
		t.Errorf("got report files %v", names)
	}
}

func TestRunBatchAggregates(t *testing.T) {
	a := newFakeSource("fake-a", "1", "2")
	b := newFakeSource("fake-b", "3")
	orch := newTestOrchestrator(t, a, b)

	batch, err := orch.RunBatch(context.Background(), []string{"fake-a", "fake-b", "missing"}, 0)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	if batch.TotalFound != 3 || batch.Inserted != 3 {
		t.Errorf("totals: %+v", batch)
	}
	if batch.Errors != 1 {
		t.Errorf("expected 1 whole-slug failure, got %d", batch.Errors)
	}
	if len(batch.BySlug) != 3 {
		t.Fatalf("expected 3 per-slug entries, got %d", len(batch.BySlug))
	}
	last := batch.BySlug[2]
	if last.Slug != "missing" || last.Errors != 1 || len(last.ErrorSamples) != 1 {
		t.Errorf("failure entry: %+v", last)
	}
}

// captureHub records broadcasts for assertions.
type captureHub struct {
	mu   sync.Mutex
	msgs []any
}

func (h *captureHub) BroadcastJSON(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, v)
}

func TestRunSlugBroadcastsReport(t *testing.T) {
	src := newFakeSource("fake-a", "1")
	orch := newTestOrchestrator(t, src)
	hub := &captureHub{}
	orch.Hub = hub

	if _, err := orch.RunSlug(context.Background(), "fake-a", 0); err != nil {
		t.Fatalf("run: %v", err)
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if len(hub.msgs) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(hub.msgs))
	}
	rep, ok := hub.msgs[0].(*models.RunReport)
	if !ok || rep.Slug != "fake-a" {
		t.Errorf("broadcast payload: %#v", hub.msgs[0])
	}
}
