package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"eventhub/pkg/models"
)

// Source is implemented by each external event site. A source knows how to
// paginate its own listing into detail-page candidates and how to parse one
// detail page into the canonical EventPayload. Sources share no state beyond
// the injected HTTP client.
type Source interface {
	Slug() string
	Name() string
	Listing(ctx context.Context) ([]Candidate, error)
	Detail(ctx context.Context, c Candidate) (*models.EventPayload, error)
}

// Candidate is one detail link discovered on a listing page, together with
// card-level fallbacks used when the detail page lacks a field.
type Candidate struct {
	URL     string
	Image   string      // teaser image from the listing card
	Summary string      // card-level teaser text
	Dates   []time.Time // card-level dates (first = start, last = end)
}

const (
	defaultTimeout = 20 * time.Second

	userAgent = "eventhub-crawler (+https://www.eventhub.example)"
)

// Sources returns all registered extractors, sharing the given HTTP client so
// timeouts are configured in one place. A nil client gets the default
// per-request timeout.
func Sources(client *http.Client) []Source {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return []Source{
		NewAachenFamily(client),
		NewGruenMetropole(client),
		NewRurEifel(client),
	}
}

// BySlug indexes the registered sources by slug.
func BySlug(client *http.Client) map[string]Source {
	out := make(map[string]Source)
	for _, s := range Sources(client) {
		out[s.Slug()] = s
	}
	return out
}

// urlSet tracks detail URLs already seen within one crawl run, so a listing
// whose last page re-serves earlier items cannot loop forever.
type urlSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL is new, false if it was seen before.
func (s *urlSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// fetchDoc GETs a page and parses it into a goquery document.
func fetchDoc(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// cleanText collapses a selection's text into single-spaced form.
func cleanText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

var (
	brRe  = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRe = regexp.MustCompile(`<[^>]*>`)
)

// htmlLines splits a selection's inner HTML on <br> and strips the remaining
// markup, for address blocks that separate lines with <br> only.
func htmlLines(sel *goquery.Selection) []string {
	raw, err := sel.Html()
	if err != nil {
		return nil
	}
	var lines []string
	for _, part := range brRe.Split(raw, -1) {
		text := strings.Join(strings.Fields(tagRe.ReplaceAllString(part, " ")), " ")
		text = strings.TrimSpace(unescapeEntities(text))
		if text != "" {
			lines = append(lines, text)
		}
	}
	return lines
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

func unescapeEntities(s string) string {
	return entityReplacer.Replace(s)
}

// absURL resolves href against the listing base.
func absURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// externalIDFromURL derives the source-local ID from the detail URL's last
// path segment.
func externalIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	path := raw
	if err == nil {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		path = path[idx+1:]
	}
	return path
}

var timeRangeRe = regexp.MustCompile(`(\d{1,2}):(\d{2})`)

// parseTimeRange pulls the first (and optionally second) HH:MM out of a
// free-text time span like "10:00 - 17:30 Uhr".
func parseTimeRange(text string) (start, end []int) {
	matches := timeRangeRe.FindAllStringSubmatch(text, 2)
	if len(matches) == 0 {
		return nil, nil
	}
	start = []int{atoi(matches[0][1]), atoi(matches[0][2])}
	if len(matches) > 1 {
		end = []int{atoi(matches[1][1]), atoi(matches[1][2])}
	}
	return start, end
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// parseGermanDate accepts the two day.month.year forms used by the sources.
func parseGermanDate(text string) *time.Time {
	text = strings.TrimSpace(text)
	for _, layout := range []string{"02.01.06", "02.01.2006"} {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}
	return nil
}

// parseISODate accepts the ISO shapes found in ld+json and datetime
// attributes, with or without time and zone.
func parseISODate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
