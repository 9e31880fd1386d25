package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"eventhub/pkg/models"
)

// RurEifel extracts the event calendar of rureifel-tourismus.de.
type RurEifel struct {
	client     *http.Client
	listingURL string
}

func NewRurEifel(client *http.Client) *RurEifel {
	return &RurEifel{
		client:     client,
		listingURL: "https://www.rureifel-tourismus.de/veranstaltungskalender",
	}
}

func (s *RurEifel) Slug() string { return "rur-eifel" }
func (s *RurEifel) Name() string { return "Rureifel Tourismus" }

func (s *RurEifel) Listing(ctx context.Context) ([]Candidate, error) {
	var out []Candidate
	seen := newURLSet()

	for page := 1; ; page++ {
		doc, err := fetchDoc(ctx, s.client, fmt.Sprintf("%s?tx_solr%%5Bpage%%5D=%d", s.listingURL, page))
		if err != nil {
			return nil, err
		}

		cards := doc.Find(".cardTeaser")
		if cards.Length() == 0 {
			break
		}

		newItems := 0
		cards.Each(func(_ int, card *goquery.Selection) {
			href, ok := card.Find(".listItem__txtSection__link a").First().Attr("href")
			if !ok || href == "" {
				return
			}
			detailURL := absURL(s.listingURL, href)
			if !seen.Add(detailURL) {
				return
			}
			newItems++

			c := Candidate{
				URL:     detailURL,
				Summary: cleanText(card.Find(".listItem__txtSection__paragraph").First()),
				Image:   card.Find(".listItem__imgSection picture img").First().AttrOr("src", ""),
			}
			if dateSpan := cleanText(card.Find(".listItem__imgSection__date").First()); dateSpan != "" {
				c.Dates = s.parseListDates(dateSpan)
			}
			out = append(out, c)
		})

		if newItems == 0 {
			break
		}
	}
	return out, nil
}

func (s *RurEifel) Detail(ctx context.Context, c Candidate) (*models.EventPayload, error) {
	doc, err := fetchDoc(ctx, s.client, c.URL)
	if err != nil {
		return nil, err
	}

	title := cleanText(doc.Find("h1").First())
	if title == "" {
		title = "Event"
	}

	payload := &models.EventPayload{
		SourceSlug:  s.Slug(),
		SourceName:  s.Name(),
		ExternalID:  externalIDFromURL(c.URL),
		Title:       title,
		Description: s.extractDescription(doc),
		SourceURL:   c.URL,
		ImageURL:    s.heroImage(doc),
		Categories:  []string{"Veranstaltungskalender"},
	}

	payload.DtStart = parseGermanDate(cleanText(doc.Find(".eventHeader__date--data .text").First()))
	if hm := s.parseClock(cleanText(doc.Find(".eventHeader__time .data").First())); hm != nil && payload.DtStart != nil {
		t := payload.DtStart.Add(time.Duration(hm[0])*time.Hour + time.Duration(hm[1])*time.Minute)
		payload.DtStart = &t
	}

	payload.LocationName, payload.LocationAddress = s.extractLocation(doc)

	// Card-level fallbacks.
	if payload.Summary == "" && c.Summary != "" {
		payload.Summary = c.Summary
	}
	if payload.ImageURL == "" {
		payload.ImageURL = c.Image
	}
	if payload.DtStart == nil && len(c.Dates) > 0 {
		payload.DtStart = &c.Dates[0]
		if len(c.Dates) > 1 {
			payload.DtEnd = &c.Dates[len(c.Dates)-1]
		}
	}

	return payload, nil
}

func (s *RurEifel) extractDescription(doc *goquery.Document) string {
	var parts []string
	doc.Find(".baseArticle__bodycopy p").Each(func(_ int, p *goquery.Selection) {
		if text := cleanText(p); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

func (s *RurEifel) extractLocation(doc *goquery.Document) (name, address string) {
	lines := htmlLines(doc.Find(".section--contact address .address__content").First())
	if len(lines) == 0 {
		return "", ""
	}
	name = lines[0]
	if len(lines) > 1 {
		address = strings.Join(lines[1:], " ")
	}
	return name, address
}

func (s *RurEifel) heroImage(doc *goquery.Document) string {
	return doc.Find(".hero--medium img").First().AttrOr("src", "")
}

// parseListDates handles card spans like "02.03.24 - 05.03.24".
func (s *RurEifel) parseListDates(text string) []time.Time {
	var out []time.Time
	for _, part := range strings.Split(text, "-") {
		if t := parseGermanDate(part); t != nil {
			out = append(out, *t)
		}
	}
	return out
}

// parseClock reads "15:04 Uhr" style times.
func (s *RurEifel) parseClock(text string) []int {
	text = strings.TrimSpace(strings.ReplaceAll(text, "Uhr", ""))
	if text == "" {
		return nil
	}
	parts := strings.Split(text, ":")
	if len(parts) != 2 {
		return nil
	}
	h, m := atoi(strings.TrimSpace(parts[0])), atoi(strings.TrimSpace(parts[1]))
	if h == 0 && parts[0] != "0" && parts[0] != "00" {
		return nil
	}
	return []int{h, m}
}
