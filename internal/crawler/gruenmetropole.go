package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"eventhub/pkg/models"
)

// GruenMetropole extracts events from the gruenmetropole.eu calendar. Detail
// pages embed a schema.org Event as ld+json; page selectors are the fallback.
type GruenMetropole struct {
	client     *http.Client
	listingURL string
}

func NewGruenMetropole(client *http.Client) *GruenMetropole {
	return &GruenMetropole{
		client:     client,
		listingURL: "https://www.gruenmetropole.eu/veranstaltungen/index.php",
	}
}

func (s *GruenMetropole) Slug() string { return "gruenmetropole" }
func (s *GruenMetropole) Name() string { return "Grünmetropole e.V." }

var cssURLRe = regexp.MustCompile(`url\(([^)]+)\)`)

func (s *GruenMetropole) Listing(ctx context.Context) ([]Candidate, error) {
	var out []Candidate
	seen := newURLSet()

	for page := 1; ; page++ {
		doc, err := fetchDoc(ctx, s.client, fmt.Sprintf("%s?page=%d", s.listingURL, page))
		if err != nil {
			return nil, err
		}

		cards := doc.Find(".event-entry-new-1")
		if cards.Length() == 0 {
			break
		}

		newItems := 0
		cards.Each(func(_ int, card *goquery.Selection) {
			link := card.Find("a.event-entry-new-1-image-link").First()
			if link.Length() == 0 {
				link = card.Find(".event-entry-new-1-headline a").First()
			}
			href, ok := link.Attr("href")
			if !ok || href == "" {
				return
			}
			detailURL := absURL(s.listingURL, href)
			if !seen.Add(detailURL) {
				return
			}
			newItems++

			c := Candidate{URL: detailURL, Image: s.teaserImage(card)}
			card.Find(".event-entry-new-1-time time").Each(func(_ int, node *goquery.Selection) {
				if t := parseISODate(node.AttrOr("datetime", "")); t != nil {
					c.Dates = append(c.Dates, *t)
				}
			})
			out = append(out, c)
		})

		if newItems == 0 {
			break
		}
	}
	return out, nil
}

func (s *GruenMetropole) Detail(ctx context.Context, c Candidate) (*models.EventPayload, error) {
	doc, err := fetchDoc(ctx, s.client, c.URL)
	if err != nil {
		return nil, err
	}

	data := s.extractEventJSON(doc)

	payload := &models.EventPayload{
		SourceSlug: s.Slug(),
		SourceName: s.Name(),
		ExternalID: externalIDFromURL(c.URL),
		SourceURL:  c.URL,
	}

	if data != nil {
		payload.Title = strings.TrimSpace(data.Name)
		payload.Description = data.Description
		payload.ImageURL = firstString(data.Image)
		if t := parseISODate(data.StartDate); t != nil {
			payload.DtStart = t
		}
		if t := parseISODate(data.EndDate); t != nil {
			payload.DtEnd = t
		}
		payload.LocationName = data.Location.Name
		payload.LocationCity = data.Location.Address.AddressLocality
		if payload.LocationCity == "" {
			payload.LocationCity = data.Location.Name
		}
	}

	if payload.Title == "" {
		payload.Title = cleanText(doc.Find("h1").First())
	}
	if payload.Title == "" {
		payload.Title = "Event"
	}
	if payload.Description == "" {
		payload.Description = s.extractDescription(doc)
	}

	name, address := s.extractLocationBlock(doc)
	if payload.LocationName == "" {
		payload.LocationName = name
	}
	if address != "" {
		payload.LocationAddress = address
	}

	// Card-level fallbacks.
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

// eventJSON is the subset of the schema.org Event block we read.
type eventJSON struct {
	Type        string `json:"@type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       any    `json:"image"` // string or list of strings
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Location    struct {
		Name    string `json:"name"`
		Address struct {
			AddressLocality string `json:"addressLocality"`
		} `json:"address"`
	} `json:"location"`
}

func (s *GruenMetropole) extractEventJSON(doc *goquery.Document) *eventJSON {
	var found *eventJSON
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var data eventJSON
		if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
			return true
		}
		if strings.EqualFold(data.Type, "event") {
			found = &data
			return false
		}
		return true
	})
	return found
}

func (s *GruenMetropole) extractDescription(doc *goquery.Document) string {
	var parts []string
	doc.Find(".tiny_p").Each(func(_ int, p *goquery.Selection) {
		if text := cleanText(p); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

// extractLocationBlock reads the "Veranstaltungsort" section: the venue name
// is the next h5, the address the next tiny paragraph.
func (s *GruenMetropole) extractLocationBlock(doc *goquery.Document) (name, address string) {
	var heading *goquery.Selection
	doc.Find("h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.Contains(h.Text(), "Veranstaltungsort") {
			heading = h
			return false
		}
		return true
	})
	if heading == nil {
		return "", ""
	}

	name = cleanText(heading.NextAllFiltered("h5").First())
	if name == "" {
		name = cleanText(heading.Parent().Find("h5").First())
	}
	address = cleanText(heading.NextAllFiltered("p.tiny_p").First())
	if address == "" {
		address = cleanText(heading.Parent().Find("p.tiny_p").First())
	}
	return name, address
}

func (s *GruenMetropole) teaserImage(card *goquery.Selection) string {
	style := card.Find(".event-entry-new-1-image").First().AttrOr("style", "")
	if m := cssURLRe.FindStringSubmatch(style); m != nil {
		return strings.Trim(m[1], `'" `)
	}
	return ""
}

func firstString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
