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

// AachenFamily extracts family events from the Aachen tourist service site.
type AachenFamily struct {
	client     *http.Client
	listingURL string
}

func NewAachenFamily(client *http.Client) *AachenFamily {
	return &AachenFamily{
		client:     client,
		listingURL: "https://www.aachen-tourismus.de/aachen-entdecken/fuer-familien/",
	}
}

func (s *AachenFamily) Slug() string { return "aachen-family" }
func (s *AachenFamily) Name() string { return "aachen tourist service" }

func (s *AachenFamily) Listing(ctx context.Context) ([]Candidate, error) {
	var out []Candidate
	seen := newURLSet()

	for page := 1; ; page++ {
		doc, err := fetchDoc(ctx, s.client, fmt.Sprintf("%s?page=%d", s.listingURL, page))
		if err != nil {
			return nil, err
		}

		items := doc.Find("#tab-familienevents .destination1-slider__item")
		if items.Length() == 0 {
			break
		}

		newItems := 0
		items.Each(func(_ int, item *goquery.Selection) {
			href, ok := item.Find("a").First().Attr("href")
			if !ok || href == "" {
				return
			}
			detailURL := absURL(s.listingURL, href)
			if !seen.Add(detailURL) {
				return
			}
			newItems++
			out = append(out, Candidate{
				URL:   detailURL,
				Image: item.Find(".destination1-slider__item-image--img").AttrOr("src", ""),
			})
		})

		// The last page re-serves known items; zero new links means done.
		if newItems == 0 {
			break
		}
	}
	return out, nil
}

func (s *AachenFamily) Detail(ctx context.Context, c Candidate) (*models.EventPayload, error) {
	doc, err := fetchDoc(ctx, s.client, c.URL)
	if err != nil {
		return nil, err
	}

	title := cleanText(doc.Find(".poi-detail__header--headline").First())
	if title == "" {
		title = "Unbenanntes Event"
	}

	description := s.extractDescription(doc)
	image := doc.Find(".poi-detail__image--img").First().AttrOr("src", "")
	if image == "" {
		image = c.Image
	}

	name, address, city := s.extractLocation(doc)
	dtStart, dtEnd := s.extractDates(doc)
	priceText, isFree := s.extractPriceInfo(doc)

	return &models.EventPayload{
		SourceSlug:      s.Slug(),
		SourceName:      s.Name(),
		ExternalID:      externalIDFromURL(c.URL),
		Title:           title,
		Description:     description,
		SourceURL:       c.URL,
		ImageURL:        image,
		DtStart:         dtStart,
		DtEnd:           dtEnd,
		LocationName:    name,
		LocationAddress: address,
		LocationCity:    city,
		Categories:      s.extractCategories(doc),
		PriceText:       priceText,
		IsFree:          isFree,
	}, nil
}

func (s *AachenFamily) extractDescription(doc *goquery.Document) string {
	var parts []string
	doc.Find(".poi-detail__content--text p").Each(func(_ int, p *goquery.Selection) {
		if text := cleanText(p); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		if hero := cleanText(doc.Find(".poi-detail__content--text").First()); hero != "" {
			parts = append(parts, hero)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (s *AachenFamily) extractCategories(doc *goquery.Document) []string {
	text := cleanText(doc.Find(".poi-detail__meta-container--categories").First())
	if text == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s *AachenFamily) extractLocation(doc *goquery.Document) (name, address, city string) {
	name = cleanText(doc.Find(".poi-detail__contact--address-name").First())

	lines := htmlLines(doc.Find(".poi-detail__contact--address-info").First())
	if len(lines) > 0 {
		address = lines[0]
	}
	if len(lines) > 1 {
		// Second line is "PLZ Stadt".
		postalCity := lines[1]
		if idx := strings.Index(postalCity, " "); idx >= 0 {
			city = postalCity[idx+1:]
		} else {
			city = postalCity
		}
	}
	if metaCity := cleanText(doc.Find(".poi-detail__meta-container--location").First()); metaCity != "" {
		city = metaCity
	}
	return name, address, city
}

// extractDates reads the first entry of the date slider; the day is encoded
// in data attributes, the optional time span in free text.
func (s *AachenFamily) extractDates(doc *goquery.Document) (*time.Time, *time.Time) {
	item := doc.Find(".event-detail__dates-slider__item").First()
	if item.Length() == 0 {
		return nil, nil
	}
	dateEl := item.Find(".event-detail__dates-slider__item--date").First()
	if dateEl.Length() == 0 {
		return nil, nil
	}

	year := atoi(dateEl.AttrOr("data-year", ""))
	month := atoi(dateEl.AttrOr("data-month", ""))
	day := atoi(dateEl.AttrOr("data-day", ""))
	if year == 0 || month == 0 || day == 0 {
		return nil, nil
	}

	startHM, endHM := parseTimeRange(cleanText(item.Find(".event-detail__dates-slider__item--time").First()))

	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if startHM != nil {
		start = time.Date(year, time.Month(month), day, startHM[0], startHM[1], 0, 0, time.UTC)
	}
	var end *time.Time
	if endHM != nil {
		e := time.Date(year, time.Month(month), day, endHM[0], endHM[1], 0, 0, time.UTC)
		end = &e
	}
	return &start, end
}

func (s *AachenFamily) extractPriceInfo(doc *goquery.Document) (string, *bool) {
	text := cleanText(doc.Find(".poi-detail__general-information__accordion-tab__content").First())
	if text == "" {
		return "", nil
	}
	isFree := strings.Contains(strings.ToLower(text), "frei")
	return text, &isFree
}
