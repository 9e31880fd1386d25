package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func listingItem(href string) string {
	return fmt.Sprintf(`<div class="destination1-slider__item">
		<a href="%s"><img class="destination1-slider__item-image--img" src="%s.jpg"></a>
	</div>`, href, href)
}

func TestAachenFamilyListingStopsOnRepeatedPage(t *testing.T) {
	pages := map[string]string{
		"1": listingItem("/events/a") + listingItem("/events/b"),
		"2": listingItem("/events/c"),
		// The site re-serves the last page for out-of-range page numbers.
		"3": listingItem("/events/c"),
		"4": listingItem("/events/c"),
	}

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			body = pages["4"]
		}
		fmt.Fprintf(w, `<html><body><div id="tab-familienevents">%s</div></body></html>`, body)
	}))
	defer srv.Close()

	s := NewAachenFamily(srv.Client())
	s.listingURL = srv.URL + "/list"

	candidates, err := s.Listing(context.Background())
	if err != nil {
		t.Fatalf("listing: %v", err)
	}

	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	// Pages 1 and 2 bring new links, page 3 repeats and terminates the walk.
	if requests != 3 {
		t.Errorf("expected 3 page fetches, got %d", requests)
	}
	if candidates[0].URL != srv.URL+"/events/a" {
		t.Errorf("got first candidate %q", candidates[0].URL)
	}
	if candidates[0].Image != "/events/a.jpg" {
		t.Errorf("teaser image not captured: %q", candidates[0].Image)
	}
}

func TestAachenFamilyListingEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="tab-familienevents"></div></body></html>`)
	}))
	defer srv.Close()

	s := NewAachenFamily(srv.Client())
	s.listingURL = srv.URL + "/list"

	candidates, err := s.Listing(context.Background())
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
}

const aachenDetailPage = `<html><body>
<h1 class="poi-detail__header--headline">Stadtfest Aachen</h1>
<div class="poi-detail__meta-container--categories">Fest, Musik</div>
<div class="poi-detail__meta-container--location">Aachen</div>
<div class="poi-detail__content--text">
	<p>Ein großes Fest.</p>
	<p>Mit Livemusik.</p>
</div>
<div class="poi-detail__contact--address-name">Marktplatz</div>
<div class="poi-detail__contact--address-info">Markt 1<br>52062 Aachen</div>
<div class="event-detail__dates-slider__item">
	<span class="event-detail__dates-slider__item--date" data-year="2026" data-month="9" data-day="12"></span>
	<span class="event-detail__dates-slider__item--time">14:00 - 18:00 Uhr</span>
</div>
<div class="poi-detail__general-information__accordion-tab__content">Eintritt frei</div>
</body></html>`

func TestAachenFamilyDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, aachenDetailPage)
	}))
	defer srv.Close()

	s := NewAachenFamily(srv.Client())
	p, err := s.Detail(context.Background(), Candidate{
		URL:   srv.URL + "/events/stadtfest-2026",
		Image: "teaser.jpg",
	})
	if err != nil {
		t.Fatalf("detail: %v", err)
	}

	if p.Title != "Stadtfest Aachen" {
		t.Errorf("title: %q", p.Title)
	}
	if p.ExternalID != "stadtfest-2026" {
		t.Errorf("external id: %q", p.ExternalID)
	}
	if p.Description != "Ein großes Fest.\n\nMit Livemusik." {
		t.Errorf("description: %q", p.Description)
	}
	if p.LocationName != "Marktplatz" || p.LocationAddress != "Markt 1" || p.LocationCity != "Aachen" {
		t.Errorf("location: %q / %q / %q", p.LocationName, p.LocationAddress, p.LocationCity)
	}
	if len(p.Categories) != 2 || p.Categories[0] != "Fest" || p.Categories[1] != "Musik" {
		t.Errorf("categories: %v", p.Categories)
	}
	if p.DtStart == nil || p.DtStart.Hour() != 14 {
		t.Errorf("dt_start: %v", p.DtStart)
	}
	if p.DtEnd == nil || p.DtEnd.Hour() != 18 {
		t.Errorf("dt_end: %v", p.DtEnd)
	}
	if p.IsFree == nil || !*p.IsFree {
		t.Errorf("is_free: %v", p.IsFree)
	}
	// Detail page has no image, so the card teaser fills in.
	if p.ImageURL != "teaser.jpg" {
		t.Errorf("image: %q", p.ImageURL)
	}
}

func TestAachenFamilyDetailFallbackTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer srv.Close()

	s := NewAachenFamily(srv.Client())
	p, err := s.Detail(context.Background(), Candidate{URL: srv.URL + "/events/x"})
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if p.Title != "Unbenanntes Event" {
		t.Errorf("title: %q", p.Title)
	}
}
