package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org/search"
	defaultPhotonURL    = "https://photon.komoot.io/api"

	userAgent = "eventhub-crawler (+https://www.eventhub.example)"
)

// Config is the explicit resolver configuration; nothing is read from ambient
// process state. Provider picks the primary ("nominatim" or "photon"),
// AllowFallback enables the other one as a backup.
type Config struct {
	Enabled       bool
	Provider      string
	AllowFallback bool
	NominatimURL  string
	PhotonURL     string

	Client *http.Client
	Sleep  func(time.Duration) // overridable so tests skip the jitter
}

// Result is the provider-independent geocoding answer.
type Result struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
	HouseNumber string  `json:"house_number,omitempty"`
	Road        string  `json:"road,omitempty"`
	Postcode    string  `json:"postcode,omitempty"`
	City        string  `json:"city,omitempty"`
	State       string  `json:"state,omitempty"`
	Country     string  `json:"country,omitempty"`
}

// Resolver turns a free-text address into coordinates, trying providers in
// the configured order. Geocoding is optional enrichment: Resolve never
// returns an error, only nil for "unknown".
type Resolver struct {
	cfg Config
}

func New(cfg Config) *Resolver {
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = defaultNominatimURL
	}
	if cfg.PhotonURL == "" {
		cfg.PhotonURL = defaultPhotonURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	return &Resolver{cfg: cfg}
}

type provider func(ctx context.Context, query string) (*Result, error)

// Resolve geocodes query. A failing provider falls through silently to the
// next one; when every provider fails or geocoding is disabled the answer is
// simply unknown.
func (r *Resolver) Resolve(ctx context.Context, query string) *Result {
	if !r.cfg.Enabled || strings.TrimSpace(query) == "" {
		return nil
	}

	var order []provider
	switch strings.ToLower(r.cfg.Provider) {
	case "photon":
		order = []provider{r.photon}
		if r.cfg.AllowFallback {
			order = append(order, r.nominatim)
		}
	default:
		order = []provider{r.nominatim}
		if r.cfg.AllowFallback {
			order = append(order, r.photon)
		}
	}

	for _, fn := range order {
		res, err := fn(ctx, query)
		if err != nil {
			log.Printf("[geo] provider error for %q: %v", query, err)
			continue
		}
		if res != nil {
			return res
		}
	}
	return nil
}

// nominatim queries the OpenStreetMap Nominatim search endpoint. Nominatim
// asks for moderate request rates, hence the jittered delay before each call.
func (r *Resolver) nominatim(ctx context.Context, query string) (*Result, error) {
	r.cfg.Sleep(300*time.Millisecond + time.Duration(rand.Int63n(400))*time.Millisecond)

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")

	var hits []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
		Address     struct {
			HouseNumber string `json:"house_number"`
			Road        string `json:"road"`
			Postcode    string `json:"postcode"`
			City        string `json:"city"`
			Town        string `json:"town"`
			Village     string `json:"village"`
			State       string `json:"state"`
			Country     string `json:"country"`
		} `json:"address"`
	}
	if err := r.getJSON(ctx, r.cfg.NominatimURL+"?"+q.Encode(), &hits); err != nil {
		return nil, fmt.Errorf("nominatim: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	hit := hits[0]
	lat, err := strconv.ParseFloat(hit.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: parse lat %q: %w", hit.Lat, err)
	}
	lon, err := strconv.ParseFloat(hit.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: parse lon %q: %w", hit.Lon, err)
	}

	city := hit.Address.City
	if city == "" {
		city = hit.Address.Town
	}
	if city == "" {
		city = hit.Address.Village
	}

	return &Result{
		Lat:         lat,
		Lon:         lon,
		DisplayName: hit.DisplayName,
		HouseNumber: hit.Address.HouseNumber,
		Road:        hit.Address.Road,
		Postcode:    hit.Address.Postcode,
		City:        city,
		State:       hit.Address.State,
		Country:     hit.Address.Country,
	}, nil
}

// photon queries the Komoot Photon endpoint (GeoJSON feature collection).
func (r *Resolver) photon(ctx context.Context, query string) (*Result, error) {
	r.cfg.Sleep(200*time.Millisecond + time.Duration(rand.Int63n(300))*time.Millisecond)

	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", "1")
	q.Set("lang", "de")

	var resp struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"` // [lon, lat]
			} `json:"geometry"`
			Properties struct {
				Name        string `json:"name"`
				HouseNumber string `json:"housenumber"`
				Street      string `json:"street"`
				Postcode    string `json:"postcode"`
				City        string `json:"city"`
				State       string `json:"state"`
				Country     string `json:"country"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := r.getJSON(ctx, r.cfg.PhotonURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("photon: %w", err)
	}
	if len(resp.Features) == 0 {
		return nil, nil
	}

	f := resp.Features[0]
	if len(f.Geometry.Coordinates) < 2 {
		return nil, nil
	}
	props := f.Properties

	labelParts := make([]string, 0, 6)
	for _, s := range []string{props.Name, props.HouseNumber, props.Street, props.Postcode, props.City, props.Country} {
		if s != "" {
			labelParts = append(labelParts, s)
		}
	}

	return &Result{
		Lat:         f.Geometry.Coordinates[1],
		Lon:         f.Geometry.Coordinates[0],
		DisplayName: strings.Join(labelParts, ", "),
		HouseNumber: props.HouseNumber,
		Road:        props.Street,
		Postcode:    props.Postcode,
		City:        props.City,
		State:       props.State,
		Country:     props.Country,
	}, nil
}

func (r *Resolver) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
