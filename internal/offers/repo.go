package offers

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"eventhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type ListQuery struct {
	Q           string // keyword search in title/summary
	Category    string // category slug
	City        string
	FreeOnly    bool
	OutdoorOnly bool
	Limit       int
	Offset      int
}

const offerColumns = `
	o.id, o.external_id, o.title, o.description, o.summary,
	o.source, o.source_name, o.source_type, o.source_url,
	o.dt_start, o.dt_end, o.image, o.is_free, o.is_outdoor, o.status,
	o.location_id, o.created_at, o.updated_at,
	l.fingerprint, l.name, l.address, l.city, l.lat, l.lon`

const offerFrom = `
	FROM offers o
	LEFT JOIN locations l ON l.id = o.location_id`

// GetByID returns one offer with its location and categories, or nil when it
// does not exist.
func (r *Repo) GetByID(ctx context.Context, id string) (*models.Offer, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+offerColumns+offerFrom+` WHERE o.id = ?`, id)

	offer, err := scanOffer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}

	cats, err := r.categoriesFor(ctx, offer.ID)
	if err != nil {
		return nil, err
	}
	offer.Categories = cats
	return offer, nil
}

// List returns offers matching q, newest start date first.
func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Offer, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	out := make([]models.Offer, 0, q.Limit)
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, *offer)
	}
	return out, rows.Err()
}

// Count returns the number of offers matching q.
func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count offers: %w", err)
	}
	return total, nil
}

// ListNearby returns offers whose location lies within radiusKM of the given
// point. The candidate set (offers with coordinates) is filtered in memory;
// it stays small enough that pushing haversine into SQL is not worth it.
func (r *Repo) ListNearby(ctx context.Context, lat, lon, radiusKM float64) ([]models.Offer, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+offerColumns+offerFrom+` WHERE l.lat IS NOT NULL AND l.lon IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list nearby offers: %w", err)
	}
	defer rows.Close()

	var out []models.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		loc := offer.Location
		if loc == nil || loc.Lat == nil || loc.Lon == nil {
			continue
		}
		if haversineKM(lat, lon, *loc.Lat, *loc.Lon) <= radiusKM {
			out = append(out, *offer)
		}
	}
	return out, rows.Err()
}

func (r *Repo) categoriesFor(ctx context.Context, offerID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT c.slug FROM categories c
		 JOIN offer_categories oc ON oc.category_id = c.id
		 WHERE oc.offer_id = ?
		 ORDER BY c.slug`, offerID)
	if err != nil {
		return nil, fmt.Errorf("offer categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, slug)
	}
	return out, rows.Err()
}

func buildListSQL(q ListQuery, count bool) (string, []any) {
	var b strings.Builder
	var args []any

	if count {
		b.WriteString(`SELECT COUNT(*)`)
	} else {
		b.WriteString(`SELECT ` + offerColumns)
	}
	b.WriteString(offerFrom)
	b.WriteString(` WHERE 1=1`)

	if q.Q != "" {
		b.WriteString(` AND (o.title LIKE ? OR o.summary LIKE ?)`)
		like := "%" + q.Q + "%"
		args = append(args, like, like)
	}
	if q.Category != "" {
		b.WriteString(` AND EXISTS (
			SELECT 1 FROM offer_categories oc
			JOIN categories c ON c.id = oc.category_id
			WHERE oc.offer_id = o.id AND c.slug = ?)`)
		args = append(args, q.Category)
	}
	if q.City != "" {
		b.WriteString(` AND l.city = ?`)
		args = append(args, q.City)
	}
	if q.FreeOnly {
		b.WriteString(` AND o.is_free = 1`)
	}
	if q.OutdoorOnly {
		b.WriteString(` AND o.is_outdoor = 1`)
	}

	if !count {
		b.WriteString(` ORDER BY o.dt_start IS NULL, o.dt_start, o.title`)
		limit := q.Limit
		if limit <= 0 {
			limit = 20
		}
		b.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, limit, q.Offset)
	}
	return b.String(), args
}

type scannable interface {
	Scan(dest ...any) error
}

func scanOffer(row scannable) (*models.Offer, error) {
	var (
		o           models.Offer
		description sql.NullString
		summary     sql.NullString
		sourceName  sql.NullString
		sourceURL   sql.NullString
		dtStart     sql.NullTime
		dtEnd       sql.NullTime
		image       sql.NullString
		locationID  sql.NullInt64
		fingerprint sql.NullString
		locName     sql.NullString
		locAddress  sql.NullString
		locCity     sql.NullString
		locLat      sql.NullFloat64
		locLon      sql.NullFloat64
	)

	if err := row.Scan(
		&o.ID, &o.ExternalID, &o.Title, &description, &summary,
		&o.Source, &sourceName, &o.SourceType, &sourceURL,
		&dtStart, &dtEnd, &image, &o.IsFree, &o.IsOutdoor, &o.Status,
		&locationID, &o.CreatedAt, &o.UpdatedAt,
		&fingerprint, &locName, &locAddress, &locCity, &locLat, &locLon,
	); err != nil {
		return nil, err
	}

	o.Description = description.String
	o.Summary = summary.String
	o.SourceName = sourceName.String
	o.SourceURL = sourceURL.String
	o.Image = image.String
	if dtStart.Valid {
		t := dtStart.Time
		o.DtStart = &t
	}
	if dtEnd.Valid {
		t := dtEnd.Time
		o.DtEnd = &t
	}
	if locationID.Valid {
		id := locationID.Int64
		o.LocationID = &id
		loc := &models.Location{
			ID:          id,
			Fingerprint: fingerprint.String,
			Name:        locName.String,
			Address:     locAddress.String,
			City:        locCity.String,
		}
		if locLat.Valid {
			v := locLat.Float64
			loc.Lat = &v
		}
		if locLon.Valid {
			v := locLon.Float64
			loc.Lon = &v
		}
		o.Location = loc
	}
	return &o, nil
}

const earthRadiusKM = 6371

// haversineKM is the great-circle distance between two lat/lon points.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}
