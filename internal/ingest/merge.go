package ingest

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"eventhub/pkg/models"
)

// Result of a single upsert.
type Result string

const (
	ResultCreated Result = "created"
	ResultUpdated Result = "updated"
	ResultSkipped Result = "skipped"
)

// Engine merges event payloads into the store. Upserts are idempotent and
// commutative: re-ingesting the same record updates the existing offer, and
// concurrent runs touching the same location or category are resolved by the
// store's unique indexes.
//
// Commit boundary: one transaction per record, so a crash mid-run keeps
// everything upserted so far.
type Engine struct {
	DB *sql.DB
}

func NewEngine(db *sql.DB) *Engine {
	return &Engine{DB: db}
}

// Upsert writes one payload. Records without an external ID or title are
// skipped; data-quality gaps in optional fields never produce an error.
func (e *Engine) Upsert(ctx context.Context, p *models.EventPayload) (Result, error) {
	if p.ExternalID == "" || p.Title == "" {
		return ResultSkipped, nil
	}

	externalID := p.SourceSlug + ":" + p.ExternalID

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var offerID string
	created := false
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM offers WHERE external_id = ?`, externalID,
	).Scan(&offerID)
	switch {
	case err == sql.ErrNoRows:
		offerID = uuid.NewString()
		created = true
		sourceType := p.SourceType
		if sourceType == "" {
			sourceType = models.SourceTypeCrawler
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO offers (id, external_id, title, source, source_name, source_type, source_url)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			offerID, externalID, p.Title, p.SourceSlug, p.SourceName, sourceType, p.SourceURL,
		); err != nil {
			return "", fmt.Errorf("insert offer %s: %w", externalID, err)
		}
	case err != nil:
		return "", fmt.Errorf("lookup offer %s: %w", externalID, err)
	}

	locationID, err := upsertLocation(ctx, tx, p)
	if err != nil {
		return "", err
	}

	// The source is the system of record for descriptive fields: overwrite
	// them on every re-crawl. Image and the tri-state flags only replace the
	// stored value when the incoming record actually carries one.
	if _, err := tx.ExecContext(ctx,
		`UPDATE offers SET
		     title       = ?,
		     description = ?,
		     summary     = ?,
		     source_url  = ?,
		     image       = COALESCE(NULLIF(?, ''), image),
		     dt_start    = ?,
		     dt_end      = ?,
		     is_free     = COALESCE(?, is_free),
		     is_outdoor  = COALESCE(?, is_outdoor),
		     location_id = COALESCE(?, location_id),
		     updated_at  = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Title, p.Description, p.Summary, p.SourceURL, p.ImageURL,
		p.DtStart, p.DtEnd, p.IsFree, p.IsOutdoor, locationID, offerID,
	); err != nil {
		return "", fmt.Errorf("update offer %s: %w", externalID, err)
	}

	if len(p.Categories) > 0 {
		if err := replaceCategories(ctx, tx, offerID, p.Categories); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit offer %s: %w", externalID, err)
	}

	if created {
		return ResultCreated, nil
	}
	return ResultUpdated, nil
}

// LocationFingerprint is the dedup key for locations: sha256 over the
// lowercased "name|address|city" tuple.
func LocationFingerprint(name, address, city string) string {
	src := strings.ToLower(name + "|" + address + "|" + city)
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// upsertLocation finds or creates the location for p and returns its ID, or
// nil when the payload carries no location at all. Existing rows are only
// filled in where currently null; a populated field is never replaced.
func upsertLocation(ctx context.Context, tx *sql.Tx, p *models.EventPayload) (*int64, error) {
	if !p.HasLocation() {
		return nil, nil
	}
	fp := LocationFingerprint(p.LocationName, p.LocationAddress, p.LocationCity)

	// Two passes: if our insert loses a race against a concurrent run, the
	// unique index rejects it and the re-query finds the winner's row.
	for attempt := 0; attempt < 2; attempt++ {
		var id int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM locations WHERE fingerprint = ?`, fp,
		).Scan(&id)
		if err == nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE locations SET
				     name    = COALESCE(name, NULLIF(?, '')),
				     address = COALESCE(address, NULLIF(?, '')),
				     city    = COALESCE(city, NULLIF(?, '')),
				     lat     = COALESCE(lat, ?),
				     lon     = COALESCE(lon, ?)
				 WHERE id = ?`,
				p.LocationName, p.LocationAddress, p.LocationCity, p.Lat, p.Lon, id,
			); err != nil {
				return nil, fmt.Errorf("merge location %s: %w", fp, err)
			}
			return &id, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("lookup location %s: %w", fp, err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO locations (fingerprint, name, address, city, lat, lon)
			 VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?)`,
			fp, p.LocationName, p.LocationAddress, p.LocationCity, p.Lat, p.Lon,
		)
		if err != nil {
			if isConstraintErr(err) {
				continue
			}
			return nil, fmt.Errorf("insert location %s: %w", fp, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("location id %s: %w", fp, err)
		}
		return &id, nil
	}
	return nil, fmt.Errorf("location %s: lost find-or-create race twice", fp)
}

// replaceCategories sets the offer's category associations to exactly the
// incoming label set, matching the latest source observation.
func replaceCategories(ctx context.Context, tx *sql.Tx, offerID string, labels []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM offer_categories WHERE offer_id = ?`, offerID,
	); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}

	for _, label := range labels {
		catID, err := getOrCreateCategory(ctx, tx, label)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO offer_categories (offer_id, category_id) VALUES (?, ?)`,
			offerID, catID,
		); err != nil {
			return fmt.Errorf("attach category %q: %w", label, err)
		}
	}
	return nil
}

func getOrCreateCategory(ctx context.Context, tx *sql.Tx, label string) (int64, error) {
	slug := Slugify(label)

	for attempt := 0; attempt < 2; attempt++ {
		var id int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM categories WHERE slug = ?`, slug,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, fmt.Errorf("lookup category %q: %w", slug, err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO categories (slug, name) VALUES (?, ?)`,
			slug, strings.TrimSpace(label),
		)
		if err != nil {
			if isConstraintErr(err) {
				continue
			}
			return 0, fmt.Errorf("insert category %q: %w", slug, err)
		}
		return res.LastInsertId()
	}
	return 0, fmt.Errorf("category %q: lost find-or-create race twice", slug)
}

func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
