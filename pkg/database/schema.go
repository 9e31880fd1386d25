package database

import (
	"database/sql"
	"fmt"
)

// schema is the full table set. Statements are idempotent so Migrate can run
// on every startup. The UNIQUE indexes on offers.external_id,
// locations.fingerprint and categories.slug are the authoritative dedup
// tie-breakers under concurrent runs; application-level find-then-insert is
// only an optimization.
const schema = `
CREATE TABLE IF NOT EXISTS locations (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    fingerprint TEXT NOT NULL UNIQUE,
    name        TEXT,
    address     TEXT,
    city        TEXT,
    lat         REAL,
    lon         REAL,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS categories (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS offers (
    id          TEXT PRIMARY KEY,
    external_id TEXT NOT NULL UNIQUE,
    title       TEXT NOT NULL,
    description TEXT,
    summary     TEXT,
    source      TEXT NOT NULL,
    source_name TEXT,
    source_type TEXT NOT NULL DEFAULT 'manual',
    source_url  TEXT,
    dt_start    TIMESTAMP,
    dt_end      TIMESTAMP,
    image       TEXT,
    is_free     INTEGER NOT NULL DEFAULT 0,
    is_outdoor  INTEGER NOT NULL DEFAULT 0,
    status      TEXT NOT NULL DEFAULT 'draft',
    location_id INTEGER REFERENCES locations(id) ON DELETE SET NULL,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_offers_dates    ON offers(dt_start, dt_end);
CREATE INDEX IF NOT EXISTS idx_offers_location ON offers(location_id);

CREATE TABLE IF NOT EXISTS offer_categories (
    offer_id    TEXT NOT NULL REFERENCES offers(id) ON DELETE CASCADE,
    category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    PRIMARY KEY (offer_id, category_id)
);
`

// Migrate applies the embedded schema.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
