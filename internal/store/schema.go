package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the tables used by Postgres. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS specimens (
	id                 UUID PRIMARY KEY,
	owner_id           TEXT NOT NULL,
	import_id          UUID,

	species            TEXT NOT NULL,
	genus              TEXT,
	family             TEXT,
	taxon_order        TEXT,
	taxon_class        TEXT,
	phylum             TEXT,
	common_name        TEXT,

	inventory_id       TEXT,
	element            TEXT,
	description        TEXT,

	era                TEXT,
	period             TEXT,
	epoch              TEXT,
	age                TEXT,
	formation          TEXT,

	locality           TEXT,
	country            TEXT,
	region             TEXT,
	latitude           DOUBLE PRECISION,
	longitude          DOUBLE PRECISION,
	discovery_date     DATE,
	collector          TEXT,

	width              DOUBLE PRECISION,
	height             DOUBLE PRECISION,
	length             DOUBLE PRECISION,
	size_unit          TEXT NOT NULL DEFAULT 'MM',
	weight             DOUBLE PRECISION,
	weight_unit        TEXT NOT NULL DEFAULT 'GR',

	acquisition_date   DATE,
	acquisition_method TEXT,
	acquired_from      TEXT,
	condition          TEXT,

	purchase_price     DOUBLE PRECISION,
	estimated_value    DOUBLE PRECISION,
	currency           TEXT NOT NULL DEFAULT 'USD',

	tags               TEXT[] NOT NULL DEFAULT '{}',
	notes              TEXT,
	storage_location   TEXT,

	is_favorite        BOOLEAN NOT NULL DEFAULT FALSE,
	image_urls         TEXT[] NOT NULL DEFAULT '{}',
	is_public          BOOLEAN NOT NULL DEFAULT FALSE,
	share_url          TEXT NOT NULL DEFAULT '',

	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS specimens_owner_inventory_idx
	ON specimens (owner_id, inventory_id) WHERE inventory_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS specimens_import_idx ON specimens (import_id);

CREATE TABLE IF NOT EXISTS import_history (
	import_id           UUID PRIMARY KEY,
	owner_id            TEXT NOT NULL,
	source_name         TEXT NOT NULL,
	total_processed     INTEGER NOT NULL,
	success_count       INTEGER NOT NULL,
	failed_count        INTEGER NOT NULL,
	skipped_count       INTEGER NOT NULL,
	duration_ms         BIGINT NOT NULL,
	cancelled           BOOLEAN NOT NULL DEFAULT FALSE,
	warnings            JSONB NOT NULL DEFAULT '[]',
	failed_rows         JSONB NOT NULL DEFAULT '[]',
	imported_record_ids TEXT[] NOT NULL DEFAULT '{}',
	imported_rows       JSONB NOT NULL DEFAULT '[]',
	started_at          TIMESTAMPTZ NOT NULL,
	completed_at        TIMESTAMPTZ NOT NULL,
	rolled_back_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS import_history_owner_idx ON import_history (owner_id, completed_at DESC);

CREATE TABLE IF NOT EXISTS mapping_presets (
	id          UUID PRIMARY KEY,
	owner_id    TEXT NOT NULL,
	name        TEXT NOT NULL,
	headers     TEXT[] NOT NULL,
	columns     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (owner_id, name)
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
