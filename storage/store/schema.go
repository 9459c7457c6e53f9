package store

// schemaStatements create the tables the traceability core reads and writes.
// contracts and farmers are owned by other services; they are created here only
// so a fresh database can serve lookups.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS farmers (
		id         TEXT PRIMARY KEY,
		full_name  TEXT NOT NULL,
		location   TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id            TEXT PRIMARY KEY,
		contract_code TEXT NOT NULL UNIQUE,
		farmer_id     TEXT NOT NULL DEFAULT '',
		buyer_name    TEXT NOT NULL DEFAULT '',
		crop_type     TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS batches (
		id                TEXT PRIMARY KEY,
		batch_code        TEXT NOT NULL UNIQUE,
		crop_type         TEXT NOT NULL,
		variety           TEXT NOT NULL DEFAULT '',
		total_quantity    DOUBLE PRECISION NOT NULL DEFAULT 0,
		unit              TEXT NOT NULL DEFAULT 'kg',
		quality_grade     TEXT NOT NULL DEFAULT '',
		organic_certified BOOLEAN NOT NULL DEFAULT FALSE,
		harvest_date      TIMESTAMPTZ,
		current_status    TEXT NOT NULL,
		current_location  TEXT NOT NULL DEFAULT '',
		location_lat      DOUBLE PRECISION,
		location_lng      DOUBLE PRECISION,
		contract_id       TEXT,
		farmer_id         TEXT,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_batches_contract ON batches (contract_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_batches_farmer ON batches (farmer_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS traceability_events (
		seq                 BIGSERIAL,
		id                  TEXT PRIMARY KEY,
		batch_id            TEXT NOT NULL REFERENCES batches (id),
		contract_id         TEXT,
		farmer_id           TEXT,
		event_type          TEXT NOT NULL,
		event_title         TEXT NOT NULL,
		event_description   TEXT NOT NULL DEFAULT '',
		actor_id            TEXT NOT NULL DEFAULT '',
		actor_type          TEXT NOT NULL DEFAULT '',
		actor_name          TEXT NOT NULL DEFAULT '',
		location_lat        DOUBLE PRECISION,
		location_lng        DOUBLE PRECISION,
		location_address    TEXT NOT NULL DEFAULT '',
		photos              TEXT[] NOT NULL DEFAULT '{}',
		documents           TEXT[] NOT NULL DEFAULT '{}',
		ipfs_hash           TEXT NOT NULL DEFAULT '',
		blockchain_tx       TEXT NOT NULL DEFAULT '',
		detail_kind         TEXT NOT NULL DEFAULT '',
		details             JSONB,
		event_hash          TEXT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL,
		anchor_status       TEXT NOT NULL DEFAULT 'PENDING',
		anchor_attempts     INT NOT NULL DEFAULT 0,
		anchor_error        TEXT NOT NULL DEFAULT '',
		anchor_tx_hash      TEXT NOT NULL DEFAULT '',
		anchor_block_height BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_batch ON traceability_events (batch_id, created_at, seq)`,
	`CREATE TABLE IF NOT EXISTS processing_results (
		batch_id   TEXT PRIMARY KEY REFERENCES batches (id),
		data       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS growth_activities (
		id            TEXT PRIMARY KEY,
		contract_id   TEXT NOT NULL,
		farmer_id     TEXT NOT NULL,
		batch_id      TEXT,
		activity_type TEXT NOT NULL,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		activity_date TIMESTAMPTZ NOT NULL,
		quantity      DOUBLE PRECISION,
		unit          TEXT NOT NULL DEFAULT '',
		fertilizer    JSONB,
		dispatch      JSONB,
		photos        TEXT[] NOT NULL DEFAULT '{}',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_contract ON growth_activities (contract_id, activity_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_farmer ON growth_activities (farmer_id, activity_date DESC)`,
}
