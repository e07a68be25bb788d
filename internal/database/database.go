package database

import (
	"context"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
)

// Connect opens the Postgres pool configured by DB_DSN.
func Connect() (*sqlx.DB, error) {
	dsn := viper.GetString("DB_DSN")
	return sqlx.Connect("pgx", dsn)
}

// schema bootstraps the three tables the pipeline relies on. The sample
// constraints are load-bearing: the unique key is the sole concurrency
// control for ingestion, and the checks mirror the normalizer's filters.
const schema = `
CREATE TABLE IF NOT EXISTS weather_stations (
	id         BIGSERIAL PRIMARY KEY,
	code       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS hydropower_plants (
	id         BIGSERIAL PRIMARY KEY,
	code       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	station_id BIGINT REFERENCES weather_stations(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rainfall_6min (
	id          BIGSERIAL PRIMARY KEY,
	station_id  BIGINT NOT NULL REFERENCES weather_stations(id) ON DELETE CASCADE,
	ts_utc      TIMESTAMPTZ NOT NULL,
	rainfall_mm DOUBLE PRECISION NOT NULL,
	CONSTRAINT uniq_station_ts UNIQUE (station_id, ts_utc),
	CONSTRAINT chk_6min_aligned CHECK (MOD((EXTRACT(EPOCH FROM ts_utc))::int, 360) = 0),
	CONSTRAINT chk_rain_nonneg CHECK (rainfall_mm >= 0)
);

CREATE INDEX IF NOT EXISTS idx_rain_station_ts ON rainfall_6min (station_id, ts_utc);
CREATE INDEX IF NOT EXISTS idx_rain_ts ON rainfall_6min (ts_utc);
`

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
