package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hppeng/hpp-platform/internal/domain"
)

// UpsertSamples writes canonical records in one conflict-aware batch
// insert. Rows whose (station, timestamp) key already exists are silently
// skipped, never overwritten. The returned count is how many rows were
// attempted; Postgres does not report how many conflicts were absorbed.
func (r *Repos) UpsertSamples(ctx context.Context, stationID int64, recs []domain.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, 0, len(recs))
	args := make([]any, 0, len(recs)*3)
	for i, rec := range recs {
		placeholders = append(placeholders, fmt.Sprintf("($%d,$%d,$%d)", i*3+1, i*3+2, i*3+3))
		args = append(args, stationID, rec.TS.UTC(), rec.Millimeters)
	}

	query := `INSERT INTO rainfall_6min (station_id, ts_utc, rainfall_mm) VALUES ` +
		strings.Join(placeholders, ",") +
		` ON CONFLICT (station_id, ts_utc) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("upsert rainfall: %w", err)
	}
	return len(recs), nil
}

// QueryRain returns samples for [start, end) at the requested resolution.
// Native granularity yields raw rows; hour/day yields per-bucket sums.
// Range validation is the caller's job.
func (r *Repos) QueryRain(ctx context.Context, stationID int64, start, end time.Time, g domain.Granularity) ([]domain.RainPoint, error) {
	var out []domain.RainPoint

	if g == domain.GranularityNative {
		err := r.db.SelectContext(ctx, &out,
			`SELECT ts_utc, rainfall_mm AS mm
			 FROM rainfall_6min
			 WHERE station_id = $1 AND ts_utc >= $2 AND ts_utc < $3
			 ORDER BY ts_utc`, stationID, start, end)
		return out, err
	}

	// Only the fixed trunc units below ever reach the query text.
	var unit string
	switch g {
	case domain.GranularityHour:
		unit = "hour"
	case domain.GranularityDay:
		unit = "day"
	default:
		return nil, fmt.Errorf("query rain: unsupported granularity %q", g)
	}

	query := fmt.Sprintf(
		`SELECT date_trunc('%s', ts_utc) AS ts_utc, SUM(rainfall_mm) AS mm
		 FROM rainfall_6min
		 WHERE station_id = $1 AND ts_utc >= $2 AND ts_utc < $3
		 GROUP BY 1
		 ORDER BY 1`, unit)
	err := r.db.SelectContext(ctx, &out, query, stationID, start, end)
	return out, err
}

// StationStats reports row count and timestamp extent for one station.
func (r *Repos) StationStats(ctx context.Context, station domain.WeatherStation) (domain.StationStats, error) {
	stats := domain.StationStats{StationID: station.ID, StationCode: station.Code}
	row := r.db.QueryRowxContext(ctx,
		`SELECT COUNT(*), MIN(ts_utc), MAX(ts_utc)
		 FROM rainfall_6min WHERE station_id = $1`, station.ID)
	if err := row.Scan(&stats.Rows, &stats.MinTS, &stats.MaxTS); err != nil {
		return domain.StationStats{}, err
	}
	return stats, nil
}
