package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hppeng/hpp-platform/internal/domain"
)

func (r *Repos) CreateStation(ctx context.Context, code, name string) (domain.WeatherStation, error) {
	var s domain.WeatherStation
	err := r.db.GetContext(ctx, &s,
		`INSERT INTO weather_stations (code, name) VALUES ($1, $2)
		 RETURNING id, code, name, created_at`, code, name)
	if err != nil {
		return domain.WeatherStation{}, mapConflict(err)
	}
	return s, nil
}

func (r *Repos) ListStations(ctx context.Context) ([]domain.WeatherStation, error) {
	var out []domain.WeatherStation
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, code, name, created_at FROM weather_stations ORDER BY id`)
	return out, err
}

func (r *Repos) GetStationByCode(ctx context.Context, code string) (domain.WeatherStation, error) {
	var s domain.WeatherStation
	err := r.db.GetContext(ctx, &s,
		`SELECT id, code, name, created_at FROM weather_stations WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WeatherStation{}, fmt.Errorf("station %q: %w", code, domain.ErrNotFound)
	}
	return s, err
}

func (r *Repos) GetStationByID(ctx context.Context, id int64) (domain.WeatherStation, error) {
	var s domain.WeatherStation
	err := r.db.GetContext(ctx, &s,
		`SELECT id, code, name, created_at FROM weather_stations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WeatherStation{}, fmt.Errorf("station id %d: %w", id, domain.ErrNotFound)
	}
	return s, err
}

func (r *Repos) RenameStation(ctx context.Context, id int64, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE weather_stations SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repos) RecodeStation(ctx context.Context, id int64, code string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE weather_stations SET code = $2 WHERE id = $1`, id, code)
	if err != nil {
		return mapConflict(err)
	}
	return requireRow(res)
}

// DeleteStation removes the station; the schema cascades its samples away
// and nulls any plant references.
func (r *Repos) DeleteStation(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM weather_stations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
