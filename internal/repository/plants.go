package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hppeng/hpp-platform/internal/domain"
)

func (r *Repos) CreatePlant(ctx context.Context, code, name string, stationID *int64) (domain.HydropowerPlant, error) {
	var p domain.HydropowerPlant
	err := r.db.GetContext(ctx, &p,
		`INSERT INTO hydropower_plants (code, name, station_id) VALUES ($1, $2, $3)
		 RETURNING id, code, name, station_id, created_at, updated_at`, code, name, stationID)
	if err != nil {
		return domain.HydropowerPlant{}, mapConflict(err)
	}
	return p, nil
}

func (r *Repos) ListPlants(ctx context.Context) ([]domain.HydropowerPlant, error) {
	var out []domain.HydropowerPlant
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, code, name, station_id, created_at, updated_at
		 FROM hydropower_plants ORDER BY id`)
	return out, err
}

func (r *Repos) GetPlantByCode(ctx context.Context, code string) (domain.HydropowerPlant, error) {
	var p domain.HydropowerPlant
	err := r.db.GetContext(ctx, &p,
		`SELECT id, code, name, station_id, created_at, updated_at
		 FROM hydropower_plants WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HydropowerPlant{}, fmt.Errorf("plant %q: %w", code, domain.ErrNotFound)
	}
	return p, err
}

func (r *Repos) RenamePlant(ctx context.Context, id int64, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE hydropower_plants SET name = $2, updated_at = now() WHERE id = $1`, id, name)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RelinkPlant points the plant at another station, or detaches it when
// stationID is nil.
func (r *Repos) RelinkPlant(ctx context.Context, id int64, stationID *int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE hydropower_plants SET station_id = $2, updated_at = now() WHERE id = $1`, id, stationID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repos) RecodePlant(ctx context.Context, id int64, code string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE hydropower_plants SET code = $2, updated_at = now() WHERE id = $1`, id, code)
	if err != nil {
		return mapConflict(err)
	}
	return requireRow(res)
}

func (r *Repos) DeletePlant(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM hydropower_plants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
