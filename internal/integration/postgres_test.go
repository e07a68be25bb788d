//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hppeng/hpp-platform/internal/database"
	"github.com/hppeng/hpp-platform/internal/domain"
	"github.com/hppeng/hpp-platform/internal/repository"
)

// startPostgres runs a disposable Postgres and hands back a pool with the
// schema applied.
func startPostgres(ctx context.Context, t *testing.T) *sqlx.DB {
	t.Helper()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("hpp"),
		tcpostgres.WithUsername("hpp"),
		tcpostgres.WithPassword("hpp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.EnsureSchema(ctx, db))
	return db
}

func TestUpsertSamplesIdempotent(t *testing.T) {
	ctx := context.Background()
	db := startPostgres(ctx, t)
	repos := repository.New(db)

	station, err := repos.CreateStation(ctx, "10000001", "Ajaccio")
	require.NoError(t, err)

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	recs := []domain.Record{
		{TS: day.Add(6 * time.Minute), Millimeters: 0.4},
		{TS: day.Add(12 * time.Minute), Millimeters: 0},
		{TS: day.Add(18 * time.Minute), Millimeters: 1.2},
	}

	n, err := repos.UpsertSamples(ctx, station.ID, recs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Replaying the batch with an altered value must not overwrite: the
	// conflicting rows are skipped and the first write wins.
	recs[2].Millimeters = 9.9
	n, err = repos.UpsertSamples(ctx, station.ID, recs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	points, err := repos.QueryRain(ctx, station.ID, day, day.Add(24*time.Hour), domain.GranularityNative)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 1.2, points[2].Millimeters)

	daily, err := repos.QueryRain(ctx, station.ID, day, day.Add(24*time.Hour), domain.GranularityDay)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.InDelta(t, 1.6, daily[0].Millimeters, 1e-9)
}

func TestUpsertSamplesRejectsUnaligned(t *testing.T) {
	ctx := context.Background()
	db := startPostgres(ctx, t)
	repos := repository.New(db)

	station, err := repos.CreateStation(ctx, "10000001", "Ajaccio")
	require.NoError(t, err)

	off := time.Date(2024, 1, 15, 0, 5, 0, 0, time.UTC)
	_, err = repos.UpsertSamples(ctx, station.ID, []domain.Record{{TS: off, Millimeters: 0.2}})
	assert.Error(t, err)
}

func TestStationDeleteCascadesAndDetachesPlants(t *testing.T) {
	ctx := context.Background()
	db := startPostgres(ctx, t)
	repos := repository.New(db)

	station, err := repos.CreateStation(ctx, "20000002", "Bastia")
	require.NoError(t, err)
	_, err = repos.CreatePlant(ctx, "GOLO1", "Golo", &station.ID)
	require.NoError(t, err)

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err = repos.UpsertSamples(ctx, station.ID, []domain.Record{
		{TS: day.Add(6 * time.Minute), Millimeters: 0.4},
	})
	require.NoError(t, err)

	require.NoError(t, repos.DeleteStation(ctx, station.ID))

	// Samples go with the station; the plant survives detached.
	var rows int
	require.NoError(t, db.GetContext(ctx, &rows,
		`SELECT COUNT(*) FROM rainfall_6min WHERE station_id = $1`, station.ID))
	assert.Zero(t, rows)

	plant, err := repos.GetPlantByCode(ctx, "GOLO1")
	require.NoError(t, err)
	assert.Nil(t, plant.StationID)
}

func TestCreateStationDuplicateCodeConflicts(t *testing.T) {
	ctx := context.Background()
	db := startPostgres(ctx, t)
	repos := repository.New(db)

	_, err := repos.CreateStation(ctx, "30000003", "Corte")
	require.NoError(t, err)
	_, err = repos.CreateStation(ctx, "30000003", "Corte bis")
	require.ErrorIs(t, err, domain.ErrConflict)
}
