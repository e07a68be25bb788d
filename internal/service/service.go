package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hppeng/hpp-platform/internal/domain"
	"github.com/hppeng/hpp-platform/internal/observability"
	"github.com/hppeng/hpp-platform/internal/repository"
)

// Extractor fetches a raw provider payload for a station over a half-open
// UTC window. Satisfied by *meteofrance.Client.
type Extractor interface {
	RequestExtract(ctx context.Context, stationCode string, start, end time.Time) ([]byte, error)
}

// Store is the database surface the rain pipeline needs.
type Store interface {
	GetStationByCode(ctx context.Context, code string) (domain.WeatherStation, error)
	GetStationByID(ctx context.Context, id int64) (domain.WeatherStation, error)
	ListStations(ctx context.Context) ([]domain.WeatherStation, error)
	UpsertSamples(ctx context.Context, stationID int64, recs []domain.Record) (int, error)
	QueryRain(ctx context.Context, stationID int64, start, end time.Time, g domain.Granularity) ([]domain.RainPoint, error)
	StationStats(ctx context.Context, station domain.WeatherStation) (domain.StationStats, error)
}

// Notifier receives fan-out run reports; nil disables publishing.
type Notifier interface {
	PublishRunReports(reports []RunReport)
}

// Services bundles everything the HTTP layer depends on.
type Services struct {
	Repos *repository.Repos
	Rain  *RainService
}

func New(repos *repository.Repos, client Extractor, apiKey string, metrics *observability.Metrics, notifier Notifier) *Services {
	return &Services{
		Repos: repos,
		Rain: &RainService{
			store:    repos,
			client:   client,
			apiKey:   apiKey,
			metrics:  metrics,
			notifier: notifier,
			clock:    clockwork.NewRealClock(),
		},
	}
}
