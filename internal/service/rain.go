package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hppeng/hpp-platform/internal/domain"
	"github.com/hppeng/hpp-platform/internal/observability"
	"github.com/hppeng/hpp-platform/internal/pipeline"
)

// RainService drives the ingestion pipeline: fetch a station's extract,
// normalize it, and store it with conflict-skipping writes.
type RainService struct {
	store    Store
	client   Extractor
	apiKey   string
	metrics  *observability.Metrics
	notifier Notifier
	clock    clockwork.Clock
}

// RunOutcome describes one successful single-station run. RowsAttempted
// counts insert attempts, not rows actually written; conflicts with
// already-stored samples are silently absorbed.
type RunOutcome struct {
	StationID     int64  `json:"station_id"`
	StationCode   string `json:"station_code"`
	RowsSeen      int    `json:"rows_seen"`
	RowsAttempted int    `json:"rows_attempted"`
}

// RunReport is one entry of a fan-out run: an outcome or a captured
// per-station error, never both.
type RunReport struct {
	StationCode string      `json:"station_code"`
	Outcome     *RunOutcome `json:"outcome,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// FetchAndStoreForStation ingests one UTC calendar day for one station,
// identified by its external code.
func (s *RainService) FetchAndStoreForStation(ctx context.Context, stationCode string, day time.Time) (RunOutcome, error) {
	if s.apiKey == "" {
		return RunOutcome{}, domain.ErrMissingAPIKey
	}

	started := s.clock.Now()
	log.Info().Str("station", stationCode).Str("day", day.Format("2006-01-02")).Msg("rain fetch start")

	station, err := s.store.GetStationByCode(ctx, stationCode)
	if err != nil {
		return RunOutcome{}, err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	raw, err := s.client.RequestExtract(ctx, stationCode, start, end)
	if err != nil {
		s.metrics.IngestRuns.WithLabelValues("error").Inc()
		return RunOutcome{}, err
	}

	recs, err := pipeline.Normalize(raw)
	if err != nil {
		s.metrics.IngestRuns.WithLabelValues("error").Inc()
		return RunOutcome{}, err
	}

	attempted, err := s.store.UpsertSamples(ctx, station.ID, recs)
	if err != nil {
		s.metrics.IngestRuns.WithLabelValues("error").Inc()
		return RunOutcome{}, err
	}

	s.metrics.IngestRuns.WithLabelValues("ok").Inc()
	s.metrics.RowsNormalized.Add(float64(len(recs)))
	s.metrics.RowsAttempted.Add(float64(attempted))
	s.metrics.RunDuration.Observe(s.clock.Since(started).Seconds())

	log.Info().
		Str("station", stationCode).
		Int("rows_seen", len(recs)).
		Int("rows_attempted", attempted).
		Msg("rain fetch done")

	return RunOutcome{
		StationID:     station.ID,
		StationCode:   stationCode,
		RowsSeen:      len(recs),
		RowsAttempted: attempted,
	}, nil
}

// FetchYesterdayForAllStations fans the single-station run out across
// every known station for the previous UTC calendar day. A failing
// station is captured in its report and never aborts the siblings.
func (s *RainService) FetchYesterdayForAllStations(ctx context.Context) ([]RunReport, error) {
	if s.apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}

	day := s.Yesterday()
	stations, err := s.store.ListStations(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]RunReport, 0, len(stations))
	for _, station := range stations {
		outcome, err := s.FetchAndStoreForStation(ctx, station.Code, day)
		if err != nil {
			log.Error().Err(err).Str("station", station.Code).Msg("rain fetch failed")
			reports = append(reports, RunReport{StationCode: station.Code, Error: err.Error()})
			continue
		}
		reports = append(reports, RunReport{StationCode: station.Code, Outcome: &outcome})
	}

	if s.notifier != nil {
		s.notifier.PublishRunReports(reports)
	}
	return reports, nil
}

// Yesterday is the previous UTC calendar day at midnight.
func (s *RainService) Yesterday() time.Time {
	return s.clock.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
}

// QueryRain resolves a station reference (external code or internal id,
// exactly one) and returns samples over [start, end) at the requested
// granularity.
func (s *RainService) QueryRain(ctx context.Context, stationCode string, stationID *int64, start, end time.Time, g domain.Granularity) ([]domain.RainPoint, error) {
	if !start.Before(end) {
		return nil, domain.Validationf("start must be strictly earlier than end")
	}
	switch g {
	case domain.GranularityNative, domain.GranularityHour, domain.GranularityDay:
	default:
		return nil, domain.Validationf("unknown granularity %q", g)
	}

	station, err := s.resolveStation(ctx, stationCode, stationID)
	if err != nil {
		return nil, err
	}
	return s.store.QueryRain(ctx, station.ID, start, end, g)
}

// Stats returns the read-only diagnostics for one station code.
func (s *RainService) Stats(ctx context.Context, stationCode string) (domain.StationStats, error) {
	station, err := s.store.GetStationByCode(ctx, stationCode)
	if err != nil {
		return domain.StationStats{}, err
	}
	return s.store.StationStats(ctx, station)
}

func (s *RainService) resolveStation(ctx context.Context, code string, id *int64) (domain.WeatherStation, error) {
	switch {
	case code != "" && id != nil:
		return domain.WeatherStation{}, domain.Validationf("provide weather_station_code or station_id, not both")
	case code != "":
		return s.store.GetStationByCode(ctx, code)
	case id != nil:
		return s.store.GetStationByID(ctx, *id)
	}
	return domain.WeatherStation{}, domain.Validationf("provide weather_station_code or station_id")
}
