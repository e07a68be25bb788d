package domain

import "time"

// WeatherStation is a rain gauge known to the platform. ID is the stable
// internal key; Code is the provider's station identifier and may change.
type WeatherStation struct {
	ID        int64     `db:"id" json:"id"`
	Code      string    `db:"code" json:"weather_station_code"`
	Name      string    `db:"name" json:"weather_station_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HydropowerPlant optionally references one WeatherStation by internal id.
// The reference is weak: deleting the station nulls it out.
type HydropowerPlant struct {
	ID        int64     `db:"id" json:"id"`
	Code      string    `db:"code" json:"hpp_code"`
	Name      string    `db:"name" json:"hpp_name"`
	StationID *int64    `db:"station_id" json:"weather_station_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RainfallSample is one stored 6-minute measurement. Samples are written
// only by the ingestion pipeline and never updated in place.
type RainfallSample struct {
	StationID   int64     `db:"station_id" json:"station_id"`
	TS          time.Time `db:"ts_utc" json:"ts_utc"`
	Millimeters float64   `db:"rainfall_mm" json:"mm"`
}

// Record is a canonical (UTC timestamp, millimeters) pair produced by the
// normalizer, ready for storage.
type Record struct {
	TS          time.Time
	Millimeters float64
}

// RainPoint is one row of a range query: a raw sample at native
// granularity, or a bucket start plus summed millimeters when bucketed.
type RainPoint struct {
	TS          time.Time `db:"ts_utc" json:"ts_utc"`
	Millimeters float64   `db:"mm" json:"mm"`
}

// StationStats are the read-only diagnostics exposed per station.
type StationStats struct {
	StationID   int64      `json:"station_id"`
	StationCode string     `json:"station_code"`
	Rows        int64      `json:"rows"`
	MinTS       *time.Time `json:"min_ts"`
	MaxTS       *time.Time `json:"max_ts"`
}

// Granularity selects the resolution of a rain range query.
type Granularity string

const (
	GranularityNative Granularity = "6min"
	GranularityHour   Granularity = "hour"
	GranularityDay    Granularity = "day"
)

// ParseGranularity maps a query-string step to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityNative, GranularityHour, GranularityDay:
		return Granularity(s), nil
	}
	return "", Validationf("step must be one of 6min, hour, day; got %q", s)
}

// Aligned reports whether ts sits on a 6-minute boundary.
func Aligned(ts time.Time) bool {
	return ts.Second() == 0 && ts.Nanosecond() == 0 && ts.Minute()%6 == 0
}
