package models

import (
	"database/sql"
	"time"
)

// Location is a named point the nightly ETL fetches weather for.
// Locations are seeded by configuration and never mutated by the pipeline.
type Location struct {
	ID        int64
	CityName  string
	Latitude  float64
	Longitude float64
	Timezone  sql.NullString // IANA name; empty means the configured default
	Active    bool
}

// WeatherLog is one normalized observation for a location. Each ETL run
// appends a new row; rows are never updated in place.
type WeatherLog struct {
	ID         int64
	LocationID int64

	// Local observation time serialized as "2006-01-02 15:04:05+01:00".
	DtISO string

	Temp               float64
	TempMin            float64
	TempMax            float64
	Pressure           float64
	Humidity           int64
	WindSpeed          float64
	WindDeg            int64
	Rain1h             float64
	Rain3h             float64
	Snow3h             float64
	CloudsAll          int64
	WeatherID          int64 // WMO code as reported upstream
	WeatherMain        string
	WeatherDescription string
	WeatherIcon        string

	CreatedAt time.Time
}

// Prediction links a model score to the weather log it was computed from.
// Created only when both the log persisted and scoring succeeded.
type Prediction struct {
	ID           int64
	WeatherLogID int64
	Score        float64
	CreatedAt    time.Time
}

// Outcome classifies how a single location fared within a batch run.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"      // observation and prediction persisted
	OutcomePartial Outcome = "partial" // observation persisted, prediction skipped
	OutcomeFailed  Outcome = "failed"  // nothing persisted
)

// LocationResult records the outcome for one location in a batch run.
type LocationResult struct {
	CityName string
	Outcome  Outcome
	Err      error
}

// RunSummary accumulates per-location outcomes for one batch run.
type RunSummary struct {
	Succeeded int
	Partial   int
	Failed    int
	Results   []LocationResult
}

func (s *RunSummary) Record(city string, outcome Outcome, err error) {
	switch outcome {
	case OutcomeOK:
		s.Succeeded++
	case OutcomePartial:
		s.Partial++
	default:
		s.Failed++
	}
	s.Results = append(s.Results, LocationResult{CityName: city, Outcome: outcome, Err: err})
}

func (s *RunSummary) Total() int {
	return s.Succeeded + s.Partial + s.Failed
}
