// Package etl drives the nightly batch: fetch, normalize, persist, and score
// every active location in sequence.
package etl

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pwalczak/meteolog/internal/metrics"
	"github.com/pwalczak/meteolog/internal/models"
	"github.com/pwalczak/meteolog/internal/openmeteo"
	"github.com/pwalczak/meteolog/internal/predict"
	"github.com/pwalczak/meteolog/internal/transform"
)

// DefaultDelay is the fixed pause after every location, successful or not,
// to stay inside the upstream rate limits.
const DefaultDelay = 1 * time.Second

// Store is the persistence surface the runner needs.
type Store interface {
	GetActiveLocations() ([]models.Location, error)
	InsertWeatherLog(*models.WeatherLog) error
	InsertPrediction(*models.Prediction) error
	predict.MappingStore
}

// Fetcher pulls a raw forecast for one location.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64, timezone string) (*openmeteo.ForecastResponse, error)
}

// ArtifactLoader loads the scoring model bundle at run start.
type ArtifactLoader func() (*predict.Artifact, error)

type Runner struct {
	store           Store
	fetcher         Fetcher
	loadArtifact    ArtifactLoader
	defaultTimezone string
	delay           time.Duration
	skipPredictions bool
}

func NewRunner(st Store, fetcher Fetcher, loadArtifact ArtifactLoader, defaultTimezone string) *Runner {
	return &Runner{
		store:           st,
		fetcher:         fetcher,
		loadArtifact:    loadArtifact,
		defaultTimezone: defaultTimezone,
		delay:           DefaultDelay,
	}
}

// SetDelay overrides the fixed inter-location pause.
func (r *Runner) SetDelay(d time.Duration) {
	r.delay = d
}

// SetSkipPredictions disables the model stage entirely: no model is loaded
// and only observations are persisted.
func (r *Runner) SetSkipPredictions(skip bool) {
	r.skipPredictions = skip
}

// Run executes one batch over all active locations. Model-load failure is the
// only fatal outcome; every per-location failure is caught, counted, and the
// loop moves on.
func (r *Runner) Run(ctx context.Context) (*models.RunSummary, error) {
	var scorer predict.Scorer
	var encoder *predict.Encoder

	if !r.skipPredictions {
		artifact, err := r.loadArtifact()
		if err != nil {
			metrics.ETLRunsTotal.WithLabelValues("aborted").Inc()
			return nil, fmt.Errorf("load scoring model: %w", err)
		}
		scorer = artifact.Model()
		// Encoder construction downgrades on its own: a broken mapping store
		// or absent artifact encoders means synthesized fallbacks, not an
		// aborted run.
		encoder = predict.NewEncoder(artifact.Joint(), artifact.Columns, r.store)
	}

	locations, err := r.store.GetActiveLocations()
	if err != nil {
		metrics.ETLRunsTotal.WithLabelValues("aborted").Inc()
		return nil, fmt.Errorf("load active locations: %w", err)
	}
	log.Printf("etl: starting run for %d locations", len(locations))

	summary := &models.RunSummary{}
	for _, loc := range locations {
		outcome, err := r.processLocation(ctx, loc, encoder, scorer)
		if err != nil {
			log.Printf("etl: %s: %s: %v", loc.CityName, outcome, err)
		} else {
			log.Printf("etl: %s: %s", loc.CityName, outcome)
		}
		summary.Record(loc.CityName, outcome, err)

		select {
		case <-ctx.Done():
			log.Printf("etl: run cancelled after %d locations", summary.Total())
			metrics.ETLRunsTotal.WithLabelValues("cancelled").Inc()
			return summary, ctx.Err()
		case <-time.After(r.delay):
		}
	}

	log.Printf("etl: run complete: %d ok, %d partial, %d failed", summary.Succeeded, summary.Partial, summary.Failed)
	if summary.Failed > 0 || summary.Partial > 0 {
		metrics.ETLRunsTotal.WithLabelValues("with_failures").Inc()
	} else {
		metrics.ETLRunsTotal.WithLabelValues("ok").Inc()
	}
	return summary, nil
}

func (r *Runner) processLocation(ctx context.Context, loc models.Location, encoder *predict.Encoder, scorer predict.Scorer) (models.Outcome, error) {
	tzName := r.defaultTimezone
	if loc.Timezone.Valid && loc.Timezone.String != "" {
		tzName = loc.Timezone.String
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return models.OutcomeFailed, fmt.Errorf("load timezone %q: %w", tzName, err)
	}

	raw, err := r.fetcher.Fetch(ctx, loc.Latitude, loc.Longitude, tzName)
	if err != nil {
		return models.OutcomeFailed, err
	}

	wl, err := transform.Normalize(raw, tz)
	if err != nil {
		return models.OutcomeFailed, err
	}

	if flags := transform.Validate(wl); len(flags) > 0 {
		log.Printf("etl: %s: quality flags: %v", loc.CityName, flags)
	}

	transform.Canonicalize(wl)
	wl.LocationID = loc.ID

	if err := r.store.InsertWeatherLog(wl); err != nil {
		// Without a persisted observation there is nothing to link a
		// prediction to, so the scoring stage is skipped outright.
		return models.OutcomeFailed, fmt.Errorf("persist weather log: %w", err)
	}
	metrics.WeatherLogsWritten.Inc()

	if scorer == nil {
		return models.OutcomeOK, nil
	}

	vec := encoder.Encode(wl)
	score, err := scorer.Score(vec)
	if err != nil {
		return models.OutcomePartial, fmt.Errorf("score: %w", err)
	}

	pred := &models.Prediction{WeatherLogID: wl.ID, Score: score}
	if err := r.store.InsertPrediction(pred); err != nil {
		return models.OutcomePartial, fmt.Errorf("persist prediction: %w", err)
	}
	metrics.PredictionsWritten.Inc()

	return models.OutcomeOK, nil
}
