package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/pwalczak/meteolog/internal/api"
	"github.com/pwalczak/meteolog/internal/etl"
	"github.com/pwalczak/meteolog/internal/flops"
	"github.com/pwalczak/meteolog/internal/models"
	"github.com/pwalczak/meteolog/internal/openmeteo"
	"github.com/pwalczak/meteolog/internal/predict"
	"github.com/pwalczak/meteolog/internal/schedule"
	"github.com/pwalczak/meteolog/internal/store"
	"github.com/pwalczak/meteolog/internal/transform"
)

type Globals struct {
	DB       string `help:"Path to the SQLite database." default:"data/meteolog.db" env:"METEOLOG_DB"`
	Model    string `help:"Path to the scoring model artifact." default:"data/model.json" env:"METEOLOG_MODEL"`
	Timezone string `help:"Default IANA timezone for locations without one." default:"Europe/Warsaw" env:"METEOLOG_TZ"`
}

type CLI struct {
	Globals

	ETL     ETLCmd     `cmd:"" help:"Run one batch over all active locations and exit."`
	Serve   ServeCmd   `cmd:"" help:"Run the HTTP server with the nightly ETL schedule."`
	Lookup  LookupCmd  `cmd:"" help:"Fetch, normalize, and score weather for a city without persisting."`
	Analyze AnalyzeCmd `cmd:"" help:"Estimate FLOPs for a free-text project description."`
	Seed    SeedCmd    `cmd:"" help:"Add or update a location in the store."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("meteolog"),
		kong.Description("Weather ETL pipeline with an attached prediction stage."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli.Globals))
}

type ETLCmd struct {
	Delay           time.Duration `help:"Pause after each location." default:"1s" env:"METEOLOG_ETL_DELAY"`
	SkipPredictions bool          `help:"Extract, transform, and load only."`
}

func (c *ETLCmd) Run(g *Globals) error {
	st, db, err := store.Open(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	runner := etl.NewRunner(st, openmeteo.NewClient(), func() (*predict.Artifact, error) {
		return predict.LoadArtifact(g.Model)
	}, g.Timezone)
	runner.SetDelay(c.Delay)
	runner.SetSkipPredictions(c.SkipPredictions)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("processed %d locations: %d ok, %d partial, %d failed\n",
		summary.Total(), summary.Succeeded, summary.Partial, summary.Failed)
	return nil
}

type ServeCmd struct {
	Port       string `help:"HTTP server port." default:"8080" env:"PORT"`
	At         string `help:"Local time of the nightly ETL run (HH:MM)." default:"02:00" env:"METEOLOG_ETL_AT"`
	NoSchedule bool   `help:"Disable the nightly ETL (server only, for local dev)."`
}

func (c *ServeCmd) Run(g *Globals) error {
	st, db, err := store.Open(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		log.Printf("could not load timezone %q, using UTC: %v", g.Timezone, err)
		loc = time.UTC
	}

	client := openmeteo.NewClient()

	// The ad-hoc lookup path degrades without a model; only the batch treats
	// a missing artifact as fatal.
	var scorer predict.Scorer
	var encoder *predict.Encoder
	if artifact, err := predict.LoadArtifact(g.Model); err != nil {
		log.Printf("predictions disabled: %v", err)
	} else {
		scorer = artifact.Model()
		// Ad-hoc requests keep synthesized mappings in-memory, like lookup:
		// only the nightly batch writes the persisted encoder vocabulary.
		encoder = predict.NewEncoder(artifact.Joint(), artifact.Columns, nil)
	}

	var analyzer *flops.Analyzer
	if a, err := flops.NewAnalyzer(); err != nil {
		log.Printf("analysis disabled: %v", err)
	} else {
		analyzer = a
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !c.NoSchedule {
		runner := etl.NewRunner(st, client, func() (*predict.Artifact, error) {
			return predict.LoadArtifact(g.Model)
		}, g.Timezone)
		nightly := schedule.NewNightly(runner, c.At, loc)
		if err := nightly.Start(ctx); err != nil {
			return fmt.Errorf("start schedule: %w", err)
		}
		defer nightly.Stop()
		log.Printf("nightly etl scheduled at %s %s", c.At, loc)
	} else {
		log.Println("nightly etl disabled (--no-schedule)")
	}

	server := api.NewServer(client, scorer, encoder, analyzer, c.Port)
	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

type LookupCmd struct {
	City []string `arg:"" help:"City name to look up."`
}

func (c *LookupCmd) Run(g *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := openmeteo.NewClient()
	city := strings.Join(c.City, " ")

	place, err := client.Geocode(ctx, city)
	if err != nil {
		return err
	}
	if place == nil {
		return fmt.Errorf("no match for %q", city)
	}

	raw, err := client.Fetch(ctx, place.Latitude, place.Longitude, place.Timezone)
	if err != nil {
		return err
	}

	tz, err := time.LoadLocation(place.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", place.Timezone, err)
	}

	wl, err := transform.Normalize(raw, tz)
	if err != nil {
		return err
	}
	transform.Canonicalize(wl)

	out := map[string]any{
		"city":     place.Name,
		"timezone": place.Timezone,
		"weather":  wl,
	}

	// Score without persisting: the lookup path never touches the store, so
	// fallback mappings synthesized here stay in-memory.
	if artifact, err := predict.LoadArtifact(g.Model); err != nil {
		log.Printf("prediction skipped: %v", err)
	} else {
		encoder := predict.NewEncoder(artifact.Joint(), artifact.Columns, nil)
		if score, err := artifact.Model().Score(encoder.Encode(wl)); err != nil {
			log.Printf("prediction skipped: %v", err)
		} else {
			out["prediction"] = score
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type AnalyzeCmd struct {
	Text []string `arg:"" help:"Project description to estimate FLOPs for."`
}

func (c *AnalyzeCmd) Run(g *Globals) error {
	analyzer, err := flops.NewAnalyzer()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	compute, description := analyzer.Analyze(ctx, strings.Join(c.Text, " "))
	fmt.Printf("estimated FLOPs: %.0f\n\n%s\n", compute, description)
	return nil
}

type SeedCmd struct {
	City     string  `arg:"" help:"City name."`
	Lat      float64 `help:"Latitude." required:""`
	Lon      float64 `help:"Longitude." required:""`
	TZ       string  `help:"IANA timezone for this location."`
	Inactive bool    `help:"Seed the location as inactive."`
}

func (c *SeedCmd) Run(g *Globals) error {
	st, db, err := store.Open(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	loc := models.Location{
		CityName:  c.City,
		Latitude:  c.Lat,
		Longitude: c.Lon,
		Active:    !c.Inactive,
	}
	if c.TZ != "" {
		loc.Timezone = sql.NullString{String: c.TZ, Valid: true}
	}
	if err := st.UpsertLocation(loc); err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}
	log.Printf("seeded location %s (%.4f, %.4f)", c.City, c.Lat, c.Lon)
	return nil
}
