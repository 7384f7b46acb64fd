package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pwalczak/meteolog/internal/flops"
	"github.com/pwalczak/meteolog/internal/models"
	"github.com/pwalczak/meteolog/internal/openmeteo"
	"github.com/pwalczak/meteolog/internal/predict"
	"github.com/pwalczak/meteolog/internal/transform"
)

// Server exposes the ad-hoc lookup and analysis endpoints plus health and
// metrics. The nightly ETL does not go through here.
type Server struct {
	client   *openmeteo.Client
	scorer   predict.Scorer
	encoder  *predict.Encoder
	analyzer *flops.Analyzer
	port     string
}

func NewServer(client *openmeteo.Client, scorer predict.Scorer, encoder *predict.Encoder, analyzer *flops.Analyzer, port string) *Server {
	return &Server{
		client:   client,
		scorer:   scorer,
		encoder:  encoder,
		analyzer: analyzer,
		port:     port,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/weather", s.handleWeather)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Println("api: shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type weatherResponse struct {
	City       string             `json:"city"`
	Timezone   string             `json:"timezone"`
	Weather    *models.WeatherLog `json:"weather"`
	Prediction *float64           `json:"prediction,omitempty"`
}

// handleWeather is the ad-hoc city path: geocode, fetch, normalize, score.
// Nothing is persisted.
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "city query parameter required"})
		return
	}

	place, err := s.client.Geocode(r.Context(), city)
	if err != nil {
		log.Printf("api: geocode %q: %v", city, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "geocoding failed"})
		return
	}
	if place == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "city not found"})
		return
	}

	raw, err := s.client.Fetch(r.Context(), place.Latitude, place.Longitude, place.Timezone)
	if err != nil {
		log.Printf("api: fetch weather for %q: %v", city, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "weather fetch failed"})
		return
	}

	tz, err := time.LoadLocation(place.Timezone)
	if err != nil {
		log.Printf("api: load timezone %q: %v", place.Timezone, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "unknown timezone"})
		return
	}

	wl, err := transform.Normalize(raw, tz)
	if err != nil {
		log.Printf("api: normalize weather for %q: %v", city, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "malformed upstream payload"})
		return
	}
	transform.Canonicalize(wl)

	resp := weatherResponse{City: place.Name, Timezone: place.Timezone, Weather: wl}
	if s.scorer != nil && s.encoder != nil {
		if score, err := s.scorer.Score(s.encoder.Encode(wl)); err == nil {
			resp.Prediction = &score
		} else {
			log.Printf("api: score for %q: %v", city, err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Compute     float64 `json:"compute"`
	Description string  `json:"description"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analysis disabled"})
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"text\": ...}"})
		return
	}

	compute, description := s.analyzer.Analyze(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, analyzeResponse{Compute: compute, Description: description})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
