package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteolog_upstream_calls_total",
			Help: "Total Open-Meteo API calls",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meteolog_upstream_latency_seconds",
			Help:    "Open-Meteo API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	WeatherLogsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meteolog_weather_logs_written_total",
			Help: "Total normalized observations persisted",
		},
	)

	PredictionsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meteolog_predictions_written_total",
			Help: "Total prediction rows persisted",
		},
	)

	EncoderFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteolog_encoder_fallbacks_total",
			Help: "Encoder degradations by kind (joint_rejected, synthesized)",
		},
		[]string{"kind"},
	)

	ETLRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteolog_etl_runs_total",
			Help: "Completed ETL batch runs by outcome",
		},
		[]string{"outcome"},
	)
)
