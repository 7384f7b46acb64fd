package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pwalczak/meteolog/internal/httputil"
	"github.com/pwalczak/meteolog/internal/metrics"
)

const DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

const (
	currentFields = "temperature_2m,relative_humidity_2m,surface_pressure,wind_speed_10m,wind_direction_10m,rain,snowfall,cloud_cover,weather_code"
	hourlyFields  = "rain,snowfall"
	dailyFields   = "temperature_2m_max,temperature_2m_min"
)

// Client fetches current weather from the Open-Meteo forecast API.
type Client struct {
	client      *http.Client
	forecastURL string
	geocodeURL  string
}

func NewClient() *Client {
	return &Client{
		client:      httputil.NewClient(),
		forecastURL: DefaultForecastURL,
		geocodeURL:  DefaultGeocodeURL,
	}
}

// NewClientWithURLs is used by tests to point the client at a fake server.
func NewClientWithURLs(forecastURL, geocodeURL string) *Client {
	return &Client{
		client:      httputil.NewClient(),
		forecastURL: forecastURL,
		geocodeURL:  geocodeURL,
	}
}

// FetchError wraps any transport or payload failure with the coordinates the
// request was for. Callers receive either valid data or a FetchError, never a
// raw transport error.
type FetchError struct {
	Latitude  float64
	Longitude float64
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("open-meteo fetch for %.4f,%.4f: %v", e.Latitude, e.Longitude, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ForecastResponse mirrors the subset of the Open-Meteo forecast payload the
// pipeline consumes.
type ForecastResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Current   Current `json:"current"`
	Hourly    Hourly  `json:"hourly"`
	Daily     Daily   `json:"daily"`
}

type Current struct {
	Time             string  `json:"time"`
	Temperature2m    float64 `json:"temperature_2m"`
	RelativeHumidity float64 `json:"relative_humidity_2m"`
	SurfacePressure  float64 `json:"surface_pressure"`
	WindSpeed10m     float64 `json:"wind_speed_10m"`
	WindDirection10m float64 `json:"wind_direction_10m"`
	Rain             float64 `json:"rain"`
	Snowfall         float64 `json:"snowfall"`
	CloudCover       float64 `json:"cloud_cover"`
	WeatherCode      int     `json:"weather_code"`
}

type Hourly struct {
	Time     []string  `json:"time"`
	Rain     []float64 `json:"rain"`
	Snowfall []float64 `json:"snowfall"`
}

type Daily struct {
	Temperature2mMax []float64 `json:"temperature_2m_max"`
	Temperature2mMin []float64 `json:"temperature_2m_min"`
}

// Fetch requests the current snapshot plus single-day hourly precipitation and
// daily min/max for the given coordinates, evaluated in the supplied timezone.
func (c *Client) Fetch(ctx context.Context, lat, lon float64, timezone string) (*ForecastResponse, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", lat))
	params.Set("longitude", fmt.Sprintf("%.4f", lon))
	params.Set("current", currentFields)
	params.Set("hourly", hourlyFields)
	params.Set("daily", dailyFields)
	params.Set("timezone", timezone)
	params.Set("forecast_days", "1")
	reqURL := c.forecastURL + "?" + params.Encode()

	body, err := c.get(ctx, reqURL, "forecast")
	if err != nil {
		return nil, &FetchError{Latitude: lat, Longitude: lon, Err: err}
	}

	var data ForecastResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &FetchError{Latitude: lat, Longitude: lon, Err: fmt.Errorf("unmarshal: %w", err)}
	}

	return &data, nil
}

// get performs the HTTP request with retry on rate limiting. All other
// failures are permanent: the batch's fixed inter-location delay handles
// pacing, so only 429 is worth waiting out.
func (c *Client) get(ctx context.Context, reqURL, endpoint string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("User-Agent", "meteolog/1.0")

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			metrics.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
			return backoff.Permanent(fmt.Errorf("fetch: %w", err))
		}
		defer resp.Body.Close()
		metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		metrics.UpstreamCallsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
