package transform

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pwalczak/meteolog/internal/models"
	"github.com/pwalczak/meteolog/internal/openmeteo"
	"github.com/pwalczak/meteolog/internal/wmo"
)

// Open-Meteo serializes local times without an offset, e.g. "2024-03-05T14:00".
const openMeteoTimeLayout = "2006-01-02T15:04"

// dtISOLayout is the persisted timestamp format, with a colon in the offset.
const dtISOLayout = "2006-01-02 15:04:05-07:00"

// precipWindow is the number of hourly samples summed for the 3h totals:
// the current hour plus the two preceding it.
const precipWindow = 3

// Normalize converts a raw forecast response into the canonical weather log.
// The current snapshot's timestamp is interpreted as naive local time in loc.
// The returned log has no LocationID set; the caller owns that linkage.
func Normalize(raw *openmeteo.ForecastResponse, loc *time.Location) (*models.WeatherLog, error) {
	if len(raw.Daily.Temperature2mMin) == 0 || len(raw.Daily.Temperature2mMax) == 0 {
		return nil, fmt.Errorf("normalize: daily series is empty")
	}
	if len(raw.Hourly.Time) == 0 {
		return nil, fmt.Errorf("normalize: hourly series is empty")
	}

	dt, err := time.ParseInLocation(openMeteoTimeLayout, raw.Current.Time, loc)
	if err != nil {
		return nil, fmt.Errorf("normalize: parse current time %q: %w", raw.Current.Time, err)
	}

	rain3h, snow3h := precipSums(raw.Hourly, raw.Current.Time)

	cond := wmo.Describe(raw.Current.WeatherCode)

	return &models.WeatherLog{
		DtISO:              dt.Format(dtISOLayout),
		Temp:               raw.Current.Temperature2m,
		TempMin:            raw.Daily.Temperature2mMin[0],
		TempMax:            raw.Daily.Temperature2mMax[0],
		Pressure:           raw.Current.SurfacePressure,
		Humidity:           int64(math.Round(raw.Current.RelativeHumidity)),
		WindSpeed:          raw.Current.WindSpeed10m,
		WindDeg:            int64(math.Round(raw.Current.WindDirection10m)),
		Rain1h:             raw.Current.Rain,
		Rain3h:             rain3h,
		Snow3h:             snow3h,
		CloudsAll:          int64(math.Round(raw.Current.CloudCover)),
		WeatherID:          int64(raw.Current.WeatherCode),
		WeatherMain:        cond.Main,
		WeatherDescription: cond.Description,
		WeatherIcon:        cond.Icon,
	}, nil
}

// precipSums locates the current timestamp in the hourly series by exact
// string match and sums rain and snowfall over the trailing window ending at
// that hour. A timestamp absent from the series yields zero sums, not an
// error: the upstream occasionally serves an hourly grid that has already
// rolled past the current snapshot.
func precipSums(hourly openmeteo.Hourly, currentTime string) (rain3h, snow3h float64) {
	idx := -1
	for i, t := range hourly.Time {
		if t == currentTime {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0.0, 0.0
	}

	start := idx - (precipWindow - 1)
	if start < 0 {
		start = 0
	}
	for i := start; i <= idx; i++ {
		if i < len(hourly.Rain) {
			rain3h += hourly.Rain[i]
		}
		if i < len(hourly.Snowfall) {
			snow3h += hourly.Snowfall[i]
		}
	}
	return round2(rain3h), round2(snow3h)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Canonicalize lower-cases the condition strings so persisted rows stay
// consistent with the vocabulary the encoder mappings were built against.
func Canonicalize(wl *models.WeatherLog) {
	wl.WeatherMain = strings.ToLower(wl.WeatherMain)
	wl.WeatherDescription = strings.ToLower(wl.WeatherDescription)
	wl.WeatherIcon = strings.ToLower(wl.WeatherIcon)
}
