package transform

import (
	"github.com/pwalczak/meteolog/internal/models"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagWindDirInvalid     = "wind_dir_invalid"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
	FlagPressureOutOfRange = "pressure_out_of_range"
	FlagPrecipNegative     = "precip_negative"
	FlagCloudsInvalid      = "clouds_invalid"
)

// Validate runs range sanity checks over a normalized log. Flags are advisory:
// the pipeline logs them but still persists the row.
func Validate(wl *models.WeatherLog) []string {
	var flags []string

	if wl.Temp < -60 || wl.Temp > 60 {
		flags = append(flags, FlagTempOutOfRange)
	}

	if wl.Humidity < 0 || wl.Humidity > 100 {
		flags = append(flags, FlagHumidityInvalid)
	}

	if wl.WindDeg < 0 || wl.WindDeg > 360 {
		flags = append(flags, FlagWindDirInvalid)
	}

	if wl.WindSpeed < 0 || wl.WindSpeed > 300 {
		flags = append(flags, FlagWindSpeedUnlikely)
	}

	if wl.Pressure != 0 && (wl.Pressure < 850 || wl.Pressure > 1100) {
		flags = append(flags, FlagPressureOutOfRange)
	}

	if wl.Rain1h < 0 || wl.Rain3h < 0 || wl.Snow3h < 0 {
		flags = append(flags, FlagPrecipNegative)
	}

	if wl.CloudsAll < 0 || wl.CloudsAll > 100 {
		flags = append(flags, FlagCloudsInvalid)
	}

	return flags
}
