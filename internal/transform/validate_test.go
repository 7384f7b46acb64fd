package transform

import (
	"reflect"
	"testing"

	"github.com/pwalczak/meteolog/internal/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		wl        models.WeatherLog
		wantFlags []string
	}{
		{
			name: "sane observation",
			wl: models.WeatherLog{
				Temp: 21.5, Humidity: 55, WindDeg: 180, WindSpeed: 12,
				Pressure: 1013, CloudsAll: 40,
			},
			wantFlags: nil,
		},
		{
			name:      "temperature out of range",
			wl:        models.WeatherLog{Temp: 72, Humidity: 50, Pressure: 1000},
			wantFlags: []string{FlagTempOutOfRange},
		},
		{
			name:      "humidity over 100",
			wl:        models.WeatherLog{Humidity: 130, Pressure: 1000},
			wantFlags: []string{FlagHumidityInvalid},
		},
		{
			name:      "wind direction out of range",
			wl:        models.WeatherLog{Humidity: 50, WindDeg: 400, Pressure: 1000},
			wantFlags: []string{FlagWindDirInvalid},
		},
		{
			name:      "negative precipitation",
			wl:        models.WeatherLog{Humidity: 50, Rain3h: -0.1, Pressure: 1000},
			wantFlags: []string{FlagPrecipNegative},
		},
		{
			name:      "pressure out of range",
			wl:        models.WeatherLog{Humidity: 50, Pressure: 700},
			wantFlags: []string{FlagPressureOutOfRange},
		},
		{
			name:      "zero pressure means missing, not flagged",
			wl:        models.WeatherLog{Humidity: 50},
			wantFlags: nil,
		},
		{
			name: "multiple flags accumulate",
			wl:   models.WeatherLog{Temp: -80, Humidity: 101, Pressure: 1000},
			wantFlags: []string{
				FlagTempOutOfRange, FlagHumidityInvalid,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(&tt.wl)
			if !reflect.DeepEqual(got, tt.wantFlags) {
				t.Errorf("Validate() = %v, want %v", got, tt.wantFlags)
			}
		})
	}
}
