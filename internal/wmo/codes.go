// Package wmo translates Open-Meteo WMO weather codes into the
// OpenWeather-style (main, description, icon) vocabulary the rest of the
// pipeline stores and encodes.
package wmo

// Condition is the stable three-part description of a weather code.
type Condition struct {
	Main        string
	Description string
	Icon        string
}

// FallbackIcon is used for codes outside the static table.
const FallbackIcon = "50d"

var codes = map[int]Condition{
	0:  {"Clear", "clear sky", "01d"},
	1:  {"Clouds", "mainly clear", "02d"},
	2:  {"Clouds", "partly cloudy", "03d"},
	3:  {"Clouds", "overcast", "04d"},
	45: {"Fog", "fog", "50d"},
	48: {"Fog", "depositing rime fog", "50d"},
	51: {"Drizzle", "light drizzle", "09d"},
	53: {"Drizzle", "moderate drizzle", "09d"},
	55: {"Drizzle", "dense drizzle", "09d"},
	61: {"Rain", "slight rain", "10d"},
	63: {"Rain", "moderate rain", "10d"},
	65: {"Rain", "heavy intensity rain", "10d"},
	71: {"Snow", "slight snow", "13d"},
	73: {"Snow", "moderate snow", "13d"},
	75: {"Snow", "heavy snow", "13d"},
	80: {"Rain", "light rain showers", "09d"},
	81: {"Rain", "moderate rain showers", "09d"},
	82: {"Rain", "violent rain showers", "09d"},
	95: {"Thunderstorm", "thunderstorm", "11d"},
}

// Describe maps a WMO code to its condition. Total: unknown codes map to the
// Unknown condition rather than failing.
func Describe(code int) Condition {
	if c, ok := codes[code]; ok {
		return c
	}
	return Condition{Main: "Unknown", Description: "unknown", Icon: FallbackIcon}
}
