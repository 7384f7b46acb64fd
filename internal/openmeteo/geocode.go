package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

const DefaultGeocodeURL = "https://geocoding-api.open-meteo.com/v1/search"

// Place is a geocoding match for a city name.
type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

type geocodeResponse struct {
	Results []Place `json:"results"`
}

// Geocode resolves a city name to its first match. Returns (nil, nil) when
// no place matches.
func (c *Client) Geocode(ctx context.Context, name string) (*Place, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("count", "1")
	params.Set("format", "json")
	reqURL := c.geocodeURL + "?" + params.Encode()

	body, err := c.get(ctx, reqURL, "geocode")
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", name, err)
	}

	var data geocodeResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("geocode %q: unmarshal: %w", name, err)
	}
	if len(data.Results) == 0 {
		return nil, nil
	}
	return &data.Results[0], nil
}
