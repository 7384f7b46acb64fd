package wmo

import "testing"

func TestDescribe(t *testing.T) {
	tests := []struct {
		code     int
		wantMain string
		wantDesc string
		wantIcon string
	}{
		{0, "Clear", "clear sky", "01d"},
		{3, "Clouds", "overcast", "04d"},
		{45, "Fog", "fog", "50d"},
		{55, "Drizzle", "dense drizzle", "09d"},
		{61, "Rain", "slight rain", "10d"},
		{75, "Snow", "heavy snow", "13d"},
		{82, "Rain", "violent rain showers", "09d"},
		{95, "Thunderstorm", "thunderstorm", "11d"},
	}

	for _, tt := range tests {
		c := Describe(tt.code)
		if c.Main != tt.wantMain || c.Description != tt.wantDesc || c.Icon != tt.wantIcon {
			t.Errorf("Describe(%d) = %+v, want (%s, %s, %s)", tt.code, c, tt.wantMain, tt.wantDesc, tt.wantIcon)
		}
	}
}

func TestDescribe_UnknownCode(t *testing.T) {
	for _, code := range []int{-1, 4, 999, 100000} {
		c := Describe(code)
		if c.Main != "Unknown" {
			t.Errorf("Describe(%d).Main = %q, want Unknown", code, c.Main)
		}
		if c.Description != "unknown" {
			t.Errorf("Describe(%d).Description = %q, want unknown", code, c.Description)
		}
		if c.Icon != FallbackIcon {
			t.Errorf("Describe(%d).Icon = %q, want %q", code, c.Icon, FallbackIcon)
		}
	}
}
