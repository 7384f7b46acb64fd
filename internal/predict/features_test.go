package predict

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/pwalczak/meteolog/internal/models"
)

// fakeMappingStore records saved mappings in memory.
type fakeMappingStore struct {
	mappings map[string]map[string]int
	loadErr  error
	saveErr  error
	saves    int
}

func newFakeMappingStore() *fakeMappingStore {
	return &fakeMappingStore{mappings: make(map[string]map[string]int)}
}

func (f *fakeMappingStore) LoadEncoderMappings() (map[string]map[string]int, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make(map[string]map[string]int)
	for col, m := range f.mappings {
		out[col] = make(map[string]int, len(m))
		for k, v := range m {
			out[col][k] = v
		}
	}
	return out, nil
}

func (f *fakeMappingStore) SaveEncoderMapping(column string, mapping map[string]int) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.mappings == nil {
		f.mappings = make(map[string]map[string]int)
	}
	if f.mappings[column] == nil {
		f.mappings[column] = make(map[string]int)
	}
	for k, v := range mapping {
		f.mappings[column][k] = v
	}
	return nil
}

func sampleLog() *models.WeatherLog {
	return &models.WeatherLog{
		Temp: 11.5, TempMin: 5.1, TempMax: 14.2, Pressure: 1007.2,
		Humidity: 78, WindSpeed: 13.4, WindDeg: 245,
		Rain1h: 0.3, Rain3h: 0.6, Snow3h: 0, CloudsAll: 90,
		WeatherMain: "rain", WeatherDescription: "slight rain",
	}
}

func TestEncode_AlwaysFullWidth(t *testing.T) {
	tests := []struct {
		name    string
		encoder *Encoder
	}{
		{"no artifacts at all", NewEncoder(nil, nil, nil)},
		{"store only", NewEncoder(nil, nil, newFakeMappingStore())},
		{"broken store", NewEncoder(nil, nil, &fakeMappingStore{loadErr: errors.New("boom")})},
		{"joint only", NewEncoder(&JointTransformer{Categories: map[string][]string{}}, nil, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec := tt.encoder.Encode(sampleLog())
			if len(vec) != len(FeatureOrder) {
				t.Fatalf("len(vec) = %d, want %d", len(vec), len(FeatureOrder))
			}
		})
	}
}

func TestEncode_NumericOrder(t *testing.T) {
	e := NewEncoder(nil, map[string]map[string]int{
		"weather_main":        {"rain": 3},
		"weather_description": {"slight rain": 7},
	}, nil)

	vec := e.Encode(sampleLog())
	want := []float64{11.5, 5.1, 14.2, 1007.2, 78, 13.4, 245, 0.3, 0.6, 0, 90, 3, 7}
	for i, v := range want {
		if vec[i] != v {
			t.Errorf("vec[%d] (%s) = %v, want %v", i, FeatureOrder[i], vec[i], v)
		}
	}
}

func TestEncode_JointTransformer(t *testing.T) {
	joint := &JointTransformer{Categories: map[string][]string{
		"weather_main":        {"clear", "clouds", "rain"},
		"weather_description": {"clear sky", "slight rain"},
	}}
	e := NewEncoder(joint, nil, nil)

	vec := e.Encode(sampleLog())
	if vec[11] != 2 {
		t.Errorf("weather_main code = %v, want 2", vec[11])
	}
	if vec[12] != 1 {
		t.Errorf("weather_description code = %v, want 1", vec[12])
	}
}

func TestEncode_JointRejectedFallsBack(t *testing.T) {
	// Joint transformer has never seen "rain"; the row must degrade to the
	// per-column dictionaries, not fail.
	joint := &JointTransformer{Categories: map[string][]string{
		"weather_main":        {"clear"},
		"weather_description": {"clear sky"},
	}}
	columns := map[string]map[string]int{
		"weather_main":        {"rain": 5},
		"weather_description": {"slight rain": 9},
	}
	e := NewEncoder(joint, columns, nil)

	vec := e.Encode(sampleLog())
	if vec[11] != 5 || vec[12] != 9 {
		t.Errorf("fallback codes = %v/%v, want 5/9", vec[11], vec[12])
	}
}

func TestEncode_FittedDictionaryUnknownIsZero(t *testing.T) {
	columns := map[string]map[string]int{
		"weather_main":        {"clear": 4},
		"weather_description": {"clear sky": 2},
	}
	e := NewEncoder(nil, columns, nil)

	vec := e.Encode(sampleLog()) // "rain" unknown to the fitted dict
	if vec[11] != 0 || vec[12] != 0 {
		t.Errorf("unknown fitted values = %v/%v, want 0/0", vec[11], vec[12])
	}
}

func TestEncode_SynthesizesAndPersists(t *testing.T) {
	store := newFakeMappingStore()
	e := NewEncoder(nil, nil, store)

	vec := e.Encode(sampleLog())
	if vec[11] != 0 || vec[12] != 0 {
		t.Errorf("first synthesized codes = %v/%v, want 0/0", vec[11], vec[12])
	}

	if store.mappings["weather_main"]["rain"] != 0 {
		t.Errorf("weather_main mapping not persisted: %v", store.mappings)
	}
	if store.mappings["weather_description"]["slight rain"] != 0 {
		t.Errorf("weather_description mapping not persisted: %v", store.mappings)
	}
}

func TestEncode_SynthesizedMappingIsIdempotent(t *testing.T) {
	e := NewEncoder(nil, nil, newFakeMappingStore())

	first := e.Encode(sampleLog())
	second := e.Encode(sampleLog())
	if first[11] != second[11] || first[12] != second[12] {
		t.Errorf("same value encoded differently: %v vs %v", first, second)
	}
}

func TestEncode_SynthesizedMappingExtends(t *testing.T) {
	store := newFakeMappingStore()
	e := NewEncoder(nil, nil, store)

	rain := sampleLog()
	snow := sampleLog()
	snow.WeatherMain = "snow"
	snow.WeatherDescription = "heavy snow"

	rainVec := e.Encode(rain)
	snowVec := e.Encode(snow)
	if rainVec[11] == snowVec[11] {
		t.Errorf("distinct values share code %v", rainVec[11])
	}
	if snowVec[11] != 1 {
		t.Errorf("second value code = %v, want 1", snowVec[11])
	}
}

func TestEncode_StoredMappingSurvivesNewEncoder(t *testing.T) {
	store := newFakeMappingStore()

	first := NewEncoder(nil, nil, store)
	firstVec := first.Encode(sampleLog())

	// A fresh encoder over the same store must assign the same codes: the
	// persisted mappings are authoritative across runs.
	second := NewEncoder(nil, nil, store)
	secondVec := second.Encode(sampleLog())

	if firstVec[11] != secondVec[11] || firstVec[12] != secondVec[12] {
		t.Errorf("codes drifted across encoders: %v vs %v", firstVec, secondVec)
	}
}

// One encoder serves every HTTP handler goroutine, so synthesis under
// concurrent unseen values must stay race-free and assign distinct codes.
// Run with -race.
func TestEncode_ConcurrentSynthesis(t *testing.T) {
	e := NewEncoder(nil, nil, newFakeMappingStore())

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wl := sampleLog()
			wl.WeatherMain = fmt.Sprintf("main-%d", i)
			wl.WeatherDescription = fmt.Sprintf("desc-%d", i)
			for j := 0; j < 10; j++ {
				if vec := e.Encode(wl); len(vec) != len(FeatureOrder) {
					t.Errorf("len(vec) = %d, want %d", len(vec), len(FeatureOrder))
				}
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[float64]bool)
	for i := 0; i < workers; i++ {
		wl := sampleLog()
		wl.WeatherMain = fmt.Sprintf("main-%d", i)
		wl.WeatherDescription = fmt.Sprintf("desc-%d", i)
		vec := e.Encode(wl)
		if seen[vec[11]] {
			t.Errorf("weather_main code %v assigned to more than one value", vec[11])
		}
		seen[vec[11]] = true
	}
}

func TestEncode_SaveFailureStillEncodes(t *testing.T) {
	store := newFakeMappingStore()
	store.saveErr = errors.New("disk full")
	e := NewEncoder(nil, nil, store)

	vec := e.Encode(sampleLog())
	if len(vec) != len(FeatureOrder) {
		t.Fatalf("len(vec) = %d, want %d", len(vec), len(FeatureOrder))
	}
	if store.saves == 0 {
		t.Error("save was never attempted")
	}
}
