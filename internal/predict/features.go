package predict

import (
	"fmt"
	"log"
	"sync"

	"github.com/pwalczak/meteolog/internal/metrics"
	"github.com/pwalczak/meteolog/internal/models"
)

// FeatureOrder is the fixed contract shared with the scoring model. The
// encoder always emits exactly these features in exactly this order.
var FeatureOrder = []string{
	"temp",
	"temp_min",
	"temp_max",
	"pressure",
	"humidity",
	"wind_speed",
	"wind_deg",
	"rain_1h",
	"rain_3h",
	"snow_3h",
	"clouds_all",
	"weather_main",
	"weather_description",
}

var categorical = map[string]bool{
	"weather_main":        true,
	"weather_description": true,
}

// MappingStore persists synthesized category-to-code dictionaries so the same
// value keeps its code across runs sharing a database.
type MappingStore interface {
	LoadEncoderMappings() (map[string]map[string]int, error)
	SaveEncoderMapping(column string, mapping map[string]int) error
}

// row holds one observation split into numeric and categorical features.
// Fields absent upstream are zero-valued, so the vector is always full-width.
type row struct {
	nums    map[string]float64
	strings map[string]string
}

func buildRow(wl *models.WeatherLog) row {
	return row{
		nums: map[string]float64{
			"temp":       wl.Temp,
			"temp_min":   wl.TempMin,
			"temp_max":   wl.TempMax,
			"pressure":   wl.Pressure,
			"humidity":   float64(wl.Humidity),
			"wind_speed": wl.WindSpeed,
			"wind_deg":   float64(wl.WindDeg),
			"rain_1h":    wl.Rain1h,
			"rain_3h":    wl.Rain3h,
			"snow_3h":    wl.Snow3h,
			"clouds_all": float64(wl.CloudsAll),
		},
		strings: map[string]string{
			"weather_main":        wl.WeatherMain,
			"weather_description": wl.WeatherDescription,
		},
	}
}

// JointTransformer encodes a whole row at once from per-feature category
// lists (index position = code). Any unknown category rejects the row.
type JointTransformer struct {
	Categories map[string][]string
}

func (j *JointTransformer) Transform(r row) ([]float64, error) {
	vec := make([]float64, 0, len(FeatureOrder))
	for _, name := range FeatureOrder {
		if !categorical[name] {
			vec = append(vec, r.nums[name])
			continue
		}
		cats, ok := j.Categories[name]
		if !ok {
			return nil, fmt.Errorf("joint transformer has no categories for %s", name)
		}
		code := -1
		for i, c := range cats {
			if c == r.strings[name] {
				code = i
				break
			}
		}
		if code < 0 {
			return nil, fmt.Errorf("unknown %s category %q", name, r.strings[name])
		}
		vec = append(vec, float64(code))
	}
	return vec, nil
}

// Encoder turns a weather log into the fixed-order numeric feature vector.
// It degrades instead of failing: a rejected joint transformer falls back to
// per-column dictionaries, and a missing dictionary is synthesized and
// persisted for reuse by later calls and runs.
type Encoder struct {
	joint *JointTransformer
	store MappingStore

	// mu guards columns and synthesized: one encoder is shared across HTTP
	// handler goroutines, and synthesis mutates both maps.
	mu          sync.Mutex
	columns     map[string]map[string]int
	synthesized map[string]bool
}

// NewEncoder builds an encoder from whatever artifacts are available. Any of
// joint, columns, and store may be nil. Dictionaries previously synthesized
// into the store count as synthesized: they keep growing as new values appear.
func NewEncoder(joint *JointTransformer, columns map[string]map[string]int, store MappingStore) *Encoder {
	e := &Encoder{
		joint:       joint,
		columns:     make(map[string]map[string]int),
		synthesized: make(map[string]bool),
		store:       store,
	}
	for col, m := range columns {
		e.columns[col] = m
	}

	if store != nil {
		stored, err := store.LoadEncoderMappings()
		if err != nil {
			log.Printf("predict: load encoder mappings: %v (continuing without)", err)
		} else {
			for col, m := range stored {
				if _, fitted := e.columns[col]; fitted {
					continue
				}
				e.columns[col] = m
				e.synthesized[col] = true
			}
		}
	}
	return e
}

// Encode never fails; it always returns a vector matching FeatureOrder.
func (e *Encoder) Encode(wl *models.WeatherLog) []float64 {
	r := buildRow(wl)

	if e.joint != nil {
		vec, err := e.joint.Transform(r)
		if err == nil {
			return vec
		}
		log.Printf("predict: joint transformer rejected row, using per-column encoders: %v", err)
		metrics.EncoderFallbacks.WithLabelValues("joint_rejected").Inc()
	}

	vec := make([]float64, 0, len(FeatureOrder))
	for _, name := range FeatureOrder {
		if !categorical[name] {
			vec = append(vec, r.nums[name])
			continue
		}
		vec = append(vec, float64(e.encodeCategory(name, r.strings[name])))
	}
	return vec
}

func (e *Encoder) encodeCategory(column, value string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.columns[column]
	if !ok {
		// No encoder at all for this column: synthesize a fresh dictionary
		// over the values seen in this call and persist it.
		e.synthesize(column, value, 0)
		return 0
	}

	if code, ok := m[value]; ok {
		return code
	}

	if e.synthesized[column] {
		// The synthesized store is authoritative: extend it with the next
		// sequential code instead of collapsing new values onto 0.
		next := len(m)
		e.synthesize(column, value, next)
		return next
	}

	// Fitted dictionary from the artifact: unknown values map to 0.
	return 0
}

// synthesize records a fallback code for a value. Caller holds mu.
func (e *Encoder) synthesize(column, value string, code int) {
	if e.columns[column] == nil {
		e.columns[column] = make(map[string]int)
	}
	e.columns[column][value] = code
	e.synthesized[column] = true
	metrics.EncoderFallbacks.WithLabelValues("synthesized").Inc()
	log.Printf("predict: synthesized fallback mapping %s[%q]=%d", column, value, code)

	if e.store != nil {
		if err := e.store.SaveEncoderMapping(column, map[string]int{value: code}); err != nil {
			log.Printf("predict: persist fallback mapping for %s: %v", column, err)
		}
	}
}
