package predict

import (
	"encoding/json"
	"fmt"
	"os"
)

// Scorer is the narrow boundary to the regression backend. Anything that can
// score a feature vector can serve as the prediction stage.
type Scorer interface {
	Score(vec []float64) (float64, error)
}

// Artifact is the on-disk model bundle exported by the training pipeline:
// linear coefficients plus whatever categorical encoding it was fitted with.
// Categories describes a joint transformer; Columns holds fitted per-column
// dictionaries. Both are optional.
type Artifact struct {
	Features     []string                  `json:"features"`
	Coefficients []float64                 `json:"coefficients"`
	Intercept    float64                   `json:"intercept"`
	Categories   map[string][]string       `json:"categories,omitempty"`
	Columns      map[string]map[string]int `json:"columns,omitempty"`
}

func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if len(a.Coefficients) == 0 {
		return nil, fmt.Errorf("model artifact %s has no coefficients", path)
	}
	if len(a.Features) > 0 && len(a.Features) != len(a.Coefficients) {
		return nil, fmt.Errorf("model artifact %s: %d features but %d coefficients", path, len(a.Features), len(a.Coefficients))
	}
	return &a, nil
}

// Joint returns the joint transformer described by the artifact, or nil when
// the artifact carries none.
func (a *Artifact) Joint() *JointTransformer {
	if len(a.Categories) == 0 {
		return nil
	}
	return &JointTransformer{Categories: a.Categories}
}

// Model returns the linear scorer for this artifact.
func (a *Artifact) Model() *LinearModel {
	return &LinearModel{coefficients: a.Coefficients, intercept: a.Intercept}
}

// LinearModel scores a feature vector as a dot product plus intercept.
type LinearModel struct {
	coefficients []float64
	intercept    float64
}

func NewLinearModel(coefficients []float64, intercept float64) *LinearModel {
	return &LinearModel{coefficients: coefficients, intercept: intercept}
}

func (m *LinearModel) Score(vec []float64) (float64, error) {
	if len(vec) != len(m.coefficients) {
		return 0, fmt.Errorf("score: vector has %d features, model expects %d", len(vec), len(m.coefficients))
	}
	score := m.intercept
	for i, v := range vec {
		score += v * m.coefficients[i]
	}
	return score, nil
}
