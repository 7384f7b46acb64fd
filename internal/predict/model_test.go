package predict

import (
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestLoadArtifact(t *testing.T) {
	path := writeArtifact(t, `{
		"features": ["a", "b", "c"],
		"coefficients": [1.0, 2.0, 3.0],
		"intercept": 0.5
	}`)

	a, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if len(a.Coefficients) != 3 {
		t.Errorf("len(Coefficients) = %d, want 3", len(a.Coefficients))
	}
	if a.Joint() != nil {
		t.Error("Joint() should be nil without categories")
	}

	score, err := a.Model().Score([]float64{1, 1, 1})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 6.5 {
		t.Errorf("score = %v, want 6.5", score)
	}
}

func TestLoadArtifact_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{{{`},
		{"no coefficients", `{"features": ["a"], "intercept": 1}`},
		{"feature count mismatch", `{"features": ["a", "b"], "coefficients": [1.0], "intercept": 0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeArtifact(t, tt.content)
			if _, err := LoadArtifact(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadArtifact_MissingFile(t *testing.T) {
	if _, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLinearModel_DimensionMismatch(t *testing.T) {
	m := NewLinearModel([]float64{1, 2, 3}, 0)
	if _, err := m.Score([]float64{1, 2}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestArtifact_JointAndColumns(t *testing.T) {
	path := writeArtifact(t, `{
		"coefficients": [1, 1],
		"intercept": 0,
		"categories": {"weather_main": ["clear", "rain"]},
		"columns": {"weather_description": {"clear sky": 0, "slight rain": 1}}
	}`)

	a, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if a.Joint() == nil {
		t.Fatal("Joint() should not be nil")
	}
	if a.Columns["weather_description"]["slight rain"] != 1 {
		t.Errorf("columns not loaded: %v", a.Columns)
	}
}
