package optimizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadRegressorModel(t *testing.T) {
	path := writeArtifact(t, `{
		"feature_means":  [0, 0],
		"feature_scales": [1, 2],
		"weights":        [[1, 0], [0, 1], [0.5, 0.5]],
		"intercepts":     [0.1, 0.2, 0.3]
	}`)

	model, err := LoadRegressorModel(path)
	require.NoError(t, err)
	assert.True(t, model.Trained())

	out, err := model.Predict([]float64{2, 4})
	require.NoError(t, err)
	require.Len(t, out, 3)

	// Feature 1 scales to 2, so rows are [2.1, 2.2, 2.3].
	assert.InDelta(t, 2.1, out[0], 1e-9)
	assert.InDelta(t, 2.2, out[1], 1e-9)
	assert.InDelta(t, 2.3, out[2], 1e-9)
}

func TestLoadRegressorModelRejectsBadArtifacts(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"not json", "not json at all"},
		{"empty scaler", `{"feature_means": [], "feature_scales": [], "weights": [[1]], "intercepts": [0]}`},
		{"scale length mismatch", `{"feature_means": [0, 0], "feature_scales": [1], "weights": [[1, 0], [0, 1]], "intercepts": [0, 0]}`},
		{"too few outputs", `{"feature_means": [0], "feature_scales": [1], "weights": [[1]], "intercepts": [0]}`},
		{"ragged weights", `{"feature_means": [0, 0], "feature_scales": [1, 1], "weights": [[1, 0], [1]], "intercepts": [0, 0]}`},
		{"intercepts mismatch", `{"feature_means": [0], "feature_scales": [1], "weights": [[1], [1]], "intercepts": [0]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegressorModel(writeArtifact(t, tt.contents))
			assert.Error(t, err)
		})
	}
}

func TestLoadRegressorModelMissingFile(t *testing.T) {
	_, err := LoadRegressorModel(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPredictFeatureLengthMismatch(t *testing.T) {
	m := identityRegressor(t, 2, [][]float64{{1, 0}, {0, 1}}, []float64{0, 0})

	_, err := m.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUntrainedModelPredictFails(t *testing.T) {
	var m RegressorModel
	_, err := m.Predict([]float64{1, 2})
	assert.ErrorIs(t, err, ErrModelNotReady)

	var nilModel *RegressorModel
	assert.False(t, nilModel.Trained())
}
