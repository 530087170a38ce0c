/*

This file contains the trained model plumbing for the range predictor: a JSON
regressor artifact (feature scaler + linear weights) and the inference-graph
session abstraction for pre-exported computation graphs.

*/

package optimizer

import (
	"encoding/json"
	"fmt"
	"os"
)

// RegressorModel is a pre-trained, pre-scaled linear regressor loaded from a
// JSON artifact. Outputs are interpreted as [lowerBound, upperBound,
// confidence]. The model is attached once at startup and read-only afterward.
type RegressorModel struct {
	FeatureMeans  []float64   `json:"feature_means"`
	FeatureScales []float64   `json:"feature_scales"`
	Weights       [][]float64 `json:"weights"`
	Intercepts    []float64   `json:"intercepts"`

	trained bool
}

// Trained reports whether the model carries usable weights.
func (m *RegressorModel) Trained() bool {
	return m != nil && m.trained
}

// Predict scales the feature vector and applies the linear map. The caller is
// responsible for supplying features in the training column order.
func (m *RegressorModel) Predict(features []float64) ([]float64, error) {
	if !m.Trained() {
		return nil, ErrModelNotReady
	}
	if len(features) != len(m.FeatureMeans) {
		return nil, fmt.Errorf("%w: got %d features, model expects %d",
			ErrInvalidInput, len(features), len(m.FeatureMeans))
	}

	scaled := make([]float64, len(features))
	for i, f := range features {
		scale := m.FeatureScales[i]
		if scale == 0 {
			scale = 1
		}
		scaled[i] = (f - m.FeatureMeans[i]) / scale
	}

	out := make([]float64, len(m.Weights))
	for row, weights := range m.Weights {
		sum := m.Intercepts[row]
		for col, w := range weights {
			sum += w * scaled[col]
		}
		out[row] = sum
	}
	return out, nil
}

// validate checks artifact dimensional consistency and marks the model
// trained on success.
func (m *RegressorModel) validate() error {
	n := len(m.FeatureMeans)
	if n == 0 {
		return fmt.Errorf("artifact has no feature scaler")
	}
	if len(m.FeatureScales) != n {
		return fmt.Errorf("feature_scales length %d does not match feature_means length %d",
			len(m.FeatureScales), n)
	}
	if len(m.Weights) < 2 {
		return fmt.Errorf("artifact has %d output rows, need at least 2", len(m.Weights))
	}
	if len(m.Intercepts) != len(m.Weights) {
		return fmt.Errorf("intercepts length %d does not match weights rows %d",
			len(m.Intercepts), len(m.Weights))
	}
	for i, row := range m.Weights {
		if len(row) != n {
			return fmt.Errorf("weights row %d has %d columns, expected %d", i, len(row), n)
		}
	}
	m.trained = true
	return nil
}

// LoadRegressorModel reads and validates a JSON regressor artifact.
func LoadRegressorModel(path string) (*RegressorModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact %s: %w", path, err)
	}

	var model RegressorModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}
	if err := model.validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact %s: %w", path, err)
	}
	return &model, nil
}

// GraphTensor is the normalized output of an inference-graph run.
type GraphTensor struct {
	Shape  []int
	Values []float64
}

// GraphSession executes a pre-exported computation graph over a feature
// vector. Implementations wrap whatever runtime hosts the exported graph.
type GraphSession interface {
	Run(features []float64) (GraphTensor, error)
}

// normalizeGraphOutput extracts the [lower, upper, confidence] triple from a
// rank-1 or rank-2 tensor. For rank 2 the first row is used.
func normalizeGraphOutput(t GraphTensor) ([3]float64, error) {
	switch len(t.Shape) {
	case 1:
		if len(t.Values) >= 3 {
			return [3]float64{t.Values[0], t.Values[1], t.Values[2]}, nil
		}
	case 2:
		if t.Shape[1] >= 3 && len(t.Values) >= 3 {
			return [3]float64{t.Values[0], t.Values[1], t.Values[2]}, nil
		}
	}
	return [3]float64{}, fmt.Errorf("%w: tensor shape %v with %d values",
		ErrInvalidModelOutput, t.Shape, len(t.Values))
}
