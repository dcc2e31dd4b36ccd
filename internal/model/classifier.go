// Package model implements the classifier boundary: loading a persisted
// model artifact and scoring feature vectors against it. The service treats
// the classifier as opaque; this package only guarantees "13 floats in,
// probability out".
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/heart-disease-predictor-server/internal/features"
)

// Artifact is the on-disk model format: a tag identifying the trained model,
// the feature order it was trained against, the pre-fit scaler parameters,
// and the logistic weights.
type Artifact struct {
	Model struct {
		Tag          string   `json:"tag"`
		FeatureNames []string `json:"feature_names"`
		Scaler       struct {
			Mean  []float64 `json:"mean"`
			Scale []float64 `json:"scale"`
		} `json:"scaler"`
		Weights struct {
			Bias         float64   `json:"bias"`
			Coefficients []float64 `json:"coefficients"`
		} `json:"weights"`
	} `json:"model"`
}

// Classifier scores encoded feature vectors using a loaded artifact.
// Normalization uses the scaler mean/scale persisted at training time; it is
// never refit at inference.
type Classifier struct {
	artifact Artifact
	log      *logrus.Logger
}

// Load reads and validates a model artifact from disk.
func Load(path string, logger *logrus.Logger) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parsing model artifact: %w", err)
	}

	if err := validate(&artifact); err != nil {
		return nil, fmt.Errorf("invalid model artifact %s: %w", path, err)
	}

	logger.WithFields(logrus.Fields{
		"path":     path,
		"tag":      artifact.Model.Tag,
		"features": len(artifact.Model.FeatureNames),
	}).Info("Model artifact loaded")

	return &Classifier{artifact: artifact, log: logger}, nil
}

func validate(a *Artifact) error {
	m := &a.Model
	if m.Tag == "" {
		return fmt.Errorf("artifact missing model tag")
	}
	if len(m.FeatureNames) != features.VectorSize {
		return fmt.Errorf("artifact declares %d features, expected %d", len(m.FeatureNames), features.VectorSize)
	}
	for i, name := range m.FeatureNames {
		if name != features.FeatureNames[i] {
			return fmt.Errorf("feature %d is %q, expected %q", i, name, features.FeatureNames[i])
		}
	}
	if len(m.Weights.Coefficients) != features.VectorSize {
		return fmt.Errorf("artifact has %d coefficients, expected %d", len(m.Weights.Coefficients), features.VectorSize)
	}
	if len(m.Scaler.Mean) != features.VectorSize || len(m.Scaler.Scale) != features.VectorSize {
		return fmt.Errorf("scaler parameters must have %d entries", features.VectorSize)
	}
	for i, s := range m.Scaler.Scale {
		if s == 0 {
			return fmt.Errorf("scaler scale[%d] is zero", i)
		}
	}
	return nil
}

// Tag returns the identifier of the loaded model.
func (c *Classifier) Tag() string {
	return c.artifact.Model.Tag
}

// Score normalizes the vector with the persisted scaler and returns the
// positive-class probability.
func (c *Classifier) Score(vector []float64) (float64, error) {
	m := &c.artifact.Model
	if len(vector) != len(m.Weights.Coefficients) {
		return 0, fmt.Errorf("vector has %d slots, model expects %d", len(vector), len(m.Weights.Coefficients))
	}

	sum := m.Weights.Bias
	for i, coeff := range m.Weights.Coefficients {
		z := (vector[i] - m.Scaler.Mean[i]) / m.Scaler.Scale[i]
		sum += coeff * z
	}

	return sigmoid(sum), nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
