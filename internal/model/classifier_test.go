package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heart-disease-predictor-server/internal/features"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func writeArtifact(t *testing.T, mutate func(*Artifact)) string {
	t.Helper()

	var a Artifact
	a.Model.Tag = "logreg_v1"
	a.Model.FeatureNames = append([]string(nil), features.FeatureNames...)
	a.Model.Scaler.Mean = make([]float64, features.VectorSize)
	a.Model.Scaler.Scale = make([]float64, features.VectorSize)
	a.Model.Weights.Coefficients = make([]float64, features.VectorSize)
	for i := range a.Model.Scaler.Scale {
		a.Model.Scaler.Scale[i] = 1
	}
	if mutate != nil {
		mutate(&a)
	}

	data, err := json.Marshal(&a)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadValidArtifact(t *testing.T) {
	path := writeArtifact(t, nil)

	c, err := Load(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "logreg_v1", c.Tag())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"), testLogger())
	require.Error(t, err)
}

func TestLoadRejectsWrongFeatureCount(t *testing.T) {
	path := writeArtifact(t, func(a *Artifact) {
		a.Model.FeatureNames = a.Model.FeatureNames[:10]
	})
	_, err := Load(path, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "features")
}

func TestLoadRejectsReorderedFeatures(t *testing.T) {
	path := writeArtifact(t, func(a *Artifact) {
		a.Model.FeatureNames[0], a.Model.FeatureNames[1] = a.Model.FeatureNames[1], a.Model.FeatureNames[0]
	})
	_, err := Load(path, testLogger())
	require.Error(t, err)
}

func TestLoadRejectsZeroScale(t *testing.T) {
	path := writeArtifact(t, func(a *Artifact) {
		a.Model.Scaler.Scale[4] = 0
	})
	_, err := Load(path, testLogger())
	require.Error(t, err)
}

func TestScoreZeroWeightsIsEven(t *testing.T) {
	path := writeArtifact(t, nil)
	c, err := Load(path, testLogger())
	require.NoError(t, err)

	prob, err := c.Score(make([]float64, features.VectorSize))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, prob, 1e-9)
}

func TestScoreAppliesPersistedScaler(t *testing.T) {
	path := writeArtifact(t, func(a *Artifact) {
		// Single active feature: age, standardized around 50 +/- 10.
		a.Model.Weights.Coefficients[0] = 1
		a.Model.Scaler.Mean[0] = 50
		a.Model.Scaler.Scale[0] = 10
	})
	c, err := Load(path, testLogger())
	require.NoError(t, err)

	v := make([]float64, features.VectorSize)

	v[0] = 50 // exactly the mean: z = 0
	prob, err := c.Score(v)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, prob, 1e-9)

	v[0] = 60 // one standard deviation above: sigmoid(1)
	prob, err = c.Score(v)
	require.NoError(t, err)
	assert.InDelta(t, 0.7310585786, prob, 1e-6)

	v[0] = 40 // one below: sigmoid(-1)
	prob, err = c.Score(v)
	require.NoError(t, err)
	assert.InDelta(t, 0.2689414214, prob, 1e-6)
}

func TestScoreRejectsWrongVectorLength(t *testing.T) {
	path := writeArtifact(t, nil)
	c, err := Load(path, testLogger())
	require.NoError(t, err)

	_, err = c.Score([]float64{1, 2, 3})
	require.Error(t, err)
}
