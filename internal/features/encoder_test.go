package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heart-disease-predictor-server/internal/domain"
)

func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }

func samplePatient() *domain.Patient {
	return &domain.Patient{
		ID:             7,
		Age:            63,
		Sex:            domain.SexMale,
		Dataset:        "Cleveland",
		ChestPain:      domain.ChestPainAsymptomatic,
		RestingBP:      intPtr(145),
		Cholesterol:    intPtr(233),
		FastingBS:      domain.FlagTrue,
		RestingECG:     domain.RestingECGLVHypertrophy,
		MaxHeartRate:   intPtr(150),
		ExerciseAngina: domain.FlagFalse,
		Oldpeak:        floatPtr(2.3),
		Slope:          domain.SlopeDownsloping,
		MajorVessels:   intPtr(0),
		Thal:           domain.ThalFixedDefect,
		Diagnosis:      1,
	}
}

func TestEncodeFullRecord(t *testing.T) {
	v, err := Encode(samplePatient())
	require.NoError(t, err)
	require.Len(t, v, VectorSize)

	assert.Equal(t, []float64{63, 1, 3, 145, 233, 1, 2, 150, 0, 2.3, 2, 0, 1}, v)
}

func TestEncodeSexOrdinal(t *testing.T) {
	p := samplePatient()

	p.Sex = domain.SexMale
	v, err := Encode(p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v[SlotSex])

	p.Sex = domain.SexFemale
	v, err = Encode(p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v[SlotSex])
}

func TestEncodeUnknownSexFails(t *testing.T) {
	p := samplePatient()
	p.Sex = "Unknown"

	_, err := Encode(p)
	require.Error(t, err)

	var encErr *domain.EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, "sex", encErr.Field)
}

func TestEncodeUnknownChestPainFails(t *testing.T) {
	p := samplePatient()
	p.ChestPain = "sharp"

	_, err := Encode(p)
	require.Error(t, err)

	var encErr *domain.EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, "cp", encErr.Field)
}

func TestEncodeChestPainOrdinals(t *testing.T) {
	tests := []struct {
		cp   domain.ChestPainType
		want float64
	}{
		{domain.ChestPainTypicalAngina, 0},
		{domain.ChestPainAtypicalAngina, 1},
		{domain.ChestPainNonAnginal, 2},
		{domain.ChestPainAsymptomatic, 3},
	}
	for _, tt := range tests {
		p := samplePatient()
		p.ChestPain = tt.cp
		v, err := Encode(p)
		require.NoError(t, err)
		assert.Equal(t, tt.want, v[SlotChestPain], string(tt.cp))
	}
}

func TestEncodeFlagsCaseInsensitive(t *testing.T) {
	p := samplePatient()

	p.FastingBS = "true"
	p.ExerciseAngina = "True"
	v, err := Encode(p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v[SlotFastingBS])
	assert.Equal(t, 1.0, v[SlotExerciseAngina])

	// Anything that is not TRUE encodes as 0, never as an error.
	p.FastingBS = "FALSE"
	p.ExerciseAngina = "maybe"
	v, err = Encode(p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v[SlotFastingBS])
	assert.Equal(t, 0.0, v[SlotExerciseAngina])
}

func TestEncodeDefaults(t *testing.T) {
	p := samplePatient()
	p.Slope = ""        // unmapped slope defaults to flat
	p.Thal = "rare"     // unmapped thal defaults to normal
	p.MajorVessels = nil
	p.RestingECG = ""   // unmapped ECG defaults to normal
	p.RestingBP = nil
	p.Cholesterol = nil
	p.MaxHeartRate = nil
	p.Oldpeak = nil

	v, err := Encode(p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v[SlotSlope])
	assert.Equal(t, 0.0, v[SlotThal])
	assert.Equal(t, 0.0, v[SlotMajorVessels])
	assert.Equal(t, 0.0, v[SlotRestingECG])
	assert.Equal(t, 0.0, v[SlotRestingBP])
	assert.Equal(t, 0.0, v[SlotCholesterol])
	assert.Equal(t, 0.0, v[SlotMaxHeartRate])
	assert.Equal(t, 0.0, v[SlotOldpeak])
}

func TestFeatureNamesMatchVectorSize(t *testing.T) {
	assert.Len(t, FeatureNames, VectorSize)
}
