// Package features converts patient records into the fixed-order numeric
// feature vector consumed by the classifier. The encoding rules are frozen:
// any trained model artifact depends on these exact slot positions and
// categorical ordinals.
package features

import (
	"github.com/heart-disease-predictor-server/internal/domain"
)

// VectorSize is the number of feature slots the classifier expects.
const VectorSize = 13

// Slot positions within the encoded vector.
const (
	SlotAge = iota
	SlotSex
	SlotChestPain
	SlotRestingBP
	SlotCholesterol
	SlotFastingBS
	SlotRestingECG
	SlotMaxHeartRate
	SlotExerciseAngina
	SlotOldpeak
	SlotSlope
	SlotMajorVessels
	SlotThal
)

// FeatureNames lists the slot names in vector order, matching the feature
// list persisted in model artifacts.
var FeatureNames = []string{
	"age", "sex", "cp", "trestbps", "chol", "fbs", "restecg",
	"thalch", "exang", "oldpeak", "slope", "ca", "thal",
}

var chestPainOrdinal = map[domain.ChestPainType]float64{
	domain.ChestPainTypicalAngina:  0,
	domain.ChestPainAtypicalAngina: 1,
	domain.ChestPainNonAnginal:     2,
	domain.ChestPainAsymptomatic:   3,
}

var restingECGOrdinal = map[domain.RestingECG]float64{
	domain.RestingECGNormal:         0,
	domain.RestingECGSTTAbnormality: 1,
	domain.RestingECGLVHypertrophy:  2,
}

var slopeOrdinal = map[domain.Slope]float64{
	domain.SlopeUpsloping:   0,
	domain.SlopeFlat:        1,
	domain.SlopeDownsloping: 2,
}

var thalOrdinal = map[domain.Thalassemia]float64{
	domain.ThalNormal:           0,
	domain.ThalFixedDefect:      1,
	domain.ThalReversableDefect: 2,
}

// Encode converts a patient record into the 13-slot feature vector.
//
// Sex and chest pain type have no defined default: values outside their
// vocabulary fail with EncodingError. Slope defaults to flat, thalassemia to
// normal, vessel count to 0; the boolean flags encode anything that is not
// (case-insensitively) "TRUE" as 0. Missing optional numerics encode as 0.
//
// The output is the raw, unnormalized vector. Normalization belongs to the
// scorer, which applies the scaler parameters persisted with the trained
// model; fitting a scaler on a single request is meaningless and was a
// correctness bug in earlier revisions of this pipeline.
func Encode(p *domain.Patient) ([]float64, error) {
	v := make([]float64, VectorSize)

	v[SlotAge] = float64(p.Age)

	switch p.Sex {
	case domain.SexMale:
		v[SlotSex] = 1
	case domain.SexFemale:
		v[SlotSex] = 0
	default:
		return nil, &domain.EncodingError{Field: "sex", Value: string(p.Sex)}
	}

	cp, ok := chestPainOrdinal[p.ChestPain]
	if !ok {
		return nil, &domain.EncodingError{Field: "cp", Value: string(p.ChestPain)}
	}
	v[SlotChestPain] = cp

	v[SlotRestingBP] = floatOf(p.RestingBP)
	v[SlotCholesterol] = floatOf(p.Cholesterol)
	v[SlotFastingBS] = flagValue(p.FastingBS)

	// Unmapped ECG results fall back to normal, matching the dataset loader.
	v[SlotRestingECG] = restingECGOrdinal[p.RestingECG]

	v[SlotMaxHeartRate] = floatOf(p.MaxHeartRate)
	v[SlotExerciseAngina] = flagValue(p.ExerciseAngina)

	if p.Oldpeak != nil {
		v[SlotOldpeak] = *p.Oldpeak
	}

	if ord, ok := slopeOrdinal[p.Slope]; ok {
		v[SlotSlope] = ord
	} else {
		v[SlotSlope] = slopeOrdinal[domain.SlopeFlat]
	}

	v[SlotMajorVessels] = floatOf(p.MajorVessels)

	if ord, ok := thalOrdinal[p.Thal]; ok {
		v[SlotThal] = ord
	} else {
		v[SlotThal] = thalOrdinal[domain.ThalNormal]
	}

	return v, nil
}

func floatOf(p *int) float64 {
	if p == nil {
		return 0
	}
	return float64(*p)
}

func flagValue(f domain.FlagString) float64 {
	if equalsTrueFold(string(f)) {
		return 1
	}
	return 0
}

// equalsTrueFold is a case-insensitive comparison against "TRUE" without
// allocating.
func equalsTrueFold(s string) bool {
	if len(s) != 4 {
		return false
	}
	const word = "TRUE"
	for i := 0; i < 4; i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c != word[i] {
			return false
		}
	}
	return true
}
