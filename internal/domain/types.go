// Package domain contains the core business entities and types for the heart
// disease risk service: patient records, their categorical vocabularies, and
// the prediction results produced by the classifier boundary.
//
// The categorical vocabularies mirror the UCI heart-disease dataset encoding.
// Their ordinal positions are consumed by the feature encoder and must not be
// reordered once a model has been trained against them.
package domain

// Sex is the patient's recorded sex.
type Sex string

const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
)

// ChestPainType classifies reported chest pain.
type ChestPainType string

const (
	ChestPainTypicalAngina  ChestPainType = "typical angina"
	ChestPainAtypicalAngina ChestPainType = "atypical angina"
	ChestPainNonAnginal     ChestPainType = "non-anginal"
	ChestPainAsymptomatic   ChestPainType = "asymptomatic"
)

// RestingECG is the resting electrocardiogram result.
type RestingECG string

const (
	RestingECGNormal         RestingECG = "normal"
	RestingECGSTTAbnormality RestingECG = "st-t abnormality"
	RestingECGLVHypertrophy  RestingECG = "lv hypertrophy"
)

// Slope is the slope of the peak exercise ST segment.
type Slope string

const (
	SlopeUpsloping   Slope = "upsloping"
	SlopeFlat        Slope = "flat"
	SlopeDownsloping Slope = "downsloping"
)

// Thalassemia is the thalassemia stress-test result. The "reversable"
// spelling is the dataset's own and is preserved for compatibility.
type Thalassemia string

const (
	ThalNormal           Thalassemia = "normal"
	ThalFixedDefect      Thalassemia = "fixed defect"
	ThalReversableDefect Thalassemia = "reversable defect"
)

// FlagString is a boolean stored as the enum strings "TRUE"/"FALSE",
// matching the relational schema's ENUM columns.
type FlagString string

const (
	FlagTrue  FlagString = "TRUE"
	FlagFalse FlagString = "FALSE"
)

// RiskLabel is the human-readable interpretation of a binary prediction.
type RiskLabel string

const (
	RiskHigh RiskLabel = "High Risk"
	RiskLow  RiskLabel = "Low Risk"
)

// IsValid reports whether the sex value is one of the known categories.
func (s Sex) IsValid() bool {
	switch s {
	case SexMale, SexFemale:
		return true
	default:
		return false
	}
}

// IsValid reports whether the chest pain type is one of the four categories.
func (c ChestPainType) IsValid() bool {
	switch c {
	case ChestPainTypicalAngina, ChestPainAtypicalAngina, ChestPainNonAnginal, ChestPainAsymptomatic:
		return true
	default:
		return false
	}
}

// IsValid reports whether the resting ECG result is a known category.
func (r RestingECG) IsValid() bool {
	switch r {
	case RestingECGNormal, RestingECGSTTAbnormality, RestingECGLVHypertrophy:
		return true
	default:
		return false
	}
}

// IsValid reports whether the slope value is a known category.
func (s Slope) IsValid() bool {
	switch s {
	case SlopeUpsloping, SlopeFlat, SlopeDownsloping:
		return true
	default:
		return false
	}
}

// IsValid reports whether the thalassemia value is a known category.
func (t Thalassemia) IsValid() bool {
	switch t {
	case ThalNormal, ThalFixedDefect, ThalReversableDefect:
		return true
	default:
		return false
	}
}

// IsValid reports whether the flag is one of "TRUE"/"FALSE".
func (f FlagString) IsValid() bool {
	switch f {
	case FlagTrue, FlagFalse:
		return true
	default:
		return false
	}
}

// RiskFromProbability derives the binary class, confidence and risk label
// from a raw classifier probability. The decision threshold is 0.5; the
// confidence is the probability of the predicted class.
func RiskFromProbability(probability float64) (class int, confidence float64, label RiskLabel) {
	if probability > 0.5 {
		return 1, probability, RiskHigh
	}
	return 0, 1 - probability, RiskLow
}

// BinarizeDiagnosis collapses the raw multi-valued diagnosis label (0-4 in
// the source data) into the canonical binary form: any non-zero value means
// disease present.
func BinarizeDiagnosis(num int) int {
	if num > 0 {
		return 1
	}
	return 0
}
