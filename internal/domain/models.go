package domain

import (
	"time"
)

// Patient is the central clinical entity. JSON tags carry the external field
// names used on the wire and in prediction snapshots; the schema mapper owns
// the translation to relational column names. BSON tags are used when the
// record is denormalized into a prediction document.
type Patient struct {
	ID             int64         `json:"id" bson:"patient_id"`
	Age            int           `json:"age" bson:"age"`
	Sex            Sex           `json:"sex" bson:"sex"`
	Dataset        string        `json:"dataset" bson:"dataset"`
	ChestPain      ChestPainType `json:"cp" bson:"cp"`
	RestingBP      *int          `json:"trestbps" bson:"trestbps"`
	Cholesterol    *int          `json:"chol" bson:"chol"`
	FastingBS      FlagString    `json:"fbs" bson:"fbs"`
	RestingECG     RestingECG    `json:"restecg" bson:"restecg"`
	MaxHeartRate   *int          `json:"thalch" bson:"thalch"`
	ExerciseAngina FlagString    `json:"exang" bson:"exang"`
	Oldpeak        *float64      `json:"oldpeak" bson:"oldpeak"`
	Slope          Slope         `json:"slope" bson:"slope"`
	MajorVessels   *int          `json:"ca" bson:"ca"`
	Thal           Thalassemia   `json:"thal" bson:"thal"`
	Diagnosis      int           `json:"num" bson:"num"`
	CreatedAt      time.Time     `json:"created_at" bson:"created_at"`
}

// PatientInput carries the fields required to create a patient. Pointer
// fields are optional and stored as NULL when absent.
type PatientInput struct {
	Age            int           `json:"age"`
	Sex            Sex           `json:"sex"`
	Dataset        string        `json:"dataset"`
	ChestPain      ChestPainType `json:"cp"`
	RestingBP      *int          `json:"trestbps"`
	Cholesterol    *int          `json:"chol"`
	FastingBS      FlagString    `json:"fbs"`
	RestingECG     RestingECG    `json:"restecg"`
	MaxHeartRate   *int          `json:"thalch"`
	ExerciseAngina FlagString    `json:"exang"`
	Oldpeak        *float64      `json:"oldpeak"`
	Slope          Slope         `json:"slope"`
	MajorVessels   *int          `json:"ca"`
	Thal           Thalassemia   `json:"thal"`
	Diagnosis      int           `json:"num"`
}

// Validate ensures every required field is present and every categorical
// value belongs to its fixed vocabulary before the record reaches storage.
func (in *PatientInput) Validate() error {
	if in.Age <= 0 {
		return NewValidationError("age", "must be a positive integer")
	}
	if !in.Sex.IsValid() {
		return NewValidationError("sex", "must be Male or Female")
	}
	if in.Dataset == "" {
		return NewValidationError("dataset", "is required")
	}
	if !in.ChestPain.IsValid() {
		return NewValidationError("cp", "unknown chest pain type")
	}
	if !in.FastingBS.IsValid() {
		return NewValidationError("fbs", "must be TRUE or FALSE")
	}
	if !in.RestingECG.IsValid() {
		return NewValidationError("restecg", "unknown resting ECG result")
	}
	if !in.ExerciseAngina.IsValid() {
		return NewValidationError("exang", "must be TRUE or FALSE")
	}
	if !in.Slope.IsValid() {
		return NewValidationError("slope", "unknown slope value")
	}
	if !in.Thal.IsValid() {
		return NewValidationError("thal", "unknown thalassemia type")
	}
	if in.MajorVessels != nil && (*in.MajorVessels < 0 || *in.MajorVessels > 3) {
		return NewValidationError("ca", "must be between 0 and 3")
	}
	if in.Diagnosis < 0 || in.Diagnosis > 4 {
		return NewValidationError("num", "must be between 0 and 4")
	}
	return nil
}

// PatientUpdate is a partial update request. Every field is wrapped in a
// pointer so "omitted" and "set to zero value" stay distinguishable; only
// non-nil fields are applied.
type PatientUpdate struct {
	Age            *int           `json:"age"`
	Sex            *Sex           `json:"sex"`
	Dataset        *string        `json:"dataset"`
	ChestPain      *ChestPainType `json:"cp"`
	RestingBP      *int           `json:"trestbps"`
	Cholesterol    *int           `json:"chol"`
	FastingBS      *FlagString    `json:"fbs"`
	RestingECG     *RestingECG    `json:"restecg"`
	MaxHeartRate   *int           `json:"thalch"`
	ExerciseAngina *FlagString    `json:"exang"`
	Oldpeak        *float64       `json:"oldpeak"`
	Slope          *Slope         `json:"slope"`
	MajorVessels   *int           `json:"ca"`
	Thal           *Thalassemia   `json:"thal"`
	Diagnosis      *int           `json:"num"`
}

// FieldValue is a single explicitly supplied update field, keyed by its
// external name.
type FieldValue struct {
	Name  string
	Value any
}

// Fields returns the explicitly supplied fields in the canonical field
// order. An empty result means the update is a no-op.
func (u *PatientUpdate) Fields() []FieldValue {
	var fields []FieldValue
	add := func(name string, set bool, value any) {
		if set {
			fields = append(fields, FieldValue{Name: name, Value: value})
		}
	}
	add("age", u.Age != nil, deref(u.Age))
	add("sex", u.Sex != nil, deref(u.Sex))
	add("dataset", u.Dataset != nil, deref(u.Dataset))
	add("cp", u.ChestPain != nil, deref(u.ChestPain))
	add("trestbps", u.RestingBP != nil, deref(u.RestingBP))
	add("chol", u.Cholesterol != nil, deref(u.Cholesterol))
	add("fbs", u.FastingBS != nil, deref(u.FastingBS))
	add("restecg", u.RestingECG != nil, deref(u.RestingECG))
	add("thalch", u.MaxHeartRate != nil, deref(u.MaxHeartRate))
	add("exang", u.ExerciseAngina != nil, deref(u.ExerciseAngina))
	add("oldpeak", u.Oldpeak != nil, deref(u.Oldpeak))
	add("slope", u.Slope != nil, deref(u.Slope))
	add("ca", u.MajorVessels != nil, deref(u.MajorVessels))
	add("thal", u.Thal != nil, deref(u.Thal))
	add("num", u.Diagnosis != nil, deref(u.Diagnosis))
	return fields
}

// Validate checks the categorical values among the supplied fields.
func (u *PatientUpdate) Validate() error {
	if u.Age != nil && *u.Age <= 0 {
		return NewValidationError("age", "must be a positive integer")
	}
	if u.Sex != nil && !u.Sex.IsValid() {
		return NewValidationError("sex", "must be Male or Female")
	}
	if u.ChestPain != nil && !u.ChestPain.IsValid() {
		return NewValidationError("cp", "unknown chest pain type")
	}
	if u.FastingBS != nil && !u.FastingBS.IsValid() {
		return NewValidationError("fbs", "must be TRUE or FALSE")
	}
	if u.RestingECG != nil && !u.RestingECG.IsValid() {
		return NewValidationError("restecg", "unknown resting ECG result")
	}
	if u.ExerciseAngina != nil && !u.ExerciseAngina.IsValid() {
		return NewValidationError("exang", "must be TRUE or FALSE")
	}
	if u.Slope != nil && !u.Slope.IsValid() {
		return NewValidationError("slope", "unknown slope value")
	}
	if u.Thal != nil && !u.Thal.IsValid() {
		return NewValidationError("thal", "unknown thalassemia type")
	}
	if u.MajorVessels != nil && (*u.MajorVessels < 0 || *u.MajorVessels > 3) {
		return NewValidationError("ca", "must be between 0 and 3")
	}
	if u.Diagnosis != nil && (*u.Diagnosis < 0 || *u.Diagnosis > 4) {
		return NewValidationError("num", "must be between 0 and 4")
	}
	return nil
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// PredictionRecord is the immutable fact appended to the secondary store for
// every risk assessment. It may outlive the patient it references.
type PredictionRecord struct {
	PatientID   int64     `json:"patient_id" bson:"patient_id"`
	Prediction  int       `json:"prediction" bson:"prediction"`
	Probability float64   `json:"probability" bson:"probability"`
	Confidence  float64   `json:"confidence" bson:"confidence"`
	RiskLabel   RiskLabel `json:"risk_level" bson:"risk_level"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	PatientData *Patient  `json:"patient_data" bson:"patient_data"`
	ModelTag    string    `json:"model_type" bson:"model_type"`
}
