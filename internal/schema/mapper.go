// Package schema owns the bidirectional translation between the external
// patient field names used on the wire (age, sex, cp, ...) and the relational
// column names they are stored under (patient_age, gender, chest_pain_type,
// ...). The mapping is fixed and bijective over exactly the 15 clinical
// fields; the identifier and creation timestamp are not user-settable and are
// deliberately outside its domain.
package schema

import (
	"github.com/heart-disease-predictor-server/internal/domain"
)

// externalToStorage is the canonical field mapping. Both directions are
// derived from this single table so the bijection cannot drift.
var externalToStorage = map[string]string{
	"age":      "patient_age",
	"sex":      "gender",
	"dataset":  "data_source",
	"cp":       "chest_pain_type",
	"trestbps": "resting_blood_pressure",
	"chol":     "cholesterol_level",
	"fbs":      "fasting_blood_sugar",
	"restecg":  "resting_ecg_results",
	"thalch":   "max_heart_rate",
	"exang":    "exercise_induced_angina",
	"oldpeak":  "st_depression",
	"slope":    "exercise_peak_slope",
	"ca":       "major_vessels_count",
	"thal":     "thalassemia_type",
	"num":      "heart_disease_diagnosis",
}

var storageToExternal = invert(externalToStorage)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// ExternalFields lists every external field name in the canonical order used
// for INSERT column lists and feature documentation.
var ExternalFields = []string{
	"age", "sex", "dataset", "cp", "trestbps", "chol", "fbs",
	"restecg", "thalch", "exang", "oldpeak", "slope", "ca", "thal", "num",
}

// StorageName translates an external field name to its storage column.
func StorageName(external string) (string, error) {
	col, ok := externalToStorage[external]
	if !ok {
		return "", &domain.UnknownFieldError{Field: external}
	}
	return col, nil
}

// ExternalName translates a storage column back to its external field name.
func ExternalName(column string) (string, error) {
	field, ok := storageToExternal[column]
	if !ok {
		return "", &domain.UnknownFieldError{Field: column}
	}
	return field, nil
}

// IsExternalField reports whether the name belongs to the mapper's domain.
func IsExternalField(name string) bool {
	_, ok := externalToStorage[name]
	return ok
}

// StorageColumns translates a list of external field names, preserving
// order. It fails on the first unknown field.
func StorageColumns(external []string) ([]string, error) {
	cols := make([]string, 0, len(external))
	for _, f := range external {
		col, err := StorageName(f)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}
