package domain

import (
	"context"
)

// PatientRepository defines the persistence contract for patient records.
// All mutating operations are atomic: a failed call leaves no partial state.
type PatientRepository interface {
	// Create assigns a new identifier via storage auto-increment and returns
	// the full stored entity including id and creation timestamp.
	Create(ctx context.Context, input *PatientInput) (*Patient, error)

	// Get returns the patient with the given identifier or ErrNotFound.
	Get(ctx context.Context, id int64) (*Patient, error)

	// List returns patients in insertion order. Out-of-range offsets yield an
	// empty slice; negative offset or limit is a validation error.
	List(ctx context.Context, offset, limit int) ([]*Patient, error)

	// Count returns the total number of patient records.
	Count(ctx context.Context) (int64, error)

	// GetLatest returns the patient with the maximum creation timestamp,
	// ties broken by highest identifier, or ErrNotFound on an empty store.
	GetLatest(ctx context.Context) (*Patient, error)

	// Update applies only the explicitly supplied fields. An empty update is
	// a no-op returning the current record.
	Update(ctx context.Context, id int64, update *PatientUpdate) (*Patient, error)

	// Delete removes the patient and every dependent log row referencing it
	// within a single transaction.
	Delete(ctx context.Context, id int64) error

	// Close releases the underlying storage resources.
	Close() error
}

// PredictionRecorder appends immutable prediction documents to the secondary
// store. Implementations never update or delete.
type PredictionRecorder interface {
	// Record appends one prediction document and returns its identifier.
	Record(ctx context.Context, record *PredictionRecord) (string, error)

	// Close releases the underlying client resources.
	Close(ctx context.Context) error
}

// RiskScorer is the opaque classifier boundary: a fixed-length numeric
// feature vector in, a probability in [0,1] out. The scorer owns any
// normalization persisted alongside the trained model.
type RiskScorer interface {
	Score(vector []float64) (float64, error)
	Tag() string
}
