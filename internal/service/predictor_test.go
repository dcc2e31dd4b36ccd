package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heart-disease-predictor-server/internal/domain"
)

type fakeRepo struct {
	domain.PatientRepository
	patients map[int64]*domain.Patient
	latest   *domain.Patient
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*domain.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) GetLatest(ctx context.Context) (*domain.Patient, error) {
	if f.latest == nil {
		return nil, domain.ErrEmptyStore
	}
	return f.latest, nil
}

type fakeScorer struct {
	probability float64
	err         error
}

func (f *fakeScorer) Score(vector []float64) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.probability, nil
}

func (f *fakeScorer) Tag() string { return "logistic_regression" }

type fakeRecorder struct {
	records []*domain.PredictionRecord
	err     error
}

func (f *fakeRecorder) Record(ctx context.Context, record *domain.PredictionRecord) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, record)
	return "doc-1", nil
}

func (f *fakeRecorder) Close(ctx context.Context) error { return nil }

func testPatient(id int64) *domain.Patient {
	bp, chol, hr, ca := 130, 250, 160, 1
	oldpeak := 1.4
	return &domain.Patient{
		ID:             id,
		Age:            54,
		Sex:            domain.SexMale,
		Dataset:        "Cleveland",
		ChestPain:      domain.ChestPainAtypicalAngina,
		RestingBP:      &bp,
		Cholesterol:    &chol,
		FastingBS:      domain.FlagFalse,
		RestingECG:     domain.RestingECGNormal,
		MaxHeartRate:   &hr,
		ExerciseAngina: domain.FlagFalse,
		Oldpeak:        &oldpeak,
		Slope:          domain.SlopeFlat,
		MajorVessels:   &ca,
		Thal:           domain.ThalNormal,
		Diagnosis:      0,
		CreatedAt:      time.Now().UTC(),
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestPredictByIDHighRisk(t *testing.T) {
	repo := &fakeRepo{patients: map[int64]*domain.Patient{7: testPatient(7)}}
	recorder := &fakeRecorder{}
	svc := NewPredictor(repo, &fakeScorer{probability: 0.82}, recorder, testLogger())

	record, err := svc.PredictByID(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), record.PatientID)
	assert.Equal(t, 1, record.Prediction)
	assert.InDelta(t, 0.82, record.Probability, 1e-9)
	assert.InDelta(t, 0.82, record.Confidence, 1e-9)
	assert.Equal(t, domain.RiskHigh, record.RiskLabel)
	assert.Equal(t, "logistic_regression", record.ModelTag)
	assert.False(t, record.Timestamp.IsZero())
	require.NotNil(t, record.PatientData)
	assert.Equal(t, int64(7), record.PatientData.ID)
}

func TestPredictByIDLowRiskConfidence(t *testing.T) {
	repo := &fakeRepo{patients: map[int64]*domain.Patient{7: testPatient(7)}}
	svc := NewPredictor(repo, &fakeScorer{probability: 0.3}, &fakeRecorder{}, testLogger())

	record, err := svc.PredictByID(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 0, record.Prediction)
	assert.Equal(t, domain.RiskLow, record.RiskLabel)
	// Confidence for the negative class is the complement of the probability.
	assert.InDelta(t, 0.7, record.Confidence, 1e-9)
}

func TestPredictByIDNotFound(t *testing.T) {
	repo := &fakeRepo{patients: map[int64]*domain.Patient{}}
	svc := NewPredictor(repo, &fakeScorer{probability: 0.5}, &fakeRecorder{}, testLogger())

	_, err := svc.PredictByID(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestPredictLatest(t *testing.T) {
	latest := testPatient(12)
	repo := &fakeRepo{latest: latest}
	recorder := &fakeRecorder{}
	svc := NewPredictor(repo, &fakeScorer{probability: 0.51}, recorder, testLogger())

	record, err := svc.PredictLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), record.PatientID)
	require.Len(t, recorder.records, 1)
	assert.Equal(t, record, recorder.records[0])
}

func TestPredictLatestEmptyStore(t *testing.T) {
	svc := NewPredictor(&fakeRepo{}, &fakeScorer{probability: 0.5}, &fakeRecorder{}, testLogger())

	_, err := svc.PredictLatest(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestPredictRecorderFailureDoesNotFailPrediction(t *testing.T) {
	repo := &fakeRepo{patients: map[int64]*domain.Patient{7: testPatient(7)}}
	recorder := &fakeRecorder{err: domain.NewSecondaryStoreError("record prediction", errors.New("connection refused"))}
	svc := NewPredictor(repo, &fakeScorer{probability: 0.9}, recorder, testLogger())

	record, err := svc.PredictByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, record.Prediction)
}

func TestPredictNilRecorder(t *testing.T) {
	repo := &fakeRepo{patients: map[int64]*domain.Patient{7: testPatient(7)}}
	svc := NewPredictor(repo, &fakeScorer{probability: 0.9}, nil, testLogger())

	record, err := svc.PredictByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, record.RiskLabel)
}

func TestPredictScorerFailure(t *testing.T) {
	repo := &fakeRepo{patients: map[int64]*domain.Patient{7: testPatient(7)}}
	svc := NewPredictor(repo, &fakeScorer{err: errors.New("vector length mismatch")}, &fakeRecorder{}, testLogger())

	_, err := svc.PredictByID(context.Background(), 7)
	require.Error(t, err)
}

func TestPredictEncodingFailure(t *testing.T) {
	bad := testPatient(7)
	bad.Sex = "Unknown"
	repo := &fakeRepo{patients: map[int64]*domain.Patient{7: bad}}
	svc := NewPredictor(repo, &fakeScorer{probability: 0.5}, &fakeRecorder{}, testLogger())

	_, err := svc.PredictByID(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}
