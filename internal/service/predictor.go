// Package service wires the repository, feature encoder, classifier and
// prediction archive into the risk assessment workflow.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/heart-disease-predictor-server/internal/domain"
	"github.com/heart-disease-predictor-server/internal/features"
)

// Predictor runs risk assessments: load a patient, encode its features,
// score them with the frozen classifier and archive the outcome.
type Predictor struct {
	repo     domain.PatientRepository
	scorer   domain.RiskScorer
	recorder domain.PredictionRecorder
	log      *logrus.Logger
}

// NewPredictor creates the prediction service. The recorder may be nil when
// the secondary store is disabled; predictions still work, nothing is
// archived.
func NewPredictor(repo domain.PatientRepository, scorer domain.RiskScorer, recorder domain.PredictionRecorder, logger *logrus.Logger) *Predictor {
	return &Predictor{repo: repo, scorer: scorer, recorder: recorder, log: logger}
}

// PredictByID assesses the patient with the given identifier.
func (p *Predictor) PredictByID(ctx context.Context, id int64) (*domain.PredictionRecord, error) {
	patient, err := p.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.predict(ctx, patient)
}

// PredictLatest assesses the most recently created patient.
func (p *Predictor) PredictLatest(ctx context.Context) (*domain.PredictionRecord, error) {
	patient, err := p.repo.GetLatest(ctx)
	if err != nil {
		return nil, err
	}
	return p.predict(ctx, patient)
}

func (p *Predictor) predict(ctx context.Context, patient *domain.Patient) (*domain.PredictionRecord, error) {
	vector, err := features.Encode(patient)
	if err != nil {
		return nil, err
	}

	probability, err := p.scorer.Score(vector)
	if err != nil {
		return nil, err
	}

	class, confidence, label := domain.RiskFromProbability(probability)

	record := &domain.PredictionRecord{
		PatientID:   patient.ID,
		Prediction:  class,
		Probability: probability,
		Confidence:  confidence,
		RiskLabel:   label,
		Timestamp:   time.Now().UTC(),
		PatientData: patient,
		ModelTag:    p.scorer.Tag(),
	}

	// The archive write is best-effort. A prediction already produced is
	// never invalidated by a secondary store failure.
	if p.recorder != nil {
		if docID, err := p.recorder.Record(ctx, record); err != nil {
			p.log.WithError(err).WithField("patient_id", patient.ID).Warn("Failed to archive prediction")
		} else {
			p.log.WithFields(logrus.Fields{
				"patient_id":  patient.ID,
				"document_id": docID,
			}).Debug("Prediction archived")
		}
	}

	p.log.WithFields(logrus.Fields{
		"patient_id":  patient.ID,
		"prediction":  class,
		"probability": probability,
		"risk_level":  label,
	}).Info("Risk assessment completed")

	return record, nil
}
