// Package patients implements the patient repository over the primary
// relational store. Two implementations live behind domain.PatientRepository:
// PostgresStore for deployments and SQLiteStore for local development, with
// the backend selected by configuration. A caching decorator can wrap either.
package patients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/heart-disease-predictor-server/internal/domain"
	"github.com/heart-disease-predictor-server/internal/schema"
)

// patientColumns is the canonical SELECT column order, matching scanPatient.
const patientColumns = `patient_id, patient_age, gender, data_source, chest_pain_type,
	resting_blood_pressure, cholesterol_level, fasting_blood_sugar,
	resting_ecg_results, max_heart_rate, exercise_induced_angina,
	st_depression, exercise_peak_slope, major_vessels_count,
	thalassemia_type, heart_disease_diagnosis, record_created_at`

// defaultQueryTimeout bounds individual storage calls so a stalled backend
// surfaces as a retryable StorageError instead of blocking the request.
const defaultQueryTimeout = 5 * time.Second

// PostgresStore implements domain.PatientRepository using PostgreSQL.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
	log     *logrus.Logger
}

// NewPostgresStore creates a PostgreSQL-backed patient repository. The
// *sql.DB is typically derived from the shared pgx pool; the store does not
// own the pool and Close only releases the derived handle.
func NewPostgresStore(db *sql.DB, timeout time.Duration, logger *logrus.Logger) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &PostgresStore{db: db, timeout: timeout, log: logger}, nil
}

// scanner is an interface for sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanPatient scans a row in patientColumns order into a Patient.
func scanPatient(s scanner) (*domain.Patient, error) {
	var (
		p          domain.Patient
		restingBP  sql.NullInt64
		chol       sql.NullInt64
		maxHR      sql.NullInt64
		oldpeak    sql.NullFloat64
		vessels    sql.NullInt64
	)

	err := s.Scan(
		&p.ID, &p.Age, &p.Sex, &p.Dataset, &p.ChestPain,
		&restingBP, &chol, &p.FastingBS,
		&p.RestingECG, &maxHR, &p.ExerciseAngina,
		&oldpeak, &p.Slope, &vessels,
		&p.Thal, &p.Diagnosis, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.RestingBP = nullableInt(restingBP)
	p.Cholesterol = nullableInt(chol)
	p.MaxHeartRate = nullableInt(maxHR)
	p.MajorVessels = nullableInt(vessels)
	if oldpeak.Valid {
		v := oldpeak.Float64
		p.Oldpeak = &v
	}
	return &p, nil
}

func nullableInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Create inserts a new patient; the identifier and creation timestamp are
// assigned by storage.
func (s *PostgresStore) Create(ctx context.Context, input *domain.PatientInput) (*domain.Patient, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO patients (
			patient_age, gender, data_source, chest_pain_type,
			resting_blood_pressure, cholesterol_level, fasting_blood_sugar,
			resting_ecg_results, max_heart_rate, exercise_induced_angina,
			st_depression, exercise_peak_slope, major_vessels_count,
			thalassemia_type, heart_disease_diagnosis
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING patient_id, record_created_at`

	var (
		id        int64
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx, query,
		input.Age, input.Sex, input.Dataset, input.ChestPain,
		input.RestingBP, input.Cholesterol, input.FastingBS,
		input.RestingECG, input.MaxHeartRate, input.ExerciseAngina,
		input.Oldpeak, input.Slope, input.MajorVessels,
		input.Thal, input.Diagnosis,
	).Scan(&id, &createdAt)
	if err != nil {
		s.log.WithError(err).Error("Failed to create patient")
		return nil, domain.NewStorageError("create patient", err)
	}

	s.log.WithFields(logrus.Fields{
		"patient_id": id,
		"dataset":    input.Dataset,
	}).Info("Patient created")

	return &domain.Patient{
		ID:             id,
		Age:            input.Age,
		Sex:            input.Sex,
		Dataset:        input.Dataset,
		ChestPain:      input.ChestPain,
		RestingBP:      input.RestingBP,
		Cholesterol:    input.Cholesterol,
		FastingBS:      input.FastingBS,
		RestingECG:     input.RestingECG,
		MaxHeartRate:   input.MaxHeartRate,
		ExerciseAngina: input.ExerciseAngina,
		Oldpeak:        input.Oldpeak,
		Slope:          input.Slope,
		MajorVessels:   input.MajorVessels,
		Thal:           input.Thal,
		Diagnosis:      input.Diagnosis,
		CreatedAt:      createdAt,
	}, nil
}

// Get retrieves a patient by identifier.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*domain.Patient, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM patients WHERE patient_id = $1`, patientColumns)

	p, err := scanPatient(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("patient %d: %w", id, domain.ErrNotFound)
		}
		return nil, domain.NewStorageError("get patient", err)
	}
	return p, nil
}

// List returns patients in insertion order with offset/limit pagination.
func (s *PostgresStore) List(ctx context.Context, offset, limit int) ([]*domain.Patient, error) {
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "must be non-negative")
	}
	if limit < 0 {
		return nil, domain.NewValidationError("limit", "must be non-negative")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM patients ORDER BY patient_id LIMIT $1 OFFSET $2`, patientColumns)

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, domain.NewStorageError("list patients", err)
	}
	defer rows.Close()

	result := make([]*domain.Patient, 0, limit)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan patient row", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list patients", err)
	}
	return result, nil
}

// Count returns the total number of patient records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&count); err != nil {
		return 0, domain.NewStorageError("count patients", err)
	}
	return count, nil
}

// GetLatest returns the most recently created patient, ties broken by
// highest identifier.
func (s *PostgresStore) GetLatest(ctx context.Context) (*domain.Patient, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT %s FROM patients ORDER BY record_created_at DESC, patient_id DESC LIMIT 1`,
		patientColumns,
	)

	p, err := scanPatient(s.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEmptyStore
		}
		return nil, domain.NewStorageError("get latest patient", err)
	}
	return p, nil
}

// Update applies only the explicitly supplied fields; an empty update
// returns the current record unchanged.
func (s *PostgresStore) Update(ctx context.Context, id int64, update *domain.PatientUpdate) (*domain.Patient, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	fields := update.Fields()
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}

	setClauses := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, fv := range fields {
		col, err := schema.StorageName(fv.Name)
		if err != nil {
			return nil, err
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, fv.Value)
	}
	args = append(args, id)

	updateCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(
		`UPDATE patients SET %s WHERE patient_id = $%d`,
		strings.Join(setClauses, ", "), len(fields)+1,
	)

	res, err := s.db.ExecContext(updateCtx, query, args...)
	if err != nil {
		s.log.WithError(err).WithField("patient_id", id).Error("Failed to update patient")
		return nil, domain.NewStorageError("update patient", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, domain.NewStorageError("update patient", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("patient %d: %w", id, domain.ErrNotFound)
	}

	return s.Get(ctx, id)
}

// Delete removes the patient and its dependent log rows as a single atomic
// unit. The transaction spans both deletes so a crash between them cannot
// leave orphans.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin delete transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM patient_logs WHERE patient_id = $1`, id); err != nil {
		return domain.NewStorageError("delete patient logs", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE patient_id = $1`, id)
	if err != nil {
		return domain.NewStorageError("delete patient", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError("delete patient", err)
	}
	if affected == 0 {
		return fmt.Errorf("patient %d: %w", id, domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit delete transaction", err)
	}

	s.log.WithField("patient_id", id).Info("Patient and dependent logs deleted")
	return nil
}

// Close releases the derived database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
