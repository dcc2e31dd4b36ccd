package patients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/heart-disease-predictor-server/internal/domain"
	"github.com/heart-disease-predictor-server/internal/schema"
)

// SQLiteStore implements domain.PatientRepository using SQLite. It exists
// for local development and tests; the contract is identical to the
// PostgreSQL store.
type SQLiteStore struct {
	db      *sql.DB
	dbPath  string
	timeout time.Duration
	log     *logrus.Logger
}

// NewSQLiteStore creates a SQLite patient repository, creating the database
// file and schema if they do not exist.
func NewSQLiteStore(dbPath string, timeout time.Duration, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}

	return &SQLiteStore{db: db, dbPath: dbPath, timeout: timeout, log: logger}, nil
}

func createSQLiteSchema(db *sql.DB) error {
	stmts := `
	CREATE TABLE IF NOT EXISTS patients (
		patient_id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_age INTEGER NOT NULL,
		gender TEXT NOT NULL,
		data_source TEXT NOT NULL,
		chest_pain_type TEXT NOT NULL,
		resting_blood_pressure INTEGER,
		cholesterol_level INTEGER,
		fasting_blood_sugar TEXT NOT NULL DEFAULT 'FALSE',
		resting_ecg_results TEXT NOT NULL DEFAULT 'normal',
		max_heart_rate INTEGER,
		exercise_induced_angina TEXT NOT NULL DEFAULT 'FALSE',
		st_depression REAL,
		exercise_peak_slope TEXT NOT NULL DEFAULT 'flat',
		major_vessels_count INTEGER,
		thalassemia_type TEXT NOT NULL DEFAULT 'normal',
		heart_disease_diagnosis INTEGER NOT NULL DEFAULT 0,
		record_created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS patient_logs (
		log_id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id INTEGER NOT NULL,
		log_entry TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_patients_created_at ON patients(record_created_at);
	CREATE INDEX IF NOT EXISTS idx_patient_logs_patient_id ON patient_logs(patient_id);
	`
	_, err := db.Exec(stmts)
	return err
}

func (s *SQLiteStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Create inserts a new patient with an auto-assigned identifier.
func (s *SQLiteStore) Create(ctx context.Context, input *domain.PatientInput) (*domain.Patient, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	createdAt := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO patients (
			patient_age, gender, data_source, chest_pain_type,
			resting_blood_pressure, cholesterol_level, fasting_blood_sugar,
			resting_ecg_results, max_heart_rate, exercise_induced_angina,
			st_depression, exercise_peak_slope, major_vessels_count,
			thalassemia_type, heart_disease_diagnosis, record_created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Age, input.Sex, input.Dataset, input.ChestPain,
		input.RestingBP, input.Cholesterol, input.FastingBS,
		input.RestingECG, input.MaxHeartRate, input.ExerciseAngina,
		input.Oldpeak, input.Slope, input.MajorVessels,
		input.Thal, input.Diagnosis, createdAt,
	)
	if err != nil {
		return nil, domain.NewStorageError("create patient", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, domain.NewStorageError("create patient", err)
	}

	return s.Get(ctx, id)
}

// Get retrieves a patient by identifier.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*domain.Patient, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM patients WHERE patient_id = ?`, patientColumns)

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
func (s *SQLiteStore) List(ctx context.Context, offset, limit int) ([]*domain.Patient, error) {
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "must be non-negative")
	}
	if limit < 0 {
		return nil, domain.NewValidationError("limit", "must be non-negative")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM patients ORDER BY patient_id LIMIT ? OFFSET ?`, patientColumns)

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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
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
func (s *SQLiteStore) GetLatest(ctx context.Context) (*domain.Patient, error) {
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

// Update applies only the explicitly supplied fields.
func (s *SQLiteStore) Update(ctx context.Context, id int64, update *domain.PatientUpdate) (*domain.Patient, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	fields := update.Fields()
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}

	setClauses := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for _, fv := range fields {
		col, err := schema.StorageName(fv.Name)
		if err != nil {
			return nil, err
		}
		setClauses = append(setClauses, col+" = ?")
		args = append(args, fv.Value)
	}
	args = append(args, id)

	updateCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`UPDATE patients SET %s WHERE patient_id = ?`, strings.Join(setClauses, ", "))

	res, err := s.db.ExecContext(updateCtx, query, args...)
	if err != nil {
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

// Delete removes the patient and its dependent log rows in one transaction.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin delete transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM patient_logs WHERE patient_id = ?`, id); err != nil {
		return domain.NewStorageError("delete patient logs", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE patient_id = ?`, id)
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
	return nil
}

// InsertLog appends a dependent log row for a patient. Used by tests and the
// dataset loader to exercise cascade deletion.
func (s *SQLiteStore) InsertLog(ctx context.Context, patientID int64, entry string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO patient_logs (patient_id, log_entry) VALUES (?, ?)`, patientID, entry)
	if err != nil {
		return domain.NewStorageError("insert patient log", err)
	}
	return nil
}

// CountLogs returns the number of dependent log rows for a patient.
func (s *SQLiteStore) CountLogs(ctx context.Context, patientID int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM patient_logs WHERE patient_id = ?`, patientID).Scan(&count)
	if err != nil {
		return 0, domain.NewStorageError("count patient logs", err)
	}
	return count, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
