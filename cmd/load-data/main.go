// Command load-data bulk-loads a heart disease CSV dataset into the patients
// table. Rows are streamed in chunks, each chunk committed in its own
// transaction via the PostgreSQL COPY protocol.
package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/heart-disease-predictor-server/internal/config"
	"github.com/heart-disease-predictor-server/internal/database"
)

var loadColumns = []string{
	"patient_age", "gender", "data_source", "chest_pain_type",
	"resting_blood_pressure", "cholesterol_level", "fasting_blood_sugar",
	"resting_ecg_results", "max_heart_rate", "exercise_induced_angina",
	"st_depression", "exercise_peak_slope", "major_vessels_count",
	"thalassemia_type", "heart_disease_diagnosis",
}

// csvFields is the external field order expected per row, after resolving
// the header.
var csvFields = []string{
	"age", "sex", "dataset", "cp", "trestbps", "chol", "fbs",
	"restecg", "thalch", "exang", "oldpeak", "slope", "ca", "thal", "num",
}

func main() {
	csvPath := flag.String("csv", "data/heart.csv", "path to the heart disease CSV file")
	chunkSize := flag.Int("chunk", 1000, "rows per transaction")
	flag.Parse()

	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := configManager.GetConfig()

	if cfg.Database.Driver != "postgres" {
		log.Fatalf("load-data requires the postgres driver, got %q", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", database.ConnectionString(cfg.Database))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}

	inserted, err := loadCSV(db, *csvPath, *chunkSize)
	if err != nil {
		log.Fatalf("Load aborted after %d rows: %v", inserted, err)
	}
	log.Printf("Finished: %d rows inserted", inserted)
}

func loadCSV(db *sql.DB, path string, chunkSize int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("reading csv header: %w", err)
	}

	index, err := resolveHeader(header)
	if err != nil {
		return 0, err
	}

	inserted := 0
	chunk := make([][]any, 0, chunkSize)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := copyChunk(db, chunk); err != nil {
			return err
		}
		inserted += len(chunk)
		log.Printf("Inserted %d rows", inserted)
		chunk = chunk[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return inserted, fmt.Errorf("reading csv row: %w", err)
		}

		row, err := convertRow(record, index)
		if err != nil {
			return inserted, fmt.Errorf("row %d: %w", inserted+len(chunk)+1, err)
		}
		chunk = append(chunk, row)

		if len(chunk) >= chunkSize {
			if err := flush(); err != nil {
				return inserted, err
			}
		}
	}

	if err := flush(); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// resolveHeader maps each expected field to its column position. Extra
// columns such as the dataset's own row id are ignored.
func resolveHeader(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.TrimSpace(strings.ToLower(name))] = i
	}

	index := make(map[string]int, len(csvFields))
	for _, field := range csvFields {
		pos, ok := positions[field]
		if !ok {
			return nil, fmt.Errorf("csv header missing column %q", field)
		}
		index[field] = pos
	}
	return index, nil
}

// convertRow applies the same coercions as the relational schema defaults:
// truthy flags become TRUE/FALSE enums, empty categoricals fall back to their
// column defaults, empty numerics become NULL.
func convertRow(record []string, index map[string]int) ([]any, error) {
	get := func(field string) string {
		pos := index[field]
		if pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	age, err := strconv.Atoi(get("age"))
	if err != nil {
		return nil, fmt.Errorf("invalid age %q", get("age"))
	}

	num := 0
	if raw := get("num"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid num %q", raw)
		}
		num = int(parsed)
	}

	return []any{
		age,
		get("sex"),
		get("dataset"),
		get("cp"),
		nullableNumber(get("trestbps")),
		nullableNumber(get("chol")),
		asFlag(get("fbs")),
		defaulted(get("restecg"), "normal"),
		nullableNumber(get("thalch")),
		asFlag(get("exang")),
		nullableFloat(get("oldpeak")),
		defaulted(get("slope"), "flat"),
		nullableNumber(get("ca")),
		defaulted(get("thal"), "normal"),
		num,
	}, nil
}

// asFlag converts the dataset's assorted truthy spellings to the TRUE/FALSE
// enum strings used by the schema.
func asFlag(val string) string {
	switch strings.ToUpper(val) {
	case "1", "TRUE", "T", "YES":
		return "TRUE"
	default:
		return "FALSE"
	}
}

func defaulted(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

func nullableNumber(val string) any {
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return int(parsed)
}

func nullableFloat(val string) any {
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return parsed
}

func copyChunk(db *sql.DB, rows [][]any) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(pq.CopyIn("patients", loadColumns...))
	if err != nil {
		return fmt.Errorf("preparing copy: %w", err)
	}

	for _, row := range rows {
		if _, err := stmt.Exec(row...); err != nil {
			stmt.Close()
			return fmt.Errorf("buffering row: %w", err)
		}
	}

	// Final Exec flushes the COPY buffer.
	if _, err := stmt.Exec(); err != nil {
		stmt.Close()
		return fmt.Errorf("flushing copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("closing copy: %w", err)
	}
	return tx.Commit()
}
