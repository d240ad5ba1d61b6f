package db

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"osteosex/ml"
)

var database *sql.DB

var errNotInitialized = errors.New("database not initialized")

// Estimation is a persisted ml.Row with its log time.
type Estimation struct {
	ml.Row
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// InitDB opens the SQLite estimation log, creating it when needed.
func InitDB(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS estimations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        sample_id TEXT NOT NULL,
        element TEXT NOT NULL,
        method TEXT NOT NULL,
        slot INTEGER NOT NULL,
        classifier INTEGER NOT NULL,
        sex TEXT NOT NULL,
        probability REAL NOT NULL,
        score REAL NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_estimations_sample ON estimations(sample_id);
    `
	if _, err := conn.Exec(query); err != nil {
		conn.Close()
		return err
	}
	database = conn
	return nil
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// SaveEstimations appends rows to the log in a single transaction.
func SaveEstimations(rows []ml.Row) error {
	if database == nil {
		return errNotInitialized
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := database.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
        INSERT INTO estimations (
            sample_id, element, method, slot, classifier, sex, probability, score, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range rows {
		if _, err := stmt.Exec(r.SampleID, r.Element, string(r.Method), int(r.Slot), r.Classifier,
			r.Sex.String(), r.Probability, r.Score, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// QueryEstimations returns the newest rows first. sampleID filters when set.
func QueryEstimations(sampleID string, limit int) ([]Estimation, error) {
	if database == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := database.Query(`
        SELECT id, sample_id, element, method, slot, classifier, sex, probability, score, created_at
        FROM estimations
        WHERE ? = '' OR sample_id = ?
        ORDER BY id DESC
        LIMIT ?`, sampleID, sampleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	estimations := make([]Estimation, 0)
	for rows.Next() {
		var e Estimation
		var method, sex string
		var slot int
		if err := rows.Scan(&e.ID, &e.SampleID, &e.Element, &method, &slot, &e.Classifier,
			&sex, &e.Probability, &e.Score, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Method = ml.Method(method)
		e.Slot = ml.Slot(slot)
		if err := e.Sex.UnmarshalText([]byte(sex)); err != nil {
			return nil, err
		}
		estimations = append(estimations, e)
	}
	return estimations, rows.Err()
}
