// Package histdb persists training telemetry to a SQLite file so runs can be
// compared and plotted after the fact.
package histdb

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"eqprop-forge/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	started_at TEXT NOT NULL,
	epochs INTEGER NOT NULL,
	gamma REAL NOT NULL,
	eta REAL NOT NULL,
	lambda REAL NOT NULL,
	shuffle INTEGER NOT NULL,
	seed INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS loss (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	epoch INTEGER NOT NULL,
	mse REAL NOT NULL,
	PRIMARY KEY (run_id, epoch)
);
CREATE TABLE IF NOT EXISTS snapshots (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	checkpoint INTEGER NOT NULL,
	sample INTEGER NOT NULL,
	edge INTEGER NOT NULL,
	weight REAL NOT NULL,
	delta REAL,
	PRIMARY KEY (run_id, checkpoint, sample, edge)
);
`

// RunMeta describes the hyperparameters of a stored run.
type RunMeta struct {
	Epochs  int
	Gamma   float64
	Eta     float64
	Lambda  float64
	Shuffle bool
	Seed    int64
}

// DB wraps the SQLite handle.
type DB struct {
	conn *sql.DB
}

// Open creates or opens the history database and ensures the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init history db: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close releases the underlying handle.
func (db *DB) Close() error { return db.conn.Close() }

// SaveRun stores one training run's loss curve and checkpoint snapshots in a
// single transaction and returns the new run id.
func (db *DB) SaveRun(name string, meta RunMeta, h *history.History) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("save run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (name, started_at, epochs, gamma, eta, lambda, shuffle, seed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		name, time.Now().UTC().Format(time.RFC3339),
		meta.Epochs, meta.Gamma, meta.Eta, meta.Lambda, boolToInt(meta.Shuffle), meta.Seed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	lossStmt, err := tx.Prepare(`INSERT INTO loss (run_id, epoch, mse) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare loss insert: %w", err)
	}
	defer lossStmt.Close()
	for epoch, mse := range h.Loss {
		if _, err := lossStmt.Exec(runID, epoch, mse); err != nil {
			return 0, fmt.Errorf("insert loss epoch %d: %w", epoch, err)
		}
	}

	snapStmt, err := tx.Prepare(
		`INSERT INTO snapshots (run_id, checkpoint, sample, edge, weight, delta)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer snapStmt.Close()
	for k, slab := range h.Weights {
		for sample, row := range slab {
			for edge, weight := range row {
				var delta interface{}
				if k > 0 {
					delta = h.Updates[k-1][sample][edge]
				}
				if _, err := snapStmt.Exec(runID, k, sample, edge, weight, delta); err != nil {
					return 0, fmt.Errorf("insert snapshot %d/%d/%d: %w", k, sample, edge, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// LossCurve reads back the loss history of a stored run, in epoch order.
func (db *DB) LossCurve(runID int64) ([]float64, error) {
	rows, err := db.conn.Query(`SELECT mse FROM loss WHERE run_id = ? ORDER BY epoch`, runID)
	if err != nil {
		return nil, fmt.Errorf("query loss: %w", err)
	}
	defer rows.Close()
	var curve []float64
	for rows.Next() {
		var mse float64
		if err := rows.Scan(&mse); err != nil {
			return nil, fmt.Errorf("scan loss: %w", err)
		}
		curve = append(curve, mse)
	}
	return curve, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
