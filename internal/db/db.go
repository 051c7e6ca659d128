// Package db persists the kiosk-side audit trail of locker operations and the
// serial port configurations, backed by sqlite.
//
// The locker controller itself persists nothing; the API layer records an
// event row around every operation it drives.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/parcelpoint/lockerd/internal/monitoring"
)

type DB struct {
	*sql.DB
}

// OpenDB opens the database without touching the schema; used by the migrate
// CLI, which manages the schema itself.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &DB{sqlDB}, nil
}

// NewDB opens the database and ensures the base schema exists.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS locker_events (
			id                TEXT PRIMARY KEY,
			operation         TEXT NOT NULL,
			station           INTEGER NOT NULL,
			lock_number       INTEGER NOT NULL,
			success           INTEGER NOT NULL,
			status            TEXT,
			error             TEXT,
			response_time_ms  INTEGER,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS serial_config (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			name              TEXT NOT NULL,
			port_path         TEXT NOT NULL,
			baud_rate         INTEGER NOT NULL DEFAULT 9600,
			data_bits         INTEGER NOT NULL DEFAULT 8,
			stop_bits         INTEGER NOT NULL DEFAULT 1,
			parity            TEXT NOT NULL DEFAULT 'N',
			enabled           INTEGER NOT NULL DEFAULT 0,
			description       TEXT NOT NULL DEFAULT '',
			created_at        INTEGER NOT NULL DEFAULT (unixepoch()),
			updated_at        INTEGER NOT NULL DEFAULT (unixepoch())
		);
	`)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Event is one recorded locker operation.
type Event struct {
	ID             string `json:"id"`
	Operation      string `json:"operation"`
	Station        int    `json:"station"`
	Lock           int    `json:"lock"`
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Timestamp      string `json:"timestamp"`
}

// RecordEvent inserts one audit row.
func (db *DB) RecordEvent(e Event) error {
	_, err := db.Exec(
		`INSERT INTO locker_events (id, operation, station, lock_number, success, status, error, response_time_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Operation, e.Station, e.Lock, boolToInt(e.Success), e.Status, e.Error, e.ResponseTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to record locker event: %w", err)
	}
	return nil
}

// Events returns the most recent audit rows, newest first.
func (db *DB) Events(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, operation, station, lock_number, success, status, error, response_time_ms, timestamp
		 FROM locker_events ORDER BY timestamp DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var success int
		if err := rows.Scan(&e.ID, &e.Operation, &e.Station, &e.Lock, &success,
			&e.Status, &e.Error, &e.ResponseTimeMs, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Success = success == 1
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// AttachAdminRoutes mounts debug endpoints for the database: live SQL over
// tailsql and a gzip'd backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://lockerd.db", db.DB, &tailsql.DBOptions{
		Label: "Locker DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("backup-%d.db", time.Now().Unix())
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				monitoring.Logf("failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))

	return nil
}
