// Package store persists scan history in an embedded SQLite database: one
// row per scan pass and one row per host result, appended while results
// stream in.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/kvisle/hostscan/internal/errors"
	"github.com/kvisle/hostscan/internal/metrics"
	"github.com/kvisle/hostscan/internal/scanning"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	generation       TEXT    NOT NULL,
	started_at       TIMESTAMP NOT NULL,
	completed_at     TIMESTAMP,
	total_hosts      INTEGER NOT NULL DEFAULT 0,
	alive_hosts      INTEGER NOT NULL DEFAULT 0,
	with_ports_hosts INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scan_hosts (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	scan_id        INTEGER NOT NULL REFERENCES scans(id),
	address        TEXT    NOT NULL,
	classification TEXT    NOT NULL,
	mac            TEXT    NOT NULL DEFAULT '',
	probe_values   TEXT    NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_scan_hosts_scan ON scan_hosts(scan_id);
`

// ScanRecord is one completed or in-progress scan pass.
type ScanRecord struct {
	ID             int64        `db:"id"`
	Generation     string       `db:"generation"`
	StartedAt      time.Time    `db:"started_at"`
	CompletedAt    sql.NullTime `db:"completed_at"`
	TotalHosts     int          `db:"total_hosts"`
	AliveHosts     int          `db:"alive_hosts"`
	WithPortsHosts int          `db:"with_ports_hosts"`
}

// HostRecord is one host result within a scan pass. ProbeValues holds the
// per-probe outputs as a JSON object keyed by probe id.
type HostRecord struct {
	ID             int64  `db:"id"`
	ScanID         int64  `db:"scan_id"`
	Address        string `db:"address"`
	Classification string `db:"classification"`
	MAC            string `db:"mac"`
	ProbeValues    string `db:"probe_values"`
}

// Store wraps the scan-history database.
type Store struct {
	db      *sqlx.DB
	metrics *metrics.PrometheusMetrics
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, errors.WrapScanError(errors.CodeStoreOpen,
			"failed to open scan history database", err).WithContext("path", path)
	}
	s := New(db)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.WrapScanError(errors.CodeStoreOpen,
			"failed to apply schema", err)
	}
	return s, nil
}

// New wraps an existing database handle. The caller owns the schema; this
// is the entry point tests use with a mock connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, metrics: metrics.GetGlobalMetrics()}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginScan inserts a new pass row and returns its id.
func (s *Store) BeginScan(ctx context.Context, generation uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (generation, started_at) VALUES (?, ?)`,
		generation.String(), time.Now().UTC())
	if err != nil {
		s.metrics.IncrementStoreErrors("begin_scan")
		return 0, errors.WrapScanError(errors.CodeStoreQuery,
			"failed to insert scan pass", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		s.metrics.IncrementStoreErrors("begin_scan")
		return 0, errors.WrapScanError(errors.CodeStoreQuery,
			"failed to read scan pass id", err)
	}
	s.metrics.IncrementStoreQueries("begin_scan", "success")
	return id, nil
}

// RecordHost appends one host result to a pass.
func (s *Store) RecordHost(ctx context.Context, scanID int64, result *scanning.ScanningResult) error {
	values, err := json.Marshal(result.Values)
	if err != nil {
		return errors.WrapScanError(errors.CodeStoreQuery,
			"failed to encode probe values", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scan_hosts (scan_id, address, classification, mac, probe_values)
		 VALUES (?, ?, ?, ?, ?)`,
		scanID, result.Address.String(), result.Classification.String(),
		result.MAC, string(values))
	if err != nil {
		s.metrics.IncrementStoreErrors("record_host")
		return errors.WrapScanError(errors.CodeStoreQuery,
			"failed to insert host result", err)
	}
	s.metrics.IncrementStoreQueries("record_host", "success")
	return nil
}

// CompleteScan stamps a pass finished and records its aggregate counts.
func (s *Store) CompleteScan(ctx context.Context, scanID int64, total, alive, withPorts int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scans SET completed_at = ?, total_hosts = ?, alive_hosts = ?, with_ports_hosts = ?
		 WHERE id = ?`,
		time.Now().UTC(), total, alive, withPorts, scanID)
	if err != nil {
		s.metrics.IncrementStoreErrors("complete_scan")
		return errors.WrapScanError(errors.CodeStoreQuery,
			"failed to complete scan pass", err)
	}
	s.metrics.IncrementStoreQueries("complete_scan", "success")
	return nil
}

// RecentScans returns up to limit passes, newest first.
func (s *Store) RecentScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	var records []ScanRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT id, generation, started_at, completed_at, total_hosts, alive_hosts, with_ports_hosts
		 FROM scans ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		s.metrics.IncrementStoreErrors("recent_scans")
		return nil, errors.WrapScanError(errors.CodeStoreQuery,
			"failed to query scan passes", err)
	}
	s.metrics.IncrementStoreQueries("recent_scans", "success")
	return records, nil
}

// HostsForScan returns the host rows of one pass in insertion order.
func (s *Store) HostsForScan(ctx context.Context, scanID int64) ([]HostRecord, error) {
	var records []HostRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT id, scan_id, address, classification, mac, probe_values
		 FROM scan_hosts WHERE scan_id = ? ORDER BY id`, scanID)
	if err != nil {
		s.metrics.IncrementStoreErrors("hosts_for_scan")
		return nil, errors.WrapScanError(errors.CodeStoreQuery,
			"failed to query host results", err)
	}
	s.metrics.IncrementStoreQueries("hosts_for_scan", "success")
	return records, nil
}
