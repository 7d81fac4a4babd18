package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvisle/hostscan/internal/errors"
	"github.com/kvisle/hostscan/internal/scanning"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := New(sqlx.NewDb(db, "sqlmock"))
	t.Cleanup(func() { s.Close() })
	return s, mock
}

func TestBeginScan(t *testing.T) {
	s, mock := newMockStore(t)
	generation := uuid.New()

	mock.ExpectExec("INSERT INTO scans").
		WithArgs(generation.String(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := s.BeginScan(context.Background(), generation)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginScanError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO scans").
		WillReturnError(fmt.Errorf("disk full"))

	_, err := s.BeginScan(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStoreQuery))
}

func TestRecordHost(t *testing.T) {
	s, mock := newMockStore(t)

	result := scanning.NewScanningResult(netip.MustParseAddr("192.168.0.5"), uuid.New())
	result.Values["ping"] = "3 ms"
	result.Classification = scanning.ClassAlive
	result.MAC = "aa:bb:cc:dd:ee:ff"

	mock.ExpectExec("INSERT INTO scan_hosts").
		WithArgs(int64(7), "192.168.0.5", "alive", "aa:bb:cc:dd:ee:ff", `{"ping":"3 ms"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.RecordHost(context.Background(), 7, result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteScan(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE scans SET").
		WithArgs(sqlmock.AnyArg(), 254, 12, 3, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.CompleteScan(context.Background(), 7, 254, 12, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentScans(t *testing.T) {
	s, mock := newMockStore(t)

	started := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "generation", "started_at", "completed_at",
		"total_hosts", "alive_hosts", "with_ports_hosts",
	}).
		AddRow(2, uuid.New().String(), started, started.Add(time.Minute), 254, 12, 3).
		AddRow(1, uuid.New().String(), started.Add(-time.Hour), nil, 0, 0, 0)

	mock.ExpectQuery("SELECT (.+) FROM scans ORDER BY id DESC").
		WithArgs(10).
		WillReturnRows(rows)

	records, err := s.RecentScans(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(2), records[0].ID)
	assert.Equal(t, 254, records[0].TotalHosts)
	assert.True(t, records[0].CompletedAt.Valid)
	assert.False(t, records[1].CompletedAt.Valid)
}

func TestHostsForScan(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "scan_id", "address", "classification", "mac", "probe_values",
	}).AddRow(1, 7, "192.168.0.5", "with_ports", "", `{"ports":"22,80-82"}`)

	mock.ExpectQuery("SELECT (.+) FROM scan_hosts WHERE scan_id").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	records, err := s.HostsForScan(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "192.168.0.5", records[0].Address)
	assert.Equal(t, "with_ports", records[0].Classification)
	assert.Contains(t, records[0].ProbeValues, "22,80-82")
}

func TestQueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM scans").
		WillReturnError(fmt.Errorf("locked"))

	records, err := s.RecentScans(context.Background(), 5)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, errors.IsCode(err, errors.CodeStoreQuery))
}

func TestOpenFailureWrapsCause(t *testing.T) {
	// A path inside a missing directory cannot be created.
	s, err := Open(filepath.Join(t.TempDir(), "missing", "history.db"))
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, errors.IsCode(err, errors.CodeStoreOpen))
	assert.Error(t, stderrors.Unwrap(err))
}

func TestOpenRoundtrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	generation := uuid.New()

	scanID, err := s.BeginScan(ctx, generation)
	require.NoError(t, err)

	result := scanning.NewScanningResult(netip.MustParseAddr("10.0.0.1"), generation)
	result.Values["ping"] = "2 ms"
	result.Classification = scanning.ClassAlive
	require.NoError(t, s.RecordHost(ctx, scanID, result))
	require.NoError(t, s.CompleteScan(ctx, scanID, 1, 1, 0))

	scans, err := s.RecentScans(ctx, 5)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, generation.String(), scans[0].Generation)
	assert.Equal(t, 1, scans[0].AliveHosts)

	hosts, err := s.HostsForScan(ctx, scanID)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "10.0.0.1", hosts[0].Address)
	assert.Equal(t, "alive", hosts[0].Classification)
}
