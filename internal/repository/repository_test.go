package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/entity"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "reports.db")}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, quietLogger()) })
	require.NoError(t, Migrate(ctx, db))
	return db
}

func sampleReport() entity.ParsedReport {
	return entity.ParsedReport{
		Patient: entity.PatientFields{
			Name:      "Jane Doe",
			LabNo:     "A123",
			Age:       "45 Years",
			Gender:    "Female",
			Collected: "12/01/2024",
			Reported:  "13/01/2024",
		},
		Tests: []entity.TestEntry{
			{Name: "Hemoglobin", Result: "13.5", Unit: "g/dL", Interval: entity.ReferenceInterval{Lower: entity.StrPtr("12"), Upper: entity.StrPtr("16")}},
			{Name: "Bilirubin Direct", Result: "0.2", Unit: "mg/dL", Interval: entity.ReferenceInterval{Lower: entity.StrPtr(entity.NoLowerBound), Upper: entity.StrPtr("0.3")}},
			{Name: "Free Text", Result: "Positive", Unit: ""},
		},
	}
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:labreports.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite", SQLiteDSN(""))
	assert.Contains(t, SQLiteDSN("file:/tmp/x.db?mode=rwc"), "file:/tmp/x.db?mode=rwc&_pragma=foreign_keys(1)")
	assert.Equal(t, "file:a.db?_pragma=foreign_keys(1)", SQLiteDSN("file:a.db?_pragma=foreign_keys(1)"))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"}, quietLogger())
	require.Error(t, err)
}

func TestHealthCheck_SQLite(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, HealthCheck(context.Background(), db, time.Second, quietLogger()))
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(context.Background(), db))
}

func TestReportRepository_InsertFetch(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepository(openTestDB(t), quietLogger())

	id, err := repo.Insert(ctx, sampleReport())
	require.NoError(t, err)
	require.Len(t, id, 36)

	got, err := repo.Fetch(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ReportID)
	assert.Equal(t, sampleReport().Patient, got.Patient)
	assert.False(t, got.CreatedAt.IsZero())

	require.Len(t, got.Tests, 3)
	assert.Equal(t, "Hemoglobin", got.Tests[0].Name)
	assert.Equal(t, "12", *got.Tests[0].Interval.Lower)
	assert.Equal(t, "16", *got.Tests[0].Interval.Upper)
	assert.Equal(t, "Bilirubin Direct", got.Tests[1].Name)
	assert.Equal(t, entity.NoLowerBound, *got.Tests[1].Interval.Lower)
	assert.Equal(t, "Free Text", got.Tests[2].Name)
	assert.Nil(t, got.Tests[2].Interval.Lower)
	assert.Nil(t, got.Tests[2].Interval.Upper)
}

func TestReportRepository_InsertEmptyTests(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepository(openTestDB(t), quietLogger())

	id, err := repo.Insert(ctx, entity.ParsedReport{Patient: entity.PatientFields{Name: "Solo"}})
	require.NoError(t, err)

	got, err := repo.Fetch(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Solo", got.Patient.Name)
	assert.NotNil(t, got.Tests)
	assert.Empty(t, got.Tests)
}

func TestReportRepository_DistinctIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepository(openTestDB(t), quietLogger())

	a, err := repo.Insert(ctx, sampleReport())
	require.NoError(t, err)
	b, err := repo.Insert(ctx, sampleReport())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestReportRepository_FetchUnknown(t *testing.T) {
	repo := NewReportRepository(openTestDB(t), quietLogger())
	got, err := repo.Fetch(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// countRows returns how many rows of table still reference reportID.
func countRows(t *testing.T, db *DB, table, reportID string) int {
	t.Helper()
	b := entsql.Dialect(db.Dialect())
	q, args := b.Select(entsql.Count("*")).From(b.Table(table)).Where(entsql.EQ("report_id", reportID)).Query()
	rows := &entsql.Rows{}
	require.NoError(t, db.Driver.Query(context.Background(), q, args, rows))
	defer rows.Close()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	return n
}

func TestReportRepository_Delete(t *testing.T) {
	for _, fk := range []bool{true, false} {
		t.Run(fmt.Sprintf("foreign_keys=%v", fk), func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "reports.db")

			// Migration needs foreign keys on, so the schema is always created
			// through a regular handle first.
			setup, err := Open(ctx, Config{Driver: DriverSQLite, DSN: path}, quietLogger())
			require.NoError(t, err)
			require.NoError(t, Migrate(ctx, setup))
			Close(setup, quietLogger())

			dsn := path
			if !fk {
				// Cascades off: only the explicit statements can remove dependent rows.
				dsn = "file:" + path + "?_pragma=foreign_keys(0)&_pragma=busy_timeout(5000)&_time_format=sqlite"
			}
			db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: dsn}, quietLogger())
			require.NoError(t, err)
			t.Cleanup(func() { Close(db, quietLogger()) })

			repo := NewReportRepository(db, quietLogger())
			history := NewHistoryRepository(db, quietLogger())

			id, err := repo.Insert(ctx, sampleReport())
			require.NoError(t, err)
			keep, err := repo.Insert(ctx, sampleReport())
			require.NoError(t, err)
			for _, rid := range []string{id, keep} {
				require.NoError(t, history.Save(ctx, rid, []entity.Turn{
					{Role: entity.RoleUser, Content: "hi"},
					{Role: entity.RoleAssistant, Content: "hello"},
				}))
			}
			require.Equal(t, 3, countRows(t, db, testsTable, id))
			require.Equal(t, 2, countRows(t, db, historyTable, id))

			ok, err := repo.Delete(ctx, id)
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := repo.Fetch(ctx, id)
			require.NoError(t, err)
			assert.Nil(t, got)
			assert.Equal(t, 0, countRows(t, db, patientsTable, id))
			assert.Equal(t, 0, countRows(t, db, testsTable, id))
			assert.Equal(t, 0, countRows(t, db, historyTable, id))

			// Other reports are untouched.
			assert.Equal(t, 3, countRows(t, db, testsTable, keep))
			assert.Equal(t, 2, countRows(t, db, historyTable, keep))

			ok, err = repo.Delete(ctx, id)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestReportRepository_List(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	r := NewReportRepository(db, quietLogger()).(*reportRepository)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	older, err := r.Insert(ctx, sampleReport())
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(time.Hour) }
	newer, err := r.Insert(ctx, entity.ParsedReport{Patient: entity.PatientFields{Name: "John Roe", Reported: "14/01/2024"}})
	require.NoError(t, err)

	list, err := r.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].ReportID)
	assert.Equal(t, "John Roe", list[0].Name)
	assert.Equal(t, 0, list[0].TestCount)
	assert.Equal(t, older, list[1].ReportID)
	assert.Equal(t, 3, list[1].TestCount)
	assert.True(t, list[1].CreatedAt.Equal(base))

	limited, err := r.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newer, limited[0].ReportID)
}

func TestReportRepository_StoreErrorOnClosedDB(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "closed.db")}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, db))
	Close(db, quietLogger())

	_, err = NewReportRepository(db, quietLogger()).Insert(ctx, sampleReport())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStore))
}

func TestHistoryRepository_SaveReplacesWindow(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	id, err := NewReportRepository(db, quietLogger()).Insert(ctx, sampleReport())
	require.NoError(t, err)
	history := NewHistoryRepository(db, quietLogger())

	first := []entity.Turn{
		{Role: entity.RoleUser, Content: "q1"},
		{Role: entity.RoleAssistant, Content: "a1"},
	}
	require.NoError(t, history.Save(ctx, id, first))
	got, err := history.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := []entity.Turn{
		{Role: entity.RoleAssistant, Content: "a1"},
		{Role: entity.RoleUser, Content: "q2"},
		{Role: entity.RoleAssistant, Content: "a2"},
	}
	require.NoError(t, history.Save(ctx, id, second))
	got, err = history.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	require.NoError(t, history.Clear(ctx, id))
	got, err = history.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got)
}
