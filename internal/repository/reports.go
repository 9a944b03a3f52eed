package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/entity"
)

// ReportRepository persists parsed reports.
type ReportRepository interface {
	Insert(ctx context.Context, parsed entity.ParsedReport) (string, error)
	Fetch(ctx context.Context, reportID string) (*entity.Report, error)
	Delete(ctx context.Context, reportID string) (bool, error)
	List(ctx context.Context, limit int) ([]entity.ReportSummary, error)
}

type reportRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *DB, logger *slog.Logger) ReportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &reportRepository{db: db, logger: logger, now: time.Now}
}

// Insert writes the patient row and every test entry in one transaction and
// returns the freshly generated report ID. Nothing is stored on failure.
func (r *reportRepository) Insert(ctx context.Context, parsed entity.ParsedReport) (string, error) {
	reportID := uuid.NewString()
	b := entsql.Dialect(r.db.Dialect())
	p := parsed.Patient

	tx, err := r.db.Driver.Tx(ctx)
	if err != nil {
		return "", common.StoreError("begin transaction", err)
	}

	q, args := b.Insert(patientsTable).
		Columns("report_id", "name", "lab_no", "age", "gender", "collected_date", "reported_date", "created_at").
		Values(reportID, p.Name, p.LabNo, p.Age, p.Gender, p.Collected, p.Reported, r.now().UTC()).
		Query()
	if err := tx.Exec(ctx, q, args, nil); err != nil {
		_ = tx.Rollback()
		r.logger.Error("failed to insert patient", "report_id", reportID, "error", err)
		return "", common.StoreError("insert patient", err)
	}

	if len(parsed.Tests) > 0 {
		ins := b.Insert(testsTable).
			Columns("report_id", "position", "name", "result", "unit", "interval_lower", "interval_upper")
		for i, t := range parsed.Tests {
			ins.Values(reportID, i, t.Name, t.Result, t.Unit, nullString(t.Interval.Lower), nullString(t.Interval.Upper))
		}
		q, args = ins.Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			_ = tx.Rollback()
			r.logger.Error("failed to insert test entries", "report_id", reportID, "count", len(parsed.Tests), "error", err)
			return "", common.StoreError("insert test entries", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", common.StoreError("commit report", err)
	}
	r.logger.Info("report stored", "report_id", reportID, "tests", len(parsed.Tests))
	return reportID, nil
}

// Fetch returns the report with its tests in insertion order, or nil when no
// patient row exists for reportID.
func (r *reportRepository) Fetch(ctx context.Context, reportID string) (*entity.Report, error) {
	b := entsql.Dialect(r.db.Dialect())

	q, args := b.Select("report_id", "name", "lab_no", "age", "gender", "collected_date", "reported_date", "created_at").
		From(b.Table(patientsTable)).
		Where(entsql.EQ("report_id", reportID)).
		Query()
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, q, args, rows); err != nil {
		return nil, common.StoreError("query patient", err)
	}
	var (
		report  entity.Report
		found   bool
		created any
	)
	for rows.Next() {
		p := &report.Patient
		if err := rows.Scan(&report.ReportID, &p.Name, &p.LabNo, &p.Age, &p.Gender, &p.Collected, &p.Reported, &created); err != nil {
			_ = rows.Close()
			return nil, common.StoreError("scan patient", err)
		}
		found = true
	}
	if err := closeRows(rows); err != nil {
		return nil, common.StoreError("read patient", err)
	}
	if !found {
		return nil, nil
	}
	ts, err := scanTime(created)
	if err != nil {
		return nil, common.StoreError("decode created_at", err)
	}
	report.CreatedAt = ts

	q, args = b.Select("name", "result", "unit", "interval_lower", "interval_upper").
		From(b.Table(testsTable)).
		Where(entsql.EQ("report_id", reportID)).
		OrderBy("position").
		Query()
	rows = &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, q, args, rows); err != nil {
		return nil, common.StoreError("query test entries", err)
	}
	report.Tests = make([]entity.TestEntry, 0)
	for rows.Next() {
		var (
			t            entity.TestEntry
			lower, upper sql.NullString
		)
		if err := rows.Scan(&t.Name, &t.Result, &t.Unit, &lower, &upper); err != nil {
			_ = rows.Close()
			return nil, common.StoreError("scan test entry", err)
		}
		t.Interval = entity.ReferenceInterval{Lower: stringPtr(lower), Upper: stringPtr(upper)}
		report.Tests = append(report.Tests, t)
	}
	if err := closeRows(rows); err != nil {
		return nil, common.StoreError("read test entries", err)
	}
	return &report, nil
}

// Delete removes the patient row, its test entries and its conversation
// history as separate statements. It reports whether a patient row existed.
func (r *reportRepository) Delete(ctx context.Context, reportID string) (bool, error) {
	b := entsql.Dialect(r.db.Dialect())

	q, args := b.Delete(patientsTable).Where(entsql.EQ("report_id", reportID)).Query()
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, q, args, &res); err != nil {
		return false, common.StoreError("delete patient", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, common.StoreError("delete patient", err)
	}

	for _, table := range []string{testsTable, historyTable} {
		q, args = b.Delete(table).Where(entsql.EQ("report_id", reportID)).Query()
		if err := r.db.Driver.Exec(ctx, q, args, nil); err != nil {
			r.logger.Error("failed to delete dependent rows", "table", table, "report_id", reportID, "error", err)
			return n > 0, common.StoreError(fmt.Sprintf("delete %s", table), err)
		}
	}

	if n == 0 {
		r.logger.Debug("delete requested for unknown report", "report_id", reportID)
		return false, nil
	}
	r.logger.Info("report deleted", "report_id", reportID)
	return true, nil
}

// List returns the most recent reports with their test counts.
func (r *reportRepository) List(ctx context.Context, limit int) ([]entity.ReportSummary, error) {
	b := entsql.Dialect(r.db.Dialect())
	p := b.Table(patientsTable)
	// Joined tables get an alias; column refs must be built against it.
	t := b.Table(testsTable).As("t")

	sel := b.Select(p.C("report_id"), p.C("name"), p.C("reported_date"), p.C("created_at"), entsql.As(entsql.Count(t.C("id")), "test_count")).
		From(p).
		LeftJoin(t).On(p.C("report_id"), t.C("report_id")).
		GroupBy(p.C("report_id"), p.C("name"), p.C("reported_date"), p.C("created_at")).
		OrderBy(entsql.Desc(p.C("created_at")))
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()

	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, q, args, rows); err != nil {
		return nil, common.StoreError("list reports", err)
	}
	out := make([]entity.ReportSummary, 0)
	for rows.Next() {
		var (
			s       entity.ReportSummary
			created any
			count   int64
		)
		if err := rows.Scan(&s.ReportID, &s.Name, &s.Reported, &created, &count); err != nil {
			_ = rows.Close()
			return nil, common.StoreError("scan report summary", err)
		}
		ts, err := scanTime(created)
		if err != nil {
			_ = rows.Close()
			return nil, common.StoreError("decode created_at", err)
		}
		s.CreatedAt = ts
		s.TestCount = int(count)
		out = append(out, s)
	}
	if err := closeRows(rows); err != nil {
		return nil, common.StoreError("read report summaries", err)
	}
	return out, nil
}
