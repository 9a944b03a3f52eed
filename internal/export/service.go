package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/entity"
)

// ReportFetcher is the read side of the report repository.
type ReportFetcher interface {
	Fetch(ctx context.Context, reportID string) (*entity.Report, error)
}

// Service produces XLSX bytes for stored reports.
type Service struct {
	reports ReportFetcher
	logger  *slog.Logger
}

func NewService(reports ReportFetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reports: reports, logger: logger}
}

const (
	reportSheet = "Report"
	testsSheet  = "Tests"
)

var testHeaders = []string{"Test", "Result", "Unit", "Reference Lower", "Reference Upper"}

// ExportReportXLSX returns a workbook with the patient header block followed
// by the test table of one report. Unknown IDs yield common.ErrNotFound.
func (s *Service) ExportReportXLSX(ctx context.Context, reportID string) ([]byte, error) {
	start := time.Now()
	r, err := s.fetch(ctx, reportID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := useSheet(f, reportSheet); err != nil {
		return nil, err
	}

	header := [][2]string{
		{"Report ID", r.ReportID},
		{"Name", r.Patient.Name},
		{"Lab No", r.Patient.LabNo},
		{"Age", r.Patient.Age},
		{"Gender", r.Patient.Gender},
		{"Collected", r.Patient.Collected},
		{"Reported", r.Patient.Reported},
	}
	row := 1
	for _, kv := range header {
		setRow(f, reportSheet, row, kv[0], kv[1])
		row++
	}

	row++ // blank separator
	setRow(f, reportSheet, row, toAny(testHeaders)...)
	row++
	for _, t := range r.Tests {
		setRow(f, reportSheet, row, t.Name, t.Result, t.Unit, entity.StrOrEmpty(t.Interval.Lower), entity.StrOrEmpty(t.Interval.Upper))
		row++
	}

	_ = f.SetColWidth(reportSheet, "A", "A", 28)
	_ = f.SetColWidth(reportSheet, "B", "B", 40)
	_ = f.SetColWidth(reportSheet, "C", "E", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"report_id", reportID,
		"rows", len(r.Tests),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportReportsXLSX flattens several reports into one "Tests" sheet, one row
// per test entry, in the order the IDs are given.
func (s *Service) ExportReportsXLSX(ctx context.Context, reportIDs []string) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := useSheet(f, testsSheet); err != nil {
		return nil, err
	}

	headers := append([]string{"Report ID", "Name", "Reported"}, testHeaders...)
	setRow(f, testsSheet, 1, toAny(headers)...)

	row := 2
	for _, id := range reportIDs {
		r, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, t := range r.Tests {
			setRow(f, testsSheet, row, r.ReportID, r.Patient.Name, r.Patient.Reported,
				t.Name, t.Result, t.Unit, entity.StrOrEmpty(t.Interval.Lower), entity.StrOrEmpty(t.Interval.Upper))
			row++
		}
	}

	_ = f.SetColWidth(testsSheet, "A", "A", 38)
	_ = f.SetColWidth(testsSheet, "B", "B", 24)
	_ = f.SetColWidth(testsSheet, "D", "D", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"reports", len(reportIDs),
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) fetch(ctx context.Context, reportID string) (*entity.Report, error) {
	r, err := s.reports.Fetch(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("fetch report: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("report %s: %w", reportID, common.ErrNotFound)
	}
	return r, nil
}

// useSheet renames the default sheet so the workbook has exactly one.
func useSheet(f *excelize.File, name string) error {
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
