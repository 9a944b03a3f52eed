package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mediway/labreports/constants"
	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/entity"
	"github.com/mediway/labreports/internal/events"
)

const defaultListLimit = 50

type ReportRunner interface {
	Run(ctx context.Context, docPath string, hints entity.Hints) (string, error)
}

type ReportStore interface {
	Fetch(ctx context.Context, reportID string) (*entity.Report, error)
	Delete(ctx context.Context, reportID string) (bool, error)
	List(ctx context.Context, limit int) ([]entity.ReportSummary, error)
}

type Exporter interface {
	ExportReportXLSX(ctx context.Context, reportID string) ([]byte, error)
}

type Explainer interface {
	Explain(ctx context.Context, report *entity.Report, pc entity.PatientContext, prompt string) (string, error)
}

// HistoryInvalidator drops cached conversation windows of deleted reports.
type HistoryInvalidator interface {
	Invalidate(ctx context.Context, reportID string) error
}

type ReportsService struct {
	processor ReportRunner
	reports   ReportStore
	exporter  Exporter
	explainer Explainer
	history   HistoryInvalidator
	events    events.Publisher
	logger    *slog.Logger
}

type Deps struct {
	Processor ReportRunner
	Reports   ReportStore
	Exporter  Exporter
	Explainer Explainer // nil disables Explain
	History   HistoryInvalidator
	Events    events.Publisher
}

func NewReportsService(d Deps, logger *slog.Logger) *ReportsService {
	if logger == nil {
		logger = slog.Default()
	}
	pub := d.Events
	if pub == nil {
		pub = events.Noop{}
	}
	return &ReportsService{
		processor: d.Processor,
		reports:   d.Reports,
		exporter:  d.Exporter,
		explainer: d.Explainer,
		history:   d.History,
		events:    pub,
		logger:    logger,
	}
}

func (s *ReportsService) ProcessReport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req processRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed request")
	}
	req.Path = strings.TrimSpace(req.Path)
	v := common.NewValidator().
		Field("path", req.Path, common.Required, common.DocumentPath).
		Field("name", req.Name, common.MaxLength(200)).
		Field("age", req.Age, common.MaxLength(32)).
		Field("gender", req.Gender, common.MaxLength(32))
	if err := common.ValidateAndReturnError(v); err != nil {
		s.logger.Error("process request invalid", "error", err)
		return nil, err
	}

	s.logger.Info("starting report processing", "path", req.Path)
	id, err := s.processor.Run(ctx, req.Path, entity.Hints{Name: req.Name, Age: req.Age, Gender: req.Gender})
	if err != nil {
		s.logger.Error("report processing failed", "path", req.Path, "error", err)
		return nil, common.StatusFromStage(err)
	}
	return structpb.NewStruct(map[string]interface{}{"report_id": id})
}

func (s *ReportsService) GetReport(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := reportID(in)
	if err != nil {
		return nil, err
	}
	r, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := toStruct(r)
	if err != nil {
		s.logger.Error("encode report failed", "report_id", id, "error", err)
		return nil, common.InternalError("encode report failed")
	}
	return out, nil
}

func (s *ReportsService) DeleteReport(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	id, err := reportID(in)
	if err != nil {
		return nil, err
	}
	ok, err := s.reports.Delete(ctx, id)
	if err != nil {
		s.logger.Error("delete report failed", "report_id", id, "error", err)
		return nil, common.StatusFromStage(err)
	}
	if s.history != nil {
		if err := s.history.Invalidate(ctx, id); err != nil {
			s.logger.Warn("history invalidate failed", "report_id", id, "error", err)
		}
	}
	if ok {
		if err := s.events.Publish(ctx, constants.EventReportDeleted, map[string]interface{}{"report_id": id}); err != nil {
			s.logger.Warn("publish delete event failed", "report_id", id, "error", err)
		}
	}
	return wrapperspb.Bool(ok), nil
}

func (s *ReportsService) ListReports(ctx context.Context, in *wrapperspb.Int32Value) (*structpb.Struct, error) {
	limit := int(in.GetValue())
	if limit <= 0 {
		limit = defaultListLimit
	}
	list, err := s.reports.List(ctx, limit)
	if err != nil {
		s.logger.Error("list reports failed", "error", err)
		return nil, common.StatusFromStage(err)
	}
	out, err := toStruct(map[string]interface{}{"reports": list})
	if err != nil {
		return nil, common.InternalError("encode reports failed")
	}
	return out, nil
}

func (s *ReportsService) ExportReport(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	id, err := reportID(in)
	if err != nil {
		return nil, err
	}
	xlsx, err := s.exporter.ExportReportXLSX(ctx, id)
	switch {
	case errors.Is(err, common.ErrNotFound):
		return nil, common.NotFoundError("report not found")
	case err != nil:
		s.logger.Error("export.xlsx.failed", "report_id", id, "error", err)
		return nil, common.InternalError("export failed")
	}
	return wrapperspb.Bytes(xlsx), nil
}

func (s *ReportsService) Explain(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	if s.explainer == nil {
		return nil, status.Error(codes.Unimplemented, "explanations are not configured")
	}
	var req explainRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed request")
	}
	v := common.NewValidator().
		Field("report_id", req.ReportID, common.Required, common.UUID).
		Field("prompt", req.Prompt, common.MaxLength(4000))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	r, err := s.fetch(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}
	reply, err := s.explainer.Explain(ctx, r, req.Context, req.Prompt)
	if err != nil {
		s.logger.Error("explain failed", "report_id", req.ReportID, "error", err)
		return nil, status.Error(codes.Unavailable, "explanation service unavailable")
	}
	return wrapperspb.String(reply), nil
}

func (s *ReportsService) fetch(ctx context.Context, id string) (*entity.Report, error) {
	r, err := s.reports.Fetch(ctx, id)
	if err != nil {
		s.logger.Error("fetch report failed", "report_id", id, "error", err)
		return nil, common.StatusFromStage(err)
	}
	if r == nil {
		return nil, common.NotFoundError("report not found")
	}
	return r, nil
}

func reportID(in *wrapperspb.StringValue) (string, error) {
	id := strings.TrimSpace(in.GetValue())
	v := common.NewValidator().Field("report_id", id, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return "", err
	}
	return id, nil
}
