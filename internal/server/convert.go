package server

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mediway/labreports/internal/entity"
)

// toStruct converts any JSON-encodable value to a structpb.Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// fromStruct decodes a structpb.Struct into dst through its JSON form.
func fromStruct(s *structpb.Struct, dst any) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

type processRequest struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Age    string `json:"age"`
	Gender string `json:"gender"`
}

type explainRequest struct {
	ReportID string                `json:"report_id"`
	Prompt   string                `json:"prompt"`
	Context  entity.PatientContext `json:"context"`
}

// ReportFromStruct decodes a GetReport response.
func ReportFromStruct(s *structpb.Struct) (*entity.Report, error) {
	var r entity.Report
	if err := fromStruct(s, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
