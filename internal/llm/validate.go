package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const reportSchemaURL = "report.schema.json"

var (
	reportSchemaOnce sync.Once
	reportSchemaDoc  []byte
	reportSchema     *jsonschema.Schema
	reportSchemaErr  error
)

// loadReportSchema renders and compiles BuildReportJSONSchema once per process.
func loadReportSchema() (*jsonschema.Schema, []byte, error) {
	reportSchemaOnce.Do(func() {
		b, err := json.MarshalIndent(BuildReportJSONSchema(), "", "  ")
		if err != nil {
			reportSchemaErr = fmt.Errorf("marshal report schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(reportSchemaURL, bytes.NewReader(b)); err != nil {
			reportSchemaErr = fmt.Errorf("add report schema: %w", err)
			return
		}
		s, err := compiler.Compile(reportSchemaURL)
		if err != nil {
			reportSchemaErr = fmt.Errorf("compile report schema: %w", err)
			return
		}
		reportSchemaDoc, reportSchema = b, s
	})
	return reportSchema, reportSchemaDoc, reportSchemaErr
}

// ValidateReportValue checks a decoded JSON value (maps, slices, strings as
// produced by encoding/json) against the report schema.
func ValidateReportValue(v any) error {
	s, _, err := loadReportSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("json does not match report schema: %w", err)
	}
	return nil
}
