package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mediway/labreports/internal/common"
)

var errNoObject = errors.New("no JSON object found")

// ExtractJSONObject returns raw unchanged when it is a JSON object; otherwise
// the first balanced {...} substring, provided that substring parses.
func ExtractJSONObject(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		return trimmed, nil
	}

	start := bytes.IndexByte(raw, '{')
	if start < 0 {
		return nil, errNoObject
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := raw[start : i+1]
				if !json.Valid(candidate) {
					return nil, fmt.Errorf("first balanced object is not valid JSON")
				}
				return candidate, nil
			}
		}
	}
	return nil, fmt.Errorf("unbalanced braces: %w", errNoObject)
}

// SanitizeReportJSON coerces values a model commonly gets wrong so the document
// can still validate: numbers and nulls in string slots become strings, and a
// missing "Reference Interval" becomes an empty one. Top-level structure is
// never invented.
func SanitizeReportJSON(doc []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var changed []string
	coerce := func(obj map[string]any, path string, keys ...string) {
		for _, k := range keys {
			v, ok := obj[k]
			if !ok {
				continue
			}
			switch t := v.(type) {
			case string:
				obj[k] = strings.TrimSpace(t)
			case float64:
				obj[k] = strconv.FormatFloat(t, 'f', -1, 64)
				changed = append(changed, path+k+"(number)")
			case nil:
				obj[k] = ""
				changed = append(changed, path+k+"(null)")
			}
		}
	}

	if pd, ok := m["Patient Details"].(map[string]any); ok {
		coerce(pd, "Patient Details.", "Collected", "Reported")
	}
	if tests, ok := m["Tests"].([]any); ok {
		for i, item := range tests {
			t, ok := item.(map[string]any)
			if !ok {
				continue
			}
			path := fmt.Sprintf("Tests[%d].", i)
			coerce(t, path, "Name", "Result", "Unit")
			ri, ok := t["Reference Interval"].(map[string]any)
			if !ok {
				ri = map[string]any{}
				t["Reference Interval"] = ri
				changed = append(changed, path+"Reference Interval(missing)")
			}
			coerce(ri, path+"Reference Interval.", "Lower", "Upper")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Warn("llm.extract.sanitize_applied", "changed", changed)
	}
	return out, changed, nil
}

// DecodeReportDocument turns a model response into a validated ReportDocument.
// Every failure is an ExtractionError.
func DecodeReportDocument(raw []byte, logger *slog.Logger) (ReportDocument, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return ReportDocument{}, common.ExtractionError("locate json", err)
	}
	cleaned, _, err := SanitizeReportJSON(obj, logger)
	if err != nil {
		return ReportDocument{}, common.ExtractionError("sanitize", err)
	}
	var v any
	if err := json.Unmarshal(cleaned, &v); err != nil {
		return ReportDocument{}, common.ExtractionError("decode", err)
	}
	if err := ValidateReportValue(v); err != nil {
		return ReportDocument{}, common.ExtractionError("schema validation", err)
	}
	var doc ReportDocument
	if err := json.Unmarshal(cleaned, &doc); err != nil {
		return ReportDocument{}, common.ExtractionError("unmarshal", err)
	}
	return doc, nil
}
