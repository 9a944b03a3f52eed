package llm

// BuildReportJSONSchema returns the JSON-Schema used to validate extraction output.
// It is also sent to the model so it can see the exact shape. Only the top-level
// structure is required; any test field may be missing or "".
func BuildReportJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	interval := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"Lower": str,
			"Upper": str,
		},
	}
	test := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"Name":               str,
			"Result":             str,
			"Unit":               str,
			"Reference Interval": interval,
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"Patient Details": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"Collected": str,
					"Reported":  str,
				},
			},
			"Tests": map[string]any{
				"type":  "array",
				"items": test,
			},
		},
		"required": []string{"Patient Details", "Tests"},
	}
}
