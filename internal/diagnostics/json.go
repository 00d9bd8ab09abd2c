package diagnostics

import "encoding/json"

// JSONOutput represents the JSON structure for diagnostic output
type JSONOutput struct {
	Status   string       `json:"status"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
	Summary  Summary      `json:"summary"`
}

// Summary contains error and warning counts
type Summary struct {
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
	TotalCount   int `json:"total_count"`
}

// Summarize splits diagnostics into errors and warnings
func Summarize(diags []Diagnostic) JSONOutput {
	out := JSONOutput{
		Errors:   []Diagnostic{},
		Warnings: []Diagnostic{},
	}
	for _, d := range diags {
		if d.IsError() {
			out.Errors = append(out.Errors, d)
		} else if d.IsWarning() {
			out.Warnings = append(out.Warnings, d)
		}
	}

	out.Status = "success"
	if len(out.Errors) > 0 {
		out.Status = "error"
	} else if len(out.Warnings) > 0 {
		out.Status = "warning"
	}
	out.Summary = Summary{
		ErrorCount:   len(out.Errors),
		WarningCount: len(out.Warnings),
		TotalCount:   len(diags),
	}
	return out
}

// FormatAsJSON formats diagnostics as indented JSON
func FormatAsJSON(diags []Diagnostic) (string, error) {
	data, err := json.MarshalIndent(Summarize(diags), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
