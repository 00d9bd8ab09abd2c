// Package diagnostics carries the warnings produced while configuring and
// running a conversion: dropped replacement rules and references that have
// no target on the older runtime.
package diagnostics

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a diagnostic
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Severity
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Severity
func (s *Severity) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	switch str {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	default:
		*s = Error
	}
	return nil
}

// Diagnostic codes
// W001-W099: unresolved references found while converting classes
// C001-C099: replacement rules rejected while configuring
const (
	WarnMissingClass        = "W001"
	WarnMissingMethod       = "W002"
	WarnMissingField        = "W003"
	WarnUnsupportedCallKind = "W004"
	WarnConstantPoolFull    = "W005"
	WarnMalformedCode       = "W006"

	ConfigInvalidPattern = "C001"
	ConfigInvalidTarget  = "C002"
)

// Diagnostic is a single warning or configuration problem
type Diagnostic struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Class    string   `json:"class,omitempty"`  // class being converted
	Target   string   `json:"target,omitempty"` // referenced class
	Member   string   `json:"member,omitempty"` // referenced member: name + descriptor
	Message  string   `json:"message"`
}

// NewWarning creates a warning diagnostic
func NewWarning(code, class, target, member, message string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: Warning,
		Class:    class,
		Target:   target,
		Member:   member,
		Message:  message,
	}
}

// NewConfigError creates a configuration diagnostic for a dropped rule
func NewConfigError(code, rule, message string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: Error,
		Target:   rule,
		Message:  message,
	}
}

// Key identifies the referenced entity. Two diagnostics with the same key
// describe the same missing reference.
func (d Diagnostic) Key() string {
	return d.Code + " " + d.Target + "." + d.Member
}

// String formats the diagnostic on one line, without colors
func (d Diagnostic) String() string {
	if d.Class != "" {
		return fmt.Sprintf("%s: %s: %s: %s", strings.Title(d.Severity.String()), d.Code, d.Class, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", strings.Title(d.Severity.String()), d.Code, d.Message)
}

// Error implements the error interface
func (d Diagnostic) Error() string {
	return d.String()
}

// IsWarning returns true if the diagnostic is a warning
func (d Diagnostic) IsWarning() bool {
	return d.Severity == Warning
}

// IsError returns true if the diagnostic is an error
func (d Diagnostic) IsError() bool {
	return d.Severity == Error
}
