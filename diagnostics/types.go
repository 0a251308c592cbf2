package diagnostics

import (
	"fmt"

	"github.com/pkg/errors"
)

// Coarse grouping of diagnostic codes for display purposes
type SeverityClass uint

const (
	SeverityError SeverityClass = iota
	SeverityWarning
)

// String returns the lower case name of the severity class
func (s SeverityClass) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler so that JSON and YAML output use the class name
func (s SeverityClass) MarshalText() ([]byte, error) {
	switch s {
	case SeverityError, SeverityWarning:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("invalid severity class %d", uint(s))
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *SeverityClass) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return errors.Errorf("unknown severity class %q", string(text))
	}
	return nil
}

// SeverityOf derives the severity class from the first letter of a diagnostic code. Fatal and
// error codes are errors; convention, informational, warning and refactor codes are warnings.
// The second return value is false for any other letter.
func SeverityOf(code string) (SeverityClass, bool) {
	if code == "" {
		return SeverityError, false
	}
	switch code[0] {
	case 'F', 'E':
		return SeverityError, true
	case 'C', 'I', 'W', 'R':
		return SeverityWarning, true
	}
	return SeverityError, false
}

// Base declares how a producer or consumer numbers lines and columns: the value of the first
// line and of the first column.
type Base struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

var (
	// ToolBase is the convention pylint emits: 1-based lines, 0-based columns.
	ToolBase = Base{Line: 1, Column: 0}
	// HostBase is the convention of editors and of the text output: everything 1-based.
	HostBase = Base{Line: 1, Column: 1}
)

// One issue reported by the external checker
type Diagnostic struct {
	// Path of the linted file as the user knows it, empty when parsing detached output
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// Line number in the base of the producer
	Line int `json:"line" yaml:"line"`
	// Column in the base of the producer, nil when absent
	Column *int `json:"column" yaml:"column"`
	// Diagnostic code, a severity letter followed by digits
	Code string `json:"code" yaml:"code"`
	// Symbolic name of the code, only present when the checker was asked to emit it
	Symbol   string        `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Severity SeverityClass `json:"severity" yaml:"severity"`
	Message  string        `json:"message" yaml:"message"`
	// Textual anchor of the offending span within the line. Set only when Column is nil.
	Near string `json:"near,omitempty" yaml:"near,omitempty"`
}

// Col returns a pointer to a copy of n, for use as a Diagnostic column
func Col(n int) *int {
	return &n
}

// HasColumn returns true if the diagnostic carries a column
func (d Diagnostic) HasColumn() bool {
	return d.Column != nil
}

// ColumnValue returns the column and whether it is present
func (d Diagnostic) ColumnValue() (int, bool) {
	if d.Column == nil {
		return 0, false
	}
	return *d.Column, true
}

// Position converts the line and column from one numbering convention to another. The column
// result is only meaningful when ok is true.
func (d Diagnostic) Position(from, to Base) (line, col int, ok bool) {
	line = d.Line - from.Line + to.Line
	if d.Column == nil {
		return line, 0, false
	}
	return line, *d.Column - from.Column + to.Column, true
}

// String formats the diagnostic in the host convention, mostly for logs and test failures
func (d Diagnostic) String() string {
	line, col, ok := d.Position(ToolBase, HostBase)
	loc := fmt.Sprintf("%s:%d", d.Path, line)
	if ok {
		loc = fmt.Sprintf("%s:%d", loc, col)
	}
	if d.Near != "" {
		return fmt.Sprintf("%s: %s %s: %s (near %q)", loc, d.Severity, d.Code, d.Message, d.Near)
	}
	return fmt.Sprintf("%s: %s %s: %s", loc, d.Severity, d.Code, d.Message)
}

// Equal compares two diagnostics by value, including the pointed-to column
func (d Diagnostic) Equal(other Diagnostic) bool {
	if (d.Column == nil) != (other.Column == nil) {
		return false
	}
	if d.Column != nil && *d.Column != *other.Column {
		return false
	}
	return d.Path == other.Path && d.Line == other.Line && d.Code == other.Code && d.Symbol == other.Symbol &&
		d.Severity == other.Severity && d.Message == other.Message && d.Near == other.Near
}
