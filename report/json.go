package report

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/daedaleanai/pylintmark/diagnostics"
)

// LintMessage is the machine readable form of a diagnostic. Positions are 1-based, Char is 0
// when the diagnostic has no column.
type LintMessage struct {
	Name        string `json:"name" yaml:"name"`
	Code        string `json:"code" yaml:"code"`
	Severity    string `json:"severity" yaml:"severity"`
	Path        string `json:"path" yaml:"path"`
	Line        int    `json:"line" yaml:"line"`
	Char        int    `json:"char" yaml:"char"`
	Near        string `json:"near,omitempty" yaml:"near,omitempty"`
	Description string `json:"description" yaml:"description"`
}

// NewLintMessage converts a diagnostic numbered in base
func NewLintMessage(d diagnostics.Diagnostic, base diagnostics.Base) LintMessage {
	line, col, ok := d.Position(base, diagnostics.HostBase)
	if !ok {
		col = 0
	}
	name := d.Symbol
	if name == "" {
		name = d.Code
	}
	return LintMessage{
		Name:        name,
		Code:        d.Code,
		Severity:    d.Severity.String(),
		Path:        d.Path,
		Line:        line,
		Char:        col,
		Near:        d.Near,
		Description: d.Message,
	}
}

// LintMessages converts a list of diagnostics
func LintMessages(diags []diagnostics.Diagnostic, base diagnostics.Base) []LintMessage {
	res := make([]LintMessage, len(diags))
	for i, d := range diags {
		res[i] = NewLintMessage(d, base)
	}
	return res
}

// JSON writes one JSON object per diagnostic and line
func JSON(w io.Writer, diags []diagnostics.Diagnostic, base diagnostics.Base) error {
	jsonWriter := json.NewEncoder(w)
	for _, d := range diags {
		if err := jsonWriter.Encode(NewLintMessage(d, base)); err != nil {
			return err
		}
	}
	return nil
}

// YAML writes the diagnostics as a YAML list
func YAML(w io.Writer, diags []diagnostics.Diagnostic, base diagnostics.Base) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(LintMessages(diags, base)); err != nil {
		return err
	}
	return enc.Close()
}
