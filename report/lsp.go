package report

import (
	"encoding/json"
	"io"
	"path/filepath"
	"sort"

	"github.com/sourcegraph/go-lsp"

	"github.com/daedaleanai/pylintmark/diagnostics"
	"github.com/daedaleanai/pylintmark/marks"
)

const lspSource = "pylint"

// FileURI returns the file:// URI of a path
func FileURI(path string) lsp.DocumentURI {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return lsp.DocumentURI("file://" + filepath.ToSlash(path))
}

// PublishParams builds the textDocument/publishDiagnostics notification for one document.
// Ranges come from marks and count runes; lines are 0-based.
func PublishParams(uri lsp.DocumentURI, diags []diagnostics.Diagnostic, lines []string, base diagnostics.Base) lsp.PublishDiagnosticsParams {
	params := lsp.PublishDiagnosticsParams{URI: uri, Diagnostics: make([]lsp.Diagnostic, 0, len(diags))}
	for _, d := range diags {
		line := d.Line - base.Line
		var span marks.Span
		if line >= 0 && line < len(lines) {
			span = marks.Locate(lines[line], d, base)
		} else if col, ok := d.ColumnValue(); ok {
			span = marks.Span{Start: col - base.Column, End: col - base.Column + 1}
		}
		severity := lsp.DiagnosticSeverity(lsp.Warning)
		if d.Severity == diagnostics.SeverityError {
			severity = lsp.Error
		}
		message := d.Message
		if d.Symbol != "" {
			message += " (" + d.Symbol + ")"
		}
		params.Diagnostics = append(params.Diagnostics, lsp.Diagnostic{
			Range: lsp.Range{
				Start: lsp.Position{Line: line, Character: span.Start},
				End:   lsp.Position{Line: line, Character: span.End},
			},
			Severity: severity,
			Code:     d.Code,
			Source:   lspSource,
			Message:  message,
		})
	}
	return params
}

// LSP writes one publishDiagnostics params object per file, in the order files first appear
func LSP(w io.Writer, diags []diagnostics.Diagnostic, opts Options) error {
	byPath := make(map[string][]diagnostics.Diagnostic)
	order := make(map[string]int)
	for _, d := range diags {
		if _, ok := order[d.Path]; !ok {
			order[d.Path] = len(order)
		}
		byPath[d.Path] = append(byPath[d.Path], d)
	}
	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool { return order[paths[i]] < order[paths[j]] })

	enc := json.NewEncoder(w)
	for _, path := range paths {
		var lines []string
		if opts.Source != nil {
			var err error
			if lines, err = opts.Source(path); err != nil {
				log.Debug("No source for %s: %s", path, err)
			}
		}
		if err := enc.Encode(PublishParams(FileURI(path), byPath[path], lines, opts.Base)); err != nil {
			return err
		}
	}
	return nil
}
