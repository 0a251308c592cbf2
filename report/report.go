/*
Functions for presenting refined diagnostics: coloured text for terminals, one JSON object per
line for tooling, YAML, and Language Server Protocol notifications for editors.
*/

package report

import (
	"io"
	"io/ioutil"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/daedaleanai/pylintmark/diagnostics"
)

// Format selects a renderer
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatLSP  Format = "lsp"
)

// Formats lists the supported formats
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatLSP}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.Errorf("unknown format `%s`", s)
}

// A SourceFunc returns the lines of a source file
type SourceFunc func(path string) ([]string, error)

// ReadSource reads a file from disk and splits it into lines
func ReadSource(path string) ([]string, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return SplitLines(string(data)), nil
}

// SplitLines splits a buffer into lines without their terminators
func SplitLines(src string) []string {
	src = strings.TrimSuffix(src, "\n")
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// CachedSource memoizes a SourceFunc. It is safe for concurrent use.
func CachedSource(src SourceFunc) SourceFunc {
	var mu sync.Mutex
	cache := make(map[string][]string)
	return func(path string) ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		if lines, ok := cache[path]; ok {
			return lines, nil
		}
		lines, err := src(path)
		if err != nil {
			return nil, err
		}
		cache[path] = lines
		return lines, nil
	}
}

// sourceLine returns the line a diagnostic refers to, if it is available
func sourceLine(src SourceFunc, d diagnostics.Diagnostic, base diagnostics.Base) (string, bool) {
	if src == nil {
		return "", false
	}
	lines, err := src(d.Path)
	if err != nil {
		log.Debug("No source for %s: %s", d.Path, err)
		return "", false
	}
	idx := d.Line - base.Line
	if idx < 0 || idx >= len(lines) {
		return "", false
	}
	return lines[idx], true
}

// Options control the rendering
type Options struct {
	// Base is the numbering convention of the diagnostics
	Base diagnostics.Base
	// Color enables ANSI colours in the text format
	Color bool
	// Context shows the offending source line under every diagnostic in the text format
	Context bool
	// Source provides the lines for Context and for the LSP ranges
	Source SourceFunc
	// Style is the chroma style of source excerpts
	Style string
}

// DefaultOptions returns options for pylint diagnostics, reading sources from disk
func DefaultOptions() Options {
	return Options{
		Base:   diagnostics.ToolBase,
		Source: CachedSource(ReadSource),
		Style:  "monokai",
	}
}

// Write renders the diagnostics in the given format
func Write(w io.Writer, format Format, diags []diagnostics.Diagnostic, opts Options) error {
	switch format {
	case FormatText:
		return Text(w, diags, opts)
	case FormatJSON:
		return JSON(w, diags, opts.Base)
	case FormatYAML:
		return YAML(w, diags, opts.Base)
	case FormatLSP:
		return LSP(w, diags, opts)
	}
	return errors.Errorf("unknown format `%s`", format)
}

// IsTerminal returns true if w is a terminal and colours are not disabled via NO_COLOR
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
