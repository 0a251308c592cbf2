// Package marks computes the span of a source line an editor underlines for a diagnostic.
package marks

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/daedaleanai/pylintmark/diagnostics"
)

// A Span is a half-open range of runes within a line, 0-based.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
	// WholeLine is set when the diagnostic could not be narrowed down within the line
	WholeLine bool `json:"wholeLine"`
}

// Len returns the number of runes covered
func (s Span) Len() int {
	return s.End - s.Start
}

// Locate finds the span to mark in lineText. The near token wins over the column; base is the
// numbering convention of the diagnostic's column.
func Locate(lineText string, d diagnostics.Diagnostic, base diagnostics.Base) Span {
	lineText = strings.TrimRight(lineText, "\r\n")
	if d.Near != "" {
		if span, ok := findNear(lineText, d.Near); ok {
			return span
		}
	}
	if col, ok := d.ColumnValue(); ok {
		if span, ok := wordAt(lineText, col-base.Column); ok {
			return span
		}
	}
	return wholeLine(lineText)
}

func findNear(line, near string) (Span, bool) {
	length := utf8.RuneCountInString(near)
	if !isIdentifier(near) {
		i := strings.Index(line, near)
		if i < 0 {
			return Span{}, false
		}
		start := utf8.RuneCountInString(line[:i])
		return Span{Start: start, End: start + length}, true
	}

	// identifiers only match whole words, `os` must not mark the middle of `pos`
	offset := 0
	for {
		i := strings.Index(line[offset:], near)
		if i < 0 {
			return Span{}, false
		}
		i += offset
		end := i + len(near)
		before, _ := utf8.DecodeLastRuneInString(line[:i])
		after, _ := utf8.DecodeRuneInString(line[end:])
		if (i == 0 || !isWordRune(before)) && (end == len(line) || !isWordRune(after)) {
			start := utf8.RuneCountInString(line[:i])
			return Span{Start: start, End: start + length}, true
		}
		offset = i + 1
	}
}

func wordAt(line string, col int) (Span, bool) {
	runes := []rune(line)
	if col < 0 || col >= len(runes) {
		return Span{}, false
	}
	end := col
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	if end == col {
		end++
	}
	return Span{Start: col, End: end}, true
}

func wholeLine(line string) Span {
	runes := []rune(line)
	start := 0
	for start < len(runes) && unicode.IsSpace(runes[start]) {
		start++
	}
	end := len(runes)
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return Span{Start: start, End: end, WholeLine: true}
}

func isIdentifier(s string) bool {
	for _, r := range s {
		if !isWordRune(r) {
			return false
		}
	}
	return s != ""
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
