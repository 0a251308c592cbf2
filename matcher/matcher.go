/*
Turns the text output of pylint into raw diagnostics. pylint is run with a fixed message template
so that every diagnostic occupies exactly one line of the form `<line>:<column>:<code>: <message>`,
optionally followed by ` (<symbol>)`. Everything else in the stream (module banners, score
summaries, continuation lines of multi-line messages) is dropped.
*/

package matcher

import (
	"strconv"
	"strings"

	"github.com/peterebden/go-deferred-regex"

	"github.com/daedaleanai/pylintmark/diagnostics"
	"github.com/daedaleanai/pylintmark/logging"
)

var log = logging.Log

var (
	// The code letter selects the severity class; other letters do not match at all.
	reDiagnostic = deferredregex.DeferredRegex{
		Re: `^(?P<line>\d+):(?P<col>\d+):(?:(?P<error>[FE])|(?P<warning>[CIWR]))(?P<number>\d+): (?P<message>.*?)\r?$`,
	}
	reDiagnosticWithSymbol = deferredregex.DeferredRegex{
		Re: `^(?P<line>\d+):(?P<col>\d+):(?:(?P<error>[FE])|(?P<warning>[CIWR]))(?P<number>\d+): (?P<message>.*?)(?: \((?P<symbol>[a-z][a-z0-9-]*)\))?\r?$`,
	}
)

// MessageTemplate is the pylint --msg-template the matcher expects
const MessageTemplate = "{line}:{column}:{msg_id}: {msg}"

// MessageTemplateWithSymbol is the template used when symbols are requested
const MessageTemplateWithSymbol = MessageTemplate + " ({symbol})"

// A Matcher extracts diagnostics from the output of pylint.
type Matcher struct {
	// Base is the numbering convention of the line and column fields in the input. It is
	// reported alongside the diagnostics so consumers can convert, the matcher never rebases.
	Base diagnostics.Base
	// Symbols is true if lines may carry a trailing symbolic name, which is then split from the
	// message.
	Symbols bool
}

// New returns a matcher for output in the given numbering convention
func New(base diagnostics.Base, symbols bool) *Matcher {
	return &Matcher{Base: base, Symbols: symbols}
}

// Template returns the message template that produces output this matcher understands
func (m *Matcher) Template() string {
	if m.Symbols {
		return MessageTemplateWithSymbol
	}
	return MessageTemplate
}

func (m *Matcher) regex() *deferredregex.DeferredRegex {
	if m.Symbols {
		return &reDiagnosticWithSymbol
	}
	return &reDiagnostic
}

// Match scans a whole output buffer and returns one diagnostic per matching line, in the order
// the lines appear.
func (m *Matcher) Match(output string) []diagnostics.Diagnostic {
	res := make([]diagnostics.Diagnostic, 0)
	for _, line := range strings.Split(output, "\n") {
		if d, ok := m.MatchLine(line); ok {
			res = append(res, d)
		}
	}
	return res
}

// MatchLine parses a single line. The second return value is false when the line is not a
// diagnostic.
func (m *Matcher) MatchLine(line string) (diagnostics.Diagnostic, bool) {
	re := m.regex()
	matches := re.FindStringSubmatch(line)
	if matches == nil {
		return diagnostics.Diagnostic{}, false
	}

	var d diagnostics.Diagnostic
	var letter, number string
	// Recall that the first entry is the complete match, hence all the off-by-one stuff.
	for i, name := range re.SubexpNames()[1:] {
		match := matches[i+1]
		switch name {
		case "line":
			n, err := strconv.Atoi(match)
			if err != nil {
				log.Debug("Dropping line with invalid line number: %s", line)
				return diagnostics.Diagnostic{}, false
			}
			d.Line = n
		case "col":
			n, err := strconv.Atoi(match)
			if err != nil {
				log.Debug("Dropping line with invalid column: %s", line)
				return diagnostics.Diagnostic{}, false
			}
			d.Column = diagnostics.Col(n)
		case "error":
			if match != "" {
				letter = match
				d.Severity = diagnostics.SeverityError
			}
		case "warning":
			if match != "" {
				letter = match
				d.Severity = diagnostics.SeverityWarning
			}
		case "number":
			number = match
		case "message":
			d.Message = match
		case "symbol":
			d.Symbol = match
		}
	}
	d.Code = letter + number
	return d, true
}
