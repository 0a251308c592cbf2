package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/daedaleanai/pylintmark/diagnostics"
	"github.com/daedaleanai/pylintmark/logging"
	"github.com/daedaleanai/pylintmark/marks"
)

var log = logging.Log

// Text writes one line per diagnostic, `path:line:col: severity CODE message`, in 1-based
// positions. With Context the source line follows, with the marked span underlined.
func Text(w io.Writer, diags []diagnostics.Diagnostic, opts Options) error {
	errorColor := color.New(color.FgRed, color.Bold)
	warningColor := color.New(color.FgYellow, color.Bold)
	codeColor := color.New(color.Faint)
	markColor := color.New(color.FgGreen, color.Bold)
	for _, c := range []*color.Color{errorColor, warningColor, codeColor, markColor} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	for _, d := range diags {
		line, col, hasCol := d.Position(opts.Base, diagnostics.HostBase)
		loc := fmt.Sprintf("%s:%d", d.Path, line)
		if hasCol {
			loc = fmt.Sprintf("%s:%d", loc, col)
		}
		severity := warningColor.Sprint(d.Severity)
		if d.Severity == diagnostics.SeverityError {
			severity = errorColor.Sprint(d.Severity)
		}
		code := d.Code
		if d.Symbol != "" {
			code = fmt.Sprintf("%s(%s)", d.Code, d.Symbol)
		}
		if _, err := fmt.Fprintf(w, "%s: %s %s %s\n", loc, severity, codeColor.Sprint(code), d.Message); err != nil {
			return err
		}

		if !opts.Context {
			continue
		}
		text, ok := sourceLine(opts.Source, d, opts.Base)
		if !ok {
			continue
		}
		span := marks.Locate(text, d, opts.Base)
		if err := writeExcerpt(w, text, span, opts, markColor); err != nil {
			return err
		}
	}
	return nil
}

const excerptIndent = "    "

func writeExcerpt(w io.Writer, text string, span marks.Span, opts Options, markColor *color.Color) error {
	highlighted := text
	if opts.Color {
		highlighted = highlight(text, opts.Style)
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", excerptIndent, highlighted); err != nil {
		return err
	}

	runes := []rune(text)
	var pad strings.Builder
	for _, r := range runes[:span.Start] {
		// tabs are copied so the underline lines up whatever the tab width
		if r == '\t' {
			pad.WriteRune('\t')
		} else {
			pad.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
		}
	}
	width := runewidth.StringWidth(string(runes[span.Start:span.End]))
	if width < 1 {
		width = 1
	}
	underline := "^" + strings.Repeat("~", width-1)
	_, err := fmt.Fprintf(w, "%s%s%s\n", excerptIndent, pad.String(), markColor.Sprint(underline))
	return err
}

// highlight returns a single line of python with terminal colour escapes
func highlight(text, styleName string) string {
	lexer := lexers.Get("python")
	if lexer == nil {
		return text
	}
	lexer = chroma.Coalesce(lexer)
	it, err := lexer.Tokenise(nil, text)
	if err != nil {
		return text
	}
	// the lexer terminates the input with a newline, it is written by the caller
	tokens := it.Tokens()
	for len(tokens) > 0 {
		last := &tokens[len(tokens)-1]
		last.Value = strings.TrimRight(last.Value, "\n")
		if last.Value != "" {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}

	style := styles.Get(styleName)
	formatter := formatters.Get("terminal256")
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, chroma.Literator(tokens...)); err != nil {
		return text
	}
	return buf.String()
}
