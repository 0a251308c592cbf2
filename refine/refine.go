/*
Decides the authoritative location of a diagnostic. pylint reports a useful column for only a subset
of its codes; for the rest the column is a placeholder (usually 0, the start of the enclosing
statement). The resolution table encodes what is known per code and the refiner applies it in a
fixed priority order:

 1. keyword: the diagnostic always concerns the same literal token
 2. pattern: a secondary expression extracts a near token or a column from the message
 3. no-column: the code carries no location information beyond the line
 4. fallback: the reported column is kept, except for the 0 placeholder

A textual near token always wins over a column: the host finds it in the line, which survives
edits made to the buffer after the checker ran.
*/

package refine

import (
	"strconv"

	"github.com/daedaleanai/pylintmark/diagnostics"
	"github.com/daedaleanai/pylintmark/logging"
)

var log = logging.Log

// Tier identifies which rule decided the location of a diagnostic
type Tier uint

const (
	TierKeyword Tier = iota
	TierPattern
	// A secondary pattern exists but did not match the message, the reported column is kept
	TierPatternMiss
	TierNoColumn
	TierFallback
)

// String returns the name of the tier
func (t Tier) String() string {
	switch t {
	case TierKeyword:
		return "keyword"
	case TierPattern:
		return "pattern"
	case TierPatternMiss:
		return "pattern-miss"
	case TierNoColumn:
		return "no-column"
	case TierFallback:
		return "fallback"
	}
	return "unknown"
}

// Tiers lists all tiers in priority order
var Tiers = []Tier{TierKeyword, TierPattern, TierPatternMiss, TierNoColumn, TierFallback}

// The sentinel column pylint reports when it has nothing better
const placeholderColumn = 0

// Resolution is the outcome of refining one diagnostic. At most one of Column and Near is set.
type Resolution struct {
	Column *int
	Near   string
	Tier   Tier
}

// Resolve computes the final column and near token for a diagnostic code, given the message and
// the column reported by the tool. It never fails: without a better candidate the reported
// column, or no column, is returned.
func (t *Table) Resolve(code, message string, column *int) Resolution {
	if keyword, ok := t.near[code]; ok {
		return Resolution{Near: keyword, Tier: TierKeyword}
	}

	if dr, ok := t.patterns[code]; ok {
		if matches := dr.FindStringSubmatch(message); matches != nil {
			names := dr.SubexpNames()
			// Several alternatives of one pattern may define the same group name, take the first
			// one that participated in the match.
			for i, name := range names {
				if name == groupNear && matches[i] != "" {
					return Resolution{Near: matches[i], Tier: TierPattern}
				}
			}
			for i, name := range names {
				if name == groupCol && matches[i] != "" {
					if col, err := strconv.Atoi(matches[i]); err == nil {
						return Resolution{Column: diagnostics.Col(col), Tier: TierPattern}
					}
				}
			}
		}
		log.Debug("%s: no usable capture from message %q, keeping reported column", code, message)
		return Resolution{Column: copyColumn(column), Tier: TierPatternMiss}
	}

	if _, ok := t.noColumn[code]; ok {
		return Resolution{Tier: TierNoColumn}
	}

	if column != nil && *column == placeholderColumn {
		return Resolution{Tier: TierFallback}
	}
	return Resolution{Column: copyColumn(column), Tier: TierFallback}
}

func copyColumn(column *int) *int {
	if column == nil {
		return nil
	}
	return diagnostics.Col(*column)
}

// A Refiner corrects the location of a diagnostic produced by the line matcher.
type Refiner interface {
	Refine(d diagnostics.Diagnostic) diagnostics.Diagnostic
}

// A TableRefiner refines diagnostics using a resolution table. An optional observer is told
// which tier decided every diagnostic.
type TableRefiner struct {
	Table    *Table
	Observer func(d diagnostics.Diagnostic, tier Tier)
}

// NewRefiner returns a refiner backed by the given table, or by the embedded one when nil.
func NewRefiner(table *Table) *TableRefiner {
	if table == nil {
		table = Default()
	}
	return &TableRefiner{Table: table}
}

// Refine returns a copy of the diagnostic with its column and near token resolved. The result
// depends only on the code, message and column of the input, so refining twice changes nothing.
func (r *TableRefiner) Refine(d diagnostics.Diagnostic) diagnostics.Diagnostic {
	res := r.Table.Resolve(d.Code, d.Message, d.Column)
	d.Column = res.Column
	d.Near = res.Near
	if r.Observer != nil {
		r.Observer(d, res.Tier)
	}
	return d
}

// RefineAll refines a list of diagnostics, keeping their order
func RefineAll(r Refiner, diags []diagnostics.Diagnostic) []diagnostics.Diagnostic {
	res := make([]diagnostics.Diagnostic, len(diags))
	for i, d := range diags {
		res[i] = r.Refine(d)
	}
	return res
}
