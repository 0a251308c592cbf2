package refine

import (
	_ "embed"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/peterebden/go-deferred-regex"
	"github.com/pkg/errors"
)

//go:embed pylint.toml
var defaultTableData string

var reCode = regexp.MustCompile(`^[A-Z][0-9]+$`)

// Names of the capturing groups a secondary pattern may define
const (
	groupNear = "near"
	groupCol  = "col"
)

// On-disk layout of a resolution table
type tableFile struct {
	Tool      string            `toml:"tool"`
	Revision  string            `toml:"revision"`
	NoColumn  []string          `toml:"no_column"`
	Near      map[string]string `toml:"near"`
	Pattern   map[string]string `toml:"pattern"`
	Unhandled map[string]string `toml:"unhandled"`
}

// A Table holds the per-code knowledge used to recover accurate locations. It is built once
// and never mutated afterwards, so it can be shared between concurrent lint runs.
type Table struct {
	tool      string
	revision  string
	near      map[string]string
	patterns  map[string]*deferredregex.DeferredRegex
	noColumn  map[string]struct{}
	unhandled map[string]string
}

// Entry describes how a single code is resolved
type Entry struct {
	Code string
	Tier Tier
	// Near keyword for TierKeyword, the secondary expression for TierPattern
	Value string
	// Reason recorded in the skip-list, if the code is listed there
	Unhandled string
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// Default returns the resolution table embedded in the binary.
func Default() *Table {
	defaultTableOnce.Do(func() {
		t, err := LoadTable(strings.NewReader(defaultTableData))
		if err != nil {
			panic(fmt.Sprintf("embedded resolution table is invalid: %s", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// LoadTableFile reads a resolution table from a TOML file and validates it.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open resolution table")
	}
	defer f.Close()

	t, err := LoadTable(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load resolution table `%s`", path)
	}
	if err := t.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid resolution table `%s`", path)
	}
	return t, nil
}

// LoadTable parses a resolution table. Secondary patterns are not compiled until first use,
// call Validate to check them up front.
func LoadTable(r io.Reader) (*Table, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var tf tableFile
	md, err := toml.Decode(string(data), &tf)
	if err != nil {
		return nil, errors.Wrap(err, "parse resolution table")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown keys in resolution table: %s", strings.Join(keys, ", "))
	}

	t := &Table{
		tool:      tf.Tool,
		revision:  tf.Revision,
		near:      make(map[string]string, len(tf.Near)),
		patterns:  make(map[string]*deferredregex.DeferredRegex, len(tf.Pattern)),
		noColumn:  make(map[string]struct{}, len(tf.NoColumn)),
		unhandled: make(map[string]string, len(tf.Unhandled)),
	}
	for code, keyword := range tf.Near {
		t.near[code] = keyword
	}
	for code, re := range tf.Pattern {
		t.patterns[code] = &deferredregex.DeferredRegex{Re: re}
	}
	for _, code := range tf.NoColumn {
		t.noColumn[code] = struct{}{}
	}
	for code, reason := range tf.Unhandled {
		t.unhandled[code] = reason
	}
	return t, nil
}

// Tool returns the name of the checker the table was written for
func (t *Table) Tool() string {
	return t.tool
}

// Revision returns the revision string of the table data
func (t *Table) Revision() string {
	return t.revision
}

// Validate compiles every secondary pattern and checks that it captures either a near token
// or a column, and that every key looks like a diagnostic code. All problems are reported.
func (t *Table) Validate() error {
	var errs *multierror.Error
	for _, code := range t.Codes() {
		if !reCode.MatchString(code) {
			errs = multierror.Append(errs, fmt.Errorf("`%s` is not a diagnostic code", code))
		}
	}
	for code, keyword := range t.near {
		if keyword == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s: empty near keyword", code))
		}
	}
	for code, dr := range t.patterns {
		re, err := regexp.Compile(dr.Re)
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "%s: invalid pattern", code))
			continue
		}
		if !hasGroup(re.SubexpNames(), groupNear) && !hasGroup(re.SubexpNames(), groupCol) {
			errs = multierror.Append(errs, fmt.Errorf("%s: pattern `%s` defines neither a `near` nor a `col` group", code, dr.Re))
		}
	}
	return errs.ErrorOrNil()
}

// Overlaps returns the codes listed in more than one tier, sorted. Only the first tier in
// priority order ever applies to them.
func (t *Table) Overlaps() []string {
	var res []string
	for _, code := range t.Codes() {
		count := 0
		if _, ok := t.near[code]; ok {
			count++
		}
		if _, ok := t.patterns[code]; ok {
			count++
		}
		if _, ok := t.noColumn[code]; ok {
			count++
		}
		if count > 1 {
			res = append(res, code)
		}
	}
	return res
}

// Codes returns every code mentioned by the table, including the skip-list, sorted.
func (t *Table) Codes() []string {
	seen := make(map[string]bool)
	for code := range t.near {
		seen[code] = true
	}
	for code := range t.patterns {
		seen[code] = true
	}
	for code := range t.noColumn {
		seen[code] = true
	}
	for code := range t.unhandled {
		seen[code] = true
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Count returns the number of codes handled by the given tier. TierFallback counts the codes in
// the skip-list.
func (t *Table) Count(tier Tier) int {
	switch tier {
	case TierKeyword:
		return len(t.near)
	case TierPattern:
		return len(t.patterns)
	case TierNoColumn:
		return len(t.noColumn)
	case TierFallback:
		return len(t.unhandled)
	}
	return 0
}

// Lookup describes which tier handles the code. The second return value is false when the
// table does not mention the code at all.
func (t *Table) Lookup(code string) (Entry, bool) {
	e := Entry{Code: code, Tier: TierFallback}
	reason, listed := t.unhandled[code]
	e.Unhandled = reason
	if keyword, ok := t.near[code]; ok {
		e.Tier = TierKeyword
		e.Value = keyword
	} else if dr, ok := t.patterns[code]; ok {
		e.Tier = TierPattern
		e.Value = dr.Re
	} else if _, ok := t.noColumn[code]; ok {
		e.Tier = TierNoColumn
	} else if !listed {
		return e, false
	}
	return e, true
}

func hasGroup(names []string, group string) bool {
	for _, name := range names {
		if name == group {
			return true
		}
	}
	return false
}
