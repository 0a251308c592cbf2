package refine

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daedaleanai/pylintmark/diagnostics"
	"github.com/daedaleanai/pylintmark/logging"
)

const testTable = `
tool = "pylint"
revision = "test"
no_column = ["R0903", "C0301"]

[near]
C1001 = "class"
C0301 = "never used"

[pattern]
E0712 = '''Catching an exception which doesn't inherit from (?:Base)?Exception: (?P<near>\S+)'''
C0301 = 'Line too long \(\d+/(?P<col>\d+)\)'
W0512 = 'unexpected byte at position (?P<col>\d+)'
W0611 = '^(?:Unused import (?P<near>[\w.]+)|(?P<near>[\w.]+) imported but unused)'

[unhandled]
C0326 = "bad-whitespace"
`

func loadTestTable(t *testing.T) *Table {
	table, err := LoadTable(strings.NewReader(testTable))
	require.NoError(t, err)
	require.NoError(t, table.Validate())
	return table
}

func TestResolve(t *testing.T) {
	table := loadTestTable(t)

	tests := []struct {
		name    string
		code    string
		message string
		column  *int
		want    Resolution
	}{
		{
			name:    "keyword ignores a zero column",
			code:    "C1001",
			message: "old-style class defined",
			column:  diagnostics.Col(0),
			want:    Resolution{Near: "class", Tier: TierKeyword},
		},
		{
			name:    "keyword ignores a non zero column",
			code:    "C1001",
			message: "Old-style class defined.",
			column:  diagnostics.Col(7),
			want:    Resolution{Near: "class", Tier: TierKeyword},
		},
		{
			name:    "keyword takes priority over pattern and no-column",
			code:    "C0301",
			message: "Line too long (120/100)",
			column:  diagnostics.Col(0),
			want:    Resolution{Near: "never used", Tier: TierKeyword},
		},
		{
			name:    "pattern near",
			code:    "E0712",
			message: "Catching an exception which doesn't inherit from BaseException: MyError",
			column:  diagnostics.Col(0),
			want:    Resolution{Near: "MyError", Tier: TierPattern},
		},
		{
			name:    "pattern col",
			code:    "W0512",
			message: `Cannot decode using encoding "ascii", unexpected byte at position 17`,
			column:  diagnostics.Col(0),
			want:    Resolution{Column: diagnostics.Col(17), Tier: TierPattern},
		},
		{
			name:    "pattern second alternative",
			code:    "W0611",
			message: "os.path imported but unused",
			column:  diagnostics.Col(0),
			want:    Resolution{Near: "os.path", Tier: TierPattern},
		},
		{
			name:    "pattern miss keeps the column",
			code:    "E0712",
			message: "some future wording",
			column:  diagnostics.Col(4),
			want:    Resolution{Column: diagnostics.Col(4), Tier: TierPatternMiss},
		},
		{
			name:    "pattern miss keeps a zero column",
			code:    "E0712",
			message: "some future wording",
			column:  diagnostics.Col(0),
			want:    Resolution{Column: diagnostics.Col(0), Tier: TierPatternMiss},
		},
		{
			name:    "pattern match with an overflowing column",
			code:    "W0512",
			message: `Cannot decode using encoding "ascii", unexpected byte at position 99999999999999999999999`,
			column:  diagnostics.Col(3),
			want:    Resolution{Column: diagnostics.Col(3), Tier: TierPatternMiss},
		},
		{
			name:    "no-column",
			code:    "R0903",
			message: "Too few public methods (1/2)",
			column:  diagnostics.Col(4),
			want:    Resolution{Tier: TierNoColumn},
		},
		{
			name:    "unknown code with placeholder column",
			code:    "X9999",
			message: "some unknown future code",
			column:  diagnostics.Col(0),
			want:    Resolution{Tier: TierFallback},
		},
		{
			name:    "unknown code with column",
			code:    "W9999",
			message: "some unknown future code",
			column:  diagnostics.Col(12),
			want:    Resolution{Column: diagnostics.Col(12), Tier: TierFallback},
		},
		{
			name:    "unknown code without column",
			code:    "W9999",
			message: "some unknown future code",
			want:    Resolution{Tier: TierFallback},
		},
		{
			name:    "skip-listed code falls back",
			code:    "C0326",
			message: "Exactly one space required after comma",
			column:  diagnostics.Col(6),
			want:    Resolution{Column: diagnostics.Col(6), Tier: TierFallback},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Resolve(tt.code, tt.message, tt.column))
		})
	}
}

func TestResolve_UnusableCaptureIsLogged(t *testing.T) {
	table := loadTestTable(t)
	var buf bytes.Buffer
	logging.InitWriter(&buf, true)
	defer logging.InitWriter(os.Stderr, false)

	table.Resolve("W0512", "unexpected byte at position 99999999999999999999999", diagnostics.Col(0))
	assert.Contains(t, buf.String(), "W0512: no usable capture from message")
	assert.NotContains(t, buf.String(), "does not match")
}

func TestResolve_DoesNotAliasColumn(t *testing.T) {
	table := loadTestTable(t)
	column := diagnostics.Col(4)
	res := table.Resolve("W9999", "message", column)
	*column = 9
	assert.Equal(t, 4, *res.Column)
}

func TestRefine_Idempotent(t *testing.T) {
	r := NewRefiner(loadTestTable(t))

	inputs := []diagnostics.Diagnostic{
		{Line: 5, Column: diagnostics.Col(0), Code: "C1001", Message: "old-style class defined"},
		{Line: 8, Column: diagnostics.Col(0), Code: "C0301", Message: "Line too long (120/100)"},
		{Line: 8, Column: diagnostics.Col(0), Code: "W0512", Message: "unexpected byte at position 3"},
		{Line: 12, Column: diagnostics.Col(0), Code: "E0712", Message: "Catching an exception which doesn't inherit from Exception: Foo"},
		{Line: 12, Column: diagnostics.Col(2), Code: "E0712", Message: "no match"},
		{Line: 3, Column: diagnostics.Col(4), Code: "R0903", Message: "Too few public methods (1/2)"},
		{Line: 9, Column: diagnostics.Col(0), Code: "W9999", Message: "unknown"},
		{Line: 9, Column: diagnostics.Col(3), Code: "W9999", Message: "unknown"},
	}
	for _, in := range inputs {
		once := r.Refine(in)
		twice := r.Refine(once)
		assert.True(t, once.Equal(twice), "refining %v twice gave %v", once, twice)
		assert.False(t, once.Near != "" && once.Column != nil, "both near and column set on %v", once)
	}
}

func TestRefine_Observer(t *testing.T) {
	r := NewRefiner(loadTestTable(t))
	var tiers []Tier
	r.Observer = func(d diagnostics.Diagnostic, tier Tier) {
		tiers = append(tiers, tier)
	}

	diags := RefineAll(r, []diagnostics.Diagnostic{
		{Line: 1, Column: diagnostics.Col(0), Code: "C1001", Message: "old-style class defined"},
		{Line: 2, Column: diagnostics.Col(0), Code: "R0903", Message: "Too few public methods (1/2)"},
		{Line: 3, Column: diagnostics.Col(0), Code: "W9999", Message: "unknown"},
	})
	require.Len(t, diags, 3)
	assert.Equal(t, []Tier{TierKeyword, TierNoColumn, TierFallback}, tiers)
	assert.Equal(t, 1, diags[0].Line)
	assert.Equal(t, 3, diags[2].Line)
}

// Resolution of typical messages with the embedded table.
func TestDefaultTable_Resolve(t *testing.T) {
	r := NewRefiner(nil)

	d := r.Refine(diagnostics.Diagnostic{Line: 12, Column: diagnostics.Col(0), Code: "E0712",
		Message: "Catching an exception which doesn't inherit from BaseException: MyError"})
	assert.Equal(t, "MyError", d.Near)
	assert.Nil(t, d.Column)

	d = r.Refine(diagnostics.Diagnostic{Line: 5, Column: diagnostics.Col(0), Code: "C1001", Message: "old-style class defined"})
	assert.Equal(t, "class", d.Near)
	assert.Nil(t, d.Column)

	d = r.Refine(diagnostics.Diagnostic{Line: 8, Column: diagnostics.Col(0), Code: "C0301", Message: "Line too long (120/100)"})
	require.NotNil(t, d.Column)
	assert.Equal(t, 100, *d.Column)
	assert.Empty(t, d.Near)

	d = r.Refine(diagnostics.Diagnostic{Line: 3, Column: diagnostics.Col(4), Code: "R0903", Message: "Too few public methods (1/2)"})
	assert.Nil(t, d.Column)
	assert.Empty(t, d.Near)

	d = r.Refine(diagnostics.Diagnostic{Line: 9, Column: diagnostics.Col(0), Code: "X9999", Message: "some unknown future code"})
	assert.Nil(t, d.Column)
	assert.Empty(t, d.Near)
}

func TestDefaultTable_Patterns(t *testing.T) {
	table := Default()

	tests := []struct {
		code    string
		message string
		near    string
	}{
		{"C0103", `Constant name "foo" doesn't conform to UPPER_CASE naming style`, "foo"},
		{"C0103", `Invalid constant name "foo"`, ""},
		{"C0121", `Comparison to None should be 'expr is None'`, "None"},
		{"C0121", `Comparison 'x == None' should be 'x is None'`, "x == None"},
		{"C0325", `Unnecessary parens after 'if' keyword`, "if"},
		{"C0411", `standard import "import os" should be placed before "import foo"`, "import os"},
		{"E0401", `Unable to import 'numpy.linalg'`, "numpy.linalg"},
		{"E0602", `Undefined variable 'foo'`, "foo"},
		{"E0611", `No name 'bar' in module 'foo'`, "bar"},
		{"E1101", `Instance of 'Foo' has no 'bar' member`, "bar"},
		{"E1101", `Module 'os' has no 'foo' member; maybe 'fork'?`, "foo"},
		{"E1102", `self.attr is not callable`, "self.attr"},
		{"E1300", `Unsupported format character 'y' (0x79) at index 3`, "y"},
		{"I0011", `Locally disabling unused-import (W0611)`, "unused-import"},
		{"R1705", `Unnecessary "else" after "return"`, "else"},
		{"W0102", `Dangerous default value [] as argument`, "[]"},
		{"W0102", `Dangerous default value dict() (builtins.dict) as argument`, "dict()"},
		{"W0212", `Access to a protected member _x of a client class`, "_x"},
		{"W0221", `Parameters differ from overridden 'run' method`, "run"},
		{"W0402", `Uses of a deprecated module 'string'`, "string"},
		{"W0402", `Deprecated module 'optparse'`, "optparse"},
		{"W0511", `TODO: remove this`, "TODO: remove this"},
		{"W0611", `Unused import os`, "os"},
		{"W0611", `Unused sys imported from os`, "sys"},
		{"W0611", `Unused json`, "json"},
		{"W0612", `Unused variable 'x'`, "x"},
		{"W0622", `Redefining built-in 'id'`, "id"},
		{"W0703", `Catching too general exception Exception`, "Exception"},
		{"W1401", `Anomalous backslash in string: '\d'. String constant might be missing an r prefix.`, `\d`},
		{"W1501", `"rwx" is not a valid mode for open.`, "rwx"},
	}
	for _, tt := range tests {
		t.Run(tt.code+" "+tt.message, func(t *testing.T) {
			res := table.Resolve(tt.code, tt.message, diagnostics.Col(0))
			if tt.near == "" {
				assert.Equal(t, TierPatternMiss, res.Tier)
				return
			}
			assert.Equal(t, TierPattern, res.Tier)
			assert.Equal(t, tt.near, res.Near)
			assert.Nil(t, res.Column)
		})
	}

	res := table.Resolve("W0512", `Cannot decode using encoding "utf-8", unexpected byte at position 42`, diagnostics.Col(0))
	assert.Equal(t, TierPattern, res.Tier)
	require.NotNil(t, res.Column)
	assert.Equal(t, 42, *res.Column)
}

func TestDefaultTable_AmbiguousNearKeeps(t *testing.T) {
	res := Default().Resolve("W0234", "iter method returns a non-iterator", diagnostics.Col(0))
	assert.Equal(t, Resolution{Near: "__iter__", Tier: TierKeyword}, res)
}
