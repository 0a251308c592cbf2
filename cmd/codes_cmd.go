package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/daedaleanai/cobra"
	"github.com/pkg/errors"
	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/daedaleanai/pylintmark/refine"
)

// Largest edit distance at which a known code is suggested for an unknown one
const maxSuggestionDistance = 2

var fCodesCheck bool

var codesCmd = &cobra.Command{
	Use:   "codes [CODE...]",
	Short: "Describes the resolution table",
	Long: `Without arguments, prints how many codes each tier of the resolution table handles.
With codes, prints how the location of each of them is refined.`,
	RunE: RunAndHandleError(runCodes),
}

// the run command for codes
func runCodes(command *cobra.Command, args []string) error {
	if err := setupConfiguration(); err != nil {
		return err
	}
	table, err := pylintmarkConfig.Table()
	if err != nil {
		return err
	}
	out := command.OutOrStdout()

	if fCodesCheck {
		if err := checkTable(out, table); err != nil {
			return err
		}
	}
	if len(args) == 0 {
		summarizeTable(out, table)
		return nil
	}
	return describeCodes(out, table, args)
}

// checkTable validates the table. Codes listed in several tiers are only warned about.
func checkTable(w io.Writer, table *refine.Table) error {
	if err := table.Validate(); err != nil {
		return errors.Wrap(err, "invalid resolution table")
	}
	for _, code := range table.Overlaps() {
		entry, _ := table.Lookup(code)
		log.Warning("%s is listed in several tiers, only %s applies", code, entry.Tier)
	}
	fmt.Fprintf(w, "Resolution table %s is valid\n", table.Revision())
	return nil
}

func summarizeTable(w io.Writer, table *refine.Table) {
	title := cases.Title(language.English)
	fmt.Fprintf(w, "Resolution table for %s, revision %s\n", table.Tool(), table.Revision())
	for _, tier := range refine.Tiers {
		if tier == refine.TierPatternMiss {
			continue
		}
		heading := title.String(tier.String())
		if tier == refine.TierFallback {
			heading += " (unhandled)"
		}
		fmt.Fprintf(w, "  %-22s %4d\n", heading, table.Count(tier))
	}
}

// describeCodes prints the table entry of every code. Unknown codes are reported with the
// closest known ones.
func describeCodes(w io.Writer, table *refine.Table, codes []string) error {
	unknown := 0
	for _, code := range codes {
		code = strings.ToUpper(code)
		entry, ok := table.Lookup(code)
		if !ok {
			unknown++
			msg := fmt.Sprintf("%s: not in the table, the reported column is kept", code)
			if suggestions := suggestCodes(table.Codes(), code); len(suggestions) > 0 {
				msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(suggestions, ", "))
			}
			fmt.Fprintln(w, msg)
			continue
		}
		switch entry.Tier {
		case refine.TierKeyword:
			fmt.Fprintf(w, "%s: keyword, near %q\n", code, entry.Value)
		case refine.TierPattern:
			fmt.Fprintf(w, "%s: pattern `%s`\n", code, entry.Value)
		case refine.TierNoColumn:
			fmt.Fprintf(w, "%s: no column\n", code)
		default:
			fmt.Fprintf(w, "%s: unhandled, %s\n", code, entry.Unhandled)
		}
	}
	if unknown > 0 {
		return errors.Errorf("%d unknown codes", unknown)
	}
	return nil
}

// suggestCodes returns the known codes closest to an unknown one, sorted
func suggestCodes(known []string, code string) []string {
	best := maxSuggestionDistance + 1
	var res []string
	for _, k := range known {
		d := levenshtein.DistanceForStrings([]rune(code), []rune(k), levenshtein.DefaultOptions)
		switch {
		case d < best:
			best = d
			res = []string{k}
		case d == best:
			res = append(res, k)
		}
	}
	sort.Strings(res)
	return res
}

// Registers the codes command
func init() {
	codesCmd.Flags().BoolVar(&fCodesCheck, "check", false, "Validate the resolution table.")
	rootCmd.AddCommand(codesCmd)
}
