/*
 * pylintmark runs pylint over Python sources and reports every diagnostic with the precise
 * location an editor needs to underline it. Run without arguments to get comprehensive help.
 */

package main

import (
	"os"

	"github.com/daedaleanai/pylintmark/cmd"
)

// Runs the program
func main() {
	if cmd.RunRootCommand() != nil {
		os.Exit(1)
	}
}
