// Package logging contains the singleton logger that we use globally.
// It deliberately has little else since it's a dependency everywhere.
package logging

import (
	"io"
	"os"

	"gopkg.in/op/go-logging.v1"
)

// Log is the logger shared by all packages.
var Log = logging.MustGetLogger("pylintmark")

var formatter = logging.MustStringFormatter("%{time:15:04:05.000} %{level:7s}: %{message}")

// Init sets up the logging backend on stderr. Verbose enables debug output, otherwise only
// warnings and above are shown.
func Init(verbose bool) {
	InitWriter(os.Stderr, verbose)
}

// InitWriter is like Init but logs to an arbitrary writer.
func InitWriter(w io.Writer, verbose bool) {
	backend := logging.AddModuleLevel(logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), formatter))
	if verbose {
		backend.SetLevel(logging.DEBUG, "")
	} else {
		backend.SetLevel(logging.WARNING, "")
	}
	logging.SetBackend(backend)
}
