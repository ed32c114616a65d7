package debug

import (
	"fmt"
	"os"
)

var (
	enabled     = os.Getenv("NEMSIS_DEBUG") != ""
	verboseMode = false
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// Logf writes a diagnostic line to stderr when debug output is enabled.
func Logf(format string, args ...interface{}) {
	if enabled || verboseMode {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
