package config

import (
	"fmt"
	"io"
	"os"
)

var (
	exitWriter io.Writer = os.Stderr
	exitFunc             = os.Exit
)

// Exitf prints a formatted message to stderr and terminates with status 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(exitWriter, format+"\n", args...)
	exitFunc(1)
}
