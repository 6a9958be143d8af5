// Command lesiontrack runs the oncology follow-up pipeline: structural DICOM
// analysis, pixel-to-millimetre measurement, longitudinal comparison and
// report context assembly.
package main

import (
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
