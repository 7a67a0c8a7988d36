// Package buildinfo exposes version metadata stamped at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/xcauth/internal/buildinfo.Version=2.1.0"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	Version   = "dev"
	Commit    = "N/A"
	BuildDate = "N/A"
)

// String returns the one-line version banner.
func String() string {
	return fmt.Sprintf("xcauth %s (commit %s, built %s)", Version, Commit, BuildDate)
}

// PrintBuildData writes the version banner to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintln(w, String())
}
