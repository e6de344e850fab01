// Package main is the entry point for l2netctl.
//
// l2netctl reads the same configuration as the operator and reports the
// interface inventory it keeps: switches per node, interface bindings,
// registered networks and dependency health.
//
//	l2netctl --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/l2net/cmd/l2netctl/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
