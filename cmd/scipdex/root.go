package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scipdex",
	Short: "scipdex - semantic code intelligence index",
	Long: `scipdex builds and queries an in-memory SCIP-based index of a
codebase: symbols, references, call graphs, and type hierarchies, exposed
through a small pipe-separated query language.`,
}
