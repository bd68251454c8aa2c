// Command rvsim runs RV32I programs on the out-of-order timing simulator.
//
// Usage:
//
//	rvsim run <binary> [flags]   simulate a program
//	rvsim config [--preset name] print a configuration as JSON
//	rvsim history --db <dir>     list stored runs
//
// Without --bench the program starts paused in the debugger; press 'c' to
// begin execution.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rvsim",
		Short:         "Cycle-level out-of-order RV32I simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newRunCmd(), newConfigCmd(), newHistoryCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
