// Package main provides the entry point for rvsim.
// rvsim is a cycle-level out-of-order RV32I simulator.
//
// For the full CLI, use: go run ./cmd/rvsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rvsim - out-of-order RV32I simulator")
	fmt.Println("")
	fmt.Println("Usage: rvsim run <binary> [flags]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run       Simulate a flat binary or ELF executable")
	fmt.Println("  config    Print a core configuration as JSON")
	fmt.Println("  history   List stored runs")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvsim' instead.")
	}
}
