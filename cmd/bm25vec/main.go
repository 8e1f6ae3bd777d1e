// Package main provides the entry point for the bm25vec CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/bm25vec/cmd/bm25vec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
