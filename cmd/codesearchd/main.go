// Package main provides the entry point for the codesearchd server.
package main

import (
	"os"

	"github.com/Aman-CERP/codesearch/cmd/codesearchd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
