// Package main provides the entry point for the coreason-search CLI.
package main

import (
	"os"

	"github.com/CoReason-AI/coreason-search/cmd/coreason-search/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
