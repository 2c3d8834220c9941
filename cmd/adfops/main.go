// Package main provides the entry point for the adfops CLI tool.
//
// adfops is the BigQuery-to-Azure-Blob operations CLI. It provides a thin
// wrapper around the reusable operation packages, adding:
//   - Command-line flag parsing and config-file defaults
//   - Interactive confirmation prompts
//   - Dry-run visualization
//
// For programmatic access, import the library directly:
//
//	import "github.com/bschooled/BigQuery-to-AzureBlob/adfops/azure"
package main

import (
	"github.com/bschooled/BigQuery-to-AzureBlob/cmd/adfops/cmd"
)

func main() {
	cmd.Execute()
}
