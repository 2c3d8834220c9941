// Package cmd provides the CLI commands for adfops.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/samsarahq/go/oops"
	"github.com/spf13/cobra"

	"github.com/bschooled/BigQuery-to-AzureBlob/cmd/adfops/cmd/azure"
	"github.com/bschooled/BigQuery-to-AzureBlob/slog"
)

var rootCmd = &cobra.Command{
	Use:   "adfops",
	Short: "BigQuery to Azure Blob pipeline operations tool",
	Long: `adfops provisions Azure infrastructure and generates Data Factory
pipelines that copy BigQuery tables into Azure Blob Storage as JSON
or Parquet.

All commands support --dry-run by default and require explicit
confirmation before making changes (use --yes to skip).

Safety Features:
  • Dry-run mode shows planned actions without execution
  • Interactive confirmation before changes are made
  • Detailed logging for audit trails
  • Idempotent operations safe to re-run

Tool Groups:
  • azure - Azure operations (provision, containers, deploy, run, status)`,
	Example: `  # Provision the resource group, storage account and factory
  adfops azure provision --resource-group=analytics-rg --location=westus2 --storage-account=analyticsblob --factory=analytics-adf

  # Create one blob container per registry table
  adfops azure containers --storage-account=analyticsblob --registry=tables.csv

  # Generate and deploy the copy pipelines
  adfops azure deploy --resource-group=analytics-rg --factory=analytics-adf --registry=tables.csv

  # Dry run to see what would happen
  adfops azure deploy --resource-group=analytics-rg --factory=analytics-adf --registry=tables.csv --dry-run

  # Auto-confirm for scripting (use with caution)
  adfops azure run --resource-group=analytics-rg --factory=analytics-adf --wait --yes`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		slog.SetVerbose(verbose)
	},
}

// Root exports the root command for doc generation and testing.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	slog.SetUpDefaultCLILogger()
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError formats and prints an error in a user-friendly way.
func printError(err error) {
	fmt.Println()
	fmt.Println("❌ Error:", getRootCause(err))
	fmt.Println()
	fmt.Println("Stack trace:")
	fmt.Println(err.Error())
}

// getRootCause extracts the root cause message from an oops error chain.
func getRootCause(err error) string {
	if err == nil {
		return ""
	}

	// oops errors have the message first, then the stack trace after
	// newlines. The first line reads "outer: inner: cause", which is good
	// context, so keep it whole.
	lines := strings.Split(err.Error(), "\n")
	if len(lines) > 0 {
		return lines[0]
	}

	return oops.Cause(err).Error()
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().Bool("dry-run", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().Bool("yes", false, "Skip confirmation prompts (use with caution)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file with flag defaults (default adfops.yaml, $ADFOPS_CONFIG)")

	// Register tool groups
	rootCmd.AddCommand(azure.Command())
}
