package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "benchgen",
	Short: "Build MCQ benchmark datasets from your documents",
	Long: "Benchgen turns domain documents into a validated multiple-choice QnA dataset:\n" +
		"it generates candidate questions with an LLM, filters them by heuristic and\n" +
		"self-consistency quality scoring, clusters near-duplicates by embedding\n" +
		"similarity, and exports the result as JSONL or CSV.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("audit-db", "", "Path to SQLite audit log (overrides BENCHGEN_AUDIT_DB)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveAuditPath returns the audit database path from the --audit-db
// flag, then BENCHGEN_AUDIT_DB, then the configured value. Empty means
// auditing is disabled.
func resolveAuditPath(cmd *cobra.Command, configured string) string {
	if p, _ := cmd.Flags().GetString("audit-db"); p != "" {
		return p
	}
	if p := os.Getenv("BENCHGEN_AUDIT_DB"); p != "" {
		return p
	}
	return configured
}
