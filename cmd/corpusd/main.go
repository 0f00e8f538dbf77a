// Corpusd serves the query-orchestration layer over a corpus of
// first-person anomaly reports.
//
// The daemon loads its configuration, wires the storage backend, the
// tool registry and the LLM-driven orchestrator, and exposes them over
// HTTP.
//
// Usage:
//
//	# Start with defaults (memory store, no vector index)
//	corpusd serve
//
//	# Point at a config file
//	corpusd serve --config ./config.yaml
//
//	# Configure via environment
//	SERVER_PORT=9090 STORE_VECTOR_PROVIDER=chromem corpusd serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "corpusd",
	Short: "Query-orchestration daemon for the anomaly report corpus",
	Long: `corpusd answers free-text questions about a tenant's corpus of
anomaly reports by orchestrating a closed set of search, insight,
visualization and relationship tools.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the corpusd HTTP server",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("corpusd\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.config/corpusd/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
