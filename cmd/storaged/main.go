package main

import (
	"fmt"
	"os"

	"github.com/cuemby/graphcore/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "storaged",
	Short: "storaged - graph storage-service query execution node",
	Long: `storaged hosts one replica of a graph space's partitions: the
replicated key-value engine, the catalog of spaces/schemas/indexes, and
the query driver that answers get-neighbors, get-prop, update and
index-lookup requests against them.

storaged does not speak a wire RPC protocol itself; it is the process
a transport layer is embedded into.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"storaged version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "./data", "Directory for the replicated engine's data and Raft logs")
	rootCmd.PersistentFlags().String("node-id", "node-1", "Raft node id of this replica")
	rootCmd.PersistentFlags().String("bind-addr", "127.0.0.1:9180", "Raft transport bind address")
	rootCmd.PersistentFlags().String("catalog", "", "Path to a YAML catalog fixture (spaces, schemas, indexes)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(clearSpaceCmd)
	rootCmd.AddCommand(rebuildCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
