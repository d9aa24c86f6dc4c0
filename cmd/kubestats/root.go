package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mchestr/kubestats/telemetry"
)

var (
	version = "0.1.0"

	rootDebug bool

	rootCmd = &cobra.Command{
		Use:   "kubestats",
		Short: "GitOps repository statistics engine",
		Long: `Kubestats - GitOps repository statistics engine

Kubestats scans GitOps repository working trees, tracks every Kubernetes
and Flux resource they declare, and records how those resources change
over time: chart upgrades, tag bumps, deletions and resurrections.

Point it at a checked-out repository and it keeps a full lifecycle
history without touching a cluster.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Kubestats {{.Version}} - GitOps repository statistics engine
`)
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
}

// newLogger builds the service logger honoring the debug flag.
func newLogger() *telemetry.Logger {
	if rootDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return telemetry.NewLogger("kubestats")
}
