package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mchestr/kubestats/orchestrator"
	"github.com/mchestr/kubestats/storage"
)

var (
	scanRepoID     string
	scanPath       string
	scanStorageDir string
	scanOutput     string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a repository working tree once",
	Long: `Scan one GitOps repository working tree, diff it against the stored
state and persist the outcome.

The first scan records every resource as created. Subsequent scans only
record what changed: modified files, deleted resources, and resources
that came back after deletion.`,
	Example: `  kubestats scan --path ~/repos/homelab                   # Scan with defaults
  kubestats scan --path ~/repos/homelab --repo homelab    # Explicit repository id
  kubestats scan --path ~/repos/homelab -o json           # JSON summary`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanRepoID, "repo", "default", "Repository id")
	scanCmd.Flags().StringVarP(&scanPath, "path", "p", "", "Path to the repository working tree")
	scanCmd.Flags().StringVar(&scanStorageDir, "storage", "./data", "Storage directory")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "table", "Output format: table, json")
	_ = scanCmd.MarkFlagRequired("path")
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx := context.Background()

	if err := os.MkdirAll(scanStorageDir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	store, err := storage.Open(scanStorageDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.LogStorageError(ctx, "close", err)
		}
	}()

	orch := orchestrator.New(store, logger.Logger)

	logger.LogScanStart(ctx, scanRepoID, scanPath)
	result, err := orch.ScanRepository(ctx, scanRepoID, scanPath)
	if err != nil {
		return err
	}
	logger.LogScanComplete(ctx, scanRepoID, result.Created, result.Modified, result.Deleted,
		float64(result.Duration.Microseconds())/1000)

	switch scanOutput {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	default:
		fmt.Printf("Repository:  %s\n", scanRepoID)
		fmt.Printf("Resources:   %d\n", result.TotalResources)
		fmt.Printf("Created:     %d\n", result.Created)
		fmt.Printf("Modified:    %d\n", result.Modified)
		fmt.Printf("Deleted:     %d\n", result.Deleted)
		fmt.Printf("Duration:    %s\n", result.Duration.Round(time.Millisecond))
		fmt.Printf("Sync run:    %s\n", result.SyncRunID)
		return nil
	}
}
