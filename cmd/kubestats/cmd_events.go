package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mchestr/kubestats/analyzer"
	"github.com/mchestr/kubestats/storage"
	"github.com/mchestr/kubestats/types"
)

var (
	eventsRepoID     string
	eventsStorageDir string
	eventsSyncRun    string
	eventsSince      time.Duration
	eventsOutput     string
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recorded lifecycle events",
	Long: `List the lifecycle events recorded for a repository: creations,
modifications, deletions and resurrections, with the changed field paths
and the version transition where one applies.`,
	Example: `  kubestats events --repo homelab                  # Last 24h of events
  kubestats events --repo homelab --since 168h     # Last week
  kubestats events --repo homelab --sync-run <id>  # One scan's events
  kubestats events --repo homelab -o json          # JSON output`,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringVar(&eventsRepoID, "repo", "default", "Repository id")
	eventsCmd.Flags().StringVar(&eventsStorageDir, "storage", "./data", "Storage directory")
	eventsCmd.Flags().StringVar(&eventsSyncRun, "sync-run", "", "Only events from this sync run")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 24*time.Hour, "How far back to list events")
	eventsCmd.Flags().StringVarP(&eventsOutput, "output", "o", "table", "Output format: table, json")
}

func runEvents(cmd *cobra.Command, args []string) error {
	store, err := storage.Open(eventsStorageDir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	var events []storage.LifecycleEvent
	if eventsSyncRun != "" {
		events, err = store.EventsBySyncRun(ctx, eventsRepoID, eventsSyncRun)
	} else {
		events, err = store.EventsSince(ctx, eventsRepoID, time.Now().Add(-eventsSince))
	}
	if err != nil {
		return err
	}

	if eventsOutput == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(events)
	}

	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	for _, event := range events {
		printEvent(ctx, store, event)
	}
	return nil
}

func printEvent(ctx context.Context, store *storage.BoltStore, event storage.LifecycleEvent) {
	name := event.ResourceName
	if event.ResourceNamespace != "" {
		name = event.ResourceNamespace + "/" + name
	}

	fmt.Printf("%s  %-11s %s %s (%s)\n",
		event.Timestamp.Format(time.RFC3339),
		event.EventType,
		event.ResourceKind,
		name,
		event.FilePath,
	)

	for _, path := range event.ChangedPaths {
		fmt.Printf("    changed: %s\n", path)
	}

	if event.EventType == types.ChangeModified {
		printVersionTransition(ctx, store, event)
	}
}

// printVersionTransition shows the semver classification when a modified
// resource has at least two recorded chart versions.
func printVersionTransition(ctx context.Context, store *storage.BoltStore, event storage.LifecycleEvent) {
	history, err := store.MetricsForResource(ctx, event.RepositoryID, event.ResourceID)
	if err != nil || len(history) < 2 {
		return
	}

	changes := analyzer.Summarize(history)
	if len(changes) == 0 {
		return
	}

	last := changes[len(changes)-1]
	fmt.Printf("    version: %s -> %s (%s %s)\n", last.From, last.To, last.Magnitude, last.Direction)
}
