package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/session"
)

var eventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Print a session's event log",
	Long: `Print the session's event log in order. Every read ends with a cursor on
stderr; pass it to --since to continue from there.

Examples:
  hive events $ID
  hive events $ID --since 1432
  hive events $ID --follow --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

var (
	eventsSince  string
	eventsFollow bool
	eventsJSON   bool
)

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringVar(&eventsSince, "since", "", "Start after this cursor")
	eventsCmd.Flags().BoolVarP(&eventsFollow, "follow", "f", false, "Keep printing new events")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Print events as JSON lines")
}

func runEvents(cmd *cobra.Command, args []string) error {
	id := args[0]
	since, err := session.ParseCursor(eventsSince)
	if err != nil {
		return err
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cursor, err := printEvents(out, e.store, id, since)
	if err != nil {
		return err
	}
	if !eventsFollow {
		fmt.Fprintf(cmd.ErrOrStderr(), "cursor: %s\n", cursor)
		return nil
	}
	return followEvents(cmd.Context(), out, e, id, cursor)
}

func printEvents(out io.Writer, store *session.Store, id string, since session.Cursor) (session.Cursor, error) {
	records, next, err := store.ReadEvents(id, since)
	if err != nil {
		return since, err
	}
	for _, rec := range records {
		if eventsJSON {
			data, err := json.Marshal(rec.Event)
			if err != nil {
				return next, err
			}
			fmt.Fprintln(out, string(data))
			continue
		}
		fmt.Fprintln(out, rec.Event.String())
	}
	return next, nil
}

// followEvents prints new events as the log grows until ctx is done. File
// notifications wake it early; the poll interval covers missed ones.
func followEvents(ctx context.Context, out io.Writer, e *env, id string, cursor session.Cursor) error {
	// Without a watcher the ticker alone drives reads.
	wake, _ := e.store.WatchEvents(ctx, id)
	ticker := time.NewTicker(e.cfg.Coordination.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case _, ok := <-wake:
			if !ok {
				wake = nil
			}
		}
		next, err := printEvents(out, e.store, id, cursor)
		if err != nil {
			return err
		}
		cursor = next
	}
}
