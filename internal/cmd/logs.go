package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs <session-id>",
	Short: "View a session's debug log",
	Long: `View and filter a session's debug log.

Examples:
  # Show the last 50 entries
  hive logs $ID

  # Show everything at warn or above from the monitor
  hive logs $ID -n 0 --level warn --phase monitor

  # Show one worker's entries from the last hour
  hive logs $ID --worker backend --since 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

var (
	logsTail   int
	logsLevel  string
	logsWorker string
	logsPhase  string
	logsSince  string
	logsGrep   string
	logsJSON   bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsWorker, "worker", "", "Filter by worker id")
	logsCmd.Flags().StringVar(&logsPhase, "phase", "", "Filter by phase (planning, monitor, synthesis, ...)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries whose message contains this text")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "Print entries as JSON lines")
}

func runLogs(cmd *cobra.Command, args []string) error {
	id := args[0]
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if !e.store.Exists(id) {
		return errors.NewSessionError("logs", errors.ErrSessionNotFound).WithSessionID(id)
	}

	filter := logging.LogFilter{
		Level:           logsLevel,
		WorkerID:        logsWorker,
		Phase:           logsPhase,
		MessageContains: logsGrep,
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since duration: %w", err)
		}
		filter.Since = time.Now().Add(-d)
	}

	entries, err := logging.AggregateLogs(e.store.Dir(id))
	if err != nil {
		return err
	}
	entries = logging.FilterLogs(entries, filter)
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	out := cmd.OutOrStdout()
	if logsJSON {
		enc := json.NewEncoder(out)
		for _, entry := range entries {
			if err := enc.Encode(entry); err != nil {
				return err
			}
		}
		return nil
	}
	return logging.WriteText(out, entries)
}
