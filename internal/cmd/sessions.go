package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/session"
	"github.com/Iron-Ham/hivemind/internal/tui/styles"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions",
	Long: `List the sessions in this workspace, newest first.

Finished sessions (completed or failed) are hidden unless --all is given.`,
	Args: cobra.NoArgs,
	RunE: runSessions,
}

var (
	sessionsAll  bool
	sessionsJSON bool
)

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().BoolVarP(&sessionsAll, "all", "a", false, "Include completed and failed sessions")
	sessionsCmd.Flags().BoolVar(&sessionsJSON, "json", false, "Print sessions as JSON")
}

func runSessions(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	all, err := e.store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []*session.Info
	for _, s := range all {
		if sessionsAll || !s.Archived {
			sessions = append(sessions, s)
		}
	}

	out := cmd.OutOrStdout()
	if sessionsJSON {
		if sessions == nil {
			sessions = []*session.Info{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		fmt.Fprintln(out, "Run 'hive create <task>' to start one.")
		return nil
	}

	for _, s := range sessions {
		monitored := ""
		if s.Monitored {
			monitored = styles.Muted.Render(" (monitored)")
		}
		fmt.Fprintf(out, "%s  %-12s %2d workers  %s%s\n",
			s.ID, styles.Phase(s.Phase), s.WorkerCount, oneLine(s.Task, 60), monitored)
	}
	return nil
}

// oneLine collapses whitespace and truncates s to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
