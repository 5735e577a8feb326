package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/tui/styles"
	"github.com/Iron-Ham/hivemind/internal/tui/watch"
)

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show session status",
	Long: `Bring the session's state projection up to date and display it.

Examples:
  hive status $ID
  hive status $ID --worker 'back*'
  hive status $ID --json | jq '.workers'`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var (
	statusWorker string
	statusJSON   bool
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusWorker, "worker", "w", "", "Only show workers matching a glob pattern")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the state document as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	id := args[0]
	e, err := loadEnv()
	if err != nil {
		return err
	}
	coord, cleanup := e.coordinator(id, coordinatorOptions{})
	defer cleanup()

	state, err := coord.Status(cmd.Context(), id)
	if err != nil {
		return err
	}
	if state, err = filterWorkers(state, statusWorker); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}
	return printStatus(out, state)
}

// filterWorkers returns a copy of state holding only the workers whose id
// matches pattern. An empty pattern keeps every worker.
func filterWorkers(state *types.State, pattern string) (*types.State, error) {
	if pattern == "" {
		return state, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid worker pattern %q: %v", errors.ErrInvalidInput, pattern, err)
	}
	filtered := state.Clone()
	for id := range filtered.Workers {
		if !g.Match(id) {
			delete(filtered.Workers, id)
		}
	}
	return filtered, nil
}

func printStatus(out io.Writer, state *types.State) error {
	fmt.Fprintf(out, "%s %s\n", styles.Title.Render("Session"), state.SessionID)
	fmt.Fprintf(out, "  Task:     %s\n", state.Task)
	fmt.Fprintf(out, "  Phase:    %s\n", styles.Phase(state.Phase))
	if state.Strategy != "" {
		fmt.Fprintf(out, "  Strategy: %s\n", state.Strategy)
	}
	fmt.Fprintf(out, "  Created:  %s\n", state.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Events:   %d (revision %d)\n", state.Applied, state.Revision)
	if state.FailureReason != "" {
		fmt.Fprintf(out, "  Failure:  %s\n", styles.ErrorMsg.Render(state.FailureReason))
	}
	if state.Artifact != "" {
		fmt.Fprintf(out, "  Artifact: %s\n", state.Artifact)
	}

	if len(state.Workers) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, watch.WorkerTable(state, nil))
	}

	if len(state.Anomalies) > 0 {
		fmt.Fprintf(out, "\n%s\n", styles.WarningMsg.Render(fmt.Sprintf("%d anomalies", len(state.Anomalies))))
		for _, a := range state.Anomalies {
			fmt.Fprintf(out, "  %s %s from %s: %s\n", a.Timestamp.Format("15:04:05"), a.Type, a.Agent, a.Reason)
		}
	}
	return nil
}
