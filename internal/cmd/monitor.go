package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/orchestrator"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <session-id>",
	Short: "Audit, time out, re-spawn and escalate workers",
	Long: `Monitor a session until every worker has passed its audit or the session
fails. Each pass audits completed workers, times out workers that never
started and re-spawns or escalates failed ones. Only one monitor may run per
session.

Examples:
  hive monitor $ID
  hive monitor $ID --once
  hive monitor $ID --synthesize`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

var (
	monitorOnce       bool
	monitorSynthesize bool
)

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "Run a single pass and exit")
	monitorCmd.Flags().BoolVar(&monitorSynthesize, "synthesize", false, "Synthesize once every worker has passed")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	id := args[0]
	e, err := loadEnv()
	if err != nil {
		return err
	}
	coord, cleanup := e.coordinator(id, coordinatorOptions{backlog: monitorSynthesize})
	defer cleanup()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var state *types.State
	if monitorOnce {
		pass, err := coord.MonitorOnce(ctx, id, e.store.Now())
		if err != nil {
			return err
		}
		printVerdicts(out, pass)
		if len(pass.Errors) > 0 {
			return errors.Join(pass.Errors...)
		}
		state = pass.State
		if !pass.Done() {
			return nil
		}
	} else {
		if state, err = coord.Monitor(ctx, id); err != nil {
			return err
		}
	}

	return finishMonitor(cmd, e, coord, state, monitorSynthesize)
}

// finishMonitor reports how monitoring ended and synthesizes when asked.
func finishMonitor(cmd *cobra.Command, e *env, coord *orchestrator.Coordinator, state *types.State, synthesize bool) error {
	out := cmd.OutOrStdout()
	switch {
	case state.Phase == types.PhaseFailed:
		fmt.Fprintf(out, "Session %s failed: %s\n", state.SessionID, state.FailureReason)
		return state.Err()
	case state.Phase == types.PhaseCompleted:
		fmt.Fprintf(out, "Session %s completed: %s\n", state.SessionID, state.Artifact)
		return nil
	}

	fmt.Fprintf(out, "All %d workers passed their audits.\n", len(state.Workers))
	if !synthesize {
		fmt.Fprintf(out, "Run 'hive synthesize %s' to produce the final artifact.\n", state.SessionID)
		return nil
	}
	artifact, err := coord.Synthesize(cmd.Context(), state.SessionID)
	if err != nil {
		return err
	}
	printArtifact(out, e.store.Dir(state.SessionID), artifact)
	return nil
}

func printVerdicts(out io.Writer, pass *orchestrator.Pass) {
	if len(pass.Verdicts) == 0 {
		fmt.Fprintln(out, "No verdicts.")
	}
	for _, v := range pass.Verdicts {
		line := fmt.Sprintf("%-16s %s", v.Type, v.Worker)
		if v.Reason != "" {
			line += ": " + v.Reason
		}
		fmt.Fprintln(out, line)
	}
	for _, err := range pass.Errors {
		fmt.Fprintf(out, "error: %v\n", err)
	}
}
