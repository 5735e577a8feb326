package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/orchestrator/planner"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/projection"
	"github.com/Iron-Ham/hivemind/internal/textgen"
	"github.com/Iron-Ham/hivemind/internal/worker"
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Create, plan, run and synthesize a session in one process",
	Long: `Run a whole session locally: create it, plan and assign workers, run
every worker next to the monitor (re-running workers the monitor re-spawns)
and synthesize the result.

Examples:
  hive run "review the payment service for failure handling"
  hive run --kinds architect,backend,tester --strategy hybrid "audit the API"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var (
	runKinds        []string
	runStrategy     string
	runNoSynthesize bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runKinds, "kinds", nil, "Worker kinds to plan over (default: worker.kinds)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "Execution strategy: parallel, sequential or hybrid")
	runCmd.Flags().BoolVar(&runNoSynthesize, "no-synthesize", false, "Stop once every worker has passed")
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if runStrategy != "" {
		e.cfg.Planner.Strategy = runStrategy
	}
	gen, err := textgen.New(e.cfg.TextGen)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// The session directory, and with it the debug log, exists only after
	// creation.
	creator, cleanupCreator := e.coordinator("", coordinatorOptions{})
	state, err := creator.CreateSession(ctx, strings.Join(args, " "))
	cleanupCreator()
	if err != nil {
		return err
	}
	id := state.SessionID
	fmt.Fprintf(out, "Session %s\n", id)

	logger := e.sessionLogger(id)
	defer func() { _ = logger.Close() }()

	p, err := planner.New(e.cfg.Planner, gen, logger.WithSession(id).WithPhase("planning"))
	if err != nil {
		return err
	}
	coord, cleanup := e.coordinator(id, coordinatorOptions{logger: logger, planner: p, backlog: !runNoSynthesize})
	defer cleanup()

	plan, err := coord.PlanAndAssign(ctx, id, runKinds)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Assigned %s (%s)\n", strings.Join(plan.WorkerIDs(), ", "), plan.Strategy)

	runner := worker.NewRunner(e.store, projection.NewProjector(e.store, logger), worker.Options{
		Generator:    gen,
		PollInterval: e.cfg.Worker.DependencyPoll(),
		Logger:       logger,
	})
	final, err := coord.Drive(ctx, id, runner)
	if err != nil {
		return err
	}
	return finishMonitor(cmd, e, coord, final, !runNoSynthesize)
}
