package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/orchestrator/planner"
	"github.com/Iron-Ham/hivemind/internal/textgen"
)

var planCmd = &cobra.Command{
	Use:   "plan <session-id>",
	Short: "Plan the session's task and assign workers",
	Long: `Plan the session's task into worker assignments and record them.

The planner is chosen by planner.mode: "static" assigns one worker per kind,
"file" reads a YAML plan and "oracle" asks the text generator for a plan,
falling back to static when the answer is unusable.

Examples:
  hive plan $ID
  hive plan $ID --kinds architect,backend,tester --strategy hybrid
  hive plan $ID --plan-file plan.yaml
  hive plan $ID --oracle`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

var (
	planKinds    []string
	planStrategy string
	planFile     string
	planOracle   bool
)

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringSliceVar(&planKinds, "kinds", nil, "Worker kinds to plan over (default: worker.kinds)")
	planCmd.Flags().StringVar(&planStrategy, "strategy", "", "Execution strategy: parallel, sequential or hybrid")
	planCmd.Flags().StringVar(&planFile, "plan-file", "", "Read the plan from a YAML file")
	planCmd.Flags().BoolVar(&planOracle, "oracle", false, "Ask the text generator for a plan")
	planCmd.MarkFlagsMutuallyExclusive("plan-file", "oracle")
}

func runPlan(cmd *cobra.Command, args []string) error {
	id := args[0]
	e, err := loadEnv()
	if err != nil {
		return err
	}

	pc := e.cfg.Planner
	if planStrategy != "" {
		pc.Strategy = planStrategy
	}
	switch {
	case planFile != "":
		pc.Mode, pc.PlanFile = "file", planFile
	case planOracle:
		pc.Mode = "oracle"
	}
	e.cfg.Planner = pc

	logger := e.sessionLogger(id)
	defer func() { _ = logger.Close() }()

	var gen textgen.Generator
	if pc.Mode == "oracle" {
		if gen, err = textgen.New(e.cfg.TextGen); err != nil {
			return err
		}
	}
	p, err := planner.New(pc, gen, logger.WithSession(id).WithPhase("planning"))
	if err != nil {
		return err
	}

	coord, cleanup := e.coordinator(id, coordinatorOptions{logger: logger, planner: p})
	defer cleanup()

	plan, err := coord.PlanAndAssign(cmd.Context(), id, planKinds)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Assigned %d workers (%s):\n", len(plan.Assignments), plan.Strategy)
	for _, a := range plan.Assignments {
		deps := ""
		if len(a.DependsOn) > 0 {
			deps = " after " + strings.Join(a.DependsOn, ", ")
		}
		fmt.Fprintf(out, "  %-12s %s%s\n", a.WorkerID, a.Focus, deps)
	}
	return nil
}
