package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/tui/styles"
)

var auditCmd = &cobra.Command{
	Use:   "audit <session-id> <worker>",
	Short: "Check a worker's completion evidence",
	Long: `Run the completion audit on one worker without recording a verdict.

The audit checks that the worker announced and wrote both its notes and its
structured result, and that the result parses. The command exits with code 5
when a check fails.`,
	Args: cobra.ExactArgs(2),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	id, workerID := args[0], args[1]
	e, err := loadEnv()
	if err != nil {
		return err
	}
	coord, cleanup := e.coordinator(id, coordinatorOptions{})
	defer cleanup()

	report, err := coord.Audit(cmd.Context(), id, workerID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !report.Passed() {
		fmt.Fprintf(out, "%s %s (attempt %d): %s\n", styles.ErrorMsg.Render("FAIL"), workerID, report.Attempt, report.Reason())
		return report.Err
	}
	fmt.Fprintf(out, "%s %s (attempt %d)\n", styles.SuccessMsg.Render("PASS"), workerID, report.Attempt)
	fmt.Fprintf(out, "  notes:  %s\n", report.NotesPath)
	fmt.Fprintf(out, "  result: %s\n", report.ResultPath)
	if report.Result != nil {
		fmt.Fprintf(out, "  %d findings, %d recommendations\n", len(report.Result.Findings), len(report.Result.Recommendations))
	}
	return nil
}
