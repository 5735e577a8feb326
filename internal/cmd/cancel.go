package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <session-id>",
	Short: "Fail a session",
	Long: `Record session_failed. Running workers observe the failed phase and
stop. The event log and artifacts are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

var cancelReason string

func init() {
	rootCmd.AddCommand(cancelCmd)

	cancelCmd.Flags().StringVar(&cancelReason, "reason", "", "Reason recorded with the failure")
}

func runCancel(cmd *cobra.Command, args []string) error {
	id := args[0]
	e, err := loadEnv()
	if err != nil {
		return err
	}
	coord, cleanup := e.coordinator(id, coordinatorOptions{})
	defer cleanup()

	state, err := coord.Cancel(cmd.Context(), id, cancelReason)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session %s is %s: %s\n", id, state.Phase, state.FailureReason)
	return nil
}
