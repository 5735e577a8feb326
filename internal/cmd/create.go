package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <task>",
	Short: "Create a session for a task",
	Long: `Create a new session in the planning phase and print its id.

Examples:
  hive create "review the payment service for failure handling"
  id=$(hive create "audit the cache layer") && hive plan "$id"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	coord, cleanup := e.coordinator("", coordinatorOptions{})
	defer cleanup()

	state, err := coord.CreateSession(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	logger := e.sessionLogger(state.SessionID)
	logger.WithSession(state.SessionID).Info("session created", "task", state.Task)
	_ = logger.Close()

	_, err = fmt.Fprintln(cmd.OutOrStdout(), state.SessionID)
	return err
}
