package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/tui/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Open the live session dashboard",
	Long: `Open a terminal dashboard showing the session's workers and a live feed of
its event log. The dashboard only reads; it never records events.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	id := args[0]
	if !isTerminal(cmd.OutOrStdout()) {
		return fmt.Errorf("%w: watch needs an interactive terminal; use 'hive events --follow' instead", errors.ErrPreconditionNotMet)
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if !e.store.Exists(id) {
		return errors.NewSessionError("watch", errors.ErrSessionNotFound).WithSessionID(id)
	}
	coord, cleanup := e.coordinator(id, coordinatorOptions{})
	defer cleanup()

	return watch.Run(cmd.Context(), id, coord, e.store, e.cfg.TUI.Refresh())
}
