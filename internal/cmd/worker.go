package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/projection"
	"github.com/Iron-Ham/hivemind/internal/textgen"
	"github.com/Iron-Ham/hivemind/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker <session-id> <worker>",
	Short: "Run one attempt of a worker",
	Long: `Run one attempt of an assigned worker. The worker waits until its
dependencies have passed their audits, reports its lifecycle to the event
log, asks the text generator for its analysis and writes its notes and
structured result.

Workers stop without reporting anything once the session has failed.`,
	Args: cobra.ExactArgs(2),
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	id, workerID := args[0], args[1]
	e, err := loadEnv()
	if err != nil {
		return err
	}
	gen, err := textgen.New(e.cfg.TextGen)
	if err != nil {
		return err
	}

	logger := e.sessionLogger(id)
	defer func() { _ = logger.Close() }()

	runner := worker.NewRunner(e.store, projection.NewProjector(e.store, logger), worker.Options{
		Generator:    gen,
		PollInterval: e.cfg.Worker.DependencyPoll(),
		Logger:       logger,
	})
	if err := runner.Run(cmd.Context(), id, workerID); err != nil {
		if errors.Is(err, errors.ErrCanceled) {
			fmt.Fprintf(cmd.OutOrStdout(), "Worker %s stopped: %v\n", workerID, err)
			return nil
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Worker %s completed.\n", workerID)
	return nil
}
