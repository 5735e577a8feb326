package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/orchestrator/synthesis"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize <session-id>",
	Short: "Merge worker results into the final artifact",
	Long: `Hand a finished session to synthesis. Every worker must be completed
with a passed audit. Writes synthesis.json and synthesis.md into the session
directory, adds follow-ups to the backlog and completes the session.

Running it again on a completed session prints the existing artifact.`,
	Args: cobra.ExactArgs(1),
	RunE: runSynthesize,
}

func init() {
	rootCmd.AddCommand(synthesizeCmd)
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	id := args[0]
	e, err := loadEnv()
	if err != nil {
		return err
	}
	coord, cleanup := e.coordinator(id, coordinatorOptions{backlog: true})
	defer cleanup()

	artifact, err := coord.Synthesize(cmd.Context(), id)
	if err != nil {
		return err
	}
	printArtifact(cmd.OutOrStdout(), e.store.Dir(id), artifact)
	return nil
}

func printArtifact(out io.Writer, dir string, a *synthesis.Artifact) {
	fmt.Fprintf(out, "Synthesis %s (%s)\n", a.SessionID, a.Status)
	fmt.Fprintf(out, "  workers:         %d\n", len(a.Workers))
	fmt.Fprintf(out, "  findings:        %d\n", len(a.Findings))
	fmt.Fprintf(out, "  recommendations: %d\n", len(a.Recommendations))
	if len(a.FollowUps) > 0 {
		fmt.Fprintf(out, "  follow-ups:      %d\n", len(a.FollowUps))
	}
	fmt.Fprintf(out, "  artifact:        %s\n", filepath.Join(dir, a.Path))
}
