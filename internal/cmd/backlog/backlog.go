// Package backlog provides CLI commands for the follow-up backlog that
// synthesis fills across sessions.
package backlog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	store "github.com/Iron-Ham/hivemind/internal/backlog"
	"github.com/Iron-Ham/hivemind/internal/config"
	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/tui/styles"
)

var backlogCmd = &cobra.Command{
	Use:   "backlog",
	Short: "Manage follow-up work found by sessions",
	Long: `The backlog collects follow-ups that workers report in their structured
results. Synthesis adds them automatically; items can also be added and
resolved by hand.`,
}

var backlogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backlog items",
	Args:  cobra.NoArgs,
	RunE:  runBacklogList,
}

var backlogAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a backlog item",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBacklogAdd,
}

var backlogResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Mark a backlog item resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacklogResolve,
}

var (
	listSession string
	listAll     bool
	listJSON    bool
	addSession  string
)

func init() {
	backlogCmd.AddCommand(backlogListCmd)
	backlogCmd.AddCommand(backlogAddCmd)
	backlogCmd.AddCommand(backlogResolveCmd)

	backlogListCmd.Flags().StringVarP(&listSession, "session", "s", "", "Only items from this session")
	backlogListCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include resolved items")
	backlogListCmd.Flags().BoolVar(&listJSON, "json", false, "Print items as JSON")
	backlogAddCmd.Flags().StringVarP(&addSession, "session", "s", "", "Session the item belongs to")
}

// Register adds the backlog commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(backlogCmd)
}

func openDB() (*store.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return store.Open(cfg.Backlog.ResolveBacklogPath(cfg.Paths.ResolveRoot()))
}

func runBacklogList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	filter := store.Filter{SessionID: listSession}
	if !listAll {
		filter.Status = store.StatusOpen
	}
	items, err := db.List(cmd.Context(), filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if listJSON {
		if items == nil {
			items = []store.Item{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "Backlog is empty.")
		return nil
	}
	for _, item := range items {
		source := item.SessionID
		if item.WorkerID != "" {
			source += "/" + item.WorkerID
		}
		if source == "" {
			source = "manual"
		}
		status := string(item.Status)
		if item.Status == store.StatusResolved {
			status = styles.Muted.Render(status)
		}
		fmt.Fprintf(out, "%4d  %-8s %s %s\n", item.ID, status, item.Text, styles.Muted.Render("("+source+")"))
	}
	return nil
}

func runBacklogAdd(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	item, err := db.Add(cmd.Context(), store.Item{
		SessionID: addSession,
		Text:      strings.Join(args, " "),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added backlog item %d\n", item.ID)
	return nil
}

func runBacklogResolve(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		return fmt.Errorf("%w: invalid backlog item id %q", errors.ErrInvalidInput, args[0])
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Resolve(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resolved backlog item %d\n", id)
	return nil
}
