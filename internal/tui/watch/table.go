package watch

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/tui/styles"
)

// maxDetailWidth truncates the progress and failure column.
const maxDetailWidth = 48

// WorkerTable renders the workers named by ids (every worker when ids is
// nil) as a bordered table.
func WorkerTable(state *types.State, ids []string) string {
	if ids == nil {
		ids = state.WorkerIDs()
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		w := state.Worker(id)
		if w == nil {
			continue
		}
		rows = append(rows, []string{
			w.ID,
			w.Kind,
			styles.Status(w.Status),
			styles.Audit(w.Audit),
			strconv.Itoa(w.Attempts),
			dependsOn(w),
			truncate(detail(w), maxDetailWidth),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.BorderColor)).
		Headers("WORKER", "KIND", "STATUS", "AUDIT", "RESPAWNS", "DEPENDS ON", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.Render()
}

func dependsOn(w *types.WorkerRecord) string {
	if len(w.DependsOn) == 0 {
		return "-"
	}
	deps := strings.Join(w.DependsOn, ",")
	if !w.Ready() && !w.Status.IsTerminal() {
		deps += " (blocked)"
	}
	return deps
}

func detail(w *types.WorkerRecord) string {
	switch {
	case w.Escalated:
		return "escalated: " + w.FailureReason
	case w.FailureReason != "":
		return w.FailureReason
	default:
		return w.Progress
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
