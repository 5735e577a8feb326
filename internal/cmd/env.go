package cmd

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/Iron-Ham/hivemind/internal/backlog"
	"github.com/Iron-Ham/hivemind/internal/config"
	"github.com/Iron-Ham/hivemind/internal/logging"
	"github.com/Iron-Ham/hivemind/internal/orchestrator"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/planner"
	"github.com/Iron-Ham/hivemind/internal/session"
)

// env bundles what a command needs to operate on one workspace.
type env struct {
	cfg   *config.Config
	root  string
	store *session.Store
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	root := cfg.Paths.ResolveRoot()
	store, err := session.NewStore(root,
		session.WithRetry(cfg.Coordination.StateUpdateRetries, cfg.Coordination.StateUpdateBackoff()))
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, root: root, store: store}, nil
}

// sessionLogger opens the debug log of session id. Logging never blocks a
// command: when the log cannot be opened a no-op logger is returned.
func (e *env) sessionLogger(id string) *logging.Logger {
	if !e.store.Exists(id) {
		return logging.NopLogger()
	}
	logger, err := logging.NewLogger(e.store.Dir(id), logging.Options{
		Level: e.cfg.Logging.Level,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  e.cfg.Logging.MaxSizeMB,
			MaxBackups: e.cfg.Logging.MaxBackups,
			Compress:   e.cfg.Logging.Compress,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: debug log unavailable: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}

type coordinatorOptions struct {
	// logger replaces the session's debug log. The caller closes it.
	logger  *logging.Logger
	planner planner.Planner
	// backlog opens the backlog database so synthesis can record follow-ups.
	backlog bool
}

// coordinator builds a Coordinator logging to session id's debug log. The
// returned func releases the log and the backlog.
func (e *env) coordinator(id string, opts coordinatorOptions) (*orchestrator.Coordinator, func()) {
	logger := opts.logger
	var closers []func() error
	if logger == nil {
		logger = e.sessionLogger(id)
		closers = append(closers, logger.Close)
	}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	o := orchestrator.Options{
		Config:  e.cfg,
		Planner: opts.planner,
		Logger:  logger,
	}
	if opts.backlog {
		db, err := backlog.Open(e.cfg.Backlog.ResolveBacklogPath(e.root))
		if err != nil {
			// Synthesis still succeeds without the backlog.
			logger.Warn("backlog unavailable", "error", err)
		} else {
			o.Backlog = db
			closers = append(closers, db.Close)
		}
	}
	return orchestrator.New(e.store, o), cleanup
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
