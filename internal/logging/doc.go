// Package logging provides structured logging for hive sessions.
//
// Each session directory carries an append-only debug.log written as JSON
// lines through log/slog. The log is a diagnostic companion to the event log:
// events record what happened, debug.log records how the coordinator and
// workers reacted (anomalies, retries, audit verdicts).
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(sessionDir, logging.Options{Level: "INFO"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	log := logger.WithSession(id).WithWorker("backend").WithPhase("monitor")
//	log.Warn("startup grace window expired", "ready_at", readyAt)
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"startup grace window expired","session_id":"...","worker_id":"backend","phase":"monitor","ready_at":"..."}
//
// # Rotation
//
// [RotatingWriter] rotates debug.log by size into debug.log.1 .. debug.log.N,
// optionally gzipping rotated files. Rotation never truncates entries.
//
// # Reading Logs
//
// [AggregateLogs] parses a session's debug.log, skipping malformed lines, and
// [FilterLogs] narrows the result by level, worker, phase or time.
package logging
