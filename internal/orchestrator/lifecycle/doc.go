// Package lifecycle implements the worker lifecycle state machine.
//
// Every worker must report its progress through a fixed, ordered sequence of
// events. The tracker turns that ordering into a checked invariant rather
// than a convention:
//
//	assigned -> spawned -> validated -> configured -> running -> completed
//	                                                          \-> failed
//
// # Transitions
//
//   - worker_spawned: assigned -> spawned
//   - session_validated: spawned -> validated
//   - worker_configured: validated -> configured
//   - analysis_started: configured -> running
//   - progress_update, notes_created, json_created: running -> running
//   - worker_completed: running -> completed (provisional until audited)
//   - worker_failed: any non-terminal status -> failed
//
// Any other event for a non-terminal worker is a compliance violation and
// forces the worker to failed. Completed and failed are terminal: the tracker
// never retries on its own, remediation is the coordinator's decision.
//
// # Readiness
//
// A worker whose dependencies have not all completed with a passed audit is
// blocked. [PendingDependencies] reports what it still waits for and
// [StartupExpired] applies the startup grace window, which only starts once a
// worker is unblocked.
package lifecycle
