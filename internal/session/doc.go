// Package session implements the session store: one directory per session
// holding a versioned state document, an append-only JSONL event log, the
// debug log, and the workers' output artifacts.
//
// # Layout
//
//	<root>/.hive/sessions/<id>/
//	    state.json      versioned state document
//	    events.jsonl    append-only event log
//	    debug.log       slog JSON debug log
//	    notes/          narrative artifacts
//	    results/        structured artifacts
//
// # Concurrency
//
// Workers and the coordinator are separate processes. Appends serialize on a
// flock(2) held on events.lock and are fsynced before Append returns. State
// updates are optimistic: the mutation runs against a snapshot outside any
// lock, and the write happens under state.lock only if the revision on disk
// still matches the snapshot. Mismatches are retried with bounded backoff.
//
// Sessions are never deleted. A completed or failed session stays on disk
// with its full event log so it can be inspected later.
package session
