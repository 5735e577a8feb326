// Package event defines the session event record, the closed vocabulary of
// event types, and the schema registry used to validate events when they are
// consumed.
//
// # Vocabulary
//
// Worker lifecycle types ([WorkerSpawned] through [WorkerFailed]) may only be
// emitted by the worker they describe. Orchestration types ([SessionCreated],
// [TasksAssigned], audit verdicts, timeouts, respawns, escalations and
// session outcomes) may only be emitted by [QueenAgent].
//
// # Validation
//
// Appending never validates: the log accepts any well-formed record so that
// newer writers remain compatible with older readers. [Validate] is applied
// by the state projection; failures are recorded as anomalies and otherwise
// ignored.
//
// # Bus
//
// [Bus] is a synchronous in-process pub-sub dispatcher. The coordinator
// publishes events it reads or appends so terminal views can update.
package event
