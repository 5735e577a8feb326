// Package projection derives a session's state document from its event log.
//
// [Apply] is a pure, total function from (state, event) to state: it never
// fails, and events that cannot take effect are recorded as anomalies on the
// state instead of being rejected. [Replay] folds Apply over a whole log,
// and [Sync] applies only the records appended since the state's cursor,
// committing the result through the store's compare-and-swap update.
// Replaying from empty and syncing incrementally produce the same state.
//
// Schema validation happens here, at consumption. Appends are never
// validated, so a newer writer can log event types this version does not
// know about.
//
// Worker events that arrive while one of the worker's dependencies has not
// yet passed its audit are accepted into the log but parked on the worker
// record. They are applied, in order, at the moment the last dependency
// passes.
package projection
