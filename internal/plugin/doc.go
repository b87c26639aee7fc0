// Package plugin implements the orchestrator clients that keep a
// document's derived state current: header/footer materialization,
// placeholder numbering, statistics, comment anchoring, collaboration
// relay and version snapshots.
//
// ARCHITECTURE: Decoration Cascade
//
// Every plugin occupies one slot of the fixed priority table and is
// scheduled by the session after document changes. Writes a plugin makes
// are tagged with its origin; the session schedules only lower-priority
// plugins in response, so decoration flows strictly downhill
// (headerfooter -> numbering -> reflow -> stats -> ...) and the cascade
// terminates.
//
// ARCHITECTURE: Idempotency
//
// Every Run is idempotent: a second run over an unchanged document
// writes nothing, which keeps debounce replays and follow-up drains
// silent. Plugins that write into the tree rely on the transaction
// surface treating equal values as no-ops.
package plugin
