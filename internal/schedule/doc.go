// Package schedule implements the quire update orchestrator.
//
// Plugins (pagination, header/footer materialization, numbering, comment
// realignment, collaboration relay, versioning) never run against the
// document directly. They submit named updates here, and the scheduler
// decides when each one runs.
//
// ARCHITECTURE:
//
// Debounce Per Plugin:
// Every submission opens (or restarts) a per-plugin debounce window.
// Submissions arriving while a window is open replace the pending effect,
// last write wins, so a burst of keystrokes costs one update. ScheduleNow
// skips the window for work that must not lag behind input, such as a
// page break under the caret.
//
// Single Drain:
// Due updates collect in one queue drained by at most one goroutine,
// spawned on demand and exiting when the queue empties. Effects therefore
// execute strictly one at a time, and every effect sees the document
// state left by the previous one.
//
// Deterministic Ordering:
// The drain always picks the lowest priority number first; ties fall back
// to submission order via a logical sequence counter, never wall-clock
// time. Priorities are fixed per plugin kind: structural passes run
// before decoration, decoration before content-dependent work, and
// versioning last.
//
// Failure Isolation:
// A failing or panicking effect is logged with its plugin name and the
// drain moves on. One broken plugin must not stall pagination for the
// rest. Errors are not retried; the next document change schedules the
// plugin again anyway.
package schedule
