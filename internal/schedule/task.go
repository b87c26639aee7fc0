package schedule

import (
	"context"
	"time"
)

// Priority orders updates in the drain. Lower runs first.
type Priority int

// The fixed priority table. Structural work runs before decoration,
// decoration before content-dependent work, history capture last.
const (
	PriorityStructure     Priority = 1
	PriorityHeaderFooter  Priority = 2
	PriorityNumbering     Priority = 3
	PriorityReflow        Priority = 4
	PriorityContent       Priority = 5
	PriorityComments      Priority = 6
	PriorityCollaboration Priority = 7
	PriorityVersioning    Priority = 8
)

// Effect is the unit of deferred work a plugin submits.
//
// Effects run on the drain goroutine, one at a time. The context is
// cancelled when the scheduler closes. An effect must not call the
// scheduler's Wait, which would deadlock the drain; submitting follow-up
// work via Schedule or ScheduleNow is fine.
type Effect func(ctx context.Context) error

// task is one pending update.
type task struct {
	plugin string
	prio   Priority
	seq    int64
	effect Effect
}

// TaskState describes where a pending update currently sits.
type TaskState string

const (
	// StateDebouncing: the debounce window is open; the effect may still
	// be replaced by a newer submission.
	StateDebouncing TaskState = "debouncing"
	// StateQueued: the window elapsed; the update awaits the drain.
	StateQueued TaskState = "queued"
	// StateRunning: the effect is executing right now.
	StateRunning TaskState = "running"
)

// PluginStatus is one row of the scheduler's introspection snapshot.
type PluginStatus struct {
	Plugin   string
	Priority Priority
	State    TaskState
	// LastRun is when the plugin's effect last finished, zero if never.
	LastRun time.Time
}
