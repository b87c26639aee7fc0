package plugin

import (
	"context"

	"quire/internal/schedule"
)

// Plugin is one orchestrator client.
type Plugin interface {
	// Name is the unique scheduler key. It doubles as the origin tag for
	// the plugin's own document writes.
	Name() string

	// Priority is the plugin's fixed slot in the drain order.
	Priority() schedule.Priority

	// Run applies the plugin's effect to the current document state.
	Run(ctx context.Context) error
}
