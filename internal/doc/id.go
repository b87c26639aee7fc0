package doc

import "github.com/google/uuid"

// IDSource yields identifiers for new pages and blocks.
// Implemented by UUIDSource (production) and testutil.SequenceIDs (tests).
type IDSource interface {
	NewID() string
}

// UUIDSource issues time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids created
// later sort later. That makes page and block ids usable as tie-breakers
// without a separate counter.
//
// Thread-safety: UUIDSource is stateless and safe for concurrent use.
type UUIDSource struct{}

// NewID creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDSource) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
