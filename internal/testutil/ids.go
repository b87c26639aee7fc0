// Package testutil provides deterministic substitutes for the identity
// and timing sources production code draws on, so tests and golden files
// reproduce exactly.
package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs issues ids of the form "<prefix>-0001", "<prefix>-0002", …
// in call order. It satisfies doc.IDSource.
//
// Unlike the production UUIDv7 source, the sequence restarts with every
// instance, so a test that performs the same operations always sees the
// same ids.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a source with the given prefix.
// The first call to NewID returns "<prefix>-0001".
func NewSequenceIDs(prefix string) *SequenceIDs {
	return &SequenceIDs{prefix: prefix}
}

// NewID returns the next id in the sequence.
func (s *SequenceIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%04d", s.prefix, s.n)
}

// Count returns how many ids have been issued.
func (s *SequenceIDs) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
