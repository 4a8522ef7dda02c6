package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates predictable transaction ids: tx-0001, tx-0002, ...
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with a fresh SequenceIDs produces identical history output.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. If prefix is empty, "tx-" is used.
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "tx-"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%04d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
