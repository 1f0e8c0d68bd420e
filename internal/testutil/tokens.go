// Package testutil holds helpers shared by package tests and the scenario
// harness.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialTokens generates numbered request tokens: "<prefix>-0001",
// "<prefix>-0002", and so on.
//
// The same scenario with a fresh SequentialTokens produces byte-identical
// audit logs.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTokens creates a generator. If prefix is empty, "req" is used.
func NewSequentialTokens(prefix string) *SequentialTokens {
	if prefix == "" {
		prefix = "req"
	}
	return &SequentialTokens{prefix: prefix}
}

// Generate returns the next token.
//
// Implements engine.TokenGenerator.
func (g *SequentialTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialTokens) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
