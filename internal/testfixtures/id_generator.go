package testfixtures

import (
	"fmt"
	"sync/atomic"
)

// IDGenerator yields sequential identifiers of the form "<prefix>-N".
// Production wiring injects uuid.NewString instead; tests use this so
// assertions can name the ids a service will mint.
type IDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewIDGenerator constructs a generator with the given prefix, defaulting
// to "id" when blank.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier, starting at "<prefix>-1".
func (g *IDGenerator) Next() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.counter.Add(1))
}

// NextFunc adapts the generator for injection into a service constructor.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}
