// pkg/syntax/depth.go
package syntax

// DefaultMaxDepth bounds expression and block nesting for every parser.
const DefaultMaxDepth = 256

// DepthGuard counts recursion depth for a single parse.
type DepthGuard struct {
	depth int
	max   int
}

// NewDepthGuard returns a guard allowing max levels. A non-positive max
// selects DefaultMaxDepth.
func NewDepthGuard(max int) DepthGuard {
	if max <= 0 {
		max = DefaultMaxDepth
	}
	return DepthGuard{max: max}
}

// Enter records one more level and reports whether the limit still holds.
// Every successful or failed Enter must be paired with Leave.
func (g *DepthGuard) Enter() bool {
	g.depth++
	return g.depth <= g.max
}

// Leave pops one level.
func (g *DepthGuard) Leave() {
	g.depth--
}

// Max returns the configured limit.
func (g *DepthGuard) Max() int {
	return g.max
}
