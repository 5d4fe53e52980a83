// Package rewrite holds the pattern contract and the reference
// fixed-point driver. Patterns are local: they inspect one root op,
// check every precondition, and only then mutate. A pattern that does
// not match leaves the graph untouched and reports false; no-match is
// the routine outcome, not an error.
package rewrite

import (
	"fmt"

	"strata/internal/ir"
)

// Pattern is one root-anchored rewrite.
type Pattern interface {
	// Name identifies the pattern in stats and configuration.
	Name() string
	// RootKind is the op kind the pattern anchors on.
	RootKind() ir.OpKind
	// MatchAndRewrite applies the rewrite at op when it matches,
	// reporting whether the graph changed. Implementations must check
	// all preconditions before the first mutation.
	MatchAndRewrite(g *ir.Graph, op ir.OpID) bool
}

// Set indexes patterns by root kind.
type Set struct {
	byKind   map[ir.OpKind][]Pattern
	disabled map[string]bool
}

// NewSet returns an empty pattern set.
func NewSet() *Set {
	return &Set{
		byKind:   make(map[ir.OpKind][]Pattern),
		disabled: make(map[string]bool),
	}
}

// Add registers patterns. Order within one root kind is the order of
// registration and decides which pattern gets the first shot.
func (s *Set) Add(patterns ...Pattern) {
	for _, p := range patterns {
		s.byKind[p.RootKind()] = append(s.byKind[p.RootKind()], p)
	}
}

// Disable excludes a pattern by name.
func (s *Set) Disable(name string) { s.disabled[name] = true }

// For returns the enabled patterns anchored on kind.
func (s *Set) For(kind ir.OpKind) []Pattern {
	patterns := s.byKind[kind]
	if len(s.disabled) == 0 {
		return patterns
	}
	var enabled []Pattern
	for _, p := range patterns {
		if !s.disabled[p.Name()] {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

// Names returns every registered pattern name.
func (s *Set) Names() []string {
	var names []string
	for _, patterns := range s.byKind {
		for _, p := range patterns {
			names = append(names, p.Name())
		}
	}
	return names
}

// Options tunes one driver run.
type Options struct {
	// MaxIterations caps the number of full sweeps. Zero means the
	// default of 10.
	MaxIterations int
	// Fold, when set, runs before patterns at every op.
	Fold func(g *ir.Graph, op ir.OpID) bool
	// Verify, when set, checks the graph after every sweep that changed
	// it. A verification failure aborts the run.
	Verify func(g *ir.Graph) error
}

// Stats reports what one driver run did.
type Stats struct {
	// Sweeps is the number of full passes over the graph.
	Sweeps int
	// Converged is false when the iteration cap stopped the run first.
	Converged bool
	// Folds counts successful fold applications.
	Folds int
	// Applied counts applications per pattern name.
	Applied map[string]int
}

// Apply drives the pattern set to a fixed point. Ops are visited
// innermost-first so a body simplifies before its owner, exposing the
// owner's own rewrites within the same run.
func Apply(g *ir.Graph, s *Set, opts Options) (Stats, error) {
	maxIter := opts.MaxIterations
	if maxIter == 0 {
		maxIter = 10
	}
	stats := Stats{Applied: make(map[string]int)}
	for stats.Sweeps < maxIter {
		stats.Sweeps++
		changed := false

		// Snapshot the visit order up front: patterns erase and create
		// ops mid-sweep, and erased ops must not be revisited.
		var worklist []ir.OpID
		g.WalkOpsPostOrder(func(op ir.OpID) bool {
			worklist = append(worklist, op)
			return true
		})
		for _, op := range worklist {
			if !g.IsLiveOp(op) {
				continue
			}
			if opts.Fold != nil && opts.Fold(g, op) {
				stats.Folds++
				changed = true
				if !g.IsLiveOp(op) {
					continue
				}
			}
			for _, p := range s.For(g.OpKindOf(op)) {
				if p.MatchAndRewrite(g, op) {
					stats.Applied[p.Name()]++
					changed = true
					break
				}
			}
		}
		if !changed {
			stats.Converged = true
			break
		}
		if opts.Verify != nil {
			if err := opts.Verify(g); err != nil {
				return stats, fmt.Errorf("rewrite: graph invalid after sweep %d: %w", stats.Sweeps, err)
			}
		}
	}
	return stats, nil
}
