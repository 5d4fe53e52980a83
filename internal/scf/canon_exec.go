package scf

import (
	"strata/internal/ir"
	"strata/internal/rewrite"
)

// ExecuteRegionPatterns returns the canonicalization patterns anchored
// on execute_region wrappers.
func ExecuteRegionPatterns() []rewrite.Pattern {
	return []rewrite.Pattern{singleBlockExecuteInliner{}}
}

// singleBlockExecuteInliner splices a single-block execute_region into
// its surrounding block. Multi-block wrappers need unstructured
// branches in the parent and are left alone.
type singleBlockExecuteInliner struct{}

func (singleBlockExecuteInliner) Name() string        { return "exec-inline-single-block" }
func (singleBlockExecuteInliner) RootKind() ir.OpKind { return KindExecuteRegion }

func (singleBlockExecuteInliner) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	exec := ExecuteRegion(g, op)
	if len(g.RegionBlocks(exec.Region())) != 1 {
		return false
	}
	replaceOpWithRegion(g, op, exec.Region(), nil)
	return true
}
