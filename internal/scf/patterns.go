package scf

import (
	"strata/internal/ir"
	"strata/internal/rewrite"
)

// RegisterCanonicalizers adds every structured-control-flow
// canonicalization pattern to the set.
func RegisterCanonicalizers(s *rewrite.Set) {
	s.Add(ForPatterns()...)
	s.Add(ForallPatterns()...)
	s.Add(IfPatterns()...)
	s.Add(WhilePatterns()...)
	s.Add(ParallelPatterns()...)
	s.Add(IndexSwitchPatterns()...)
	s.Add(ExecuteRegionPatterns()...)
}

// Canonicalize runs the full pattern set plus operation folds over the
// graph to a fixed point, verifying after each changed sweep.
func Canonicalize(g *ir.Graph) (rewrite.Stats, error) {
	s := rewrite.NewSet()
	RegisterCanonicalizers(s)
	return rewrite.Apply(g, s, rewrite.Options{Fold: FoldOp, Verify: VerifyGraph})
}
