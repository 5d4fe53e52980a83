package scf

import (
	"strata/internal/ir"
	"strata/internal/rewrite"
)

// ParallelPatterns returns the canonicalization patterns anchored on
// parallel reduction loops, in registration order.
func ParallelPatterns() []rewrite.Pattern {
	return []rewrite.Pattern{
		parallelSingleOrZeroIterationDims{},
		mergeNestedParallelLoops{},
	}
}

// newParallelShell creates a parallel op over the given bounds and init
// values with an empty body block carrying one induction variable per
// dimension, inserted before another op. The merged-in body supplies
// the reduce terminator.
func newParallelShell(g *ir.Graph, before ir.OpID, lbs, ubs, steps, inits []ir.ValueID) (ir.OpID, ir.BlockID) {
	rank := len(lbs)
	operands := make([]ir.ValueID, 0, 3*rank+len(inits))
	operands = append(operands, lbs...)
	operands = append(operands, ubs...)
	operands = append(operands, steps...)
	operands = append(operands, inits...)
	resultTypes := make([]ir.Type, len(inits))
	for i, init := range inits {
		resultTypes[i] = g.ValueType(init)
	}
	params := make([]ir.Type, rank)
	for d := range params {
		params[d] = ir.Index()
	}
	segs := segmentSizes(rank, len(inits))
	op := g.NewOp(KindParallel, operands, resultTypes, 1, ir.Attributes{Segments: segs})
	body := g.AddBlock(g.Region(op, 0), params...)
	g.InsertOpBefore(op, before)
	return op, body
}

// parallelSingleOrZeroIterationDims removes loop dimensions with a
// statically known trivial iteration space. A zero-trip dimension makes
// the whole loop yield its init values; single-trip dimensions pin
// their induction variable to the lower bound and drop out of the
// bounds. When every dimension drops, the body is inlined and each
// combiner runs once over (init, reduced value).
type parallelSingleOrZeroIterationDims struct{}

func (parallelSingleOrZeroIterationDims) Name() string        { return "parallel-single-or-zero-dims" }
func (parallelSingleOrZeroIterationDims) RootKind() ir.OpKind { return KindParallel }

func (parallelSingleOrZeroIterationDims) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := Parallel(g, op)
	lbs, ubs, steps := loop.LowerBounds(), loop.UpperBounds(), loop.Steps()
	rank := loop.Rank()

	var keptLBs, keptUBs, keptSteps []ir.ValueID
	ivRepl := make([]ir.ValueID, rank)
	for d := 0; d < rank; d++ {
		if trips, known := DimTripCount(g, lbs, ubs, steps, d); known {
			if trips == 0 {
				replaceOpWithValues(g, op, loop.InitVals())
				return true
			}
			if trips == 1 {
				ivRepl[d] = lbs[d]
				continue
			}
		}
		ivRepl[d] = ir.NoValue
		keptLBs = append(keptLBs, lbs[d])
		keptUBs = append(keptUBs, ubs[d])
		keptSteps = append(keptSteps, steps[d])
	}
	if len(keptLBs) == rank {
		return false
	}

	if len(keptLBs) == 0 {
		promoteParallel(g, op, ivRepl)
		return true
	}

	inits := loop.InitVals()
	results := loop.Results()
	newOp, newBody := newParallelShell(g, op, keptLBs, keptUBs, keptSteps, inits)
	newParams := g.BlockParams(newBody)

	argRepl := make([]ir.ValueID, rank)
	kept := 0
	for d := 0; d < rank; d++ {
		if ivRepl[d] != ir.NoValue {
			argRepl[d] = ivRepl[d]
		} else {
			argRepl[d] = newParams[kept]
			kept++
		}
	}
	g.MergeBlocks(loop.Body(), newBody, argRepl)

	newResults := g.Results(newOp)
	for i := range results {
		g.ReplaceAllUses(results[i], newResults[i])
	}
	g.EraseOp(op)
	return true
}

// promoteParallel inlines a parallel loop whose every dimension runs
// exactly once. The body ops move before the loop with each induction
// variable bound per ivRepl, then each combiner region is inlined over
// its init value and the reduced operand, and its returned value
// replaces the corresponding loop result.
func promoteParallel(g *ir.Graph, op ir.OpID, ivRepl []ir.ValueID) {
	loop := Parallel(g, op)
	inits := loop.InitVals()
	results := loop.Results()
	reduce := loop.Reduce()

	g.InlineBlockBefore(loop.Body(), op, ivRepl)

	// Operand reads happen after the inline so induction-variable
	// operands resolve to their lower bounds.
	folded := make([]ir.ValueID, len(inits))
	for i := range inits {
		elem := g.Operand(reduce, i)
		block := g.FirstBlock(g.Region(reduce, i))
		mapped := inlineBlockWithYield(g, block, op, []ir.ValueID{inits[i], elem})
		folded[i] = mapped[0]
	}
	for i, res := range results {
		g.ReplaceAllUses(res, folded[i])
	}
	g.EraseOp(reduce)
	g.EraseOp(op)
}

// mergeNestedParallelLoops collapses a parallel loop whose body is
// nothing but another parallel loop into a single loop over the
// concatenated iteration space. Neither loop may reduce, and the inner
// bounds must not depend on the outer induction variables.
type mergeNestedParallelLoops struct{}

func (mergeNestedParallelLoops) Name() string        { return "parallel-merge-nested" }
func (mergeNestedParallelLoops) RootKind() ir.OpKind { return KindParallel }

func (mergeNestedParallelLoops) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	outer := Parallel(g, op)
	body := outer.Body()
	if g.NumBlockOps(body) != 2 {
		return false
	}
	first := g.FirstOp(body)
	if g.OpKindOf(first) != KindParallel {
		return false
	}
	inner := Parallel(g, first)

	outerIVs := outer.InductionVars()
	for _, iv := range outerIVs {
		for _, bound := range [][]ir.ValueID{inner.LowerBounds(), inner.UpperBounds(), inner.Steps()} {
			for _, v := range bound {
				if v == iv {
					return false
				}
			}
		}
	}
	if len(outer.InitVals()) != 0 || len(inner.InitVals()) != 0 {
		return false
	}

	lbs := append(append([]ir.ValueID{}, outer.LowerBounds()...), inner.LowerBounds()...)
	ubs := append(append([]ir.ValueID{}, outer.UpperBounds()...), inner.UpperBounds()...)
	steps := append(append([]ir.ValueID{}, outer.Steps()...), inner.Steps()...)

	_, newBody := newParallelShell(g, op, lbs, ubs, steps, nil)
	newParams := g.BlockParams(newBody)
	outerRank := outer.Rank()

	for d, iv := range outerIVs {
		g.ReplaceAllUses(iv, newParams[d])
	}
	g.MergeBlocks(inner.Body(), newBody, newParams[outerRank:])
	g.EraseOp(op)
	return true
}
