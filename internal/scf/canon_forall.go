package scf

import (
	"strata/internal/ir"
	"strata/internal/rewrite"
)

// ForallPatterns returns the canonicalization patterns anchored on
// forall loops, in registration order.
func ForallPatterns() []rewrite.Pattern {
	return []rewrite.Pattern{
		forallIterArgsFolder{},
		forallSingleOrZeroIterationDims{},
		forallReplaceConstantInductionVar{},
	}
}

// newForallShell creates a forall op over the given bounds and outputs
// with an empty body block carrying the matching parameters, inserted
// before another op. The caller merges a body into it.
func newForallShell(g *ir.Graph, before ir.OpID, lbs, ubs, steps, outputs []ir.ValueID) (ir.OpID, ir.BlockID) {
	rank := len(lbs)
	operands := make([]ir.ValueID, 0, 3*rank+len(outputs))
	operands = append(operands, lbs...)
	operands = append(operands, ubs...)
	operands = append(operands, steps...)
	operands = append(operands, outputs...)
	resultTypes := make([]ir.Type, len(outputs))
	params := make([]ir.Type, 0, rank+len(outputs))
	for range lbs {
		params = append(params, ir.Index())
	}
	for i, out := range outputs {
		resultTypes[i] = g.ValueType(out)
		params = append(params, resultTypes[i])
	}
	segs := segmentSizes(rank, len(outputs))
	op := g.NewOp(KindForall, operands, resultTypes, 1, ir.Attributes{Segments: segs})
	body := g.AddBlock(g.Region(op, 0), params...)
	g.InsertOpBefore(op, before)
	return op, body
}

// forallIterArgsFolder drops shared outputs the loop does not really
// produce. An output folds away when its result is unused or when no
// parallel insert in the terminator targets its block argument; such an
// argument is as good as the operand it was bound to. Surviving outputs
// move to a narrower loop.
type forallIterArgsFolder struct{}

func (forallIterArgsFolder) Name() string        { return "forall-iter-args-folder" }
func (forallIterArgsFolder) RootKind() ir.OpKind { return KindForall }

func (forallIterArgsFolder) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := Forall(g, op)
	outs := loop.Outputs()
	outArgs := loop.RegionOutArgs()
	results := loop.Results()
	n := len(outs)
	if n == 0 {
		return false
	}

	drop := make([]bool, n)
	var keptOuts []ir.ValueID
	changed := false
	for i := 0; i < n; i++ {
		if !g.HasUses(results[i]) || len(loop.CombiningOps(outArgs[i])) == 0 {
			drop[i] = true
			changed = true
			continue
		}
		keptOuts = append(keptOuts, outs[i])
	}
	if !changed {
		return false
	}

	// Stores into dropped arguments write values nobody reads.
	for i := 0; i < n; i++ {
		if !drop[i] {
			continue
		}
		for _, store := range loop.CombiningOps(outArgs[i]) {
			g.EraseOp(store)
		}
	}

	rank := loop.Rank()
	newOp, newBody := newForallShell(g, op, loop.LowerBounds(), loop.UpperBounds(), loop.Steps(), keptOuts)
	newParams := g.BlockParams(newBody)

	argRepl := make([]ir.ValueID, 0, rank+n)
	argRepl = append(argRepl, newParams[:rank]...)
	kept := rank
	for i := 0; i < n; i++ {
		if drop[i] {
			argRepl = append(argRepl, outs[i])
		} else {
			argRepl = append(argRepl, newParams[kept])
			kept++
		}
	}
	g.MergeBlocks(loop.Body(), newBody, argRepl)

	newResults := g.Results(newOp)
	kept = 0
	for i := 0; i < n; i++ {
		if drop[i] {
			g.ReplaceAllUses(results[i], outs[i])
		} else {
			g.ReplaceAllUses(results[i], newResults[kept])
			kept++
		}
	}
	g.EraseOp(op)
	return true
}

// PromoteForall inlines the body of a forall loop into its containing
// block, substituting each induction variable by its lower bound and
// each output argument by the bound operand. Every parallel insert of
// the terminator becomes a plain insert chained onto the output it
// targeted, and the chain tails replace the loop results.
func PromoteForall(g *ir.Graph, op ir.OpID) {
	loop := Forall(g, op)
	outs := loop.Outputs()
	outArgs := loop.RegionOutArgs()
	results := loop.Results()
	term := loop.Terminator()

	// Resolve each store to its output slot while the arguments still
	// identify them.
	type pendingInsert struct {
		store ir.OpID
		slot  int
	}
	var stores []pendingInsert
	for i, arg := range outArgs {
		for _, store := range loop.CombiningOps(arg) {
			stores = append(stores, pendingInsert{store: store, slot: i})
		}
	}

	argRepl := make([]ir.ValueID, 0, loop.Rank()+len(outs))
	argRepl = append(argRepl, loop.LowerBounds()...)
	argRepl = append(argRepl, outs...)
	g.InlineBlockBefore(loop.Body(), op, argRepl)

	current := make([]ir.ValueID, len(outs))
	copy(current, outs)
	for _, p := range stores {
		source := g.Operand(p.store, 0)
		ins := g.NewOp(KindInsert, []ir.ValueID{source, current[p.slot]},
			[]ir.Type{g.ValueType(current[p.slot])}, 0, ir.Attributes{})
		g.InsertOpBefore(ins, op)
		current[p.slot] = g.Result(ins, 0)
	}
	for i, res := range results {
		g.ReplaceAllUses(res, current[i])
	}
	g.EraseOp(term)
	g.EraseOp(op)
}

// forallSingleOrZeroIterationDims removes loop dimensions with a
// statically known trivial iteration space. A zero-trip dimension makes
// the whole loop yield its outputs unchanged; single-trip dimensions
// pin their induction variable to the lower bound and drop out of the
// bounds. A loop left with no dimensions is inlined.
type forallSingleOrZeroIterationDims struct{}

func (forallSingleOrZeroIterationDims) Name() string        { return "forall-single-or-zero-dims" }
func (forallSingleOrZeroIterationDims) RootKind() ir.OpKind { return KindForall }

func (forallSingleOrZeroIterationDims) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := Forall(g, op)
	lbs, ubs, steps := loop.LowerBounds(), loop.UpperBounds(), loop.Steps()
	rank := loop.Rank()

	var keptLBs, keptUBs, keptSteps []ir.ValueID
	ivRepl := make([]ir.ValueID, rank)
	for d := 0; d < rank; d++ {
		if trips, known := DimTripCount(g, lbs, ubs, steps, d); known {
			if trips == 0 {
				replaceOpWithValues(g, op, loop.Outputs())
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

	if len(keptLBs) == 0 {
		PromoteForall(g, op)
		return true
	}
	if len(keptLBs) == rank {
		return false
	}

	outs := loop.Outputs()
	outArgs := loop.RegionOutArgs()
	results := loop.Results()
	newOp, newBody := newForallShell(g, op, keptLBs, keptUBs, keptSteps, outs)
	newParams := g.BlockParams(newBody)

	argRepl := make([]ir.ValueID, 0, rank+len(outs))
	kept := 0
	for d := 0; d < rank; d++ {
		if ivRepl[d] != ir.NoValue {
			argRepl = append(argRepl, ivRepl[d])
		} else {
			argRepl = append(argRepl, newParams[kept])
			kept++
		}
	}
	for i := range outArgs {
		argRepl = append(argRepl, newParams[len(keptLBs)+i])
	}
	g.MergeBlocks(loop.Body(), newBody, argRepl)

	newResults := g.Results(newOp)
	for i := range results {
		g.ReplaceAllUses(results[i], newResults[i])
	}
	g.EraseOp(op)
	return true
}

// forallReplaceConstantInductionVar substitutes the lower bound for any
// used induction variable of a dimension that runs exactly once,
// without touching the loop itself.
type forallReplaceConstantInductionVar struct{}

func (forallReplaceConstantInductionVar) Name() string {
	return "forall-replace-constant-iv"
}
func (forallReplaceConstantInductionVar) RootKind() ir.OpKind { return KindForall }

func (forallReplaceConstantInductionVar) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := Forall(g, op)
	lbs, ubs, steps := loop.LowerBounds(), loop.UpperBounds(), loop.Steps()
	changed := false
	for d, iv := range loop.InductionVars() {
		if !g.HasUses(iv) {
			continue
		}
		if trips, known := DimTripCount(g, lbs, ubs, steps, d); !known || trips != 1 {
			continue
		}
		g.ReplaceAllUses(iv, lbs[d])
		changed = true
	}
	return changed
}
