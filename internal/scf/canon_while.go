package scf

import (
	"strata/internal/ir"
	"strata/internal/rewrite"
)

// WhilePatterns returns the canonicalization patterns anchored on while
// loops, in registration order.
func WhilePatterns() []rewrite.Pattern {
	return []rewrite.Pattern{
		whileRemoveInvariantBeforeArgs{},
		whileRemoveInvariantYielded{},
		whileConditionTruth{},
		whileCmpCond{},
		whileUnusedResult{},
		whileRemoveDuplicatedResults{},
		whileRemoveUnusedArgs{},
		whileAlignBeforeArgs{},
	}
}

// whileConditionTruth replaces after-block arguments that receive the
// continuation flag itself with the literal true: the after region only
// runs when the flag held.
type whileConditionTruth struct{}

func (whileConditionTruth) Name() string        { return "while-condition-truth" }
func (whileConditionTruth) RootKind() ir.OpKind { return KindWhile }

func (whileConditionTruth) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := While(g, op)
	flag := loop.ConditionFlag()
	condArgs := loop.ConditionArgs()
	afterArgs := loop.AfterArgs()

	constantTrue := ir.NoValue
	changed := false
	for i, arg := range condArgs {
		if arg != flag || !g.HasUses(afterArgs[i]) {
			continue
		}
		if constantTrue == ir.NoValue {
			c := g.NewOp(KindConstant, nil, []ir.Type{ir.Bool()}, 0,
				ir.Attributes{Int: 1, Bool: true})
			g.InsertOpBefore(c, op)
			constantTrue = g.Result(c, 0)
		}
		g.ReplaceAllUses(afterArgs[i], constantTrue)
		changed = true
	}
	return changed
}

// whileRemoveInvariantBeforeArgs drops before-block arguments that never
// change across iterations: the yield feeds them their own init again,
// either directly or round-tripped through the condition.
type whileRemoveInvariantBeforeArgs struct{}

func (whileRemoveInvariantBeforeArgs) Name() string        { return "while-remove-invariant-args" }
func (whileRemoveInvariantBeforeArgs) RootKind() ir.OpKind { return KindWhile }

func (whileRemoveInvariantBeforeArgs) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := While(g, op)
	inits := loop.Inits()
	beforeArgs := loop.BeforeArgs()
	condArgs := loop.ConditionArgs()
	yields := loop.YieldedValues()
	afterBlock := loop.AfterBlock()

	n := len(inits)
	invariant := make([]bool, n)
	any := false
	for i := 0; i < n; i++ {
		if yields[i] == inits[i] {
			invariant[i] = true
			any = true
			continue
		}
		// A yield of after-arg k whose condition operand is the before
		// arg itself (or its init) also loops the same value around.
		if g.IsBlockParam(yields[i]) && g.ParamOwner(yields[i]) == afterBlock {
			k := g.ValueIndex(yields[i])
			if condArgs[k] == beforeArgs[i] || condArgs[k] == inits[i] {
				invariant[i] = true
				any = true
			}
		}
	}
	if !any {
		return false
	}

	var keptInits, keptYields []ir.ValueID
	for i := 0; i < n; i++ {
		if !invariant[i] {
			keptInits = append(keptInits, inits[i])
			keptYields = append(keptYields, yields[i])
		}
	}
	g.SetOperands(loop.Yield(), keptYields)
	g.SetOperands(op, keptInits)
	for i := 0; i < n; i++ {
		if invariant[i] {
			g.ReplaceAllUses(beforeArgs[i], inits[i])
		}
	}
	g.EraseBlockParams(loop.BeforeBlock(), invariant)
	return true
}

// whileRemoveInvariantYielded strips condition operands that are defined
// outside the before block: the matching after-block argument and loop
// result are that value already.
type whileRemoveInvariantYielded struct{}

func (whileRemoveInvariantYielded) Name() string        { return "while-remove-invariant-yielded" }
func (whileRemoveInvariantYielded) RootKind() ir.OpKind { return KindWhile }

func (whileRemoveInvariantYielded) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := While(g, op)
	condArgs := loop.ConditionArgs()
	beforeBlock := loop.BeforeBlock()
	afterArgs := loop.AfterArgs()
	results := loop.Results()

	n := len(condArgs)
	hoisted := make([]bool, n)
	any := false
	for i, arg := range condArgs {
		if g.DefiningBlock(arg) != beforeBlock {
			hoisted[i] = true
			any = true
		}
	}
	if !any {
		return false
	}

	var keptArgs []ir.ValueID
	var keptTypes []ir.Type
	for i, arg := range condArgs {
		if !hoisted[i] {
			keptArgs = append(keptArgs, arg)
			keptTypes = append(keptTypes, g.ValueType(arg))
		}
	}
	newOp := g.NewOp(KindWhile, loop.Inits(), keptTypes, 2, ir.Attributes{})
	g.InsertOpBefore(newOp, op)

	cond := loop.ConditionOp()
	g.SetOperands(cond, append([]ir.ValueID{loop.ConditionFlag()}, keptArgs...))
	for i := range condArgs {
		if hoisted[i] {
			g.ReplaceAllUses(afterArgs[i], condArgs[i])
			g.ReplaceAllUses(results[i], condArgs[i])
		}
	}
	g.EraseBlockParams(loop.AfterBlock(), hoisted)
	g.MoveRegionBlocks(loop.BeforeRegion(), g.Region(newOp, 0))
	g.MoveRegionBlocks(loop.AfterRegion(), g.Region(newOp, 1))
	j := 0
	for i := range condArgs {
		if !hoisted[i] {
			g.ReplaceAllUses(results[i], g.Result(newOp, j))
			j++
		}
	}
	g.EraseOp(op)
	return true
}

// whileUnusedResult drops loop results that nothing reads, inside the
// loop or out.
type whileUnusedResult struct{}

func (whileUnusedResult) Name() string        { return "while-unused-result" }
func (whileUnusedResult) RootKind() ir.OpKind { return KindWhile }

func (whileUnusedResult) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := While(g, op)
	results := loop.Results()
	afterArgs := loop.AfterArgs()
	condArgs := loop.ConditionArgs()

	n := len(results)
	drop := make([]bool, n)
	any := false
	var keptArgs []ir.ValueID
	var keptTypes []ir.Type
	for i := 0; i < n; i++ {
		if !g.HasUses(results[i]) && !g.HasUses(afterArgs[i]) {
			drop[i] = true
			any = true
			continue
		}
		keptArgs = append(keptArgs, condArgs[i])
		keptTypes = append(keptTypes, g.ValueType(results[i]))
	}
	if !any {
		return false
	}

	newOp := g.NewOp(KindWhile, loop.Inits(), keptTypes, 2, ir.Attributes{})
	g.InsertOpBefore(newOp, op)
	g.SetOperands(loop.ConditionOp(), append([]ir.ValueID{loop.ConditionFlag()}, keptArgs...))
	g.EraseBlockParams(loop.AfterBlock(), drop)
	g.MoveRegionBlocks(loop.BeforeRegion(), g.Region(newOp, 0))
	g.MoveRegionBlocks(loop.AfterRegion(), g.Region(newOp, 1))
	j := 0
	for i := 0; i < n; i++ {
		if !drop[i] {
			g.ReplaceAllUses(results[i], g.Result(newOp, j))
			j++
		}
	}
	g.EraseOp(op)
	return true
}

// whileCmpCond replaces comparisons in the after region that restate the
// loop condition (or its exact inversion) with the literal they must
// hold: the after region only runs when the condition compared true.
type whileCmpCond struct{}

func (whileCmpCond) Name() string        { return "while-cmp-cond" }
func (whileCmpCond) RootKind() ir.OpKind { return KindWhile }

func (whileCmpCond) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := While(g, op)
	cmp := g.DefiningOp(loop.ConditionFlag())
	if cmp == ir.NoOp || g.OpKindOf(cmp) != KindCmpI {
		return false
	}
	condArgs := loop.ConditionArgs()
	afterArgs := loop.AfterArgs()
	pred := g.Attrs(cmp).Pred

	changed := false
	for i, arg := range condArgs {
		for opIdx := 0; opIdx < 2; opIdx++ {
			if arg != g.Operand(cmp, opIdx) {
				continue
			}
			for _, use := range g.Uses(afterArgs[i]) {
				cmp2 := use.Op
				if g.OpKindOf(cmp2) != KindCmpI {
					continue
				}
				if g.Operand(cmp2, 1-opIdx) != g.Operand(cmp, 1-opIdx) {
					continue
				}
				var truth bool
				switch g.Attrs(cmp2).Pred {
				case pred:
					truth = true
				case InvertPredicate(pred):
					truth = false
				default:
					continue
				}
				var n int64
				if truth {
					n = 1
				}
				c := g.NewOp(KindConstant, nil, []ir.Type{ir.Bool()}, 0,
					ir.Attributes{Int: n, Bool: truth})
				g.InsertOpBefore(c, cmp2)
				g.ReplaceAllUses(g.Result(cmp2, 0), g.Result(c, 0))
				g.EraseOp(cmp2)
				changed = true
			}
		}
	}
	return changed
}

// whileRemoveUnusedArgs drops before-block arguments nothing reads,
// together with their init and yield operands.
type whileRemoveUnusedArgs struct{}

func (whileRemoveUnusedArgs) Name() string        { return "while-remove-unused-args" }
func (whileRemoveUnusedArgs) RootKind() ir.OpKind { return KindWhile }

func (whileRemoveUnusedArgs) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := While(g, op)
	beforeArgs := loop.BeforeArgs()
	inits := loop.Inits()
	yields := loop.YieldedValues()

	drop := make([]bool, len(beforeArgs))
	any := false
	var keptInits, keptYields []ir.ValueID
	for i, arg := range beforeArgs {
		if !g.HasUses(arg) {
			drop[i] = true
			any = true
			continue
		}
		keptInits = append(keptInits, inits[i])
		keptYields = append(keptYields, yields[i])
	}
	if !any {
		return false
	}
	g.SetOperands(loop.Yield(), keptYields)
	g.SetOperands(op, keptInits)
	g.EraseBlockParams(loop.BeforeBlock(), drop)
	return true
}

// whileRemoveDuplicatedResults collapses condition operands that forward
// the same value more than once into a single result.
type whileRemoveDuplicatedResults struct{}

func (whileRemoveDuplicatedResults) Name() string        { return "while-remove-duplicated-results" }
func (whileRemoveDuplicatedResults) RootKind() ir.OpKind { return KindWhile }

func (whileRemoveDuplicatedResults) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := While(g, op)
	condArgs := loop.ConditionArgs()
	afterArgs := loop.AfterArgs()
	results := loop.Results()

	firstAt := make(map[ir.ValueID]int, len(condArgs))
	dup := make([]bool, len(condArgs))
	var keptArgs []ir.ValueID
	var keptTypes []ir.Type
	position := make([]int, len(condArgs))
	for i, arg := range condArgs {
		if j, ok := firstAt[arg]; ok {
			dup[i] = true
			position[i] = position[j]
			continue
		}
		firstAt[arg] = i
		position[i] = len(keptArgs)
		keptArgs = append(keptArgs, arg)
		keptTypes = append(keptTypes, g.ValueType(arg))
	}
	if len(keptArgs) == len(condArgs) {
		return false
	}

	newOp := g.NewOp(KindWhile, loop.Inits(), keptTypes, 2, ir.Attributes{})
	g.InsertOpBefore(newOp, op)
	g.SetOperands(loop.ConditionOp(), append([]ir.ValueID{loop.ConditionFlag()}, keptArgs...))
	for i := range condArgs {
		if dup[i] {
			g.ReplaceAllUses(afterArgs[i], afterArgs[firstAt[condArgs[i]]])
		}
	}
	g.EraseBlockParams(loop.AfterBlock(), dup)
	g.MoveRegionBlocks(loop.BeforeRegion(), g.Region(newOp, 0))
	g.MoveRegionBlocks(loop.AfterRegion(), g.Region(newOp, 1))
	for i := range condArgs {
		g.ReplaceAllUses(results[i], g.Result(newOp, position[i]))
	}
	g.EraseOp(op)
	return true
}

// whileAlignBeforeArgs reorders condition operands that are a
// permutation of the before-block arguments into the argument order,
// simplifying later uplifting of the loop.
type whileAlignBeforeArgs struct{}

func (whileAlignBeforeArgs) Name() string        { return "while-align-before-args" }
func (whileAlignBeforeArgs) RootKind() ir.OpKind { return KindWhile }

func (whileAlignBeforeArgs) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := While(g, op)
	beforeArgs := loop.BeforeArgs()
	condArgs := loop.ConditionArgs()
	if len(beforeArgs) != len(condArgs) {
		return false
	}
	aligned := true
	for i := range condArgs {
		if condArgs[i] != beforeArgs[i] {
			aligned = false
			break
		}
	}
	if aligned {
		return false
	}
	seen := make(map[ir.ValueID]int, len(condArgs))
	for d, arg := range condArgs {
		if _, ok := seen[arg]; ok {
			return false
		}
		seen[arg] = d
	}
	// mapping[d] = the before-arg index forwarded at old position d.
	mapping := make([]int, len(condArgs))
	for i, arg := range beforeArgs {
		d, ok := seen[arg]
		if !ok {
			return false
		}
		mapping[d] = i
	}

	results := loop.Results()
	newTypes := make([]ir.Type, len(beforeArgs))
	for d, i := range mapping {
		newTypes[i] = g.ValueType(results[d])
	}
	newOp := g.NewOp(KindWhile, loop.Inits(), newTypes, 2, ir.Attributes{})
	g.InsertOpBefore(newOp, op)

	g.SetOperands(loop.ConditionOp(), append([]ir.ValueID{loop.ConditionFlag()}, beforeArgs...))
	g.MoveRegionBlocks(loop.BeforeRegion(), g.Region(newOp, 0))

	newAfter := g.AddBlock(g.Region(newOp, 1), newTypes...)
	argRepl := make([]ir.ValueID, len(mapping))
	for d, i := range mapping {
		argRepl[d] = g.BlockParam(newAfter, i)
	}
	g.MergeBlocks(loop.AfterBlock(), newAfter, argRepl)
	for d, i := range mapping {
		g.ReplaceAllUses(results[d], g.Result(newOp, i))
	}
	g.EraseOp(op)
	return true
}
