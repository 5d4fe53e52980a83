package scf

import (
	"strata/internal/ir"
	"strata/internal/rewrite"
)

// IfPatterns returns the canonicalization patterns anchored on
// conditionals, in registration order.
func IfPatterns() []rewrite.Pattern {
	return []rewrite.Pattern{
		combineIfs{},
		combineNestedIfs{},
		convertTrivialIfToSelect{},
		removeEmptyElseBranch{},
		removeStaticCondition{},
		removeUnusedIfResults{},
		replaceIfYieldWithCondition{},
	}
}

// removeUnusedIfResults rebuilds a conditional without the results
// nothing uses, trimming both yields to match.
type removeUnusedIfResults struct{}

func (removeUnusedIfResults) Name() string        { return "if-remove-unused-results" }
func (removeUnusedIfResults) RootKind() ir.OpKind { return KindIf }

func (removeUnusedIfResults) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	cond := If(g, op)
	results := cond.Results()
	var used []int
	for i, r := range results {
		if g.HasUses(r) {
			used = append(used, i)
		}
	}
	if len(used) == 0 && onlyTerminator(g, cond.ThenBlock()) &&
		(!cond.HasElse() || onlyTerminator(g, cond.ElseBlock())) {
		// Nothing runs and nothing is observed.
		g.EraseOp(op)
		return true
	}
	if len(used) == len(results) {
		return false
	}

	usedTypes := make([]ir.Type, len(used))
	for i, idx := range used {
		usedTypes[i] = g.ValueType(results[idx])
	}
	newOp := g.NewOp(KindIf, []ir.ValueID{cond.Condition()}, usedTypes, 2, ir.Attributes{})
	g.InsertOpBefore(newOp, op)
	trimYield := func(term ir.OpID) {
		operands := g.Operands(term)
		kept := make([]ir.ValueID, len(used))
		for i, idx := range used {
			kept[i] = operands[idx]
		}
		g.SetOperands(term, kept)
	}
	trimYield(cond.ThenYield())
	g.MoveRegionBlocks(cond.ThenRegion(), g.Region(newOp, 0))
	if cond.HasElse() {
		trimYield(cond.ElseYield())
		g.MoveRegionBlocks(cond.ElseRegion(), g.Region(newOp, 1))
	}
	for i, idx := range used {
		g.ReplaceAllUses(results[idx], g.Result(newOp, i))
	}
	g.EraseOp(op)
	return true
}

// removeStaticCondition resolves a conditional whose condition is a
// literal by inlining the branch that runs.
type removeStaticCondition struct{}

func (removeStaticCondition) Name() string        { return "if-remove-static-condition" }
func (removeStaticCondition) RootKind() ir.OpKind { return KindIf }

func (removeStaticCondition) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	cond := If(g, op)
	v, ok := ConstantBoolValue(g, cond.Condition())
	if !ok {
		return false
	}
	switch {
	case v:
		replaceOpWithRegion(g, op, cond.ThenRegion(), nil)
	case cond.HasElse():
		replaceOpWithRegion(g, op, cond.ElseRegion(), nil)
	default:
		// No else means no results, so nothing to rewire.
		g.EraseOp(op)
	}
	return true
}

// convertTrivialIfToSelect hoists yielded values that are defined
// outside the conditional into selects, leaving a conditional that only
// carries the results genuinely produced inside it.
type convertTrivialIfToSelect struct{}

func (convertTrivialIfToSelect) Name() string        { return "if-to-select" }
func (convertTrivialIfToSelect) RootKind() ir.OpKind { return KindIf }

func (convertTrivialIfToSelect) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	cond := If(g, op)
	if len(cond.Results()) == 0 || !cond.HasElse() {
		return false
	}
	trueVals := g.Operands(cond.ThenYield())
	falseVals := g.Operands(cond.ElseYield())

	nonHoistable := make([]bool, len(trueVals))
	var keptTypes []ir.Type
	for i := range trueVals {
		nonHoistable[i] = g.DefiningRegion(trueVals[i]) == cond.ThenRegion() ||
			g.DefiningRegion(falseVals[i]) == cond.ElseRegion()
		if nonHoistable[i] {
			keptTypes = append(keptTypes, g.ValueType(trueVals[i]))
		}
	}
	if len(keptTypes) == len(trueVals) {
		return false
	}

	// When every result hoists and the branches hold nothing but their
	// yields, no residual conditional is needed at all.
	residual := len(keptTypes) > 0 ||
		!onlyTerminator(g, cond.ThenBlock()) || !onlyTerminator(g, cond.ElseBlock())

	newOp := ir.NoOp
	if residual {
		newOp = g.NewOp(KindIf, []ir.ValueID{cond.Condition()}, keptTypes, 2, ir.Attributes{})
		g.InsertOpBefore(newOp, op)
		g.MoveRegionBlocks(cond.ThenRegion(), g.Region(newOp, 0))
		g.MoveRegionBlocks(cond.ElseRegion(), g.Region(newOp, 1))
	}

	results := g.Results(op)
	var trueYields, falseYields []ir.ValueID
	for i := range trueVals {
		switch {
		case nonHoistable[i]:
			g.ReplaceAllUses(results[i], g.Result(newOp, len(trueYields)))
			trueYields = append(trueYields, trueVals[i])
			falseYields = append(falseYields, falseVals[i])
		case trueVals[i] == falseVals[i]:
			g.ReplaceAllUses(results[i], trueVals[i])
		default:
			sel := g.NewOp(KindSelect,
				[]ir.ValueID{cond.Condition(), trueVals[i], falseVals[i]},
				[]ir.Type{g.ValueType(trueVals[i])}, 0, ir.Attributes{})
			g.InsertOpBefore(sel, op)
			g.ReplaceAllUses(results[i], g.Result(sel, 0))
		}
	}
	if residual {
		replacement := If(g, newOp)
		g.SetOperands(replacement.ThenYield(), trueYields)
		g.SetOperands(replacement.ElseYield(), falseYields)
	}
	g.EraseOp(op)
	return true
}

// replaceIfYieldWithCondition rewires results whose two yields are the
// same value, the literal pair (true, false), or the literal pair
// (false, true): those are the value itself, the condition, and the
// negated condition.
type replaceIfYieldWithCondition struct{}

func (replaceIfYieldWithCondition) Name() string        { return "if-yield-to-condition" }
func (replaceIfYieldWithCondition) RootKind() ir.OpKind { return KindIf }

func (replaceIfYieldWithCondition) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	cond := If(g, op)
	results := cond.Results()
	if len(results) == 0 || !cond.HasElse() {
		return false
	}
	trueVals := g.Operands(cond.ThenYield())
	falseVals := g.Operands(cond.ElseYield())
	changed := false
	for i, r := range results {
		if trueVals[i] == falseVals[i] {
			if g.HasUses(r) {
				g.ReplaceAllUses(r, trueVals[i])
				changed = true
			}
			continue
		}
		if g.ValueType(r).Kind != ir.TypeBool {
			continue
		}
		trueVal, ok1 := ConstantBoolValue(g, trueVals[i])
		falseVal, ok2 := ConstantBoolValue(g, falseVals[i])
		if !ok1 || !ok2 || !g.HasUses(r) {
			continue
		}
		if trueVal && !falseVal {
			g.ReplaceAllUses(r, cond.Condition())
			changed = true
		}
		if !trueVal && falseVal {
			one := g.NewOp(KindConstant, nil, []ir.Type{ir.Bool()}, 0,
				ir.Attributes{Int: 1, Bool: true})
			g.InsertOpBefore(one, op)
			not := g.NewOp(KindXOrI,
				[]ir.ValueID{cond.Condition(), g.Result(one, 0)},
				[]ir.Type{ir.Bool()}, 0, ir.Attributes{})
			g.InsertOpBefore(not, op)
			g.ReplaceAllUses(r, g.Result(not, 0))
			changed = true
		}
	}
	return changed
}

// matchNegationOf reports whether v is xor(of, 1).
func matchNegationOf(g *ir.Graph, v, of ir.ValueID) bool {
	def := g.DefiningOp(v)
	if def == ir.NoOp || g.OpKindOf(def) != KindXOrI {
		return false
	}
	return g.Operand(def, 0) == of && IsConstantOne(g, g.Operand(def, 1))
}

// combineIfs merges two consecutive conditionals over the same condition
// (or one condition and its negation) into a single conditional carrying
// both result lists.
type combineIfs struct{}

func (combineIfs) Name() string        { return "if-combine" }
func (combineIfs) RootKind() ir.OpKind { return KindIf }

func (combineIfs) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	prevID := g.PrevOp(op)
	if prevID == ir.NoOp || g.OpKindOf(prevID) != KindIf {
		return false
	}
	prev := If(g, prevID)
	next := If(g, op)

	// Resolve next's branches relative to prev's condition. An inverted
	// condition flips which branch is the logical then.
	nextThen, nextElse := ir.NoBlock, ir.NoBlock
	switch {
	case next.Condition() == prev.Condition():
		nextThen = next.ThenBlock()
		nextElse = next.ElseBlock()
	case matchNegationOf(g, next.Condition(), prev.Condition()),
		matchNegationOf(g, prev.Condition(), next.Condition()):
		nextElse = next.ThenBlock()
		nextThen = next.ElseBlock()
	}
	if nextThen == ir.NoBlock && nextElse == ir.NoBlock {
		return false
	}

	// Uses of prev's results inside next see the branch-local yielded
	// values instead.
	prevResults := prev.Results()
	if len(prevResults) > 0 {
		prevThenVals := g.Operands(prev.ThenYield())
		prevElseVals := g.Operands(prev.ElseYield())
		for i, r := range prevResults {
			for _, use := range g.Uses(r) {
				switch {
				case nextThen != ir.NoBlock && g.IsAncestor(g.BlockRegion(nextThen), use.Op):
					g.SetOperand(use.Op, use.Index, prevThenVals[i])
				case nextElse != ir.NoBlock && g.IsAncestor(g.BlockRegion(nextElse), use.Op):
					g.SetOperand(use.Op, use.Index, prevElseVals[i])
				}
			}
		}
	}

	nextResults := next.Results()
	mergedTypes := make([]ir.Type, 0, len(prevResults)+len(nextResults))
	for _, r := range prevResults {
		mergedTypes = append(mergedTypes, g.ValueType(r))
	}
	for _, r := range nextResults {
		mergedTypes = append(mergedTypes, g.ValueType(r))
	}
	combined := g.NewOp(KindIf, []ir.ValueID{prev.Condition()}, mergedTypes, 2, ir.Attributes{})
	g.InsertOpBefore(combined, prevID)
	cw := If(g, combined)

	g.MoveRegionBlocks(prev.ThenRegion(), cw.ThenRegion())
	if nextThen != ir.NoBlock {
		appendBranch(g, nextThen, cw.ThenBlock())
	}
	if prev.HasElse() {
		g.MoveRegionBlocks(prev.ElseRegion(), cw.ElseRegion())
	}
	if nextElse != ir.NoBlock {
		if !cw.HasElse() {
			g.MoveRegionBlocks(g.BlockRegion(nextElse), cw.ElseRegion())
		} else {
			appendBranch(g, nextElse, cw.ElseBlock())
		}
	}

	combinedResults := g.Results(combined)
	for i, r := range prevResults {
		g.ReplaceAllUses(r, combinedResults[i])
	}
	for i, r := range nextResults {
		g.ReplaceAllUses(r, combinedResults[len(prevResults)+i])
	}
	g.EraseOp(prevID)
	g.EraseOp(op)
	return true
}

// appendBranch moves the ops of src to the end of dst, concatenating the
// two yields into one.
func appendBranch(g *ir.Graph, src, dst ir.BlockID) {
	dstYield := g.LastOp(dst)
	srcYield := g.LastOp(src)
	merged := append(g.Operands(dstYield), g.Operands(srcYield)...)
	g.EraseOp(dstYield)
	g.MergeBlocks(src, dst, nil)
	g.SetOperands(srcYield, merged)
}

// removeEmptyElseBranch drops an else region that holds nothing but an
// empty yield. Only legal when the conditional has no results.
type removeEmptyElseBranch struct{}

func (removeEmptyElseBranch) Name() string        { return "if-remove-empty-else" }
func (removeEmptyElseBranch) RootKind() ir.OpKind { return KindIf }

func (removeEmptyElseBranch) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	cond := If(g, op)
	if len(cond.Results()) != 0 || !cond.HasElse() {
		return false
	}
	elseBlock := cond.ElseBlock()
	if !onlyTerminator(g, elseBlock) {
		return false
	}
	g.EraseBlock(elseBlock)
	return true
}

// combineNestedIfs turns `if a { if b { ... } }` into a single
// conditional over `a and b`, upgrading else-yielded values to selects
// where the outer condition alone decides them.
type combineNestedIfs struct{}

func (combineNestedIfs) Name() string        { return "if-combine-nested" }
func (combineNestedIfs) RootKind() ir.OpKind { return KindIf }

func (combineNestedIfs) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	outer := If(g, op)
	thenBlock := outer.ThenBlock()
	// The nested conditional must be the only real op of the then block,
	// and every other block involved may hold nothing but its yield.
	if g.NumBlockOps(thenBlock) != 2 {
		return false
	}
	nestedID := g.FirstOp(thenBlock)
	if g.OpKindOf(nestedID) != KindIf {
		return false
	}
	if outer.HasElse() && !onlyTerminator(g, outer.ElseBlock()) {
		return false
	}
	nested := If(g, nestedID)
	if nested.HasElse() && !onlyTerminator(g, nested.ElseBlock()) {
		return false
	}

	thenYield := g.Operands(outer.ThenYield())
	var elseYield []ir.ValueID
	if outer.HasElse() {
		elseYield = g.Operands(outer.ElseYield())
	}

	// Indices whose else value must become a select on the outer
	// condition.
	var upgradeToSelect []int
	for i, thenVal := range thenYield {
		def := g.DefiningOp(thenVal)
		if def == nestedID {
			// Combining is only sound when the outer else value matches
			// what the nested else yields for this result.
			idx := g.ValueIndex(thenVal)
			if g.Operand(nested.ElseYield(), idx) != elseYield[i] {
				return false
			}
			thenYield[i] = g.Operand(nested.ThenYield(), idx)
			continue
		}
		if g.DefiningRegion(thenVal) == outer.ThenRegion() {
			return false
		}
		upgradeToSelect = append(upgradeToSelect, i)
	}

	and := g.NewOp(KindAndI,
		[]ir.ValueID{outer.Condition(), nested.Condition()},
		[]ir.Type{ir.Bool()}, 0, ir.Attributes{})
	g.InsertOpBefore(and, op)

	resTypes := make([]ir.Type, len(outer.Results()))
	for i, r := range outer.Results() {
		resTypes[i] = g.ValueType(r)
	}
	newOp := g.NewOp(KindIf, []ir.ValueID{g.Result(and, 0)}, resTypes, 2, ir.Attributes{})
	g.InsertOpBefore(newOp, op)

	replacements := g.Results(newOp)
	for _, idx := range upgradeToSelect {
		sel := g.NewOp(KindSelect,
			[]ir.ValueID{outer.Condition(), thenYield[idx], elseYield[idx]},
			[]ir.Type{g.ValueType(thenYield[idx])}, 0, ir.Attributes{})
		g.InsertOpBefore(sel, op)
		replacements[idx] = g.Result(sel, 0)
	}

	// The new then body is the nested then body, yielding the merged
	// value list.
	newThen := g.AddBlock(g.Region(newOp, 0))
	nestedThenYield := nested.ThenYield()
	g.EraseOp(nestedThenYield)
	g.MergeBlocks(nested.ThenBlock(), newThen, nil)
	yield := g.NewOp(KindYield, thenYield, nil, 0, ir.Attributes{})
	g.AppendOp(newThen, yield)
	if len(elseYield) > 0 {
		newElse := g.AddBlock(g.Region(newOp, 1))
		g.AppendOp(newElse, g.NewOp(KindYield, elseYield, nil, 0, ir.Attributes{}))
	}

	for i, r := range outer.Results() {
		g.ReplaceAllUses(r, replacements[i])
	}
	g.EraseOp(op)
	return true
}
