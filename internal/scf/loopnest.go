package scf

import "strata/internal/ir"

// LoopNest is the result of BuildLoopNest: the created loops from
// outermost to innermost, and the values the nest produces.
type LoopNest struct {
	Loops   []ForOp
	Results []ir.ValueID
}

// NestBodyFn emits the innermost body into block b. It receives one
// induction variable per nesting level and the iteration arguments of
// the innermost loop, and returns the values to thread back out.
type NestBodyFn func(g *ir.Graph, b ir.BlockID, ivs, args []ir.ValueID) []ir.ValueID

// BuildLoopNest appends a perfect nest of for loops over the given
// bounds, threading iterArgs through every level so the innermost
// body's values become the yields of each enclosing loop. With no
// bounds it invokes bodyFn directly in b and returns its values
// unchanged.
func BuildLoopNest(g *ir.Graph, b ir.BlockID, lbs, ubs, steps, iterArgs []ir.ValueID, bodyFn NestBodyFn) LoopNest {
	n := len(lbs)
	if n == 0 {
		var vals []ir.ValueID
		if bodyFn != nil {
			vals = bodyFn(g, b, nil, iterArgs)
		} else {
			vals = iterArgs
		}
		return LoopNest{Results: vals}
	}

	loops := make([]ForOp, n)
	ivs := make([]ir.ValueID, n)
	curBlock := b
	curArgs := iterArgs
	for i := 0; i < n; i++ {
		loop := BuildFor(g, curBlock, lbs[i], ubs[i], steps[i], curArgs...)
		// The placeholder yield is rebuilt once the inner levels exist.
		g.EraseOp(loop.Yield())
		loops[i] = loop
		ivs[i] = loop.InductionVar()
		curBlock = loop.Body()
		curArgs = loop.RegionIterArgs()
	}

	var vals []ir.ValueID
	if bodyFn != nil {
		vals = bodyFn(g, curBlock, ivs, curArgs)
	} else {
		vals = curArgs
	}
	for i := n - 1; i >= 0; i-- {
		BuildYield(g, loops[i].Body(), vals...)
		vals = loops[i].Results()
	}
	return LoopNest{Loops: loops, Results: vals}
}
