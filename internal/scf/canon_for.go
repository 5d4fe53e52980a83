package scf

import (
	"strata/internal/ir"
	"strata/internal/rewrite"
)

// ForPatterns returns the canonicalization patterns anchored on for
// loops, in registration order.
func ForPatterns() []rewrite.Pattern {
	return []rewrite.Pattern{forIterArgsFolder{}, simplifyTrivialFor{}}
}

// forIterArgsFolder drops loop-carried values the loop never really
// carries. An (init, arg, yielded, result) tuple folds away when the
// body passes the argument straight through, when every iteration
// yields the init again, or when neither the argument nor the result is
// used. Distinct positions carrying the same (init, yielded) pair
// collapse into one.
type forIterArgsFolder struct{}

func (forIterArgsFolder) Name() string        { return "for-iter-args-folder" }
func (forIterArgsFolder) RootKind() ir.OpKind { return KindFor }

func (forIterArgsFolder) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := For(g, op)
	inits := loop.InitArgs()
	args := loop.RegionIterArgs()
	yields := loop.YieldedValues()
	results := loop.Results()
	n := len(inits)
	if n == 0 {
		return false
	}

	const (
		keepPos    = -2
		foldToInit = -1
	)
	disposition := make([]int, n) // keepPos, foldToInit, or index of the duplicate kept
	seen := make(map[[2]ir.ValueID]int, n)
	changed := false
	for i := 0; i < n; i++ {
		forwarded := args[i] == yields[i] || inits[i] == yields[i] ||
			(!g.HasUses(args[i]) && !g.HasUses(results[i]))
		if forwarded {
			disposition[i] = foldToInit
			changed = true
			continue
		}
		key := [2]ir.ValueID{inits[i], yields[i]}
		if j, ok := seen[key]; ok {
			disposition[i] = j
			changed = true
			continue
		}
		seen[key] = i
		disposition[i] = keepPos
	}
	if !changed {
		return false
	}

	var keptInits []ir.ValueID
	var keptTypes []ir.Type
	var keptYields []ir.ValueID
	newIndex := make(map[int]int, n)
	for i := 0; i < n; i++ {
		if disposition[i] != keepPos {
			continue
		}
		newIndex[i] = len(keptInits)
		keptInits = append(keptInits, inits[i])
		keptTypes = append(keptTypes, g.ValueType(inits[i]))
		keptYields = append(keptYields, yields[i])
	}

	operands := append([]ir.ValueID{loop.LowerBound(), loop.UpperBound(), loop.Step()}, keptInits...)
	newOp := g.NewOp(KindFor, operands, keptTypes, 1, ir.Attributes{})
	g.InsertOpBefore(newOp, op)

	body := loop.Body()
	g.SetOperands(loop.Yield(), keptYields)
	g.MoveRegionBlocks(loop.BodyRegion(), g.Region(newOp, 0))
	newResults := g.Results(newOp)

	for i := 0; i < n; i++ {
		switch d := disposition[i]; d {
		case keepPos:
			g.ReplaceAllUses(results[i], newResults[newIndex[i]])
		case foldToInit:
			g.ReplaceAllUses(args[i], inits[i])
			g.ReplaceAllUses(results[i], inits[i])
		default:
			g.ReplaceAllUses(args[i], args[d])
			g.ReplaceAllUses(results[i], newResults[newIndex[d]])
		}
	}
	mask := make([]bool, n+1)
	for i := 0; i < n; i++ {
		mask[1+i] = disposition[i] != keepPos
	}
	g.EraseBlockParams(body, mask)
	g.EraseOp(op)
	return true
}

// simplifyTrivialFor removes loops whose behavior is statically decided:
// zero trips become the init values, a single trip inlines the body, and
// an empty body yielding only loop-invariant values becomes those
// values.
type simplifyTrivialFor struct{}

func (simplifyTrivialFor) Name() string        { return "for-simplify-trivial" }
func (simplifyTrivialFor) RootKind() ir.OpKind { return KindFor }

func (simplifyTrivialFor) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	loop := For(g, op)

	// Identical bound values never iterate, whatever they hold.
	if loop.LowerBound() == loop.UpperBound() {
		replaceOpWithValues(g, op, loop.InitArgs())
		return true
	}

	if diff, ok := ConstDiff(g, loop.LowerBound(), loop.UpperBound()); ok {
		if diff <= 0 {
			replaceOpWithValues(g, op, loop.InitArgs())
			return true
		}
		if step, ok := ConstantIntValue(g, loop.Step()); ok && step > 0 && step >= diff {
			return PromoteSingleIterationFor(g, op)
		}
	}

	// A body holding only its terminator contributes nothing per
	// iteration; when everything it yields is defined outside the loop,
	// the results are those values.
	if !onlyTerminator(g, loop.Body()) {
		return false
	}
	yields := loop.YieldedValues()
	for _, v := range yields {
		if !g.DefinedOutsideRegion(v, loop.BodyRegion()) {
			return false
		}
	}
	replaceOpWithValues(g, op, yields)
	return true
}

// PromoteSingleIterationFor inlines a for loop's body in its place,
// substituting the lower bound for the induction variable and the inits
// for the iteration arguments. The caller has established that the loop
// runs exactly once.
func PromoteSingleIterationFor(g *ir.Graph, op ir.OpID) bool {
	loop := For(g, op)
	argRepl := append([]ir.ValueID{loop.LowerBound()}, loop.InitArgs()...)
	vals := inlineBlockWithYield(g, loop.Body(), op, argRepl)
	replaceOpWithValues(g, op, vals)
	return true
}
