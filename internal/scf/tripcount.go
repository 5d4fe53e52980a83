package scf

import (
	"math"

	"strata/internal/ir"
)

// ConstantIntValue returns the literal behind v when v is defined by an
// integer or index constant.
func ConstantIntValue(g *ir.Graph, v ir.ValueID) (int64, bool) {
	def := g.DefiningOp(v)
	if def == ir.NoOp || g.OpKindOf(def) != KindConstant {
		return 0, false
	}
	switch g.ValueType(v).Kind {
	case ir.TypeIndex, ir.TypeI32, ir.TypeI64, ir.TypeBool:
		return g.Attrs(def).Int, true
	}
	return 0, false
}

// ConstantBoolValue returns the literal behind v when v is defined by a
// boolean constant.
func ConstantBoolValue(g *ir.Graph, v ir.ValueID) (bool, bool) {
	def := g.DefiningOp(v)
	if def == ir.NoOp || g.OpKindOf(def) != KindConstant {
		return false, false
	}
	if g.ValueType(v).Kind != ir.TypeBool {
		return false, false
	}
	return g.Attrs(def).Int != 0, true
}

// IsConstantOne reports whether v is the literal one.
func IsConstantOne(g *ir.Graph, v ir.ValueID) bool {
	n, ok := ConstantIntValue(g, v)
	return ok && n == 1
}

// ConstDiff computes upper - lower when it is statically known: either
// both bounds are literals, or upper is lower plus a literal. A
// difference that overflows 64 bits is treated as unknown.
func ConstDiff(g *ir.Graph, lower, upper ir.ValueID) (int64, bool) {
	lb, lbOK := ConstantIntValue(g, lower)
	ub, ubOK := ConstantIntValue(g, upper)
	if lbOK && ubOK {
		diff := ub - lb
		// Signed subtraction overflow check.
		if (ub >= lb) != (diff >= 0) {
			return 0, false
		}
		return diff, true
	}
	// upper = lower + k, either operand order
	def := g.DefiningOp(upper)
	if def != ir.NoOp && g.OpKindOf(def) == KindAddI {
		if g.Operand(def, 0) == lower {
			if k, ok := ConstantIntValue(g, g.Operand(def, 1)); ok {
				return k, true
			}
		}
		if g.Operand(def, 1) == lower {
			if k, ok := ConstantIntValue(g, g.Operand(def, 0)); ok {
				return k, true
			}
		}
	}
	return 0, false
}

// ceilDivPositive divides rounding up. Both operands must be positive.
func ceilDivPositive(a, b int64) int64 {
	if a > math.MaxInt64-(b-1) {
		return math.MaxInt64 / b
	}
	return (a + b - 1) / b
}

// ConstantTripCount returns the number of iterations a for loop executes
// when that is statically known. A non-positive bound difference gives
// zero; a non-positive constant step makes the count unknown.
func ConstantTripCount(g *ir.Graph, loop ForOp) (int64, bool) {
	diff, ok := ConstDiff(g, loop.LowerBound(), loop.UpperBound())
	if !ok {
		return 0, false
	}
	if diff <= 0 {
		return 0, true
	}
	step, ok := ConstantIntValue(g, loop.Step())
	if !ok || step <= 0 {
		return 0, false
	}
	return ceilDivPositive(diff, step), true
}

// RangeTripCount returns the iteration count of one bounded dimension
// given literal bound values.
func RangeTripCount(lb, ub, step int64) (int64, bool) {
	if step <= 0 {
		return 0, false
	}
	if ub <= lb {
		return 0, true
	}
	return ceilDivPositive(ub-lb, step), true
}

// DimTripCount resolves the trip count of dimension d of a bounds triple
// when all three values are literals.
func DimTripCount(g *ir.Graph, lbs, ubs, steps []ir.ValueID, d int) (int64, bool) {
	lb, ok := ConstantIntValue(g, lbs[d])
	if !ok {
		return 0, false
	}
	ub, ok := ConstantIntValue(g, ubs[d])
	if !ok {
		return 0, false
	}
	step, ok := ConstantIntValue(g, steps[d])
	if !ok {
		return 0, false
	}
	return RangeTripCount(lb, ub, step)
}
