package scf

import (
	"strata/internal/ir"
)

// NegatedCondition matches v against xor(x, 1) where the right-hand side
// is the literal one, returning x. This is the only negation shape folds
// recognize; a literal-one left-hand side is matched separately where a
// rewrite wants it.
func NegatedCondition(g *ir.Graph, v ir.ValueID) (ir.ValueID, bool) {
	def := g.DefiningOp(v)
	if def == ir.NoOp || g.OpKindOf(def) != KindXOrI {
		return ir.NoValue, false
	}
	if g.ValueType(v).Kind != ir.TypeBool {
		return ir.NoValue, false
	}
	if !IsConstantOne(g, g.Operand(def, 1)) {
		return ir.NoValue, false
	}
	return g.Operand(def, 0), true
}

// NegatedConditionEitherSide matches v against xor(x, 1) or xor(1, x).
func NegatedConditionEitherSide(g *ir.Graph, v ir.ValueID) (ir.ValueID, bool) {
	def := g.DefiningOp(v)
	if def == ir.NoOp || g.OpKindOf(def) != KindXOrI {
		return ir.NoValue, false
	}
	if g.ValueType(v).Kind != ir.TypeBool {
		return ir.NoValue, false
	}
	if IsConstantOne(g, g.Operand(def, 1)) {
		return g.Operand(def, 0), true
	}
	if IsConstantOne(g, g.Operand(def, 0)) {
		return g.Operand(def, 1), true
	}
	return ir.NoValue, false
}

// FoldOp applies the op's fold function in place and reports whether the
// graph changed. Folds that resolve an op to existing or literal values
// also erase the op.
func FoldOp(g *ir.Graph, op ir.OpID) bool {
	switch g.OpKindOf(op) {
	case KindIf:
		return foldIf(g, op)
	case KindAddI:
		return foldAddI(g, op)
	case KindAndI:
		return foldAndI(g, op)
	case KindXOrI:
		return foldXOrI(g, op)
	case KindCmpI:
		return foldCmpI(g, op)
	case KindSelect:
		return foldSelect(g, op)
	}
	return false
}

// foldIf rewrites `if (xor c, 1) then A else B` into `if c then B else A`.
// It needs a materialized else branch to swap with.
func foldIf(g *ir.Graph, op ir.OpID) bool {
	cond := If(g, op)
	inner, ok := NegatedCondition(g, cond.Condition())
	if !ok || !cond.HasElse() {
		return false
	}
	g.SwapRegionBlocks(cond.ThenRegion(), cond.ElseRegion())
	g.SetOperand(op, 0, inner)
	return true
}

// resolveTo replaces every use of the op's single result and erases it.
func resolveTo(g *ir.Graph, op ir.OpID, v ir.ValueID) bool {
	g.ReplaceAllUses(g.Result(op, 0), v)
	g.EraseOp(op)
	return true
}

// resolveToConst materializes a literal before op, rewires the result to
// it and erases the op.
func resolveToConst(g *ir.Graph, op ir.OpID, n int64) bool {
	t := g.ValueType(g.Result(op, 0))
	c := g.NewOp(KindConstant, nil, []ir.Type{t}, 0, ir.Attributes{Int: n, Bool: n != 0})
	g.InsertOpBefore(c, op)
	return resolveTo(g, op, g.Result(c, 0))
}

func foldAddI(g *ir.Graph, op ir.OpID) bool {
	lhs, rhs := g.Operand(op, 0), g.Operand(op, 1)
	a, aOK := ConstantIntValue(g, lhs)
	b, bOK := ConstantIntValue(g, rhs)
	switch {
	case aOK && bOK:
		sum := a + b
		if (b > 0 && sum < a) || (b < 0 && sum > a) {
			return false
		}
		return resolveToConst(g, op, sum)
	case aOK && a == 0:
		return resolveTo(g, op, rhs)
	case bOK && b == 0:
		return resolveTo(g, op, lhs)
	}
	return false
}

func foldAndI(g *ir.Graph, op ir.OpID) bool {
	lhs, rhs := g.Operand(op, 0), g.Operand(op, 1)
	if lhs == rhs {
		return resolveTo(g, op, lhs)
	}
	a, aOK := ConstantIntValue(g, lhs)
	b, bOK := ConstantIntValue(g, rhs)
	switch {
	case aOK && bOK:
		return resolveToConst(g, op, a&b)
	case aOK && a == 0, bOK && b == 0:
		return resolveToConst(g, op, 0)
	}
	return false
}

func foldXOrI(g *ir.Graph, op ir.OpID) bool {
	lhs, rhs := g.Operand(op, 0), g.Operand(op, 1)
	if lhs == rhs {
		return resolveToConst(g, op, 0)
	}
	a, aOK := ConstantIntValue(g, lhs)
	b, bOK := ConstantIntValue(g, rhs)
	switch {
	case aOK && bOK:
		return resolveToConst(g, op, a^b)
	case aOK && a == 0:
		return resolveTo(g, op, rhs)
	case bOK && b == 0:
		return resolveTo(g, op, lhs)
	}
	// xor (xor x, 1), 1 -> x
	if bOK && b == 1 {
		if inner, ok := NegatedCondition(g, lhs); ok {
			return resolveTo(g, op, inner)
		}
	}
	return false
}

func foldCmpI(g *ir.Graph, op ir.OpID) bool {
	lhs, rhs := g.Operand(op, 0), g.Operand(op, 1)
	pred := g.Attrs(op).Pred
	if lhs == rhs {
		switch pred {
		case CmpEQ, CmpSLE, CmpSGE:
			return resolveToConst(g, op, 1)
		default:
			return resolveToConst(g, op, 0)
		}
	}
	a, aOK := ConstantIntValue(g, lhs)
	b, bOK := ConstantIntValue(g, rhs)
	if !aOK || !bOK {
		return false
	}
	var r bool
	switch pred {
	case CmpEQ:
		r = a == b
	case CmpNE:
		r = a != b
	case CmpSLT:
		r = a < b
	case CmpSLE:
		r = a <= b
	case CmpSGT:
		r = a > b
	case CmpSGE:
		r = a >= b
	default:
		return false
	}
	if r {
		return resolveToConst(g, op, 1)
	}
	return resolveToConst(g, op, 0)
}

func foldSelect(g *ir.Graph, op ir.OpID) bool {
	cond, trueVal, falseVal := g.Operand(op, 0), g.Operand(op, 1), g.Operand(op, 2)
	if trueVal == falseVal {
		return resolveTo(g, op, trueVal)
	}
	if v, ok := ConstantBoolValue(g, cond); ok {
		if v {
			return resolveTo(g, op, trueVal)
		}
		return resolveTo(g, op, falseVal)
	}
	return false
}
