package scf

import (
	"strata/internal/ir"
)

// RegionSuccessor names one possible control transfer target: either a
// region of the op or, when Region is ir.NoRegion, the op's results.
type RegionSuccessor struct {
	Region ir.RegionID
}

// ParentSuccessor is the transfer back to the op's own results.
func ParentSuccessor() RegionSuccessor { return RegionSuccessor{Region: ir.NoRegion} }

// IsParent reports whether the successor is the op's results.
func (s RegionSuccessor) IsParent() bool { return s.Region == ir.NoRegion }

// SuccessorRegions reports where control may flow when leaving `from`,
// which is ir.NoRegion for entry into the op. The result never depends
// on operand values; see EntrySuccessorRegions for the refinement
// constant operands allow.
func SuccessorRegions(g *ir.Graph, op ir.OpID, from ir.RegionID) []RegionSuccessor {
	switch g.OpKindOf(op) {
	case KindFor, KindParallel, KindForall:
		// Zero-trip loops skip the body; the body loops back or exits.
		body := g.Region(op, 0)
		return []RegionSuccessor{{Region: body}, ParentSuccessor()}
	case KindIf:
		cond := If(g, op)
		if from != ir.NoRegion {
			return []RegionSuccessor{ParentSuccessor()}
		}
		succs := []RegionSuccessor{{Region: cond.ThenRegion()}}
		if cond.HasElse() {
			succs = append(succs, RegionSuccessor{Region: cond.ElseRegion()})
		} else {
			succs = append(succs, ParentSuccessor())
		}
		return succs
	case KindWhile:
		loop := While(g, op)
		switch from {
		case ir.NoRegion:
			return []RegionSuccessor{{Region: loop.BeforeRegion()}}
		case loop.BeforeRegion():
			return []RegionSuccessor{{Region: loop.AfterRegion()}, ParentSuccessor()}
		default:
			return []RegionSuccessor{{Region: loop.BeforeRegion()}}
		}
	case KindIndexSwitch:
		if from != ir.NoRegion {
			return []RegionSuccessor{ParentSuccessor()}
		}
		succs := make([]RegionSuccessor, g.NumRegions(op))
		for i := range succs {
			succs[i] = RegionSuccessor{Region: g.Region(op, i)}
		}
		return succs
	case KindExecuteRegion:
		if from != ir.NoRegion {
			return []RegionSuccessor{ParentSuccessor()}
		}
		return []RegionSuccessor{{Region: g.Region(op, 0)}}
	default:
		return nil
	}
}

// EntrySuccessorRegions refines the entry successors of an op using
// constant operands. For a conditional with a known condition or a
// switch with a known argument it returns the single region that will
// run; otherwise it falls back to SuccessorRegions.
func EntrySuccessorRegions(g *ir.Graph, op ir.OpID) []RegionSuccessor {
	switch g.OpKindOf(op) {
	case KindIf:
		cond := If(g, op)
		if v, ok := ConstantBoolValue(g, cond.Condition()); ok {
			if v {
				return []RegionSuccessor{{Region: cond.ThenRegion()}}
			}
			if cond.HasElse() {
				return []RegionSuccessor{{Region: cond.ElseRegion()}}
			}
			return []RegionSuccessor{ParentSuccessor()}
		}
	case KindIndexSwitch:
		sw := IndexSwitch(g, op)
		if v, ok := ConstantIntValue(g, sw.Arg()); ok {
			for i, c := range sw.Cases() {
				if c == v {
					return []RegionSuccessor{{Region: sw.CaseRegion(i)}}
				}
			}
			return []RegionSuccessor{{Region: sw.DefaultRegion()}}
		}
	}
	return SuccessorRegions(g, op, ir.NoRegion)
}

// InvocationBounds gives how many times a region may run per execution
// of its parent. Max < 0 means unbounded.
type InvocationBounds struct {
	Min int64
	Max int64
}

// RegionInvocationBounds reports per-region invocation bounds for an op,
// indexed like the op's regions. Constant operands tighten the bounds.
func RegionInvocationBounds(g *ir.Graph, op ir.OpID) []InvocationBounds {
	unknown := func() []InvocationBounds {
		bounds := make([]InvocationBounds, g.NumRegions(op))
		for i := range bounds {
			bounds[i] = InvocationBounds{Min: 0, Max: -1}
		}
		return bounds
	}
	switch g.OpKindOf(op) {
	case KindIf:
		cond := If(g, op)
		bounds := []InvocationBounds{{Min: 0, Max: 1}, {Min: 0, Max: 1}}
		if !cond.HasElse() {
			bounds[1] = InvocationBounds{}
		}
		if v, ok := ConstantBoolValue(g, cond.Condition()); ok {
			if v {
				bounds[0].Min = 1
				bounds[1].Max = 0
			} else {
				bounds[0].Max = 0
				if cond.HasElse() {
					bounds[1].Min = 1
				}
			}
		}
		return bounds
	case KindIndexSwitch:
		sw := IndexSwitch(g, op)
		bounds := make([]InvocationBounds, g.NumRegions(op))
		for i := range bounds {
			bounds[i] = InvocationBounds{Min: 0, Max: 1}
		}
		if v, ok := ConstantIntValue(g, sw.Arg()); ok {
			taken := 0
			for i, c := range sw.Cases() {
				if c == v {
					taken = i + 1
				}
			}
			for i := range bounds {
				if i == taken {
					bounds[i] = InvocationBounds{Min: 1, Max: 1}
				} else {
					bounds[i] = InvocationBounds{Min: 0, Max: 0}
				}
			}
		}
		return bounds
	case KindFor:
		if n, ok := ConstantTripCount(g, For(g, op)); ok {
			return []InvocationBounds{{Min: n, Max: n}}
		}
		return unknown()
	case KindExecuteRegion:
		return []InvocationBounds{{Min: 1, Max: 1}}
	default:
		return unknown()
	}
}

// LoopIsSpeculatable reports whether hoisting a for loop cannot change
// termination behavior: true exactly when the step is the literal one,
// which rules out non-terminating negative or zero strides whatever the
// bounds turn out to be.
func LoopIsSpeculatable(g *ir.Graph, op ir.OpID) bool {
	step, ok := ConstantIntValue(g, For(g, op).Step())
	return ok && step == 1
}
