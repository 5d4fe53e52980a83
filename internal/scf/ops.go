package scf

import (
	"fmt"

	"strata/internal/ir"
)

func mustKind(g *ir.Graph, op ir.OpID, k ir.OpKind) {
	if g.OpKindOf(op) != k {
		panic(fmt.Sprintf("scf: expected %s, got %s", KindName(k), KindName(g.OpKindOf(op))))
	}
}

// ForOp views an operation as a sequential for loop.
type ForOp struct {
	G  *ir.Graph
	ID ir.OpID
}

// For wraps op, which must be a for loop.
func For(g *ir.Graph, op ir.OpID) ForOp {
	mustKind(g, op, KindFor)
	return ForOp{G: g, ID: op}
}

func (op ForOp) LowerBound() ir.ValueID { return op.G.Operand(op.ID, 0) }
func (op ForOp) UpperBound() ir.ValueID { return op.G.Operand(op.ID, 1) }
func (op ForOp) Step() ir.ValueID       { return op.G.Operand(op.ID, 2) }

// InitArgs returns the loop-carried init operands.
func (op ForOp) InitArgs() []ir.ValueID { return op.G.Operands(op.ID)[3:] }

func (op ForOp) BodyRegion() ir.RegionID { return op.G.Region(op.ID, 0) }
func (op ForOp) Body() ir.BlockID        { return op.G.FirstBlock(op.BodyRegion()) }

// InductionVar returns the body's first block argument.
func (op ForOp) InductionVar() ir.ValueID { return op.G.BlockParam(op.Body(), 0) }

// RegionIterArgs returns the body block arguments carrying loop state.
func (op ForOp) RegionIterArgs() []ir.ValueID { return op.G.BlockParams(op.Body())[1:] }

// Yield returns the body terminator.
func (op ForOp) Yield() ir.OpID { return op.G.LastOp(op.Body()) }

// YieldedValues returns the operands of the body terminator.
func (op ForOp) YieldedValues() []ir.ValueID { return op.G.Operands(op.Yield()) }

func (op ForOp) Results() []ir.ValueID { return op.G.Results(op.ID) }

// IfOp views an operation as a conditional.
type IfOp struct {
	G  *ir.Graph
	ID ir.OpID
}

// If wraps op, which must be a conditional.
func If(g *ir.Graph, op ir.OpID) IfOp {
	mustKind(g, op, KindIf)
	return IfOp{G: g, ID: op}
}

func (op IfOp) Condition() ir.ValueID     { return op.G.Operand(op.ID, 0) }
func (op IfOp) ThenRegion() ir.RegionID   { return op.G.Region(op.ID, 0) }
func (op IfOp) ElseRegion() ir.RegionID   { return op.G.Region(op.ID, 1) }
func (op IfOp) ThenBlock() ir.BlockID     { return op.G.FirstBlock(op.ThenRegion()) }
func (op IfOp) ElseBlock() ir.BlockID     { return op.G.FirstBlock(op.ElseRegion()) }
func (op IfOp) HasElse() bool             { return op.ElseBlock() != ir.NoBlock }
func (op IfOp) ThenYield() ir.OpID        { return op.G.LastOp(op.ThenBlock()) }
func (op IfOp) ElseYield() ir.OpID        { return op.G.LastOp(op.ElseBlock()) }
func (op IfOp) Results() []ir.ValueID     { return op.G.Results(op.ID) }

// WhileOp views an operation as a general while loop.
type WhileOp struct {
	G  *ir.Graph
	ID ir.OpID
}

// While wraps op, which must be a while loop.
func While(g *ir.Graph, op ir.OpID) WhileOp {
	mustKind(g, op, KindWhile)
	return WhileOp{G: g, ID: op}
}

func (op WhileOp) Inits() []ir.ValueID       { return op.G.Operands(op.ID) }
func (op WhileOp) BeforeRegion() ir.RegionID { return op.G.Region(op.ID, 0) }
func (op WhileOp) AfterRegion() ir.RegionID  { return op.G.Region(op.ID, 1) }
func (op WhileOp) BeforeBlock() ir.BlockID   { return op.G.FirstBlock(op.BeforeRegion()) }
func (op WhileOp) AfterBlock() ir.BlockID    { return op.G.FirstBlock(op.AfterRegion()) }
func (op WhileOp) BeforeArgs() []ir.ValueID  { return op.G.BlockParams(op.BeforeBlock()) }
func (op WhileOp) AfterArgs() []ir.ValueID   { return op.G.BlockParams(op.AfterBlock()) }

// ConditionOp returns the before region's terminator.
func (op WhileOp) ConditionOp() ir.OpID { return op.G.LastOp(op.BeforeBlock()) }

// Yield returns the after region's terminator.
func (op WhileOp) Yield() ir.OpID { return op.G.LastOp(op.AfterBlock()) }

// YieldedValues returns the values fed back into the before region.
func (op WhileOp) YieldedValues() []ir.ValueID { return op.G.Operands(op.Yield()) }

// ConditionFlag returns the continuation flag of the condition op.
func (op WhileOp) ConditionFlag() ir.ValueID { return op.G.Operand(op.ConditionOp(), 0) }

// ConditionArgs returns the condition op operands forwarded to the after
// region (everything past the flag).
func (op WhileOp) ConditionArgs() []ir.ValueID { return op.G.Operands(op.ConditionOp())[1:] }

func (op WhileOp) Results() []ir.ValueID { return op.G.Results(op.ID) }

// ForallOp views an operation as a multi-dimensional parallel loop with
// shared outputs. Operand segments: lower bounds, upper bounds, steps,
// outputs.
type ForallOp struct {
	G  *ir.Graph
	ID ir.OpID
}

// Forall wraps op, which must be a forall loop.
func Forall(g *ir.Graph, op ir.OpID) ForallOp {
	mustKind(g, op, KindForall)
	return ForallOp{G: g, ID: op}
}

func (op ForallOp) Rank() int { return int(op.G.Attrs(op.ID).Segments[0]) }

func (op ForallOp) segment(i int) []ir.ValueID {
	segs := op.G.Attrs(op.ID).Segments
	start := 0
	for _, s := range segs[:i] {
		start += int(s)
	}
	return op.G.Operands(op.ID)[start : start+int(segs[i])]
}

func (op ForallOp) LowerBounds() []ir.ValueID { return op.segment(0) }
func (op ForallOp) UpperBounds() []ir.ValueID { return op.segment(1) }
func (op ForallOp) Steps() []ir.ValueID       { return op.segment(2) }
func (op ForallOp) Outputs() []ir.ValueID     { return op.segment(3) }

func (op ForallOp) BodyRegion() ir.RegionID { return op.G.Region(op.ID, 0) }
func (op ForallOp) Body() ir.BlockID        { return op.G.FirstBlock(op.BodyRegion()) }

// InductionVars returns the first rank block arguments of the body.
func (op ForallOp) InductionVars() []ir.ValueID {
	return op.G.BlockParams(op.Body())[:op.Rank()]
}

// RegionOutArgs returns the block arguments tied to the shared outputs.
func (op ForallOp) RegionOutArgs() []ir.ValueID {
	return op.G.BlockParams(op.Body())[op.Rank():]
}

// Terminator returns the body's in_parallel terminator.
func (op ForallOp) Terminator() ir.OpID { return op.G.LastOp(op.Body()) }

// CombiningOps returns the parallel insert ops of the terminator whose
// destination is the given output block argument.
func (op ForallOp) CombiningOps(outArg ir.ValueID) []ir.OpID {
	var stores []ir.OpID
	term := op.Terminator()
	body := op.G.FirstBlock(op.G.Region(term, 0))
	for _, store := range op.G.BlockOps(body) {
		if op.G.OpKindOf(store) == KindParallelInsert && op.G.Operand(store, 1) == outArg {
			stores = append(stores, store)
		}
	}
	return stores
}

func (op ForallOp) Results() []ir.ValueID { return op.G.Results(op.ID) }

// ParallelOp views an operation as a reduction loop. Operand segments:
// lower bounds, upper bounds, steps, init values.
type ParallelOp struct {
	G  *ir.Graph
	ID ir.OpID
}

// Parallel wraps op, which must be a parallel loop.
func Parallel(g *ir.Graph, op ir.OpID) ParallelOp {
	mustKind(g, op, KindParallel)
	return ParallelOp{G: g, ID: op}
}

func (op ParallelOp) Rank() int { return int(op.G.Attrs(op.ID).Segments[0]) }

func (op ParallelOp) segment(i int) []ir.ValueID {
	segs := op.G.Attrs(op.ID).Segments
	start := 0
	for _, s := range segs[:i] {
		start += int(s)
	}
	return op.G.Operands(op.ID)[start : start+int(segs[i])]
}

func (op ParallelOp) LowerBounds() []ir.ValueID { return op.segment(0) }
func (op ParallelOp) UpperBounds() []ir.ValueID { return op.segment(1) }
func (op ParallelOp) Steps() []ir.ValueID       { return op.segment(2) }
func (op ParallelOp) InitVals() []ir.ValueID    { return op.segment(3) }

func (op ParallelOp) BodyRegion() ir.RegionID { return op.G.Region(op.ID, 0) }
func (op ParallelOp) Body() ir.BlockID        { return op.G.FirstBlock(op.BodyRegion()) }

// InductionVars returns the body block arguments.
func (op ParallelOp) InductionVars() []ir.ValueID { return op.G.BlockParams(op.Body()) }

// Reduce returns the body terminator.
func (op ParallelOp) Reduce() ir.OpID { return op.G.LastOp(op.Body()) }

func (op ParallelOp) Results() []ir.ValueID { return op.G.Results(op.ID) }

// IndexSwitchOp views an operation as an index switch. Region 0 is the
// default region; region i+1 matches case value i.
type IndexSwitchOp struct {
	G  *ir.Graph
	ID ir.OpID
}

// IndexSwitch wraps op, which must be an index switch.
func IndexSwitch(g *ir.Graph, op ir.OpID) IndexSwitchOp {
	mustKind(g, op, KindIndexSwitch)
	return IndexSwitchOp{G: g, ID: op}
}

func (op IndexSwitchOp) Arg() ir.ValueID           { return op.G.Operand(op.ID, 0) }
func (op IndexSwitchOp) Cases() []int64            { return op.G.Attrs(op.ID).Cases }
func (op IndexSwitchOp) NumCases() int             { return len(op.Cases()) }
func (op IndexSwitchOp) DefaultRegion() ir.RegionID { return op.G.Region(op.ID, 0) }
func (op IndexSwitchOp) CaseRegion(i int) ir.RegionID { return op.G.Region(op.ID, i+1) }
func (op IndexSwitchOp) Results() []ir.ValueID     { return op.G.Results(op.ID) }

// ExecuteRegionOp views an operation as an execute_region wrapper.
type ExecuteRegionOp struct {
	G  *ir.Graph
	ID ir.OpID
}

// ExecuteRegion wraps op, which must be an execute_region.
func ExecuteRegion(g *ir.Graph, op ir.OpID) ExecuteRegionOp {
	mustKind(g, op, KindExecuteRegion)
	return ExecuteRegionOp{G: g, ID: op}
}

func (op ExecuteRegionOp) Region() ir.RegionID { return op.G.Region(op.ID, 0) }
func (op ExecuteRegionOp) Results() []ir.ValueID { return op.G.Results(op.ID) }
