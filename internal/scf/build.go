package scf

import (
	"fmt"

	"fortio.org/safecast"

	"strata/internal/ir"
)

// Builders append fully formed ops to a block. Region-bearing builders
// create the entry block with the right argument signature and install
// a terminator, so every region is structurally complete before the
// caller fills the body in. Value builders place new ops before an
// existing terminator, never after it.

// EnsureTerminator appends an empty yield to every block of r that does
// not already end in a terminator. Calling it again changes nothing.
func EnsureTerminator(g *ir.Graph, r ir.RegionID) {
	for _, b := range g.RegionBlocks(r) {
		last := g.LastOp(b)
		if last != ir.NoOp && IsTerminator(g.OpKindOf(last)) {
			continue
		}
		g.AppendOp(b, g.NewOp(KindYield, nil, nil, 0, ir.Attributes{}))
	}
}

// segmentSizes encodes the operand segment attribute of a rank-bearing
// loop: three equal bound groups plus the trailing value group.
func segmentSizes(rank, vals int) []int32 {
	r, err := safecast.Conv[int32](rank)
	if err != nil {
		panic(fmt.Sprintf("scf: rank overflows the segment encoding: %v", err))
	}
	v, err := safecast.Conv[int32](vals)
	if err != nil {
		panic(fmt.Sprintf("scf: operand count overflows the segment encoding: %v", err))
	}
	return []int32{r, r, r, v}
}

// placeOp puts op at the end of b's body, before the terminator when
// one is already installed.
func placeOp(g *ir.Graph, b ir.BlockID, op ir.OpID) {
	if last := g.LastOp(b); last != ir.NoOp && IsTerminator(g.OpKindOf(last)) {
		g.InsertOpBefore(op, last)
		return
	}
	g.AppendOp(b, op)
}

// dropPlaceholderYield erases a trailing empty yield so a real
// terminator can take its place.
func dropPlaceholderYield(g *ir.Graph, b ir.BlockID) {
	last := g.LastOp(b)
	if last != ir.NoOp && g.OpKindOf(last) == KindYield && g.NumOperands(last) == 0 {
		g.EraseOp(last)
	}
}

// BuildConstantIndex appends an index constant and returns its result.
func BuildConstantIndex(g *ir.Graph, b ir.BlockID, v int64) ir.ValueID {
	op := g.NewOp(KindConstant, nil, []ir.Type{ir.Index()}, 0, ir.Attributes{Int: v})
	placeOp(g, b, op)
	return g.Result(op, 0)
}

// BuildConstantBool appends a boolean constant and returns its result.
func BuildConstantBool(g *ir.Graph, b ir.BlockID, v bool) ir.ValueID {
	var n int64
	if v {
		n = 1
	}
	op := g.NewOp(KindConstant, nil, []ir.Type{ir.Bool()}, 0, ir.Attributes{Int: n, Bool: v})
	placeOp(g, b, op)
	return g.Result(op, 0)
}

// BuildConstantInt appends an integer constant of the given type.
func BuildConstantInt(g *ir.Graph, b ir.BlockID, t ir.Type, v int64) ir.ValueID {
	op := g.NewOp(KindConstant, nil, []ir.Type{t}, 0, ir.Attributes{Int: v})
	placeOp(g, b, op)
	return g.Result(op, 0)
}

// BuildAddI appends an integer add.
func BuildAddI(g *ir.Graph, b ir.BlockID, lhs, rhs ir.ValueID) ir.ValueID {
	op := g.NewOp(KindAddI, []ir.ValueID{lhs, rhs}, []ir.Type{g.ValueType(lhs)}, 0, ir.Attributes{})
	placeOp(g, b, op)
	return g.Result(op, 0)
}

// BuildAndI appends a bitwise and.
func BuildAndI(g *ir.Graph, b ir.BlockID, lhs, rhs ir.ValueID) ir.ValueID {
	op := g.NewOp(KindAndI, []ir.ValueID{lhs, rhs}, []ir.Type{g.ValueType(lhs)}, 0, ir.Attributes{})
	placeOp(g, b, op)
	return g.Result(op, 0)
}

// BuildXOrI appends a bitwise xor.
func BuildXOrI(g *ir.Graph, b ir.BlockID, lhs, rhs ir.ValueID) ir.ValueID {
	op := g.NewOp(KindXOrI, []ir.ValueID{lhs, rhs}, []ir.Type{g.ValueType(lhs)}, 0, ir.Attributes{})
	placeOp(g, b, op)
	return g.Result(op, 0)
}

// BuildCmpI appends an integer comparison.
func BuildCmpI(g *ir.Graph, b ir.BlockID, pred int8, lhs, rhs ir.ValueID) ir.ValueID {
	op := g.NewOp(KindCmpI, []ir.ValueID{lhs, rhs}, []ir.Type{ir.Bool()}, 0, ir.Attributes{Pred: pred})
	placeOp(g, b, op)
	return g.Result(op, 0)
}

// BuildSelect appends a select between two values.
func BuildSelect(g *ir.Graph, b ir.BlockID, cond, trueVal, falseVal ir.ValueID) ir.ValueID {
	op := g.NewOp(KindSelect, []ir.ValueID{cond, trueVal, falseVal},
		[]ir.Type{g.ValueType(trueVal)}, 0, ir.Attributes{})
	placeOp(g, b, op)
	return g.Result(op, 0)
}

// BuildInsert appends a sequential insert of source into dest.
func BuildInsert(g *ir.Graph, b ir.BlockID, source, dest ir.ValueID) ir.ValueID {
	op := g.NewOp(KindInsert, []ir.ValueID{source, dest}, []ir.Type{g.ValueType(dest)}, 0, ir.Attributes{})
	placeOp(g, b, op)
	return g.Result(op, 0)
}

// BuildExtern appends an opaque op with the given name.
func BuildExtern(g *ir.Graph, b ir.BlockID, name string, operands []ir.ValueID, resultTypes []ir.Type) ir.OpID {
	op := g.NewOp(KindExtern, operands, resultTypes, 0, ir.Attributes{Name: name})
	placeOp(g, b, op)
	return op
}

// BuildYield installs a yield terminator, replacing a placeholder left
// by a region builder.
func BuildYield(g *ir.Graph, b ir.BlockID, vals ...ir.ValueID) ir.OpID {
	dropPlaceholderYield(g, b)
	op := g.NewOp(KindYield, vals, nil, 0, ir.Attributes{})
	g.AppendOp(b, op)
	return op
}

// BuildCondition installs a condition terminator, replacing a
// placeholder left by a region builder.
func BuildCondition(g *ir.Graph, b ir.BlockID, flag ir.ValueID, forwarded ...ir.ValueID) ir.OpID {
	dropPlaceholderYield(g, b)
	operands := append([]ir.ValueID{flag}, forwarded...)
	op := g.NewOp(KindCondition, operands, nil, 0, ir.Attributes{})
	g.AppendOp(b, op)
	return op
}

// BuildReduceReturn appends a reduce_return terminator.
func BuildReduceReturn(g *ir.Graph, b ir.BlockID, v ir.ValueID) ir.OpID {
	dropPlaceholderYield(g, b)
	op := g.NewOp(KindReduceReturn, []ir.ValueID{v}, nil, 0, ir.Attributes{})
	g.AppendOp(b, op)
	return op
}

// BuildFor appends a for loop. The body entry block gets the induction
// variable followed by one argument per init, and ends in a yield
// forwarding the iter args unchanged; callers rewrite it via
// ReplaceYield when the body computes something.
func BuildFor(g *ir.Graph, b ir.BlockID, lb, ub, step ir.ValueID, inits ...ir.ValueID) ForOp {
	operands := append([]ir.ValueID{lb, ub, step}, inits...)
	resultTypes := make([]ir.Type, len(inits))
	params := make([]ir.Type, 0, len(inits)+1)
	params = append(params, g.ValueType(lb))
	for i, init := range inits {
		resultTypes[i] = g.ValueType(init)
		params = append(params, resultTypes[i])
	}
	op := g.NewOp(KindFor, operands, resultTypes, 1, ir.Attributes{})
	body := g.AddBlock(g.Region(op, 0), params...)
	iters := g.BlockParams(body)[1:]
	BuildYield(g, body, iters...)
	placeOp(g, b, op)
	return ForOp{G: g, ID: op}
}

// BuildIf appends a conditional. Both branches get an entry block ending
// in an empty yield; pass withElse=false to leave the else region empty.
// Non-empty result types require the caller to rewrite both yields.
func BuildIf(g *ir.Graph, b ir.BlockID, resultTypes []ir.Type, cond ir.ValueID, withElse bool) IfOp {
	op := g.NewOp(KindIf, []ir.ValueID{cond}, resultTypes, 2, ir.Attributes{})
	g.AddBlock(g.Region(op, 0))
	EnsureTerminator(g, g.Region(op, 0))
	if withElse {
		g.AddBlock(g.Region(op, 1))
		EnsureTerminator(g, g.Region(op, 1))
	}
	placeOp(g, b, op)
	return IfOp{G: g, ID: op}
}

// BuildWhile appends a while loop. The before block takes the init types
// and the after block takes the result types; both start out terminated
// by placeholder yields, which BuildCondition and BuildYield replace.
func BuildWhile(g *ir.Graph, b ir.BlockID, resultTypes []ir.Type, inits ...ir.ValueID) WhileOp {
	initTypes := make([]ir.Type, len(inits))
	for i, init := range inits {
		initTypes[i] = g.ValueType(init)
	}
	op := g.NewOp(KindWhile, inits, resultTypes, 2, ir.Attributes{})
	g.AddBlock(g.Region(op, 0), initTypes...)
	g.AddBlock(g.Region(op, 1), resultTypes...)
	EnsureTerminator(g, g.Region(op, 0))
	EnsureTerminator(g, g.Region(op, 1))
	placeOp(g, b, op)
	return WhileOp{G: g, ID: op}
}

// BuildForall appends a forall loop over the given bounds with shared
// outputs. The body gets rank induction variables plus one argument per
// output and ends in an empty in_parallel terminator.
func BuildForall(g *ir.Graph, b ir.BlockID, lbs, ubs, steps, outputs []ir.ValueID) ForallOp {
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
	term := g.NewOp(KindInParallel, nil, nil, 1, ir.Attributes{})
	g.AddBlock(g.Region(term, 0))
	g.AppendOp(body, term)
	placeOp(g, b, op)
	return ForallOp{G: g, ID: op}
}

// BuildParallelInsert appends a parallel insert inside an in_parallel
// terminator body.
func BuildParallelInsert(g *ir.Graph, b ir.BlockID, source, dest ir.ValueID) ir.OpID {
	op := g.NewOp(KindParallelInsert, []ir.ValueID{source, dest}, nil, 0, ir.Attributes{})
	placeOp(g, b, op)
	return op
}

// BuildParallel appends a reduction loop. The body gets one induction
// variable per dimension and ends in a reduce terminator with one
// combiner region per init; each combiner takes two arguments of the
// init type and ends in a reduce_return of its first argument, which the
// caller replaces with the real combination.
func BuildParallel(g *ir.Graph, b ir.BlockID, lbs, ubs, steps, inits []ir.ValueID) ParallelOp {
	rank := len(lbs)
	operands := make([]ir.ValueID, 0, 3*rank+len(inits))
	operands = append(operands, lbs...)
	operands = append(operands, ubs...)
	operands = append(operands, steps...)
	operands = append(operands, inits...)
	resultTypes := make([]ir.Type, len(inits))
	params := make([]ir.Type, rank)
	for i := range params {
		params[i] = ir.Index()
	}
	for i, init := range inits {
		resultTypes[i] = g.ValueType(init)
	}
	segs := segmentSizes(rank, len(inits))
	op := g.NewOp(KindParallel, operands, resultTypes, 1, ir.Attributes{Segments: segs})
	body := g.AddBlock(g.Region(op, 0), params...)
	reduce := g.NewOp(KindReduce, inits, nil, len(inits), ir.Attributes{})
	for i := range inits {
		t := resultTypes[i]
		combiner := g.AddBlock(g.Region(reduce, i), t, t)
		BuildReduceReturn(g, combiner, g.BlockParam(combiner, 0))
	}
	g.AppendOp(body, reduce)
	placeOp(g, b, op)
	return ParallelOp{G: g, ID: op}
}

// BuildIndexSwitch appends an index switch with the given case values.
// Every region gets an entry block ending in an empty yield.
func BuildIndexSwitch(g *ir.Graph, b ir.BlockID, resultTypes []ir.Type, arg ir.ValueID, cases []int64) IndexSwitchOp {
	attrs := ir.Attributes{Cases: append([]int64(nil), cases...)}
	op := g.NewOp(KindIndexSwitch, []ir.ValueID{arg}, resultTypes, len(cases)+1, attrs)
	for i := 0; i <= len(cases); i++ {
		g.AddBlock(g.Region(op, i))
		EnsureTerminator(g, g.Region(op, i))
	}
	placeOp(g, b, op)
	return IndexSwitchOp{G: g, ID: op}
}

// BuildExecuteRegion appends an execute_region with a single empty entry
// block ending in an empty yield.
func BuildExecuteRegion(g *ir.Graph, b ir.BlockID, resultTypes []ir.Type) ExecuteRegionOp {
	op := g.NewOp(KindExecuteRegion, nil, resultTypes, 1, ir.Attributes{})
	g.AddBlock(g.Region(op, 0))
	EnsureTerminator(g, g.Region(op, 0))
	placeOp(g, b, op)
	return ExecuteRegionOp{G: g, ID: op}
}

// ReplaceYield rewrites the operands of an existing yield-like
// terminator in place.
func ReplaceYield(g *ir.Graph, term ir.OpID, vals ...ir.ValueID) {
	g.SetOperands(term, vals)
}
