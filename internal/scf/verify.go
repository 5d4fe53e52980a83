package scf

import (
	"errors"
	"fmt"

	"strata/internal/ir"
)

// VerifyGraph checks every op in the graph and returns all violations
// joined together.
func VerifyGraph(g *ir.Graph) error {
	var errs []error
	g.WalkOps(func(op ir.OpID) bool {
		if err := VerifyOp(g, op); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}

// VerifyOp checks a single op's structural invariants. Nested ops are
// not visited.
func VerifyOp(g *ir.Graph, op ir.OpID) error {
	var errs []error
	ctx := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		errs = append(errs, fmt.Errorf("%s #%d: %s", KindName(g.OpKindOf(op)), op, msg))
	}

	if IsTerminator(g.OpKindOf(op)) {
		b := g.OwnerBlock(op)
		if b != ir.NoBlock && g.LastOp(b) != op {
			ctx("terminator is not the last op in its block")
		}
	}

	switch g.OpKindOf(op) {
	case KindFor:
		verifyFor(g, op, ctx)
	case KindForall:
		verifyForall(g, op, ctx)
	case KindIf:
		verifyIf(g, op, ctx)
	case KindWhile:
		verifyWhile(g, op, ctx)
	case KindParallel:
		verifyParallel(g, op, ctx)
	case KindIndexSwitch:
		verifyIndexSwitch(g, op, ctx)
	case KindExecuteRegion:
		verifyExecuteRegion(g, op, ctx)
	case KindYield:
		verifyYieldPlacement(g, op, ctx)
	case KindCondition:
		verifyConditionPlacement(g, op, ctx)
	case KindReduce:
		verifyReducePlacement(g, op, ctx)
	case KindReduceReturn:
		verifyReduceReturnPlacement(g, op, ctx)
	case KindInParallel:
		verifyInParallelPlacement(g, op, ctx)
	case KindParallelInsert:
		verifyParallelInsertPlacement(g, op, ctx)
	case KindConstant:
		if g.NumOperands(op) != 0 || g.NumResults(op) != 1 {
			ctx("constant must have no operands and one result")
		}
	case KindAddI, KindAndI, KindXOrI:
		verifyBinaryArith(g, op, ctx)
	case KindCmpI:
		verifyCmp(g, op, ctx)
	case KindSelect:
		verifySelect(g, op, ctx)
	case KindInsert:
		if g.NumOperands(op) != 2 || g.NumResults(op) != 1 {
			ctx("insert must have two operands and one result")
		} else if g.ValueType(g.Operand(op, 1)) != g.ValueType(g.Result(op, 0)) {
			ctx("insert result type must match destination type")
		}
	case KindExtern:
		// opaque, nothing to check
	default:
		ctx("unknown op kind")
	}
	return errors.Join(errs...)
}

func isLoopBoundType(t ir.Type) bool {
	switch t.Kind {
	case ir.TypeIndex, ir.TypeI32, ir.TypeI64:
		return true
	}
	return false
}

func verifyYieldTypes(g *ir.Graph, term ir.OpID, want []ir.Type, what string, ctx func(string, ...any)) {
	if g.OpKindOf(term) != KindYield {
		ctx("%s must end in yield, got %s", what, KindName(g.OpKindOf(term)))
		return
	}
	got := g.Operands(term)
	if len(got) != len(want) {
		ctx("%s yields %d values, expected %d", what, len(got), len(want))
		return
	}
	for i, v := range got {
		if g.ValueType(v) != want[i] {
			ctx("%s yield operand %d has type %s, expected %s",
				what, i, g.ValueType(v), want[i])
		}
	}
}

func resultTypes(g *ir.Graph, op ir.OpID) []ir.Type {
	rs := g.Results(op)
	ts := make([]ir.Type, len(rs))
	for i, r := range rs {
		ts[i] = g.ValueType(r)
	}
	return ts
}

func verifyFor(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	if g.NumOperands(op) < 3 {
		ctx("expected at least 3 operands")
		return
	}
	loop := For(g, op)
	bt := g.ValueType(loop.LowerBound())
	if !isLoopBoundType(bt) {
		ctx("bound type %s is not an integer or index type", bt)
	}
	if g.ValueType(loop.UpperBound()) != bt || g.ValueType(loop.Step()) != bt {
		ctx("bounds and step must share one type")
	}
	inits := loop.InitArgs()
	if len(inits) != g.NumResults(op) {
		ctx("%d init operands for %d results", len(inits), g.NumResults(op))
		return
	}
	if g.NumBlocks(loop.BodyRegion()) != 1 {
		ctx("body region must hold exactly one block")
		return
	}
	params := g.BlockParams(loop.Body())
	if len(params) != 1+len(inits) {
		ctx("body has %d arguments, expected %d", len(params), 1+len(inits))
		return
	}
	if g.ValueType(params[0]) != bt {
		ctx("induction variable type %s does not match bound type %s",
			g.ValueType(params[0]), bt)
	}
	for i, init := range inits {
		if g.ValueType(params[1+i]) != g.ValueType(init) {
			ctx("iter arg %d type %s does not match init type %s",
				i, g.ValueType(params[1+i]), g.ValueType(init))
		}
	}
	verifyYieldTypes(g, g.LastOp(loop.Body()), resultTypes(g, op), "body", ctx)
}

func verifySegments(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) (rank int, ok bool) {
	segs := g.Attrs(op).Segments
	if len(segs) != 4 {
		ctx("expected 4 operand segments, got %d", len(segs))
		return 0, false
	}
	total := 0
	for _, s := range segs {
		if s < 0 {
			ctx("negative operand segment")
			return 0, false
		}
		total += int(s)
	}
	if total != g.NumOperands(op) {
		ctx("operand segments cover %d of %d operands", total, g.NumOperands(op))
		return 0, false
	}
	if segs[0] != segs[1] || segs[1] != segs[2] {
		ctx("bound, limit and step counts differ")
		return 0, false
	}
	if segs[0] == 0 {
		ctx("expected at least one dimension")
		return 0, false
	}
	return int(segs[0]), true
}

func verifyForall(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	rank, ok := verifySegments(g, op, ctx)
	if !ok {
		return
	}
	loop := Forall(g, op)
	for _, v := range g.Operands(op)[:3*rank] {
		if g.ValueType(v).Kind != ir.TypeIndex {
			ctx("bounds must be index typed")
			break
		}
	}
	outs := loop.Outputs()
	if len(outs) != g.NumResults(op) {
		ctx("%d shared outputs for %d results", len(outs), g.NumResults(op))
		return
	}
	if g.NumBlocks(loop.BodyRegion()) != 1 {
		ctx("body region must hold exactly one block")
		return
	}
	params := g.BlockParams(loop.Body())
	if len(params) != rank+len(outs) {
		ctx("body has %d arguments, expected %d", len(params), rank+len(outs))
		return
	}
	for i := 0; i < rank; i++ {
		if g.ValueType(params[i]).Kind != ir.TypeIndex {
			ctx("induction variable %d must be index typed", i)
		}
	}
	for i, out := range outs {
		if g.ValueType(params[rank+i]) != g.ValueType(out) {
			ctx("output block arg %d type %s does not match output type %s",
				i, g.ValueType(params[rank+i]), g.ValueType(out))
		}
		if g.ValueType(out) != g.ValueType(g.Result(op, i)) {
			ctx("result %d type does not match its shared output", i)
		}
	}
	term := g.LastOp(loop.Body())
	if term == ir.NoOp || g.OpKindOf(term) != KindInParallel {
		ctx("body must end in in_parallel")
	}
}

func verifyIf(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	if g.NumOperands(op) != 1 {
		ctx("expected exactly one operand")
		return
	}
	cond := If(g, op)
	if g.ValueType(cond.Condition()).Kind != ir.TypeBool {
		ctx("condition must be boolean")
	}
	if g.NumBlocks(cond.ThenRegion()) != 1 {
		ctx("then region must hold exactly one block")
		return
	}
	want := resultTypes(g, op)
	verifyYieldTypes(g, cond.ThenYield(), want, "then branch", ctx)
	switch g.NumBlocks(cond.ElseRegion()) {
	case 0:
		if g.NumResults(op) != 0 {
			ctx("conditional with results requires an else branch")
		}
	case 1:
		verifyYieldTypes(g, cond.ElseYield(), want, "else branch", ctx)
	default:
		ctx("else region must hold at most one block")
	}
}

func verifyWhile(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	loop := While(g, op)
	if g.NumBlocks(loop.BeforeRegion()) != 1 || g.NumBlocks(loop.AfterRegion()) != 1 {
		ctx("both regions must hold exactly one block")
		return
	}
	inits := loop.Inits()
	before := loop.BeforeArgs()
	if len(before) != len(inits) {
		ctx("before block has %d arguments for %d inits", len(before), len(inits))
		return
	}
	for i, init := range inits {
		if g.ValueType(before[i]) != g.ValueType(init) {
			ctx("before arg %d type %s does not match init type %s",
				i, g.ValueType(before[i]), g.ValueType(init))
		}
	}
	term := loop.ConditionOp()
	if term == ir.NoOp || g.OpKindOf(term) != KindCondition {
		ctx("before region must end in condition")
		return
	}
	if g.NumOperands(term) < 1 {
		ctx("condition needs a continuation flag")
		return
	}
	if g.ValueType(g.Operand(term, 0)).Kind != ir.TypeBool {
		ctx("continuation flag must be boolean")
	}
	want := resultTypes(g, op)
	forwarded := g.Operands(term)[1:]
	if len(forwarded) != len(want) {
		ctx("condition forwards %d values for %d results", len(forwarded), len(want))
		return
	}
	after := loop.AfterArgs()
	if len(after) != len(want) {
		ctx("after block has %d arguments for %d results", len(after), len(want))
		return
	}
	for i, v := range forwarded {
		if g.ValueType(v) != want[i] {
			ctx("condition operand %d type %s does not match result type %s",
				i, g.ValueType(v), want[i])
		}
		if g.ValueType(after[i]) != want[i] {
			ctx("after arg %d type %s does not match result type %s",
				i, g.ValueType(after[i]), want[i])
		}
	}
	beforeTypes := make([]ir.Type, len(before))
	for i, v := range before {
		beforeTypes[i] = g.ValueType(v)
	}
	verifyYieldTypes(g, loop.Yield(), beforeTypes, "after region", ctx)
}

func verifyParallel(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	rank, ok := verifySegments(g, op, ctx)
	if !ok {
		return
	}
	loop := Parallel(g, op)
	for _, v := range g.Operands(op)[:3*rank] {
		if g.ValueType(v).Kind != ir.TypeIndex {
			ctx("bounds must be index typed")
			break
		}
	}
	for d, s := range loop.Steps() {
		if n, known := ConstantIntValue(g, s); known && n <= 0 {
			ctx("step %d must be strictly positive, got %d", d, n)
		}
	}
	inits := loop.InitVals()
	if len(inits) != g.NumResults(op) {
		ctx("%d init values for %d results", len(inits), g.NumResults(op))
		return
	}
	if g.NumBlocks(loop.BodyRegion()) != 1 {
		ctx("body region must hold exactly one block")
		return
	}
	params := g.BlockParams(loop.Body())
	if len(params) != rank {
		ctx("body has %d arguments, expected %d", len(params), rank)
		return
	}
	for i, p := range params {
		if g.ValueType(p).Kind != ir.TypeIndex {
			ctx("induction variable %d must be index typed", i)
		}
	}
	term := g.LastOp(loop.Body())
	if term == ir.NoOp || g.OpKindOf(term) != KindReduce {
		ctx("body must end in reduce")
		return
	}
	if g.NumOperands(term) != len(inits) {
		ctx("reduce combines %d values for %d inits", g.NumOperands(term), len(inits))
	}
}

func verifyIndexSwitch(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	if g.NumOperands(op) != 1 {
		ctx("expected exactly one operand")
		return
	}
	sw := IndexSwitch(g, op)
	if g.ValueType(sw.Arg()).Kind != ir.TypeIndex {
		ctx("switch argument must be index typed")
	}
	seen := make(map[int64]bool, sw.NumCases())
	for _, c := range sw.Cases() {
		if seen[c] {
			ctx("duplicate case value %d", c)
		}
		seen[c] = true
	}
	if g.NumRegions(op) != sw.NumCases()+1 {
		ctx("%d regions for %d cases", g.NumRegions(op), sw.NumCases())
		return
	}
	want := resultTypes(g, op)
	for i := 0; i < g.NumRegions(op); i++ {
		r := g.Region(op, i)
		name := "default region"
		if i > 0 {
			name = fmt.Sprintf("case %d region", sw.Cases()[i-1])
		}
		if g.NumBlocks(r) != 1 {
			ctx("%s must hold exactly one block", name)
			continue
		}
		verifyYieldTypes(g, g.LastOp(g.FirstBlock(r)), want, name, ctx)
	}
}

func verifyExecuteRegion(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	region := g.Region(op, 0)
	if g.NumBlocks(region) == 0 {
		ctx("region must hold at least one block")
		return
	}
	want := resultTypes(g, op)
	for _, b := range g.RegionBlocks(region) {
		term := g.LastOp(b)
		if term == ir.NoOp {
			ctx("every block must be terminated")
			continue
		}
		if g.OpKindOf(term) == KindYield {
			verifyYieldTypes(g, term, want, "region block", ctx)
		}
	}
}

func parentKindOf(g *ir.Graph, op ir.OpID) (ir.OpKind, ir.OpID) {
	b := g.OwnerBlock(op)
	if b == ir.NoBlock {
		return KindInvalid, ir.NoOp
	}
	parent := g.RegionOwner(g.BlockRegion(b))
	if parent == ir.NoOp {
		return KindInvalid, ir.NoOp
	}
	return g.OpKindOf(parent), parent
}

func verifyYieldPlacement(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	kind, parent := parentKindOf(g, op)
	switch kind {
	case KindFor, KindIf, KindIndexSwitch, KindExecuteRegion, KindInvalid:
	case KindWhile:
		if g.BlockRegion(g.OwnerBlock(op)) != While(g, parent).AfterRegion() {
			ctx("yield may only terminate the after region of a while loop")
		}
	default:
		ctx("yield may not appear under %s", KindName(kind))
	}
}

func verifyConditionPlacement(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	kind, parent := parentKindOf(g, op)
	if kind != KindWhile {
		ctx("condition may only terminate the before region of a while loop")
		return
	}
	if g.BlockRegion(g.OwnerBlock(op)) != While(g, parent).BeforeRegion() {
		ctx("condition may only terminate the before region of a while loop")
	}
}

func verifyReducePlacement(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	kind, _ := parentKindOf(g, op)
	if kind != KindParallel {
		ctx("reduce may only terminate a parallel loop body")
		return
	}
	for i := 0; i < g.NumOperands(op); i++ {
		t := g.ValueType(g.Operand(op, i))
		r := g.Region(op, i)
		if g.NumBlocks(r) != 1 {
			ctx("combiner %d must hold exactly one block", i)
			continue
		}
		b := g.FirstBlock(r)
		params := g.BlockParams(b)
		if len(params) != 2 || g.ValueType(params[0]) != t || g.ValueType(params[1]) != t {
			ctx("combiner %d must take two arguments of type %s", i, t)
			continue
		}
		term := g.LastOp(b)
		if term == ir.NoOp || g.OpKindOf(term) != KindReduceReturn {
			ctx("combiner %d must end in reduce_return", i)
			continue
		}
		if g.ValueType(g.Operand(term, 0)) != t {
			ctx("combiner %d must return a value of type %s", i, t)
		}
	}
}

func verifyReduceReturnPlacement(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	if g.NumOperands(op) != 1 {
		ctx("expected exactly one operand")
	}
	kind, _ := parentKindOf(g, op)
	if kind != KindReduce {
		ctx("reduce_return may only terminate a combiner region")
	}
}

func verifyInParallelPlacement(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	kind, _ := parentKindOf(g, op)
	if kind != KindForall {
		ctx("in_parallel may only terminate a forall body")
		return
	}
	if g.NumOperands(op) != 0 || g.NumResults(op) != 0 {
		ctx("in_parallel carries no operands or results")
		return
	}
	if g.NumBlocks(g.Region(op, 0)) != 1 {
		ctx("in_parallel region must hold exactly one block")
		return
	}
	b := g.FirstBlock(g.Region(op, 0))
	if len(g.BlockParams(b)) != 0 {
		ctx("in_parallel block takes no arguments")
	}
	for _, inner := range g.BlockOps(b) {
		if g.OpKindOf(inner) != KindParallelInsert {
			ctx("in_parallel may only contain parallel inserts, found %s",
				KindName(g.OpKindOf(inner)))
		}
	}
}

func verifyParallelInsertPlacement(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	if g.NumOperands(op) != 2 || g.NumResults(op) != 0 {
		ctx("expected two operands and no results")
		return
	}
	kind, parent := parentKindOf(g, op)
	if kind != KindInParallel {
		ctx("parallel insert may only appear inside in_parallel")
		return
	}
	forallKind, forall := parentKindOf(g, parent)
	if forallKind != KindForall {
		return
	}
	dest := g.Operand(op, 1)
	for _, arg := range Forall(g, forall).RegionOutArgs() {
		if arg == dest {
			return
		}
	}
	ctx("destination must be a shared output block argument of the enclosing forall")
}

func verifyBinaryArith(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	if g.NumOperands(op) != 2 || g.NumResults(op) != 1 {
		ctx("expected two operands and one result")
		return
	}
	lt := g.ValueType(g.Operand(op, 0))
	if g.ValueType(g.Operand(op, 1)) != lt || g.ValueType(g.Result(op, 0)) != lt {
		ctx("operand and result types must match")
	}
}

func verifyCmp(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	if g.NumOperands(op) != 2 || g.NumResults(op) != 1 {
		ctx("expected two operands and one result")
		return
	}
	if g.ValueType(g.Operand(op, 0)) != g.ValueType(g.Operand(op, 1)) {
		ctx("operand types must match")
	}
	if g.ValueType(g.Result(op, 0)).Kind != ir.TypeBool {
		ctx("comparison result must be boolean")
	}
	if p := g.Attrs(op).Pred; p < CmpEQ || p > CmpSGE {
		ctx("invalid predicate %d", p)
	}
}

func verifySelect(g *ir.Graph, op ir.OpID, ctx func(string, ...any)) {
	if g.NumOperands(op) != 3 || g.NumResults(op) != 1 {
		ctx("expected three operands and one result")
		return
	}
	if g.ValueType(g.Operand(op, 0)).Kind != ir.TypeBool {
		ctx("selector must be boolean")
	}
	t := g.ValueType(g.Operand(op, 1))
	if g.ValueType(g.Operand(op, 2)) != t || g.ValueType(g.Result(op, 0)) != t {
		ctx("branch and result types must match")
	}
}
