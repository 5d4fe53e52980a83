package ir_test

import (
	"testing"

	"strata/internal/ir"
)

const (
	kindConst ir.OpKind = iota + 1
	kindAdd
	kindLoop
	kindYield
)

// newConst appends a fresh constant-like op and returns its result.
func newConst(g *ir.Graph, b ir.BlockID, v int64) ir.ValueID {
	op := g.NewOp(kindConst, nil, []ir.Type{ir.I64()}, 0, ir.Attributes{Int: v})
	g.AppendOp(b, op)
	return g.Result(op, 0)
}

func TestNewOp_RegistersOperandUses(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	a := newConst(g, entry, 1)
	b := newConst(g, entry, 2)

	add := g.NewOp(kindAdd, []ir.ValueID{a, b}, []ir.Type{ir.I64()}, 0, ir.Attributes{})
	g.AppendOp(entry, add)

	uses := g.Uses(a)
	if len(uses) != 1 || uses[0].Op != add || uses[0].Index != 0 {
		t.Fatalf("uses of a = %v, want one use by add at index 0", uses)
	}
	if !g.HasOneUse(b) {
		t.Errorf("b should have exactly one use")
	}
	if g.DefiningOp(g.Result(add, 0)) != add {
		t.Errorf("result does not point back to its op")
	}
}

func TestReplaceAllUses_MovesEveryUse(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	a := newConst(g, entry, 1)
	b := newConst(g, entry, 2)

	add1 := g.NewOp(kindAdd, []ir.ValueID{a, a}, []ir.Type{ir.I64()}, 0, ir.Attributes{})
	g.AppendOp(entry, add1)
	add2 := g.NewOp(kindAdd, []ir.ValueID{a, b}, []ir.Type{ir.I64()}, 0, ir.Attributes{})
	g.AppendOp(entry, add2)

	g.ReplaceAllUses(a, b)

	if g.HasUses(a) {
		t.Fatalf("a still has uses after replacement: %v", g.Uses(a))
	}
	if len(g.Uses(b)) != 3 {
		t.Fatalf("b uses = %d, want 3", len(g.Uses(b)))
	}
	if g.Operand(add1, 0) != b || g.Operand(add1, 1) != b {
		t.Errorf("add1 operands not rewritten: %v", g.Operands(add1))
	}
}

func TestSetOperands_AllowsArityChange(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	a := newConst(g, entry, 1)
	b := newConst(g, entry, 2)

	yield := g.NewOp(kindYield, []ir.ValueID{a, b}, nil, 0, ir.Attributes{})
	g.AppendOp(entry, yield)

	g.SetOperands(yield, []ir.ValueID{b})

	if g.HasUses(a) {
		t.Errorf("a should be use-free after shrink")
	}
	if got := g.Operands(yield); len(got) != 1 || got[0] != b {
		t.Errorf("operands = %v, want [b]", got)
	}
}

func TestEraseOp_ErasesNestedSubtree(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	a := newConst(g, entry, 1)

	loop := g.NewOp(kindLoop, []ir.ValueID{a}, nil, 1, ir.Attributes{})
	body := g.AddBlock(g.Region(loop, 0), ir.I64())
	inner := g.NewOp(kindAdd, []ir.ValueID{a, g.BlockParam(body, 0)}, []ir.Type{ir.I64()}, 0, ir.Attributes{})
	g.AppendOp(body, inner)
	g.AppendOp(entry, loop)

	g.EraseOp(loop)

	if g.IsLiveOp(loop) || g.IsLiveOp(inner) {
		t.Fatalf("erase left part of the subtree live")
	}
	if g.HasUses(a) {
		t.Errorf("a still used by erased ops: %v", g.Uses(a))
	}
	if n := g.NumBlockOps(entry); n != 1 {
		t.Errorf("entry op count = %d, want the constant alone", n)
	}
}

func TestEraseOp_PanicsOnSurvivingResultUse(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	a := newConst(g, entry, 1)
	add := g.NewOp(kindAdd, []ir.ValueID{a, a}, []ir.Type{ir.I64()}, 0, ir.Attributes{})
	g.AppendOp(entry, add)
	use := g.NewOp(kindYield, []ir.ValueID{g.Result(add, 0)}, nil, 0, ir.Attributes{})
	g.AppendOp(entry, use)

	defer func() {
		if recover() == nil {
			t.Fatalf("erasing an op with live result uses must panic")
		}
	}()
	g.EraseOp(add)
}

func TestMergeBlocks_RewritesParamsAndMovesOps(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	a := newConst(g, entry, 7)

	loop := g.NewOp(kindLoop, nil, nil, 1, ir.Attributes{})
	src := g.AddBlock(g.Region(loop, 0), ir.I64())
	p := g.BlockParam(src, 0)
	inner := g.NewOp(kindAdd, []ir.ValueID{p, p}, []ir.Type{ir.I64()}, 0, ir.Attributes{})
	g.AppendOp(src, inner)
	g.AppendOp(entry, loop)

	g.MergeBlocks(src, entry, []ir.ValueID{a})

	if g.OwnerBlock(inner) != entry {
		t.Fatalf("inner op not moved into destination block")
	}
	if g.Operand(inner, 0) != a || g.Operand(inner, 1) != a {
		t.Errorf("param uses not rewritten: %v", g.Operands(inner))
	}
	if got := g.RegionBlocks(g.Region(loop, 0)); len(got) != 0 {
		t.Errorf("source region still holds blocks: %v", got)
	}
}

func TestInlineBlockBefore_PreservesOrder(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	anchor := g.NewOp(kindYield, nil, nil, 0, ir.Attributes{})
	g.AppendOp(entry, anchor)

	loop := g.NewOp(kindLoop, nil, nil, 1, ir.Attributes{})
	src := g.AddBlock(g.Region(loop, 0))
	first := g.NewOp(kindConst, nil, []ir.Type{ir.I64()}, 0, ir.Attributes{Int: 1})
	second := g.NewOp(kindConst, nil, []ir.Type{ir.I64()}, 0, ir.Attributes{Int: 2})
	g.AppendOp(src, first)
	g.AppendOp(src, second)
	g.AppendOp(entry, loop)

	g.InlineBlockBefore(src, anchor, nil)

	ops := g.BlockOps(entry)
	want := []ir.OpID{first, second, anchor, loop}
	if len(ops) != len(want) {
		t.Fatalf("entry ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("entry ops = %v, want %v", ops, want)
		}
	}
}

func TestSplitBlock_MovesTailToNewBlock(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	newConst(g, entry, 1)
	mid := g.NewOp(kindConst, nil, []ir.Type{ir.I64()}, 0, ir.Attributes{Int: 2})
	g.AppendOp(entry, mid)
	tail := g.NewOp(kindConst, nil, []ir.Type{ir.I64()}, 0, ir.Attributes{Int: 3})
	g.AppendOp(entry, tail)

	nb := g.SplitBlock(entry, mid)

	if g.NumBlockOps(entry) != 1 {
		t.Errorf("head block kept %d ops, want 1", g.NumBlockOps(entry))
	}
	ops := g.BlockOps(nb)
	if len(ops) != 2 || ops[0] != mid || ops[1] != tail {
		t.Errorf("tail block ops = %v, want [mid tail]", ops)
	}
	if g.BlockRegion(nb) != g.Root() {
		t.Errorf("split block landed in the wrong region")
	}
}

func TestEraseBlockParams_CompactsAndRenumbers(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	loop := g.NewOp(kindLoop, nil, nil, 1, ir.Attributes{})
	b := g.AddBlock(g.Region(loop, 0), ir.I64(), ir.Bool(), ir.Index())
	g.AppendOp(entry, loop)

	kept0 := g.BlockParam(b, 0)
	kept2 := g.BlockParam(b, 2)
	g.EraseBlockParams(b, []bool{false, true, false})

	params := g.BlockParams(b)
	if len(params) != 2 || params[0] != kept0 || params[1] != kept2 {
		t.Fatalf("params = %v, want [kept0 kept2]", params)
	}
	if g.ValueIndex(kept2) != 1 {
		t.Errorf("surviving param not renumbered: index = %d", g.ValueIndex(kept2))
	}
}

func TestSwapRegionBlocks_ExchangesBodies(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	op := g.NewOp(kindLoop, nil, nil, 2, ir.Attributes{})
	b0 := g.AddBlock(g.Region(op, 0))
	b1 := g.AddBlock(g.Region(op, 1))
	g.AppendOp(entry, op)

	g.SwapRegionBlocks(g.Region(op, 0), g.Region(op, 1))

	if g.FirstBlock(g.Region(op, 0)) != b1 || g.FirstBlock(g.Region(op, 1)) != b0 {
		t.Fatalf("regions not swapped")
	}
	if g.BlockRegion(b0) != g.Region(op, 1) || g.BlockRegion(b1) != g.Region(op, 0) {
		t.Errorf("block back-references not updated")
	}
}

func TestWalkOpsPostOrder_VisitsInnermostFirst(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	outer := g.NewOp(kindLoop, nil, nil, 1, ir.Attributes{})
	body := g.AddBlock(g.Region(outer, 0))
	inner := g.NewOp(kindConst, nil, []ir.Type{ir.I64()}, 0, ir.Attributes{Int: 1})
	g.AppendOp(body, inner)
	g.AppendOp(entry, outer)

	var order []ir.OpID
	g.WalkOpsPostOrder(func(op ir.OpID) bool {
		order = append(order, op)
		return true
	})

	if len(order) != 2 || order[0] != inner || order[1] != outer {
		t.Fatalf("post-order = %v, want [inner outer]", order)
	}
}
