package scf_test

import (
	"testing"

	"strata/internal/ir"
	"strata/internal/scf"
)

func TestEnsureTerminator_Idempotent(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := opaqueBool(g, entry, "c")
	cond := scf.BuildIf(g, entry, nil, c, true)

	then := cond.ThenBlock()
	before := g.NumBlockOps(then)
	scf.EnsureTerminator(g, cond.ThenRegion())
	scf.EnsureTerminator(g, cond.ThenRegion())
	if got := g.NumBlockOps(then); got != before {
		t.Fatalf("repeated calls grew the block from %d to %d ops", before, got)
	}
	last := g.LastOp(then)
	if last == ir.NoOp || g.OpKindOf(last) != scf.KindYield {
		t.Fatalf("then block should end in a yield")
	}
}

func TestBuildWhile_RegionsAreTerminated(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	x := opaqueIndex(g, entry, "x")
	loop := scf.BuildWhile(g, entry, []ir.Type{ir.Index()}, x)

	for _, b := range []ir.BlockID{loop.BeforeBlock(), loop.AfterBlock()} {
		last := g.LastOp(b)
		if last == ir.NoOp || !scf.IsTerminator(g.OpKindOf(last)) {
			t.Fatalf("freshly built while region lacks a terminator")
		}
	}

	// Completing the loop swaps the placeholders for the real
	// terminators instead of stacking new ops behind them.
	flag := opaqueBool(g, loop.BeforeBlock(), "flag")
	scf.BuildCondition(g, loop.BeforeBlock(), flag, loop.BeforeArgs()...)
	scf.BuildYield(g, loop.AfterBlock(), loop.AfterArgs()...)
	mustVerify(t, g)
	if got := g.NumBlockOps(loop.BeforeBlock()); got != 2 {
		t.Errorf("before block holds %d ops, want the flag and the condition", got)
	}
	if got := g.NumBlockOps(loop.AfterBlock()); got != 1 {
		t.Errorf("after block holds %d ops, want just the yield", got)
	}
}

func TestBuilders_PlaceOpsBeforeTerminator(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := opaqueBool(g, entry, "c")
	cond := scf.BuildIf(g, entry, nil, c, false)

	then := cond.ThenBlock()
	scf.BuildConstantIndex(g, then, 5)
	last := g.LastOp(then)
	if g.OpKindOf(last) != scf.KindYield {
		t.Fatalf("new op landed after the terminator")
	}
	mustVerify(t, g)
}
