package scf_test

import (
	"testing"

	"strata/internal/ir"
	"strata/internal/scf"
)

func TestSwitchFoldConstantCase_MatchingCase(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	arg := scf.BuildConstantIndex(g, entry, 7)
	a := opaqueIndex(g, entry, "a")
	b := opaqueIndex(g, entry, "b")
	d := opaqueIndex(g, entry, "d")

	sw := scf.BuildIndexSwitch(g, entry, []ir.Type{ir.Index()}, arg, []int64{3, 7})
	scf.ReplaceYield(g, g.LastOp(g.FirstBlock(sw.DefaultRegion())), d)
	scf.ReplaceYield(g, g.LastOp(g.FirstBlock(sw.CaseRegion(0))), a)
	scf.ReplaceYield(g, g.LastOp(g.FirstBlock(sw.CaseRegion(1))), b)
	use := sink(g, entry, sw.Results()...)
	mustVerify(t, g)

	p := pattern(t, scf.IndexSwitchPatterns(), "switch-fold-constant-case")
	if !p.MatchAndRewrite(g, sw.ID) {
		t.Fatalf("constant switch argument did not fold")
	}
	mustVerify(t, g)

	if g.Operand(use, 0) != b {
		t.Errorf("result = %d, want the value of case 7", g.Operand(use, 0))
	}
	if g.IsLiveOp(sw.ID) {
		t.Errorf("folded switch still live")
	}
}

func TestSwitchFoldConstantCase_FallsBackToDefault(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	arg := scf.BuildConstantIndex(g, entry, 99)
	a := opaqueIndex(g, entry, "a")
	d := opaqueIndex(g, entry, "d")

	sw := scf.BuildIndexSwitch(g, entry, []ir.Type{ir.Index()}, arg, []int64{3})
	scf.ReplaceYield(g, g.LastOp(g.FirstBlock(sw.DefaultRegion())), d)
	scf.ReplaceYield(g, g.LastOp(g.FirstBlock(sw.CaseRegion(0))), a)
	use := sink(g, entry, sw.Results()...)
	mustVerify(t, g)

	p := pattern(t, scf.IndexSwitchPatterns(), "switch-fold-constant-case")
	if !p.MatchAndRewrite(g, sw.ID) {
		t.Fatalf("unmatched constant did not fold to the default region")
	}
	mustVerify(t, g)

	if g.Operand(use, 0) != d {
		t.Errorf("result = %d, want the default value", g.Operand(use, 0))
	}
}

func TestSwitchFoldConstantCase_InlinesSelectedBody(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	arg := scf.BuildConstantIndex(g, entry, 3)
	x := opaqueIndex(g, entry, "x")
	d := opaqueIndex(g, entry, "d")

	sw := scf.BuildIndexSwitch(g, entry, []ir.Type{ir.Index()}, arg, []int64{3})
	scf.ReplaceYield(g, g.LastOp(g.FirstBlock(sw.DefaultRegion())), d)
	caseBlock := g.FirstBlock(sw.CaseRegion(0))
	v := scf.BuildAddI(g, caseBlock, x, x)
	body := g.DefiningOp(v)
	g.DetachOp(body)
	g.InsertOpBefore(body, g.LastOp(caseBlock))
	scf.ReplaceYield(g, g.LastOp(caseBlock), v)
	use := sink(g, entry, sw.Results()...)
	mustVerify(t, g)

	p := pattern(t, scf.IndexSwitchPatterns(), "switch-fold-constant-case")
	if !p.MatchAndRewrite(g, sw.ID) {
		t.Fatalf("constant switch argument did not fold")
	}
	mustVerify(t, g)

	if g.OwnerBlock(body) != entry {
		t.Errorf("case body not spliced into the parent block")
	}
	if g.Operand(use, 0) != v {
		t.Errorf("result should read the inlined case's value")
	}
}

func TestSwitchFoldConstantCase_OpaqueArgBails(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	arg := opaqueIndex(g, entry, "arg")
	sw := scf.BuildIndexSwitch(g, entry, nil, arg, []int64{3})
	mustVerify(t, g)

	p := pattern(t, scf.IndexSwitchPatterns(), "switch-fold-constant-case")
	if p.MatchAndRewrite(g, sw.ID) {
		t.Fatalf("non-constant switch argument must not fold")
	}
	mustVerify(t, g)
}
