package scf_test

import (
	"testing"

	"strata/internal/ir"
	"strata/internal/scf"
)

func TestSuccessorRegions_ForLoopsBackOrExits(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	lb := opaqueIndex(g, entry, "lb")
	ub := opaqueIndex(g, entry, "ub")
	step := opaqueIndex(g, entry, "step")
	loop := scf.BuildFor(g, entry, lb, ub, step)

	succs := scf.SuccessorRegions(g, loop.ID, ir.NoRegion)
	if len(succs) != 2 {
		t.Fatalf("got %d entry successors, want 2", len(succs))
	}
	if succs[0].Region != loop.BodyRegion() || !succs[1].IsParent() {
		t.Errorf("entry successors should be the body and the parent")
	}
	back := scf.SuccessorRegions(g, loop.ID, loop.BodyRegion())
	if len(back) != 2 || back[0].Region != loop.BodyRegion() || !back[1].IsParent() {
		t.Errorf("body successors should be the body and the parent")
	}
}

func TestSuccessorRegions_IfWithoutElseMayskipToParent(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := opaqueBool(g, entry, "c")
	cond := scf.BuildIf(g, entry, nil, c, false)

	succs := scf.SuccessorRegions(g, cond.ID, ir.NoRegion)
	if len(succs) != 2 {
		t.Fatalf("got %d entry successors, want 2", len(succs))
	}
	if succs[0].Region != cond.ThenRegion() || !succs[1].IsParent() {
		t.Errorf("entry successors should be the then branch and the parent")
	}
	exit := scf.SuccessorRegions(g, cond.ID, cond.ThenRegion())
	if len(exit) != 1 || !exit[0].IsParent() {
		t.Errorf("a finished branch flows back to the parent")
	}
}

func TestSuccessorRegions_WhileCycle(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	x := opaqueIndex(g, entry, "x")
	loop := scf.BuildWhile(g, entry, []ir.Type{ir.Index()}, x)
	flag := opaqueBool(g, loop.BeforeBlock(), "flag")
	scf.BuildCondition(g, loop.BeforeBlock(), flag, loop.BeforeArgs()...)
	scf.BuildYield(g, loop.AfterBlock(), loop.AfterArgs()...)
	mustVerify(t, g)

	into := scf.SuccessorRegions(g, loop.ID, ir.NoRegion)
	if len(into) != 1 || into[0].Region != loop.BeforeRegion() {
		t.Fatalf("entry must go to the before region")
	}
	fromBefore := scf.SuccessorRegions(g, loop.ID, loop.BeforeRegion())
	if len(fromBefore) != 2 || fromBefore[0].Region != loop.AfterRegion() || !fromBefore[1].IsParent() {
		t.Errorf("the before region either continues to after or exits")
	}
	fromAfter := scf.SuccessorRegions(g, loop.ID, loop.AfterRegion())
	if len(fromAfter) != 1 || fromAfter[0].Region != loop.BeforeRegion() {
		t.Errorf("the after region always loops back to before")
	}
}

func TestEntrySuccessorRegions_ConstantCondition(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := scf.BuildConstantBool(g, entry, false)
	cond := scf.BuildIf(g, entry, nil, c, true)

	succs := scf.EntrySuccessorRegions(g, cond.ID)
	if len(succs) != 1 || succs[0].Region != cond.ElseRegion() {
		t.Errorf("a false constant selects the else branch alone")
	}
}

func TestEntrySuccessorRegions_ConstantSwitchArg(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	arg := scf.BuildConstantIndex(g, entry, 5)
	sw := scf.BuildIndexSwitch(g, entry, nil, arg, []int64{2, 5})

	succs := scf.EntrySuccessorRegions(g, sw.ID)
	if len(succs) != 1 || succs[0].Region != sw.CaseRegion(1) {
		t.Errorf("a constant argument selects its case region alone")
	}
}

func TestRegionInvocationBounds_IfConstant(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := scf.BuildConstantBool(g, entry, true)
	cond := scf.BuildIf(g, entry, nil, c, true)

	bounds := scf.RegionInvocationBounds(g, cond.ID)
	if len(bounds) != 2 {
		t.Fatalf("got %d bounds, want 2", len(bounds))
	}
	if bounds[0].Min != 1 || bounds[0].Max != 1 {
		t.Errorf("then bounds = %+v, want exactly once", bounds[0])
	}
	if bounds[1].Max != 0 {
		t.Errorf("else bounds = %+v, want never", bounds[1])
	}
}

func TestRegionInvocationBounds_ForConstantTripCount(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	lb := scf.BuildConstantIndex(g, entry, 0)
	ub := scf.BuildConstantIndex(g, entry, 10)
	step := scf.BuildConstantIndex(g, entry, 3)
	loop := scf.BuildFor(g, entry, lb, ub, step)

	bounds := scf.RegionInvocationBounds(g, loop.ID)
	if len(bounds) != 1 || bounds[0].Min != 4 || bounds[0].Max != 4 {
		t.Errorf("bounds = %+v, want Min=Max=4", bounds)
	}
}

func TestLoopIsSpeculatable_RequiresUnitStep(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()

	one := scf.BuildConstantIndex(g, entry, 1)
	unit := scf.BuildFor(g, entry, opaqueIndex(g, entry, "lb"), opaqueIndex(g, entry, "ub"), one)
	if !scf.LoopIsSpeculatable(g, unit.ID) {
		t.Errorf("a unit-step loop is speculatable whatever its bounds")
	}

	three := scf.BuildConstantIndex(g, entry, 3)
	strided := scf.BuildFor(g, entry, scf.BuildConstantIndex(g, entry, 0),
		scf.BuildConstantIndex(g, entry, 10), three)
	if scf.LoopIsSpeculatable(g, strided.ID) {
		t.Errorf("a stride-3 loop is not speculatable")
	}

	opaque := scf.BuildFor(g, entry, one, one, opaqueIndex(g, entry, "step"))
	if scf.LoopIsSpeculatable(g, opaque.ID) {
		t.Errorf("an unknown-step loop is not speculatable")
	}
}

func TestRegionInvocationBounds_UnknownForIsUnbounded(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	lb := opaqueIndex(g, entry, "lb")
	ub := opaqueIndex(g, entry, "ub")
	step := opaqueIndex(g, entry, "step")
	loop := scf.BuildFor(g, entry, lb, ub, step)

	bounds := scf.RegionInvocationBounds(g, loop.ID)
	if len(bounds) != 1 || bounds[0].Min != 0 || bounds[0].Max >= 0 {
		t.Errorf("bounds = %+v, want unbounded", bounds)
	}
	if scf.LoopIsSpeculatable(g, loop.ID) {
		t.Errorf("an unknown-trip loop is not speculatable")
	}
}
