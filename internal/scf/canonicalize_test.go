package scf_test

import (
	"testing"

	"strata/internal/ir"
	"strata/internal/scf"
)

// Builds a graph that needs several pattern families plus folds to
// bottom out, then drives the full pipeline over it.
func TestCanonicalize_FullPipeline(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	x := opaqueIndex(g, entry, "x")
	y := opaqueIndex(g, entry, "y")

	// A statically taken branch wrapping a zero-trip loop: the branch
	// inlines, then the loop folds to its init.
	c := scf.BuildConstantBool(g, entry, true)
	cond := scf.BuildIf(g, entry, []ir.Type{ir.Index()}, c, true)
	four := scf.BuildConstantIndex(g, entry, 4)
	then := cond.ThenBlock()
	loop := scf.BuildFor(g, then, four, four, four, x)
	g.DetachOp(loop.ID)
	g.InsertOpBefore(loop.ID, cond.ThenYield())
	scf.ReplaceYield(g, cond.ThenYield(), loop.Results()[0])
	scf.ReplaceYield(g, cond.ElseYield(), y)

	// A double negation the fold chain erases.
	one := scf.BuildConstantBool(g, entry, true)
	flag := opaqueBool(g, entry, "flag")
	back := scf.BuildXOrI(g, entry, scf.BuildXOrI(g, entry, flag, one), one)

	use := sink(g, entry, cond.Results()[0], back)
	mustVerify(t, g)

	stats, err := scf.Canonicalize(g)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if !stats.Converged {
		t.Fatalf("pipeline did not converge: %+v", stats)
	}
	mustVerify(t, g)

	if g.Operand(use, 0) != x {
		t.Errorf("branch result = %d, want the loop init", g.Operand(use, 0))
	}
	if g.Operand(use, 1) != flag {
		t.Errorf("double negation result = %d, want the original flag", g.Operand(use, 1))
	}
	if stats.Folds == 0 {
		t.Errorf("expected at least one fold application")
	}
	if n := countKind(g, scf.KindIf) + countKind(g, scf.KindFor); n != 0 {
		t.Errorf("%d control ops survived canonicalization", n)
	}

	// A second run finds nothing left to do.
	again, err := scf.Canonicalize(g)
	if err != nil {
		t.Fatalf("second Canonicalize: %v", err)
	}
	if again.Sweeps != 1 || !again.Converged {
		t.Errorf("second run stats = %+v, want a single clean sweep", again)
	}
	if len(again.Applied) != 0 {
		t.Errorf("second run applied patterns: %v", again.Applied)
	}
}
