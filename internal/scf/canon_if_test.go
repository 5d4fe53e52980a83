package scf_test

import (
	"testing"

	"strata/internal/ir"
	"strata/internal/scf"
)

// moveBeforeTerm re-homes the defining op of v to just before term,
// which may sit earlier than the block's own terminator.
func moveBeforeTerm(g *ir.Graph, v ir.ValueID, term ir.OpID) ir.ValueID {
	op := g.DefiningOp(v)
	g.DetachOp(op)
	g.InsertOpBefore(op, term)
	return v
}

func countKind(g *ir.Graph, kind ir.OpKind) int {
	n := 0
	g.WalkOps(func(op ir.OpID) bool {
		if g.OpKindOf(op) == kind {
			n++
		}
		return true
	})
	return n
}

func TestRemoveStaticCondition_TrueInlinesThen(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := scf.BuildConstantBool(g, entry, true)
	x := opaqueIndex(g, entry, "x")
	y := opaqueIndex(g, entry, "y")

	cond := scf.BuildIf(g, entry, []ir.Type{ir.Index()}, c, true)
	inner := moveBeforeTerm(g, scf.BuildAddI(g, cond.ThenBlock(), x, x), cond.ThenYield())
	scf.ReplaceYield(g, cond.ThenYield(), inner)
	scf.ReplaceYield(g, cond.ElseYield(), y)
	use := sink(g, entry, cond.Results()...)
	mustVerify(t, g)

	p := pattern(t, scf.IfPatterns(), "if-remove-static-condition")
	if !p.MatchAndRewrite(g, cond.ID) {
		t.Fatalf("literal-true condition did not resolve")
	}
	mustVerify(t, g)

	if g.Operand(use, 0) != inner {
		t.Errorf("result = %d, want the then-branch value", g.Operand(use, 0))
	}
	if g.OwnerBlock(g.DefiningOp(inner)) != entry {
		t.Errorf("then body not inlined into the parent block")
	}
	if g.IsLiveOp(cond.ID) {
		t.Errorf("conditional still live")
	}
}

func TestRemoveStaticCondition_FalseWithoutElseErases(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := scf.BuildConstantBool(g, entry, false)
	cond := scf.BuildIf(g, entry, nil, c, false)
	mustVerify(t, g)

	p := pattern(t, scf.IfPatterns(), "if-remove-static-condition")
	if !p.MatchAndRewrite(g, cond.ID) {
		t.Fatalf("literal-false condition did not resolve")
	}
	if g.IsLiveOp(cond.ID) {
		t.Errorf("conditional still live")
	}
	mustVerify(t, g)
}

func TestRemoveUnusedIfResults(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := opaqueBool(g, entry, "c")
	a := opaqueIndex(g, entry, "a")
	b := opaqueIndex(g, entry, "b")

	cond := scf.BuildIf(g, entry, []ir.Type{ir.Index(), ir.Index()}, c, true)
	scf.ReplaceYield(g, cond.ThenYield(), a, b)
	scf.ReplaceYield(g, cond.ElseYield(), b, a)
	use := sink(g, entry, cond.Results()[1])
	mustVerify(t, g)

	p := pattern(t, scf.IfPatterns(), "if-remove-unused-results")
	if !p.MatchAndRewrite(g, cond.ID) {
		t.Fatalf("unused result did not fold")
	}
	mustVerify(t, g)

	var replacement ir.OpID = ir.NoOp
	for _, o := range g.BlockOps(entry) {
		if g.OpKindOf(o) == scf.KindIf {
			replacement = o
		}
	}
	if replacement == ir.NoOp {
		t.Fatalf("conditional disappeared entirely")
	}
	repl := scf.If(g, replacement)
	if len(repl.Results()) != 1 {
		t.Fatalf("replacement carries %d results, want 1", len(repl.Results()))
	}
	if got := g.Operands(repl.ThenYield()); len(got) != 1 || got[0] != b {
		t.Errorf("then yield trimmed to %v, want [b]", got)
	}
	if g.Operand(use, 0) != repl.Results()[0] {
		t.Errorf("surviving use not rewired to the replacement")
	}
}

func TestConvertTrivialIfToSelect(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := opaqueBool(g, entry, "c")
	a := opaqueIndex(g, entry, "a")
	b := opaqueIndex(g, entry, "b")

	// Result 0 is hoistable (both yields defined outside), result 1 is
	// produced inside the then branch.
	cond := scf.BuildIf(g, entry, []ir.Type{ir.Index(), ir.Index()}, c, true)
	inner := moveBeforeTerm(g, scf.BuildAddI(g, cond.ThenBlock(), a, b), cond.ThenYield())
	scf.ReplaceYield(g, cond.ThenYield(), a, inner)
	scf.ReplaceYield(g, cond.ElseYield(), b, a)
	use := sink(g, entry, cond.Results()...)
	mustVerify(t, g)

	p := pattern(t, scf.IfPatterns(), "if-to-select")
	if !p.MatchAndRewrite(g, cond.ID) {
		t.Fatalf("hoistable yield did not convert")
	}
	mustVerify(t, g)

	selOp := g.DefiningOp(g.Operand(use, 0))
	if g.OpKindOf(selOp) != scf.KindSelect {
		t.Fatalf("hoisted result should come from a select, got %s", scf.KindName(g.OpKindOf(selOp)))
	}
	if got := g.Operands(selOp); got[0] != c || got[1] != a || got[2] != b {
		t.Errorf("select operands = %v, want [c a b]", got)
	}
	replacement := g.DefiningOp(g.Operand(use, 1))
	if g.OpKindOf(replacement) != scf.KindIf {
		t.Fatalf("in-branch result should stay on the conditional")
	}
	if n := len(scf.If(g, replacement).Results()); n != 1 {
		t.Errorf("replacement conditional has %d results, want 1", n)
	}
}

func TestReplaceIfYieldWithCondition(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := opaqueBool(g, entry, "c")
	tru := scf.BuildConstantBool(g, entry, true)
	fls := scf.BuildConstantBool(g, entry, false)
	v := opaqueIndex(g, entry, "v")

	// Result 0: (true, false) becomes the condition itself.
	// Result 1: (false, true) becomes its negation.
	// Result 2: equal yields become the value.
	cond := scf.BuildIf(g, entry, []ir.Type{ir.Bool(), ir.Bool(), ir.Index()}, c, true)
	scf.ReplaceYield(g, cond.ThenYield(), tru, fls, v)
	scf.ReplaceYield(g, cond.ElseYield(), fls, tru, v)
	use := sink(g, entry, cond.Results()...)
	mustVerify(t, g)

	p := pattern(t, scf.IfPatterns(), "if-yield-to-condition")
	if !p.MatchAndRewrite(g, cond.ID) {
		t.Fatalf("constant bool yields did not fold")
	}
	mustVerify(t, g)

	if g.Operand(use, 0) != c {
		t.Errorf("(true, false) result should be the condition")
	}
	notOp := g.DefiningOp(g.Operand(use, 1))
	if g.OpKindOf(notOp) != scf.KindXOrI || g.Operand(notOp, 0) != c {
		t.Errorf("(false, true) result should be xor(c, 1)")
	}
	if g.Operand(use, 2) != v {
		t.Errorf("equal yields should collapse to the value")
	}
}

func TestRemoveEmptyElseBranch(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := opaqueBool(g, entry, "c")
	cond := scf.BuildIf(g, entry, nil, c, true)
	effect := scf.BuildExtern(g, cond.ThenBlock(), "effect", nil, nil)
	g.DetachOp(effect)
	g.InsertOpBefore(effect, cond.ThenYield())
	mustVerify(t, g)

	p := pattern(t, scf.IfPatterns(), "if-remove-empty-else")
	if !p.MatchAndRewrite(g, cond.ID) {
		t.Fatalf("empty else branch not removed")
	}
	mustVerify(t, g)

	if cond.HasElse() {
		t.Errorf("else region should be empty after removal")
	}
	if !g.IsLiveOp(effect) {
		t.Errorf("then body must survive")
	}
}

func TestCombineIfs_SameCondition(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := opaqueBool(g, entry, "c")
	a := opaqueIndex(g, entry, "a")
	b := opaqueIndex(g, entry, "b")

	prev := scf.BuildIf(g, entry, []ir.Type{ir.Index()}, c, true)
	scf.ReplaceYield(g, prev.ThenYield(), a)
	scf.ReplaceYield(g, prev.ElseYield(), b)

	next := scf.BuildIf(g, entry, []ir.Type{ir.Index()}, c, true)
	// next's then branch consumes prev's result; after combining it must
	// see prev's then-yield value directly.
	inner := moveBeforeTerm(g, scf.BuildAddI(g, next.ThenBlock(), prev.Results()[0], a), next.ThenYield())
	scf.ReplaceYield(g, next.ThenYield(), inner)
	scf.ReplaceYield(g, next.ElseYield(), b)
	usePrev := sink(g, entry, prev.Results()...)
	useNext := sink(g, entry, next.Results()...)
	mustVerify(t, g)

	p := pattern(t, scf.IfPatterns(), "if-combine")
	if !p.MatchAndRewrite(g, next.ID) {
		t.Fatalf("consecutive conditionals over one condition did not combine")
	}
	mustVerify(t, g)

	if n := countKind(g, scf.KindIf); n != 1 {
		t.Fatalf("found %d conditionals after combining, want 1", n)
	}
	var combined ir.OpID = ir.NoOp
	for _, o := range g.BlockOps(entry) {
		if g.OpKindOf(o) == scf.KindIf {
			combined = o
		}
	}
	cw := scf.If(g, combined)
	if len(cw.Results()) != 2 {
		t.Fatalf("combined conditional carries %d results, want 2", len(cw.Results()))
	}
	if g.Operand(usePrev, 0) != cw.Results()[0] || g.Operand(useNext, 0) != cw.Results()[1] {
		t.Errorf("old results not rewired to the combined conditional")
	}
	// The inner add now reads prev's then-yield value.
	if g.Operand(g.DefiningOp(inner), 0) != a {
		t.Errorf("branch-local use of prev's result = %d, want the yielded a", g.Operand(g.DefiningOp(inner), 0))
	}
	if got := g.Operands(cw.ThenYield()); len(got) != 2 || got[0] != a || got[1] != inner {
		t.Errorf("combined then yield = %v, want [a inner]", got)
	}
	if got := g.Operands(cw.ElseYield()); len(got) != 2 || got[0] != b || got[1] != b {
		t.Errorf("combined else yield = %v, want [b b]", got)
	}
}

func TestCombineIfs_NegatedConditionSwapsBranches(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := opaqueBool(g, entry, "c")
	one := scf.BuildConstantBool(g, entry, true)
	notC := scf.BuildXOrI(g, entry, c, one)

	prev := scf.BuildIf(g, entry, nil, c, true)
	prevEffect := scf.BuildExtern(g, prev.ThenBlock(), "prev-effect", nil, nil)
	g.DetachOp(prevEffect)
	g.InsertOpBefore(prevEffect, prev.ThenYield())

	next := scf.BuildIf(g, entry, nil, notC, true)
	nextEffect := scf.BuildExtern(g, next.ThenBlock(), "next-effect", nil, nil)
	g.DetachOp(nextEffect)
	g.InsertOpBefore(nextEffect, next.ThenYield())
	mustVerify(t, g)

	p := pattern(t, scf.IfPatterns(), "if-combine")
	if !p.MatchAndRewrite(g, next.ID) {
		t.Fatalf("negated-condition pair did not combine")
	}
	mustVerify(t, g)

	var combined ir.OpID = ir.NoOp
	for _, o := range g.BlockOps(entry) {
		if g.OpKindOf(o) == scf.KindIf {
			combined = o
		}
	}
	cw := scf.If(g, combined)
	if cw.Condition() != c {
		t.Errorf("combined condition = %d, want prev's condition", cw.Condition())
	}
	// next ran when c was false, so its body lands in the else branch.
	if g.OwnerBlock(prevEffect) != cw.ThenBlock() {
		t.Errorf("prev's body should stay in the then branch")
	}
	if g.OwnerBlock(nextEffect) != cw.ElseBlock() {
		t.Errorf("next's body should move to the else branch")
	}
}

func TestCombineNestedIfs(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c1 := opaqueBool(g, entry, "c1")
	c2 := opaqueBool(g, entry, "c2")
	v := opaqueIndex(g, entry, "v")
	w := opaqueIndex(g, entry, "w")

	outer := scf.BuildIf(g, entry, []ir.Type{ir.Index()}, c1, true)
	nested := scf.BuildIf(g, outer.ThenBlock(), []ir.Type{ir.Index()}, c2, true)
	g.DetachOp(nested.ID)
	g.InsertOpBefore(nested.ID, outer.ThenYield())
	scf.ReplaceYield(g, nested.ThenYield(), v)
	scf.ReplaceYield(g, nested.ElseYield(), w)
	scf.ReplaceYield(g, outer.ThenYield(), nested.Results()[0])
	scf.ReplaceYield(g, outer.ElseYield(), w)
	use := sink(g, entry, outer.Results()...)
	mustVerify(t, g)

	p := pattern(t, scf.IfPatterns(), "if-combine-nested")
	if !p.MatchAndRewrite(g, outer.ID) {
		t.Fatalf("nested conditional did not combine")
	}
	mustVerify(t, g)

	if n := countKind(g, scf.KindIf); n != 1 {
		t.Fatalf("found %d conditionals, want the single combined one", n)
	}
	combinedRes := g.Operand(use, 0)
	combined := g.DefiningOp(combinedRes)
	cw := scf.If(g, combined)
	andOp := g.DefiningOp(cw.Condition())
	if g.OpKindOf(andOp) != scf.KindAndI {
		t.Fatalf("combined guard should be an and of both conditions")
	}
	if g.Operand(andOp, 0) != c1 || g.Operand(andOp, 1) != c2 {
		t.Errorf("guard operands = %v, want [c1 c2]", g.Operands(andOp))
	}
	if got := g.Operands(cw.ThenYield()); len(got) != 1 || got[0] != v {
		t.Errorf("combined then yield = %v, want [v]", got)
	}
	if got := g.Operands(cw.ElseYield()); len(got) != 1 || got[0] != w {
		t.Errorf("combined else yield = %v, want [w]", got)
	}
}

func TestCombineNestedIfs_MismatchedElseValueBails(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c1 := opaqueBool(g, entry, "c1")
	c2 := opaqueBool(g, entry, "c2")
	v := opaqueIndex(g, entry, "v")
	w := opaqueIndex(g, entry, "w")
	u := opaqueIndex(g, entry, "u")

	outer := scf.BuildIf(g, entry, []ir.Type{ir.Index()}, c1, true)
	nested := scf.BuildIf(g, outer.ThenBlock(), []ir.Type{ir.Index()}, c2, true)
	g.DetachOp(nested.ID)
	g.InsertOpBefore(nested.ID, outer.ThenYield())
	scf.ReplaceYield(g, nested.ThenYield(), v)
	scf.ReplaceYield(g, nested.ElseYield(), w)
	scf.ReplaceYield(g, outer.ThenYield(), nested.Results()[0])
	// The outer else yields a different value than the nested else, so
	// folding the guards would lose it.
	scf.ReplaceYield(g, outer.ElseYield(), u)
	sink(g, entry, outer.Results()...)
	mustVerify(t, g)

	p := pattern(t, scf.IfPatterns(), "if-combine-nested")
	if p.MatchAndRewrite(g, outer.ID) {
		t.Fatalf("mismatched else values must not combine")
	}
	mustVerify(t, g)
}

func TestConvertTrivialIfToSelect_ErasesFullyHoistedIf(t *testing.T) {
	g := ir.NewGraph(ir.Index())
	entry := g.EntryBlock()
	v := g.BlockParam(entry, 0)
	c := opaqueBool(g, entry, "c")
	nine := scf.BuildConstantIndex(g, entry, 9)

	cond := scf.BuildIf(g, entry, []ir.Type{ir.Index(), ir.Index()}, c, true)
	scf.ReplaceYield(g, cond.ThenYield(), nine, v)
	scf.ReplaceYield(g, cond.ElseYield(), nine, v)
	use := sink(g, entry, cond.Results()...)
	mustVerify(t, g)

	stats, err := scf.Canonicalize(g)
	if err != nil {
		t.Fatal(err)
	}
	if !stats.Converged {
		t.Fatalf("canonicalization did not converge: %+v", stats)
	}
	if countKind(g, scf.KindIf) != 0 {
		t.Fatalf("a conditional whose branches only restate outside values should vanish\n%s",
			scf.DumpString(g))
	}
	if g.Operand(use, 0) != nine || g.Operand(use, 1) != v {
		t.Errorf("uses = %v, want the hoisted values", g.Operands(use))
	}
	mustVerify(t, g)
}

func TestRemoveUnusedIfResults_ErasesDeadConditional(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	c := opaqueBool(g, entry, "c")
	x := opaqueIndex(g, entry, "x")

	cond := scf.BuildIf(g, entry, []ir.Type{ir.Index()}, c, true)
	scf.ReplaceYield(g, cond.ThenYield(), x)
	scf.ReplaceYield(g, cond.ElseYield(), x)
	// The result has no uses and the branches run nothing.
	mustVerify(t, g)

	p := pattern(t, scf.IfPatterns(), "if-remove-unused-results")
	if !p.MatchAndRewrite(g, cond.ID) {
		t.Fatalf("dead conditional did not fold")
	}
	if countKind(g, scf.KindIf) != 0 {
		t.Fatalf("dead conditional survived")
	}
	mustVerify(t, g)
}
