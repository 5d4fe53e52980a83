package rewrite_test

import (
	"errors"
	"testing"

	"strata/internal/ir"
	"strata/internal/rewrite"
)

const (
	kindNum ir.OpKind = iota + 1
	kindWrap
	kindSink
)

func num(g *ir.Graph, b ir.BlockID, v int64) ir.ValueID {
	op := g.NewOp(kindNum, nil, []ir.Type{ir.I64()}, 0, ir.Attributes{Int: v})
	g.AppendOp(b, op)
	return g.Result(op, 0)
}

func wrap(g *ir.Graph, b ir.BlockID, v ir.ValueID) ir.ValueID {
	op := g.NewOp(kindWrap, []ir.ValueID{v}, []ir.Type{ir.I64()}, 0, ir.Attributes{})
	g.AppendOp(b, op)
	return g.Result(op, 0)
}

// unwrap peels one wrapper: wrap(x) becomes x.
type unwrap struct{}

func (unwrap) Name() string        { return "unwrap" }
func (unwrap) RootKind() ir.OpKind { return kindWrap }

func (unwrap) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	g.ReplaceAllUses(g.Result(op, 0), g.Operand(op, 0))
	g.EraseOp(op)
	return true
}

// churn claims a change on every visit and never reaches a fixed point.
type churn struct{}

func (churn) Name() string        { return "churn" }
func (churn) RootKind() ir.OpKind { return kindNum }

func (churn) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool { return true }

func TestApply_ReachesFixedPoint(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	v := num(g, entry, 1)
	for i := 0; i < 3; i++ {
		v = wrap(g, entry, v)
	}
	sink := g.NewOp(kindSink, []ir.ValueID{v}, nil, 0, ir.Attributes{})
	g.AppendOp(entry, sink)

	s := rewrite.NewSet()
	s.Add(unwrap{})
	stats, err := rewrite.Apply(g, s, rewrite.Options{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !stats.Converged {
		t.Fatalf("driver did not converge: %+v", stats)
	}
	// One sweep peels the whole chain since earlier ops are visited
	// first, plus one sweep to observe the fixed point.
	if stats.Applied["unwrap"] != 3 {
		t.Errorf("unwrap applied %d times, want 3", stats.Applied["unwrap"])
	}
	if g.OpKindOf(g.DefiningOp(g.Operand(sink, 0))) != kindNum {
		t.Errorf("sink should read the unwrapped number directly")
	}
	if stats.Sweeps != 2 {
		t.Errorf("took %d sweeps, want 2", stats.Sweeps)
	}
}

func TestApply_IterationCap(t *testing.T) {
	g := ir.NewGraph()
	num(g, g.EntryBlock(), 7)

	s := rewrite.NewSet()
	s.Add(churn{})
	stats, err := rewrite.Apply(g, s, rewrite.Options{MaxIterations: 3})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.Converged {
		t.Errorf("a churning pattern must not report convergence")
	}
	if stats.Sweeps != 3 {
		t.Errorf("took %d sweeps, want the cap of 3", stats.Sweeps)
	}
}

func TestApply_DefaultIterationCap(t *testing.T) {
	g := ir.NewGraph()
	num(g, g.EntryBlock(), 7)

	s := rewrite.NewSet()
	s.Add(churn{})
	stats, err := rewrite.Apply(g, s, rewrite.Options{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.Sweeps != 10 {
		t.Errorf("took %d sweeps, want the default cap of 10", stats.Sweeps)
	}
}

func TestSet_Disable(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	wrap(g, entry, num(g, entry, 1))

	s := rewrite.NewSet()
	s.Add(unwrap{})
	s.Disable("unwrap")
	stats, err := rewrite.Apply(g, s, rewrite.Options{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.Applied["unwrap"] != 0 {
		t.Errorf("disabled pattern ran %d times", stats.Applied["unwrap"])
	}
	if stats.Sweeps != 1 || !stats.Converged {
		t.Errorf("stats = %+v, want immediate convergence", stats)
	}
}

func TestApply_FoldRunsBeforePatterns(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	wrap(g, entry, num(g, entry, 1))

	s := rewrite.NewSet()
	s.Add(unwrap{})
	folds := 0
	// The fold erases unused wrappers before the pattern can see them.
	fold := func(g *ir.Graph, op ir.OpID) bool {
		if g.OpKindOf(op) != kindWrap || g.HasUses(g.Result(op, 0)) {
			return false
		}
		g.EraseOp(op)
		folds++
		return true
	}
	stats, err := rewrite.Apply(g, s, rewrite.Options{Fold: fold})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.Folds != folds || stats.Folds != 1 {
		t.Errorf("Folds = %d (local count %d), want 1", stats.Folds, folds)
	}
	if stats.Applied["unwrap"] != 0 {
		t.Errorf("pattern ran on an op the fold erased")
	}
}

func TestApply_VerifyFailureAborts(t *testing.T) {
	g := ir.NewGraph()
	entry := g.EntryBlock()
	wrap(g, entry, num(g, entry, 1))

	s := rewrite.NewSet()
	s.Add(unwrap{})
	broken := errors.New("broken")
	verify := func(g *ir.Graph) error { return broken }
	_, err := rewrite.Apply(g, s, rewrite.Options{Verify: verify})
	if !errors.Is(err, broken) {
		t.Fatalf("err = %v, want the verification failure", err)
	}
}

func TestSet_NamesAndFor(t *testing.T) {
	s := rewrite.NewSet()
	s.Add(unwrap{}, churn{})
	if got := len(s.Names()); got != 2 {
		t.Errorf("Names() has %d entries, want 2", got)
	}
	if got := len(s.For(kindWrap)); got != 1 {
		t.Errorf("For(kindWrap) has %d patterns, want 1", got)
	}
	s.Disable("unwrap")
	if got := len(s.For(kindWrap)); got != 0 {
		t.Errorf("For(kindWrap) after Disable has %d patterns, want 0", got)
	}
}
