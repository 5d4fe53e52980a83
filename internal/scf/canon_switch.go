package scf

import (
	"strata/internal/ir"
	"strata/internal/rewrite"
)

// IndexSwitchPatterns returns the canonicalization patterns anchored on
// index switches.
func IndexSwitchPatterns() []rewrite.Pattern {
	return []rewrite.Pattern{foldConstantCase{}}
}

// foldConstantCase inlines the region a literal switch argument selects:
// the matching case, or the default when no case matches.
type foldConstantCase struct{}

func (foldConstantCase) Name() string        { return "switch-fold-constant-case" }
func (foldConstantCase) RootKind() ir.OpKind { return KindIndexSwitch }

func (foldConstantCase) MatchAndRewrite(g *ir.Graph, op ir.OpID) bool {
	sw := IndexSwitch(g, op)
	v, ok := ConstantIntValue(g, sw.Arg())
	if !ok {
		return false
	}
	region := sw.DefaultRegion()
	for i, c := range sw.Cases() {
		if c == v {
			region = sw.CaseRegion(i)
			break
		}
	}
	replaceOpWithRegion(g, op, region, nil)
	return true
}
