package scf_test

import (
	"testing"

	"strata/internal/ir"
	"strata/internal/rewrite"
	"strata/internal/scf"
)

// pattern finds a canonicalization pattern by name.
func pattern(t *testing.T, pats []rewrite.Pattern, name string) rewrite.Pattern {
	t.Helper()
	for _, p := range pats {
		if p.Name() == name {
			return p
		}
	}
	t.Fatalf("pattern %q not registered", name)
	return nil
}

// mustVerify fails the test when the graph violates a structural
// invariant, printing the graph for diagnosis.
func mustVerify(t *testing.T, g *ir.Graph) {
	t.Helper()
	if err := scf.VerifyGraph(g); err != nil {
		t.Fatalf("graph does not verify: %v\n%s", err, scf.DumpString(g))
	}
}
