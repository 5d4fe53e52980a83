package scf

import (
	"strata/internal/ir"
)

// Shared helpers for the canonicalization patterns. All of them mutate
// unconditionally; the calling pattern has already decided it matches.

// replaceOpWithValues rewires every result of op to the given values and
// erases op.
func replaceOpWithValues(g *ir.Graph, op ir.OpID, vals []ir.ValueID) {
	for i, r := range g.Results(op) {
		g.ReplaceAllUses(r, vals[i])
	}
	g.EraseOp(op)
}

// inlineBlockWithYield inlines a single-block region body before an
// attached op: it drops the block's yield terminator, moves the
// remaining ops, substitutes argRepl for the block arguments, and
// returns the values the yield forwarded, mapped through argRepl.
func inlineBlockWithYield(g *ir.Graph, block ir.BlockID, before ir.OpID, argRepl []ir.ValueID) []ir.ValueID {
	term := g.LastOp(block)
	yields := g.Operands(term)
	params := g.BlockParams(block)
	mapped := make([]ir.ValueID, len(yields))
	for i, v := range yields {
		mapped[i] = v
		for j, p := range params {
			if v == p {
				mapped[i] = argRepl[j]
				break
			}
		}
	}
	g.EraseOp(term)
	g.InlineBlockBefore(block, before, argRepl)
	return mapped
}

// replaceOpWithRegion replaces op by inlining the single block of one of
// its regions in its place, then erases op. The block's yield operands
// become the op's results.
func replaceOpWithRegion(g *ir.Graph, op ir.OpID, region ir.RegionID, argRepl []ir.ValueID) {
	block := g.FirstBlock(region)
	vals := inlineBlockWithYield(g, block, op, argRepl)
	replaceOpWithValues(g, op, vals)
}

// onlyTerminator reports whether the block holds nothing but its
// terminator.
func onlyTerminator(g *ir.Graph, b ir.BlockID) bool {
	return g.NumBlockOps(b) == 1
}
