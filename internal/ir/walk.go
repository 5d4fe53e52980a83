package ir

func (g *Graph) walkRegion(r RegionID, post bool, fn func(OpID) bool) bool {
	for _, b := range g.RegionBlocks(r) {
		for _, op := range g.BlockOps(b) {
			if !g.ops[op].live {
				continue
			}
			if !post && !fn(op) {
				return false
			}
			for _, nested := range g.ops[op].regions {
				if !g.walkRegion(nested, post, fn) {
					return false
				}
			}
			if post && g.ops[op].live && !fn(op) {
				return false
			}
		}
	}
	return true
}

// WalkOps visits every live operation of the graph in pre-order. The walk
// stops when fn returns false.
func (g *Graph) WalkOps(fn func(OpID) bool) {
	g.walkRegion(g.root, false, fn)
}

// WalkOpsPostOrder visits every live operation innermost-first, the order
// a fixed-point rewriter wants: canonicalizing a body before its owner
// exposes the owner's own simplifications.
func (g *Graph) WalkOpsPostOrder(fn func(OpID) bool) {
	g.walkRegion(g.root, true, fn)
}

// WalkRegionOps visits the live operations nested under one region in
// pre-order.
func (g *Graph) WalkRegionOps(r RegionID, fn func(OpID) bool) {
	g.walkRegion(r, false, fn)
}
