package ir

import "fmt"

// The mutation primitives below are the only legal way to change a graph.
// Each one keeps every use list consistent, so a pattern's match phase can
// always trust what it reads.

func (g *Graph) opIndexInBlock(op OpID) int {
	b := g.ops[op].block
	for i, have := range g.blocks[b].ops {
		if have == op {
			return i
		}
	}
	panic(fmt.Sprintf("ir: op %d not found in its owner block %d", op, b))
}

// AppendOp inserts a detached op at the end of a block.
func (g *Graph) AppendOp(b BlockID, op OpID) {
	g.checkLiveOp(op)
	if g.ops[op].block != NoBlock {
		panic(fmt.Sprintf("ir: op %d is already attached", op))
	}
	g.ops[op].block = b
	g.blocks[b].ops = append(g.blocks[b].ops, op)
}

// InsertOpBefore inserts a detached op immediately before an attached one.
func (g *Graph) InsertOpBefore(op, before OpID) {
	g.checkLiveOp(op)
	if g.ops[op].block != NoBlock {
		panic(fmt.Sprintf("ir: op %d is already attached", op))
	}
	b := g.ops[before].block
	at := g.opIndexInBlock(before)
	g.ops[op].block = b
	ops := g.blocks[b].ops
	ops = append(ops, NoOp)
	copy(ops[at+1:], ops[at:])
	ops[at] = op
	g.blocks[b].ops = ops
}

// InsertOpAfter inserts a detached op immediately after an attached one.
func (g *Graph) InsertOpAfter(op, after OpID) {
	g.checkLiveOp(op)
	if g.ops[op].block != NoBlock {
		panic(fmt.Sprintf("ir: op %d is already attached", op))
	}
	b := g.ops[after].block
	at := g.opIndexInBlock(after) + 1
	g.ops[op].block = b
	ops := g.blocks[b].ops
	ops = append(ops, NoOp)
	copy(ops[at+1:], ops[at:])
	ops[at] = op
	g.blocks[b].ops = ops
}

// DetachOp removes op from its block without destroying it. Uses of its
// results and its own operand uses stay intact; the op must be reattached
// or erased.
func (g *Graph) DetachOp(op OpID) {
	g.checkLiveOp(op)
	b := g.ops[op].block
	if b == NoBlock {
		return
	}
	at := g.opIndexInBlock(op)
	g.blocks[b].ops = append(g.blocks[b].ops[:at], g.blocks[b].ops[at+1:]...)
	g.ops[op].block = NoBlock
}

// SetOperand rewires the i-th operand of op to v.
func (g *Graph) SetOperand(op OpID, i int, v ValueID) {
	g.checkLiveOp(op)
	g.checkLiveValue(v)
	old := g.ops[op].operands[i]
	if old == v {
		return
	}
	g.removeUse(old, Use{Op: op, Index: i})
	g.ops[op].operands[i] = v
	g.addUse(v, Use{Op: op, Index: i})
}

// SetOperands replaces the whole operand list of op.
func (g *Graph) SetOperands(op OpID, operands []ValueID) {
	g.checkLiveOp(op)
	for i, old := range g.ops[op].operands {
		g.removeUse(old, Use{Op: op, Index: i})
	}
	g.ops[op].operands = append([]ValueID(nil), operands...)
	for i, v := range operands {
		g.addUse(v, Use{Op: op, Index: i})
	}
}

// ReplaceAllUses redirects every use of old to new. old keeps no uses.
func (g *Graph) ReplaceAllUses(old, new ValueID) {
	g.checkLiveValue(old)
	g.checkLiveValue(new)
	if old == new {
		return
	}
	for _, u := range g.values[old].uses {
		g.ops[u.Op].operands[u.Index] = new
		g.addUse(new, u)
	}
	g.values[old].uses = nil
}

// ReplaceAllUsesIf redirects the uses of old for which keep returns true.
func (g *Graph) ReplaceAllUsesIf(old, new ValueID, pred func(Use) bool) {
	g.checkLiveValue(old)
	g.checkLiveValue(new)
	if old == new {
		return
	}
	for _, u := range g.Uses(old) {
		if !pred(u) {
			continue
		}
		g.removeUse(old, u)
		g.ops[u.Op].operands[u.Index] = new
		g.addUse(new, u)
	}
}

func (g *Graph) collectOps(op OpID, out *[]OpID) {
	*out = append(*out, op)
	for _, r := range g.ops[op].regions {
		for _, b := range g.regions[r].blocks {
			for _, nested := range g.blocks[b].ops {
				g.collectOps(nested, out)
			}
		}
	}
}

// EraseOp destroys op together with its regions and everything nested in
// them. Every result must already be use-free outside the erased subtree;
// a remaining external use is a fatal invariant violation.
func (g *Graph) EraseOp(op OpID) {
	g.checkLiveOp(op)
	var doomed []OpID
	g.collectOps(op, &doomed)

	// Drop the operand uses of the whole subtree first so that internal
	// cross-references do not look like surviving uses afterwards.
	for _, d := range doomed {
		for i, v := range g.ops[d].operands {
			g.removeUse(v, Use{Op: d, Index: i})
		}
	}
	for _, d := range doomed {
		for _, res := range g.ops[d].results {
			if len(g.values[res].uses) > 0 {
				panic(fmt.Sprintf("ir: erasing op %d but result v%d still has uses", d, res))
			}
		}
	}
	g.DetachOp(op)
	for _, d := range doomed {
		for _, res := range g.ops[d].results {
			g.values[res].live = false
		}
		for _, r := range g.ops[d].regions {
			for _, b := range g.regions[r].blocks {
				for _, p := range g.blocks[b].params {
					if len(g.values[p].uses) > 0 {
						panic(fmt.Sprintf("ir: erasing block %d but argument v%d still has uses", b, p))
					}
					g.values[p].live = false
				}
				g.blocks[b].live = false
			}
			g.regions[r].live = false
		}
		g.ops[d].live = false
	}
}

func (g *Graph) removeBlockFromRegion(b BlockID) {
	r := g.blocks[b].region
	blocks := g.regions[r].blocks
	for i, have := range blocks {
		if have == b {
			g.regions[r].blocks = append(blocks[:i], blocks[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("ir: block %d not found in its region %d", b, r))
}

func (g *Graph) destroyBlockShell(b BlockID) {
	for _, p := range g.blocks[b].params {
		if len(g.values[p].uses) > 0 {
			panic(fmt.Sprintf("ir: destroying block %d but argument v%d still has uses", b, p))
		}
		g.values[p].live = false
	}
	g.removeBlockFromRegion(b)
	g.blocks[b].live = false
}

// EraseBlock destroys a block together with all of its operations.
func (g *Graph) EraseBlock(b BlockID) {
	for _, op := range g.BlockOps(b) {
		g.EraseOp(op)
	}
	g.destroyBlockShell(b)
}

// MergeBlocks moves every operation of src to the end of dst, replacing
// src's block arguments with the given values, then destroys src. The
// caller is responsible for what becomes of dst's existing terminator.
func (g *Graph) MergeBlocks(src, dst BlockID, argRepl []ValueID) {
	if len(argRepl) != len(g.blocks[src].params) {
		panic(fmt.Sprintf("ir: MergeBlocks got %d replacements for %d arguments",
			len(argRepl), len(g.blocks[src].params)))
	}
	for i, p := range g.blocks[src].params {
		g.ReplaceAllUses(p, argRepl[i])
	}
	for _, op := range g.BlockOps(src) {
		g.DetachOp(op)
		g.AppendOp(dst, op)
	}
	g.destroyBlockShell(src)
}

// InlineBlockBefore moves every operation of src before the given attached
// operation, replacing src's block arguments with the given values, then
// destroys src.
func (g *Graph) InlineBlockBefore(src BlockID, before OpID, argRepl []ValueID) {
	if len(argRepl) != len(g.blocks[src].params) {
		panic(fmt.Sprintf("ir: InlineBlockBefore got %d replacements for %d arguments",
			len(argRepl), len(g.blocks[src].params)))
	}
	for i, p := range g.blocks[src].params {
		g.ReplaceAllUses(p, argRepl[i])
	}
	for _, op := range g.BlockOps(src) {
		g.DetachOp(op)
		g.InsertOpBefore(op, before)
	}
	g.destroyBlockShell(src)
}

// SplitBlock moves the operations of b starting at `from` (inclusive) into
// a fresh block appended to the same region, and returns the new block.
func (g *Graph) SplitBlock(b BlockID, from OpID) BlockID {
	at := g.opIndexInBlock(from)
	tail := append([]OpID(nil), g.blocks[b].ops[at:]...)
	g.blocks[b].ops = g.blocks[b].ops[:at]
	nb := g.AddBlock(g.blocks[b].region)
	for _, op := range tail {
		g.ops[op].block = nb
	}
	g.blocks[nb].ops = tail
	return nb
}

// SwapRegionBlocks exchanges the block lists of two regions.
func (g *Graph) SwapRegionBlocks(a, b RegionID) {
	g.regions[a].blocks, g.regions[b].blocks = g.regions[b].blocks, g.regions[a].blocks
	for _, blk := range g.regions[a].blocks {
		g.blocks[blk].region = a
	}
	for _, blk := range g.regions[b].blocks {
		g.blocks[blk].region = b
	}
}

// MoveRegionBlocks transfers every block of src into dst, which must be
// empty. Used to move a body wholesale onto a replacement operation.
func (g *Graph) MoveRegionBlocks(src, dst RegionID) {
	if len(g.regions[dst].blocks) != 0 {
		panic("ir: MoveRegionBlocks destination is not empty")
	}
	for _, b := range g.regions[src].blocks {
		g.blocks[b].region = dst
	}
	g.regions[dst].blocks = g.regions[src].blocks
	g.regions[src].blocks = nil
}

// AddBlockParam appends a new argument of the given type to a block.
func (g *Graph) AddBlockParam(b BlockID, typ Type) ValueID {
	v := g.newValue(typ, NoOp, b, len(g.blocks[b].params))
	g.blocks[b].params = append(g.blocks[b].params, v)
	return v
}

// EraseBlockParams removes the block arguments whose mask entry is true.
// Every removed argument must be use-free.
func (g *Graph) EraseBlockParams(b BlockID, erase []bool) {
	if len(erase) != len(g.blocks[b].params) {
		panic("ir: EraseBlockParams mask length mismatch")
	}
	kept := g.blocks[b].params[:0]
	for i, p := range g.blocks[b].params {
		if erase[i] {
			if len(g.values[p].uses) > 0 {
				panic(fmt.Sprintf("ir: erasing block argument v%d which still has uses", p))
			}
			g.values[p].live = false
			continue
		}
		g.values[p].index = len(kept)
		kept = append(kept, p)
	}
	g.blocks[b].params = kept
}
