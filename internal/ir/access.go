package ir

// OpKindOf returns the kind tag of an operation.
func (g *Graph) OpKindOf(op OpID) OpKind {
	g.checkLiveOp(op)
	return g.ops[op].kind
}

// IsLiveOp reports whether the handle refers to a live operation.
func (g *Graph) IsLiveOp(op OpID) bool {
	return op >= 0 && int(op) < len(g.ops) && g.ops[op].live
}

// Attrs returns a pointer to the operation's attribute payload. The caller
// may mutate it in place; attributes carry no use-list bookkeeping.
func (g *Graph) Attrs(op OpID) *Attributes {
	g.checkLiveOp(op)
	return &g.ops[op].attrs
}

// NumOperands returns the operand count of op.
func (g *Graph) NumOperands(op OpID) int { return len(g.ops[op].operands) }

// Operand returns the i-th operand of op.
func (g *Graph) Operand(op OpID, i int) ValueID { return g.ops[op].operands[i] }

// Operands returns a copy of op's operand list.
func (g *Graph) Operands(op OpID) []ValueID {
	g.checkLiveOp(op)
	return append([]ValueID(nil), g.ops[op].operands...)
}

// NumResults returns the result count of op.
func (g *Graph) NumResults(op OpID) int { return len(g.ops[op].results) }

// Result returns the i-th result of op.
func (g *Graph) Result(op OpID, i int) ValueID { return g.ops[op].results[i] }

// Results returns a copy of op's result list.
func (g *Graph) Results(op OpID) []ValueID {
	g.checkLiveOp(op)
	return append([]ValueID(nil), g.ops[op].results...)
}

// NumRegions returns the owned-region count of op.
func (g *Graph) NumRegions(op OpID) int { return len(g.ops[op].regions) }

// Region returns the i-th owned region of op.
func (g *Graph) Region(op OpID, i int) RegionID { return g.ops[op].regions[i] }

// OwnerBlock returns the block containing op, or NoBlock while detached.
func (g *Graph) OwnerBlock(op OpID) BlockID {
	g.checkLiveOp(op)
	return g.ops[op].block
}

// RegionOwner returns the operation owning a region, or NoOp for the root.
func (g *Graph) RegionOwner(r RegionID) OpID { return g.regions[r].owner }

// RegionBlocks returns a copy of the region's block list.
func (g *Graph) RegionBlocks(r RegionID) []BlockID {
	return append([]BlockID(nil), g.regions[r].blocks...)
}

// NumBlocks returns the block count of a region.
func (g *Graph) NumBlocks(r RegionID) int { return len(g.regions[r].blocks) }

// FirstBlock returns the first block of a region, or NoBlock when empty.
func (g *Graph) FirstBlock(r RegionID) BlockID {
	if len(g.regions[r].blocks) == 0 {
		return NoBlock
	}
	return g.regions[r].blocks[0]
}

// BlockRegion returns the region containing a block.
func (g *Graph) BlockRegion(b BlockID) RegionID { return g.blocks[b].region }

// BlockOps returns a copy of the block's operation list in order.
func (g *Graph) BlockOps(b BlockID) []OpID {
	return append([]OpID(nil), g.blocks[b].ops...)
}

// NumBlockOps returns the operation count of a block.
func (g *Graph) NumBlockOps(b BlockID) int { return len(g.blocks[b].ops) }

// LastOp returns the final operation of a block, or NoOp when it is empty.
func (g *Graph) LastOp(b BlockID) OpID {
	ops := g.blocks[b].ops
	if len(ops) == 0 {
		return NoOp
	}
	return ops[len(ops)-1]
}

// FirstOp returns the first operation of a block, or NoOp when it is empty.
func (g *Graph) FirstOp(b BlockID) OpID {
	ops := g.blocks[b].ops
	if len(ops) == 0 {
		return NoOp
	}
	return ops[0]
}

// PrevOp returns the operation immediately preceding op in its block, or
// NoOp when op is first (or detached).
func (g *Graph) PrevOp(op OpID) OpID {
	b := g.ops[op].block
	if b == NoBlock {
		return NoOp
	}
	ops := g.blocks[b].ops
	for i, have := range ops {
		if have == op {
			if i == 0 {
				return NoOp
			}
			return ops[i-1]
		}
	}
	return NoOp
}

// NumBlockParams returns the argument count of a block.
func (g *Graph) NumBlockParams(b BlockID) int { return len(g.blocks[b].params) }

// BlockParam returns the i-th argument of a block.
func (g *Graph) BlockParam(b BlockID, i int) ValueID { return g.blocks[b].params[i] }

// BlockParams returns a copy of the block's argument list.
func (g *Graph) BlockParams(b BlockID) []ValueID {
	return append([]ValueID(nil), g.blocks[b].params...)
}

// ValueType returns the type of a value.
func (g *Graph) ValueType(v ValueID) Type {
	g.checkLiveValue(v)
	return g.values[v].typ
}

// IsBlockParam reports whether v is a block argument.
func (g *Graph) IsBlockParam(v ValueID) bool {
	g.checkLiveValue(v)
	return g.values[v].op == NoOp
}

// DefiningOp returns the operation producing v, or NoOp for block
// arguments.
func (g *Graph) DefiningOp(v ValueID) OpID {
	g.checkLiveValue(v)
	return g.values[v].op
}

// ParamOwner returns the block owning a block-argument value.
func (g *Graph) ParamOwner(v ValueID) BlockID {
	g.checkLiveValue(v)
	return g.values[v].block
}

// ValueIndex returns the result number or argument number of v within its
// owner.
func (g *Graph) ValueIndex(v ValueID) int {
	g.checkLiveValue(v)
	return g.values[v].index
}

// Uses returns a copy of v's use list.
func (g *Graph) Uses(v ValueID) []Use {
	g.checkLiveValue(v)
	return append([]Use(nil), g.values[v].uses...)
}

// HasUses reports whether v has at least one use.
func (g *Graph) HasUses(v ValueID) bool {
	g.checkLiveValue(v)
	return len(g.values[v].uses) > 0
}

// HasOneUse reports whether v has exactly one use.
func (g *Graph) HasOneUse(v ValueID) bool {
	g.checkLiveValue(v)
	return len(g.values[v].uses) == 1
}

// DefiningBlock returns the block a value lives in: the owner for block
// arguments, the containing block for op results.
func (g *Graph) DefiningBlock(v ValueID) BlockID {
	g.checkLiveValue(v)
	if g.values[v].op == NoOp {
		return g.values[v].block
	}
	return g.ops[g.values[v].op].block
}

// DefiningRegion returns the region a value is defined in.
func (g *Graph) DefiningRegion(v ValueID) RegionID {
	b := g.DefiningBlock(v)
	if b == NoBlock {
		return NoRegion
	}
	return g.blocks[b].region
}

// ParentOp returns the operation owning the block that contains op, i.e.
// the next structural ancestor, or NoOp at root level.
func (g *Graph) ParentOp(op OpID) OpID {
	b := g.OwnerBlock(op)
	if b == NoBlock {
		return NoOp
	}
	return g.regions[g.blocks[b].region].owner
}

// IsAncestor reports whether region r transitively contains op.
func (g *Graph) IsAncestor(r RegionID, op OpID) bool {
	for cur := op; cur != NoOp; {
		b := g.ops[cur].block
		if b == NoBlock {
			return false
		}
		if g.blocks[b].region == r {
			return true
		}
		cur = g.regions[g.blocks[b].region].owner
	}
	return false
}

// IsProperAncestorOp reports whether ancestor transitively contains op
// through region nesting (strictly; an op is not its own ancestor).
func (g *Graph) IsProperAncestorOp(ancestor, op OpID) bool {
	for cur := g.ParentOp(op); cur != NoOp; cur = g.ParentOp(cur) {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// DefinedOutsideRegion reports whether v is defined outside region r and
// every region nested inside it.
func (g *Graph) DefinedOutsideRegion(v ValueID, r RegionID) bool {
	b := g.DefiningBlock(v)
	for b != NoBlock {
		reg := g.blocks[b].region
		if reg == r {
			return false
		}
		owner := g.regions[reg].owner
		if owner == NoOp {
			return true
		}
		b = g.ops[owner].block
	}
	return true
}
