package ir

func (a Attributes) clone() Attributes {
	out := a
	out.Cases = append([]int64(nil), a.Cases...)
	out.Segments = append([]int32(nil), a.Segments...)
	return out
}

func lookup(mapping map[ValueID]ValueID, v ValueID) ValueID {
	if mapped, ok := mapping[v]; ok {
		return mapped
	}
	return v
}

// CloneOp creates a detached copy of op (and, recursively, of its
// regions), remapping operands through mapping where present and using the
// original value otherwise. The clone's results are recorded in mapping.
func (g *Graph) CloneOp(op OpID, mapping map[ValueID]ValueID) OpID {
	g.checkLiveOp(op)
	operands := make([]ValueID, 0, len(g.ops[op].operands))
	for _, v := range g.ops[op].operands {
		operands = append(operands, lookup(mapping, v))
	}
	resultTypes := make([]Type, 0, len(g.ops[op].results))
	for _, res := range g.ops[op].results {
		resultTypes = append(resultTypes, g.values[res].typ)
	}
	clone := g.NewOp(g.ops[op].kind, operands, resultTypes, len(g.ops[op].regions), g.ops[op].attrs.clone())
	for i, res := range g.ops[op].results {
		mapping[res] = g.ops[clone].results[i]
	}
	for i, r := range g.ops[op].regions {
		g.CloneRegionInto(r, g.ops[clone].regions[i], mapping)
	}
	return clone
}

// CloneOpBefore clones op and inserts the copy before an attached
// operation.
func (g *Graph) CloneOpBefore(op, before OpID, mapping map[ValueID]ValueID) OpID {
	clone := g.CloneOp(op, mapping)
	g.InsertOpBefore(clone, before)
	return clone
}

// CloneRegionInto clones every block of src into dst (which must be
// empty), remapping values through mapping. Each block argument gets a
// fresh counterpart unless mapping already redirects it — pre-mapping an
// argument is how callers drop it from the cloned signature.
func (g *Graph) CloneRegionInto(src, dst RegionID, mapping map[ValueID]ValueID) {
	if len(g.regions[dst].blocks) != 0 {
		panic("ir: CloneRegionInto destination is not empty")
	}
	// First pass: create the block shells so forward references resolve.
	newBlocks := make([]BlockID, 0, len(g.regions[src].blocks))
	for _, b := range g.regions[src].blocks {
		nb := g.AddBlock(dst)
		for _, p := range g.blocks[b].params {
			if _, redirected := mapping[p]; redirected {
				continue
			}
			mapping[p] = g.AddBlockParam(nb, g.values[p].typ)
		}
		newBlocks = append(newBlocks, nb)
	}
	for i, b := range g.regions[src].blocks {
		for _, op := range g.blocks[b].ops {
			clone := g.CloneOp(op, mapping)
			g.AppendOp(newBlocks[i], clone)
		}
	}
}
