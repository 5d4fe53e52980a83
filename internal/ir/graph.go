// Package ir implements the region-based IR substrate: an arena of
// operations, blocks, regions and values addressed by stable handles, with
// explicit use lists and the mutation primitives rewrites are built from.
//
// The graph is cyclic by construction (loops reach their own body), so
// nodes never own each other through Go pointers. Every cross-reference is
// a handle into the arena, and erasure marks nodes dead instead of freeing
// them, which keeps handles stable for the lifetime of the graph.
//
// A Graph has exactly one mutator at a time. None of the methods are safe
// for concurrent use.
package ir

import (
	"fmt"

	"fortio.org/safecast"
)

// OpID is a stable handle to an operation node.
type OpID int32

// BlockID is a stable handle to a block node.
type BlockID int32

// RegionID is a stable handle to a region node.
type RegionID int32

// ValueID is a stable handle to a value (operation result or block
// argument).
type ValueID int32

// Sentinel handles for "no node".
const (
	NoOp     OpID     = -1
	NoBlock  BlockID  = -1
	NoRegion RegionID = -1
	NoValue  ValueID  = -1
)

// OpKind tags an operation node. The dialect layer defines the concrete
// kind set; the substrate only stores and dispatches on the tag.
type OpKind int32

// Use identifies a single operand slot consuming a value.
type Use struct {
	Op    OpID
	Index int
}

// Attributes is the compact compile-time payload of an operation. The
// dialect decides which fields are meaningful for which kind; unused
// fields stay at their zero values.
type Attributes struct {
	Int      int64   // integer constant payload
	Bool     bool    // boolean constant payload
	Pred     int8    // compare predicate
	Name     string  // extern op name
	Cases    []int64 // switch case values
	Segments []int32 // operand segment sizes for multi-group operand lists
}

type valueNode struct {
	typ      Type
	op       OpID    // defining op, NoOp for block arguments
	block    BlockID // owning block for block arguments, NoBlock otherwise
	index    int     // result number or argument number
	uses     []Use
	live     bool
}

type opNode struct {
	kind     OpKind
	operands []ValueID
	results  []ValueID
	regions  []RegionID
	attrs    Attributes
	block    BlockID // owning block, NoBlock while detached
	live     bool
}

type blockNode struct {
	region RegionID
	params []ValueID
	ops    []OpID
	live   bool
}

type regionNode struct {
	owner  OpID // NoOp for the root region
	blocks []BlockID
	live   bool
}

// Graph is the arena owning every node of one function body. The root
// region plays the role of the function: its entry block's arguments are
// the function parameters.
type Graph struct {
	values  []valueNode
	ops     []opNode
	blocks  []blockNode
	regions []regionNode
	root    RegionID
}

// NewGraph creates a graph whose root region has a single entry block with
// the given parameter types.
func NewGraph(params ...Type) *Graph {
	g := &Graph{}
	g.root = g.newRegion(NoOp)
	g.AddBlock(g.root, params...)
	return g
}

// Root returns the root region.
func (g *Graph) Root() RegionID { return g.root }

// EntryBlock returns the first block of the root region.
func (g *Graph) EntryBlock() BlockID { return g.regions[g.root].blocks[0] }

// arenaIndex narrows a slice length to the 32-bit handle space. Running
// out of handles means the graph outgrew the arena, which is fatal.
func arenaIndex(n int) int32 {
	id, err := safecast.Conv[int32](n)
	if err != nil {
		panic(fmt.Sprintf("ir: arena exhausted: %v", err))
	}
	return id
}

func (g *Graph) newRegion(owner OpID) RegionID {
	g.regions = append(g.regions, regionNode{owner: owner, live: true})
	return RegionID(arenaIndex(len(g.regions) - 1))
}

func (g *Graph) newValue(typ Type, op OpID, block BlockID, index int) ValueID {
	g.values = append(g.values, valueNode{
		typ:   typ,
		op:    op,
		block: block,
		index: index,
		live:  true,
	})
	return ValueID(arenaIndex(len(g.values) - 1))
}

// NewOp creates a detached operation with the given operands, result types
// and number of empty owned regions. The op must be inserted into a block
// before the graph is considered complete.
func (g *Graph) NewOp(kind OpKind, operands []ValueID, resultTypes []Type, numRegions int, attrs Attributes) OpID {
	id := OpID(arenaIndex(len(g.ops)))
	g.ops = append(g.ops, opNode{
		kind:     kind,
		operands: append([]ValueID(nil), operands...),
		attrs:    attrs,
		block:    NoBlock,
		live:     true,
	})
	op := &g.ops[id]
	for i, t := range resultTypes {
		op.results = append(op.results, g.newValue(t, id, NoBlock, i))
	}
	for i := 0; i < numRegions; i++ {
		op.regions = append(op.regions, g.newRegion(id))
	}
	for i, v := range op.operands {
		g.addUse(v, Use{Op: id, Index: i})
	}
	return id
}

// AddBlock appends a new block with the given argument types to a region.
func (g *Graph) AddBlock(region RegionID, params ...Type) BlockID {
	id := BlockID(arenaIndex(len(g.blocks)))
	g.blocks = append(g.blocks, blockNode{region: region, live: true})
	b := &g.blocks[id]
	for i, t := range params {
		b.params = append(b.params, g.newValue(t, NoOp, id, i))
	}
	g.regions[region].blocks = append(g.regions[region].blocks, id)
	return id
}

func (g *Graph) addUse(v ValueID, u Use) {
	g.values[v].uses = append(g.values[v].uses, u)
}

func (g *Graph) removeUse(v ValueID, u Use) {
	uses := g.values[v].uses
	for i, have := range uses {
		if have == u {
			g.values[v].uses = append(uses[:i], uses[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("ir: use %v of v%d not found", u, v))
}

// checkLive panics when a handle refers to an erased node. Erased nodes
// must never be touched again; doing so is a bug in the caller.
func (g *Graph) checkLiveOp(op OpID) {
	if op < 0 || int(op) >= len(g.ops) || !g.ops[op].live {
		panic(fmt.Sprintf("ir: access to dead or invalid op %d", op))
	}
}

func (g *Graph) checkLiveValue(v ValueID) {
	if v < 0 || int(v) >= len(g.values) || !g.values[v].live {
		panic(fmt.Sprintf("ir: access to dead or invalid value %d", v))
	}
}
