// Package snapshot serializes graphs to a compact binary form, used by
// the driver's disk cache and by the CLI to pass graphs between runs.
// Values are renumbered densely in traversal order, so a decoded graph
// is equivalent to, not identical with, the one encoded; encoding a
// decoded graph reproduces the same bytes.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"strata/internal/ir"
)

// Schema version - increment when the record format changes.
const schemaVersion uint16 = 1

type typeRec struct {
	Kind uint8
	Name string
}

type opRec struct {
	Kind     int32
	Operands []int32 // dense value indexes
	Results  []typeRec

	Int      int64
	Bool     bool
	Pred     int8
	Name     string
	Cases    []int64
	Segments []int32

	Regions [][]blockRec
}

type blockRec struct {
	Params []typeRec
	Ops    []opRec
}

type graphRec struct {
	Schema uint16
	Blocks []blockRec // root region; entry params ride in Blocks[0]
}

func typeToRec(t ir.Type) typeRec { return typeRec{Kind: uint8(t.Kind), Name: t.Name} }

func recToType(r typeRec) ir.Type { return ir.Type{Kind: ir.TypeKind(r.Kind), Name: r.Name} }

type encoder struct {
	g      *ir.Graph
	index  map[ir.ValueID]int32
	nextID int32
}

func (e *encoder) number(v ir.ValueID) {
	e.index[v] = e.nextID
	e.nextID++
}

func (e *encoder) block(b ir.BlockID) (blockRec, error) {
	var rec blockRec
	params := e.g.BlockParams(b)
	rec.Params = make([]typeRec, len(params))
	for i, p := range params {
		rec.Params[i] = typeToRec(e.g.ValueType(p))
		e.number(p)
	}
	for _, op := range e.g.BlockOps(b) {
		opr, err := e.op(op)
		if err != nil {
			return rec, err
		}
		rec.Ops = append(rec.Ops, opr)
	}
	return rec, nil
}

func (e *encoder) op(op ir.OpID) (opRec, error) {
	attrs := e.g.Attrs(op)
	rec := opRec{
		Kind:     int32(e.g.OpKindOf(op)),
		Int:      attrs.Int,
		Bool:     attrs.Bool,
		Pred:     attrs.Pred,
		Name:     attrs.Name,
		Cases:    attrs.Cases,
		Segments: attrs.Segments,
	}
	for i, v := range e.g.Operands(op) {
		idx, ok := e.index[v]
		if !ok {
			return rec, fmt.Errorf("snapshot: operand %d of op %d is not defined before use", i, op)
		}
		rec.Operands = append(rec.Operands, idx)
	}
	for _, r := range e.g.Results(op) {
		rec.Results = append(rec.Results, typeToRec(e.g.ValueType(r)))
		e.number(r)
	}
	for i := 0; i < e.g.NumRegions(op); i++ {
		var blocks []blockRec
		for _, b := range e.g.RegionBlocks(e.g.Region(op, i)) {
			br, err := e.block(b)
			if err != nil {
				return rec, err
			}
			blocks = append(blocks, br)
		}
		rec.Regions = append(rec.Regions, blocks)
	}
	return rec, nil
}

// Encode writes the graph to w.
func Encode(w io.Writer, g *ir.Graph) error {
	blocks, err := encodeGraph(g)
	if err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(&graphRec{Schema: schemaVersion, Blocks: blocks})
}

type decoder struct {
	g      *ir.Graph
	values []ir.ValueID
}

func (d *decoder) block(b ir.BlockID, rec blockRec) error {
	for i := range rec.Params {
		d.values = append(d.values, d.g.BlockParam(b, i))
	}
	for _, opr := range rec.Ops {
		if _, err := d.op(b, opr); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) op(b ir.BlockID, rec opRec) (ir.OpID, error) {
	resultTypes := make([]ir.Type, len(rec.Results))
	for i, t := range rec.Results {
		resultTypes[i] = recToType(t)
	}
	attrs := ir.Attributes{
		Int:      rec.Int,
		Bool:     rec.Bool,
		Pred:     rec.Pred,
		Name:     rec.Name,
		Cases:    rec.Cases,
		Segments: rec.Segments,
	}
	// Encode numbers every value before its first use, so operands
	// always resolve against values seen earlier in the traversal.
	operands := make([]ir.ValueID, len(rec.Operands))
	for i, idx := range rec.Operands {
		if idx < 0 || int(idx) >= len(d.values) {
			return ir.NoOp, fmt.Errorf("snapshot: operand index %d out of range", idx)
		}
		operands[i] = d.values[idx]
	}
	op := d.g.NewOp(ir.OpKind(rec.Kind), operands, resultTypes, len(rec.Regions), attrs)
	for _, r := range d.g.Results(op) {
		d.values = append(d.values, r)
	}
	for i, blocks := range rec.Regions {
		region := d.g.Region(op, i)
		for _, br := range blocks {
			params := make([]ir.Type, len(br.Params))
			for j, t := range br.Params {
				params[j] = recToType(t)
			}
			nb := d.g.AddBlock(region, params...)
			if err := d.block(nb, br); err != nil {
				return op, err
			}
		}
	}
	d.g.AppendOp(b, op)
	return op, nil
}

// Decode reads a graph written by Encode.
func Decode(r io.Reader) (*ir.Graph, error) {
	var rec graphRec
	if err := msgpack.NewDecoder(r).Decode(&rec); err != nil {
		return nil, err
	}
	if rec.Schema != schemaVersion {
		return nil, fmt.Errorf("snapshot: schema %d, this build reads %d", rec.Schema, schemaVersion)
	}
	return decodeGraph(rec.Blocks)
}

// Save writes the graph to path atomically.
func Save(path string, g *ir.Graph) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if err := Encode(f, g); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Load reads a graph from path. A missing file reports found=false
// without an error.
func Load(path string) (*ir.Graph, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()
	g, err := Decode(f)
	if err != nil {
		return nil, false, err
	}
	return g, true, nil
}
