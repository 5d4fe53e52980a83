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

// Func is one named graph of a module snapshot.
type Func struct {
	Name  string
	Graph *ir.Graph
}

// Module is what the CLI reads and writes: a list of named function
// graphs, in file order.
type Module struct {
	Funcs []Func
}

type funcRec struct {
	Name   string
	Blocks []blockRec
}

type moduleRec struct {
	Schema uint16
	Funcs  []funcRec
}

func encodeGraph(g *ir.Graph) ([]blockRec, error) {
	e := &encoder{g: g, index: make(map[ir.ValueID]int32)}
	var blocks []blockRec
	for _, b := range g.RegionBlocks(g.Root()) {
		br, err := e.block(b)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, br)
	}
	return blocks, nil
}

func decodeGraph(blocks []blockRec) (*ir.Graph, error) {
	if len(blocks) == 0 {
		return nil, errors.New("snapshot: graph has no entry block")
	}
	entryParams := make([]ir.Type, len(blocks[0].Params))
	for i, t := range blocks[0].Params {
		entryParams[i] = recToType(t)
	}
	g := ir.NewGraph(entryParams...)
	d := &decoder{g: g}
	if err := d.block(g.EntryBlock(), blocks[0]); err != nil {
		return nil, err
	}
	for _, br := range blocks[1:] {
		params := make([]ir.Type, len(br.Params))
		for i, t := range br.Params {
			params[i] = recToType(t)
		}
		b := g.AddBlock(g.Root(), params...)
		if err := d.block(b, br); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// EncodeModule writes the module to w.
func EncodeModule(w io.Writer, m *Module) error {
	rec := moduleRec{Schema: schemaVersion}
	for _, fn := range m.Funcs {
		blocks, err := encodeGraph(fn.Graph)
		if err != nil {
			return fmt.Errorf("function %q: %w", fn.Name, err)
		}
		rec.Funcs = append(rec.Funcs, funcRec{Name: fn.Name, Blocks: blocks})
	}
	return msgpack.NewEncoder(w).Encode(&rec)
}

// DecodeModule reads a module written by EncodeModule.
func DecodeModule(r io.Reader) (*Module, error) {
	var rec moduleRec
	if err := msgpack.NewDecoder(r).Decode(&rec); err != nil {
		return nil, err
	}
	if rec.Schema != schemaVersion {
		return nil, fmt.Errorf("snapshot: schema %d, this build reads %d", rec.Schema, schemaVersion)
	}
	m := &Module{}
	for _, fr := range rec.Funcs {
		g, err := decodeGraph(fr.Blocks)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", fr.Name, err)
		}
		m.Funcs = append(m.Funcs, Func{Name: fr.Name, Graph: g})
	}
	return m, nil
}

// SaveModule writes the module to path atomically.
func SaveModule(path string, m *Module) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if err := EncodeModule(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// LoadModule reads a module from path.
func LoadModule(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeModule(f)
}
