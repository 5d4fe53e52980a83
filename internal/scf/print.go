package scf

import (
	"fmt"
	"io"
	"strings"

	"strata/internal/ir"
)

// DumpOptions configures graph dumping.
type DumpOptions struct{}

// DumpGraph writes a human-readable representation of the graph. Values
// print as %N using their arena identity, blocks as ^N.
func DumpGraph(w io.Writer, g *ir.Graph, _ DumpOptions) error {
	if w == nil || g == nil {
		return nil
	}
	for _, b := range g.RegionBlocks(g.Root()) {
		if err := dumpBlock(w, g, b, 0); err != nil {
			return err
		}
	}
	return nil
}

// DumpString renders the graph into a string, for logs and test
// diagnostics.
func DumpString(g *ir.Graph) string {
	var sb strings.Builder
	_ = DumpGraph(&sb, g, DumpOptions{})
	return sb.String()
}

func dumpBlock(w io.Writer, g *ir.Graph, b ir.BlockID, depth int) error {
	pad := strings.Repeat("  ", depth)
	params := g.BlockParams(b)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s^%d", pad, b)
	if len(params) > 0 {
		sb.WriteString("(")
		for i, p := range params {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%%%d: %s", p, g.ValueType(p))
		}
		sb.WriteString(")")
	}
	sb.WriteString(":\n")
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}
	for _, op := range g.BlockOps(b) {
		if err := dumpOp(w, g, op, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func dumpOp(w io.Writer, g *ir.Graph, op ir.OpID, depth int) error {
	pad := strings.Repeat("  ", depth)
	var sb strings.Builder
	sb.WriteString(pad)
	results := g.Results(op)
	for i, r := range results {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%%%d", r)
	}
	if len(results) > 0 {
		sb.WriteString(" = ")
	}
	sb.WriteString(KindName(g.OpKindOf(op)))
	operands := g.Operands(op)
	if len(operands) > 0 {
		sb.WriteString("(")
		for i, v := range operands {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%%%d", v)
		}
		sb.WriteString(")")
	}
	dumpAttrs(&sb, g, op)
	if len(results) > 0 {
		sb.WriteString(" : ")
		for i, r := range results {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(g.ValueType(r).String())
		}
	}
	if g.NumRegions(op) > 0 {
		sb.WriteString(" {")
	}
	sb.WriteString("\n")
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}
	for i := 0; i < g.NumRegions(op); i++ {
		if i > 0 {
			if _, err := fmt.Fprintf(w, "%s} {\n", pad); err != nil {
				return err
			}
		}
		for _, b := range g.RegionBlocks(g.Region(op, i)) {
			if err := dumpBlock(w, g, b, depth+1); err != nil {
				return err
			}
		}
	}
	if g.NumRegions(op) > 0 {
		if _, err := fmt.Fprintf(w, "%s}\n", pad); err != nil {
			return err
		}
	}
	return nil
}

func dumpAttrs(sb *strings.Builder, g *ir.Graph, op ir.OpID) {
	attrs := g.Attrs(op)
	switch g.OpKindOf(op) {
	case KindConstant:
		if g.ValueType(g.Result(op, 0)) == ir.Bool() {
			fmt.Fprintf(sb, " %t", attrs.Bool)
		} else {
			fmt.Fprintf(sb, " %d", attrs.Int)
		}
	case KindCmpI:
		fmt.Fprintf(sb, " %s", predName(attrs.Pred))
	case KindExtern:
		fmt.Fprintf(sb, " @%s", attrs.Name)
	case KindIndexSwitch:
		fmt.Fprintf(sb, " cases=%v", attrs.Cases)
	case KindForall, KindParallel:
		fmt.Fprintf(sb, " segments=%v", attrs.Segments)
	}
}

func predName(p int8) string {
	switch p {
	case CmpEQ:
		return "eq"
	case CmpNE:
		return "ne"
	case CmpSLT:
		return "slt"
	case CmpSLE:
		return "sle"
	case CmpSGT:
		return "sgt"
	case CmpSGE:
		return "sge"
	}
	return fmt.Sprintf("pred%d", p)
}
