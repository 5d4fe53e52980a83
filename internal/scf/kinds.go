// Package scf implements the structured control flow dialect: loop and
// branch operations built from nested regions, their structural
// verifiers, terminator and successor-region contracts, fold functions,
// and the canonicalization pattern sets that simplify them.
//
// The package defines the operation shapes and the local rewrites; it
// never decides when rewrites run. An external driver (internal/rewrite
// provides the reference one) applies folds and patterns to a fixed
// point.
package scf

import "strata/internal/ir"

// Operation kinds of the dialect, plus the small companion set of value
// operations its patterns match or synthesize.
const (
	// KindInvalid is the zero value; no live op carries it.
	KindInvalid ir.OpKind = iota

	// KindFor is a sequential loop: operands are lower bound, upper
	// bound, step, then the loop-carried init values. One body region
	// whose entry block takes the induction variable followed by one
	// argument per carried value.
	KindFor
	// KindForall is a multi-dimensional parallel loop with shared
	// outputs. Operands are rank lower bounds, rank upper bounds, rank
	// steps, then the outputs (segment sizes recorded in attributes).
	KindForall
	// KindIf is a two-armed conditional: one condition operand, a then
	// region and a possibly empty else region.
	KindIf
	// KindWhile is a general loop with a `before` (condition) region and
	// an `after` (body) region.
	KindWhile
	// KindParallel is a multi-dimensional reduction loop: rank bounds and
	// steps followed by the reduction init values.
	KindParallel
	// KindIndexSwitch dispatches over an index operand to one of several
	// case regions or a default region (region 0).
	KindIndexSwitch
	// KindExecuteRegion wraps a region so that it can yield values into
	// the middle of a block.
	KindExecuteRegion

	// KindYield terminates most dialect regions, forwarding its operands
	// to the parent operation's results or next iteration.
	KindYield
	// KindCondition terminates a while op's before region: operand 0 is
	// the continuation flag, the rest feed the after region.
	KindCondition
	// KindReduce terminates a parallel op's body: one operand and one
	// two-argument combiner region per reduction.
	KindReduce
	// KindReduceReturn terminates a combiner region of a reduce op.
	KindReduceReturn
	// KindInParallel terminates a forall body; it holds only parallel
	// insert ops.
	KindInParallel
	// KindParallelInsert writes a source value into a forall shared
	// output block argument. Operands: source, dest.
	KindParallelInsert

	// KindConstant materializes an integer or boolean literal.
	KindConstant
	// KindAddI is integer addition.
	KindAddI
	// KindAndI is bitwise and.
	KindAndI
	// KindXOrI is bitwise xor.
	KindXOrI
	// KindCmpI is an integer comparison with a predicate attribute.
	KindCmpI
	// KindSelect picks one of two values by a boolean: cond, true, false.
	KindSelect
	// KindInsert is the sequential counterpart of a parallel insert,
	// produced when a forall body is promoted. Operands: source, dest;
	// one result of the dest type.
	KindInsert
	// KindExtern is an uninterpreted operation with a name attribute;
	// rewrites treat it as opaque and side-effecting.
	KindExtern
)

var kindNames = map[ir.OpKind]string{
	KindFor:            "for",
	KindForall:         "forall",
	KindIf:             "if",
	KindWhile:          "while",
	KindParallel:       "parallel",
	KindIndexSwitch:    "index_switch",
	KindExecuteRegion:  "execute_region",
	KindYield:          "yield",
	KindCondition:      "condition",
	KindReduce:         "reduce",
	KindReduceReturn:   "reduce.return",
	KindInParallel:     "in_parallel",
	KindParallelInsert: "parallel_insert",
	KindConstant:       "constant",
	KindAddI:           "addi",
	KindAndI:           "andi",
	KindXOrI:           "xori",
	KindCmpI:           "cmpi",
	KindSelect:         "select",
	KindInsert:         "insert",
	KindExtern:         "extern",
}

// KindName returns the printable mnemonic of a dialect op kind.
func KindName(k ir.OpKind) string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// IsTerminator reports whether the kind may only appear as the last
// operation of a block.
func IsTerminator(k ir.OpKind) bool {
	switch k {
	case KindYield, KindCondition, KindReduce, KindReduceReturn, KindInParallel:
		return true
	default:
		return false
	}
}

// Comparison predicates for KindCmpI.
const (
	CmpEQ int8 = iota
	CmpNE
	CmpSLT
	CmpSLE
	CmpSGT
	CmpSGE
)

// InvertPredicate returns the predicate matching exactly the complementary
// outcomes.
func InvertPredicate(p int8) int8 {
	switch p {
	case CmpEQ:
		return CmpNE
	case CmpNE:
		return CmpEQ
	case CmpSLT:
		return CmpSGE
	case CmpSLE:
		return CmpSGT
	case CmpSGT:
		return CmpSLE
	case CmpSGE:
		return CmpSLT
	default:
		return p
	}
}
