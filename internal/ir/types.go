package ir

// TypeKind enumerates the closed set of value types the IR carries.
type TypeKind uint8

const (
	// TypeInvalid is the zero value; no live value carries it.
	TypeInvalid TypeKind = iota
	// TypeIndex is the platform-width integer used for loop bounds and
	// induction variables.
	TypeIndex
	// TypeBool is a single-bit truth value.
	TypeBool
	// TypeI32 is a 32-bit integer.
	TypeI32
	// TypeI64 is a 64-bit integer.
	TypeI64
	// TypeF64 is a 64-bit float.
	TypeF64
	// TypeOpaque is a named type the IR does not interpret.
	TypeOpaque
)

// Type is a value type. Types are compared by value; two opaque types are
// equal exactly when their names match.
type Type struct {
	Kind TypeKind
	Name string
}

// Index returns the index type.
func Index() Type { return Type{Kind: TypeIndex} }

// Bool returns the bool type.
func Bool() Type { return Type{Kind: TypeBool} }

// I32 returns the 32-bit integer type.
func I32() Type { return Type{Kind: TypeI32} }

// I64 returns the 64-bit integer type.
func I64() Type { return Type{Kind: TypeI64} }

// F64 returns the 64-bit float type.
func F64() Type { return Type{Kind: TypeF64} }

// Opaque returns a named opaque type.
func Opaque(name string) Type { return Type{Kind: TypeOpaque, Name: name} }

func (t Type) String() string {
	switch t.Kind {
	case TypeIndex:
		return "index"
	case TypeBool:
		return "i1"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF64:
		return "f64"
	case TypeOpaque:
		return "!" + t.Name
	default:
		return "invalid"
	}
}
