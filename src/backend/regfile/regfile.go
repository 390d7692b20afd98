// Package regfile provides type definitions for virtual register files and
// the symbolic keys the lowerers allocate registers by.
package regfile

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Register defines a physical register interface.
// A register has an identifier (its index in the hardware register bank) and
// an assembler string.
type Register interface {
	Id() int        // The unique id of the register.
	String() string // String returns the assembler string for the register.
}

// KeyKind discriminates the kinds of values that can own a register.
type KeyKind int

// Key is a stable identifier for any value needing a register: a parameter
// name, a canonicalized constant bit pattern or a compiler generated
// temporary. Keys are compared by exact value equality, so two constants with
// the same bit pattern collapse to the same key and share a register.
type Key struct {
	Kind KeyKind
	Name string // Parameter name. Empty for constants and temporaries.
	Id   uint64 // Constant bit pattern or temporary sequence number.
}

// Pool defines an interface for a bounded register pool. Allocation is
// idempotent per key and pops from the free sequence in fixed declaration
// order; there is no eviction, spilling or liveness analysis. A register is
// held until Reset, which must only be called between independent top-level
// compilations, never inside one.
type Pool interface {
	Allocate(k Key) (Register, error) // Returns the register bound to k, binding a fresh one if needed.
	Lookup(k Key) (Register, bool)    // Returns the register bound to k, if any, without allocating.
	Free() int                        // Number of registers remaining in the free sequence.
	Reset()                           // Unbinds every key and restores the full free sequence.
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	KindParam KeyKind = iota
	KindConst
	KindTemp
)

// ---------------------
// ----- functions -----
// ---------------------

// ParamKey returns the symbolic key of the parameter with the given name.
func ParamKey(name string) Key {
	return Key{Kind: KindParam, Name: name}
}

// ConstKey returns the symbolic key of the constant with the given canonical
// 64-bit pattern.
func ConstKey(bits uint64) Key {
	return Key{Kind: KindConst, Id: bits}
}

// TempKey returns the symbolic key of the compiler generated temporary with
// the given per-function sequence number.
func TempKey(seq int) Key {
	return Key{Kind: KindTemp, Id: uint64(seq)}
}

// String returns a print friendly string of the key, used in diagnostics.
func (k Key) String() string {
	switch k.Kind {
	case KindParam:
		return fmt.Sprintf("parameter %q", k.Name)
	case KindConst:
		return fmt.Sprintf("constant 0x%x", k.Id)
	default:
		return fmt.Sprintf("temporary %d", k.Id)
	}
}
