package ir

import (
	"fmt"
	"sync"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// symType differentiate different types of symbols, e.g. function, parameter and local.
type symType int

// Symbol refers to a function's or identifier's entry in a symbol table.
// A function Symbol doubles as the immutable function signature: its name and
// the parameter entries of Locals, ordered by sequence number.
type Symbol struct {
	Typ     symType // Type of symbol.
	Name    string  // Name of symbol.
	Seq     int     // Sequence number: argument slot for parameters, declaration order otherwise.
	Node    *Node   // Pointer to Symbol's definition node in syntax tree.
	Nparams int     // Number of parameters defined for function.
	Locals  SymTab  // Locally defined parameters and assigned locals of a function.
}

// SymTab wraps a hash table that can be accessed by multiple threads using a mutex.
type SymTab struct {
	HT map[string]*Symbol // Hash table holding Symbol entries.
	mx sync.Mutex         // Used for synchronising worker threads.
}

// ---------------------
// ----- Constants -----
// ---------------------

const hTabSize = 16 // Initial hash table allocation; bodies rarely name more values than registers.

// MaxParams is the number of scalar arguments passed in registers by the fixed
// calling convention. Functions declaring more parameters are rejected.
const MaxParams = 6

const (
	SymFunc symType = iota
	SymParam
	SymLocal
)

// -------------------
// ----- Globals -----
// -------------------

// sTyp defines strings for print friendly output of symType.
var sTyp = []string{
	"Function",
	"Parameter",
	"Local identifier",
}

// Global symbol table, holding one entry per function.
var Global SymTab

// Funcs holds a pointer to all the declared functions in order of appearance
// top-to-bottom in the source code.
var Funcs struct {
	F  []*Symbol
	mx sync.Mutex
}

// ----------------------
// ----- Functions ------
// ----------------------

// String returns a print friendly string of Symbol s.
func (s *Symbol) String() string {
	return fmt.Sprintf("%s %q (seq %d)", sTyp[s.Typ], s.Name, s.Seq)
}

// Add inserts Symbol s into SymTab st. Thread safe.
func (st *SymTab) Add(s *Symbol) {
	st.mx.Lock()
	defer st.mx.Unlock()
	st.HT[s.Name] = s
}

// Get retrieves the Symbol with name s from SymTab st, if it exists. Thread safe.
func (st *SymTab) Get(s string) (*Symbol, bool) {
	st.mx.Lock()
	defer st.mx.Unlock()
	e, ok := st.HT[s]
	return e, ok
}

// Size returns the number of entries in SymTab st. Thread safe.
func (st *SymTab) Size() int {
	st.mx.Lock()
	defer st.mx.Unlock()
	return len(st.HT)
}

// GenerateSymTab populates the global symbol table from the syntax tree.
// One entry is created per function; each function entry holds its parameters
// and assignment-defined locals in its Locals table. The tables are built
// fresh on every call, making independent top-level compilations isolated.
func GenerateSymTab() error {
	Global = SymTab{HT: make(map[string]*Symbol, hTabSize)}
	Funcs.F = make([]*Symbol, 0, hTabSize)

	if Root == nil {
		return fmt.Errorf("syntax tree root is <nil>")
	}

	for i1, e1 := range Root.Children {
		if e1.Typ != FUNCTION {
			return NodeError(ErrUnsupportedStatement, e1)
		}
		name := e1.Children[0].Data.(string)
		if _, ok := Global.Get(name); ok {
			return fmt.Errorf("function %q redefined (line %d:%d)", name, e1.Line, e1.Pos)
		}

		fun := &Symbol{
			Typ:    SymFunc,
			Name:   name,
			Seq:    i1,
			Node:   e1,
			Locals: SymTab{HT: make(map[string]*Symbol, hTabSize)},
		}

		// Parameters: ordered, unique, bounded by the argument register count.
		params := e1.Children[1].Children
		if len(params) > MaxParams {
			return fmt.Errorf("%w: function %q declares %d parameters, the calling convention passes at most %d",
				ErrUnsupportedArity, name, len(params), MaxParams)
		}
		for i2, e2 := range params {
			pname := e2.Data.(string)
			if _, ok := fun.Locals.Get(pname); ok {
				return fmt.Errorf("parameter %q redeclared in function %q (line %d:%d)", pname, name, e2.Line, e2.Pos)
			}
			p := &Symbol{Typ: SymParam, Name: pname, Seq: i2, Node: e2}
			fun.Locals.Add(p)
			e2.Entry = p
		}
		fun.Nparams = len(params)

		// Locals defined by assignment anywhere in the body. Sequence numbers
		// follow first-assignment order. Use-before-assignment is caught by
		// the validation pass.
		collectLocals(e1.Children[2], fun)

		e1.Entry = fun
		Global.Add(fun)

		Funcs.mx.Lock()
		Funcs.F = append(Funcs.F, fun)
		Funcs.mx.Unlock()
	}

	return nil
}

// collectLocals records assignment targets of the statement list n as local
// symbols of function fun, recursing into loop bodies.
func collectLocals(n *Node, fun *Symbol) {
	for _, e1 := range n.Children {
		switch e1.Typ {
		case ASSIGNMENT_STATEMENT:
			tname := e1.Children[0].Data.(string)
			if _, ok := fun.Locals.Get(tname); !ok {
				l := &Symbol{
					Typ:  SymLocal,
					Name: tname,
					Seq:  fun.Locals.Size() - fun.Nparams,
					Node: e1.Children[0],
				}
				fun.Locals.Add(l)
			}
		case FOR_STATEMENT:
			collectLocals(e1.Children[2], fun)
		}
	}
}
