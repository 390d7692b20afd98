package amd64

import (
	"fmt"
	"math"

	"caesium/src/backend/regfile"
	"caesium/src/ir"
)

// ---------------------
// ----- Constants -----
// ---------------------

// mnemonics maps the supported binary operators to their scalar double
// precision instructions. Any operator outside this table is unsupported.
var mnemonics = map[string]string{
	"+": "addsd",
	"-": "subsd",
	"*": "mulsd",
	"/": "divsd",
}

// ---------------------
// ----- Functions -----
// ---------------------

// genExpression lowers an expression node to the register holding its value.
// The dispatch is total over the supported node shapes; everything else fails
// naming the offending construct. Every syntactic occurrence is lowered
// independently, except that registers are deduplicated by symbolic key: a
// revisited name or constant reuses its register without re-emitting the load.
func (g *generator) genExpression(n *ir.Node) (regfile.Register, error) {
	switch n.Typ {
	case ir.IDENTIFIER_DATA:
		return g.loadName(n)
	case ir.FLOAT_DATA:
		return g.loadConstant(n)
	case ir.EXPRESSION:
		return g.genBinary(n)
	default:
		return nil, ir.NodeError(ir.ErrUnsupportedExpression, n)
	}
}

// loadName resolves a name to its register. A parameter touched for the first
// time is moved from its calling convention argument slot into a freshly
// allocated floating register; afterwards the binding is reused without a
// re-load. Because bindings never move, a register handed out here must not
// be clobbered while the name can still be referenced; binary operations
// therefore stash their results in fresh temporaries rather than keeping them
// in operand registers.
func (g *generator) loadName(n *ir.Node) (regfile.Register, error) {
	name := n.Data.(string)
	if g.onInductionStack(name) {
		// Induction variables are unusable by design.
		return nil, ir.NameError(ir.ErrUnsupportedExpression, name, n)
	}

	key := regfile.ParamKey(name)
	if reg, ok := g.rf.Lookup(key); ok {
		return reg, nil
	}

	s, ok := g.fun.Locals.Get(name)
	if !ok || s.Typ != ir.SymParam {
		// Locals are bound by their first assignment; an unbound one here
		// means it is read before it was ever written.
		return nil, ir.NameError(ir.ErrUndefinedName, name, n)
	}
	if s.Seq >= len(argRegs) {
		return nil, fmt.Errorf("%w: parameter %q has no argument register", ir.ErrUnsupportedArity, name)
	}

	reg, err := g.rf.Allocate(key)
	if err != nil {
		return nil, err
	}
	g.wr.Ins2c("movq", reg.String(), argRegs[s.Seq], fmt.Sprintf("load argument %s", name))
	return reg, nil
}

// loadConstant canonicalizes the literal to its 64-bit pattern and allocates
// a register keyed by that pattern, so equal constants share one register and
// one load. The first touch emits a load-immediate-then-move sequence through
// rax.
func (g *generator) loadConstant(n *ir.Node) (regfile.Register, error) {
	v := n.Data.(float64)
	bits := math.Float64bits(v)

	key := regfile.ConstKey(bits)
	if reg, ok := g.rf.Lookup(key); ok {
		return reg, nil
	}

	reg, err := g.rf.Allocate(key)
	if err != nil {
		return nil, err
	}
	g.wr.Ins2c("mov", "rax", fmt.Sprintf("0x%x", bits), fmt.Sprintf("load constant %v", v))
	g.wr.Ins2("movq", reg.String(), "rax")
	return reg, nil
}

// genBinary lowers left then right, emits the accumulating instruction with
// the left register as destination, and returns the result in a temporary
// register bound to a unique per-node key. The stash keeps nested results out
// of sibling operand registers; the left operand's previous value is
// overwritten by the accumulate and is gone.
func (g *generator) genBinary(n *ir.Node) (regfile.Register, error) {
	op := n.Data.(string)
	mn, ok := mnemonics[op]
	if !ok {
		return nil, ir.NameError(ir.ErrUnsupportedOperator, op, n)
	}

	l, err := g.genExpression(n.Children[0])
	if err != nil {
		return nil, err
	}
	r, err := g.genExpression(n.Children[1])
	if err != nil {
		return nil, err
	}

	g.wr.Ins2c(mn, l.String(), r.String(), op)

	g.temps++
	t, err := g.rf.Allocate(regfile.TempKey(g.temps))
	if err != nil {
		return nil, err
	}
	g.wr.Ins2c("movsd", t.String(), l.String(), fmt.Sprintf("result of %s", op))
	return t, nil
}
