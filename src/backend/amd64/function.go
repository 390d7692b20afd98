package amd64

import (
	"fmt"

	"caesium/src/backend/regfile"
	"caesium/src/ir"
	"caesium/src/util"
)

// genFunction generates one function. The generated stream moves through the
// states prologue, statement dispatch, epilogue; there is no backward
// transition and any error aborts the whole function with no partial output.
func genFunction(n *ir.Node, wr *util.Writer, rf regfile.Pool) error {
	g := generator{
		fun: n.Entry,
		wr:  wr,
		rf:  rf,
	}

	g.prologue()
	if err := g.genStatementList(n.Children[2]); err != nil {
		return err
	}
	g.epilogue()
	return nil
}

// prologue emits the section marker, the global symbol export, the function
// label and the stack frame setup.
func (g *generator) prologue() {
	g.wr.Write("section .text\n")
	g.wr.Write("global %s\n", g.fun.Name)
	g.wr.Label(g.fun.Name)
	g.wr.Comment("function prologue")
	g.wr.Ins1("push", "rbp")
	g.wr.Ins2("mov", "rbp", "rsp")
	g.wr.Comment("scalar args arrive in rdi, rsi, rdx, rcx, r8, r9")
}

// epilogue emits the inverse of the prologue and returns. The return value,
// if any, has already been moved into xmm0 by the return lowering.
func (g *generator) epilogue() {
	g.wr.Comment("function epilogue")
	g.wr.Ins1("pop", "rbp")
	g.wr.Write("\tret\n")
}

// genStatementList lowers the statement sequence in source order, dispatching
// on the closed set of statement shapes.
func (g *generator) genStatementList(n *ir.Node) error {
	for _, e1 := range n.Children {
		switch e1.Typ {
		case ir.RETURN_STATEMENT:
			if err := g.genReturn(e1); err != nil {
				return err
			}
		case ir.ASSIGNMENT_STATEMENT:
			if err := g.genAssignment(e1); err != nil {
				return err
			}
		case ir.FOR_STATEMENT:
			if err := g.genFor(e1); err != nil {
				return err
			}
		default:
			return ir.NodeError(ir.ErrUnsupportedStatement, e1)
		}
	}
	return nil
}

// genReturn lowers the returned expression and reconciles its register with
// the designated return value register xmm0.
func (g *generator) genReturn(n *ir.Node) error {
	reg, err := g.genExpression(n.Children[0])
	if err != nil {
		return err
	}
	if reg.Id() != retReg {
		g.wr.Ins2c("movsd", regf[retReg], reg.String(), "move result into return register")
	}
	return nil
}

// genAssignment lowers the right hand side and moves the result into the
// target's register. A target never seen before is bound to a fresh register,
// defining an in-register local.
func (g *generator) genAssignment(n *ir.Node) error {
	target := n.Children[0]
	name := target.Data.(string)
	if g.onInductionStack(name) {
		return ir.NameError(ir.ErrUnsupportedStatement, name, target)
	}

	res, err := g.genExpression(n.Children[1])
	if err != nil {
		return err
	}

	key := regfile.ParamKey(name)
	dst, ok := g.rf.Lookup(key)
	if !ok {
		if dst, err = g.rf.Allocate(key); err != nil {
			return err
		}
	}
	if dst.Id() != res.Id() {
		g.wr.Ins2c("movsd", dst.String(), res.String(), fmt.Sprintf("assign %s", name))
	}
	return nil
}

// genFor lowers the one supported loop shape into a counter initialization,
// a label, the lowered body and a decrement-and-branch-back sequence. The
// trip count is either a literal immediate or a parameter's integer class
// argument register; the induction variable is never bound to anything and
// referencing it inside the body is an error, not a silent success. The shape
// is do-while: the body always runs at least once.
func (g *generator) genFor(n *ir.Node) error {
	head := g.labels.New(util.LabelLoopHead)
	id := g.labels.Count(util.LabelLoopHead)
	g.wr.Comment(fmt.Sprintf("begin loop %d", id))

	trip := n.Children[1]
	switch trip.Typ {
	case ir.INTEGER_DATA:
		g.wr.Ins2imm("mov", counter, trip.Data.(int))
	case ir.IDENTIFIER_DATA:
		name := trip.Data.(string)
		s, ok := g.fun.Locals.Get(name)
		if !ok {
			return ir.NameError(ir.ErrUndefinedName, name, trip)
		}
		if s.Typ != ir.SymParam {
			return ir.NodeError(ir.ErrUnsupportedExpression, trip)
		}
		g.wr.Ins2c("mov", counter, argRegs[s.Seq], fmt.Sprintf("trip count from %s", name))
	default:
		return ir.NodeError(ir.ErrUnsupportedExpression, trip)
	}

	g.wr.Label(head)
	g.induction.Push(n.Children[0].Data.(string))
	if err := g.genStatementList(n.Children[2]); err != nil {
		return err
	}
	g.induction.Pop()
	g.wr.Ins1("dec", counter)
	g.wr.Ins1("jnz", head)
	g.wr.Comment(fmt.Sprintf("end loop %d", id))
	return nil
}

// onInductionStack reports whether name is an active loop induction variable.
func (g *generator) onInductionStack(name string) bool {
	for i1 := 1; i1 <= g.induction.Size(); i1++ {
		if g.induction.Get(i1).(string) == name {
			return true
		}
	}
	return false
}
