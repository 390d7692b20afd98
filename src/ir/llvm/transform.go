// Package llvm transforms the syntax tree into LLVM IR and compiles it to an
// object file using the system installed LLVM runtime. This path bypasses the
// textual assembler backend entirely; it exists for targets where no native
// backend is implemented and for verifying the native backend's output against
// an independent code generator.
package llvm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

import (
	"tinygo.org/x/go-llvm"
)

import (
	ast "caesium/src/ir"
	"caesium/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// funcWrapper pairs a syntax tree function with its LLVM declaration.
type funcWrapper struct {
	ll   llvm.Value // LLVM function declaration.
	node *ast.Node  // Syntax tree node pointer of function.
}

// scope tracks the state of a single function body during generation. Every
// value of the language is a double stored in a stack slot; the induction
// variables of enclosing loops are tracked separately because they may not be
// read in expressions.
type scope struct {
	vars      map[string]llvm.Value // Stack slots by variable name.
	induction util.Stack            // Names of the enclosing loops' induction variables.
}

// ---------------------
// ----- Constants -----
// ---------------------

const mapSize = 8 // Predefined size for a decently sized variable hash table.

// -------------------
// ----- globals -----
// -------------------

var i = llvm.Int64Type()  // i defines the loop counter integer type.
var f = llvm.DoubleType() // f defines the double precision type of all language values.

// ---------------------
// ----- functions -----
// ---------------------

// GenLLVM generates LLVM IR from the root ast.Node of the syntax tree and
// writes the compiled object code to the output file.
func GenLLVM(opt util.Options, root *ast.Node) error {
	if root == nil {
		return errors.New("syntax tree node is <nil>")
	}
	if len(root.Children) < 1 {
		return errors.New("syntax tree node has no children")
	}

	ctx := llvm.NewContext()
	defer ctx.Dispose()

	// Builder constructs LLVM IR instructions on basic block level.
	b := ctx.NewBuilder()
	defer b.Dispose()

	// Set module name equal file name without file extension.
	m := ctx.NewModule(filepath.Base(opt.Src))
	defer m.Dispose()

	// Declare all functions up front, sequentially. Declarations mutate the
	// module and must not run concurrently.
	funcs := make([]funcWrapper, 0, len(root.Children))
	for _, e1 := range root.Children {
		if e1.Typ != ast.FUNCTION {
			return fmt.Errorf("expected node of type FUNCTION, got %s", e1.String())
		}
		fun, err := genFuncHeader(m, e1)
		if err != nil {
			return err
		}
		funcs = append(funcs, funcWrapper{ll: fun, node: e1})
	}

	if opt.Threads > 1 {
		// Parallel. Generate function bodies concurrently; every worker gets
		// its own builder because builders track a current basic block.
		t := opt.Threads
		l := len(funcs)
		if t > l {
			t = l
		}
		n := l / t
		res := l % t

		wg := sync.WaitGroup{}
		wg.Add(t)
		perr := util.NewPerror(t)

		for i1 := 0; i1 < t; i1++ {
			start := i1*n + min(i1, res)
			end := start + n
			if i1 < res {
				end++
			}

			go func(start, end int) {
				defer wg.Done()
				b := ctx.NewBuilder()
				defer b.Dispose()
				for _, e1 := range funcs[start:end] {
					if err := genFuncBody(b, e1.ll, e1.node); err != nil {
						perr.Append(err)
					}
				}
			}(start, end)
		}

		wg.Wait()
		perr.Flush()

		if perr.Len() > 0 {
			errs := make([]error, 0, perr.Len())
			for e1 := range perr.Errors() {
				errs = append(errs, e1)
			}
			perr.Stop()
			return errors.Join(errs...)
		}
		perr.Stop()
	} else {
		// Sequential.
		for _, e1 := range funcs {
			if err := genFuncBody(b, e1.ll, e1.node); err != nil {
				return err
			}
		}
	}

	if opt.Verbose {
		fmt.Println("LLVM IR:")
		m.Dump()
	}

	// Initialise LLVM code generation.
	llvm.InitializeAllTargetInfos()
	llvm.InitializeAllTargetMCs()
	llvm.InitializeAllAsmParsers()
	llvm.InitializeAllAsmPrinters()

	// Construct target triple.
	t, tt, err := genTargetTriple(&opt)
	if err != nil {
		return err
	}

	tm := t.CreateTargetMachine(tt, "generic", "",
		llvm.CodeGenLevelNone,
		llvm.RelocDefault,
		llvm.CodeModelDefault)
	defer tm.Dispose()

	td := tm.CreateTargetData()
	defer td.Dispose()

	m.SetDataLayout(td.String())
	m.SetTarget(tm.Triple())

	// Compile target and store in memory.
	buf, err := tm.EmitToMemoryBuffer(m, llvm.ObjectFile)
	if err != nil {
		return err
	} else if buf.IsNil() {
		return errors.New("could not emit compiled code to memory")
	}

	// Open/create file and write compiled code to output file.
	var out string
	if len(opt.Out) > 0 {
		out = opt.Out
	} else {
		out = fmt.Sprintf("./%s.o", strings.TrimSuffix(filepath.Base(opt.Src), filepath.Ext(opt.Src)))
	}

	fd, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	defer func() {
		if err := fd.Close(); err != nil {
			fmt.Println(err)
		}
	}()
	if _, err = fd.Write(buf.Bytes()); err != nil {
		return err
	}

	return nil
}

// genFuncHeader generates the LLVM IR declaration of a function. All
// parameters and the return value are double precision scalars.
func genFuncHeader(m llvm.Module, n *ast.Node) (llvm.Value, error) {
	name := n.Children[0].Data.(string)

	if !m.NamedFunction(name).IsNil() {
		return llvm.Value{}, fmt.Errorf("duplicate declaration, function %q already declared", name)
	}

	params := n.Children[1].Children
	atyp := make([]llvm.Type, len(params))
	for i1 := range atyp {
		atyp[i1] = f
	}
	ftyp := llvm.FunctionType(f, atyp, false)

	fun := llvm.AddFunction(m, name, ftyp)
	for i1, e1 := range fun.Params() {
		e1.SetName(params[i1].Data.(string))
	}
	return fun, nil
}

// genFuncBody generates the LLVM IR definition of a function. Parameters are
// copied to stack slots so that assignments can overwrite them.
func genFuncBody(b llvm.Builder, fun llvm.Value, n *ast.Node) error {
	bb := llvm.AddBasicBlock(fun, "")
	b.SetInsertPointAtEnd(bb)

	sc := &scope{vars: make(map[string]llvm.Value, mapSize)}
	for _, e1 := range fun.Params() {
		alloc := b.CreateAlloca(e1.Type(), "")
		b.CreateStore(e1, alloc)
		sc.vars[e1.Name()] = alloc
	}

	return genStatementList(b, fun, n.Children[2], sc)
}

// genStatementList generates LLVM IR for the statements of a block in order.
func genStatementList(b llvm.Builder, fun llvm.Value, n *ast.Node, sc *scope) error {
	for _, e1 := range n.Children {
		var err error
		switch e1.Typ {
		case ast.RETURN_STATEMENT:
			err = genReturn(b, e1, sc)
		case ast.ASSIGNMENT_STATEMENT:
			err = genAssign(b, e1, sc)
		case ast.FOR_STATEMENT:
			err = genFor(b, fun, e1, sc)
		default:
			err = ast.NodeError(ast.ErrUnsupportedStatement, e1)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// genReturn generates LLVM IR that terminates the current basic block with a
// return statement.
func genReturn(b llvm.Builder, n *ast.Node, sc *scope) error {
	val, err := genExpression(b, n.Children[0], sc)
	if err != nil {
		return err
	}
	b.CreateRet(val)
	return nil
}

// genAssign generates LLVM IR that stores the value of the right hand side in
// the target variable's stack slot. The first assignment to a name allocates
// its slot.
func genAssign(b llvm.Builder, n *ast.Node, sc *scope) error {
	name := n.Children[0].Data.(string)
	if sc.onInductionStack(name) {
		return ast.NameError(ast.ErrUnsupportedExpression, name, n.Children[0])
	}

	val, err := genExpression(b, n.Children[1], sc)
	if err != nil {
		return err
	}

	dst, ok := sc.vars[name]
	if !ok {
		dst = b.CreateAlloca(f, name)
		sc.vars[name] = dst
	}
	b.CreateStore(val, dst)
	return nil
}

// genFor generates LLVM IR for a counted loop. The trip count is held in an
// integer counter slot; parameter trip counts are truncated from their double
// representation. The loop head tests the counter before every iteration.
func genFor(b llvm.Builder, fun llvm.Value, n *ast.Node, sc *scope) error {
	trip := n.Children[1]
	var init llvm.Value
	switch trip.Typ {
	case ast.INTEGER_DATA:
		init = llvm.ConstInt(i, uint64(trip.Data.(int)), true)
	case ast.IDENTIFIER_DATA:
		val, err := genLoad(b, trip, sc)
		if err != nil {
			return err
		}
		init = b.CreateFPToSI(val, i, "")
	default:
		return ast.NodeError(ast.ErrUnsupportedExpression, trip)
	}

	counter := b.CreateAlloca(i, "")
	b.CreateStore(init, counter)

	head := llvm.AddBasicBlock(fun, "")
	body := llvm.AddBasicBlock(fun, "")
	conv := llvm.AddBasicBlock(fun, "")

	// Loop head: keep iterating while the counter is positive.
	b.CreateBr(head)
	b.SetInsertPointAtEnd(head)
	rem := b.CreateLoad(counter, "")
	cmp := b.CreateICmp(llvm.IntSGT, rem, llvm.ConstInt(i, 0, true), "")
	b.CreateCondBr(cmp, body, conv)

	// Loop body.
	b.SetInsertPointAtEnd(body)
	sc.induction.Push(n.Children[0].Data.(string))
	err := genStatementList(b, fun, n.Children[2], sc)
	sc.induction.Pop()
	if err != nil {
		return err
	}
	rem = b.CreateLoad(counter, "")
	b.CreateStore(b.CreateSub(rem, llvm.ConstInt(i, 1, true), ""), counter)
	b.CreateBr(head)

	// Converge.
	b.SetInsertPointAtEnd(conv)
	return nil
}

// genExpression generates LLVM IR for the expression ast.Node n and returns
// the resulting double precision llvm.Value.
func genExpression(b llvm.Builder, n *ast.Node, sc *scope) (llvm.Value, error) {
	switch n.Typ {
	case ast.FLOAT_DATA:
		return llvm.ConstFloat(f, n.Data.(float64)), nil
	case ast.IDENTIFIER_DATA:
		return genLoad(b, n, sc)
	case ast.EXPRESSION:
		op1, err := genExpression(b, n.Children[0], sc)
		if err != nil {
			return llvm.Value{}, err
		}
		op2, err := genExpression(b, n.Children[1], sc)
		if err != nil {
			return llvm.Value{}, err
		}
		switch n.Data.(string) {
		case "+":
			return b.CreateFAdd(op1, op2, ""), nil
		case "-":
			return b.CreateFSub(op1, op2, ""), nil
		case "*":
			return b.CreateFMul(op1, op2, ""), nil
		case "/":
			return b.CreateFDiv(op1, op2, ""), nil
		default:
			return llvm.Value{}, ast.NameError(ast.ErrUnsupportedOperator, n.Data.(string), n)
		}
	default:
		return llvm.Value{}, ast.NodeError(ast.ErrUnsupportedExpression, n)
	}
}

// genLoad generates an LLVM IR load of the named variable's stack slot.
// Induction variables only drive their loop's counter and may not be read.
func genLoad(b llvm.Builder, n *ast.Node, sc *scope) (llvm.Value, error) {
	name := n.Data.(string)
	if sc.onInductionStack(name) {
		return llvm.Value{}, ast.NameError(ast.ErrUnsupportedExpression, name, n)
	}
	src, ok := sc.vars[name]
	if !ok {
		return llvm.Value{}, ast.NameError(ast.ErrUndefinedName, name, n)
	}
	return b.CreateLoad(src, ""), nil
}

// onInductionStack reports whether name is the induction variable of an
// enclosing loop.
func (sc *scope) onInductionStack(name string) bool {
	for i1 := 1; i1 <= sc.induction.Size(); i1++ {
		if sc.induction.Get(i1).(string) == name {
			return true
		}
	}
	return false
}

// genTargetTriple generates an LLVM target triple given the compiler options.
func genTargetTriple(opt *util.Options) (llvm.Target, string, error) {
	var triple string

	if opt.Target == util.UnknownArch {
		// Use compiler host's default triple.
		triple = llvm.DefaultTargetTriple()
	} else {
		sb := strings.Builder{}
		sb.Grow(20)

		switch opt.Target {
		case util.Amd64:
			sb.WriteString("x86_64")
		case util.Aarch64:
			sb.WriteString("aarch64")
		case util.Riscv64:
			sb.WriteString("riscv64")
		default:
			return llvm.Target{}, "", fmt.Errorf("unsupported target architecture identifier %d",
				opt.Target)
		}
		sb.WriteString("-pc-linux-gnu")
		triple = sb.String()
	}

	if opt.Verbose {
		fmt.Printf("compiling for target %s\n", triple)
	}
	llvm.InitializeAllTargets()
	if tt, err := llvm.GetTargetFromTriple(triple); err != nil {
		return llvm.Target{}, "", err
	} else {
		return tt, triple, nil
	}
}
