// Package amd64 lowers the syntax tree to textual NASM x86-64 assembly under
// the fixed scalar calling convention: the first six arguments arrive in
// rdi, rsi, rdx, rcx, r8 and r9, are moved into xmm registers before use, and
// the return value is produced in xmm0. The stack grows downwards and rbp is
// used as frame pointer.
package amd64

import (
	"errors"
	"fmt"
	"sync"

	"caesium/src/backend/regfile"
	"caesium/src/ir"
	"caesium/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// register holds the identity of one xmm register. It implements
// regfile.Register.
type register struct {
	id int // Zero indexed id of register.
}

// pool implements regfile.Pool over the 16 xmm registers. The free sequence
// is popped in fixed declaration order (xmm0 first) and a binding lasts until
// Reset; there is no spilling and no liveness analysis, which bounds one
// function to at most 16 distinct symbolic values.
type pool struct {
	free  []int                           // Ids of unbound registers, in allocation order.
	bound map[regfile.Key]regfile.Register // Symbolic key to assigned register.
}

// generator holds the state of one in-flight function compilation. It is
// exclusively owned by one worker and never shared.
type generator struct {
	fun       *ir.Symbol   // Function being lowered.
	wr        *util.Writer // Output handler.
	rf        regfile.Pool // Register pool owned by this compilation.
	labels    util.Labels  // Per-function label generator.
	induction util.Stack   // Active loop induction variable names, innermost on top.
	temps     int          // Number of expression temporaries allocated so far.
}

// ---------------------
// ----- Constants -----
// ---------------------

// xmmRegs is the number of floating point capable vector registers.
const xmmRegs = 16

// retReg is the id of the designated return value register, xmm0.
const retReg = 0

// counter is the fixed general purpose register used as loop counter. Loops
// clobber it, so a trip count parameter in argument slot 3 (rcx itself) and
// nested loops share one counter; both are documented limits inherited from
// the lowering strategy.
const counter = "rcx"

// -------------------
// ----- Globals -----
// -------------------

// regf contains string literals for the floating point registers.
var regf = [xmmRegs]string{
	"xmm0",
	"xmm1",
	"xmm2",
	"xmm3",
	"xmm4",
	"xmm5",
	"xmm6",
	"xmm7",
	"xmm8",
	"xmm9",
	"xmm10",
	"xmm11",
	"xmm12",
	"xmm13",
	"xmm14",
	"xmm15",
}

// argRegs contains the integer class argument registers of the calling
// convention, ordered by argument slot.
var argRegs = [ir.MaxParams]string{
	"rdi",
	"rsi",
	"rdx",
	"rcx",
	"r8",
	"r9",
}

// ---------------------
// ----- Functions -----
// ---------------------

// Id returns the zero indexed id of the register r.
func (r *register) Id() int {
	return r.id
}

// String returns the assembler string of the register r.
func (r *register) String() string {
	return regf[r.id]
}

// NewPool returns a register pool over the full xmm register bank.
func NewPool() regfile.Pool {
	p := &pool{}
	p.Reset()
	return p
}

// Allocate returns the register bound to key k. If k is unbound the next
// register of the free sequence is popped and bound to it; repeated requests
// for the same key return the same register. When the free sequence is empty
// and k is new the compilation has failed: there is no spill strategy.
func (p *pool) Allocate(k regfile.Key) (regfile.Register, error) {
	if r, ok := p.bound[k]; ok {
		return r, nil
	}
	if len(p.free) == 0 {
		return nil, fmt.Errorf("%w: no register left for %s", ir.ErrRegisterPoolExhausted, k)
	}
	r := &register{id: p.free[0]}
	p.free = p.free[1:]
	p.bound[k] = r
	return r, nil
}

// Lookup returns the register bound to key k, if any, without allocating.
func (p *pool) Lookup(k regfile.Key) (regfile.Register, bool) {
	r, ok := p.bound[k]
	return r, ok
}

// Free returns the number of registers remaining in the free sequence.
func (p *pool) Free() int {
	return len(p.free)
}

// Reset unbinds every key and restores the full free sequence. Must only be
// called between independent top-level compilations.
func (p *pool) Reset() {
	p.free = make([]int, xmmRegs)
	for i1 := range p.free {
		p.free[i1] = i1
	}
	p.bound = make(map[regfile.Key]regfile.Register, xmmRegs)
}

// GenAmd64 generates NASM x86-64 assembler code from the syntax tree. Every
// function is an independent compilation with its own register pool, writer
// and label state; with opt.Threads greater than one the functions are
// compiled by parallel workers and burst flushed as whole units.
func GenAmd64(opt util.Options) error {
	funcs := make([]*ir.Node, 0, len(ir.Root.Children))
	for _, e1 := range ir.Root.Children {
		if e1.Typ == ir.FUNCTION {
			funcs = append(funcs, e1)
		}
	}

	if opt.Threads > 1 {
		// Parallel.
		wg := sync.WaitGroup{} // Used for synchronising worker threads with main thread.

		t := opt.Threads // Max number of threads to initiate.
		l := len(funcs)  // Number of functions defined in program.
		if t > l {
			t = l // Cannot launch more threads than functions.
		}
		if t < 1 {
			return errors.New("source defines no functions")
		}
		n := l / t   // Number of jobs per worker thread.
		res := l % t // Residual work for the res first threads.

		pe := util.NewPerror(t)

		for i1 := 0; i1 < t; i1++ {
			m := n
			if i1 < res {
				m++
			}
			start := i1*n + min(i1, res)
			wg.Add(1)
			go func(i, j int) {
				defer wg.Done()
				for i2 := 0; i2 < j; i2++ {
					w := util.NewWriter() // Create output handler.
					rf := NewPool()       // Register pool exclusively owned by this compilation.
					if err := genFunction(funcs[i+i2], &w, rf); err != nil {
						// Drop the partial burst: a failed compilation
						// contributes no instruction output.
						pe.Append(err)
						continue
					}
					w.Flush()
					w.Close()
				}
			}(start, m)
		}

		wg.Wait()

		if pe.Len() > 0 {
			errs := make([]error, 0, pe.Len())
			for err := range pe.Errors() {
				errs = append(errs, err)
			}
			pe.Stop()
			return errors.Join(errs...)
		}
		pe.Stop()
		return nil
	}

	// Sequential: emit in source order.
	if len(funcs) == 0 {
		return errors.New("source defines no functions")
	}
	w := util.NewWriter()
	for _, e1 := range funcs {
		rf := NewPool()
		if err := genFunction(e1, &w, rf); err != nil {
			return err
		}

		// Burst write function assembly to output.
		w.Flush()
	}
	w.Close()
	return nil
}
