// Tests the amd64 backend by compiling small source functions and comparing
// the emitted NASM streams against hand written expectations, plus direct
// tests of the register pool's binding discipline.

package amd64

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"caesium/src/backend/regfile"
	"caesium/src/frontend"
	"caesium/src/ir"
	"caesium/src/util"
)

// compile parses src, builds the symbol table and runs the backend with the
// given worker count. The emitted assembly and the backend error are returned.
func compile(t *testing.T, src string, threads int) (string, error) {
	t.Helper()
	if err := frontend.Parse(src); err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	if err := ir.GenerateSymTab(); err != nil {
		t.Fatalf("symbol table generation failed: %s", err)
	}
	buf := bytes.Buffer{}
	util.ListenWrite(threads, &buf)
	err := GenAmd64(util.Options{Threads: threads, Target: util.Amd64})
	util.Close()
	return buf.String(), err
}

// TestPoolBinding verifies that allocation by symbolic key is idempotent and
// that registers are handed out in fixed declaration order.
func TestPoolBinding(t *testing.T) {
	p := NewPool()

	a, err := p.Allocate(regfile.ParamKey("a"))
	if err != nil {
		t.Fatalf("allocate failed: %s", err)
	}
	if a.Id() != 0 || a.String() != "xmm0" {
		t.Errorf("expected first allocation to be xmm0, got %s", a.String())
	}

	b, err := p.Allocate(regfile.ParamKey("b"))
	if err != nil {
		t.Fatalf("allocate failed: %s", err)
	}
	if b.Id() != 1 {
		t.Errorf("expected second allocation to be xmm1, got %s", b.String())
	}

	// Repeated requests for a bound key return the same register.
	if r, err := p.Allocate(regfile.ParamKey("a")); err != nil {
		t.Fatalf("allocate failed: %s", err)
	} else if r.Id() != a.Id() {
		t.Errorf("expected repeated allocation of %q to return %s, got %s", "a", a.String(), r.String())
	}
	if p.Free() != xmmRegs-2 {
		t.Errorf("expected %d free registers, got %d", xmmRegs-2, p.Free())
	}

	// Lookup never allocates.
	if _, ok := p.Lookup(regfile.ParamKey("c")); ok {
		t.Error("lookup of unbound key reported a binding")
	}
	if r, ok := p.Lookup(regfile.ParamKey("b")); !ok || r.Id() != b.Id() {
		t.Errorf("expected lookup of %q to return %s", "b", b.String())
	}
}

// TestPoolExhausted verifies that the 17th distinct key fails with the pool
// exhaustion sentinel and that Reset restores the full bank.
func TestPoolExhausted(t *testing.T) {
	p := NewPool()
	for i1 := 0; i1 < xmmRegs; i1++ {
		if _, err := p.Allocate(regfile.TempKey(i1)); err != nil {
			t.Fatalf("allocation %d failed: %s", i1, err)
		}
	}
	if p.Free() != 0 {
		t.Fatalf("expected empty free sequence, got %d", p.Free())
	}

	_, err := p.Allocate(regfile.TempKey(xmmRegs))
	if err == nil {
		t.Fatal("expected pool exhaustion, got register")
	}
	if !errors.Is(err, ir.ErrRegisterPoolExhausted) {
		t.Errorf("expected %q, got %q", ir.ErrRegisterPoolExhausted, err)
	}

	// A bound key still resolves after exhaustion.
	if _, err := p.Allocate(regfile.TempKey(3)); err != nil {
		t.Errorf("bound key failed to resolve after exhaustion: %s", err)
	}

	p.Reset()
	if p.Free() != xmmRegs {
		t.Errorf("expected %d free registers after reset, got %d", xmmRegs, p.Free())
	}
	if _, ok := p.Lookup(regfile.TempKey(3)); ok {
		t.Error("binding survived reset")
	}
}

// TestGenAdd pins the full instruction stream of a two parameter addition.
func TestGenAdd(t *testing.T) {
	got, err := compile(t, "def add(a, b):\n    return a + b\n", 1)
	if err != nil {
		t.Fatalf("compilation failed: %s", err)
	}

	exp := `section .text
global add
add:
	; function prologue
	push	rbp
	mov	rbp, rsp
	; scalar args arrive in rdi, rsi, rdx, rcx, r8, r9
	movq	xmm0, rdi	; load argument a
	movq	xmm1, rsi	; load argument b
	addsd	xmm0, xmm1	; +
	movsd	xmm2, xmm0	; result of +
	movsd	xmm0, xmm2	; move result into return register
	; function epilogue
	pop	rbp
	ret
`
	if got != exp {
		t.Errorf("instruction stream mismatch:\nexpected:\n%s\ngot:\n%s", exp, got)
	}
}

// TestGenScale pins the instruction stream of a counted loop with a parameter
// trip count, an assignment and a constant operand.
func TestGenScale(t *testing.T) {
	got, err := compile(t, "def scale(x, n):\n    for i in range(n):\n        x = x * 2.0\n    return x\n", 1)
	if err != nil {
		t.Fatalf("compilation failed: %s", err)
	}

	exp := `section .text
global scale
scale:
	; function prologue
	push	rbp
	mov	rbp, rsp
	; scalar args arrive in rdi, rsi, rdx, rcx, r8, r9
	; begin loop 1
	mov	rcx, rsi	; trip count from n
.Lloop_1:
	movq	xmm0, rdi	; load argument x
	mov	rax, 0x4000000000000000	; load constant 2
	movq	xmm1, rax
	mulsd	xmm0, xmm1	; *
	movsd	xmm2, xmm0	; result of *
	movsd	xmm0, xmm2	; assign x
	dec	rcx
	jnz	.Lloop_1
	; end loop 1
	; function epilogue
	pop	rbp
	ret
`
	if got != exp {
		t.Errorf("instruction stream mismatch:\nexpected:\n%s\ngot:\n%s", exp, got)
	}
}

// TestGenLiteralTripCount verifies that a literal trip count becomes an
// immediate counter initialization.
func TestGenLiteralTripCount(t *testing.T) {
	got, err := compile(t, "def f(a):\n    for i in range(3):\n        a = a + a\n    return a\n", 1)
	if err != nil {
		t.Fatalf("compilation failed: %s", err)
	}
	if !strings.Contains(got, "\tmov\trcx, 3\n") {
		t.Errorf("expected immediate counter initialization, got:\n%s", got)
	}
}

// TestGenConstantCanonicalization verifies that equal constants share one
// register load and that different bit patterns do not.
func TestGenConstantCanonicalization(t *testing.T) {
	got, err := compile(t, "def f(a):\n    return 1.5 + 1.5\n", 1)
	if err != nil {
		t.Fatalf("compilation failed: %s", err)
	}
	if n := strings.Count(got, "load constant 1.5"); n != 1 {
		t.Errorf("expected 1 constant load, got %d:\n%s", n, got)
	}

	got, err = compile(t, "def g(a):\n    return 1.5 + 1.25\n", 1)
	if err != nil {
		t.Fatalf("compilation failed: %s", err)
	}
	if n := strings.Count(got, "load constant"); n != 2 {
		t.Errorf("expected 2 constant loads, got %d:\n%s", n, got)
	}
}

// TestGenDeterminism verifies that recompiling the same source produces a byte
// identical stream.
func TestGenDeterminism(t *testing.T) {
	src := "def f(a, b):\n    for i in range(4):\n        a = a + b\n    return a\n" +
		"def g(x):\n    return x / 2.0\n"

	first, err := compile(t, src, 1)
	if err != nil {
		t.Fatalf("compilation failed: %s", err)
	}
	second, err := compile(t, src, 1)
	if err != nil {
		t.Fatalf("recompilation failed: %s", err)
	}
	if first != second {
		t.Errorf("recompilation differs:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

// TestGenPoolExhaustion verifies that a function naming more values than the
// register bank holds fails with the exhaustion sentinel and contributes no
// instruction output.
func TestGenPoolExhaustion(t *testing.T) {
	// Nine distinct constants and the eight accumulation temporaries of the
	// left associative chain name 17 values, one more than the bank holds.
	got, err := compile(t,
		"def f():\n    return 1.0 + 2.0 + 3.0 + 4.0 + 5.0 + 6.0 + 7.0 + 8.0 + 9.0\n", 1)
	if err == nil {
		t.Fatal("expected pool exhaustion, got success")
	}
	if !errors.Is(err, ir.ErrRegisterPoolExhausted) {
		t.Errorf("expected %q, got %q", ir.ErrRegisterPoolExhausted, err)
	}
	if len(got) != 0 {
		t.Errorf("failed compilation produced partial output:\n%s", got)
	}
}

// TestGenEpilogueLast verifies that every emitted function stream ends with
// the frame teardown and return.
func TestGenEpilogueLast(t *testing.T) {
	got, err := compile(t, "def f(a):\n    return a\n", 1)
	if err != nil {
		t.Fatalf("compilation failed: %s", err)
	}
	if !strings.HasSuffix(got, "\tpop\trbp\n\tret\n") {
		t.Errorf("expected stream to end with epilogue, got:\n%s", got)
	}
}

// TestGenParallel verifies that parallel workers emit every function as an
// uninterleaved burst and that a failing function drops its output without
// taking the healthy ones with it.
func TestGenParallel(t *testing.T) {
	src := "def f(a):\n    return a\n" +
		"def g(b):\n    return b + b\n" +
		"def h(c):\n    return c / 2.0\n"
	got, err := compile(t, src, 3)
	if err != nil {
		t.Fatalf("compilation failed: %s", err)
	}
	for _, name := range []string{"f", "g", "h"} {
		if !strings.Contains(got, "global "+name+"\n") {
			t.Errorf("expected function %q in output:\n%s", name, got)
		}
		if !strings.Contains(got, "global "+name+"\n"+name+":\n\t; function prologue\n") {
			t.Errorf("burst of function %q was interleaved:\n%s", name, got)
		}
	}

	// One failing function: its burst is dropped, the healthy one survives.
	src = "def good(a):\n    return a\n" +
		"def bad(a):\n    return missing\n"
	got, err = compile(t, src, 2)
	if err == nil {
		t.Fatal("expected error for undefined name, got success")
	}
	if !errors.Is(err, ir.ErrUndefinedName) {
		t.Errorf("expected %q, got %q", ir.ErrUndefinedName, err)
	}
	if !strings.Contains(got, "global good\n") {
		t.Errorf("expected healthy function in output:\n%s", got)
	}
	if strings.Contains(got, "global bad\n") {
		t.Errorf("failed function produced partial output:\n%s", got)
	}
}

// TestGenInductionVariableUse verifies that reading the induction variable
// inside the loop body is rejected rather than silently lowered.
func TestGenInductionVariableUse(t *testing.T) {
	_, err := compile(t, "def f(a, n):\n    for i in range(n):\n        a = a + i\n    return a\n", 1)
	if err == nil {
		t.Fatal("expected error for induction variable use, got success")
	}
	if !errors.Is(err, ir.ErrUnsupportedExpression) {
		t.Errorf("expected %q, got %q", ir.ErrUnsupportedExpression, err)
	}
}
