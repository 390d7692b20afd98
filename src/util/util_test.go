// Tests the label generator, the linked list stack and the buffered output
// writer plumbing shared by the code generator workers.

package util

import (
	"bytes"
	"strings"
	"testing"
)

// TestLabels verifies per-kind monotonic numbering and instance isolation.
func TestLabels(t *testing.T) {
	l := Labels{}
	if s := l.New(LabelLoopHead); s != ".Lloop_1" {
		t.Errorf("expected %q, got %q", ".Lloop_1", s)
	}
	if s := l.New(LabelLoopHead); s != ".Lloop_2" {
		t.Errorf("expected %q, got %q", ".Lloop_2", s)
	}
	if s := l.New(LabelJump); s != ".Ljump_1" {
		t.Errorf("expected %q, got %q", ".Ljump_1", s)
	}
	if n := l.Count(LabelLoopHead); n != 2 {
		t.Errorf("expected 2 loop labels, got %d", n)
	}

	// A fresh instance starts over; numbering is per function compilation.
	l2 := Labels{}
	if s := l2.New(LabelLoopHead); s != ".Lloop_1" {
		t.Errorf("expected fresh instance to restart at %q, got %q", ".Lloop_1", s)
	}

	if s := l.New(LabelKinds); !strings.HasPrefix(s, ";") {
		t.Errorf("expected comment for out of range label kind, got %q", s)
	}
}

// TestStack verifies LIFO order and top-down indexed access.
func TestStack(t *testing.T) {
	s := Stack{}
	if s.Pop() != nil || s.Peek() != nil {
		t.Error("empty stack returned an element")
	}

	s.Push("a")
	s.Push("b")
	s.Push("c")
	if s.Size() != 3 {
		t.Fatalf("expected size 3, got %d", s.Size())
	}
	if e := s.Get(1); e.(string) != "c" {
		t.Errorf("expected top element %q, got %v", "c", e)
	}
	if e := s.Get(3); e.(string) != "a" {
		t.Errorf("expected bottom element %q, got %v", "a", e)
	}
	if e := s.Get(4); e != nil {
		t.Errorf("expected out of range access to return <nil>, got %v", e)
	}

	if e := s.Pop(); e.(string) != "c" {
		t.Errorf("expected %q, got %v", "c", e)
	}
	if e := s.Peek(); e.(string) != "b" {
		t.Errorf("expected %q, got %v", "b", e)
	}
	if s.Size() != 2 {
		t.Errorf("expected size 2, got %d", s.Size())
	}
}

// TestWriterBursts verifies that flushed bursts arrive in order and that Close
// drains everything before returning.
func TestWriterBursts(t *testing.T) {
	buf := bytes.Buffer{}
	ListenWrite(2, &buf)

	w := NewWriter()
	w.Ins2("mov", "rbp", "rsp")
	w.Flush()
	w.Label("f")
	w.Ins1("push", "rbp")
	w.Flush()
	w.Close()

	Close()

	exp := "\tmov\trbp, rsp\nf:\n\tpush\trbp\n"
	if buf.String() != exp {
		t.Errorf("expected %q, got %q", exp, buf.String())
	}
}

// TestPerror verifies collection of errors from concurrent appenders and that
// <nil> appends are dropped.
func TestPerror(t *testing.T) {
	pe := NewPerror(4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pe.Append(errTest("one"))
		pe.Append(nil)
		pe.Append(errTest("two"))
	}()
	<-done

	if pe.Len() != 2 {
		t.Fatalf("expected 2 errors, got %d", pe.Len())
	}
	n := 0
	for range pe.Errors() {
		n++
	}
	if n != 2 {
		t.Errorf("expected iterator to yield 2 errors, got %d", n)
	}

	pe.Flush()
	if pe.Len() != 0 {
		t.Errorf("expected empty buffer after flush, got %d", pe.Len())
	}
	pe.Stop()
}

// errTest is a trivial error type for the perror tests.
type errTest string

func (e errTest) Error() string { return string(e) }
