// stack.go provides a linked list type stack that holds arbitrary data.
// The bottom element is the first entry into the stack, while the top is
// the last entry to be added to the stack. The stack does not store <nil>
// values. The code generator uses it for definition scopes and active loop
// induction variables.

package util

import "sync"

// StackElement holds data in the Stack linked list.
type StackElement struct {
	E    interface{}   // Data held by stack entry.
	next *StackElement // Pointer to the entry below this StackElement.
}

// Stack is a linked list stack.
type Stack struct {
	size int           // Number of entries in the stack.
	top  *StackElement // The last element to be added to the stack.
	mx   sync.Mutex    // For synchronising multiple worker threads to one stack.
}

// Push adds a new element to the top of the stack.
func (s *Stack) Push(e interface{}) {
	if e == nil {
		return
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	s.top = &StackElement{E: e, next: s.top}
	s.size++
}

// Pop removes and returns the last inserted element on the stack.
// If no element has been added <nil> is returned.
func (s *Stack) Pop() interface{} {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.size == 0 {
		return nil
	}
	e := s.top
	s.top = e.next
	s.size--
	return e.E
}

// Peek works just like Pop, but it does not remove the element from the stack.
func (s *Stack) Peek() interface{} {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.size == 0 {
		return nil
	}
	return s.top.E
}

// Size returns the number of elements in the stack.
func (s *Stack) Size() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.size
}

// Get returns the nth element from the stack, top down, not zero indexed.
// Get(1) returns the top element, like Peek. Get(Stack.size) returns the
// bottom element. If the index n is out of range or negative <nil> is
// returned. Get does not remove elements from the stack.
func (s *Stack) Get(n int) interface{} {
	s.mx.Lock()
	defer s.mx.Unlock()
	if n < 1 || n > s.size {
		return nil
	}
	e1 := s.top
	for i1 := 1; i1 < n; i1++ {
		e1 = e1.next
	}
	return e1.E
}
