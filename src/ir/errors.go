// errors.go defines the closed error taxonomy of the compiler core. Every
// failure is fatal to the in-flight compilation; nothing is retried or
// defaulted, and every error carries the identity of the offending construct.

package ir

import (
	"errors"
	"fmt"
)

// ---------------------
// ----- Constants -----
// ---------------------

var (
	// ErrUnsupportedExpression reports an expression node outside the supported
	// set of name references, numeric literals and binary operations.
	ErrUnsupportedExpression = errors.New("unsupported expression")

	// ErrUnsupportedStatement reports a statement node outside the supported
	// set of return, assignment and counted loop.
	ErrUnsupportedStatement = errors.New("unsupported statement")

	// ErrUnsupportedOperator reports a binary operator outside {+, -, *, /}.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrUnsupportedArity reports a function declaring more parameters than
	// there are argument passing registers.
	ErrUnsupportedArity = errors.New("unsupported arity")

	// ErrRegisterPoolExhausted reports that a new symbolic key requested a
	// register while the free sequence was empty. There is no spill strategy.
	ErrRegisterPoolExhausted = errors.New("register pool exhausted")

	// ErrUndefinedName reports a name reference that resolves to no parameter
	// or previously assigned local.
	ErrUndefinedName = errors.New("undefined name")
)

// ---------------------
// ----- functions -----
// ---------------------

// NodeError wraps sentinel err with the offending node's description and
// source position, so that callers can match with errors.Is while diagnostics
// keep the construct's identity.
func NodeError(err error, n *Node) error {
	return fmt.Errorf("%w: %s (line %d:%d)", err, n, n.Line, n.Pos)
}

// NameError wraps sentinel err with an identifier name and the position of the
// node that referenced it.
func NameError(err error, name string, n *Node) error {
	return fmt.Errorf("%w: %q (line %d:%d)", err, name, n.Line, n.Pos)
}
