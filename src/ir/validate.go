// validate.go checks the syntax tree against the supported sub-language
// before any code generation starts. A tree that passes validation can only
// fail lowering by exhausting the register pool; every grammar violation is
// caught here, so no partial instruction output is ever produced for it.

package ir

import (
	"errors"
	"sync"

	"caesium/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// scope tracks which names may be referenced at the current point of a
// function body walk. Induction variables are held in a stack of active
// loops; they are parsed but never usable.
type scope struct {
	fun       *Symbol    // Function being validated.
	defined   SymTab     // Names defined so far: parameters and already assigned locals.
	induction util.Stack // Active loop induction variable names, innermost on top.
}

// ---------------------
// ----- functions -----
// ---------------------

// ValidateTree validates all functions of the syntax tree. With opt.Threads
// greater than one the functions are validated by parallel workers, one
// function per job, and all reported errors are joined.
func ValidateTree(opt util.Options) error {
	if opt.Threads > 1 {
		pe := util.NewPerror(len(Funcs.F))
		wg := sync.WaitGroup{}
		for _, e1 := range Funcs.F {
			wg.Add(1)
			go func(f *Symbol) {
				defer wg.Done()
				pe.Append(validateFunction(f))
			}(e1)
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

	for _, e1 := range Funcs.F {
		if err := validateFunction(e1); err != nil {
			return err
		}
	}
	return nil
}

// validateFunction validates one function body in source order.
func validateFunction(fun *Symbol) error {
	sc := scope{
		fun:     fun,
		defined: SymTab{HT: make(map[string]*Symbol, hTabSize)},
	}
	for _, e1 := range fun.Locals.HT {
		if e1.Typ == SymParam {
			sc.defined.Add(e1)
		}
	}
	return validateStatementList(fun.Node.Children[2], &sc)
}

// validateStatementList dispatches on the closed set of statement shapes.
func validateStatementList(n *Node, sc *scope) error {
	for _, e1 := range n.Children {
		switch e1.Typ {
		case RETURN_STATEMENT:
			if err := validateExpression(e1.Children[0], sc); err != nil {
				return err
			}
		case ASSIGNMENT_STATEMENT:
			target := e1.Children[0]
			tname := target.Data.(string)
			if sc.onInductionStack(tname) {
				// Induction variables are unusable by design; assigning to one
				// would silently shadow it.
				return NameError(ErrUnsupportedStatement, tname, target)
			}
			if err := validateExpression(e1.Children[1], sc); err != nil {
				return err
			}
			// The target is defined for every following statement.
			if s, ok := sc.fun.Locals.Get(tname); ok {
				sc.defined.Add(s)
			}
		case FOR_STATEMENT:
			if err := validateFor(e1, sc); err != nil {
				return err
			}
		default:
			return NodeError(ErrUnsupportedStatement, e1)
		}
	}
	return nil
}

// validateFor checks the one supported loop shape: the trip count must be a
// parameter name or an integer literal, and the induction variable must not
// be referenced inside the body.
func validateFor(n *Node, sc *scope) error {
	trip := n.Children[1]
	switch trip.Typ {
	case INTEGER_DATA:
		// Literal trip count, resolved at compile time.
	case IDENTIFIER_DATA:
		name := trip.Data.(string)
		s, ok := sc.defined.Get(name)
		if !ok {
			return NameError(ErrUndefinedName, name, trip)
		}
		if s.Typ != SymParam {
			// Locals live in floating registers; only parameters still hold
			// their integer-class argument slot.
			return NodeError(ErrUnsupportedExpression, trip)
		}
	default:
		return NodeError(ErrUnsupportedExpression, trip)
	}

	sc.induction.Push(n.Children[0].Data.(string))
	if err := validateStatementList(n.Children[2], sc); err != nil {
		return err
	}
	sc.induction.Pop()
	return nil
}

// validateExpression dispatches on the closed set of expression shapes.
func validateExpression(n *Node, sc *scope) error {
	switch n.Typ {
	case FLOAT_DATA:
		return nil
	case IDENTIFIER_DATA:
		name := n.Data.(string)
		if sc.onInductionStack(name) {
			return NameError(ErrUnsupportedExpression, name, n)
		}
		if _, ok := sc.defined.Get(name); !ok {
			return NameError(ErrUndefinedName, name, n)
		}
		return nil
	case EXPRESSION:
		switch n.Data.(string) {
		case "+", "-", "*", "/":
		default:
			return NameError(ErrUnsupportedOperator, n.Data.(string), n)
		}
		if err := validateExpression(n.Children[0], sc); err != nil {
			return err
		}
		return validateExpression(n.Children[1], sc)
	default:
		return NodeError(ErrUnsupportedExpression, n)
	}
}

// onInductionStack reports whether name is an active loop induction variable.
func (sc *scope) onInductionStack(name string) bool {
	for i1 := sc.induction.Size(); i1 > 0; i1-- {
		if sc.induction.Get(i1).(string) == name {
			return true
		}
	}
	return false
}
