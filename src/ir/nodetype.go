package ir

import (
	"fmt"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// NodeType differentiates the types of nodes in the intermediate syntax tree.
type NodeType int

// Node represents a single node in the intermediate syntax tree representation.
// The set of node types is closed: every lowering switch must either handle a
// type or report the node as unsupported.
type Node struct {
	Typ      NodeType    // The type of Node, i.e. function, statement or expression data.
	Line     int         // Line in source code Node is declared.
	Pos      int         // Position on the line in source code Node is declared.
	Data     interface{} // Data node is holding: identifier names, float constants, trip counts or operators.
	Entry    *Symbol     // Symbol table entry for this node, if it exists.
	Children []*Node     // Children of this node that constitutes its local sub-tree.
}

// ---------------------
// ----- Constants -----
// ---------------------

// Root node of program.
var Root *Node

const (
	PROGRAM NodeType = iota
	FUNCTION
	PARAMETER_LIST
	STATEMENT_LIST
	RETURN_STATEMENT
	FOR_STATEMENT
	ASSIGNMENT_STATEMENT
	EXPRESSION
	IDENTIFIER_DATA
	FLOAT_DATA
	INTEGER_DATA
)

// nt provides an array of strings used for printing NodeType in a print friendly manner.
var nt = [...]string{
	"PROGRAM",
	"FUNCTION",
	"PARAMETER_LIST",
	"STATEMENT_LIST",
	"RETURN_STATEMENT",
	"FOR_STATEMENT",
	"ASSIGNMENT_STATEMENT",
	"EXPRESSION",
	"IDENTIFIER_DATA",
	"FLOAT_DATA",
	"INTEGER_DATA",
}

// ----------------------
// ----- functions ------
// ----------------------

// String returns the name of the node type t.
func (t NodeType) String() string {
	if int(t) >= len(nt) || t < 0 {
		return fmt.Sprintf("UNKNOWN [%d]", t)
	}
	return nt[t]
}

// String returns a print friendly string of Node n.
func (n *Node) String() string {
	if n == nil {
		return "---> [NIL POINTER]"
	}
	typ := int(n.Typ)
	if typ >= len(nt) || typ < 0 {
		// This Node has been mis-configured.
		return fmt.Sprintf("---> MISCONFIGURED NODE [Node.Typ = %d]", typ)
	}
	if n.Data == nil {
		return nt[n.Typ]
	}

	switch n.Typ {
	case IDENTIFIER_DATA:
		return fmt.Sprintf("%s [%s]", nt[n.Typ], n.Data.(string))
	case FLOAT_DATA:
		return fmt.Sprintf("%s [%v]", nt[n.Typ], n.Data.(float64))
	case INTEGER_DATA:
		return fmt.Sprintf("%s [%d]", nt[n.Typ], n.Data.(int))
	case EXPRESSION:
		return fmt.Sprintf("%s [%s]", nt[n.Typ], n.Data.(string))
	default:
		return fmt.Sprintf("%s [%v]", nt[n.Typ], n.Data)
	}
}

// Print writes an indented representation of the sub-tree rooted at n to the
// string builder sb.
func (n *Node) Print(sb *strings.Builder, depth int) {
	for i1 := 0; i1 < depth; i1++ {
		sb.WriteString("  ")
	}
	sb.WriteString(n.String())
	sb.WriteRune('\n')
	for _, e1 := range n.Children {
		e1.Print(sb, depth+1)
	}
}
