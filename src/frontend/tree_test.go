// Tests the recursive descent parser by verifying the tree shapes built for
// small sample programs and the rejection of constructs outside the language.

package frontend

import (
	"errors"
	"testing"

	"caesium/src/ir"
)

// TestParse verifies the tree shape of a function holding a counted loop,
// an assignment and a return statement.
func TestParse(t *testing.T) {
	src := `def scale(x, n):
    for i in range(n):
        x = x * 2.0
    return x
`
	if err := Parse(src); err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	if ir.Root == nil || ir.Root.Typ != ir.PROGRAM {
		t.Fatalf("expected PROGRAM root, got %v", ir.Root)
	}
	if len(ir.Root.Children) != 1 {
		t.Fatalf("expected 1 function, got %d", len(ir.Root.Children))
	}

	fun := ir.Root.Children[0]
	if fun.Typ != ir.FUNCTION {
		t.Fatalf("expected FUNCTION, got %s", fun.Typ.String())
	}
	if name := fun.Children[0]; name.Data.(string) != "scale" {
		t.Errorf("expected function name %q, got %q", "scale", name.Data.(string))
	}
	if params := fun.Children[1]; params.Typ != ir.PARAMETER_LIST || len(params.Children) != 2 {
		t.Errorf("expected 2 parameters, got %d", len(params.Children))
	}

	body := fun.Children[2]
	if body.Typ != ir.STATEMENT_LIST || len(body.Children) != 2 {
		t.Fatalf("expected 2 statements in body, got %d", len(body.Children))
	}

	loop := body.Children[0]
	if loop.Typ != ir.FOR_STATEMENT {
		t.Fatalf("expected FOR_STATEMENT, got %s", loop.Typ.String())
	}
	if v := loop.Children[0]; v.Data.(string) != "i" {
		t.Errorf("expected induction variable %q, got %q", "i", v.Data.(string))
	}
	if trip := loop.Children[1]; trip.Typ != ir.IDENTIFIER_DATA || trip.Data.(string) != "n" {
		t.Errorf("expected trip count identifier %q, got %v", "n", trip)
	}
	inner := loop.Children[2]
	if inner.Typ != ir.STATEMENT_LIST || len(inner.Children) != 1 {
		t.Fatalf("expected 1 statement in loop body, got %d", len(inner.Children))
	}
	if asn := inner.Children[0]; asn.Typ != ir.ASSIGNMENT_STATEMENT {
		t.Errorf("expected ASSIGNMENT_STATEMENT, got %s", asn.Typ.String())
	}

	ret := body.Children[1]
	if ret.Typ != ir.RETURN_STATEMENT {
		t.Fatalf("expected RETURN_STATEMENT, got %s", ret.Typ.String())
	}
}

// TestParsePrecedence verifies that multiplication binds tighter than addition
// and that parentheses override precedence.
func TestParsePrecedence(t *testing.T) {
	if err := Parse("def f(a, b, c):\n    return a + b * c\n"); err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	expr := ir.Root.Children[0].Children[2].Children[0].Children[0]
	if expr.Typ != ir.EXPRESSION || expr.Data.(string) != "+" {
		t.Fatalf("expected %q at expression root, got %v", "+", expr)
	}
	if right := expr.Children[1]; right.Typ != ir.EXPRESSION || right.Data.(string) != "*" {
		t.Errorf("expected %q as right operand, got %v", "*", right)
	}

	if err := Parse("def f(a, b, c):\n    return (a + b) * c\n"); err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	expr = ir.Root.Children[0].Children[2].Children[0].Children[0]
	if expr.Typ != ir.EXPRESSION || expr.Data.(string) != "*" {
		t.Fatalf("expected %q at expression root, got %v", "*", expr)
	}
	if left := expr.Children[0]; left.Typ != ir.EXPRESSION || left.Data.(string) != "+" {
		t.Errorf("expected %q as left operand, got %v", "+", left)
	}
}

// TestParseIntegerLiteral verifies that integer notation in expressions is
// folded to its double precision value.
func TestParseIntegerLiteral(t *testing.T) {
	if err := Parse("def two():\n    return 2\n"); err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	lit := ir.Root.Children[0].Children[2].Children[0].Children[0]
	if lit.Typ != ir.FLOAT_DATA {
		t.Fatalf("expected FLOAT_DATA, got %s", lit.Typ.String())
	}
	if v := lit.Data.(float64); v != 2.0 {
		t.Errorf("expected literal value 2.0, got %f", v)
	}
}

// TestParseUnsupported verifies that constructs outside the language are
// rejected with the matching sentinel error.
func TestParseUnsupported(t *testing.T) {
	tests := []struct {
		name string
		src  string
		err  error
	}{
		{
			name: "conditional statement",
			src:  "def f(a):\n    if a:\n        return a\n    return a\n",
			err:  ir.ErrUnsupportedStatement,
		},
		{
			name: "bare expression statement",
			src:  "def f(a):\n    a + a\n    return a\n",
			err:  ir.ErrUnsupportedStatement,
		},
		{
			name: "unary minus",
			src:  "def f(a):\n    return -a\n",
			err:  ir.ErrUnsupportedExpression,
		},
		{
			name: "float trip count",
			src:  "def f(a):\n    for i in range(2.0):\n        a = a + a\n    return a\n",
			err:  ir.ErrUnsupportedExpression,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Parse(tc.src)
			if err == nil {
				t.Fatal("expected parse error, got none")
			}
			if !errors.Is(err, tc.err) {
				t.Errorf("expected %q, got %q", tc.err, err)
			}
		})
	}
}
