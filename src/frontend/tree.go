// tree.go provides the recursive descent parser that transforms the token
// stream into a syntax tree of ir.Nodes. The scanner runs concurrently to the
// parser which lets one goroutine scan source strings for lexemes while the
// other builds the tree. The grammar is the restricted numeric sub-language:
// function definitions whose bodies hold return statements, assignments and
// counted loops over expressions of names, literals and the four arithmetic
// binary operators. Anything else fails parsing as unsupported, naming the
// offending construct; no tree is produced for invalid input.

package frontend

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"caesium/src/ir"
	"caesium/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// parser consumes the scanned token stream with one token of lookahead.
type parser struct {
	items []item // All scanned tokens, terminated by an itemEOF entry.
	pos   int    // Index of the current token.
}

// ---------------------
// ----- functions -----
// ---------------------

// Parse parses the syntax tree from the source code and stores its root in
// ir.Root.
func Parse(src string) error {
	l := newLexer(src, lexLine)

	// Start scanner and run it concurrently to the parser.
	go l.run()

	p := parser{items: make([]item, 0, 64)}
	for {
		t := l.nextItem()
		p.items = append(p.items, t)
		if t.typ == itemEOF {
			break
		}
		if t.typ == itemError {
			return errors.New(t.val)
		}
	}

	root, err := p.parseProgram()
	if err != nil {
		return err
	}
	ir.Root = root
	return nil
}

// TokenStream outputs the token stream from the given source string.
func TokenStream(src string) error {
	l := newLexer(src, lexLine)
	go l.run()

	wr := util.NewWriter()
	defer wr.Close()
	sb := strings.Builder{}
	tw := tabwriter.NewWriter(&sb, 10, 20, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Value\tType\tPosition\n")
	for {
		t := l.nextItem()
		switch t.typ {
		case itemEOF:
			err := tw.Flush()
			wr.WriteString(sb.String())
			return err
		case itemError:
			wr.WriteString(sb.String())
			return errors.New(t.val)
		default:
			if len(t.val) > 20 {
				_, _ = fmt.Fprintf(tw, "%.17q...\t%s\tline: %d:%d\n", t.val, t.typ.name(), t.line, t.pos)
			} else {
				_, _ = fmt.Fprintf(tw, "%q\t%s\tline: %d:%d\n", t.val, t.typ.name(), t.line, t.pos)
			}
		}
	}
}

// nodeInit creates an ir.Node of type typ holding data and the given children.
func nodeInit(typ ir.NodeType, data interface{}, line, pos int, children ...*ir.Node) *ir.Node {
	return &ir.Node{
		Typ:      typ,
		Line:     line,
		Pos:      pos,
		Data:     data,
		Children: children,
	}
}

// --------------------------
// ----- Token plumbing -----
// --------------------------

// cur returns the current token without consuming it.
func (p *parser) cur() item {
	return p.items[p.pos]
}

// peek returns the token after the current one without consuming anything.
func (p *parser) peek() item {
	if p.pos+1 >= len(p.items) {
		return p.items[len(p.items)-1]
	}
	return p.items[p.pos+1]
}

// next consumes and returns the current token. The terminating itemEOF entry
// is never consumed past.
func (p *parser) next() item {
	t := p.items[p.pos]
	if p.pos+1 < len(p.items) {
		p.pos++
	}
	return t
}

// expect consumes the current token and fails unless it has type typ.
func (p *parser) expect(typ itemType, what string) (item, error) {
	t := p.next()
	if t.typ != typ {
		return t, fmt.Errorf("syntax error: expected %s, got %q (line %d:%d)", what, t.val, t.line, t.pos)
	}
	return t, nil
}

// ------------------------
// ----- Grammar rules ----
// ------------------------

// parseProgram parses a sequence of function definitions at indentation zero.
func (p *parser) parseProgram() (*ir.Node, error) {
	root := nodeInit(ir.PROGRAM, nil, 1, 1)
	for {
		t := p.cur()
		if t.typ == itemEOF {
			return root, nil
		}
		if t.typ != INDENT {
			return nil, fmt.Errorf("syntax error: expected start of line, got %q (line %d:%d)", t.val, t.line, t.pos)
		}
		if len(t.val) != 0 {
			return nil, fmt.Errorf("syntax error: unexpected indent (line %d:%d)", t.line, t.pos)
		}
		p.next()

		if p.cur().typ != DEF {
			t = p.cur()
			return nil, fmt.Errorf("%w: %q at top level (line %d:%d)", ir.ErrUnsupportedStatement, t.val, t.line, t.pos)
		}
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, fn)
	}
}

// parseFunction parses 'def name(params):' followed by an indented body.
func (p *parser) parseFunction() (*ir.Node, error) {
	def, err := p.expect(DEF, "'def'")
	if err != nil {
		return nil, err
	}
	name, err := p.expect(IDENTIFIER, "function name")
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(itemType('('), "'('"); err != nil {
		return nil, err
	}

	params := nodeInit(ir.PARAMETER_LIST, nil, name.line, name.pos)
	if p.cur().typ == IDENTIFIER {
		for {
			t, err := p.expect(IDENTIFIER, "parameter name")
			if err != nil {
				return nil, err
			}
			params.Children = append(params.Children, nodeInit(ir.IDENTIFIER_DATA, t.val, t.line, t.pos))
			if p.cur().typ != itemType(',') {
				break
			}
			p.next()
		}
	}

	if _, err = p.expect(itemType(')'), "')'"); err != nil {
		return nil, err
	}
	if _, err = p.expect(itemType(':'), "':'"); err != nil {
		return nil, err
	}
	if _, err = p.expect(NEWLINE, "end of line"); err != nil {
		return nil, err
	}

	body, err := p.parseBlock(0)
	if err != nil {
		return nil, err
	}

	return nodeInit(ir.FUNCTION, nil, def.line, def.pos,
		nodeInit(ir.IDENTIFIER_DATA, name.val, name.line, name.pos),
		params,
		body,
	), nil
}

// parseBlock parses a maximal run of statements indented deeper than parent.
// All statements of one block must share the same indentation width.
func (p *parser) parseBlock(parent int) (*ir.Node, error) {
	t := p.cur()
	if t.typ != INDENT || len(t.val) <= parent {
		return nil, fmt.Errorf("syntax error: expected indented block (line %d:%d)", t.line, t.pos)
	}
	width := len(t.val)

	block := nodeInit(ir.STATEMENT_LIST, nil, t.line, t.pos)
	for {
		t = p.cur()
		if t.typ != INDENT || len(t.val) <= parent {
			// Dedent past this block: the enclosing block continues.
			return block, nil
		}
		if len(t.val) != width {
			return nil, fmt.Errorf("syntax error: unexpected indent (line %d:%d)", t.line, t.pos)
		}
		p.next()

		stmt, err := p.parseStatement(width)
		if err != nil {
			return nil, err
		}
		block.Children = append(block.Children, stmt)
	}
}

// parseStatement dispatches on the closed set of statement shapes. The
// current block indentation width is needed for nested loop bodies.
func (p *parser) parseStatement(width int) (*ir.Node, error) {
	t := p.cur()
	switch t.typ {
	case RETURN:
		p.next()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(NEWLINE, "end of line"); err != nil {
			return nil, err
		}
		return nodeInit(ir.RETURN_STATEMENT, nil, t.line, t.pos, expr), nil

	case FOR:
		return p.parseFor(width)

	case IDENTIFIER:
		if p.peek().typ == itemType('=') {
			p.next()
			p.next()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err = p.expect(NEWLINE, "end of line"); err != nil {
				return nil, err
			}
			return nodeInit(ir.ASSIGNMENT_STATEMENT, nil, t.line, t.pos,
				nodeInit(ir.IDENTIFIER_DATA, t.val, t.line, t.pos),
				expr,
			), nil
		}
		// A bare identifier opens no supported statement. This also catches
		// conditionals and similar constructs, which scan as identifiers.
		return nil, fmt.Errorf("%w: %q (line %d:%d)", ir.ErrUnsupportedStatement, t.val, t.line, t.pos)

	default:
		return nil, fmt.Errorf("%w: %q (line %d:%d)", ir.ErrUnsupportedStatement, t.val, t.line, t.pos)
	}
}

// parseFor parses 'for <var> in range(<n>):' followed by an indented body.
// The trip count <n> is a parameter name or an integer literal.
func (p *parser) parseFor(width int) (*ir.Node, error) {
	f, err := p.expect(FOR, "'for'")
	if err != nil {
		return nil, err
	}
	v, err := p.expect(IDENTIFIER, "induction variable")
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(IN, "'in'"); err != nil {
		return nil, err
	}
	if _, err = p.expect(RANGE, "'range'"); err != nil {
		return nil, err
	}
	if _, err = p.expect(itemType('('), "'('"); err != nil {
		return nil, err
	}

	var trip *ir.Node
	t := p.next()
	switch t.typ {
	case IDENTIFIER:
		trip = nodeInit(ir.IDENTIFIER_DATA, t.val, t.line, t.pos)
	case INTEGER:
		n, err := strconv.Atoi(t.val)
		if err != nil {
			return nil, fmt.Errorf("syntax error: bad trip count %q (line %d:%d)", t.val, t.line, t.pos)
		}
		trip = nodeInit(ir.INTEGER_DATA, n, t.line, t.pos)
	default:
		return nil, fmt.Errorf("%w: trip count %q (line %d:%d)", ir.ErrUnsupportedExpression, t.val, t.line, t.pos)
	}

	if _, err = p.expect(itemType(')'), "')'"); err != nil {
		return nil, err
	}
	if _, err = p.expect(itemType(':'), "':'"); err != nil {
		return nil, err
	}
	if _, err = p.expect(NEWLINE, "end of line"); err != nil {
		return nil, err
	}

	body, err := p.parseBlock(width)
	if err != nil {
		return nil, err
	}

	return nodeInit(ir.FOR_STATEMENT, nil, f.line, f.pos,
		nodeInit(ir.IDENTIFIER_DATA, v.val, v.line, v.pos),
		trip,
		body,
	), nil
}

// parseExpression parses additive expressions with left associativity.
func (p *parser) parseExpression() (*ir.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.typ != itemType('+') && t.typ != itemType('-') {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = nodeInit(ir.EXPRESSION, t.val, t.line, t.pos, left, right)
	}
}

// parseTerm parses multiplicative expressions with left associativity.
func (p *parser) parseTerm() (*ir.Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.typ != itemType('*') && t.typ != itemType('/') {
			return left, nil
		}
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = nodeInit(ir.EXPRESSION, t.val, t.line, t.pos, left, right)
	}
}

// parseFactor parses a name reference, a numeric literal or a parenthesized
// expression. All literals are double precision values; integer notation is
// folded to its float value.
func (p *parser) parseFactor() (*ir.Node, error) {
	t := p.next()
	switch t.typ {
	case IDENTIFIER:
		return nodeInit(ir.IDENTIFIER_DATA, t.val, t.line, t.pos), nil
	case FLOAT, INTEGER:
		v, err := strconv.ParseFloat(t.val, 64)
		if err != nil {
			return nil, fmt.Errorf("syntax error: bad number %q (line %d:%d)", t.val, t.line, t.pos)
		}
		return nodeInit(ir.FLOAT_DATA, v, t.line, t.pos), nil
	case itemType('('):
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(itemType(')'), "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, fmt.Errorf("%w: %q (line %d:%d)", ir.ErrUnsupportedExpression, t.val, t.line, t.pos)
	}
}
