// This lexer is based on Rob Pike's talk on Go scanners.
// Link to the talk on YouTube: https://www.youtube.com/watch?v=HxaD_trXwRE
// Link to presentation slides: https://talks.golang.org/2011/lex.slide#1
//
// The lexer uses state functions stateFunc to define the lexer state. States allow the lexer to treat same runes
// differently. State transitions happens in the current states and appearance of key runes. The lexer uses the Go
// 'character' type 'rune' which enables native UTF-8 support for the source being scanned. The source language is
// line and indentation oriented, so the lexer emits explicit NEWLINE tokens and one INDENT token carrying the
// leading whitespace run of every non-blank line.

package frontend

import (
	"fmt"
	"unicode/utf8"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// stateFunc defines the state of the lexer.
type stateFunc func(*lexer) stateFunc

// itemType is used to differentiate different tokens scanned by the lexer.
type itemType int

// item contains a lexeme scanned by the lexer and its position in the source stream.
type item struct {
	typ  itemType // Token type to emit.
	val  string   // Value of token.
	line int      // Line of token in source stream.
	pos  int      // Start position on current line of token in source stream.
}

// lexer is a lexical type that traverse a source stream character by character and emits lexemes.
type lexer struct {
	input       string    // The source stream of characters to scan for lexemes.
	start       int       // The starting position of the current token.
	pos         int       // The current position of the scanner in the source stream.
	width       int       // The width of the currently scanned rune/character in bytes.
	line        int       // The current line in the source stream. Not zero-indexed.
	startOnLine int       // The start position of the current token on the current line. Not zero-indexed.
	state       stateFunc // The start state of the lexer.
	items       chan item // A channel for emitting item tokens.
}

// ---------------------
// ----- Constants -----
// ---------------------

const eof = 0 // Same as '\0' for null-terminated C strings.

const (
	itemEOF itemType = iota
	itemError
	NEWLINE
	INDENT
	DEF
	RETURN
	FOR
	IN
	RANGE
	IDENTIFIER
	INTEGER
	FLOAT
	// Single character tokens are emitted as itemType(r) and therefore
	// occupy the rune code points above this block.
)

// --------------------------
// ----- Item functions -----
// --------------------------

// name returns a print friendly name of the item type.
func (t itemType) name() string {
	switch t {
	case itemEOF:
		return "EOF"
	case itemError:
		return "ERROR"
	case NEWLINE:
		return "NEWLINE"
	case INDENT:
		return "INDENT"
	case DEF:
		return "DEF"
	case RETURN:
		return "RETURN"
	case FOR:
		return "FOR"
	case IN:
		return "IN"
	case RANGE:
		return "RANGE"
	case IDENTIFIER:
		return "IDENTIFIER"
	case INTEGER:
		return "INTEGER"
	case FLOAT:
		return "FLOAT"
	default:
		return fmt.Sprintf("%q", rune(t))
	}
}

// String returns a print friendly string representation of the item.
func (i item) String() string {
	switch i.typ {
	case itemEOF:
		return "EOF"
	case itemError:
		return fmt.Sprintf("%s [ERROR]", i.val)
	}
	if len(i.val) > 10 {
		return fmt.Sprintf("%.10q... (line %d:%d)", i.val, i.line, i.pos)
	}
	return fmt.Sprintf("%q (line %d:%d)", i.val, i.line, i.pos)
}

// ---------------------------
// ----- Lexer functions -----
// ---------------------------

// newLexer creates and returns a pointer to a new lexer.
func newLexer(src string, start stateFunc) *lexer {
	return &lexer{
		input:       src,
		start:       0,
		pos:         0,
		width:       0,
		line:        1,
		startOnLine: 1,
		state:       start,
		items:       make(chan item, 2),
	}
}

// run initiates the traversal of the input stream of the lexer, resulting in
// tokens being emitted on the lexer's items channel.
func (l *lexer) run() {
	defer close(l.items)
	for state := l.state; state != nil; {
		state = state(l)
	}
}

// emit sends an item of type typ back to the caller.
func (l *lexer) emit(typ itemType) {
	l.items <- item{
		typ:  typ,
		val:  l.input[l.start:l.pos],
		line: l.line,
		pos:  l.startOnLine,
	}
	l.startOnLine += l.pos - l.start
	l.start = l.pos
}

// errorf emits an itemError token carrying a formatted message and stops the lexer.
func (l *lexer) errorf(format string, args ...interface{}) stateFunc {
	l.items <- item{
		typ:  itemError,
		val:  fmt.Sprintf(format, args...),
		line: l.line,
		pos:  l.startOnLine,
	}
	return nil
}

// next returns the next rune in the input. The use of runes makes the lexer UTF-8 compatible.
func (l *lexer) next() (r rune) {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, l.width = utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += l.width
	return r
}

// backup steps back one rune. Can only be called once per call of next.
func (l *lexer) backup() {
	l.pos -= l.width
}

// peek returns but does not consume the next rune in the input.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// ignore drops the currently scanned lexeme, advancing the token start markers.
func (l *lexer) ignore() {
	l.startOnLine += l.pos - l.start
	l.start = l.pos
}

// newline resets the line position bookkeeping after a consumed line break.
func (l *lexer) newline() {
	l.start = l.pos
	l.line++
	l.startOnLine = 1
}

// nextItem awaits and returns the next token emitted by the concurrently running lexer.
func (l *lexer) nextItem() item {
	i, ok := <-l.items
	if !ok {
		return item{typ: itemEOF, line: l.line, pos: l.startOnLine}
	}
	return i
}

// -------------------
// ----- Helpers -----
// -------------------

// isAlpha returns true if r is an alphabetic character or underscore.
func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

// isDigit returns true if r is a decimal digit.
func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// isSpace returns true if r is a space or tab. Newlines are handled separately.
func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}
