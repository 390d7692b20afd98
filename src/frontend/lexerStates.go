package frontend

// lexLine is the start-of-line state. It measures the leading whitespace run
// of the line and emits it as an INDENT token. Blank lines and comment-only
// lines produce no tokens at all.
func lexLine(l *lexer) stateFunc {
	for {
		r := l.next()
		switch {
		case isSpace(r):
			// Part of the indentation run.
		case r == '\n':
			// Blank line.
			l.newline()
		case r == '#':
			// Comment-only line.
			l.backup()
			l.ignore()
			return lexComment
		case r == eof:
			l.backup()
			l.ignore()
			l.emit(itemEOF)
			return nil
		default:
			// First token of the line: emit the indentation run before it.
			l.backup()
			l.emit(INDENT)
			return lexGlobal
		}
	}
}

// lexGlobal scans the interior of a line and serves as the default state.
func lexGlobal(l *lexer) stateFunc {
	for {
		r := l.next()
		switch {
		case isAlpha(r):
			// Keyword or identifier.
			return lexWord
		case isDigit(r):
			// Number.
			return lexNumber
		case r == '\n':
			l.backup()
			l.ignore()
			l.next()
			l.emit(NEWLINE)
			l.newline()
			return lexLine
		case isSpace(r):
			// Ignore whitespace between tokens.
			l.ignore()
		case r == '#':
			// Trailing comment: drop it here so the line break that follows is
			// still emitted as a NEWLINE token.
			for ; r != '\n' && r != eof; r = l.next() {
			}
			l.backup()
			l.ignore()
		case r == eof:
			// End of file: terminate the last line and stop the state machine.
			l.backup()
			l.ignore()
			l.emit(NEWLINE)
			l.emit(itemEOF)
			return nil
		case r == '(' || r == ')' || r == ',' || r == ':' || r == '=' ||
			r == '+' || r == '-' || r == '*' || r == '/':
			// Let parser use character as is.
			l.emit(itemType(r))
		default:
			return l.errorf("unexpected character %q on line %d:%d", r, l.line, l.startOnLine)
		}
	}
}

// lexComment consumes a comment up to, but not including, the line break.
func lexComment(l *lexer) stateFunc {
	for {
		r := l.next()
		if r == '\n' {
			l.backup()
			l.ignore()
			l.next()
			l.newline()
			return lexLine
		}
		if r == eof {
			l.backup()
			l.ignore()
			l.emit(itemEOF)
			return nil
		}
	}
}

// lexWord scans the input string for keywords and identifiers.
func lexWord(l *lexer) stateFunc {
	// We know that the currently scanned rune is an alphabetic character.
	for {
		r := l.next()

		// Check if character is a valid identifier character.
		if !isAlpha(r) && !isDigit(r) {
			l.backup()
			kw, typ := isKeyword(l.input[l.start:l.pos])
			if kw {
				l.emit(typ)
			} else {
				l.emit(IDENTIFIER)
			}
			return lexGlobal
		}
	}
}

// lexNumber scans the input stream for an integer or decimal number.
// This function accepts zero leading numbers and numbers consisting of all zeros.
func lexNumber(l *lexer) stateFunc {
	// We've scanned the first digit already. We don't scan negative numbers;
	// the parser rejects unary minus as an unsupported expression.

	// Scan integer part.
	r := l.next()
	for ; isDigit(r); r = l.next() {
	}

	// Check for decimal.
	if r == '.' {
		// Decimal delimiter found.
		for r = l.next(); isDigit(r); r = l.next() {
		}
		l.backup()
		l.emit(FLOAT)
		return lexGlobal
	}
	l.backup()
	l.emit(INTEGER)
	return lexGlobal
}
