// Package scan recognizes tweak-marker invocations in plain source text.
// It is deliberately not a language parser: it knows just enough lexical
// structure (comments, strings, balanced parentheses) to find marker
// calls and pull the literal token out of each one.
package scan

import (
	"strings"

	"retune/internal/literal"
)

// Scan walks src and returns every recognized literal occurrence in
// source order. markers lists the invocation names to match, either
// qualified ("retune.V") or bare ("V"); a bare marker also matches its
// qualified uses. Malformed invocations and undecodable literals are
// skipped, never reported as errors.
func Scan(src []byte, markers []string) []literal.Occurrence {
	s := &scanner{src: src, markers: markers, line: 1, col: 1}
	return s.run()
}

type scanner struct {
	src     []byte
	markers []string

	pos  int
	line int
	col  int // 1-based, in bytes

	out []literal.Occurrence
}

func (s *scanner) run() []literal.Occurrence {
	for !s.eof() {
		c := s.peek()
		switch {
		case c == '/' && s.peekAt(1) == '/':
			s.skipLineComment()
		case c == '/' && s.peekAt(1) == '*':
			s.skipBlockComment()
		case c == '"' || c == '`' || c == '\'':
			s.skipString(c)
		case isIdentStart(c):
			s.scanIdentifier()
		default:
			s.advance()
		}
	}
	return s.out
}

func (s *scanner) scanIdentifier() {
	start := s.pos
	for !s.eof() {
		c := s.peek()
		if isIdentPart(c) || c == '.' {
			s.advance()
			continue
		}
		break
	}
	name := string(s.src[start:s.pos])

	if !s.matchesMarker(name) {
		return
	}

	// Marker name must be followed by an opening parenthesis, possibly
	// after whitespace.
	save := s.mark()
	s.skipSpace()
	if s.eof() || s.peek() != '(' {
		s.reset(save)
		return
	}
	s.advance() // '('
	s.scanInvocation()
}

// scanInvocation consumes "<literal>)" or "<literal>; <rest>)" after the
// opening parenthesis. On any malformation it consumes up to the
// matching close (or EOF) and produces nothing.
func (s *scanner) scanInvocation() {
	s.skipSpace()
	if s.eof() {
		return
	}

	litLine, litCol := s.line, s.col
	raw, ok := s.scanLiteralToken()
	if !ok {
		s.skipToClose()
		return
	}

	override := false
	s.skipSpace()
	if !s.eof() && (s.peek() == ';' || s.peek() == ',') {
		override = true
		s.advance()
		if !s.skipToClose() {
			return // unbalanced, drop the occurrence
		}
	} else if !s.eof() && s.peek() == ')' {
		s.advance()
	} else {
		// Something other than a lone literal inside the call.
		s.skipToClose()
		return
	}

	value, ok := literal.Decode(raw)
	if !ok {
		return
	}
	s.out = append(s.out, literal.Occurrence{
		Ordinal:  len(s.out),
		Line:     litLine,
		Column:   litCol,
		Kind:     value.Kind,
		Raw:      raw,
		Value:    value,
		Override: override,
	})
}

// scanLiteralToken reads one literal token: a quoted string, a raw
// string, or a run of number/bool characters up to a top-level
// delimiter.
func (s *scanner) scanLiteralToken() (string, bool) {
	switch s.peek() {
	case '"':
		return s.scanQuoted()
	case '`':
		return s.scanRaw()
	}

	start := s.pos
	for !s.eof() {
		c := s.peek()
		if c == ')' || c == ';' || c == ',' || c == '\n' {
			break
		}
		if c == '(' {
			// A literal never contains an open paren; this is a call
			// expression, not a tweakable literal.
			return "", false
		}
		s.advance()
	}
	tok := strings.TrimSpace(string(s.src[start:s.pos]))
	if tok == "" {
		return "", false
	}
	return tok, true
}

// scanQuoted reads a double-quoted string including escapes. Newlines
// are tolerated inside the quotes so multi-line text stays one token.
func (s *scanner) scanQuoted() (string, bool) {
	start := s.pos
	s.advance() // opening quote
	for !s.eof() {
		c := s.peek()
		if c == '\\' {
			s.advance()
			if !s.eof() {
				s.advance()
			}
			continue
		}
		if c == '"' {
			s.advance()
			return string(s.src[start:s.pos]), true
		}
		s.advance()
	}
	return "", false
}

func (s *scanner) scanRaw() (string, bool) {
	start := s.pos
	s.advance() // opening backtick
	for !s.eof() {
		if s.peek() == '`' {
			s.advance()
			return string(s.src[start:s.pos]), true
		}
		s.advance()
	}
	return "", false
}

// skipToClose consumes input until the parenthesis that closes the
// current invocation, tracking nesting and skipping strings so a ")"
// inside the suppressed expression does not end the call early.
// Reports whether the close was found.
func (s *scanner) skipToClose() bool {
	depth := 1
	for !s.eof() {
		c := s.peek()
		switch {
		case c == '"' || c == '`' || c == '\'':
			s.skipString(c)
			continue
		case c == '/' && s.peekAt(1) == '/':
			s.skipLineComment()
			continue
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				s.advance()
				return true
			}
		}
		s.advance()
	}
	return false
}

func (s *scanner) matchesMarker(name string) bool {
	for _, m := range s.markers {
		if name == m {
			return true
		}
		if !strings.Contains(m, ".") && strings.HasSuffix(name, "."+m) {
			return true
		}
	}
	return false
}

func (s *scanner) skipLineComment() {
	for !s.eof() && s.peek() != '\n' {
		s.advance()
	}
}

func (s *scanner) skipBlockComment() {
	s.advance()
	s.advance()
	for !s.eof() {
		if s.peek() == '*' && s.peekAt(1) == '/' {
			s.advance()
			s.advance()
			return
		}
		s.advance()
	}
}

// skipString consumes a quoted region outside an invocation, so marker
// names mentioned in ordinary strings are not matched.
func (s *scanner) skipString(quote byte) {
	s.advance()
	for !s.eof() {
		c := s.peek()
		if c == '\\' && quote != '`' {
			s.advance()
			if !s.eof() {
				s.advance()
			}
			continue
		}
		s.advance()
		if c == quote {
			return
		}
		if c == '\n' && quote != '`' {
			// Unterminated single-line string; bail at the newline.
			return
		}
	}
}

func (s *scanner) skipSpace() {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\r', '\n':
			s.advance()
		default:
			return
		}
	}
}

type pos struct {
	pos, line, col int
}

func (s *scanner) mark() pos   { return pos{s.pos, s.line, s.col} }
func (s *scanner) reset(p pos) { s.pos, s.line, s.col = p.pos, p.line, p.col }
func (s *scanner) eof() bool   { return s.pos >= len(s.src) }
func (s *scanner) peek() byte  { return s.src[s.pos] }

func (s *scanner) peekAt(n int) byte {
	if s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

func (s *scanner) advance() {
	if s.src[s.pos] == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.pos++
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
