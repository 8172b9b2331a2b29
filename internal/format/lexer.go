package format

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokKind uint8

const (
	tokIdent tokKind = iota + 1
	tokLifetime
	tokLiteral
	tokPunct
	tokOpen
	tokClose
	tokLineComment
	tokBlockComment
)

type token struct {
	Kind tokKind
	Text string
	Off  int
}

// SyntaxError reports input the lexer, the tree builder or the item
// grammar cannot accept.
type SyntaxError struct {
	Off int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Off, e.Msg)
}

// Unwrap makes every SyntaxError match ErrParse.
func (e *SyntaxError) Unwrap() error { return ErrParse }

// puncts is ordered longest first; lexPunct takes the first match.
var puncts = [...]string{
	">>=", "<<=", "...", "..=",
	"::", "->", "=>", "==", "!=", "<=", ">=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "^=", "&=", "|=", "<<", ">>", "..",
	"+", "-", "*", "/", "%", "^", "!", "&", "|", "=", "<", ">",
	"@", ".", ",", ";", ":", "#", "$", "?", "~",
}

func matchPunct(s string) int {
	for _, p := range puncts {
		if strings.HasPrefix(s, p) {
			return len(p)
		}
	}
	return 0
}

// merges reports whether a written directly before b would lex differently.
func merges(a, b string) bool {
	if strings.HasSuffix(a, "/") && (strings.HasPrefix(b, "/") || strings.HasPrefix(b, "*")) {
		return true
	}
	return matchPunct(a+b) > len(a)
}

type lexer struct {
	src []byte
	off int
}

func lex(src []byte) ([]token, error) {
	lx := lexer{src: src}
	toks := make([]token, 0, len(src)/3)
	for {
		lx.skipSpace()
		if lx.eof() {
			return toks, nil
		}
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
}

func (lx *lexer) eof() bool { return lx.off >= len(lx.src) }

func (lx *lexer) peek() byte { return lx.at(0) }

func (lx *lexer) at(n int) byte {
	if lx.off+n >= len(lx.src) {
		return 0
	}
	return lx.src[lx.off+n]
}

func (lx *lexer) runeAt(off int) (rune, int) {
	if off >= len(lx.src) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRune(lx.src[off:])
}

func (lx *lexer) errorf(off int, format string, args ...any) error {
	return &SyntaxError{Off: off, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) skipSpace() {
	for !lx.eof() {
		c := lx.peek()
		if c < utf8.RuneSelf {
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' && c != '\v' && c != '\f' {
				return
			}
			lx.off++
			continue
		}
		r, n := lx.runeAt(lx.off)
		if !unicode.IsSpace(r) {
			return
		}
		lx.off += n
	}
}

func (lx *lexer) emit(kind tokKind, start int) token {
	return token{Kind: kind, Text: string(lx.src[start:lx.off]), Off: start}
}

func (lx *lexer) next() (token, error) {
	start := lx.off
	c := lx.peek()
	switch {
	case c == '/' && lx.at(1) == '/':
		for !lx.eof() && lx.peek() != '\n' {
			lx.off++
		}
		tok := lx.emit(tokLineComment, start)
		tok.Text = strings.TrimRight(tok.Text, " \t\r")
		return tok, nil
	case c == '/' && lx.at(1) == '*':
		return lx.blockComment(start)
	case c == '"':
		return lx.quoted(start, '"')
	case c == '\'':
		return lx.quote(start)
	case c >= '0' && c <= '9':
		return lx.number(start), nil
	case c == '(' || c == '[' || c == '{':
		lx.off++
		return lx.emit(tokOpen, start), nil
	case c == ')' || c == ']' || c == '}':
		lx.off++
		return lx.emit(tokClose, start), nil
	}
	if r, _ := lx.runeAt(start); isIdentStart(r) {
		return lx.word(start)
	}
	if n := matchPunct(string(lx.src[start:min(start+3, len(lx.src))])); n > 0 {
		lx.off += n
		return lx.emit(tokPunct, start), nil
	}
	r, _ := lx.runeAt(start)
	return token{}, lx.errorf(start, "unexpected character %q", r)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (lx *lexer) scanIdent() {
	for !lx.eof() {
		r, n := lx.runeAt(lx.off)
		if !isIdentContinue(r) {
			return
		}
		lx.off += n
	}
}

func (lx *lexer) word(start int) (token, error) {
	lx.scanIdent()
	switch string(lx.src[start:lx.off]) {
	case "r", "br", "cr":
		if lx.peek() == '"' || (lx.peek() == '#' && (lx.at(1) == '"' || lx.at(1) == '#')) {
			return lx.rawString(start)
		}
		if lx.off-start == 1 && lx.peek() == '#' {
			if r, _ := lx.runeAt(lx.off + 1); isIdentStart(r) {
				lx.off++
				lx.scanIdent()
			}
		}
	case "b", "c":
		if lx.peek() == '"' {
			return lx.quoted(start, '"')
		}
		if lx.src[start] == 'b' && lx.peek() == '\'' {
			return lx.quoted(start, '\'')
		}
	}
	return lx.emit(tokIdent, start), nil
}

// quoted scans a literal delimited by q starting at lx.off, with backslash escapes.
func (lx *lexer) quoted(start int, q byte) (token, error) {
	for lx.peek() != q {
		lx.off++
	}
	lx.off++
	for {
		if lx.eof() {
			return token{}, lx.errorf(start, "unterminated literal")
		}
		c := lx.peek()
		if c == '\\' {
			lx.off += 2
			continue
		}
		lx.off++
		if c == q {
			break
		}
	}
	lx.suffix()
	return lx.emit(tokLiteral, start), nil
}

func (lx *lexer) rawString(start int) (token, error) {
	hashes := 0
	for lx.peek() == '#' {
		hashes++
		lx.off++
	}
	if lx.peek() != '"' {
		return token{}, lx.errorf(start, "malformed raw string")
	}
	lx.off++
	closing := "\"" + strings.Repeat("#", hashes)
	idx := strings.Index(string(lx.src[lx.off:]), closing)
	if idx < 0 {
		return token{}, lx.errorf(start, "unterminated raw string")
	}
	lx.off += idx + len(closing)
	lx.suffix()
	return lx.emit(tokLiteral, start), nil
}

// quote handles both char literals and lifetimes.
func (lx *lexer) quote(start int) (token, error) {
	if lx.at(1) == '\\' {
		return lx.quoted(start, '\'')
	}
	r, n := lx.runeAt(start + 1)
	if n > 0 && start+1+n < len(lx.src) && lx.src[start+1+n] == '\'' {
		lx.off = start + 2 + n
		lx.suffix()
		return lx.emit(tokLiteral, start), nil
	}
	if isIdentStart(r) {
		lx.off = start + 1
		lx.scanIdent()
		return lx.emit(tokLifetime, start), nil
	}
	return token{}, lx.errorf(start, "malformed character literal")
}

func (lx *lexer) suffix() {
	if r, _ := lx.runeAt(lx.off); isIdentStart(r) {
		lx.scanIdent()
	}
}

func isAlnum(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (lx *lexer) number(start int) token {
	for isAlnum(lx.peek()) {
		lx.off++
	}
	hex := lx.off-start > 1 && (lx.src[start+1] == 'x' || lx.src[start+1] == 'X')
	if lx.peek() == '.' && lx.at(1) >= '0' && lx.at(1) <= '9' {
		lx.off++
		for isAlnum(lx.peek()) {
			lx.off++
		}
	}
	if last := lx.src[lx.off-1]; !hex && (last == 'e' || last == 'E') &&
		(lx.peek() == '+' || lx.peek() == '-') && lx.at(1) >= '0' && lx.at(1) <= '9' {
		lx.off++
		for isAlnum(lx.peek()) {
			lx.off++
		}
	}
	return lx.emit(tokLiteral, start)
}

func (lx *lexer) blockComment(start int) (token, error) {
	lx.off += 2
	depth := 1
	for depth > 0 {
		switch {
		case lx.eof():
			return token{}, lx.errorf(start, "unterminated block comment")
		case lx.peek() == '/' && lx.at(1) == '*':
			depth++
			lx.off += 2
		case lx.peek() == '*' && lx.at(1) == '/':
			depth--
			lx.off += 2
		default:
			lx.off++
		}
	}
	return lx.emit(tokBlockComment, start), nil
}
