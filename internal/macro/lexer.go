package macro

import (
	"strings"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokNumber
	tokChar
	tokString
	tokIdent
	tokPunct
)

func (k tokKind) String() string {
	switch k {
	case tokEOF:
		return "end of text"
	case tokNumber:
		return "number"
	case tokChar:
		return "character literal"
	case tokString:
		return "string literal"
	case tokIdent:
		return "identifier"
	default:
		return "punctuator"
	}
}

type token struct {
	Kind tokKind
	Text string
	Off  int
}

// cursor walks the replacement text byte by byte.
type cursor struct {
	src string
	off int
}

func (c *cursor) eof() bool { return c.off >= len(c.src) }

// peek возвращает текущий байт или 0 в конце
func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.off]
}

// peek2 возвращает байт после текущего или 0
func (c *cursor) peek2() byte {
	if c.off+1 >= len(c.src) {
		return 0
	}
	return c.src[c.off+1]
}

func (c *cursor) bump() byte {
	if c.eof() {
		return 0
	}
	b := c.src[c.off]
	c.off++
	return b
}

// cleanText joins backslash continuations and drops a trailing semicolon,
// a common slip in headers (#define N 10;).
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\\\r\n", " ")
	text = strings.ReplaceAll(text, "\\\n", " ")
	text = strings.TrimSpace(text)
	for strings.HasSuffix(text, ";") {
		text = strings.TrimSpace(strings.TrimSuffix(text, ";"))
	}
	return text
}

// tokenize splits cleaned replacement text into tokens, ending with tokEOF.
func tokenize(text string) ([]token, error) {
	c := &cursor{src: text}
	var toks []token
	for {
		for !c.eof() && isSpace(c.peek()) {
			c.bump()
		}
		if c.eof() {
			toks = append(toks, token{Kind: tokEOF, Off: c.off})
			return toks, nil
		}
		start := c.off
		ch := c.peek()
		var (
			tok token
			err error
		)
		switch {
		case isIdentStart(ch):
			tok, err = scanIdentOrPrefixed(c)
		case isDec(ch), ch == '.' && isDec(c.peek2()):
			tok = scanNumber(c)
		case ch == '\'':
			tok, err = scanQuoted(c, '\'', tokChar, start)
		case ch == '"':
			tok, err = scanQuoted(c, '"', tokString, start)
		default:
			tok = scanPunct(c)
		}
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
}

func scanIdentOrPrefixed(c *cursor) (token, error) {
	start := c.off
	for !c.eof() && isIdentContinue(c.peek()) {
		c.bump()
	}
	word := c.src[start:c.off]
	// L'x', u"..." and friends
	if (word == "L" || word == "u" || word == "U" || word == "u8") && (c.peek() == '\'' || c.peek() == '"') {
		if c.peek() == '\'' {
			return scanQuoted(c, '\'', tokChar, start)
		}
		return scanQuoted(c, '"', tokString, start)
	}
	return token{Kind: tokIdent, Text: word, Off: start}, nil
}

// scanNumber reads a preprocessing number: digits, letters, dots and signed
// exponents. Validation happens when the literal is typed.
func scanNumber(c *cursor) token {
	start := c.off
	for !c.eof() {
		b := c.peek()
		switch {
		case (b == 'e' || b == 'E' || b == 'p' || b == 'P') && (c.peek2() == '+' || c.peek2() == '-'):
			c.bump()
			c.bump()
		case isIdentContinue(b) || b == '.' || b == '\'':
			c.bump()
		default:
			return token{Kind: tokNumber, Text: c.src[start:c.off], Off: start}
		}
	}
	return token{Kind: tokNumber, Text: c.src[start:c.off], Off: start}
}

func scanQuoted(c *cursor, quote byte, kind tokKind, start int) (token, error) {
	c.bump() // opening quote
	for {
		if c.eof() {
			return token{}, errNotConstant("unterminated %s", kind)
		}
		b := c.bump()
		if b == '\\' {
			c.bump()
			continue
		}
		if b == quote {
			return token{Kind: kind, Text: c.src[start:c.off], Off: start}, nil
		}
	}
}

var punct2 = []string{"<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "->", "++", "--", "##"}

func scanPunct(c *cursor) token {
	start := c.off
	rest := c.src[start:]
	for _, p := range punct2 {
		if strings.HasPrefix(rest, p) {
			c.off += len(p)
			return token{Kind: tokPunct, Text: p, Off: start}
		}
	}
	c.bump()
	return token{Kind: tokPunct, Text: c.src[start:c.off], Off: start}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

func isDec(b byte) bool { return b >= '0' && b <= '9' }

func isHex(b byte) bool {
	return isDec(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isIdentContinue(b byte) bool {
	return isIdentStart(b) || isDec(b)
}
