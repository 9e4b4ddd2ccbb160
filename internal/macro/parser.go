package macro

import (
	"strings"
)

type nodeKind uint8

const (
	nodeLit nodeKind = iota + 1
	nodeIdent
	nodeUnary
	nodeBinary
	nodeCond
	nodeCast
)

// node is one expression of a macro body.
type node struct {
	kind    nodeKind
	op      string
	val     Value
	name    string
	castTo  CType
	x, y, z *node
}

// Приоритеты бинарных операторов; больше = связывает сильнее
const (
	precLogicalOr      = 1 // ||
	precLogicalAnd     = 2 // &&
	precBitwiseOr      = 3 // |
	precBitwiseXor     = 4 // ^
	precBitwiseAnd     = 5 // &
	precEquality       = 6 // == !=
	precComparison     = 7 // < <= > >=
	precShift          = 8 // << >>
	precAdditive       = 9 // + -
	precMultiplicative = 10
)

func binaryPrec(tok token) int {
	if tok.Kind != tokPunct {
		return -1
	}
	switch tok.Text {
	case "||":
		return precLogicalOr
	case "&&":
		return precLogicalAnd
	case "|":
		return precBitwiseOr
	case "^":
		return precBitwiseXor
	case "&":
		return precBitwiseAnd
	case "==", "!=":
		return precEquality
	case "<", "<=", ">", ">=":
		return precComparison
	case "<<", ">>":
		return precShift
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiplicative
	}
	return -1
}

// typeNames resolves typedef names used in casts.
type typeNames func(name string) (CType, bool)

// keywords that never appear in a constant expression we model.
var rejectedWords = wordSet(
	"sizeof", "_Alignof", "alignof", "__alignof__", "typeof", "__typeof__",
	"struct", "union", "enum", "typedef", "static", "extern",
	"register", "auto", "inline", "__inline", "__inline__", "restrict",
	"return", "if", "else", "while", "do", "for", "switch",
	"case", "default", "break", "continue", "goto",
	"__attribute__", "__declspec", "__extension__", "_Generic", "asm", "__asm__",
	"_Static_assert", "static_assert", "_Noreturn", "_Thread_local", "thread_local",
	"new", "delete", "this", "class", "template", "throw", "namespace", "operator",
)

var typeWords = wordSet(
	"void", "_Bool", "bool", "char", "short", "int", "long",
	"signed", "unsigned", "float", "double", "const", "volatile",
	"__int128", "__signed__", "__unsigned__",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

type parser struct {
	toks  []token
	pos   int
	opts  Options
	types typeNames
	deps  []string
	seen  map[string]struct{}
}

// parse builds the expression tree of a macro body and lists the
// identifiers it references.
func parse(text string, opts Options, types typeNames) (*node, []string, error) {
	text = cleanText(text)
	if text == "" {
		return nil, nil, errNotConstant("empty replacement")
	}
	toks, err := tokenize(text)
	if err != nil {
		return nil, nil, err
	}
	// fast path: a lone numeric literal
	if len(toks) == 2 && toks[0].Kind == tokNumber {
		v, err := opts.parseNumber(toks[0].Text)
		if err != nil {
			return nil, nil, err
		}
		return &node{kind: nodeLit, val: v}, nil, nil
	}
	p := &parser{toks: toks, opts: opts, types: types, seen: make(map[string]struct{})}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	if tok := p.peek(); tok.Kind != tokEOF {
		return nil, nil, errNotConstant("unexpected %q after expression", tok.Text)
	}
	return expr, p.deps, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.Kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isPunct(text string) bool {
	tok := p.peek()
	return tok.Kind == tokPunct && tok.Text == text
}

func (p *parser) expect(text string) error {
	if !p.isPunct(text) {
		tok := p.peek()
		if tok.Kind == tokEOF {
			return errNotConstant("incomplete expression, expected %q", text)
		}
		return errNotConstant("expected %q, found %q", text, tok.Text)
	}
	p.advance()
	return nil
}

// parseExpr разбирает условное выражение (самый низкий приоритет)
func (p *parser) parseExpr() (*node, error) {
	cond, err := p.parseBinaryExpr(precLogicalOr)
	if err != nil {
		return nil, err
	}
	if !p.isPunct("?") {
		return cond, nil
	}
	p.advance()
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &node{kind: nodeCond, x: cond, y: then, z: els}, nil
}

// parseBinaryExpr is precedence climbing over the binary operators.
func (p *parser) parseBinaryExpr(minPrec int) (*node, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		prec := binaryPrec(p.peek())
		if prec < minPrec {
			return left, nil
		}
		op := p.advance()
		right, err := p.parseBinaryExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeBinary, op: op.Text, x: left, y: right}
	}
}

func (p *parser) parseUnaryExpr() (*node, error) {
	tok := p.peek()
	if tok.Kind == tokPunct {
		switch tok.Text {
		case "+", "-", "!", "~":
			p.advance()
			x, err := p.parseUnaryExpr()
			if err != nil {
				return nil, err
			}
			return &node{kind: nodeUnary, op: tok.Text, x: x}, nil
		case "&", "*", "++", "--":
			return nil, errNotConstant("unsupported unary operator %q", tok.Text)
		case "(":
			if p.startsType(1) {
				p.advance()
				to, err := p.parseTypeName()
				if err != nil {
					return nil, err
				}
				if err := p.expect(")"); err != nil {
					return nil, err
				}
				x, err := p.parseUnaryExpr()
				if err != nil {
					return nil, err
				}
				return &node{kind: nodeCast, castTo: to, x: x}, nil
			}
		}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (*node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind == tokPunct {
		switch tok.Text {
		case "(":
			return nil, errNotConstant("function call")
		case ".", "->":
			return nil, errNotConstant("member access")
		case "[":
			return nil, errNotConstant("subscript")
		}
	}
	return x, nil
}

func (p *parser) parsePrimary() (*node, error) {
	tok := p.advance()
	switch tok.Kind {
	case tokNumber:
		v, err := p.opts.parseNumber(tok.Text)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeLit, val: v}, nil
	case tokChar:
		v, err := p.opts.parseChar(tok.Text)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeLit, val: v}, nil
	case tokString:
		var b strings.Builder
		for {
			s, err := parseString(tok.Text)
			if err != nil {
				return nil, err
			}
			b.WriteString(s)
			if p.peek().Kind != tokString {
				break
			}
			tok = p.advance()
		}
		return &node{kind: nodeLit, val: makeString(b.String())}, nil
	case tokIdent:
		return p.identifier(tok.Text)
	case tokPunct:
		if tok.Text == "(" {
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
		return nil, errNotConstant("unexpected %q", tok.Text)
	default:
		return nil, errNotConstant("incomplete expression")
	}
}

func (p *parser) identifier(name string) (*node, error) {
	switch name {
	case "true", "false":
		bit := uint64(0)
		if name == "true" {
			bit = 1
		}
		return &node{kind: nodeLit, val: p.opts.makeInt(CBool, bit)}, nil
	case "nullptr":
		return &node{kind: nodeLit, val: p.opts.makeInt(CPointer, 0)}, nil
	}
	if _, bad := rejectedWords[name]; bad {
		return nil, errNotConstant("keyword %q", name)
	}
	if _, isType := typeWords[name]; isType {
		return nil, errNotConstant("type name %q used as a value", name)
	}
	if _, dup := p.seen[name]; !dup {
		p.seen[name] = struct{}{}
		p.deps = append(p.deps, name)
	}
	return &node{kind: nodeIdent, name: name}, nil
}

// startsType reports whether the token n ahead begins a type name.
func (p *parser) startsType(n int) bool {
	tok := p.peekAt(n)
	if tok.Kind != tokIdent {
		return false
	}
	if _, ok := typeWords[tok.Text]; ok {
		return true
	}
	if p.types == nil {
		return false
	}
	_, ok := p.types(tok.Text)
	return ok
}

// parseTypeName reads specifiers and a pointer declarator: "unsigned long",
// "const char *", "size_t", "void*".
func (p *parser) parseTypeName() (CType, error) {
	var (
		words   []string
		typedef CType
	)
	for {
		tok := p.peek()
		if tok.Kind != tokIdent {
			break
		}
		if _, ok := typeWords[tok.Text]; ok {
			words = append(words, tok.Text)
			p.advance()
			continue
		}
		if typedef == CInvalid && len(specifiers(words)) == 0 && p.types != nil {
			if t, ok := p.types(tok.Text); ok {
				typedef = t
				p.advance()
				continue
			}
		}
		break
	}
	pointers := 0
	for p.isPunct("*") {
		p.advance()
		pointers++
		for p.peek().Kind == tokIdent && (p.peek().Text == "const" || p.peek().Text == "volatile") {
			p.advance()
		}
	}
	if pointers > 0 {
		return CPointer, nil
	}
	if typedef != CInvalid {
		if len(specifiers(words)) > 0 {
			return CInvalid, errNotConstant("bad type name")
		}
		return typedef, nil
	}
	return primFromWords(specifiers(words))
}

func specifiers(words []string) []string {
	out := words[:0:0]
	for _, w := range words {
		if w != "const" && w != "volatile" {
			out = append(out, w)
		}
	}
	return out
}

func primFromWords(words []string) (CType, error) {
	var signed, unsigned, short, char, void, boolw, float, double, int128 int
	long := 0
	for _, w := range words {
		switch w {
		case "signed", "__signed__":
			signed++
		case "unsigned", "__unsigned__":
			unsigned++
		case "short":
			short++
		case "long":
			long++
		case "char":
			char++
		case "int":
		case "void":
			void++
		case "_Bool", "bool":
			boolw++
		case "float":
			float++
		case "double":
			double++
		case "__int128":
			int128++
		}
	}
	switch {
	case len(words) == 0:
		return CInvalid, errNotConstant("missing type name")
	case void > 0:
		return CInvalid, errNotConstant("cast to void")
	case int128 > 0:
		return CInvalid, errNotConstant("cast to __int128")
	case boolw > 0:
		return CBool, nil
	case float > 0:
		return CFloat, nil
	case double > 0 && long > 0:
		return CLongDouble, nil
	case double > 0:
		return CDouble, nil
	case char > 0 && unsigned > 0:
		return CUChar, nil
	case char > 0 && signed > 0:
		return CSChar, nil
	case char > 0:
		return CChar, nil
	case short > 0 && unsigned > 0:
		return CUShort, nil
	case short > 0:
		return CShort, nil
	case long >= 2 && unsigned > 0:
		return CULongLong, nil
	case long >= 2:
		return CLongLong, nil
	case long == 1 && unsigned > 0:
		return CULong, nil
	case long == 1:
		return CLong, nil
	case unsigned > 0:
		return CUInt, nil
	}
	return CInt, nil
}
