package macro

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// parseNumber types a numeric literal the way a C compiler does: suffixes
// pick the starting type, the value picks the first type it fits in, and
// decimal literals never become unsigned implicitly.
func (o Options) parseNumber(text string) (Value, error) {
	text = strings.ReplaceAll(text, "'", "") // C23 digit separators
	lower := strings.ToLower(text)
	isHexLit := strings.HasPrefix(lower, "0x")
	if isFloatLiteral(lower, isHexLit) {
		return o.parseFloat(text, lower)
	}

	body, suffix := splitIntSuffix(text)
	unsigned, longs, ok := intSuffix(suffix)
	if !ok {
		return Value{}, errNotConstant("invalid integer suffix %q in %s", suffix, text)
	}
	base := 10
	digits := body
	switch {
	case isHexLit:
		base, digits = 16, body[2:]
	case strings.HasPrefix(strings.ToLower(body), "0b"):
		base, digits = 2, body[2:]
	case len(body) > 1 && body[0] == '0':
		base, digits = 8, body[1:]
	}
	if digits == "" {
		return Value{}, errNotConstant("malformed number %s", text)
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return Value{}, errNotConstant("malformed number %s", text)
	}
	return o.makeInt(o.literalType(v, base == 10, unsigned, longs), v), nil
}

func isFloatLiteral(lower string, hex bool) bool {
	if hex {
		return strings.ContainsAny(lower, ".p")
	}
	return strings.ContainsAny(lower, ".e")
}

func (o Options) parseFloat(text, lower string) (Value, error) {
	typ := CDouble
	body := text
	hex := strings.HasPrefix(lower, "0x")
	switch last := lower[len(lower)-1]; {
	case last == 'f' && (!hex || strings.Contains(lower, "p")):
		typ, body = CFloat, text[:len(text)-1]
	case last == 'l':
		typ, body = CLongDouble, text[:len(text)-1]
	}
	f, err := strconv.ParseFloat(body, 64)
	if err != nil {
		var ne *strconv.NumError
		if !errors.As(err, &ne) || ne.Err != strconv.ErrRange {
			return Value{}, errNotConstant("malformed floating constant %s", text)
		}
	}
	return makeFloat(typ, f), nil
}

func splitIntSuffix(text string) (string, string) {
	i := len(text)
	for i > 0 {
		switch text[i-1] {
		case 'u', 'U', 'l', 'L':
			i--
			continue
		}
		break
	}
	return text[:i], text[i:]
}

// intSuffix decodes u/l/ll in any order; "lL" is not a valid suffix.
func intSuffix(s string) (unsigned bool, longs int, ok bool) {
	rest := s
	for rest != "" {
		switch {
		case rest[0] == 'u' || rest[0] == 'U':
			if unsigned {
				return false, 0, false
			}
			unsigned = true
			rest = rest[1:]
		case strings.HasPrefix(rest, "ll") || strings.HasPrefix(rest, "LL"):
			if longs != 0 {
				return false, 0, false
			}
			longs = 2
			rest = rest[2:]
		case rest[0] == 'l' || rest[0] == 'L':
			if longs != 0 {
				return false, 0, false
			}
			longs = 1
			rest = rest[1:]
		default:
			return false, 0, false
		}
	}
	return unsigned, longs, true
}

func (o Options) literalType(v uint64, decimal, unsigned bool, longs int) CType {
	var cands []CType
	switch {
	case unsigned && longs == 0:
		cands = []CType{CUInt, CULong, CULongLong}
	case unsigned && longs == 1:
		cands = []CType{CULong, CULongLong}
	case unsigned:
		cands = []CType{CULongLong}
	case decimal && longs == 0:
		cands = []CType{CInt, CLong, CLongLong}
	case decimal && longs == 1:
		cands = []CType{CLong, CLongLong}
	case decimal:
		cands = []CType{CLongLong}
	case longs == 0:
		cands = []CType{CInt, CUInt, CLong, CULong, CLongLong, CULongLong}
	case longs == 1:
		cands = []CType{CLong, CULong, CLongLong, CULongLong}
	default:
		cands = []CType{CLongLong, CULongLong}
	}
	for _, t := range cands {
		if o.fits(v, t) {
			return t
		}
	}
	// too large for long long: compilers fall back to unsigned long long
	return CULongLong
}

func (o Options) fits(v uint64, t CType) bool {
	w := o.Bits(t)
	if o.Signed(t) {
		return v <= (uint64(1)<<uint(w-1))-1
	}
	return w >= 64 || v < uint64(1)<<uint(w)
}

// parseChar types a character constant. Plain constants have type int;
// multi-character constants pack bytes big-endian like GCC.
func (o Options) parseChar(text string) (Value, error) {
	prefix, body := splitQuotePrefix(text, '\'')
	units, err := unescape(body, prefix != "" && prefix != "u8")
	if err != nil {
		return Value{}, err
	}
	if len(units) == 0 {
		return Value{}, errNotConstant("empty character constant")
	}
	switch prefix {
	case "u":
		return o.makeInt(CUShort, units[0]).promoted(o), nil
	case "U":
		return o.makeInt(CUInt, units[0]), nil
	case "L":
		return o.makeInt(CInt, units[0]), nil
	}
	if len(units) == 1 {
		// plain char first, then promoted to int
		return o.convert(o.makeInt(CChar, units[0]), CInt), nil
	}
	var v uint64
	for _, u := range units {
		v = v<<8 | (u & 0xff)
	}
	return o.makeInt(CInt, v), nil
}

func (v Value) promoted(o Options) Value {
	return o.convert(v, o.promote(v.Type))
}

// parseString decodes a string literal; wide prefixes are accepted and the
// code points are kept as UTF-8.
func parseString(text string) (string, error) {
	prefix, body := splitQuotePrefix(text, '"')
	wide := prefix != "" && prefix != "u8"
	units, err := unescape(body, wide)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, u := range units {
		if !wide || u < 0x80 {
			b.WriteByte(byte(u))
			continue
		}
		b.WriteRune(rune(u))
	}
	return b.String(), nil
}

func splitQuotePrefix(text string, quote byte) (string, string) {
	i := strings.IndexByte(text, quote)
	return text[:i], text[i+1 : len(text)-1]
}

// unescape returns the code units of a quoted body: bytes for narrow
// literals, code points for wide ones.
func unescape(body string, wide bool) ([]uint64, error) {
	var out []uint64
	for i := 0; i < len(body); {
		b := body[i]
		if b != '\\' {
			if wide {
				r, size := utf8.DecodeRuneInString(body[i:])
				out = append(out, uint64(r))
				i += size
				continue
			}
			out = append(out, uint64(b))
			i++
			continue
		}
		i++
		if i >= len(body) {
			return nil, errNotConstant("dangling backslash")
		}
		e := body[i]
		i++
		switch e {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case 'a':
			out = append(out, 7)
		case 'b':
			out = append(out, 8)
		case 'f':
			out = append(out, 12)
		case 'v':
			out = append(out, 11)
		case 'e':
			out = append(out, 27)
		case '\\', '\'', '"', '?':
			out = append(out, uint64(e))
		case 'x':
			j := i
			for j < len(body) && isHex(body[j]) {
				j++
			}
			if j == i {
				return nil, errNotConstant("\\x without hex digits")
			}
			v, err := strconv.ParseUint(body[i:j], 16, 64)
			if err != nil {
				return nil, errNotConstant("hex escape out of range")
			}
			out = append(out, v)
			i = j
		case 'u', 'U':
			n := 4
			if e == 'U' {
				n = 8
			}
			if i+n > len(body) {
				return nil, errNotConstant("short universal character name")
			}
			v, err := strconv.ParseUint(body[i:i+n], 16, 32)
			if err != nil {
				return nil, errNotConstant("bad universal character name")
			}
			out = append(out, v)
			i += n
		default:
			if e >= '0' && e <= '7' {
				j := i - 1
				for j < len(body) && j < i+2 && body[j] >= '0' && body[j] <= '7' {
					j++
				}
				v, _ := strconv.ParseUint(body[i-1:j], 8, 32)
				out = append(out, v)
				i = j
				continue
			}
			return nil, errNotConstant("unknown escape \\%c", e)
		}
	}
	return out, nil
}
