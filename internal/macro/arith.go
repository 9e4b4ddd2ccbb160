package macro

import "math"

// promote applies the integer promotions.
func (o Options) promote(t CType) CType {
	if !t.IsInteger() || t.rank() >= CInt.rank() {
		return t
	}
	if o.Signed(t) || o.Bits(t) < o.IntBits {
		return CInt
	}
	return CUInt
}

// common is the type of the usual arithmetic conversions.
func (o Options) common(a, b CType) CType {
	switch {
	case a == CLongDouble || b == CLongDouble:
		return CLongDouble
	case a == CDouble || b == CDouble:
		return CDouble
	case a == CFloat || b == CFloat:
		return CFloat
	}
	a, b = o.promote(a), o.promote(b)
	if a == b {
		return a
	}
	sa, sb := o.Signed(a), o.Signed(b)
	if sa == sb {
		if a.rank() >= b.rank() {
			return a
		}
		return b
	}
	u, s := a, b
	if sa {
		u, s = b, a
	}
	if u.rank() >= s.rank() {
		return u
	}
	if o.Bits(s) > o.Bits(u) {
		return s
	}
	return s.unsigned()
}

// extend returns the bits of an integer value widened to 64 bits.
func (v Value) extend() uint64 {
	if v.Signed {
		return uint64(v.Int64())
	}
	return v.Bits
}

// convert performs a C conversion between scalar types.
func (o Options) convert(v Value, to CType) Value {
	if v.Type == to {
		return v
	}
	switch {
	case to.IsFloat():
		return makeFloat(to, v.Float64())
	case to == CBool:
		if v.IsZero() {
			return o.makeInt(CBool, 0)
		}
		return o.makeInt(CBool, 1)
	case v.Type.IsFloat():
		f := math.Trunc(v.Float)
		if f < 0 {
			return o.makeInt(to, uint64(int64(f)))
		}
		if f >= math.MaxUint64 {
			return o.makeInt(to, math.MaxUint64)
		}
		return o.makeInt(to, uint64(f))
	default:
		return o.makeInt(to, v.extend())
	}
}

func (o Options) boolValue(b bool) Value {
	if b {
		return o.makeInt(CInt, 1)
	}
	return o.makeInt(CInt, 0)
}

func (o Options) unary(op string, v Value) (Value, error) {
	if op == "!" {
		if v.Type == CString {
			return Value{}, errNotConstant("'!' applied to a string")
		}
		return o.boolValue(v.IsZero()), nil
	}
	if !v.Type.IsArithmetic() {
		return Value{}, errNotConstant("'%s' applied to a %s", op, v.Type)
	}
	v = o.convert(v, o.promote(v.Type))
	switch op {
	case "+":
		return v, nil
	case "-":
		if v.Type.IsFloat() {
			return makeFloat(v.Type, -v.Float), nil
		}
		return o.makeInt(v.Type, -v.Bits), nil
	case "~":
		if v.Type.IsFloat() {
			return Value{}, errNotConstant("'~' applied to a floating value")
		}
		return o.makeInt(v.Type, ^v.Bits), nil
	}
	return Value{}, errNotConstant("unsupported unary operator %s", op)
}

func (o Options) binary(op string, a, b Value) (Value, error) {
	if !a.Type.IsArithmetic() || !b.Type.IsArithmetic() {
		return Value{}, errNotConstant("'%s' applied to %s and %s", op, a.Type, b.Type)
	}
	switch op {
	case "<<", ">>":
		return o.shift(op, a, b)
	case "&&":
		return o.boolValue(!a.IsZero() && !b.IsZero()), nil
	case "||":
		return o.boolValue(!a.IsZero() || !b.IsZero()), nil
	}

	t := o.common(a.Type, b.Type)
	a, b = o.convert(a, t), o.convert(b, t)
	if t.IsFloat() {
		return o.floatOp(op, t, a.Float, b.Float)
	}
	signed := o.Signed(t)
	switch op {
	case "==":
		return o.boolValue(a.Bits == b.Bits), nil
	case "!=":
		return o.boolValue(a.Bits != b.Bits), nil
	case "<", "<=", ">", ">=":
		var cmp int
		if signed {
			cmp = compare(a.Int64(), b.Int64())
		} else {
			cmp = compare(a.Bits, b.Bits)
		}
		return o.boolValue(relation(op, cmp)), nil
	case "+":
		return o.makeInt(t, a.Bits+b.Bits), nil
	case "-":
		return o.makeInt(t, a.Bits-b.Bits), nil
	case "*":
		return o.makeInt(t, a.Bits*b.Bits), nil
	case "&":
		return o.makeInt(t, a.Bits&b.Bits), nil
	case "|":
		return o.makeInt(t, a.Bits|b.Bits), nil
	case "^":
		return o.makeInt(t, a.Bits^b.Bits), nil
	case "/", "%":
		if b.Bits == 0 {
			return Value{}, errNotConstant("division by zero")
		}
		if !signed {
			if op == "/" {
				return o.makeInt(t, a.Bits/b.Bits), nil
			}
			return o.makeInt(t, a.Bits%b.Bits), nil
		}
		x, y := a.Int64(), b.Int64()
		if y == -1 {
			// INT_MIN / -1 wraps instead of trapping
			if op == "/" {
				return o.makeInt(t, uint64(-x)), nil
			}
			return o.makeInt(t, 0), nil
		}
		if op == "/" {
			return o.makeInt(t, uint64(x/y)), nil
		}
		return o.makeInt(t, uint64(x%y)), nil
	}
	return Value{}, errNotConstant("unsupported operator %s", op)
}

func (o Options) shift(op string, a, b Value) (Value, error) {
	if a.Type.IsFloat() || b.Type.IsFloat() {
		return Value{}, errNotConstant("shift of a floating value")
	}
	a = o.convert(a, o.promote(a.Type))
	n := b.Int64()
	if !b.Signed {
		n = int64(b.Bits)
	}
	if n < 0 || n >= int64(a.Width) {
		return Value{}, errNotConstant("shift count %d out of range", n)
	}
	if op == "<<" {
		return o.makeInt(a.Type, a.Bits<<uint(n)), nil
	}
	if a.Signed {
		return o.makeInt(a.Type, uint64(a.Int64()>>uint(n))), nil
	}
	return o.makeInt(a.Type, a.Bits>>uint(n)), nil
}

func (o Options) floatOp(op string, t CType, x, y float64) (Value, error) {
	switch op {
	case "+":
		return makeFloat(t, x+y), nil
	case "-":
		return makeFloat(t, x-y), nil
	case "*":
		return makeFloat(t, x*y), nil
	case "/":
		return makeFloat(t, x/y), nil
	case "==":
		return o.boolValue(x == y), nil
	case "!=":
		return o.boolValue(x != y), nil
	case "<", "<=", ">", ">=":
		return o.boolValue(relation(op, compare(x, y))), nil
	}
	return Value{}, errNotConstant("'%s' applied to a floating value", op)
}

func compare[T int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func relation(op string, cmp int) bool {
	switch op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	default:
		return cmp >= 0
	}
}
