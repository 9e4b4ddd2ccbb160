package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Interner provides stable TypeIDs for structural descriptors.
//
// Interning happens while the session resolves declarations. Once that pass
// is over the interner is only read, and concurrent Lookup calls are safe.
type Interner struct {
	types []Type
	index map[Type]TypeID
	fns   []FnInfo
	fnIdx map[string]TypeID
}

// NewInterner returns an empty interner with NoTypeID reserved.
func NewInterner() *Interner {
	in := &Interner{
		types: make([]Type, 1, 64),
		index: make(map[Type]TypeID, 64),
		fns:   make([]FnInfo, 1, 8), // slot 0 is the invalid sentinel
		fnIdx: make(map[string]TypeID, 8),
	}
	return in
}

// Intern returns the TypeID of t, adding it on first use.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if t.Kind == KindFunction {
		panic("types: use RegisterFn for function types")
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Qualify wraps elem in qualifiers, merging with an existing qualified layer.
func (in *Interner) Qualify(elem TypeID, q Qual) TypeID {
	if q == 0 || elem == NoTypeID {
		return elem
	}
	if tt, ok := in.Lookup(elem); ok && tt.Kind == KindQualified {
		return in.Intern(Type{Kind: KindQualified, Elem: tt.Elem, Quals: tt.Quals | q})
	}
	return in.Intern(Type{Kind: KindQualified, Elem: elem, Quals: q})
}

// Lookup returns the descriptor for id.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len returns the number of interned types, NoTypeID excluded.
func (in *Interner) Len() int {
	return len(in.types) - 1
}

// FnInfo stores the signature of a function type.
type FnInfo struct {
	Params   []TypeID
	Result   TypeID
	Variadic bool
}

// RegisterFn returns the function type for the signature, interning it once.
func (in *Interner) RegisterFn(params []TypeID, result TypeID, variadic bool) TypeID {
	key := fnKey(params, result, variadic)
	if id, ok := in.fnIdx[key]; ok {
		return id
	}
	in.fns = append(in.fns, FnInfo{
		Params:   append([]TypeID(nil), params...),
		Result:   result,
		Variadic: variadic,
	})
	slot, err := safecast.Conv[uint32](len(in.fns) - 1)
	if err != nil {
		panic(fmt.Errorf("fn info overflow: %w", err))
	}
	id := in.internRaw(Type{Kind: KindFunction, Payload: slot})
	in.fnIdx[key] = id
	return id
}

// FnInfo returns the signature of a function type.
func (in *Interner) FnInfo(id TypeID) (*FnInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFunction {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.fns) {
		return nil, false
	}
	return &in.fns[tt.Payload], true
}

func fnKey(params []TypeID, result TypeID, variadic bool) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(result), 10))
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(p), 10))
	}
	if variadic {
		b.WriteString(",...")
	}
	b.WriteByte(')')
	return b.String()
}
