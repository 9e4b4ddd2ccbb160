package types

// TypedefResolver looks up the aliased type of a typedef name.
type TypedefResolver interface {
	TypedefTarget(name string) (TypeID, bool)
}

// ResolveStatus tells why Resolve stopped.
type ResolveStatus uint8

const (
	Resolved ResolveStatus = iota
	UndeclaredTypedef
	CyclicTypedef
)

// Resolve strips typedef references and qualifiers from id until it reaches a
// non-typedef type. On failure it returns the offending TypedefRef.
func Resolve(in *Interner, id TypeID, r TypedefResolver) (TypeID, ResolveStatus) {
	seen := make(map[TypeID]struct{}, 4)
	for {
		tt, ok := in.Lookup(id)
		if !ok {
			return id, Resolved
		}
		switch tt.Kind {
		case KindQualified:
			id = tt.Elem
		case KindTypedefRef:
			if _, dup := seen[id]; dup {
				return id, CyclicTypedef
			}
			seen[id] = struct{}{}
			if r == nil {
				return id, UndeclaredTypedef
			}
			target, found := r.TypedefTarget(tt.Name)
			if !found || target == NoTypeID {
				return id, UndeclaredTypedef
			}
			id = target
		default:
			return id, Resolved
		}
	}
}
