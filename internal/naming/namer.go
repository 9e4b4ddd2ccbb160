// Package naming assigns synthetic names to anonymous structs, unions and
// enums.
//
// A name is derived from the nesting path of the anonymous node (the
// enclosing declaration, then each field, return value or parameter on the
// way down), so it is stable for a given translation unit and path. Names
// that collide with a tag already in the declaration table, or with an
// earlier synthetic name, get a "_1", "_2", ... suffix.
package naming

import (
	"strconv"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync"
	"golang.org/x/sync/singleflight"
)

// NodeKind says how an anonymous node is reached from its owner.
type NodeKind uint8

const (
	// NodeField is the type of a named member: Outer_field.
	NodeField NodeKind = iota + 1
	// NodeTypedef is typedef struct { ... } T: T.
	NodeTypedef
	// NodeVariable is the type of a global variable: the variable name.
	NodeVariable
	// NodeReturn is a function (pointer) result: owner_return.
	NodeReturn
	// NodeParam is a function (pointer) parameter: owner_x<i>.
	NodeParam
	// NodeTopLevel is a tag declared without any name or declarator.
	NodeTopLevel
)

func (k NodeKind) String() string {
	switch k {
	case NodeField:
		return "field"
	case NodeTypedef:
		return "typedef"
	case NodeVariable:
		return "variable"
	case NodeReturn:
		return "return"
	case NodeParam:
		return "param"
	case NodeTopLevel:
		return "top-level"
	default:
		return "node"
	}
}

// Path is the chain of names from the translation unit root to a node.
type Path []string

// String renders the path as Outer.field.
func (p Path) String() string { return strings.Join(p, ".") }

// Child returns a copy of p extended by name.
func (p Path) Child(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Node identifies one anonymous type occurrence.
type Node struct {
	Path    Path
	Kind    NodeKind
	Tag     string // "struct", "union" or "enum"
	Context string // translation unit
	Ordinal int    // NodeTopLevel only, 1-based within the unit
}

func (n Node) key() string {
	var b strings.Builder
	b.WriteString(n.Context)
	b.WriteByte(0)
	b.WriteString(n.Path.String())
	b.WriteByte(0)
	b.WriteString(n.Kind.String())
	if n.Kind == NodeTopLevel {
		b.WriteByte(0)
		b.WriteString(n.Tag)
		b.WriteString(strconv.Itoa(n.Ordinal))
	}
	return b.String()
}

// base is the name before collision handling.
func (n Node) base() string {
	switch n.Kind {
	case NodeTopLevel:
		return "anon_" + n.Tag + "_" + strconv.Itoa(n.Ordinal)
	case NodeTypedef, NodeVariable:
		if len(n.Path) > 0 {
			return n.Path[len(n.Path)-1]
		}
	}
	return strings.Join(n.Path, "_")
}

// TagSet is the part of the declaration table the namer checks for
// collisions.
type TagSet interface {
	HasTag(name string) bool
}

// Collision records a synthetic name that needed a suffix.
type Collision struct {
	Node Node
	Base string
	Name string
}

// Namer hands out synthetic names. It is safe for concurrent use: each node
// is named at most once and later calls return the memoized name.
type Namer struct {
	tags TagSet

	mu   xsync.RBMutex
	memo map[string]string

	group singleflight.Group

	claimMu    sync.Mutex
	taken      map[string]struct{}
	collisions []Collision
}

// New returns a namer that avoids the tags known to tags (may be nil).
func New(tags TagSet) *Namer {
	return &Namer{
		tags:  tags,
		memo:  make(map[string]string),
		taken: make(map[string]struct{}),
	}
}

// NameFor returns the synthetic name of node.
func (n *Namer) NameFor(node Node) string {
	key := node.key()
	if name, ok := n.lookup(key); ok {
		return name
	}
	v, _, _ := n.group.Do(key, func() (any, error) {
		if name, ok := n.lookup(key); ok {
			return name, nil
		}
		name := n.claim(node)
		n.mu.Lock()
		n.memo[key] = name
		n.mu.Unlock()
		return name, nil
	})
	return v.(string)
}

func (n *Namer) lookup(key string) (string, bool) {
	tk := n.mu.RLock()
	name, ok := n.memo[key]
	n.mu.RUnlock(tk)
	return name, ok
}

func (n *Namer) claim(node Node) string {
	base := node.base()
	n.claimMu.Lock()
	defer n.claimMu.Unlock()
	name := base
	for i := 1; n.isTaken(name); i++ {
		name = base + "_" + strconv.Itoa(i)
	}
	n.taken[name] = struct{}{}
	if name != base {
		n.collisions = append(n.collisions, Collision{Node: node, Base: base, Name: name})
	}
	return name
}

func (n *Namer) isTaken(name string) bool {
	if _, ok := n.taken[name]; ok {
		return true
	}
	return n.tags != nil && n.tags.HasTag(name)
}

// Collisions returns the names that were disambiguated, in claim order.
func (n *Namer) Collisions() []Collision {
	n.claimMu.Lock()
	defer n.claimMu.Unlock()
	return append([]Collision(nil), n.collisions...)
}

// Len returns the number of names handed out.
func (n *Namer) Len() int {
	tk := n.mu.RLock()
	defer n.mu.RUnlock(tk)
	return len(n.memo)
}
