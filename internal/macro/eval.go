// Package macro evaluates object-like #define bodies as C constant
// expressions.
//
// Values carry a C type chosen by the usual literal typing and arithmetic
// conversion rules for the configured target. Macros may reference other
// macros, enumerators and (inside casts) typedef names. Cycles are found
// once, up front, so that concurrent evaluation never waits on itself.
package macro

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync"
	"golang.org/x/sync/singleflight"
)

// Source is what the evaluator needs from the declaration table.
type Source interface {
	// MacroText returns the replacement text of a macro.
	MacroText(name string) (text string, functionLike bool, ok bool)
	// Constant returns the value of an enumerator.
	Constant(name string) (Value, bool)
	// TypeName maps a typedef name to the scalar type it aliases.
	TypeName(name string) (CType, bool)
	// Names lists every macro.
	Names() []string
}

type definition struct {
	expr *node
	deps []string
	err  *MacroError
}

type result struct {
	val Value
	err *MacroError
}

// Evaluator computes macro values. Evaluate is safe for concurrent use once
// Prepare has run; each macro is evaluated at most once.
type Evaluator struct {
	src  Source
	opts Options

	prepare sync.Once
	defs    map[string]*definition
	names   []string

	mu    xsync.RBMutex
	memo  map[string]result
	group singleflight.Group
}

// New returns an evaluator over src.
func New(src Source, opts Options) *Evaluator {
	return &Evaluator{
		src:  src,
		opts: opts,
		memo: make(map[string]result),
	}
}

// Options returns the target parameters in use.
func (e *Evaluator) Options() Options { return e.opts }

// Prepare parses every macro and marks cyclic definitions. It is called
// implicitly by Evaluate; calling it first from a single goroutine keeps the
// parse out of the parallel phase.
func (e *Evaluator) Prepare() {
	e.prepare.Do(func() {
		names := e.src.Names()
		e.defs = make(map[string]*definition, len(names))
		for _, name := range names {
			e.defs[name] = e.define(name)
		}
		e.names = append([]string(nil), names...)
		sort.Strings(e.names)
		e.markCycles()
	})
}

// Names returns the macros known to the evaluator, sorted.
func (e *Evaluator) Names() []string {
	e.Prepare()
	return append([]string(nil), e.names...)
}

func (e *Evaluator) define(name string) *definition {
	text, functionLike, ok := e.src.MacroText(name)
	if !ok {
		return &definition{err: &MacroError{Kind: UnresolvedReference, Name: name, Ref: name}}
	}
	if functionLike {
		return &definition{err: &MacroError{Kind: NotConstant, Name: name, Detail: "function-like macro"}}
	}
	expr, deps, err := parse(text, e.opts, e.src.TypeName)
	if err != nil {
		return &definition{err: notConstantError(name, err)}
	}
	return &definition{expr: expr, deps: deps}
}

func notConstantError(name string, err error) *MacroError {
	var nc *notConstant
	if errors.As(err, &nc) {
		return &MacroError{Kind: NotConstant, Name: name, Detail: nc.msg}
	}
	return &MacroError{Kind: NotConstant, Name: name, Detail: err.Error()}
}

const (
	unvisited = iota
	visiting
	done
)

// markCycles finds the macros that reach themselves. Every cycle gets at
// least one marked member, which is enough to stop recursion; macros that
// only depend on a cycle pick the error up during evaluation.
func (e *Evaluator) markCycles() {
	state := make(map[string]int, len(e.defs))
	var stack []string
	var visit func(name string)
	visit = func(name string) {
		state[name] = visiting
		stack = append(stack, name)
		def := e.defs[name]
		for _, dep := range def.deps {
			next, ok := e.defs[dep]
			if !ok || next.expr == nil {
				continue
			}
			switch state[dep] {
			case unvisited:
				visit(dep)
			case visiting:
				// dep..name on the stack form a cycle
				for i := len(stack) - 1; i >= 0; i-- {
					member := e.defs[stack[i]]
					if member.err == nil {
						ref := dep
						if i+1 < len(stack) {
							ref = stack[i+1]
						}
						member.err = &MacroError{Kind: CyclicDefinition, Name: stack[i], Ref: ref}
					}
					if stack[i] == dep {
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
	}
	for _, name := range e.names {
		if state[name] == unvisited && e.defs[name].expr != nil {
			visit(name)
		}
	}
}

// Evaluate returns the value of the named macro. The error, if any, is a
// *MacroError.
func (e *Evaluator) Evaluate(name string) (Value, error) {
	r := e.evaluate(name)
	if r.err != nil {
		return Value{}, r.err
	}
	return r.val, nil
}

func (e *Evaluator) evaluate(name string) result {
	e.Prepare()
	def, ok := e.defs[name]
	if !ok {
		return result{err: &MacroError{Kind: UnresolvedReference, Name: name, Ref: name}}
	}
	if def.err != nil {
		return result{err: def.err}
	}
	if r, ok := e.lookup(name); ok {
		return r
	}
	v, _, _ := e.group.Do(name, func() (any, error) {
		if r, ok := e.lookup(name); ok {
			return r, nil
		}
		val, err := e.eval(name, def.expr)
		r := result{val: val, err: err}
		e.mu.Lock()
		e.memo[name] = r
		e.mu.Unlock()
		return r, nil
	})
	return v.(result)
}

func (e *Evaluator) lookup(name string) (result, bool) {
	tk := e.mu.RLock()
	r, ok := e.memo[name]
	e.mu.RUnlock(tk)
	return r, ok
}

// eval folds the expression tree of macro name.
func (e *Evaluator) eval(name string, n *node) (Value, *MacroError) {
	switch n.kind {
	case nodeLit:
		return n.val, nil
	case nodeIdent:
		return e.ident(name, n.name)
	case nodeUnary:
		x, merr := e.eval(name, n.x)
		if merr != nil {
			return Value{}, merr
		}
		v, err := e.opts.unary(n.op, x)
		if err != nil {
			return Value{}, notConstantError(name, err)
		}
		return v, nil
	case nodeBinary:
		return e.binary(name, n)
	case nodeCond:
		return e.cond(name, n)
	case nodeCast:
		x, merr := e.eval(name, n.x)
		if merr != nil {
			return Value{}, merr
		}
		return e.cast(name, x, n.castTo)
	}
	return Value{}, &MacroError{Kind: NotConstant, Name: name, Detail: fmt.Sprintf("unexpected node %d", n.kind)}
}

func (e *Evaluator) ident(name, ref string) (Value, *MacroError) {
	if _, isMacro := e.defs[ref]; isMacro {
		r := e.evaluate(ref)
		if r.err == nil {
			return r.val, nil
		}
		switch r.err.Kind {
		case CyclicDefinition:
			return Value{}, &MacroError{Kind: CyclicDefinition, Name: name, Ref: ref}
		case UnresolvedReference:
			return Value{}, &MacroError{Kind: UnresolvedReference, Name: name, Ref: r.err.Ref}
		default:
			return Value{}, &MacroError{Kind: NotConstant, Name: name, Ref: ref, Detail: "depends on " + ref}
		}
	}
	if v, ok := e.src.Constant(ref); ok {
		return v, nil
	}
	return Value{}, &MacroError{Kind: UnresolvedReference, Name: name, Ref: ref}
}

func (e *Evaluator) binary(name string, n *node) (Value, *MacroError) {
	x, merr := e.eval(name, n.x)
	if merr != nil {
		return Value{}, merr
	}
	// && and || skip the right operand when the left one decides
	switch n.op {
	case "&&", "||":
		if x.Type == CString {
			return Value{}, &MacroError{Kind: NotConstant, Name: name, Detail: fmt.Sprintf("'%s' applied to a string", n.op)}
		}
		if n.op == "&&" && x.IsZero() {
			return e.opts.boolValue(false), nil
		}
		if n.op == "||" && !x.IsZero() {
			return e.opts.boolValue(true), nil
		}
	}
	y, merr := e.eval(name, n.y)
	if merr != nil {
		return Value{}, merr
	}
	v, err := e.opts.binary(n.op, x, y)
	if err != nil {
		return Value{}, notConstantError(name, err)
	}
	return v, nil
}

func (e *Evaluator) cond(name string, n *node) (Value, *MacroError) {
	c, merr := e.eval(name, n.x)
	if merr != nil {
		return Value{}, merr
	}
	if c.Type == CString {
		return Value{}, &MacroError{Kind: NotConstant, Name: name, Detail: "string used as a condition"}
	}
	taken, other := n.y, n.z
	if c.IsZero() {
		taken, other = n.z, n.y
	}
	v, merr := e.eval(name, taken)
	if merr != nil {
		return Value{}, merr
	}
	// the result type is the common type of both arms when the other arm
	// folds too
	if w, merr := e.eval(name, other); merr == nil && v.Type.IsArithmetic() && w.Type.IsArithmetic() {
		v = e.opts.convert(v, e.opts.common(v.Type, w.Type))
	}
	return v, nil
}

func (e *Evaluator) cast(name string, x Value, to CType) (Value, *MacroError) {
	switch {
	case x.Type == CString && to == CPointer:
		return x, nil
	case x.Type == CString:
		return Value{}, &MacroError{Kind: NotConstant, Name: name, Detail: "string cast to " + to.String()}
	case x.Type.IsFloat() && to == CPointer:
		return Value{}, &MacroError{Kind: NotConstant, Name: name, Detail: "floating value cast to a pointer"}
	case x.Type == CPointer && to.IsFloat():
		return Value{}, &MacroError{Kind: NotConstant, Name: name, Detail: "pointer cast to " + to.String()}
	}
	return e.opts.convert(x, to), nil
}
