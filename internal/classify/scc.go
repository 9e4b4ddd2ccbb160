package classify

import (
	"hbind/internal/decls"
	"hbind/internal/types"
)

// components runs Tarjan's algorithm over complete records. An edge goes
// from a record to every record the classifier would visit from it: members
// by value, array elements, and the signatures of function pointers.
// Component ids start at 1.
func (c *Classifier) components() {
	c.scc = make(map[decls.EntityID]int)
	c.members = [][]decls.EntityID{nil}

	index := make(map[decls.EntityID]int)
	low := make(map[decls.EntityID]int)
	onStack := make(map[decls.EntityID]bool)
	var stack []decls.EntityID
	next := 0

	var strong func(id decls.EntityID)
	strong = func(id decls.EntityID) {
		index[id] = next
		low[id] = next
		next++
		stack = append(stack, id)
		onStack[id] = true

		for _, dep := range c.edges(c.tbl.Entity(id)) {
			if _, seen := index[dep]; !seen {
				strong(dep)
				low[id] = min(low[id], low[dep])
			} else if onStack[dep] {
				low[id] = min(low[id], index[dep])
			}
		}

		if low[id] != index[id] {
			return
		}
		comp := len(c.members)
		var group []decls.EntityID
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			c.scc[top] = comp
			group = append(group, top)
			if top == id {
				break
			}
		}
		c.members = append(c.members, group)
	}

	for _, ent := range c.tbl.Entities() {
		if ent.Kind != decls.KindRecord || !ent.Record.Complete {
			continue
		}
		if _, seen := index[ent.ID]; !seen {
			strong(ent.ID)
		}
	}
}

func (c *Classifier) edges(ent *decls.Entity) []decls.EntityID {
	var out []decls.EntityID
	type visit struct {
		id         types.TypeID
		viaPointer bool
	}
	seen := make(map[visit]bool)
	var walkFields func(fields []decls.Field)
	var walk func(id types.TypeID, viaPointer bool)
	walk = func(id types.TypeID, viaPointer bool) {
		resolved, status := types.Resolve(c.in, id, c.tbl)
		v := visit{resolved, viaPointer}
		if status != types.Resolved || seen[v] {
			return
		}
		seen[v] = true
		tt, ok := c.in.Lookup(resolved)
		if !ok {
			return
		}
		switch tt.Kind {
		case types.KindArray:
			walk(tt.Elem, false)
		case types.KindPointer:
			walk(tt.Elem, true)
		case types.KindFunction:
			info, ok := c.in.FnInfo(resolved)
			if !ok {
				return
			}
			walk(info.Result, false)
			for _, p := range info.Params {
				walk(p, false)
			}
		case types.KindRecordRef:
			if viaPointer {
				return
			}
			dep, ok := c.tbl.Lookup(decls.NSTag, tt.Name)
			if ok && dep.Kind == decls.KindRecord && dep.Record.Complete {
				out = append(out, dep.ID)
			}
		}
	}
	walkFields = func(fields []decls.Field) {
		for i := range fields {
			if g := fields[i].Group; g != nil {
				walkFields(g.Fields)
				continue
			}
			walk(fields[i].Type, false)
		}
	}
	walkFields(ent.Record.Fields)
	return out
}
