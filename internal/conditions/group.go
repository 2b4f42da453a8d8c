package conditions

import (
	"go.uber.org/zap"
)

/*
 * Group composition.
 *
 * A predicate list is a disjunction of else-groups, each a conjunction of
 * its predicates:
 *
 *   list = OR over elseGroup g of ( AND over predicates p in g )
 *
 * Predicates keep their load order. Once a group has failed, its remaining
 * predicates are skipped. The empty list is true. A reference predicate
 * contributes the result of its template list, inverted by its own negate
 * flag; an unresolved reference imposes no constraint on its group.
 *
 * The same shape, with masks for booleans, gives GroupMask: AND (bitwise)
 * within a group, OR across groups.
 */

type groupResult struct {
	group uint32
	met   bool
}

// GroupMeets evaluates list against ctx. On a false result ctx.LastFailure
// is the last predicate that failed; a true result leaves it untouched.
func (e *Evaluator) GroupMeets(list []Predicate, ctx *Context) bool {
	var st stack
	met, failed := e.groupMeets(list, ctx, &st)
	if !met && ctx != nil {
		ctx.LastFailure = failed
	}
	return met
}

func (e *Evaluator) groupMeets(list []Predicate, ctx *Context, st *stack) (bool, *Predicate) {
	if len(list) == 0 {
		return true, nil
	}

	var failed *Predicate
	groups := make([]groupResult, 0, 4)
	for i := range list {
		p := &list[i]
		g := findGroup(groups, p.ElseGroup)
		if g >= 0 && !groups[g].met {
			continue
		}

		// A missing template constrains nothing; its group still exists.
		if p.IsReference() && e.resolve(p) == 0 {
			e.missingReference(p)
			if g < 0 {
				groups = append(groups, groupResult{group: p.ElseGroup, met: true})
			}
			continue
		}

		met := e.meets(p, ctx, st)
		if !met {
			failed = p
		}
		if g < 0 {
			groups = append(groups, groupResult{group: p.ElseGroup, met: met})
		} else {
			groups[g].met = met
		}
	}

	for _, g := range groups {
		if g.met {
			return true, nil
		}
	}
	return false, failed
}

func findGroup(groups []groupResult, group uint32) int {
	for i := range groups {
		if groups[i].group == group {
			return i
		}
	}
	return -1
}

// resolve returns the handle of the template p delegates to, or 0 when the
// snapshot holds no such template. Predicates taken from Snapshot.List are
// resolved at load; hand-built ones are looked up by ReferenceID.
func (e *Evaluator) resolve(p *Predicate) Handle {
	if p.ref != 0 {
		return p.ref
	}
	h, _ := e.snap.Lookup(referenceKey(p.ReferenceID))
	return h
}

// reference evaluates the template list p delegates to.
func (e *Evaluator) reference(p *Predicate, ctx *Context, st *stack) (bool, bool) {
	h := e.resolve(p)
	if !st.push(h) {
		e.log.Warn("condition reference cycle at evaluation",
			zap.Int("row", p.Row), zap.Uint32("reference", p.ReferenceID))
		return false, false
	}
	met, _ := e.groupMeets(e.snap.List(h), ctx, st)
	st.pop()
	return met, true
}

type maskResult struct {
	group uint32
	mask  TypeMask
}

// GroupMask returns the categories any object meeting list could belong
// to. The empty list matches everything.
func (e *Evaluator) GroupMask(list []Predicate) TypeMask {
	var st stack
	return e.groupMask(list, &st)
}

func (e *Evaluator) groupMask(list []Predicate, st *stack) TypeMask {
	if len(list) == 0 {
		return MaskAll
	}

	groups := make([]maskResult, 0, 4)
	for i := range list {
		p := &list[i]
		m := e.predicateMask(p, st)

		found := false
		for j := range groups {
			if groups[j].group == p.ElseGroup {
				groups[j].mask &= m
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, maskResult{group: p.ElseGroup, mask: m})
		}
	}

	var mask TypeMask
	for _, g := range groups {
		mask |= g.mask
	}
	return mask
}

func (e *Evaluator) predicateMask(p *Predicate, st *stack) TypeMask {
	if p.Negate || !p.IsReference() {
		return MaskFor(p)
	}
	h := e.resolve(p)
	if h == 0 || !st.push(h) {
		return MaskAll
	}
	m := e.groupMask(e.snap.List(h), st)
	st.pop()
	return m
}
