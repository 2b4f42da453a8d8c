package conditions

import (
	"fmt"

	"github.com/solatis/gatekeeper/internal/world"
)

// TypeMask is the set of object categories a predicate could match, used
// by spatial searches to skip objects before evaluating.
type TypeMask uint8

const (
	MaskCorpse TypeMask = 1 << iota
	MaskCreature
	MaskGameObject
	MaskPlayer
	MaskAreaTrigger

	MaskAll = MaskCorpse | MaskCreature | MaskGameObject | MaskPlayer | MaskAreaTrigger
)

// searchableObjectMask holds the object type bits a TypeMask predicate may
// name.
const searchableObjectMask = world.ObjectMaskUnit | world.ObjectMaskPlayer |
	world.ObjectMaskGameObject | world.ObjectMaskCorpse | world.ObjectMaskAreaTrigger

// Has reports whether every bit of o is set in m.
func (m TypeMask) Has(o TypeMask) bool { return m&o == o }

// Matches reports whether obj belongs to a category in m.
func (m TypeMask) Matches(obj world.Object) bool {
	if obj == nil {
		return false
	}
	return m&objectTypeMask(obj.TypeID()) != 0
}

// objectTypeMask maps a concrete object type to its category. Types no
// search can return map to 0.
func objectTypeMask(t world.TypeID) TypeMask {
	switch t {
	case world.TypeUnit:
		return MaskCreature
	case world.TypePlayer:
		return MaskPlayer
	case world.TypeGameObject:
		return MaskGameObject
	case world.TypeCorpse:
		return MaskCorpse
	case world.TypeAreaTrigger:
		return MaskAreaTrigger
	default:
		return 0
	}
}

// MaskFor returns the categories p could match. A negated predicate can
// match anything. A reference predicate matches anything on its own; the
// Evaluator narrows it through the referenced list.
//
// MaskFor panics on a kind outside the table; every valid kind is mapped.
func MaskFor(p *Predicate) TypeMask {
	if p.Negate || p.IsReference() {
		return MaskAll
	}
	if !p.Kind.Valid() {
		panic(fmt.Sprintf("conditions: no type mask for %s", p.Kind))
	}

	switch p.Kind {
	case KindObjectEntryGUID:
		return objectTypeMask(world.TypeID(p.Value1))
	case KindTypeMask:
		var mask TypeMask
		if p.Value1&world.ObjectMaskUnit != 0 {
			mask |= MaskCreature | MaskPlayer
		}
		if p.Value1&world.ObjectMaskPlayer != 0 {
			mask |= MaskPlayer
		}
		if p.Value1&world.ObjectMaskGameObject != 0 {
			mask |= MaskGameObject
		}
		if p.Value1&world.ObjectMaskCorpse != 0 {
			mask |= MaskCorpse
		}
		if p.Value1&world.ObjectMaskAreaTrigger != 0 {
			mask |= MaskAreaTrigger
		}
		return mask
	}

	mask := kindSpecs[p.Kind].mask
	if mask == 0 {
		panic(fmt.Sprintf("conditions: no type mask for %s", p.Kind))
	}
	return mask
}
