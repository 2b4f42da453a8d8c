package conditions

import (
	"github.com/solatis/gatekeeper/internal/types"
	"github.com/solatis/gatekeeper/internal/world"
)

// Key is the composite key of a predicate list within its source kind.
type Key struct {
	Group uint32
	Entry int32
	SubID uint32
}

// ListKey identifies one predicate list in the registry.
type ListKey struct {
	Source SourceKind
	Key
}

// referenceKey is the list key of reference template id.
func referenceKey(id uint32) ListKey {
	return ListKey{Source: SourceReference, Key: Key{Group: id}}
}

// Handle is a stable index of a predicate list. Handle 0 is the empty list.
type Handle uint32

// Predicate is one compiled condition row. Predicates are immutable once
// published in a Snapshot.
type Predicate struct {
	Source    SourceKind
	Key       Key
	ElseGroup uint32

	Kind        Kind
	TargetSlot  uint8
	Value1      uint32
	Value2      uint32
	Value3      uint32
	StringValue string
	Negate      bool

	// ReferenceID is non-zero for rows that delegate to a reference
	// template; Kind is KindNone for them.
	ReferenceID uint32

	ErrorKind   uint32
	ErrorTextID uint32
	ScriptRef   string

	// Row is the index of the originating row in the loaded source.
	Row int

	// ref is the resolved handle of the referenced template, 0 if missing.
	ref Handle
}

// IsReference reports whether p delegates to a reference template.
func (p *Predicate) IsReference() bool { return p.ReferenceID != 0 }

// ListKey returns the key of the list p belongs to.
func (p *Predicate) ListKey() ListKey { return ListKey{Source: p.Source, Key: p.Key} }

// Context carries the objects and map one evaluation runs against. The
// caller owns it; evaluation writes only LastFailure.
type Context struct {
	Targets [types.MaxTargets]world.Object
	Map     world.Map

	// LastFailure is the last predicate that evaluated false. It is set
	// only when the overall result is false.
	LastFailure *Predicate
}

// NewContext returns a context for map m with the given targets.
func NewContext(m world.Map, targets ...world.Object) *Context {
	ctx := &Context{Map: m}
	copy(ctx.Targets[:], targets)
	return ctx
}

func (ctx *Context) target(slot uint32) world.Object {
	if ctx == nil || slot >= types.MaxTargets {
		return nil
	}
	return ctx.Targets[slot]
}
