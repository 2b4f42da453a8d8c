// Package types provides the raw row shapes, limits and sentinel errors
// shared by the condition engine and its loaders.
//
// Rows mirror the backing-store schema one-to-one. They carry no behaviour;
// internal/conditions validates and compiles them into predicates, and
// internal/core/db fills them from the database.
package types

// ConditionRow is one authored rule row as stored in the conditions table.
//
// A negative SourceKind defines a reference-template set named
// -SourceKind instead of a concrete source binding. A negative
// PredicateKind makes the row a pure indirection to reference set
// -PredicateKind.
type ConditionRow struct {
	SourceKind    int32  `db:"source_kind"`
	SourceGroup   uint32 `db:"source_group"`
	SourceEntry   int32  `db:"source_entry"`
	SourceSubID   uint32 `db:"source_sub_id"`
	ElseGroup     uint32 `db:"else_group"`
	PredicateKind int32  `db:"predicate_kind"`
	TargetSlot    uint8  `db:"target_slot"`
	Value1        uint32 `db:"value1"`
	Value2        uint32 `db:"value2"`
	Value3        uint32 `db:"value3"`
	StringValue   string `db:"string_value"`
	Negate        bool   `db:"negate"`
	ErrorKind     uint32 `db:"error_kind"`
	ErrorTextID   uint32 `db:"error_text_id"`
	ScriptRef     string `db:"script_ref"`
}

// RecordRow is a fixed-schema record (player or unit condition) stored as
// an id plus a JSON definition, the same way rule expressions are stored.
type RecordRow struct {
	ID         uint32 `db:"id"`
	Definition string `db:"definition"`
}

// ExpressionRow is a compiled world-state expression stored as hex text.
type ExpressionRow struct {
	ID         uint32 `db:"id"`
	Expression string `db:"expression"`
}

// Engine limits. Evaluation is bounded by these regardless of authored
// content.
const (
	// MaxTargets is the number of object slots in an evaluation context.
	MaxTargets = 3

	// MaxReferenceDepth bounds nested reference and player-condition
	// resolution during evaluation.
	MaxReferenceDepth = 16

	// MaxExpressionDepth bounds nested expression-by-id calls in the VM.
	MaxExpressionDepth = 8

	// MaxPlayerConditionDepth bounds the post-load reachability walk.
	MaxPlayerConditionDepth = 64
)
