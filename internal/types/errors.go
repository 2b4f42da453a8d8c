package types

import "errors"

// Sentinel errors for row validation. Loaders wrap these with the row
// index; a rejected row never aborts the load.
var (
	// ErrUnknownSourceKind indicates a source kind outside the enumerated set.
	ErrUnknownSourceKind = errors.New("unknown source kind")

	// ErrUnknownPredicateKind indicates a predicate kind outside the enumerated set.
	ErrUnknownPredicateKind = errors.New("unknown predicate kind")

	// ErrTargetSlotOutOfRange indicates targetSlot >= MaxTargets(sourceKind).
	ErrTargetSlotOutOfRange = errors.New("target slot out of range for source kind")

	// ErrUnusedValue indicates a value slot populated that the kind does not read.
	ErrUnusedValue = errors.New("value slot populated but not used by predicate kind")

	// ErrValueOutOfRange indicates a value slot holds a value the kind cannot use.
	ErrValueOutOfRange = errors.New("value out of range for predicate kind")

	// ErrReferenceWithValues indicates a reference row with non-zero value fields.
	ErrReferenceWithValues = errors.New("reference row must not carry values")

	// ErrGroupNotAllowed indicates sourceGroup set for a kind that forbids it.
	ErrGroupNotAllowed = errors.New("source group not allowed for source kind")

	// ErrSubIDNotAllowed indicates sourceSubId set for a kind that forbids it.
	ErrSubIDNotAllowed = errors.New("source sub id not allowed for source kind")

	// ErrEntryNotAllowed indicates a reference template row with a source entry.
	ErrEntryNotAllowed = errors.New("source entry not allowed for reference template")

	// ErrSelfReference indicates a reference template that references itself.
	ErrSelfReference = errors.New("reference template references itself")

	// ErrCircularReference indicates a reference chain that loops back.
	ErrCircularReference = errors.New("circular reference chain")

	// ErrMissingReference indicates a reference to an undefined template.
	ErrMissingReference = errors.New("referenced template does not exist")

	// ErrMissingRecord indicates a predicate naming an undefined record.
	ErrMissingRecord = errors.New("referenced record does not exist")

	// ErrMissingExpression indicates a predicate naming an undefined expression.
	ErrMissingExpression = errors.New("referenced expression does not exist")

	// ErrCircularPlayerCondition indicates a player condition that depends on itself.
	ErrCircularPlayerCondition = errors.New("player condition depends on itself")

	// ErrMalformedRecord indicates a record definition that cannot be decoded.
	ErrMalformedRecord = errors.New("malformed record definition")

	// ErrMalformedExpression indicates an expression that cannot be decoded.
	ErrMalformedExpression = errors.New("malformed expression program")
)
