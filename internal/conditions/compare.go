package conditions

import "cmp"

/*
 * Shared comparator.
 *
 * Kinds that compare a world value against an authored constant (level,
 * health, distance, world state) carry a Comparator in one of their value
 * slots. The authored encoding differs from the expression VM's and from
 * the record Op codes; each keeps its own.
 */

// Comparator is the authored comparison code.
type Comparator uint8

const (
	CompareEqual Comparator = iota
	CompareGreater
	CompareLess
	CompareGreaterOrEqual
	CompareLessOrEqual
	CompareNotEqual
	comparatorCount
)

// Valid reports whether c is a known comparator.
func (c Comparator) Valid() bool { return c < comparatorCount }

// Compare applies c to value (the world side) and target (the authored
// side). Unknown comparators are false.
func Compare[T cmp.Ordered](c Comparator, value, target T) bool {
	switch c {
	case CompareEqual:
		return value == target
	case CompareGreater:
		return value > target
	case CompareLess:
		return value < target
	case CompareGreaterOrEqual:
		return value >= target
	case CompareLessOrEqual:
		return value <= target
	case CompareNotEqual:
		return value != target
	default:
		return false
	}
}
