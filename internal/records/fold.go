// Package records evaluates fixed-schema condition records: player
// conditions and unit conditions.
package records

/*
 * Record rule folding.
 *
 * A record groups related checks into families of parallel slots (four
 * skills, four quests, ...). Each family is evaluated into a boolean array,
 * unset slots defaulting to true, then folded with the family's logic word:
 *
 *   bits 16+i      negate results[i]
 *   bits 2i..2i+1  combinator between the running result and results[i+1]
 *                  00 ignore, 01 AND, 10 OR (11 is treated as ignore)
 *
 * The fold runs left to right starting from results[0]. Families are ANDed
 * together by the record evaluators; only populated families take part.
 */

// Pairwise combinators in a logic word.
const (
	CombineIgnore uint32 = 0
	CombineAnd    uint32 = 1
	CombineOr     uint32 = 2
)

// negateShift is the bit position of the first per-slot negation bit.
const negateShift = 16

// MaxFoldSlots is the widest family a logic word can describe: the 8
// two-bit combinators between 9 slots fill bits 0..15 below the negation
// bits. Slots beyond it are ignored.
const MaxFoldSlots = 9

// FoldLogic folds results with logic. results is modified in place by the
// negation bits. An empty slice folds to true.
func FoldLogic(logic uint32, results []bool) bool {
	if len(results) == 0 {
		return true
	}
	if len(results) > MaxFoldSlots {
		results = results[:MaxFoldSlots]
	}

	for i := range results {
		if (logic>>(negateShift+uint(i)))&1 != 0 {
			results[i] = !results[i]
		}
	}

	result := results[0]
	for i := 1; i < len(results); i++ {
		switch (logic >> (2 * uint(i-1))) & 3 {
		case CombineAnd:
			result = result && results[i]
		case CombineOr:
			result = result || results[i]
		}
	}
	return result
}

// Logic builds a logic word from pairwise combinators and negated slots.
// Used by tooling and tests that author records.
func Logic(combinators []uint32, negated ...int) uint32 {
	var logic uint32
	for i, c := range combinators {
		if i >= MaxFoldSlots-1 {
			break
		}
		logic |= (c & 3) << (2 * uint(i))
	}
	for _, i := range negated {
		if i < 0 || i >= MaxFoldSlots {
			continue
		}
		logic |= 1 << (negateShift + uint(i))
	}
	return logic
}

// unset is the starting state of a four-slot family.
var unset = [4]bool{true, true, true, true}
