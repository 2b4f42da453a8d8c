package records

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/gatekeeper/internal/types"
	"github.com/solatis/gatekeeper/internal/world"
)

// Op is the comparison code used inside records. Zero disables a slot.
type Op int8

const (
	OpNone Op = iota
	OpEqual
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
)

// Valid reports whether o is a known comparison code.
func (o Op) Valid() bool {
	return o >= OpNone && o <= OpGreaterOrEqual
}

// Compare applies o to a and b. OpNone and unknown codes are false.
func (o Op) Compare(a, b int32) bool {
	switch o {
	case OpEqual:
		return a == b
	case OpNotEqual:
		return a != b
	case OpLess:
		return a < b
	case OpLessOrEqual:
		return a <= b
	case OpGreater:
		return a > b
	case OpGreaterOrEqual:
		return a >= b
	default:
		return false
	}
}

// MaxUnitConditionValues is the number of variable slots in a unit condition.
const MaxUnitConditionValues = 8

// FlagLogicOr makes a unit condition pass when any slot passes.
const FlagLogicOr uint8 = 1 << 0

// UnitCondition compares up to eight unit variables against constants.
// Slots are read in order and scanning stops at the first zero Variable.
type UnitCondition struct {
	ID       uint32                        `json:"id"`
	Flags    uint8                         `json:"flags"`
	Variable [MaxUnitConditionValues]uint8 `json:"variable"`
	Op       [MaxUnitConditionValues]Op    `json:"op"`
	Value    [MaxUnitConditionValues]int32 `json:"value"`
}

// DecodeUnitCondition parses a stored JSON definition.
func DecodeUnitCondition(row types.RecordRow) (UnitCondition, error) {
	rec := UnitCondition{ID: row.ID}
	if err := json.Unmarshal([]byte(row.Definition), &rec); err != nil {
		return UnitCondition{}, fmt.Errorf("unit condition %d: %w: %v", row.ID, types.ErrMalformedRecord, err)
	}
	rec.ID = row.ID
	for i := range rec.Op {
		if !rec.Op[i].Valid() {
			return UnitCondition{}, fmt.Errorf("unit condition %d slot %d: %w: op %d", row.ID, i, types.ErrMalformedRecord, rec.Op[i])
		}
	}
	return rec, nil
}

// UnitConditionMet evaluates rec for unit, with other as the optional
// second unit variables may relate to.
//
// All-of by default; with FlagLogicOr any passing slot satisfies the
// record and a record without slots fails.
func UnitConditionMet(rec *UnitCondition, unit, other world.Unit, provider world.Provider) bool {
	if rec == nil || unit == nil || provider == nil {
		return false
	}
	anyOf := rec.Flags&FlagLogicOr != 0

	for i := 0; i < MaxUnitConditionValues; i++ {
		if rec.Variable[i] == 0 {
			break
		}
		v := provider.LookupUnitVariable(unit, other, rec.Variable[i], rec.Value[i])
		meets := rec.Op[i].Compare(v, rec.Value[i])
		if anyOf {
			if meets {
				return true
			}
		} else if !meets {
			return false
		}
	}

	return !anyOf
}
