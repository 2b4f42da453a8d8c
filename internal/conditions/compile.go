package conditions

import (
	"fmt"

	"github.com/solatis/gatekeeper/internal/types"
	"github.com/solatis/gatekeeper/internal/world"
)

/*
 * Row compilation and validation.
 *
 * Compiles one types.ConditionRow into a Predicate, rejecting rows that the
 * evaluator could not interpret. Every check here is static: it looks at
 * the row alone. Checks that need the whole load (references, records,
 * expressions, cycles) run in snapshot.go.
 *
 * Compilation workflow:
 *   1. Resolve the source kind; negative values are reference templates
 *   2. Enforce the source kind's group, entry and sub id rules
 *   3. Resolve the predicate kind; negative values are references
 *   4. Enforce target slot range and the kind's value-slot schema
 *   5. Apply the kind's value range rules
 *
 * The evaluator assumes every predicate it sees passed these checks.
 */

// Relations for KindRelationTo.
const (
	RelationSelf uint32 = iota
	RelationInParty
	RelationInRaidOrParty
	RelationOwnedBy
	RelationPassengerOf
	RelationCreatedBy
	relationCount
)

// InstanceInfo value types.
const (
	InstanceInfoData uint32 = iota
	InstanceInfoData64
	InstanceInfoBossState
	instanceInfoCount
)

// StandState match types.
const (
	StandStateExact uint32 = iota
	StandStateAny
)

// Stand state groups for StandStateAny.
const (
	StandStateStanding uint32 = iota
	StandStateSitting
)

// maxDrunkenState is the most severe drunken state.
const maxDrunkenState = uint32(world.DrunkSmashed)

// questStatusMaskAll covers every quest status bit.
const questStatusMaskAll uint32 = 1<<(world.QuestStatusRewarded+1) - 1

// Compile validates row and compiles it into a predicate. index is the
// row's position in the load, carried into the predicate and into errors.
func Compile(index int, row types.ConditionRow) (Predicate, error) {
	p, err := compileRow(row)
	if err != nil {
		return Predicate{}, fmt.Errorf("row %d: %w", index, err)
	}
	p.Row = index
	return p, nil
}

func compileRow(row types.ConditionRow) (Predicate, error) {
	source, ok := sourceKindFromRow(row.SourceKind)
	if !ok {
		return Predicate{}, fmt.Errorf("%w: %d", types.ErrUnknownSourceKind, row.SourceKind)
	}

	p := Predicate{
		Source:      source,
		ElseGroup:   row.ElseGroup,
		TargetSlot:  row.TargetSlot,
		Value1:      row.Value1,
		Value2:      row.Value2,
		Value3:      row.Value3,
		StringValue: row.StringValue,
		Negate:      row.Negate,
		ErrorKind:   row.ErrorKind,
		ErrorTextID: row.ErrorTextID,
		ScriptRef:   row.ScriptRef,
	}

	if source == SourceReference {
		if row.SourceGroup != 0 {
			return Predicate{}, types.ErrGroupNotAllowed
		}
		if row.SourceEntry != 0 {
			return Predicate{}, types.ErrEntryNotAllowed
		}
		if row.SourceSubID != 0 {
			return Predicate{}, types.ErrSubIDNotAllowed
		}
		p.Key = Key{Group: uint32(-int64(row.SourceKind))}
	} else {
		spec := sourceSpecs[source]
		if row.SourceGroup != 0 && !spec.group {
			return Predicate{}, fmt.Errorf("%w: %s", types.ErrGroupNotAllowed, source)
		}
		if row.SourceSubID != 0 && !spec.sub {
			return Predicate{}, fmt.Errorf("%w: %s", types.ErrSubIDNotAllowed, source)
		}
		p.Key = Key{Group: row.SourceGroup, Entry: row.SourceEntry, SubID: row.SourceSubID}
	}

	maxTargets := source.MaxTargets()
	if row.TargetSlot >= maxTargets {
		return Predicate{}, fmt.Errorf("%w: slot %d, %s allows %d", types.ErrTargetSlotOutOfRange, row.TargetSlot, source, maxTargets)
	}

	if row.PredicateKind < 0 {
		if row.Value1 != 0 || row.Value2 != 0 || row.Value3 != 0 || row.StringValue != "" {
			return Predicate{}, types.ErrReferenceWithValues
		}
		p.Kind = KindNone
		p.ReferenceID = uint32(-int64(row.PredicateKind))
		return p, nil
	}

	if row.PredicateKind >= int32(kindCount) {
		return Predicate{}, fmt.Errorf("%w: %d", types.ErrUnknownPredicateKind, row.PredicateKind)
	}
	p.Kind = Kind(row.PredicateKind)

	if err := checkSlots(&p); err != nil {
		return Predicate{}, err
	}
	if err := checkValues(&p, maxTargets); err != nil {
		return Predicate{}, err
	}
	return p, nil
}

// checkSlots rejects populated value slots the kind never reads.
func checkSlots(p *Predicate) error {
	slots := kindSpecs[p.Kind].slots
	switch {
	case p.Value1 != 0 && slots&slotV1 == 0:
		return fmt.Errorf("%w: value1 for %s", types.ErrUnusedValue, p.Kind)
	case p.Value2 != 0 && slots&slotV2 == 0:
		return fmt.Errorf("%w: value2 for %s", types.ErrUnusedValue, p.Kind)
	case p.Value3 != 0 && slots&slotV3 == 0:
		return fmt.Errorf("%w: value3 for %s", types.ErrUnusedValue, p.Kind)
	case p.StringValue != "" && slots&slotString == 0:
		return fmt.Errorf("%w: string value for %s", types.ErrUnusedValue, p.Kind)
	}
	return nil
}

// checkValues applies the per-kind range rules.
func checkValues(p *Predicate, maxTargets uint8) error {
	outOfRange := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: "+format, append([]any{types.ErrValueOutOfRange, p.Kind}, args...)...)
	}
	comparator := func(v uint32) error {
		if !Comparator(v).Valid() {
			return outOfRange("comparator %d", v)
		}
		return nil
	}
	otherSlot := func(slot uint32) error {
		if slot >= uint32(maxTargets) {
			return outOfRange("target slot %d beyond %d", slot, maxTargets)
		}
		if slot == uint32(p.TargetSlot) {
			return outOfRange("target slot %d refers to itself", slot)
		}
		return nil
	}

	switch p.Kind {
	case KindWorldState:
		return comparator(p.Value3)
	case KindLevel, KindHPValue, KindHPPct:
		return comparator(p.Value2)
	case KindDistanceTo:
		if err := otherSlot(p.Value1); err != nil {
			return err
		}
		return comparator(p.Value3)
	case KindRelationTo:
		if err := otherSlot(p.Value1); err != nil {
			return err
		}
		if p.Value2 >= relationCount {
			return outOfRange("relation %d", p.Value2)
		}
	case KindReactionTo:
		if err := otherSlot(p.Value1); err != nil {
			return err
		}
		if p.Value2 == 0 || p.Value2&^world.ReactionMaskAll != 0 {
			return outOfRange("rank mask %#x", p.Value2)
		}
	case KindReputationRank:
		if p.Value2 == 0 || p.Value2&^world.ReactionMaskAll != 0 {
			return outOfRange("rank mask %#x", p.Value2)
		}
	case KindTeam:
		if p.Value1 != world.TeamHorde && p.Value1 != world.TeamAlliance {
			return outOfRange("team %d", p.Value1)
		}
	case KindDrunkenState:
		if p.Value1 > maxDrunkenState {
			return outOfRange("state %d", p.Value1)
		}
	case KindGender:
		if p.Value1 > uint32(world.GenderNone) {
			return outOfRange("gender %d", p.Value1)
		}
	case KindClass, KindRace, KindUnitState, KindPetType:
		if p.Value1 == 0 {
			return outOfRange("empty mask")
		}
	case KindAura:
		if p.Value2 >= 32 {
			return outOfRange("effect index %d", p.Value2)
		}
	case KindInstanceInfo:
		if p.Value3 >= instanceInfoCount {
			return outOfRange("info type %d", p.Value3)
		}
	case KindStandState:
		if p.Value1 > StandStateAny {
			return outOfRange("match type %d", p.Value1)
		}
		if p.Value1 == StandStateAny && p.Value2 > StandStateSitting {
			return outOfRange("stand group %d", p.Value2)
		}
	case KindQuestState:
		if p.Value2 == 0 || p.Value2&^questStatusMaskAll != 0 {
			return outOfRange("status mask %#x", p.Value2)
		}
	case KindObjectEntryGUID:
		if p.Value1 > 0xff || objectTypeMask(world.TypeID(p.Value1)) == 0 {
			return outOfRange("object type %d", p.Value1)
		}
	case KindTypeMask:
		if p.Value1 == 0 || p.Value1&^searchableObjectMask != 0 {
			return outOfRange("type mask %#x", p.Value1)
		}
	case KindUnitCondition:
		if p.Value1 == 0 {
			return outOfRange("id 0")
		}
		if p.Value2 != 0 {
			return otherSlot(p.Value2 - 1)
		}
	case KindStringID:
		if p.StringValue == "" {
			return outOfRange("empty string id")
		}
	case KindItem:
		if p.Value3 > 1 {
			return outOfRange("include bank %d", p.Value3)
		}
	case KindNearCreature:
		if p.Value3 > 1 {
			return outOfRange("dead flag %d", p.Value3)
		}
	case KindPlayerCondition, KindWorldStateExpression:
		if p.Value1 == 0 {
			return outOfRange("id 0")
		}
	}
	return nil
}
