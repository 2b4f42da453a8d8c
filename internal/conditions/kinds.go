// Package conditions compiles authored condition rows into predicate lists
// and evaluates them against a world.
package conditions

import (
	"fmt"

	"github.com/solatis/gatekeeper/internal/types"
)

/*
 * Kind tables.
 *
 * Predicate kinds and source kinds are closed enums. Everything the loader,
 * evaluator and mask analyzer need to know statically about a kind lives in
 * one table row: the value slots it reads, the capability it requires of
 * its target, and the object categories it can possibly match.
 *
 * Dispatch itself is a switch per capability (evaluate.go). Adding a kind
 * means one table row, one case, and one validation rule; the exhaustiveness
 * tests fail until all three exist.
 */

// Kind is a predicate kind.
type Kind uint8

const (
	KindNone Kind = iota
	KindAura
	KindItem
	KindItemEquipped
	KindZone
	KindReputationRank
	KindTeam
	KindSkill
	KindQuestRewarded
	KindQuestTaken
	KindDrunkenState
	KindWorldState
	KindActiveEvent
	KindInstanceInfo
	KindQuestNone
	KindClass
	KindRace
	KindAchievement
	KindTitle
	KindDifficultyID
	KindGender
	KindUnitState
	KindMapID
	KindArea
	KindCreatureType
	KindSpell
	KindPhase
	KindLevel
	KindQuestComplete
	KindNearCreature
	KindNearGameObject
	KindObjectEntryGUID
	KindTypeMask
	KindRelationTo
	KindReactionTo
	KindDistanceTo
	KindAlive
	KindHPValue
	KindHPPct
	KindRealmAchievement
	KindInWater
	KindStandState
	KindDailyQuestDone
	KindCharmed
	KindPetType
	KindTaxi
	KindQuestState
	KindQuestObjectiveProgress
	KindScenarioStep
	KindPlayerCondition
	KindUnitCondition
	KindWorldStateExpression
	KindStringID
	kindCount
)

// slotSet is a bit set of the value slots a kind reads.
type slotSet uint8

const (
	slotV1 slotSet = 1 << iota
	slotV2
	slotV3
	slotString

	slotsNone slotSet = 0
	slotsV12          = slotV1 | slotV2
	slotsV123         = slotV1 | slotV2 | slotV3
)

// target is the capability a kind requires of its subject.
type target uint8

const (
	// onContext kinds read only the evaluation context's map.
	onContext target = iota
	onObject
	onUnit
	onPlayer
	onCreature
)

type kindSpec struct {
	name   string
	slots  slotSet
	target target
	// mask is the static type mask; zero means computed from values.
	mask TypeMask
}

var kindSpecs = [kindCount]kindSpec{
	KindNone:                   {"None", slotsNone, onContext, MaskAll},
	KindAura:                   {"Aura", slotsV12, onUnit, MaskCreature | MaskPlayer},
	KindItem:                   {"Item", slotsV123, onPlayer, MaskPlayer},
	KindItemEquipped:           {"ItemEquipped", slotV1, onPlayer, MaskPlayer},
	KindZone:                   {"Zone", slotV1, onObject, MaskAll},
	KindReputationRank:         {"ReputationRank", slotsV12, onPlayer, MaskPlayer},
	KindTeam:                   {"Team", slotV1, onPlayer, MaskPlayer},
	KindSkill:                  {"Skill", slotsV12, onPlayer, MaskPlayer},
	KindQuestRewarded:          {"QuestRewarded", slotV1, onPlayer, MaskPlayer},
	KindQuestTaken:             {"QuestTaken", slotV1, onPlayer, MaskPlayer},
	KindDrunkenState:           {"DrunkenState", slotV1, onPlayer, MaskPlayer},
	KindWorldState:             {"WorldState", slotsV123, onContext, MaskAll},
	KindActiveEvent:            {"ActiveEvent", slotV1, onContext, MaskAll},
	KindInstanceInfo:           {"InstanceInfo", slotsV123, onContext, MaskAll},
	KindQuestNone:              {"QuestNone", slotV1, onPlayer, MaskPlayer},
	KindClass:                  {"Class", slotV1, onUnit, MaskCreature | MaskPlayer},
	KindRace:                   {"Race", slotV1, onUnit, MaskCreature | MaskPlayer},
	KindAchievement:            {"Achievement", slotV1, onPlayer, MaskPlayer},
	KindTitle:                  {"Title", slotV1, onPlayer, MaskPlayer},
	KindDifficultyID:           {"DifficultyID", slotV1, onContext, MaskAll},
	KindGender:                 {"Gender", slotV1, onUnit, MaskCreature | MaskPlayer},
	KindUnitState:              {"UnitState", slotV1, onUnit, MaskCreature | MaskPlayer},
	KindMapID:                  {"MapID", slotV1, onContext, MaskAll},
	KindArea:                   {"Area", slotV1, onObject, MaskAll},
	KindCreatureType:           {"CreatureType", slotV1, onCreature, MaskCreature},
	KindSpell:                  {"Spell", slotV1, onPlayer, MaskPlayer},
	KindPhase:                  {"Phase", slotV1, onObject, MaskAll},
	KindLevel:                  {"Level", slotsV12, onUnit, MaskCreature | MaskPlayer},
	KindQuestComplete:          {"QuestComplete", slotV1, onPlayer, MaskPlayer},
	KindNearCreature:           {"NearCreature", slotsV123, onObject, MaskAll},
	KindNearGameObject:         {"NearGameObject", slotsV12, onObject, MaskAll},
	KindObjectEntryGUID:        {"ObjectEntryGUID", slotsV123, onObject, 0},
	KindTypeMask:               {"TypeMask", slotV1, onObject, 0},
	KindRelationTo:             {"RelationTo", slotsV12, onUnit, MaskCreature | MaskPlayer},
	KindReactionTo:             {"ReactionTo", slotsV12, onUnit, MaskCreature | MaskPlayer},
	KindDistanceTo:             {"DistanceTo", slotsV123, onObject, MaskAll},
	KindAlive:                  {"Alive", slotsNone, onUnit, MaskCreature | MaskPlayer},
	KindHPValue:                {"HPValue", slotsV12, onUnit, MaskCreature | MaskPlayer},
	KindHPPct:                  {"HPPct", slotsV12, onUnit, MaskCreature | MaskPlayer},
	KindRealmAchievement:       {"RealmAchievement", slotV1, onContext, MaskAll},
	KindInWater:                {"InWater", slotsNone, onUnit, MaskCreature | MaskPlayer},
	KindStandState:             {"StandState", slotsV12, onUnit, MaskCreature | MaskPlayer},
	KindDailyQuestDone:         {"DailyQuestDone", slotV1, onPlayer, MaskPlayer},
	KindCharmed:                {"Charmed", slotsNone, onUnit, MaskCreature | MaskPlayer},
	KindPetType:                {"PetType", slotV1, onPlayer, MaskPlayer},
	KindTaxi:                   {"Taxi", slotsNone, onPlayer, MaskPlayer},
	KindQuestState:             {"QuestState", slotsV12, onPlayer, MaskPlayer},
	KindQuestObjectiveProgress: {"QuestObjectiveProgress", slotsV123, onPlayer, MaskPlayer},
	KindScenarioStep:           {"ScenarioStep", slotV1, onContext, MaskAll},
	KindPlayerCondition:        {"PlayerCondition", slotV1, onPlayer, MaskPlayer},
	KindUnitCondition:          {"UnitCondition", slotsV12, onUnit, MaskCreature | MaskPlayer},
	KindWorldStateExpression:   {"WorldStateExpression", slotV1, onContext, MaskAll},
	KindStringID:               {"StringID", slotString, onObject, MaskAll},
}

// Valid reports whether k is a known predicate kind.
func (k Kind) Valid() bool { return k < kindCount }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindSpecs[k].name
}

// ContextOnly reports whether k reads only the evaluation context's map
// and needs no target object.
func (k Kind) ContextOnly() bool {
	return k.Valid() && kindSpecs[k].target == onContext
}

// SourceKind identifies what a predicate list is attached to.
type SourceKind uint8

const (
	// SourceReference is the internal kind of reference-template sets. Rows
	// encode it as a negative source kind.
	SourceReference SourceKind = iota
	SourceCreatureLoot
	SourceGameObjectLoot
	SourceFishingLoot
	SourceItemLoot
	SourceSkinningLoot
	SourceGossipMenu
	SourceGossipMenuOption
	SourceVehicleSpell
	SourceSpell
	SourceSpellImplicitTarget
	SourceSpellClickEvent
	SourceQuestAvailable
	SourceSmartEvent
	SourceNpcVendor
	SourcePhase
	SourceAreaTrigger
	SourceSpawnGroup
	SourcePlayerCondition
	SourceObjectVisibility
	SourceGraveyard
	sourceCount
)

type sourceSpec struct {
	name       string
	maxTargets uint8
	group      bool
	sub        bool
}

var sourceSpecs = [sourceCount]sourceSpec{
	SourceReference:           {"Reference", types.MaxTargets, false, false},
	SourceCreatureLoot:        {"CreatureLoot", 1, true, false},
	SourceGameObjectLoot:      {"GameObjectLoot", 1, true, false},
	SourceFishingLoot:         {"FishingLoot", 1, true, false},
	SourceItemLoot:            {"ItemLoot", 1, true, false},
	SourceSkinningLoot:        {"SkinningLoot", 1, true, false},
	SourceGossipMenu:          {"GossipMenu", 2, true, false},
	SourceGossipMenuOption:    {"GossipMenuOption", 2, true, false},
	SourceVehicleSpell:        {"VehicleSpell", 2, true, false},
	SourceSpell:               {"Spell", 2, false, false},
	SourceSpellImplicitTarget: {"SpellImplicitTarget", 3, true, false},
	SourceSpellClickEvent:     {"SpellClickEvent", 2, true, false},
	SourceQuestAvailable:      {"QuestAvailable", 1, false, false},
	SourceSmartEvent:          {"SmartEvent", 2, true, true},
	SourceNpcVendor:           {"NpcVendor", 2, true, false},
	SourcePhase:               {"Phase", 1, true, false},
	SourceAreaTrigger:         {"AreaTrigger", 1, false, true},
	SourceSpawnGroup:          {"SpawnGroup", 1, false, false},
	SourcePlayerCondition:     {"PlayerCondition", 1, false, false},
	SourceObjectVisibility:    {"ObjectVisibility", 2, true, false},
	SourceGraveyard:           {"Graveyard", 1, true, false},
}

// Valid reports whether s is a known source kind.
func (s SourceKind) Valid() bool { return s < sourceCount }

func (s SourceKind) String() string {
	if !s.Valid() {
		return fmt.Sprintf("SourceKind(%d)", uint8(s))
	}
	return sourceSpecs[s].name
}

// MaxTargets is the number of context slots predicates of source kind s
// may address.
func (s SourceKind) MaxTargets() uint8 {
	if !s.Valid() {
		return 0
	}
	return sourceSpecs[s].maxTargets
}

// sourceKindFromRow maps a stored source kind to SourceKind. Negative values
// are reference templates. ok is false for unknown kinds.
func sourceKindFromRow(v int32) (SourceKind, bool) {
	if v < 0 {
		return SourceReference, true
	}
	if v == 0 || v >= int32(sourceCount) {
		return 0, false
	}
	return SourceKind(v), true
}
