package records

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/gatekeeper/internal/expr"
	"github.com/solatis/gatekeeper/internal/types"
	"github.com/solatis/gatekeeper/internal/world"
)

// PlayerCondition flags.
const (
	// FlagLevelExclusive makes MinLevel and MaxLevel exclusive bounds.
	FlagLevelExclusive uint8 = 1 << 0
	// FlagItemsIncludeBank counts banked items for the item family.
	FlagItemsIncludeBank uint8 = 1 << 1
)

// Party statuses. PartyAny disables the check.
const (
	PartyAny uint8 = iota
	PartyAlone
	PartyInParty
	PartyInPartyOrRaid
	PartyInRaid
	PartyNotInRaid
)

// PlayerCondition is a fixed-schema player requirement record.
//
// Zero disables a slot unless noted. Fields typed int8 use -1 as the
// disabled sentinel because 0 is a meaningful value for them.
type PlayerCondition struct {
	ID uint32 `json:"id"`

	RaceMask     uint64 `json:"race_mask"`
	ClassMask    uint32 `json:"class_mask"`
	Gender       int8   `json:"gender"`
	NativeGender int8   `json:"native_gender"`

	MinLevel uint8 `json:"min_level"`
	MaxLevel uint8 `json:"max_level"`
	Flags    uint8 `json:"flags"`

	SkillLogic uint32    `json:"skill_logic"`
	SkillID    [4]uint32 `json:"skill_id"`
	MinSkill   [4]uint16 `json:"min_skill"`
	MaxSkill   [4]uint16 `json:"max_skill"`

	ReputationLogic uint32    `json:"reputation_logic"`
	MinFactionID    [3]uint32 `json:"min_faction_id"`
	MinReputation   [3]uint8  `json:"min_reputation"`
	MaxFactionID    uint32    `json:"max_faction_id"`
	MaxReputation   uint8     `json:"max_reputation"`

	PrevQuestLogic uint32    `json:"prev_quest_logic"`
	PrevQuestID    [4]uint32 `json:"prev_quest_id"`

	CurrQuestLogic uint32    `json:"curr_quest_logic"`
	CurrQuestID    [4]uint32 `json:"curr_quest_id"`

	CompletedQuestLogic uint32    `json:"completed_quest_logic"`
	CompletedQuestID    [4]uint32 `json:"completed_quest_id"`

	SpellLogic uint32    `json:"spell_logic"`
	SpellID    [4]uint32 `json:"spell_id"`

	ItemLogic uint32    `json:"item_logic"`
	ItemID    [4]uint32 `json:"item_id"`
	ItemCount [4]uint32 `json:"item_count"`

	AuraSpellLogic uint32    `json:"aura_spell_logic"`
	AuraSpellID    [4]uint32 `json:"aura_spell_id"`
	AuraStacks     [4]uint32 `json:"aura_stacks"`

	AchievementLogic uint32    `json:"achievement_logic"`
	Achievement      [4]uint32 `json:"achievement"`

	AreaLogic uint32    `json:"area_logic"`
	AreaID    [4]uint32 `json:"area_id"`

	Explored [2]uint32 `json:"explored"`

	MinAvgItemLevel uint32 `json:"min_avg_item_level"`
	MaxAvgItemLevel uint32 `json:"max_avg_item_level"`

	MinExpansionLevel int8 `json:"min_expansion_level"`
	MaxExpansionLevel int8 `json:"max_expansion_level"`

	SpecializationIndex int8 `json:"specialization_index"`
	SpecializationRole  int8 `json:"specialization_role"`

	PowerType      int8   `json:"power_type"`
	PowerTypeComp  Op     `json:"power_type_comp"`
	PowerTypeValue uint32 `json:"power_type_value"`

	WeatherID   uint32 `json:"weather_id"`
	PartyStatus uint8  `json:"party_status"`

	WorldStateExpressionID uint32 `json:"world_state_expression_id"`
}

// NewPlayerCondition returns a record with every check disabled.
func NewPlayerCondition(id uint32) PlayerCondition {
	return PlayerCondition{
		ID:                  id,
		Gender:              -1,
		NativeGender:        -1,
		MinExpansionLevel:   -1,
		MaxExpansionLevel:   -1,
		SpecializationIndex: -1,
		SpecializationRole:  -1,
		PowerType:           -1,
	}
}

// DecodePlayerCondition parses a stored JSON definition. Omitted fields
// keep their disabled defaults.
func DecodePlayerCondition(row types.RecordRow) (PlayerCondition, error) {
	rec := NewPlayerCondition(row.ID)
	if err := json.Unmarshal([]byte(row.Definition), &rec); err != nil {
		return PlayerCondition{}, fmt.Errorf("player condition %d: %w: %v", row.ID, types.ErrMalformedRecord, err)
	}
	rec.ID = row.ID
	return rec, nil
}

// Deps are the collaborators the world-state expression family needs.
type Deps struct {
	Map      expr.Map
	Env      expr.Environment
	Programs expr.Programs
}

// PlayerConditionMet reports whether player satisfies every populated
// family of rec.
func PlayerConditionMet(rec *PlayerCondition, player world.Player, deps Deps) bool {
	if rec == nil || player == nil {
		return false
	}

	if rec.RaceMask != 0 && !inMask64(rec.RaceMask, player.Race()) {
		return false
	}
	if rec.ClassMask != 0 && !inMask32(rec.ClassMask, player.Class()) {
		return false
	}
	if rec.Gender >= 0 && uint8(rec.Gender) != player.Gender() {
		return false
	}
	if rec.NativeGender >= 0 && uint8(rec.NativeGender) != player.NativeGender() {
		return false
	}
	if !levelMet(rec, player.Level()) {
		return false
	}

	if anySet(rec.SkillID[:]) && !skillsMet(rec, player) {
		return false
	}
	if (anySet(rec.MinFactionID[:]) || rec.MaxFactionID != 0) && !reputationMet(rec, player) {
		return false
	}

	if anySet(rec.PrevQuestID[:]) {
		results := unset
		for i, q := range rec.PrevQuestID {
			if q != 0 {
				results[i] = player.QuestRewarded(q)
			}
		}
		if !FoldLogic(rec.PrevQuestLogic, results[:]) {
			return false
		}
	}

	if anySet(rec.CurrQuestID[:]) {
		results := unset
		for i, q := range rec.CurrQuestID {
			if q != 0 {
				s := player.QuestStatus(q)
				results[i] = s != world.QuestStatusNone && s != world.QuestStatusRewarded
			}
		}
		if !FoldLogic(rec.CurrQuestLogic, results[:]) {
			return false
		}
	}

	if anySet(rec.CompletedQuestID[:]) {
		results := unset
		for i, q := range rec.CompletedQuestID {
			if q != 0 {
				results[i] = player.QuestStatus(q) == world.QuestStatusComplete
			}
		}
		if !FoldLogic(rec.CompletedQuestLogic, results[:]) {
			return false
		}
	}

	if anySet(rec.SpellID[:]) {
		results := unset
		for i, s := range rec.SpellID {
			if s != 0 {
				results[i] = player.HasSpell(s)
			}
		}
		if !FoldLogic(rec.SpellLogic, results[:]) {
			return false
		}
	}

	if anySet(rec.ItemID[:]) {
		bank := rec.Flags&FlagItemsIncludeBank != 0
		results := unset
		for i, item := range rec.ItemID {
			if item != 0 {
				results[i] = player.ItemCount(item, bank) >= max(rec.ItemCount[i], 1)
			}
		}
		if !FoldLogic(rec.ItemLogic, results[:]) {
			return false
		}
	}

	if anySet(rec.AuraSpellID[:]) {
		results := unset
		for i, spell := range rec.AuraSpellID {
			if spell != 0 {
				results[i] = player.AuraStacks(spell) >= max(rec.AuraStacks[i], 1)
			}
		}
		if !FoldLogic(rec.AuraSpellLogic, results[:]) {
			return false
		}
	}

	if anySet(rec.Achievement[:]) {
		results := unset
		for i, a := range rec.Achievement {
			if a != 0 {
				results[i] = player.HasAchievement(a)
			}
		}
		if !FoldLogic(rec.AchievementLogic, results[:]) {
			return false
		}
	}

	if anySet(rec.AreaID[:]) {
		results := unset
		area := player.AreaID()
		for i, a := range rec.AreaID {
			if a != 0 {
				results[i] = area == a || player.ZoneID() == a
			}
		}
		if !FoldLogic(rec.AreaLogic, results[:]) {
			return false
		}
	}

	// Explored areas have no logic word: every listed area must be explored.
	for _, a := range rec.Explored {
		if a != 0 && !player.HasExploredArea(a) {
			return false
		}
	}

	if rec.MinAvgItemLevel != 0 && player.AverageItemLevel() < float32(rec.MinAvgItemLevel) {
		return false
	}
	if rec.MaxAvgItemLevel != 0 && player.AverageItemLevel() > float32(rec.MaxAvgItemLevel) {
		return false
	}

	if rec.MinExpansionLevel >= 0 && player.Expansion() < rec.MinExpansionLevel {
		return false
	}
	if rec.MaxExpansionLevel >= 0 && player.Expansion() > rec.MaxExpansionLevel {
		return false
	}

	if rec.SpecializationIndex >= 0 && player.SpecializationIndex() != rec.SpecializationIndex {
		return false
	}
	if rec.SpecializationRole >= 0 && player.SpecializationRole() != rec.SpecializationRole {
		return false
	}

	if rec.PowerType >= 0 && rec.PowerTypeComp != OpNone {
		if !rec.PowerTypeComp.Compare(player.Power(rec.PowerType), int32(rec.PowerTypeValue)) {
			return false
		}
	}

	if rec.WeatherID != 0 && player.WeatherID() != rec.WeatherID {
		return false
	}

	if rec.PartyStatus != PartyAny && !partyMet(rec.PartyStatus, player) {
		return false
	}

	if rec.WorldStateExpressionID != 0 {
		if deps.Programs == nil {
			return false
		}
		program, ok := deps.Programs.Program(rec.WorldStateExpressionID)
		if !ok || !expr.Eval(program, deps.Map, deps.Env, deps.Programs) {
			return false
		}
	}

	return true
}

// levelMet applies the level range. A zero bound is disabled.
func levelMet(rec *PlayerCondition, level uint8) bool {
	exclusive := rec.Flags&FlagLevelExclusive != 0
	if rec.MinLevel != 0 {
		if exclusive && level <= rec.MinLevel {
			return false
		}
		if !exclusive && level < rec.MinLevel {
			return false
		}
	}
	if rec.MaxLevel != 0 {
		if exclusive && level >= rec.MaxLevel {
			return false
		}
		if !exclusive && level > rec.MaxLevel {
			return false
		}
	}
	return true
}

// skillsMet requires the skill to be learned and within [min, max];
// a zero bound is disabled.
func skillsMet(rec *PlayerCondition, player world.Player) bool {
	results := unset
	for i, skill := range rec.SkillID {
		if skill == 0 {
			continue
		}
		v := player.SkillValue(skill)
		results[i] = v != 0 &&
			(rec.MinSkill[i] == 0 || v >= rec.MinSkill[i]) &&
			(rec.MaxSkill[i] == 0 || v <= rec.MaxSkill[i])
	}
	return FoldLogic(rec.SkillLogic, results[:])
}

// reputationMet folds three minimum-standing slots and one maximum-standing
// slot. With only the maximum faction set, the maximum is checked directly
// and the logic word is ignored.
func reputationMet(rec *PlayerCondition, player world.Player) bool {
	if !anySet(rec.MinFactionID[:]) {
		return uint8(player.ReputationRank(rec.MaxFactionID)) <= rec.MaxReputation
	}

	results := unset
	for i, faction := range rec.MinFactionID {
		if faction != 0 && uint8(player.ReputationRank(faction)) < rec.MinReputation[i] {
			results[i] = false
		}
	}
	if rec.MaxFactionID != 0 && uint8(player.ReputationRank(rec.MaxFactionID)) > rec.MaxReputation {
		results[3] = false
	}
	return FoldLogic(rec.ReputationLogic, results[:])
}

func partyMet(status uint8, player world.Player) bool {
	inGroup, raid := player.GroupState()
	switch status {
	case PartyAlone:
		return !inGroup
	case PartyInParty:
		return inGroup && !raid
	case PartyInPartyOrRaid:
		return inGroup
	case PartyInRaid:
		return inGroup && raid
	case PartyNotInRaid:
		return !raid
	default:
		return false
	}
}

func anySet(ids []uint32) bool {
	for _, id := range ids {
		if id != 0 {
			return true
		}
	}
	return false
}

// inMask64 tests 1-based id against a bit mask.
func inMask64(mask uint64, id uint8) bool {
	return id != 0 && id <= 64 && mask&(1<<(id-1)) != 0
}

func inMask32(mask uint32, id uint8) bool {
	return id != 0 && id <= 32 && mask&(1<<(id-1)) != 0
}
