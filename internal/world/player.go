package world

// QuestStatus is the state of a quest in a player's log.
type QuestStatus uint8

const (
	QuestStatusNone QuestStatus = iota
	QuestStatusComplete
	QuestStatusIncomplete
	QuestStatusFailed
	QuestStatusRewarded
)

// Reaction and reputation ranks share one scale.
type Reaction uint8

const (
	ReactionHated Reaction = iota
	ReactionHostile
	ReactionUnfriendly
	ReactionNeutral
	ReactionFriendly
	ReactionHonored
	ReactionRevered
	ReactionExalted
	reactionCount
)

// ReactionMaskAll covers every reaction rank.
const ReactionMaskAll uint32 = 1<<reactionCount - 1

// Teams.
const (
	TeamHorde    uint32 = 67
	TeamAlliance uint32 = 469
)

// Drunken states, ordered by severity.
const (
	DrunkSober uint8 = iota
	DrunkTipsy
	DrunkDrunk
	DrunkSmashed
)

// Genders.
const (
	GenderMale uint8 = iota
	GenderFemale
	GenderNone
)

// Player is a Unit controlled by a client.
type Player interface {
	Unit
	NativeGender() uint8
	Team() uint32
	DrunkenState() uint8
	ItemCount(itemID uint32, includeBank bool) uint32
	HasItemEquipped(itemID uint32) bool
	SkillValue(skillID uint32) uint16
	HasSpell(spellID uint32) bool
	QuestStatus(questID uint32) QuestStatus
	QuestRewarded(questID uint32) bool
	DailyQuestDone(questID uint32) bool
	QuestObjectiveCount(questID, objective uint32) uint32
	ReputationRank(factionID uint32) Reaction
	HasAchievement(achievementID uint32) bool
	HasTitle(titleID uint32) bool
	HasExploredArea(areaID uint32) bool
	IsInFlight() bool
	// PetTypeMask returns 1<<petType of the active pet, 0 without a pet.
	PetTypeMask() uint32
	AverageItemLevel() float32
	Expansion() int8
	SpecializationIndex() int8
	SpecializationRole() int8
	WeatherID() uint32
	// GroupState reports party membership and whether the group is a raid.
	GroupState() (inGroup bool, raid bool)
}
