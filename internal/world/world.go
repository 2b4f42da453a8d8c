// Package world declares the simulation collaborators the condition engine
// reads from. Implementations live with the simulation; the engine only
// consumes these interfaces and never mutates through them.
//
// Capabilities narrow by embedding: a Player is a Unit is an Object. The
// evaluator type-asserts a target to the capability a predicate needs and
// fails closed when the assertion does not hold.
package world

import "github.com/solatis/gatekeeper/internal/expr"

// TypeID is the concrete category of a world object.
type TypeID uint8

const (
	TypeObject TypeID = iota
	TypeItem
	TypeContainer
	TypeUnit
	TypePlayer
	TypeGameObject
	TypeDynamicObject
	TypeCorpse
	TypeAreaTrigger
	TypeSceneObject
	TypeConversation
	typeIDCount
)

// Valid reports whether t is a known type id.
func (t TypeID) Valid() bool {
	return t < typeIDCount
}

// Object type mask bits used by the TypeMask predicate kind.
const (
	ObjectMaskObject        uint32 = 1 << TypeObject
	ObjectMaskItem          uint32 = 1 << TypeItem
	ObjectMaskContainer     uint32 = 1 << TypeContainer
	ObjectMaskUnit          uint32 = 1 << TypeUnit
	ObjectMaskPlayer        uint32 = 1 << TypePlayer
	ObjectMaskGameObject    uint32 = 1 << TypeGameObject
	ObjectMaskDynamicObject uint32 = 1 << TypeDynamicObject
	ObjectMaskCorpse        uint32 = 1 << TypeCorpse
	ObjectMaskAreaTrigger   uint32 = 1 << TypeAreaTrigger
	ObjectMaskAll           uint32 = 1<<typeIDCount - 1
)

// GUID identifies a world object instance.
type GUID uint64

// Object is any world object.
type Object interface {
	GUID() GUID
	TypeID() TypeID
	// TypeMask returns the ObjectMask* bits this object satisfies
	// (a player is also a unit and an object).
	TypeMask() uint32
	Entry() uint32
	SpawnID() uint64
	ZoneID() uint32
	AreaID() uint32
	InPhase(phaseID uint32) bool
	HasStringID(id string) bool
	Distance(other Object) float32
}

// Unit is an Object that can fight, move and carry auras.
type Unit interface {
	Object
	Level() uint8
	Class() uint8
	Race() uint8
	Gender() uint8
	Health() uint64
	HealthPct() float32
	IsAlive() bool
	IsInWater() bool
	IsCharmed() bool
	StandState() uint8
	HasUnitState(mask uint32) bool
	HasAura(spellID uint32, effectIndex uint8) bool
	// AuraStacks returns the stack count of spellID, 0 when absent.
	AuraStacks(spellID uint32) uint32
	Power(powerType int8) int32
	OwnerGUID() GUID
	CharmerOrOwnerGUID() GUID
	CreatorGUID() GUID
	VehicleBase() Unit
	IsInPartyWith(other Unit) bool
	IsInRaidWith(other Unit) bool
	ReactionTo(other Unit) Reaction
}

// Creature is a non-player Unit.
type Creature interface {
	Unit
	CreatureType() uint32
}

// GameObject is an interactive world object.
type GameObject interface {
	Object
	GoState() uint8
}

// Map is the world instance an evaluation runs in.
type Map interface {
	expr.Map
	// InstanceData returns instance-script data for index.
	InstanceData(index uint32) (uint32, bool)
	// InstanceData64 returns 64-bit instance-script data for index.
	InstanceData64(index uint32) (uint64, bool)
	// BossState returns the encounter state of boss index.
	BossState(index uint32) (uint32, bool)
	// ScenarioStep returns the active scenario step id.
	ScenarioStep() (uint32, bool)
	GameEventActive(eventID uint32) bool
	RealmAchievementDone(achievementID uint32) bool
	// NearestCreature reports whether a creature with entry lies within
	// dist of from, dead or alive per the flag.
	NearestCreature(from Object, entry uint32, dist float32, dead bool) bool
	// NearestGameObject reports whether a game object with entry lies
	// within dist of from.
	NearestGameObject(from Object, entry uint32, dist float32) bool
}

// Provider is the world-state and unit-variable lookup collaborator.
type Provider interface {
	expr.Environment
	// LookupUnitVariable returns unit-condition variable for unit,
	// optionally relative to other (which may be nil).
	LookupUnitVariable(unit, other Unit, variable uint8, arg int32) int32
}
