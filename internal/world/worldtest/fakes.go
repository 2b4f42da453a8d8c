// Package worldtest provides in-memory world collaborators for tests.
//
// Fakes are plain structs with exported fields; zero values describe an
// empty world. They are not safe for concurrent mutation but are safe for
// concurrent reads, matching how the engine uses its collaborators.
package worldtest

import (
	"math"
	"time"

	"github.com/solatis/gatekeeper/internal/expr"
	"github.com/solatis/gatekeeper/internal/world"
)

// Object is a fake world.Object.
type Object struct {
	ObjGUID    world.GUID
	Type       world.TypeID
	ObjEntry   uint32
	Spawn      uint64
	Zone       uint32
	Area       uint32
	Phases     map[uint32]bool
	StringIDs  map[string]bool
	X, Y, Z    float32
	ExtraTypes uint32
}

func (o *Object) GUID() world.GUID { return o.ObjGUID }
func (o *Object) TypeID() world.TypeID { return o.Type }
func (o *Object) Entry() uint32 { return o.ObjEntry }
func (o *Object) SpawnID() uint64 { return o.Spawn }
func (o *Object) ZoneID() uint32 { return o.Zone }
func (o *Object) AreaID() uint32 { return o.Area }
func (o *Object) InPhase(id uint32) bool { return o.Phases[id] }
func (o *Object) HasStringID(id string) bool {
	return o.StringIDs[id]
}

// TypeMask includes the object's own type, ObjectMaskObject and ExtraTypes.
func (o *Object) TypeMask() uint32 {
	return world.ObjectMaskObject | 1<<o.Type | o.ExtraTypes
}

// Distance is the straight-line distance between positions.
func (o *Object) Distance(other world.Object) float32 {
	p, ok := other.(interface{ position() (float32, float32, float32) })
	if !ok {
		return 0
	}
	x, y, z := p.position()
	dx, dy, dz := o.X-x, o.Y-y, o.Z-z
	return sqrt32(dx*dx + dy*dy + dz*dz)
}

func (o *Object) position() (float32, float32, float32) { return o.X, o.Y, o.Z }

// Unit is a fake world.Unit.
type Unit struct {
	Object
	UnitLevel   uint8
	UnitClass   uint8
	UnitRace    uint8
	UnitGender  uint8
	HP          uint64
	MaxHP       uint64
	Dead        bool
	InWater     bool
	Charmed     bool
	Stand       uint8
	States      uint32
	Auras       map[uint32]uint32
	AuraEffects map[uint32]uint32
	Powers      map[int8]int32
	Owner       world.GUID
	Charmer     world.GUID
	Creator     world.GUID
	Vehicle     world.Unit
	Party       map[world.GUID]bool
	Raid        map[world.GUID]bool
	Reactions   map[world.GUID]world.Reaction
}

// NewUnit returns a living unit at full health.
func NewUnit(guid world.GUID, level uint8) *Unit {
	return &Unit{
		Object:    Object{ObjGUID: guid, Type: world.TypeUnit},
		UnitLevel: level,
		HP:        100,
		MaxHP:     100,
	}
}

func (u *Unit) Level() uint8 { return u.UnitLevel }
func (u *Unit) Class() uint8 { return u.UnitClass }
func (u *Unit) Race() uint8 { return u.UnitRace }
func (u *Unit) Gender() uint8 { return u.UnitGender }
func (u *Unit) Health() uint64 { return u.HP }
func (u *Unit) IsAlive() bool { return !u.Dead }
func (u *Unit) IsInWater() bool { return u.InWater }
func (u *Unit) IsCharmed() bool { return u.Charmed }
func (u *Unit) StandState() uint8 { return u.Stand }
func (u *Unit) OwnerGUID() world.GUID { return u.Owner }
func (u *Unit) CreatorGUID() world.GUID {
	return u.Creator
}
func (u *Unit) VehicleBase() world.Unit { return u.Vehicle }

func (u *Unit) HealthPct() float32 {
	if u.MaxHP == 0 {
		return 0
	}
	return float32(u.HP) * 100 / float32(u.MaxHP)
}

func (u *Unit) HasUnitState(mask uint32) bool { return u.States&mask != 0 }

// HasAura matches spellID and, through AuraEffects, the effect index bit.
// A spell without an AuraEffects entry has every effect.
func (u *Unit) HasAura(spellID uint32, effectIndex uint8) bool {
	if u.Auras[spellID] == 0 {
		return false
	}
	effects, ok := u.AuraEffects[spellID]
	return !ok || effects&(1<<effectIndex) != 0
}

func (u *Unit) AuraStacks(spellID uint32) uint32 { return u.Auras[spellID] }
func (u *Unit) Power(powerType int8) int32 { return u.Powers[powerType] }

func (u *Unit) CharmerOrOwnerGUID() world.GUID {
	if u.Charmer != 0 {
		return u.Charmer
	}
	return u.Owner
}

func (u *Unit) IsInPartyWith(other world.Unit) bool {
	return other != nil && (other.GUID() == u.ObjGUID || u.Party[other.GUID()])
}

func (u *Unit) IsInRaidWith(other world.Unit) bool {
	return u.IsInPartyWith(other) || (other != nil && u.Raid[other.GUID()])
}

func (u *Unit) ReactionTo(other world.Unit) world.Reaction {
	if other == nil {
		return world.ReactionNeutral
	}
	if r, ok := u.Reactions[other.GUID()]; ok {
		return r
	}
	return world.ReactionNeutral
}

// Creature is a fake world.Creature.
type Creature struct {
	Unit
	Kind uint32
}

// NewCreature returns a living creature of entry.
func NewCreature(guid world.GUID, entry uint32, level uint8) *Creature {
	c := &Creature{Unit: *NewUnit(guid, level)}
	c.ObjEntry = entry
	return c
}

func (c *Creature) CreatureType() uint32 { return c.Kind }

// Player is a fake world.Player.
type Player struct {
	Unit
	Native         uint8
	PlayerTeam     uint32
	Drunk          uint8
	Items          map[uint32]uint32
	BankItems      map[uint32]uint32
	Equipped       map[uint32]bool
	Skills         map[uint32]uint16
	Spells         map[uint32]bool
	Quests         map[uint32]world.QuestStatus
	Rewarded       map[uint32]bool
	Dailies        map[uint32]bool
	Objectives     map[[2]uint32]uint32
	Reputation     map[uint32]world.Reaction
	Achievements   map[uint32]bool
	Titles         map[uint32]bool
	ExploredAreas  map[uint32]bool
	Flying         bool
	Pet            uint32
	ItemLevel      float32
	PlayerExpan    int8
	Spec           int8
	Role           int8
	Weather        uint32
	InGroup, Raids bool
}

// NewPlayer returns a living player of the given level, race and class.
func NewPlayer(guid world.GUID, level, race, class uint8) *Player {
	p := &Player{Unit: *NewUnit(guid, level), Spec: -1, Role: -1}
	p.Type = world.TypePlayer
	p.ExtraTypes = world.ObjectMaskUnit
	p.UnitRace = race
	p.UnitClass = class
	return p
}

func (p *Player) NativeGender() uint8 { return p.Native }
func (p *Player) Team() uint32 { return p.PlayerTeam }
func (p *Player) DrunkenState() uint8 { return p.Drunk }

func (p *Player) ItemCount(itemID uint32, includeBank bool) uint32 {
	n := p.Items[itemID]
	if includeBank {
		n += p.BankItems[itemID]
	}
	return n
}

func (p *Player) HasItemEquipped(itemID uint32) bool { return p.Equipped[itemID] }
func (p *Player) SkillValue(skillID uint32) uint16 { return p.Skills[skillID] }
func (p *Player) HasSpell(spellID uint32) bool { return p.Spells[spellID] }
func (p *Player) QuestRewarded(questID uint32) bool { return p.Rewarded[questID] }
func (p *Player) DailyQuestDone(questID uint32) bool { return p.Dailies[questID] }
func (p *Player) HasAchievement(id uint32) bool { return p.Achievements[id] }
func (p *Player) HasTitle(id uint32) bool { return p.Titles[id] }
func (p *Player) HasExploredArea(areaID uint32) bool { return p.ExploredAreas[areaID] }
func (p *Player) IsInFlight() bool { return p.Flying }
func (p *Player) PetTypeMask() uint32 { return p.Pet }
func (p *Player) AverageItemLevel() float32 { return p.ItemLevel }
func (p *Player) Expansion() int8 { return p.PlayerExpan }
func (p *Player) SpecializationIndex() int8 { return p.Spec }
func (p *Player) SpecializationRole() int8 { return p.Role }
func (p *Player) WeatherID() uint32 { return p.Weather }
func (p *Player) GroupState() (bool, bool) { return p.InGroup, p.InGroup && p.Raids }

func (p *Player) QuestStatus(questID uint32) world.QuestStatus {
	if p.Rewarded[questID] {
		return world.QuestStatusRewarded
	}
	return p.Quests[questID]
}

func (p *Player) QuestObjectiveCount(questID, objective uint32) uint32 {
	return p.Objectives[[2]uint32{questID, objective}]
}

func (p *Player) ReputationRank(factionID uint32) world.Reaction {
	if r, ok := p.Reputation[factionID]; ok {
		return r
	}
	return world.ReactionNeutral
}

// GameObject is a fake world.GameObject.
type GameObject struct {
	Object
	State uint8
}

// NewGameObject returns a game object of entry.
func NewGameObject(guid world.GUID, entry uint32) *GameObject {
	return &GameObject{Object: Object{ObjGUID: guid, Type: world.TypeGameObject, ObjEntry: entry}}
}

func (g *GameObject) GoState() uint8 { return g.State }

// Near describes one object a Map reports as nearby.
type Near struct {
	Entry uint32
	Dist  float32
	Dead  bool
}

// Map is a fake world.Map.
type Map struct {
	MapID        uint32
	Difficulty   uint32
	Data         map[uint32]uint32
	Data64       map[uint32]uint64
	Bosses       map[uint32]uint32
	Step         uint32
	Events       map[uint32]bool
	RealmAchieve map[uint32]bool
	Creatures    []Near
	GameObjects  []Near
}

func (m *Map) ID() uint32 { return m.MapID }
func (m *Map) DifficultyID() uint32 { return m.Difficulty }

func (m *Map) InstanceData(index uint32) (uint32, bool) {
	v, ok := m.Data[index]
	return v, ok
}

func (m *Map) InstanceData64(index uint32) (uint64, bool) {
	v, ok := m.Data64[index]
	return v, ok
}

func (m *Map) BossState(index uint32) (uint32, bool) {
	v, ok := m.Bosses[index]
	return v, ok
}

func (m *Map) ScenarioStep() (uint32, bool) { return m.Step, m.Step != 0 }
func (m *Map) GameEventActive(eventID uint32) bool { return m.Events[eventID] }
func (m *Map) RealmAchievementDone(id uint32) bool { return m.RealmAchieve[id] }

func (m *Map) NearestCreature(from world.Object, entry uint32, dist float32, dead bool) bool {
	for _, c := range m.Creatures {
		if c.Entry == entry && c.Dist <= dist && c.Dead == dead {
			return true
		}
	}
	return false
}

func (m *Map) NearestGameObject(from world.Object, entry uint32, dist float32) bool {
	for _, g := range m.GameObjects {
		if g.Entry == entry && g.Dist <= dist {
			return true
		}
	}
	return false
}

// Provider is a fake world.Provider.
type Provider struct {
	States    map[uint32]int32
	Clock     time.Time
	Region    int32
	Holidays  map[uint32]bool
	Variables map[uint8]int32
}

func (p *Provider) LookupWorldState(id uint32, m expr.Map) int32 { return p.States[id] }
func (p *Provider) Now() time.Time { return p.Clock }
func (p *Provider) RegionID() int32 { return p.Region }
func (p *Provider) HolidayActive(id uint32) bool { return p.Holidays[id] }
func (p *Provider) HolidayStart(id uint32) int32 { return 0 }
func (p *Provider) HolidayLeft(id uint32) int32 { return 0 }
func (p *Provider) RandomInt(min, max int32) int32 { return min }

// LookupUnitVariable returns Variables[variable] regardless of the units.
func (p *Provider) LookupUnitVariable(unit, other world.Unit, variable uint8, arg int32) int32 {
	return p.Variables[variable]
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
