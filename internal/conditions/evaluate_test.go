package conditions

import (
	"testing"

	"github.com/solatis/gatekeeper/internal/world"
	"github.com/solatis/gatekeeper/internal/world/worldtest"
)

const (
	classWarrior = 1
	classMage    = 8
	raceHuman    = 1
)

func TestMeets_MapID(t *testing.T) {
	ev := NewEngine().Evaluator()
	p := &Predicate{Kind: KindMapID, Value1: 530}

	if !ev.Meets(p, NewContext(&worldtest.Map{MapID: 530})) {
		t.Errorf("Meets() = false, want true on map 530")
	}
	if ev.Meets(p, NewContext(&worldtest.Map{MapID: 1})) {
		t.Errorf("Meets() = true, want false on map 1")
	}
}

func TestMeets_ContextKinds(t *testing.T) {
	m := &worldtest.Map{
		MapID:        571,
		Difficulty:   2,
		Data:         map[uint32]uint32{3: 1},
		Data64:       map[uint32]uint64{4: 7},
		Bosses:       map[uint32]uint32{0: 3},
		Step:         5,
		Events:       map[uint32]bool{12: true},
		RealmAchieve: map[uint32]bool{456: true},
	}
	provider := &worldtest.Provider{States: map[uint32]int32{3191: 4}}
	ev := NewEngine(WithProvider(provider)).Evaluator()

	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"none", Predicate{Kind: KindNone}, true},
		{"difficulty", Predicate{Kind: KindDifficultyID, Value1: 2}, true},
		{"world state equal", Predicate{Kind: KindWorldState, Value1: 3191, Value2: 4}, true},
		{"world state greater", Predicate{Kind: KindWorldState, Value1: 3191, Value2: 4, Value3: uint32(CompareGreater)}, false},
		{"world state unknown id", Predicate{Kind: KindWorldState, Value1: 1, Value2: 0}, true},
		{"active event", Predicate{Kind: KindActiveEvent, Value1: 12}, true},
		{"inactive event", Predicate{Kind: KindActiveEvent, Value1: 13}, false},
		{"instance data", Predicate{Kind: KindInstanceInfo, Value1: 3, Value2: 1}, true},
		{"instance data missing", Predicate{Kind: KindInstanceInfo, Value1: 9, Value2: 0}, false},
		{"instance data64", Predicate{Kind: KindInstanceInfo, Value1: 4, Value2: 7, Value3: InstanceInfoData64}, true},
		{"boss state", Predicate{Kind: KindInstanceInfo, Value1: 0, Value2: 3, Value3: InstanceInfoBossState}, true},
		{"realm achievement", Predicate{Kind: KindRealmAchievement, Value1: 456}, true},
		{"scenario step", Predicate{Kind: KindScenarioStep, Value1: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.Meets(&tt.p, NewContext(m)); got != tt.want {
				t.Errorf("Meets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeets_NoMapFailsClosed(t *testing.T) {
	ev := NewEngine().Evaluator()
	p := &Predicate{Kind: KindMapID, Value1: 530, Negate: true}
	if ev.Meets(p, &Context{}) {
		t.Errorf("Meets() = true, want false without a map even when negated")
	}
}

func TestMeets_AbsentTargetFailsClosed(t *testing.T) {
	ev := NewEngine().Evaluator()
	ctx := NewContext(&worldtest.Map{})

	for _, negate := range []bool{false, true} {
		p := &Predicate{Kind: KindAlive, Negate: negate}
		if ev.Meets(p, ctx) {
			t.Errorf("Meets(negate=%v) = true, want false without a target", negate)
		}
		if ctx.LastFailure != p {
			t.Errorf("LastFailure = %p, want %p", ctx.LastFailure, p)
		}
	}
}

func TestMeets_MissingCapability(t *testing.T) {
	ev := NewEngine().Evaluator()
	creature := worldtest.NewCreature(2, 1234, 10)
	ctx := NewContext(&worldtest.Map{}, creature)

	p := &Predicate{Kind: KindQuestRewarded, Value1: 1}
	if ev.Meets(p, ctx) {
		t.Errorf("Meets() = true, want false for player kind on a creature")
	}
	p.Negate = true
	if !ev.Meets(p, ctx) {
		t.Errorf("Meets() = false, want true for negated player kind on a creature")
	}
}

func TestMeets_UnknownKind(t *testing.T) {
	ev := NewEngine().Evaluator()
	p := &Predicate{Kind: kindCount + 3, Negate: true}
	if ev.Meets(p, NewContext(&worldtest.Map{}, worldtest.NewUnit(1, 1))) {
		t.Errorf("Meets() = true, want false for unknown kind")
	}
}

func TestMeets_UnitKinds(t *testing.T) {
	u := worldtest.NewUnit(1, 85)
	u.UnitClass = classMage
	u.UnitRace = raceHuman
	u.UnitGender = world.GenderFemale
	u.HP = 40
	u.MaxHP = 200
	u.Auras = map[uint32]uint32{1459: 1}
	u.AuraEffects = map[uint32]uint32{1459: 1 << 1}
	u.Stand = 1
	u.States = 1 << 3
	ev := NewEngine().Evaluator()

	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"aura effect present", Predicate{Kind: KindAura, Value1: 1459, Value2: 1}, true},
		{"aura effect absent", Predicate{Kind: KindAura, Value1: 1459, Value2: 0}, false},
		{"class", Predicate{Kind: KindClass, Value1: 1 << (classMage - 1)}, true},
		{"class warrior", Predicate{Kind: KindClass, Value1: 1 << (classWarrior - 1)}, false},
		{"race", Predicate{Kind: KindRace, Value1: 1 << (raceHuman - 1)}, true},
		{"gender", Predicate{Kind: KindGender, Value1: uint32(world.GenderFemale)}, true},
		{"unit state", Predicate{Kind: KindUnitState, Value1: 1 << 3}, true},
		{"level equal", Predicate{Kind: KindLevel, Value1: 85}, true},
		{"level less", Predicate{Kind: KindLevel, Value1: 80, Value2: uint32(CompareLess)}, false},
		{"level greater or equal", Predicate{Kind: KindLevel, Value1: 80, Value2: uint32(CompareGreaterOrEqual)}, true},
		{"hp value", Predicate{Kind: KindHPValue, Value1: 50, Value2: uint32(CompareLess)}, true},
		{"hp pct", Predicate{Kind: KindHPPct, Value1: 20, Value2: uint32(CompareEqual)}, true},
		{"alive", Predicate{Kind: KindAlive}, true},
		{"in water", Predicate{Kind: KindInWater}, false},
		{"charmed", Predicate{Kind: KindCharmed}, false},
		{"stand exact", Predicate{Kind: KindStandState, Value2: 1}, true},
		{"stand any sitting", Predicate{Kind: KindStandState, Value1: StandStateAny, Value2: StandStateSitting}, true},
		{"stand any standing", Predicate{Kind: KindStandState, Value1: StandStateAny, Value2: StandStateStanding}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.Meets(&tt.p, NewContext(&worldtest.Map{}, u)); got != tt.want {
				t.Errorf("Meets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeets_PlayerKinds(t *testing.T) {
	p := worldtest.NewPlayer(1, 80, raceHuman, classMage)
	p.PlayerTeam = world.TeamAlliance
	p.Items = map[uint32]uint32{6948: 1}
	p.BankItems = map[uint32]uint32{6948: 2}
	p.Skills = map[uint32]uint16{129: 150}
	p.Rewarded = map[uint32]bool{10: true}
	p.Quests = map[uint32]world.QuestStatus{11: world.QuestStatusIncomplete, 12: world.QuestStatusComplete}
	p.Reputation = map[uint32]world.Reaction{72: world.ReactionHonored}
	p.Objectives = map[[2]uint32]uint32{{11, 0}: 3}
	p.Drunk = world.DrunkDrunk
	p.Dailies = map[uint32]bool{13: true}
	p.Pet = 1 << 2
	ev := NewEngine().Evaluator()

	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"item count default one", Predicate{Kind: KindItem, Value1: 6948}, true},
		{"item count without bank", Predicate{Kind: KindItem, Value1: 6948, Value2: 3}, false},
		{"item count with bank", Predicate{Kind: KindItem, Value1: 6948, Value2: 3, Value3: 1}, true},
		{"team", Predicate{Kind: KindTeam, Value1: world.TeamAlliance}, true},
		{"team horde", Predicate{Kind: KindTeam, Value1: world.TeamHorde}, false},
		{"skill", Predicate{Kind: KindSkill, Value1: 129, Value2: 150}, true},
		{"skill too low", Predicate{Kind: KindSkill, Value1: 129, Value2: 151}, false},
		{"skill unlearned", Predicate{Kind: KindSkill, Value1: 164}, false},
		{"quest rewarded", Predicate{Kind: KindQuestRewarded, Value1: 10}, true},
		{"quest taken", Predicate{Kind: KindQuestTaken, Value1: 11}, true},
		{"quest complete", Predicate{Kind: KindQuestComplete, Value1: 12}, true},
		{"quest none", Predicate{Kind: KindQuestNone, Value1: 14}, true},
		{"quest none rewarded", Predicate{Kind: KindQuestNone, Value1: 10}, false},
		{"quest state mask", Predicate{Kind: KindQuestState, Value1: 11, Value2: 1 << world.QuestStatusIncomplete}, true},
		{"objective", Predicate{Kind: KindQuestObjectiveProgress, Value1: 11, Value3: 3}, true},
		{"reputation mask", Predicate{Kind: KindReputationRank, Value1: 72, Value2: 1 << world.ReactionHonored}, true},
		{"reputation mask miss", Predicate{Kind: KindReputationRank, Value1: 72, Value2: 1 << world.ReactionExalted}, false},
		{"drunk", Predicate{Kind: KindDrunkenState, Value1: uint32(world.DrunkTipsy)}, true},
		{"daily", Predicate{Kind: KindDailyQuestDone, Value1: 13}, true},
		{"pet type", Predicate{Kind: KindPetType, Value1: 1 << 2}, true},
		{"taxi", Predicate{Kind: KindTaxi}, false},
		{"unit kind on player", Predicate{Kind: KindLevel, Value1: 80}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.Meets(&tt.p, NewContext(&worldtest.Map{}, p)); got != tt.want {
				t.Errorf("Meets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeets_ObjectKinds(t *testing.T) {
	g := worldtest.NewGameObject(9, 180000)
	g.Zone = 1519
	g.Area = 12
	g.Spawn = 77
	g.Phases = map[uint32]bool{169: true}
	g.StringIDs = map[string]bool{"stormwind_gate": true}
	m := &worldtest.Map{
		Creatures:   []worldtest.Near{{Entry: 68, Dist: 8}},
		GameObjects: []worldtest.Near{{Entry: 180001, Dist: 3}},
	}
	ev := NewEngine().Evaluator()

	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"zone", Predicate{Kind: KindZone, Value1: 1519}, true},
		{"area", Predicate{Kind: KindArea, Value1: 13}, false},
		{"phase", Predicate{Kind: KindPhase, Value1: 169}, true},
		{"near creature", Predicate{Kind: KindNearCreature, Value1: 68, Value2: 10}, true},
		{"near creature too far", Predicate{Kind: KindNearCreature, Value1: 68, Value2: 5}, false},
		{"near dead creature", Predicate{Kind: KindNearCreature, Value1: 68, Value2: 10, Value3: 1}, false},
		{"near game object", Predicate{Kind: KindNearGameObject, Value1: 180001, Value2: 5}, true},
		{"entry guid", Predicate{Kind: KindObjectEntryGUID, Value1: uint32(world.TypeGameObject), Value2: 180000, Value3: 77}, true},
		{"entry guid wrong spawn", Predicate{Kind: KindObjectEntryGUID, Value1: uint32(world.TypeGameObject), Value3: 78}, false},
		{"entry guid wrong type", Predicate{Kind: KindObjectEntryGUID, Value1: uint32(world.TypeUnit)}, false},
		{"type mask", Predicate{Kind: KindTypeMask, Value1: world.ObjectMaskGameObject}, true},
		{"type mask unit", Predicate{Kind: KindTypeMask, Value1: world.ObjectMaskUnit}, false},
		{"string id", Predicate{Kind: KindStringID, StringValue: "stormwind_gate"}, true},
		{"unit kind on game object", Predicate{Kind: KindAlive}, false},
		{"creature kind on game object", Predicate{Kind: KindCreatureType, Value1: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.Meets(&tt.p, NewContext(m, g)); got != tt.want {
				t.Errorf("Meets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeets_Relational(t *testing.T) {
	owner := worldtest.NewPlayer(1, 80, raceHuman, classMage)
	pet := worldtest.NewCreature(2, 416, 80)
	pet.Owner = owner.ObjGUID
	pet.Reactions = map[world.GUID]world.Reaction{owner.ObjGUID: world.ReactionFriendly}
	pet.X = 3
	pet.Y = 4
	stranger := worldtest.NewUnit(3, 80)
	ev := NewEngine().Evaluator()

	ctx := NewContext(&worldtest.Map{}, pet, owner)
	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"owned by", Predicate{Kind: KindRelationTo, Value1: 1, Value2: RelationOwnedBy}, true},
		{"self", Predicate{Kind: KindRelationTo, Value1: 1, Value2: RelationSelf}, false},
		{"created by", Predicate{Kind: KindRelationTo, Value1: 1, Value2: RelationCreatedBy}, false},
		{"reaction friendly", Predicate{Kind: KindReactionTo, Value1: 1, Value2: 1 << world.ReactionFriendly}, true},
		{"reaction hostile", Predicate{Kind: KindReactionTo, Value1: 1, Value2: 1 << world.ReactionHostile}, false},
		{"distance within", Predicate{Kind: KindDistanceTo, Value1: 1, Value2: 5, Value3: uint32(CompareLessOrEqual)}, true},
		{"distance beyond", Predicate{Kind: KindDistanceTo, Value1: 1, Value2: 4, Value3: uint32(CompareLessOrEqual)}, false},
		{"second slot empty", Predicate{Kind: KindRelationTo, Value1: 2, Value2: RelationOwnedBy}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.Meets(&tt.p, ctx); got != tt.want {
				t.Errorf("Meets() = %v, want %v", got, tt.want)
			}
		})
	}

	p := &Predicate{Kind: KindRelationTo, Value1: 1, Value2: RelationOwnedBy}
	if ev.Meets(p, NewContext(&worldtest.Map{}, pet, stranger)) {
		t.Errorf("Meets() = true, want false for a unit the pet does not belong to")
	}
}

func TestMeets_Observer(t *testing.T) {
	vetoed := 0
	observer := ObserverFunc(func(p *Predicate, ctx *Context) bool {
		if p.Kind == KindMapID {
			vetoed++
			return false
		}
		return true
	})
	ev := NewEngine(WithObserver(observer)).Evaluator()
	ctx := NewContext(&worldtest.Map{MapID: 530})

	p := &Predicate{Kind: KindMapID, Value1: 530}
	if ev.Meets(p, ctx) {
		t.Errorf("Meets() = true, want false after veto")
	}
	if ctx.LastFailure != p {
		t.Errorf("LastFailure not set after veto")
	}

	// The observer only sees true results.
	if ev.Meets(&Predicate{Kind: KindMapID, Value1: 1}, ctx) {
		t.Errorf("Meets() = true, want false for map 1")
	}
	if vetoed != 1 {
		t.Errorf("observer vetoed %d times, want 1", vetoed)
	}

	if !ev.Meets(&Predicate{Kind: KindDifficultyID}, ctx) {
		t.Errorf("Meets() = false, want true for kind the observer allows")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		c    Comparator
		a, b int
		want bool
	}{
		{CompareEqual, 1, 1, true},
		{CompareGreater, 2, 1, true},
		{CompareLess, 2, 1, false},
		{CompareGreaterOrEqual, 1, 1, true},
		{CompareLessOrEqual, 2, 1, false},
		{CompareNotEqual, 2, 1, true},
		{comparatorCount, 1, 1, false},
	}
	for _, tt := range tests {
		if got := Compare(tt.c, tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%d, %d, %d) = %v, want %v", tt.c, tt.a, tt.b, got, tt.want)
		}
	}
}
