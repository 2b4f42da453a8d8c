package conditions

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/solatis/gatekeeper/internal/expr"
	"github.com/solatis/gatekeeper/internal/records"
	"github.com/solatis/gatekeeper/internal/types"
	"github.com/solatis/gatekeeper/internal/world"
)

/*
 * Predicate evaluation.
 *
 * Evaluates one Predicate against a Context in two phases:
 *   1. Context-only kinds read the context's map and never need a target
 *   2. Target kinds require ctx.Targets[TargetSlot]; the object is then
 *      narrowed by type assertion to the capability the kind declares
 *
 * An absent target, a disabled record and a reference revisit fail closed:
 * the predicate is false whatever its negate flag says. A target lacking
 * the capability (a player-only kind on a creature) yields a raw false that
 * negate still inverts.
 *
 * Evaluation never mutates shared state. The only write is
 * ctx.LastFailure, which the caller owns, and only on a false result.
 */

// Observer sees every predicate that evaluated true and may veto it.
type Observer interface {
	Allow(p *Predicate, ctx *Context) bool
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(p *Predicate, ctx *Context) bool

// Allow implements Observer.
func (f ObserverFunc) Allow(p *Predicate, ctx *Context) bool { return f(p, ctx) }

type passThrough struct{}

func (passThrough) Allow(*Predicate, *Context) bool { return true }

// Evaluator evaluates predicates and lists against one Snapshot. It is
// safe for concurrent use.
type Evaluator struct {
	snap     *Snapshot
	provider world.Provider
	observer Observer
	log      *zap.Logger
}

// Snapshot returns the registry snapshot e resolves references against.
func (e *Evaluator) Snapshot() *Snapshot { return e.snap }

// Meets evaluates a single predicate.
func (e *Evaluator) Meets(p *Predicate, ctx *Context) bool {
	var st stack
	met := e.meets(p, ctx, &st)
	if !met && ctx != nil {
		ctx.LastFailure = p
	}
	return met
}

func (e *Evaluator) meets(p *Predicate, ctx *Context, st *stack) bool {
	if p.IsReference() && e.resolve(p) == 0 {
		e.missingReference(p)
		return true
	}

	result, ok := e.raw(p, ctx, st)
	result = ok && result != p.Negate
	if result && !e.observer.Allow(p, ctx) {
		result = false
	}
	return result
}

// raw returns the result before negation. ok is false when the predicate
// fails closed.
func (e *Evaluator) raw(p *Predicate, ctx *Context, st *stack) (result, ok bool) {
	if p.IsReference() {
		return e.reference(p, ctx, st)
	}
	if !p.Kind.Valid() {
		return false, false
	}
	if p.Kind == KindNone {
		return true, true
	}

	spec := kindSpecs[p.Kind]
	if spec.target == onContext {
		if ctx == nil || ctx.Map == nil {
			return false, false
		}
		return e.contextKind(p, ctx), true
	}

	obj := ctx.target(uint32(p.TargetSlot))
	if obj == nil {
		if ce := e.log.Check(zapcore.DebugLevel, "condition target absent"); ce != nil {
			ce.Write(zap.Int("row", p.Row), zap.Stringer("kind", p.Kind), zap.Uint8("slot", p.TargetSlot))
		}
		return false, false
	}

	switch spec.target {
	case onObject:
		return e.objectKind(p, obj, ctx), true
	case onUnit:
		u, isUnit := obj.(world.Unit)
		if !isUnit {
			return false, true
		}
		return e.unitKind(p, u, ctx), true
	case onPlayer:
		pl, isPlayer := obj.(world.Player)
		if !isPlayer {
			return false, true
		}
		return e.playerKind(p, pl, ctx, st)
	case onCreature:
		c, isCreature := obj.(world.Creature)
		if !isCreature {
			return false, true
		}
		return creatureKind(p, c), true
	default:
		return false, false
	}
}

func (e *Evaluator) contextKind(p *Predicate, ctx *Context) bool {
	m := ctx.Map
	switch p.Kind {
	case KindMapID:
		return m.ID() == p.Value1
	case KindDifficultyID:
		return m.DifficultyID() == p.Value1
	case KindWorldState:
		if e.provider == nil {
			return false
		}
		return Compare(Comparator(p.Value3), e.provider.LookupWorldState(p.Value1, m), int32(p.Value2))
	case KindActiveEvent:
		return m.GameEventActive(p.Value1)
	case KindInstanceInfo:
		switch p.Value3 {
		case InstanceInfoData:
			v, ok := m.InstanceData(p.Value1)
			return ok && v == p.Value2
		case InstanceInfoData64:
			v, ok := m.InstanceData64(p.Value1)
			return ok && v == uint64(p.Value2)
		case InstanceInfoBossState:
			v, ok := m.BossState(p.Value1)
			return ok && v == p.Value2
		}
		return false
	case KindRealmAchievement:
		return m.RealmAchievementDone(p.Value1)
	case KindScenarioStep:
		step, ok := m.ScenarioStep()
		return ok && step == p.Value1
	case KindWorldStateExpression:
		program, ok := e.snap.Program(p.Value1)
		return ok && expr.Eval(program, m, e.provider, e.snap)
	default:
		return false
	}
}

func (e *Evaluator) objectKind(p *Predicate, obj world.Object, ctx *Context) bool {
	switch p.Kind {
	case KindZone:
		return obj.ZoneID() == p.Value1
	case KindArea:
		return obj.AreaID() == p.Value1
	case KindPhase:
		return obj.InPhase(p.Value1)
	case KindNearCreature:
		return ctx.Map != nil && ctx.Map.NearestCreature(obj, p.Value1, float32(p.Value2), p.Value3 != 0)
	case KindNearGameObject:
		return ctx.Map != nil && ctx.Map.NearestGameObject(obj, p.Value1, float32(p.Value2))
	case KindObjectEntryGUID:
		return uint32(obj.TypeID()) == p.Value1 &&
			(p.Value2 == 0 || obj.Entry() == p.Value2) &&
			(p.Value3 == 0 || obj.SpawnID() == uint64(p.Value3))
	case KindTypeMask:
		return obj.TypeMask()&p.Value1 != 0
	case KindDistanceTo:
		other := ctx.target(p.Value1)
		if other == nil {
			return false
		}
		return Compare(Comparator(p.Value3), obj.Distance(other), float32(p.Value2))
	case KindStringID:
		return obj.HasStringID(p.StringValue)
	default:
		return false
	}
}

func (e *Evaluator) unitKind(p *Predicate, u world.Unit, ctx *Context) bool {
	switch p.Kind {
	case KindAura:
		return u.HasAura(p.Value1, uint8(p.Value2))
	case KindClass:
		return inMask(p.Value1, u.Class())
	case KindRace:
		return inMask(p.Value1, u.Race())
	case KindGender:
		return uint32(u.Gender()) == p.Value1
	case KindUnitState:
		return u.HasUnitState(p.Value1)
	case KindLevel:
		return Compare(Comparator(p.Value2), uint32(u.Level()), p.Value1)
	case KindAlive:
		return u.IsAlive()
	case KindHPValue:
		return Compare(Comparator(p.Value2), u.Health(), uint64(p.Value1))
	case KindHPPct:
		return Compare(Comparator(p.Value2), u.HealthPct(), float32(p.Value1))
	case KindInWater:
		return u.IsInWater()
	case KindCharmed:
		return u.IsCharmed()
	case KindStandState:
		return standStateMet(p.Value1, p.Value2, uint32(u.StandState()))
	case KindRelationTo:
		other, ok := ctx.target(p.Value1).(world.Unit)
		return ok && relationMet(p.Value2, u, other)
	case KindReactionTo:
		other, ok := ctx.target(p.Value1).(world.Unit)
		return ok && p.Value2&(1<<u.ReactionTo(other)) != 0
	case KindUnitCondition:
		rec, ok := e.snap.UnitCondition(p.Value1)
		if !ok {
			return false
		}
		var other world.Unit
		if p.Value2 != 0 {
			other, _ = ctx.target(p.Value2 - 1).(world.Unit)
		}
		return records.UnitConditionMet(rec, u, other, e.provider)
	default:
		return false
	}
}

func (e *Evaluator) playerKind(p *Predicate, pl world.Player, ctx *Context, st *stack) (bool, bool) {
	switch p.Kind {
	case KindItem:
		return pl.ItemCount(p.Value1, p.Value3 != 0) >= max(p.Value2, 1), true
	case KindItemEquipped:
		return pl.HasItemEquipped(p.Value1), true
	case KindReputationRank:
		return p.Value2&(1<<pl.ReputationRank(p.Value1)) != 0, true
	case KindTeam:
		return pl.Team() == p.Value1, true
	case KindSkill:
		v := pl.SkillValue(p.Value1)
		return v != 0 && uint32(v) >= p.Value2, true
	case KindQuestRewarded:
		return pl.QuestRewarded(p.Value1), true
	case KindQuestTaken:
		return pl.QuestStatus(p.Value1) == world.QuestStatusIncomplete, true
	case KindQuestNone:
		return pl.QuestStatus(p.Value1) == world.QuestStatusNone, true
	case KindQuestComplete:
		return pl.QuestStatus(p.Value1) == world.QuestStatusComplete && !pl.QuestRewarded(p.Value1), true
	case KindQuestState:
		return p.Value2&(1<<pl.QuestStatus(p.Value1)) != 0, true
	case KindQuestObjectiveProgress:
		return pl.QuestObjectiveCount(p.Value1, p.Value2) == p.Value3, true
	case KindDailyQuestDone:
		return pl.DailyQuestDone(p.Value1), true
	case KindDrunkenState:
		return uint32(pl.DrunkenState()) >= p.Value1, true
	case KindAchievement:
		return pl.HasAchievement(p.Value1), true
	case KindTitle:
		return pl.HasTitle(p.Value1), true
	case KindSpell:
		return pl.HasSpell(p.Value1), true
	case KindPetType:
		return pl.PetTypeMask()&p.Value1 != 0, true
	case KindTaxi:
		return pl.IsInFlight(), true
	case KindPlayerCondition:
		return e.playerCondition(p.Value1, pl, ctx, st)
	default:
		return false, true
	}
}

func creatureKind(p *Predicate, c world.Creature) bool {
	switch p.Kind {
	case KindCreatureType:
		return c.CreatureType() == p.Value1
	default:
		return false
	}
}

// playerCondition evaluates record id and then the predicate list attached
// to it, with the player as the list's only target.
func (e *Evaluator) playerCondition(id uint32, pl world.Player, ctx *Context, st *stack) (bool, bool) {
	if e.snap.Disabled(id) {
		return false, false
	}
	rec, ok := e.snap.PlayerCondition(id)
	if !ok {
		return false, true
	}
	deps := records.Deps{Map: ctx.Map, Env: e.provider, Programs: e.snap}
	if !records.PlayerConditionMet(rec, pl, deps) {
		return false, true
	}

	h, ok := e.snap.Lookup(ListKey{Source: SourcePlayerCondition, Key: Key{Entry: int32(id)}})
	if !ok {
		return true, true
	}
	if !st.push(h) {
		e.log.Warn("player condition cycle at evaluation", zap.Uint32("player_condition", id))
		return false, false
	}
	sub := Context{Map: ctx.Map}
	sub.Targets[0] = pl
	met, _ := e.groupMeets(e.snap.List(h), &sub, st)
	st.pop()
	return met, true
}

func (e *Evaluator) missingReference(p *Predicate) {
	if ce := e.log.Check(zapcore.DebugLevel, "condition reference missing"); ce != nil {
		ce.Write(zap.Int("row", p.Row), zap.Uint32("reference", p.ReferenceID))
	}
}

func relationMet(relation uint32, u, other world.Unit) bool {
	switch relation {
	case RelationSelf:
		return u.GUID() == other.GUID()
	case RelationInParty:
		return u.IsInPartyWith(other)
	case RelationInRaidOrParty:
		return u.IsInRaidWith(other)
	case RelationOwnedBy:
		return u.OwnerGUID() == other.GUID()
	case RelationPassengerOf:
		v := u.VehicleBase()
		return v != nil && v.GUID() == other.GUID()
	case RelationCreatedBy:
		return u.CreatorGUID() == other.GUID()
	default:
		return false
	}
}

// Stand states between these bounds are sitting.
const (
	standStateSitFirst = 1
	standStateSitLast  = 6
)

func standStateMet(match, want, state uint32) bool {
	if match == StandStateExact {
		return state == want
	}
	sitting := state >= standStateSitFirst && state <= standStateSitLast
	if want == StandStateSitting {
		return sitting
	}
	return state == 0
}

// inMask tests 1-based id against mask.
func inMask(mask uint32, id uint8) bool {
	return id != 0 && id <= 32 && mask&(1<<(id-1)) != 0
}

// stack is the chain of lists being resolved, bounding nesting depth and
// catching revisits.
type stack struct {
	handles [types.MaxReferenceDepth]Handle
	n       int
}

func (s *stack) push(h Handle) bool {
	if s.n == len(s.handles) {
		return false
	}
	for _, seen := range s.handles[:s.n] {
		if seen == h {
			return false
		}
	}
	s.handles[s.n] = h
	s.n++
	return true
}

func (s *stack) pop() { s.n-- }
