package conditions

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/gatekeeper/internal/types"
	"github.com/solatis/gatekeeper/internal/world/worldtest"
)

// gossip returns a row attached to gossip menu 1.
func gossip(elseGroup uint32, kind Kind, v1, v2 uint32) types.ConditionRow {
	return types.ConditionRow{
		SourceKind:    int32(SourceGossipMenu),
		SourceGroup:   1,
		ElseGroup:     elseGroup,
		PredicateKind: int32(kind),
		Value1:        v1,
		Value2:        v2,
	}
}

var gossipKey = Key{Group: 1}

func TestGroupMeets_ElseGroups(t *testing.T) {
	e := NewEngine()
	report := e.Reload(Source{Conditions: []types.ConditionRow{
		gossip(0, KindLevel, 10, uint32(CompareGreaterOrEqual)),
		gossip(0, KindClass, 1<<(classWarrior-1), 0),
		gossip(1, KindLevel, 80, uint32(CompareGreaterOrEqual)),
	}})
	if len(report.Rejections) != 0 {
		t.Fatalf("Reload() rejections = %v, want none", report.Rejections)
	}
	h := e.RegisterAndIndex(SourceGossipMenu, gossipKey)

	mage := worldtest.NewPlayer(1, 85, raceHuman, classMage)
	ctx := NewContext(&worldtest.Map{}, mage)
	if !e.Evaluate(h, ctx) {
		t.Errorf("Evaluate(level 85 mage) = false, want true through else group 1")
	}
	if ctx.LastFailure != nil {
		t.Errorf("LastFailure = %+v after a true result, want nil", ctx.LastFailure)
	}

	lowMage := worldtest.NewPlayer(2, 20, raceHuman, classMage)
	ctx = NewContext(&worldtest.Map{}, lowMage)
	if e.Evaluate(h, ctx) {
		t.Errorf("Evaluate(level 20 mage) = true, want false")
	}
	if ctx.LastFailure == nil || ctx.LastFailure.ElseGroup != 1 {
		t.Errorf("LastFailure = %+v, want the else group 1 level check", ctx.LastFailure)
	}

	warrior := worldtest.NewPlayer(3, 20, raceHuman, classWarrior)
	if !e.Evaluate(h, NewContext(&worldtest.Map{}, warrior)) {
		t.Errorf("Evaluate(level 20 warrior) = false, want true through else group 0")
	}
}

func TestGroupMeets_Empty(t *testing.T) {
	e := NewEngine()
	if !e.Evaluator().GroupMeets(nil, NewContext(nil)) {
		t.Errorf("GroupMeets(nil) = false, want true")
	}
	h := e.RegisterAndIndex(SourceSpell, Key{Entry: 133})
	if !e.Evaluate(h, NewContext(nil)) {
		t.Errorf("Evaluate(unloaded key) = false, want true")
	}
	if !e.Evaluate(0, NewContext(nil)) {
		t.Errorf("Evaluate(0) = false, want true")
	}
}

func TestGroupMeets_SkipsFailedGroup(t *testing.T) {
	calls := 0
	observer := ObserverFunc(func(p *Predicate, ctx *Context) bool {
		calls++
		return true
	})
	ev := NewEngine(WithObserver(observer)).Evaluator()
	list := []Predicate{
		{Kind: KindMapID, Value1: 1},
		{Kind: KindNone},
		{Kind: KindNone},
	}
	if ev.GroupMeets(list, NewContext(&worldtest.Map{MapID: 530})) {
		t.Errorf("GroupMeets() = true, want false")
	}
	if calls != 0 {
		t.Errorf("observer called %d times, want 0 after the group failed", calls)
	}
}

func TestGroupMeets_References(t *testing.T) {
	templateMap530 := types.ConditionRow{SourceKind: -100, PredicateKind: int32(KindMapID), Value1: 530}
	tests := []struct {
		name   string
		negate bool
		mapID  uint32
		want   bool
	}{
		{"reference holds", false, 530, true},
		{"reference fails", false, 1, false},
		{"negated reference holds", true, 530, false},
		{"negated reference fails", true, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			report := e.Reload(Source{Conditions: []types.ConditionRow{
				templateMap530,
				{SourceKind: int32(SourceSpell), SourceEntry: 5, PredicateKind: -100, Negate: tt.negate},
			}})
			if len(report.Rejections) != 0 {
				t.Fatalf("Reload() rejections = %v, want none", report.Rejections)
			}
			h := e.RegisterAndIndex(SourceSpell, Key{Entry: 5})
			if got := e.Evaluate(h, NewContext(&worldtest.Map{MapID: tt.mapID})); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupMeets_NestedReferences(t *testing.T) {
	e := NewEngine()
	report := e.Reload(Source{Conditions: []types.ConditionRow{
		{SourceKind: -1, PredicateKind: -2},
		{SourceKind: -2, PredicateKind: -3},
		{SourceKind: -3, PredicateKind: int32(KindMapID), Value1: 571},
		{SourceKind: int32(SourceQuestAvailable), SourceEntry: 9, PredicateKind: -1},
	}})
	if len(report.Rejections) != 0 {
		t.Fatalf("Reload() rejections = %v, want none", report.Rejections)
	}
	h := e.RegisterAndIndex(SourceQuestAvailable, Key{Entry: 9})
	if !e.Evaluate(h, NewContext(&worldtest.Map{MapID: 571})) {
		t.Errorf("Evaluate() = false, want true through three templates")
	}
	if e.Evaluate(h, NewContext(&worldtest.Map{MapID: 1})) {
		t.Errorf("Evaluate() = true, want false through three templates")
	}
}

func TestGroupMeets_UnresolvedReference(t *testing.T) {
	ev := NewEngine().Evaluator()
	ctx := NewContext(&worldtest.Map{MapID: 1})

	list := []Predicate{{ReferenceID: 42, Negate: true}}
	if !ev.GroupMeets(list, ctx) {
		t.Errorf("GroupMeets() = false, want true: an unresolved reference imposes nothing")
	}

	list = append(list, Predicate{Kind: KindMapID, Value1: 530})
	if ev.GroupMeets(list, ctx) {
		t.Errorf("GroupMeets() = true, want false from the remaining predicate")
	}
}

func TestGroupMeets_UnresolvedReferenceKeepsGroup(t *testing.T) {
	ev := NewEngine().Evaluator()
	ctx := NewContext(&worldtest.Map{MapID: 530})

	// Group 0 holds only a missing reference and is vacuously true.
	list := []Predicate{
		{ReferenceID: 42},
		{Kind: KindMapID, Value1: 1, ElseGroup: 1},
	}
	if !ev.GroupMeets(list, ctx) {
		t.Errorf("GroupMeets() = false, want true through else group 0")
	}
	if ctx.LastFailure != nil {
		t.Errorf("LastFailure = %+v after a true result, want nil", ctx.LastFailure)
	}
	if got := ev.GroupMask(list); got != MaskAll {
		t.Errorf("GroupMask() = %05b, want %05b", got, MaskAll)
	}

	// A missing reference after a failed predicate does not revive the group.
	list = []Predicate{
		{Kind: KindMapID, Value1: 1},
		{ReferenceID: 42},
	}
	if ev.GroupMeets(list, ctx) {
		t.Errorf("GroupMeets() = true, want false for a group that already failed")
	}
	if ctx.LastFailure != &list[0] {
		t.Errorf("LastFailure = %+v, want the map check", ctx.LastFailure)
	}
}

func TestGroupMeets_HandBuiltReference(t *testing.T) {
	e := NewEngine()
	report := e.Reload(Source{Conditions: []types.ConditionRow{
		{SourceKind: -100, PredicateKind: int32(KindMapID), Value1: 530},
	}})
	if len(report.Rejections) != 0 {
		t.Fatalf("Reload() rejections = %v, want none", report.Rejections)
	}
	ev := e.Evaluator()
	list := []Predicate{{ReferenceID: 100, Negate: true}}

	if ev.GroupMeets(list, NewContext(&worldtest.Map{MapID: 530})) {
		t.Errorf("GroupMeets(map 530) = true, want false through the negated template")
	}
	if !ev.GroupMeets(list, NewContext(&worldtest.Map{MapID: 1})) {
		t.Errorf("GroupMeets(map 1) = false, want true through the negated template")
	}
	if !ev.Meets(&list[0], NewContext(&worldtest.Map{MapID: 1})) {
		t.Errorf("Meets(map 1) = false, want true through the negated template")
	}
}

func TestGroupMeets_RuntimeCycleFailsClosed(t *testing.T) {
	// A snapshot the loader would never build: template 1 refers to itself.
	snap := emptySnapshot()
	// The revisit fails closed even though the predicate is negated.
	snap.lists = append(snap.lists, []Predicate{{ReferenceID: 1, ref: 1, Negate: true}})
	ev := &Evaluator{snap: snap, observer: passThrough{}, log: NewEngine().log}

	spell := []Predicate{{ReferenceID: 1, ref: 1}}
	if ev.GroupMeets(spell, NewContext(nil)) {
		t.Errorf("GroupMeets() = true, want false for a reference cycle")
	}
}

func TestGroupMeets_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	ev := NewEngine().Evaluator()
	ctx := NewContext(&worldtest.Map{MapID: 530})

	// A list is the OR over else groups of the AND of its predicates.
	properties.Property("or of and groups", prop.ForAll(
		func(n int, groups []uint32, values []bool, negates []bool) bool {
			n = min(n, len(groups), len(values), len(negates))
			list := make([]Predicate, n)
			expected := make(map[uint32]bool)
			for i := range list {
				mapID := uint32(1)
				if values[i] {
					mapID = 530
				}
				list[i] = Predicate{Kind: KindMapID, Value1: mapID, Negate: negates[i], ElseGroup: groups[i]}

				met, seen := expected[groups[i]]
				expected[groups[i]] = (met || !seen) && values[i] != negates[i]
			}

			want := len(expected) == 0
			for _, met := range expected {
				want = want || met
			}
			return ev.GroupMeets(list, ctx) == want
		},
		gen.IntRange(0, 8),
		gen.SliceOfN(8, gen.UInt32Range(0, 3)),
		gen.SliceOfN(8, gen.Bool()),
		gen.SliceOfN(8, gen.Bool()),
	))

	properties.Property("negated predicates never narrow the mask", prop.ForAll(
		func(kinds []uint8) bool {
			list := make([]Predicate, len(kinds))
			for i, k := range kinds {
				list[i] = Predicate{Kind: Kind(k), Value1: 1, Negate: true}
			}
			return ev.GroupMask(list) == MaskAll
		},
		gen.SliceOf(gen.UInt8Range(0, uint8(kindCount)-1)),
	))

	properties.TestingRun(t)
}

func TestGroupMask(t *testing.T) {
	ev := NewEngine().Evaluator()

	tests := []struct {
		name string
		list []Predicate
		want TypeMask
	}{
		{"empty", nil, MaskAll},
		{"and within group", []Predicate{
			{Kind: KindLevel, Value1: 10},
			{Kind: KindQuestRewarded, Value1: 1},
		}, MaskPlayer},
		{"or across groups", []Predicate{
			{Kind: KindCreatureType, Value1: 1},
			{Kind: KindObjectEntryGUID, Value1: 5, ElseGroup: 1},
		}, MaskCreature | MaskGameObject},
		{"negated does not narrow", []Predicate{
			{Kind: KindQuestRewarded, Value1: 1, Negate: true},
			{Kind: KindLevel, Value1: 10},
		}, MaskCreature | MaskPlayer},
		{"unresolved reference", []Predicate{
			{ReferenceID: 9},
			{Kind: KindCreatureType, Value1: 1},
		}, MaskCreature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.GroupMask(tt.list); got != tt.want {
				t.Errorf("GroupMask() = %05b, want %05b", got, tt.want)
			}
		})
	}
}

func TestEngine_MaskForThroughReference(t *testing.T) {
	e := NewEngine()
	e.Reload(Source{Conditions: []types.ConditionRow{
		{SourceKind: -7, PredicateKind: int32(KindQuestRewarded), Value1: 1},
		{SourceKind: int32(SourceSmartEvent), SourceEntry: 3, PredicateKind: -7},
		{SourceKind: int32(SourceSmartEvent), SourceEntry: 3, PredicateKind: int32(KindAlive)},
	}})
	h := e.RegisterAndIndex(SourceSmartEvent, Key{Entry: 3})
	if got := e.MaskFor(h); got != MaskPlayer {
		t.Errorf("MaskFor() = %05b, want %05b", got, MaskPlayer)
	}
}
