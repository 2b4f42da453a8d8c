package conditions

import (
	"fmt"
	"slices"
	"time"

	"github.com/solatis/gatekeeper/internal/expr"
	"github.com/solatis/gatekeeper/internal/records"
	"github.com/solatis/gatekeeper/internal/types"
)

/*
 * Registry snapshot build.
 *
 * A Snapshot is the immutable result of one load: an arena of predicate
 * lists addressed by Handle, an index from list key to handle, and the
 * records and expression programs the predicates name. Readers share it
 * without locking; a reload builds a new one and swaps the pointer.
 *
 * Build workflow:
 *   1. Decode player conditions, unit conditions and expression programs
 *   2. Compile condition rows, grouping them into lists in load order
 *   3. Reject self references and references to undefined templates
 *   4. Reject predicates naming undefined records or expressions
 *   5. Walk the template graph; reject each reference closing a cycle
 *   6. Walk player-condition dependencies; disable records that reach
 *      themselves and clear their attached lists
 *   7. Assign handles and resolve reference predicates to handles
 *
 * Every rejection is reported with its row. No rejection aborts the load.
 */

// Source is one load's input from the backing store.
type Source struct {
	Conditions       []types.ConditionRow
	PlayerConditions []types.RecordRow
	UnitConditions   []types.RecordRow
	Expressions      []types.ExpressionRow
}

// Backing-store tables named in rejections.
const (
	TableConditions           = "conditions"
	TablePlayerConditions     = "player_condition"
	TableUnitConditions       = "unit_condition"
	TableWorldStateExpression = "world_state_expression"
)

// Rejection is one row a load refused.
type Rejection struct {
	Table string
	// Row is the index of the row within its table's input.
	Row int
	// ID is the record or expression id; zero for condition rows.
	ID  uint32
	Err error
}

// Stats summarises a snapshot.
type Stats struct {
	Lists            int
	Predicates       int
	PlayerConditions int
	UnitConditions   int
	Expressions      int
	Disabled         int
	Rejected         int
}

// Report is the outcome of a load.
type Report struct {
	LoadID     types.LoadID
	Stats      Stats
	Rejections []Rejection
	// Disabled lists the circular player conditions, ascending.
	Disabled []uint32
}

// Snapshot is an immutable registry generation.
type Snapshot struct {
	id       types.LoadID
	loadedAt time.Time
	stats    Stats

	lists [][]Predicate
	index map[ListKey]Handle

	playerConditions map[uint32]*records.PlayerCondition
	disabled         map[uint32]bool
	unitConditions   map[uint32]*records.UnitCondition
	programs         expr.ProgramSet
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		loadedAt: time.Now(),
		lists:    make([][]Predicate, 1),
	}
}

// LoadID identifies the load that produced s. Empty before the first load.
func (s *Snapshot) LoadID() types.LoadID { return s.id }

// LoadedAt is when s was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Stats returns the counts recorded at build time.
func (s *Snapshot) Stats() Stats { return s.stats }

// List returns the predicates of h. Unknown handles and handles of keys
// registered after s was built are empty.
func (s *Snapshot) List(h Handle) []Predicate {
	if int(h) >= len(s.lists) {
		return nil
	}
	return s.lists[h]
}

// Lookup returns the handle of a list loaded into s.
func (s *Snapshot) Lookup(k ListKey) (Handle, bool) {
	h, ok := s.index[k]
	return h, ok
}

// Program implements expr.Programs.
func (s *Snapshot) Program(id uint32) (expr.Program, bool) {
	return s.programs.Program(id)
}

// PlayerCondition returns record id.
func (s *Snapshot) PlayerCondition(id uint32) (*records.PlayerCondition, bool) {
	rec, ok := s.playerConditions[id]
	return rec, ok
}

// UnitCondition returns record id.
func (s *Snapshot) UnitCondition(id uint32) (*records.UnitCondition, bool) {
	rec, ok := s.unitConditions[id]
	return rec, ok
}

// Disabled reports whether player condition id was disabled for depending
// on itself.
func (s *Snapshot) Disabled(id uint32) bool { return s.disabled[id] }

// handleTable assigns handles to list keys. Handles survive reloads so
// consumers can keep the handles RegisterAndIndex gave them.
type handleTable struct {
	byKey map[ListKey]Handle
	keys  []ListKey
}

func newHandleTable() *handleTable {
	return &handleTable{
		byKey: make(map[ListKey]Handle),
		keys:  make([]ListKey, 1),
	}
}

func (t *handleTable) assign(k ListKey) Handle {
	if h, ok := t.byKey[k]; ok {
		return h
	}
	h := Handle(len(t.keys))
	t.keys = append(t.keys, k)
	t.byKey[k] = h
	return h
}

type builder struct {
	report Report

	lists map[ListKey][]Predicate
	order []ListKey

	playerConditions map[uint32]*records.PlayerCondition
	playerRows       map[uint32]int
	unitConditions   map[uint32]*records.UnitCondition
	programs         expr.ProgramSet
	disabled         map[uint32]bool
}

func (b *builder) reject(table string, row int, id uint32, err error) {
	b.report.Rejections = append(b.report.Rejections, Rejection{Table: table, Row: row, ID: id, Err: err})
}

// build compiles src into a snapshot, assigning new handles from handles.
func build(src Source, handles *handleTable) (*Snapshot, Report) {
	b := &builder{
		lists:            make(map[ListKey][]Predicate),
		playerConditions: make(map[uint32]*records.PlayerCondition, len(src.PlayerConditions)),
		playerRows:       make(map[uint32]int, len(src.PlayerConditions)),
		unitConditions:   make(map[uint32]*records.UnitCondition, len(src.UnitConditions)),
		programs:         make(expr.ProgramSet, len(src.Expressions)),
		disabled:         make(map[uint32]bool),
	}

	b.decodeRecords(src)
	b.compileRows(src.Conditions)
	b.checkTargets()
	b.breakReferenceCycles()
	b.disableCircularPlayerConditions()

	snap := &Snapshot{
		id:               types.NewLoadID(),
		loadedAt:         time.Now(),
		index:            make(map[ListKey]Handle, len(b.order)),
		playerConditions: b.playerConditions,
		disabled:         b.disabled,
		unitConditions:   b.unitConditions,
		programs:         b.programs,
	}
	for _, k := range b.order {
		snap.index[k] = handles.assign(k)
	}

	snap.lists = make([][]Predicate, len(handles.keys))
	predicates := 0
	for _, k := range b.order {
		list := b.lists[k]
		for i := range list {
			if list[i].IsReference() {
				list[i].ref = snap.index[referenceKey(list[i].ReferenceID)]
			}
		}
		snap.lists[snap.index[k]] = list
		predicates += len(list)
	}

	snap.stats = Stats{
		Lists:            len(b.order),
		Predicates:       predicates,
		PlayerConditions: len(b.playerConditions),
		UnitConditions:   len(b.unitConditions),
		Expressions:      len(b.programs),
		Disabled:         len(b.disabled),
		Rejected:         len(b.report.Rejections),
	}

	b.report.LoadID = snap.id
	b.report.Stats = snap.stats
	for id := range b.disabled {
		b.report.Disabled = append(b.report.Disabled, id)
	}
	slices.Sort(b.report.Disabled)
	return snap, b.report
}

func (b *builder) decodeRecords(src Source) {
	for i, row := range src.PlayerConditions {
		if _, dup := b.playerConditions[row.ID]; dup {
			b.reject(TablePlayerConditions, i, row.ID, fmt.Errorf("player condition %d: %w: duplicate id", row.ID, types.ErrMalformedRecord))
			continue
		}
		rec, err := records.DecodePlayerCondition(row)
		if err != nil {
			b.reject(TablePlayerConditions, i, row.ID, err)
			continue
		}
		b.playerConditions[row.ID] = &rec
		b.playerRows[row.ID] = i
	}

	for i, row := range src.UnitConditions {
		if _, dup := b.unitConditions[row.ID]; dup {
			b.reject(TableUnitConditions, i, row.ID, fmt.Errorf("unit condition %d: %w: duplicate id", row.ID, types.ErrMalformedRecord))
			continue
		}
		rec, err := records.DecodeUnitCondition(row)
		if err != nil {
			b.reject(TableUnitConditions, i, row.ID, err)
			continue
		}
		b.unitConditions[row.ID] = &rec
	}

	for i, row := range src.Expressions {
		if _, dup := b.programs[row.ID]; dup {
			b.reject(TableWorldStateExpression, i, row.ID, fmt.Errorf("expression %d: %w: duplicate id", row.ID, types.ErrMalformedExpression))
			continue
		}
		program, err := expr.Decode(row.Expression)
		if err == nil && len(program) == 0 {
			err = types.ErrMalformedExpression
		}
		if err != nil {
			b.reject(TableWorldStateExpression, i, row.ID, fmt.Errorf("expression %d: %w", row.ID, err))
			continue
		}
		b.programs[row.ID] = program
	}
}

func (b *builder) compileRows(rows []types.ConditionRow) {
	for i, row := range rows {
		p, err := Compile(i, row)
		if err != nil {
			b.reject(TableConditions, i, 0, err)
			continue
		}
		k := p.ListKey()
		if _, ok := b.lists[k]; !ok {
			b.order = append(b.order, k)
		}
		b.lists[k] = append(b.lists[k], p)
	}
}

// checkTargets drops predicates whose reference, record or expression
// does not exist in this load.
func (b *builder) checkTargets() {
	for _, k := range b.order {
		b.filter(k, func(p *Predicate) error {
			switch {
			case p.IsReference():
				if p.Source == SourceReference && p.Key.Group == p.ReferenceID {
					return fmt.Errorf("%w: %d", types.ErrSelfReference, p.ReferenceID)
				}
				if _, ok := b.lists[referenceKey(p.ReferenceID)]; !ok {
					return fmt.Errorf("%w: %d", types.ErrMissingReference, p.ReferenceID)
				}
			case p.Kind == KindPlayerCondition:
				if _, ok := b.playerConditions[p.Value1]; !ok {
					return fmt.Errorf("%w: player condition %d", types.ErrMissingRecord, p.Value1)
				}
			case p.Kind == KindUnitCondition:
				if _, ok := b.unitConditions[p.Value1]; !ok {
					return fmt.Errorf("%w: unit condition %d", types.ErrMissingRecord, p.Value1)
				}
			case p.Kind == KindWorldStateExpression:
				if _, ok := b.programs[p.Value1]; !ok {
					return fmt.Errorf("%w: %d", types.ErrMissingExpression, p.Value1)
				}
			}
			return nil
		})
	}
}

// filter removes the predicates of list k that check rejects. The list
// itself stays defined even if it ends up empty.
func (b *builder) filter(k ListKey, check func(*Predicate) error) {
	list := b.lists[k]
	kept := list[:0]
	for i := range list {
		if err := check(&list[i]); err != nil {
			b.reject(TableConditions, list[i].Row, 0, fmt.Errorf("row %d: %w", list[i].Row, err))
			continue
		}
		kept = append(kept, list[i])
	}
	b.lists[k] = kept
}

// breakReferenceCycles runs a depth-first walk over reference templates in
// ascending id order and rejects every reference that points back into the
// current path.
func (b *builder) breakReferenceCycles() {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[uint32]int)

	var visit func(id uint32)
	visit = func(id uint32) {
		state[id] = onPath
		b.filter(referenceKey(id), func(p *Predicate) error {
			if !p.IsReference() {
				return nil
			}
			switch state[p.ReferenceID] {
			case onPath:
				return fmt.Errorf("%w: %d -> %d", types.ErrCircularReference, id, p.ReferenceID)
			case unvisited:
				visit(p.ReferenceID)
			}
			return nil
		})
		state[id] = done
	}

	for _, id := range b.templateIDs() {
		if state[id] == unvisited {
			visit(id)
		}
	}
}

func (b *builder) templateIDs() []uint32 {
	var ids []uint32
	for _, k := range b.order {
		if k.Source == SourceReference {
			ids = append(ids, k.Group)
		}
	}
	slices.Sort(ids)
	return ids
}

// attachedKey is the key of the list attached to player condition id.
func attachedKey(id uint32) ListKey {
	return ListKey{Source: SourcePlayerCondition, Key: Key{Entry: int32(id)}}
}

// playerConditionDeps returns the player conditions the attached list of
// id names, directly or through reference templates.
func (b *builder) playerConditionDeps(id uint32) []uint32 {
	var deps []uint32
	seen := make(map[ListKey]bool)

	var walk func(k ListKey)
	walk = func(k ListKey) {
		if seen[k] {
			return
		}
		seen[k] = true
		for _, p := range b.lists[k] {
			switch {
			case p.IsReference():
				walk(referenceKey(p.ReferenceID))
			case p.Kind == KindPlayerCondition:
				deps = append(deps, p.Value1)
			}
		}
	}
	walk(attachedKey(id))
	return deps
}

// disableCircularPlayerConditions finds records reachable from themselves
// within MaxPlayerConditionDepth steps. Every such record is disabled and
// its attached list cleared.
func (b *builder) disableCircularPlayerConditions() {
	ids := make([]uint32, 0, len(b.playerConditions))
	edges := make(map[uint32][]uint32)
	for id := range b.playerConditions {
		ids = append(ids, id)
		if deps := b.playerConditionDeps(id); len(deps) > 0 {
			edges[id] = deps
		}
	}
	slices.Sort(ids)

	var circular []uint32
	for _, id := range ids {
		if reaches(edges, id) {
			circular = append(circular, id)
		}
	}

	for _, id := range circular {
		k := attachedKey(id)
		if _, ok := b.lists[k]; ok {
			b.lists[k] = nil
		}
		b.disabled[id] = true
		b.reject(TablePlayerConditions, b.playerRows[id], id,
			fmt.Errorf("player condition %d: %w", id, types.ErrCircularPlayerCondition))
	}
}

// reaches reports whether start is reachable from its own dependencies.
func reaches(edges map[uint32][]uint32, start uint32) bool {
	frontier := edges[start]
	seen := make(map[uint32]bool)
	for depth := 0; depth < types.MaxPlayerConditionDepth && len(frontier) > 0; depth++ {
		var next []uint32
		for _, id := range frontier {
			if id == start {
				return true
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			next = append(next, edges[id]...)
		}
		frontier = next
	}
	return false
}
