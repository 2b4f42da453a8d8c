package conditions

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/solatis/gatekeeper/internal/world"
)

// Engine owns the published registry snapshot and the handle table.
//
// Evaluate, MaskFor and Evaluator never lock; they read whichever snapshot
// is current. Reload and RegisterAndIndex serialise on one mutex.
type Engine struct {
	mu      sync.Mutex
	handles *handleTable
	current atomic.Pointer[Snapshot]

	provider world.Provider
	observer Observer
	log      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithProvider sets the world-state and unit-variable provider.
func WithProvider(p world.Provider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithObserver sets the observer that may veto true results.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithLogger sets the logger for load diagnostics and evaluation gaps.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine returns an engine with an empty registry.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		handles:  newHandleTable(),
		observer: passThrough{},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.current.Store(emptySnapshot())
	return e
}

// Reload rebuilds the registry from src and publishes it. Rejected rows
// are logged and reported; they never abort the load.
func (e *Engine) Reload(src Source) Report {
	e.mu.Lock()
	snap, report := build(src, e.handles)
	e.current.Store(snap)
	e.mu.Unlock()

	for _, r := range report.Rejections {
		e.log.Warn("condition row rejected",
			zap.String("table", r.Table),
			zap.Int("row", r.Row),
			zap.Uint32("id", r.ID),
			zap.Error(r.Err))
	}
	e.log.Info("condition registry loaded",
		zap.String("load_id", string(report.LoadID)),
		zap.Int("lists", report.Stats.Lists),
		zap.Int("predicates", report.Stats.Predicates),
		zap.Int("player_conditions", report.Stats.PlayerConditions),
		zap.Int("unit_conditions", report.Stats.UnitConditions),
		zap.Int("expressions", report.Stats.Expressions),
		zap.Int("rejected", report.Stats.Rejected))
	return report
}

// RegisterAndIndex returns the stable handle of the list kind/key. The
// handle stays valid across reloads; a key with no loaded rows evaluates
// as the empty list.
func (e *Engine) RegisterAndIndex(kind SourceKind, key Key) Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handles.assign(ListKey{Source: kind, Key: key})
}

// Snapshot returns the current registry snapshot.
func (e *Engine) Snapshot() *Snapshot { return e.current.Load() }

// Evaluator returns an evaluator bound to the current snapshot. Holding
// one pins that snapshot across reloads.
func (e *Engine) Evaluator() *Evaluator {
	return &Evaluator{
		snap:     e.current.Load(),
		provider: e.provider,
		observer: e.observer,
		log:      e.log,
	}
}

// Evaluate evaluates list h against ctx.
func (e *Engine) Evaluate(h Handle, ctx *Context) bool {
	ev := e.Evaluator()
	return ev.GroupMeets(ev.snap.List(h), ctx)
}

// MaskFor returns the type mask of list h.
func (e *Engine) MaskFor(h Handle) TypeMask {
	ev := e.Evaluator()
	return ev.GroupMask(ev.snap.List(h))
}
