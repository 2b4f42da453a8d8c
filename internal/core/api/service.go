// Package api provides the condition service behind the admin RPC surface:
// reload orchestration, load statistics and diagnostics logging.
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solatis/gatekeeper/internal/conditions"
	"github.com/solatis/gatekeeper/internal/types"
)

// Loader reads one condition source from the backing store.
type Loader interface {
	LoadSource(ctx context.Context) (conditions.Source, error)
}

// LoadHook observes every successful reload.
type LoadHook func(conditions.Report)

// ConditionService owns the engine and reloads it from a Loader.
// Thin orchestration layer delegating to the conditions and db packages.
type ConditionService struct {
	loader Loader
	engine *conditions.Engine
	log    *zap.Logger

	// mu serialises reloads so two callers never interleave read and publish.
	mu     sync.Mutex
	last   *conditions.Report
	failed int
	hooks  []LoadHook
}

// NewConditionService creates service instance with dependencies.
func NewConditionService(loader Loader, engine *conditions.Engine, log *zap.Logger) (*ConditionService, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ConditionService{loader: loader, engine: engine, log: log}, nil
}

// Engine returns the engine the service reloads.
func (s *ConditionService) Engine() *conditions.Engine { return s.engine }

// OnLoad registers fn to run after every successful reload.
func (s *ConditionService) OnLoad(fn LoadHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Reload reads the backing store and publishes a new snapshot. A store
// failure keeps the current snapshot and returns ErrSourceUnavailable.
// Row rejections are reported, not returned as errors.
func (s *ConditionService) Reload(ctx context.Context) (conditions.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	src, err := s.loader.LoadSource(ctx)
	if err != nil {
		s.failed++
		s.log.Error("condition reload failed", zap.Error(err), zap.Int("consecutive_failures", s.failed))
		return conditions.Report{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	report := s.engine.Reload(src)
	s.failed = 0
	s.last = &report
	s.log.Info("condition reload complete",
		zap.String("load_id", string(report.LoadID)),
		zap.Duration("took", time.Since(start)),
		zap.Uint32s("disabled_player_conditions", report.Disabled))

	for _, fn := range s.hooks {
		fn(report)
	}
	return report, nil
}

// Stats describes the published snapshot.
type Stats struct {
	Loaded     bool
	LoadID     types.LoadID
	LoadedAt   time.Time
	Counts     conditions.Stats
	Rejections []conditions.Rejection
	Disabled   []uint32
	// ConsecutiveFailures counts store failures since the last good load.
	ConsecutiveFailures int
}

// Stats returns statistics of the current snapshot.
func (s *ConditionService) Stats() Stats {
	snap := s.engine.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		LoadID:              snap.LoadID(),
		LoadedAt:            snap.LoadedAt(),
		Counts:              snap.Stats(),
		ConsecutiveFailures: s.failed,
	}
	if s.last != nil && s.last.LoadID == snap.LoadID() {
		st.Loaded = true
		st.Rejections = s.last.Rejections
		st.Disabled = s.last.Disabled
	}
	return st
}
