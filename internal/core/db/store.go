package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/gatekeeper/internal/conditions"
	"github.com/solatis/gatekeeper/internal/types"
)

// Store reads and writes the condition tables.
type Store struct {
	q   *Queries
	log *zap.Logger
}

// NewStore returns a store over q. A nil log discards output.
func NewStore(q *Queries, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{q: q, log: log}
}

// LoadSource reads every condition table into one engine Source. The four
// tables are read concurrently; any failure fails the whole load so the
// engine never publishes a partial registry.
func (s *Store) LoadSource(ctx context.Context) (conditions.Source, error) {
	var src conditions.Source

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.list(ctx, "list-conditions", &src.Conditions)
	})
	g.Go(func() error {
		return s.list(ctx, "list-player-conditions", &src.PlayerConditions)
	})
	g.Go(func() error {
		return s.list(ctx, "list-unit-conditions", &src.UnitConditions)
	})
	g.Go(func() error {
		return s.list(ctx, "list-world-state-expressions", &src.Expressions)
	})
	if err := g.Wait(); err != nil {
		return conditions.Source{}, err
	}

	s.log.Debug("condition source read",
		zap.Int("conditions", len(src.Conditions)),
		zap.Int("player_conditions", len(src.PlayerConditions)),
		zap.Int("unit_conditions", len(src.UnitConditions)),
		zap.Int("expressions", len(src.Expressions)))
	return src, nil
}

func (s *Store) list(ctx context.Context, name string, dest any) error {
	if err := s.q.Select(ctx, name, dest); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// InsertCondition appends a condition row. Rows load in insertion order.
func (s *Store) InsertCondition(ctx context.Context, row types.ConditionRow) error {
	_, err := s.q.Exec(ctx, "insert-condition",
		row.SourceKind, row.SourceGroup, row.SourceEntry, row.SourceSubID, row.ElseGroup,
		row.PredicateKind, row.TargetSlot, row.Value1, row.Value2, row.Value3, row.StringValue,
		row.Negate, row.ErrorKind, row.ErrorTextID, row.ScriptRef)
	if err != nil {
		return fmt.Errorf("insert condition: %w", err)
	}
	return nil
}

// InsertPlayerCondition stores a player condition definition.
func (s *Store) InsertPlayerCondition(ctx context.Context, row types.RecordRow) error {
	if _, err := s.q.Exec(ctx, "insert-player-condition", row.ID, row.Definition); err != nil {
		return fmt.Errorf("insert player condition %d: %w", row.ID, err)
	}
	return nil
}

// InsertUnitCondition stores a unit condition definition.
func (s *Store) InsertUnitCondition(ctx context.Context, row types.RecordRow) error {
	if _, err := s.q.Exec(ctx, "insert-unit-condition", row.ID, row.Definition); err != nil {
		return fmt.Errorf("insert unit condition %d: %w", row.ID, err)
	}
	return nil
}

// InsertExpression stores a world-state expression program.
func (s *Store) InsertExpression(ctx context.Context, row types.ExpressionRow) error {
	if _, err := s.q.Exec(ctx, "insert-world-state-expression", row.ID, row.Expression); err != nil {
		return fmt.Errorf("insert expression %d: %w", row.ID, err)
	}
	return nil
}
