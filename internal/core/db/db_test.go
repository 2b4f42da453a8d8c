package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/solatis/gatekeeper/internal/conditions"
	"github.com/solatis/gatekeeper/internal/types"
	"github.com/solatis/gatekeeper/internal/world/worldtest"
)

// openTestDB opens a migrated sqlite database in a temp dir.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := "sqlite://" + filepath.Join(t.TempDir(), "gatekeeper.db")
	db, err := Open(context.Background(), url)
	if err != nil {
		t.Fatalf("Open() error = %v, want nil", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := MigrateUp(db, zap.NewNop()); err != nil {
		t.Fatalf("MigrateUp() error = %v, want nil", err)
	}
	return db
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	q, err := LoadQueries(openTestDB(t))
	if err != nil {
		t.Fatalf("LoadQueries() error = %v, want nil", err)
	}
	return NewStore(q, nil)
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	for _, url := range []string{"mysql://localhost/gk", "://bad"} {
		if _, err := Open(context.Background(), url); err == nil {
			t.Errorf("Open(%q) error = nil, want error", url)
		}
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db, zap.NewNop()); err != nil {
		t.Fatalf("second MigrateUp() error = %v, want nil", err)
	}

	statuses, err := MigrateStatus(db)
	if err != nil {
		t.Fatalf("MigrateStatus() error = %v, want nil", err)
	}
	if len(statuses) == 0 {
		t.Fatal("MigrateStatus() returned no migrations")
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == "" {
			t.Errorf("migration %s applied = %v at %q, want applied", s.ID, s.Applied, s.AppliedAt)
		}
	}
}

func TestMigrateUp_ChecksumMismatch(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec("UPDATE migrations SET checksum = 'tampered'"); err != nil {
		t.Fatal(err)
	}
	err := MigrateUp(db, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("MigrateUp() error = %v, want checksum mismatch", err)
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `-- leading comment
CREATE TABLE a (id INTEGER);

-- second
CREATE TABLE b (id INTEGER);
`
	want := []string{"CREATE TABLE a (id INTEGER)", "CREATE TABLE b (id INTEGER)"}
	if diff := cmp.Diff(want, splitStatements(sql)); diff != "" {
		t.Errorf("splitStatements() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_LoadSource(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rows := []types.ConditionRow{
		{SourceKind: -3, PredicateKind: 22, Value1: 530},
		{SourceKind: 15, SourceGroup: 1, ElseGroup: 1, PredicateKind: 27, Value1: 80, Value2: 3, Negate: true, ScriptRef: "gossip"},
		{SourceKind: 17, SourceEntry: 133, PredicateKind: -3, ErrorKind: 7, ErrorTextID: 9},
		{SourceKind: 17, SourceEntry: 133, PredicateKind: 48, StringValue: "boss_add", TargetSlot: 1},
	}
	for _, row := range rows {
		if err := s.InsertCondition(ctx, row); err != nil {
			t.Fatalf("InsertCondition() error = %v, want nil", err)
		}
	}
	players := []types.RecordRow{{ID: 2, Definition: `{"min_level": 10}`}, {ID: 1, Definition: "{}"}}
	for _, row := range players {
		if err := s.InsertPlayerCondition(ctx, row); err != nil {
			t.Fatalf("InsertPlayerCondition() error = %v, want nil", err)
		}
	}
	if err := s.InsertUnitCondition(ctx, types.RecordRow{ID: 4, Definition: `{"variable": [1]}`}); err != nil {
		t.Fatalf("InsertUnitCondition() error = %v, want nil", err)
	}
	if err := s.InsertExpression(ctx, types.ExpressionRow{ID: 7, Expression: "00"}); err != nil {
		t.Fatalf("InsertExpression() error = %v, want nil", err)
	}

	got, err := s.LoadSource(ctx)
	if err != nil {
		t.Fatalf("LoadSource() error = %v, want nil", err)
	}

	want := conditions.Source{
		Conditions:       rows,
		PlayerConditions: []types.RecordRow{players[1], players[0]},
		UnitConditions:   []types.RecordRow{{ID: 4, Definition: `{"variable": [1]}`}},
		Expressions:      []types.ExpressionRow{{ID: 7, Expression: "00"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadSource() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_DuplicateRecordRejectedByStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.InsertPlayerCondition(ctx, types.RecordRow{ID: 1, Definition: "{}"}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertPlayerCondition(ctx, types.RecordRow{ID: 1, Definition: "{}"}); err == nil {
		t.Errorf("InsertPlayerCondition(duplicate) error = nil, want constraint error")
	}
}

func TestStore_EngineRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	// Spell 133 requires map 530 through template 3.
	for _, row := range []types.ConditionRow{
		{SourceKind: -3, PredicateKind: int32(conditions.KindMapID), Value1: 530},
		{SourceKind: int32(conditions.SourceSpell), SourceEntry: 133, PredicateKind: -3},
	} {
		if err := s.InsertCondition(ctx, row); err != nil {
			t.Fatal(err)
		}
	}

	src, err := s.LoadSource(ctx)
	if err != nil {
		t.Fatalf("LoadSource() error = %v, want nil", err)
	}
	e := conditions.NewEngine()
	if report := e.Reload(src); len(report.Rejections) != 0 {
		t.Fatalf("Reload() rejections = %v, want none", report.Rejections)
	}

	h := e.RegisterAndIndex(conditions.SourceSpell, conditions.Key{Entry: 133})
	if !e.Evaluate(h, conditions.NewContext(&worldtest.Map{MapID: 530})) {
		t.Errorf("Evaluate(map 530) = false, want true")
	}
	if e.Evaluate(h, conditions.NewContext(&worldtest.Map{MapID: 1})) {
		t.Errorf("Evaluate(map 1) = true, want false")
	}
}

func TestStore_LoadSourceCanceled(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.LoadSource(ctx); err == nil {
		t.Errorf("LoadSource(canceled) error = nil, want error")
	}
}
