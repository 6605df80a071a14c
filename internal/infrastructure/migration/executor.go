package migration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/domain/schema"
	"github.com/xerocraft/backend/internal/infrastructure/logger"
)

// ZeroTarget unapplies every migration of an app.
const ZeroTarget = "zero"

// Executor applies and unapplies ledger migrations against a database.
type Executor struct {
	db       *gorm.DB
	graph    *ledger.Graph
	recorder *Recorder
	dialect  Dialect
	logger   *zap.Logger
}

// NewExecutor creates an executor. The dialect is taken from db's dialector.
func NewExecutor(db *gorm.DB, graph *ledger.Graph, logger *zap.Logger) (*Executor, error) {
	d, err := ParseDialect(db.Dialector.Name())
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		db:       db,
		graph:    graph,
		recorder: NewRecorder(db),
		dialect:  d,
		logger:   logger,
	}, nil
}

// Dialect returns the SQL dialect of the connection.
func (e *Executor) Dialect() Dialect { return e.dialect }

// Graph returns the migration graph the executor works on.
func (e *Executor) Graph() *ledger.Graph { return e.graph }

// PlanStep is one migration of a plan.
type PlanStep struct {
	Key       ledger.Key
	Backwards bool
}

func (s PlanStep) String() string {
	if s.Backwards {
		return "unapply " + s.Key.String()
	}
	return "apply " + s.Key.String()
}

// MigrationStatus describes one migration for Show.
type MigrationStatus struct {
	Key       ledger.Key
	Applied   bool
	AppliedAt time.Time
}

func (e *Executor) checkConsistent(applied map[ledger.Key]time.Time) error {
	if conflicts := e.graph.Conflicts(); len(conflicts) > 0 {
		apps := make([]string, 0, len(conflicts))
		for app := range conflicts {
			apps = append(apps, app)
		}
		sort.Strings(apps)
		return fmt.Errorf("%w: %v; add a merge migration", ledger.ErrConflictingLeaves, apps)
	}
	keys := make([]ledger.Key, 0, len(applied))
	for k := range applied {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		if _, ok := e.graph.Node(k); !ok {
			continue
		}
		for _, parent := range e.graph.Parents(k) {
			if _, ok := applied[parent]; !ok {
				return fmt.Errorf("%w: %s is applied before its dependency %s", ledger.ErrInconsistentHistory, k, parent)
			}
		}
	}
	return nil
}

func (e *Executor) load(ctx context.Context) (map[ledger.Key]time.Time, error) {
	if err := e.recorder.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	applied, err := e.recorder.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.checkConsistent(applied); err != nil {
		return nil, err
	}
	return applied, nil
}

func (e *Executor) forwardsTargets(targets []ledger.Key) []ledger.Key {
	if len(targets) == 0 {
		return e.graph.LeafNodes()
	}
	return targets
}

// Plan lists the migrations Migrate would apply for targets.
func (e *Executor) Plan(ctx context.Context, targets ...ledger.Key) ([]PlanStep, error) {
	applied, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	full, err := e.graph.ForwardsPlan(e.forwardsTargets(targets)...)
	if err != nil {
		return nil, err
	}
	var steps []PlanStep
	for _, k := range full {
		if _, ok := applied[k]; !ok {
			steps = append(steps, PlanStep{Key: k})
		}
	}
	return steps, nil
}

// Pending returns the number of unapplied migrations on the way to every leaf.
func (e *Executor) Pending(ctx context.Context) (int, error) {
	steps, err := e.Plan(ctx)
	if err != nil {
		return 0, err
	}
	return len(steps), nil
}

// Show lists every migration of the graph in plan order with its applied state.
func (e *Executor) Show(ctx context.Context) ([]MigrationStatus, error) {
	if err := e.recorder.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	applied, err := e.recorder.Applied(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := e.graph.ForwardsPlan(e.graph.Keys()...)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, 0, len(plan))
	for _, k := range plan {
		at, ok := applied[k]
		out = append(out, MigrationStatus{Key: k, Applied: ok, AppliedAt: at})
	}
	return out, nil
}

// State returns the schema state reached by the applied migrations.
func (e *Executor) State(ctx context.Context) (*schema.State, error) {
	applied, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	var plan []ledger.Key
	for _, k := range e.graph.FullPlan() {
		if _, ok := applied[k]; ok {
			plan = append(plan, k)
		}
	}
	return e.graph.MakeState(plan)
}

// Migrate applies every unapplied migration needed to reach targets, or every
// leaf when no target is given. Each migration commits in its own transaction
// together with its recorder row; the first failure stops the run.
func (e *Executor) Migrate(ctx context.Context, targets ...ledger.Key) error {
	applied, err := e.load(ctx)
	if err != nil {
		return err
	}
	plan, err := e.graph.ForwardsPlan(e.forwardsTargets(targets)...)
	if err != nil {
		return err
	}

	restore, err := e.prepare(ctx)
	if err != nil {
		return err
	}
	defer restore()

	state := schema.NewState()
	count := 0
	for _, k := range plan {
		m, _ := e.graph.Node(k)
		if _, ok := applied[k]; ok {
			if err := m.Apply(state); err != nil {
				return err
			}
			continue
		}
		start := time.Now()
		next, err := e.apply(ctx, m, state)
		if err != nil {
			e.logger.Error("Migration failed",
				zap.String("migration", k.String()),
				zap.Error(err),
			)
			return fmt.Errorf("failed to apply %s: %w", k, err)
		}
		state = next
		count++
		e.logger.Info("Applied migration",
			zap.String("migration", k.String()),
			zap.Duration("duration", time.Since(start)),
		)
	}
	if count == 0 {
		e.logger.Info("No migrations to apply")
	}
	return nil
}

// apply runs m's operations inside one transaction and returns the new state.
func (e *Executor) apply(ctx context.Context, m *ledger.Migration, state *schema.State) (*schema.State, error) {
	ctx = logger.WithMigration(ctx, m.Key().String())
	next := state.Clone()
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ed, err := newSchemaEditor(e.dialect, gormExecer{db: tx})
		if err != nil {
			return err
		}
		for i, op := range m.Operations {
			before := next.Clone()
			if err := op.StateForwards(m.App, next); err != nil {
				return fmt.Errorf("operation %d (%s): %w", i+1, op.Describe(), err)
			}
			if err := op.DatabaseForwards(ctx, ed, m.App, before, next); err != nil {
				return fmt.Errorf("operation %d (%s): %w", i+1, op.Describe(), err)
			}
		}
		return e.recorder.RecordApplied(ctx, tx, m.Key())
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// unapplyTargets returns the migrations that must be unapplied to roll app back to name.
func (e *Executor) unapplyTargets(app, name string) ([]ledger.Key, error) {
	var roots []ledger.Key
	if name == ZeroTarget {
		for _, k := range e.graph.Keys() {
			if k.App != app {
				continue
			}
			sameApp := false
			for _, p := range e.graph.Parents(k) {
				if p.App == app {
					sameApp = true
				}
			}
			if !sameApp {
				roots = append(roots, k)
			}
		}
		if len(roots) == 0 {
			return nil, fmt.Errorf("%w: app %q has no migrations", ledger.ErrNodeNotFound, app)
		}
	} else {
		target := ledger.Key{App: app, Name: name}
		if _, ok := e.graph.Node(target); !ok {
			return nil, fmt.Errorf("%w: %s", ledger.ErrNodeNotFound, target)
		}
		for _, c := range e.graph.Children(target) {
			if c.App == app {
				roots = append(roots, c)
			}
		}
	}
	return e.graph.BackwardsPlan(roots...)
}

type recordedStep struct {
	migration *ledger.Migration
	states    []*schema.State // states[i] is the state before operation i; the last entry is the state after.
}

// Unapply rolls app back so that name is its latest applied migration, or
// removes all of its migrations when name is ZeroTarget. Dependents in other
// apps are unapplied first. Nothing runs unless every involved migration is
// reversible.
func (e *Executor) Unapply(ctx context.Context, app, name string) error {
	applied, err := e.load(ctx)
	if err != nil {
		return err
	}
	plan, err := e.unapplyTargets(app, name)
	if err != nil {
		return err
	}
	undo := make(map[ledger.Key]bool)
	var order []ledger.Key
	for _, k := range plan {
		if _, ok := applied[k]; !ok {
			continue
		}
		m, _ := e.graph.Node(k)
		if !m.Reversible() {
			return fmt.Errorf("%w: %s", ledger.ErrIrreversible, k)
		}
		undo[k] = true
		order = append(order, k)
	}
	if len(order) == 0 {
		e.logger.Info("No migrations to unapply", zap.String("app", app))
		return nil
	}

	steps := make(map[ledger.Key]*recordedStep)
	state := schema.NewState()
	for _, k := range e.graph.FullPlan() {
		if _, ok := applied[k]; !ok {
			continue
		}
		m, _ := e.graph.Node(k)
		if !undo[k] {
			if err := m.Apply(state); err != nil {
				return err
			}
			continue
		}
		step := &recordedStep{migration: m}
		for i, op := range m.Operations {
			step.states = append(step.states, state.Clone())
			if err := op.StateForwards(m.App, state); err != nil {
				return fmt.Errorf("%s operation %d (%s): %w", k, i+1, op.Describe(), err)
			}
		}
		step.states = append(step.states, state.Clone())
		steps[k] = step
	}

	restore, err := e.prepare(ctx)
	if err != nil {
		return err
	}
	defer restore()

	for _, k := range order {
		if err := e.unapply(ctx, steps[k]); err != nil {
			e.logger.Error("Unapply failed", zap.String("migration", k.String()), zap.Error(err))
			return fmt.Errorf("failed to unapply %s: %w", k, err)
		}
		e.logger.Info("Unapplied migration", zap.String("migration", k.String()))
	}
	return nil
}

func (e *Executor) unapply(ctx context.Context, step *recordedStep) error {
	m := step.migration
	ctx = logger.WithMigration(ctx, m.Key().String())
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ed, err := newSchemaEditor(e.dialect, gormExecer{db: tx})
		if err != nil {
			return err
		}
		for i := len(m.Operations) - 1; i >= 0; i-- {
			op := m.Operations[i]
			if err := op.DatabaseBackwards(ctx, ed, m.App, step.states[i+1], step.states[i]); err != nil {
				return fmt.Errorf("operation %d (%s): %w", i+1, op.Describe(), err)
			}
		}
		return e.recorder.RecordUnapplied(ctx, tx, m.Key())
	})
}

// prepare turns off sqlite foreign key enforcement while tables are rebuilt.
// The pragma is a no-op inside a transaction, so it is set around the run.
func (e *Executor) prepare(ctx context.Context) (func(), error) {
	if e.dialect != DialectSQLite {
		return func() {}, nil
	}
	if err := e.db.WithContext(ctx).Exec("PRAGMA foreign_keys = OFF").Error; err != nil {
		return nil, fmt.Errorf("failed to disable foreign keys: %w", err)
	}
	return func() {
		if err := e.db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			e.logger.Warn("Failed to re-enable foreign keys", zap.Error(err))
		}
	}, nil
}

// SQL renders the statements of one migration without running them.
func (e *Executor) SQL(key ledger.Key, backwards bool) ([]string, error) {
	return RenderSQL(e.graph, e.dialect, key, backwards)
}

// RenderSQL renders the statements migration key runs on dialect d, starting
// from the state its dependencies produce.
func RenderSQL(g *ledger.Graph, d Dialect, key ledger.Key, backwards bool) ([]string, error) {
	m, ok := g.Node(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrNodeNotFound, key)
	}
	if backwards && !m.Reversible() {
		return nil, fmt.Errorf("%w: %s", ledger.ErrIrreversible, key)
	}
	var state *schema.State
	if parents := g.Parents(key); len(parents) > 0 {
		plan, err := g.ForwardsPlan(parents...)
		if err != nil {
			return nil, err
		}
		if state, err = g.MakeState(plan); err != nil {
			return nil, err
		}
	} else {
		state = schema.NewState()
	}
	return renderMigration(m, state, d, backwards)
}

func renderMigration(m *ledger.Migration, state *schema.State, d Dialect, backwards bool) ([]string, error) {
	c := &collector{}
	ed, err := newSchemaEditor(d, c)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	states := []*schema.State{state.Clone()}
	for i, op := range m.Operations {
		next := states[i].Clone()
		if err := op.StateForwards(m.App, next); err != nil {
			return nil, fmt.Errorf("%s operation %d (%s): %w", m.Key(), i+1, op.Describe(), err)
		}
		states = append(states, next)
		if !backwards {
			if err := op.DatabaseForwards(ctx, ed, m.App, states[i], next); err != nil {
				return nil, err
			}
		}
	}
	if backwards {
		for i := len(m.Operations) - 1; i >= 0; i-- {
			if err := m.Operations[i].DatabaseBackwards(ctx, ed, m.App, states[i+1], states[i]); err != nil {
				return nil, err
			}
		}
	}
	return c.statements, nil
}

// IsLedgerError reports whether err comes from the ledger rather than the database.
func IsLedgerError(err error) bool {
	for _, target := range []error{
		ledger.ErrNodeNotFound, ledger.ErrCircularDependency, ledger.ErrInvalidGraph,
		ledger.ErrConflictingLeaves, ledger.ErrInconsistentHistory, ledger.ErrIrreversible,
		ledger.ErrInvalidOperation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
