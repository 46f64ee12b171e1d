// Package odm sequences boot-time schema maintenance for declared models:
// index reconciliation first, then migrations, once per process lifetime,
// before the service starts accepting traffic.
package odm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/adfharrison1/go-odm/pkg/domain"
	"github.com/adfharrison1/go-odm/pkg/indexing"
	"github.com/adfharrison1/go-odm/pkg/migrate"
)

// Engine drives the two maintenance phases for a model. It holds no mutable
// state of its own; the only mutable resource is the remote collection.
type Engine struct {
	log  zerolog.Logger
	sync *indexing.Synchronizer
	exec *migrate.Executor
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used by the engine and both phases.
func WithLogger(log zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine creates an engine. Logging defaults to a no-op logger.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	e.sync = indexing.NewSynchronizer(e.log)
	e.exec = migrate.NewExecutor(e.log)
	return e
}

// SyncIndexes resolves the model's declared index specs and reconciles the
// backing collection's live index state with them.
func (e *Engine) SyncIndexes(ctx context.Context, db domain.Database, model *domain.ModelDescriptor) (*domain.SyncReport, error) {
	specs, err := indexing.Resolve(model.Collection, model.Indexes)
	if err != nil {
		return nil, err
	}
	coll := db.Collection(model.Collection, model.Config())
	return e.sync.Sync(ctx, coll, specs)
}

// Migrate runs the model's migration registry against its collection.
func (e *Engine) Migrate(ctx context.Context, db domain.Database, model *domain.ModelDescriptor) (*domain.MigrationReport, error) {
	coll := db.Collection(model.Collection, model.Config())
	return e.exec.Run(ctx, coll, model.Migrations)
}

// Initialize runs index synchronization to completion and, only on its
// success, the migration executor. Migrations' filters often rely on the
// declared indexes for acceptable query performance under write load, which
// is why the order is fixed.
//
// The first failure of either phase is surfaced and the rest is skipped;
// nothing is retried internally. A failed Initialize leaves partial progress
// that is always safe to resume by invoking Initialize again.
func (e *Engine) Initialize(ctx context.Context, db domain.Database, model *domain.ModelDescriptor) error {
	if _, err := e.SyncIndexes(ctx, db, model); err != nil {
		return err
	}
	if _, err := e.Migrate(ctx, db, model); err != nil {
		return err
	}
	return nil
}
