package odm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

// ModelState is the lifecycle state of a registered model.
type ModelState string

const (
	ModelPending ModelState = "pending"
	ModelReady   ModelState = "ready"
	ModelFailed  ModelState = "failed"
)

// ModelStatus is the recorded outcome of a model's boot sequence, exposed
// through the admin API.
type ModelStatus struct {
	Collection      string                  `json:"collection"`
	State           ModelState              `json:"state"`
	Error           string                  `json:"error,omitempty"`
	SyncReport      *domain.SyncReport      `json:"sync_report,omitempty"`
	MigrationReport *domain.MigrationReport `json:"migration_report,omitempty"`
	InitializedAt   time.Time               `json:"initialized_at,omitempty"`
}

// Registry tracks the application's models and their boot status. A service
// should refuse traffic until Ready reports true.
type Registry struct {
	engine *Engine
	db     domain.Database

	mu       sync.RWMutex
	models   []*domain.ModelDescriptor
	statuses map[string]*ModelStatus
}

// NewRegistry creates a registry bound to an engine and a database.
func NewRegistry(engine *Engine, db domain.Database) *Registry {
	return &Registry{
		engine:   engine,
		db:       db,
		statuses: make(map[string]*ModelStatus),
	}
}

// Register adds a model. Models are initialized in registration order.
func (r *Registry) Register(model *domain.ModelDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = append(r.models, model)
	r.statuses[model.Collection] = &ModelStatus{
		Collection: model.Collection,
		State:      ModelPending,
	}
}

// InitializeAll runs the boot sequence for every registered model in order:
// indexes first, then migrations, per model. The first failure marks that
// model failed and stops the run; models after it stay pending. Re-invoking
// is safe and resumes where the previous attempt left off.
func (r *Registry) InitializeAll(ctx context.Context) error {
	r.mu.RLock()
	models := make([]*domain.ModelDescriptor, len(r.models))
	copy(models, r.models)
	r.mu.RUnlock()

	for _, model := range models {
		if err := r.initializeModel(ctx, model); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) initializeModel(ctx context.Context, model *domain.ModelDescriptor) error {
	syncReport, err := r.engine.SyncIndexes(ctx, r.db, model)
	if err != nil {
		r.recordFailure(model.Collection, syncReport, nil, err)
		return err
	}

	migReport, err := r.engine.Migrate(ctx, r.db, model)
	if err != nil {
		r.recordFailure(model.Collection, syncReport, migReport, err)
		return err
	}

	r.mu.Lock()
	r.statuses[model.Collection] = &ModelStatus{
		Collection:      model.Collection,
		State:           ModelReady,
		SyncReport:      syncReport,
		MigrationReport: migReport,
		InitializedAt:   time.Now().UTC(),
	}
	r.mu.Unlock()
	return nil
}

func (r *Registry) recordFailure(collection string, syncReport *domain.SyncReport, migReport *domain.MigrationReport, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[collection] = &ModelStatus{
		Collection:      collection,
		State:           ModelFailed,
		Error:           err.Error(),
		SyncReport:      syncReport,
		MigrationReport: migReport,
	}
}

// Ready reports whether every registered model initialized successfully.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.models) == 0 {
		return true
	}
	for _, status := range r.statuses {
		if status.State != ModelReady {
			return false
		}
	}
	return true
}

// Statuses returns a snapshot of all model statuses, in registration order.
func (r *Registry) Statuses() []ModelStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelStatus, 0, len(r.models))
	for _, model := range r.models {
		out = append(out, *r.statuses[model.Collection])
	}
	return out
}

// Status returns the status of one model by collection name.
func (r *Registry) Status(collection string) (ModelStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.statuses[collection]
	if !ok {
		return ModelStatus{}, false
	}
	return *status, true
}

// ErrModelNotFound is returned when an operation names a collection no
// registered model covers.
var ErrModelNotFound = errors.New("no registered model for collection")

// Resync re-runs index reconciliation for one model, on demand. Used by the
// admin API to resume after a partial sync failure without restarting the
// process.
func (r *Registry) Resync(ctx context.Context, collection string) (*domain.SyncReport, error) {
	model, ok := r.model(collection)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModelNotFound, collection)
	}
	return r.engine.SyncIndexes(ctx, r.db, model)
}

// Collection returns a handle to a registered model's collection, opened
// with the model's configured policies.
func (r *Registry) Collection(collection string) (domain.CollectionHandle, bool) {
	model, ok := r.model(collection)
	if !ok {
		return nil, false
	}
	return r.db.Collection(model.Collection, model.Config()), true
}

func (r *Registry) model(collection string) (*domain.ModelDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, model := range r.models {
		if model.Collection == collection {
			return model, true
		}
	}
	return nil, false
}
